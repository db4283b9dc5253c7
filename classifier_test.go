package qcgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSymbolForState(t *testing.T) {
	assert.Equal(t, SymbolEllipse, SymbolForState(QcStateNone))
	assert.Equal(t, SymbolEllipse, SymbolForState(QcStateInControl))
	assert.Equal(t, SymbolTriangle, SymbolForState(QcStateWarning))
	assert.Equal(t, SymbolXCross, SymbolForState(QcStateOutOfControl))
}

func TestClassifyNoCalcOverridesEverything(t *testing.T) {
	for _, kind := range []ChartKind{ChartLJByDay, ChartLJByCount, ChartYouden} {
		class := Classify(false, QcStateOutOfControl, ClassifyOptions{Kind: kind, Slot: 2, ShowNoCalc: true, ShowSubPoints: true, Today: true})
		assert.True(t, class.NoCalc)
		assert.True(t, class.Visible)
		assert.Equal(t, SymbolEllipse, class.Symbol)
		if kind == ChartYouden {
			assert.Equal(t, CurveYoudenNoCal, class.CurveID)
		} else {
			assert.Equal(t, CurveLJNoCalc, class.CurveID)
		}

		hidden := Classify(false, QcStateInControl, ClassifyOptions{Kind: kind, Slot: 2})
		assert.False(t, hidden.Visible)
	}
}

func TestClassifyLJModes(t *testing.T) {
	byDay := Classify(true, QcStateWarning, ClassifyOptions{Kind: ChartLJByDay, Slot: 3, ShowSubPoints: true})
	assert.Equal(t, CurveLJQc3SubPt, byDay.CurveID)
	assert.Equal(t, SymbolTriangle, byDay.Symbol)
	assert.True(t, byDay.Visible)

	subPointsHidden := Classify(true, QcStateWarning, ClassifyOptions{Kind: ChartLJByDay, Slot: 3})
	assert.False(t, subPointsHidden.Visible)

	byCount := Classify(true, QcStateOutOfControl, ClassifyOptions{Kind: ChartLJByCount, Slot: 1})
	assert.Equal(t, CurveLJQc1, byCount.CurveID)
	assert.Equal(t, SymbolXCross, byCount.Symbol)
	assert.True(t, byCount.Visible)

	invalidSlot := Classify(true, QcStateInControl, ClassifyOptions{Kind: ChartLJByCount, Slot: 5})
	assert.False(t, invalidSlot.Visible)
}

func TestClassifyYoudenTodayAndHistory(t *testing.T) {
	today := Classify(true, QcStateInControl, ClassifyOptions{Kind: ChartYouden, Today: true})
	assert.Equal(t, CurveYoudenToday, today.CurveID)

	history := Classify(true, QcStateInControl, ClassifyOptions{Kind: ChartYouden})
	assert.Equal(t, CurveYoudenHist, history.CurveID)
}

func TestCurveForResult(t *testing.T) {
	r := levelResult(1, day(2024, 1, 1, 8), 12, QcStateInControl)

	assert.Equal(t, CurveLJQc2SubPt, CurveForResult(r, 2, XAxisByDay))
	assert.Equal(t, CurveLJQc2, CurveForResult(r, 2, XAxisByCount))
	assert.Equal(t, CurveLJNoCalc, CurveForResult(noCalc(r), 2, XAxisByCount))
}
