package qcgraph

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioLevels() [LevelSlotCount][]QcResult {
	var levels [LevelSlotCount][]QcResult
	levels[0] = []QcResult{
		levelResult(11, day(2024, 1, 1, 8), 12, QcStateInControl),
		levelResult(12, day(2024, 1, 1, 14), 8, QcStateInControl),
		levelResult(13, day(2024, 1, 2, 9), 14, QcStateInControl),
	}
	return levels
}

func assertParallelArrays(t *testing.T, set ChartSet) {
	for _, series := range set.Series {
		assert.Equal(t, len(series.Points), len(series.IDs), string(series.ID))
		assert.Equal(t, len(series.Points), len(series.Symbols), string(series.ID))
	}
}

func TestBuildLJChartByDayScenario(t *testing.T) {
	chart := BuildLJChart(LJBuildInput{
		Levels:        scenarioLevels(),
		Mode:          XAxisByDay,
		ShowNoCalc:    true,
		ShowSubPoints: true,
		Location:      time.UTC,
	})

	subPoints, ok := chart.Get(CurveLJQc1SubPt)
	require.True(t, ok)
	assert.Equal(t, []Point{{X: 1, Y: 1}, {X: 1, Y: -1}, {X: 2, Y: 2}}, subPoints.Points)
	assert.Equal(t, []int64{11, 12, 13}, subPoints.IDs)

	mean, ok := chart.Get(CurveLJQc1)
	require.True(t, ok)
	assert.Equal(t, []Point{{X: 1, Y: 0}, {X: 2, Y: 2}}, mean.Points)
	assert.Equal(t, []SymbolStyle{SymbolEllipse, SymbolEllipse}, mean.Symbols)
	assert.Equal(t, day(2024, 1, 1, 0), chart.StartDate)

	assertParallelArrays(t, chart.ChartSet)
}

func TestBuildLJChartByDaySkipsUndatedResults(t *testing.T) {
	var levels [LevelSlotCount][]QcResult
	levels[0] = []QcResult{
		levelResult(11, day(2024, 1, 1, 8), 12, QcStateInControl),
		levelResult(12, time.Time{}, 8, QcStateInControl),
		levelResult(13, day(2024, 1, 2, 9), 14, QcStateInControl),
	}
	chart := BuildLJChart(LJBuildInput{
		Levels:        levels,
		Mode:          XAxisByDay,
		ShowNoCalc:    true,
		ShowSubPoints: true,
		Location:      time.UTC,
	})

	assert.Equal(t, day(2024, 1, 1, 0), chart.StartDate)
	subPoints, ok := chart.Get(CurveLJQc1SubPt)
	require.True(t, ok)
	assert.Equal(t, []Point{{X: 1, Y: 1}, {X: 2, Y: 2}}, subPoints.Points)
	assert.Equal(t, []int64{11, 13}, subPoints.IDs)

	mean, ok := chart.Get(CurveLJQc1)
	require.True(t, ok)
	assert.Equal(t, []Point{{X: 1, Y: 1}, {X: 2, Y: 2}}, mean.Points)
	assertParallelArrays(t, chart.ChartSet)
}

func TestVisibleRowsDropsUndatedRowsOnDayAxis(t *testing.T) {
	rows := []QcResult{
		levelResult(1, day(2024, 1, 1, 8), 12, QcStateInControl),
		levelResult(2, time.Time{}, 8, QcStateInControl),
		noCalc(levelResult(3, day(2024, 1, 2, 8), 9, QcStateInControl)),
	}

	byDay := VisibleRows(rows, true, XAxisByDay)
	assert.Equal(t, []int64{1, 3}, []int64{byDay[0].ID, byDay[1].ID})
	assert.Len(t, byDay, 2)
	assert.Len(t, VisibleRows(rows, true, XAxisByCount), 3)
	assert.Len(t, VisibleRows(rows, false, XAxisByDay), 1)
	assert.Len(t, VisibleRows(rows, false, XAxisByCount), 2)
}

func TestBuildLJChartEmitsEverySeries(t *testing.T) {
	chart := BuildLJChart(LJBuildInput{Mode: XAxisByDay, Location: time.UTC})

	require.Len(t, chart.Series, len(LJCurveOrder))
	for i, series := range chart.Series {
		assert.Equal(t, LJCurveOrder[i], series.ID)
		assert.NotNil(t, series.Points)
		assert.Equal(t, 0, series.Len())
	}
}

func TestBuildLJChartSubPointsHidden(t *testing.T) {
	chart := BuildLJChart(LJBuildInput{
		Levels:   scenarioLevels(),
		Mode:     XAxisByDay,
		Location: time.UTC,
	})

	subPoints, _ := chart.Get(CurveLJQc1SubPt)
	assert.Equal(t, 0, subPoints.Len())
	mean, _ := chart.Get(CurveLJQc1)
	assert.Equal(t, 2, mean.Len())
}

func TestBuildLJChartDailyMeanUsesMostRecentTarget(t *testing.T) {
	var levels [LevelSlotCount][]QcResult
	early := levelResult(21, day(2024, 1, 1, 8), 12, QcStateInControl)
	late := levelResult(20, day(2024, 1, 1, 16), 14, QcStateInControl)
	late.TargetValue = 12
	late.SD = 1
	levels[1] = []QcResult{late, early}

	chart := BuildLJChart(LJBuildInput{Levels: levels, Mode: XAxisByDay, Location: time.UTC})

	mean, _ := chart.Get(CurveLJQc2)
	require.Equal(t, 1, mean.Len())
	// mean 13 against target 12 and SD 1 of the latest result
	assert.Equal(t, Point{X: 1, Y: 1}, mean.Points[0])
	assert.Equal(t, int64(20), mean.IDs[0])
}

func TestBuildLJChartDailyMeanTieBreaksOnLargerID(t *testing.T) {
	var levels [LevelSlotCount][]QcResult
	a := levelResult(31, day(2024, 1, 1, 8), 10, QcStateInControl)
	b := levelResult(35, day(2024, 1, 1, 8), 14, QcStateInControl)
	b.TargetValue = 14
	levels[0] = []QcResult{b, a}

	chart := BuildLJChart(LJBuildInput{Levels: levels, Mode: XAxisByDay, Location: time.UTC})

	mean, _ := chart.Get(CurveLJQc1)
	require.Equal(t, 1, mean.Len())
	assert.Equal(t, int64(35), mean.IDs[0])
	assert.Equal(t, -1.0, mean.Points[0].Y)
}

func TestBuildLJChartNoCalcPoints(t *testing.T) {
	var levels [LevelSlotCount][]QcResult
	levels[0] = []QcResult{
		levelResult(1, day(2024, 1, 2, 8), 12, QcStateInControl),
		noCalc(levelResult(2, day(2024, 1, 1, 8), 16, QcStateOutOfControl)),
	}
	levels[2] = []QcResult{
		noCalc(levelResult(3, day(2024, 1, 3, 8), 6, QcStateWarning)),
	}

	for _, mode := range []XAxisMode{XAxisByDay, XAxisByCount} {
		shown := BuildLJChart(LJBuildInput{Levels: levels, Mode: mode, ShowNoCalc: true, ShowSubPoints: true, Location: time.UTC})
		for _, id := range []int64{2, 3} {
			for _, series := range shown.Series {
				if series.ID == CurveLJNoCalc {
					assert.True(t, shown.Contains(series.ID, id), "mode %s id %d", mode, id)
				} else {
					assert.False(t, shown.Contains(series.ID, id), "mode %s id %d in %s", mode, id, series.ID)
				}
			}
		}
		noCalcSeries, _ := shown.Get(CurveLJNoCalc)
		assert.Equal(t, []SymbolStyle{SymbolEllipse, SymbolEllipse}, noCalcSeries.Symbols)

		hidden := BuildLJChart(LJBuildInput{Levels: levels, Mode: mode, ShowSubPoints: true, Location: time.UTC})
		for _, series := range hidden.Series {
			assert.False(t, hidden.Contains(series.ID, 2))
			assert.False(t, hidden.Contains(series.ID, 3))
		}
	}
}

func TestBuildLJChartNoCalcShiftsEarliestDate(t *testing.T) {
	var levels [LevelSlotCount][]QcResult
	levels[0] = []QcResult{
		noCalc(levelResult(2, day(2024, 1, 1, 8), 10, QcStateInControl)),
		levelResult(1, day(2024, 1, 3, 8), 12, QcStateInControl),
	}

	shown := BuildLJChart(LJBuildInput{Levels: levels, Mode: XAxisByDay, ShowNoCalc: true, Location: time.UTC})
	mean, _ := shown.Get(CurveLJQc1)
	assert.Equal(t, 3.0, mean.Points[0].X)

	hidden := BuildLJChart(LJBuildInput{Levels: levels, Mode: XAxisByDay, Location: time.UTC})
	mean, _ = hidden.Get(CurveLJQc1)
	assert.Equal(t, 1.0, mean.Points[0].X)
}

func TestBuildLJChartByCount(t *testing.T) {
	var levels [LevelSlotCount][]QcResult
	levels[3] = []QcResult{
		levelResult(41, day(2024, 1, 1, 8), 12, QcStateInControl),
		noCalc(levelResult(42, day(2024, 1, 1, 9), 10, QcStateInControl)),
		levelResult(43, day(2024, 1, 5, 8), 15, QcStateWarning),
		levelResult(44, day(2024, 1, 9, 8), 17, QcStateOutOfControl),
	}

	chart := BuildLJChart(LJBuildInput{Levels: levels, Mode: XAxisByCount, Location: time.UTC})
	main, _ := chart.Get(CurveLJQc4)
	assert.Equal(t, []Point{{X: 1, Y: 1}, {X: 2, Y: 2.5}, {X: 3, Y: 3.5}}, main.Points)
	assert.Equal(t, []SymbolStyle{SymbolEllipse, SymbolTriangle, SymbolXCross}, main.Symbols)

	withNoCalc := BuildLJChart(LJBuildInput{Levels: levels, Mode: XAxisByCount, ShowNoCalc: true, Location: time.UTC})
	main, _ = withNoCalc.Get(CurveLJQc4)
	assert.Equal(t, []float64{1, 3, 4}, []float64{main.Points[0].X, main.Points[1].X, main.Points[2].X})
	noCalcSeries, _ := withNoCalc.Get(CurveLJNoCalc)
	assert.Equal(t, []Point{{X: 2, Y: 0}}, noCalcSeries.Points)

	subPoints, _ := withNoCalc.Get(CurveLJQc4SubPt)
	assert.Equal(t, 0, subPoints.Len())
}

func TestBuildLJChartDropsInvalidStatisticalBasis(t *testing.T) {
	levels := scenarioLevels()
	broken := levelResult(14, day(2024, 1, 2, 10), 30, QcStateInControl)
	broken.SD = 0
	levels[0] = append(levels[0], broken)

	chart := BuildLJChart(LJBuildInput{Levels: levels, Mode: XAxisByDay, ShowNoCalc: true, ShowSubPoints: true, Location: time.UTC})

	for _, series := range chart.Series {
		assert.False(t, chart.Contains(series.ID, 14))
	}
	mean, _ := chart.Get(CurveLJQc1)
	assert.Equal(t, []Point{{X: 1, Y: 0}, {X: 2, Y: 2}}, mean.Points)
	assertParallelArrays(t, chart.ChartSet)
}

func TestBuildLJChartIsIdempotent(t *testing.T) {
	levels := scenarioLevels()
	levels[1] = []QcResult{
		levelResult(51, day(2024, 1, 4, 8), 11.3, QcStateWarning),
		noCalc(levelResult(52, day(2024, 1, 5, 8), 7.1, QcStateInControl)),
		levelResult(53, day(2024, 1, 5, 9), 9.7, QcStateOutOfControl),
	}

	for _, mode := range []XAxisMode{XAxisByDay, XAxisByCount} {
		for _, showNoCalc := range []bool{true, false} {
			in := LJBuildInput{Levels: levels, Mode: mode, ShowNoCalc: showNoCalc, ShowSubPoints: true, Location: time.UTC}
			first := BuildLJChart(in)
			second := BuildLJChart(in)
			if diff := cmp.Diff(first, second); diff != "" {
				t.Errorf("mode %s showNoCalc %v: rebuild differs (-first +second):\n%s", mode, showNoCalc, diff)
			}
			assertParallelArrays(t, first.ChartSet)
		}
	}
}
