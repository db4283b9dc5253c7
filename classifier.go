package qcgraph

// ChartKind is the chart a point is classified for.
type ChartKind int

const (
	ChartLJByDay ChartKind = iota
	ChartLJByCount
	ChartYouden
)

func (m XAxisMode) ChartKind() ChartKind {
	if m == XAxisByCount {
		return ChartLJByCount
	}
	return ChartLJByDay
}

type ClassifyOptions struct {
	Kind          ChartKind
	Slot          LevelSlot
	ShowNoCalc    bool
	ShowSubPoints bool
	// Today is only used for Youden.
	Today bool
}

// Classification is the series a point belongs to. Visible is false when the point
// must not be drawn at all (hidden no-calc or hidden sub-points).
type Classification struct {
	CurveID CurveID
	Symbol  SymbolStyle
	NoCalc  bool
	Visible bool
}

// SymbolForState maps the QC state to the point glyph.
func SymbolForState(state QcState) SymbolStyle {
	switch state {
	case QcStateWarning:
		return SymbolTriangle
	case QcStateOutOfControl:
		return SymbolXCross
	default:
		return SymbolEllipse
	}
}

// Classify evaluates the series decision table for one point. The no-calc rule
// overrides every other rule.
func Classify(calculated bool, state QcState, opts ClassifyOptions) Classification {
	if !calculated {
		return Classification{
			CurveID: noCalcCurve(opts.Kind),
			Symbol:  SymbolEllipse,
			NoCalc:  true,
			Visible: opts.ShowNoCalc,
		}
	}

	switch opts.Kind {
	case ChartLJByDay:
		return Classification{
			CurveID: opts.Slot.SubPointCurve(),
			Symbol:  SymbolForState(state),
			Visible: opts.ShowSubPoints && opts.Slot.Valid(),
		}
	case ChartLJByCount:
		return Classification{
			CurveID: opts.Slot.MainCurve(),
			Symbol:  SymbolForState(state),
			Visible: opts.Slot.Valid(),
		}
	case ChartYouden:
		curveID := CurveYoudenHist
		if opts.Today {
			curveID = CurveYoudenToday
		}
		return Classification{
			CurveID: curveID,
			Symbol:  SymbolForState(state),
			Visible: true,
		}
	}
	return Classification{CurveID: CurveNone}
}

func noCalcCurve(kind ChartKind) CurveID {
	if kind == ChartYouden {
		return CurveYoudenNoCal
	}
	return CurveLJNoCalc
}

// CurveForResult is the curve a table row of the LJ chart is drawn on, used to
// select the chart point of a row.
func CurveForResult(r QcResult, slot LevelSlot, mode XAxisMode) CurveID {
	if !r.Calculated {
		return CurveLJNoCalc
	}
	if mode == XAxisByCount {
		return slot.MainCurve()
	}
	return slot.SubPointCurve()
}
