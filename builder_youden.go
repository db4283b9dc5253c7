package qcgraph

import (
	"time"

	"github.com/blutspende/qcgraph/utils"
	"github.com/rs/zerolog/log"
)

type YoudenBuildInput struct {
	Results    []TwinQcResult
	ShowNoCalc bool
	Now        time.Time
	Location   *time.Location
}

// YoudenPair is one union index with both halves resolved.
type YoudenPair struct {
	UnionIndex int
	X          TwinQcResult
	Y          TwinQcResult
}

// IsToday reports whether either half was measured on the calendar day of now.
func (p YoudenPair) IsToday(now time.Time, loc *time.Location) bool {
	return utils.SameCalendarDate(p.X.QcTime, now, loc) || utils.SameCalendarDate(p.Y.QcTime, now, loc)
}

func (p YoudenPair) Calculated() bool {
	return p.X.Calculated && p.Y.Calculated
}

// State is the worse of both halves.
func (p YoudenPair) State() QcState {
	if p.Y.State > p.X.State {
		return p.Y.State
	}
	return p.X.State
}

// PairYoudenResults matches the X and Y halves by union index. A pair is emitted when
// its second half arrives, so the output follows the order in which pairs complete.
// Halves without a partner are left out.
func PairYoudenResults(results []TwinQcResult) []YoudenPair {
	pending := make(map[int]TwinQcResult)
	pairs := make([]YoudenPair, 0, len(results)/2)
	for _, r := range results {
		first, ok := pending[r.UnionIndex]
		if !ok {
			pending[r.UnionIndex] = r
			continue
		}
		if first.IsX == r.IsX {
			log.Warn().
				Int("unionIndex", r.UnionIndex).
				Int64("resultId", r.ID).
				Bool("isX", r.IsX).
				Msg("youden union index has two results for the same axis, keeping the first")
			continue
		}
		delete(pending, r.UnionIndex)

		pair := YoudenPair{UnionIndex: r.UnionIndex, X: first, Y: r}
		if r.IsX {
			pair.X, pair.Y = r, first
		}
		pairs = append(pairs, pair)
	}
	return pairs
}

// BuildYoudenChart assembles the twin plot. The point id is the id of the X half.
func BuildYoudenChart(in YoudenBuildInput) YoudenChart {
	chart := YoudenChart{ChartSet: newChartSet(YoudenCurveOrder)}
	for _, pair := range PairYoudenResults(in.Results) {
		class := Classify(pair.Calculated(), pair.State(), ClassifyOptions{
			Kind:       ChartYouden,
			ShowNoCalc: in.ShowNoCalc,
			Today:      pair.IsToday(in.Now, in.Location),
		})
		if !class.Visible {
			continue
		}
		x, err := NormalizeResult(pair.X.QcResult)
		if err != nil {
			logDroppedPoint(pair.X.QcResult, err)
			continue
		}
		y, err := NormalizeResult(pair.Y.QcResult)
		if err != nil {
			logDroppedPoint(pair.Y.QcResult, err)
			continue
		}
		chart.add(ChartPoint{X: x, Y: y, CurveID: class.CurveID, ResultID: pair.X.ID, Symbol: class.Symbol})
	}
	return chart
}

// VisibleYoudenRows keeps the rows that form a pair shown on the chart. Orphan halves,
// duplicates of an axis and hidden no-calc pairs are left out. Order is kept.
func VisibleYoudenRows(results []TwinQcResult, showNoCalc bool) []TwinQcResult {
	shown := make(map[int64]bool, len(results))
	for _, pair := range PairYoudenResults(results) {
		if showNoCalc || pair.Calculated() {
			shown[pair.X.ID] = true
			shown[pair.Y.ID] = true
		}
	}
	return utils.Filter(results, func(r TwinQcResult) bool { return shown[r.ID] })
}
