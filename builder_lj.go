package qcgraph

import (
	"sort"
	"time"

	"github.com/blutspende/qcgraph/utils"
	"github.com/rs/zerolog/log"
)

// LJBuildInput carries the result table of every level slot plus the chart toggles.
// Levels[i] holds the rows of slot i+1 in table order.
type LJBuildInput struct {
	Levels        [LevelSlotCount][]QcResult
	Mode          XAxisMode
	ShowNoCalc    bool
	ShowSubPoints bool
	Location      *time.Location
}

// VisibleRows drops the no-calc rows when they are hidden. The day axis also drops
// rows without a measurement time. Order is kept.
func VisibleRows(results []QcResult, showNoCalc bool, mode XAxisMode) []QcResult {
	if showNoCalc && mode != XAxisByDay {
		return results
	}
	return utils.Filter(results, func(r QcResult) bool {
		if mode == XAxisByDay && r.QcTime.IsZero() {
			return false
		}
		return showNoCalc || r.Calculated
	})
}

// BuildLJChart assembles the Levey-Jennings series. The function is pure: the same
// input always yields identical series.
func BuildLJChart(in LJBuildInput) LJChart {
	chart := LJChart{Mode: in.Mode, ChartSet: newChartSet(LJCurveOrder)}
	if in.Mode == XAxisByCount {
		buildLJByCount(&chart, in)
		return chart
	}
	buildLJByDay(&chart, in)
	return chart
}

func buildLJByCount(chart *LJChart, in LJBuildInput) {
	for i := 0; i < LevelSlotCount; i++ {
		slot := LevelSlot(i + 1)
		rows := VisibleRows(in.Levels[i], in.ShowNoCalc, XAxisByCount)
		for rowIndex, r := range rows {
			class := Classify(r.Calculated, r.State, ClassifyOptions{
				Kind:          ChartLJByCount,
				Slot:          slot,
				ShowNoCalc:    in.ShowNoCalc,
				ShowSubPoints: in.ShowSubPoints,
			})
			if !class.Visible {
				continue
			}
			y, err := NormalizeResult(r)
			if err != nil {
				logDroppedPoint(r, err)
				continue
			}
			chart.add(ChartPoint{X: float64(rowIndex + 1), Y: y, CurveID: class.CurveID, ResultID: r.ID, Symbol: class.Symbol})
		}
	}
}

type dayBucket struct {
	x              int
	sum            float64
	count          int
	representative QcResult
}

func buildLJByDay(chart *LJChart, in LJBuildInput) {
	minDate, ok := earliestDate(in)
	if !ok {
		return
	}
	chart.StartDate = utils.CalendarDate(minDate, in.Location)

	for i := 0; i < LevelSlotCount; i++ {
		slot := LevelSlot(i + 1)
		buckets := map[int]*dayBucket{}

		for _, r := range in.Levels[i] {
			if r.QcTime.IsZero() {
				log.Warn().Int64("resultId", r.ID).Str("assay", r.AssayName).Msg("qc result without measurement time dropped from chart")
				continue
			}
			class := Classify(r.Calculated, r.State, ClassifyOptions{
				Kind:          ChartLJByDay,
				Slot:          slot,
				ShowNoCalc:    in.ShowNoCalc,
				ShowSubPoints: in.ShowSubPoints,
			})
			if class.NoCalc && !class.Visible {
				continue
			}
			y, err := NormalizeResult(r)
			if err != nil {
				logDroppedPoint(r, err)
				continue
			}
			x := utils.DaysBetween(minDate, r.QcTime, in.Location) + 1
			if class.Visible {
				chart.add(ChartPoint{X: float64(x), Y: y, CurveID: class.CurveID, ResultID: r.ID, Symbol: class.Symbol})
			}
			if class.NoCalc {
				continue
			}

			bucket, exists := buckets[x]
			if !exists {
				bucket = &dayBucket{x: x, representative: r}
				buckets[x] = bucket
			}
			bucket.sum += r.Result
			bucket.count++
			if isMoreRecent(r, bucket.representative) {
				bucket.representative = r
			}
		}

		for _, bucket := range sortedBuckets(buckets) {
			mean := bucket.sum / float64(bucket.count)
			y, err := Normalize(mean, bucket.representative.TargetValue, bucket.representative.SD)
			if err != nil {
				logDroppedPoint(bucket.representative, err)
				continue
			}
			chart.add(ChartPoint{
				X:        float64(bucket.x),
				Y:        y,
				CurveID:  slot.MainCurve(),
				ResultID: bucket.representative.ID,
				Symbol:   SymbolEllipse,
			})
		}
	}
}

// earliestDate is taken over every dated row that is part of a level table.
func earliestDate(in LJBuildInput) (time.Time, bool) {
	var minDate time.Time
	found := false
	for i := 0; i < LevelSlotCount; i++ {
		for _, r := range VisibleRows(in.Levels[i], in.ShowNoCalc, XAxisByDay) {
			if !found || r.QcTime.Before(minDate) {
				minDate = r.QcTime
				found = true
			}
		}
	}
	return minDate, found
}

// isMoreRecent orders by QcTime and breaks ties with the larger id.
func isMoreRecent(candidate, current QcResult) bool {
	if candidate.QcTime.Equal(current.QcTime) {
		return candidate.ID > current.ID
	}
	return candidate.QcTime.After(current.QcTime)
}

func sortedBuckets(buckets map[int]*dayBucket) []*dayBucket {
	sorted := make([]*dayBucket, 0, len(buckets))
	for _, bucket := range buckets {
		sorted = append(sorted, bucket)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].x < sorted[j].x })
	return sorted
}

func logDroppedPoint(r QcResult, err error) {
	log.Warn().Err(err).
		Int64("resultId", r.ID).
		Str("assay", r.AssayName).
		Float64("targetValue", r.TargetValue).
		Float64("sd", r.SD).
		Msg("qc result dropped from chart")
}
