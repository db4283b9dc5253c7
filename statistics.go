package qcgraph

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// LevelStatistics summarizes the calculated results of one QC material.
type LevelStatistics struct {
	Slot        LevelSlot `json:"slot"`
	QcDocID     string    `json:"qcDocId"`
	TargetValue float64   `json:"targetValue"`
	TargetSD    float64   `json:"targetSd"`
	Count       int       `json:"count"`
	Mean        float64   `json:"mean"`
	SD          float64   `json:"sd"`
	CV          float64   `json:"cv"`
}

// ComputeLevelStatistics uses only calculated results. SD is the sample standard
// deviation and is zero for fewer than two results. CV is given in percent.
func ComputeLevelStatistics(slot LevelSlot, doc QcDocInfo, results []QcResult) LevelStatistics {
	values := make([]float64, 0, len(results))
	for _, r := range results {
		if r.Calculated && isFinite(r.Result) {
			values = append(values, r.Result)
		}
	}

	statistics := LevelStatistics{
		Slot:        slot,
		QcDocID:     doc.ID,
		TargetValue: doc.TargetValue,
		TargetSD:    doc.SD,
		Count:       len(values),
	}
	switch len(values) {
	case 0:
		return statistics
	case 1:
		statistics.Mean = values[0]
	default:
		statistics.Mean, statistics.SD = stat.MeanStdDev(values, nil)
	}
	if statistics.Mean != 0 {
		statistics.CV = math.Abs(statistics.SD/statistics.Mean) * 100
	}
	return statistics
}
