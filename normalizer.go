package qcgraph

import (
	"math"
)

// ClampLimit bounds the normalized Y value so far outliers stay on the chart.
const ClampLimit = 3.9

// Normalize converts a raw result into SD units from the target, clamped to ±ClampLimit.
func Normalize(result, targetValue, sd float64) (float64, error) {
	if !isFinite(result) || !isFinite(targetValue) || !isFinite(sd) || sd <= 0 {
		return 0, ErrInvalidStatisticalBasis
	}
	return clamp((result-targetValue)/sd, -ClampLimit, ClampLimit), nil
}

func NormalizeResult(r QcResult) (float64, error) {
	return Normalize(r.Result, r.TargetValue, r.SD)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
