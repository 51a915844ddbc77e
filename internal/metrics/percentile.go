package metrics

import (
	"math"
	"sort"
)

// Percentile returns the value at rank p (0-100) using linear interpolation
// between the closest order statistics. It returns 0 for an empty input.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	ordered := append([]float64(nil), values...)
	sort.Float64s(ordered)
	if len(ordered) == 1 {
		return ordered[0]
	}

	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}

	idx := float64(len(ordered)-1) * p / 100
	lower := math.Floor(idx)
	upper := math.Ceil(idx)
	if lower == upper {
		return ordered[int(idx)]
	}
	lo, hi := ordered[int(lower)], ordered[int(upper)]
	v := lo + (hi-lo)*(idx-lower)
	// Rounding must not push the blend outside its neighbours.
	return math.Min(math.Max(v, lo), hi)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
