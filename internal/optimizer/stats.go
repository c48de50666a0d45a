package optimizer

import (
	"math"
	"sort"
)

// percentile returns the pth percentile of values using linear interpolation
// between closest ranks. p is in [0, 100]. Returns 0 for an empty slice.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	rank := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	frac := rank - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// median returns the middle value of values, averaging the two middle values
// for even-length input. Returns 0 for an empty slice.
func median(values []float64) float64 {
	return percentile(values, 50)
}

// winsorizedMedian caps values above the pth percentile before taking the
// median, so a handful of outlier rows cannot drag the benchmark.
func winsorizedMedian(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	cap := percentile(values, p)
	capped := make([]float64, len(values))
	for i, v := range values {
		if v > cap {
			capped[i] = cap
		} else {
			capped[i] = v
		}
	}
	return median(capped)
}

// clip bounds v to [lo, hi].
func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// round2 rounds a money amount to 2 decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
