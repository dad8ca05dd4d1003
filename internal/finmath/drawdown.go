package finmath

import "math"

// MaxDrawdown returns the worst percentage decline from a running peak over
// the series, as a positive percentage. A monotonically non-decreasing series
// yields 0. Values before the first positive peak are ignored.
func MaxDrawdown(values []float64) float64 {
	peak := 0.0
	maxDD := 0.0

	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		dd := (peak - v) / peak * 100
		if dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// MaxRecoveryMonths returns the longest consecutive run, in months, spent
// strictly below the running peak before a new peak is reached. An unresolved
// drawdown at the end of the series still counts.
func MaxRecoveryMonths(values []float64) int {
	peak := math.Inf(-1)
	current := 0
	longest := 0

	for _, v := range values {
		if v >= peak {
			peak = v
			current = 0
			continue
		}
		current++
		if current > longest {
			longest = current
		}
	}
	return longest
}

// UlcerIndex returns the root-mean-square of percentage drawdowns across the
// whole series, penalizing both depth and duration of declines.
// Returns 0 for an empty series.
func UlcerIndex(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	peak := 0.0
	sumSq := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		dd := (peak - v) / peak * 100
		sumSq += dd * dd
	}
	return math.Sqrt(sumSq / float64(len(values)))
}
