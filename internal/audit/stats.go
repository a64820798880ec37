package audit

import (
	"slices"

	"gonum.org/v1/gonum/floats"
)

// Summarize returns min, max and median of a delta series, or nil when the
// series is empty.
func Summarize(deltas []float64) *DeltaStats {
	median, ok := Median(deltas)
	if !ok {
		return nil
	}
	return &DeltaStats{
		Count:    len(deltas),
		MinMs:    floats.Min(deltas),
		MaxMs:    floats.Max(deltas),
		MedianMs: median,
	}
}

// Median returns the median of values without modifying them. For an even
// count it is the mean of the two central elements. It reports false for an
// empty input.
func Median(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2, true
	}
	return sorted[mid], true
}
