// Package testutil provides assertion helpers shared by the sim/ test packages.
package testutil

import (
	"math"
	"testing"
)

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// AssertNonIncreasing fails if any element of series exceeds its predecessor.
func AssertNonIncreasing(t *testing.T, name string, series []float64) {
	t.Helper()
	for i := 1; i < len(series); i++ {
		if series[i] > series[i-1] {
			t.Errorf("%s: value %d (%v) exceeds value %d (%v)", name, i, series[i], i-1, series[i-1])
			return
		}
	}
}
