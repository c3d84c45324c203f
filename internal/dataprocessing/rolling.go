package dataprocessing

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// MovingAverageWindow is the number of trailing rows averaged by moving-average figures
const MovingAverageWindow = 30

// RollingMean returns the trailing mean over window rows. The output has the same length as
// values; the first window-1 entries are NaN, and so is any entry whose window holds a NaN.
func RollingMean(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if window <= 0 {
		return out
	}

	// lastNaN tracks the most recent missing index so a window can be rejected in O(1).
	lastNaN := -1
	for i, v := range values {
		if math.IsNaN(v) {
			lastNaN = i
		}
		start := i - window + 1
		if start < 0 || lastNaN >= start {
			continue
		}
		out[i] = stat.Mean(values[start:i+1], nil)
	}
	return out
}
