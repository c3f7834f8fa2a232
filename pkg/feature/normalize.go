package feature

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// ScaleToBounds maps v from [lo, hi] onto [0, 1], clipping outside values
func ScaleToBounds(v, lo, hi float64) float64 {
	rangeVal := hi - lo
	if rangeVal <= 0 {
		return 0
	}
	z := (v - lo) / rangeVal
	if z < 0 {
		return 0
	}
	if z > 1 {
		return 1
	}
	return z
}

// aggregate reduces values with the given aggregation
func aggregate(values []float64, agg Aggregation) float64 {
	if len(values) == 0 {
		return 0
	}
	switch agg {
	case AggMin:
		return floats.Min(values)
	case AggMax:
		return floats.Max(values)
	case AggRange:
		return floats.Max(values) - floats.Min(values)
	default:
		return floats.Sum(values) / float64(len(values))
	}
}

// subIntervals splits n samples into k near-equal contiguous intervals and
// returns their [start, end) bounds
func subIntervals(n, k int) [][2]int {
	bounds := make([][2]int, k)
	ratio := float64(n) / float64(k)
	for i := 0; i < k; i++ {
		start := int(math.Round(float64(i) * ratio))
		end := int(math.Round(float64(i+1) * ratio))
		if end > n {
			end = n
		}
		if end <= start && start < n {
			end = start + 1
		}
		bounds[i] = [2]int{start, end}
	}
	return bounds
}

// streamBounds returns the annual min and max of a stream
func streamBounds(values []float64) (lo, hi float64) {
	if len(values) == 0 {
		return 0, 0
	}
	return floats.Min(values), floats.Max(values)
}

// rangeBounds returns the bounds for a range aggregation when auto-scaling:
// a range can never exceed the stream's annual spread
func rangeBounds(lo, hi float64) (float64, float64) {
	return 0, hi - lo
}
