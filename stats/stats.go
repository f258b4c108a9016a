// Package stats holds the small descriptive statistics shared by the
// simulator and the optimizer.
package stats

import (
	"math"
	"sort"
)

// Mean computes mean of a float64 slice
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

// Median of a copy of data; 0 when empty.
func Median(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// Std is the sample standard deviation (n-1).
func Std(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return math.Sqrt(sumSq(data) / float64(len(data)-1))
}

// PopStd is the population standard deviation (n).
func PopStd(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return math.Sqrt(sumSq(data) / float64(len(data)))
}

func sumSq(data []float64) float64 {
	m := Mean(data)
	s := 0.0
	for _, v := range data {
		d := v - m
		s += d * d
	}
	return s
}

// PctChange returns xs[i]/xs[i-1]-1 for i >= 1, skipping non-positive bases.
func PctChange(xs []float64) []float64 {
	if len(xs) < 2 {
		return nil
	}
	out := make([]float64, 0, len(xs)-1)
	for i := 1; i < len(xs); i++ {
		if xs[i-1] <= 0 {
			continue
		}
		out = append(out, xs[i]/xs[i-1]-1)
	}
	return out
}
