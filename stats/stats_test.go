package stats

import (
	"math"
	"testing"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestMedian(t *testing.T) {
	if got := Median([]float64{3, 1, 2}); got != 2 {
		t.Fatalf("odd median = %v", got)
	}
	if got := Median([]float64{4, 1, 3, 2}); got != 2.5 {
		t.Fatalf("even median = %v", got)
	}
	in := []float64{3, 1, 2}
	Median(in)
	if in[0] != 3 {
		t.Fatalf("Median reordered its input: %v", in)
	}
	if Median(nil) != 0 {
		t.Fatalf("empty median should be 0")
	}
}

func TestStd(t *testing.T) {
	xs := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	if !near(PopStd(xs), 2) {
		t.Fatalf("PopStd = %v, want 2", PopStd(xs))
	}
	if !near(Std(xs), math.Sqrt(32.0/7)) {
		t.Fatalf("Std = %v", Std(xs))
	}
	if Std([]float64{1}) != 0 || PopStd(nil) != 0 {
		t.Fatalf("degenerate std should be 0")
	}
}

func TestPctChange(t *testing.T) {
	got := PctChange([]float64{1, 1.1, 0, 2})
	if len(got) != 2 || !near(got[0], 0.1) || !near(got[1], -1) {
		t.Fatalf("PctChange = %v", got)
	}
}
