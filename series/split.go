package series

import (
	"time"
)

// IndexAtOrAfter finds the first index where s[i].Time >= t using binary search
func (s Series) IndexAtOrAfter(t time.Time) int {
	lo, hi := 0, len(s)
	for lo < hi {
		mid := (lo + hi) / 2
		if s[mid].Time.Before(t) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// indexAfter finds the first index where s[i].Time > t
func (s Series) indexAfter(t time.Time) int {
	lo, hi := 0, len(s)
	for lo < hi {
		mid := (lo + hi) / 2
		if !s[mid].Time.After(t) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// Slice returns bars from i0 (inclusive) to i1 (exclusive), clamped to bounds.
// The result shares the backing array.
func (s Series) Slice(i0, i1 int) Series {
	if i0 < 0 {
		i0 = 0
	}
	if i1 > len(s) {
		i1 = len(s)
	}
	if i0 >= i1 {
		return Series{}
	}
	return s[i0:i1]
}

// Between returns the bars whose time falls in [start, end].
// A zero start or end leaves that side unbounded.
func (s Series) Between(start, end time.Time) Series {
	i0, i1 := 0, len(s)
	if !start.IsZero() {
		i0 = s.IndexAtOrAfter(start)
	}
	if !end.IsZero() {
		i1 = s.indexAfter(end)
	}
	return s.Slice(i0, i1)
}

// First returns the time of the first bar, zero when empty.
func (s Series) First() time.Time {
	if len(s) == 0 {
		return time.Time{}
	}
	return s[0].Time
}

// Last returns the time of the last bar, zero when empty.
func (s Series) Last() time.Time {
	if len(s) == 0 {
		return time.Time{}
	}
	return s[len(s)-1].Time
}
