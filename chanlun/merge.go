package chanlun

import (
	"math"

	"chanquant/series"
)

// MergeBars resolves containment between consecutive bars in one pass.
//
// A bar contained in the previous merged bar folds into it: up trends keep
// the higher high and higher low, down trends the lower of each, and the
// merged bar keeps the open, close and time of the first bar in its group. A
// bar that contains the previous merged bar replaces it unchanged and is
// re-tested against the new previous, so chains collapse.
func MergeBars(s series.Series) []MergedBar {
	out := make([]MergedBar, 0, len(s))
	for i, b := range s {
		cur := MergedBar{
			Time:        b.Time,
			Open:        b.Open,
			High:        b.High,
			Low:         b.Low,
			Close:       b.Close,
			Volume:      b.Volume,
			SourceStart: i,
			SourceEnd:   i,
		}

		for {
			if len(out) == 0 {
				out = append(out, cur)
				break
			}
			prev := &out[len(out)-1]
			dir := trendDirection(out)

			if within(cur, *prev) {
				prev.High, prev.Low = combine(*prev, cur, dir)
				prev.Volume += cur.Volume
				prev.SourceEnd = cur.SourceEnd
				break
			}
			if within(*prev, cur) {
				// the containing bar survives with its own range
				cur.SourceStart = prev.SourceStart
				cur.Volume += prev.Volume
				out = out[:len(out)-1]
				continue
			}
			out = append(out, cur)
			break
		}
	}

	for i := range out {
		out[i].Index = i
		out[i].Direction = Up
		if i > 0 && out[i].High <= out[i-1].High {
			out[i].Direction = Down
		}
	}
	return out
}

// within reports whether a's range lies inside b's.
func within(a, b MergedBar) bool {
	return a.High <= b.High && a.Low >= b.Low
}

func trendDirection(out []MergedBar) Direction {
	if len(out) < 2 {
		return Up
	}
	if out[len(out)-1].High > out[len(out)-2].High {
		return Up
	}
	return Down
}

func combine(a, b MergedBar, dir Direction) (high, low float64) {
	if dir == Up {
		return math.Max(a.High, b.High), math.Max(a.Low, b.Low)
	}
	return math.Min(a.High, b.High), math.Min(a.Low, b.Low)
}
