package chanlun

import (
	"fmt"
)

// StrokeBuilder turns a fractal sequence into strokes.
type StrokeBuilder interface {
	Build(bars []MergedBar, fractals []Fractal) []Stroke
}

type StrokeStrategy string

const (
	// StrategyGreedy stops at the first anchor with no qualifying partner.
	StrategyGreedy StrokeStrategy = "greedy"
	// StrategySkip moves the anchor forward and keeps scanning instead.
	StrategySkip StrokeStrategy = "skip"
)

// StrokeRules are the acceptance constraints shared by every builder.
type StrokeRules struct {
	MinGap    int     // minimum merged-bar distance between the two fractals
	Threshold float64 // minimum |end-start|/start
}

// NewStrokeBuilder returns the builder for a strategy name.
func NewStrokeBuilder(strategy StrokeStrategy, rules StrokeRules) (StrokeBuilder, error) {
	switch strategy {
	case "", StrategyGreedy:
		return GreedyBuilder{Rules: rules}, nil
	case StrategySkip:
		return SkipBuilder{Rules: rules}, nil
	}
	return nil, fmt.Errorf("unknown stroke strategy %q", strategy)
}

// GreedyBuilder scans left to right. From the current anchor it takes the
// nearest opposite fractal that satisfies the rules; if none does, it stops.
type GreedyBuilder struct {
	Rules StrokeRules
}

func (g GreedyBuilder) Build(bars []MergedBar, fractals []Fractal) []Stroke {
	if len(fractals) < 2 || len(bars) == 0 {
		return nil
	}
	var out []Stroke
	anchor := 0
	for {
		j := g.Rules.nextPartner(fractals, anchor)
		if j < 0 {
			break
		}
		out = append(out, newStroke(bars, fractals[anchor], fractals[j]))
		anchor = j
	}
	return out
}

// SkipBuilder behaves like GreedyBuilder but on failure advances the anchor
// instead of stopping. Before the first stroke any fractal may become the
// anchor; afterwards only fractals of the same kind, so directions still
// alternate.
type SkipBuilder struct {
	Rules StrokeRules
}

func (s SkipBuilder) Build(bars []MergedBar, fractals []Fractal) []Stroke {
	if len(fractals) < 2 || len(bars) == 0 {
		return nil
	}
	var out []Stroke
	anchor := 0
	for anchor < len(fractals)-1 {
		j := s.Rules.nextPartner(fractals, anchor)
		if j >= 0 {
			out = append(out, newStroke(bars, fractals[anchor], fractals[j]))
			anchor = j
			continue
		}
		next := anchor + 1
		if len(out) > 0 {
			for next < len(fractals) && fractals[next].Kind != fractals[anchor].Kind {
				next++
			}
		}
		anchor = next
	}
	return out
}

// nextPartner returns the index of the nearest fractal after anchor that
// closes a valid stroke, or -1.
func (r StrokeRules) nextPartner(fractals []Fractal, anchor int) int {
	a := fractals[anchor]
	for j := anchor + 1; j < len(fractals); j++ {
		c := fractals[j]
		if c.Kind == a.Kind {
			continue
		}
		if c.Index-a.Index < r.MinGap {
			continue
		}
		start, end := a.Price(), c.Price()
		if a.Kind == Bottom && end <= start {
			continue
		}
		if a.Kind == Top && end >= start {
			continue
		}
		if start <= 0 {
			continue
		}
		change := (end - start) / start
		if change < 0 {
			change = -change
		}
		if change < r.Threshold {
			continue
		}
		return j
	}
	return -1
}

func newStroke(bars []MergedBar, from, to Fractal) Stroke {
	st := Stroke{
		Direction:  Up,
		Start:      from,
		End:        to,
		StartPrice: from.Price(),
		EndPrice:   to.Price(),
	}
	if from.Kind == Top {
		st.Direction = Down
	}
	st.High, st.Low = spanRange(bars, from.Index, to.Index)
	return st
}

// spanRange returns the highest high and lowest low over bars[i0..i1].
func spanRange(bars []MergedBar, i0, i1 int) (high, low float64) {
	if i0 < 0 {
		i0 = 0
	}
	if i1 >= len(bars) {
		i1 = len(bars) - 1
	}
	high, low = bars[i0].High, bars[i0].Low
	for i := i0 + 1; i <= i1; i++ {
		if bars[i].High > high {
			high = bars[i].High
		}
		if bars[i].Low < low {
			low = bars[i].Low
		}
	}
	return high, low
}
