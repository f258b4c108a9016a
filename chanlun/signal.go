package chanlun

import (
	"fmt"
	"math"
	"sort"

	"chanquant/indicators"
)

// SignalRules configures buy-point detection.
type SignalRules struct {
	UseMACD       bool
	Buy2Tolerance float64 // buy2 pullback low must stay above this fraction of the buy1 price
}

// FindSignals applies the buy-point rules to the strokes after the last
// pivot. Only buy-side signals exist.
func FindSignals(bars []MergedBar, strokes []Stroke, pivots []Pivot, rules SignalRules) []Signal {
	if len(pivots) == 0 || len(strokes) == 0 || len(bars) == 0 {
		return nil
	}
	p := pivots[len(pivots)-1]
	first := p.StrokeIndex + 3
	if first >= len(strokes) {
		return nil
	}
	post := strokes[first:]

	var hist []float64
	if rules.UseMACD {
		closes := make([]float64, len(bars))
		for i, b := range bars {
			closes[i] = b.Close
		}
		_, _, hist = indicators.DefaultMACD(closes)
	}

	var out []Signal

	buy1Price := 0.0
	if s0 := post[0]; s0.Direction == Down {
		_, windowLow := spanRange(bars, p.StartIndex, s0.End.Index)
		newLow := s0.EndPrice <= windowLow

		reason := "new low at window minimum"
		ok := newLow
		if newLow && hist != nil {
			if prior, found := priorDownStroke(strokes, first); found {
				cur, prev := negativeArea(hist, s0), negativeArea(hist, prior)
				ok = cur < prev
				reason = fmt.Sprintf("new low with MACD area %.4f < %.4f", cur, prev)
			}
		}
		if ok {
			sig := Signal{
				Type:   Buy1,
				Time:   bars[s0.End.Index].Time,
				Index:  s0.End.Index,
				Price:  s0.EndPrice,
				Reason: reason,
			}
			out = append(out, sig)
			buy1Price = sig.Price
		}
	}

	if buy1Price > 0 {
		floor := buy1Price * rules.Buy2Tolerance
		for j := 1; j+1 < len(post); j++ {
			up, down := post[j], post[j+1]
			if up.Direction != Up || down.Direction != Down {
				continue
			}
			if down.EndPrice > floor {
				out = append(out, Signal{
					Type:   Buy2,
					Time:   bars[down.End.Index].Time,
					Index:  down.End.Index,
					Price:  down.EndPrice,
					Reason: fmt.Sprintf("pullback %.4f above %.4f", down.EndPrice, floor),
				})
				break
			}
		}
	}

	for j := 0; j+1 < len(post); j++ {
		up, down := post[j], post[j+1]
		if up.Direction != Up || down.Direction != Down {
			continue
		}
		if up.EndPrice > p.ZG && down.EndPrice > p.ZG {
			out = append(out, Signal{
				Type:   Buy3,
				Time:   bars[down.End.Index].Time,
				Index:  down.End.Index,
				Price:  down.EndPrice,
				Reason: fmt.Sprintf("pullback %.4f holds above ZG %.4f", down.EndPrice, p.ZG),
			})
			break
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// priorDownStroke returns the last down stroke before strokes[before].
func priorDownStroke(strokes []Stroke, before int) (Stroke, bool) {
	for i := before - 1; i >= 0; i-- {
		if strokes[i].Direction == Down {
			return strokes[i], true
		}
	}
	return Stroke{}, false
}

// negativeArea sums the magnitude of the negative histogram bars over a stroke.
func negativeArea(hist []float64, s Stroke) float64 {
	area := 0.0
	for i := s.Start.Index; i <= s.End.Index && i < len(hist); i++ {
		if hist[i] < 0 {
			area += math.Abs(hist[i])
		}
	}
	return area
}
