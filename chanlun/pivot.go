package chanlun

import (
	"math"
)

// FindPivots tests every run of three consecutive strokes for mutual overlap
// of their realized ranges. Overlapping triples are reported independently,
// so adjacent pivots may share strokes.
func FindPivots(strokes []Stroke, bars []MergedBar) []Pivot {
	if len(strokes) < 3 || len(bars) == 0 {
		return nil
	}

	var out []Pivot
	for k := 0; k+2 < len(strokes); k++ {
		zg, zd := math.Inf(1), math.Inf(-1)
		for _, s := range strokes[k : k+3] {
			h, l := spanRange(bars, s.Start.Index, s.End.Index)
			zg = math.Min(zg, h)
			zd = math.Max(zd, l)
		}
		if zg <= zd {
			continue
		}
		first, last := strokes[k], strokes[k+2]
		out = append(out, Pivot{
			StrokeIndex: k,
			StartIndex:  first.Start.Index,
			EndIndex:    last.End.Index,
			ZG:          zg,
			ZD:          zd,
			StartTime:   first.Start.Time,
			EndTime:     last.End.Time,
		})
	}
	return out
}
