package chanlun

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"chanquant/series"
)

type leg struct {
	to float64
	n  int
}

// legBars builds a piecewise-linear close path with a fixed 0.2 bar range.
func legBars(start float64, legs ...leg) series.Series {
	ps := []float64{start}
	for _, l := range legs {
		a := ps[len(ps)-1]
		for i := 1; i <= l.n; i++ {
			ps = append(ps, a+(l.to-a)*float64(i)/float64(l.n))
		}
	}
	return barsFromCloses(ps, 0.1)
}

func barsFromCloses(ps []float64, half float64) series.Series {
	t0 := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	out := make(series.Series, len(ps))
	for i, p := range ps {
		out[i] = series.Bar{
			Time:   t0.AddDate(0, 0, i),
			Open:   p,
			High:   p + half,
			Low:    p - half,
			Close:  p,
			Volume: 1000,
		}
	}
	return out
}

func randomWalk(seed int64, n int) series.Series {
	rng := rand.New(rand.NewSource(seed))
	t0 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	p := 10.0
	out := make(series.Series, n)
	for i := range out {
		p *= 1 + rng.NormFloat64()*0.02
		h := p * (1 + math.Abs(rng.NormFloat64())*0.01)
		l := p * (1 - math.Abs(rng.NormFloat64())*0.01)
		out[i] = series.Bar{Time: t0.AddDate(0, 0, i), Open: p, High: h, Low: l, Close: p, Volume: 1}
	}
	return out
}

func toSeries(m []MergedBar) series.Series {
	out := make(series.Series, len(m))
	for i, b := range m {
		out[i] = series.Bar{Time: b.Time, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume}
	}
	return out
}

func TestMergeBarsEmpty(t *testing.T) {
	if got := MergeBars(nil); len(got) != 0 {
		t.Fatalf("MergeBars(nil) returned %d bars", len(got))
	}
}

func TestMergeBarsContained(t *testing.T) {
	s := barsFromCloses([]float64{10, 10.5}, 0)
	s[0].High, s[0].Low = 12, 10
	s[1].High, s[1].Low = 11.5, 10.5

	m := MergeBars(s)
	if len(m) != 1 {
		t.Fatalf("expected 1 merged bar, got %d", len(m))
	}
	// default direction is up: higher high, higher low
	if m[0].High != 12 || m[0].Low != 10.5 {
		t.Fatalf("merged range = [%v,%v], want [10.5,12]", m[0].Low, m[0].High)
	}
	if !m[0].Time.Equal(s[0].Time) || m[0].SourceStart != 0 || m[0].SourceEnd != 1 {
		t.Fatalf("merged bar should keep the first bar's identity: %+v", m[0])
	}
}

func TestMergeBarsContainingInDowntrend(t *testing.T) {
	s := barsFromCloses([]float64{0, 0, 0}, 0)
	s[0].High, s[0].Low = 12, 10
	s[1].High, s[1].Low = 11, 9 // down
	s[2].High, s[2].Low = 11.5, 8.5

	m := MergeBars(s)
	if len(m) != 2 {
		t.Fatalf("expected 2 merged bars, got %d", len(m))
	}
	// the containing bar survives as it is
	if m[1].High != 11.5 || m[1].Low != 8.5 {
		t.Fatalf("containing bar = [%v,%v], want [8.5,11.5]", m[1].Low, m[1].High)
	}
	if !m[1].Time.Equal(s[2].Time) || m[1].SourceStart != 1 || m[1].SourceEnd != 2 {
		t.Fatalf("containing bar identity: %+v", m[1])
	}
	if m[1].Direction != Down {
		t.Fatalf("expected down direction")
	}
}

func TestMergeBarsContainingCascades(t *testing.T) {
	s := barsFromCloses([]float64{0, 0, 0, 0}, 0)
	s[0].High, s[0].Low = 10, 8
	s[1].High, s[1].Low = 12, 10
	s[2].High, s[2].Low = 11.5, 10.5 // folds into bar 1
	s[3].High, s[3].Low = 13, 7      // swallows both merged bars

	m := MergeBars(s)
	if len(m) != 1 {
		t.Fatalf("expected 1 merged bar, got %d: %+v", len(m), m)
	}
	if m[0].High != 13 || m[0].Low != 7 || m[0].SourceStart != 0 || m[0].SourceEnd != 3 {
		t.Fatalf("cascade = %+v", m[0])
	}
}

func TestMergeBarsIdempotent(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		m := MergeBars(randomWalk(seed, 300))
		for i := 1; i < len(m); i++ {
			a, b := m[i-1], m[i]
			if within(a, b) || within(b, a) {
				t.Fatalf("seed %d: bars %d and %d still in containment", seed, i-1, i)
			}
		}
		again := MergeBars(toSeries(m))
		if len(again) != len(m) {
			t.Fatalf("seed %d: re-merge changed length %d -> %d", seed, len(m), len(again))
		}
		for i := range m {
			if again[i].High != m[i].High || again[i].Low != m[i].Low {
				t.Fatalf("seed %d: re-merge changed bar %d", seed, i)
			}
		}
	}
}

func TestFindFractalsZigzag(t *testing.T) {
	s := legBars(10, leg{12, 5}, leg{10, 5}, leg{12, 5}, leg{10, 5}, leg{11, 2})
	f := FindFractals(MergeBars(s), 1)

	want := []struct {
		idx  int
		kind FractalKind
	}{{5, Top}, {10, Bottom}, {15, Top}, {20, Bottom}}
	if len(f) != len(want) {
		t.Fatalf("got %d fractals, want %d: %+v", len(f), len(want), f)
	}
	for i, w := range want {
		if f[i].Index != w.idx || f[i].Kind != w.kind {
			t.Fatalf("fractal %d = (%d,%s), want (%d,%s)", i, f[i].Index, f[i].Kind, w.idx, w.kind)
		}
	}

	if got := FindFractals(MergeBars(s[:2]), 1); len(got) != 0 {
		t.Fatalf("too-short input should give no fractals")
	}
}

func TestStrokesAlternateAndMeetThreshold(t *testing.T) {
	cfg := DefaultConfig()
	rules := StrokeRules{MinGap: cfg.MinBiGap, Threshold: cfg.BiThreshold}
	for seed := int64(1); seed <= 20; seed++ {
		m := MergeBars(randomWalk(seed, 400))
		for _, b := range []StrokeBuilder{GreedyBuilder{rules}, SkipBuilder{rules}} {
			st := b.Build(m, FindFractals(m, 1))
			for i, s := range st {
				if s.Change() < cfg.BiThreshold {
					t.Fatalf("seed %d %T: stroke %d change %.4f below threshold", seed, b, i, s.Change())
				}
				if s.End.Index-s.Start.Index < cfg.MinBiGap {
					t.Fatalf("seed %d %T: stroke %d gap too small", seed, b, i)
				}
				if i > 0 && st[i-1].Direction == s.Direction {
					t.Fatalf("seed %d %T: strokes %d and %d share direction", seed, b, i-1, i)
				}
			}
		}
	}
}

func TestGreedyStopsWhereSkipContinues(t *testing.T) {
	bars := make([]MergedBar, 9)
	for i := range bars {
		bars[i] = MergedBar{Index: i, High: 10.1, Low: 9.9}
	}
	fr := []Fractal{
		{Index: 1, Kind: Bottom, High: 10.1, Low: 10},
		{Index: 3, Kind: Top, High: 10.2, Low: 10},
		{Index: 5, Kind: Bottom, High: 9.7, Low: 9.5},
		{Index: 7, Kind: Top, High: 10.25, Low: 10},
	}
	rules := StrokeRules{MinGap: 2, Threshold: 0.03}

	if got := (GreedyBuilder{rules}).Build(bars, fr); len(got) != 0 {
		t.Fatalf("greedy should stop at the first anchor, got %d strokes", len(got))
	}
	got := (SkipBuilder{rules}).Build(bars, fr)
	if len(got) != 2 || got[0].Direction != Down || got[1].Direction != Up {
		t.Fatalf("skip builder produced %+v", got)
	}
}

func TestPivotOverlapInvariant(t *testing.T) {
	e, err := NewEngine(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	for seed := int64(1); seed <= 20; seed++ {
		r := e.Run(randomWalk(seed, 400))
		for _, p := range r.Pivots {
			if !(p.ZG > p.ZD) {
				t.Fatalf("seed %d: pivot zg %.4f <= zd %.4f", seed, p.ZG, p.ZD)
			}
			zg, zd := math.Inf(1), math.Inf(-1)
			for _, s := range r.Strokes[p.StrokeIndex : p.StrokeIndex+3] {
				h, l := spanRange(r.Merged, s.Start.Index, s.End.Index)
				zg = math.Min(zg, h)
				zd = math.Max(zd, l)
			}
			if zg != p.ZG || zd != p.ZD {
				t.Fatalf("seed %d: pivot bounds (%v,%v) != recomputed (%v,%v)", seed, p.ZG, p.ZD, zg, zd)
			}
		}
	}
}

func TestPivotsOnRepeatedRange(t *testing.T) {
	s := legBars(10, leg{12, 5}, leg{10, 5}, leg{12, 5}, leg{10, 5}, leg{12, 5}, leg{10, 5}, leg{11, 2})
	m := MergeBars(s)
	st := GreedyBuilder{StrokeRules{MinGap: 2, Threshold: 0.03}}.Build(m, FindFractals(m, 1))
	if len(st) != 5 {
		t.Fatalf("expected 5 strokes, got %d", len(st))
	}
	pv := FindPivots(st, m)
	// overlapping triples are not merged
	if len(pv) != 3 {
		t.Fatalf("expected 3 pivots, got %d", len(pv))
	}
	for _, p := range pv {
		if math.Abs(p.ZG-12.1) > 1e-9 || math.Abs(p.ZD-9.9) > 1e-9 {
			t.Fatalf("unexpected pivot bounds %+v", p)
		}
	}
}

// buyFixture: three strokes forming a pivot, then a down stroke to a new
// low, an up stroke and a shallow pullback.
func buyFixture() ([]MergedBar, []Stroke, []Pivot) {
	s := legBars(11, leg{10, 2}, leg{12, 5}, leg{10, 5}, leg{12, 5}, leg{9, 8}, leg{11, 5}, leg{9.5, 4}, leg{10, 2})
	m := MergeBars(s)
	st := GreedyBuilder{StrokeRules{MinGap: 2, Threshold: 0.03}}.Build(m, FindFractals(m, 1))
	return m, st, FindPivots(st[:3], m)
}

func TestFindSignalsBuy1Buy2WithoutMACD(t *testing.T) {
	m, st, pv := buyFixture()
	if len(st) != 6 || len(pv) != 1 {
		t.Fatalf("fixture: %d strokes, %d pivots", len(st), len(pv))
	}

	sig := FindSignals(m, st, pv, SignalRules{UseMACD: false, Buy2Tolerance: 0.99})
	if len(sig) != 2 {
		t.Fatalf("expected buy1+buy2, got %+v", sig)
	}
	if sig[0].Type != Buy1 || sig[0].Index != 25 || sig[0].Price != st[3].EndPrice {
		t.Fatalf("unexpected buy1 %+v", sig[0])
	}
	if sig[1].Type != Buy2 || sig[1].Index != 34 {
		t.Fatalf("unexpected buy2 %+v", sig[1])
	}
	if !sig[0].Time.Equal(m[25].Time) {
		t.Fatalf("signal should carry the bar time")
	}
}

func TestFindSignalsMACDBlocksStrongerDecline(t *testing.T) {
	m, st, pv := buyFixture()
	// the post-pivot decline is longer and steeper than the prior one
	if sig := FindSignals(m, st, pv, SignalRules{UseMACD: true, Buy2Tolerance: 0.99}); len(sig) != 0 {
		t.Fatalf("expected no signals, got %+v", sig)
	}
}

func TestFindSignalsMACDDivergence(t *testing.T) {
	s := legBars(9, leg{8, 2}, leg{13, 8}, leg{8, 15}, leg{10.5, 15}, leg{7.8, 2}, leg{8.4, 3})
	m := MergeBars(s)
	st := GreedyBuilder{StrokeRules{MinGap: 2, Threshold: 0.03}}.Build(m, FindFractals(m, 1))
	if len(st) != 4 {
		t.Fatalf("fixture: expected 4 strokes, got %d", len(st))
	}
	sig := FindSignals(m, st, FindPivots(st[:3], m), SignalRules{UseMACD: true, Buy2Tolerance: 0.99})
	if len(sig) != 1 || sig[0].Type != Buy1 || sig[0].Index != 42 {
		t.Fatalf("expected buy1 at 42, got %+v", sig)
	}
}

func TestFindSignalsBuy3(t *testing.T) {
	s := legBars(11, leg{10, 2}, leg{12, 5}, leg{10, 5}, leg{12, 5}, leg{11.2, 2}, leg{14, 5}, leg{12.6, 3}, leg{13, 1})
	m := MergeBars(s)
	fr := func(i int, k FractalKind) Fractal {
		return Fractal{Index: i, Kind: k, High: m[i].High, Low: m[i].Low, Time: m[i].Time}
	}
	st := []Stroke{
		newStroke(m, fr(2, Bottom), fr(7, Top)),
		newStroke(m, fr(7, Top), fr(12, Bottom)),
		newStroke(m, fr(12, Bottom), fr(17, Top)),
		newStroke(m, fr(19, Bottom), fr(24, Top)),
		newStroke(m, fr(24, Top), fr(27, Bottom)),
	}
	pv := FindPivots(st[:3], m)
	if len(pv) != 1 {
		t.Fatalf("fixture: expected one pivot")
	}

	sig := FindSignals(m, st, pv, SignalRules{UseMACD: true, Buy2Tolerance: 0.99})
	if len(sig) != 1 || sig[0].Type != Buy3 || sig[0].Index != 27 {
		t.Fatalf("expected buy3 at 27, got %+v", sig)
	}
	if sig[0].Price <= pv[0].ZG {
		t.Fatalf("buy3 price %.4f should hold above ZG %.4f", sig[0].Price, pv[0].ZG)
	}
}

func TestRunOnShortAndEmptyInput(t *testing.T) {
	e, _ := NewEngine(DefaultConfig())
	for _, s := range []series.Series{nil, barsFromCloses([]float64{1, 2, 3}, 0.1)} {
		r := e.Run(s)
		if len(r.Strokes) != 0 || len(r.Pivots) != 0 || len(r.Signals) != 0 {
			t.Fatalf("short input should give empty structure: %+v", r.Summary)
		}
	}
}

func TestRunOnRisingSeries(t *testing.T) {
	ps := make([]float64, 200)
	for i := range ps {
		ps[i] = 10 * math.Pow(1.01, float64(i))
	}
	s := barsFromCloses(ps, 0)
	for i := range s {
		s[i].High = ps[i] * 1.005
		s[i].Low = ps[i] * 0.995
	}

	e, _ := NewEngine(DefaultConfig())
	r := e.Run(s)
	if len(r.Strokes) > 1 {
		t.Fatalf("rising series produced %d strokes", len(r.Strokes))
	}
	for _, st := range r.Strokes {
		if st.Direction != Up {
			t.Fatalf("rising series produced a down stroke")
		}
	}
	if r.Summary.Bars != 200 || r.Summary.MergedBars != len(r.Merged) {
		t.Fatalf("summary mismatch: %+v", r.Summary)
	}
}

func TestNewEngineRejectsUnknownStrategy(t *testing.T) {
	if _, err := NewEngine(Config{Stroke: "zigzag"}); err == nil {
		t.Fatalf("expected error for unknown stroke strategy")
	}
}
