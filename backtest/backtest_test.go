package backtest

import (
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"chanquant/series"
)

func day(i int) time.Time {
	return time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func fromCloses(closes []float64) series.Series {
	s := make(series.Series, len(closes))
	for i, c := range closes {
		s[i] = series.Bar{
			Time:   day(i),
			Open:   c - 0.05,
			High:   c + 0.1,
			Low:    c - 0.1,
			Close:  c,
			Volume: 1000,
		}
	}
	return s
}

func rising(n int) series.Series {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 10 + 0.1*float64(i)
	}
	return fromCloses(closes)
}

func constScore(v int) Scorer {
	return ScorerFunc(func(series.Series) int { return v })
}

func TestRunDegenerate(t *testing.T) {
	for _, n := range []int{0, 3, 34} {
		res := Run(rising(n), constScore(100), DefaultParams(), Options{LookbackDays: 30})
		if res.Metrics != (Metrics{}) || len(res.Trades) != 0 || len(res.Equity) != 0 {
			t.Fatalf("n=%d: expected zeroed result, got %+v", n, res.Metrics)
		}
	}
}

func TestRisingSeriesSingleBuy(t *testing.T) {
	s := rising(200)
	params := Params{BuyThreshold: 10, SellThreshold: -1, MaxHoldingDays: 1000}
	res := Run(s, constScore(90), params, Options{LookbackDays: 30, CheckInvariants: true})

	if len(res.Trades) != 1 {
		t.Fatalf("expected exactly one trade, got %d: %+v", len(res.Trades), res.Trades)
	}
	buy := res.Trades[0]
	if !buy.IsBuy() || buy.DecisionIndex != 29 || buy.FillIndex != 30 {
		t.Fatalf("unexpected buy %+v", buy)
	}
	if buy.Price != s[30].Open {
		t.Fatalf("buy filled at %v, want open of bar 30 %v", buy.Price, s[30].Open)
	}
	if res.Final.State != Holding || res.Final.EntryIndex != 30 {
		t.Fatalf("expected to still hold from bar 30, got %+v", res.Final)
	}
	// Realized equity only moves on sells
	if res.Metrics.TotalReturnPct != 0 || res.Metrics.Trades != 0 {
		t.Fatalf("no round trip expected, metrics %+v", res.Metrics)
	}
}

func TestRisingSeriesTakeProfit(t *testing.T) {
	s := rising(200)
	params := Params{BuyThreshold: 10, SellThreshold: -1, MaxHoldingDays: 1000, TakeProfitPct: 15, FeeBps: 20}
	res := Run(s, constScore(90), params, Options{LookbackDays: 30, CheckInvariants: true})

	if len(res.Trades) < 2 {
		t.Fatalf("expected a round trip, got %+v", res.Trades)
	}
	entry := s[30].Open
	want := -1
	for i := 30; i < len(s); i++ {
		if (s[i].Close/entry-1)*100 >= 15 {
			want = i
			break
		}
	}
	sell := res.Trades[1]
	if sell.Label != "SELL-TP" || sell.DecisionIndex != want || sell.FillIndex != want+1 {
		t.Fatalf("unexpected sell %+v, want decision at %d", sell, want)
	}
	wantRet := s[want+1].Open/entry - 1 - 0.002
	if math.Abs(sell.ReturnPct-wantRet*100) > 1e-9 {
		t.Fatalf("sell return %v%%, want %v%%", sell.ReturnPct, wantRet*100)
	}
	if res.Trades[0].Capital != 1 {
		t.Fatalf("capital at entry %v, want 1", res.Trades[0].Capital)
	}
	if sell.Capital != res.Equity[want+1].Equity {
		t.Fatalf("sell capital %v, equity on the fill bar %v", sell.Capital, res.Equity[want+1].Equity)
	}
	if got := res.Equity[want+1].Equity; math.Abs(got-(1+wantRet)) > 1e-12 {
		t.Fatalf("equity after sell %v, want %v", got, 1+wantRet)
	}
	if res.Equity[want].Equity != 1 {
		t.Fatalf("equity before the sell fill should still be 1, got %v", res.Equity[want].Equity)
	}
}

func TestFeeChargedOncePerRoundTrip(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 10.05
	}
	s := fromCloses(closes) // open is exactly 10
	params := Params{BuyThreshold: 50, SellThreshold: 0, MaxHoldingDays: 1, FeeBps: 100}
	res := Run(s, constScore(60), params, Options{LookbackDays: 30, CheckInvariants: true})

	if len(res.Trades) < 2 {
		t.Fatalf("expected a round trip, got %+v", res.Trades)
	}
	sell := res.Trades[1]
	if sell.Label != "SELL-TIME" || sell.DaysHeld != 2 {
		t.Fatalf("unexpected sell %+v", sell)
	}
	if math.Abs(sell.ReturnPct+1) > 1e-9 {
		t.Fatalf("flat round trip should lose exactly the fee, got %v%%", sell.ReturnPct)
	}
	if math.Abs(sell.Capital-0.99) > 1e-12 {
		t.Fatalf("capital after the round trip %v, want 0.99", sell.Capital)
	}
	if res.Metrics.WinRatePct != 0 || res.Metrics.MaxDrawdownPct >= 0 {
		t.Fatalf("unexpected metrics %+v", res.Metrics)
	}
}

func randomWalk(seed int64, n int) series.Series {
	rng := rand.New(rand.NewSource(seed))
	closes := make([]float64, n)
	c := 20.0
	for i := range closes {
		c *= 1 + (rng.Float64()-0.5)*0.06
		closes[i] = c
	}
	return fromCloses(closes)
}

func TestNextBarExecutionAndEquityOrdering(t *testing.T) {
	fmt.Println("=== next-bar execution over random walks ===")
	scorer := ScorerFunc(func(w series.Series) int {
		last := w[len(w)-1]
		return int(last.Close*1000) % 101
	})
	params := Params{BuyThreshold: 70, SellThreshold: 30, MaxHoldingDays: 10, TakeProfitPct: 8, StopLossPct: 5, FeeBps: 15}

	for seed := int64(1); seed <= 10; seed++ {
		s := randomWalk(seed, 300)
		res := Run(s, scorer, params, Options{LookbackDays: 20, CheckInvariants: true})

		if len(res.Equity) != len(s) {
			t.Fatalf("seed %d: equity has %d points for %d bars", seed, len(res.Equity), len(s))
		}
		for i, p := range res.Equity {
			if math.IsNaN(p.Equity) || p.Equity < 0 {
				t.Fatalf("seed %d: bad equity %v at %d", seed, p.Equity, i)
			}
			if i > 0 && !p.Time.After(res.Equity[i-1].Time) {
				t.Fatalf("seed %d: equity index not increasing at %d", seed, i)
			}
		}
		for k, tr := range res.Trades {
			if tr.FillIndex != tr.DecisionIndex+1 || tr.Price != s[tr.FillIndex].Open {
				t.Fatalf("seed %d: trade %d violates next-bar fill: %+v", seed, k, tr)
			}
			if (k%2 == 0) != tr.IsBuy() {
				t.Fatalf("seed %d: trades do not alternate at %d", seed, k)
			}
		}
		t.Logf("seed %d: %d fills, total %.2f%%, maxdd %.2f%%",
			seed, len(res.Trades), res.Metrics.TotalReturnPct, res.Metrics.MaxDrawdownPct)
	}
}

func TestDateBounds(t *testing.T) {
	s := rising(200)
	opts := Options{LookbackDays: 30, Start: s[100].Time, End: s[179].Time}
	res := Run(s, constScore(0), DefaultParams(), opts)
	if len(res.Equity) != 80 {
		t.Fatalf("expected 80 bars in range, got %d", len(res.Equity))
	}
	if !res.Equity[0].Time.Equal(s[100].Time) || !res.Equity[79].Time.Equal(s[179].Time) {
		t.Fatalf("equity range %v..%v", res.Equity[0].Time, res.Equity[79].Time)
	}
}

func TestExitPriority(t *testing.T) {
	p := Position{}.Enter(10, day(0), 0).Age(100)
	params := Params{SellThreshold: 35, MaxHoldingDays: 20, TakeProfitPct: 10, StopLossPct: 5}

	cases := []struct {
		close float64
		score int
		want  ExitReason
	}{
		{12, 0, ExitTakeProfit},
		{9, 0, ExitStopLoss},
		{10, 0, ExitScore},
		{10, 50, ExitTime},
	}
	for _, c := range cases {
		got, ok := exitReason(p, c.close, params, c.score)
		if !ok || got != c.want {
			t.Fatalf("close=%v score=%d: got %q, want %q", c.close, c.score, got, c.want)
		}
	}
	if _, ok := exitReason(p.Enter(10, day(0), 0), 10, params, 50); ok {
		t.Fatalf("fresh position should not exit")
	}
}

func TestPositionTransitionsByValue(t *testing.T) {
	flat := Position{}
	held := flat.Enter(12.5, day(3), 3)
	if flat.State != Flat || held.State != Holding || held.EntryPrice != 12.5 {
		t.Fatalf("Enter mutated or failed: %+v %+v", flat, held)
	}
	aged := held.Age(8)
	if held.DaysHeld != 0 || aged.DaysHeld != 5 {
		t.Fatalf("Age: %+v -> %+v", held, aged)
	}
	if !aged.Exit().IsFlat() {
		t.Fatalf("Exit should be flat")
	}
	assertPosition(DefaultInvariants(), aged)
}

func TestPriceFilter(t *testing.T) {
	closes := make([]float64, 70)
	for i := range closes {
		closes[i] = 10.1
	}
	closes[69] = 13.1 // low is 10.0, close 31% above
	s := fromCloses(closes)
	f := PriceFilter{Enabled: true}.withDefaults()

	if priceFilterPasses(s, 69, 65, 60, f) {
		t.Fatalf("extended close should be rejected")
	}
	f.OverrideMargin = 10
	if !priceFilterPasses(s, 69, 71, 60, f) {
		t.Fatalf("override margin should bypass the filter")
	}
	// the bypass needs the score to exceed threshold+margin
	if priceFilterPasses(s, 69, 70, 60, f) {
		t.Fatalf("score at threshold+margin should still be filtered")
	}
	if !priceFilterPasses(s, 68, 65, 60, f) {
		t.Fatalf("close 1%% above the low should pass")
	}
	if !priceFilterPasses(s, 69, 65, 60, PriceFilter{}) {
		t.Fatalf("disabled filter should pass")
	}
}

func TestMetrics(t *testing.T) {
	eq := []EquityPoint{
		{Time: day(0), Equity: 1},
		{Time: day(100), Equity: 1.2},
		{Time: day(200), Equity: 0.9},
		{Time: day(365), Equity: 2},
	}
	m := computeMetrics(eq, []Trade{
		{Label: LabelBuy},
		{Label: "SELL-TP", ReturnPct: 20},
		{Label: LabelBuy},
		{Label: "SELL-SL", ReturnPct: -10},
	})
	if math.Abs(m.MaxDrawdownPct-(-25)) > 1e-9 {
		t.Fatalf("MaxDrawdownPct = %v", m.MaxDrawdownPct)
	}
	if math.Abs(m.CAGRPct-100) > 1e-9 || math.Abs(m.TotalReturnPct-100) > 1e-9 {
		t.Fatalf("CAGR/Total = %v/%v", m.CAGRPct, m.TotalReturnPct)
	}
	if m.Trades != 2 || m.WinRatePct != 50 || math.Abs(m.AvgTradePct-5) > 1e-9 {
		t.Fatalf("trade stats %+v", m)
	}

	flat := computeMetrics([]EquityPoint{{Time: day(0), Equity: 1}, {Time: day(1), Equity: 1}}, nil)
	if flat.Sharpe != 0 || flat.VolatilityPct != 0 || flat.MaxDrawdownPct != 0 {
		t.Fatalf("flat equity metrics %+v", flat)
	}
}

func TestMemoScorer(t *testing.T) {
	calls := 0
	m := NewMemoScorer(ScorerFunc(func(series.Series) int { calls++; return 42 }))
	s := rising(50)
	for i := 0; i < 3; i++ {
		if m.Score(s[10:40]) != 42 {
			t.Fatalf("wrong score")
		}
	}
	m.Score(s[11:41])
	if calls != 2 || m.Len() != 2 {
		t.Fatalf("calls=%d len=%d", calls, m.Len())
	}
}
