package backtest

import (
	"math"

	"chanquant/stats"
)

const tradingDaysPerYear = 250

// Metrics are percentages except Sharpe and Trades. MaxDrawdownPct is <= 0.
type Metrics struct {
	TotalReturnPct float64 `json:"total_return_pct"`
	CAGRPct        float64 `json:"cagr_pct"`
	VolatilityPct  float64 `json:"volatility_pct"`
	Sharpe         float64 `json:"sharpe"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	Trades         int     `json:"trades"`
	WinRatePct     float64 `json:"win_rate_pct"`
	AvgTradePct    float64 `json:"avg_trade_pct"`
}

func computeMetrics(equity []EquityPoint, trades []Trade) Metrics {
	var m Metrics
	if len(equity) == 0 {
		return m
	}

	values := make([]float64, len(equity))
	for i, p := range equity {
		values[i] = p.Equity
	}
	final := values[len(values)-1]
	m.TotalReturnPct = (final - 1) * 100
	m.CAGRPct = cagrPct(final, equity[0], equity[len(equity)-1])

	daily := stats.PctChange(values)
	if sd := stats.Std(daily); sd > 0 {
		m.VolatilityPct = sd * math.Sqrt(tradingDaysPerYear) * 100
		m.Sharpe = stats.Mean(daily) / sd * math.Sqrt(tradingDaysPerYear)
	}
	m.MaxDrawdownPct = maxDrawdownPct(values)

	var rets []float64
	wins := 0
	for _, tr := range trades {
		if tr.IsBuy() {
			continue
		}
		rets = append(rets, tr.ReturnPct)
		if tr.ReturnPct > 0 {
			wins++
		}
	}
	m.Trades = len(rets)
	if m.Trades > 0 {
		m.WinRatePct = float64(wins) / float64(m.Trades) * 100
		m.AvgTradePct = stats.Mean(rets)
	}
	return m
}

// cagrPct annualizes over calendar days; spans under a day report 0.
func cagrPct(final float64, first, last EquityPoint) float64 {
	days := last.Time.Sub(first.Time).Hours() / 24
	if days < 1 {
		return 0
	}
	if final <= 0 {
		return -100
	}
	years := days / 365.0
	return (math.Pow(final, 1/years) - 1) * 100
}

func maxDrawdownPct(values []float64) float64 {
	peak := values[0]
	worst := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		if dd := v/peak - 1; dd < worst {
			worst = dd
		}
	}
	return worst * 100
}
