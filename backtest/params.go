// Package backtest runs a single long-only pass over a daily series, buying
// and selling on score thresholds with next-bar-open execution.
package backtest

import (
	"fmt"
	"time"
)

// PriceFilter rejects entries when the close has already run too far above
// its trailing low.
type PriceFilter struct {
	Enabled        bool    `yaml:"enabled" json:"enabled"`
	MaxAboveLowPct float64 `yaml:"max_above_low_pct" json:"max_above_low_pct"`
	LowLookback    int     `yaml:"low_lookback" json:"low_lookback"`
	OverrideMargin float64 `yaml:"override_margin" json:"override_margin"`
}

// Params are the trading rules of one simulation.
type Params struct {
	BuyThreshold   float64     `yaml:"buy_threshold" json:"buy_threshold"`
	SellThreshold  float64     `yaml:"sell_threshold" json:"sell_threshold"`
	MaxHoldingDays int         `yaml:"max_holding_days" json:"max_holding_days"`
	TakeProfitPct  float64     `yaml:"take_profit_pct" json:"take_profit_pct"`
	StopLossPct    float64     `yaml:"stop_loss_pct" json:"stop_loss_pct"`
	FeeBps         float64     `yaml:"fee_bps" json:"fee_bps"`
	PriceFilter    PriceFilter `yaml:"price_filter" json:"price_filter"`
}

// DefaultParams mirrors the thresholds of the bundled default formula.
func DefaultParams() Params {
	return Params{
		BuyThreshold:   60,
		SellThreshold:  35,
		MaxHoldingDays: 20,
		TakeProfitPct:  15,
		StopLossPct:    8,
		FeeBps:         15,
		PriceFilter: PriceFilter{
			Enabled:        false,
			MaxAboveLowPct: 25,
			LowLookback:    60,
			OverrideMargin: 0,
		},
	}
}

func (p Params) String() string {
	return fmt.Sprintf("buy=%.0f sell=%.0f hold=%d tp=%.1f%% sl=%.1f%% fee=%.1fbps",
		p.BuyThreshold, p.SellThreshold, p.MaxHoldingDays, p.TakeProfitPct, p.StopLossPct, p.FeeBps)
}

func (f PriceFilter) withDefaults() PriceFilter {
	if f.MaxAboveLowPct <= 0 {
		f.MaxAboveLowPct = 25
	}
	if f.LowLookback <= 0 {
		f.LowLookback = 60
	}
	return f
}

// Options bound a run. Zero Start/End mean unbounded.
type Options struct {
	LookbackDays int       `yaml:"lookback_days" json:"lookback_days"`
	Start        time.Time `yaml:"start" json:"start"`
	End          time.Time `yaml:"end" json:"end"`

	// CheckInvariants enables the state-machine assertions in invariants.go.
	CheckInvariants bool `yaml:"-" json:"-"`
}

const DefaultLookbackDays = 30

func (o Options) lookback() int {
	if o.LookbackDays <= 0 {
		return DefaultLookbackDays
	}
	return o.LookbackDays
}
