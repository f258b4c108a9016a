package optimize

import "chanquant/backtest"

// Space is a Cartesian parameter grid. The sell threshold of each candidate
// is its buy threshold minus SellGap, clamped to [0, 100].
type Space struct {
	BuyThresholds []float64            `yaml:"buy_thresholds" json:"buy_thresholds"`
	HoldingDays   []int                `yaml:"holding_days" json:"holding_days"`
	TakeProfits   []float64            `yaml:"take_profits" json:"take_profits"`
	StopLosses    []float64            `yaml:"stop_losses" json:"stop_losses"`
	SellGap       float64              `yaml:"sell_gap" json:"sell_gap"`
	FeeBps        float64              `yaml:"fee_bps" json:"fee_bps"`
	PriceFilter   backtest.PriceFilter `yaml:"price_filter" json:"price_filter"`
}

// AggressiveSpace favours early entries and wide targets.
func AggressiveSpace() Space {
	return Space{
		BuyThresholds: []float64{50, 55, 60},
		HoldingDays:   []int{10, 20},
		TakeProfits:   []float64{15, 25},
		StopLosses:    []float64{8, 12},
		SellGap:       25,
		FeeBps:        15,
	}
}

// ConservativeSpace waits for higher scores and exits sooner.
func ConservativeSpace() Space {
	return Space{
		BuyThresholds: []float64{65, 70, 75},
		HoldingDays:   []int{5, 10},
		TakeProfits:   []float64{8, 12},
		StopLosses:    []float64{4, 6},
		SellGap:       20,
		FeeBps:        15,
		PriceFilter:   backtest.PriceFilter{Enabled: true, MaxAboveLowPct: 25, LowLookback: 60, OverrideMargin: 15},
	}
}

// Size is the number of candidates in the grid.
func (sp Space) Size() int {
	return len(sp.BuyThresholds) * len(sp.HoldingDays) * len(sp.TakeProfits) * len(sp.StopLosses)
}

// Params expands the grid in a fixed order: buy, holding, take-profit,
// stop-loss, last axis fastest.
func (sp Space) Params() []backtest.Params {
	out := make([]backtest.Params, 0, sp.Size())
	for _, buy := range sp.BuyThresholds {
		for _, hold := range sp.HoldingDays {
			for _, tp := range sp.TakeProfits {
				for _, sl := range sp.StopLosses {
					out = append(out, backtest.Params{
						BuyThreshold:   buy,
						SellThreshold:  clamp(buy-sp.SellGap, 0, 100),
						MaxHoldingDays: hold,
						TakeProfitPct:  tp,
						StopLossPct:    sl,
						FeeBps:         sp.FeeBps,
						PriceFilter:    sp.PriceFilter,
					})
				}
			}
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
