package backtest

import (
	"time"

	"chanquant/series"
)

const (
	LabelBuy        = "BUY"
	labelSellPrefix = "SELL-"
)

// Trade is one fill. DecisionIndex is the bar whose window produced the
// signal, FillIndex the bar whose open was traded. Capital is the running
// capital as a multiple of the starting capital: at entry for a buy, after
// the round trip for a sell.
type Trade struct {
	Label         string     `json:"label"`
	Reason        ExitReason `json:"reason,omitempty"`
	DecisionIndex int        `json:"decision_index"`
	FillIndex     int        `json:"fill_index"`
	DecisionTime  time.Time  `json:"decision_time"`
	Time          time.Time  `json:"time"`
	Price         float64    `json:"price"`
	Score         int        `json:"score"`
	ReturnPct     float64    `json:"return_pct,omitempty"` // net of fees, sells only
	Capital       float64    `json:"capital"`
	DaysHeld      int        `json:"days_held,omitempty"`
}

func (t Trade) IsBuy() bool { return t.Label == LabelBuy }

type EquityPoint struct {
	Time   time.Time `json:"time"`
	Equity float64   `json:"equity"`
}

type Result struct {
	Params  Params        `json:"params"`
	Equity  []EquityPoint `json:"equity"`
	Trades  []Trade       `json:"trades"`
	Metrics Metrics       `json:"metrics"`
	Final   Position      `json:"final"`
}

// Run simulates params over s. The window of LookbackDays bars ending on bar
// i is scored; any resulting buy or sell fills at bar i+1's open. Series
// shorter than LookbackDays+5 after date bounds give a zeroed Result.
func Run(s series.Series, scorer Scorer, params Params, opts Options) Result {
	res := Result{Params: params}
	lookback := opts.lookback()
	s = s.Between(opts.Start, opts.End)
	n := len(s)
	if n < lookback+5 {
		return res
	}

	inv := opts.invariants()
	filter := params.PriceFilter.withDefaults()
	fee := params.FeeBps / 10000
	capital := 1.0
	pos := Position{}
	res.Equity = make([]EquityPoint, n)

	var pending *Trade
	for i := 0; i < n; i++ {
		bar := s[i]

		// Execute the decision taken on the previous bar at this bar's open
		if pending != nil {
			pending.FillIndex = i
			pending.Time = bar.Time
			pending.Price = bar.Open
			assertExecution(inv, *pending, bar.Open)

			if pending.IsBuy() {
				pos = pos.Enter(bar.Open, bar.Time, i)
			} else {
				net := pos.Return(bar.Open) - fee
				capital *= 1 + net
				if capital < 0 {
					capital = 0
				}
				pending.ReturnPct = net * 100
				pending.DaysHeld = i - pos.EntryIndex
				pos = pos.Exit()
			}
			pending.Capital = capital
			assertPosition(inv, pos)
			res.Trades = append(res.Trades, *pending)
			pending = nil
		}

		res.Equity[i] = EquityPoint{Time: bar.Time, Equity: capital}
		if i > 0 {
			assertEquity(inv, res.Equity[i-1], res.Equity[i], false)
		} else {
			assertEquity(inv, EquityPoint{}, res.Equity[i], true)
		}

		// The last bar has no tomorrow to fill on
		if i < lookback-1 || i >= n-1 {
			continue
		}
		next := s[i+1]
		if next.Open <= 0 {
			continue
		}
		score := scorer.Score(s[i-lookback+1 : i+1])

		switch pos.State {
		case Flat:
			if float64(score) < params.BuyThreshold {
				continue
			}
			if !priceFilterPasses(s, i, score, params.BuyThreshold, filter) {
				continue
			}
			pending = &Trade{Label: LabelBuy, DecisionIndex: i, DecisionTime: bar.Time, Score: score}
		case Holding:
			pos = pos.Age(i)
			assertPosition(inv, pos)
			reason, ok := exitReason(pos, bar.Close, params, score)
			if !ok {
				continue
			}
			pending = &Trade{
				Label:         labelSellPrefix + string(reason),
				Reason:        reason,
				DecisionIndex: i,
				DecisionTime:  bar.Time,
				Score:         score,
			}
		}
	}

	res.Final = pos
	res.Metrics = computeMetrics(res.Equity, res.Trades)
	return res
}

// priceFilterPasses rejects entries whose close sits more than
// MaxAboveLowPct above the trailing LowLookback-bar low. A score more than
// OverrideMargin above the buy threshold bypasses the filter; a zero margin
// disables the bypass.
func priceFilterPasses(s series.Series, i, score int, buy float64, f PriceFilter) bool {
	if !f.Enabled {
		return true
	}
	if f.OverrideMargin > 0 && float64(score) > buy+f.OverrideMargin {
		return true
	}
	from := i - f.LowLookback + 1
	if from < 0 {
		from = 0
	}
	low := s[from].Low
	for _, b := range s[from+1 : i+1] {
		if b.Low < low {
			low = b.Low
		}
	}
	if low <= 0 {
		return true
	}
	return (s[i].Close-low)/low*100 <= f.MaxAboveLowPct
}
