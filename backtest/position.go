package backtest

import "time"

type PositionState int

const (
	Flat PositionState = iota
	Holding
)

func (s PositionState) String() string {
	if s == Holding {
		return "HOLDING"
	}
	return "FLAT"
}

// Position is passed and returned by value; transitions never mutate the
// receiver.
type Position struct {
	State      PositionState `json:"state"`
	EntryPrice float64       `json:"entry_price,omitempty"`
	EntryTime  time.Time     `json:"entry_time,omitempty"`
	EntryIndex int           `json:"entry_index,omitempty"`
	DaysHeld   int           `json:"days_held,omitempty"`
}

func (p Position) IsFlat() bool { return p.State == Flat }

// Enter moves a flat position into Holding at price, filled on bar idx.
func (p Position) Enter(price float64, t time.Time, idx int) Position {
	return Position{
		State:      Holding,
		EntryPrice: price,
		EntryTime:  t,
		EntryIndex: idx,
	}
}

// Age returns the position as seen from bar idx.
func (p Position) Age(idx int) Position {
	if p.State != Holding {
		return p
	}
	p.DaysHeld = idx - p.EntryIndex
	return p
}

// Exit returns the flat position.
func (p Position) Exit() Position { return Position{State: Flat} }

// Return is the unrealized fractional return at price.
func (p Position) Return(price float64) float64 {
	if p.State != Holding || p.EntryPrice <= 0 {
		return 0
	}
	return price/p.EntryPrice - 1
}

// ExitReason labels why a holding was closed.
type ExitReason string

const (
	ExitTakeProfit ExitReason = "TP"
	ExitStopLoss   ExitReason = "SL"
	ExitScore      ExitReason = "SCORE"
	ExitTime       ExitReason = "TIME"
)

// exitReason checks the exit rules in priority order against the decision
// bar's close.
func exitReason(p Position, close float64, params Params, score int) (ExitReason, bool) {
	ret := p.Return(close)
	if params.TakeProfitPct > 0 && ret*100 >= params.TakeProfitPct {
		return ExitTakeProfit, true
	}
	if sl := absf(params.StopLossPct); sl > 0 && ret*100 <= -sl {
		return ExitStopLoss, true
	}
	if float64(score) <= params.SellThreshold {
		return ExitScore, true
	}
	if params.MaxHoldingDays > 0 && p.DaysHeld >= params.MaxHoldingDays {
		return ExitTime, true
	}
	return "", false
}

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
