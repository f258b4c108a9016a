package backtest

import (
	"fmt"
	"log"
	"math"
)

// Invariants holds configuration for runtime assertion checking
type Invariants struct {
	Enabled             bool // Enable/disable all invariant checks
	CheckPositions      bool // Holding positions carry a positive entry price
	CheckExecutionModel bool // Decide on bar t, fill on bar t+1
	CheckEquity         bool // Equity is finite, non-negative and time-ordered
}

// DefaultInvariants returns the default invariant checking configuration
func DefaultInvariants() Invariants {
	return Invariants{
		Enabled:             true,
		CheckPositions:      true,
		CheckExecutionModel: true,
		CheckEquity:         true,
	}
}

func (o Options) invariants() Invariants {
	if !o.CheckInvariants {
		return Invariants{}
	}
	return DefaultInvariants()
}

// assertPosition checks the state machine after every transition
func assertPosition(inv Invariants, p Position) {
	if !inv.Enabled || !inv.CheckPositions {
		return
	}
	switch p.State {
	case Holding:
		assert(p.EntryPrice > 0,
			fmt.Sprintf("holding with entryPrice=%.4f", p.EntryPrice))
		assert(p.DaysHeld >= 0,
			fmt.Sprintf("holding with daysHeld=%d", p.DaysHeld))
	case Flat:
		assert(p.EntryPrice == 0 && p.EntryIndex == 0,
			fmt.Sprintf("flat position carries entry state %+v", p))
	default:
		assert(false, fmt.Sprintf("unknown position state %d", p.State))
	}
}

// assertExecution checks that a fill happened exactly one bar after its decision
func assertExecution(inv Invariants, tr Trade, open float64) {
	if !inv.Enabled || !inv.CheckExecutionModel {
		return
	}
	assert(tr.FillIndex-tr.DecisionIndex == 1,
		fmt.Sprintf("execution model violation: FillIndex (%d) - DecisionIndex (%d) != 1",
			tr.FillIndex, tr.DecisionIndex))
	assert(tr.Price == open && tr.Price > 0,
		fmt.Sprintf("%s filled at %.4f, bar open is %.4f", tr.Label, tr.Price, open))
}

// assertEquity checks consecutive equity points
func assertEquity(inv Invariants, prev, cur EquityPoint, first bool) {
	if !inv.Enabled || !inv.CheckEquity {
		return
	}
	assert(!math.IsNaN(cur.Equity) && !math.IsInf(cur.Equity, 0) && cur.Equity >= 0,
		fmt.Sprintf("equity=%v at %s", cur.Equity, cur.Time.Format("2006-01-02")))
	if !first {
		assert(cur.Time.After(prev.Time),
			fmt.Sprintf("equity time %s not after %s",
				cur.Time.Format("2006-01-02"), prev.Time.Format("2006-01-02")))
	}
}

func assert(cond bool, msg string) {
	if !cond {
		log.Panicf("[INVARIANT] %s", msg)
	}
}
