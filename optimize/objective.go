// Package optimize grid-searches backtest parameters on time-ordered
// train/validation splits, either once or across walk-forward folds with an
// A/B comparison of two parameter spaces.
package optimize

import (
	"fmt"
	"strings"

	"chanquant/backtest"
)

// Objective ranks a simulation by one number, higher is better.
type Objective string

const (
	ObjectiveReturn    Objective = "return"
	ObjectiveStability Objective = "stability"
	ObjectiveBalanced  Objective = "balanced"
)

// Objectives lists every objective in report order.
var Objectives = []Objective{ObjectiveReturn, ObjectiveStability, ObjectiveBalanced}

// drawdownWeight scales MaxDrawdownPct (<= 0) into the stability objective.
const drawdownWeight = 0.02

func ParseObjective(s string) (Objective, error) {
	switch o := Objective(strings.ToLower(strings.TrimSpace(s))); o {
	case ObjectiveReturn, ObjectiveStability, ObjectiveBalanced:
		return o, nil
	case "":
		return ObjectiveBalanced, nil
	case "high", "max-return", "maximize-return":
		return ObjectiveReturn, nil
	case "stable", "maximize-stability":
		return ObjectiveStability, nil
	}
	return "", fmt.Errorf("unknown objective %q (want return, stability or balanced)", s)
}

// Eval scores m under o.
//
//	return     total return %
//	stability  Sharpe + 0.02 * max drawdown %
//	balanced   0.5 * total return % / 10 + 0.5 * stability
func (o Objective) Eval(m backtest.Metrics) float64 {
	stability := m.Sharpe + drawdownWeight*m.MaxDrawdownPct
	switch o {
	case ObjectiveReturn:
		return m.TotalReturnPct
	case ObjectiveStability:
		return stability
	default:
		return 0.5*m.TotalReturnPct/10 + 0.5*stability
	}
}
