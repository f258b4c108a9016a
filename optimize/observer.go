package optimize

import (
	"time"

	"chanquant/backtest"
)

type Phase string

const (
	PhaseTrain Phase = "train"
	PhaseVal   Phase = "val"
)

// CandidateEvent reports one evaluated grid cell.
type CandidateEvent struct {
	Side      string
	Fold      int
	Phase     Phase
	Done      int
	Total     int
	Params    backtest.Params
	Metrics   backtest.Metrics
	Objective float64
}

// FoldEvent reports a finished fold for one side. Winner is nil when no
// candidate met the trade-count floor.
type FoldEvent struct {
	Side   string
	Fold   int
	Folds  int
	Train  Window
	Val    Window
	Winner *Candidate
}

type DoneEvent struct {
	Mode    string
	Status  string
	Elapsed time.Duration
}

// Observer receives progress from a running optimization. Calls are made
// from a single goroutine per optimization.
type Observer interface {
	OnCandidate(CandidateEvent)
	OnFold(FoldEvent)
	OnDone(DoneEvent)
}

type NopObserver struct{}

func (NopObserver) OnCandidate(CandidateEvent) {}
func (NopObserver) OnFold(FoldEvent)           {}
func (NopObserver) OnDone(DoneEvent)           {}
