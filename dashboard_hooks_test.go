package main

import (
	"testing"
	"time"

	"chanquant/backtest"
	"chanquant/optimize"
)

func TestDashboardTracksBest(t *testing.T) {
	d := newDashboard(nil, false, "walkforward", "600519")
	for i, obj := range []float64{1.5, 3.0, 2.0} {
		d.OnCandidate(optimize.CandidateEvent{
			Side:      "aggressive",
			Fold:      0,
			Phase:     optimize.PhaseTrain,
			Done:      i + 1,
			Total:     3,
			Params:    backtest.DefaultParams(),
			Objective: obj,
		})
	}
	d.OnCandidate(optimize.CandidateEvent{Side: "aggressive", Fold: 1, Phase: optimize.PhaseTrain, Done: 1, Total: 3, Objective: -4})

	if best, ok := d.Best("aggressive", 0, optimize.PhaseTrain); !ok || best != 3.0 {
		t.Fatalf("fold 0 best = %v %v", best, ok)
	}
	if best, ok := d.Best("aggressive", 1, optimize.PhaseTrain); !ok || best != -4 {
		t.Fatalf("fold 1 best is scoped separately, got %v %v", best, ok)
	}
	if _, ok := d.Best("conservative", 0, optimize.PhaseTrain); ok {
		t.Fatalf("unseen side should have no best")
	}

	d.OnFold(optimize.FoldEvent{Side: "aggressive", Fold: 0, Folds: 4})
	d.OnFold(optimize.FoldEvent{Side: "conservative", Fold: 0, Folds: 4, Winner: &optimize.Candidate{ValObjective: 0.4}})
	if d.FoldsDone() != 2 {
		t.Fatalf("folds done = %d", d.FoldsDone())
	}
	d.OnDone(optimize.DoneEvent{Mode: "walkforward", Status: optimize.StatusOK, Elapsed: time.Second})
}

func TestDashboardBroadcasts(t *testing.T) {
	hub := NewWSHub() // not running: messages stay queued
	d := newDashboard(hub, false, "split", "600519")

	ev := optimize.CandidateEvent{Side: "split", Phase: optimize.PhaseTrain, Done: 1, Total: 2, Objective: 1}
	d.OnCandidate(ev)
	ev.Done, ev.Objective = 2, 0.5
	d.OnCandidate(ev)
	d.OnFold(optimize.FoldEvent{Side: "split", Folds: 1})
	d.OnDone(optimize.DoneEvent{Mode: "split", Status: optimize.StatusNone})

	var types []string
	for len(hub.broadcast) > 0 {
		types = append(types, (<-hub.broadcast).Type)
	}
	want := []string{MsgTypeProgress, MsgTypeCandidate, MsgTypeProgress, MsgTypeFold, MsgTypeDone}
	if len(types) != len(want) {
		t.Fatalf("messages %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("messages %v, want %v", types, want)
		}
	}
}
