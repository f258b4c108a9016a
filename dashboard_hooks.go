package main

import (
	"strconv"
	"sync"
	"time"

	"chanquant/logx"
	"chanquant/optimize"
	"chanquant/tui"
)

// progressEvery throttles console progress lines to one per this many
// candidates (the last candidate of a phase always prints).
const progressEvery = 8

// dashboard fans optimizer progress out to the console, the TUI and the web
// hub. Any of the three may be off.
type dashboard struct {
	hub     *WSHub
	console bool
	mode    string
	symbol  string
	folds   int // 0 for a single split
	started time.Time

	// cacheSize reports the result cache size for the TUI; may be nil.
	cacheSize func() int

	mu        sync.Mutex
	best      map[string]float64
	bestText  map[string]string
	foldsDone int
	phaseFrom time.Time
	phaseKey  string
}

func newDashboard(hub *WSHub, console bool, mode, symbol string) *dashboard {
	return &dashboard{
		hub:      hub,
		console:  console,
		mode:     mode,
		symbol:   symbol,
		started:  time.Now(),
		best:     make(map[string]float64),
		bestText: make(map[string]string),
	}
}

// bestKey scopes the running best to one side, fold and phase.
func bestKey(side string, fold int, phase optimize.Phase) string {
	return side + "/" + string(phase) + "/" + strconv.Itoa(fold)
}

func (d *dashboard) OnCandidate(ev optimize.CandidateEvent) {
	d.mu.Lock()
	key := bestKey(ev.Side, ev.Fold, ev.Phase)
	if key != d.phaseKey {
		d.phaseKey = key
		d.phaseFrom = time.Now()
	}
	old, seen := d.best[key]
	improved := !seen || ev.Objective > old
	if improved {
		d.best[key] = ev.Objective
		d.bestText[key] = ev.Params.String()
	}
	best := d.best[key]
	bestText := d.bestText[key]
	rate := 0.0
	if el := time.Since(d.phaseFrom).Seconds(); el > 0 {
		rate = float64(ev.Done) / el
	}
	folds := d.foldsDone
	d.mu.Unlock()

	if improved && seen {
		logx.LogNewBest(ev.Side, old, ev.Objective, bestText)
	}

	if d.console && (ev.Done%progressEvery == 0 || ev.Done == ev.Total) {
		logx.LogProgress(ev.Side, ev.Fold, d.folds, string(ev.Phase), ev.Done, ev.Total, rate, best)
	}

	cache := 0
	if d.cacheSize != nil {
		cache = d.cacheSize()
	}
	tui.PushState(tui.StateSnapshot{
		Mode:          d.mode,
		Symbol:        d.symbol,
		StartTime:     d.started,
		Side:          ev.Side,
		Fold:          ev.Fold,
		Folds:         d.folds,
		Phase:         string(ev.Phase),
		Done:          ev.Done,
		Total:         ev.Total,
		RatePerSec:    rate,
		BestObjective: best,
		BestParams:    bestText,
		FoldsDone:     folds,
		CacheSize:     cache,
		CurrentCandidate: tui.CandidateInfo{
			Side:      ev.Side,
			Objective: ev.Objective,
			ReturnPct: ev.Metrics.TotalReturnPct,
			MaxDDPct:  ev.Metrics.MaxDrawdownPct,
			Trades:    ev.Metrics.Trades,
			Params:    ev.Params.String(),
			Timestamp: time.Now(),
		},
	})

	d.hub.Broadcast(MsgTypeProgress, ProgressData{
		Side:          ev.Side,
		Fold:          ev.Fold,
		Folds:         d.folds,
		Phase:         string(ev.Phase),
		Done:          ev.Done,
		Total:         ev.Total,
		RatePerSec:    rate,
		BestObjective: best,
		TimeElapsed:   logx.FormatDuration(time.Since(d.started)),
	})
	if improved {
		d.hub.Broadcast(MsgTypeCandidate, CandidateData{
			Side:      ev.Side,
			Fold:      ev.Fold,
			Phase:     string(ev.Phase),
			Params:    ev.Params.String(),
			Objective: ev.Objective,
			ReturnPct: ev.Metrics.TotalReturnPct,
			MaxDDPct:  ev.Metrics.MaxDrawdownPct,
			Trades:    ev.Metrics.Trades,
		})
	}
}

func (d *dashboard) OnFold(ev optimize.FoldEvent) {
	d.mu.Lock()
	d.foldsDone++
	d.mu.Unlock()

	status := optimize.StatusNone
	params := "-"
	valObj := 0.0
	if ev.Winner != nil {
		status = optimize.StatusOK
		params = ev.Winner.Params.String()
		valObj = ev.Winner.ValObjective
	}

	if d.console {
		logx.LogFoldBlock(ev.Side, ev.Fold, ev.Folds, ev.Train.String(), ev.Val.String(), params, valObj, status)
	}
	if ev.Winner == nil {
		logx.LogNoWinner(ev.Side, ev.Fold)
	}
	logx.LogFoldDone(ev.Side, ev.Fold, ev.Folds, status)

	data := FoldData{
		Side:   ev.Side,
		Fold:   ev.Fold,
		Folds:  ev.Folds,
		Train:  ev.Train.String(),
		Val:    ev.Val.String(),
		Status: status,
	}
	if ev.Winner != nil {
		data.Params = params
		data.ValObjective = valObj
	}
	d.hub.Broadcast(MsgTypeFold, data)
}

func (d *dashboard) OnDone(ev optimize.DoneEvent) {
	if d.console {
		logx.Line("OPT ", "%s finished: %s in %s", ev.Mode, statusText(ev.Status), logx.FormatDuration(ev.Elapsed))
	}
	d.hub.Broadcast(MsgTypeDone, DoneData{
		Mode:    ev.Mode,
		Status:  ev.Status,
		Elapsed: logx.FormatDuration(ev.Elapsed),
	})
}

// Best returns the running best objective for a side/fold/phase.
func (d *dashboard) Best(side string, fold int, phase optimize.Phase) (float64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.best[bestKey(side, fold, phase)]
	return v, ok
}

func (d *dashboard) FoldsDone() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.foldsDone
}

func statusText(status string) string {
	if status == optimize.StatusOK {
		return logx.Success(status)
	}
	return logx.Warn(status)
}
