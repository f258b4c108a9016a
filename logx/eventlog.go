package logx

import (
	"fmt"
	"time"

	"chanquant/tui"
)

// Convenience functions that forward to TUI

func LogNewBest(side string, oldObj, newObj float64, params string) {
	tui.PushEvent(tui.Event{
		Timestamp: time.Now(),
		Type:      "BEST",
		Severity:  "info",
		Message:   fmt.Sprintf("%s best objective: %.4f → %.4f (%s)", side, oldObj, newObj, params),
	})
}

func LogFoldDone(side string, fold, folds int, status string) {
	severity := "info"
	if status != "OK" {
		severity = "warning"
	}
	tui.PushEvent(tui.Event{
		Timestamp: time.Now(),
		Type:      "FOLD",
		Severity:  severity,
		Message:   fmt.Sprintf("%s fold %d/%d finished: %s", side, fold+1, folds, status),
	})
}

func LogNoWinner(side string, fold int) {
	tui.PushEvent(tui.Event{
		Timestamp: time.Now(),
		Type:      "NONE",
		Severity:  "warning",
		Message:   fmt.Sprintf("%s fold %d: no candidate met the trade floor", side, fold+1),
	})
}

func LogCancelled(reason string) {
	tui.PushEvent(tui.Event{
		Timestamp: time.Now(),
		Type:      "CANCEL",
		Severity:  "error",
		Message:   reason,
	})
}
