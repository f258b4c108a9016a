package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveLoadReport(t *testing.T) {
	dir := t.TempDir()
	runID := newRunID()
	if len(runID) != 36 {
		t.Fatalf("run id %q", runID)
	}

	payload := map[string]any{"status": "OK", "folds": 4}
	sr, err := newSavedReport(runID, "optimize", "600519", nil, payload)
	if err != nil {
		t.Fatalf("newSavedReport: %v", err)
	}
	path := filepath.Join(dir, "nested", "report.json")
	if err := SaveReport(path, sr); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("tmp file left behind: %v", err)
	}

	got, err := LoadReport(path)
	if err != nil {
		t.Fatalf("LoadReport: %v", err)
	}
	if got.RunID != runID || got.Version != reportVersion || got.SavedAtUnix == 0 {
		t.Fatalf("envelope: %+v", got)
	}
	var back map[string]any
	if err := json.Unmarshal(got.Report, &back); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if back["status"] != "OK" || back["folds"] != float64(4) {
		t.Fatalf("payload: %v", back)
	}
}

func TestHistoryRing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs", "history.jsonl")
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		rec := RunRecord{
			RunID:   fmt.Sprintf("run-%d", i),
			Command: "optimize",
			Status:  "OK",
			Started: start.Add(time.Duration(i) * time.Hour),
		}
		if err := appendHistory(path, rec); err != nil {
			t.Fatalf("appendHistory: %v", err)
		}
	}
	// a torn line must not break the reader
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	f.WriteString("{\"run_id\": \"trunc\n")
	f.Close()

	runs, err := loadRecentRuns(path, 3)
	if err != nil {
		t.Fatalf("loadRecentRuns: %v", err)
	}
	// the ring holds run-3, run-4 and the torn line; the torn line is dropped
	if len(runs) != 2 || runs[0].RunID != "run-3" || runs[1].RunID != "run-4" {
		t.Fatalf("ring: %+v", runs)
	}

	all, err := loadRecentRuns(path, 100)
	if err != nil || len(all) != 5 || all[0].RunID != "run-0" {
		t.Fatalf("all: %v %+v", err, all)
	}

	if _, err := loadRecentRuns(filepath.Join(t.TempDir(), "none.jsonl"), 3); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist, got %v", err)
	}
}

func TestFormatMoney(t *testing.T) {
	cases := []struct {
		capital, equity float64
		want            string
	}{
		{100000, 1.23456, "123456.00"},
		{1000, 0.5, "500.00"},
		{100000, 0, "0.00"},
		{3, 1.0 / 3, "1.00"},
	}
	for _, c := range cases {
		if got := formatMoney(c.capital, c.equity); got != c.want {
			t.Fatalf("formatMoney(%g, %g) = %s, want %s", c.capital, c.equity, got, c.want)
		}
	}
}
