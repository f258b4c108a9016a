package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const reportVersion = 1

// SavedReport is the on-disk envelope of one run's result.
type SavedReport struct {
	Version     int             `json:"version"`
	RunID       string          `json:"run_id"`
	SavedAtUnix int64           `json:"saved_at_unix"`
	Command     string          `json:"command"`
	Symbol      string          `json:"symbol"`
	Config      json.RawMessage `json:"config,omitempty"`
	Report      json.RawMessage `json:"report"`
}

// RunRecord is one line of the append-only history file.
type RunRecord struct {
	RunID     string    `json:"run_id"`
	Command   string    `json:"command"`
	Symbol    string    `json:"symbol"`
	Mode      string    `json:"mode,omitempty"`
	Status    string    `json:"status"`
	Started   time.Time `json:"started"`
	ElapsedMs int64     `json:"elapsed_ms"`
	Bars      int       `json:"bars"`
	Summary   string    `json:"summary"`
	Report    string    `json:"report,omitempty"`
}

func newRunID() string {
	return uuid.NewString()
}

// newSavedReport wraps report and the config it ran under.
func newSavedReport(runID, command, symbol string, cfg, report any) (SavedReport, error) {
	sr := SavedReport{Version: reportVersion, RunID: runID, Command: command, Symbol: symbol}
	b, err := json.Marshal(report)
	if err != nil {
		return sr, fmt.Errorf("encode report: %w", err)
	}
	sr.Report = b
	if cfg != nil {
		c, err := json.Marshal(cfg)
		if err != nil {
			return sr, fmt.Errorf("encode config: %w", err)
		}
		sr.Config = c
	}
	return sr, nil
}

// SaveReport writes sr to path atomically (write tmp, rename).
func SaveReport(path string, sr SavedReport) error {
	sr.SavedAtUnix = time.Now().Unix()

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	b, err := json.MarshalIndent(sr, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(tmp, b, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path) // atomic replace
}

func LoadReport(path string) (SavedReport, error) {
	var sr SavedReport
	b, err := os.ReadFile(path)
	if err != nil {
		return sr, err
	}
	err = json.Unmarshal(b, &sr)
	return sr, err
}

// reportPath names the report file of a run inside dir.
func reportPath(dir, command, runID string) string {
	short := runID
	if len(short) > 8 {
		short = short[:8]
	}
	return filepath.Join(dir, fmt.Sprintf("%s-%s-%s.json", command, time.Now().Format("20060102-150405"), short))
}

// appendHistory appends one JSON line to the history file.
func appendHistory(path string, rec RunRecord) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = f.Write(b)
	return err
}

// loadRecentRuns returns the last limit records of the history file, oldest
// first. Unparseable lines are skipped.
func loadRecentRuns(path string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Ring buffer of last N lines
	ring := make([]string, 0, limit)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		if len(ring) < limit {
			ring = append(ring, line)
		} else {
			copy(ring, ring[1:])
			ring[len(ring)-1] = line
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	out := make([]RunRecord, 0, len(ring))
	for _, line := range ring {
		var r RunRecord
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// formatMoney returns capital*equity rounded to cents.
func formatMoney(capital, equity float64) string {
	return decimal.NewFromFloat(capital).Mul(decimal.NewFromFloat(equity)).StringFixed(2)
}
