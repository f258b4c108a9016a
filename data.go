package main

import (
	"bufio"
	"fmt"
	"os"

	"chanquant/logx"
	"chanquant/series"
)

// loadSeries reads and normalizes the configured CSV and reports what was
// loaded on the DATA channel.
func loadSeries(cfg Config) (series.Series, error) {
	if cfg.Data.Path == "" {
		return nil, fmt.Errorf("no data file (use --data or %sDATA)", envPrefix)
	}
	s, err := series.LoadCSV(cfg.Data.Path)
	if err != nil {
		return nil, err
	}
	if s.Len() == 0 {
		return nil, fmt.Errorf("%s: no bars", cfg.Data.Path)
	}
	logx.Line("DATA", "%s %s bars %s..%s from %s",
		cfg.Data.Symbol, logx.FormatNumber(s.Len()),
		s.First().Format("2006-01-02"), s.Last().Format("2006-01-02"),
		cfg.Data.Path)
	return s, nil
}

// loadRawBars returns the file's rows in file order, before normalization.
func loadRawBars(path string) ([]series.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bars, err := series.ReadBars(bufio.NewReaderSize(f, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bars, nil
}
