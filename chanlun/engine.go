package chanlun

import (
	"chanquant/series"
)

// Config holds the engine parameters. Zero values are replaced by defaults.
type Config struct {
	FractalWindow int            `yaml:"fractal_window" json:"fractal_window"`
	DisplayWindow int            `yaml:"display_window" json:"display_window"`
	MinBiGap      int            `yaml:"min_bi_gap" json:"min_bi_gap"`
	BiThreshold   float64        `yaml:"bi_threshold" json:"bi_threshold"`
	UseMACD       bool           `yaml:"use_macd" json:"use_macd"`
	Buy2Tolerance float64        `yaml:"buy2_tolerance" json:"buy2_tolerance"`
	Stroke        StrokeStrategy `yaml:"stroke" json:"stroke"`
}

func DefaultConfig() Config {
	return Config{
		FractalWindow: 1,
		DisplayWindow: 3,
		MinBiGap:      2,
		BiThreshold:   0.03,
		UseMACD:       true,
		Buy2Tolerance: 0.99,
		Stroke:        StrategyGreedy,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.FractalWindow <= 0 {
		c.FractalWindow = d.FractalWindow
	}
	if c.DisplayWindow <= 0 {
		c.DisplayWindow = d.DisplayWindow
	}
	if c.MinBiGap <= 0 {
		c.MinBiGap = d.MinBiGap
	}
	if c.BiThreshold <= 0 {
		c.BiThreshold = d.BiThreshold
	}
	if c.Buy2Tolerance <= 0 {
		c.Buy2Tolerance = d.Buy2Tolerance
	}
	if c.Stroke == "" {
		c.Stroke = d.Stroke
	}
	return c
}

// Summary counts the artifacts of one run.
type Summary struct {
	Bars       int    `json:"bars"`
	MergedBars int    `json:"merged_bars"`
	Fractals   int    `json:"fractals"`
	Strokes    int    `json:"strokes"`
	Pivots     int    `json:"pivots"`
	Signals    int    `json:"signals"`
	LastSignal string `json:"last_signal,omitempty"`
}

type Result struct {
	Merged          []MergedBar
	Fractals        []Fractal
	DisplayFractals []Fractal
	Strokes         []Stroke
	Pivots          []Pivot
	Signals         []Signal
	Summary         Summary
}

type Engine struct {
	cfg     Config
	builder StrokeBuilder
}

// NewEngine validates the stroke strategy and fills defaults.
func NewEngine(cfg Config) (*Engine, error) {
	cfg = cfg.withDefaults()
	b, err := NewStrokeBuilder(cfg.Stroke, StrokeRules{MinGap: cfg.MinBiGap, Threshold: cfg.BiThreshold})
	if err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, builder: b}, nil
}

func (e *Engine) Config() Config { return e.cfg }

// Run executes all five stages in order.
func (e *Engine) Run(s series.Series) Result {
	var r Result
	r.Merged = MergeBars(s)
	r.Fractals = FindFractals(r.Merged, e.cfg.FractalWindow)
	r.DisplayFractals = FindFractals(r.Merged, e.cfg.DisplayWindow)
	r.Strokes = e.builder.Build(r.Merged, r.Fractals)
	r.Pivots = FindPivots(r.Strokes, r.Merged)
	r.Signals = FindSignals(r.Merged, r.Strokes, r.Pivots, SignalRules{
		UseMACD:       e.cfg.UseMACD,
		Buy2Tolerance: e.cfg.Buy2Tolerance,
	})

	r.Summary = Summary{
		Bars:       len(s),
		MergedBars: len(r.Merged),
		Fractals:   len(r.Fractals),
		Strokes:    len(r.Strokes),
		Pivots:     len(r.Pivots),
		Signals:    len(r.Signals),
	}
	if n := len(r.Signals); n > 0 {
		r.Summary.LastSignal = string(r.Signals[n-1].Type)
	}
	return r
}
