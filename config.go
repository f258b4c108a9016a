package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"chanquant/backtest"
	"chanquant/chanlun"
	"chanquant/optimize"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const envPrefix = "CHANQUANT_"

// Config is the full CLI configuration. Layers, lowest first: defaults,
// YAML file, .env, CHANQUANT_* environment, command-line flags.
type Config struct {
	Data     DataConfig     `yaml:"data"`
	Formula  string         `yaml:"formula"`
	Lookback int            `yaml:"lookback"`
	Chan     chanlun.Config `yaml:"chan"`
	Backtest BacktestConfig `yaml:"backtest"`
	Optimize OptimizeConfig `yaml:"optimize"`
	Log      LogConfig      `yaml:"log"`
	Web      WebConfig      `yaml:"web"`
	Output   OutputConfig   `yaml:"output"`
}

type DataConfig struct {
	Path   string `yaml:"path"`
	Symbol string `yaml:"symbol"`
	Start  string `yaml:"start"`
	End    string `yaml:"end"`
}

type BacktestConfig struct {
	Capital         float64         `yaml:"capital"`
	CheckInvariants bool            `yaml:"check_invariants"`
	Params          backtest.Params `yaml:"params"`
}

type OptimizeConfig struct {
	Mode        string            `yaml:"mode"` // split | walkforward
	Workers     int               `yaml:"workers"`
	Split       optimize.Config   `yaml:"split"`
	WalkForward optimize.WFConfig `yaml:"walkforward"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`
	NoColor bool   `yaml:"no_color"`
}

type WebConfig struct {
	Port int `yaml:"port"` // 0 disables the dashboard
}

type OutputConfig struct {
	Dir     string `yaml:"dir"`
	History string `yaml:"history"`
}

func defaultConfig() Config {
	return Config{
		Data:     DataConfig{Symbol: "UNKNOWN"},
		Formula:  "formulas/default.yaml",
		Lookback: backtest.DefaultLookbackDays,
		Chan:     chanlun.DefaultConfig(),
		Backtest: BacktestConfig{
			Capital: 100000,
			Params:  backtest.DefaultParams(),
		},
		Optimize: OptimizeConfig{
			Mode:        "walkforward",
			Workers:     optimize.DefaultWorkers(),
			Split:       optimize.DefaultConfig(),
			WalkForward: optimize.DefaultWFConfig(),
		},
		Log:    LogConfig{Level: "info", Format: "text"},
		Output: OutputConfig{Dir: "runs", History: "runs/history.jsonl"},
	}
}

// envOverrides are read as strings so an unset variable never clobbers a
// lower layer.
type envOverrides struct {
	Data      string `env:"DATA"`
	Symbol    string `env:"SYMBOL"`
	Start     string `env:"START"`
	End       string `env:"END"`
	Formula   string `env:"FORMULA"`
	Lookback  string `env:"LOOKBACK"`
	Capital   string `env:"CAPITAL"`
	FeeBps    string `env:"FEE_BPS"`
	Mode      string `env:"MODE"`
	Objective string `env:"OBJECTIVE"`
	Workers   string `env:"WORKERS"`
	LogLevel  string `env:"LOG_LEVEL"`
	LogFormat string `env:"LOG_FORMAT"`
	NoColor   string `env:"NO_COLOR"`
	WebPort   string `env:"WEB_PORT"`
	OutDir    string `env:"OUT_DIR"`
}

// loadDotEnv loads .env into the process environment without overriding
// variables that are already set. A missing file is not an error.
func loadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// loadConfig applies the file and environment layers on top of defaults.
func loadConfig(ctx context.Context, path string, lookuper envconfig.Lookuper) (Config, error) {
	cfg := defaultConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	}

	var env envOverrides
	if err := envconfig.ProcessWith(ctx, &env, envconfig.PrefixLookuper(envPrefix, lookuper)); err != nil {
		return Config{}, fmt.Errorf("config env: %w", err)
	}
	if err := env.apply(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.validate()
}

func (e envOverrides) apply(cfg *Config) error {
	setString(&cfg.Data.Path, e.Data)
	setString(&cfg.Data.Symbol, e.Symbol)
	setString(&cfg.Data.Start, e.Start)
	setString(&cfg.Data.End, e.End)
	setString(&cfg.Formula, e.Formula)
	setString(&cfg.Optimize.Mode, e.Mode)
	setString(&cfg.Log.Level, e.LogLevel)
	setString(&cfg.Log.Format, e.LogFormat)
	setString(&cfg.Output.Dir, e.OutDir)

	if e.Objective != "" {
		o, err := optimize.ParseObjective(e.Objective)
		if err != nil {
			return fmt.Errorf("%sOBJECTIVE: %w", envPrefix, err)
		}
		cfg.Optimize.Split.Objective = o
	}
	for _, iv := range []struct {
		name string
		raw  string
		dst  *int
	}{
		{"LOOKBACK", e.Lookback, &cfg.Lookback},
		{"WORKERS", e.Workers, &cfg.Optimize.Workers},
		{"WEB_PORT", e.WebPort, &cfg.Web.Port},
	} {
		if iv.raw == "" {
			continue
		}
		v, err := strconv.Atoi(iv.raw)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, iv.name, err)
		}
		*iv.dst = v
	}
	for _, fv := range []struct {
		name string
		raw  string
		dst  *float64
	}{
		{"CAPITAL", e.Capital, &cfg.Backtest.Capital},
		{"FEE_BPS", e.FeeBps, &cfg.Backtest.Params.FeeBps},
	} {
		if fv.raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(fv.raw, 64)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, fv.name, err)
		}
		*fv.dst = v
	}
	if e.NoColor != "" {
		b, err := strconv.ParseBool(e.NoColor)
		if err != nil {
			return fmt.Errorf("%sNO_COLOR: %w", envPrefix, err)
		}
		cfg.Log.NoColor = b
	}
	if e.FeeBps != "" {
		cfg.Optimize.Split.Space.FeeBps = cfg.Backtest.Params.FeeBps
		cfg.Optimize.WalkForward.A.Space.FeeBps = cfg.Backtest.Params.FeeBps
		cfg.Optimize.WalkForward.B.Space.FeeBps = cfg.Backtest.Params.FeeBps
	}
	return nil
}

func (c Config) validate() error {
	switch c.Optimize.Mode {
	case "split", "walkforward":
	default:
		return fmt.Errorf("config: unknown optimize mode %q (split|walkforward)", c.Optimize.Mode)
	}
	if c.Lookback < 1 {
		return fmt.Errorf("config: lookback must be >= 1, got %d", c.Lookback)
	}
	if c.Backtest.Capital <= 0 {
		return fmt.Errorf("config: capital must be > 0, got %g", c.Backtest.Capital)
	}
	if _, err := c.dateRange(); err != nil {
		return err
	}
	return nil
}

// dateRange parses Data.Start/End; empty values are unbounded.
func (c Config) dateRange() ([2]time.Time, error) {
	var r [2]time.Time
	for i, s := range []string{c.Data.Start, c.Data.End} {
		if s == "" {
			continue
		}
		t, err := parseDay(s)
		if err != nil {
			return r, fmt.Errorf("config: %w", err)
		}
		r[i] = t
	}
	return r, nil
}

func parseDay(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "20060102"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("bad date %q (want YYYY-MM-DD or YYYYMMDD)", s)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Flag layer. Only flags the user actually set override the config.

func flagString(cmd *cobra.Command, name string, dst *string) {
	if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
		*dst, _ = cmd.Flags().GetString(name)
	}
}

func flagInt(cmd *cobra.Command, name string, dst *int) {
	if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
		*dst, _ = cmd.Flags().GetInt(name)
	}
}

func flagFloat(cmd *cobra.Command, name string, dst *float64) {
	if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
		*dst, _ = cmd.Flags().GetFloat64(name)
	}
}

func flagBool(cmd *cobra.Command, name string, dst *bool) {
	if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
		*dst, _ = cmd.Flags().GetBool(name)
	}
}
