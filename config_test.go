package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chanquant/optimize"

	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	c, err := loadConfig(context.Background(), "", envconfig.MapLookuper(nil))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if c.Lookback != 30 || c.Optimize.Mode != "walkforward" {
		t.Fatalf("defaults: lookback=%d mode=%s", c.Lookback, c.Optimize.Mode)
	}
	if c.Backtest.Params.BuyThreshold != 60 || c.Backtest.Params.SellThreshold != 35 {
		t.Fatalf("default thresholds: %+v", c.Backtest.Params)
	}
	if c.Optimize.Split.TrainRatio != 0.7 || c.Optimize.WalkForward.Folds != 4 {
		t.Fatalf("default optimizer config: %+v", c.Optimize)
	}
}

func TestLoadConfigLayers(t *testing.T) {
	path := writeFile(t, "chanquant.yaml", `
data:
  path: bars/600519.csv
  symbol: "600519"
lookback: 20
backtest:
  capital: 50000
  params:
    buy_threshold: 70
optimize:
  mode: split
  split:
    top_k: 3
`)
	lookup := envconfig.MapLookuper(map[string]string{
		"CHANQUANT_SYMBOL":    "000001",
		"CHANQUANT_FEE_BPS":   "20",
		"CHANQUANT_WORKERS":   "2",
		"CHANQUANT_OBJECTIVE": "stable",
		"SYMBOL":              "unprefixed is ignored",
	})

	c, err := loadConfig(context.Background(), path, lookup)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if c.Data.Path != "bars/600519.csv" {
		t.Fatalf("file layer lost: path=%q", c.Data.Path)
	}
	if c.Data.Symbol != "000001" {
		t.Fatalf("env should override file: symbol=%q", c.Data.Symbol)
	}
	if c.Lookback != 20 || c.Backtest.Capital != 50000 {
		t.Fatalf("file values: lookback=%d capital=%g", c.Lookback, c.Backtest.Capital)
	}
	p := c.Backtest.Params
	if p.BuyThreshold != 70 || p.SellThreshold != 35 || p.MaxHoldingDays != 20 {
		t.Fatalf("partial params should keep defaults: %+v", p)
	}
	if p.FeeBps != 20 || c.Optimize.Split.Space.FeeBps != 20 || c.Optimize.WalkForward.B.Space.FeeBps != 20 {
		t.Fatalf("fee override not propagated: %g %g %g", p.FeeBps, c.Optimize.Split.Space.FeeBps, c.Optimize.WalkForward.B.Space.FeeBps)
	}
	if c.Optimize.Workers != 2 || c.Optimize.Split.TopK != 3 || c.Optimize.Split.TrainRatio != 0.7 {
		t.Fatalf("optimize: %+v", c.Optimize)
	}
	if c.Optimize.Split.Objective != optimize.ObjectiveStability {
		t.Fatalf("objective=%s", c.Optimize.Split.Objective)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	ctx := context.Background()
	none := envconfig.MapLookuper(nil)

	if _, err := loadConfig(ctx, filepath.Join(t.TempDir(), "missing.yaml"), none); err == nil {
		t.Fatalf("expected error for missing file")
	}

	bad := writeFile(t, "bad.yaml", "optimize:\n  mode: genetic\n")
	if _, err := loadConfig(ctx, bad, none); err == nil || !strings.Contains(err.Error(), "genetic") {
		t.Fatalf("expected unknown mode error, got %v", err)
	}

	_, err := loadConfig(ctx, "", envconfig.MapLookuper(map[string]string{"CHANQUANT_LOOKBACK": "abc"}))
	if err == nil || !strings.Contains(err.Error(), "CHANQUANT_LOOKBACK") {
		t.Fatalf("expected lookback parse error, got %v", err)
	}

	_, err = loadConfig(ctx, "", envconfig.MapLookuper(map[string]string{"CHANQUANT_START": "last week"}))
	if err == nil {
		t.Fatalf("expected bad date error")
	}
}

func TestParseDay(t *testing.T) {
	for _, s := range []string{"2024-03-01", "20240301"} {
		d, err := parseDay(s)
		if err != nil {
			t.Fatalf("parseDay(%q): %v", s, err)
		}
		if d.Year() != 2024 || d.Month() != 3 || d.Day() != 1 {
			t.Fatalf("parseDay(%q) = %v", s, d)
		}
	}
	if _, err := parseDay("03/01/2024"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestFlagLayerOnlyChangedFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	cmd.Flags().Float64("buy", 60, "")
	cmd.Flags().Int("hold", 20, "")
	cmd.Flags().String("symbol", "", "")
	if err := cmd.Flags().Set("buy", "72.5"); err != nil {
		t.Fatalf("set: %v", err)
	}

	buy, hold, symbol := 65.0, 7, "600519"
	flagFloat(cmd, "buy", &buy)
	flagInt(cmd, "hold", &hold)
	flagString(cmd, "symbol", &symbol)
	flagString(cmd, "not-a-flag", &symbol)

	if buy != 72.5 {
		t.Fatalf("changed flag should override: buy=%g", buy)
	}
	if hold != 7 || symbol != "600519" {
		t.Fatalf("unchanged flags must not override: hold=%d symbol=%q", hold, symbol)
	}
}
