package main

import (
	"fmt"
	"time"

	"chanquant/backtest"
	"chanquant/logx"
	"chanquant/scoring"

	"github.com/spf13/cobra"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Simulate the score-threshold strategy once with fixed parameters",
	RunE:  runBacktest,
}

func init() {
	f := backtestCmd.Flags()
	d := backtest.DefaultParams()
	f.String("formula", "", "formula YAML (default formulas/default.yaml)")
	f.Float64("buy", d.BuyThreshold, "buy when score >= this")
	f.Float64("sell", d.SellThreshold, "sell when score <= this")
	f.Int("hold", d.MaxHoldingDays, "max holding days (0 = unlimited)")
	f.Float64("tp", d.TakeProfitPct, "take-profit percent (0 = off)")
	f.Float64("sl", d.StopLossPct, "stop-loss percent (0 = off)")
	f.Float64("fee", d.FeeBps, "round-trip fee in basis points")
	f.Bool("price-filter", false, "reject entries far above the trailing low")
	f.Int("lookback", backtest.DefaultLookbackDays, "bars in each scoring window")
	f.Float64("capital", 100000, "starting capital for money figures")
	f.Bool("trades", true, "print the trade log")
	f.Bool("check", false, "assert simulator invariants while running")
	f.Bool("save", false, "save the report and append to history")
	f.String("out", "", "report directory")
	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	c := cfg
	p := &c.Backtest.Params
	flagString(cmd, "formula", &c.Formula)
	flagFloat(cmd, "buy", &p.BuyThreshold)
	flagFloat(cmd, "sell", &p.SellThreshold)
	flagInt(cmd, "hold", &p.MaxHoldingDays)
	flagFloat(cmd, "tp", &p.TakeProfitPct)
	flagFloat(cmd, "sl", &p.StopLossPct)
	flagFloat(cmd, "fee", &p.FeeBps)
	flagBool(cmd, "price-filter", &p.PriceFilter.Enabled)
	flagInt(cmd, "lookback", &c.Lookback)
	flagFloat(cmd, "capital", &c.Backtest.Capital)
	flagBool(cmd, "check", &c.Backtest.CheckInvariants)
	flagString(cmd, "out", &c.Output.Dir)
	showTrades, _ := cmd.Flags().GetBool("trades")
	save, _ := cmd.Flags().GetBool("save")
	if err := c.validate(); err != nil {
		return err
	}

	s, err := loadSeries(c)
	if err != nil {
		return err
	}
	f, err := loadFormula(c.Formula)
	if err != nil {
		return err
	}
	r, _ := c.dateRange()

	started := time.Now()
	logx.Line("BT  ", "%s lookback=%d", p.String(), c.Lookback)
	res := backtest.Run(s, f, *p, backtest.Options{
		LookbackDays:    c.Lookback,
		Start:           r[0],
		End:             r[1],
		CheckInvariants: c.Backtest.CheckInvariants,
	})

	if showTrades {
		for _, t := range res.Trades {
			logx.LogTradeLine(t.Label, t.DecisionTime, t.Time, t.DecisionIndex, t.FillIndex, t.Price, t.Score, t.ReturnPct, t.IsBuy())
		}
	}
	printBacktestSummary(c, res)

	if !save {
		return nil
	}
	runID := newRunID()
	sr, err := newSavedReport(runID, "backtest", c.Data.Symbol, c, res)
	if err != nil {
		return err
	}
	path := reportPath(c.Output.Dir, "backtest", runID)
	if err := SaveReport(path, sr); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	elapsed := time.Since(started)
	logx.LogReportSaved(path, runID, elapsed)
	return appendHistory(c.Output.History, RunRecord{
		RunID:     runID,
		Command:   "backtest",
		Symbol:    c.Data.Symbol,
		Status:    "OK",
		Started:   started,
		ElapsedMs: elapsed.Milliseconds(),
		Bars:      len(res.Equity),
		Summary:   fmt.Sprintf("total %.2f%% dd %.2f%% trades %d", res.Metrics.TotalReturnPct, res.Metrics.MaxDrawdownPct, res.Metrics.Trades),
		Report:    path,
	})
}

func printBacktestSummary(c Config, res backtest.Result) {
	m := res.Metrics
	final := 1.0
	if n := len(res.Equity); n > 0 {
		final = res.Equity[n-1].Equity
	}
	logx.LogSummaryBox(logx.SummarySnapshot{
		Title:       fmt.Sprintf("BACKTEST %s", c.Data.Symbol),
		TotalPct:    m.TotalReturnPct,
		CAGRPct:     m.CAGRPct,
		Sharpe:      m.Sharpe,
		MaxDDPct:    m.MaxDrawdownPct,
		WinRatePct:  m.WinRatePct,
		AvgTradePct: m.AvgTradePct,
		Trades:      m.Trades,
		FinalCash:   formatMoney(c.Backtest.Capital, final),
	})
	if !res.Final.IsFlat() {
		logx.Line("BT  ", "%s since %s @ %.4f (%d days, not in trade stats)",
			logx.Warn("open position"), res.Final.EntryTime.Format("2006-01-02"), res.Final.EntryPrice, res.Final.DaysHeld)
	}
}

func loadFormula(path string) (*scoring.Formula, error) {
	spec, err := scoring.LoadFormula(path)
	if err != nil {
		return nil, err
	}
	f := scoring.Compile(spec)
	fs := f.Spec()
	name := fs.Name
	if name == "" {
		name = path
	}
	logx.Line("SCOR", "formula %s: %d categories, %d penalties, buy>=%g sell<=%g",
		logx.Highlight(name), len(fs.Categories), len(fs.Penalties), fs.BuyThreshold, fs.SellThreshold)
	if n := len(f.Unrecognized()); n > 0 {
		logx.Line("SCOR", "%s: %d of %d clauses unrecognized (always not triggered)", path, n, len(f.Clauses()))
		for _, u := range f.Unrecognized() {
			logx.With("scoring").WithField("condition", u.Condition).Debug("unrecognized clause")
		}
	}
	return f, nil
}
