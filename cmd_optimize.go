package main

import (
	"context"
	"fmt"
	"time"

	"chanquant/logx"
	"chanquant/optimize"
	"chanquant/series"
	"chanquant/tui"

	"github.com/spf13/cobra"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Grid-search strategy parameters (single split or A/B walk-forward)",
	RunE:  runOptimize,
}

func init() {
	f := optimizeCmd.Flags()
	f.String("mode", "", "split | walkforward (default walkforward)")
	f.String("objective", "", "split objective: return | stability | balanced")
	f.String("formula", "", "formula YAML (default formulas/default.yaml)")
	f.Int("lookback", 0, "bars in each scoring window")
	f.Int("workers", 0, "parallel backtests (default 40% of CPUs)")
	f.Float64("train-ratio", 0, "split: share of bars used for training")
	f.Int("min-trades", -1, "minimum round trips a candidate needs on train")
	f.Int("top-k", 0, "candidates re-run on validation")
	f.Int("folds", 0, "walkforward: number of folds")
	f.Int("val-bars", 0, "walkforward: validation bars per fold")
	f.Int("min-train-bars", 0, "walkforward: minimum bars in the first train window")
	f.Bool("tui", false, "show the live terminal UI")
	f.Int("web-port", 0, "serve the live dashboard on this port (0 = off)")
	f.Bool("wait", false, "keep the dashboard up after finishing until interrupted")
	f.String("out", "", "report directory")
	f.Int("show", 10, "split: grid rows to print")
	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	c := cfg
	o := &c.Optimize
	flagString(cmd, "mode", &o.Mode)
	flagString(cmd, "formula", &c.Formula)
	flagInt(cmd, "lookback", &c.Lookback)
	flagInt(cmd, "workers", &o.Workers)
	flagFloat(cmd, "train-ratio", &o.Split.TrainRatio)
	flagInt(cmd, "top-k", &o.Split.TopK)
	flagInt(cmd, "top-k", &o.WalkForward.TopK)
	flagInt(cmd, "min-trades", &o.Split.MinTrades)
	flagInt(cmd, "min-trades", &o.WalkForward.MinTrades)
	flagInt(cmd, "folds", &o.WalkForward.Folds)
	flagInt(cmd, "val-bars", &o.WalkForward.ValBars)
	flagInt(cmd, "min-train-bars", &o.WalkForward.MinTrainBars)
	flagInt(cmd, "web-port", &c.Web.Port)
	flagString(cmd, "out", &c.Output.Dir)
	var objective string
	flagString(cmd, "objective", &objective)
	if objective != "" {
		obj, err := optimize.ParseObjective(objective)
		if err != nil {
			return err
		}
		o.Split.Objective = obj
	}
	useTUI, _ := cmd.Flags().GetBool("tui")
	wait, _ := cmd.Flags().GetBool("wait")
	show, _ := cmd.Flags().GetInt("show")
	if err := c.validate(); err != nil {
		return err
	}

	s, err := loadSeries(c)
	if err != nil {
		return err
	}
	r, _ := c.dateRange()
	s = s.Between(r[0], r[1])
	f, err := loadFormula(c.Formula)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		hub *WSHub
		web *WebServer
	)
	if c.Web.Port > 0 {
		hub = NewWSHub()
		go hub.Run(ctx)
		web = NewWebServer(hub)
		port := FindAvailablePort(c.Web.Port)
		go func() {
			if err := web.ListenAndServe(ctx, port); err != nil {
				logx.With("web").WithError(err).Error("dashboard stopped")
			}
		}()
	}

	if useTUI {
		err := tui.Start(ctx, tui.TUIConfig{Title: "chanquant optimize", Mode: o.Mode, Symbol: c.Data.Symbol})
		if err != nil {
			logx.Line("OPT ", "%s, falling back to console", logx.Warn(err.Error()))
		} else {
			defer tui.Stop()
		}
	}

	cache := optimize.NewShardedCache()
	dash := newDashboard(hub, !tui.Running(), o.Mode, c.Data.Symbol)
	dash.cacheSize = cache.Len
	hub.SendStatus("running", fmt.Sprintf("%s %s on %d bars", o.Mode, c.Data.Symbol, s.Len()))

	started := time.Now()
	var (
		report  any
		status  string
		summary string
	)
	switch o.Mode {
	case "split":
		sc := o.Split
		sc.Lookback = c.Lookback
		sc.Workers = o.Workers
		sc.Space.FeeBps = feeOr(sc.Space.FeeBps, c.Backtest.Params.FeeBps)
		sc.Cache = cache
		sc.Observer = dash
		logx.Line("OPT ", "split search: %d candidates, objective %s, %d workers",
			sc.Space.Size(), sc.Objective, sc.Workers)
		rep, err := optimize.OptimizeSplit(ctx, s, f, sc)
		if err != nil {
			hub.SendError(err.Error())
			return err
		}
		printSplitReport(rep, show)
		report, status, summary = rep, rep.Status, splitSummary(rep)

	case "walkforward":
		wc := o.WalkForward
		wc.Lookback = c.Lookback
		wc.Workers = o.Workers
		wc.Cache = cache
		wc.Observer = dash
		dash.folds = wc.Folds
		logx.Line("WF  ", "walk-forward %s vs %s: %d folds × %d val bars, %d+%d candidates",
			wc.A.Name, wc.B.Name, wc.Folds, wc.ValBars, wc.A.Space.Size(), wc.B.Space.Size())
		rep, err := optimize.WalkForwardAB(ctx, s, f, wc)
		if err != nil {
			hub.SendError(err.Error())
			return err
		}
		printABReport(rep)
		report, status, summary = rep, rep.Status, abSummary(rep)
	}

	if err := persistRun(c, "optimize", report, status, summary, s, started); err != nil {
		return err
	}
	if web != nil {
		web.SetReport(report)
		if wait {
			logx.Line("WEB ", "report published; press Ctrl+C to exit")
			<-ctx.Done()
		}
	}
	return nil
}

func feeOr(v, fallback float64) float64 {
	if v > 0 {
		return v
	}
	return fallback
}

func persistRun(c Config, command string, report any, status, summary string, s series.Series, started time.Time) error {
	runID := newRunID()
	sr, err := newSavedReport(runID, command, c.Data.Symbol, c, report)
	if err != nil {
		return err
	}
	path := reportPath(c.Output.Dir, command, runID)
	if err := SaveReport(path, sr); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	elapsed := time.Since(started)
	logx.LogReportSaved(path, runID, elapsed)
	return appendHistory(c.Output.History, RunRecord{
		RunID:     runID,
		Command:   command,
		Symbol:    c.Data.Symbol,
		Mode:      c.Optimize.Mode,
		Status:    status,
		Started:   started,
		ElapsedMs: elapsed.Milliseconds(),
		Bars:      s.Len(),
		Summary:   summary,
		Report:    path,
	})
}

func printSplitReport(rep *optimize.SplitReport, show int) {
	if rep.Status != optimize.StatusOK && len(rep.Grid) == 0 {
		logx.Line("OPT ", "%s: not enough history for a train/validation split", logx.Warn(rep.Status))
		return
	}
	logx.Line("OPT ", "train %s  val %s", rep.Train, rep.Val)

	rows := make([][]string, 0, show)
	for _, cand := range rep.Grid {
		if len(rows) == show {
			break
		}
		val := "-"
		if cand.Validated {
			val = fmt.Sprintf("%.4f", cand.ValObjective)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", cand.Rank),
			cand.Params.String(),
			fmt.Sprintf("%.4f", cand.TrainObjective),
			fmt.Sprintf("%.2f%%", cand.Train.TotalReturnPct),
			fmt.Sprintf("%d", cand.Train.Trades),
			val,
		})
	}
	fmt.Println()
	logx.PrintTable([]string{"RANK", "PARAMS", "TRAIN OBJ", "TRAIN RET", "TRADES", "VAL OBJ"}, rows)
	fmt.Println()

	if rep.Winner == nil {
		logx.Line("OPT ", "%s: no candidate reached the minimum trade count", logx.Warn(optimize.StatusNone))
		return
	}
	w := rep.Winner
	logx.Line("OPT ", "winner %s  val %s obj=%s ret=%s dd=%s trades=%d",
		logx.Highlight(w.Params.String()), rep.Objective, logx.ObjectiveColor(w.ValObjective),
		logx.ReturnColor(w.Val.TotalReturnPct), logx.DDColor(w.Val.MaxDrawdownPct), w.Val.Trades)
}

func splitSummary(rep *optimize.SplitReport) string {
	if rep.Winner == nil {
		return fmt.Sprintf("split %s: no winner", rep.Objective)
	}
	return fmt.Sprintf("split %s: %s val=%.4f", rep.Objective, rep.Winner.Params.String(), rep.Winner.ValObjective)
}

func printABReport(rep *optimize.ABReport) {
	if len(rep.Folds) == 0 {
		logx.Line("WF  ", "%s: not enough history for walk-forward folds", logx.Warn(rep.Status))
		return
	}

	rows := make([][]string, 0, len(rep.Folds))
	for _, fr := range rep.Folds {
		rows = append(rows, []string{
			fmt.Sprintf("%d", fr.Index+1),
			fr.Train.String(),
			fr.Val.String(),
			foldCell(fr.A),
			foldCell(fr.B),
		})
	}
	fmt.Println()
	logx.PrintTable([]string{"FOLD", "TRAIN", "VAL", rep.A.Name, rep.B.Name}, rows)

	rows = rows[:0]
	for _, side := range []optimize.SideSummary{rep.A, rep.B} {
		row := []string{side.Name, string(side.Objective), fmt.Sprintf("%d/%d", side.FoldsWon, len(rep.Folds))}
		for _, o := range optimize.Objectives {
			if v, ok := side.Stability[o]; ok {
				row = append(row, fmt.Sprintf("%.4f", v))
			} else {
				row = append(row, "-")
			}
		}
		repr := "-"
		if side.Representative != nil {
			repr = side.Representative.String()
		}
		rows = append(rows, append(row, repr))
	}
	fmt.Println()
	logx.PrintTable([]string{"SIDE", "OBJECTIVE", "FOLDS", "STAB RETURN", "STAB STABILITY", "STAB BALANCED", "REPRESENTATIVE"}, rows)
	fmt.Println()

	logx.PrintKV("  ",
		"winner_high", string(rep.WinnerHigh),
		"winner_stable", string(rep.WinnerStable),
		"winner_balanced", string(rep.WinnerBalanced),
		"status", statusText(rep.Status),
	)
}

func foldCell(fs optimize.FoldSide) string {
	if fs.Winner == nil {
		return fs.Status
	}
	return fmt.Sprintf("ret=%.2f%% dd=%.2f%% n=%d", fs.Winner.Val.TotalReturnPct, fs.Winner.Val.MaxDrawdownPct, fs.Winner.Val.Trades)
}

func abSummary(rep *optimize.ABReport) string {
	return fmt.Sprintf("walkforward %s vs %s: high=%s stable=%s balanced=%s",
		rep.A.Name, rep.B.Name, rep.WinnerHigh, rep.WinnerStable, rep.WinnerBalanced)
}
