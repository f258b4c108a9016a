package main

import (
	"encoding/json"
	"fmt"
	"os"

	"chanquant/chanlun"
	"chanquant/logx"
	"chanquant/scoring"

	"github.com/spf13/cobra"
)

var chanCmd = &cobra.Command{
	Use:   "chan",
	Short: "Decompose bars into merged bars, fractals, strokes, pivots and buy signals",
	RunE:  runChan,
}

func init() {
	f := chanCmd.Flags()
	f.String("strategy", "", "stroke strategy (greedy|skip)")
	f.Int("fractal-window", 0, "fractal window used for strokes")
	f.Int("display-window", 0, "fractal window used for display")
	f.Int("min-gap", 0, "minimum merged-bar gap between stroke endpoints")
	f.Float64("threshold", 0, "minimum relative price change of a stroke")
	f.Bool("no-macd", false, "skip the MACD divergence check on buy1")
	f.Int("limit", 10, "print at most this many of the latest strokes and pivots")
	f.Bool("score", false, "also score the latest window with the formula")
	f.String("formula", "", "formula YAML for --score")
	f.Bool("json", false, "print the result as JSON")
	rootCmd.AddCommand(chanCmd)
}

type chanOutput struct {
	Symbol  string            `json:"symbol"`
	Summary chanlun.Summary   `json:"summary"`
	Strokes []chanlun.Stroke  `json:"strokes"`
	Pivots  []chanlun.Pivot   `json:"pivots"`
	Signals []chanlun.Signal  `json:"signals"`
	Score   *scoreExplanation `json:"score,omitempty"`
}

type scoreExplanation struct {
	Score     int                          `json:"score"`
	Triggered []string                     `json:"triggered"`
	Penalties []string                     `json:"penalties"`
	Ignored   []string                     `json:"unrecognized"`
	ByCat     map[scoring.Category]float64 `json:"category_scores"`
}

func runChan(cmd *cobra.Command, args []string) error {
	c := cfg
	var strategy string
	flagString(cmd, "strategy", &strategy)
	if strategy != "" {
		c.Chan.Stroke = chanlun.StrokeStrategy(strategy)
	}
	flagInt(cmd, "fractal-window", &c.Chan.FractalWindow)
	flagInt(cmd, "display-window", &c.Chan.DisplayWindow)
	flagInt(cmd, "min-gap", &c.Chan.MinBiGap)
	flagFloat(cmd, "threshold", &c.Chan.BiThreshold)
	noMACD := !c.Chan.UseMACD
	flagBool(cmd, "no-macd", &noMACD)
	c.Chan.UseMACD = !noMACD
	flagString(cmd, "formula", &c.Formula)
	limit, _ := cmd.Flags().GetInt("limit")
	asJSON, _ := cmd.Flags().GetBool("json")
	withScore, _ := cmd.Flags().GetBool("score")

	s, err := loadSeries(c)
	if err != nil {
		return err
	}
	r, err := c.dateRange()
	if err != nil {
		return err
	}
	s = s.Between(r[0], r[1])

	eng, err := chanlun.NewEngine(c.Chan)
	if err != nil {
		return err
	}
	res := eng.Run(s)

	out := chanOutput{
		Symbol:  c.Data.Symbol,
		Summary: res.Summary,
		Strokes: res.Strokes,
		Pivots:  res.Pivots,
		Signals: res.Signals,
	}
	if withScore {
		f, err := loadFormula(c.Formula)
		if err != nil {
			return err
		}
		from := s.Len() - c.Lookback
		if from < 0 {
			from = 0
		}
		out.Score = explain(f.Explain(s[from:]))
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	printChan(out, limit)
	return nil
}

func printChan(out chanOutput, limit int) {
	sum := out.Summary
	logx.Line("CHAN", "%s: %s bars → %s merged, %d fractals, %d strokes, %d pivots, %d signals",
		out.Symbol, logx.FormatNumber(sum.Bars), logx.FormatNumber(sum.MergedBars),
		sum.Fractals, sum.Strokes, sum.Pivots, sum.Signals)

	if n := len(out.Strokes); n > 0 {
		fmt.Println()
		rows := make([][]string, 0, limit)
		for _, st := range tail(out.Strokes, limit) {
			rows = append(rows, []string{
				st.Direction.String(),
				st.Start.Time.Format("2006-01-02"),
				st.End.Time.Format("2006-01-02"),
				fmt.Sprintf("%.2f", st.StartPrice),
				fmt.Sprintf("%.2f", st.EndPrice),
				fmt.Sprintf("%.1f%%", st.Change()*100),
			})
		}
		logx.PrintTable([]string{"DIR", "FROM", "TO", "START", "END", "CHANGE"}, rows)
	}

	if n := len(out.Pivots); n > 0 {
		fmt.Println()
		rows := make([][]string, 0, limit)
		for _, p := range tail(out.Pivots, limit) {
			rows = append(rows, []string{
				fmt.Sprintf("%d", p.StrokeIndex),
				p.StartTime.Format("2006-01-02"),
				p.EndTime.Format("2006-01-02"),
				fmt.Sprintf("%.2f", p.ZD),
				fmt.Sprintf("%.2f", p.ZG),
			})
		}
		logx.PrintTable([]string{"STROKE", "FROM", "TO", "ZD", "ZG"}, rows)
	}

	for _, sig := range out.Signals {
		logx.LogSignalBlock(string(sig.Type), sig.Time, sig.Index, sig.Price, sig.Reason)
	}
	if len(out.Signals) == 0 {
		logx.Line("CHAN", "%s", logx.Dim("no buy signals"))
	}

	if sc := out.Score; sc != nil {
		logx.Line("SCOR", "latest window score %s (%d triggered, %d penalties, %d unrecognized)",
			logx.Highlightf("%d", sc.Score), len(sc.Triggered), len(sc.Penalties), len(sc.Ignored))
		for _, t := range sc.Triggered {
			fmt.Printf("    %s %s\n", logx.Checkmark(true), t)
		}
		for _, p := range sc.Penalties {
			fmt.Printf("    %s %s\n", logx.Checkmark(false), p)
		}
	}
}

func explain(ex scoring.Explanation) *scoreExplanation {
	out := &scoreExplanation{Score: ex.Score, ByCat: ex.CategoryScores}
	for _, c := range ex.Triggered {
		out.Triggered = append(out.Triggered, fmt.Sprintf("[%s] %s (+%g)", c.Category, c.Condition, c.Score))
	}
	for _, c := range ex.PenaltiesTriggered {
		out.Penalties = append(out.Penalties, fmt.Sprintf("%s (-%g)", c.Condition, c.Score))
	}
	for _, c := range ex.Unrecognized {
		out.Ignored = append(out.Ignored, c.Condition)
	}
	return out
}

func tail[T any](xs []T, n int) []T {
	if n <= 0 || len(xs) <= n {
		return xs
	}
	return xs[len(xs)-n:]
}
