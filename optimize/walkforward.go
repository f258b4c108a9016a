package optimize

import (
	"context"
	"fmt"
	"math"
	"time"

	"chanquant/backtest"
	"chanquant/series"
	"chanquant/stats"
)

// walkForwardTail is the history beyond MinTrainBars needed before any fold
// is attempted.
const walkForwardTail = 80

// Verdict names the side that won an A/B comparison.
type Verdict string

const (
	VerdictA    Verdict = "A"
	VerdictB    Verdict = "B"
	VerdictTie  Verdict = "TIE"
	VerdictNone Verdict = "NONE"
)

// Side is one independently configured candidate space.
type Side struct {
	Name      string    `yaml:"name" json:"name"`
	Space     Space     `yaml:"space" json:"space"`
	Objective Objective `yaml:"objective" json:"objective"`
}

// WFConfig holds walk-forward A/B configuration
type WFConfig struct {
	A            Side `yaml:"a" json:"a"`
	B            Side `yaml:"b" json:"b"`
	Lookback     int  `yaml:"lookback" json:"lookback"`
	Folds        int  `yaml:"folds" json:"folds"`
	ValBars      int  `yaml:"val_bars" json:"val_bars"`
	MinTrainBars int  `yaml:"min_train_bars" json:"min_train_bars"`
	MinTrades    int  `yaml:"min_trades" json:"min_trades"`
	TopK         int  `yaml:"top_k" json:"top_k"`
	Workers      int  `yaml:"workers" json:"workers"`

	Cache    Cache    `yaml:"-" json:"-"`
	Observer Observer `yaml:"-" json:"-"`
}

func DefaultWFConfig() WFConfig {
	return WFConfig{
		A:            Side{Name: "aggressive", Space: AggressiveSpace(), Objective: ObjectiveReturn},
		B:            Side{Name: "conservative", Space: ConservativeSpace(), Objective: ObjectiveStability},
		Lookback:     backtest.DefaultLookbackDays,
		Folds:        4,
		ValBars:      60,
		MinTrainBars: 120,
		MinTrades:    1,
		TopK:         5,
	}
}

func (c WFConfig) withDefaults() WFConfig {
	d := DefaultWFConfig()
	if c.A.Name == "" {
		c.A.Name = "A"
	}
	if c.B.Name == "" {
		c.B.Name = "B"
	}
	if c.A.Objective == "" {
		c.A.Objective = d.A.Objective
	}
	if c.B.Objective == "" {
		c.B.Objective = d.B.Objective
	}
	if c.Lookback <= 0 {
		c.Lookback = d.Lookback
	}
	if c.Folds <= 0 {
		c.Folds = d.Folds
	}
	if c.ValBars <= 0 {
		c.ValBars = d.ValBars
	}
	if c.ValBars < c.Lookback+5 {
		c.ValBars = c.Lookback + 5
	}
	if c.MinTrainBars <= 0 {
		c.MinTrainBars = d.MinTrainBars
	}
	if c.MinTrades < 0 {
		c.MinTrades = 0
	}
	if c.TopK <= 0 {
		c.TopK = d.TopK
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers()
	}
	if c.Cache == nil {
		c.Cache = NewShardedCache()
	}
	if c.Observer == nil {
		c.Observer = NopObserver{}
	}
	return c
}

// FoldSide is one side's outcome on one fold. Scores holds the winner's
// validation metrics under every objective.
type FoldSide struct {
	Winner *Candidate            `json:"winner"`
	Scores map[Objective]float64 `json:"scores,omitempty"`
	Status string                `json:"status"`
}

type FoldReport struct {
	Index int      `json:"index"`
	Train Window   `json:"train"`
	Val   Window   `json:"val"`
	A     FoldSide `json:"a"`
	B     FoldSide `json:"b"`
}

// SideSummary aggregates one side across folds. Stability has an entry per
// objective only when at least one fold produced a winner.
type SideSummary struct {
	Name           string                `json:"name"`
	Objective      Objective             `json:"objective"`
	Stability      map[Objective]float64 `json:"stability"`
	FoldsWon       int                   `json:"folds_with_winner"`
	Representative *backtest.Params      `json:"representative"`
}

type ABReport struct {
	Folds          []FoldReport `json:"folds"`
	A              SideSummary  `json:"a"`
	B              SideSummary  `json:"b"`
	WinnerHigh     Verdict      `json:"winner_high"`
	WinnerStable   Verdict      `json:"winner_stable"`
	WinnerBalanced Verdict      `json:"winner_balanced"`
	Status         string       `json:"status"`
}

func emptyABReport(c WFConfig) *ABReport {
	return &ABReport{
		Folds:          []FoldReport{},
		A:              SideSummary{Name: c.A.Name, Objective: c.A.Objective, Stability: map[Objective]float64{}},
		B:              SideSummary{Name: c.B.Name, Objective: c.B.Objective, Stability: map[Objective]float64{}},
		WinnerHigh:     VerdictNone,
		WinnerStable:   VerdictNone,
		WinnerBalanced: VerdictNone,
		Status:         StatusNone,
	}
}

type foldBounds struct {
	valStart int // also the exclusive train end
	valEnd   int // exclusive
}

// buildFolds lays out up to folds validation windows of valBars ending at
// the last bar, oldest first. Training always starts at bar 0.
func buildFolds(n, folds, valBars, minTrainBars int) []foldBounds {
	if valBars <= 0 {
		return nil
	}
	if fit := (n - minTrainBars) / valBars; folds > fit {
		folds = fit
	}
	out := make([]foldBounds, 0, folds)
	for f := 0; f < folds; f++ {
		valEnd := n - (folds-1-f)*valBars
		out = append(out, foldBounds{valStart: valEnd - valBars, valEnd: valEnd})
	}
	return out
}

// WalkForwardAB runs both sides through the same growing-train folds and
// compares them by stability = median - 0.5*std of fold validation
// objectives. Short histories give an empty report with NONE verdicts.
func WalkForwardAB(ctx context.Context, s series.Series, scorer backtest.Scorer, cfg WFConfig) (*ABReport, error) {
	cfg = cfg.withDefaults()
	started := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("optimize: %w", err)
	}

	rep := emptyABReport(cfg)
	if len(s) < cfg.MinTrainBars+walkForwardTail {
		cfg.Observer.OnDone(DoneEvent{Mode: "walkforward", Status: rep.Status, Elapsed: time.Since(started)})
		return rep, nil
	}
	bounds := buildFolds(len(s), cfg.Folds, cfg.ValBars, cfg.MinTrainBars)
	ev := newEvaluator(s, scorer, cfg.Lookback, cfg.Cache, cfg.Workers)

	for f, b := range bounds {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("optimize: fold %d: %w", f, err)
		}
		fr := FoldReport{
			Index: f,
			Train: windowOf(s[:b.valStart]),
			Val:   windowOf(s[b.valStart:b.valEnd]),
		}
		for _, side := range []struct {
			cfg Side
			out *FoldSide
		}{{cfg.A, &fr.A}, {cfg.B, &fr.B}} {
			spec := searchSpec{
				side:      side.cfg.Name,
				fold:      f,
				space:     side.cfg.Space,
				objective: side.cfg.Objective,
				minTrades: cfg.MinTrades,
				topK:      cfg.TopK,
			}
			_, winner, err := ev.search(ctx, spec, fr.Train, fr.Val, cfg.Observer)
			if err != nil {
				return nil, err
			}
			*side.out = foldSide(winner)
			cfg.Observer.OnFold(FoldEvent{
				Side:   side.cfg.Name,
				Fold:   f,
				Folds:  len(bounds),
				Train:  fr.Train,
				Val:    fr.Val,
				Winner: winner,
			})
		}
		rep.Folds = append(rep.Folds, fr)
	}

	rep.A = summarize(cfg.A, rep.Folds, func(fr FoldReport) FoldSide { return fr.A })
	rep.B = summarize(cfg.B, rep.Folds, func(fr FoldReport) FoldSide { return fr.B })
	rep.WinnerHigh = verdict(rep.A.Stability, rep.B.Stability, ObjectiveReturn)
	rep.WinnerStable = verdict(rep.A.Stability, rep.B.Stability, ObjectiveStability)
	rep.WinnerBalanced = verdict(rep.A.Stability, rep.B.Stability, ObjectiveBalanced)
	if rep.A.FoldsWon > 0 || rep.B.FoldsWon > 0 {
		rep.Status = StatusOK
	}
	cfg.Observer.OnDone(DoneEvent{Mode: "walkforward", Status: rep.Status, Elapsed: time.Since(started)})
	return rep, nil
}

func foldSide(winner *Candidate) FoldSide {
	if winner == nil {
		return FoldSide{Status: StatusNone}
	}
	scores := make(map[Objective]float64, len(Objectives))
	for _, o := range Objectives {
		scores[o] = o.Eval(winner.Val)
	}
	return FoldSide{Winner: winner, Scores: scores, Status: StatusOK}
}

func summarize(side Side, folds []FoldReport, pick func(FoldReport) FoldSide) SideSummary {
	sum := SideSummary{Name: side.Name, Objective: side.Objective, Stability: map[Objective]float64{}}
	vals := make(map[Objective][]float64, len(Objectives))
	bestBalanced := math.Inf(-1)
	for _, fr := range folds {
		fs := pick(fr)
		if fs.Winner == nil {
			continue
		}
		sum.FoldsWon++
		for _, o := range Objectives {
			vals[o] = append(vals[o], fs.Scores[o])
		}
		if b := fs.Scores[ObjectiveBalanced]; b > bestBalanced {
			bestBalanced = b
			p := fs.Winner.Params
			sum.Representative = &p
		}
	}
	for o, v := range vals {
		sum.Stability[o] = stability(v)
	}
	return sum
}

// stability is the median minus half the population std.
func stability(vals []float64) float64 {
	return stats.Median(vals) - 0.5*stats.PopStd(vals)
}

const verdictTolerance = 1e-9

func verdict(a, b map[Objective]float64, o Objective) Verdict {
	av, aok := a[o]
	bv, bok := b[o]
	switch {
	case !aok && !bok:
		return VerdictNone
	case !bok:
		return VerdictA
	case !aok:
		return VerdictB
	case math.Abs(av-bv) <= verdictTolerance:
		return VerdictTie
	case av > bv:
		return VerdictA
	default:
		return VerdictB
	}
}
