package optimize

import (
	"context"
	"fmt"
	"sort"
	"time"

	"chanquant/backtest"
	"chanquant/series"
)

const (
	StatusOK   = "OK"
	StatusNone = "NONE"
)

// Window is an inclusive date range of bars handed to the simulator.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Bars  int       `json:"bars"`
}

func windowOf(s series.Series) Window {
	return Window{Start: s.First(), End: s.Last(), Bars: len(s)}
}

func (w Window) String() string {
	return fmt.Sprintf("%s..%s (%d bars)", w.Start.Format("2006-01-02"), w.End.Format("2006-01-02"), w.Bars)
}

// Candidate is one grid cell. Val fields are only set when Validated.
type Candidate struct {
	Rank           int              `json:"rank"`
	Params         backtest.Params  `json:"params"`
	Train          backtest.Metrics `json:"train"`
	TrainObjective float64          `json:"train_objective"`
	Qualified      bool             `json:"qualified"`
	Validated      bool             `json:"validated"`
	Val            backtest.Metrics `json:"val"`
	ValObjective   float64          `json:"val_objective"`
}

// Config drives a single train/validation split search.
type Config struct {
	Space      Space     `yaml:"space" json:"space"`
	Objective  Objective `yaml:"objective" json:"objective"`
	Lookback   int       `yaml:"lookback" json:"lookback"`
	TrainRatio float64   `yaml:"train_ratio" json:"train_ratio"`
	MinValBars int       `yaml:"min_val_bars" json:"min_val_bars"`
	MinTrades  int       `yaml:"min_trades" json:"min_trades"`
	TopK       int       `yaml:"top_k" json:"top_k"`
	Workers    int       `yaml:"workers" json:"workers"`

	Cache    Cache    `yaml:"-" json:"-"`
	Observer Observer `yaml:"-" json:"-"`
}

func DefaultConfig() Config {
	return Config{
		Space:      AggressiveSpace(),
		Objective:  ObjectiveBalanced,
		Lookback:   backtest.DefaultLookbackDays,
		TrainRatio: 0.7,
		MinValBars: 60,
		MinTrades:  1,
		TopK:       5,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Objective == "" {
		c.Objective = d.Objective
	}
	if c.Lookback <= 0 {
		c.Lookback = d.Lookback
	}
	if c.TrainRatio <= 0 || c.TrainRatio >= 1 {
		c.TrainRatio = d.TrainRatio
	}
	if c.MinValBars <= 0 {
		c.MinValBars = d.MinValBars
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

// SplitReport is the outcome of OptimizeSplit. Grid holds every candidate
// ranked by train objective; Winner is nil and Status NONE when no candidate
// met MinTrades or history was too short.
type SplitReport struct {
	Objective Objective   `json:"objective"`
	Train     Window      `json:"train"`
	Val       Window      `json:"val"`
	Grid      []Candidate `json:"grid"`
	Winner    *Candidate  `json:"winner"`
	Status    string      `json:"status"`
}

// OptimizeSplit grid-searches cfg.Space on the oldest TrainRatio of s, then
// re-runs the TopK qualified candidates on the remaining validation bars and
// keeps the best validation objective.
func OptimizeSplit(ctx context.Context, s series.Series, scorer backtest.Scorer, cfg Config) (*SplitReport, error) {
	cfg = cfg.withDefaults()
	started := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("optimize: %w", err)
	}

	rep := &SplitReport{Objective: cfg.Objective, Grid: []Candidate{}, Status: StatusNone}
	trainBars, ok := splitPoint(len(s), cfg.TrainRatio, cfg.MinValBars, cfg.Lookback+5)
	if !ok {
		cfg.Observer.OnDone(DoneEvent{Mode: "split", Status: rep.Status, Elapsed: time.Since(started)})
		return rep, nil
	}
	rep.Train = windowOf(s[:trainBars])
	rep.Val = windowOf(s[trainBars:])

	ev := newEvaluator(s, scorer, cfg.Lookback, cfg.Cache, cfg.Workers)
	spec := searchSpec{
		space:     cfg.Space,
		objective: cfg.Objective,
		minTrades: cfg.MinTrades,
		topK:      cfg.TopK,
	}
	grid, winner, err := ev.search(ctx, spec, rep.Train, rep.Val, cfg.Observer)
	if err != nil {
		return nil, err
	}
	rep.Grid = grid
	rep.Winner = winner
	if winner != nil {
		rep.Status = StatusOK
	}
	cfg.Observer.OnDone(DoneEvent{Mode: "split", Status: rep.Status, Elapsed: time.Since(started)})
	return rep, nil
}

// splitPoint returns the number of train bars. Validation gets at least
// minVal bars and both sides at least minSide.
func splitPoint(n int, ratio float64, minVal, minSide int) (int, bool) {
	valBars := n - int(float64(n)*ratio)
	if valBars < minVal {
		valBars = minVal
	}
	if valBars < minSide {
		valBars = minSide
	}
	trainBars := n - valBars
	if trainBars < minSide {
		return 0, false
	}
	return trainBars, true
}

func newEvaluator(s series.Series, scorer backtest.Scorer, lookback int, cache Cache, workers int) *evaluator {
	if _, ok := scorer.(*backtest.MemoScorer); !ok {
		scorer = backtest.NewMemoScorer(scorer)
	}
	return &evaluator{series: s, scorer: scorer, lookback: lookback, cache: cache, workers: workers}
}

type searchSpec struct {
	side      string
	fold      int
	space     Space
	objective Objective
	minTrades int
	topK      int
}

// search runs the train grid on train, ranks it and validates the top
// qualified candidates on val.
func (e *evaluator) search(ctx context.Context, spec searchSpec, train, val Window, obs Observer) ([]Candidate, *Candidate, error) {
	params := spec.space.Params()
	trainM, err := e.evalAll(ctx, params, train, func(done, idx int, m backtest.Metrics) {
		obs.OnCandidate(CandidateEvent{
			Side:      spec.side,
			Fold:      spec.fold,
			Phase:     PhaseTrain,
			Done:      done,
			Total:     len(params),
			Params:    params[idx],
			Metrics:   m,
			Objective: spec.objective.Eval(m),
		})
	})
	if err != nil {
		return nil, nil, err
	}

	grid := make([]Candidate, len(params))
	for i, m := range trainM {
		grid[i] = Candidate{
			Params:         params[i],
			Train:          m,
			TrainObjective: spec.objective.Eval(m),
			Qualified:      m.Trades >= spec.minTrades,
		}
	}
	sort.SliceStable(grid, func(i, j int) bool {
		if grid[i].Qualified != grid[j].Qualified {
			return grid[i].Qualified
		}
		return grid[i].TrainObjective > grid[j].TrainObjective
	})
	for i := range grid {
		grid[i].Rank = i + 1
	}

	var top []int
	for i := range grid {
		if !grid[i].Qualified || len(top) == spec.topK {
			break
		}
		top = append(top, i)
	}
	if len(top) == 0 {
		return grid, nil, nil
	}

	topParams := make([]backtest.Params, len(top))
	for k, i := range top {
		topParams[k] = grid[i].Params
	}
	valM, err := e.evalAll(ctx, topParams, val, func(done, idx int, m backtest.Metrics) {
		obs.OnCandidate(CandidateEvent{
			Side:      spec.side,
			Fold:      spec.fold,
			Phase:     PhaseVal,
			Done:      done,
			Total:     len(topParams),
			Params:    topParams[idx],
			Metrics:   m,
			Objective: spec.objective.Eval(m),
		})
	})
	if err != nil {
		return nil, nil, err
	}

	best := -1
	for k, i := range top {
		grid[i].Validated = true
		grid[i].Val = valM[k]
		grid[i].ValObjective = spec.objective.Eval(valM[k])
		if best < 0 || grid[i].ValObjective > grid[best].ValObjective {
			best = i
		}
	}
	winner := grid[best]
	return grid, &winner, nil
}
