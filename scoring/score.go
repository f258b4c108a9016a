package scoring

import (
	"math"
	"sort"

	"chanquant/series"
)

// Clause is one compiled rule.
type Clause struct {
	Category  Category  `json:"category,omitempty"`
	Condition string    `json:"condition"`
	Score     float64   `json:"score"`
	Penalty   bool      `json:"penalty,omitempty"`
	Cond      Condition `json:"-"`
}

func (c Clause) Kind() ClauseKind { return c.Cond.Kind() }

// Formula is a compiled FormulaSpec. It is immutable and safe for concurrent use.
type Formula struct {
	spec      FormulaSpec
	clauses   []Clause
	penalties []Clause
}

// Compile classifies every clause once so scoring never re-parses text.
func Compile(spec FormulaSpec) *Formula {
	f := &Formula{spec: spec}

	cats := make([]Category, 0, len(spec.Categories))
	for c := range spec.Categories {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool {
		oi, oj := categoryOrder(cats[i]), categoryOrder(cats[j])
		if oi != oj {
			return oi < oj
		}
		return cats[i] < cats[j]
	})

	for _, cat := range cats {
		for _, r := range spec.Categories[cat] {
			f.clauses = append(f.clauses, Clause{
				Category:  cat,
				Condition: r.Condition,
				Score:     r.Score,
				Cond:      Classify(r.Condition),
			})
		}
	}
	for _, r := range spec.Penalties {
		f.penalties = append(f.penalties, Clause{
			Condition: r.Condition,
			Score:     math.Abs(r.Score),
			Penalty:   true,
			Cond:      Classify(r.Condition),
		})
	}
	return f
}

func categoryOrder(c Category) int {
	for i, k := range Categories {
		if k == c {
			return i
		}
	}
	return len(Categories)
}

func (f *Formula) Spec() FormulaSpec      { return f.spec }
func (f *Formula) BuyThreshold() float64  { return f.spec.BuyThreshold }
func (f *Formula) SellThreshold() float64 { return f.spec.SellThreshold }

// Clauses returns category clauses followed by penalties.
func (f *Formula) Clauses() []Clause {
	out := make([]Clause, 0, len(f.clauses)+len(f.penalties))
	out = append(out, f.clauses...)
	return append(out, f.penalties...)
}

// Unrecognized lists the clauses the classifier could not map, for auditing
// formula coverage.
func (f *Formula) Unrecognized() []Clause {
	var out []Clause
	for _, c := range f.Clauses() {
		if c.Kind() == Unrecognized {
			out = append(out, c)
		}
	}
	return out
}

// Explanation partitions every clause by outcome on one window.
type Explanation struct {
	Score              int                  `json:"score"`
	Raw                float64              `json:"raw"`
	Penalty            float64              `json:"penalty"`
	Triggered          []Clause             `json:"triggered"`
	NotTriggered       []Clause             `json:"not_triggered"`
	Unrecognized       []Clause             `json:"unrecognized"`
	PenaltiesTriggered []Clause             `json:"penalties_triggered"`
	CategoryScores     map[Category]float64 `json:"category_scores"`
}

// Score returns the bounded integer score for the window.
func (f *Formula) Score(bars series.Series) int {
	return f.Explain(bars).Score
}

// Explain scores the window and reports which clauses fired. A clause whose
// indicator cannot be computed on the window counts as not triggered.
func (f *Formula) Explain(bars series.Series) Explanation {
	w := newWindow(bars)
	ex := Explanation{CategoryScores: make(map[Category]float64)}

	for _, c := range f.clauses {
		if c.Kind() == Unrecognized {
			ex.Unrecognized = append(ex.Unrecognized, c)
			continue
		}
		if hit, ok := c.Cond.eval(w); hit && ok {
			ex.Triggered = append(ex.Triggered, c)
			ex.Raw += c.Score
			ex.CategoryScores[c.Category] += c.Score
		} else {
			ex.NotTriggered = append(ex.NotTriggered, c)
		}
	}
	for _, c := range f.penalties {
		if c.Kind() == Unrecognized {
			ex.Unrecognized = append(ex.Unrecognized, c)
			continue
		}
		if hit, ok := c.Cond.eval(w); hit && ok {
			ex.PenaltiesTriggered = append(ex.PenaltiesTriggered, c)
			ex.Penalty += c.Score
		} else {
			ex.NotTriggered = append(ex.NotTriggered, c)
		}
	}

	ex.Score = clampScore(ex.Raw - ex.Penalty)
	return ex
}

func clampScore(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	r := math.Round(v)
	if r < 0 {
		return 0
	}
	if r > 100 {
		return 100
	}
	return int(r)
}
