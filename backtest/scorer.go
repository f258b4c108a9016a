package backtest

import (
	"sync"
	"time"

	"chanquant/series"
)

// Scorer rates the window ending on its last bar, 0..100.
type Scorer interface {
	Score(window series.Series) int
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(series.Series) int

func (f ScorerFunc) Score(w series.Series) int { return f(w) }

type windowKey struct {
	first time.Time
	last  time.Time
	n     int
}

// MemoScorer caches scores by window identity (first bar, last bar, length).
// It is safe for concurrent use by grid workers.
type MemoScorer struct {
	inner Scorer

	mu    sync.RWMutex
	items map[windowKey]int
}

func NewMemoScorer(inner Scorer) *MemoScorer {
	return &MemoScorer{inner: inner, items: make(map[windowKey]int)}
}

func (m *MemoScorer) Score(w series.Series) int {
	if len(w) == 0 {
		return m.inner.Score(w)
	}
	k := windowKey{first: w[0].Time, last: w[len(w)-1].Time, n: len(w)}

	m.mu.RLock()
	v, ok := m.items[k]
	m.mu.RUnlock()
	if ok {
		return v
	}

	v = m.inner.Score(w)
	m.mu.Lock()
	m.items[k] = v
	m.mu.Unlock()
	return v
}

// Len reports the number of cached windows.
func (m *MemoScorer) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
