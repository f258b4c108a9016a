package series

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Bar is one OHLCV observation. Amount (turnover) is 0 when the source has none.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
	Amount float64   `json:"amount,omitempty"`
}

// Series is a canonical bar sequence: ascending by Time, one bar per Time.
type Series []Bar

// InvalidSeriesError is returned once, at the normalizer boundary, for input
// that downstream stages cannot safely index or do arithmetic on.
type InvalidSeriesError struct {
	Index  int
	Field  string
	Reason string
}

func (e *InvalidSeriesError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid series: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid series: row %d: %s: %s", e.Index, e.Field, e.Reason)
}

// Normalize sorts bars ascending by time and collapses duplicate timestamps,
// keeping the last occurrence in input order. Empty input yields an empty
// series and no error; callers must check Len before use.
func Normalize(bars []Bar) (Series, error) {
	if len(bars) == 0 {
		return Series{}, nil
	}

	for i, b := range bars {
		if b.Time.IsZero() {
			return nil, &InvalidSeriesError{Index: i, Field: "time", Reason: "missing timestamp"}
		}
		for _, f := range [...]struct {
			name string
			v    float64
		}{{"open", b.Open}, {"high", b.High}, {"low", b.Low}, {"close", b.Close}} {
			if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
				return nil, &InvalidSeriesError{Index: i, Field: f.name, Reason: "non-numeric value"}
			}
		}
	}

	out := make(Series, len(bars))
	copy(out, bars)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })

	// Stable sort keeps input order within equal timestamps, so the last
	// element of each run is the last write.
	w := 0
	for i := 0; i < len(out); i++ {
		if w > 0 && out[w-1].Time.Equal(out[i].Time) {
			out[w-1] = out[i]
			continue
		}
		out[w] = out[i]
		w++
	}
	return out[:w], nil
}

// Len returns the number of bars.
func (s Series) Len() int { return len(s) }

// Closes returns the close column.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Close
	}
	return out
}

// Opens returns the open column.
func (s Series) Opens() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Open
	}
	return out
}

// Highs returns the high column.
func (s Series) Highs() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.High
	}
	return out
}

// Lows returns the low column.
func (s Series) Lows() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Low
	}
	return out
}

// Volumes returns the volume column.
func (s Series) Volumes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Volume
	}
	return out
}
