// Package chanlun reduces a bar series to Chan-theory structure: merged bars,
// fractals, strokes (bi), pivots (zhongshu) and buy-point signals.
//
// Every stage consumes the full output of the previous one. Empty or short
// input yields empty output at every stage; nothing here returns an error.
package chanlun

import (
	"time"
)

type Direction int

const (
	Up Direction = iota
	Down
)

func (d Direction) String() string {
	if d == Down {
		return "down"
	}
	return "up"
}

// MergedBar is one bar after containment resolution. Index is its position
// in the merged sequence; SourceStart/SourceEnd address the original bars.
type MergedBar struct {
	Index       int
	Time        time.Time
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64
	Direction   Direction
	SourceStart int
	SourceEnd   int
}

type FractalKind int

const (
	Top FractalKind = iota
	Bottom
)

func (k FractalKind) String() string {
	if k == Bottom {
		return "bottom"
	}
	return "top"
}

type Fractal struct {
	Index int // merged-bar index
	Kind  FractalKind
	High  float64
	Low   float64
	Time  time.Time
}

// Price is the extreme that defines the fractal: high for tops, low for bottoms.
func (f Fractal) Price() float64 {
	if f.Kind == Top {
		return f.High
	}
	return f.Low
}

// Stroke connects two alternating fractals. High and Low are the realized
// range over every merged bar in the span, not just the endpoints.
type Stroke struct {
	Direction  Direction
	Start      Fractal
	End        Fractal
	StartPrice float64
	EndPrice   float64
	High       float64
	Low        float64
}

// Change returns |end-start|/start.
func (s Stroke) Change() float64 {
	if s.StartPrice == 0 {
		return 0
	}
	d := s.EndPrice - s.StartPrice
	if d < 0 {
		d = -d
	}
	return d / s.StartPrice
}

// Pivot is the overlap of three consecutive strokes. StrokeIndex is the
// position of the first stroke of the triple.
type Pivot struct {
	StrokeIndex int
	StartIndex  int
	EndIndex    int
	ZG          float64
	ZD          float64
	StartTime   time.Time
	EndTime     time.Time
}

type SignalType string

const (
	Buy1 SignalType = "buy1"
	Buy2 SignalType = "buy2"
	Buy3 SignalType = "buy3"
)

type Signal struct {
	Type   SignalType
	Time   time.Time
	Index  int // merged-bar index of the trigger
	Price  float64
	Reason string
}
