package scoring

import (
	"math"

	"chanquant/indicators"
	"chanquant/series"
)

// crossLookback is how many trailing bars a "cross" clause may look back.
const crossLookback = 3

// window caches indicator columns for one evaluation.
type window struct {
	bars    series.Series
	closes  []float64
	highs   []float64
	lows    []float64
	volumes []float64

	sma map[int][]float64

	macdDone       bool
	dif, dea, hist []float64

	kdjDone bool
	kdjOK   bool
	k, d, j []float64
}

func newWindow(bars series.Series) *window {
	return &window{
		bars:    bars,
		closes:  bars.Closes(),
		highs:   bars.Highs(),
		lows:    bars.Lows(),
		volumes: bars.Volumes(),
		sma:     make(map[int][]float64),
	}
}

func (w *window) n() int { return len(w.bars) }

func (w *window) ma(period int) ([]float64, bool) {
	if v, ok := w.sma[period]; ok {
		return v, v != nil
	}
	v, ok := indicators.SMA(w.closes, period)
	if !ok {
		v = nil
	}
	w.sma[period] = v
	return v, ok
}

func (w *window) macd() (dif, dea, hist []float64, ok bool) {
	if w.n() < 2 {
		return nil, nil, nil, false
	}
	if !w.macdDone {
		w.dif, w.dea, w.hist = indicators.DefaultMACD(w.closes)
		w.macdDone = true
	}
	return w.dif, w.dea, w.hist, true
}

func (w *window) kdj() (k, d, j []float64, ok bool) {
	if !w.kdjDone {
		w.k, w.d, w.j, w.kdjOK = indicators.KDJ(w.highs, w.lows, w.closes, 9, 3, 3)
		w.kdjDone = true
	}
	return w.k, w.d, w.j, w.kdjOK
}

// crossedAbove reports whether a moved from <= b to > b within the last
// crossLookback bars. from is the first index where both series are valid.
func crossedAbove(a, b []float64, from int) bool {
	n := len(a)
	for t := n - 1; t >= n-crossLookback && t-1 >= from; t-- {
		if a[t-1] <= b[t-1] && a[t] > b[t] {
			return true
		}
	}
	return false
}

func (c MovingAverageCrossCond) eval(w *window) (bool, bool) {
	if len(c.Periods) == 0 || w.n() == 0 {
		return false, false
	}
	last := w.n() - 1
	switch c.Relation {
	case PriceAbove, PriceBelow:
		ma, ok := w.ma(c.Periods[0])
		if !ok {
			return false, false
		}
		if c.Relation == PriceAbove {
			return w.closes[last] > ma[last], true
		}
		return w.closes[last] < ma[last], true

	case FastAboveSlow, FastBelowSlow, CrossUp, CrossDown:
		if len(c.Periods) < 2 {
			return false, false
		}
		fast, ok1 := w.ma(c.Periods[0])
		slow, ok2 := w.ma(c.Periods[1])
		if !ok1 || !ok2 {
			return false, false
		}
		from := max(c.Periods[0], c.Periods[1]) - 1
		switch c.Relation {
		case FastAboveSlow:
			return fast[last] > slow[last], true
		case FastBelowSlow:
			return fast[last] < slow[last], true
		case CrossUp:
			if last-1 < from {
				return false, false
			}
			return crossedAbove(fast, slow, from), true
		default:
			if last-1 < from {
				return false, false
			}
			return crossedAbove(slow, fast, from), true
		}

	case BullishAlignment, BearishAlignment:
		vals := make([]float64, len(c.Periods))
		for i, p := range c.Periods {
			ma, ok := w.ma(p)
			if !ok {
				return false, false
			}
			vals[i] = ma[last]
		}
		for i := 1; i < len(vals); i++ {
			if c.Relation == BullishAlignment && !(vals[i-1] > vals[i]) {
				return false, true
			}
			if c.Relation == BearishAlignment && !(vals[i-1] < vals[i]) {
				return false, true
			}
		}
		return true, true
	}
	return false, false
}

func (c MacdCrossCond) eval(w *window) (bool, bool) {
	dif, dea, hist, ok := w.macd()
	if !ok {
		return false, false
	}
	last := len(dif) - 1
	switch c.Signal {
	case MacdGoldenCross:
		return crossedAbove(dif, dea, 0), true
	case MacdDeadCross:
		return crossedAbove(dea, dif, 0), true
	case MacdHistPositive:
		return hist[last] > 0, true
	case MacdHistNegative:
		return hist[last] < 0, true
	case MacdAboveZero:
		return dif[last] > 0, true
	case MacdBelowZero:
		return dif[last] < 0, true
	}
	return false, false
}

func (c KdjBandCond) eval(w *window) (bool, bool) {
	k, d, j, ok := w.kdj()
	if !ok {
		return false, false
	}
	if c.CrossUp {
		return crossedAbove(k, d, 0), true
	}
	line := j
	switch c.Line {
	case 'K':
		line = k
	case 'D':
		line = d
	}
	return c.Op.apply(indicators.Last(line), c.Value), true
}

func (c RsiBandCond) eval(w *window) (bool, bool) {
	rsi, ok := indicators.RSI(w.closes, c.Period)
	if !ok {
		return false, false
	}
	return c.Op.apply(indicators.Last(rsi), c.Value), true
}

// percentB is the close's position inside the 20-period 2-sigma band.
func percentB(w *window) (pb, middle float64, ok bool) {
	upper, mid, lower, ok := indicators.Bollinger(w.closes, 20, 2)
	if !ok {
		return 0, 0, false
	}
	u, l := indicators.Last(upper), indicators.Last(lower)
	last := w.closes[len(w.closes)-1]
	if u <= l {
		return 0.5, indicators.Last(mid), true
	}
	return (last - l) / (u - l), indicators.Last(mid), true
}

func (c BollingerPositionCond) eval(w *window) (bool, bool) {
	pb, mid, ok := percentB(w)
	if !ok {
		return false, false
	}
	last := w.closes[len(w.closes)-1]
	switch c.Band {
	case NearLower:
		return pb <= 0.2, true
	case NearUpper:
		return pb >= 0.8, true
	case AboveMiddle:
		return last > mid, true
	default:
		return last < mid, true
	}
}

// volumeRatio compares the last bar's volume with the mean of the period
// bars before it.
func volumeRatio(w *window, period int) (float64, bool) {
	n := w.n()
	if period < 1 || n < period+1 {
		return 0, false
	}
	sum := 0.0
	for _, v := range w.volumes[n-1-period : n-1] {
		sum += v
	}
	avg := sum / float64(period)
	if avg <= 0 {
		return 0, false
	}
	return w.volumes[n-1] / avg, true
}

func (c VolumeRatioCond) eval(w *window) (bool, bool) {
	r, ok := volumeRatio(w, c.Period)
	if !ok {
		return false, false
	}
	return c.Op.apply(r, c.Value), true
}

// volatilityPercentile ranks the last ATR(14)/close reading against every
// valid reading in the window.
func volatilityPercentile(w *window) (float64, bool) {
	const period = 14
	atr, ok := indicators.ATR(w.highs, w.lows, w.closes, period)
	if !ok {
		return 0, false
	}
	var pct []float64
	for i := period; i < len(atr); i++ {
		if w.closes[i] > 0 {
			pct = append(pct, atr[i]/w.closes[i])
		}
	}
	if len(pct) < 2 {
		return 0, false
	}
	return indicators.PercentRank(pct, pct[len(pct)-1]), true
}

func (c VolatilityPercentileCond) eval(w *window) (bool, bool) {
	p, ok := volatilityPercentile(w)
	if !ok {
		return false, false
	}
	return c.Op.apply(p, c.Value), true
}

func (c CandleShapeCond) eval(w *window) (bool, bool) {
	n := w.n()
	if n == 0 {
		return false, false
	}
	b := w.bars[n-1]
	rng := b.High - b.Low
	body := math.Abs(b.Close - b.Open)
	upper := b.High - math.Max(b.Open, b.Close)
	lower := math.Min(b.Open, b.Close) - b.Low

	prevClose := 0.0
	if n >= 2 {
		prevClose = w.bars[n-2].Close
	}
	change := func() (float64, bool) {
		if prevClose <= 0 {
			return 0, false
		}
		return b.Close/prevClose - 1, true
	}

	switch c.Shape {
	case LongUpperShadow:
		return rng > 0 && upper >= 2*body && upper/rng >= 0.5, true
	case LongLowerShadow:
		return rng > 0 && lower >= 2*body && lower/rng >= 0.5, true
	case Doji:
		return rng > 0 && body/rng <= 0.1, true
	case BigBearish:
		if b.Open <= 0 {
			return false, false
		}
		return b.Close < b.Open && (b.Open-b.Close)/b.Open >= 0.04, true
	case BigBullish:
		if b.Open <= 0 {
			return false, false
		}
		return b.Close > b.Open && (b.Close-b.Open)/b.Open >= 0.04, true
	case LimitDown:
		ch, ok := change()
		return ok && ch <= -0.095, ok
	case LimitUp:
		ch, ok := change()
		return ok && ch >= 0.095, ok
	case GapDown:
		if n < 2 {
			return false, false
		}
		return b.High < w.bars[n-2].Low, true
	}
	return false, false
}
