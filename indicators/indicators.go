// Package indicators computes the oscillators and bands used by the scoring
// clauses and by the structural engine's MACD divergence check.
//
// Every function returns a slice aligned with its input. Values before the
// indicator's warm-up are zero; ok reports whether the input was long enough
// for the last value to be meaningful.
package indicators

import (
	"math"

	talib "github.com/markcheno/go-talib"
)

// EMA seeds at src[0] and uses multiplier 2/(period+1), so it has no warm-up gap.
func EMA(src []float64, period int) []float64 {
	dst := make([]float64, len(src))
	if len(src) == 0 || period < 1 {
		return dst
	}
	multiplier := 2.0 / float64(period+1)
	dst[0] = src[0]
	for i := 1; i < len(src); i++ {
		dst[i] = (src[i]-dst[i-1])*multiplier + dst[i-1]
	}
	return dst
}

// MACD returns DIF, DEA and the histogram. The histogram uses the A-share
// convention 2*(DIF-DEA).
func MACD(src []float64, fast, slow, signal int) (dif, dea, hist []float64) {
	fastEMA := EMA(src, fast)
	slowEMA := EMA(src, slow)

	dif = make([]float64, len(src))
	for i := range src {
		dif[i] = fastEMA[i] - slowEMA[i]
	}
	dea = EMA(dif, signal)

	hist = make([]float64, len(src))
	for i := range src {
		hist[i] = 2 * (dif[i] - dea[i])
	}
	return dif, dea, hist
}

// DefaultMACD is MACD(12, 26, 9).
func DefaultMACD(src []float64) (dif, dea, hist []float64) {
	return MACD(src, 12, 26, 9)
}

// KDJ computes the stochastic K, D and J lines with RSV over n bars and the
// 1/m smoothing used by Chinese charting packages. K and D start at 50.
func KDJ(high, low, close []float64, n, m1, m2 int) (k, d, j []float64, ok bool) {
	size := len(close)
	k = make([]float64, size)
	d = make([]float64, size)
	j = make([]float64, size)
	if size < n || n < 1 || m1 < 1 || m2 < 1 || len(high) != size || len(low) != size {
		return k, d, j, false
	}

	prevK, prevD := 50.0, 50.0
	for i := 0; i < size; i++ {
		start := i - n + 1
		if start < 0 {
			start = 0
		}
		hh, ll := high[start], low[start]
		for x := start + 1; x <= i; x++ {
			hh = math.Max(hh, high[x])
			ll = math.Min(ll, low[x])
		}
		rsv := 50.0
		if hh > ll {
			rsv = (close[i] - ll) / (hh - ll) * 100
		}
		prevK = (float64(m1-1)*prevK + rsv) / float64(m1)
		prevD = (float64(m2-1)*prevD + prevK) / float64(m2)
		k[i], d[i] = prevK, prevD
		j[i] = 3*prevK - 2*prevD
	}
	return k, d, j, true
}

// SMA is a simple moving average.
func SMA(src []float64, period int) ([]float64, bool) {
	if period < 1 || len(src) < period {
		return make([]float64, len(src)), false
	}
	return talib.Sma(src, period), true
}

// RSI is Wilder's relative strength index.
func RSI(src []float64, period int) ([]float64, bool) {
	if period < 2 || len(src) <= period {
		return make([]float64, len(src)), false
	}
	return talib.Rsi(src, period), true
}

// Bollinger returns upper, middle and lower bands at k standard deviations.
func Bollinger(src []float64, period int, k float64) (upper, middle, lower []float64, ok bool) {
	if period < 2 || len(src) < period {
		z := make([]float64, len(src))
		return z, z, z, false
	}
	upper, middle, lower = talib.BBands(src, period, k, k, talib.SMA)
	return upper, middle, lower, true
}

// ATR is the average true range.
func ATR(high, low, close []float64, period int) ([]float64, bool) {
	if period < 1 || len(close) <= period || len(high) != len(close) || len(low) != len(close) {
		return make([]float64, len(close)), false
	}
	return talib.Atr(high, low, close, period), true
}

// Last returns the final element, or 0 for an empty slice.
func Last(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return xs[len(xs)-1]
}

// PercentRank returns the percentage of values in xs that are <= v.
func PercentRank(xs []float64, v float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	n := 0
	for _, x := range xs {
		if x <= v {
			n++
		}
	}
	return 100 * float64(n) / float64(len(xs))
}
