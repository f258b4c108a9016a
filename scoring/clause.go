package scoring

import (
	"regexp"
	"strconv"
	"strings"
)

type ClauseKind int

const (
	Unrecognized ClauseKind = iota
	MovingAverageCross
	MacdCross
	KdjBand
	BollingerPosition
	VolumeRatio
	VolatilityPercentile
	RsiBand
	CandleShapePenalty
)

var kindNames = [...]string{
	"unrecognized", "ma", "macd", "kdj", "boll", "volume", "volatility", "rsi", "candle",
}

func (k ClauseKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Condition is the closed set of clause variants the classifier produces.
// eval reports whether the clause fired and whether its indicator could be
// computed on the window at all.
type Condition interface {
	Kind() ClauseKind
	eval(w *window) (triggered, ok bool)
}

// Op is a numeric comparison parsed from clause text.
type Op int

const (
	OpLT Op = iota
	OpLE
	OpGT
	OpGE
)

func (o Op) apply(v, x float64) bool {
	switch o {
	case OpLT:
		return v < x
	case OpLE:
		return v <= x
	case OpGT:
		return v > x
	default:
		return v >= x
	}
}

type MARelation int

const (
	PriceAbove MARelation = iota
	PriceBelow
	FastAboveSlow
	FastBelowSlow
	CrossUp
	CrossDown
	BullishAlignment
	BearishAlignment
)

type MovingAverageCrossCond struct {
	Relation MARelation
	Periods  []int // one period for price relations, two for crosses, two or more for alignments
}

type MacdSignal int

const (
	MacdGoldenCross MacdSignal = iota
	MacdDeadCross
	MacdHistPositive
	MacdHistNegative
	MacdAboveZero
	MacdBelowZero
)

type MacdCrossCond struct {
	Signal MacdSignal
}

type KdjBandCond struct {
	Line    byte // 'K', 'D' or 'J'
	Op      Op
	Value   float64
	CrossUp bool // K crossing above D; Op/Value unused
}

type BollBand int

const (
	NearLower BollBand = iota
	NearUpper
	AboveMiddle
	BelowMiddle
)

type BollingerPositionCond struct {
	Band BollBand
}

type VolumeRatioCond struct {
	Period int // average volume lookback, excluding the last bar
	Op     Op
	Value  float64
}

type VolatilityPercentileCond struct {
	Op    Op
	Value float64 // percentile 0..100
}

type RsiBandCond struct {
	Period int
	Op     Op
	Value  float64
}

type CandleShape int

const (
	LongUpperShadow CandleShape = iota
	LongLowerShadow
	BigBearish
	BigBullish
	Doji
	LimitDown
	LimitUp
	GapDown
)

type CandleShapeCond struct {
	Shape CandleShape
}

type UnrecognizedCond struct{}

func (MovingAverageCrossCond) Kind() ClauseKind   { return MovingAverageCross }
func (MacdCrossCond) Kind() ClauseKind            { return MacdCross }
func (KdjBandCond) Kind() ClauseKind              { return KdjBand }
func (BollingerPositionCond) Kind() ClauseKind    { return BollingerPosition }
func (VolumeRatioCond) Kind() ClauseKind          { return VolumeRatio }
func (VolatilityPercentileCond) Kind() ClauseKind { return VolatilityPercentile }
func (RsiBandCond) Kind() ClauseKind              { return RsiBand }
func (CandleShapeCond) Kind() ClauseKind          { return CandleShapePenalty }
func (UnrecognizedCond) Kind() ClauseKind         { return Unrecognized }

func (UnrecognizedCond) eval(*window) (bool, bool) { return false, false }

var (
	reCompare = regexp.MustCompile(`(<=|>=|≤|≥|<|>|小于等于|大于等于|不低于|不高于|小于|大于|低于|高于|超过|不足|below|above|under|over|less than|greater than)\s*(-?\d+(?:\.\d+)?)`)
	reTimes   = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:倍|x\b|times)`)
	reMA      = regexp.MustCompile(`(?:ma|均线|ema)\s*\(?(\d+)\)?|(\d+)\s*(?:日|天|day)\s*(?:均线|线|ma|moving average)?`)
	reRSIPer  = regexp.MustCompile(`rsi\s*\(?(\d+)\)?`)
	reKDJLine = regexp.MustCompile(`(?:^|[^a-z])([kdj])\s*(?:值|线)?\s*(?:<=|>=|<|>|≤|≥|小于|大于|低于|高于)`)
	reVolPer  = regexp.MustCompile(`(\d+)\s*(?:日|天|day)\s*(?:均量|平均成交量|average volume)`)
)

func containsAny(s string, keys ...string) bool {
	for _, k := range keys {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// parseCompare extracts the first "<op> <number>" pair.
func parseCompare(s string) (Op, float64, bool) {
	m := reCompare.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, false
	}
	v, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, 0, false
	}
	switch m[1] {
	case "<", "小于", "低于", "不足", "below", "under", "less than":
		return OpLT, v, true
	case "<=", "≤", "小于等于", "不高于":
		return OpLE, v, true
	case ">", "大于", "高于", "超过", "above", "over", "greater than":
		return OpGT, v, true
	default:
		return OpGE, v, true
	}
}

// Classify maps free-text condition wording to a clause variant. Matching is
// keyword based and case-insensitive; anything it cannot pin down becomes
// UnrecognizedCond.
func Classify(text string) Condition {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return UnrecognizedCond{}
	}
	for _, f := range []func(string) (Condition, bool){
		classifyCandle,
		classifyMACD,
		classifyKDJ,
		classifyRSI,
		classifyBoll,
		classifyVolatility,
		classifyVolume,
		classifyMA,
	} {
		if c, ok := f(s); ok {
			return c
		}
	}
	return UnrecognizedCond{}
}

func classifyCandle(s string) (Condition, bool) {
	switch {
	case containsAny(s, "上影线", "upper shadow"):
		return CandleShapeCond{LongUpperShadow}, true
	case containsAny(s, "下影线", "lower shadow"):
		return CandleShapeCond{LongLowerShadow}, true
	case containsAny(s, "大阴线", "长阴", "big bearish", "long black", "large bearish"):
		return CandleShapeCond{BigBearish}, true
	case containsAny(s, "大阳线", "长阳", "big bullish", "long white", "large bullish"):
		return CandleShapeCond{BigBullish}, true
	case containsAny(s, "十字星", "doji"):
		return CandleShapeCond{Doji}, true
	case containsAny(s, "跌停", "limit down", "limit-down"):
		return CandleShapeCond{LimitDown}, true
	case containsAny(s, "涨停", "limit up", "limit-up"):
		return CandleShapeCond{LimitUp}, true
	case containsAny(s, "跳空低开", "向下跳空", "gap down", "gap-down"):
		return CandleShapeCond{GapDown}, true
	}
	return nil, false
}

func classifyMACD(s string) (Condition, bool) {
	if !strings.Contains(s, "macd") {
		return nil, false
	}
	switch {
	case containsAny(s, "金叉", "golden", "上穿", "cross above", "crosses above", "bullish cross"):
		return MacdCrossCond{MacdGoldenCross}, true
	case containsAny(s, "死叉", "dead cross", "death cross", "下穿", "cross below", "crosses below", "bearish cross"):
		return MacdCrossCond{MacdDeadCross}, true
	case containsAny(s, "红柱", "histogram positive", "positive histogram", "柱线为正"):
		return MacdCrossCond{MacdHistPositive}, true
	case containsAny(s, "绿柱", "histogram negative", "negative histogram", "柱线为负"):
		return MacdCrossCond{MacdHistNegative}, true
	case containsAny(s, "零轴上", "零轴之上", "above zero"):
		return MacdCrossCond{MacdAboveZero}, true
	case containsAny(s, "零轴下", "零轴之下", "below zero"):
		return MacdCrossCond{MacdBelowZero}, true
	}
	return UnrecognizedCond{}, true
}

func classifyKDJ(s string) (Condition, bool) {
	if !containsAny(s, "kdj", "j值", "k值", "d值", "j线", "k线与d线") {
		return nil, false
	}
	line := byte('J')
	if m := reKDJLine.FindStringSubmatch(s); m != nil {
		line = m[1][0] - 'a' + 'A'
	}
	if containsAny(s, "金叉", "golden", "上穿", "cross above") {
		return KdjBandCond{CrossUp: true}, true
	}
	if op, v, ok := parseCompare(s); ok {
		return KdjBandCond{Line: line, Op: op, Value: v}, true
	}
	switch {
	case containsAny(s, "超卖", "oversold", "低位"):
		return KdjBandCond{Line: line, Op: OpLT, Value: 20}, true
	case containsAny(s, "超买", "overbought", "高位"):
		return KdjBandCond{Line: line, Op: OpGT, Value: 80}, true
	}
	return UnrecognizedCond{}, true
}

func classifyRSI(s string) (Condition, bool) {
	if !strings.Contains(s, "rsi") {
		return nil, false
	}
	period := 14
	rest := s
	if m := reRSIPer.FindStringSubmatchIndex(s); m != nil && m[2] >= 0 {
		period, _ = strconv.Atoi(s[m[2]:m[3]])
		rest = s[m[1]:]
	}
	if op, v, ok := parseCompare(rest); ok {
		return RsiBandCond{Period: period, Op: op, Value: v}, true
	}
	switch {
	case containsAny(s, "超卖", "oversold"):
		return RsiBandCond{Period: period, Op: OpLT, Value: 30}, true
	case containsAny(s, "超买", "overbought"):
		return RsiBandCond{Period: period, Op: OpGT, Value: 70}, true
	case containsAny(s, "强势", "strong"):
		return RsiBandCond{Period: period, Op: OpGT, Value: 50}, true
	case containsAny(s, "弱势", "weak"):
		return RsiBandCond{Period: period, Op: OpLT, Value: 50}, true
	}
	return UnrecognizedCond{}, true
}

func classifyBoll(s string) (Condition, bool) {
	if !containsAny(s, "布林", "boll") {
		return nil, false
	}
	switch {
	case containsAny(s, "下轨", "lower"):
		return BollingerPositionCond{NearLower}, true
	case containsAny(s, "上轨", "upper"):
		return BollingerPositionCond{NearUpper}, true
	case containsAny(s, "中轨", "middle", "mid"):
		if containsAny(s, "跌破", "下方", "之下", "below", "under") {
			return BollingerPositionCond{BelowMiddle}, true
		}
		return BollingerPositionCond{AboveMiddle}, true
	}
	return UnrecognizedCond{}, true
}

func classifyVolatility(s string) (Condition, bool) {
	if !containsAny(s, "波动率", "波动", "volatility", "atr") {
		return nil, false
	}
	if op, v, ok := parseCompare(s); ok {
		return VolatilityPercentileCond{Op: op, Value: v}, true
	}
	switch {
	case containsAny(s, "低", "收敛", "low", "contract"):
		return VolatilityPercentileCond{Op: OpLE, Value: 30}, true
	case containsAny(s, "高", "放大", "high", "expand"):
		return VolatilityPercentileCond{Op: OpGE, Value: 70}, true
	}
	return UnrecognizedCond{}, true
}

func classifyVolume(s string) (Condition, bool) {
	if !containsAny(s, "均量", "量比", "成交量", "volume", "放量", "缩量") {
		return nil, false
	}
	period := 5
	if m := reVolPer.FindStringSubmatch(s); m != nil {
		period, _ = strconv.Atoi(m[1])
	}
	if m := reTimes.FindStringSubmatch(s); m != nil {
		v, _ := strconv.ParseFloat(m[1], 64)
		op := OpGE
		if containsAny(s, "以下", "小于", "低于", "below", "less") {
			op = OpLE
		}
		return VolumeRatioCond{Period: period, Op: op, Value: v}, true
	}
	if containsAny(s, "量比") {
		if op, v, ok := parseCompare(s); ok {
			return VolumeRatioCond{Period: period, Op: op, Value: v}, true
		}
	}
	switch {
	case containsAny(s, "缩量", "萎缩", "shrink", "contract", "lower volume", "volume decrease"):
		return VolumeRatioCond{Period: period, Op: OpLE, Value: 0.8}, true
	case containsAny(s, "放量", "放大", "increase", "surge", "expand", "higher volume"):
		return VolumeRatioCond{Period: period, Op: OpGE, Value: 1.5}, true
	case containsAny(s, "大于", "高于", "above", "greater"):
		return VolumeRatioCond{Period: period, Op: OpGT, Value: 1}, true
	case containsAny(s, "小于", "低于", "below", "less"):
		return VolumeRatioCond{Period: period, Op: OpLT, Value: 1}, true
	}
	return UnrecognizedCond{}, true
}

func classifyMA(s string) (Condition, bool) {
	isMA := containsAny(s, "均线", "moving average", "ma", "日线")
	if !isMA {
		return nil, false
	}
	var periods []int
	for _, m := range reMA.FindAllStringSubmatch(s, -1) {
		for _, g := range m[1:] {
			if g == "" {
				continue
			}
			if p, err := strconv.Atoi(g); err == nil && p > 0 {
				periods = append(periods, p)
			}
		}
	}

	switch {
	case containsAny(s, "多头排列", "bullish alignment", "bullish arrangement"):
		if len(periods) < 2 {
			periods = []int{5, 10, 20}
		}
		return MovingAverageCrossCond{Relation: BullishAlignment, Periods: periods}, true
	case containsAny(s, "空头排列", "bearish alignment", "bearish arrangement"):
		if len(periods) < 2 {
			periods = []int{5, 10, 20}
		}
		return MovingAverageCrossCond{Relation: BearishAlignment, Periods: periods}, true
	}

	up := containsAny(s, "上穿", "金叉", "cross above", "crosses above", "golden")
	down := containsAny(s, "下穿", "死叉", "cross below", "crosses below", "death", "dead cross")
	above := containsAny(s, "站上", "之上", "上方", "突破", "above", "over", ">", "大于", "高于")
	below := containsAny(s, "跌破", "之下", "下方", "below", "under", "<", "小于", "低于")

	if len(periods) >= 2 {
		fs := []int{periods[0], periods[1]}
		switch {
		case up:
			return MovingAverageCrossCond{Relation: CrossUp, Periods: fs}, true
		case down:
			return MovingAverageCrossCond{Relation: CrossDown, Periods: fs}, true
		case above:
			return MovingAverageCrossCond{Relation: FastAboveSlow, Periods: fs}, true
		case below:
			return MovingAverageCrossCond{Relation: FastBelowSlow, Periods: fs}, true
		}
		return UnrecognizedCond{}, true
	}
	if len(periods) == 1 {
		ps := []int{periods[0]}
		switch {
		case below || down:
			return MovingAverageCrossCond{Relation: PriceBelow, Periods: ps}, true
		case above || up:
			return MovingAverageCrossCond{Relation: PriceAbove, Periods: ps}, true
		}
	}
	return UnrecognizedCond{}, true
}
