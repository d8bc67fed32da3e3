package model

import "time"

// Direction is the call produced by the resolver.
type Direction string

const (
	Buy     Direction = "BUY"
	Sell    Direction = "SELL"
	Neutral Direction = "NEUTRAL"
)

// Valid reports whether d is one of the three known directions.
func (d Direction) Valid() bool {
	return d == Buy || d == Sell || d == Neutral
}

// TradingMode scales the total score and picks the default threshold.
type TradingMode string

const (
	ModeAggressive   TradingMode = "aggressive"
	ModeBalanced     TradingMode = "balanced"
	ModeConservative TradingMode = "conservative"
)

// IndicatorName identifies a scored indicator.
type IndicatorName string

const (
	IndRSI        IndicatorName = "rsi"
	IndMACD       IndicatorName = "macd"
	IndStochRSI   IndicatorName = "stochRsi"
	IndMFI        IndicatorName = "mfi"
	IndTrend      IndicatorName = "trend"
	IndDivergence IndicatorName = "divergence"
	IndOCC        IndicatorName = "occ"
	IndSTCCCI     IndicatorName = "stcCci"
)

// AnalysisConfig controls how scores are folded into a decision.
type AnalysisConfig struct {
	TradingMode         TradingMode
	BacktestThreshold   *float64 // overrides the mode threshold when finite
	DivergenceDetection bool
	TrendFilter         bool
}

// FactorScore represents a single indicator's scoring result.
// Informational entries (divergence) carry no score and weight 0.
type FactorScore struct {
	Name          IndicatorName
	Value         float64
	Score         float64
	Weight        float64
	Informational bool
	Commentary    string
}

// MarketContext describes the market at decision time.
type MarketContext struct {
	TotalScore         float64
	MarketRegime       string
	RelativeVolatility float64 // ATR as a percentage of price
}

// AnalysisResult is the final output of the strategy engine. Treat it as immutable.
type AnalysisResult struct {
	Direction   Direction
	Confidence  float64
	Indicators  IndicatorSet
	Weights     map[IndicatorName]float64
	Scores      []FactorScore
	TotalScore  float64
	Threshold   float64
	Explanation string
	Timeframe   string
	Timestamp   time.Time
	Context     MarketContext
}
