package model

// Trend is the direction of the moving-average alignment.
type Trend string

const (
	TrendUp       Trend = "uptrend"
	TrendDown     Trend = "downtrend"
	TrendSideways Trend = "sideways"
)

// Divergence flags price sitting at a window extreme while RSI disagrees.
type Divergence string

const (
	DivergenceNone    Divergence = "none"
	DivergenceBullish Divergence = "bullish"
	DivergenceBearish Divergence = "bearish"
)

// MACDResult carries the MACD histogram together with the ATR used to normalize it.
type MACDResult struct {
	Histogram float64
	ATR       float64
}

// EMABand holds the three trend EMAs.
type EMABand struct {
	EMA20  float64
	EMA50  float64
	EMA200 float64
}

// TrendResult is the trend classification plus the price it was judged against.
type TrendResult struct {
	Direction Trend
	Price     float64
	EMA       EMABand
}

// CrossSignal is the open/close SMMA crossover result.
type CrossSignal struct {
	Signal    Direction
	Score     float64
	Crossover bool
	Spread    float64 // smoothed close minus smoothed open at the last point
}

// CompositeSignal is the STC + CCI + momentum vote.
type CompositeSignal struct {
	Signal       Direction
	Score        float64
	STC          float64
	CCI          float64
	PriceChange  float64
	BullishVotes int
}

// IndicatorSet holds every indicator computed for one analysis.
// All fields are values, so copying the struct copies the whole snapshot.
type IndicatorSet struct {
	RSI          float64
	MACD         MACDResult
	StochRSI     float64
	MFI          float64
	Trend        TrendResult
	Divergence   Divergence
	OCC          CrossSignal
	STCCCI       CompositeSignal
	EMA          EMABand
	ATR          float64
	CurrentPrice float64
	Volume       float64
	AvgVolume    float64
}
