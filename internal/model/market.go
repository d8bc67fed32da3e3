package model

import "time"

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PreparedSeries holds the closed candles of a series as parallel arrays.
// The still-open last candle is excluded; its close is CurrentPrice.
type PreparedSeries struct {
	Closes     []float64
	Opens      []float64
	Highs      []float64
	Lows       []float64
	Volumes    []float64
	Timestamps []time.Time

	CurrentPrice float64
	LastClosed   *OHLCV // nil when no candle has closed yet
}

// Len returns the number of closed candles.
func (s PreparedSeries) Len() int { return len(s.Closes) }
