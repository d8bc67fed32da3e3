package calculator

import (
	"time"

	"SignalSentinel/internal/model"
)

// Indicator periods and fixed constants.
const (
	RSIPeriod          = 14
	ATRPeriod          = 14
	MFIPeriod          = 14
	StochPeriod        = 14
	StochSmoothing     = 3
	MACDFastPeriod     = 12
	MACDSlowPeriod     = 26
	MACDSignalPeriod   = 9
	OCCPeriod          = 8
	STCFastPeriod      = 23
	STCSlowPeriod      = 50
	STCCycle           = 10
	STCFactor          = 0.5
	CCIPeriod          = 20
	MomentumLookback   = 5
	CompositeMinCloses = 50
	DivergenceLookback = 20
	VolumeAvgPeriod    = 20

	OCCScore       = 50.0
	CompositeScore = 30.0

	// MinATR is returned instead of a zero ATR so it can divide safely.
	MinATR = 0.0001
)

// Prepare splits off the still-open last candle and lays the closed candles out
// as parallel arrays. The open candle's close becomes CurrentPrice.
func Prepare(candles []model.OHLCV) model.PreparedSeries {
	var s model.PreparedSeries
	if len(candles) == 0 {
		return s
	}
	s.CurrentPrice = candles[len(candles)-1].Close

	closed := candles[:len(candles)-1]
	s.Closes = make([]float64, len(closed))
	s.Opens = make([]float64, len(closed))
	s.Highs = make([]float64, len(closed))
	s.Lows = make([]float64, len(closed))
	s.Volumes = make([]float64, len(closed))
	s.Timestamps = make([]time.Time, len(closed))
	for i, c := range closed {
		s.Closes[i] = c.Close
		s.Opens[i] = c.Open
		s.Highs[i] = c.High
		s.Lows[i] = c.Low
		s.Volumes[i] = c.Volume
		s.Timestamps[i] = c.Time
	}
	if len(closed) > 0 {
		last := closed[len(closed)-1]
		s.LastClosed = &last
	}
	return s
}

// ComputeAll runs every indicator over the prepared series.
// Insufficient history degrades each indicator to its neutral default.
func ComputeAll(s model.PreparedSeries) model.IndicatorSet {
	closes := s.Closes
	rsi := CalculateRSI(closes, RSIPeriod)
	atr := CalculateATR(s.Highs, s.Lows, closes, ATRPeriod)
	trend := ClassifyTrend(closes, s.CurrentPrice)

	set := model.IndicatorSet{
		RSI:          rsi,
		MACD:         model.MACDResult{Histogram: CalculateMACD(closes), ATR: atr},
		StochRSI:     CalculateStochRSI(closes, RSIPeriod),
		MFI:          CalculateMFI(s.Highs, s.Lows, closes, s.Volumes, MFIPeriod),
		Trend:        trend,
		Divergence:   DetectDivergence(closes, rsi),
		OCC:          CalculateOCC(s.Opens, closes, OCCPeriod),
		STCCCI:       CalculateSTCCCI(s.Highs, s.Lows, closes),
		EMA:          trend.EMA,
		ATR:          atr,
		CurrentPrice: s.CurrentPrice,
	}

	if s.LastClosed != nil {
		set.Volume = s.LastClosed.Volume
	}
	if avg, err := CalculateSMA(s.Volumes, VolumeAvgPeriod); err == nil {
		set.AvgVolume = avg
	} else {
		set.AvgVolume = mean(s.Volumes)
	}
	return set
}
