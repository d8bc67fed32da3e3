package calculator

import "SignalSentinel/internal/model"

// ClassifyTrend judges price against the EMA20/50/200 alignment.
// With 200+ closes: uptrend iff price > EMA20 > EMA50 > EMA200, downtrend iff the
// reverse holds strictly. With 20..199 closes only price vs EMA20 is used.
// Fewer than 20 closes is always sideways.
func ClassifyTrend(closes []float64, price float64) model.TrendResult {
	band := model.EMABand{
		EMA20:  CalculateEMA(closes, 20),
		EMA50:  CalculateEMA(closes, 50),
		EMA200: CalculateEMA(closes, 200),
	}
	res := model.TrendResult{Direction: model.TrendSideways, Price: price, EMA: band}

	switch {
	case len(closes) >= 200:
		if price > band.EMA20 && band.EMA20 > band.EMA50 && band.EMA50 > band.EMA200 {
			res.Direction = model.TrendUp
		} else if price < band.EMA20 && band.EMA20 < band.EMA50 && band.EMA50 < band.EMA200 {
			res.Direction = model.TrendDown
		}
	case len(closes) >= 20:
		if price > band.EMA20 {
			res.Direction = model.TrendUp
		} else if price < band.EMA20 {
			res.Direction = model.TrendDown
		}
	}
	return res
}

// DetectDivergence flags the latest close sitting at the low of the last
// DivergenceLookback closes while RSI > 35 (bullish), or at the high while
// RSI < 65 (bearish). It is a proximity-to-extreme heuristic.
// Fewer than DivergenceLookback closes reports none.
func DetectDivergence(closes []float64, rsi float64) model.Divergence {
	if len(closes) < DivergenceLookback {
		return model.DivergenceNone
	}
	high, low, err := WindowRange(closes, DivergenceLookback)
	if err != nil {
		return model.DivergenceNone
	}
	latest := closes[len(closes)-1]

	switch {
	case latest <= low && rsi > 35:
		return model.DivergenceBullish
	case latest >= high && rsi < 65:
		return model.DivergenceBearish
	default:
		return model.DivergenceNone
	}
}

// CalculateOCC detects an open/close cross between the last two points of the
// SMMA-smoothed open and close lines. Needs period+2 bars, else a neutral record.
func CalculateOCC(opens, closes []float64, period int) model.CrossSignal {
	res := model.CrossSignal{Signal: model.Neutral}
	n := minLen(opens, closes)
	if period <= 0 || n < period+2 {
		return res
	}

	smoothOpen := SMMASeries(opens[:n], period)
	smoothClose := SMMASeries(closes[:n], period)
	prev := smoothClose[n-2] - smoothOpen[n-2]
	curr := smoothClose[n-1] - smoothOpen[n-1]
	res.Spread = curr

	switch {
	case prev <= 0 && curr > 0:
		res.Signal, res.Score, res.Crossover = model.Buy, OCCScore, true
	case prev >= 0 && curr < 0:
		res.Signal, res.Score, res.Crossover = model.Sell, -OCCScore, true
	}
	return res
}
