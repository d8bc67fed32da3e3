package calculator

import "SignalSentinel/internal/model"

// CalculateSTC computes the Schaff Trend Cycle: the EMA(23)-EMA(50) difference
// passed twice through a 10-period stochastic with 0.5 smoothing.
// Returns 50 with fewer than STCSlowPeriod closes.
func CalculateSTC(closes []float64) float64 {
	if len(closes) < STCSlowPeriod {
		return 50
	}
	fast := EMASeries(closes, STCFastPeriod)
	slow := EMASeries(closes, STCSlowPeriod)

	macd := make([]float64, 0, len(closes)-STCSlowPeriod+1)
	for i := STCSlowPeriod - 1; i < len(closes); i++ {
		macd = append(macd, fast[i]-slow[i])
	}

	stc := cycleStochastic(cycleStochastic(macd))
	return stc[len(stc)-1]
}

// cycleStochastic normalizes each value against the last STCCycle values and
// smooths the result. A flat window keeps the previous raw value.
func cycleStochastic(values []float64) []float64 {
	out := make([]float64, len(values))
	var raw, smoothed float64
	for i, v := range values {
		high, low, err := WindowRange(values[:i+1], STCCycle)
		if err == nil && high > low {
			raw = (v - low) / (high - low) * 100
		}
		if i == 0 {
			smoothed = raw
		} else {
			smoothed += STCFactor * (raw - smoothed)
		}
		out[i] = smoothed
	}
	return out
}

// CalculateCCI computes the commodity channel index of the last bar:
// (TP - mean TP) / (0.015 x mean absolute deviation) over period bars.
// Returns 0 when data is insufficient or the deviation is zero.
func CalculateCCI(highs, lows, closes []float64, period int) float64 {
	n := minLen(highs, lows, closes)
	if period <= 0 || n < period {
		return 0
	}

	tp := make([]float64, period)
	for j := range tp {
		i := n - period + j
		tp[j] = (highs[i] + lows[i] + closes[i]) / 3
	}
	avg := mean(tp)

	dev := 0.0
	for _, v := range tp {
		dev += abs(v - avg)
	}
	dev /= float64(period)
	if dev == 0 {
		return 0
	}
	return (tp[period-1] - avg) / (0.015 * dev)
}

// CalculateSTCCCI votes STC > 50, CCI > 0 and 5-bar price change > 0.
// Two or more bullish votes is BUY, otherwise SELL; there is no neutral outcome
// once CompositeMinCloses closes are available.
func CalculateSTCCCI(highs, lows, closes []float64) model.CompositeSignal {
	n := minLen(highs, lows, closes)
	if n < CompositeMinCloses {
		return model.CompositeSignal{Signal: model.Neutral}
	}

	res := model.CompositeSignal{
		STC:         CalculateSTC(closes[:n]),
		CCI:         CalculateCCI(highs, lows, closes, CCIPeriod),
		PriceChange: closes[n-1] - closes[n-1-MomentumLookback],
	}
	if res.STC > 50 {
		res.BullishVotes++
	}
	if res.CCI > 0 {
		res.BullishVotes++
	}
	if res.PriceChange > 0 {
		res.BullishVotes++
	}

	if res.BullishVotes >= 2 {
		res.Signal, res.Score = model.Buy, CompositeScore
	} else {
		res.Signal, res.Score = model.Sell, -CompositeScore
	}
	return res
}
