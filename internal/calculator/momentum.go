package calculator

// CalculateMACD returns the MACD histogram: the last MACD value minus its signal line.
// MACD is EMA(12) - EMA(26); the signal is EMA(9) of the MACD values.
// Returns 0 with fewer than 26 closes. With fewer than 9 MACD values the signal
// equals the last MACD value, so the histogram is also 0.
func CalculateMACD(closes []float64) float64 {
	if len(closes) < MACDSlowPeriod {
		return 0
	}
	fast := EMASeries(closes, MACDFastPeriod)
	slow := EMASeries(closes, MACDSlowPeriod)

	line := make([]float64, 0, len(closes)-MACDSlowPeriod+1)
	for i := MACDSlowPeriod - 1; i < len(closes); i++ {
		line = append(line, fast[i]-slow[i])
	}
	signal := CalculateEMA(line, MACDSignalPeriod)
	return line[len(line)-1] - signal
}

// CalculateATR computes the Wilder-smoothed average true range.
// True range = max(H-L, |H-prevC|, |L-prevC|). Returns MinATR when there are
// fewer than period+1 bars or the range collapses to zero.
func CalculateATR(highs, lows, closes []float64, period int) float64 {
	n := minLen(highs, lows, closes)
	if period <= 0 || n < period+1 {
		return MinATR
	}

	trueRange := func(i int) float64 {
		tr := highs[i] - lows[i]
		if v := abs(highs[i] - closes[i-1]); v > tr {
			tr = v
		}
		if v := abs(lows[i] - closes[i-1]); v > tr {
			tr = v
		}
		return tr
	}

	atr := 0.0
	for i := 1; i <= period; i++ {
		atr += trueRange(i)
	}
	atr /= float64(period)

	p := float64(period)
	for i := period + 1; i < n; i++ {
		atr = (atr*(p-1) + trueRange(i)) / p
	}

	if atr <= 0 {
		return MinATR
	}
	return atr
}

// CalculateStochRSI applies a stochastic transform to the RSI series and returns
// %K, the average of the last three stochastic values. The RSI series is built by
// recomputing RSI on progressively longer prefixes of closes.
// Returns 50 with fewer than StochPeriod RSI values.
func CalculateStochRSI(closes []float64, period int) float64 {
	rsis := rsiSeries(closes, period)
	if len(rsis) < StochPeriod {
		return 50
	}

	stoch := make([]float64, 0, len(rsis)-StochPeriod+1)
	for i := StochPeriod - 1; i < len(rsis); i++ {
		high, low, err := WindowRange(rsis[:i+1], StochPeriod)
		if err != nil {
			stoch = append(stoch, 50)
			continue
		}
		pos, err := RangePosition(rsis[i], high, low)
		if err != nil {
			pos = 0.5
		}
		stoch = append(stoch, pos*100)
	}

	if len(stoch) > StochSmoothing {
		stoch = stoch[len(stoch)-StochSmoothing:]
	}
	return mean(stoch)
}

// CalculateMFI computes the money flow index from the first period transitions
// of the series. Typical price = (H+L+C)/3, raw flow = typical price x volume.
// Returns 50 when data is insufficient and 100 when there is no negative flow.
func CalculateMFI(highs, lows, closes, volumes []float64, period int) float64 {
	n := minLen(highs, lows, closes, volumes)
	if period <= 0 || n < period+1 {
		return 50
	}

	typical := func(i int) float64 { return (highs[i] + lows[i] + closes[i]) / 3 }

	var positive, negative float64
	prev := typical(0)
	for i := 1; i <= period; i++ {
		tp := typical(i)
		flow := tp * volumes[i]
		switch {
		case tp > prev:
			positive += flow
		case tp < prev:
			negative += flow
		}
		prev = tp
	}

	if negative == 0 {
		return 100
	}
	ratio := positive / negative
	return 100 - 100/(1+ratio)
}

func minLen(series ...[]float64) int {
	if len(series) == 0 {
		return 0
	}
	n := len(series[0])
	for _, s := range series[1:] {
		if len(s) < n {
			n = len(s)
		}
	}
	return n
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
