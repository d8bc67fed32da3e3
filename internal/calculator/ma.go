package calculator

import (
	"errors"
	"math"
)

// CalculateSMA computes the simple moving average of the given prices over the specified period.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// CalculateEMA returns the latest exponential moving average of values.
// The recurrence is seeded with the simple average of the first period values.
// Returns the last raw value when the series is shorter than period.
func CalculateEMA(values []float64, period int) float64 {
	if len(values) == 0 {
		return 0
	}
	if period <= 0 || len(values) < period {
		return values[len(values)-1]
	}
	series := EMASeries(values, period)
	return series[len(series)-1]
}

// EMASeries returns the EMA at every index of values. Entries before the
// window fills are NaN.
func EMASeries(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	k := 2.0 / float64(period+1)
	ema := mean(values[:period])
	out[period-1] = ema
	for i := period; i < len(values); i++ {
		ema = (values[i]-ema)*k + ema
		out[i] = ema
	}
	return out
}

// CalculateSMMA returns the latest smoothed (Wilder) moving average of values.
// Returns the last raw value when the series is shorter than period.
func CalculateSMMA(values []float64, period int) float64 {
	if len(values) == 0 {
		return 0
	}
	if period <= 0 || len(values) < period {
		return values[len(values)-1]
	}
	series := SMMASeries(values, period)
	return series[len(series)-1]
}

// SMMASeries returns the SMMA at every index of values, NaN before the window fills.
// SMMA = (prev*(period-1) + value) / period.
func SMMASeries(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	p := float64(period)
	smma := mean(values[:period])
	out[period-1] = smma
	for i := period; i < len(values); i++ {
		smma = (smma*(p-1) + values[i]) / p
		out[i] = smma
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
