package calculator

import (
	"math"
	"testing"
	"time"

	talib "github.com/markcheno/go-talib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalSentinel/internal/model"
)

// wave builds n bars oscillating around a slow drift so both gains and losses occur.
func wave(n int) (opens, highs, lows, closes, volumes []float64) {
	opens = make([]float64, n)
	highs = make([]float64, n)
	lows = make([]float64, n)
	closes = make([]float64, n)
	volumes = make([]float64, n)
	for i := 0; i < n; i++ {
		c := 100 + 5*math.Sin(float64(i)*0.3) + 0.1*float64(i)
		closes[i] = c
		if i == 0 {
			opens[i] = c
		} else {
			opens[i] = closes[i-1]
		}
		spread := 1 + 0.5*math.Abs(math.Cos(float64(i)))
		highs[i] = math.Max(opens[i], c) + spread
		lows[i] = math.Min(opens[i], c) - spread
		volumes[i] = 1000 + float64(i%7)*50
	}
	return
}

func linear(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func flat(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestCalculateRSI_FlatSeriesIs100(t *testing.T) {
	assert.Equal(t, 100.0, CalculateRSI(flat(30, 42), 14))
}

func TestCalculateRSI_Insufficient(t *testing.T) {
	assert.Equal(t, 50.0, CalculateRSI(flat(14, 42), 14))
	assert.Equal(t, 50.0, CalculateRSI(nil, 14))
	assert.Equal(t, 50.0, CalculateRSI(linear(30, 1, 1), 0))
}

func TestCalculateRSI_Extremes(t *testing.T) {
	assert.Equal(t, 100.0, CalculateRSI(linear(40, 100, 1), 14))
	assert.InDelta(t, 0.0, CalculateRSI(linear(40, 100, -1), 14), 1e-12)
}

func TestCalculateRSI_MatchesTALib(t *testing.T) {
	_, _, _, closes, _ := wave(120)
	want := talib.Rsi(closes, 14)
	assert.InDelta(t, want[len(want)-1], CalculateRSI(closes, 14), 1e-6)
}

func TestCalculateEMA_MatchesTALib(t *testing.T) {
	_, _, _, closes, _ := wave(150)
	for _, period := range []int{9, 12, 20, 26, 50} {
		want := talib.Ema(closes, period)
		assert.InDelta(t, want[len(want)-1], CalculateEMA(closes, period), 1e-9, "period %d", period)
	}
}

func TestCalculateEMA_ShortSeries(t *testing.T) {
	assert.Equal(t, 7.0, CalculateEMA([]float64{3, 5, 7}, 20))
	assert.Equal(t, 0.0, CalculateEMA(nil, 20))

	series := EMASeries([]float64{1, 2, 3, 4}, 3)
	require.Len(t, series, 4)
	assert.True(t, math.IsNaN(series[0]))
	assert.True(t, math.IsNaN(series[1]))
	assert.Equal(t, 2.0, series[2])
	assert.Equal(t, 3.0, series[3])
}

func TestCalculateSMMA(t *testing.T) {
	got := CalculateSMMA([]float64{1, 2, 3, 4, 5}, 3)
	assert.InDelta(t, 31.0/9.0, got, 1e-12)
	assert.Equal(t, 5.0, CalculateSMMA([]float64{4, 5}, 3))
}

func TestCalculateATR(t *testing.T) {
	_, highs, lows, closes, _ := wave(100)
	want := talib.Atr(highs, lows, closes, 14)
	assert.InDelta(t, want[len(want)-1], CalculateATR(highs, lows, closes, 14), 1e-6)

	assert.Equal(t, MinATR, CalculateATR(highs[:14], lows[:14], closes[:14], 14))
	assert.Equal(t, MinATR, CalculateATR(flat(30, 5), flat(30, 5), flat(30, 5), 14))
}

func TestCalculateMACD_NeedsHistory(t *testing.T) {
	_, _, _, closes, _ := wave(100)
	assert.Equal(t, 0.0, CalculateMACD(closes[:25]))
	// 26..33 closes yield fewer than 9 MACD values: signal equals the last value
	assert.Equal(t, 0.0, CalculateMACD(closes[:30]))
	assert.NotEqual(t, 0.0, CalculateMACD(closes))
}

func TestCalculateMACD_StepSeries(t *testing.T) {
	// 26 closes at 100 then 10 at 110: both EMAs close the gap geometrically,
	// fast by 11/13 and slow by 25/27 per bar, so the MACD line is known in closed form.
	closes := append(flat(26, 100), flat(10, 110)...)
	line := func(j int) float64 {
		return 10 * (math.Pow(25.0/27.0, float64(j)) - math.Pow(11.0/13.0, float64(j)))
	}

	// signal: seeded with the mean of the first 9 line values, then EMA(9) steps
	signal := 0.0
	for j := 0; j < 9; j++ {
		signal += line(j)
	}
	signal /= 9
	for j := 9; j <= 10; j++ {
		signal += 0.2 * (line(j) - signal)
	}

	want := line(10) - signal
	assert.InDelta(t, want, CalculateMACD(closes), 1e-9)
	assert.InDelta(t, 0.5525978922588548, CalculateMACD(closes), 1e-9)
}

func TestCalculateMACD_KnownValues(t *testing.T) {
	_, _, _, closes, _ := wave(120)
	assert.InDelta(t, -0.9034733421767813, CalculateMACD(closes[:36]), 1e-9)
	assert.InDelta(t, 0.2940460832029333, CalculateMACD(closes[:65]), 1e-9)
	assert.InDelta(t, -0.8166545428660859, CalculateMACD(closes), 1e-9)
}

func TestCalculateStochRSI_KnownValues(t *testing.T) {
	_, _, _, closes, _ := wave(120)
	assert.InDelta(t, 9.037356260562298, CalculateStochRSI(closes[:40], 14), 1e-9)
	assert.InDelta(t, 80.3705510237531, CalculateStochRSI(closes[:65], 14), 1e-9)
	assert.InDelta(t, 99.5191560526369, CalculateStochRSI(closes[:70], 14), 1e-9)
}

func TestCalculateStochRSI_MatchesPrefixRSI(t *testing.T) {
	_, _, _, all, _ := wave(120)
	closes := all[:65]

	// RSI of every prefix with at least 15 closes
	var rsis []float64
	for end := 15; end <= len(closes); end++ {
		rsis = append(rsis, CalculateRSI(closes[:end], 14))
	}

	// raw stochastic of the last three RSI values over 14-value windows
	sum := 0.0
	for i := len(rsis) - 3; i < len(rsis); i++ {
		window := rsis[i-13 : i+1]
		lo, hi := window[0], window[0]
		for _, v := range window {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
		sum += (rsis[i] - lo) / (hi - lo) * 100
	}
	assert.InDelta(t, sum/3, CalculateStochRSI(closes, 14), 1e-9)
}

func TestCalculateStochRSI(t *testing.T) {
	_, _, _, closes, _ := wave(120)
	assert.Equal(t, 50.0, CalculateStochRSI(closes[:27], 14))

	k := CalculateStochRSI(closes, 14)
	assert.GreaterOrEqual(t, k, 0.0)
	assert.LessOrEqual(t, k, 100.0)

	// a steady climb pins RSI at 100, so the stochastic window is flat
	assert.Equal(t, 50.0, CalculateStochRSI(linear(60, 10, 1), 14))
}

func TestCalculateMFI(t *testing.T) {
	highs := []float64{11, 13, 12}
	lows := []float64{9, 11, 10}
	closes := []float64{10, 12, 11}
	volumes := []float64{1, 1, 1}
	assert.InDelta(t, 1200.0/23.0, CalculateMFI(highs, lows, closes, volumes, 2), 1e-9)

	up := linear(20, 10, 1)
	assert.Equal(t, 100.0, CalculateMFI(up, up, up, flat(20, 5), 14))
	assert.Equal(t, 50.0, CalculateMFI(up[:14], up[:14], up[:14], flat(14, 5), 14))
}

func TestClassifyTrend(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		price  float64
		want   model.Trend
	}{
		{"fewer than 20 closes", linear(19, 100, 1), 10_000, model.TrendSideways},
		{"short uptrend", linear(50, 100, 1), 200, model.TrendUp},
		{"short downtrend", linear(50, 100, 1), 50, model.TrendDown},
		{"full alignment up", linear(250, 100, 1), 400, model.TrendUp},
		{"full alignment down", linear(250, 400, -1), 100, model.TrendDown},
		{"price above but EMAs reversed", linear(250, 400, -1), 1000, model.TrendSideways},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyTrend(tt.closes, tt.price).Direction)
		})
	}
}

func TestDetectDivergence(t *testing.T) {
	falling := linear(25, 120, -1)
	rising := linear(25, 100, 1)

	assert.Equal(t, model.DivergenceBullish, DetectDivergence(falling, 40))
	assert.Equal(t, model.DivergenceNone, DetectDivergence(falling, 30))
	assert.Equal(t, model.DivergenceBearish, DetectDivergence(rising, 60))
	assert.Equal(t, model.DivergenceNone, DetectDivergence(rising, 70))
	assert.Equal(t, model.DivergenceNone, DetectDivergence(falling[:19], 40))
}

func TestCalculateOCC(t *testing.T) {
	opens := flat(10, 100)

	up := append(flat(9, 99), 120)
	got := CalculateOCC(opens, up, 8)
	assert.Equal(t, model.Buy, got.Signal)
	assert.Equal(t, 50.0, got.Score)
	assert.True(t, got.Crossover)
	assert.InDelta(t, 1.625, got.Spread, 1e-12)

	down := append(flat(9, 101), 80)
	got = CalculateOCC(opens, down, 8)
	assert.Equal(t, model.Sell, got.Signal)
	assert.Equal(t, -50.0, got.Score)
	assert.True(t, got.Crossover)

	got = CalculateOCC(opens, flat(10, 101), 8)
	assert.Equal(t, model.Neutral, got.Signal)
	assert.Zero(t, got.Score)
	assert.False(t, got.Crossover)

	got = CalculateOCC(opens[:9], up[:9], 8)
	assert.Equal(t, model.CrossSignal{Signal: model.Neutral}, got)
}

func TestCalculateCCI(t *testing.T) {
	assert.Equal(t, 0.0, CalculateCCI(flat(25, 5), flat(25, 5), flat(25, 5), 20))
	up := linear(25, 100, 1)
	assert.Greater(t, CalculateCCI(up, up, up, 20), 0.0)
	assert.Equal(t, 0.0, CalculateCCI(up[:10], up[:10], up[:10], 20))
}

func TestCalculateSTCCCI(t *testing.T) {
	short := linear(49, 100, 1)
	assert.Equal(t, model.CompositeSignal{Signal: model.Neutral}, CalculateSTCCCI(short, short, short))

	up := linear(60, 100, 1)
	got := CalculateSTCCCI(addTo(up, 1), addTo(up, -1), up)
	assert.Equal(t, model.Buy, got.Signal)
	assert.Equal(t, 30.0, got.Score)
	assert.GreaterOrEqual(t, got.BullishVotes, 2)

	down := linear(60, 200, -1)
	got = CalculateSTCCCI(addTo(down, 1), addTo(down, -1), down)
	assert.Equal(t, model.Sell, got.Signal)
	assert.Equal(t, -30.0, got.Score)
	assert.LessOrEqual(t, got.BullishVotes, 1)
}

func TestCalculateSTC_Bounds(t *testing.T) {
	_, _, _, closes, _ := wave(200)
	stc := CalculateSTC(closes)
	assert.GreaterOrEqual(t, stc, 0.0)
	assert.LessOrEqual(t, stc, 100.0)
	assert.Equal(t, 50.0, CalculateSTC(closes[:49]))
}

func TestCalculateSTC_KnownValues(t *testing.T) {
	// squared closes: EMA(23)-EMA(50) rises every bar, so each stochastic pass reads 100
	// after its first value and the 0.5 smoothing gives 100*(1-0.5^i) twice over
	quad := make([]float64, 60)
	for i := range quad {
		quad[i] = float64(i * i)
	}
	assert.Equal(t, 100*(1-math.Pow(0.5, 10)), CalculateSTC(quad))

	_, _, _, closes, _ := wave(120)
	assert.InDelta(t, 1.66015625, CalculateSTC(closes[:60]), 1e-9)
	assert.InDelta(t, 10.756013915002605, CalculateSTC(closes), 1e-9)
}

func TestPrepare(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := []model.OHLCV{
		{Time: base, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
		{Time: base.Add(time.Minute), Open: 1.5, High: 3, Low: 1, Close: 2.5, Volume: 20},
		{Time: base.Add(2 * time.Minute), Open: 2.5, High: 4, Low: 2, Close: 3.5, Volume: 5},
	}

	s := Prepare(candles)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []float64{1.5, 2.5}, s.Closes)
	assert.Equal(t, []float64{10, 20}, s.Volumes)
	assert.Equal(t, 3.5, s.CurrentPrice)
	require.NotNil(t, s.LastClosed)
	assert.Equal(t, 2.5, s.LastClosed.Close)

	single := Prepare(candles[:1])
	assert.Zero(t, single.Len())
	assert.Nil(t, single.LastClosed)
	assert.Equal(t, 1.5, single.CurrentPrice)

	assert.Zero(t, Prepare(nil).Len())
}

func TestComputeAll_ShortSeriesDegrades(t *testing.T) {
	opens, highs, lows, closes, volumes := wave(6)
	candles := make([]model.OHLCV, len(closes))
	for i := range closes {
		candles[i] = model.OHLCV{Open: opens[i], High: highs[i], Low: lows[i], Close: closes[i], Volume: volumes[i]}
	}

	set := ComputeAll(Prepare(candles))
	assert.Equal(t, 50.0, set.RSI)
	assert.Equal(t, 0.0, set.MACD.Histogram)
	assert.Equal(t, MinATR, set.MACD.ATR)
	assert.Equal(t, 50.0, set.StochRSI)
	assert.Equal(t, 50.0, set.MFI)
	assert.Equal(t, model.TrendSideways, set.Trend.Direction)
	assert.Equal(t, model.DivergenceNone, set.Divergence)
	assert.Equal(t, model.Neutral, set.OCC.Signal)
	assert.Equal(t, model.Neutral, set.STCCCI.Signal)
	assert.Equal(t, MinATR, set.ATR)
	assert.Equal(t, closes[5], set.CurrentPrice)
	assert.Equal(t, volumes[4], set.Volume)
	assert.InDelta(t, mean(volumes[:5]), set.AvgVolume, 1e-9)
}

func TestWindowRange(t *testing.T) {
	high, low, err := WindowRange([]float64{5, 1, 9, 3, 4}, 3)
	require.NoError(t, err)
	assert.Equal(t, 9.0, high)
	assert.Equal(t, 3.0, low)

	_, _, err = WindowRange(nil, 3)
	assert.Error(t, err)

	pos, err := RangePosition(7, 9, 3)
	require.NoError(t, err)
	assert.InDelta(t, 4.0/6.0, pos, 1e-12)

	pos, _ = RangePosition(7, 7, 7)
	assert.Equal(t, 0.5, pos)
}

func addTo(values []float64, d float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v + d
	}
	return out
}
