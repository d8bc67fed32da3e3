package strategy

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalSentinel/internal/calculator"
	"SignalSentinel/internal/model"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine() *Engine {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewEngine(log).WithClock(func() time.Time { return fixedNow })
}

func flatCandles(n int, price float64) []model.OHLCV {
	out := make([]model.OHLCV, n)
	for i := range out {
		out[i] = model.OHLCV{
			Time:   fixedNow.Add(time.Duration(i-n) * time.Minute),
			Open:   price,
			High:   price,
			Low:    price,
			Close:  price,
			Volume: 10,
		}
	}
	return out
}

func scoreOf(scores []model.FactorScore, name model.IndicatorName) model.FactorScore {
	for _, s := range scores {
		if s.Name == name {
			return s
		}
	}
	return model.FactorScore{}
}

func TestScoreRSI_Ladder(t *testing.T) {
	tests := []struct {
		rsi  float64
		want float64
	}{
		{10, 40}, {19.9, 40}, {20, 30}, {29.9, 30}, {30, 15}, {39.9, 15},
		{40, 0}, {50, 0}, {60, 0},
		{60.1, -15}, {70, -15}, {70.1, -30}, {80, -30}, {80.1, -40}, {95, -40},
	}
	for _, tt := range tests {
		set := model.IndicatorSet{RSI: tt.rsi}
		assert.Equal(t, tt.want, scoreRSI(&set).Score, "rsi %.1f", tt.rsi)
	}
}

func TestScoreIndicators_Formulas(t *testing.T) {
	set := model.IndicatorSet{
		RSI:        50,
		MACD:       model.MACDResult{Histogram: 0.5, ATR: 0.25},
		StochRSI:   80,
		MFI:        35,
		Trend:      model.TrendResult{Direction: model.TrendDown},
		Divergence: model.DivergenceBearish,
		OCC:        model.CrossSignal{Signal: model.Buy, Score: 50, Crossover: true},
		STCCCI:     model.CompositeSignal{Signal: model.Sell, Score: -30, BullishVotes: 1},
	}
	scores := ScoreIndicators(set)
	require.Len(t, scores, 8)

	assert.Equal(t, 0.0, scoreOf(scores, model.IndRSI).Score)
	assert.Equal(t, 100.0, scoreOf(scores, model.IndMACD).Score)
	assert.Equal(t, 60.0, scoreOf(scores, model.IndStochRSI).Score)
	assert.Equal(t, -30.0, scoreOf(scores, model.IndMFI).Score)
	assert.Equal(t, -30.0, scoreOf(scores, model.IndTrend).Score)
	assert.Equal(t, 50.0, scoreOf(scores, model.IndOCC).Score)
	assert.Equal(t, -30.0, scoreOf(scores, model.IndSTCCCI).Score)

	div := scoreOf(scores, model.IndDivergence)
	assert.True(t, div.Informational)
	assert.Zero(t, div.Score)
	assert.Zero(t, div.Weight)
	assert.Equal(t, -1.0, div.Value)

	for _, s := range scores {
		assert.Equal(t, Weights[s.Name], s.Weight, string(s.Name))
	}
}

func TestScoreIndicators_NonFiniteInputs(t *testing.T) {
	set := model.IndicatorSet{
		RSI:      math.NaN(),
		MACD:     model.MACDResult{Histogram: math.Inf(1), ATR: 0},
		StochRSI: math.Inf(-1),
		MFI:      math.NaN(),
		OCC:      model.CrossSignal{Signal: model.Buy, Score: math.NaN()},
		STCCCI:   model.CompositeSignal{Signal: model.Buy, Score: math.Inf(1)},
	}
	for _, s := range ScoreIndicators(set) {
		assert.False(t, math.IsNaN(s.Score) || math.IsInf(s.Score, 0), string(s.Name))
		assert.Zero(t, s.Score, string(s.Name))
	}
}

func TestScoreMACD_ZeroATRUsesFloor(t *testing.T) {
	set := sanitize(model.IndicatorSet{MACD: model.MACDResult{Histogram: 0.0001, ATR: 0}})
	assert.InDelta(t, 50.0, scoreMACD(&set).Score, 1e-9)
}

func scored(values ...float64) []model.FactorScore {
	out := make([]model.FactorScore, len(values))
	for i, v := range values {
		out[i] = model.FactorScore{Name: model.IndRSI, Score: v}
	}
	return out
}

func TestResolve_Modes(t *testing.T) {
	tests := []struct {
		mode       model.TradingMode
		total      float64
		threshold  float64
		direction  model.Direction
		confidence float64
	}{
		{model.ModeBalanced, 40, 25, model.Buy, 80},
		{model.ModeAggressive, 32, 10, model.Buy, 100},
		{model.ModeConservative, 60, 40, model.Buy, 75},
		{"unknown", 40, 25, model.Buy, 80},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			res := Resolve(scored(30, 10), model.IndicatorSet{}, model.AnalysisConfig{TradingMode: tt.mode})
			assert.InDelta(t, tt.total, res.TotalScore, 1e-9)
			assert.Equal(t, tt.threshold, res.Threshold)
			assert.Equal(t, tt.direction, res.Direction)
			assert.InDelta(t, tt.confidence, res.Confidence, 1e-9)
		})
	}
}

func TestResolve_WeightsNotApplied(t *testing.T) {
	scores := []model.FactorScore{
		{Name: model.IndRSI, Score: 30, Weight: 0.15},
		{Name: model.IndTrend, Score: 30, Weight: 0.20},
		{Name: model.IndDivergence, Score: 99, Informational: true},
	}
	res := Resolve(scores, model.IndicatorSet{}, model.AnalysisConfig{TradingMode: model.ModeBalanced})
	assert.Equal(t, 60.0, res.TotalScore)
}

func TestResolve_ThresholdIsStrict(t *testing.T) {
	cfg := model.AnalysisConfig{TradingMode: model.ModeBalanced}
	assert.Equal(t, model.Neutral, Resolve(scored(25), model.IndicatorSet{}, cfg).Direction)
	assert.Equal(t, model.Neutral, Resolve(scored(-25), model.IndicatorSet{}, cfg).Direction)
	assert.Equal(t, model.Sell, Resolve(scored(-25.5), model.IndicatorSet{}, cfg).Direction)
}

func TestResolve_ThresholdOverride(t *testing.T) {
	high := 100.0
	res := Resolve(scored(40), model.IndicatorSet{}, model.AnalysisConfig{TradingMode: model.ModeBalanced, BacktestThreshold: &high})
	assert.Equal(t, model.Neutral, res.Direction)
	assert.Equal(t, 100.0, res.Threshold)
	assert.InDelta(t, 20.0, res.Confidence, 1e-9)

	nan := math.NaN()
	res = Resolve(scored(40), model.IndicatorSet{}, model.AnalysisConfig{TradingMode: model.ModeBalanced, BacktestThreshold: &nan})
	assert.Equal(t, 25.0, res.Threshold)
	assert.Equal(t, model.Buy, res.Direction)

	zero := 0.0
	res = Resolve(scored(0), model.IndicatorSet{}, model.AnalysisConfig{BacktestThreshold: &zero})
	assert.Equal(t, model.Neutral, res.Direction)
	assert.Zero(t, res.Confidence)
	res = Resolve(scored(1), model.IndicatorSet{}, model.AnalysisConfig{BacktestThreshold: &zero})
	assert.Equal(t, model.Buy, res.Direction)
	assert.Equal(t, 100.0, res.Confidence)
}

func TestResolve_Divergence(t *testing.T) {
	bullish := model.IndicatorSet{Divergence: model.DivergenceBullish}
	bearish := model.IndicatorSet{Divergence: model.DivergenceBearish}

	off := Resolve(scored(10), bullish, model.AnalysisConfig{TradingMode: model.ModeBalanced})
	assert.Equal(t, 10.0, off.TotalScore)
	assert.Equal(t, model.Neutral, off.Direction)

	on := Resolve(scored(10), bullish, model.AnalysisConfig{TradingMode: model.ModeBalanced, DivergenceDetection: true})
	assert.Equal(t, 30.0, on.TotalScore)
	assert.Equal(t, model.Buy, on.Direction)
	assert.Equal(t, DivergenceBonus, on.DivergenceApplied)

	// applied after the mode multiplier
	down := Resolve(scored(10), bearish, model.AnalysisConfig{TradingMode: model.ModeConservative, DivergenceDetection: true})
	assert.Equal(t, -5.0, down.TotalScore)
}

func TestResolve_TrendFilter(t *testing.T) {
	downtrend := model.IndicatorSet{Trend: model.TrendResult{Direction: model.TrendDown}}
	uptrend := model.IndicatorSet{Trend: model.TrendResult{Direction: model.TrendUp}}
	cfg := model.AnalysisConfig{TradingMode: model.ModeBalanced, TrendFilter: true}

	res := Resolve(scored(40), downtrend, cfg)
	assert.Equal(t, model.Neutral, res.Direction)
	assert.Equal(t, model.Buy, res.FilteredFrom)
	assert.InDelta(t, 80.0, res.Confidence, 1e-9)

	res = Resolve(scored(-40), uptrend, cfg)
	assert.Equal(t, model.Neutral, res.Direction)
	assert.Equal(t, model.Sell, res.FilteredFrom)

	res = Resolve(scored(40), uptrend, cfg)
	assert.Equal(t, model.Buy, res.Direction)
	assert.Empty(t, res.FilteredFrom)

	cfg.TrendFilter = false
	assert.Equal(t, model.Buy, Resolve(scored(40), downtrend, cfg).Direction)
}

func TestConfidence_AlwaysInRange(t *testing.T) {
	for _, total := range []float64{-1e9, -300, -50, -0.1, 0, 0.1, 12, 49.9, 50, 1e9} {
		for _, thr := range []float64{0.01, 10, 25, 40, 1000} {
			c := confidence(total, thr)
			assert.GreaterOrEqual(t, c, 0.0)
			assert.LessOrEqual(t, c, 100.0)
		}
	}
}

func TestClassifyRegime(t *testing.T) {
	tests := []struct {
		name   string
		set    model.IndicatorSet
		regime string
		relVol float64
	}{
		{"volatile beats trend", model.IndicatorSet{ATR: 2, CurrentPrice: 100, Trend: model.TrendResult{Direction: model.TrendUp}}, RegimeVolatile, 2},
		{"trending up", model.IndicatorSet{ATR: 1, CurrentPrice: 100, Trend: model.TrendResult{Direction: model.TrendUp}}, RegimeTrendingUp, 1},
		{"trending down", model.IndicatorSet{ATR: 1, CurrentPrice: 100, Trend: model.TrendResult{Direction: model.TrendDown}}, RegimeTrendingDown, 1},
		{"ranging", model.IndicatorSet{ATR: 0.5, CurrentPrice: 100, Trend: model.TrendResult{Direction: model.TrendSideways}}, RegimeRanging, 0.5},
		{"no price", model.IndicatorSet{ATR: 1}, RegimeRanging, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			regime, relVol := ClassifyRegime(tt.set)
			assert.Equal(t, tt.regime, regime)
			assert.InDelta(t, tt.relVol, relVol, 1e-12)
		})
	}
}

func TestAnalyze_ShortSeriesIsNeutral(t *testing.T) {
	e := newTestEngine()
	res := e.Analyze(flatCandles(10, 100), "5m", model.AnalysisConfig{TradingMode: model.ModeBalanced})

	assert.Equal(t, model.Neutral, res.Direction)
	assert.Zero(t, res.TotalScore)
	assert.Zero(t, res.Confidence)
	assert.Equal(t, "5m", res.Timeframe)
	assert.Equal(t, fixedNow, res.Timestamp)
	assert.Equal(t, 25.0, res.Threshold)
	assert.Equal(t, WeightTable(), res.Weights)
	assert.Equal(t, RegimeRanging, res.Context.MarketRegime)
	assert.Zero(t, scoreOf(res.Scores, model.IndMACD).Score)
}

func TestAnalyze_FewerThan26CandlesHasNoMACD(t *testing.T) {
	candles := flatCandles(25, 100)
	for i := range candles {
		candles[i].Close = 100 + float64(i%4)
		candles[i].High = candles[i].Close + 1
		candles[i].Low = candles[i].Close - 1
	}
	res := newTestEngine().Analyze(candles, "1m", model.AnalysisConfig{TradingMode: model.ModeAggressive})
	assert.Zero(t, res.Indicators.MACD.Histogram)
	assert.Zero(t, scoreOf(res.Scores, model.IndMACD).Score)
}

func TestAnalyze_FlatSeries(t *testing.T) {
	// flat closes: RSI pins at 100, MFI sees no negative flow, the latest
	// close sits at the window low, so divergence reads bullish
	e := newTestEngine()
	res := e.Analyze(flatCandles(31, 100), "15m", model.AnalysisConfig{TradingMode: model.ModeBalanced})

	assert.Equal(t, 100.0, res.Indicators.RSI)
	assert.Equal(t, -40.0, scoreOf(res.Scores, model.IndRSI).Score)
	assert.Equal(t, 100.0, scoreOf(res.Scores, model.IndMFI).Score)
	assert.Equal(t, model.DivergenceBullish, res.Indicators.Divergence)
	assert.Equal(t, model.TrendSideways, res.Indicators.Trend.Direction)
	assert.Equal(t, calculator.MinATR, res.Indicators.ATR)
	assert.Equal(t, 60.0, res.TotalScore)
	assert.Equal(t, model.Buy, res.Direction)
	assert.Equal(t, 100.0, res.Confidence)
	assert.Equal(t, res.TotalScore, res.Context.TotalScore)

	withDiv := e.Analyze(flatCandles(31, 100), "15m", model.AnalysisConfig{TradingMode: model.ModeBalanced, DivergenceDetection: true})
	assert.Equal(t, 80.0, withDiv.TotalScore)
	assert.Contains(t, withDiv.Explanation, "divergence adjustment +20")
}

func TestAnalyze_EmptyInput(t *testing.T) {
	res := newTestEngine().Analyze(nil, "1h", model.AnalysisConfig{})
	assert.Equal(t, model.Neutral, res.Direction)
	assert.Zero(t, res.Indicators.CurrentPrice)
	assert.Equal(t, RegimeRanging, res.Context.MarketRegime)
}

func TestExplain_MentionsFilter(t *testing.T) {
	set := model.IndicatorSet{Trend: model.TrendResult{Direction: model.TrendDown}}
	cfg := model.AnalysisConfig{TradingMode: model.ModeBalanced, TrendFilter: true}
	scores := scored(40)
	res := Resolve(scores, set, cfg)
	result := model.AnalysisResult{Direction: res.Direction, Scores: scores, Indicators: set, Timeframe: "1h"}

	text := Explain(result, res, cfg)
	assert.True(t, strings.HasPrefix(text, "1h NEUTRAL"))
	assert.Contains(t, text, "trend filter: BUY suppressed by downtrend")
	assert.Contains(t, text, "[balanced]")
}
