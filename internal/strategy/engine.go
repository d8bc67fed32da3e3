package strategy

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"SignalSentinel/internal/calculator"
	"SignalSentinel/internal/model"
)

// Market regimes attached to each result.
const (
	RegimeVolatile     = "volatile"
	RegimeTrendingUp   = "trending_up"
	RegimeTrendingDown = "trending_down"
	RegimeRanging      = "ranging"
)

// VolatileThreshold is the ATR-to-price percentage at or above which the market
// counts as volatile regardless of trend.
const VolatileThreshold = 2.0

// Engine runs indicators, scoring and resolution over a candle series.
// It holds no state between calls and is safe for concurrent use.
type Engine struct {
	log *logrus.Logger
	now func() time.Time
}

// NewEngine creates an Engine. A nil logger uses the logrus standard logger.
func NewEngine(log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{log: log, now: time.Now}
}

// WithClock replaces the clock used to stamp results.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Analyze computes a full AnalysisResult. Short or empty series never fail;
// each indicator falls back to its neutral default.
func (e *Engine) Analyze(candles []model.OHLCV, timeframe string, cfg model.AnalysisConfig) model.AnalysisResult {
	series := calculator.Prepare(candles)
	set := calculator.ComputeAll(series)
	scores := ScoreIndicators(set)
	res := Resolve(scores, set, cfg)
	regime, relVol := ClassifyRegime(set)

	result := model.AnalysisResult{
		Direction:  res.Direction,
		Confidence: res.Confidence,
		Indicators: set,
		Weights:    WeightTable(),
		Scores:     scores,
		TotalScore: res.TotalScore,
		Threshold:  res.Threshold,
		Timeframe:  timeframe,
		Timestamp:  e.now(),
		Context: model.MarketContext{
			TotalScore:         res.TotalScore,
			MarketRegime:       regime,
			RelativeVolatility: relVol,
		},
	}
	result.Explanation = Explain(result, res, cfg)

	e.log.WithFields(logrus.Fields{
		"timeframe":  timeframe,
		"candles":    len(candles),
		"direction":  result.Direction,
		"confidence": fmt.Sprintf("%.1f", result.Confidence),
		"score":      fmt.Sprintf("%.2f", result.TotalScore),
		"regime":     regime,
	}).Debug("analysis complete")
	return result
}

// ClassifyRegime derives the market regime and the ATR-to-price percentage.
func ClassifyRegime(set model.IndicatorSet) (string, float64) {
	relVol := 0.0
	if set.CurrentPrice > 0 && isFinite(set.ATR) {
		relVol = set.ATR / set.CurrentPrice * 100
	}

	switch {
	case relVol >= VolatileThreshold:
		return RegimeVolatile, relVol
	case set.Trend.Direction == model.TrendUp:
		return RegimeTrendingUp, relVol
	case set.Trend.Direction == model.TrendDown:
		return RegimeTrendingDown, relVol
	default:
		return RegimeRanging, relVol
	}
}

// Explain renders a multi-line summary of how the result was reached.
func Explain(result model.AnalysisResult, res Resolution, cfg model.AnalysisConfig) string {
	mode := cfg.TradingMode
	if _, ok := Modes[mode]; !ok {
		mode = model.ModeBalanced
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s (confidence %.1f%%)\n", result.Timeframe, result.Direction, result.Confidence)
	fmt.Fprintf(&b, "total %.2f vs threshold ±%.2f [%s]\n", res.TotalScore, res.Threshold, mode)
	for _, s := range result.Scores {
		if s.Informational {
			fmt.Fprintf(&b, "  %-10s %s\n", s.Name, s.Commentary)
			continue
		}
		fmt.Fprintf(&b, "  %-10s %+7.2f  %s\n", s.Name, s.Score, s.Commentary)
	}
	if res.DivergenceApplied != 0 {
		fmt.Fprintf(&b, "divergence adjustment %+.0f\n", res.DivergenceApplied)
	}
	if res.FilteredFrom != "" {
		fmt.Fprintf(&b, "trend filter: %s suppressed by %s\n", res.FilteredFrom, result.Indicators.Trend.Direction)
	}
	fmt.Fprintf(&b, "regime %s, volatility %.2f%%", result.Context.MarketRegime, result.Context.RelativeVolatility)
	return b.String()
}
