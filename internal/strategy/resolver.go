package strategy

import (
	"math"

	"SignalSentinel/internal/model"
)

// DivergenceBonus is added (bullish) or subtracted (bearish) when divergence
// detection is enabled.
const DivergenceBonus = 20.0

// Modes maps each trading mode to its score multiplier and default threshold.
var Modes = map[model.TradingMode]struct {
	Multiplier float64
	Threshold  float64
}{
	model.ModeAggressive:   {Multiplier: 0.8, Threshold: 10},
	model.ModeBalanced:     {Multiplier: 1.0, Threshold: 25},
	model.ModeConservative: {Multiplier: 1.5, Threshold: 40},
}

// Resolution is the resolver's verdict before it is packed into an AnalysisResult.
type Resolution struct {
	Direction  model.Direction
	Confidence float64
	TotalScore float64
	Threshold  float64

	// set when a divergence adjusted TotalScore
	DivergenceApplied float64
	// set when the trend filter turned a BUY or SELL into NEUTRAL
	FilteredFrom model.Direction
}

// modeParams falls back to balanced for an unknown mode.
func modeParams(mode model.TradingMode) (multiplier, threshold float64) {
	p, ok := Modes[mode]
	if !ok {
		p = Modes[model.ModeBalanced]
	}
	return p.Multiplier, p.Threshold
}

// Resolve folds scores into a direction and confidence.
func Resolve(scores []model.FactorScore, set model.IndicatorSet, cfg model.AnalysisConfig) Resolution {
	multiplier, threshold := modeParams(cfg.TradingMode)
	if cfg.BacktestThreshold != nil && isFinite(*cfg.BacktestThreshold) {
		threshold = *cfg.BacktestThreshold
	}

	// Step a: unweighted sum
	total := 0.0
	for _, s := range scores {
		if s.Informational {
			continue
		}
		total += s.Score
	}

	// Step b: mode scaling
	total *= multiplier

	res := Resolution{Threshold: threshold}

	// Step c: divergence adjustment
	if cfg.DivergenceDetection {
		switch set.Divergence {
		case model.DivergenceBullish:
			res.DivergenceApplied = DivergenceBonus
		case model.DivergenceBearish:
			res.DivergenceApplied = -DivergenceBonus
		}
		total += res.DivergenceApplied
	}
	res.TotalScore = total

	// Step d: threshold
	switch {
	case total > threshold:
		res.Direction = model.Buy
	case total < -threshold:
		res.Direction = model.Sell
	default:
		res.Direction = model.Neutral
	}

	// Step e: trend filter
	if cfg.TrendFilter {
		if (res.Direction == model.Buy && set.Trend.Direction == model.TrendDown) ||
			(res.Direction == model.Sell && set.Trend.Direction == model.TrendUp) {
			res.FilteredFrom = res.Direction
			res.Direction = model.Neutral
		}
	}

	res.Confidence = confidence(total, threshold)
	return res
}

// confidence is |total| / (2 x threshold) as a percentage, clamped to [0, 100].
// A non-positive threshold reports 100 for any nonzero score.
func confidence(total, threshold float64) float64 {
	if threshold <= 0 {
		if total != 0 {
			return 100
		}
		return 0
	}
	c := math.Abs(total) / (2 * threshold) * 100
	return math.Max(0, math.Min(100, c))
}
