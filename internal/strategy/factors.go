package strategy

import (
	"fmt"
	"math"

	"SignalSentinel/internal/calculator"
	"SignalSentinel/internal/model"
)

// Weights is attached to every score record. The total score is an unweighted
// sum, so these values are informational only.
var Weights = map[model.IndicatorName]float64{
	model.IndRSI:        0.15,
	model.IndMACD:       0.15,
	model.IndStochRSI:   0.10,
	model.IndMFI:        0.10,
	model.IndTrend:      0.20,
	model.IndOCC:        0.15,
	model.IndSTCCCI:     0.15,
	model.IndDivergence: 0,
}

// WeightTable returns a copy of Weights for embedding in a result.
func WeightTable() map[model.IndicatorName]float64 {
	out := make(map[model.IndicatorName]float64, len(Weights))
	for k, v := range Weights {
		out[k] = v
	}
	return out
}

// ScoreIndicators turns an indicator set into one score record per indicator,
// in a fixed order. Non-finite inputs are replaced by neutral defaults first.
func ScoreIndicators(set model.IndicatorSet) []model.FactorScore {
	s := sanitize(set)
	return []model.FactorScore{
		scoreRSI(&s),
		scoreMACD(&s),
		scoreStochRSI(&s),
		scoreMFI(&s),
		scoreTrend(&s),
		scoreDivergence(&s),
		scoreOCC(&s),
		scoreSTCCCI(&s),
	}
}

// sanitize swaps NaN/Inf values for each indicator's neutral default.
func sanitize(set model.IndicatorSet) model.IndicatorSet {
	set.RSI = finiteOr(set.RSI, 50)
	set.StochRSI = finiteOr(set.StochRSI, 50)
	set.MFI = finiteOr(set.MFI, 50)
	set.MACD.Histogram = finiteOr(set.MACD.Histogram, 0)
	set.MACD.ATR = atrFloor(set.MACD.ATR)
	set.ATR = atrFloor(set.ATR)

	if !isFinite(set.OCC.Score) {
		set.OCC = model.CrossSignal{Signal: model.Neutral}
	}
	if !isFinite(set.STCCCI.Score) {
		set.STCCCI = model.CompositeSignal{Signal: model.Neutral}
	}
	return set
}

func scoreRSI(set *model.IndicatorSet) model.FactorScore {
	rsi := set.RSI
	var score float64
	var commentary string
	switch {
	case rsi < 20:
		score, commentary = 40, "deeply oversold"
	case rsi < 30:
		score, commentary = 30, "oversold"
	case rsi < 40:
		score, commentary = 15, "weak"
	case rsi > 80:
		score, commentary = -40, "deeply overbought"
	case rsi > 70:
		score, commentary = -30, "overbought"
	case rsi > 60:
		score, commentary = -15, "strong"
	default:
		commentary = "neutral"
	}
	return factor(model.IndRSI, rsi, score, fmt.Sprintf("RSI=%.1f %s", rsi, commentary))
}

// scoreMACD normalizes the histogram by ATR so the score is comparable across
// price scales. It is not clamped.
func scoreMACD(set *model.IndicatorSet) model.FactorScore {
	hist := set.MACD.Histogram
	score := hist / set.MACD.ATR * 50
	return factor(model.IndMACD, hist, score, fmt.Sprintf("hist=%.4f atr=%.4f", hist, set.MACD.ATR))
}

func scoreStochRSI(set *model.IndicatorSet) model.FactorScore {
	v := set.StochRSI
	return factor(model.IndStochRSI, v, (v-50)*2, fmt.Sprintf("%%K=%.1f", v))
}

func scoreMFI(set *model.IndicatorSet) model.FactorScore {
	v := set.MFI
	return factor(model.IndMFI, v, (v-50)*2, fmt.Sprintf("MFI=%.1f", v))
}

func scoreTrend(set *model.IndicatorSet) model.FactorScore {
	var score, value float64
	switch set.Trend.Direction {
	case model.TrendUp:
		score, value = 30, 1
	case model.TrendDown:
		score, value = -30, -1
	}
	return factor(model.IndTrend, value, score, string(set.Trend.Direction))
}

// scoreDivergence only reports the flag; the resolver decides whether it counts.
func scoreDivergence(set *model.IndicatorSet) model.FactorScore {
	var value float64
	switch set.Divergence {
	case model.DivergenceBullish:
		value = 1
	case model.DivergenceBearish:
		value = -1
	}
	fs := factor(model.IndDivergence, value, 0, string(set.Divergence))
	fs.Informational = true
	return fs
}

func scoreOCC(set *model.IndicatorSet) model.FactorScore {
	occ := set.OCC
	commentary := string(occ.Signal)
	if occ.Crossover {
		commentary += " crossover"
	}
	return factor(model.IndOCC, occ.Spread, occ.Score, commentary)
}

func scoreSTCCCI(set *model.IndicatorSet) model.FactorScore {
	c := set.STCCCI
	return factor(model.IndSTCCCI, float64(c.BullishVotes), c.Score,
		fmt.Sprintf("%s STC=%.1f CCI=%.1f votes=%d/3", c.Signal, c.STC, c.CCI, c.BullishVotes))
}

func factor(name model.IndicatorName, value, score float64, commentary string) model.FactorScore {
	return model.FactorScore{
		Name:       name,
		Value:      value,
		Score:      score,
		Weight:     Weights[name],
		Commentary: commentary,
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finiteOr(v, def float64) float64 {
	if isFinite(v) {
		return v
	}
	return def
}

func atrFloor(v float64) float64 {
	if !isFinite(v) || v <= 0 {
		return calculator.MinATR
	}
	return v
}
