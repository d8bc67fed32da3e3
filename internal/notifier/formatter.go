package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"SignalSentinel/internal/ledger"
	"SignalSentinel/internal/metrics"
	"SignalSentinel/internal/model"
)

var directionIcon = map[model.Direction]string{
	model.Buy:     "🟢",
	model.Sell:    "🔴",
	model.Neutral: "⚪",
}

var resultIcon = map[model.EvaluationResult]string{
	model.ResultCorrect:   "✅",
	model.ResultIncorrect: "❌",
	model.ResultNeutral:   "➖",
}

// FormatDecision renders a freshly recorded decision.
func FormatDecision(symbol string, d model.Decision) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>%s %s</b> | %s\n\n", directionIcon[d.Direction], symbol, d.Direction, d.Timeframe)
	fmt.Fprintf(&b, "Price: %.2f\n", d.CurrentPriceAtDecision)
	fmt.Fprintf(&b, "Confidence: %.1f%%\n", d.Confidence)
	fmt.Fprintf(&b, "Score: %+.1f | Regime: %s\n", d.MarketContext.TotalScore, d.MarketContext.MarketRegime)

	ind := d.IndicatorSnapshot
	fmt.Fprintf(&b, "RSI %.1f | StochRSI %.1f | MFI %.1f\n", ind.RSI, ind.StochRSI, ind.MFI)
	fmt.Fprintf(&b, "Trend: %s | Divergence: %s\n", ind.Trend.Direction, ind.Divergence)
	fmt.Fprintf(&b, "Evaluate at %s", d.Timestamp.Add(d.EvaluationHorizon).UTC().Format("15:04:05 MST"))
	return b.String()
}

// FormatOutcome renders an evaluated decision.
func FormatOutcome(o model.Outcome) string {
	return fmt.Sprintf("%s <b>%s %s</b> was %s\nMove: %+.3f%% | Return: %+.3f%% | Confidence: %.1f%%",
		resultIcon[o.Result], o.Direction, o.Timeframe, o.Result, o.PriceChangePct, o.Return, o.Confidence)
}

// FormatStats renders the ledger summary.
func FormatStats(s ledger.Stats) string {
	var b strings.Builder
	b.WriteString("📊 <b>Decision stats</b>\n\n")
	fmt.Fprintf(&b, "Total: %d (pending %d, ready %d, evaluated %d)\n", s.Total, s.Pending, s.Ready, s.Evaluated)
	fmt.Fprintf(&b, "Correct: %d | Incorrect: %d | Neutral: %d\n", s.Correct, s.Incorrect, s.Neutral)
	fmt.Fprintf(&b, "Accuracy: %.1f%% | Win rate: %.1f%%", s.Accuracy, s.WinRate)
	return b.String()
}

// FormatHistory renders decisions newest first.
func FormatHistory(decisions []model.Decision) string {
	if len(decisions) == 0 {
		return "No decisions recorded yet."
	}
	var b strings.Builder
	b.WriteString("🕑 <b>Recent decisions</b>\n\n")
	for _, d := range decisions {
		status := string(d.Status)
		if d.Evaluation != nil {
			status = fmt.Sprintf("%s %s %+.2f%%", resultIcon[d.Evaluation.Result], d.Evaluation.Result, d.Evaluation.PriceChangePct)
		}
		fmt.Fprintf(&b, "%s %s %-7s @ %.2f (%.0f%%) %s\n",
			d.Timestamp.UTC().Format("01-02 15:04"), d.Timeframe, d.Direction,
			d.CurrentPriceAtDecision, d.Confidence, status)
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatTimeframes renders the per-timeframe breakdown.
func FormatTimeframes(stats []ledger.TimeframeStats) string {
	if len(stats) == 0 {
		return "No decisions recorded yet."
	}
	var b strings.Builder
	b.WriteString("⏱ <b>By timeframe</b>\n\n")
	for _, s := range stats {
		fmt.Fprintf(&b, "%s: %d total, %d evaluated, acc %.1f%% (%d/%d/%d)\n",
			s.Timeframe, s.Total, s.Evaluated, s.Accuracy, s.Correct, s.Incorrect, s.Neutral)
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatWindow renders the rolling outcome window.
func FormatWindow(s metrics.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📈 <b>Last %d/%d outcomes</b>\n\n", s.Size, s.Capacity)
	fmt.Fprintf(&b, "Accuracy: %.1f%% | Win rate: %.1f%%\n", s.Accuracy, s.WinRate)
	fmt.Fprintf(&b, "Avg return: %+.3f%%\n", s.AvgReturn)
	fmt.Fprintf(&b, "Error streak: %d (max %d)", s.ConsecutiveErrors, s.MaxConsecutiveErrors)

	dirs := make([]string, 0, len(s.Directions))
	for d := range s.Directions {
		dirs = append(dirs, string(d))
	}
	sort.Strings(dirs)
	for _, d := range dirs {
		fmt.Fprintf(&b, "\n%s: %d", d, s.Directions[model.Direction(d)])
	}
	return b.String()
}

// FormatPre wraps plain text so Telegram renders it monospaced.
func FormatPre(text string) string {
	return "<pre>" + html.EscapeString(text) + "</pre>"
}

// HelpText lists the supported commands.
const HelpText = "Available commands:\n" +
	"/stats - decision statistics\n" +
	"/history [n] - recent decisions\n" +
	"/timeframes - per-timeframe accuracy\n" +
	"/window - rolling outcome window\n" +
	"/report - performance report"
