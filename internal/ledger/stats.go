package ledger

import (
	"sort"

	"SignalSentinel/internal/model"
)

// Stats summarizes the whole history. Accuracy ignores neutral evaluations;
// WinRate counts them in the denominator. Both are percentages.
type Stats struct {
	Total     int
	Pending   int
	Ready     int
	Evaluated int
	Correct   int
	Incorrect int
	Neutral   int
	Accuracy  float64
	WinRate   float64
}

// TimeframeStats is the per-timeframe breakdown.
type TimeframeStats struct {
	Timeframe string
	Total     int
	Evaluated int
	Correct   int
	Incorrect int
	Neutral   int
	Accuracy  float64
}

// Stats counts decisions by status and result.
func (l *Ledger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	var s Stats
	s.Total = len(l.history)
	for i := range l.history {
		d := &l.history[i]
		switch d.Status {
		case model.StatusPending:
			s.Pending++
		case model.StatusReady:
			s.Ready++
		case model.StatusEvaluated:
			s.Evaluated++
			switch d.Evaluation.Result {
			case model.ResultCorrect:
				s.Correct++
			case model.ResultIncorrect:
				s.Incorrect++
			default:
				s.Neutral++
			}
		}
	}
	s.Accuracy = Percent(s.Correct, s.Correct+s.Incorrect)
	s.WinRate = Percent(s.Correct, s.Evaluated)
	return s
}

// TimeframeStats groups the history by timeframe, sorted by timeframe name.
func (l *Ledger) TimeframeStats() []TimeframeStats {
	l.mu.Lock()
	byTF := make(map[string]*TimeframeStats)
	for i := range l.history {
		d := &l.history[i]
		ts, ok := byTF[d.Timeframe]
		if !ok {
			ts = &TimeframeStats{Timeframe: d.Timeframe}
			byTF[d.Timeframe] = ts
		}
		ts.Total++
		if d.Status != model.StatusEvaluated {
			continue
		}
		ts.Evaluated++
		switch d.Evaluation.Result {
		case model.ResultCorrect:
			ts.Correct++
		case model.ResultIncorrect:
			ts.Incorrect++
		default:
			ts.Neutral++
		}
	}
	l.mu.Unlock()

	out := make([]TimeframeStats, 0, len(byTF))
	for _, ts := range byTF {
		ts.Accuracy = Percent(ts.Correct, ts.Correct+ts.Incorrect)
		out = append(out, *ts)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timeframe < out[j].Timeframe })
	return out
}

// History returns up to limit decisions, newest first. A non-positive limit
// returns everything.
func (l *Ledger) History(limit int) []model.Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.history)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]model.Decision, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, l.history[i].Clone())
	}
	return out
}

// EvaluatedDecisions returns copies of every evaluated decision, oldest first.
func (l *Ledger) EvaluatedDecisions() []model.Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []model.Decision
	for i := range l.history {
		if l.history[i].Status == model.StatusEvaluated {
			out = append(out, l.history[i].Clone())
		}
	}
	return out
}

// Percent returns part/whole x 100, or 0 when whole is 0.
func Percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
