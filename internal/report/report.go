// Package report buckets evaluated decisions to show where the engine performs.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"SignalSentinel/internal/ledger"
	"SignalSentinel/internal/model"
)

// Volatility band limits, as ATR percentage of price.
const (
	LowVolatility    = 0.5
	NormalVolatility = 1.5
)

// Bucket aggregates the evaluated decisions sharing one label.
// Accuracy excludes neutral results; WinRate counts them.
type Bucket struct {
	Label     string
	Count     int
	Correct   int
	Incorrect int
	Neutral   int
	Accuracy  float64
	WinRate   float64
}

func (b *Bucket) add(r model.EvaluationResult) {
	b.Count++
	switch r {
	case model.ResultCorrect:
		b.Correct++
	case model.ResultIncorrect:
		b.Incorrect++
	default:
		b.Neutral++
	}
}

func (b *Bucket) finish() {
	b.Accuracy = ledger.Percent(b.Correct, b.Correct+b.Incorrect)
	b.WinRate = ledger.Percent(b.Correct, b.Count)
}

// Report is the bucketed performance breakdown.
type Report struct {
	GeneratedAt  time.Time
	Overall      Bucket
	ByRegime     []Bucket
	ByVolatility []Bucket
	ByConfidence []Bucket
}

// VolatilityBand names the band of a relative volatility.
func VolatilityBand(relVol float64) string {
	switch {
	case relVol < LowVolatility:
		return "low"
	case relVol < NormalVolatility:
		return "normal"
	default:
		return "high"
	}
}

// ConfidenceBand names the 25-point range containing c. 100 falls in the top band.
func ConfidenceBand(c float64) string {
	switch {
	case c < 25:
		return "0-25"
	case c < 50:
		return "25-50"
	case c < 75:
		return "50-75"
	default:
		return "75-100"
	}
}

var (
	volatilityOrder = []string{"low", "normal", "high"}
	confidenceOrder = []string{"0-25", "25-50", "50-75", "75-100"}
)

// Build buckets decisions by regime, volatility band and confidence band.
// Decisions without an evaluation are skipped.
func Build(decisions []model.Decision, now time.Time) Report {
	rep := Report{GeneratedAt: now, Overall: Bucket{Label: "overall"}}
	regimes := map[string]*Bucket{}
	vol := map[string]*Bucket{}
	conf := map[string]*Bucket{}

	get := func(m map[string]*Bucket, label string) *Bucket {
		b, ok := m[label]
		if !ok {
			b = &Bucket{Label: label}
			m[label] = b
		}
		return b
	}

	for _, d := range decisions {
		if d.Status != model.StatusEvaluated || d.Evaluation == nil {
			continue
		}
		r := d.Evaluation.Result
		regime := d.MarketContext.MarketRegime
		if regime == "" {
			regime = "unknown"
		}
		rep.Overall.add(r)
		get(regimes, regime).add(r)
		get(vol, VolatilityBand(d.MarketContext.RelativeVolatility)).add(r)
		get(conf, ConfidenceBand(d.Confidence)).add(r)
	}
	rep.Overall.finish()

	labels := make([]string, 0, len(regimes))
	for k := range regimes {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	rep.ByRegime = collect(regimes, labels)
	rep.ByVolatility = collect(vol, volatilityOrder)
	rep.ByConfidence = collect(conf, confidenceOrder)
	return rep
}

func collect(m map[string]*Bucket, order []string) []Bucket {
	out := make([]Bucket, 0, len(m))
	for _, label := range order {
		if b, ok := m[label]; ok {
			b.finish()
			out = append(out, *b)
		}
	}
	return out
}

// Format renders the report as plain text.
func Format(r Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Performance report %s\n", r.GeneratedAt.Format("2006-01-02 15:04"))
	if r.Overall.Count == 0 {
		b.WriteString("no evaluated decisions yet")
		return b.String()
	}
	writeRow(&b, r.Overall)

	sections := []struct {
		title   string
		buckets []Bucket
	}{
		{"By regime", r.ByRegime},
		{"By volatility", r.ByVolatility},
		{"By confidence", r.ByConfidence},
	}
	for _, s := range sections {
		fmt.Fprintf(&b, "\n%s\n", s.title)
		for _, bucket := range s.buckets {
			writeRow(&b, bucket)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeRow(b *strings.Builder, bucket Bucket) {
	fmt.Fprintf(b, "  %-14s n=%-4d ✓%d ✗%d ~%d  acc %.1f%%  win %.1f%%\n",
		bucket.Label, bucket.Count, bucket.Correct, bucket.Incorrect, bucket.Neutral,
		bucket.Accuracy, bucket.WinRate)
}
