// Package alert evaluates named threshold rules over a run diff and the new
// run's raw state.
package alert

import (
	"fmt"
	"math"
	"sort"
	"unicode/utf8"

	"github.com/ppiankov/watchtower/internal/diff"
	"github.com/ppiankov/watchtower/internal/model"
)

// Engine evaluates threshold rules. Each rule is independent and yields zero
// or more alerts; the engine deduplicates per (rule, entity) and orders the
// output by severity descending, then by entity creation order.
type Engine struct {
	cfg model.AlertConfig
}

// NewEngine creates an engine with the given thresholds. Zero thresholds fall
// back to the defaults.
func NewEngine(cfg model.AlertConfig) *Engine {
	def := model.DefaultConfig().Alerts
	if cfg.HighConfidence <= 0 {
		cfg.HighConfidence = def.HighConfidence
	}
	if cfg.WellSupported <= 0 {
		cfg.WellSupported = def.WellSupported
	}
	if cfg.ConfidenceDeltaEpsilon <= 0 {
		cfg.ConfidenceDeltaEpsilon = def.ConfidenceDeltaEpsilon
	}
	return &Engine{cfg: cfg}
}

// Evaluate runs every rule over the diff and the new run's state.
func (e *Engine) Evaluate(d diff.Result, snap model.RunSnapshot) []model.Alert {
	alerts := []model.Alert{}
	alerts = append(alerts, e.highConfidence(snap)...)
	alerts = append(alerts, e.wellSupported(snap)...)
	alerts = append(alerts, e.confidenceShift(d)...)
	alerts = append(alerts, e.silentEdits(d)...)

	alerts = dedupe(alerts)
	sort.SliceStable(alerts, func(i, j int) bool {
		if alerts[i].Severity.Rank() != alerts[j].Severity.Rank() {
			return alerts[i].Severity.Rank() > alerts[j].Severity.Rank()
		}
		return alerts[i].Seq < alerts[j].Seq
	})
	return alerts
}

// highConfidence flags any claim at or above the high-confidence threshold.
func (e *Engine) highConfidence(snap model.RunSnapshot) []model.Alert {
	out := []model.Alert{}
	for _, c := range snap.Claims {
		if c.Confidence < e.cfg.HighConfidence {
			continue
		}
		out = append(out, model.Alert{
			Rule:     model.RuleHighConfidence,
			Severity: exceedSeverity(c.Confidence/e.cfg.HighConfidence, model.SeverityHigh),
			Message:  fmt.Sprintf("high-confidence claim (%.2f): %s", c.Confidence, truncate(c.Statement, 100)),
			ClaimID:  c.ID,
			Details: map[string]interface{}{
				"confidence": c.Confidence,
				"threshold":  e.cfg.HighConfidence,
			},
			Seq: c.Seq,
		})
	}
	return out
}

// wellSupported flags claims whose total evidence set meets the threshold.
func (e *Engine) wellSupported(snap model.RunSnapshot) []model.Alert {
	out := []model.Alert{}
	for _, c := range snap.Claims {
		total := c.TotalEvidence()
		if total < e.cfg.WellSupported {
			continue
		}
		out = append(out, model.Alert{
			Rule:     model.RuleWellSupported,
			Severity: exceedSeverity(float64(total)/float64(e.cfg.WellSupported), model.SeverityMedium),
			Message:  fmt.Sprintf("claim with substantial evidence (%d refs): %s", total, truncate(c.Statement, 100)),
			ClaimID:  c.ID,
			Details: map[string]interface{}{
				"total_evidence":   total,
				"supporting_count": len(c.SupportingIDs),
				"counter_count":    len(c.CounterIDs),
				"threshold":        e.cfg.WellSupported,
			},
			Seq: c.Seq,
		})
	}
	return out
}

// confidenceShift flags modified claims whose confidence moved by at least
// the configured epsilon, tagged as increase or decrease.
func (e *Engine) confidenceShift(d diff.Result) []model.Alert {
	out := []model.Alert{}
	for _, ch := range d.Modified {
		delta := ch.ConfidenceDelta
		if math.Abs(delta) < e.cfg.ConfidenceDeltaEpsilon {
			continue
		}
		direction := "increase"
		base := model.SeverityMedium
		if delta < 0 {
			direction = "decrease"
			// a drop in confidence is the more urgent signal
			base = model.SeverityHigh
		}
		out = append(out, model.Alert{
			Rule:     model.RuleConfidenceShift,
			Severity: exceedSeverity(math.Abs(delta)/e.cfg.ConfidenceDeltaEpsilon, base),
			Message:  fmt.Sprintf("confidence %s of %.2f on claim: %s", direction, math.Abs(delta), truncate(ch.New.Statement, 100)),
			ClaimID:  ch.New.ID,
			Details: map[string]interface{}{
				"direction":           direction,
				"previous_confidence": ch.Old.Confidence,
				"current_confidence":  ch.New.Confidence,
				"delta":               delta,
				"epsilon":             e.cfg.ConfidenceDeltaEpsilon,
			},
			Seq: ch.New.Seq,
		})
	}
	return out
}

// silentEdits promotes every silent edit in the diff to an alert. A source
// that changed content without changing its descriptor is always high
// severity.
func (e *Engine) silentEdits(d diff.Result) []model.Alert {
	out := []model.Alert{}
	for _, se := range d.SilentEdits {
		out = append(out, model.Alert{
			Rule:       model.RuleSilentEdit,
			Severity:   model.SeverityHigh,
			Message:    fmt.Sprintf("silent edit: source %q changed content between runs", se.Source),
			EvidenceID: se.NewID,
			Details: map[string]interface{}{
				"source": se.Source,
				"old_id": se.OldID,
				"new_id": se.NewID,
			},
			Seq: se.NewSeq,
		})
	}
	return out
}

// exceedSeverity escalates a base severity by how far the observed value
// exceeded its threshold: >=1.25x bumps once, >=1.5x twice, >=2x lands on
// critical.
func exceedSeverity(ratio float64, base model.AlertSeverity) model.AlertSeverity {
	bumps := 0
	switch {
	case ratio >= 2:
		bumps = 3
	case ratio >= 1.5:
		bumps = 2
	case ratio >= 1.25:
		bumps = 1
	}
	rank := base.Rank() + bumps
	if rank >= model.SeverityCritical.Rank() {
		return model.SeverityCritical
	}
	switch rank {
	case 2:
		return model.SeverityHigh
	case 1:
		return model.SeverityMedium
	}
	return model.SeverityLow
}

// dedupe keeps the first alert per (rule, entity) pair.
func dedupe(alerts []model.Alert) []model.Alert {
	seen := make(map[string]bool, len(alerts))
	out := []model.Alert{}
	for _, a := range alerts {
		key := string(a.Rule) + "|" + a.ClaimID + "|" + a.EvidenceID
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}
	return out
}

// truncate shortens s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
