package model

// AlertRule names a threshold rule evaluated by the alert engine.
type AlertRule string

const (
	RuleHighConfidence  AlertRule = "high_confidence"
	RuleWellSupported   AlertRule = "well_supported"
	RuleConfidenceShift AlertRule = "confidence_shift"
	RuleSilentEdit      AlertRule = "silent_edit"
)

// AlertSeverity indicates how urgent an alert is.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// Rank orders severities for sorting; higher is more severe.
func (s AlertSeverity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	default:
		return 0
	}
}

// Alert is one finding produced by a threshold rule, carrying the related
// entity identifiers and transparent data about why the rule fired.
type Alert struct {
	Rule       AlertRule              `json:"rule"`
	Severity   AlertSeverity          `json:"severity"`
	Message    string                 `json:"message"`
	ClaimID    string                 `json:"claim_id,omitempty"`
	EvidenceID string                 `json:"evidence_id,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Seq        int                    `json:"-"` // creation order of the related entity, for stable output order
}
