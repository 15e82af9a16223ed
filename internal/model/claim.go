package model

import "time"

// Claim is an assertion backed by at least one evidence reference.
//
// A claim is never mutated. A "changed" claim across runs is a new record
// sharing the same NaturalKey; the diff engine correlates them by that key,
// never by the storage ID.
type Claim struct {
	ID             string       `json:"id"`
	NaturalKey     string       `json:"natural_key"` // digest of statement text, stable across runs
	Statement      string       `json:"statement"`
	Confidence     float64      `json:"confidence"` // in [0,1]
	SupportingIDs  []string     `json:"supporting_evidence_ids"`
	CounterIDs     []string     `json:"counter_evidence_ids"`
	Tool           ToolIdentity `json:"tool"`
	RunID          string       `json:"run_id"`
	RunFingerprint string       `json:"run_fingerprint"`
	Seq            int          `json:"seq"`
	RecordedAt     time.Time    `json:"recorded_at"`
}

// EvidenceRefs returns all evidence references, supporting first.
func (c Claim) EvidenceRefs() []string {
	refs := make([]string, 0, len(c.SupportingIDs)+len(c.CounterIDs))
	refs = append(refs, c.SupportingIDs...)
	refs = append(refs, c.CounterIDs...)
	return refs
}

// TotalEvidence is the size of the supporting + counter reference set.
func (c Claim) TotalEvidence() int {
	return len(c.SupportingIDs) + len(c.CounterIDs)
}
