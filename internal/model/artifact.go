package model

import "time"

// ArtifactType classifies what an artifact snapshot wraps.
type ArtifactType string

const (
	ArtifactEvidence ArtifactType = "evidence"
	ArtifactClaim    ArtifactType = "claim"
	ArtifactDerived  ArtifactType = "derived"
	ArtifactReport   ArtifactType = "report"
)

// Valid reports whether t is one of the known artifact types.
func (t ArtifactType) Valid() bool {
	switch t {
	case ArtifactEvidence, ArtifactClaim, ArtifactDerived, ArtifactReport:
		return true
	}
	return false
}

// Artifact is a typed, versioned wrapper for any snapshot. A parent reference
// must point at an artifact with a strictly smaller Seq, which makes the
// lineage graph acyclic by construction.
type Artifact struct {
	ID          string       `json:"id"`
	Type        ArtifactType `json:"type"`
	ContentHash string       `json:"content_hash"`
	ParentID    string       `json:"parent_id,omitempty"`
	LineageNote string       `json:"lineage_note,omitempty"`
	Tool        ToolIdentity `json:"tool"`
	RunID       string       `json:"run_id"`
	Seq         int          `json:"seq"`
	RecordedAt  time.Time    `json:"recorded_at"`
}
