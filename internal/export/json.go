package export

import (
	"encoding/json"
	"time"

	"github.com/ppiankov/watchtower/internal/model"
)

// CaseFile is the machine-readable export format for a sealed run.
type CaseFile struct {
	Title          string            `json:"title"`
	GeneratedAt    time.Time         `json:"generated_at"`
	Run            model.Run         `json:"run"`
	Summary        CaseFileSummary   `json:"summary"`
	Narrative      string            `json:"narrative,omitempty"`
	Claims         []model.Claim     `json:"claims"`
	Evidence       []model.Evidence  `json:"evidence"`
	Artifacts      []model.Artifact  `json:"artifacts,omitempty"`
}

// CaseFileSummary carries the headline counts.
type CaseFileSummary struct {
	TotalClaims   int `json:"total_claims"`
	TotalEvidence int `json:"total_evidence"`
}

// RenderJSON produces the JSON case file for a sealed run. Call only after
// the gate has passed.
func RenderJSON(snap model.RunSnapshot, narrative, title string) ([]byte, error) {
	cf := CaseFile{
		Title:       title,
		GeneratedAt: time.Now().UTC(),
		Run:         snap.Run,
		Summary: CaseFileSummary{
			TotalClaims:   len(snap.Claims),
			TotalEvidence: len(snap.Evidence),
		},
		Narrative: narrative,
		Claims:    snap.Claims,
		Evidence:  snap.Evidence,
		Artifacts: snap.Artifacts,
	}
	return json.MarshalIndent(cf, "", "  ")
}
