// Package seal builds and signs manifests for sealed runs. A manifest is the
// portable, verifiable summary of a run: its member record identifiers and
// the fingerprint computed over them.
package seal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ppiankov/watchtower/internal/fingerprint"
	"github.com/ppiankov/watchtower/internal/model"
)

// Manifest is the canonical description of a sealed run.
type Manifest struct {
	RunID       string    `json:"run_id"`
	Fingerprint string    `json:"fingerprint"`
	SealedAt    time.Time `json:"sealed_at"`
	EvidenceIDs []string  `json:"evidence_ids"`
	ClaimIDs    []string  `json:"claim_ids"`
	ArtifactIDs []string  `json:"artifact_ids"`
}

// Build constructs the manifest for a sealed run snapshot.
func Build(snap model.RunSnapshot) (*Manifest, error) {
	if !snap.Run.Sealed {
		return nil, &model.RunNotSealedError{RunID: snap.Run.ID}
	}

	m := &Manifest{
		RunID:       snap.Run.ID,
		Fingerprint: snap.Run.Fingerprint,
		SealedAt:    snap.Run.SealedAt,
	}
	for _, ev := range snap.Evidence {
		m.EvidenceIDs = append(m.EvidenceIDs, ev.ID)
	}
	for _, c := range snap.Claims {
		m.ClaimIDs = append(m.ClaimIDs, c.ID)
	}
	for _, a := range snap.Artifacts {
		m.ArtifactIDs = append(m.ArtifactIDs, a.ID)
	}
	return m, nil
}

// Encode renders the manifest as indented JSON. Field order is fixed so the
// same manifest always encodes to the same bytes.
func (m *Manifest) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a manifest from JSON bytes.
func Decode(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}

// Verify recomputes the run fingerprint from the manifest's member ids and
// compares it to the recorded one.
func (m *Manifest) Verify(fp *fingerprint.Engine) error {
	members := make([]string, 0, len(m.EvidenceIDs)+len(m.ClaimIDs)+len(m.ArtifactIDs))
	members = append(members, m.EvidenceIDs...)
	members = append(members, m.ClaimIDs...)
	members = append(members, m.ArtifactIDs...)

	want := fp.Manifest(m.RunID, members)
	if want != m.Fingerprint {
		return fmt.Errorf("manifest fingerprint mismatch for run %s: recorded %s, recomputed %s", m.RunID, m.Fingerprint, want)
	}
	return nil
}
