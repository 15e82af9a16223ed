package model

import "time"

// Run is a bounded batch of ledger activity. Records appended while the run is
// open are stamped with its ID; sealing freezes the member set so the run can
// be diffed, reviewed, and exported against a stable snapshot.
type Run struct {
	ID              string    `json:"id"`
	Sealed          bool      `json:"sealed"`
	ReviewCompleted bool      `json:"review_completed"`
	Fingerprint     string    `json:"fingerprint,omitempty"` // set at seal time
	StartedAt       time.Time `json:"started_at"`
	SealedAt        time.Time `json:"sealed_at,omitempty"`
}

// RunSnapshot is the frozen state of a sealed run: the run header plus every
// record appended between its boundaries, in insertion order. Diff, alert and
// export computations operate on snapshots only.
type RunSnapshot struct {
	Run       Run        `json:"run"`
	Evidence  []Evidence `json:"evidence"`
	Claims    []Claim    `json:"claims"`
	Artifacts []Artifact `json:"artifacts"`
}

// ClaimsByNaturalKey indexes the snapshot's claims by natural key. When the
// same key appears more than once inside a single run the latest record wins.
func (s RunSnapshot) ClaimsByNaturalKey() map[string]Claim {
	m := make(map[string]Claim, len(s.Claims))
	for _, c := range s.Claims {
		m[c.NaturalKey] = c
	}
	return m
}

// EvidenceBySource indexes the snapshot's evidence by source descriptor.
func (s RunSnapshot) EvidenceBySource() map[string][]Evidence {
	m := make(map[string][]Evidence)
	for _, e := range s.Evidence {
		m[e.Source] = append(m[e.Source], e)
	}
	return m
}
