// Package store defines the append-only ledger contract and its backends.
//
// The ledger has no update or delete operations. That is a design constraint,
// not an oversight: the absence of mutation is what makes the audit trail
// trustworthy. Storage identifiers are content-derived, so re-recording
// identical content is idempotent: the existing record is returned and, when
// a run is open, attached to that run's member set.
package store

import (
	"fmt"
	"time"

	"github.com/ppiankov/watchtower/internal/model"
)

// EvidenceFilter narrows ListEvidence results. Zero value matches everything.
type EvidenceFilter struct {
	Source string    // exact source descriptor
	Since  time.Time // only records recorded at or after this time
	Limit  int       // 0 means no limit
}

// ClaimFilter narrows ListClaims results. Zero value matches everything,
// since every stored confidence is >= 0.
type ClaimFilter struct {
	MinConfidence float64
	Limit         int
}

// Ledger is the storage contract for the evidence/claim/artifact ledger.
// Implementations must make appends atomic with respect to identifier
// assignment: concurrent store calls never lose a write and never produce
// conflicting records under one identifier.
type Ledger interface {
	// StoreEvidence validates and appends an evidence record. Content and
	// source must be non-empty.
	StoreEvidence(content, source string, tool model.ToolIdentity, metadata map[string]string) (model.Evidence, error)
	GetEvidence(id string) (model.Evidence, error)
	// ListEvidence returns evidence in insertion order; that order is
	// semantically meaningful for audit review.
	ListEvidence(f EvidenceFilter) ([]model.Evidence, error)
	CountEvidence() (int, error)
	// VerifyEvidence recomputes the record's identifier from its stored
	// fields and compares it to the stored one.
	VerifyEvidence(id string) (bool, error)

	// StoreClaim validates confidence, resolves every referenced evidence ID,
	// enforces the evidence-required gate, then appends.
	StoreClaim(statement string, confidence float64, supportingIDs, counterIDs []string, tool model.ToolIdentity) (model.Claim, error)
	GetClaim(id string) (model.Claim, error)
	ListClaims(f ClaimFilter) ([]model.Claim, error)
	CountClaims() (int, error)
	// ClaimsByEvidence returns every claim referencing the given evidence ID.
	ClaimsByEvidence(evidenceID string) ([]model.Claim, error)

	// StoreArtifact appends a typed snapshot wrapper. A parent reference must
	// resolve to a previously created artifact, which forbids forward and
	// self references and therefore cycles.
	StoreArtifact(typ model.ArtifactType, contentHash, parentID, lineageNote string, tool model.ToolIdentity) (model.Artifact, error)
	GetArtifact(id string) (model.Artifact, error)
	ListArtifacts() ([]model.Artifact, error)
	// Lineage walks from the given artifact up through its ancestors to the
	// root. Terminates because parents are strictly earlier than children.
	Lineage(id string) ([]model.Artifact, error)

	// BeginRun opens a run; records appended while it is open become members.
	BeginRun(runID string) (model.Run, error)
	// SealRun freezes the run's member set and stamps its fingerprint.
	SealRun(runID string) (model.Run, error)
	// MarkReviewed sets the adversarial-review-completed flag on a sealed run.
	MarkReviewed(runID string) (model.Run, error)
	GetRun(runID string) (model.Run, error)
	// Snapshot returns the frozen state of a sealed run. Snapshotting a run
	// still accepting writes fails with RunNotSealedError.
	Snapshot(runID string) (model.RunSnapshot, error)

	Close() error
}

// Open selects a backend from explicit configuration.
func Open(cfg *model.Config) (Ledger, error) {
	switch cfg.Storage.Backend {
	case "", "memory":
		return NewMemory(cfg.Fingerprint.Precision), nil
	case "sqlite":
		return OpenSQLite(cfg.Storage.Path, cfg.Fingerprint.Precision)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: memory, sqlite)", cfg.Storage.Backend)
	}
}
