package store

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/ppiankov/watchtower/internal/fingerprint"
	"github.com/ppiankov/watchtower/internal/model"
)

// runState tracks one run's membership while the ledger is live.
type runState struct {
	run         model.Run
	evidenceIDs []string
	claimIDs    []string
	artifactIDs []string
	members     map[string]bool
}

// Memory is the in-memory ledger backend. It backs tests and the default
// configuration; the sqlite backend provides the same semantics durably.
type Memory struct {
	mu sync.RWMutex
	fp *fingerprint.Engine

	evidence     []model.Evidence
	evidenceByID map[string]int

	claims           []model.Claim
	claimsByID       map[string]int
	claimsByEvidence map[string][]int

	artifacts     []model.Artifact
	artifactsByID map[string]int

	runs      map[string]*runState
	activeRun string
}

// NewMemory creates an empty in-memory ledger.
func NewMemory(precision int) *Memory {
	return &Memory{
		fp:               fingerprint.New(precision),
		evidenceByID:     make(map[string]int),
		claimsByID:       make(map[string]int),
		claimsByEvidence: make(map[string][]int),
		artifactsByID:    make(map[string]int),
		runs:             make(map[string]*runState),
	}
}

// Close is a no-op for the memory backend.
func (m *Memory) Close() error { return nil }

// StoreEvidence validates and appends an evidence record. Re-storing
// identical content is idempotent and attaches the record to the open run.
func (m *Memory) StoreEvidence(content, source string, tool model.ToolIdentity, metadata map[string]string) (model.Evidence, error) {
	if content == "" {
		return model.Evidence{}, &model.ValidationError{Field: "content", Reason: "must not be empty"}
	}
	if source == "" {
		return model.Evidence{}, &model.ValidationError{Field: "source", Reason: "must not be empty"}
	}

	id := m.fp.EvidenceID(content, source, tool)

	m.mu.Lock()
	defer m.mu.Unlock()

	if idx, ok := m.evidenceByID[id]; ok {
		m.attach(memberEvidence, id)
		return m.evidence[idx], nil
	}

	ev := model.Evidence{
		ID:         id,
		Content:    content,
		Source:     source,
		Metadata:   copyMetadata(metadata),
		Tool:       tool,
		RunID:      m.activeRun,
		Seq:        len(m.evidence),
		RecordedAt: time.Now().UTC(),
	}
	m.evidence = append(m.evidence, ev)
	m.evidenceByID[id] = ev.Seq
	m.attach(memberEvidence, id)
	return ev, nil
}

// GetEvidence fails with NotFoundError if the ID is absent.
func (m *Memory) GetEvidence(id string) (model.Evidence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx, ok := m.evidenceByID[id]
	if !ok {
		return model.Evidence{}, &model.NotFoundError{Kind: "evidence", ID: id}
	}
	return m.evidence[idx], nil
}

// ListEvidence returns matching evidence in insertion order.
func (m *Memory) ListEvidence(f EvidenceFilter) ([]model.Evidence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []model.Evidence{}
	for _, ev := range m.evidence {
		if f.Source != "" && ev.Source != f.Source {
			continue
		}
		if !f.Since.IsZero() && ev.RecordedAt.Before(f.Since) {
			continue
		}
		out = append(out, ev)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// CountEvidence returns the number of stored evidence records.
func (m *Memory) CountEvidence() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.evidence), nil
}

// VerifyEvidence recomputes the content-derived identifier and compares.
func (m *Memory) VerifyEvidence(id string) (bool, error) {
	ev, err := m.GetEvidence(id)
	if err != nil {
		return false, err
	}
	return m.fp.EvidenceID(ev.Content, ev.Source, ev.Tool) == ev.ID, nil
}

// StoreClaim validates and appends a claim. Validation order: confidence
// range, evidence-required gate, then referential checks against the evidence
// already in the ledger.
func (m *Memory) StoreClaim(statement string, confidence float64, supportingIDs, counterIDs []string, tool model.ToolIdentity) (model.Claim, error) {
	if statement == "" {
		return model.Claim{}, &model.ValidationError{Field: "statement", Reason: "must not be empty"}
	}
	if math.IsNaN(confidence) || confidence < 0 || confidence > 1 {
		return model.Claim{}, &model.ValidationError{Field: "confidence", Reason: "must be in [0,1]"}
	}
	if len(supportingIDs)+len(counterIDs) == 0 {
		return model.Claim{}, &model.EvidenceRequiredError{Statement: statement}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, evID := range append(append([]string{}, supportingIDs...), counterIDs...) {
		if _, ok := m.evidenceByID[evID]; !ok {
			return model.Claim{}, &model.ReferenceNotFoundError{Kind: "evidence", ID: evID}
		}
	}

	id := m.fp.ClaimID(statement, confidence, supportingIDs, counterIDs, tool)
	if idx, ok := m.claimsByID[id]; ok {
		m.attach(memberClaim, id)
		return m.claims[idx], nil
	}

	c := model.Claim{
		ID:             id,
		NaturalKey:     m.fp.NaturalKey(statement),
		Statement:      statement,
		Confidence:     confidence,
		SupportingIDs:  append([]string{}, supportingIDs...),
		CounterIDs:     append([]string{}, counterIDs...),
		Tool:           tool,
		RunID:          m.activeRun,
		RunFingerprint: m.fp.RunFingerprint(statement, confidence, supportingIDs, counterIDs, tool),
		Seq:            len(m.claims),
		RecordedAt:     time.Now().UTC(),
	}
	m.claims = append(m.claims, c)
	m.claimsByID[id] = c.Seq
	for _, evID := range c.EvidenceRefs() {
		m.claimsByEvidence[evID] = append(m.claimsByEvidence[evID], c.Seq)
	}
	m.attach(memberClaim, id)
	return c, nil
}

// GetClaim fails with NotFoundError if the ID is absent.
func (m *Memory) GetClaim(id string) (model.Claim, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx, ok := m.claimsByID[id]
	if !ok {
		return model.Claim{}, &model.NotFoundError{Kind: "claim", ID: id}
	}
	return m.claims[idx], nil
}

// ListClaims returns matching claims in insertion order.
func (m *Memory) ListClaims(f ClaimFilter) ([]model.Claim, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []model.Claim{}
	for _, c := range m.claims {
		if c.Confidence < f.MinConfidence {
			continue
		}
		out = append(out, c)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// CountClaims returns the number of stored claims.
func (m *Memory) CountClaims() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.claims), nil
}

// ClaimsByEvidence returns every claim referencing the given evidence.
func (m *Memory) ClaimsByEvidence(evidenceID string) ([]model.Claim, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.evidenceByID[evidenceID]; !ok {
		return nil, &model.NotFoundError{Kind: "evidence", ID: evidenceID}
	}
	out := []model.Claim{}
	for _, idx := range m.claimsByEvidence[evidenceID] {
		out = append(out, m.claims[idx])
	}
	return out, nil
}

// StoreArtifact validates and appends an artifact record.
func (m *Memory) StoreArtifact(typ model.ArtifactType, contentHash, parentID, lineageNote string, tool model.ToolIdentity) (model.Artifact, error) {
	if !typ.Valid() {
		return model.Artifact{}, &model.ValidationError{Field: "type", Reason: "must be one of evidence, claim, derived, report"}
	}
	if contentHash == "" {
		return model.Artifact{}, &model.ValidationError{Field: "content_hash", Reason: "must not be empty"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if parentID != "" {
		if _, ok := m.artifactsByID[parentID]; !ok {
			return model.Artifact{}, &model.ReferenceNotFoundError{Kind: "artifact", ID: parentID}
		}
	}

	id := m.fp.ArtifactID(typ, contentHash, parentID, tool)
	if idx, ok := m.artifactsByID[id]; ok {
		m.attach(memberArtifact, id)
		return m.artifacts[idx], nil
	}

	a := model.Artifact{
		ID:          id,
		Type:        typ,
		ContentHash: contentHash,
		ParentID:    parentID,
		LineageNote: lineageNote,
		Tool:        tool,
		RunID:       m.activeRun,
		Seq:         len(m.artifacts),
		RecordedAt:  time.Now().UTC(),
	}
	m.artifacts = append(m.artifacts, a)
	m.artifactsByID[id] = a.Seq
	m.attach(memberArtifact, id)
	return a, nil
}

// GetArtifact fails with NotFoundError if the ID is absent.
func (m *Memory) GetArtifact(id string) (model.Artifact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx, ok := m.artifactsByID[id]
	if !ok {
		return model.Artifact{}, &model.NotFoundError{Kind: "artifact", ID: id}
	}
	return m.artifacts[idx], nil
}

// ListArtifacts returns all artifacts in insertion order.
func (m *Memory) ListArtifacts() ([]model.Artifact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.Artifact{}, m.artifacts...), nil
}

// Lineage walks from the given artifact up to its root ancestor.
func (m *Memory) Lineage(id string) ([]model.Artifact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx, ok := m.artifactsByID[id]
	if !ok {
		return nil, &model.NotFoundError{Kind: "artifact", ID: id}
	}
	chain := []model.Artifact{m.artifacts[idx]}
	for m.artifacts[idx].ParentID != "" {
		idx = m.artifactsByID[m.artifacts[idx].ParentID]
		chain = append(chain, m.artifacts[idx])
	}
	return chain, nil
}

// BeginRun opens a new run and makes it the active one.
func (m *Memory) BeginRun(runID string) (model.Run, error) {
	if runID == "" {
		return model.Run{}, &model.ValidationError{Field: "run_id", Reason: "must not be empty"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.runs[runID]; ok {
		return model.Run{}, &model.ValidationError{Field: "run_id", Reason: "run already exists: " + runID}
	}
	rs := &runState{
		run:     model.Run{ID: runID, StartedAt: time.Now().UTC()},
		members: make(map[string]bool),
	}
	m.runs[runID] = rs
	m.activeRun = runID
	return rs.run, nil
}

// SealRun freezes the run's member set and stamps its fingerprint.
func (m *Memory) SealRun(runID string) (model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rs, ok := m.runs[runID]
	if !ok {
		return model.Run{}, &model.NotFoundError{Kind: "run", ID: runID}
	}
	if rs.run.Sealed {
		return model.Run{}, &model.RunSealedError{RunID: runID}
	}

	members := append([]string{}, rs.evidenceIDs...)
	members = append(members, rs.claimIDs...)
	members = append(members, rs.artifactIDs...)
	rs.run.Fingerprint = m.fp.Manifest(runID, members)
	rs.run.Sealed = true
	rs.run.SealedAt = time.Now().UTC()
	if m.activeRun == runID {
		m.activeRun = ""
	}
	return rs.run, nil
}

// MarkReviewed flags a sealed run as having completed adversarial review.
func (m *Memory) MarkReviewed(runID string) (model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rs, ok := m.runs[runID]
	if !ok {
		return model.Run{}, &model.NotFoundError{Kind: "run", ID: runID}
	}
	if !rs.run.Sealed {
		return model.Run{}, &model.RunNotSealedError{RunID: runID}
	}
	rs.run.ReviewCompleted = true
	return rs.run, nil
}

// GetRun fails with NotFoundError if the run is unknown.
func (m *Memory) GetRun(runID string) (model.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rs, ok := m.runs[runID]
	if !ok {
		return model.Run{}, &model.NotFoundError{Kind: "run", ID: runID}
	}
	return rs.run, nil
}

// Snapshot returns the frozen state of a sealed run.
func (m *Memory) Snapshot(runID string) (model.RunSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rs, ok := m.runs[runID]
	if !ok {
		return model.RunSnapshot{}, &model.NotFoundError{Kind: "run", ID: runID}
	}
	if !rs.run.Sealed {
		return model.RunSnapshot{}, &model.RunNotSealedError{RunID: runID}
	}

	snap := model.RunSnapshot{Run: rs.run}
	for _, id := range rs.evidenceIDs {
		snap.Evidence = append(snap.Evidence, m.evidence[m.evidenceByID[id]])
	}
	for _, id := range rs.claimIDs {
		snap.Claims = append(snap.Claims, m.claims[m.claimsByID[id]])
	}
	for _, id := range rs.artifactIDs {
		snap.Artifacts = append(snap.Artifacts, m.artifacts[m.artifactsByID[id]])
	}
	sort.SliceStable(snap.Evidence, func(i, j int) bool { return snap.Evidence[i].Seq < snap.Evidence[j].Seq })
	sort.SliceStable(snap.Claims, func(i, j int) bool { return snap.Claims[i].Seq < snap.Claims[j].Seq })
	sort.SliceStable(snap.Artifacts, func(i, j int) bool { return snap.Artifacts[i].Seq < snap.Artifacts[j].Seq })
	return snap, nil
}

type memberKind int

const (
	memberEvidence memberKind = iota
	memberClaim
	memberArtifact
)

// attach adds id to the active run's member set exactly once. Records
// appended while no run is open belong to no run. Caller must hold the write
// lock.
func (m *Memory) attach(kind memberKind, id string) {
	if m.activeRun == "" {
		return
	}
	rs := m.runs[m.activeRun]
	if rs.members[id] {
		return
	}
	rs.members[id] = true
	switch kind {
	case memberEvidence:
		rs.evidenceIDs = append(rs.evidenceIDs, id)
	case memberClaim:
		rs.claimIDs = append(rs.claimIDs, id)
	case memberArtifact:
		rs.artifactIDs = append(rs.artifactIDs, id)
	}
}

func copyMetadata(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
