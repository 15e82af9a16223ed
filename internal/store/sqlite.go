package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	_ "modernc.org/sqlite"

	"github.com/ppiankov/watchtower/internal/fingerprint"
	"github.com/ppiankov/watchtower/internal/model"
)

// SQLite is the durable ledger backend. Records are immutable once written,
// so point lookups go through a read-through cache; only appends touch the
// database under the writer lock.
type SQLite struct {
	mu    sync.Mutex
	db    *sql.DB
	fp    *fingerprint.Engine
	cache *gocache.Cache
}

// OpenSQLite creates or opens a ledger database at path.
func OpenSQLite(path string, precision int) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &SQLite{
		db:    db,
		fp:    fingerprint.New(precision),
		cache: gocache.New(time.Hour, 10*time.Minute),
	}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS evidence (
		id TEXT PRIMARY KEY,
		seq INTEGER NOT NULL UNIQUE,
		content TEXT NOT NULL,
		source TEXT NOT NULL,
		metadata_json TEXT,
		tool_name TEXT, tool_version TEXT, model_name TEXT, model_version TEXT,
		run_id TEXT,
		recorded_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_evidence_source ON evidence(source);

	CREATE TABLE IF NOT EXISTS claims (
		id TEXT PRIMARY KEY,
		seq INTEGER NOT NULL UNIQUE,
		natural_key TEXT NOT NULL,
		statement TEXT NOT NULL,
		confidence REAL NOT NULL,
		supporting_json TEXT NOT NULL,
		counter_json TEXT NOT NULL,
		tool_name TEXT, tool_version TEXT, model_name TEXT, model_version TEXT,
		run_id TEXT,
		run_fingerprint TEXT NOT NULL,
		recorded_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_claims_natural_key ON claims(natural_key);

	CREATE TABLE IF NOT EXISTS claim_evidence (
		claim_id TEXT NOT NULL,
		evidence_id TEXT NOT NULL,
		PRIMARY KEY (claim_id, evidence_id)
	);
	CREATE INDEX IF NOT EXISTS idx_claim_evidence_ev ON claim_evidence(evidence_id);

	CREATE TABLE IF NOT EXISTS artifacts (
		id TEXT PRIMARY KEY,
		seq INTEGER NOT NULL UNIQUE,
		type TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		parent_id TEXT,
		lineage_note TEXT,
		tool_name TEXT, tool_version TEXT, model_name TEXT, model_version TEXT,
		run_id TEXT,
		recorded_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		sealed INTEGER NOT NULL DEFAULT 0,
		review_completed INTEGER NOT NULL DEFAULT 0,
		fingerprint TEXT,
		started_at TEXT NOT NULL,
		sealed_at TEXT
	);

	CREATE TABLE IF NOT EXISTS run_members (
		run_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		record_id TEXT NOT NULL,
		pos INTEGER NOT NULL,
		PRIMARY KEY (run_id, kind, record_id)
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// StoreEvidence validates and appends an evidence record.
func (s *SQLite) StoreEvidence(content, source string, tool model.ToolIdentity, metadata map[string]string) (model.Evidence, error) {
	if content == "" {
		return model.Evidence{}, &model.ValidationError{Field: "content", Reason: "must not be empty"}
	}
	if source == "" {
		return model.Evidence{}, &model.ValidationError{Field: "source", Reason: "must not be empty"}
	}

	id := s.fp.EvidenceID(content, source, tool)

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return model.Evidence{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	active, err := activeRun(tx)
	if err != nil {
		return model.Evidence{}, err
	}

	if existing, err := getEvidenceTx(tx, id); err == nil {
		if err := attachMember(tx, active, "evidence", id); err != nil {
			return model.Evidence{}, err
		}
		if err := tx.Commit(); err != nil {
			return model.Evidence{}, fmt.Errorf("commit: %w", err)
		}
		return existing, nil
	}

	var seq int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM evidence`).Scan(&seq); err != nil {
		return model.Evidence{}, fmt.Errorf("next seq: %w", err)
	}

	ev := model.Evidence{
		ID:         id,
		Content:    content,
		Source:     source,
		Metadata:   copyMetadata(metadata),
		Tool:       tool,
		RunID:      active,
		Seq:        seq,
		RecordedAt: time.Now().UTC(),
	}
	metaJSON, err := json.Marshal(ev.Metadata)
	if err != nil {
		return model.Evidence{}, fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = tx.Exec(`INSERT INTO evidence
		(id, seq, content, source, metadata_json, tool_name, tool_version, model_name, model_version, run_id, recorded_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		ev.ID, ev.Seq, ev.Content, ev.Source, string(metaJSON),
		tool.Name, tool.Version, tool.ModelName, tool.ModelVersion,
		ev.RunID, ev.RecordedAt.Format(time.RFC3339Nano))
	if err != nil {
		return model.Evidence{}, fmt.Errorf("insert evidence: %w", err)
	}
	if err := attachMember(tx, active, "evidence", id); err != nil {
		return model.Evidence{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Evidence{}, fmt.Errorf("commit: %w", err)
	}
	s.cache.Set("evidence:"+id, ev, gocache.DefaultExpiration)
	return ev, nil
}

// GetEvidence fails with NotFoundError if the ID is absent.
func (s *SQLite) GetEvidence(id string) (model.Evidence, error) {
	if v, ok := s.cache.Get("evidence:" + id); ok {
		return v.(model.Evidence), nil
	}
	ev, err := getEvidenceQ(s.db, id)
	if err != nil {
		return model.Evidence{}, err
	}
	s.cache.Set("evidence:"+id, ev, gocache.DefaultExpiration)
	return ev, nil
}

// ListEvidence returns matching evidence in insertion order.
func (s *SQLite) ListEvidence(f EvidenceFilter) ([]model.Evidence, error) {
	query := `SELECT ` + evidenceCols + ` FROM evidence WHERE 1=1`
	args := []interface{}{}
	if f.Source != "" {
		query += ` AND source = ?`
		args = append(args, f.Source)
	}
	if !f.Since.IsZero() {
		query += ` AND recorded_at >= ?`
		args = append(args, f.Since.UTC().Format(time.RFC3339Nano))
	}
	query += ` ORDER BY seq`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list evidence: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []model.Evidence{}
	for rows.Next() {
		ev, err := scanEvidence(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// CountEvidence returns the number of stored evidence records.
func (s *SQLite) CountEvidence() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM evidence`).Scan(&n)
	return n, err
}

// VerifyEvidence recomputes the content-derived identifier and compares.
func (s *SQLite) VerifyEvidence(id string) (bool, error) {
	ev, err := s.GetEvidence(id)
	if err != nil {
		return false, err
	}
	return s.fp.EvidenceID(ev.Content, ev.Source, ev.Tool) == ev.ID, nil
}

// StoreClaim validates and appends a claim.
func (s *SQLite) StoreClaim(statement string, confidence float64, supportingIDs, counterIDs []string, tool model.ToolIdentity) (model.Claim, error) {
	if statement == "" {
		return model.Claim{}, &model.ValidationError{Field: "statement", Reason: "must not be empty"}
	}
	if math.IsNaN(confidence) || confidence < 0 || confidence > 1 {
		return model.Claim{}, &model.ValidationError{Field: "confidence", Reason: "must be in [0,1]"}
	}
	if len(supportingIDs)+len(counterIDs) == 0 {
		return model.Claim{}, &model.EvidenceRequiredError{Statement: statement}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return model.Claim{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, evID := range append(append([]string{}, supportingIDs...), counterIDs...) {
		var one int
		err := tx.QueryRow(`SELECT 1 FROM evidence WHERE id = ?`, evID).Scan(&one)
		if err == sql.ErrNoRows {
			return model.Claim{}, &model.ReferenceNotFoundError{Kind: "evidence", ID: evID}
		}
		if err != nil {
			return model.Claim{}, fmt.Errorf("resolve evidence ref: %w", err)
		}
	}

	active, err := activeRun(tx)
	if err != nil {
		return model.Claim{}, err
	}

	id := s.fp.ClaimID(statement, confidence, supportingIDs, counterIDs, tool)
	if existing, err := getClaimTx(tx, id); err == nil {
		if err := attachMember(tx, active, "claim", id); err != nil {
			return model.Claim{}, err
		}
		if err := tx.Commit(); err != nil {
			return model.Claim{}, fmt.Errorf("commit: %w", err)
		}
		return existing, nil
	}

	var seq int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM claims`).Scan(&seq); err != nil {
		return model.Claim{}, fmt.Errorf("next seq: %w", err)
	}

	c := model.Claim{
		ID:             id,
		NaturalKey:     s.fp.NaturalKey(statement),
		Statement:      statement,
		Confidence:     confidence,
		SupportingIDs:  append([]string{}, supportingIDs...),
		CounterIDs:     append([]string{}, counterIDs...),
		Tool:           tool,
		RunID:          active,
		RunFingerprint: s.fp.RunFingerprint(statement, confidence, supportingIDs, counterIDs, tool),
		Seq:            seq,
		RecordedAt:     time.Now().UTC(),
	}
	supJSON, _ := json.Marshal(c.SupportingIDs)
	ctrJSON, _ := json.Marshal(c.CounterIDs)

	_, err = tx.Exec(`INSERT INTO claims
		(id, seq, natural_key, statement, confidence, supporting_json, counter_json,
		 tool_name, tool_version, model_name, model_version, run_id, run_fingerprint, recorded_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		c.ID, c.Seq, c.NaturalKey, c.Statement, c.Confidence, string(supJSON), string(ctrJSON),
		tool.Name, tool.Version, tool.ModelName, tool.ModelVersion,
		c.RunID, c.RunFingerprint, c.RecordedAt.Format(time.RFC3339Nano))
	if err != nil {
		return model.Claim{}, fmt.Errorf("insert claim: %w", err)
	}
	for _, evID := range c.EvidenceRefs() {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO claim_evidence (claim_id, evidence_id) VALUES (?,?)`, c.ID, evID); err != nil {
			return model.Claim{}, fmt.Errorf("index claim evidence: %w", err)
		}
	}
	if err := attachMember(tx, active, "claim", id); err != nil {
		return model.Claim{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Claim{}, fmt.Errorf("commit: %w", err)
	}
	s.cache.Set("claim:"+id, c, gocache.DefaultExpiration)
	return c, nil
}

// GetClaim fails with NotFoundError if the ID is absent.
func (s *SQLite) GetClaim(id string) (model.Claim, error) {
	if v, ok := s.cache.Get("claim:" + id); ok {
		return v.(model.Claim), nil
	}
	c, err := getClaimQ(s.db, id)
	if err != nil {
		return model.Claim{}, err
	}
	s.cache.Set("claim:"+id, c, gocache.DefaultExpiration)
	return c, nil
}

// ListClaims returns matching claims in insertion order.
func (s *SQLite) ListClaims(f ClaimFilter) ([]model.Claim, error) {
	query := `SELECT ` + claimCols + ` FROM claims WHERE confidence >= ? ORDER BY seq`
	args := []interface{}{f.MinConfidence}
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	return s.queryClaims(query, args...)
}

// CountClaims returns the number of stored claims.
func (s *SQLite) CountClaims() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM claims`).Scan(&n)
	return n, err
}

// ClaimsByEvidence returns every claim referencing the given evidence.
func (s *SQLite) ClaimsByEvidence(evidenceID string) ([]model.Claim, error) {
	if _, err := s.GetEvidence(evidenceID); err != nil {
		return nil, err
	}
	return s.queryClaims(`SELECT `+claimCols+` FROM claims
		WHERE id IN (SELECT claim_id FROM claim_evidence WHERE evidence_id = ?)
		ORDER BY seq`, evidenceID)
}

// StoreArtifact validates and appends an artifact record.
func (s *SQLite) StoreArtifact(typ model.ArtifactType, contentHash, parentID, lineageNote string, tool model.ToolIdentity) (model.Artifact, error) {
	if !typ.Valid() {
		return model.Artifact{}, &model.ValidationError{Field: "type", Reason: "must be one of evidence, claim, derived, report"}
	}
	if contentHash == "" {
		return model.Artifact{}, &model.ValidationError{Field: "content_hash", Reason: "must not be empty"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return model.Artifact{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if parentID != "" {
		var one int
		err := tx.QueryRow(`SELECT 1 FROM artifacts WHERE id = ?`, parentID).Scan(&one)
		if err == sql.ErrNoRows {
			return model.Artifact{}, &model.ReferenceNotFoundError{Kind: "artifact", ID: parentID}
		}
		if err != nil {
			return model.Artifact{}, fmt.Errorf("resolve parent: %w", err)
		}
	}

	active, err := activeRun(tx)
	if err != nil {
		return model.Artifact{}, err
	}

	id := s.fp.ArtifactID(typ, contentHash, parentID, tool)
	if existing, err := getArtifactTx(tx, id); err == nil {
		if err := attachMember(tx, active, "artifact", id); err != nil {
			return model.Artifact{}, err
		}
		if err := tx.Commit(); err != nil {
			return model.Artifact{}, fmt.Errorf("commit: %w", err)
		}
		return existing, nil
	}

	var seq int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM artifacts`).Scan(&seq); err != nil {
		return model.Artifact{}, fmt.Errorf("next seq: %w", err)
	}

	a := model.Artifact{
		ID:          id,
		Type:        typ,
		ContentHash: contentHash,
		ParentID:    parentID,
		LineageNote: lineageNote,
		Tool:        tool,
		RunID:       active,
		Seq:         seq,
		RecordedAt:  time.Now().UTC(),
	}
	_, err = tx.Exec(`INSERT INTO artifacts
		(id, seq, type, content_hash, parent_id, lineage_note, tool_name, tool_version, model_name, model_version, run_id, recorded_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		a.ID, a.Seq, string(a.Type), a.ContentHash, a.ParentID, a.LineageNote,
		tool.Name, tool.Version, tool.ModelName, tool.ModelVersion,
		a.RunID, a.RecordedAt.Format(time.RFC3339Nano))
	if err != nil {
		return model.Artifact{}, fmt.Errorf("insert artifact: %w", err)
	}
	if err := attachMember(tx, active, "artifact", id); err != nil {
		return model.Artifact{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Artifact{}, fmt.Errorf("commit: %w", err)
	}
	s.cache.Set("artifact:"+id, a, gocache.DefaultExpiration)
	return a, nil
}

// GetArtifact fails with NotFoundError if the ID is absent.
func (s *SQLite) GetArtifact(id string) (model.Artifact, error) {
	if v, ok := s.cache.Get("artifact:" + id); ok {
		return v.(model.Artifact), nil
	}
	a, err := getArtifactQ(s.db, id)
	if err != nil {
		return model.Artifact{}, err
	}
	s.cache.Set("artifact:"+id, a, gocache.DefaultExpiration)
	return a, nil
}

// ListArtifacts returns all artifacts in insertion order.
func (s *SQLite) ListArtifacts() ([]model.Artifact, error) {
	rows, err := s.db.Query(`SELECT ` + artifactCols + ` FROM artifacts ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []model.Artifact{}
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Lineage walks from the given artifact up to its root ancestor.
func (s *SQLite) Lineage(id string) ([]model.Artifact, error) {
	a, err := s.GetArtifact(id)
	if err != nil {
		return nil, err
	}
	chain := []model.Artifact{a}
	for a.ParentID != "" {
		a, err = s.GetArtifact(a.ParentID)
		if err != nil {
			return nil, err
		}
		chain = append(chain, a)
	}
	return chain, nil
}

// BeginRun opens a new run and makes it the active one.
func (s *SQLite) BeginRun(runID string) (model.Run, error) {
	if runID == "" {
		return model.Run{}, &model.ValidationError{Field: "run_id", Reason: "must not be empty"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return model.Run{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var one int
	err = tx.QueryRow(`SELECT 1 FROM runs WHERE id = ?`, runID).Scan(&one)
	if err == nil {
		return model.Run{}, &model.ValidationError{Field: "run_id", Reason: "run already exists: " + runID}
	}
	if err != sql.ErrNoRows {
		return model.Run{}, fmt.Errorf("check run: %w", err)
	}

	run := model.Run{ID: runID, StartedAt: time.Now().UTC()}
	if _, err := tx.Exec(`INSERT INTO runs (id, started_at) VALUES (?,?)`, run.ID, run.StartedAt.Format(time.RFC3339Nano)); err != nil {
		return model.Run{}, fmt.Errorf("insert run: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO meta (key, value) VALUES ('active_run', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, runID); err != nil {
		return model.Run{}, fmt.Errorf("set active run: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Run{}, fmt.Errorf("commit: %w", err)
	}
	return run, nil
}

// SealRun freezes the run's member set and stamps its fingerprint.
func (s *SQLite) SealRun(runID string) (model.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return model.Run{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	run, err := getRunTx(tx, runID)
	if err != nil {
		return model.Run{}, err
	}
	if run.Sealed {
		return model.Run{}, &model.RunSealedError{RunID: runID}
	}

	rows, err := tx.Query(`SELECT record_id FROM run_members WHERE run_id = ? ORDER BY pos`, runID)
	if err != nil {
		return model.Run{}, fmt.Errorf("load members: %w", err)
	}
	members := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return model.Run{}, err
		}
		members = append(members, id)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return model.Run{}, err
	}

	run.Fingerprint = s.fp.Manifest(runID, members)
	run.Sealed = true
	run.SealedAt = time.Now().UTC()

	if _, err := tx.Exec(`UPDATE runs SET sealed = 1, fingerprint = ?, sealed_at = ? WHERE id = ?`,
		run.Fingerprint, run.SealedAt.Format(time.RFC3339Nano), runID); err != nil {
		return model.Run{}, fmt.Errorf("seal run: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM meta WHERE key = 'active_run' AND value = ?`, runID); err != nil {
		return model.Run{}, fmt.Errorf("clear active run: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Run{}, fmt.Errorf("commit: %w", err)
	}
	return run, nil
}

// MarkReviewed flags a sealed run as having completed adversarial review.
func (s *SQLite) MarkReviewed(runID string) (model.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return model.Run{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	run, err := getRunTx(tx, runID)
	if err != nil {
		return model.Run{}, err
	}
	if !run.Sealed {
		return model.Run{}, &model.RunNotSealedError{RunID: runID}
	}
	if _, err := tx.Exec(`UPDATE runs SET review_completed = 1 WHERE id = ?`, runID); err != nil {
		return model.Run{}, fmt.Errorf("mark reviewed: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Run{}, fmt.Errorf("commit: %w", err)
	}
	run.ReviewCompleted = true
	return run, nil
}

// GetRun fails with NotFoundError if the run is unknown.
func (s *SQLite) GetRun(runID string) (model.Run, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return model.Run{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	return getRunTx(tx, runID)
}

// Snapshot returns the frozen state of a sealed run.
func (s *SQLite) Snapshot(runID string) (model.RunSnapshot, error) {
	run, err := s.GetRun(runID)
	if err != nil {
		return model.RunSnapshot{}, err
	}
	if !run.Sealed {
		return model.RunSnapshot{}, &model.RunNotSealedError{RunID: runID}
	}

	snap := model.RunSnapshot{Run: run}

	evs, err := s.queryEvidence(`SELECT `+evidenceCols+` FROM evidence
		WHERE id IN (SELECT record_id FROM run_members WHERE run_id = ? AND kind = 'evidence')
		ORDER BY seq`, runID)
	if err != nil {
		return model.RunSnapshot{}, err
	}
	snap.Evidence = evs

	claims, err := s.queryClaims(`SELECT `+claimCols+` FROM claims
		WHERE id IN (SELECT record_id FROM run_members WHERE run_id = ? AND kind = 'claim')
		ORDER BY seq`, runID)
	if err != nil {
		return model.RunSnapshot{}, err
	}
	snap.Claims = claims

	rows, err := s.db.Query(`SELECT `+artifactCols+` FROM artifacts
		WHERE id IN (SELECT record_id FROM run_members WHERE run_id = ? AND kind = 'artifact')
		ORDER BY seq`, runID)
	if err != nil {
		return model.RunSnapshot{}, fmt.Errorf("snapshot artifacts: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return model.RunSnapshot{}, err
		}
		snap.Artifacts = append(snap.Artifacts, a)
	}
	return snap, rows.Err()
}
