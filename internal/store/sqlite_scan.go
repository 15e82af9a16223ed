package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ppiankov/watchtower/internal/model"
)

const (
	evidenceCols = `id, seq, content, source, metadata_json, tool_name, tool_version, model_name, model_version, run_id, recorded_at`
	claimCols    = `id, seq, natural_key, statement, confidence, supporting_json, counter_json, tool_name, tool_version, model_name, model_version, run_id, run_fingerprint, recorded_at`
	artifactCols = `id, seq, type, content_hash, parent_id, lineage_note, tool_name, tool_version, model_name, model_version, run_id, recorded_at`
)

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryRow(query string, args ...interface{}) *sql.Row
}

func scanEvidence(r rowScanner) (model.Evidence, error) {
	var ev model.Evidence
	var metaJSON, recordedAt string
	err := r.Scan(&ev.ID, &ev.Seq, &ev.Content, &ev.Source, &metaJSON,
		&ev.Tool.Name, &ev.Tool.Version, &ev.Tool.ModelName, &ev.Tool.ModelVersion,
		&ev.RunID, &recordedAt)
	if err != nil {
		return model.Evidence{}, err
	}
	if metaJSON != "" && metaJSON != "null" {
		if err := json.Unmarshal([]byte(metaJSON), &ev.Metadata); err != nil {
			return model.Evidence{}, fmt.Errorf("decode metadata: %w", err)
		}
	}
	ev.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt)
	if err != nil {
		return model.Evidence{}, fmt.Errorf("parse recorded_at: %w", err)
	}
	return ev, nil
}

func scanClaim(r rowScanner) (model.Claim, error) {
	var c model.Claim
	var supJSON, ctrJSON, recordedAt string
	err := r.Scan(&c.ID, &c.Seq, &c.NaturalKey, &c.Statement, &c.Confidence, &supJSON, &ctrJSON,
		&c.Tool.Name, &c.Tool.Version, &c.Tool.ModelName, &c.Tool.ModelVersion,
		&c.RunID, &c.RunFingerprint, &recordedAt)
	if err != nil {
		return model.Claim{}, err
	}
	if err := json.Unmarshal([]byte(supJSON), &c.SupportingIDs); err != nil {
		return model.Claim{}, fmt.Errorf("decode supporting ids: %w", err)
	}
	if err := json.Unmarshal([]byte(ctrJSON), &c.CounterIDs); err != nil {
		return model.Claim{}, fmt.Errorf("decode counter ids: %w", err)
	}
	c.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt)
	if err != nil {
		return model.Claim{}, fmt.Errorf("parse recorded_at: %w", err)
	}
	return c, nil
}

func scanArtifact(r rowScanner) (model.Artifact, error) {
	var a model.Artifact
	var typ, recordedAt string
	err := r.Scan(&a.ID, &a.Seq, &typ, &a.ContentHash, &a.ParentID, &a.LineageNote,
		&a.Tool.Name, &a.Tool.Version, &a.Tool.ModelName, &a.Tool.ModelVersion,
		&a.RunID, &recordedAt)
	if err != nil {
		return model.Artifact{}, err
	}
	a.Type = model.ArtifactType(typ)
	a.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt)
	if err != nil {
		return model.Artifact{}, fmt.Errorf("parse recorded_at: %w", err)
	}
	return a, nil
}

func getEvidenceRow(q querier, id string) (model.Evidence, error) {
	ev, err := scanEvidence(q.QueryRow(`SELECT `+evidenceCols+` FROM evidence WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return model.Evidence{}, &model.NotFoundError{Kind: "evidence", ID: id}
	}
	return ev, err
}

func getEvidenceTx(tx *sql.Tx, id string) (model.Evidence, error) { return getEvidenceRow(tx, id) }
func getEvidenceQ(db *sql.DB, id string) (model.Evidence, error)  { return getEvidenceRow(db, id) }

func getClaimRow(q querier, id string) (model.Claim, error) {
	c, err := scanClaim(q.QueryRow(`SELECT `+claimCols+` FROM claims WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return model.Claim{}, &model.NotFoundError{Kind: "claim", ID: id}
	}
	return c, err
}

func getClaimTx(tx *sql.Tx, id string) (model.Claim, error) { return getClaimRow(tx, id) }
func getClaimQ(db *sql.DB, id string) (model.Claim, error)  { return getClaimRow(db, id) }

func getArtifactRow(q querier, id string) (model.Artifact, error) {
	a, err := scanArtifact(q.QueryRow(`SELECT `+artifactCols+` FROM artifacts WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return model.Artifact{}, &model.NotFoundError{Kind: "artifact", ID: id}
	}
	return a, err
}

func getArtifactTx(tx *sql.Tx, id string) (model.Artifact, error) { return getArtifactRow(tx, id) }
func getArtifactQ(db *sql.DB, id string) (model.Artifact, error)  { return getArtifactRow(db, id) }

func getRunTx(tx *sql.Tx, id string) (model.Run, error) {
	var run model.Run
	var sealed, reviewed int
	var fp, sealedAt sql.NullString
	var startedAt string
	err := tx.QueryRow(`SELECT id, sealed, review_completed, fingerprint, started_at, sealed_at FROM runs WHERE id = ?`, id).
		Scan(&run.ID, &sealed, &reviewed, &fp, &startedAt, &sealedAt)
	if err == sql.ErrNoRows {
		return model.Run{}, &model.NotFoundError{Kind: "run", ID: id}
	}
	if err != nil {
		return model.Run{}, fmt.Errorf("get run: %w", err)
	}
	run.Sealed = sealed == 1
	run.ReviewCompleted = reviewed == 1
	run.Fingerprint = fp.String
	run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return model.Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	if sealedAt.Valid && sealedAt.String != "" {
		run.SealedAt, err = time.Parse(time.RFC3339Nano, sealedAt.String)
		if err != nil {
			return model.Run{}, fmt.Errorf("parse sealed_at: %w", err)
		}
	}
	return run, nil
}

// activeRun reads the open run id, or "" when no run is open.
func activeRun(tx *sql.Tx) (string, error) {
	var id string
	err := tx.QueryRow(`SELECT value FROM meta WHERE key = 'active_run'`).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read active run: %w", err)
	}
	return id, nil
}

// attachMember adds a record to the open run's member set exactly once.
func attachMember(tx *sql.Tx, runID, kind, recordID string) error {
	if runID == "" {
		return nil
	}
	var pos int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM run_members WHERE run_id = ?`, runID).Scan(&pos); err != nil {
		return fmt.Errorf("member pos: %w", err)
	}
	_, err := tx.Exec(`INSERT OR IGNORE INTO run_members (run_id, kind, record_id, pos) VALUES (?,?,?,?)`,
		runID, kind, recordID, pos)
	if err != nil {
		return fmt.Errorf("attach member: %w", err)
	}
	return nil
}

func (s *SQLite) queryEvidence(query string, args ...interface{}) ([]model.Evidence, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query evidence: %w", err)
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

func (s *SQLite) queryClaims(query string, args ...interface{}) ([]model.Claim, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query claims: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []model.Claim{}
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
