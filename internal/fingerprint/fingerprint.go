// Package fingerprint produces deterministic SHA-256 digests over
// canonicalized ledger entities.
//
// Canonicalization rules: fields are written in a fixed sorted order, evidence
// ID sets are sorted before hashing, confidence is quantized to a fixed
// decimal precision, and wall-clock timestamps never participate in a digest.
// Identical logical inputs therefore hash identically on any platform, on any
// run.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"sort"
	"strconv"

	"github.com/ppiankov/watchtower/internal/model"
)

// DefaultPrecision is the number of decimal digits kept when hashing
// confidence values.
const DefaultPrecision = 6

// Domain tags keep digests of different record kinds from colliding even when
// their canonical fields happen to agree.
const (
	tagEvidence = "watchtower:evidence:v1"
	tagClaim    = "watchtower:claim:v1"
	tagRun      = "watchtower:runfp:v1"
	tagArtifact = "watchtower:artifact:v1"
	tagManifest = "watchtower:manifest:v1"
)

// Engine computes digests. It is stateless apart from the configured
// quantization precision and is safe for concurrent use.
type Engine struct {
	precision int
}

// New creates an engine with the given quantization precision. Non-positive
// values fall back to DefaultPrecision.
func New(precision int) *Engine {
	if precision <= 0 {
		precision = DefaultPrecision
	}
	return &Engine{precision: precision}
}

// Precision returns the configured quantization precision.
func (e *Engine) Precision() int {
	return e.precision
}

// ContentHash returns the hex SHA-256 of raw content bytes.
func (e *Engine) ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// NaturalKey returns the stable cross-run identity of a claim: a digest of
// the statement text alone.
func (e *Engine) NaturalKey(statement string) string {
	return e.ContentHash(statement)
}

// Quantize renders confidence at the configured decimal precision, removing
// platform floating-point divergence before hashing.
func (e *Engine) Quantize(confidence float64) string {
	return strconv.FormatFloat(confidence, 'f', e.precision, 64)
}

// EvidenceID derives the storage identifier of an evidence record. The
// timestamp is deliberately absent: same content, same source, same tool
// always yields the same ID.
func (e *Engine) EvidenceID(content, source string, tool model.ToolIdentity) string {
	h := sha256.New()
	writeField(h, "tag", tagEvidence)
	writeField(h, "content", e.ContentHash(content))
	writeField(h, "model", tool.ModelName+":"+tool.ModelVersion)
	writeField(h, "source", e.ContentHash(source))
	writeField(h, "tool", tool.Name+":"+tool.Version)
	return hex.EncodeToString(h.Sum(nil))
}

// ClaimID derives the storage identifier of a claim record from its full
// canonical content.
func (e *Engine) ClaimID(statement string, confidence float64, supporting, counter []string, tool model.ToolIdentity) string {
	h := sha256.New()
	writeField(h, "tag", tagClaim)
	e.writeClaimFields(h, statement, confidence, supporting, counter, tool)
	return hex.EncodeToString(h.Sum(nil))
}

// RunFingerprint derives the composite fingerprint of a claim: statement hash,
// quantized confidence, both sorted evidence sets, a digest of the full
// referenced evidence set, and the tool identity. Two claims with identical
// logical content produce identical run fingerprints even across separate
// runs, which is what makes the reproducibility law testable.
func (e *Engine) RunFingerprint(statement string, confidence float64, supporting, counter []string, tool model.ToolIdentity) string {
	h := sha256.New()
	writeField(h, "tag", tagRun)
	writeField(h, "evidence_set", e.setDigest(append(append([]string{}, supporting...), counter...)))
	e.writeClaimFields(h, statement, confidence, supporting, counter, tool)
	return hex.EncodeToString(h.Sum(nil))
}

// ArtifactID derives the storage identifier of an artifact record.
func (e *Engine) ArtifactID(typ model.ArtifactType, contentHash, parentID string, tool model.ToolIdentity) string {
	h := sha256.New()
	writeField(h, "tag", tagArtifact)
	writeField(h, "content", contentHash)
	writeField(h, "model", tool.ModelName+":"+tool.ModelVersion)
	writeField(h, "parent", parentID)
	writeField(h, "tool", tool.Name+":"+tool.Version)
	writeField(h, "type", string(typ))
	return hex.EncodeToString(h.Sum(nil))
}

// Manifest derives the seal fingerprint of a run from its ID and the sorted
// identifiers of every member record.
func (e *Engine) Manifest(runID string, memberIDs []string) string {
	sorted := append([]string{}, memberIDs...)
	sort.Strings(sorted)

	h := sha256.New()
	writeField(h, "tag", tagManifest)
	writeField(h, "run", runID)
	writeField(h, "members", strconv.Itoa(len(sorted)))
	for _, id := range sorted {
		writeField(h, "m", id)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (e *Engine) writeClaimFields(h hash.Hash, statement string, confidence float64, supporting, counter []string, tool model.ToolIdentity) {
	writeField(h, "confidence", e.Quantize(confidence))
	writeField(h, "counter", joinSorted(counter))
	writeField(h, "model", tool.ModelName+":"+tool.ModelVersion)
	writeField(h, "statement", e.ContentHash(statement))
	writeField(h, "supporting", joinSorted(supporting))
	writeField(h, "tool", tool.Name+":"+tool.Version)
}

// setDigest hashes an evidence ID set independent of membership order.
func (e *Engine) setDigest(ids []string) string {
	return e.ContentHash(joinSorted(ids))
}

// joinSorted joins a copy of ids in sorted order so membership order never
// affects a digest.
func joinSorted(ids []string) string {
	sorted := append([]string{}, ids...)
	sort.Strings(sorted)

	out := ""
	for i, id := range sorted {
		if i > 0 {
			out += ","
		}
		out += id
	}
	return out
}

// writeField writes one canonical "name=value" line into the hash. Values are
// either hex digests or identifiers with no newlines, so the framing is
// unambiguous.
func writeField(h hash.Hash, name, value string) {
	fmt.Fprintf(h, "%s=%s\n", name, value)
}
