package model

import (
	"fmt"
	"unicode/utf8"
)

// ValidationError reports a malformed input field (empty content/source,
// confidence out of range). The record is rejected before anything is written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// EvidenceRequiredError is the system's signature hard gate: a claim whose
// supporting and counter evidence sets are both empty cannot be constructed.
type EvidenceRequiredError struct {
	Statement string
}

func (e *EvidenceRequiredError) Error() string {
	return fmt.Sprintf("no claim without evidence reference: %q has zero supporting or counter evidence", truncate(e.Statement, 80))
}

// ReferenceNotFoundError reports a claim or artifact citing an ID that does
// not resolve in the ledger.
type ReferenceNotFoundError struct {
	Kind string // "evidence" or "artifact"
	ID   string
}

func (e *ReferenceNotFoundError) Error() string {
	return fmt.Sprintf("%s reference not found: %s", e.Kind, e.ID)
}

// NotFoundError reports a read of an unknown ID. Recoverable by the caller.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// RunNotSealedError reports an attempt to snapshot, diff, review or export a
// run that is still accepting writes.
type RunNotSealedError struct {
	RunID string
}

func (e *RunNotSealedError) Error() string {
	return fmt.Sprintf("run not sealed: %s", e.RunID)
}

// RunSealedError reports an attempt to append to, or re-seal, a sealed run.
type RunSealedError struct {
	RunID string
}

func (e *RunSealedError) Error() string {
	return fmt.Sprintf("run already sealed: %s", e.RunID)
}

// truncate shortens s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
