// Package export guards and renders report output from sealed runs.
//
// The gate is fail-closed: every check must pass before a report artifact may
// exist, and a failure identifies exactly which check failed and which entity
// or sentence triggered it. There is no partial export.
package export

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/ppiankov/watchtower/internal/model"
)

// MissingEvidenceRefsError reports a claim in the run with an empty evidence
// reference set. Creation-time validation makes this unreachable through the
// store API; the gate re-verifies anyway to guard against store-level
// invariant violations.
type MissingEvidenceRefsError struct {
	ClaimID string
}

func (e *MissingEvidenceRefsError) Error() string {
	return fmt.Sprintf("export gate: claim has no evidence references: %s", e.ClaimID)
}

// ReviewNotCompletedError reports a run whose adversarial-review flag is not
// set. The gate only checks the flag's presence; the review itself is an
// external step.
type ReviewNotCompletedError struct {
	RunID string
}

func (e *ReviewNotCompletedError) Error() string {
	return fmt.Sprintf("export gate: adversarial review not completed for run %s", e.RunID)
}

// UnlinkedSentenceError reports a declarative sentence carrying no citation
// marker. Position is the 1-based sentence index in the narrative.
type UnlinkedSentenceError struct {
	Position int
	Sentence string
}

func (e *UnlinkedSentenceError) Error() string {
	return fmt.Sprintf("export gate: sentence %d has no citation: %q", e.Position, truncate(e.Sentence, 80))
}

// UnknownCitationError reports a citation marker that does not resolve to
// exactly one claim in the sealed run.
type UnknownCitationError struct {
	Position int
	Marker   string
}

func (e *UnknownCitationError) Error() string {
	return fmt.Sprintf("export gate: sentence %d cites unknown claim: %s", e.Position, e.Marker)
}

// Gate validates a sealed run plus a candidate narrative before any report
// artifact is allowed to exist.
type Gate struct {
	pattern *regexp.Regexp
}

// NewGate compiles the citation marker pattern. The pattern's first capture
// group must yield the claim ID prefix. An empty pattern uses the default.
func NewGate(pattern string) (*Gate, error) {
	if pattern == "" {
		pattern = model.DefaultConfig().Export.CitationPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile citation pattern: %w", err)
	}
	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("citation pattern needs a capture group for the claim id: %s", pattern)
	}
	return &Gate{pattern: re}, nil
}

// Validate runs all gate checks. Any failure blocks the entire export.
func (g *Gate) Validate(snap model.RunSnapshot, narrative string) error {
	if !snap.Run.Sealed {
		return &model.RunNotSealedError{RunID: snap.Run.ID}
	}

	// 1. Every claim must have a non-empty evidence reference set.
	for _, c := range snap.Claims {
		if c.TotalEvidence() == 0 {
			return &MissingEvidenceRefsError{ClaimID: c.ID}
		}
	}

	// 2. The adversarial review step must have completed.
	if !snap.Run.ReviewCompleted {
		return &ReviewNotCompletedError{RunID: snap.Run.ID}
	}

	// 3. Every declarative sentence must carry at least one citation marker
	// resolving to a claim in this run.
	claimIDs := make([]string, 0, len(snap.Claims))
	for _, c := range snap.Claims {
		claimIDs = append(claimIDs, c.ID)
	}

	for i, sentence := range splitSentences(narrative) {
		pos := i + 1
		if strings.HasSuffix(sentence, "?") {
			// interrogative sentences assert nothing and need no citation
			continue
		}
		markers := g.pattern.FindAllStringSubmatch(sentence, -1)
		if len(markers) == 0 {
			return &UnlinkedSentenceError{Position: pos, Sentence: sentence}
		}
		for _, m := range markers {
			if !resolves(claimIDs, m[1]) {
				return &UnknownCitationError{Position: pos, Marker: m[0]}
			}
		}
	}
	return nil
}

// resolves reports whether prefix matches exactly one claim identifier.
func resolves(ids []string, prefix string) bool {
	matches := 0
	for _, id := range ids {
		if strings.HasPrefix(id, prefix) {
			matches++
		}
	}
	return matches == 1
}

// splitSentences breaks the narrative into sentences terminated by '.', '!'
// or '?'. A trailing un-terminated segment still counts: the gate errs toward
// checking too much rather than too little. Segments with no letters (bare
// markup, separators) are dropped.
func splitSentences(text string) []string {
	out := []string{}
	var b strings.Builder
	flush := func() {
		s := strings.TrimSpace(b.String())
		b.Reset()
		if s == "" || !hasLetter(s) {
			return
		}
		out = append(out, s)
	}
	for _, r := range text {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			flush()
		}
	}
	flush()
	return out
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
