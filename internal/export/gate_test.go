package export

import (
	"errors"
	"testing"

	"github.com/ppiankov/watchtower/internal/model"
)

const (
	claimID1 = "aaaa1111bbbb2222cccc3333dddd4444eeee5555ffff6666aaaa7777bbbb8888"
	claimID2 = "bbbb1111bbbb2222cccc3333dddd4444eeee5555ffff6666aaaa7777bbbb8888"
)

func reviewedSnap() model.RunSnapshot {
	return model.RunSnapshot{
		Run: model.Run{ID: "run-1", Sealed: true, ReviewCompleted: true},
		Claims: []model.Claim{
			{ID: claimID1, Statement: "first claim", SupportingIDs: []string{"ev1"}},
			{ID: claimID2, Statement: "second claim", SupportingIDs: []string{"ev2"}},
		},
	}
}

func TestGate_Validate_HappyPath(t *testing.T) {
	g, err := NewGate("")
	if err != nil {
		t.Fatalf("NewGate failed: %v", err)
	}

	narrative := "The outage began at 03:14 [[claim:aaaa1111]]. " +
		"A second host was affected [[claim:bbbb1111]]."
	if err := g.Validate(reviewedSnap(), narrative); err != nil {
		t.Errorf("Expected cited narrative to pass, got %v", err)
	}
}

func TestGate_Validate_UnsealedRunRefused(t *testing.T) {
	g, _ := NewGate("")
	snap := reviewedSnap()
	snap.Run.Sealed = false

	var nsErr *model.RunNotSealedError
	if err := g.Validate(snap, ""); !errors.As(err, &nsErr) {
		t.Errorf("Expected RunNotSealedError, got %v", err)
	}
}

func TestGate_Validate_MissingEvidenceRefs(t *testing.T) {
	g, _ := NewGate("")
	snap := reviewedSnap()
	snap.Claims[1].SupportingIDs = nil

	var missErr *MissingEvidenceRefsError
	err := g.Validate(snap, "Something happened [[claim:aaaa1111]].")
	if !errors.As(err, &missErr) {
		t.Fatalf("Expected MissingEvidenceRefsError, got %v", err)
	}
	if missErr.ClaimID != claimID2 {
		t.Errorf("Expected error to name the offending claim, got %s", missErr.ClaimID)
	}
}

func TestGate_Validate_ReviewRequired(t *testing.T) {
	g, _ := NewGate("")
	snap := reviewedSnap()
	snap.Run.ReviewCompleted = false

	var revErr *ReviewNotCompletedError
	if err := g.Validate(snap, "Something happened [[claim:aaaa1111]]."); !errors.As(err, &revErr) {
		t.Errorf("Expected ReviewNotCompletedError, got %v", err)
	}
}

func TestGate_Validate_UnlinkedSentence(t *testing.T) {
	g, _ := NewGate("")

	narrative := "The outage began at 03:14 [[claim:aaaa1111]]. This sentence asserts without citing."
	var unlErr *UnlinkedSentenceError
	err := g.Validate(reviewedSnap(), narrative)
	if !errors.As(err, &unlErr) {
		t.Fatalf("Expected UnlinkedSentenceError, got %v", err)
	}
	if unlErr.Position != 2 {
		t.Errorf("Expected the second sentence to be flagged, got position %d", unlErr.Position)
	}
}

func TestGate_Validate_QuestionsExempt(t *testing.T) {
	g, _ := NewGate("")

	narrative := "Could there be another explanation? The outage began at 03:14 [[claim:aaaa1111]]."
	if err := g.Validate(reviewedSnap(), narrative); err != nil {
		t.Errorf("Expected interrogative sentence to need no citation, got %v", err)
	}
}

func TestGate_Validate_UnknownCitation(t *testing.T) {
	g, _ := NewGate("")

	narrative := "Something happened [[claim:deadbeef]]."
	var unkErr *UnknownCitationError
	err := g.Validate(reviewedSnap(), narrative)
	if !errors.As(err, &unkErr) {
		t.Fatalf("Expected UnknownCitationError, got %v", err)
	}
	if unkErr.Marker != "[[claim:deadbeef]]" {
		t.Errorf("Expected the full marker in the error, got %s", unkErr.Marker)
	}
}

func TestGate_Validate_AmbiguousPrefixRefused(t *testing.T) {
	g, _ := NewGate("")
	snap := reviewedSnap()
	// both claim IDs share this prefix
	snap.Claims[1].ID = "aaaa1111" + claimID2[8:]

	var unkErr *UnknownCitationError
	if err := g.Validate(snap, "Something happened [[claim:aaaa1111]]."); !errors.As(err, &unkErr) {
		t.Errorf("Expected ambiguous prefix to be refused, got %v", err)
	}
}

func TestNewGate_PatternValidation(t *testing.T) {
	if _, err := NewGate("([invalid"); err == nil {
		t.Error("Expected error for an invalid pattern")
	}
	// a pattern without a capture group cannot yield a claim prefix
	if _, err := NewGate(`\[\[claim:[0-9a-f]+\]\]`); err == nil {
		t.Error("Expected error for a pattern without a capture group")
	}
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("First sentence. Second one! A question? trailing fragment")
	if len(got) != 4 {
		t.Fatalf("Expected 4 sentences, got %d: %q", len(got), got)
	}
	if got[3] != "trailing fragment" {
		t.Errorf("Expected the un-terminated fragment to count, got %q", got[3])
	}

	// segments with no letters are dropped
	got = splitSentences("--- ... 123. Real sentence.")
	if len(got) != 1 || got[0] != "Real sentence." {
		t.Errorf("Expected only the real sentence, got %q", got)
	}
}
