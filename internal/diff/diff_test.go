package diff

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ppiankov/watchtower/internal/model"
	"github.com/ppiankov/watchtower/internal/store"
)

func testTool() model.ToolIdentity {
	return model.ToolIdentity{Name: "watchtower", Version: "0.1.0"}
}

// sealRun records the given evidence contents and claims into a fresh run and
// returns its snapshot. claims maps statement to confidence; every claim
// references all the run's evidence.
func sealRun(t *testing.T, m store.Ledger, runID string, sources map[string]string, claims map[string]float64) model.RunSnapshot {
	t.Helper()

	if _, err := m.BeginRun(runID); err != nil {
		t.Fatalf("BeginRun(%s) failed: %v", runID, err)
	}
	evIDs := []string{}
	for source, content := range sources {
		ev, err := m.StoreEvidence(content, source, testTool(), nil)
		if err != nil {
			t.Fatalf("StoreEvidence failed: %v", err)
		}
		evIDs = append(evIDs, ev.ID)
	}
	for statement, confidence := range claims {
		if _, err := m.StoreClaim(statement, confidence, evIDs, nil, testTool()); err != nil {
			t.Fatalf("StoreClaim failed: %v", err)
		}
	}
	if _, err := m.SealRun(runID); err != nil {
		t.Fatalf("SealRun(%s) failed: %v", runID, err)
	}
	snap, err := m.Snapshot(runID)
	if err != nil {
		t.Fatalf("Snapshot(%s) failed: %v", runID, err)
	}
	return snap
}

func TestRuns_IdenticalRunsProduceEmptyDiff(t *testing.T) {
	m := store.NewMemory(0)
	sources := map[string]string{"syslog:a": "log line one"}
	claims := map[string]float64{"the login occurred at 03:14": 0.7}

	a := sealRun(t, m, "run-a", sources, claims)
	b := sealRun(t, m, "run-b", sources, claims)

	res, err := Runs(a, b)
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if !res.Empty() {
		t.Errorf("Expected empty diff for identical runs, got %d changes", res.TotalChanges())
	}

	// diff(a, a) is empty too
	same, err := Runs(a, a)
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if !same.Empty() {
		t.Error("Expected diff of a run with itself to be empty")
	}
}

func TestRuns_AddedRemovedSymmetry(t *testing.T) {
	m := store.NewMemory(0)
	sources := map[string]string{"syslog:a": "log line one"}

	a := sealRun(t, m, "run-a", sources, map[string]float64{"only in a": 0.5})
	b := sealRun(t, m, "run-b", sources, map[string]float64{"only in b": 0.5})

	forward, err := Runs(a, b)
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	backward, err := Runs(b, a)
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}

	if len(forward.Added) != 1 || forward.Added[0].Statement != "only in b" {
		t.Errorf("Expected one added claim, got %+v", forward.Added)
	}
	if len(forward.Removed) != 1 || forward.Removed[0].Statement != "only in a" {
		t.Errorf("Expected one removed claim, got %+v", forward.Removed)
	}
	if diff := cmp.Diff(forward.Added, backward.Removed); diff != "" {
		t.Errorf("Expected Added to mirror reverse Removed:\n%s", diff)
	}
	if diff := cmp.Diff(forward.Removed, backward.Added); diff != "" {
		t.Errorf("Expected Removed to mirror reverse Added:\n%s", diff)
	}
}

func TestRuns_ConfidenceChangeIsModification(t *testing.T) {
	m := store.NewMemory(0)
	sources := map[string]string{"syslog:a": "log line one"}

	a := sealRun(t, m, "run-a", sources, map[string]float64{"the outage began at 03:14": 0.6})
	b := sealRun(t, m, "run-b", sources, map[string]float64{"the outage began at 03:14": 0.9})

	res, err := Runs(a, b)
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if len(res.Added)+len(res.Removed) != 0 {
		t.Error("Expected a re-recorded claim to correlate, not appear as add/remove")
	}
	if len(res.Modified) != 1 {
		t.Fatalf("Expected one modification, got %d", len(res.Modified))
	}
	ch := res.Modified[0]
	if ch.ConfidenceDelta < 0.299 || ch.ConfidenceDelta > 0.301 {
		t.Errorf("Expected delta near 0.3, got %v", ch.ConfidenceDelta)
	}
	if len(ch.ChangedFields) != 1 || ch.ChangedFields[0] != "confidence" {
		t.Errorf("Expected only confidence to change, got %v", ch.ChangedFields)
	}
}

func TestRuns_EvidenceSetChangeTracked(t *testing.T) {
	m := store.NewMemory(0)

	a := sealRun(t, m, "run-a",
		map[string]string{"syslog:a": "log line one"},
		map[string]float64{"statement": 0.5})
	b := sealRun(t, m, "run-b",
		map[string]string{"syslog:a": "log line one", "pcap:b": "capture bytes"},
		map[string]float64{"statement": 0.5})

	res, err := Runs(a, b)
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if len(res.Modified) != 1 {
		t.Fatalf("Expected one modification, got %d", len(res.Modified))
	}
	ch := res.Modified[0]
	if len(ch.AddedEvidence) != 1 {
		t.Errorf("Expected one added evidence reference, got %v", ch.AddedEvidence)
	}
	if len(ch.RemovedEvidence) != 0 {
		t.Errorf("Expected no removed evidence, got %v", ch.RemovedEvidence)
	}
	found := false
	for _, f := range ch.ChangedFields {
		if f == "evidence_set" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected evidence_set in changed fields, got %v", ch.ChangedFields)
	}
}

func TestRuns_SilentEditDetection(t *testing.T) {
	m := store.NewMemory(0)

	// same source descriptor, different content between runs
	a := sealRun(t, m, "run-a",
		map[string]string{"https://example.org/post": "original wording"},
		map[string]float64{"statement": 0.5})
	b := sealRun(t, m, "run-b",
		map[string]string{"https://example.org/post": "quietly revised wording"},
		map[string]float64{"statement": 0.5})

	res, err := Runs(a, b)
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if len(res.SilentEdits) != 1 {
		t.Fatalf("Expected one silent edit, got %d", len(res.SilentEdits))
	}
	se := res.SilentEdits[0]
	if se.Source != "https://example.org/post" {
		t.Errorf("Expected the shared source descriptor, got %s", se.Source)
	}
	if se.OldID == se.NewID {
		t.Error("Expected distinct content identifiers for a silent edit")
	}
}

func TestRuns_UnchangedSourceIsNotASilentEdit(t *testing.T) {
	m := store.NewMemory(0)

	sources := map[string]string{"https://example.org/post": "stable wording"}
	a := sealRun(t, m, "run-a", sources, map[string]float64{"statement": 0.5})
	b := sealRun(t, m, "run-b", sources, map[string]float64{"statement": 0.5})

	res, err := Runs(a, b)
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if len(res.SilentEdits) != 0 {
		t.Errorf("Expected no silent edits for unchanged content, got %d", len(res.SilentEdits))
	}
}

// sealRunEvidence records the given contents under one source into a fresh
// run with a single claim over all of them, and returns its snapshot.
func sealRunEvidence(t *testing.T, m store.Ledger, runID, source string, contents []string) model.RunSnapshot {
	t.Helper()

	if _, err := m.BeginRun(runID); err != nil {
		t.Fatalf("BeginRun(%s) failed: %v", runID, err)
	}
	evIDs := []string{}
	for _, content := range contents {
		ev, err := m.StoreEvidence(content, source, testTool(), nil)
		if err != nil {
			t.Fatalf("StoreEvidence failed: %v", err)
		}
		evIDs = append(evIDs, ev.ID)
	}
	if _, err := m.StoreClaim("statement", 0.5, evIDs, nil, testTool()); err != nil {
		t.Fatalf("StoreClaim failed: %v", err)
	}
	if _, err := m.SealRun(runID); err != nil {
		t.Fatalf("SealRun(%s) failed: %v", runID, err)
	}
	snap, err := m.Snapshot(runID)
	if err != nil {
		t.Fatalf("Snapshot(%s) failed: %v", runID, err)
	}
	return snap
}

func TestRuns_SourceGainingEvidenceIsNotASilentEdit(t *testing.T) {
	m := store.NewMemory(0)

	source := "https://example.org/post"
	a := sealRunEvidence(t, m, "run-a", source, []string{"original wording"})
	// the old record survives; the second capture is an addition
	b := sealRunEvidence(t, m, "run-b", source, []string{"original wording", "appended correction"})

	res, err := Runs(a, b)
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if len(res.SilentEdits) != 0 {
		t.Errorf("Expected no silent edits while an old identifier survives, got %d", len(res.SilentEdits))
	}
	// the growth still surfaces, as an evidence set change on the claim
	if len(res.Modified) != 1 || len(res.Modified[0].AddedEvidence) != 1 {
		t.Errorf("Expected the new capture reported as an evidence set change, got %+v", res.Modified)
	}
}

func TestRuns_FullReplacementFlagsEveryNewRecord(t *testing.T) {
	m := store.NewMemory(0)

	source := "https://example.org/post"
	a := sealRunEvidence(t, m, "run-a", source, []string{"original wording"})
	b := sealRunEvidence(t, m, "run-b", source, []string{"revised wording", "revised footnote"})

	res, err := Runs(a, b)
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if len(res.SilentEdits) != 2 {
		t.Fatalf("Expected every replacement record flagged, got %d edits", len(res.SilentEdits))
	}
	for _, se := range res.SilentEdits {
		if se.Source != source {
			t.Errorf("Expected source %s, got %s", source, se.Source)
		}
		if se.OldID != a.Evidence[0].ID {
			t.Error("Expected each edit to reference the replaced identifier")
		}
	}
}

func TestRuns_RequiresSealedRuns(t *testing.T) {
	m := store.NewMemory(0)
	sealed := sealRun(t, m, "run-a", map[string]string{"s": "c"}, map[string]float64{"x": 0.5})

	open := model.RunSnapshot{Run: model.Run{ID: "run-open"}}
	var nsErr *model.RunNotSealedError
	if _, err := Runs(open, sealed); !errors.As(err, &nsErr) {
		t.Errorf("Expected RunNotSealedError for open old run, got %v", err)
	}
	if _, err := Runs(sealed, open); !errors.As(err, &nsErr) {
		t.Errorf("Expected RunNotSealedError for open new run, got %v", err)
	}
}
