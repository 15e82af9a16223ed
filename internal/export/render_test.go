package export

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ppiankov/watchtower/internal/model"
)

func TestRenderJSON_RoundTrip(t *testing.T) {
	snap := reviewedSnap()
	snap.Evidence = []model.Evidence{{ID: "ev1", Content: "log excerpt", Source: "syslog:a"}}

	data, err := RenderJSON(snap, "narrative text", "Case 42")
	if err != nil {
		t.Fatalf("RenderJSON failed: %v", err)
	}

	var cf CaseFile
	if err := json.Unmarshal(data, &cf); err != nil {
		t.Fatalf("Expected valid JSON, got %v", err)
	}
	if cf.Title != "Case 42" {
		t.Errorf("Expected title to carry through, got %q", cf.Title)
	}
	if cf.Summary.TotalClaims != 2 || cf.Summary.TotalEvidence != 1 {
		t.Errorf("Expected summary counts 2/1, got %d/%d", cf.Summary.TotalClaims, cf.Summary.TotalEvidence)
	}
	if cf.Run.ID != "run-1" {
		t.Errorf("Expected run header in the case file, got %q", cf.Run.ID)
	}
}

func TestRenderMarkdown_Sections(t *testing.T) {
	snap := reviewedSnap()
	snap.Run.Fingerprint = "feedface"
	snap.Evidence = []model.Evidence{{ID: "ev1", Content: "log excerpt", Source: "syslog:a"}}

	md := RenderMarkdown(snap, "The narrative.", "Case 42")

	for _, want := range []string{
		"# Case 42",
		"`run-1`",
		"`feedface`",
		"## Narrative",
		"## Claims",
		"first claim",
		"## Evidence Appendix",
		"syslog:a",
		"log excerpt",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("Expected markdown to contain %q", want)
		}
	}
}

func TestWriteClaimsJSONL(t *testing.T) {
	claims := []model.Claim{
		{ID: "c1", Statement: "first", Confidence: 0.5, SupportingIDs: []string{"ev1"}},
		{ID: "c2", Statement: "second", Confidence: 0.7, SupportingIDs: []string{"ev1"}},
	}

	var buf bytes.Buffer
	if err := WriteClaimsJSONL(&buf, claims); err != nil {
		t.Fatalf("WriteClaimsJSONL failed: %v", err)
	}

	scanner := bufio.NewScanner(&buf)
	lines := 0
	for scanner.Scan() {
		var c model.Claim
		if err := json.Unmarshal(scanner.Bytes(), &c); err != nil {
			t.Fatalf("Line %d is not valid JSON: %v", lines+1, err)
		}
		if c.ID != claims[lines].ID {
			t.Errorf("Line %d: expected ID %s, got %s", lines+1, claims[lines].ID, c.ID)
		}
		lines++
	}
	if lines != 2 {
		t.Errorf("Expected 2 lines, got %d", lines)
	}
}
