package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/watchtower/internal/model"
)

// Provider defines the interface for LLM review providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Review runs an adversarial check of claims against their cited evidence
	Review(ctx context.Context, req ReviewRequest) (*ReviewResult, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// ReviewRequest contains the input for adversarial review
type ReviewRequest struct {
	// Snapshot is the sealed run under review
	Snapshot model.RunSnapshot

	// Prompt is an optional custom prompt (if empty, use default)
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// ReviewResult contains the reviewer's output
type ReviewResult struct {
	// Approved is true when the reviewer found no unsupported claims
	Approved bool

	// Findings is the reviewer's free-text assessment
	Findings string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// BuildReviewPrompt constructs the default adversarial review prompt. The
// reviewer's job is to attack the claims, not to confirm them: find any claim
// whose cited evidence does not actually support it.
func BuildReviewPrompt(snap model.RunSnapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are an adversarial reviewer of an investigative case file. Your job is to ATTACK the claims, not to confirm them.

RULES:
1. For each claim, read ONLY the evidence excerpts listed under it.
2. A claim is UNSUPPORTED if its evidence does not actually say what the claim asserts.
3. Do not use outside knowledge. Do not speculate about what other evidence might exist.
4. Judge support quality, never truth.

CLAIMS UNDER REVIEW (%d):
`, len(snap.Claims))

	evidence := make(map[string]model.Evidence, len(snap.Evidence))
	for _, ev := range snap.Evidence {
		evidence[ev.ID] = ev
	}

	for i, claim := range snap.Claims {
		fmt.Fprintf(&b, "\nClaim %d (confidence %.2f): %s\n", i+1, claim.Confidence, claim.Statement)
		for _, id := range claim.SupportingIDs {
			writeExcerpt(&b, "supporting", evidence, id)
		}
		for _, id := range claim.CounterIDs {
			writeExcerpt(&b, "counter", evidence, id)
		}
	}

	b.WriteString(`
Respond with your findings, then a final line containing exactly one of:
VERDICT: APPROVED
VERDICT: REJECTED
`)
	return b.String()
}

// parseVerdict extracts the approve/reject decision from the reviewer output.
func parseVerdict(findings string) (bool, error) {
	upper := strings.ToUpper(findings)
	switch {
	case strings.Contains(upper, "VERDICT: REJECTED"):
		return false, nil
	case strings.Contains(upper, "VERDICT: APPROVED"):
		return true, nil
	default:
		return false, fmt.Errorf("reviewer output is missing a VERDICT line")
	}
}

func writeExcerpt(b *strings.Builder, role string, evidence map[string]model.Evidence, id string) {
	ev, ok := evidence[id]
	if !ok {
		fmt.Fprintf(b, "  [%s evidence %s: not in snapshot]\n", role, shortID(id))
		return
	}
	excerpt := ev.Content
	if len(excerpt) > 500 {
		excerpt = excerpt[:500] + "..."
	}
	fmt.Fprintf(b, "  [%s, source %s] %s\n", role, ev.Source, excerpt)
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
