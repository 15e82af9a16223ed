package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/watchtower/internal/model"
)

// RenderMarkdown produces an audit-ready Markdown case file for a sealed run:
// claims with their identifiers and fingerprints, the narrative, and an
// evidence appendix. Call only after the gate has passed.
func RenderMarkdown(snap model.RunSnapshot, narrative, title string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "**Generated:** %s\n\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "**Run:** `%s`\n\n", snap.Run.ID)
	fmt.Fprintf(&b, "**Run Fingerprint:** `%s`\n\n", snap.Run.Fingerprint)

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- **Total Claims:** %d\n", len(snap.Claims))
	fmt.Fprintf(&b, "- **Total Evidence:** %d\n\n", len(snap.Evidence))

	if narrative != "" {
		b.WriteString("## Narrative\n\n")
		b.WriteString(narrative)
		b.WriteString("\n\n")
	}

	b.WriteString("## Claims\n\n")
	for i, c := range snap.Claims {
		fmt.Fprintf(&b, "### Claim %d (ID: `%s`)\n\n", i+1, c.ID)
		fmt.Fprintf(&b, "**Statement:** %s\n\n", c.Statement)
		fmt.Fprintf(&b, "**Confidence:** %.2f\n\n", c.Confidence)
		fmt.Fprintf(&b, "**Fingerprint:** `%s`\n\n", c.RunFingerprint)
		if len(c.SupportingIDs) > 0 {
			fmt.Fprintf(&b, "**Supporting Evidence:** %s\n\n", codeList(c.SupportingIDs))
		}
		if len(c.CounterIDs) > 0 {
			fmt.Fprintf(&b, "**Counter Evidence:** %s\n\n", codeList(c.CounterIDs))
		}
		if c.Tool.Name != "" {
			fmt.Fprintf(&b, "**Tool:** %s\n\n", c.Tool)
		}
		fmt.Fprintf(&b, "**Recorded:** %s\n\n", c.RecordedAt.Format(time.RFC3339))
	}

	b.WriteString("## Evidence Appendix\n\n")
	for i, ev := range snap.Evidence {
		fmt.Fprintf(&b, "### Evidence %d (ID: `%s`)\n\n", i+1, ev.ID)
		fmt.Fprintf(&b, "**Source:** %s\n\n", ev.Source)
		b.WriteString("**Content:**\n\n```\n")
		b.WriteString(ev.Content)
		b.WriteString("\n```\n\n")
		if ev.Tool.Name != "" {
			fmt.Fprintf(&b, "**Tool:** %s\n\n", ev.Tool)
		}
		fmt.Fprintf(&b, "**Recorded:** %s\n\n", ev.RecordedAt.Format(time.RFC3339))
	}

	return b.String()
}

func codeList(ids []string) string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = "`" + id + "`"
	}
	return strings.Join(quoted, ", ")
}
