package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/watchtower/internal/export"
	"github.com/ppiankov/watchtower/internal/fingerprint"
	"github.com/ppiankov/watchtower/internal/model"
	"github.com/ppiankov/watchtower/internal/seal"
)

var (
	exportNarrative string
	exportJSON      string
	exportMD        string
	exportJSONL     string
	exportTitle     string
	exportSignKey   string
	exportSignPass  string
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Export a sealed run as a case file",
	Long: `Export renders a sealed run into case file documents, but only after
the export gate passes:

1. Every claim's evidence references still resolve.
2. Adversarial review has been completed for the run.
3. Every narrative sentence carries a citation resolving to a claim.

A passing export also writes the run manifest and records a report
artifact in the ledger, so the export itself is part of the audit trail.

Example:
  watchtower export run-2026-03 --narrative findings.txt --md case.md --json case.json`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportNarrative, "narrative", "", "narrative text file (required)")
	exportCmd.Flags().StringVar(&exportJSON, "json", "", "output JSON case file path")
	exportCmd.Flags().StringVar(&exportMD, "md", "", "output Markdown case file path")
	exportCmd.Flags().StringVar(&exportJSONL, "jsonl", "", "output claims JSONL path")
	exportCmd.Flags().StringVar(&exportTitle, "title", "", "case file title (default from config)")
	exportCmd.Flags().StringVar(&exportSignKey, "sign-key", "", "private keyring for signing the manifest")
	exportCmd.Flags().StringVar(&exportSignPass, "sign-passphrase", "", "passphrase for the signing key")
	_ = exportCmd.MarkFlagRequired("narrative")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ledger, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = ledger.Close() }()

	snap, err := ledger.Snapshot(args[0])
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", args[0], err)
	}

	narrativeData, err := os.ReadFile(exportNarrative)
	if err != nil {
		return fmt.Errorf("read narrative: %w", err)
	}
	narrative := string(narrativeData)

	gate, err := export.NewGate(cfg.Export.CitationPattern)
	if err != nil {
		return fmt.Errorf("export gate: %w", err)
	}
	if err := gate.Validate(snap, narrative); err != nil {
		return fmt.Errorf("export gate: %w", err)
	}

	title := exportTitle
	if title == "" {
		title = cfg.Export.Title
	}

	if exportJSON != "" {
		data, err := export.RenderJSON(snap, narrative, title)
		if err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if err := os.WriteFile(exportJSON, data, 0644); err != nil {
			return fmt.Errorf("write JSON: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", exportJSON)
		}
	}

	if exportMD != "" {
		md := export.RenderMarkdown(snap, narrative, title)
		if err := os.WriteFile(exportMD, []byte(md), 0644); err != nil {
			return fmt.Errorf("write Markdown: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", exportMD)
		}
	}

	if exportJSONL != "" {
		f, err := os.Create(exportJSONL)
		if err != nil {
			return fmt.Errorf("create JSONL: %w", err)
		}
		if err := export.WriteClaimsJSONL(f, snap.Claims); err != nil {
			_ = f.Close()
			return fmt.Errorf("write JSONL: %w", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close JSONL: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", exportJSONL)
		}
	}

	// Manifest sits next to the first requested output, or the run id when
	// only the gate was exercised.
	manifest, err := seal.Build(snap)
	if err != nil {
		return fmt.Errorf("build manifest: %w", err)
	}
	manifestBytes, err := manifest.Encode()
	if err != nil {
		return err
	}
	manifestPath := args[0] + ".manifest.json"
	if err := os.WriteFile(manifestPath, manifestBytes, 0644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", manifestPath)
	}

	if exportSignKey != "" {
		signer, err := seal.NewSigner(exportSignKey, exportSignPass)
		if err != nil {
			return fmt.Errorf("load signing key: %w", err)
		}
		sigPath := manifestPath + ".asc"
		sigFile, err := os.Create(sigPath)
		if err != nil {
			return fmt.Errorf("create signature file: %w", err)
		}
		if err := signer.Sign(sigFile, manifestBytes); err != nil {
			_ = sigFile.Close()
			return err
		}
		if err := sigFile.Close(); err != nil {
			return fmt.Errorf("close signature file: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", sigPath)
		}
	}

	// The export itself becomes a ledger record: the manifest artifact first,
	// then the report artifact with lineage back to it.
	fp := fingerprint.New(cfg.Fingerprint.Precision)
	manifestArtifact, err := ledger.StoreArtifact(
		model.ArtifactDerived,
		fp.ContentHash(string(manifestBytes)),
		"",
		fmt.Sprintf("sealed manifest of run %s", snap.Run.ID),
		model.DefaultTool(),
	)
	if err != nil {
		return fmt.Errorf("record manifest artifact: %w", err)
	}
	artifact, err := ledger.StoreArtifact(
		model.ArtifactReport,
		fp.ContentHash(string(manifestBytes)+narrative),
		manifestArtifact.ID,
		fmt.Sprintf("case file export of run %s", snap.Run.ID),
		model.DefaultTool(),
	)
	if err != nil {
		return fmt.Errorf("record export artifact: %w", err)
	}

	fmt.Printf("Export passed the gate for run %s\n", snap.Run.ID)
	fmt.Printf("Report artifact: %s\n", artifact.ID)
	return nil
}
