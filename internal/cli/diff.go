package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/watchtower/internal/diff"
)

// diffCmd represents the diff command
var diffCmd = &cobra.Command{
	Use:   "diff <old-run> <new-run>",
	Short: "Compare two sealed runs",
	Long: `Diff compares two sealed runs and reports added, removed, and modified
claims, plus silent edits: evidence whose source appears in both runs but
whose content changed without an explicit correction.

Claims are correlated across runs by their statement, not their record
identifier, so a re-recorded claim with adjusted confidence shows up as
modified rather than as an unrelated add/remove pair.`,
	Args: cobra.ExactArgs(2),
	RunE: runDiff,
}

func init() {
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ledger, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = ledger.Close() }()

	oldSnap, err := ledger.Snapshot(args[0])
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", args[0], err)
	}
	newSnap, err := ledger.Snapshot(args[1])
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", args[1], err)
	}

	result, err := diff.Runs(oldSnap, newSnap)
	if err != nil {
		return fmt.Errorf("diff runs: %w", err)
	}

	if result.Empty() {
		fmt.Printf("No differences between %s and %s\n", args[0], args[1])
		return nil
	}

	for _, c := range result.Added {
		fmt.Printf("+ claim %.2f  %s\n", c.Confidence, c.Statement)
	}
	for _, c := range result.Removed {
		fmt.Printf("- claim %.2f  %s\n", c.Confidence, c.Statement)
	}
	for _, ch := range result.Modified {
		fmt.Printf("~ claim %s\n", ch.New.Statement)
		if ch.ConfidenceDelta != 0 {
			fmt.Printf("    confidence %.2f -> %.2f\n", ch.Old.Confidence, ch.New.Confidence)
		}
		if len(ch.AddedEvidence) > 0 {
			fmt.Printf("    +%d evidence reference(s)\n", len(ch.AddedEvidence))
		}
		if len(ch.RemovedEvidence) > 0 {
			fmt.Printf("    -%d evidence reference(s)\n", len(ch.RemovedEvidence))
		}
	}
	for _, se := range result.SilentEdits {
		fmt.Printf("! silent edit at %s (content changed without correction)\n", se.Source)
	}

	fmt.Printf("\n%d change(s)\n", result.TotalChanges())
	return nil
}
