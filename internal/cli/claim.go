package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/watchtower/internal/model"
)

var (
	claimConfidence float64
	claimSupports   []string
	claimCounters   []string
)

// claimCmd represents the claim command
var claimCmd = &cobra.Command{
	Use:   "claim <statement>",
	Short: "Record a claim backed by evidence references",
	Long: `Claim appends a confidence-weighted assertion to the ledger.

Every claim must reference at least one recorded evidence item, supporting
or counter. A claim with no evidence references is rejected: the ledger
stores no unsupported assertions.

Example:
  watchtower claim "The outage began at 03:14 UTC" --confidence 0.8 --supports <evidence-id>`,
	Args: cobra.ExactArgs(1),
	RunE: runClaim,
}

func init() {
	rootCmd.AddCommand(claimCmd)

	claimCmd.Flags().Float64Var(&claimConfidence, "confidence", 0.5, "confidence in [0,1]")
	claimCmd.Flags().StringArrayVar(&claimSupports, "supports", nil, "supporting evidence ID (repeatable)")
	claimCmd.Flags().StringArrayVar(&claimCounters, "counters", nil, "counter evidence ID (repeatable)")
}

func runClaim(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ledger, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = ledger.Close() }()

	claim, err := ledger.StoreClaim(args[0], claimConfidence, claimSupports, claimCounters, model.DefaultTool())
	if err != nil {
		return fmt.Errorf("record claim: %w", err)
	}

	fmt.Printf("%s\n", claim.ID)
	if verbose {
		fmt.Fprintf(os.Stderr, "Recorded claim with %d evidence references (confidence %.2f)\n", claim.TotalEvidence(), claim.Confidence)
	}
	return nil
}
