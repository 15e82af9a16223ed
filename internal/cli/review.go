package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/watchtower/internal/llm"
)

var (
	reviewForce    bool
	reviewProvider string
	reviewModel    string
)

// reviewCmd represents the review command
var reviewCmd = &cobra.Command{
	Use:   "review <run-id>",
	Short: "Run adversarial review over a sealed run",
	Long: `Review checks a sealed run's claims against their cited evidence and,
when the reviewer approves, marks the run as review-completed. Export is
refused until this flag is set.

With an LLM provider configured, the review is an adversarial model pass
that attacks each claim's support. With --force, the review is a manual
attestation: you assert that a human reviewer has done the same.

Example:
  watchtower review run-2026-03 --provider openai
  watchtower review run-2026-03 --force`,
	Args: cobra.ExactArgs(1),
	RunE: runReview,
}

func init() {
	rootCmd.AddCommand(reviewCmd)

	reviewCmd.Flags().BoolVar(&reviewForce, "force", false, "attest manual review instead of running an LLM pass")
	reviewCmd.Flags().StringVar(&reviewProvider, "provider", "", "LLM provider override (openai, ollama)")
	reviewCmd.Flags().StringVar(&reviewModel, "model", "", "LLM model override")
}

func runReview(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if reviewProvider != "" {
		cfg.LLM.Provider = reviewProvider
	}
	if reviewModel != "" {
		cfg.LLM.Model = reviewModel
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

	if !reviewForce {
		provider, err := llm.NewProvider(cfg.LLM)
		if err != nil {
			return err
		}
		if provider == nil {
			return fmt.Errorf("no LLM provider configured; set llm.provider or use --force to attest a manual review")
		}

		timeout := time.Duration(cfg.LLM.Timeout) * time.Second
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if verbose {
			fmt.Fprintf(os.Stderr, "Reviewing %d claims with %s...\n", len(snap.Claims), provider.Name())
		}

		result, err := provider.Review(ctx, llm.ReviewRequest{
			Snapshot:  snap,
			MaxTokens: cfg.LLM.MaxTokens,
		})
		if err != nil {
			return fmt.Errorf("adversarial review: %w", err)
		}

		fmt.Println(result.Findings)
		if !result.Approved {
			return fmt.Errorf("review rejected run %s; resolve the findings and re-record", args[0])
		}
	}

	run, err := ledger.MarkReviewed(args[0])
	if err != nil {
		return fmt.Errorf("mark reviewed: %w", err)
	}
	fmt.Printf("Run %s marked as reviewed\n", run.ID)
	return nil
}
