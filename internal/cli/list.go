package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/watchtower/internal/store"
)

var (
	listSource        string
	listSince         string
	listLimit         int
	listMinConfidence float64
)

// listCmd groups ledger listing commands
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List ledger records",
}

var listEvidenceCmd = &cobra.Command{
	Use:   "evidence",
	Short: "List evidence records in insertion order",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ledger, err := openLedger(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = ledger.Close() }()

		filter := store.EvidenceFilter{Source: listSource, Limit: listLimit}
		if listSince != "" {
			since, err := time.Parse(time.RFC3339, listSince)
			if err != nil {
				return fmt.Errorf("parse --since: %w", err)
			}
			filter.Since = since
		}

		items, err := ledger.ListEvidence(filter)
		if err != nil {
			return err
		}
		for _, ev := range items {
			fmt.Printf("%s  %s  %s\n", ev.ID[:12], ev.RecordedAt.Format(time.RFC3339), ev.Source)
		}
		fmt.Printf("%d evidence record(s)\n", len(items))
		return nil
	},
}

var listClaimsCmd = &cobra.Command{
	Use:   "claims",
	Short: "List claims in insertion order",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ledger, err := openLedger(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = ledger.Close() }()

		items, err := ledger.ListClaims(store.ClaimFilter{MinConfidence: listMinConfidence, Limit: listLimit})
		if err != nil {
			return err
		}
		for _, c := range items {
			fmt.Printf("%s  %.2f  %s\n", c.ID[:12], c.Confidence, c.Statement)
		}
		fmt.Printf("%d claim(s)\n", len(items))
		return nil
	},
}

var lineageCmd = &cobra.Command{
	Use:   "lineage <artifact-id>",
	Short: "Show an artifact's derivation chain",
	Long: `Lineage walks from the given artifact up through its parents to the
root, printing each step. The chain is finite because a parent is always
recorded before its children.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ledger, err := openLedger(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = ledger.Close() }()

		chain, err := ledger.Lineage(args[0])
		if err != nil {
			return err
		}
		for i, a := range chain {
			indent := strings.Repeat("  ", i)
			note := a.LineageNote
			if note == "" {
				note = "(no note)"
			}
			fmt.Printf("%s%s  %s  %s\n", indent, a.ID[:12], a.Type, note)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(lineageCmd)
	listCmd.AddCommand(listEvidenceCmd)
	listCmd.AddCommand(listClaimsCmd)

	listEvidenceCmd.Flags().StringVar(&listSource, "source", "", "filter by exact source descriptor")
	listEvidenceCmd.Flags().StringVar(&listSince, "since", "", "only records at or after this RFC3339 time")
	listEvidenceCmd.Flags().IntVar(&listLimit, "limit", 0, "maximum records to return (0 = all)")
	listClaimsCmd.Flags().Float64Var(&listMinConfidence, "min-confidence", 0, "only claims at or above this confidence")
	listClaimsCmd.Flags().IntVar(&listLimit, "limit", 0, "maximum records to return (0 = all)")
}
