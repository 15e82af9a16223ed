package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// runCmd groups run lifecycle commands
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Manage investigation runs",
	Long: `A run groups the evidence, claims, and artifacts recorded while it is
open. Sealing a run freezes its member set and stamps a fingerprint over
the members, making later comparison and verification reproducible.`,
}

var runBeginCmd = &cobra.Command{
	Use:   "begin <run-id>",
	Short: "Open a new run",
	Long: `Begin opens a run. Records appended while the run is open become its
members. Only one run can be open at a time.`,
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

		run, err := ledger.BeginRun(args[0])
		if err != nil {
			return fmt.Errorf("begin run: %w", err)
		}
		fmt.Printf("Run %s opened at %s\n", run.ID, run.StartedAt.Format("2006-01-02 15:04:05 MST"))
		return nil
	},
}

var runSealCmd = &cobra.Command{
	Use:   "seal <run-id>",
	Short: "Seal a run and stamp its fingerprint",
	Long: `Seal freezes the run's member set. The run's fingerprint is computed
over its member identifiers; any record attaching, removal, or edit would
change it. Sealed runs accept no further members.`,
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

		run, err := ledger.SealRun(args[0])
		if err != nil {
			return fmt.Errorf("seal run: %w", err)
		}
		fmt.Printf("Run %s sealed\n", run.ID)
		fmt.Printf("Fingerprint: %s\n", run.Fingerprint)
		return nil
	},
}

var runShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run's status and members",
	Args:  cobra.ExactArgs(1),
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

		run, err := ledger.GetRun(args[0])
		if err != nil {
			return fmt.Errorf("show run: %w", err)
		}

		fmt.Printf("Run:       %s\n", run.ID)
		fmt.Printf("Started:   %s\n", run.StartedAt.Format("2006-01-02 15:04:05 MST"))
		if run.Sealed {
			fmt.Printf("Sealed:    %s\n", run.SealedAt.Format("2006-01-02 15:04:05 MST"))
			fmt.Printf("Reviewed:  %v\n", run.ReviewCompleted)
			fmt.Printf("Fingerprint: %s\n", run.Fingerprint)
		} else {
			fmt.Printf("Sealed:    no\n")
		}

		if run.Sealed {
			snap, err := ledger.Snapshot(run.ID)
			if err != nil {
				return fmt.Errorf("snapshot run: %w", err)
			}
			fmt.Printf("Members:   %d evidence, %d claims, %d artifacts\n",
				len(snap.Evidence), len(snap.Claims), len(snap.Artifacts))
			if verbose {
				for _, ev := range snap.Evidence {
					fmt.Fprintf(os.Stderr, "  evidence %s  %s\n", ev.ID[:12], ev.Source)
				}
				for _, c := range snap.Claims {
					fmt.Fprintf(os.Stderr, "  claim    %s  %.2f  %s\n", c.ID[:12], c.Confidence, c.Statement)
				}
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.AddCommand(runBeginCmd)
	runCmd.AddCommand(runSealCmd)
	runCmd.AddCommand(runShowCmd)
}
