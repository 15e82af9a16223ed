package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/watchtower/internal/alert"
	"github.com/ppiankov/watchtower/internal/diff"
	"github.com/ppiankov/watchtower/internal/model"
)

var alertsBaseline string

// alertsCmd represents the alerts command
var alertsCmd = &cobra.Command{
	Use:   "alerts <run-id>",
	Short: "Evaluate alert rules against a sealed run",
	Long: `Alerts evaluates the threshold rules against a sealed run: claims
crossing the high-confidence threshold, claims accumulating unusually many
supporting references, and, when a baseline run is given, confidence
shifts and silent evidence edits since that baseline.

Example:
  watchtower alerts run-2026-03
  watchtower alerts run-2026-03 --baseline run-2026-02`,
	Args: cobra.ExactArgs(1),
	RunE: runAlerts,
}

func init() {
	rootCmd.AddCommand(alertsCmd)

	alertsCmd.Flags().StringVar(&alertsBaseline, "baseline", "", "earlier sealed run to diff against")
}

func runAlerts(cmd *cobra.Command, args []string) error {
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

	var d diff.Result
	if alertsBaseline != "" {
		baseline, err := ledger.Snapshot(alertsBaseline)
		if err != nil {
			return fmt.Errorf("snapshot %s: %w", alertsBaseline, err)
		}
		d, err = diff.Runs(baseline, snap)
		if err != nil {
			return fmt.Errorf("diff runs: %w", err)
		}
	}

	engine := alert.NewEngine(cfg.Alerts)
	alerts := engine.Evaluate(d, snap)

	if len(alerts) == 0 {
		fmt.Println("No alerts")
		return nil
	}

	for _, a := range alerts {
		fmt.Printf("[%s] %s: %s\n", severityLabel(a.Severity), a.Rule, a.Message)
	}
	fmt.Printf("\n%d alert(s)\n", len(alerts))
	return nil
}

func severityLabel(s model.AlertSeverity) string {
	switch s {
	case model.SeverityCritical:
		return "CRIT"
	case model.SeverityHigh:
		return "HIGH"
	case model.SeverityMedium:
		return "MED "
	default:
		return "LOW "
	}
}
