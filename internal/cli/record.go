package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/watchtower/internal/model"
)

var (
	recordContent string
	recordFile    string
	recordSource  string
	recordMeta    []string
)

// recordCmd represents the record command
var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record an evidence item in the ledger",
	Long: `Record appends one evidence item to the append-only ledger.

The item's identifier is derived from its content, source, and recording
tool, so re-recording identical evidence is idempotent: the existing
record is returned instead of a duplicate.

Example:
  watchtower record --content "server logs show..." --source "syslog:host-12"
  watchtower record --file ./transcript.txt --source "interview:2026-03-04"`,
	RunE: runRecord,
}

func init() {
	rootCmd.AddCommand(recordCmd)

	recordCmd.Flags().StringVar(&recordContent, "content", "", "evidence content (mutually exclusive with --file)")
	recordCmd.Flags().StringVar(&recordFile, "file", "", "read evidence content from file")
	recordCmd.Flags().StringVar(&recordSource, "source", "", "source descriptor (required)")
	recordCmd.Flags().StringArrayVar(&recordMeta, "meta", nil, "metadata key=value (repeatable)")
	_ = recordCmd.MarkFlagRequired("source")
}

func runRecord(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	content := recordContent
	if recordFile != "" {
		if content != "" {
			return fmt.Errorf("--content and --file are mutually exclusive")
		}
		data, err := os.ReadFile(recordFile)
		if err != nil {
			return fmt.Errorf("read evidence file: %w", err)
		}
		content = string(data)
	}

	metadata, err := parseMeta(recordMeta)
	if err != nil {
		return err
	}

	ledger, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = ledger.Close() }()

	ev, err := ledger.StoreEvidence(content, recordSource, model.DefaultTool(), metadata)
	if err != nil {
		return fmt.Errorf("record evidence: %w", err)
	}

	fmt.Printf("%s\n", ev.ID)
	if verbose {
		fmt.Fprintf(os.Stderr, "Recorded evidence from %s (%d bytes)\n", ev.Source, len(ev.Content))
	}
	return nil
}

// parseMeta converts repeated key=value flags into a metadata map.
func parseMeta(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	meta := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid metadata %q, expected key=value", pair)
		}
		meta[key] = value
	}
	return meta, nil
}
