package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/watchtower/internal/fingerprint"
	"github.com/ppiankov/watchtower/internal/seal"
)

var (
	verifySig     string
	verifyKeyring string
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify <run-id>",
	Short: "Verify a sealed run's integrity",
	Long: `Verify recomputes every member record's identifier from its stored
fields and the run fingerprint from its member set, and compares both to
the recorded values. Any divergence means the ledger was tampered with.

With --sig and --keyring, also checks a detached OpenPGP signature over
the run manifest.

Example:
  watchtower verify run-2026-03
  watchtower verify run-2026-03 --sig run-2026-03.manifest.json.asc --keyring pub.asc`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&verifySig, "sig", "", "detached armored signature over the manifest")
	verifyCmd.Flags().StringVar(&verifyKeyring, "keyring", "", "public keyring to verify the signature with")
}

func runVerify(cmd *cobra.Command, args []string) error {
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

	tampered := 0
	for _, ev := range snap.Evidence {
		ok, err := ledger.VerifyEvidence(ev.ID)
		if err != nil {
			return fmt.Errorf("verify evidence %s: %w", ev.ID[:12], err)
		}
		if !ok {
			tampered++
			fmt.Fprintf(os.Stderr, "✗ evidence %s fails integrity check (%s)\n", ev.ID[:12], ev.Source)
		}
	}

	manifest, err := seal.Build(snap)
	if err != nil {
		return fmt.Errorf("build manifest: %w", err)
	}
	fp := fingerprint.New(cfg.Fingerprint.Precision)
	if err := manifest.Verify(fp); err != nil {
		tampered++
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
	}

	if verifySig != "" || verifyKeyring != "" {
		if verifySig == "" || verifyKeyring == "" {
			return fmt.Errorf("--sig and --keyring must be given together")
		}
		sig, err := os.ReadFile(verifySig)
		if err != nil {
			return fmt.Errorf("read signature: %w", err)
		}
		verifier, err := seal.NewVerifier(verifyKeyring)
		if err != nil {
			return err
		}
		manifestBytes, err := manifest.Encode()
		if err != nil {
			return err
		}
		signerFP, err := verifier.Verify(manifestBytes, sig)
		if err != nil {
			tampered++
			fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		} else if verbose {
			fmt.Fprintf(os.Stderr, "✓ Signature by key %s\n", signerFP)
		}
	}

	if tampered > 0 {
		return fmt.Errorf("run %s failed verification: %d integrity failure(s)", args[0], tampered)
	}

	fmt.Printf("Run %s verified: %d evidence, %d claims, %d artifacts intact\n",
		args[0], len(snap.Evidence), len(snap.Claims), len(snap.Artifacts))
	fmt.Printf("Fingerprint: %s\n", snap.Run.Fingerprint)
	return nil
}
