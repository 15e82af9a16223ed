package seal

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// writeTestKeyPair generates a keypair and writes the private and public
// keyrings in binary form, returning both paths.
func writeTestKeyPair(t *testing.T) (privPath, pubPath string) {
	t.Helper()

	entity, err := openpgp.NewEntity("Case Reviewer", "", "reviewer@example.org", nil)
	if err != nil {
		t.Fatalf("NewEntity failed: %v", err)
	}

	dir := t.TempDir()
	privPath = filepath.Join(dir, "signing.key")
	pubPath = filepath.Join(dir, "signing.pub")

	priv, err := os.Create(privPath)
	if err != nil {
		t.Fatalf("create private keyring: %v", err)
	}
	if err := entity.SerializePrivate(priv, nil); err != nil {
		t.Fatalf("serialize private key: %v", err)
	}
	if err := priv.Close(); err != nil {
		t.Fatal(err)
	}

	pub, err := os.Create(pubPath)
	if err != nil {
		t.Fatalf("create public keyring: %v", err)
	}
	if err := entity.Serialize(pub); err != nil {
		t.Fatalf("serialize public key: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatal(err)
	}
	return privPath, pubPath
}

func TestSigner_SignAndVerify(t *testing.T) {
	privPath, pubPath := writeTestKeyPair(t)

	signer, err := NewSigner(privPath, "")
	if err != nil {
		t.Fatalf("NewSigner failed: %v", err)
	}

	manifest := []byte(`{"run_id":"case-42","fingerprint":"abc"}`)
	var sig bytes.Buffer
	if err := signer.Sign(&sig, manifest); err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if !strings.Contains(sig.String(), "BEGIN PGP SIGNATURE") {
		t.Error("Expected an armored detached signature")
	}

	verifier, err := NewVerifier(pubPath)
	if err != nil {
		t.Fatalf("NewVerifier failed: %v", err)
	}

	keyFingerprint, err := verifier.Verify(manifest, sig.Bytes())
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if keyFingerprint == "" {
		t.Error("Expected the signing key fingerprint")
	}
}

func TestVerifier_Verify_TamperedData(t *testing.T) {
	privPath, pubPath := writeTestKeyPair(t)

	signer, err := NewSigner(privPath, "")
	if err != nil {
		t.Fatalf("NewSigner failed: %v", err)
	}
	verifier, err := NewVerifier(pubPath)
	if err != nil {
		t.Fatalf("NewVerifier failed: %v", err)
	}

	manifest := []byte(`{"run_id":"case-42"}`)
	var sig bytes.Buffer
	if err := signer.Sign(&sig, manifest); err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	tampered := []byte(`{"run_id":"case-43"}`)
	if _, err := verifier.Verify(tampered, sig.Bytes()); err == nil {
		t.Error("Expected verification to fail for tampered data")
	}
}

func TestNewSigner_Errors(t *testing.T) {
	if _, err := NewSigner(filepath.Join(t.TempDir(), "missing.key"), ""); err == nil {
		t.Error("Expected error for missing keyring file")
	}

	// a public-only keyring carries no private key to sign with
	_, pubPath := writeTestKeyPair(t)
	if _, err := NewSigner(pubPath, ""); err == nil {
		t.Error("Expected error for keyring without a private key")
	}
}
