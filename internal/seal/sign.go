package seal

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// Signer produces detached armored OpenPGP signatures over manifest bytes.
type Signer struct {
	entity *openpgp.Entity
}

// NewSigner loads a private keyring from keyPath and selects the first entity
// holding a private key. An optional passphrase decrypts the key.
func NewSigner(keyPath, passphrase string) (*Signer, error) {
	entities, err := readKeyRing(keyPath)
	if err != nil {
		return nil, err
	}

	for _, entity := range entities {
		if entity.PrivateKey == nil {
			continue
		}
		if entity.PrivateKey.Encrypted {
			if passphrase == "" {
				return nil, fmt.Errorf("private key in %s is encrypted, passphrase required", keyPath)
			}
			if err := entity.PrivateKey.Decrypt([]byte(passphrase)); err != nil {
				return nil, fmt.Errorf("decrypt private key: %w", err)
			}
		}
		return &Signer{entity: entity}, nil
	}
	return nil, fmt.Errorf("no private key found in %s", keyPath)
}

// Sign writes a detached armored signature over data.
func (s *Signer) Sign(w io.Writer, data []byte) error {
	err := openpgp.ArmoredDetachSign(w, s.entity, bytes.NewReader(data), nil)
	if err != nil {
		return fmt.Errorf("sign manifest: %w", err)
	}
	return nil
}

// Verifier checks detached signatures against a public keyring.
type Verifier struct {
	keyring openpgp.EntityList
}

// NewVerifier loads a public keyring from keyPath.
func NewVerifier(keyPath string) (*Verifier, error) {
	entities, err := readKeyRing(keyPath)
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return nil, fmt.Errorf("no keys found in %s", keyPath)
	}
	return &Verifier{keyring: entities}, nil
}

// Verify checks an armored detached signature over data and returns the
// signing key's fingerprint.
func (v *Verifier) Verify(data, signature []byte) (string, error) {
	entity, err := openpgp.CheckArmoredDetachedSignature(v.keyring, bytes.NewReader(data), bytes.NewReader(signature), nil)
	if err != nil {
		return "", fmt.Errorf("signature verification failed: %w", err)
	}
	return fmt.Sprintf("%X", entity.PrimaryKey.Fingerprint), nil
}

// readKeyRing reads an armored or binary keyring file.
func readKeyRing(path string) (openpgp.EntityList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	defer func() { _ = f.Close() }()

	entities, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		if _, seekErr := f.Seek(0, 0); seekErr != nil {
			return nil, fmt.Errorf("reset keyring file: %w", seekErr)
		}
		entities, err = openpgp.ReadKeyRing(f)
		if err != nil {
			return nil, fmt.Errorf("read keyring: %w", err)
		}
	}
	return entities, nil
}
