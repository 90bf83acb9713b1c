// Package sigverify is the signature verifier the installer depends on as
// an external, trusted collaborator. It checks a package file against a
// set of public keys loaded from a trusted-keys file, mirroring the
// role Android's verifier.cpp plays against /res/keys — implemented here
// with minisign so the trust store is a flat list of real signing keys
// rather than a hand-rolled digest scheme.
package sigverify

import (
	"log/slog"
	"os"
	"strings"

	"github.com/jedisct1/go-minisign"

	"github.com/otacore/recovery/pkg/errors"
)

// Verifier verifies mapped package contents against a detached signature
// using a trusted-keys store.
type Verifier interface {
	// Verify checks signaturePath against data using every key loaded
	// from trustedKeysPath. It succeeds if at least one trusted key
	// validates the signature.
	Verify(data []byte, signaturePath, trustedKeysPath string) error
}

type minisignVerifier struct{}

// New returns the minisign-backed Verifier.
func New() Verifier {
	return &minisignVerifier{}
}

func (v *minisignVerifier) Verify(data []byte, signaturePath, trustedKeysPath string) error {
	keys, err := loadKeys(trustedKeysPath)
	if err != nil {
		return errors.Wrap(err, "failed to load trusted keys")
	}
	if len(keys) == 0 {
		return errors.Wrap(ErrNoTrustedKeys, "failed to load trusted keys")
	}

	sig, err := minisign.NewSignatureFromFile(signaturePath)
	if err != nil {
		return errors.Wrap(err, "failed to read signature file")
	}

	for _, key := range keys {
		ok, err := key.Verify(data, sig)
		if err == nil && ok {
			slog.Info("signature_verified", "size", len(data))
			return nil
		}
	}

	slog.Error("signature_verification_failed", "size", len(data), "trusted_keys", len(keys))
	return ErrSignatureInvalid
}

func loadKeys(path string) ([]minisign.PublicKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var keys []minisign.PublicKey
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, err := minisign.NewPublicKey(line)
		if err != nil {
			slog.Warn("trusted_key_parse_failed", "error", err)
			continue
		}
		keys = append(keys, key)
	}

	slog.Info("trusted_keys_loaded", "count", len(keys), "path", path)
	return keys, nil
}
