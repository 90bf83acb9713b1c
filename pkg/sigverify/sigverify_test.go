package sigverify

import (
	"os"
	"path/filepath"
	"testing"
)

func TestVerify_MissingTrustedKeysFile(t *testing.T) {
	v := New()
	dir := t.TempDir()
	sig := filepath.Join(dir, "package.zip.minisig")
	os.WriteFile(sig, []byte("untrusted signature bytes"), 0644)

	err := v.Verify([]byte("data"), sig, filepath.Join(dir, "does-not-exist.pub"))
	if err == nil {
		t.Fatal("expected error for missing trusted keys file")
	}
}

func TestVerify_EmptyTrustedKeysFile(t *testing.T) {
	v := New()
	dir := t.TempDir()
	sig := filepath.Join(dir, "package.zip.minisig")
	keys := filepath.Join(dir, "trusted.pub")
	os.WriteFile(sig, []byte("untrusted signature bytes"), 0644)
	os.WriteFile(keys, []byte("# no real keys here\n\n"), 0644)

	err := v.Verify([]byte("data"), sig, keys)
	if err == nil {
		t.Fatal("expected error when no trusted keys are loaded")
	}
}
