package slot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/otacore/recovery/pkg/bootctrl"
	"github.com/otacore/recovery/pkg/props"
	"github.com/otacore/recovery/pkg/scanner"
)

func propsWith(t *testing.T, veritymode, suffix string) *props.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "default.prop")
	content := "ro.boot.veritymode=" + veritymode + "\nro.boot.slot_suffix=" + suffix + "\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	store, err := props.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	return store
}

// writeDevice creates a file standing in for a slotted block device with
// the given number of blocks.
func writeDevice(t *testing.T, dir, name string, blocks int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, make([]byte, blocks*scanner.BlockSize), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestMarkBootSuccessfulIfNeeded_AlreadyMarked(t *testing.T) {
	bc := &bootctrl.Fake{Successful: bootctrl.ResultTrue}
	v := NewVerifier(bc, propsWith(t, "enforcing", "_a"), "/nonexistent/care_map.txt", nil)

	if err := v.MarkBootSuccessfulIfNeeded(context.Background()); err != nil {
		t.Fatalf("already-marked slot should be a no-op success: %v", err)
	}
	if bc.MarkedCalls != 0 {
		t.Errorf("mark should not be called, got %d calls", bc.MarkedCalls)
	}
}

func TestMarkBootSuccessfulIfNeeded_VerityEIO(t *testing.T) {
	dir := t.TempDir()
	careMap := filepath.Join(dir, "care_map.txt")
	device := writeDevice(t, dir, "system_a", 8)
	os.WriteFile(careMap, []byte(device[:len(device)-2]+"\n4,0,2,5,7\n"), 0644)

	bc := &bootctrl.Fake{Successful: bootctrl.ResultFalse, MarkOK: true}
	v := NewVerifier(bc, propsWith(t, "eio", "_a"), careMap, nil)

	err := v.MarkBootSuccessfulIfNeeded(context.Background())
	if !errors.Is(err, ErrVerityEIO) {
		t.Fatalf("got %v, want ErrVerityEIO", err)
	}
	if bc.MarkedCalls != 0 {
		t.Error("slot must not be marked in EIO mode")
	}
}

func TestMarkBootSuccessfulIfNeeded_VerityNotEnforcing(t *testing.T) {
	bc := &bootctrl.Fake{Successful: bootctrl.ResultFalse, MarkOK: true}
	v := NewVerifier(bc, propsWith(t, "logging", "_a"), "/nonexistent/care_map.txt", nil)

	if err := v.MarkBootSuccessfulIfNeeded(context.Background()); !errors.Is(err, ErrVerityNotEnforcing) {
		t.Fatalf("got %v, want ErrVerityNotEnforcing", err)
	}
}

func TestMarkBootSuccessfulIfNeeded_ScansAndMarks(t *testing.T) {
	dir := t.TempDir()
	writeDevice(t, dir, "system_a", 8)
	prefix := filepath.Join(dir, "system")
	careMap := filepath.Join(dir, "care_map.txt")
	os.WriteFile(careMap, []byte(prefix+"\n4,0,2,5,7\n"), 0644)

	bc := &bootctrl.Fake{Successful: bootctrl.ResultFalse, MarkOK: true}
	v := NewVerifier(bc, propsWith(t, "enforcing", "_a"), careMap, nil)

	if err := v.MarkBootSuccessfulIfNeeded(context.Background()); err != nil {
		t.Fatalf("verification failed: %v", err)
	}
	if bc.MarkedCalls != 1 {
		t.Errorf("mark calls: got %d, want 1", bc.MarkedCalls)
	}
}

func TestMarkBootSuccessfulIfNeeded_InvalidFallsThroughToVerification(t *testing.T) {
	dir := t.TempDir()
	writeDevice(t, dir, "system_a", 8)
	prefix := filepath.Join(dir, "system")
	careMap := filepath.Join(dir, "care_map.txt")
	os.WriteFile(careMap, []byte(prefix+"\n2,0,8\n"), 0644)

	bc := &bootctrl.Fake{Successful: bootctrl.ResultInvalid, MarkOK: true}
	v := NewVerifier(bc, propsWith(t, "enforcing", "_a"), careMap, nil)

	if err := v.MarkBootSuccessfulIfNeeded(context.Background()); err != nil {
		t.Fatalf("INVALID slot state should still verify and mark: %v", err)
	}
	if bc.MarkedCalls != 1 {
		t.Errorf("mark calls: got %d, want 1", bc.MarkedCalls)
	}
}

func TestMarkBootSuccessfulIfNeeded_MissingCareMapStillMarks(t *testing.T) {
	bc := &bootctrl.Fake{Successful: bootctrl.ResultFalse, MarkOK: true}
	v := NewVerifier(bc, propsWith(t, "enforcing", "_a"), "/nonexistent/care_map.txt", nil)

	if err := v.MarkBootSuccessfulIfNeeded(context.Background()); err != nil {
		t.Fatalf("missing care map means nothing to verify: %v", err)
	}
	if bc.MarkedCalls != 1 {
		t.Errorf("mark calls: got %d, want 1", bc.MarkedCalls)
	}
}

func TestMarkBootSuccessfulIfNeeded_MissingDeviceFails(t *testing.T) {
	dir := t.TempDir()
	careMap := filepath.Join(dir, "care_map.txt")
	os.WriteFile(careMap, []byte(filepath.Join(dir, "absent")+"\n2,0,1\n"), 0644)

	bc := &bootctrl.Fake{Successful: bootctrl.ResultFalse, MarkOK: true}
	v := NewVerifier(bc, propsWith(t, "enforcing", "_a"), careMap, nil)

	if err := v.MarkBootSuccessfulIfNeeded(context.Background()); err == nil {
		t.Fatal("unreadable device must fail verification")
	}
	if bc.MarkedCalls != 0 {
		t.Error("slot must not be marked when verification fails")
	}
}

func TestMarkBootSuccessfulIfNeeded_MarkRejected(t *testing.T) {
	bc := &bootctrl.Fake{Successful: bootctrl.ResultFalse, MarkOK: false, MarkMsg: "nope"}
	v := NewVerifier(bc, propsWith(t, "enforcing", "_a"), "/nonexistent/care_map.txt", nil)

	if err := v.MarkBootSuccessfulIfNeeded(context.Background()); !errors.Is(err, ErrMarkRejected) {
		t.Fatalf("got %v, want ErrMarkRejected", err)
	}
}

func TestMarkBootSuccessfulIfNeeded_NoBootControl(t *testing.T) {
	v := NewVerifier(nil, propsWith(t, "enforcing", "_a"), "/nonexistent/care_map.txt", nil)
	if err := v.MarkBootSuccessfulIfNeeded(context.Background()); !errors.Is(err, ErrNoBootControl) {
		t.Fatalf("got %v, want ErrNoBootControl", err)
	}
}
