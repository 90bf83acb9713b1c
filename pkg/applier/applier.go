// Package applier builds the argument vector used to invoke the external
// update-applier child process, for both the A/B and legacy package
// layouts.
package applier

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/otacore/recovery/pkg/errors"
	"github.com/otacore/recovery/pkg/ozip"
)

const (
	payloadPropertiesEntry = "payload_properties.txt"
	payloadEntry            = "payload.bin"
	legacyUpdateBinaryEntry = "META-INF/com/google/android/update-binary"
)

// ABOptions configures BuildABCommand.
type ABOptions struct {
	ApplierPath   string // e.g. "/sbin/update_engine_sideload"
	PackagePath   string
	StatusWriteFD int
}

// BuildABCommand locates payload_properties.txt and payload.bin in the
// archive and returns the argv for /sbin/update_engine_sideload. Fails
// with ErrEntryMissing (CORRUPT-class) if either entry is absent, or
// wraps an extraction failure.
func BuildABCommand(archive ozip.Archive, opts ABOptions) ([]string, error) {
	propsEntry, ok := archive.Find(payloadPropertiesEntry)
	if !ok {
		slog.Error("applier_missing_entry", "entry", payloadPropertiesEntry)
		return nil, ErrEntryMissing
	}
	headers, err := archive.ExtractToMemory(propsEntry)
	if err != nil {
		return nil, errors.Wrap(err, "failed to extract payload properties")
	}

	payload, ok := archive.Find(payloadEntry)
	if !ok {
		slog.Error("applier_missing_entry", "entry", payloadEntry)
		return nil, ErrEntryMissing
	}

	slog.Info("applier_command_built", "variant", "ab", "payload_offset", payload.Offset)

	return []string{
		opts.ApplierPath,
		fmt.Sprintf("--payload=file://%s", opts.PackagePath),
		fmt.Sprintf("--offset=%d", payload.Offset),
		"--headers=" + string(headers),
		fmt.Sprintf("--status_fd=%d", opts.StatusWriteFD),
	}, nil
}

// LegacyOptions configures BuildLegacyCommand.
type LegacyOptions struct {
	ScratchPath   string // well-known extraction path, e.g. "/tmp/update_binary"
	APIVersion    string
	StatusWriteFD int
	PackagePath   string
	RetryCount    int
}

// BuildLegacyCommand extracts the embedded update-binary to opts.ScratchPath
// with mode 0755 (removing any stale file first) and returns its argv.
// Appends "retry" iff opts.RetryCount > 0.
func BuildLegacyCommand(archive ozip.Archive, opts LegacyOptions) ([]string, error) {
	entry, ok := archive.Find(legacyUpdateBinaryEntry)
	if !ok {
		slog.Error("applier_missing_entry", "entry", legacyUpdateBinaryEntry)
		return nil, ErrEntryMissing
	}

	if err := archive.ExtractToFile(entry, opts.ScratchPath, os.FileMode(0755)); err != nil {
		slog.Error("applier_extraction_failed", "scratch_path", opts.ScratchPath, "error", err)
		return nil, errors.Wrap(err, "failed to extract update-binary")
	}

	cmd := []string{
		opts.ScratchPath,
		opts.APIVersion,
		fmt.Sprintf("%d", opts.StatusWriteFD),
		opts.PackagePath,
	}
	if opts.RetryCount > 0 {
		cmd = append(cmd, "retry")
	}

	slog.Info("applier_command_built", "variant", "legacy", "scratch_path", opts.ScratchPath, "retry_count", opts.RetryCount)
	return cmd, nil
}
