// Package installlog accumulates the install log produced during an OTA
// attempt and writes the final log file: a fixed four-line header followed
// by every buffered line. Write records only the path and size in the
// system log; copying the content there is left to the caller.
package installlog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/otacore/recovery/pkg/errors"
)

// Buffer collects log lines emitted during an install. The zero value is
// ready to use.
type Buffer struct {
	lines []string
}

// Append formats a line and adds it to the buffer.
func (b *Buffer) Append(format string, args ...any) {
	b.lines = append(b.lines, fmt.Sprintf(format, args...))
}

// Lines returns a copy of the buffered lines.
func (b *Buffer) Lines() []string {
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

// Len returns the number of buffered lines.
func (b *Buffer) Len() int {
	return len(b.lines)
}

// Header is the fixed-position block at the top of every install log:
// package path, success bit, total time, and retry count, in that order.
type Header struct {
	PackagePath string
	Success     bool
	TimeTotal   int64 // seconds, truncated
	RetryCount  int
}

// Render concatenates the header and buffer into the final log content.
// The header block always carries a trailing newline; buffered lines
// follow joined by newlines.
func Render(h Header, b *Buffer) string {
	successBit := "0"
	if h.Success {
		successBit = "1"
	}
	header := []string{
		h.PackagePath,
		successBit,
		fmt.Sprintf("time_total: %d", h.TimeTotal),
		fmt.Sprintf("retry: %d", h.RetryCount),
	}
	return strings.Join(header, "\n") + "\n" + strings.Join(b.lines, "\n")
}

// Write stores content at path atomically: the content lands in a
// temporary file in the same directory and is renamed into place.
func Write(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "failed to create install log directory")
	}

	tmp, err := os.CreateTemp(dir, ".install-log-*")
	if err != nil {
		return errors.Wrap(err, "failed to create temporary install log")
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Wrap(err, "failed to write install log")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, "failed to close install log")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, "failed to move install log into place")
	}

	slog.Info("install_log_written", "path", path, "bytes", len(content))
	return nil
}
