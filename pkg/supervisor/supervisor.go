// Package supervisor runs the external update applier as a child process
// and mediates the line-oriented status protocol it writes back over a
// dedicated pipe. All UI and log side effects are applied in pipe order
// before the terminal status is computed.
package supervisor

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"syscall"

	"github.com/otacore/recovery/pkg/errors"
	"github.com/otacore/recovery/pkg/installlog"
	"github.com/otacore/recovery/pkg/ui"
)

// ChildStatusFD is the descriptor number the applier sees for the write
// end of its status pipe. The first entry of exec.Cmd.ExtraFiles always
// lands on fd 3 in the child.
const ChildStatusFD = 3

// VerificationProgressFraction is the share of the progress bar reserved
// for package verification; applier progress segments are scaled into the
// remainder.
const VerificationProgressFraction = 0.25

// VerificationProgressTime is the nominal duration in seconds of the
// verification progress segment.
const VerificationProgressTime = 60

// Status is the supervisor's terminal classification of a child run.
type Status int

const (
	// StatusSuccess means the child exited normally with code zero and
	// never requested a retry.
	StatusSuccess Status = iota
	// StatusError means the child exited abnormally or with a non-zero
	// code.
	StatusError
	// StatusRetry means the child emitted retry_update; it overrides the
	// exit code entirely.
	StatusRetry
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	case StatusRetry:
		return "retry"
	}
	return "unknown"
}

// Result is the compound outcome of one applier run. WipeCache is carried
// here rather than through a mutable out-parameter.
type Result struct {
	Status    Status
	WipeCache bool
}

// Run starts argv as a child process with the status pipe's write end on
// fd 3, consumes protocol lines until EOF, reaps the child, and computes
// the terminal status. A process-launch failure returns a non-nil error;
// every post-launch outcome is expressed through Result.Status.
func Run(ctx context.Context, argv []string, surface ui.UI, logBuf *installlog.Buffer) (Result, error) {
	if len(argv) == 0 {
		return Result{Status: StatusError}, errors.Wrap(os.ErrInvalid, "empty applier command")
	}

	r, w, err := os.Pipe()
	if err != nil {
		return Result{Status: StatusError}, errors.Wrap(err, "failed to create status pipe")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.ExtraFiles = []*os.File{w}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	slog.Info("applier_starting", "path", argv[0], "args", len(argv)-1)

	// The applier inherits a 022 creation mask, as the recovery
	// environment guarantees. Restored immediately after the child holds
	// its copy.
	oldMask := syscall.Umask(0o022)
	err = cmd.Start()
	syscall.Umask(oldMask)
	if err != nil {
		r.Close()
		w.Close()
		slog.Error("applier_start_failed", "path", argv[0], "error", err)
		return Result{Status: StatusError}, errors.Wrap(err, "failed to start applier")
	}
	// The child owns its copy of the write end now; without this close
	// the scanner below would never see EOF.
	w.Close()

	var (
		result      Result
		retryUpdate bool
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		c := parseLine(line)

		switch c.kind {
		case cmdProgress:
			surface.ShowProgress(c.fraction*(1-VerificationProgressFraction), c.seconds)
		case cmdSetProgress:
			surface.SetProgress(c.fraction)
		case cmdUIPrint:
			if c.text == "" {
				surface.PrintOnScreen("\n")
			} else {
				surface.PrintOnScreen(c.text)
			}
		case cmdWipeCache:
			result.WipeCache = true
		case cmdClearDisplay:
			surface.SetBackground(ui.BackgroundNone)
		case cmdEnableReboot:
			surface.SetEnableReboot(true)
		case cmdRetryUpdate:
			retryUpdate = true
		case cmdLog:
			logBuf.Append("%s", c.text)
		case cmdMalformed:
			slog.Warn("applier_malformed_line", "command", c.name, "line", line)
		case cmdUnknown:
			slog.Warn("applier_unknown_command", "command", c.name)
		}
	}
	if err := scanner.Err(); err != nil {
		slog.Warn("applier_pipe_read_failed", "error", err)
	}
	r.Close()

	waitErr := cmd.Wait()

	if retryUpdate {
		slog.Info("applier_requested_retry", "path", argv[0])
		result.Status = StatusRetry
		return result, nil
	}
	if waitErr != nil {
		slog.Error("applier_failed", "path", argv[0], "error", waitErr)
		result.Status = StatusError
		return result, nil
	}

	slog.Info("applier_succeeded", "path", argv[0], "wipe_cache", result.WipeCache)
	result.Status = StatusSuccess
	return result, nil
}
