// Package bootctrl drives the boot-control facility that owns slot state
// on A/B devices. The installer core never flips slots itself; it only
// queries and marks through this interface.
package bootctrl

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	ota_errors "github.com/otacore/recovery/pkg/errors"
)

// SlotResult is the tri-valued answer to "has this slot booted
// successfully before".
type SlotResult int

const (
	ResultFalse SlotResult = iota
	ResultTrue
	ResultInvalid
)

func (r SlotResult) String() string {
	switch r {
	case ResultTrue:
		return "TRUE"
	case ResultFalse:
		return "FALSE"
	case ResultInvalid:
		return "INVALID"
	}
	return "INVALID"
}

// ErrUnavailable means the boot-control facility could not be reached.
var ErrUnavailable = errors.New("bootctrl: boot control unavailable")

// BootControl is the slot-state contract the verifier consumes.
type BootControl interface {
	CurrentSlot(ctx context.Context) (uint32, error)
	IsSlotMarkedSuccessful(ctx context.Context, slot uint32) (SlotResult, error)
	// MarkBootSuccessful reports the facility's own success flag and
	// error message separately from transport errors.
	MarkBootSuccessful(ctx context.Context) (ok bool, errMsg string, err error)
}

// ExecClient shells out to a bootctl-style helper binary.
type ExecClient struct {
	binPath string
}

// NewExecClient returns a BootControl backed by the helper at binPath.
func NewExecClient(binPath string) *ExecClient {
	return &ExecClient{binPath: binPath}
}

// CurrentSlot runs `bootctl get-current-slot` and parses the slot index
// off stdout.
func (c *ExecClient) CurrentSlot(ctx context.Context) (uint32, error) {
	out, err := exec.CommandContext(ctx, c.binPath, "get-current-slot").Output()
	if err != nil {
		slog.Error("bootctl_current_slot_failed", "bin", c.binPath, "error", err)
		return 0, ota_errors.Wrap(ErrUnavailable, err.Error())
	}
	slot, err := strconv.ParseUint(strings.TrimSpace(string(out)), 10, 32)
	if err != nil {
		slog.Error("bootctl_current_slot_unparsable", "output", string(out))
		return 0, ota_errors.Wrap(err, "unparsable current slot")
	}
	return uint32(slot), nil
}

// IsSlotMarkedSuccessful runs `bootctl is-slot-marked-successful <slot>`.
// Exit code 0 maps to TRUE, 1 to FALSE; anything else is INVALID.
func (c *ExecClient) IsSlotMarkedSuccessful(ctx context.Context, slot uint32) (SlotResult, error) {
	cmd := exec.CommandContext(ctx, c.binPath, "is-slot-marked-successful", strconv.FormatUint(uint64(slot), 10))
	err := cmd.Run()
	if err == nil {
		return ResultTrue, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.ExitCode() == 1 {
			return ResultFalse, nil
		}
		slog.Warn("bootctl_slot_query_invalid", "slot", slot, "exit_code", exitErr.ExitCode())
		return ResultInvalid, nil
	}

	slog.Error("bootctl_slot_query_failed", "slot", slot, "error", err)
	return ResultInvalid, ota_errors.Wrap(ErrUnavailable, err.Error())
}

// MarkBootSuccessful runs `bootctl mark-boot-successful`. A non-zero exit
// is the facility rejecting the mark, reported through ok/errMsg rather
// than err.
func (c *ExecClient) MarkBootSuccessful(ctx context.Context) (bool, string, error) {
	cmd := exec.CommandContext(ctx, c.binPath, "mark-boot-successful")
	out, err := cmd.CombinedOutput()
	if err == nil {
		slog.Info("bootctl_marked_successful")
		return true, "", nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		msg := strings.TrimSpace(string(out))
		slog.Error("bootctl_mark_rejected", "exit_code", exitErr.ExitCode(), "message", msg)
		return false, msg, nil
	}

	slog.Error("bootctl_mark_failed", "error", err)
	return false, "", ota_errors.Wrap(ErrUnavailable, err.Error())
}
