// Package slot implements the post-boot verifier's decision flow: on the
// first boot after a slot switch, read through every care-map block range
// and, only if all reads succeed under an enforcing verity layer, mark
// the current slot as having booted successfully.
package slot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/otacore/recovery/pkg/bootctrl"
	"github.com/otacore/recovery/pkg/caremap"
	ota_errors "github.com/otacore/recovery/pkg/errors"
	"github.com/otacore/recovery/pkg/props"
	"github.com/otacore/recovery/pkg/scanner"
	"github.com/otacore/recovery/pkg/verity"
)

var (
	ErrNoBootControl      = errors.New("slot: boot control unavailable")
	ErrVerityEIO          = errors.New("slot: dm-verity is in EIO mode")
	ErrVerityNotEnforcing = errors.New("slot: dm-verity is not enforcing")
	ErrMarkRejected       = errors.New("slot: boot control rejected mark-successful")
)

// Verifier wires the care map, block scanner, verity check, and boot
// control into the first-boot verification flow.
type Verifier struct {
	bc          bootctrl.BootControl
	store       *props.Store
	careMapPath string
	checker     verity.Checker
}

// NewVerifier creates a Verifier. checker may be nil to skip the advisory
// dm-verity target inspection.
func NewVerifier(bc bootctrl.BootControl, store *props.Store, careMapPath string, checker verity.Checker) *Verifier {
	return &Verifier{
		bc:          bc,
		store:       store,
		careMapPath: careMapPath,
		checker:     checker,
	}
}

// MarkBootSuccessfulIfNeeded queries the current slot and, unless it is
// already marked successful, verifies every care-map range and marks it.
// Only a TRUE answer from boot control counts as already marked; FALSE
// and INVALID both fall through to verification.
func (v *Verifier) MarkBootSuccessfulIfNeeded(ctx context.Context) error {
	if v.bc == nil {
		slog.Error("slot_no_boot_control")
		return ErrNoBootControl
	}

	slot, err := v.bc.CurrentSlot(ctx)
	if err != nil {
		return ota_errors.Wrap(err, "failed to query current slot")
	}

	successful, err := v.bc.IsSlotMarkedSuccessful(ctx, slot)
	if err != nil {
		return ota_errors.Wrap(err, "failed to query slot state")
	}
	slog.Info("slot_state", "slot", slot, "successful", successful.String())

	if successful == bootctrl.ResultTrue {
		slog.Info("slot_already_marked", "slot", slot)
		return nil
	}

	if err := v.checkVerityMode(); err != nil {
		return err
	}
	if err := v.verifyPartitions(ctx); err != nil {
		return err
	}

	ok, errMsg, err := v.bc.MarkBootSuccessful(ctx)
	if err != nil {
		return ota_errors.Wrap(err, "failed to mark boot successful")
	}
	if !ok {
		slog.Error("slot_mark_rejected", "slot", slot, "message", errMsg)
		return fmt.Errorf("%w: %s", ErrMarkRejected, errMsg)
	}

	slog.Info("slot_marked_successful", "slot", slot)
	return nil
}

// checkVerityMode enforces the trust precondition: a slot that has not
// booted successfully must be running under enforcing verity. EIO mode
// means prior read errors were tolerated instead of enforced.
func (v *Verifier) checkVerityMode() error {
	mode := v.store.Get(props.VerityMode)
	if strings.EqualFold(mode, "eio") {
		slog.Error("slot_verity_eio_mode")
		return ErrVerityEIO
	}
	if mode != "enforcing" {
		slog.Error("slot_verity_unexpected_mode", "mode", mode)
		return ErrVerityNotEnforcing
	}
	return nil
}

// verifyPartitions reads through every care-map range on every listed
// device, composing each device path from the current slot suffix.
func (v *Verifier) verifyPartitions(ctx context.Context) error {
	entries, err := caremap.Read(v.careMapPath)
	if err != nil {
		return ota_errors.Wrap(err, "failed to read care map")
	}

	suffix := v.store.Get(props.SlotSuffix)
	for _, entry := range entries {
		device := entry.DevicePrefix + suffix

		ranges, err := scanner.ParseRangeSpec(entry.RangeSpec)
		if err != nil {
			return ota_errors.Wrap(err, fmt.Sprintf("bad range spec for %s", device))
		}

		blocks, err := scanner.Scan(ctx, device, ranges)
		if err != nil {
			return ota_errors.Wrap(err, fmt.Sprintf("failed to verify %s", device))
		}
		slog.Info("slot_partition_verified", "device", device, "blocks", blocks)

		if v.checker != nil {
			if err := v.checker.CheckTarget(ctx, device); err != nil {
				return ota_errors.Wrap(err, fmt.Sprintf("verity target check failed for %s", device))
			}
		}
	}
	return nil
}
