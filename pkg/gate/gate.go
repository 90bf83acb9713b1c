// Package gate implements the build/device acceptance predicates an A/B OTA
// package must satisfy before the installer will hand it to the applier.
// A Validator holds the comparison baseline and exposes pure methods that
// slog and return an error, checked in a fixed order by the caller.
package gate

import (
	"log/slog"
	"math"
	"strconv"

	"github.com/otacore/recovery/pkg/metadata"
)

// RuntimeIdentity is the device-side comparison baseline read from
// properties (pkg/props) at gate time.
type RuntimeIdentity struct {
	Device           string
	SerialNo         string
	BuildIncremental string
	BuildFingerprint string
	// BuildDateUTC is the device's current build timestamp. Pass
	// math.MaxInt64 when the property is absent: every finite package
	// timestamp then compares as a downgrade, the conservative default.
	BuildDateUTC int64
}

// Validator checks package metadata against a RuntimeIdentity.
type Validator struct {
	runtime RuntimeIdentity
}

// New creates a Validator bound to the given runtime identity snapshot.
func New(runtime RuntimeIdentity) *Validator {
	return &Validator{runtime: runtime}
}

// Check runs every predicate in order, returning the first failure.
// A nil error means the package is accepted.
func (v *Validator) Check(md *metadata.Metadata) error {
	if md == nil {
		slog.Error("gate_check_failed", "reason", "metadata_unreadable")
		return ErrMetadataUnreadable
	}

	if err := v.checkDevice(md); err != nil {
		return err
	}
	if err := v.checkSerial(md); err != nil {
		return err
	}
	if err := v.checkOTAType(md); err != nil {
		return err
	}
	if err := v.checkPreBuildIncremental(md); err != nil {
		return err
	}
	if err := v.checkPreBuildFingerprint(md); err != nil {
		return err
	}
	if err := v.checkDowngrade(md); err != nil {
		return err
	}

	slog.Info("gate_check_passed", "device", v.runtime.Device)
	return nil
}

func (v *Validator) checkDevice(md *metadata.Metadata) error {
	pkgDevice := md.GetOrEmpty(metadata.KeyPreDevice)
	if pkgDevice == "" || pkgDevice != v.runtime.Device {
		slog.Error("gate_device_mismatch", "package_device", pkgDevice, "runtime_device", v.runtime.Device)
		return ErrDeviceMismatch
	}
	return nil
}

func (v *Validator) checkSerial(md *metadata.Metadata) error {
	pkgSerial := md.GetOrEmpty(metadata.KeySerialNo)
	if pkgSerial != "" && pkgSerial != v.runtime.SerialNo {
		slog.Error("gate_serial_mismatch", "package_serial", pkgSerial)
		return ErrSerialMismatch
	}
	return nil
}

func (v *Validator) checkOTAType(md *metadata.Metadata) error {
	if md.GetOrEmpty(metadata.KeyOTAType) != "AB" {
		slog.Error("gate_not_ab_package")
		return ErrNotABPackage
	}
	return nil
}

func (v *Validator) checkPreBuildIncremental(md *metadata.Metadata) error {
	pkgIncremental := md.GetOrEmpty(metadata.KeyPreBuildIncremental)
	if pkgIncremental != "" && pkgIncremental != v.runtime.BuildIncremental {
		slog.Error("gate_source_build_mismatch", "package_incremental", pkgIncremental, "runtime_incremental", v.runtime.BuildIncremental)
		return ErrSourceBuildMismatch
	}
	return nil
}

func (v *Validator) checkPreBuildFingerprint(md *metadata.Metadata) error {
	pkgFingerprint := md.GetOrEmpty(metadata.KeyPreBuild)
	if pkgFingerprint != "" && pkgFingerprint != v.runtime.BuildFingerprint {
		slog.Error("gate_source_fingerprint_mismatch", "package_fingerprint", pkgFingerprint)
		return ErrSourceBuildMismatch
	}
	return nil
}

func (v *Validator) checkDowngrade(md *metadata.Metadata) error {
	postTimestampStr := md.GetOrEmpty(metadata.KeyPostTimestamp)
	preBuildFingerprint := md.GetOrEmpty(metadata.KeyPreBuild)

	postTimestamp, parseErr := strconv.ParseInt(postTimestampStr, 10, 64)
	isDowngrade := postTimestampStr == "" || parseErr != nil || postTimestamp < v.runtime.BuildDateUTC

	if !isDowngrade {
		return nil
	}

	downgradeAllowed := md.GetOrEmpty(metadata.KeyOTADowngrade) == "yes"
	if !downgradeAllowed {
		slog.Error("gate_downgrade_rejected", "runtime_timestamp", v.runtime.BuildDateUTC, "package_timestamp", postTimestampStr)
		return ErrDowngradeNotAllowed
	}
	if preBuildFingerprint == "" {
		slog.Error("gate_downgrade_missing_pre_build")
		return ErrDowngradeMissingPreBuild
	}

	slog.Info("gate_downgrade_accepted", "pre_build", preBuildFingerprint)
	return nil
}

// MissingTimestampSentinel is the runtime timestamp to use when
// ro.build.date.utc is unset.
const MissingTimestampSentinel = math.MaxInt64
