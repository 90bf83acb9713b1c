package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/otacore/recovery/pkg/applier"
	ota_errors "github.com/otacore/recovery/pkg/errors"
	"github.com/otacore/recovery/pkg/gate"
	"github.com/otacore/recovery/pkg/metadata"
	"github.com/otacore/recovery/pkg/ozip"
	"github.com/otacore/recovery/pkg/pkgmap"
	"github.com/otacore/recovery/pkg/supervisor"
	"github.com/otacore/recovery/pkg/ui"
	"github.com/superfly/fsm"
)

// packageFilePath strips the mount-reference marker from a request path.
// A leading "@" means "mount the filesystem referenced by the remainder";
// either way the remainder is the file to map.
func packageFilePath(path string) string {
	return strings.TrimPrefix(path, "@")
}

func (m *Machine) checkRetryBudget(ctx context.Context, pkg string) error {
	if retryCount := fsm.RetryFromContext(ctx); retryCount >= uint64(m.opts.MaxRetries) {
		slog.Error("max_retries_exceeded", "package", pkg, "max_retries", m.opts.MaxRetries)
		return fmt.Errorf("max retries (%d) exceeded", m.opts.MaxRetries)
	}
	return nil
}

// handleMapPackage brings the package online and maps it into memory.
func (m *Machine) handleMapPackage(ctx context.Context, req *fsm.Request[InstallRequest, InstallResponse]) (*fsm.Response[InstallResponse], error) {
	slog.Info("fsm_state_map_package", "package", req.Msg.PackagePath)

	if err := m.checkRetryBudget(ctx, req.Msg.PackagePath); err != nil {
		return nil, fsm.Abort(err)
	}

	resp := req.W.Msg
	if resp == nil {
		resp = &InstallResponse{}
	}

	m.surface.SetBackground(ui.BackgroundInstallingUpdate)
	m.surface.Print("Finding update package...\n")
	// Verification gets the leading share of the progress bar.
	m.surface.ShowProgress(supervisor.VerificationProgressFraction, supervisor.VerificationProgressTime)

	path := req.Msg.PackagePath
	m.surface.Print("Opening update package...\n")

	if req.Msg.NeedsMount {
		if err := m.mounter.EnsureMounted(packageFilePath(path)); err != nil {
			slog.Error("package_mount_failed", "package", path, "error", err)
			m.fail(ResultError)
			return nil, fsm.Abort(ota_errors.Wrap(err, "failed to mount package path"))
		}
	}

	mapping, err := pkgmap.Map(packageFilePath(path))
	if err != nil {
		slog.Error("package_map_failed", "package", path, "error", err)
		m.fail(ResultCorrupt)
		return nil, fsm.Abort(ota_errors.Wrap(err, "failed to map package"))
	}
	m.mapping = mapping

	return fsm.NewResponse(resp), nil
}

// handleVerifySignature checks the mapped region against the trusted
// keys.
func (m *Machine) handleVerifySignature(ctx context.Context, req *fsm.Request[InstallRequest, InstallResponse]) (*fsm.Response[InstallResponse], error) {
	slog.Info("fsm_state_verify_signature", "package", req.Msg.PackagePath)

	if err := m.checkRetryBudget(ctx, req.Msg.PackagePath); err != nil {
		return nil, fsm.Abort(err)
	}

	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(fmt.Errorf("response not initialized"))
	}

	m.surface.Print("Verifying update package...\n")

	signaturePath := packageFilePath(req.Msg.PackagePath) + m.opts.SignatureSuffix
	started := time.Now()
	err := m.verifier.Verify(m.mapping.Bytes(), signaturePath, m.opts.TrustedKeysPath)
	m.surface.Print(fmt.Sprintf("Update package verification took %.1f s.\n", time.Since(started).Seconds()))
	if err != nil {
		slog.Error("signature_rejected", "package", req.Msg.PackagePath, "error", err)
		m.logBuf.Append("error: %d", errorCodeZipVerificationFailure)
		m.fail(ResultCorrupt)
		return nil, fsm.Abort(ota_errors.Wrap(err, "signature verification failed"))
	}

	return fsm.NewResponse(resp), nil
}

// handleOpenArchive opens the zip structure over the mapped region.
func (m *Machine) handleOpenArchive(ctx context.Context, req *fsm.Request[InstallRequest, InstallResponse]) (*fsm.Response[InstallResponse], error) {
	slog.Info("fsm_state_open_archive", "package", req.Msg.PackagePath)

	if err := m.checkRetryBudget(ctx, req.Msg.PackagePath); err != nil {
		return nil, fsm.Abort(err)
	}

	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(fmt.Errorf("response not initialized"))
	}

	archive, err := ozip.OpenBytes(m.mapping.Bytes())
	if err != nil {
		slog.Error("archive_open_failed", "package", req.Msg.PackagePath, "error", err)
		m.logBuf.Append("error: %d", errorCodeZipOpenFailure)
		m.fail(ResultCorrupt)
		return nil, fsm.Abort(ota_errors.Wrap(err, "failed to open archive"))
	}
	m.archive = archive

	return fsm.NewResponse(resp), nil
}

// handleReadMetadata extracts and parses the package metadata, logging
// the source and target build numbers when they parse.
func (m *Machine) handleReadMetadata(ctx context.Context, req *fsm.Request[InstallRequest, InstallResponse]) (*fsm.Response[InstallResponse], error) {
	slog.Info("fsm_state_read_metadata", "package", req.Msg.PackagePath)

	if err := m.checkRetryBudget(ctx, req.Msg.PackagePath); err != nil {
		return nil, fsm.Abort(err)
	}

	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(fmt.Errorf("response not initialized"))
	}

	entry, ok := m.archive.Find(metadataEntry)
	if !ok {
		slog.Error("metadata_entry_missing", "package", req.Msg.PackagePath, "entry", metadataEntry)
		m.fail(ResultCorrupt)
		return nil, fsm.Abort(fmt.Errorf("metadata entry %s missing", metadataEntry))
	}
	raw, err := m.archive.ExtractToMemory(entry)
	if err != nil {
		slog.Error("metadata_extract_failed", "package", req.Msg.PackagePath, "error", err)
		m.fail(ResultCorrupt)
		return nil, fsm.Abort(ota_errors.Wrap(err, "failed to extract metadata"))
	}
	m.md = metadata.Parse(raw)

	if build, ok := parseBuildNumber(m.md, metadata.KeyPreBuildIncremental); ok {
		m.logBuf.Append("source_build: %d", build)
		resp.SourceBuild = build
	}
	if build, ok := parseBuildNumber(m.md, metadata.KeyPostBuildIncremental); ok {
		m.logBuf.Append("target_build: %d", build)
		resp.TargetBuild = build
	}

	return fsm.NewResponse(resp), nil
}

// parseBuildNumber reads a metadata key as an integer build number.
// Non-numeric values are skipped, not fatal.
func parseBuildNumber(md *metadata.Metadata, key string) (int64, bool) {
	raw, ok := md.Get(key)
	if !ok {
		return 0, false
	}
	build, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		slog.Warn("build_number_unparsable", "key", key, "value", raw)
		return 0, false
	}
	return build, true
}

// handleGateCheck applies the build/device acceptance predicates for A/B
// packages. The legacy flow carries no gate; the applier owns acceptance.
func (m *Machine) handleGateCheck(ctx context.Context, req *fsm.Request[InstallRequest, InstallResponse]) (*fsm.Response[InstallResponse], error) {
	slog.Info("fsm_state_gate_check", "package", req.Msg.PackagePath, "ab", m.opts.ABOTAUpdater)

	if err := m.checkRetryBudget(ctx, req.Msg.PackagePath); err != nil {
		return nil, fsm.Abort(err)
	}

	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(fmt.Errorf("response not initialized"))
	}

	if !m.opts.ABOTAUpdater {
		return fsm.NewResponse(resp), nil
	}

	if err := gate.New(m.identity).Check(m.md); err != nil {
		resp.ErrorMessage = err.Error()
		if errors.Is(err, gate.ErrMetadataUnreadable) {
			m.fail(ResultCorrupt)
		} else {
			m.fail(ResultError)
		}
		return nil, fsm.Abort(err)
	}

	return fsm.NewResponse(resp), nil
}

// handleRunApplier builds the applier command, runs it under supervision,
// and records its terminal status.
func (m *Machine) handleRunApplier(ctx context.Context, req *fsm.Request[InstallRequest, InstallResponse]) (*fsm.Response[InstallResponse], error) {
	slog.Info("fsm_state_run_applier", "package", req.Msg.PackagePath, "retry_count", req.Msg.RetryCount)

	if err := m.checkRetryBudget(ctx, req.Msg.PackagePath); err != nil {
		return nil, fsm.Abort(err)
	}

	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(fmt.Errorf("response not initialized"))
	}

	argv, err := m.buildCommand(req.Msg)
	if err != nil {
		if errors.Is(err, applier.ErrEntryMissing) {
			m.fail(ResultCorrupt)
		} else {
			m.fail(ResultError)
		}
		return nil, fsm.Abort(err)
	}

	m.surface.Print("Installing update...\n")
	if req.Msg.RetryCount > 0 {
		m.surface.Print(fmt.Sprintf("Retry attempt: %d\n", req.Msg.RetryCount))
	}

	m.surface.SetEnableReboot(false)
	runRes, runErr := supervisor.Run(ctx, argv, m.surface, m.logBuf)
	m.surface.SetEnableReboot(true)
	m.surface.Print("\n")

	if runErr != nil {
		m.fail(ResultError)
		return nil, fsm.Abort(ota_errors.Wrap(runErr, "failed to run applier"))
	}
	m.runRes = runRes

	if runRes.Status == supervisor.StatusError {
		m.fail(ResultError)
		return nil, fsm.Abort(fmt.Errorf("applier reported failure"))
	}

	resp.Result = m.resultFromRun().String()
	resp.WipeCache = runRes.WipeCache
	return fsm.NewResponse(resp), nil
}

func (m *Machine) buildCommand(req *InstallRequest) ([]string, error) {
	path := packageFilePath(req.PackagePath)
	if m.opts.ABOTAUpdater {
		return applier.BuildABCommand(m.archive, applier.ABOptions{
			ApplierPath:   m.opts.ApplierPath,
			PackagePath:   path,
			StatusWriteFD: supervisor.ChildStatusFD,
		})
	}
	return applier.BuildLegacyCommand(m.archive, applier.LegacyOptions{
		ScratchPath:   m.opts.ScratchPath,
		APIVersion:    m.opts.APIVersion,
		StatusWriteFD: supervisor.ChildStatusFD,
		PackagePath:   path,
		RetryCount:    req.RetryCount,
	})
}

func (m *Machine) resultFromRun() Result {
	if m.runRes.Status == supervisor.StatusRetry {
		return ResultRetry
	}
	return ResultSuccess
}

// handleComplete closes out a run that made it through the applier.
func (m *Machine) handleComplete(ctx context.Context, req *fsm.Request[InstallRequest, InstallResponse]) (*fsm.Response[InstallResponse], error) {
	slog.Info("fsm_state_complete", "package", req.Msg.PackagePath, "result", m.resultFromRun().String())

	resp := req.W.Msg
	if resp == nil {
		resp = &InstallResponse{}
	}
	resp.Result = m.resultFromRun().String()
	resp.WipeCache = m.runRes.WipeCache

	return fsm.NewResponse(resp), nil
}
