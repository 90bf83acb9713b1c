package driver

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/otacore/recovery/pkg/installlog"
	"github.com/superfly/fsm"
)

// InstallOutcome is the compound result of one install attempt.
type InstallOutcome struct {
	Result    Result
	WipeCache bool
	TimeTotal int64
	LogPath   string
}

// Install drives one complete attempt: run the pipeline, fold in the
// uncrypt status, and write the install log with its fixed header. The
// log is written on every exit path; a log-write failure is reported but
// never changes the result.
func (m *Machine) Install(ctx context.Context, manager *fsm.Manager, req *InstallRequest) *InstallOutcome {
	started := time.Now()
	m.reset()
	defer m.release()

	result := m.drive(ctx, manager, req)

	timeTotal := int64(time.Since(started).Seconds())
	m.appendUncryptStatus()

	content := installlog.Render(installlog.Header{
		PackagePath: req.PackagePath,
		Success:     result == ResultSuccess,
		TimeTotal:   timeTotal,
		RetryCount:  req.RetryCount,
	}, m.logBuf)

	if err := installlog.Write(m.opts.InstallLogPath, content); err != nil {
		slog.Error("install_log_write_failed", "path", m.opts.InstallLogPath, "error", err)
	}
	// A copy always lands in the system log, even when the file write
	// failed.
	slog.Info("install_finished", "result", result.String(), "time_total", timeTotal, "log", content)

	return &InstallOutcome{
		Result:    result,
		WipeCache: m.runRes.WipeCache,
		TimeTotal: timeTotal,
		LogPath:   m.opts.InstallLogPath,
	}
}

// drive runs the FSM to completion and classifies the outcome. A state
// that aborted has already recorded its classification via fail().
func (m *Machine) drive(ctx context.Context, manager *fsm.Manager, req *InstallRequest) Result {
	start, _, err := m.Register(ctx, manager)
	if err != nil {
		slog.Error("install_fsm_register_failed", "error", err)
		return ResultError
	}

	resp := &InstallResponse{}
	// Each attempt is its own FSM run; the retry count keys it apart
	// from earlier attempts on the same package.
	key := fmt.Sprintf("%s#%d", req.PackagePath, req.RetryCount)

	version, err := start(ctx, key, fsm.NewRequest(req, resp))
	if err != nil {
		slog.Error("install_fsm_start_failed", "package", req.PackagePath, "error", err)
		return ResultError
	}

	if err := manager.Wait(ctx, version); err != nil {
		slog.Error("install_fsm_failed", "package", req.PackagePath, "result", m.failure.String(), "error", err)
		return m.failure
	}

	return m.resultFromRun()
}

// appendUncryptStatus folds the uncrypt stage's status record into the
// log buffer when it exists and looks sane.
func (m *Machine) appendUncryptStatus() {
	if m.opts.UncryptStatusPath == "" {
		return
	}
	raw, err := os.ReadFile(m.opts.UncryptStatusPath)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("uncrypt_status_unreadable", "path", m.opts.UncryptStatusPath, "error", err)
		}
		return
	}
	content := string(raw)
	if !strings.HasPrefix(content, "uncrypt_") {
		slog.Warn("uncrypt_status_corrupted", "path", m.opts.UncryptStatusPath)
		return
	}
	m.logBuf.Append("%s", strings.TrimSpace(content))
}
