package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/otacore/recovery/internal/config"
	"github.com/otacore/recovery/pkg/driver"
	"github.com/otacore/recovery/pkg/errors"
	"github.com/otacore/recovery/pkg/gate"
	"github.com/otacore/recovery/pkg/history"
	"github.com/otacore/recovery/pkg/props"
	"github.com/otacore/recovery/pkg/sigverify"
	"github.com/otacore/recovery/pkg/ui"
	"github.com/spf13/cobra"
	"github.com/superfly/fsm"
)

var installNeedsMount bool

var installCmd = &cobra.Command{
	Use:   "install <package-path>",
	Short: "Install a signed OTA package",
	Args:  cobra.ExactArgs(1),
	RunE:  runInstall,
}

func init() {
	installCmd.Flags().BoolVar(&installNeedsMount, "needs-mount", false, "Mount the filesystem holding the package first")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	packagePath := args[0]

	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "config invalid")
	}

	if err := ensureDirectories(cfg.SQLitePath, cfg.FSMDBPath, cfg.WorkDir); err != nil {
		return err
	}

	repo, err := history.NewRepository(cfg.SQLitePath)
	if err != nil {
		return errors.Wrap(err, "history init failed")
	}
	defer repo.Close()

	store, err := props.Load(cfg.PropsPath)
	if err != nil {
		return errors.Wrap(err, "properties load failed")
	}

	manager, err := fsm.New(fsm.Config{DBPath: cfg.FSMDBPath})
	if err != nil {
		return errors.Wrap(err, "FSM manager failed")
	}
	defer manager.Shutdown(10 * time.Second)

	// A prior attempt that ended in a retry request drives the retry
	// counter; everything else starts the package back at attempt zero.
	retryCount := 0
	last, err := repo.Last(packagePath)
	if err != nil {
		return errors.Wrap(err, "history query failed")
	}
	if last != nil && last.Result == history.ResultRetry {
		retryCount = last.Attempt + 1
	}

	machine := driver.NewMachine(
		sigverify.New(),
		ui.NewConsole(cmd.OutOrStdout()),
		nil,
		gate.IdentityFromStore(store),
		driver.Options{
			TrustedKeysPath:   cfg.TrustedKeysPath,
			SignatureSuffix:   cfg.SignatureSuffix,
			ApplierPath:       cfg.ApplierPath,
			ScratchPath:       cfg.ScratchPath,
			APIVersion:        cfg.APIVersion,
			ABOTAUpdater:      cfg.ABOTAUpdater,
			InstallLogPath:    cfg.InstallLogPath,
			UncryptStatusPath: cfg.UncryptStatusPath,
			MaxRetries:        cfg.FSMMaxRetries,
		},
	)

	outcome := machine.Install(ctx, manager, &driver.InstallRequest{
		PackagePath: packagePath,
		RetryCount:  retryCount,
		NeedsMount:  installNeedsMount,
	})

	if err := repo.Record(&history.Attempt{
		PackagePath: packagePath,
		Attempt:     retryCount,
		Result:      outcome.Result.String(),
		WipeCache:   outcome.WipeCache,
		TimeTotal:   outcome.TimeTotal,
		LogPath:     outcome.LogPath,
	}); err != nil {
		slog.Error("history_record_failed", "package", packagePath, "error", err)
	}

	slog.Info("install_result",
		"package", packagePath,
		"result", outcome.Result.String(),
		"wipe_cache", outcome.WipeCache,
		"time_total", outcome.TimeTotal,
	)

	switch outcome.Result {
	case driver.ResultSuccess:
		return nil
	case driver.ResultRetry:
		fmt.Fprintln(cmd.OutOrStdout(), "Applier requested another attempt; re-run install to retry.")
		return nil
	default:
		return fmt.Errorf("install failed: %s", outcome.Result)
	}
}
