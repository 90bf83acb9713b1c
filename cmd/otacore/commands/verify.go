package commands

import (
	"context"
	"log/slog"

	"github.com/otacore/recovery/internal/config"
	"github.com/otacore/recovery/pkg/bootctrl"
	"github.com/otacore/recovery/pkg/errors"
	"github.com/otacore/recovery/pkg/props"
	"github.com/otacore/recovery/pkg/slot"
	"github.com/otacore/recovery/pkg/verity"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify A/B partitions after an update and mark the slot successful",
	Args:  cobra.NoArgs,
	RunE:  runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "config invalid")
	}

	store, err := props.Load(cfg.PropsPath)
	if err != nil {
		return errors.Wrap(err, "properties load failed")
	}

	verifier := slot.NewVerifier(
		bootctrl.NewExecClient(cfg.BootctlPath),
		store,
		cfg.CareMapPath,
		verity.NewChecker(),
	)

	if err := verifier.MarkBootSuccessfulIfNeeded(ctx); err != nil {
		slog.Error("verification_failed", "error", err)
		return err
	}

	slog.Info("verification_complete")
	return nil
}
