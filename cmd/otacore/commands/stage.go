package commands

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/otacore/recovery/internal/config"
	"github.com/otacore/recovery/pkg/errors"
	"github.com/otacore/recovery/pkg/stage"
	"github.com/spf13/cobra"
)

var stageListPrefix string

var stageCmd = &cobra.Command{
	Use:   "stage <s3-key>",
	Short: "Download an OTA package from S3 into the work directory",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStage,
}

func init() {
	stageCmd.Flags().StringVar(&stageListPrefix, "list", "", "List available packages under a prefix instead of downloading")
	rootCmd.AddCommand(stageCmd)
}

func runStage(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}

	client, err := stage.NewClient(ctx, cfg.S3Bucket, cfg.S3Region)
	if err != nil {
		return errors.Wrap(err, "stage client failed")
	}

	if stageListPrefix != "" || len(args) == 0 {
		keys, err := client.ListPackages(ctx, stageListPrefix)
		if err != nil {
			return errors.Wrap(err, "list failed")
		}
		if len(keys) == 0 {
			fmt.Println("No packages found")
			return nil
		}
		for _, key := range keys {
			fmt.Println(key)
		}
		return nil
	}

	s3Key := args[0]

	if err := ensureDirectories(cfg.SQLitePath, "", cfg.WorkDir); err != nil {
		return err
	}

	localPath := filepath.Join(cfg.WorkDir, "packages", filepath.Base(s3Key))
	if err := ensureDirectories(localPath, "", ""); err != nil {
		return err
	}

	result, err := client.Download(ctx, s3Key, localPath)
	if err != nil {
		return errors.Wrap(err, "download failed")
	}

	slog.Info("package_staged", "s3_key", s3Key, "local_path", result.LocalPath, "sha256", result.SHA256)
	fmt.Printf("Staged %s (%d bytes)\n", result.LocalPath, result.Size)
	return nil
}
