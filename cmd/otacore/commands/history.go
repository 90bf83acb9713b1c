package commands

import (
	"fmt"

	"github.com/otacore/recovery/internal/config"
	"github.com/otacore/recovery/pkg/errors"
	"github.com/otacore/recovery/pkg/history"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history [package-path]",
	Short: "List recorded install attempts",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}

	if err := ensureDirectories(cfg.SQLitePath, "", ""); err != nil {
		return err
	}

	repo, err := history.NewRepository(cfg.SQLitePath)
	if err != nil {
		return errors.Wrap(err, "history init failed")
	}
	defer repo.Close()

	var attempts []*history.Attempt
	if len(args) == 1 {
		attempts, err = repo.ListByPackage(args[0])
	} else {
		attempts, err = repo.List()
	}
	if err != nil {
		return errors.Wrap(err, "list failed")
	}

	if len(attempts) == 0 {
		fmt.Println("No install attempts recorded")
		return nil
	}

	fmt.Printf("%-40s %-8s %-8s %-10s %-10s %-20s\n", "PACKAGE", "ATTEMPT", "RESULT", "WIPE", "SECONDS", "WHEN")
	fmt.Println("--------------------------------------------------------------------------------------------------")

	for _, a := range attempts {
		wipe := "-"
		if a.WipeCache {
			wipe = "yes"
		}
		fmt.Printf("%-40s %-8d %-8s %-10s %-10d %-20s\n",
			a.PackagePath, a.Attempt, a.Result, wipe, a.TimeTotal, a.CreatedAt)
	}

	return nil
}
