package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "otacore",
	Short: "OTA update installer and post-boot partition verifier",
	Long:  `Installs signed OTA packages through an external update applier and verifies A/B partitions on first boot.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("sqlite-path", ".artifacts/installs.db", "Install history database path")
	rootCmd.PersistentFlags().String("fsm-db-path", ".artifacts/fsm.db", "FSM BoltDB path")
	rootCmd.PersistentFlags().String("work-dir", "/tmp/otacore", "Working directory")
	rootCmd.PersistentFlags().String("props-path", "/default.prop", "Runtime properties file")
	rootCmd.PersistentFlags().String("trusted-keys-path", "/res/keys", "Trusted signing keys")
	rootCmd.PersistentFlags().String("applier-path", "/sbin/update_engine_sideload", "Update applier binary")
	rootCmd.PersistentFlags().String("install-log-path", "/tmp/otacore/last_install", "Install log destination")
	rootCmd.PersistentFlags().String("care-map-path", "/data/ota_package/care_map.txt", "Care map file")
	rootCmd.PersistentFlags().String("bootctl-path", "bootctl", "Boot control helper binary")
	rootCmd.PersistentFlags().String("s3-bucket", "otacore-packages", "S3 package bucket")
	rootCmd.PersistentFlags().String("s3-region", "us-east-1", "S3 region")

	viper.BindPFlag("sqlite-path", rootCmd.PersistentFlags().Lookup("sqlite-path"))
	viper.BindPFlag("fsm-db-path", rootCmd.PersistentFlags().Lookup("fsm-db-path"))
	viper.BindPFlag("work-dir", rootCmd.PersistentFlags().Lookup("work-dir"))
	viper.BindPFlag("props-path", rootCmd.PersistentFlags().Lookup("props-path"))
	viper.BindPFlag("trusted-keys-path", rootCmd.PersistentFlags().Lookup("trusted-keys-path"))
	viper.BindPFlag("applier-path", rootCmd.PersistentFlags().Lookup("applier-path"))
	viper.BindPFlag("install-log-path", rootCmd.PersistentFlags().Lookup("install-log-path"))
	viper.BindPFlag("care-map-path", rootCmd.PersistentFlags().Lookup("care-map-path"))
	viper.BindPFlag("bootctl-path", rootCmd.PersistentFlags().Lookup("bootctl-path"))
	viper.BindPFlag("s3-bucket", rootCmd.PersistentFlags().Lookup("s3-bucket"))
	viper.BindPFlag("s3-region", rootCmd.PersistentFlags().Lookup("s3-region"))
}
