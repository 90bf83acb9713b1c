package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Database paths
	SQLitePath string `mapstructure:"sqlite-path"`
	FSMDBPath  string `mapstructure:"fsm-db-path"`

	// Working directory
	WorkDir string `mapstructure:"work-dir"`

	// Device runtime properties source
	PropsPath string `mapstructure:"props-path"`

	// Install flow
	TrustedKeysPath   string `mapstructure:"trusted-keys-path"`
	SignatureSuffix   string `mapstructure:"signature-suffix"`
	ApplierPath       string `mapstructure:"applier-path"`
	ScratchPath       string `mapstructure:"scratch-path"`
	APIVersion        string `mapstructure:"api-version"`
	ABOTAUpdater      bool   `mapstructure:"ab-ota"`
	InstallLogPath    string `mapstructure:"install-log-path"`
	UncryptStatusPath string `mapstructure:"uncrypt-status-path"`

	// Verifier flow
	CareMapPath string `mapstructure:"care-map-path"`
	BootctlPath string `mapstructure:"bootctl-path"`

	// Package staging
	S3Bucket string `mapstructure:"s3-bucket"`
	S3Region string `mapstructure:"s3-region"`

	// FSM configuration
	FSMMaxRetries int `mapstructure:"fsm-max-retries"`
}

// Load reads configuration from environment, config file, and defaults
func Load() (*Config, error) {
	// Set defaults
	viper.SetDefault("sqlite-path", ".artifacts/installs.db")
	viper.SetDefault("fsm-db-path", ".artifacts/fsm.db")
	viper.SetDefault("work-dir", "/tmp/otacore")
	viper.SetDefault("props-path", "/default.prop")
	viper.SetDefault("trusted-keys-path", "/res/keys")
	viper.SetDefault("signature-suffix", ".minisig")
	viper.SetDefault("applier-path", "/sbin/update_engine_sideload")
	viper.SetDefault("scratch-path", "/tmp/update-binary")
	viper.SetDefault("api-version", "3")
	viper.SetDefault("ab-ota", true)
	viper.SetDefault("install-log-path", "/tmp/otacore/last_install")
	viper.SetDefault("uncrypt-status-path", "/cache/recovery/uncrypt_status")
	viper.SetDefault("care-map-path", "/data/ota_package/care_map.txt")
	viper.SetDefault("bootctl-path", "bootctl")
	viper.SetDefault("s3-bucket", "otacore-packages")
	viper.SetDefault("s3-region", "us-east-1")
	viper.SetDefault("fsm-max-retries", 5)

	// Environment variables (will be OTACORE_SQLITE_PATH, etc.)
	viper.SetEnvPrefix("OTACORE")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// Config file (optional)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.otacore")

	// Read config file (ignore if not found)
	_ = viper.ReadInConfig()

	// Unmarshal into config struct
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration for errors
func (c *Config) Validate() error {
	if c.SQLitePath == "" {
		return fmt.Errorf("sqlite-path cannot be empty")
	}
	if c.FSMDBPath == "" {
		return fmt.Errorf("fsm-db-path cannot be empty")
	}
	if c.TrustedKeysPath == "" {
		return fmt.Errorf("trusted-keys-path cannot be empty")
	}
	if c.ApplierPath == "" {
		return fmt.Errorf("applier-path cannot be empty")
	}
	if c.InstallLogPath == "" {
		return fmt.Errorf("install-log-path cannot be empty")
	}
	if c.CareMapPath == "" {
		return fmt.Errorf("care-map-path cannot be empty")
	}
	if c.FSMMaxRetries < 0 {
		return fmt.Errorf("fsm-max-retries must be non-negative")
	}
	return nil
}
