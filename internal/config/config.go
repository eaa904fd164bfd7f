package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// Registry root names accepted in registry_roots, in their default precedence.
const (
	RootMachineNative = "machine-native"
	RootMachineWow64  = "machine-wow64"
	RootUserNative    = "user-native"
	RootUserWow64     = "user-wow64"
)

type RemovalConfig struct {
	PreferUninstaller         bool `mapstructure:"prefer_uninstaller"`
	UninstallerTimeoutSeconds int  `mapstructure:"uninstaller_timeout_seconds"`
	DryRun                    bool `mapstructure:"dry_run"`
}

type BatchConfig struct {
	MaxConcurrentQueries int `mapstructure:"max_concurrent_queries"`
}

type Config struct {
	RegistryRoots    []string      `mapstructure:"registry_roots"`
	IncludeUserWow64 bool          `mapstructure:"include_user_wow64"`
	RegistrySnapshot string        `mapstructure:"registry_snapshot"`
	FallbackEnabled  bool          `mapstructure:"fallback_enabled"`
	FallbackRoots    []string      `mapstructure:"fallback_roots"`
	Removal          RemovalConfig `mapstructure:"removal"`
	Batch            BatchConfig   `mapstructure:"batch"`

	LogLevel      string `mapstructure:"log_level"`
	LogFormat     string `mapstructure:"log_format"`
	LogFile       string `mapstructure:"log_file"`
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb"`
	LogMaxBackups int    `mapstructure:"log_max_backups"`

	AuditEnabled    bool `mapstructure:"audit_enabled"`
	AuditMaxSizeMB  int  `mapstructure:"audit_max_size_mb"`
	AuditMaxBackups int  `mapstructure:"audit_max_backups"`
}

func Default() *Config {
	return &Config{
		RegistryRoots:   []string{RootMachineNative, RootMachineWow64, RootUserNative},
		FallbackEnabled: true,
		Removal: RemovalConfig{
			UninstallerTimeoutSeconds: 600,
		},
		Batch: BatchConfig{
			MaxConcurrentQueries: 1,
		},
		LogLevel:        "warn",
		LogFormat:       "text",
		LogMaxSizeMB:    10,
		LogMaxBackups:   3,
		AuditEnabled:    true,
		AuditMaxSizeMB:  10,
		AuditMaxBackups: 3,
	}
}

// Load reads swcheck.yaml from cfgFile or the default locations. A missing
// config file is not an error; defaults apply.
func Load(cfgFile string) (*Config, error) {
	cfg := Default()
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("swcheck")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir())
		v.AddConfigPath(".")
	}

	setDefaults(v, cfg)

	v.SetEnvPrefix("SWCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// GetDataDir returns the directory holding the audit trail and default log file.
func GetDataDir() string {
	switch runtime.GOOS {
	case "windows":
		if pd := os.Getenv("ProgramData"); pd != "" {
			return filepath.Join(pd, "swcheck")
		}
		return filepath.Join(os.TempDir(), "swcheck")
	default:
		if dir, err := os.UserCacheDir(); err == nil {
			return filepath.Join(dir, "swcheck")
		}
		return filepath.Join(os.TempDir(), "swcheck")
	}
}

func configDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "swcheck")
	default:
		if dir, err := os.UserConfigDir(); err == nil {
			return filepath.Join(dir, "swcheck")
		}
		return "/etc/swcheck"
	}
}

// setDefaults registers every key with viper. AutomaticEnv only consults the
// environment for keys viper already knows, so this is what makes
// SWCHECK_REMOVAL_DRY_RUN and friends work without a config file.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("registry_roots", d.RegistryRoots)
	v.SetDefault("include_user_wow64", d.IncludeUserWow64)
	v.SetDefault("registry_snapshot", d.RegistrySnapshot)
	v.SetDefault("fallback_enabled", d.FallbackEnabled)
	v.SetDefault("fallback_roots", d.FallbackRoots)

	v.SetDefault("removal.prefer_uninstaller", d.Removal.PreferUninstaller)
	v.SetDefault("removal.uninstaller_timeout_seconds", d.Removal.UninstallerTimeoutSeconds)
	v.SetDefault("removal.dry_run", d.Removal.DryRun)
	v.SetDefault("batch.max_concurrent_queries", d.Batch.MaxConcurrentQueries)

	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("log_max_size_mb", d.LogMaxSizeMB)
	v.SetDefault("log_max_backups", d.LogMaxBackups)

	v.SetDefault("audit_enabled", d.AuditEnabled)
	v.SetDefault("audit_max_size_mb", d.AuditMaxSizeMB)
	v.SetDefault("audit_max_backups", d.AuditMaxBackups)
}
