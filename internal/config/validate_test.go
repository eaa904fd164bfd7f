package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Fatalf("default config should validate cleanly, got %v", errs)
	}
	want := []string{RootMachineNative, RootMachineWow64, RootUserNative}
	if strings.Join(cfg.RegistryRoots, ",") != strings.Join(want, ",") {
		t.Fatalf("roots = %v, want %v", cfg.RegistryRoots, want)
	}
}

func TestValidateDropsUnknownAndDuplicateRoots(t *testing.T) {
	cfg := Default()
	cfg.RegistryRoots = []string{"machine-native", "bogus", "MACHINE-NATIVE", "user-native"}
	errs := cfg.Validate()
	if len(errs) != 1 || !strings.Contains(errs[0].Error(), "bogus") {
		t.Fatalf("expected one unknown-root error, got %v", errs)
	}
	if strings.Join(cfg.RegistryRoots, ",") != "machine-native,user-native" {
		t.Fatalf("roots = %v", cfg.RegistryRoots)
	}
}

func TestValidateEmptyRootsFallsBackToDefaults(t *testing.T) {
	cfg := Default()
	cfg.RegistryRoots = nil
	cfg.Validate()
	if len(cfg.RegistryRoots) != 3 {
		t.Fatalf("expected default roots, got %v", cfg.RegistryRoots)
	}
}

func TestValidateIncludeUserWow64AppendsRoot(t *testing.T) {
	cfg := Default()
	cfg.IncludeUserWow64 = true
	cfg.Validate()
	if last := cfg.RegistryRoots[len(cfg.RegistryRoots)-1]; last != RootUserWow64 {
		t.Fatalf("last root = %q, want %q", last, RootUserWow64)
	}
}

func TestValidateClampsNumbers(t *testing.T) {
	cfg := Default()
	cfg.Removal.UninstallerTimeoutSeconds = 1
	cfg.Batch.MaxConcurrentQueries = 500
	errs := cfg.Validate()
	if len(errs) != 2 {
		t.Fatalf("expected 2 clamping errors, got %v", errs)
	}
	if cfg.Removal.UninstallerTimeoutSeconds != 10 {
		t.Fatalf("timeout = %d, want 10", cfg.Removal.UninstallerTimeoutSeconds)
	}
	if cfg.Batch.MaxConcurrentQueries != 32 {
		t.Fatalf("concurrency = %d, want 32", cfg.Batch.MaxConcurrentQueries)
	}
}

func TestValidateRejectsBadLogSettings(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "verbose"
	cfg.LogFormat = "xml"
	if errs := cfg.Validate(); len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %v", errs)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swcheck.yaml")
	body := `registry_roots:
  - user-native
fallback_enabled: false
removal:
  prefer_uninstaller: true
  uninstaller_timeout_seconds: 120
batch:
  max_concurrent_queries: 4
log_level: debug
`
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.RegistryRoots) != 1 || cfg.RegistryRoots[0] != RootUserNative {
		t.Fatalf("roots = %v", cfg.RegistryRoots)
	}
	if cfg.FallbackEnabled {
		t.Fatal("fallback_enabled should be false")
	}
	if !cfg.Removal.PreferUninstaller || cfg.Removal.UninstallerTimeoutSeconds != 120 {
		t.Fatalf("removal = %+v", cfg.Removal)
	}
	if cfg.Batch.MaxConcurrentQueries != 4 {
		t.Fatalf("batch = %+v", cfg.Batch)
	}
	if !cfg.AuditEnabled {
		t.Fatal("unset keys should keep defaults")
	}
}

func TestLoadEnvOverridesWithoutFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("SWCHECK_LOG_LEVEL", "debug")
	t.Setenv("SWCHECK_REMOVAL_DRY_RUN", "true")
	t.Setenv("SWCHECK_BATCH_MAX_CONCURRENT_QUERIES", "4")
	t.Setenv("SWCHECK_FALLBACK_ENABLED", "false")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if !cfg.Removal.DryRun {
		t.Error("Removal.DryRun not taken from environment")
	}
	if cfg.Batch.MaxConcurrentQueries != 4 {
		t.Errorf("MaxConcurrentQueries = %d, want 4", cfg.Batch.MaxConcurrentQueries)
	}
	if cfg.FallbackEnabled {
		t.Error("FallbackEnabled not taken from environment")
	}
	if cfg.Removal.UninstallerTimeoutSeconds != 600 {
		t.Errorf("unset key lost its default: timeout = %d", cfg.Removal.UninstallerTimeoutSeconds)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swcheck.yaml")
	if err := os.WriteFile(path, []byte("log_level: info\nremoval:\n  prefer_uninstaller: true\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SWCHECK_LOG_LEVEL", "error")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "error" {
		t.Errorf("LogLevel = %q, want env value error", cfg.LogLevel)
	}
	if !cfg.Removal.PreferUninstaller {
		t.Error("file value removal.prefer_uninstaller lost")
	}
}
