package config

import (
	"fmt"
	"log/slog"
	"strings"
)

var knownRoots = map[string]bool{
	RootMachineNative: true,
	RootMachineWow64:  true,
	RootUserNative:    true,
	RootUserWow64:     true,
}

var validLogLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

// Validate checks the config for invalid values and returns all errors found.
// Out-of-range numbers are clamped and unknown root names are dropped, so the
// returned errors are warnings; a config that passed through Validate is usable.
func (c *Config) Validate() []error {
	var errs []error

	roots := make([]string, 0, len(c.RegistryRoots))
	seen := make(map[string]bool)
	for _, name := range c.RegistryRoots {
		norm := strings.ToLower(strings.TrimSpace(name))
		if !knownRoots[norm] {
			errs = append(errs, fmt.Errorf("unknown registry root %q, ignoring", name))
			continue
		}
		if seen[norm] {
			continue
		}
		seen[norm] = true
		roots = append(roots, norm)
	}
	if c.IncludeUserWow64 && !seen[RootUserWow64] {
		roots = append(roots, RootUserWow64)
	}
	if len(roots) == 0 {
		errs = append(errs, fmt.Errorf("registry_roots is empty, using defaults"))
		roots = Default().RegistryRoots
	}
	c.RegistryRoots = roots

	if c.Removal.UninstallerTimeoutSeconds < 10 {
		errs = append(errs, fmt.Errorf("removal.uninstaller_timeout_seconds %d is below minimum 10, clamping", c.Removal.UninstallerTimeoutSeconds))
		c.Removal.UninstallerTimeoutSeconds = 10
	} else if c.Removal.UninstallerTimeoutSeconds > 7200 {
		errs = append(errs, fmt.Errorf("removal.uninstaller_timeout_seconds %d exceeds maximum 7200, clamping", c.Removal.UninstallerTimeoutSeconds))
		c.Removal.UninstallerTimeoutSeconds = 7200
	}

	if c.Batch.MaxConcurrentQueries < 1 {
		errs = append(errs, fmt.Errorf("batch.max_concurrent_queries %d is below minimum 1, clamping", c.Batch.MaxConcurrentQueries))
		c.Batch.MaxConcurrentQueries = 1
	} else if c.Batch.MaxConcurrentQueries > 32 {
		errs = append(errs, fmt.Errorf("batch.max_concurrent_queries %d exceeds maximum 32, clamping", c.Batch.MaxConcurrentQueries))
		c.Batch.MaxConcurrentQueries = 32
	}

	if c.LogLevel != "" && !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Errorf("log_level %q is not valid (use debug, info, warn, error)", c.LogLevel))
	}

	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log_format %q is not valid (use text or json)", c.LogFormat))
	}

	for _, err := range errs {
		slog.Warn("config validation", "error", err)
	}

	return errs
}
