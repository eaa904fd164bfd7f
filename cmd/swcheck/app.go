package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/breeze-rmm/swcheck/internal/audit"
	"github.com/breeze-rmm/swcheck/internal/batch"
	"github.com/breeze-rmm/swcheck/internal/config"
	"github.com/breeze-rmm/swcheck/internal/inventory"
	"github.com/breeze-rmm/swcheck/internal/logging"
	"github.com/breeze-rmm/swcheck/internal/registry"
	"github.com/breeze-rmm/swcheck/internal/removal"
)

var log = logging.L("main")

// app holds everything built from the loaded configuration.
type app struct {
	cfg           *config.Config
	store         registry.Store
	roots         []registry.Root
	fallbackRoots []string
	locator       *inventory.Locator
	auditLog      *audit.Logger
	closers       []io.Closer
}

func setup() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	// Validate logs its own warnings and leaves cfg usable.
	cfg.Validate()

	a := &app{cfg: cfg}
	if err := a.initLogging(); err != nil {
		return nil, err
	}

	if cfg.RegistrySnapshot != "" {
		mem, err := registry.LoadSnapshot(cfg.RegistrySnapshot)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.store = mem
		log.Info("using registry snapshot", "path", cfg.RegistrySnapshot)
	} else {
		a.store = registry.Live()
	}

	for _, name := range cfg.RegistryRoots {
		root, err := registry.RootByName(name)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("registry_roots: %w", err)
		}
		a.roots = append(a.roots, root)
	}

	var fallback *inventory.FallbackScanner
	if cfg.FallbackEnabled {
		a.fallbackRoots = cfg.FallbackRoots
		if len(a.fallbackRoots) == 0 {
			a.fallbackRoots = inventory.DefaultFallbackRoots(os.Getenv)
		}
		if len(a.fallbackRoots) > 0 {
			fallback = inventory.NewFallbackScanner(a.fallbackRoots)
		}
	}

	a.locator = inventory.NewLocator(inventory.NewScanner(a.store, a.roots), inventory.NewResolver(nil), fallback)
	return a, nil
}

func (a *app) initLogging() error {
	var output io.Writer = os.Stderr
	if a.cfg.LogFile != "" {
		rw, err := logging.NewRotatingWriter(a.cfg.LogFile, a.cfg.LogMaxSizeMB, a.cfg.LogMaxBackups)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		a.closers = append(a.closers, rw)
		output = io.MultiWriter(os.Stderr, rw)
	}
	logging.Init(a.cfg.LogFormat, a.cfg.LogLevel, output)
	return nil
}

// executor builds the removal executor. The audit trail is skipped for dry
// runs since nothing is changed.
func (a *app) executor(dry bool) (*removal.Executor, error) {
	opts := removal.Options{DryRun: dry}
	if a.cfg.AuditEnabled && !dry {
		al, err := audit.NewLogger(config.GetDataDir(), a.cfg.AuditMaxSizeMB, a.cfg.AuditMaxBackups)
		if err != nil {
			log.Warn("audit trail unavailable", logging.KeyError, err)
		} else {
			a.auditLog = al
			a.closers = append(a.closers, al)
			opts.Auditor = al
		}
	}

	timeout := time.Duration(a.cfg.Removal.UninstallerTimeoutSeconds) * time.Second
	dirs := removal.NewDirRemover(a.fallbackRoots)
	strategies := removal.DefaultStrategies(a.store, dirs, removal.ExecRunner(), timeout, a.cfg.Removal.PreferUninstaller)
	return removal.NewExecutor(strategies, opts), nil
}

var (
	errRemovalUnconfirmed = errors.New("removal deletes registry keys and directories; pass --yes to confirm or --dry-run to preview")
	errSnapshotRemoval    = errors.New("registry_snapshot is set: snapshot keys cannot be deleted and its paths may belong to another host; only --dry-run is allowed")
)

// removalMode reports whether a remove run must stay a dry run, or why it
// may not run at all.
func removalMode(cfg *config.Config, flagDryRun, confirmed bool) (bool, error) {
	if flagDryRun || cfg.Removal.DryRun {
		return true, nil
	}
	if cfg.RegistrySnapshot != "" {
		return false, errSnapshotRemoval
	}
	if !confirmed {
		return false, errRemovalUnconfirmed
	}
	return false, nil
}

func (a *app) controller(executor *removal.Executor) *batch.Controller {
	opts := batch.Options{MaxConcurrentQueries: a.cfg.Batch.MaxConcurrentQueries}
	if a.auditLog != nil {
		opts.Auditor = a.auditLog
	}
	return batch.New(a.locator, executor, opts)
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			log.Warn("close failed", logging.KeyError, err)
		}
	}
	a.closers = nil
}
