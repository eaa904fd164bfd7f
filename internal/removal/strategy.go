package removal

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/breeze-rmm/swcheck/internal/inventory"
	"github.com/breeze-rmm/swcheck/internal/registry"
)

// Kind names a removal strategy.
type Kind string

const (
	KindRegistryAndDirectory Kind = "registry_and_directory"
	KindDelegatedUninstaller Kind = "delegated_uninstaller"
	KindFilesystemOnly       Kind = "filesystem_only"
)

// Strategy removes one located product.
type Strategy interface {
	Kind() Kind
	// Applies reports whether the result carries the data this strategy needs.
	Applies(result inventory.QueryResult) bool
	Remove(ctx context.Context, result inventory.QueryResult) error
}

// RegistryAndDirectory deletes the matched uninstall subkey, then the
// resolved install directory if there is one.
type RegistryAndDirectory struct {
	store registry.Store
	dirs  *DirRemover
}

func NewRegistryAndDirectory(store registry.Store, dirs *DirRemover) *RegistryAndDirectory {
	return &RegistryAndDirectory{store: store, dirs: dirs}
}

func (s *RegistryAndDirectory) Kind() Kind { return KindRegistryAndDirectory }

func (s *RegistryAndDirectory) Applies(result inventory.QueryResult) bool {
	return result.Found && result.Source == inventory.SourceRegistry && result.MatchedEntry != nil
}

func (s *RegistryAndDirectory) Remove(ctx context.Context, result inventory.QueryResult) error {
	entry := result.MatchedEntry
	if err := s.store.DeleteSubKey(entry.Root, entry.SubkeyID); err != nil {
		return fmt.Errorf("delete uninstall key %s\\%s: %w", entry.Root, entry.SubkeyID, err)
	}
	log.Info("uninstall key deleted", "root", entry.Root.String(), "subkey", entry.SubkeyID)

	if !result.HasPath() {
		return nil
	}
	freed, err := s.dirs.Remove(result.ResolvedPath)
	if errors.Is(err, fs.ErrNotExist) {
		log.Info("install directory already gone", "path", result.ResolvedPath)
		return nil
	}
	if err != nil {
		return err
	}
	log.Info("install directory removed", "path", result.ResolvedPath, "freed", humanize.Bytes(uint64(freed)))
	return nil
}

// DelegatedUninstaller runs the vendor's recorded uninstall command. The
// quiet variant is preferred when the product registers one.
type DelegatedUninstaller struct {
	runner  CommandRunner
	timeout time.Duration
	exists  func(string) bool
}

func NewDelegatedUninstaller(runner CommandRunner, timeout time.Duration) *DelegatedUninstaller {
	if runner == nil {
		runner = ExecRunner()
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &DelegatedUninstaller{runner: runner, timeout: timeout, exists: fileExists}
}

func (s *DelegatedUninstaller) Kind() Kind { return KindDelegatedUninstaller }

func (s *DelegatedUninstaller) Applies(result inventory.QueryResult) bool {
	return result.Found && result.MatchedEntry != nil && commandFor(result.MatchedEntry) != ""
}

func (s *DelegatedUninstaller) Remove(ctx context.Context, result inventory.QueryResult) error {
	line := commandFor(result.MatchedEntry)
	argv := programArgs(line, s.exists)
	if len(argv) == 0 {
		return fmt.Errorf("empty uninstall command")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	code, output, err := s.runner.Run(ctx, argv)
	if err != nil {
		return fmt.Errorf("run uninstaller %s: %w", argv[0], err)
	}
	if code != 0 {
		return fmt.Errorf("uninstaller %s exited with code %d%s", argv[0], code, outputTail(output))
	}
	log.Info("uninstaller finished", "command", argv[0], "durationMs", time.Since(start).Milliseconds())
	return nil
}

func commandFor(entry *inventory.UninstallEntry) string {
	if q := strings.TrimSpace(entry.QuietUninstallCommand); q != "" {
		return q
	}
	return strings.TrimSpace(entry.UninstallCommand)
}

func outputTail(output []byte) string {
	const max = 200
	s := strings.TrimSpace(string(output))
	if s == "" {
		return ""
	}
	if len(s) > max {
		s = "..." + s[len(s)-max:]
	}
	return ": " + s
}

// FilesystemOnly removes the directory found by the fallback scan.
type FilesystemOnly struct {
	dirs *DirRemover
}

func NewFilesystemOnly(dirs *DirRemover) *FilesystemOnly {
	return &FilesystemOnly{dirs: dirs}
}

func (s *FilesystemOnly) Kind() Kind { return KindFilesystemOnly }

func (s *FilesystemOnly) Applies(result inventory.QueryResult) bool {
	return result.Found && result.Source == inventory.SourceFilesystem && result.HasPath()
}

func (s *FilesystemOnly) Remove(_ context.Context, result inventory.QueryResult) error {
	freed, err := s.dirs.Remove(result.ResolvedPath)
	if err != nil {
		return err
	}
	log.Info("directory removed", "path", result.ResolvedPath, "freed", humanize.Bytes(uint64(freed)))
	return nil
}
