package inventory

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/breeze-rmm/swcheck/internal/logging"
)

// fallbackEnv lists the environment variables naming directories walked when
// the registry has no match, in walk order.
var fallbackEnv = []string{
	"ProgramFiles",
	"ProgramFiles(x86)",
	"LOCALAPPDATA",
	"APPDATA",
}

var errStopWalk = errors.New("stop walk")

// DefaultFallbackRoots resolves the program-files and application-data
// directories from the environment. Unset variables are skipped and
// duplicates (ProgramFiles equals ProgramFiles(x86) on 32-bit hosts) removed.
func DefaultFallbackRoots(getenv func(string) string) []string {
	if getenv == nil {
		getenv = os.Getenv
	}
	var roots []string
	seen := make(map[string]bool)
	for _, name := range fallbackEnv {
		dir := strings.TrimSpace(getenv(name))
		if dir == "" {
			continue
		}
		key := strings.ToLower(filepath.Clean(dir))
		if seen[key] {
			continue
		}
		seen[key] = true
		roots = append(roots, dir)
	}
	return roots
}

// FallbackScanner searches directory trees for a file named like the query.
type FallbackScanner struct {
	roots []string
}

func NewFallbackScanner(roots []string) *FallbackScanner {
	return &FallbackScanner{roots: append([]string(nil), roots...)}
}

// Scan walks each root in order without a depth limit and returns the
// directory containing the first file whose name contains query, ignoring
// case. Missing roots and unreadable subtrees are skipped. This can take a
// long time on large trees; ctx cancellation stops the walk.
func (f *FallbackScanner) Scan(ctx context.Context, query string) (string, bool) {
	if query == "" {
		return "", false
	}
	needle := strings.ToLower(query)

	for _, root := range f.roots {
		if ctx.Err() != nil {
			return "", false
		}
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			log.Debug("fallback root unavailable", logging.KeyRoot, root)
			continue
		}

		start := time.Now()
		var match string
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if strings.Contains(strings.ToLower(d.Name()), needle) {
				match = filepath.Dir(path)
				return errStopWalk
			}
			return nil
		})

		if match != "" {
			log.Debug("fallback match", logging.KeyQuery, query, logging.KeyRoot, root, "dir", match,
				logging.KeyDurationMs, time.Since(start).Milliseconds())
			return match, true
		}
		if err != nil && !errors.Is(err, errStopWalk) {
			log.Debug("fallback walk stopped", logging.KeyRoot, root, logging.KeyError, err)
			return "", false
		}
	}
	return "", false
}
