package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/breeze-rmm/swcheck/internal/logging"
)

// Locator answers "is this installed, and where" for one name at a time.
type Locator struct {
	scanner  *Scanner
	resolver *Resolver
	fallback *FallbackScanner
}

// NewLocator wires the lookup pipeline. A nil fallback disables the
// filesystem scan.
func NewLocator(scanner *Scanner, resolver *Resolver, fallback *FallbackScanner) *Locator {
	if resolver == nil {
		resolver = NewResolver(nil)
	}
	return &Locator{scanner: scanner, resolver: resolver, fallback: fallback}
}

// Lookup searches the registry roots, then the fallback directories. It never
// mutates the system, so repeated lookups of the same name agree unless
// something else changed the machine in between.
func (l *Locator) Lookup(ctx context.Context, name string) QueryResult {
	query := strings.TrimSpace(name)
	if query == "" {
		return NotFound(name)
	}
	start := time.Now()
	logger := logging.FromContext(ctx).With(logging.KeyQuery, query)

	if entry, ok := l.scanner.Find(query); ok {
		path, _ := l.resolver.Resolve(entry)
		logger.Debug("registry match",
			"displayName", entry.DisplayName,
			logging.KeyRoot, entry.Root.String(),
			"subkey", entry.SubkeyID,
			"path", path,
			logging.KeyDurationMs, time.Since(start).Milliseconds())
		return FromRegistry(query, entry, path)
	}

	if l.fallback != nil {
		if dir, ok := l.fallback.Scan(ctx, query); ok {
			logger.Debug("filesystem match", "dir", dir, logging.KeyDurationMs, time.Since(start).Milliseconds())
			return FromFilesystem(query, dir)
		}
	}

	logger.Debug("not installed", logging.KeyDurationMs, time.Since(start).Milliseconds())
	return NotFound(query)
}
