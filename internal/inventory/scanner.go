package inventory

import (
	"errors"
	"iter"

	"github.com/breeze-rmm/swcheck/internal/logging"
	"github.com/breeze-rmm/swcheck/internal/registry"
)

var log = logging.L("inventory")

// Scanner enumerates uninstall entries from a Store across an ordered list
// of roots. Nothing is cached; every call re-reads the store.
type Scanner struct {
	store registry.Store
	roots []registry.Root
}

func NewScanner(store registry.Store, roots []registry.Root) *Scanner {
	return &Scanner{
		store: store,
		roots: append([]registry.Root(nil), roots...),
	}
}

// Entries yields the products listed under one root. A root that cannot be
// opened yields nothing. Subkeys without a DisplayName are skipped. The root
// handle is held only while the sequence is being ranged over.
func (s *Scanner) Entries(root registry.Root) iter.Seq[UninstallEntry] {
	return func(yield func(UninstallEntry) bool) {
		key, err := s.store.Open(root)
		if err != nil {
			if errors.Is(err, registry.ErrNotSupported) || errors.Is(err, registry.ErrKeyNotFound) {
				log.Debug("uninstall root unavailable", logging.KeyRoot, root.String(), logging.KeyError, err)
			} else {
				log.Warn("uninstall root could not be opened", logging.KeyRoot, root.String(), logging.KeyError, err)
			}
			return
		}
		defer key.Close()

		names, err := key.SubKeyNames()
		if err != nil {
			log.Warn("uninstall root could not be enumerated", logging.KeyRoot, root.String(), logging.KeyError, err)
			return
		}

		for _, name := range names {
			values, err := key.ReadValues(name)
			if err != nil {
				log.Debug("skipping unreadable subkey", logging.KeyRoot, root.String(), "subkey", name, logging.KeyError, err)
				continue
			}
			if values.DisplayName == "" {
				continue
			}
			if !yield(entryFromValues(root, name, values)) {
				return
			}
		}
	}
}

// Scan yields entries from every configured root in precedence order.
func (s *Scanner) Scan() iter.Seq[UninstallEntry] {
	return func(yield func(UninstallEntry) bool) {
		for _, root := range s.roots {
			for entry := range s.Entries(root) {
				if !yield(entry) {
					return
				}
			}
		}
	}
}

// Find returns the first entry in Scan order whose display name contains
// query, so machine-wide installs win over per-user ones. Breaking out of
// the sequence closes the open root and leaves later roots unopened.
func (s *Scanner) Find(query string) (UninstallEntry, bool) {
	for entry := range s.Scan() {
		if Matches(query, entry.DisplayName) {
			return entry, true
		}
	}
	return UninstallEntry{}, false
}

func entryFromValues(root registry.Root, subkey string, v registry.Values) UninstallEntry {
	return UninstallEntry{
		DisplayName:           v.DisplayName,
		InstallLocation:       v.InstallLocation,
		UninstallCommand:      v.UninstallString,
		QuietUninstallCommand: v.QuietUninstallString,
		DisplayVersion:        v.DisplayVersion,
		Publisher:             v.Publisher,
		Root:                  root,
		SubkeyID:              subkey,
	}
}
