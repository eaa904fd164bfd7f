package registry

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Snapshot is the YAML form of one or more uninstall roots. It lets a
// listing captured on one host be queried offline on another.
type Snapshot struct {
	Roots []SnapshotRoot `yaml:"roots"`
}

type SnapshotRoot struct {
	Scope   string          `yaml:"scope"`
	Bitness string          `yaml:"bitness"`
	Path    string          `yaml:"path,omitempty"`
	Entries []SnapshotEntry `yaml:"entries"`
}

type SnapshotEntry struct {
	Key    string `yaml:"key"`
	Values `yaml:",inline"`
}

// Capture reads every subkey of the given roots. Roots that cannot be opened
// are left out of the snapshot.
func Capture(store Store, roots []Root) (*Snapshot, error) {
	snap := &Snapshot{}
	for _, root := range roots {
		sr, err := captureRoot(store, root)
		if err != nil {
			if errors.Is(err, ErrNotSupported) {
				return nil, err
			}
			continue
		}
		snap.Roots = append(snap.Roots, sr)
	}
	return snap, nil
}

func captureRoot(store Store, root Root) (SnapshotRoot, error) {
	key, err := store.Open(root)
	if err != nil {
		return SnapshotRoot{}, err
	}
	defer key.Close()

	names, err := key.SubKeyNames()
	if err != nil {
		return SnapshotRoot{}, err
	}

	sr := SnapshotRoot{
		Scope:   root.Scope.String(),
		Bitness: root.Bitness.String(),
		Path:    root.Path,
	}
	for _, name := range names {
		values, err := key.ReadValues(name)
		if err != nil {
			continue
		}
		sr.Entries = append(sr.Entries, SnapshotEntry{Key: name, Values: values})
	}
	return sr, nil
}

// Encode writes the snapshot as YAML.
func (s *Snapshot) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return enc.Close()
}

// DecodeSnapshot parses a YAML snapshot into a Memory store.
func DecodeSnapshot(r io.Reader) (*Memory, error) {
	var snap Snapshot
	if err := yaml.NewDecoder(r).Decode(&snap); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	mem := NewMemory()
	for i, sr := range snap.Roots {
		scope, err := parseScope(sr.Scope)
		if err != nil {
			return nil, fmt.Errorf("roots[%d]: %w", i, err)
		}
		bitness, err := parseBitness(sr.Bitness)
		if err != nil {
			return nil, fmt.Errorf("roots[%d]: %w", i, err)
		}
		root := NewRoot(scope, bitness)
		if sr.Path != "" {
			root.Path = sr.Path
		}
		for _, e := range sr.Entries {
			if e.Key == "" {
				return nil, fmt.Errorf("roots[%d]: entry without key", i)
			}
			mem.Add(root, e.Key, e.Values)
		}
	}
	return mem, nil
}

// LoadSnapshot reads a YAML snapshot file.
func LoadSnapshot(path string) (*Memory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	return DecodeSnapshot(f)
}

func parseScope(s string) (Scope, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "HKLM", "HKEY_LOCAL_MACHINE", "":
		return MachineWide, nil
	case "HKCU", "HKEY_CURRENT_USER":
		return CurrentUser, nil
	default:
		return 0, fmt.Errorf("unknown scope %q", s)
	}
}

func parseBitness(s string) (Bitness, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "native", "":
		return Native, nil
	case "wow64":
		return Wow64, nil
	default:
		return 0, fmt.Errorf("unknown bitness %q", s)
	}
}
