package removal

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrProtectedPath is returned when asked to delete a volume root or one of
// the configured protected directories.
var ErrProtectedPath = errors.New("refusing to delete protected path")

// DirRemover deletes install directories, clearing read-only attributes
// when a plain recursive delete fails.
type DirRemover struct {
	protected []string
	busy      func(dir string) []string
}

// NewDirRemover returns a remover that refuses to delete any of protected
// (typically the fallback roots) or a directory containing one of them.
func NewDirRemover(protected []string) *DirRemover {
	cleaned := make([]string, 0, len(protected))
	for _, p := range protected {
		if strings.TrimSpace(p) == "" {
			continue
		}
		cleaned = append(cleaned, filepath.Clean(p))
	}
	return &DirRemover{protected: cleaned, busy: processesUnder}
}

// Remove deletes dir and everything below it. It returns the number of bytes
// that were on disk before deletion. A missing dir is reported as an error
// wrapping fs.ErrNotExist.
func (r *DirRemover) Remove(dir string) (int64, error) {
	clean := filepath.Clean(strings.TrimSpace(dir))
	if err := r.checkProtected(clean); err != nil {
		return 0, err
	}

	if _, err := os.Lstat(clean); err != nil {
		return 0, fmt.Errorf("stat %s: %w", clean, err)
	}

	size := dirSize(clean)

	if err := os.RemoveAll(clean); err == nil {
		return size, nil
	}

	clearReadOnly(clean)

	if err := os.RemoveAll(clean); err != nil {
		if users := r.busy(clean); len(users) > 0 {
			return 0, fmt.Errorf("remove %s: %w (in use by %s)", clean, err, strings.Join(users, ", "))
		}
		return 0, fmt.Errorf("remove %s: %w", clean, err)
	}
	return size, nil
}

func (r *DirRemover) checkProtected(clean string) error {
	if clean == "" || clean == "." {
		return fmt.Errorf("%w: empty path", ErrProtectedPath)
	}
	if isVolumeRoot(clean) {
		return fmt.Errorf("%w: %s is a volume root", ErrProtectedPath, clean)
	}
	for _, p := range r.protected {
		if within(clean, p) {
			return fmt.Errorf("%w: %s holds protected directory %s", ErrProtectedPath, clean, p)
		}
	}
	return nil
}

// within reports whether path is dir itself or lies below it.
func within(dir, path string) bool {
	rel, err := filepath.Rel(foldPath(dir), foldPath(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func isVolumeRoot(clean string) bool {
	vol := filepath.VolumeName(clean)
	rest := strings.TrimPrefix(clean, vol)
	return rest == "" || rest == string(filepath.Separator) || rest == "/"
}

// clearReadOnly walks the tree and makes every entry writable. Errors are
// ignored; the retried delete reports whatever is still in the way.
func clearReadOnly(root string) {
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		makeWritable(path, d.IsDir())
		return nil
	})
}

func dirSize(root string) int64 {
	var total int64
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}
