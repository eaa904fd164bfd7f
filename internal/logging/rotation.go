package logging

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

const (
	defaultMaxSizeMB  = 10
	defaultMaxBackups = 3
)

// RotatingWriter appends to a file and rolls it over to path.1, path.2, ...
// once the next write would take it past limit bytes. Safe for concurrent use.
type RotatingWriter struct {
	mu    sync.Mutex
	path  string
	limit int64
	keep  int
	f     *os.File
	size  int64
}

// NewRotatingWriter opens (or creates) path. Non-positive limits fall back
// to 10 MB and 3 backups.
func NewRotatingWriter(path string, maxSizeMB, maxBackups int) (*RotatingWriter, error) {
	if maxSizeMB <= 0 {
		maxSizeMB = defaultMaxSizeMB
	}
	if maxBackups <= 0 {
		maxBackups = defaultMaxBackups
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	rw := &RotatingWriter{path: path, limit: int64(maxSizeMB) << 20, keep: maxBackups}
	f, size, err := OpenAppend(path)
	if err != nil {
		return nil, err
	}
	rw.f, rw.size = f, size
	return rw, nil
}

func (rw *RotatingWriter) Write(p []byte) (int, error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.f == nil {
		return 0, fs.ErrClosed
	}
	if rw.size > 0 && rw.size+int64(len(p)) > rw.limit {
		if err := rw.roll(); err != nil {
			return 0, fmt.Errorf("log rotation: %w", err)
		}
	}

	n, err := rw.f.Write(p)
	rw.size += int64(n)
	return n, err
}

func (rw *RotatingWriter) Close() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.f == nil {
		return nil
	}
	err := rw.f.Close()
	rw.f = nil
	return err
}

func (rw *RotatingWriter) roll() error {
	rw.f.Close()
	rw.f = nil
	// Best effort: a failed shift loses an old backup, not the live log.
	_ = ShiftBackups(rw.path, rw.keep)

	f, size, err := OpenAppend(rw.path)
	if err != nil {
		return err
	}
	rw.f, rw.size = f, size
	return nil
}

// OpenAppend opens path for appending and reports its current size.
func OpenAppend(path string) (*os.File, int64, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, 0, fmt.Errorf("open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("stat %s: %w", path, err)
	}
	return f, info.Size(), nil
}

// BackupName is the name of the index-th rotated copy of path; 0 is path itself.
func BackupName(path string, index int) string {
	if index == 0 {
		return path
	}
	return fmt.Sprintf("%s.%d", path, index)
}

// ShiftBackups moves path to path.1, path.1 to path.2 and so on, dropping
// whatever was at path.keep. Missing files are ignored; other failures are
// joined and returned after every step has been tried.
func ShiftBackups(path string, keep int) error {
	var errs []error
	if err := os.Remove(BackupName(path, keep)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		errs = append(errs, err)
	}
	for i := keep; i >= 1; i-- {
		if err := os.Rename(BackupName(path, i-1), BackupName(path, i)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
