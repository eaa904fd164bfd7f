package inventory

import (
	"os"
	"path/filepath"
	"strings"
)

// StatFunc reports whether path exists. Tests substitute a fixture.
type StatFunc func(path string) bool

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Resolver derives an install directory from an uninstall entry.
type Resolver struct {
	exists StatFunc
}

func NewResolver(exists StatFunc) *Resolver {
	if exists == nil {
		exists = pathExists
	}
	return &Resolver{exists: exists}
}

// Resolve returns InstallLocation verbatim when set. Otherwise it tries the
// uninstall command, first as a whole path and then its first double-quoted
// token, and returns the parent directory of whichever exists. Commands such
// as "MsiExec.exe /X{...}" resolve to nothing.
func (r *Resolver) Resolve(entry UninstallEntry) (string, bool) {
	if strings.TrimSpace(entry.InstallLocation) != "" {
		return entry.InstallLocation, true
	}

	cmd := strings.TrimSpace(entry.UninstallCommand)
	if cmd == "" {
		return "", false
	}

	if r.exists(cmd) {
		return parentDir(cmd), true
	}

	if quoted, ok := firstQuoted(cmd); ok && r.exists(quoted) {
		return parentDir(quoted), true
	}

	return "", false
}

// parentDir splits drive-letter and UNC paths at their last separator on
// every host, keeping the separators as written, since snapshots taken on
// Windows are resolved elsewhere too. Other paths go through filepath.Dir.
func parentDir(p string) string {
	if !hasWindowsVolume(p) {
		return filepath.Dir(p)
	}
	i := strings.LastIndexAny(p, `\/`)
	if i < 0 {
		return p
	}
	if i == 2 && p[1] == ':' {
		// A drive root keeps its separator.
		return p[:3]
	}
	return p[:i]
}

func hasWindowsVolume(p string) bool {
	if len(p) >= 3 && p[1] == ':' && (p[2] == '\\' || p[2] == '/') {
		c := p[0] | 0x20
		return c >= 'a' && c <= 'z'
	}
	return strings.HasPrefix(p, `\\`)
}

// firstQuoted returns the text between the first pair of double quotes.
func firstQuoted(s string) (string, bool) {
	start := strings.IndexByte(s, '"')
	if start < 0 {
		return "", false
	}
	end := strings.IndexByte(s[start+1:], '"')
	if end < 0 {
		return "", false
	}
	token := s[start+1 : start+1+end]
	if token == "" {
		return "", false
	}
	return token, true
}
