//go:build !windows

package removal

import "os"

func makeWritable(path string, isDir bool) {
	info, err := os.Lstat(path)
	if err != nil || info.Mode()&os.ModeSymlink != 0 {
		return
	}
	mode := info.Mode().Perm() | 0200
	if isDir {
		mode |= 0100
	}
	if mode != info.Mode().Perm() {
		os.Chmod(path, mode)
	}
}

func foldPath(p string) string {
	return p
}
