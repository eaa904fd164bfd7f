//go:build windows

package removal

import (
	"strings"

	"golang.org/x/sys/windows"
)

func makeWritable(path string, _ bool) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return
	}
	attrs, err := windows.GetFileAttributes(p)
	if err != nil {
		return
	}
	if attrs&windows.FILE_ATTRIBUTE_READONLY == 0 {
		return
	}
	windows.SetFileAttributes(p, attrs&^windows.FILE_ATTRIBUTE_READONLY)
}

// foldPath makes path comparison case-insensitive, as NTFS is.
func foldPath(p string) string {
	return strings.ToLower(p)
}
