// Package registry abstracts the uninstall-metadata store. The live provider
// reads the Windows registry; Memory backs snapshots and tests.
package registry

import (
	"errors"
	"fmt"
)

// UninstallKeyPath is the conventional location of per-product uninstall keys.
const UninstallKeyPath = `SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall`

// Wow64UninstallKeyPath is the 32-bit redirected view on 64-bit Windows.
const Wow64UninstallKeyPath = `SOFTWARE\WOW6432Node\Microsoft\Windows\CurrentVersion\Uninstall`

// Value names read from each product subkey.
const (
	ValueDisplayName          = "DisplayName"
	ValueInstallLocation      = "InstallLocation"
	ValueUninstallString      = "UninstallString"
	ValueQuietUninstallString = "QuietUninstallString"
	ValueDisplayVersion       = "DisplayVersion"
	ValuePublisher            = "Publisher"
)

var (
	// ErrNotSupported is returned by the live provider on non-Windows hosts.
	ErrNotSupported = errors.New("registry is only supported on Windows")
	// ErrKeyNotFound is returned when a root or subkey does not exist.
	ErrKeyNotFound = errors.New("registry key not found")
)

// Scope is the registry hive an uninstall root lives in.
type Scope int

const (
	MachineWide Scope = iota
	CurrentUser
)

func (s Scope) String() string {
	switch s {
	case MachineWide:
		return "HKLM"
	case CurrentUser:
		return "HKCU"
	default:
		return fmt.Sprintf("Scope(%d)", int(s))
	}
}

// Bitness distinguishes the native view from the Wow64-redirected one.
type Bitness int

const (
	Native Bitness = iota
	Wow64
)

func (b Bitness) String() string {
	switch b {
	case Native:
		return "native"
	case Wow64:
		return "wow64"
	default:
		return fmt.Sprintf("Bitness(%d)", int(b))
	}
}

// Root identifies one uninstall listing: a hive plus a subkey path.
type Root struct {
	Scope   Scope
	Bitness Bitness
	Path    string
}

func (r Root) String() string {
	return r.Scope.String() + `\` + r.Path
}

// NewRoot returns the conventional uninstall root for a scope and bitness.
func NewRoot(scope Scope, bitness Bitness) Root {
	path := UninstallKeyPath
	if bitness == Wow64 {
		path = Wow64UninstallKeyPath
	}
	return Root{Scope: scope, Bitness: bitness, Path: path}
}

// DefaultRoots returns the roots in lookup precedence: machine-wide native,
// machine-wide Wow64, current-user native, and optionally current-user Wow64.
func DefaultRoots(includeUserWow64 bool) []Root {
	roots := []Root{
		NewRoot(MachineWide, Native),
		NewRoot(MachineWide, Wow64),
		NewRoot(CurrentUser, Native),
	}
	if includeUserWow64 {
		roots = append(roots, NewRoot(CurrentUser, Wow64))
	}
	return roots
}

// Values holds the string values of one product subkey. Missing values are
// empty strings.
type Values struct {
	DisplayName          string `yaml:"displayName"`
	InstallLocation      string `yaml:"installLocation,omitempty"`
	UninstallString      string `yaml:"uninstallString,omitempty"`
	QuietUninstallString string `yaml:"quietUninstallString,omitempty"`
	DisplayVersion       string `yaml:"displayVersion,omitempty"`
	Publisher            string `yaml:"publisher,omitempty"`
}

// Store opens uninstall roots and deletes product subkeys.
type Store interface {
	Open(root Root) (Key, error)
	DeleteSubKey(root Root, name string) error
}

// Key is an open uninstall root. Callers must Close it on every path.
type Key interface {
	SubKeyNames() ([]string, error)
	ReadValues(name string) (Values, error)
	Close() error
}

// RootByName maps a configured root name such as "machine-wow64" to a Root.
func RootByName(name string) (Root, error) {
	switch name {
	case "machine-native":
		return NewRoot(MachineWide, Native), nil
	case "machine-wow64":
		return NewRoot(MachineWide, Wow64), nil
	case "user-native":
		return NewRoot(CurrentUser, Native), nil
	case "user-wow64":
		return NewRoot(CurrentUser, Wow64), nil
	default:
		return Root{}, fmt.Errorf("unknown registry root %q", name)
	}
}
