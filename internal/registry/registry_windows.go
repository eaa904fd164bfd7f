//go:build windows

package registry

import (
	"errors"
	"fmt"
	"strings"

	winreg "golang.org/x/sys/windows/registry"
)

type liveStore struct{}

// Live returns the Windows registry provider.
func Live() Store {
	return liveStore{}
}

func (liveStore) Open(root Root) (Key, error) {
	hive, err := hiveKey(root.Scope)
	if err != nil {
		return nil, err
	}

	key, err := winreg.OpenKey(hive, root.Path, winreg.ENUMERATE_SUB_KEYS|winreg.QUERY_VALUE|winreg.WOW64_64KEY)
	if err != nil {
		return nil, mapErr(fmt.Errorf("open %s", root), err)
	}
	return &liveKey{key: key}, nil
}

func (liveStore) DeleteSubKey(root Root, name string) error {
	if name == "" || strings.ContainsAny(name, `\/`) {
		return fmt.Errorf("invalid subkey name %q", name)
	}

	hive, err := hiveKey(root.Scope)
	if err != nil {
		return err
	}

	parent, err := winreg.OpenKey(hive, root.Path, winreg.ENUMERATE_SUB_KEYS|winreg.QUERY_VALUE|winreg.SET_VALUE|winreg.WOW64_64KEY)
	if err != nil {
		return mapErr(fmt.Errorf("open %s for delete", root), err)
	}
	defer parent.Close()

	return deleteTree(parent, name)
}

// deleteTree removes name and everything below it. RegDeleteKey refuses keys
// that still have children.
func deleteTree(parent winreg.Key, name string) error {
	child, err := winreg.OpenKey(parent, name, winreg.ENUMERATE_SUB_KEYS|winreg.QUERY_VALUE|winreg.SET_VALUE|winreg.WOW64_64KEY)
	if err != nil {
		return mapErr(fmt.Errorf("open subkey %s", name), err)
	}

	children, err := child.ReadSubKeyNames(-1)
	if err != nil {
		child.Close()
		return fmt.Errorf("read subkeys of %s: %w", name, err)
	}
	for _, grandchild := range children {
		if err := deleteTree(child, grandchild); err != nil {
			child.Close()
			return err
		}
	}
	child.Close()

	if err := winreg.DeleteKey(parent, name); err != nil {
		return mapErr(fmt.Errorf("delete subkey %s", name), err)
	}
	return nil
}

type liveKey struct {
	key winreg.Key
}

func (k *liveKey) SubKeyNames() ([]string, error) {
	return k.key.ReadSubKeyNames(-1)
}

func (k *liveKey) ReadValues(name string) (Values, error) {
	sub, err := winreg.OpenKey(k.key, name, winreg.QUERY_VALUE|winreg.WOW64_64KEY)
	if err != nil {
		return Values{}, mapErr(fmt.Errorf("open subkey %s", name), err)
	}
	defer sub.Close()

	return Values{
		DisplayName:          readString(sub, ValueDisplayName),
		InstallLocation:      readString(sub, ValueInstallLocation),
		UninstallString:      readString(sub, ValueUninstallString),
		QuietUninstallString: readString(sub, ValueQuietUninstallString),
		DisplayVersion:       readString(sub, ValueDisplayVersion),
		Publisher:            readString(sub, ValuePublisher),
	}, nil
}

func (k *liveKey) Close() error {
	return k.key.Close()
}

func readString(key winreg.Key, name string) string {
	val, _, err := key.GetStringValue(name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(val)
}

func hiveKey(scope Scope) (winreg.Key, error) {
	switch scope {
	case MachineWide:
		return winreg.LOCAL_MACHINE, nil
	case CurrentUser:
		return winreg.CURRENT_USER, nil
	default:
		return 0, fmt.Errorf("unknown registry scope: %s", scope)
	}
}

func mapErr(ctx error, err error) error {
	if errors.Is(err, winreg.ErrNotExist) {
		return fmt.Errorf("%v: %w", ctx, ErrKeyNotFound)
	}
	return fmt.Errorf("%v: %w", ctx, err)
}
