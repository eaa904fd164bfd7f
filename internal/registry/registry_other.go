//go:build !windows

package registry

type liveStore struct{}

// Live returns a provider that reports ErrNotSupported for every root, so
// lookups on non-Windows hosts fall through to the filesystem scan.
func Live() Store {
	return liveStore{}
}

func (liveStore) Open(Root) (Key, error) {
	return nil, ErrNotSupported
}

func (liveStore) DeleteSubKey(Root, string) error {
	return ErrNotSupported
}
