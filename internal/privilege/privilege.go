// Package privilege reports whether the process can modify machine-wide
// install state.
package privilege

import "errors"

// ErrNotElevated is returned by Require when the process lacks
// administrator (or root) rights.
var ErrNotElevated = errors.New("administrator privileges are required to remove machine-wide software")

// Require returns ErrNotElevated unless IsElevated reports true.
func Require() error {
	if !IsElevated() {
		return ErrNotElevated
	}
	return nil
}
