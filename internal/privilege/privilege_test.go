package privilege

import (
	"errors"
	"testing"
)

func TestRequireMatchesIsElevated(t *testing.T) {
	err := Require()
	if IsElevated() {
		if err != nil {
			t.Fatalf("Require() = %v while elevated", err)
		}
		return
	}
	if !errors.Is(err, ErrNotElevated) {
		t.Fatalf("Require() = %v, want ErrNotElevated", err)
	}
}
