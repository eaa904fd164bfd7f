package registry

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
)

func TestDefaultRootsPrecedence(t *testing.T) {
	roots := DefaultRoots(false)
	if len(roots) != 3 {
		t.Fatalf("expected 3 roots, got %d", len(roots))
	}
	if roots[0].Scope != MachineWide || roots[0].Bitness != Native {
		t.Fatalf("first root = %v", roots[0])
	}
	if roots[1].Scope != MachineWide || roots[1].Bitness != Wow64 || !strings.Contains(roots[1].Path, "WOW6432Node") {
		t.Fatalf("second root = %v", roots[1])
	}
	if roots[2].Scope != CurrentUser || roots[2].Bitness != Native {
		t.Fatalf("third root = %v", roots[2])
	}
	if got := DefaultRoots(true); len(got) != 4 || got[3] != NewRoot(CurrentUser, Wow64) {
		t.Fatalf("user wow64 root missing: %v", got)
	}
}

func TestRootByName(t *testing.T) {
	root, err := RootByName("machine-wow64")
	if err != nil {
		t.Fatal(err)
	}
	if root != NewRoot(MachineWide, Wow64) {
		t.Fatalf("root = %v", root)
	}
	if _, err := RootByName("hkcr"); err == nil {
		t.Fatal("expected error for unknown root")
	}
}

func TestMemoryPreservesInsertionOrder(t *testing.T) {
	mem := NewMemory()
	root := NewRoot(MachineWide, Native)
	mem.Add(root, "b", Values{DisplayName: "B"})
	mem.Add(root, "a", Values{DisplayName: "A"})
	mem.Add(root, "b", Values{DisplayName: "B2"})

	key, err := mem.Open(root)
	if err != nil {
		t.Fatal(err)
	}
	defer key.Close()

	names, _ := key.SubKeyNames()
	if strings.Join(names, ",") != "b,a" {
		t.Fatalf("names = %v", names)
	}
	v, err := key.ReadValues("b")
	if err != nil || v.DisplayName != "B2" {
		t.Fatalf("ReadValues(b) = %+v, %v", v, err)
	}
}

func TestMemoryOpenErrors(t *testing.T) {
	mem := NewMemory()
	root := NewRoot(CurrentUser, Native)
	if _, err := mem.Open(root); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}

	mem.Add(root, "x", Values{DisplayName: "X"})
	mem.FailOpen(root, fs.ErrPermission)
	if _, err := mem.Open(root); !errors.Is(err, fs.ErrPermission) {
		t.Fatalf("expected permission error, got %v", err)
	}
}

func TestMemoryDeleteSubKey(t *testing.T) {
	mem := NewMemory()
	root := NewRoot(MachineWide, Native)
	mem.Add(root, "keep", Values{DisplayName: "Keep"})
	mem.Add(root, "drop", Values{DisplayName: "Drop"})

	if err := mem.DeleteSubKey(root, "drop"); err != nil {
		t.Fatalf("DeleteSubKey: %v", err)
	}
	if err := mem.DeleteSubKey(root, "drop"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("second delete should be not found, got %v", err)
	}

	mem.FailDelete(root, "keep", fs.ErrPermission)
	if err := mem.DeleteSubKey(root, "keep"); !errors.Is(err, fs.ErrPermission) {
		t.Fatalf("expected injected error, got %v", err)
	}

	key, _ := mem.Open(root)
	defer key.Close()
	names, _ := key.SubKeyNames()
	if len(names) != 1 || names[0] != "keep" {
		t.Fatalf("names = %v", names)
	}
}

func TestMemoryTracksOpenHandles(t *testing.T) {
	mem := NewMemory()
	root := NewRoot(MachineWide, Native)
	mem.Add(root, "a", Values{DisplayName: "A"})

	key, _ := mem.Open(root)
	if mem.OpenHandles() != 1 {
		t.Fatalf("open handles = %d", mem.OpenHandles())
	}
	key.Close()
	key.Close()
	if mem.OpenHandles() != 0 {
		t.Fatalf("open handles after close = %d", mem.OpenHandles())
	}
}

func TestLiveStoreNotSupportedOffWindows(t *testing.T) {
	if isWindows {
		t.Skip("live registry available")
	}
	if _, err := Live().Open(NewRoot(MachineWide, Native)); !errors.Is(err, ErrNotSupported) {
		t.Fatalf("expected ErrNotSupported, got %v", err)
	}
}
