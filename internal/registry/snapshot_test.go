package registry

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

var isWindows = runtime.GOOS == "windows"

func TestSnapshotRoundTripThroughStore(t *testing.T) {
	src := NewMemory()
	machine := NewRoot(MachineWide, Native)
	user := NewRoot(CurrentUser, Native)
	src.Add(machine, "{1111}", Values{
		DisplayName:     "Foo Studio",
		InstallLocation: `C:\Program Files\Foo`,
		DisplayVersion:  "2.1",
	})
	src.Add(user, "BarApp", Values{
		DisplayName:     "Bar",
		UninstallString: `"C:\Users\me\AppData\Local\Bar\uninst.exe" /S`,
	})

	snap, err := Capture(src, DefaultRoots(false))
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if len(snap.Roots) != 2 {
		t.Fatalf("expected 2 captured roots (wow64 absent), got %d", len(snap.Roots))
	}

	var buf bytes.Buffer
	if err := snap.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(buf.String(), "displayName: Foo Studio") {
		t.Fatalf("unexpected yaml:\n%s", buf.String())
	}

	dst, err := DecodeSnapshot(&buf)
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	key, err := dst.Open(user)
	if err != nil {
		t.Fatalf("Open user root: %v", err)
	}
	defer key.Close()
	v, err := key.ReadValues("BarApp")
	if err != nil {
		t.Fatalf("ReadValues: %v", err)
	}
	if v.UninstallString != `"C:\Users\me\AppData\Local\Bar\uninst.exe" /S` {
		t.Fatalf("uninstall string = %q", v.UninstallString)
	}
}

func TestLoadSnapshotFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.yaml")
	body := `roots:
  - scope: HKLM
    bitness: wow64
    entries:
      - key: legacy
        displayName: Legacy Tool
`
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	mem, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	key, err := mem.Open(NewRoot(MachineWide, Wow64))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer key.Close()
	names, _ := key.SubKeyNames()
	if len(names) != 1 || names[0] != "legacy" {
		t.Fatalf("names = %v", names)
	}
}

func TestDecodeSnapshotRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"scope":   "roots:\n  - scope: HKCR\n    entries: []\n",
		"bitness": "roots:\n  - bitness: arm64\n    entries: []\n",
		"key":     "roots:\n  - entries:\n      - displayName: x\n",
	}
	for name, body := range cases {
		if _, err := DecodeSnapshot(strings.NewReader(body)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestDecodeEmptySnapshot(t *testing.T) {
	mem, err := DecodeSnapshot(strings.NewReader(""))
	if err != nil {
		t.Fatalf("empty snapshot: %v", err)
	}
	if _, err := mem.Open(NewRoot(MachineWide, Native)); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected no roots, Open = %v", err)
	}
}
