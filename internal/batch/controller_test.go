package batch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/breeze-rmm/swcheck/internal/inventory"
	"github.com/breeze-rmm/swcheck/internal/registry"
	"github.com/breeze-rmm/swcheck/internal/removal"
)

var machineNative = registry.NewRoot(registry.MachineWide, registry.Native)

type stubLocator struct {
	calls atomic.Int32
	fn    func(name string) inventory.QueryResult
}

func (s *stubLocator) Lookup(_ context.Context, name string) inventory.QueryResult {
	s.calls.Add(1)
	return s.fn(name)
}

type memAuditor struct {
	events []string
}

func (a *memAuditor) Log(event, _ string, _ map[string]any) {
	a.events = append(a.events, event)
}

func realLocator(mem *registry.Memory, fallbackRoots ...string) *inventory.Locator {
	scanner := inventory.NewScanner(mem, registry.DefaultRoots(false))
	var fb *inventory.FallbackScanner
	if len(fallbackRoots) > 0 {
		fb = inventory.NewFallbackScanner(fallbackRoots)
	}
	return inventory.NewLocator(scanner, inventory.NewResolver(nil), fb)
}

func TestParseNames(t *testing.T) {
	got := ParseNames("  Foo \n\n\t\nBar Baz\r\n  \nQux")
	want := []string{"Foo", "Bar Baz", "Qux"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ParseNames mismatch (-want +got):\n%s", diff)
	}
}

func TestReadNames(t *testing.T) {
	got, err := ReadNames(strings.NewReader("alpha\n\n beta \n"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"alpha", "beta"}, got); diff != "" {
		t.Fatalf("ReadNames mismatch (-want +got):\n%s", diff)
	}
}

func TestQueryEmptyInput(t *testing.T) {
	loc := &stubLocator{fn: inventory.NotFound}
	c := New(loc, nil, Options{})

	if _, err := c.Query(context.Background(), []string{"", "   "}); !errors.Is(err, ErrNoNames) {
		t.Fatalf("err = %v, want ErrNoNames", err)
	}
	if loc.calls.Load() != 0 {
		t.Fatal("locator called for empty input")
	}
}

func TestQueryOrderAndCount(t *testing.T) {
	for _, workers := range []int{1, 4} {
		loc := &stubLocator{fn: func(name string) inventory.QueryResult {
			// Later names finish first.
			time.Sleep(time.Duration(10-len(name)) * time.Millisecond)
			if strings.HasPrefix(name, "hit") {
				return inventory.FromFilesystem(name, "/opt/"+name)
			}
			return inventory.NotFound(name)
		}}
		c := New(loc, nil, Options{MaxConcurrentQueries: workers})

		input := []string{"hit-a", "", "miss", "hit-bbbb", "  ", "m"}
		report, err := c.Query(context.Background(), input)
		if err != nil {
			t.Fatal(err)
		}

		var gotNames []string
		for _, r := range report.Results {
			gotNames = append(gotNames, r.QueryName)
		}
		if diff := cmp.Diff([]string{"hit-a", "miss", "hit-bbbb", "m"}, gotNames); diff != "" {
			t.Fatalf("workers=%d order mismatch (-want +got):\n%s", workers, diff)
		}
		if report.BatchID == "" {
			t.Fatal("batch id not set")
		}
	}
}

func TestQueryIsIdempotent(t *testing.T) {
	mem := registry.NewMemory()
	mem.Add(machineNative, "{FOO}", registry.Values{DisplayName: "Foo Suite", UninstallString: `"C:\Foo\uninst.exe" /S`})
	c := New(realLocator(mem), nil, Options{})
	names := []string{"foo", "bar"}

	first, err := c.Query(context.Background(), names)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Query(context.Background(), names)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(first.Results, second.Results); diff != "" {
		t.Fatalf("repeated query differs (-first +second):\n%s", diff)
	}
	if mem.OpenHandles() != 0 {
		t.Fatalf("%d registry handles leaked", mem.OpenHandles())
	}
}

func TestQueryRecoversLocatorPanic(t *testing.T) {
	loc := &stubLocator{fn: func(name string) inventory.QueryResult {
		if name == "bad" {
			panic("corrupt entry")
		}
		return inventory.FromFilesystem(name, "/opt/"+name)
	}}
	report, err := New(loc, nil, Options{MaxConcurrentQueries: 2}).Query(context.Background(), []string{"ok", "bad", "fine"})
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Results) != 3 || report.Results[1].Found || report.Results[1].QueryName != "bad" {
		t.Fatalf("results = %+v", report.Results)
	}
	if !report.Results[0].Found || !report.Results[2].Found {
		t.Fatalf("neighbours of the panic lost: %+v", report.Results)
	}
}

func TestRemoveIsolatesFailures(t *testing.T) {
	mem := registry.NewMemory()
	base := t.TempDir()
	dirs := map[string]string{}
	for _, name := range []string{"Alpha", "Bravo", "Charlie"} {
		dir := filepath.Join(base, name)
		if err := os.MkdirAll(filepath.Join(dir, "bin"), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "bin", "app.exe"), []byte("x"), 0o444); err != nil {
			t.Fatal(err)
		}
		dirs[name] = dir
		mem.Add(machineNative, "{"+name+"}", registry.Values{DisplayName: name + " App", InstallLocation: dir})
	}
	mem.FailDelete(machineNative, "{Bravo}", fs.ErrPermission)

	auditor := &memAuditor{}
	exec := removal.NewExecutor(
		removal.DefaultStrategies(mem, removal.NewDirRemover([]string{base}), nil, time.Minute, false),
		removal.Options{Auditor: auditor})
	c := New(realLocator(mem), exec, Options{Auditor: auditor})

	report, err := c.Remove(context.Background(), []string{"alpha", "bravo", "charlie", "delta"})
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Outcomes) != 4 {
		t.Fatalf("got %d outcomes, want 4", len(report.Outcomes))
	}
	if !report.Outcomes[0].Succeeded || report.Outcomes[1].Succeeded || !report.Outcomes[2].Succeeded || !report.Outcomes[3].Skipped {
		t.Fatalf("outcomes = %+v", report.Outcomes)
	}
	for _, name := range []string{"Alpha", "Charlie"} {
		if _, err := os.Stat(dirs[name]); !errors.Is(err, fs.ErrNotExist) {
			t.Fatalf("%s directory still present: %v", name, err)
		}
	}
	if _, err := os.Stat(dirs["Bravo"]); err != nil {
		t.Fatalf("Bravo directory should survive its failed key delete: %v", err)
	}

	lines := report.Lines()
	if len(lines) != 2 {
		t.Fatalf("lines = %q", lines)
	}
	if !strings.HasPrefix(lines[0], "删除 bravo 时出现错误：") {
		t.Fatalf("notification = %q", lines[0])
	}
	if lines[1] != CompletionSignal {
		t.Fatalf("last line = %q", lines[1])
	}
	if auditor.events[0] != "batch_started" || auditor.events[len(auditor.events)-1] != "batch_completed" {
		t.Fatalf("audit events = %v", auditor.events)
	}
}

func TestRemoveAllFailedStillCompletes(t *testing.T) {
	mem := registry.NewMemory()
	mem.Add(machineNative, "{X}", registry.Values{DisplayName: "Xylo"})
	mem.FailDelete(machineNative, "{X}", fs.ErrPermission)
	exec := removal.NewExecutor(removal.DefaultStrategies(mem, removal.NewDirRemover(nil), nil, time.Minute, false), removal.Options{})

	report, err := New(realLocator(mem), exec, Options{}).Remove(context.Background(), []string{"xylo"})
	if err != nil {
		t.Fatal(err)
	}
	lines := report.Lines()
	if len(lines) != 2 || lines[1] != CompletionSignal {
		t.Fatalf("lines = %q", lines)
	}
}

func TestRemoveWithoutExecutor(t *testing.T) {
	if _, err := New(&stubLocator{fn: inventory.NotFound}, nil, Options{}).Remove(context.Background(), []string{"x"}); err == nil {
		t.Fatal("expected error without executor")
	}
}
