package removal

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
)

// CommandRunner runs an uninstaller. A non-zero exit is reported through
// exitCode with a nil error; err is reserved for failures to start or wait.
type CommandRunner interface {
	Run(ctx context.Context, argv []string) (exitCode int, output []byte, err error)
}

type execRunner struct{}

// ExecRunner returns the os/exec backed runner.
func ExecRunner() CommandRunner {
	return execRunner{}
}

func (execRunner) Run(ctx context.Context, argv []string) (int, []byte, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	output, err := cmd.CombinedOutput()
	if err == nil {
		return 0, output, nil
	}
	if ctx.Err() != nil {
		return -1, output, ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), output, nil
	}
	return -1, output, err
}

// splitCommandLine breaks an uninstall string into arguments. Double quotes
// group; backslashes are literal since they are path separators here.
func splitCommandLine(line string) []string {
	var (
		args    []string
		cur     strings.Builder
		inQuote bool
		started bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			inQuote = !inQuote
			started = true
		case (r == ' ' || r == '\t') && !inQuote:
			if started {
				args = append(args, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	if started {
		args = append(args, cur.String())
	}
	return args
}

// programArgs turns an uninstall string into argv. Unquoted program paths
// containing spaces ("C:\Program Files\Foo\uninst.exe /S") are rejoined
// until an existing file is found.
func programArgs(line string, exists func(string) bool) []string {
	args := splitCommandLine(line)
	if len(args) < 2 || exists(args[0]) || strings.HasPrefix(strings.TrimSpace(line), `"`) {
		return args
	}
	if _, err := exec.LookPath(args[0]); err == nil {
		return args
	}
	for i := 2; i <= len(args); i++ {
		candidate := strings.Join(args[:i], " ")
		if exists(candidate) {
			return append([]string{candidate}, args[i:]...)
		}
	}
	return args
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
