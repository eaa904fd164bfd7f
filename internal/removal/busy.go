package removal

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

const maxBusyReported = 5

// processesUnder lists running processes whose executable lives below dir,
// formatted as "name (pid)". It is only consulted after a delete failed, to
// explain locked files.
func processesUnder(dir string) []string {
	procs, err := process.Processes()
	if err != nil {
		log.Debug("process list unavailable", "error", err)
		return nil
	}

	prefix := filepath.Clean(dir) + string(filepath.Separator)
	var users []string
	for _, p := range procs {
		exe, err := p.Exe()
		if err != nil || exe == "" {
			continue
		}
		if !hasPathPrefix(exe, prefix) {
			continue
		}
		name, err := p.Name()
		if err != nil || name == "" {
			name = filepath.Base(exe)
		}
		users = append(users, fmt.Sprintf("%s (%d)", name, p.Pid))
		if len(users) == maxBusyReported {
			break
		}
	}
	return users
}

func hasPathPrefix(path, prefix string) bool {
	if runtime.GOOS == "windows" {
		return strings.HasPrefix(strings.ToLower(path), strings.ToLower(prefix))
	}
	return strings.HasPrefix(path, prefix)
}
