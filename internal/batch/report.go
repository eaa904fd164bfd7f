package batch

import (
	"fmt"

	"github.com/breeze-rmm/swcheck/internal/inventory"
	"github.com/breeze-rmm/swcheck/internal/removal"
)

// CompletionSignal ends every removal report, whatever happened to the items.
const CompletionSignal = "所有已安装软件已删除。"

const (
	statusInstalled    = "已安装"
	statusNotInstalled = "未安装"
)

type QueryReport struct {
	BatchID string
	Results []inventory.QueryResult
}

// Lines renders one line per result.
func (r QueryReport) Lines() []string {
	lines := make([]string, len(r.Results))
	for i, res := range r.Results {
		lines[i] = FormatResult(res)
	}
	return lines
}

// FormatResult renders a result as "<name>: <status>" followed by the install
// path, or the uninstall command when no path was resolved.
func FormatResult(res inventory.QueryResult) string {
	if !res.Found {
		return fmt.Sprintf("%s: %s", res.QueryName, statusNotInstalled)
	}
	if res.HasPath() {
		return fmt.Sprintf("%s: %s，安装路径：%s", res.QueryName, statusInstalled, res.ResolvedPath)
	}
	if cmd := res.UninstallCommand(); cmd != "" {
		return fmt.Sprintf("%s: %s，卸载命令：%s", res.QueryName, statusInstalled, cmd)
	}
	return fmt.Sprintf("%s: %s", res.QueryName, statusInstalled)
}

type RemovalReport struct {
	BatchID  string
	Results  []inventory.QueryResult
	Outcomes []removal.Outcome
}

// Failures returns the outcomes that need an error notification, in input
// order.
func (r RemovalReport) Failures() []removal.Outcome {
	var failed []removal.Outcome
	for _, o := range r.Outcomes {
		if o.Failed() {
			failed = append(failed, o)
		}
	}
	return failed
}

// Removed counts items that were removed (or would be, in a dry run).
func (r RemovalReport) Removed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Succeeded {
			n++
		}
	}
	return n
}

// Notifications lists one error message per failed item.
func (r RemovalReport) Notifications() []string {
	failed := r.Failures()
	msgs := make([]string, len(failed))
	for i, o := range failed {
		msgs[i] = FormatFailure(o)
	}
	return msgs
}

// Lines is the notifications followed by the completion signal.
func (r RemovalReport) Lines() []string {
	return append(r.Notifications(), CompletionSignal)
}

func FormatFailure(o removal.Outcome) string {
	return fmt.Sprintf("删除 %s 时出现错误：%s", o.QueryName, o.FailureReason)
}
