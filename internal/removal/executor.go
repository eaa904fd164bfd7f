package removal

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/breeze-rmm/swcheck/internal/audit"
	"github.com/breeze-rmm/swcheck/internal/inventory"
	"github.com/breeze-rmm/swcheck/internal/logging"
	"github.com/breeze-rmm/swcheck/internal/registry"
)

var log = logging.L("removal")

// Outcome is the result of removing one queried name.
type Outcome struct {
	QueryName     string
	Succeeded     bool
	FailureReason string
	Strategy      Kind
	// Skipped is set when the name was not installed; there was nothing to do.
	Skipped bool
	DryRun  bool
}

// Failed reports whether the outcome should be surfaced as an error.
func (o Outcome) Failed() bool {
	return !o.Succeeded && !o.Skipped
}

// Auditor records removal events. *audit.Logger satisfies it.
type Auditor interface {
	Log(eventType string, batchID string, details map[string]any)
}

type Options struct {
	DryRun  bool
	Auditor Auditor
}

// Executor picks a strategy per result and runs it, converting every error
// and panic into a failed Outcome.
type Executor struct {
	strategies []Strategy
	dryRun     bool
	auditor    Auditor
	batchID    string
}

// NewExecutor uses strategies in preference order: the first one whose
// Applies returns true handles the result.
func NewExecutor(strategies []Strategy, opts Options) *Executor {
	return &Executor{
		strategies: append([]Strategy(nil), strategies...),
		dryRun:     opts.DryRun,
		auditor:    opts.Auditor,
	}
}

// DefaultStrategies builds the three strategies. With preferUninstaller the
// vendor uninstaller runs ahead of direct key and directory deletion for
// registry matches that record an uninstall command.
func DefaultStrategies(store registry.Store, dirs *DirRemover, runner CommandRunner, timeout time.Duration, preferUninstaller bool) []Strategy {
	direct := NewRegistryAndDirectory(store, dirs)
	delegated := NewDelegatedUninstaller(runner, timeout)
	fsOnly := NewFilesystemOnly(dirs)
	if preferUninstaller {
		return []Strategy{delegated, direct, fsOnly}
	}
	return []Strategy{direct, delegated, fsOnly}
}

// ForBatch returns a copy of e that tags audit entries with batchID.
func (e *Executor) ForBatch(batchID string) *Executor {
	c := *e
	c.batchID = batchID
	return &c
}

// Select returns the first strategy that applies to result.
func (e *Executor) Select(result inventory.QueryResult) (Strategy, bool) {
	for _, s := range e.strategies {
		if s.Applies(result) {
			return s, true
		}
	}
	return nil, false
}

// Remove removes one located product. It always returns an outcome.
func (e *Executor) Remove(ctx context.Context, result inventory.QueryResult) Outcome {
	out := Outcome{QueryName: result.QueryName}
	logger := logging.FromContext(ctx).With(logging.KeyQuery, result.QueryName)

	if !result.Found {
		out.Skipped = true
		logger.Debug("not installed, nothing to remove")
		return out
	}

	strategy, ok := e.Select(result)
	if !ok {
		out.FailureReason = "no removal strategy applies: no uninstall key, directory or uninstall command"
		e.audit(audit.EventRemovalFailed, out, nil)
		return out
	}
	out.Strategy = strategy.Kind()

	if e.dryRun {
		out.Succeeded = true
		out.DryRun = true
		logger.Info("dry run: would remove", "strategy", string(out.Strategy), "path", result.ResolvedPath)
		return out
	}

	details := map[string]any{"source": result.Source.String()}
	if result.ResolvedPath != "" {
		details["path"] = result.ResolvedPath
	}
	if result.MatchedEntry != nil {
		details["displayName"] = result.MatchedEntry.DisplayName
		details["root"] = result.MatchedEntry.Root.String()
		details["subkey"] = result.MatchedEntry.SubkeyID
	}
	e.audit(audit.EventRemovalAttempt, out, details)

	start := time.Now()
	if err := runStrategy(ctx, strategy, result); err != nil {
		out.FailureReason = err.Error()
		logger.Warn("removal failed", "strategy", string(out.Strategy), logging.KeyError, err)
		e.audit(audit.EventRemovalFailed, out, nil)
		return out
	}

	out.Succeeded = true
	logger.Info("removed", "strategy", string(out.Strategy), logging.KeyDurationMs, time.Since(start).Milliseconds())
	e.audit(audit.EventRemovalSucceeded, out, nil)
	return out
}

// RemoveAll removes results in order, one at a time. Each result yields
// exactly one outcome; a failure or cancellation never drops later items.
func (e *Executor) RemoveAll(ctx context.Context, results []inventory.QueryResult) []Outcome {
	outcomes := make([]Outcome, len(results))
	for i, result := range results {
		if err := ctx.Err(); err != nil && result.Found {
			outcomes[i] = Outcome{QueryName: result.QueryName, FailureReason: fmt.Sprintf("not attempted: %v", err)}
			continue
		}
		outcomes[i] = e.Remove(ctx, result)
	}
	return outcomes
}

func runStrategy(ctx context.Context, s Strategy, result inventory.QueryResult) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("removal strategy panicked", "strategy", string(s.Kind()), "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("%s panicked: %v", s.Kind(), r)
		}
	}()
	return s.Remove(ctx, result)
}

func (e *Executor) audit(event string, out Outcome, extra map[string]any) {
	if e.auditor == nil {
		return
	}
	details := map[string]any{"query": out.QueryName}
	if out.Strategy != "" {
		details["strategy"] = string(out.Strategy)
	}
	if out.FailureReason != "" {
		details["reason"] = out.FailureReason
	}
	for k, v := range extra {
		details[k] = v
	}
	e.auditor.Log(event, e.batchID, details)
}
