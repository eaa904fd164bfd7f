// Package batch drives a list of software names through lookup and,
// optionally, removal, producing one report line per input name.
package batch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/breeze-rmm/swcheck/internal/audit"
	"github.com/breeze-rmm/swcheck/internal/inventory"
	"github.com/breeze-rmm/swcheck/internal/logging"
	"github.com/breeze-rmm/swcheck/internal/removal"
	"github.com/breeze-rmm/swcheck/internal/workerpool"
)

var log = logging.L("batch")

// ErrNoNames is returned when the input holds no non-blank names.
var ErrNoNames = errors.New("no software names supplied")

// Locator looks up one name. *inventory.Locator satisfies it.
type Locator interface {
	Lookup(ctx context.Context, name string) inventory.QueryResult
}

type Options struct {
	// MaxConcurrentQueries above 1 runs lookups on a worker pool. Removal
	// stays sequential regardless.
	MaxConcurrentQueries int
	Auditor              removal.Auditor
}

type Controller struct {
	locator     Locator
	executor    *removal.Executor
	concurrency int
	auditor     removal.Auditor
}

// New returns a controller. executor may be nil for query-only use.
func New(locator Locator, executor *removal.Executor, opts Options) *Controller {
	concurrency := opts.MaxConcurrentQueries
	if concurrency < 1 {
		concurrency = 1
	}
	return &Controller{
		locator:     locator,
		executor:    executor,
		concurrency: concurrency,
		auditor:     opts.Auditor,
	}
}

// ParseNames splits newline separated input, trimming each line and dropping
// blank ones.
func ParseNames(text string) []string {
	var names []string
	for _, line := range strings.Split(text, "\n") {
		if name := strings.TrimSpace(line); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// ReadNames reads names from r, one per line.
func ReadNames(r io.Reader) ([]string, error) {
	var names []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if name := strings.TrimSpace(sc.Text()); name != "" {
			names = append(names, name)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read names: %w", err)
	}
	return names, nil
}

func cleanNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// Query looks up every name. The report holds one result per non-blank name
// in input order.
func (c *Controller) Query(ctx context.Context, names []string) (QueryReport, error) {
	names = cleanNames(names)
	if len(names) == 0 {
		return QueryReport{}, ErrNoNames
	}

	batchID := uuid.NewString()
	logger := logging.WithBatch(log, batchID)
	ctx = logging.NewContext(ctx, logger)

	start := time.Now()
	results := c.lookupAll(ctx, names)

	found := 0
	for _, r := range results {
		if r.Found {
			found++
		}
	}
	logger.Info("query batch finished", "names", len(names), "found", found, logging.KeyDurationMs, time.Since(start).Milliseconds())
	return QueryReport{BatchID: batchID, Results: results}, nil
}

// Remove looks up every name and removes each installed one, sequentially.
// Per-item failures are recorded in the report; they never end the batch.
func (c *Controller) Remove(ctx context.Context, names []string) (RemovalReport, error) {
	if c.executor == nil {
		return RemovalReport{}, errors.New("batch controller has no removal executor")
	}
	names = cleanNames(names)
	if len(names) == 0 {
		return RemovalReport{}, ErrNoNames
	}

	batchID := uuid.NewString()
	logger := logging.WithBatch(log, batchID)
	ctx = logging.NewContext(ctx, logger)

	c.audit(audit.EventBatchStarted, batchID, map[string]any{"names": names})
	start := time.Now()

	results := c.lookupAll(ctx, names)
	outcomes := c.executor.ForBatch(batchID).RemoveAll(ctx, results)

	report := RemovalReport{BatchID: batchID, Results: results, Outcomes: outcomes}
	failed := len(report.Failures())
	c.audit(audit.EventBatchCompleted, batchID, map[string]any{
		"names":   len(names),
		"removed": report.Removed(),
		"failed":  failed,
	})
	logger.Info("removal batch finished",
		"names", len(names),
		"removed", report.Removed(),
		"failed", failed,
		logging.KeyDurationMs, time.Since(start).Milliseconds())
	return report, nil
}

func (c *Controller) lookupAll(ctx context.Context, names []string) []inventory.QueryResult {
	return workerpool.Map(c.concurrency, names, func(_ int, name string) inventory.QueryResult {
		return c.lookup(ctx, name)
	})
}

// lookup never panics; a failure inside the locator reads as not installed.
func (c *Controller) lookup(ctx context.Context, name string) (result inventory.QueryResult) {
	defer func() {
		if r := recover(); r != nil {
			logging.FromContext(ctx).Error("lookup panicked",
				logging.KeyQuery, name,
				"panic", r,
				"stack", string(debug.Stack()))
			result = inventory.NotFound(name)
		}
	}()
	return c.locator.Lookup(ctx, name)
}

func (c *Controller) audit(event, batchID string, details map[string]any) {
	if c.auditor != nil {
		c.auditor.Log(event, batchID, details)
	}
}
