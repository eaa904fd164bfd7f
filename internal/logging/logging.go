package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync/atomic"
)

// Key constants for structured log fields.
const (
	KeyBatchID    = "batchId"
	KeyQuery      = "query"
	KeyRoot       = "root"
	KeyComponent  = "component"
	KeyDurationMs = "durationMs"
	KeyError      = "error"
)

type contextKey struct{}

// switchableHandler forwards to whichever handler Init installed last, so
// package-level loggers built at import time follow the configured output.
type switchableHandler struct {
	current *atomic.Pointer[slog.Handler]
	attrs   []slog.Attr
	groups  []string
}

func newSwitchableHandler(h slog.Handler) *switchableHandler {
	sh := &switchableHandler{current: new(atomic.Pointer[slog.Handler])}
	sh.set(h)
	return sh
}

func (h *switchableHandler) set(handler slog.Handler) {
	h.current.Store(&handler)
}

func (h *switchableHandler) target() slog.Handler {
	handler := *h.current.Load()
	for _, group := range h.groups {
		handler = handler.WithGroup(group)
	}
	if len(h.attrs) > 0 {
		handler = handler.WithAttrs(h.attrs)
	}
	return handler
}

func (h *switchableHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.target().Enabled(ctx, level)
}

func (h *switchableHandler) Handle(ctx context.Context, record slog.Record) error {
	return h.target().Handle(ctx, record)
}

func (h *switchableHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &switchableHandler{
		current: h.current,
		attrs:   slices.Concat(h.attrs, attrs),
		groups:  slices.Clone(h.groups),
	}
}

func (h *switchableHandler) WithGroup(name string) slog.Handler {
	return &switchableHandler{
		current: h.current,
		attrs:   slices.Clone(h.attrs),
		groups:  append(slices.Clone(h.groups), name),
	}
}

var (
	// Diagnostics go to stderr so they never interleave with report lines on stdout.
	rootHandler   = newSwitchableHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	defaultLogger = slog.New(rootHandler)
)

func init() {
	slog.SetDefault(defaultLogger)
}

// Init installs the configured handler. format is "json" or "text"; level
// is one of debug, info, warn, error and defaults to info. A nil output
// means stderr.
func Init(format, level string, output io.Writer) {
	if output == nil {
		output = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "json") {
		rootHandler.set(slog.NewJSONHandler(output, opts))
	} else {
		rootHandler.set(slog.NewTextHandler(output, opts))
	}
}

// L returns a logger tagged with the given component name.
func L(component string) *slog.Logger {
	return defaultLogger.With(slog.String(KeyComponent, component))
}

// WithBatch returns a child logger carrying the batch correlation id.
func WithBatch(logger *slog.Logger, batchID string) *slog.Logger {
	return logger.With(slog.String(KeyBatchID, batchID))
}

// NewContext returns a new context carrying the given logger.
func NewContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext extracts the logger from context, falling back to the default.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(contextKey{}).(*slog.Logger); ok {
		return l
	}
	return defaultLogger
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
