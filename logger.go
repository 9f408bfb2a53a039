package vecstore

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with store-specific helpers.
// Field names are consistent across operations.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler.
// If handler is nil, uses a text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that writes JSON to stderr.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that writes human-readable text to stderr.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all output.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}

// WithModel adds the model key to every entry.
func (l *Logger) WithModel(key string) *Logger {
	return &Logger{Logger: l.Logger.With("model", key)}
}

// LogOpen logs how a store was opened.
func (l *Logger) LogOpen(ctx context.Context, source string, total int, kind string) {
	l.InfoContext(ctx, "store opened",
		"source", source,
		"total", total,
		"index", kind,
	)
}

// LogAdd logs an ingestion call.
func (l *Logger) LogAdd(ctx context.Context, count, batches int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "add failed",
			"count", count,
			"batches", batches,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "add completed",
		"count", count,
		"batches", batches,
		"duration", duration,
	)
}

// LogSearch logs a search.
func (l *Logger) LogSearch(ctx context.Context, k, resultsFound int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"k", k,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "search completed",
		"k", k,
		"results", resultsFound,
	)
}

// LogDelete logs a delete call.
func (l *Logger) LogDelete(ctx context.Context, requested, deleted int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "delete failed",
			"requested", requested,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "delete completed",
		"requested", requested,
		"deleted", deleted,
	)
}

// LogPersist logs an artifact save.
func (l *Logger) LogPersist(ctx context.Context, bytes int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "persist failed", "error", err)
		return
	}
	l.DebugContext(ctx, "persist completed",
		"bytes", bytes,
		"duration", duration,
	)
}

// LogLoadFallback logs artifacts that could not be loaded and were replaced by a fresh store.
func (l *Logger) LogLoadFallback(ctx context.Context, err error) {
	l.WarnContext(ctx, "persisted store unusable, starting fresh", "error", err)
}

// LogCompact logs a compaction.
func (l *Logger) LogCompact(ctx context.Context, before, after int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "compact failed",
			"before", before,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "compact completed",
		"before", before,
		"after", after,
		"reclaimed", before-after,
	)
}
