package graphdig

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with graphdig-specific context.
// Field names are consistent across runs, expansions and dispatch.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithHandle tags the logger with a run handle.
func (l *Logger) WithHandle(handle string) *Logger {
	return &Logger{
		Logger: l.Logger.With("handle", handle),
	}
}

// LogExpand logs a property expansion.
func (l *Logger) LogExpand(ctx context.Context, path string, properties int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "expand failed",
			"path", path,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "expand completed",
			"path", path,
			"properties", properties,
		)
	}
}

// LogDispatch logs one transport request handled by a Dispatcher.
func (l *Logger) LogDispatch(ctx context.Context, action string, err error) {
	if err != nil {
		l.WarnContext(ctx, "dispatch failed",
			"action", action,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "dispatch handled",
			"action", action,
		)
	}
}
