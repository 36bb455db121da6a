// Package log provides the structured logging used across the AChEpred
// workflow.
//
// The Logger interface is slog-compatible so callers never depend on the
// backend. The default backend is rs/zerolog.
//
// Example usage:
//
//	logger := log.GetLogger().With(
//	    log.RunIDKey, runID,
//	    log.StageKey, log.StageFilter,
//	)
//	logger.Info("Variance filter applied",
//	    log.FeaturesKey, 881,
//	    log.RetainedKey, 143,
//	)
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with log/slog.
type Logger interface {
	// Debug logs a debug-level message with optional key-value pairs.
	Debug(msg string, fields ...any)

	// Info logs an info-level message with optional key-value pairs.
	Info(msg string, fields ...any)

	// Warn logs a warning-level message with optional key-value pairs.
	Warn(msg string, fields ...any)

	// Error logs an error-level message. If the first field is an error it is
	// attached together with its stack trace.
	//
	// Example:
	//   logger.Error("Stage failed", err, log.StageKey, log.StageLabel)
	Error(msg string, fields ...any)

	// With returns a Logger that adds fields to every record.
	With(fields ...any) Logger

	// Enabled reports whether records at level are emitted.
	Enabled(ctx context.Context, level Level) bool
}

// Level is a logging level with slog-compatible values.
type Level int

const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider creates configured loggers.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger tagged with a component name.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum level for loggers from this provider.
	SetLevel(level Level)
}
