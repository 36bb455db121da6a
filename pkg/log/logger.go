package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	achErrors "github.com/YuminosukeSato/achepred/pkg/errors"
)

var (
	mu            sync.RWMutex
	defaultLogger Logger = NewZerologLogger(zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
			Level(zerolog.InfoLevel).With().Timestamp().Logger())
)

// GetLogger returns the process-wide logger.
func GetLogger() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// GetLoggerWithName returns the process-wide logger tagged with a component.
func GetLoggerWithName(name string) Logger {
	return GetLogger().With(ComponentKey, name)
}

// SetLogger replaces the process-wide logger.
func SetLogger(l Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = l
}

// SetupLogger configures the process-wide zerolog logger and routes library
// warnings through it.
//
// level is one of debug, info, warn, error. format is "json" or "console".
func SetupLogger(level, format string, w io.Writer) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		return achErrors.NewValidationError("log.level", "must be one of debug, info, warn, error", level)
	}
	if w == nil {
		w = os.Stderr
	}

	switch strings.ToLower(format) {
	case "", "json":
	case "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	default:
		return achErrors.NewValidationError("log.format", "must be json or console", format)
	}

	zl := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	SetLogger(NewZerologLogger(zl))

	achErrors.SetZerologWarnFunc(func(warning error) {
		ev := zl.Warn()
		if m, ok := warning.(zerolog.LogObjectMarshaler); ok {
			ev = ev.EmbedObject(m)
		}
		ev.Msg(warning.Error())
	})
	return nil
}

// ErrAttr returns the key-value pair used to attach err to a record.
func ErrAttr(err error) []any {
	return []any{ErrorKey, err}
}

// ZerologLogger implements Logger on top of rs/zerolog.
type ZerologLogger struct {
	zl zerolog.Logger
}

// NewZerologLogger wraps a zerolog.Logger.
func NewZerologLogger(zl zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{zl: zl}
}

// Debug implements Logger.Debug.
func (l *ZerologLogger) Debug(msg string, fields ...any) {
	emit(l.zl.Debug(), msg, fields)
}

// Info implements Logger.Info.
func (l *ZerologLogger) Info(msg string, fields ...any) {
	emit(l.zl.Info(), msg, fields)
}

// Warn implements Logger.Warn.
func (l *ZerologLogger) Warn(msg string, fields ...any) {
	emit(l.zl.Warn(), msg, fields)
}

// Error implements Logger.Error.
func (l *ZerologLogger) Error(msg string, fields ...any) {
	emit(l.zl.Error(), msg, fields)
}

// With implements Logger.With.
func (l *ZerologLogger) With(fields ...any) Logger {
	ctx := l.zl.With()
	for key, value := range pairs(fields) {
		if err, ok := value.(error); ok {
			ctx = ctx.Str(key, err.Error())
			continue
		}
		ctx = ctx.Interface(key, value)
	}
	return &ZerologLogger{zl: ctx.Logger()}
}

// Enabled implements Logger.Enabled.
func (l *ZerologLogger) Enabled(_ context.Context, level Level) bool {
	return l.zl.GetLevel() <= toZerologLevel(level)
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// emit writes fields to ev. A leading error value (odd field count) is
// attached under ErrorKey together with its stack trace and hints.
func emit(ev *zerolog.Event, msg string, fields []any) {
	if ev == nil {
		return
	}
	if len(fields)%2 == 1 {
		if err, ok := fields[0].(error); ok {
			addError(ev, ErrorKey, err)
			fields = fields[1:]
		}
	}
	for key, value := range pairs(fields) {
		if err, ok := value.(error); ok {
			addError(ev, key, err)
			continue
		}
		ev.Interface(key, value)
	}
	ev.Msg(msg)
}

func addError(ev *zerolog.Event, key string, err error) {
	ev.Str(key, err.Error())
	if m, ok := unwrapMarshaler(err); ok {
		ev.Object(key+".detail", m)
	}
	if st := extractStacktrace(err); st != "" {
		ev.Str(StacktraceKey, st)
	}
	if hints := errors.FlattenHints(err); hints != "" {
		ev.Str(HintKey, hints)
	}
}

// unwrapMarshaler finds the first error in the chain that knows how to log
// itself.
func unwrapMarshaler(err error) (zerolog.LogObjectMarshaler, bool) {
	for e := err; e != nil; e = errors.UnwrapOnce(e) {
		if m, ok := e.(zerolog.LogObjectMarshaler); ok {
			return m, true
		}
	}
	return nil, false
}

func extractStacktrace(err error) string {
	for e := err; e != nil; e = errors.UnwrapOnce(e) {
		if details := errors.GetSafeDetails(e).SafeDetails; len(details) > 0 {
			return details[0]
		}
	}
	return ""
}

// pairs iterates key-value pairs, stringifying non-string keys. A trailing
// key without a value is dropped.
func pairs(fields []any) func(yield func(string, any) bool) {
	return func(yield func(string, any) bool) {
		for i := 0; i+1 < len(fields); i += 2 {
			key, ok := fields[i].(string)
			if !ok {
				key = fmt.Sprintf("%v", fields[i])
			}
			if !yield(key, fields[i+1]) {
				return
			}
		}
	}
}
