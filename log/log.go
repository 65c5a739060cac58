// Package log provides structured logging for the proof market broker.
// It wraps log/slog so each subsystem (market, prover, stream, broker)
// logs through a child logger tagged with its module name.
package log

import (
	"log/slog"
	"os"
	"sync/atomic"
)

// Logger emits structured records. The zero value is not usable; get
// one from New, NewWithHandler or Default.
type Logger struct {
	*slog.Logger
}

// New creates a Logger writing JSON to stderr at the given level.
func New(level slog.Level) *Logger {
	return NewWithHandler(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewWithHandler creates a Logger backed by the supplied slog.Handler,
// for tests or custom destinations.
func NewWithHandler(h slog.Handler) *Logger {
	return &Logger{Logger: slog.New(h)}
}

// Module returns a child logger carrying a "module" attribute. This is
// how subsystems obtain their own contextual logger.
func (l *Logger) Module(name string) *Logger {
	return &Logger{Logger: l.Logger.With("module", name)}
}

// With returns a child logger carrying additional key-value context.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// defaultLogger holds the process-wide logger behind the package-level
// functions. Swapped atomically so SetDefault is safe while other
// goroutines are logging.
var defaultLogger atomic.Pointer[Logger]

func init() {
	defaultLogger.Store(New(slog.LevelInfo))
}

// SetDefault replaces the process-wide default logger. A nil logger is
// ignored.
func SetDefault(l *Logger) {
	if l != nil {
		defaultLogger.Store(l)
	}
}

// Default returns the process-wide default logger.
func Default() *Logger {
	return defaultLogger.Load()
}

// Debug logs at LevelDebug using the default logger.
func Debug(msg string, args ...any) { Default().Debug(msg, args...) }

// Info logs at LevelInfo using the default logger.
func Info(msg string, args ...any) { Default().Info(msg, args...) }

// Warn logs at LevelWarn using the default logger.
func Warn(msg string, args ...any) { Default().Warn(msg, args...) }

// Error logs at LevelError using the default logger.
func Error(msg string, args ...any) { Default().Error(msg, args...) }
