// Package log wraps slog with a component attribute so every line can
// be traced back to the process that emitted it.
package log

import (
	"log/slog"
	"os"
)

// Component names for the two binaries.
const (
	ComponentApp    = "app"
	ComponentWorker = "worker"
)

// Logger carries a fixed component attribute on top of slog.
type Logger struct {
	*slog.Logger
}

// New creates a text logger writing to stdout at the given level.
func New(level slog.Level, component string) *Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return &Logger{Logger: slog.New(handler).With("component", component)}
}

// SetDefault installs the logger as the process-wide slog default, so
// packages using slog.InfoContext and friends pick it up.
func SetDefault(l *Logger) {
	slog.SetDefault(l.Logger)
}
