// Package logger builds the slog loggers used by the gpxaudit CLI.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger so callers depend on this package only.
type Logger struct {
	*slog.Logger
}

// New returns a text logger writing to stderr at level.
func New(level slog.Level) *Logger {
	return NewLogger(level, os.Stderr)
}

// NewLogger returns a text logger writing to w at level.
func NewLogger(level slog.Level, w io.Writer) *Logger {
	return &Logger{slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))}
}

// Err returns the attribute used to log errors.
func Err(err error) slog.Attr {
	return slog.Any("error", err)
}
