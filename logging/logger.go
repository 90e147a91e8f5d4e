package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds the service logger: JSON on stdout with source locations.
func NewLogger(logLevel string) *slog.Logger {
	return NewLoggerTo(os.Stdout, logLevel)
}

// NewLoggerTo is NewLogger with an explicit writer.
func NewLoggerTo(w io.Writer, logLevel string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(logLevel),
		AddSource: true,
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// ParseLevel maps a config string to a slog level. Unknown values mean INFO.
func ParseLevel(logLevel string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(logLevel)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
