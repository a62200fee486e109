// Package log provides structured logging for go-gaze.
// It wraps slog with defaults for the daemon and the terminal tools.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	logger *slog.Logger
	once   sync.Once
)

// ParseLevel maps "debug", "info", "warn" and "error" to slog levels.
// Anything else is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// New builds a logger writing to w. JSON is used when GAZE_LOG_FORMAT is
// "json" or GO_ENV is "production".
func New(w io.Writer, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if useJSON() {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func useJSON() bool {
	switch os.Getenv("GAZE_LOG_FORMAT") {
	case "json":
		return true
	case "text":
		return false
	}
	return os.Getenv("GO_ENV") == "production"
}

// Init initializes the global logger on stderr with the specified level.
func Init(level string) {
	InitWriter(os.Stderr, level)
}

// InitWriter initializes the global logger on w. Only the first call has
// any effect.
func InitWriter(w io.Writer, level string) {
	once.Do(func() {
		logger = New(w, level)
		slog.SetDefault(logger)
	})
}

// InitFile logs to path, for tools that own the terminal. The returned
// closer closes the file.
func InitFile(path, level string) (io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	InitWriter(f, level)
	return f, nil
}

// L returns the global logger instance.
func L() *slog.Logger {
	if logger == nil {
		Init("info")
	}
	return logger
}

// With returns a logger with the given attributes.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}
