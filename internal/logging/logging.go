// Package logging builds the process logger: JSON to stdout, optionally fanned
// out to an append-only log file.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// New returns a logger and a cleanup func closing the log file, if any.
func New(level, file string) (*slog.Logger, func() error, error) {
	lvl := ParseLevel(level)
	file = strings.TrimSpace(file)
	if file == "" {
		return NewWithWriters(lvl, os.Stdout), func() error { return nil }, nil
	}

	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file failed: %w", err)
	}
	return NewWithWriters(lvl, os.Stdout, f), f.Close, nil
}

func NewWithWriters(level slog.Level, writers ...io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if len(writers) == 1 {
		return slog.New(slog.NewJSONHandler(writers[0], opts))
	}
	handlers := make([]slog.Handler, 0, len(writers))
	for _, w := range writers {
		handlers = append(handlers, slog.NewJSONHandler(w, opts))
	}
	return slog.New(slogmulti.Fanout(handlers...))
}
