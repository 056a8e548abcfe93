// Package logging sets up structured logging. The monitor owns the
// terminal, so its logger writes to a file; one-shot commands log to stderr.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// ToFile returns a logger appending text records to path, plus a close
// function. Parent directories are created as needed.
func ToFile(path string, level slog.Level) (*slog.Logger, func() error, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, err
	}
	handler := slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})
	return slog.New(handler), f.Close, nil
}

// ToStderr returns a logger writing text records to stderr.
func ToStderr(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Discard returns a logger that drops everything. Used in tests and as a
// fallback when the log file cannot be opened.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
