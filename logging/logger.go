// Package logging builds the charmbracelet loggers used by the binaries.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

// New creates a logger writing to w at the given level name.
func New(w io.Writer, level string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}

	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           lvl,
	}), nil
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

// OpenFile opens path for appending, creating its directory. An empty path
// means a dated file under dir/logs.
func OpenFile(dir, path string) (*os.File, error) {
	if path == "" {
		fileName := fmt.Sprintf("newsroom-%s.log", time.Now().Format("2006-01-02"))
		path = filepath.Join(dir, "logs", fileName)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return file, nil
}

// NewFile opens a log file as OpenFile does and returns a logger writing to
// it. Close the file when done.
func NewFile(dir, path, level string) (*log.Logger, *os.File, error) {
	file, err := OpenFile(dir, path)
	if err != nil {
		return nil, nil, err
	}

	logger, err := New(file, level)
	if err != nil {
		file.Close()
		return nil, nil, err
	}
	return logger, file, nil
}
