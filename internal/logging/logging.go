// Package logging builds the structured logger shared by the CLI and the
// library: text records to the console and, optionally, appended to a log
// file so that consecutive runs accumulate in one place.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/alnah/go-links2pdf/internal/fileutil"
)

// DefaultFile is the log file created in the working directory.
const DefaultFile = "pdf_processing.log"

// logFilePermissions is used when creating the log file.
const logFilePermissions = 0o644 // rw-r--r--

// ErrInvalidLevel is returned for unknown level names.
var ErrInvalidLevel = errors.New("invalid log level")

// Config selects log destinations and verbosity.
type Config struct {
	Level   string    // debug, info, warn or error; empty = info
	File    string    // appended to; empty disables file logging
	Quiet   bool      // console shows warnings and errors only
	Console io.Writer // nil = os.Stdout
	RunID   string    // empty = random UUID
}

// Logger is a slog.Logger that owns its log file.
type Logger struct {
	*slog.Logger
	RunID string
	file  *os.File
}

// Close flushes and closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// ParseLevel converts a level name to a slog.Level, case-insensitively.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: %q (use debug, info, warn or error)", ErrInvalidLevel, name)
	}
}

// Setup creates the logger described by cfg. Every record carries a
// run_id attribute so interleaved runs in the same file can be separated.
func Setup(cfg Config) (*Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	console := cfg.Console
	if console == nil {
		console = os.Stdout
	}
	consoleLevel := level
	if cfg.Quiet {
		consoleLevel = max(level, slog.LevelWarn)
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(console, &slog.HandlerOptions{Level: consoleLevel}),
	}

	var file *os.File
	if cfg.File != "" {
		file, err = openAppend(cfg.File)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, slog.NewTextHandler(file, &slog.HandlerOptions{Level: level}))
	}

	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	logger := slog.New(fanout(handlers)).With("run_id", runID)
	return &Logger{Logger: logger, RunID: runID, file: file}, nil
}

// openAppend opens path for appending, creating it and its parent directory.
func openAppend(path string) (*os.File, error) {
	if err := fileutil.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	// #nosec G302,G304 -- log file path comes from user config
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, logFilePermissions)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, nil
}

// fanout sends each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
