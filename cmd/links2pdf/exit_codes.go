package main

import (
	"errors"
	"os"

	links2pdf "github.com/alnah/go-links2pdf"
	"github.com/alnah/go-links2pdf/internal/config"
	"github.com/alnah/go-links2pdf/internal/logging"
)

// Exit codes for the links2pdf CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
// Per-task render failures are reported in the log and summary; they do not
// change the exit code.
const (
	ExitSuccess = 0 // Batch ran, even if some tasks failed
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, config, or CSV schema
	ExitIO      = 3 // CSV missing or unreadable, permission denied
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, logging.ErrInvalidLevel) ||
		errors.Is(err, links2pdf.ErrMissingColumn) ||
		errors.Is(err, links2pdf.ErrInvalidSettings) ||
		errors.Is(err, ErrUnsupportedShell) {
		return ExitUsage
	}

	// I/O errors (exit 3)
	if errors.Is(err, links2pdf.ErrReadCSV) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) {
		return ExitIO
	}

	return ExitGeneral
}
