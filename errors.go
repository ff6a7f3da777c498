package links2pdf

import "errors"

// Sentinel errors for library operations.
var (
	// Input errors abort the whole run before any task executes.
	ErrReadCSV       = errors.New("failed to read CSV file")
	ErrMissingColumn = errors.New("missing required CSV column")

	// Browser errors are transient and retried.
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrPDFGeneration  = errors.New("PDF generation failed")
	ErrWritePDF       = errors.New("failed to write PDF file")

	// ErrVerificationWall is a fixed per-task failure and never retried.
	ErrVerificationWall = errors.New("verification page detected")

	ErrRetriesExhausted = errors.New("maximum attempts reached")

	// Post-processing errors never fail a task.
	ErrCropFailed = errors.New("margin cropping failed")

	// Queue lifecycle errors.
	ErrQueueClosed  = errors.New("task queue is closed")
	ErrQueueStarted = errors.New("task queue already started")
	ErrTaskPanic    = errors.New("task panicked")

	ErrInvalidSettings = errors.New("invalid settings")
)
