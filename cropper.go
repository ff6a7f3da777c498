package links2pdf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/alnah/go-links2pdf/internal/fileutil"
	"github.com/alnah/go-links2pdf/internal/hints"
	"github.com/alnah/go-links2pdf/internal/process"
)

// Cropper trims blank margins from a finished PDF in place.
type Cropper interface {
	Crop(ctx context.Context, pdfPath string) error
}

// Compile-time interface check.
var _ Cropper = (*MarginCropper)(nil)

// DefaultCropCommand is the console script installed by pdfCropMargins.
const DefaultCropCommand = "pdf-crop-margins"

// DefaultCropArgs keep the page size, retain 20% margins left and right and
// none top and bottom, drop blank pages, restore the original page box on a
// white background, and set the whitespace detection threshold to 50.
var DefaultCropArgs = []string{
	"-p", "0.0",
	"-a4", "20", "20", "0", "0",
	"-s",
	"-c", "o",
	"-ms", "50",
}

// croppedSuffix names the tool's output next to the original file.
const croppedSuffix = "_cropped"

// maxToolOutput bounds how much tool output ends up in an error message.
const maxToolOutput = 512

// CropSettings configures the external cropping tool.
type CropSettings struct {
	Command []string      // executable followed by any fixed leading arguments
	Args    []string      // tool options, placed between "-o <out>" and the input path
	Timeout time.Duration // 0 = no limit
}

// DefaultCropSettings returns settings for a pdfCropMargins install on PATH.
func DefaultCropSettings() CropSettings {
	return CropSettings{
		Command: []string{DefaultCropCommand},
		Args:    append([]string(nil), DefaultCropArgs...),
		Timeout: 2 * time.Minute,
	}
}

// commandRunner executes an external command and returns its combined output.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// pdfInspector validates a PDF and returns its page count.
type pdfInspector func(path string) (int, error)

// MarginCropper crops PDFs with pdfCropMargins and swaps the result in
// atomically. On any failure the original file is left untouched.
type MarginCropper struct {
	settings CropSettings
	run      commandRunner
	inspect  pdfInspector
	logger   *slog.Logger
}

// NewMarginCropper creates a cropper. A nil logger discards output.
// Panics if settings.Command is empty (programmer error).
func NewMarginCropper(settings CropSettings, logger *slog.Logger) *MarginCropper {
	if len(settings.Command) == 0 || settings.Command[0] == "" {
		panic("links2pdf: NewMarginCropper requires a command")
	}
	if logger == nil {
		logger = discardLogger()
	}
	return &MarginCropper{
		settings: settings,
		run:      runCommand,
		inspect:  inspectPDF,
		logger:   logger,
	}
}

// Crop replaces pdfPath with a margin-cropped version of itself.
// Returns an error wrapping ErrCropFailed when the original was kept.
func (c *MarginCropper) Crop(ctx context.Context, pdfPath string) error {
	croppedPath := fileutil.SiblingPath(pdfPath, croppedSuffix)

	pages, err := c.crop(ctx, pdfPath, croppedPath)
	if err != nil {
		if rmErr := fileutil.RemoveIfExists(croppedPath); rmErr != nil {
			c.logger.Debug("could not remove partial crop output", "path", croppedPath, "error", rmErr)
		}
		c.logger.Warn("margin cropping failed, keeping uncropped PDF", "path", pdfPath, "error", err)
		return fmt.Errorf("%w: %s: %v", ErrCropFailed, pdfPath, err)
	}

	c.logger.Info("cropped PDF margins", "path", pdfPath, "pages", pages)
	return nil
}

// crop runs the tool into croppedPath, checks the output and moves it over pdfPath.
func (c *MarginCropper) crop(ctx context.Context, pdfPath, croppedPath string) (int, error) {
	if c.settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.settings.Timeout)
		defer cancel()
	}

	name := c.settings.Command[0]
	args := make([]string, 0, len(c.settings.Command)+len(c.settings.Args)+3)
	args = append(args, c.settings.Command[1:]...)
	args = append(args, "-o", croppedPath)
	args = append(args, c.settings.Args...)
	args = append(args, pdfPath)

	output, err := c.run(ctx, name, args...)
	if errors.Is(err, exec.ErrNotFound) {
		return 0, fmt.Errorf("%s: %w%s", name, err, hints.ForCropTool(name))
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w%s", name, err, formatToolOutput(output))
	}

	pages, err := c.inspect(croppedPath)
	if err != nil {
		return 0, fmt.Errorf("invalid cropped output: %w", err)
	}

	if err := fileutil.ReplaceFile(croppedPath, pdfPath); err != nil {
		return 0, err
	}
	return pages, nil
}

// formatToolOutput returns the tail of the tool's output for error messages.
func formatToolOutput(output []byte) string {
	s := strings.TrimSpace(string(output))
	if s == "" {
		return ""
	}
	if len(s) > maxToolOutput {
		s = "..." + s[len(s)-maxToolOutput:]
	}
	return ": " + s
}

// runCommand starts the tool in its own process group so that helpers it
// spawns (ghostscript, pdftoppm) die with it on cancellation.
func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) // #nosec G204 -- command comes from user config
	process.Isolate(cmd)
	cmd.Cancel = func() error {
		process.KillProcessGroup(cmd.Process.Pid)
		return cmd.Process.Kill()
	}
	cmd.WaitDelay = 5 * time.Second

	output, err := cmd.CombinedOutput()
	if err != nil && ctx.Err() != nil {
		return output, fmt.Errorf("%w (%v)", ctx.Err(), err)
	}
	return output, err
}

var disablePDFCPUConfig sync.Once

// inspectPDF validates the file with pdfcpu and returns its page count.
func inspectPDF(path string) (int, error) {
	// pdfcpu otherwise writes a config directory under the user's home.
	disablePDFCPUConfig.Do(api.DisableConfigDir)

	if err := api.ValidateFile(path, nil); err != nil {
		return 0, err
	}
	pages, err := api.PageCountFile(path)
	if err != nil {
		return 0, err
	}
	if pages == 0 {
		return 0, errors.New("no pages")
	}
	return pages, nil
}

// discardLogger returns a logger that drops every record.
func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
