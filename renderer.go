package links2pdf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-links2pdf/internal/fileutil"
)

// RendererConfig configures a PageRenderer.
type RendererConfig struct {
	Settings RenderSettings
	Browser  BrowserSettings
	Cropper  Cropper // nil disables margin cropping
	Logger   *slog.Logger
}

// RenderResult describes a successful render.
type RenderResult struct {
	Attempts int  // attempts used, 1-based
	Cropped  bool // false when cropping is disabled or failed
}

// PageRenderer turns article URLs into PDF files with a fresh headless
// Chrome per attempt. It is safe for concurrent use: attempts share no
// browser state.
type PageRenderer struct {
	settings   RenderSettings
	cropper    Cropper
	logger     *slog.Logger
	newSession sessionFactory
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

// Compile-time interface check.
var _ Processor = (*PageRenderer)(nil)

// NewPageRenderer validates cfg and returns a renderer.
func NewPageRenderer(cfg RendererConfig) (*PageRenderer, error) {
	if err := cfg.Settings.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = discardLogger()
	}

	settings := cfg.Settings
	browser := cfg.Browser
	return &PageRenderer{
		settings: settings,
		cropper:  cfg.Cropper,
		logger:   logger,
		newSession: func(ctx context.Context) (browserSession, error) {
			return newRodSession(ctx, browser, settings.Viewport, settings.UserAgent)
		},
		now:   time.Now,
		sleep: sleepContext,
	}, nil
}

// Process renders task.URL to task.OutputPath. It implements Processor.
func (r *PageRenderer) Process(ctx context.Context, task Task) error {
	_, err := r.Render(ctx, task.URL, task.OutputPath)
	return err
}

// Render loads url and writes it as PDF to outputPath, retrying transient
// failures. A verification wall fails immediately without retry.
func (r *PageRenderer) Render(ctx context.Context, url, outputPath string) (RenderResult, error) {
	var lastErr error

	for attempt := 1; attempt <= r.settings.Retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return RenderResult{Attempts: attempt - 1}, err
		}

		r.logger.Info("loading page", "url", url, "attempt", attempt, "max_attempts", r.settings.Retries)

		err := r.renderOnce(ctx, url, outputPath)
		if err == nil {
			result := RenderResult{Attempts: attempt}
			result.Cropped = r.crop(ctx, outputPath)
			r.logger.Info("saved PDF", "path", outputPath, "attempts", attempt)
			return result, nil
		}

		if errors.Is(err, ErrVerificationWall) {
			r.logger.Warn("verification required, skipping article", "url", url, "error", err)
			return RenderResult{Attempts: attempt}, err
		}

		lastErr = err
		r.logger.Warn("render attempt failed", "url", url, "attempt", attempt, "error", err)

		if attempt < r.settings.Retries {
			if err := r.sleep(ctx, r.settings.RetryPause); err != nil {
				return RenderResult{Attempts: attempt}, err
			}
		}
	}

	r.logger.Error("giving up on article", "url", url, "attempts", r.settings.Retries)
	return RenderResult{Attempts: r.settings.Retries},
		fmt.Errorf("%w: %s after %d attempts: %w", ErrRetriesExhausted, url, r.settings.Retries, lastErr)
}

// renderOnce runs a single attempt. The session is closed before returning.
func (r *PageRenderer) renderOnce(ctx context.Context, url, outputPath string) error {
	session, err := r.newSession(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			r.logger.Debug("closing browser session", "error", err)
		}
	}()

	if err := session.Navigate(url, r.settings.NavigationTimeout); err != nil {
		return err
	}

	html, err := session.HTML()
	if err != nil {
		return fmt.Errorf("%w: reading page content: %v", ErrPageLoad, err)
	}
	if marker, found := findMarker(html, r.settings.VerificationMarkers); found {
		return fmt.Errorf("%w: page contains %q", ErrVerificationWall, marker)
	}

	if r.settings.ContentSelector != "" {
		if err := session.WaitElement(r.settings.ContentSelector, r.settings.ContentTimeout); err != nil {
			r.logger.Warn("article content did not appear, continuing",
				"url", url, "selector", r.settings.ContentSelector, "error", err)
		}
	}

	if err := r.activateLazyLoad(ctx, session); err != nil {
		return fmt.Errorf("loading lazy images: %w", err)
	}

	if err := fileutil.EnsureDir(filepath.Dir(outputPath)); err != nil {
		return fmt.Errorf("%w: %v", ErrWritePDF, err)
	}
	return session.PrintPDF(outputPath)
}

// crop runs the optional cropper and reports whether it succeeded.
// Failures are logged by the cropper and never fail the render.
func (r *PageRenderer) crop(ctx context.Context, outputPath string) bool {
	if r.cropper == nil {
		return false
	}
	return r.cropper.Crop(ctx, outputPath) == nil
}

// findMarker returns the first marker contained in html.
func findMarker(html string, markers []string) (string, bool) {
	for _, m := range markers {
		if m != "" && strings.Contains(html, m) {
			return m, true
		}
	}
	return "", false
}

// sleepContext pauses for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
