package links2pdf

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"

	"github.com/alnah/go-links2pdf/internal/hints"
	"github.com/alnah/go-links2pdf/internal/process"
)

// browserSession abstracts one isolated browser tab to enable testing without a browser.
type browserSession interface {
	Navigate(url string, timeout time.Duration) error
	HTML() (string, error)
	WaitElement(selector string, timeout time.Duration) error
	CountElements(selector string) (int, error)
	ScrollTo(y float64) error
	Dimensions() (pageHeight, viewportHeight float64, err error)
	PrintPDF(path string) error
	Close() error
}

// sessionFactory opens a fresh session for each render attempt.
type sessionFactory func(ctx context.Context) (browserSession, error)

// Compile-time interface check.
var _ browserSession = (*rodSession)(nil)

// A4 paper size in inches.
const (
	a4WidthInches  = 8.27
	a4HeightInches = 11.69
)

// filePermissions is used for written PDFs.
const filePermissions = 0o644 // rw-r--r--: owner read+write, others read

// BrowserSettings selects and configures the Chrome binary.
type BrowserSettings struct {
	Bin       string // empty = ROD_BROWSER_BIN, then rod's managed Chromium
	NoSandbox bool   // forced on in CI and when ROD_NO_SANDBOX=1
}

// rodSession owns a whole Chrome process: launcher, browser connection,
// incognito context and a single page. Nothing is shared between sessions.
type rodSession struct {
	launcher *launcher.Launcher
	launched bool // Launch returned a control URL
	browser  *rod.Browser
	page     *rod.Page
}

// newRodSession launches Chrome and opens a page with the given viewport
// and user agent. On error every partially created resource is released.
func newRodSession(ctx context.Context, b BrowserSettings, viewport Viewport, userAgent string) (*rodSession, error) {
	l := launcher.New().Context(ctx).Headless(true)

	bin := b.Bin
	if bin == "" {
		bin = os.Getenv("ROD_BROWSER_BIN")
	}
	if bin != "" {
		l = l.Bin(bin)
	}

	// NoSandbox required for CI and containerized environments
	if b.NoSandbox || os.Getenv("CI") == "true" || os.Getenv("ROD_NO_SANDBOX") == "1" {
		l = l.NoSandbox(true)
	}

	s := &rodSession{launcher: l}

	u, err := l.Launch()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("%w: %v%s", ErrBrowserConnect, err, hints.ForBrowserConnect())
	}
	s.launched = true

	s.browser = rod.New().Context(ctx).ControlURL(u)
	if err := s.browser.Connect(); err != nil {
		s.browser = nil
		s.Close()
		return nil, fmt.Errorf("%w: %v%s", ErrBrowserConnect, err, hints.ForBrowserConnect())
	}

	incognito, err := s.browser.Incognito()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("%w: incognito context: %v", ErrPageCreate, err)
	}

	s.page, err = incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}

	if err := s.page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             viewport.Width,
		Height:            viewport.Height,
		DeviceScaleFactor: 1,
	}); err != nil {
		s.Close()
		return nil, fmt.Errorf("%w: setting viewport: %v", ErrPageCreate, err)
	}

	if err := s.page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: userAgent}); err != nil {
		s.Close()
		return nil, fmt.Errorf("%w: setting user agent: %v", ErrPageCreate, err)
	}

	return s, nil
}

// Navigate loads url and returns once the DOM is parsed. Subresources and
// the load event are not waited for.
func (s *rodSession) Navigate(url string, timeout time.Duration) error {
	p := s.page.Timeout(timeout)
	defer p.CancelTimeout()

	wait := p.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	wait()

	if err := p.GetContext().Err(); err != nil {
		return fmt.Errorf("%w: waiting for DOM content: %v", ErrPageLoad, err)
	}
	return nil
}

// HTML returns the current serialized document.
func (s *rodSession) HTML() (string, error) {
	return s.page.HTML()
}

// WaitElement blocks until selector matches or the timeout expires.
func (s *rodSession) WaitElement(selector string, timeout time.Duration) error {
	p := s.page.Timeout(timeout)
	defer p.CancelTimeout()

	_, err := p.Element(selector)
	return err
}

// CountElements returns how many elements currently match selector, without waiting.
func (s *rodSession) CountElements(selector string) (int, error) {
	els, err := s.page.Elements(selector)
	if err != nil {
		return 0, err
	}
	return len(els), nil
}

// ScrollTo scrolls the window vertically to y.
func (s *rodSession) ScrollTo(y float64) error {
	_, err := s.page.Eval(`y => window.scrollTo(0, y)`, y)
	return err
}

// Dimensions returns the document height and the viewport height.
func (s *rodSession) Dimensions() (float64, float64, error) {
	res, err := s.page.Eval(`() => ({page: document.body.scrollHeight, viewport: window.innerHeight})`)
	if err != nil {
		return 0, 0, err
	}
	return res.Value.Get("page").Num(), res.Value.Get("viewport").Num(), nil
}

// PrintPDF writes the rendered page to path as A4 with backgrounds.
func (s *rodSession) PrintPDF(path string) error {
	reader, err := s.page.PDF(&proto.PagePrintToPDF{
		PaperWidth:      floatPtr(a4WidthInches),
		PaperHeight:     floatPtr(a4HeightInches),
		PrintBackground: true,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}

	pdfBuf, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("%w: reading PDF stream: %v", ErrPDFGeneration, err)
	}

	// #nosec G306 -- PDF output files are intended to be readable
	if err := os.WriteFile(path, pdfBuf, filePermissions); err != nil {
		return fmt.Errorf("%w: %v", ErrWritePDF, err)
	}
	return nil
}

// Close shuts the browser down and reaps the Chrome process tree.
// Safe to call on a partially initialized session.
func (s *rodSession) Close() error {
	var err error
	if s.browser != nil {
		err = s.browser.Close()
		s.browser = nil
	}
	if s.launcher != nil {
		if pid := s.launcher.PID(); pid > 0 {
			process.KillProcessGroup(pid)
			s.launcher.Kill()
		}
		if s.launched {
			s.launcher.Cleanup()
		} else {
			// Cleanup waits for a process exit that a failed Launch never
			// reports, so only the profile directory is removed.
			_ = os.RemoveAll(s.launcher.Get(flags.UserDataDir))
		}
		s.launcher = nil
	}
	return err
}

// floatPtr returns a pointer to a float64 value.
func floatPtr(v float64) *float64 {
	return &v
}
