package links2pdf

import (
	"fmt"
	"time"
)

// Task is one CSV row's worth of work: one article rendered to one PDF.
// Tasks are immutable once enqueued.
type Task struct {
	Channel    string // publishing account, used as the output folder name
	Title      string
	URL        string
	Date       string // used verbatim in the file name
	OutputPath string // <outputDir>/<channel>/<date>_<sanitized title>.pdf
}

// Stats is a point-in-time snapshot of queue counters.
type Stats struct {
	Completed int
	Failed    int
	Pending   int // queued, not yet picked up by a worker
}

// Done returns the number of tasks that reached a terminal state.
func (s Stats) Done() int {
	return s.Completed + s.Failed
}

// TaskResult is the outcome of a single task.
type TaskResult struct {
	Task     Task
	Err      error
	Duration time.Duration
}

// OK reports whether the task produced its PDF.
func (r TaskResult) OK() bool {
	return r.Err == nil
}

// Columns names the CSV header fields. Names are matched exactly after
// trimming surrounding whitespace.
type Columns struct {
	Channel string
	Title   string
	Link    string
	Date    string
}

// DefaultColumns returns the header names written by the article link collector.
func DefaultColumns() Columns {
	return Columns{
		Channel: "公众号",
		Title:   "标题",
		Link:    "链接",
		Date:    "日期",
	}
}

// Validate checks that every column name is set.
func (c Columns) Validate() error {
	for _, name := range []string{c.Channel, c.Title, c.Link, c.Date} {
		if name == "" {
			return fmt.Errorf("%w: column names cannot be empty", ErrInvalidSettings)
		}
	}
	return nil
}

// Viewport is the emulated browser window size in CSS pixels.
type Viewport struct {
	Width  int
	Height int
}

// Default rendering values.
const (
	DefaultRetries           = 3
	DefaultRetryPause        = 5 * time.Second
	DefaultNavigationTimeout = 60 * time.Second
	DefaultContentTimeout    = 30 * time.Second
	DefaultContentSelector   = "#js_article"
	DefaultUserAgent         = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/115.0.0.0 Safari/537.36"
)

// DefaultVerificationMarkers are page substrings shown by the human
// verification wall instead of the article.
var DefaultVerificationMarkers = []string{"环境异常", "去验证"}

// RenderSettings controls page loading and retry behavior.
type RenderSettings struct {
	Retries             int           // total attempts per URL
	RetryPause          time.Duration // pause between attempts, not after the last
	NavigationTimeout   time.Duration // waits for DOMContentLoaded only
	ContentTimeout      time.Duration // wait for ContentSelector; timeout is not fatal
	ContentSelector     string
	Viewport            Viewport
	UserAgent           string
	VerificationMarkers []string
	LazyLoad            LazyLoadSettings
}

// DefaultRenderSettings returns settings tuned for WeChat article pages.
func DefaultRenderSettings() RenderSettings {
	return RenderSettings{
		Retries:             DefaultRetries,
		RetryPause:          DefaultRetryPause,
		NavigationTimeout:   DefaultNavigationTimeout,
		ContentTimeout:      DefaultContentTimeout,
		ContentSelector:     DefaultContentSelector,
		Viewport:            Viewport{Width: 1920, Height: 1080},
		UserAgent:           DefaultUserAgent,
		VerificationMarkers: append([]string(nil), DefaultVerificationMarkers...),
		LazyLoad:            DefaultLazyLoadSettings(),
	}
}

// Validate checks that render settings are usable.
func (s RenderSettings) Validate() error {
	if s.Retries < 1 {
		return fmt.Errorf("%w: retries must be at least 1, got %d", ErrInvalidSettings, s.Retries)
	}
	if s.RetryPause < 0 {
		return fmt.Errorf("%w: retry pause cannot be negative", ErrInvalidSettings)
	}
	if s.NavigationTimeout <= 0 || s.ContentTimeout <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidSettings)
	}
	if s.Viewport.Width <= 0 || s.Viewport.Height <= 0 {
		return fmt.Errorf("%w: viewport %dx%d", ErrInvalidSettings, s.Viewport.Width, s.Viewport.Height)
	}
	return s.LazyLoad.Validate()
}

// LazyLoadSettings tunes the scroll heuristic that forces deferred images to load.
type LazyLoadSettings struct {
	PendingSelector string        // elements still waiting for their real source
	MaxWait         time.Duration // budget for the bottom/top scroll loop
	PollInterval    time.Duration // pause after each bottom or top scroll
	StepFraction    float64       // stepped scroll increment, as a fraction of viewport height
	StepPause       time.Duration
	Settle          time.Duration // pause after returning to the top
}

// DefaultLazyLoadSettings returns the scroll timings used in production.
func DefaultLazyLoadSettings() LazyLoadSettings {
	return LazyLoadSettings{
		PendingSelector: "img[data-src]",
		MaxWait:         20 * time.Second,
		PollInterval:    time.Second,
		StepFraction:    0.8,
		StepPause:       500 * time.Millisecond,
		Settle:          time.Second,
	}
}

// Validate checks that lazy-load settings are usable.
func (s LazyLoadSettings) Validate() error {
	if s.StepFraction <= 0 || s.StepFraction > 1 {
		return fmt.Errorf("%w: scroll step fraction must be in (0, 1], got %.2f", ErrInvalidSettings, s.StepFraction)
	}
	if s.MaxWait < 0 || s.PollInterval < 0 || s.StepPause < 0 || s.Settle < 0 {
		return fmt.Errorf("%w: lazy-load durations cannot be negative", ErrInvalidSettings)
	}
	return nil
}
