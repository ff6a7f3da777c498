package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	links2pdf "github.com/alnah/go-links2pdf"
)

// progressReporter draws a terminal progress bar fed by batch hooks.
type progressReporter struct {
	w      io.Writer
	mu     sync.Mutex
	bar    *progressbar.ProgressBar
	failed int
}

func newProgressReporter(w io.Writer) *progressReporter {
	return &progressReporter{w: w}
}

// Start creates the bar once the task count is known. An empty run draws nothing.
func (p *progressReporter) Start(total int) {
	if total <= 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	w := p.w
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Rendering"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(w)
		}),
	)
}

// Add advances the bar by one finished task.
func (p *progressReporter) Add(result links2pdf.TaskResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar == nil {
		return
	}
	if !result.OK() {
		p.failed++
		p.bar.Describe(fmt.Sprintf("Rendering (%d failed)", p.failed))
	}
	_ = p.bar.Add(1)
}

// Finish completes the bar if it is still drawn.
func (p *progressReporter) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar != nil && !p.bar.IsFinished() {
		_ = p.bar.Finish()
	}
}
