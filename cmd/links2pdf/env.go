package main

import (
	"io"
	"os"
	"time"

	links2pdf "github.com/alnah/go-links2pdf"
)

// ProcessorFactory builds the task processor for a run.
type ProcessorFactory func(cfg links2pdf.RendererConfig) (links2pdf.Processor, error)

// Environment holds injectable dependencies for testability.
// Includes I/O, time, and the processor used to render tasks.
type Environment struct {
	Now          func() time.Time
	Stdout       io.Writer
	Stderr       io.Writer
	NewProcessor ProcessorFactory
}

// DefaultEnv returns the production environment backed by headless Chrome.
func DefaultEnv() *Environment {
	return &Environment{
		Now:          time.Now,
		Stdout:       os.Stdout,
		Stderr:       os.Stderr,
		NewProcessor: newPageRenderer,
	}
}

// newPageRenderer adapts links2pdf.NewPageRenderer to ProcessorFactory.
func newPageRenderer(cfg links2pdf.RendererConfig) (links2pdf.Processor, error) {
	r, err := links2pdf.NewPageRenderer(cfg)
	if err != nil {
		return nil, err
	}
	return r, nil
}
