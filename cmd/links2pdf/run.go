package main

import (
	"context"
	"fmt"
	"io"

	links2pdf "github.com/alnah/go-links2pdf"
	"github.com/alnah/go-links2pdf/internal/config"
	"github.com/alnah/go-links2pdf/internal/logging"
)

// runBatch converts every link in csvPath. Per-task failures are logged and
// counted; only setup and input errors are returned.
func runBatch(ctx context.Context, csvPath string, f *runFlags, env *Environment) error {
	cfg, err := loadRunConfig(f, env.Stderr)
	if err != nil {
		return err
	}

	logger, err := logging.Setup(logging.Config{
		Level:   cfg.Log.Level,
		File:    cfg.Log.File,
		Quiet:   f.quiet,
		Console: env.Stdout,
	})
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	defer func() { _ = logger.Close() }()

	proc, err := newProcessor(cfg, logger, env.NewProcessor)
	if err != nil {
		return err
	}

	interval, err := cfg.ProgressInterval()
	if err != nil {
		return err
	}

	opts := []links2pdf.Option{
		links2pdf.WithWorkers(links2pdf.ResolveWorkers(cfg.Queue.Workers)),
		links2pdf.WithOutputDir(cfg.Output.Dir),
		links2pdf.WithColumns(cfg.Columns()),
		links2pdf.WithProgressInterval(interval),
		links2pdf.WithLogger(logger.Logger),
		links2pdf.WithRunID(logger.RunID),
	}
	if f.progress {
		bar := newProgressReporter(env.Stderr)
		defer bar.Finish()
		opts = append(opts,
			links2pdf.WithStartHook(bar.Start),
			links2pdf.WithTaskResultHook(bar.Add),
		)
	}

	summary, err := links2pdf.NewBatch(proc, opts...).Run(ctx, csvPath)
	if err != nil {
		return err
	}

	if cfg.Report.Path != "" {
		if err := links2pdf.WriteReport(cfg.Report.Path, summary); err != nil {
			logger.Error("cannot write report", "path", cfg.Report.Path, "error", err)
			return err
		}
		logger.Info("report written", "path", cfg.Report.Path)
	}
	return nil
}

// loadRunConfig resolves configuration with precedence:
// CLI flags > LINKS2PDF_* env vars > config file > defaults.
func loadRunConfig(f *runFlags, warnings io.Writer) (*config.Config, error) {
	warnUnknownEnvVars(warnings)
	envCfg := loadEnvConfig(warnings)

	name := f.config
	if name == "" {
		name = envCfg.ConfigPath
	}

	cfg := config.DefaultConfig()
	if name != "" {
		var err error
		cfg, err = config.LoadConfig(name)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}

	applyEnvConfig(envCfg, cfg)
	mergeFlags(f, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFlags applies CLI flags to cfg. Only flags the user set take effect.
func mergeFlags(f *runFlags, cfg *config.Config) {
	if f.output != "" {
		cfg.Output.Dir = f.output
	}
	if f.workersSet {
		cfg.Queue.Workers = f.workers
	}
	if f.retriesSet {
		cfg.Render.Retries = f.retries
	}
	if f.logFileSet {
		cfg.Log.File = f.logFile
	}
	if f.report != "" {
		cfg.Report.Path = f.report
	}
	if f.noCrop {
		cfg.Crop.Enabled = false
	}
	if f.verbose {
		cfg.Log.Level = "debug"
	}
}

// newProcessor builds the renderer, with a margin cropper unless cropping
// is disabled.
func newProcessor(cfg *config.Config, logger *logging.Logger, factory ProcessorFactory) (links2pdf.Processor, error) {
	settings, err := cfg.RenderSettings()
	if err != nil {
		return nil, err
	}

	rc := links2pdf.RendererConfig{
		Settings: settings,
		Browser:  cfg.BrowserSettings(),
		Logger:   logger.Logger,
	}
	if cfg.Crop.Enabled {
		crop, err := cfg.CropSettings()
		if err != nil {
			return nil, err
		}
		rc.Cropper = links2pdf.NewMarginCropper(crop, logger.Logger)
	} else {
		logger.Info("margin cropping disabled")
	}

	return factory(rc)
}
