package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	links2pdf "github.com/alnah/go-links2pdf"
	"github.com/alnah/go-links2pdf/internal/fileutil"
	"github.com/alnah/go-links2pdf/internal/hints"
	"github.com/alnah/go-links2pdf/internal/logging"
	"github.com/alnah/go-links2pdf/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Field length limits.
const (
	MaxColumnLength    = 100  // CSV header name
	MaxSelectorLength  = 200  // CSS selector
	MaxUserAgentLength = 512  // User-Agent header
	MaxMarkerLength    = 100  // Verification marker
	MaxPathLength      = 4096 // PATH_MAX on Linux
)

// AppDir is the directory name under the user config dir.
const AppDir = "go-links2pdf"

// Config holds all configuration for a conversion run.
type Config struct {
	Input    InputConfig    `yaml:"input"`
	Output   OutputConfig   `yaml:"output"`
	Queue    QueueConfig    `yaml:"queue"`
	Render   RenderConfig   `yaml:"render"`
	LazyLoad LazyLoadConfig `yaml:"lazyLoad"`
	Crop     CropConfig     `yaml:"crop"`
	Log      LogConfig      `yaml:"log"`
	Report   ReportConfig   `yaml:"report"`
}

// InputConfig defines how the CSV is read.
type InputConfig struct {
	Columns ColumnsConfig `yaml:"columns"`
}

// ColumnsConfig names the CSV header fields.
type ColumnsConfig struct {
	Channel string `yaml:"channel"`
	Title   string `yaml:"title"`
	Link    string `yaml:"link"`
	Date    string `yaml:"date"`
}

// OutputConfig defines output destination options.
type OutputConfig struct {
	Dir string `yaml:"dir"` // Root for per-channel folders (default: current directory)
}

// QueueConfig defines worker options.
type QueueConfig struct {
	Workers          int    `yaml:"workers"`          // 0 = auto (GOMAXPROCS/2, 1-8)
	ProgressInterval string `yaml:"progressInterval"` // Go duration, e.g. "5s"
}

// RenderConfig defines page loading options.
type RenderConfig struct {
	Retries             int            `yaml:"retries"`
	RetryPause          string         `yaml:"retryPause"`
	NavigationTimeout   string         `yaml:"navigationTimeout"`
	ContentTimeout      string         `yaml:"contentTimeout"`
	ContentSelector     string         `yaml:"contentSelector"` // Empty = do not wait for content
	Viewport            ViewportConfig `yaml:"viewport"`
	UserAgent           string         `yaml:"userAgent"`
	VerificationMarkers []string       `yaml:"verificationMarkers"`
	BrowserBin          string         `yaml:"browserBin"` // Empty = ROD_BROWSER_BIN or managed Chromium
	NoSandbox           bool           `yaml:"noSandbox"`
}

// ViewportConfig is the emulated window size in CSS pixels.
type ViewportConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// LazyLoadConfig tunes the scrolling that triggers deferred images.
type LazyLoadConfig struct {
	PendingSelector string  `yaml:"pendingSelector"` // Empty = skip the wait loop
	MaxWait         string  `yaml:"maxWait"`
	PollInterval    string  `yaml:"pollInterval"`
	StepFraction    float64 `yaml:"stepFraction"` // (0, 1]
	StepPause       string  `yaml:"stepPause"`
	Settle          string  `yaml:"settle"`
}

// CropConfig defines margin cropping options.
type CropConfig struct {
	Enabled bool     `yaml:"enabled"`
	Command []string `yaml:"command"` // Executable and leading arguments
	Args    []string `yaml:"args"`
	Timeout string   `yaml:"timeout"` // "0s" = no limit
}

// LogConfig defines logging options.
type LogConfig struct {
	File  string `yaml:"file"`  // Empty = console only
	Level string `yaml:"level"` // debug, info, warn, error
}

// ReportConfig defines the optional YAML run report.
type ReportConfig struct {
	Path string `yaml:"path"` // Empty = no report
}

// DefaultConfig returns the production defaults.
func DefaultConfig() *Config {
	render := links2pdf.DefaultRenderSettings()
	lazy := render.LazyLoad
	crop := links2pdf.DefaultCropSettings()
	cols := links2pdf.DefaultColumns()

	return &Config{
		Input: InputConfig{Columns: ColumnsConfig{
			Channel: cols.Channel,
			Title:   cols.Title,
			Link:    cols.Link,
			Date:    cols.Date,
		}},
		Output: OutputConfig{Dir: "."},
		Queue: QueueConfig{
			Workers:          links2pdf.DefaultWorkers,
			ProgressInterval: links2pdf.DefaultProgressInterval.String(),
		},
		Render: RenderConfig{
			Retries:             render.Retries,
			RetryPause:          render.RetryPause.String(),
			NavigationTimeout:   render.NavigationTimeout.String(),
			ContentTimeout:      render.ContentTimeout.String(),
			ContentSelector:     render.ContentSelector,
			Viewport:            ViewportConfig{Width: render.Viewport.Width, Height: render.Viewport.Height},
			UserAgent:           render.UserAgent,
			VerificationMarkers: render.VerificationMarkers,
		},
		LazyLoad: LazyLoadConfig{
			PendingSelector: lazy.PendingSelector,
			MaxWait:         lazy.MaxWait.String(),
			PollInterval:    lazy.PollInterval.String(),
			StepFraction:    lazy.StepFraction,
			StepPause:       lazy.StepPause.String(),
			Settle:          lazy.Settle.String(),
		},
		Crop: CropConfig{
			Enabled: true,
			Command: crop.Command,
			Args:    crop.Args,
			Timeout: crop.Timeout.String(),
		},
		Log: LogConfig{
			File:  logging.DefaultFile,
			Level: "info",
		},
	}
}

// Validate checks every section. Called automatically by LoadConfig, but
// available for callers who build or override a Config themselves.
func (c *Config) Validate() error {
	if err := c.validateLengths(); err != nil {
		return err
	}

	if err := c.Columns().Validate(); err != nil {
		return fmt.Errorf("%w: input.columns: %v", ErrInvalidValue, err)
	}
	if c.Queue.Workers < 0 {
		return fmt.Errorf("%w: queue.workers: must be 0 (auto) or positive, got %d", ErrInvalidValue, c.Queue.Workers)
	}
	interval, err := parseDuration("queue.progressInterval", c.Queue.ProgressInterval)
	if err != nil {
		return err
	}
	if interval <= 0 {
		return fmt.Errorf("%w: queue.progressInterval: must be positive", ErrInvalidValue)
	}

	render, err := c.RenderSettings()
	if err != nil {
		return err
	}
	if err := render.Validate(); err != nil {
		return fmt.Errorf("%w: render: %v", ErrInvalidValue, err)
	}

	if _, err := c.CropSettings(); err != nil {
		return err
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrInvalidValue, err)
	}
	return nil
}

// validateLengths bounds free-form strings.
func (c *Config) validateLengths() error {
	fields := []struct {
		name  string
		value string
		max   int
	}{
		{"input.columns.channel", c.Input.Columns.Channel, MaxColumnLength},
		{"input.columns.title", c.Input.Columns.Title, MaxColumnLength},
		{"input.columns.link", c.Input.Columns.Link, MaxColumnLength},
		{"input.columns.date", c.Input.Columns.Date, MaxColumnLength},
		{"output.dir", c.Output.Dir, MaxPathLength},
		{"render.contentSelector", c.Render.ContentSelector, MaxSelectorLength},
		{"render.userAgent", c.Render.UserAgent, MaxUserAgentLength},
		{"render.browserBin", c.Render.BrowserBin, MaxPathLength},
		{"lazyLoad.pendingSelector", c.LazyLoad.PendingSelector, MaxSelectorLength},
		{"log.file", c.Log.File, MaxPathLength},
		{"report.path", c.Report.Path, MaxPathLength},
	}
	for _, f := range fields {
		if err := validateFieldLength(f.name, f.value, f.max); err != nil {
			return err
		}
	}

	for i, m := range c.Render.VerificationMarkers {
		if err := validateFieldLength(fmt.Sprintf("render.verificationMarkers[%d]", i), m, MaxMarkerLength); err != nil {
			return err
		}
	}
	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// parseDuration parses a Go duration string and rejects negative values.
func parseDuration(field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %q is not a duration (use e.g. \"5s\", \"1m\")", ErrInvalidValue, field, value)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: %s: cannot be negative", ErrInvalidValue, field)
	}
	return d, nil
}

// Columns returns the CSV header names.
func (c *Config) Columns() links2pdf.Columns {
	return links2pdf.Columns{
		Channel: c.Input.Columns.Channel,
		Title:   c.Input.Columns.Title,
		Link:    c.Input.Columns.Link,
		Date:    c.Input.Columns.Date,
	}
}

// ProgressInterval returns the parsed progress logging interval.
func (c *Config) ProgressInterval() (time.Duration, error) {
	return parseDuration("queue.progressInterval", c.Queue.ProgressInterval)
}

// RenderSettings converts the render and lazyLoad sections.
func (c *Config) RenderSettings() (links2pdf.RenderSettings, error) {
	var s links2pdf.RenderSettings
	var err error

	durations := []struct {
		field string
		value string
		dst   *time.Duration
	}{
		{"render.retryPause", c.Render.RetryPause, &s.RetryPause},
		{"render.navigationTimeout", c.Render.NavigationTimeout, &s.NavigationTimeout},
		{"render.contentTimeout", c.Render.ContentTimeout, &s.ContentTimeout},
		{"lazyLoad.maxWait", c.LazyLoad.MaxWait, &s.LazyLoad.MaxWait},
		{"lazyLoad.pollInterval", c.LazyLoad.PollInterval, &s.LazyLoad.PollInterval},
		{"lazyLoad.stepPause", c.LazyLoad.StepPause, &s.LazyLoad.StepPause},
		{"lazyLoad.settle", c.LazyLoad.Settle, &s.LazyLoad.Settle},
	}
	for _, d := range durations {
		if *d.dst, err = parseDuration(d.field, d.value); err != nil {
			return links2pdf.RenderSettings{}, err
		}
	}

	s.Retries = c.Render.Retries
	s.ContentSelector = c.Render.ContentSelector
	s.Viewport = links2pdf.Viewport{Width: c.Render.Viewport.Width, Height: c.Render.Viewport.Height}
	s.UserAgent = c.Render.UserAgent
	s.VerificationMarkers = append([]string(nil), c.Render.VerificationMarkers...)
	s.LazyLoad.PendingSelector = c.LazyLoad.PendingSelector
	s.LazyLoad.StepFraction = c.LazyLoad.StepFraction
	return s, nil
}

// BrowserSettings returns the Chrome binary options.
func (c *Config) BrowserSettings() links2pdf.BrowserSettings {
	return links2pdf.BrowserSettings{
		Bin:       c.Render.BrowserBin,
		NoSandbox: c.Render.NoSandbox,
	}
}

// CropSettings converts the crop section. The command is only required
// when cropping is enabled.
func (c *Config) CropSettings() (links2pdf.CropSettings, error) {
	timeout, err := parseDuration("crop.timeout", c.Crop.Timeout)
	if err != nil {
		return links2pdf.CropSettings{}, err
	}
	if c.Crop.Enabled && (len(c.Crop.Command) == 0 || strings.TrimSpace(c.Crop.Command[0]) == "") {
		return links2pdf.CropSettings{}, fmt.Errorf("%w: crop.command: required when crop is enabled", ErrInvalidValue)
	}
	return links2pdf.CropSettings{
		Command: append([]string(nil), c.Crop.Command...),
		Args:    append([]string(nil), c.Crop.Args...),
		Timeout: timeout,
	}, nil
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator or a YAML extension, it's treated
// as a file path. Otherwise, it's treated as a config name and searched in
// standard locations. Fields absent from the file keep their defaults.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if isConfigPath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigParse, configPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", configPath, err)
	}

	return cfg, nil
}

// isConfigPath returns true if s names a file rather than a config name.
func isConfigPath(s string) bool {
	ext := strings.ToLower(filepath.Ext(s))
	return fileutil.IsFilePath(s) || ext == ".yaml" || ext == ".yml"
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, <UserConfigDir>/go-links2pdf/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2) // 2 locations

	// Try current directory first (both extensions)
	for _, ext := range extensions {
		localPath := name + ext
		if fileutil.FileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	// Try user config directory (both extensions)
	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, AppDir, name+ext)
			if fileutil.FileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s%s", ErrConfigNotFound,
		strings.Join(triedPaths, ", "), hints.ForConfigNotFound(triedPaths))
}
