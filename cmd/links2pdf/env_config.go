package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/alnah/go-links2pdf/internal/config"
)

// envPrefix marks the variables read by loadEnvConfig.
const envPrefix = "LINKS2PDF_"

// envConfig holds configuration from environment variables.
// Provides CI/CD-friendly overrides without requiring YAML files.
// Pointer fields distinguish "unset" from an explicit zero value.
type envConfig struct {
	ConfigPath string  // LINKS2PDF_CONFIG: config file name or path
	OutputDir  string  // LINKS2PDF_OUTPUT_DIR: root for channel folders
	Workers    *int    // LINKS2PDF_WORKERS: concurrent browsers, 0 = auto
	Retries    *int    // LINKS2PDF_RETRIES: attempts per link
	LogFile    *string // LINKS2PDF_LOG_FILE: log file, "" = console only
	LogLevel   string  // LINKS2PDF_LOG_LEVEL: debug, info, warn, error
	Report     string  // LINKS2PDF_REPORT: YAML run report path
	BrowserBin string  // LINKS2PDF_BROWSER_BIN: Chrome executable
	NoCrop     bool    // LINKS2PDF_NO_CROP: disable margin cropping
}

// knownEnvVars lists valid LINKS2PDF_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	"LINKS2PDF_CONFIG":      true,
	"LINKS2PDF_OUTPUT_DIR":  true,
	"LINKS2PDF_WORKERS":     true,
	"LINKS2PDF_RETRIES":     true,
	"LINKS2PDF_LOG_FILE":    true,
	"LINKS2PDF_LOG_LEVEL":   true,
	"LINKS2PDF_REPORT":      true,
	"LINKS2PDF_BROWSER_BIN": true,
	"LINKS2PDF_NO_CROP":     true,
	"LINKS2PDF_CONTAINER":   true, // read by doctor
}

// loadEnvConfig reads configuration from environment variables.
// Malformed numbers and booleans are reported to w and ignored.
func loadEnvConfig(w io.Writer) *envConfig {
	cfg := &envConfig{
		ConfigPath: os.Getenv("LINKS2PDF_CONFIG"),
		OutputDir:  os.Getenv("LINKS2PDF_OUTPUT_DIR"),
		LogLevel:   os.Getenv("LINKS2PDF_LOG_LEVEL"),
		Report:     os.Getenv("LINKS2PDF_REPORT"),
		BrowserBin: os.Getenv("LINKS2PDF_BROWSER_BIN"),
	}

	if v, ok := os.LookupEnv("LINKS2PDF_LOG_FILE"); ok {
		cfg.LogFile = &v
	}
	cfg.Workers = envInt(w, "LINKS2PDF_WORKERS")
	cfg.Retries = envInt(w, "LINKS2PDF_RETRIES")

	if v := os.Getenv("LINKS2PDF_NO_CROP"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			fmt.Fprintf(w, "warning: ignoring LINKS2PDF_NO_CROP=%q: not a boolean\n", v)
		} else {
			cfg.NoCrop = b
		}
	}

	return cfg
}

// envInt parses an integer variable, returning nil when unset or invalid.
func envInt(w io.Writer, name string) *int {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		fmt.Fprintf(w, "warning: ignoring %s=%q: not an integer\n", name, v)
		return nil
	}
	return &n
}

// warnUnknownEnvVars logs warnings for unrecognized LINKS2PDF_* variables.
// Helps catch typos like LINKS2PDF_WORKER instead of LINKS2PDF_WORKERS.
func warnUnknownEnvVars(w io.Writer) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, envPrefix) {
			name := strings.SplitN(env, "=", 2)[0]
			if !knownEnvVars[name] {
				fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
			}
		}
	}
}

// applyEnvConfig applies environment variable values to config.
// Set variables override the config file; CLI flags are applied
// afterwards by mergeFlags, giving: flags > env > config file > defaults.
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	if env.OutputDir != "" {
		cfg.Output.Dir = env.OutputDir
	}
	if env.Workers != nil {
		cfg.Queue.Workers = *env.Workers
	}
	if env.Retries != nil {
		cfg.Render.Retries = *env.Retries
	}
	if env.LogFile != nil {
		cfg.Log.File = *env.LogFile
	}
	if env.LogLevel != "" {
		cfg.Log.Level = env.LogLevel
	}
	if env.Report != "" {
		cfg.Report.Path = env.Report
	}
	if env.BrowserBin != "" {
		cfg.Render.BrowserBin = env.BrowserBin
	}
	if env.NoCrop {
		cfg.Crop.Enabled = false
	}
}
