package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/go-rod/rod/lib/launcher"
	flag "github.com/spf13/pflag"

	links2pdf "github.com/alnah/go-links2pdf"
	"github.com/alnah/go-links2pdf/internal/fileutil"
	"github.com/alnah/go-links2pdf/internal/hints"
)

// Doctor status values.
const (
	statusReady    = "ready"
	statusWarnings = "warnings"
	statusErrors   = "errors"
)

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string     `json:"status"`
	Chrome   chromeInfo `json:"chrome"`
	Crop     cropInfo   `json:"crop"`
	Env      envInfo    `json:"environment"`
	System   systemInfo `json:"system"`
	Warnings []string   `json:"warnings,omitempty"`
	Errors   []string   `json:"errors,omitempty"`
}

// chromeInfo holds Chrome/Chromium detection results.
type chromeInfo struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Sandbox bool   `json:"sandbox"`
}

// cropInfo holds pdfCropMargins detection results.
type cropInfo struct {
	Found bool   `json:"found"`
	Path  string `json:"path,omitempty"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
	NoSandbox     string `json:"rod_no_sandbox"`
	BrowserBin    string `json:"rod_browser_bin"`
}

// systemInfo holds system check results.
type systemInfo struct {
	OutputDir      string `json:"output_dir"`
	OutputMissing  bool   `json:"output_missing,omitempty"`
	OutputWritable bool   `json:"output_writable"`
}

// doctorOptions selects what runDoctor inspects.
type doctorOptions struct {
	outputDir   string
	cropCommand string
	lookPath    func(string) (string, error) // nil = exec.LookPath
	findChrome  func() (string, bool)        // nil = launcher.LookPath
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = OK (including warnings), 1 = errors found.
func runDoctorCmd(args []string, env *Environment) int {
	var jsonOutput bool
	opts := doctorOptions{cropCommand: links2pdf.DefaultCropCommand}

	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.BoolVar(&jsonOutput, "json", false, "machine-readable output")
	fs.StringVarP(&opts.outputDir, "output", "o", ".", "output directory to check")
	if err := fs.Parse(args); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(env.Stderr, "error:", err)
		}
		printDoctorUsage(env.Stderr)
		return ExitUsage
	}

	result := runDoctor(opts)

	if jsonOutput {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == statusErrors {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor performs all diagnostic checks.
func runDoctor(opts doctorOptions) *doctorResult {
	if opts.lookPath == nil {
		opts.lookPath = exec.LookPath
	}
	if opts.findChrome == nil {
		opts.findChrome = launcher.LookPath
	}

	result := &doctorResult{
		Status: statusReady,
		Env: envInfo{
			OS:         runtime.GOOS,
			Arch:       runtime.GOARCH,
			NoSandbox:  os.Getenv("ROD_NO_SANDBOX"),
			BrowserBin: os.Getenv("ROD_BROWSER_BIN"),
		},
	}

	checkChrome(result, opts.findChrome)
	checkCropTool(result, opts.cropCommand, opts.lookPath)
	checkEnvironment(result)
	checkOutputDir(result, opts.outputDir)

	// Determine final status
	if len(result.Errors) > 0 {
		result.Status = statusErrors
	} else if len(result.Warnings) > 0 {
		result.Status = statusWarnings
	}

	return result
}

// checkChrome detects Chrome/Chromium installation.
func checkChrome(result *doctorResult, findChrome func() (string, bool)) {
	chromePath := result.Env.BrowserBin

	if chromePath == "" {
		var found bool
		chromePath, found = findChrome()
		if !found {
			result.Errors = append(result.Errors,
				"Chrome/Chromium not found. Install Chrome or set ROD_BROWSER_BIN")
			return
		}
	}

	if _, err := os.Stat(chromePath); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Chrome not found at %s", chromePath))
		return
	}

	result.Chrome.Found = true
	result.Chrome.Path = chromePath

	// #nosec G204 -- chromePath comes from the local install or ROD_BROWSER_BIN
	out, err := exec.Command(chromePath, "--version").Output()
	if err == nil {
		result.Chrome.Version = strings.TrimSpace(string(out))
	} else {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Could not get Chrome version: %v", err))
	}

	result.Chrome.Sandbox = result.Env.NoSandbox != "1"
}

// checkCropTool looks for the margin cropping executable on PATH.
// A missing tool is a warning: renders still succeed, uncropped.
func checkCropTool(result *doctorResult, command string, lookPath func(string) (string, error)) {
	path, err := lookPath(command)
	if err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%s not found on PATH: PDFs will keep their margins (pip install pdfCropMargins, or run with --no-crop)", command))
		return
	}
	result.Crop.Found = true
	result.Crop.Path = path
}

// checkEnvironment detects container and CI environments.
func checkEnvironment(result *doctorResult) {
	result.Env.Container, result.Env.ContainerHint = isContainer()
	result.Env.CI = hints.InCI() || os.Getenv("CIRCLECI") != ""

	// The renderer disables the sandbox itself when CI=true, so only
	// warn when that fallback will not kick in.
	if (result.Env.Container || result.Env.CI) && result.Env.NoSandbox != "1" && os.Getenv("CI") != "true" {
		result.Warnings = append(result.Warnings,
			"Container/CI detected but ROD_NO_SANDBOX not set. Set ROD_NO_SANDBOX=1")
	}
}

// isContainer detects if running in a container environment.
// Returns (isContainer, hint) where hint indicates which signal was detected.
func isContainer() (bool, string) {
	// Explicit override (highest priority)
	if os.Getenv("LINKS2PDF_CONTAINER") == "1" {
		return true, "LINKS2PDF_CONTAINER=1"
	}
	// Docker
	if hints.IsInContainer() {
		return true, "/.dockerenv"
	}
	// Podman / systemd-nspawn / general container indicator
	if v := os.Getenv("container"); v != "" {
		return true, "container=" + v
	}
	// Kubernetes
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkOutputDir verifies that PDFs can be written under dir.
// A missing directory is only a warning: runs create it.
func checkOutputDir(result *doctorResult, dir string) {
	if dir == "" {
		dir = "."
	}
	result.System.OutputDir = dir

	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		result.System.OutputMissing = true
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Output directory %s does not exist yet, it will be created", dir))
		return
	case err != nil:
		result.Errors = append(result.Errors,
			fmt.Sprintf("Output directory cannot be read: %v", err))
		return
	case !info.IsDir():
		result.Errors = append(result.Errors,
			fmt.Sprintf("Output path is not a directory: %s", dir))
		return
	}

	if err := fileutil.CheckWritable(dir); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Output directory not writable: %s", dir))
		return
	}
	result.System.OutputWritable = true
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "links2pdf doctor")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Chrome/Chromium")
	if r.Chrome.Found {
		fmt.Fprintf(w, "  [OK] Found at %s\n", r.Chrome.Path)
		if r.Chrome.Version != "" {
			fmt.Fprintf(w, "  [OK] Version: %s\n", r.Chrome.Version)
		}
		if r.Chrome.Sandbox {
			fmt.Fprintln(w, "  [OK] Sandbox: enabled")
		} else {
			fmt.Fprintln(w, "  [OK] Sandbox: disabled (ROD_NO_SANDBOX=1)")
		}
	} else {
		fmt.Fprintln(w, "  [ERROR] Not found")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Margin cropping")
	if r.Crop.Found {
		fmt.Fprintf(w, "  [OK] Found at %s\n", r.Crop.Path)
	} else {
		fmt.Fprintln(w, "  [WARN] Not found")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintf(w, "  [OK] Container: detected (%s)\n", r.Env.ContainerHint)
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "System")
	switch {
	case r.System.OutputWritable:
		fmt.Fprintf(w, "  [OK] Output directory: %s writable\n", r.System.OutputDir)
	case r.System.OutputMissing:
		fmt.Fprintf(w, "  [WARN] Output directory: %s missing\n", r.System.OutputDir)
	default:
		fmt.Fprintf(w, "  [ERROR] Output directory: %s not writable\n", r.System.OutputDir)
	}
	fmt.Fprintln(w)

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}

	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case statusReady:
		fmt.Fprintln(w, "Status: Ready to convert")
	case statusWarnings:
		fmt.Fprintln(w, "Status: Ready with warnings")
	case statusErrors:
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}
