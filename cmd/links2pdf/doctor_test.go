package main

// Notes:
// - runDoctorCmd is tested black-box through its JSON and text output;
//   Chrome presence depends on the machine, so only structure is asserted.
// - runDoctor takes lookup functions, so Chrome and crop tool detection are
//   also tested deterministically.
// - Tests that pin ROD_* or CI variables cannot use t.Parallel().

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func noChrome() (string, bool) { return "", false }

func cropFound(name string) (string, error) { return "/usr/local/bin/" + name, nil }

func cropMissing(name string) (string, error) {
	return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
}

// pinDoctorEnv clears variables that change doctor warnings.
func pinDoctorEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ROD_BROWSER_BIN", "")
	t.Setenv("ROD_NO_SANDBOX", "1")
}

func containsAny(list []string, sub string) bool {
	for _, s := range list {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// TestRunDoctorCmd_JSONOutput - JSON output format and structure
// ---------------------------------------------------------------------------

func TestRunDoctorCmd_JSONOutput(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	env := &Environment{Stdout: &stdout, Stderr: &stderr}

	exitCode := runDoctorCmd([]string{"--json", "--output", t.TempDir()}, env)

	var result doctorResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		t.Fatalf("Invalid JSON output: %v\nOutput was: %s", err, stdout.String())
	}

	validStatuses := map[string]bool{statusReady: true, statusWarnings: true, statusErrors: true}
	if !validStatuses[result.Status] {
		t.Errorf("Invalid status %q", result.Status)
	}
	if result.Status == statusErrors && exitCode != ExitGeneral {
		t.Errorf("Expected exit code %d for errors status, got %d", ExitGeneral, exitCode)
	}
	if result.Status != statusErrors && exitCode != ExitSuccess {
		t.Errorf("Expected exit code %d for non-error status, got %d", ExitSuccess, exitCode)
	}
	if result.Env.OS != runtime.GOOS || result.Env.Arch != runtime.GOARCH {
		t.Errorf("platform = %s/%s", result.Env.OS, result.Env.Arch)
	}
	if !result.System.OutputWritable {
		t.Error("temp dir should be reported writable")
	}
}

// ---------------------------------------------------------------------------
// TestRunDoctorCmd_HumanOutput - Human-readable output sections
// ---------------------------------------------------------------------------

func TestRunDoctorCmd_HumanOutput(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	env := &Environment{Stdout: &stdout, Stderr: &stderr}

	runDoctorCmd([]string{"-o", t.TempDir()}, env)

	for _, section := range []string{"links2pdf doctor", "Chrome/Chromium", "Margin cropping", "Environment", "System", "Status:"} {
		if !strings.Contains(stdout.String(), section) {
			t.Errorf("output missing %q:\n%s", section, stdout.String())
		}
	}
}

func TestRunDoctorCmd_BadFlag(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	env := &Environment{Stdout: &stdout, Stderr: &stderr}

	if code := runDoctorCmd([]string{"--yaml"}, env); code != ExitUsage {
		t.Errorf("exit code = %d, want %d", code, ExitUsage)
	}
	if !strings.Contains(stderr.String(), "Usage: links2pdf doctor") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

// ---------------------------------------------------------------------------
// TestRunDoctor - Deterministic checks with injected lookups
// ---------------------------------------------------------------------------

func TestRunDoctor_ChromeMissing(t *testing.T) {
	pinDoctorEnv(t)

	r := runDoctor(doctorOptions{
		outputDir:   t.TempDir(),
		cropCommand: "pdf-crop-margins",
		lookPath:    cropFound,
		findChrome:  noChrome,
	})

	if r.Chrome.Found {
		t.Error("Chrome should not be found")
	}
	if r.Status != statusErrors {
		t.Errorf("Status = %q, want errors", r.Status)
	}
	if !containsAny(r.Errors, "ROD_BROWSER_BIN") {
		t.Errorf("errors should mention ROD_BROWSER_BIN: %v", r.Errors)
	}
}

func TestRunDoctor_ChromeFound(t *testing.T) {
	pinDoctorEnv(t)

	// A plain file stands in for Chrome: found, but --version cannot run.
	fake := filepath.Join(t.TempDir(), "chrome")
	if err := os.WriteFile(fake, []byte("not a binary"), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}

	r := runDoctor(doctorOptions{
		outputDir:   t.TempDir(),
		cropCommand: "pdf-crop-margins",
		lookPath:    cropFound,
		findChrome:  func() (string, bool) { return fake, true },
	})

	if !r.Chrome.Found || r.Chrome.Path != fake {
		t.Errorf("Chrome = %+v", r.Chrome)
	}
	if r.Chrome.Sandbox {
		t.Error("sandbox should be reported disabled with ROD_NO_SANDBOX=1")
	}
	if !containsAny(r.Warnings, "Could not get Chrome version") {
		t.Errorf("expected version warning, got %v", r.Warnings)
	}
	if r.Status != statusWarnings {
		t.Errorf("Status = %q, want warnings", r.Status)
	}
}

func TestRunDoctor_BrowserBinOverride(t *testing.T) {
	pinDoctorEnv(t)
	t.Setenv("ROD_BROWSER_BIN", filepath.Join(t.TempDir(), "missing-chrome"))

	r := runDoctor(doctorOptions{
		outputDir:   t.TempDir(),
		cropCommand: "pdf-crop-margins",
		lookPath:    cropFound,
		findChrome: func() (string, bool) {
			t.Error("launcher lookup should be skipped when ROD_BROWSER_BIN is set")
			return "", false
		},
	})

	if !containsAny(r.Errors, "Chrome not found at") {
		t.Errorf("errors = %v", r.Errors)
	}
}

func TestRunDoctor_CropTool(t *testing.T) {
	pinDoctorEnv(t)

	t.Run("found", func(t *testing.T) {
		r := runDoctor(doctorOptions{outputDir: t.TempDir(), cropCommand: "pdf-crop-margins", lookPath: cropFound, findChrome: noChrome})
		if !r.Crop.Found || r.Crop.Path != "/usr/local/bin/pdf-crop-margins" {
			t.Errorf("Crop = %+v", r.Crop)
		}
	})

	t.Run("missing is a warning", func(t *testing.T) {
		r := runDoctor(doctorOptions{outputDir: t.TempDir(), cropCommand: "pdf-crop-margins", lookPath: cropMissing, findChrome: noChrome})
		if r.Crop.Found {
			t.Error("crop tool should not be found")
		}
		if !containsAny(r.Warnings, "--no-crop") {
			t.Errorf("warnings should mention --no-crop: %v", r.Warnings)
		}
		if containsAny(r.Errors, "pdf-crop-margins") {
			t.Errorf("missing crop tool must not be an error: %v", r.Errors)
		}
	})
}

func TestRunDoctor_OutputDir(t *testing.T) {
	pinDoctorEnv(t)

	file := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}
	missing := filepath.Join(t.TempDir(), "not", "yet")

	tests := []struct {
		name         string
		dir          string
		wantWritable bool
		wantMissing  bool
		wantError    string
	}{
		{"writable", t.TempDir(), true, false, ""},
		{"missing", missing, false, true, ""},
		{"not a directory", file, false, false, "not a directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := runDoctor(doctorOptions{outputDir: tt.dir, cropCommand: "pdf-crop-margins", lookPath: cropFound, findChrome: noChrome})

			if r.System.OutputWritable != tt.wantWritable || r.System.OutputMissing != tt.wantMissing {
				t.Errorf("System = %+v", r.System)
			}
			if tt.wantError != "" && !containsAny(r.Errors, tt.wantError) {
				t.Errorf("errors = %v, want %q", r.Errors, tt.wantError)
			}
		})
	}

	if _, err := os.Stat(missing); err == nil {
		t.Error("doctor must not create the output directory")
	}
}

// ---------------------------------------------------------------------------
// TestIsContainer - Container detection signals
// ---------------------------------------------------------------------------

func TestIsContainer_ExplicitOverride(t *testing.T) {
	t.Setenv("LINKS2PDF_CONTAINER", "1")

	got, hint := isContainer()
	if !got || hint != "LINKS2PDF_CONTAINER=1" {
		t.Errorf("isContainer() = %v, %q", got, hint)
	}
}

func TestIsContainer_Kubernetes(t *testing.T) {
	t.Setenv("LINKS2PDF_CONTAINER", "")
	t.Setenv("container", "")
	t.Setenv("KUBERNETES_SERVICE_HOST", "10.0.0.1")

	got, hint := isContainer()
	if !got {
		t.Fatal("expected container detection")
	}
	// /.dockerenv takes priority on Docker hosts
	if hint != "KUBERNETES_SERVICE_HOST" && hint != "/.dockerenv" {
		t.Errorf("hint = %q", hint)
	}
}
