package main

// Notes:
// - runMain is exercised end to end with a stub ProcessorFactory that
//   writes placeholder PDFs, so no browser is needed.
// - Every run passes --log-file inside t.TempDir() to keep the default
//   pdf_processing.log out of the package directory.
// - maxprocs.Set lives in main() and is not covered; hasVerboseFlag is.

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	links2pdf "github.com/alnah/go-links2pdf"
)

// syncBuffer is a bytes.Buffer safe for concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// stubFactory records the renderer config and returns a processor that
// writes a placeholder PDF, failing for URLs containing "fail".
type stubFactory struct {
	mu  sync.Mutex
	cfg *links2pdf.RendererConfig
}

func (s *stubFactory) New(cfg links2pdf.RendererConfig) (links2pdf.Processor, error) {
	s.mu.Lock()
	s.cfg = &cfg
	s.mu.Unlock()
	return links2pdf.ProcessorFunc(func(ctx context.Context, task links2pdf.Task) error {
		if strings.Contains(task.URL, "fail") {
			return links2pdf.ErrRetriesExhausted
		}
		return os.WriteFile(task.OutputPath, []byte("%PDF"), 0o644)
	}), nil
}

func (s *stubFactory) config() *links2pdf.RendererConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// newTestEnv returns an environment writing to buffers.
func newTestEnv(factory *stubFactory) (*Environment, *syncBuffer, *syncBuffer) {
	stdout, stderr := &syncBuffer{}, &syncBuffer{}
	env := &Environment{
		Now:          time.Now,
		Stdout:       stdout,
		Stderr:       stderr,
		NewProcessor: factory.New,
	}
	return env, stdout, stderr
}

// writeFile creates name inside dir with content.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return path
}

const sampleCSV = "公众号,标题,链接,日期\n" +
	"Alpha,First post,https://example.com/1,2024-01-01\n" +
	"Beta,Broken,https://example.com/fail,2024-01-02\n"

// ---------------------------------------------------------------------------
// TestRunMain - Subcommand dispatch and exit codes
// ---------------------------------------------------------------------------

func TestRunMain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		args         []string
		wantCode     int
		wantInStdout []string
		wantInStderr []string
	}{
		{
			name:         "no args shows usage",
			args:         []string{"links2pdf"},
			wantCode:     ExitUsage,
			wantInStderr: []string{"Usage: links2pdf"},
		},
		{
			name:         "version",
			args:         []string{"links2pdf", "version"},
			wantCode:     ExitSuccess,
			wantInStdout: []string{"links2pdf dev"},
		},
		{
			name:         "help",
			args:         []string{"links2pdf", "help"},
			wantCode:     ExitSuccess,
			wantInStdout: []string{"Usage: links2pdf", "Commands:"},
		},
		{
			name:         "help run lists flags",
			args:         []string{"links2pdf", "help", "run"},
			wantCode:     ExitSuccess,
			wantInStdout: []string{"--max-workers", "--no-crop", "LINKS2PDF_WORKERS", "Exit status:", "even if some links failed"},
		},
		{
			name:         "help unknown topic",
			args:         []string{"links2pdf", "help", "nope"},
			wantCode:     ExitUsage,
			wantInStderr: []string{"Unknown command: nope"},
		},
		{
			name:         "completion bash",
			args:         []string{"links2pdf", "completion", "bash"},
			wantCode:     ExitSuccess,
			wantInStdout: []string{"complete -o filenames -F _links2pdf links2pdf"},
		},
		{
			name:         "completion unsupported shell",
			args:         []string{"links2pdf", "completion", "tcsh"},
			wantCode:     ExitUsage,
			wantInStderr: []string{"unsupported shell"},
		},
		{
			name:         "unknown flag",
			args:         []string{"links2pdf", "--bogus", "links.csv"},
			wantCode:     ExitUsage,
			wantInStderr: []string{"error:", "bogus"},
		},
		{
			name:         "flags without csv",
			args:         []string{"links2pdf", "-w", "2"},
			wantCode:     ExitUsage,
			wantInStderr: []string{"Usage: links2pdf"},
		},
		{
			name:         "two csv files",
			args:         []string{"links2pdf", "a.csv", "b.csv"},
			wantCode:     ExitUsage,
			wantInStderr: []string{"expected one CSV file, got 2"},
		},
		{
			name:     "help flag",
			args:     []string{"links2pdf", "--help"},
			wantCode: ExitSuccess,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env, stdout, stderr := newTestEnv(&stubFactory{})
			code := runMain(tt.args, env)

			if code != tt.wantCode {
				t.Errorf("runMain() = %d, want %d\nstderr: %s", code, tt.wantCode, stderr.String())
			}
			for _, want := range tt.wantInStdout {
				if !strings.Contains(stdout.String(), want) {
					t.Errorf("stdout should contain %q, got %q", want, stdout.String())
				}
			}
			for _, want := range tt.wantInStderr {
				if !strings.Contains(stderr.String(), want) {
					t.Errorf("stderr should contain %q, got %q", want, stderr.String())
				}
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestRunMain_Batch - Full runs with a stub processor
// ---------------------------------------------------------------------------

func TestRunMain_Batch(t *testing.T) {
	t.Parallel()

	t.Run("per-task failures still exit 0", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		csvPath := writeFile(t, dir, "links.csv", sampleCSV)
		out := filepath.Join(dir, "out")
		logFile := filepath.Join(dir, "run.log")

		env, stdout, stderr := newTestEnv(&stubFactory{})
		code := runMain([]string{"links2pdf", "-o", out, "--log-file", logFile, "--no-crop", csvPath}, env)

		if code != ExitSuccess {
			t.Fatalf("runMain() = %d, want 0\nstderr: %s", code, stderr.String())
		}
		if _, err := os.Stat(filepath.Join(out, "Alpha", "2024-01-01_First post.pdf")); err != nil {
			t.Errorf("expected PDF for Alpha: %v", err)
		}
		if !strings.Contains(stdout.String(), "batch finished") || !strings.Contains(stdout.String(), "failed=1") {
			t.Errorf("console log missing summary:\n%s", stdout.String())
		}
		data, err := os.ReadFile(logFile)
		if err != nil {
			t.Fatalf("reading log file: %v", err)
		}
		if !strings.Contains(string(data), "run_id=") {
			t.Errorf("log file records lack run_id:\n%s", data)
		}
	})

	t.Run("missing csv exits with ExitIO", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		env, _, stderr := newTestEnv(&stubFactory{})
		code := runMain([]string{"links2pdf", "--log-file", "", filepath.Join(dir, "missing.csv")}, env)

		if code != ExitIO {
			t.Errorf("runMain() = %d, want %d", code, ExitIO)
		}
		if !strings.Contains(stderr.String(), "failed to read CSV file") {
			t.Errorf("stderr = %q", stderr.String())
		}
	})

	t.Run("missing column exits with ExitUsage", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		csvPath := writeFile(t, dir, "links.csv", "公众号,标题\nA,B\n")
		env, _, _ := newTestEnv(&stubFactory{})
		code := runMain([]string{"links2pdf", "--log-file", "", "-o", dir, csvPath}, env)

		if code != ExitUsage {
			t.Errorf("runMain() = %d, want %d", code, ExitUsage)
		}
	})

	t.Run("negative workers exits with ExitUsage", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		csvPath := writeFile(t, dir, "links.csv", sampleCSV)
		env, _, _ := newTestEnv(&stubFactory{})
		code := runMain([]string{"links2pdf", "--log-file", "", "-w", "-1", csvPath}, env)

		if code != ExitUsage {
			t.Errorf("runMain() = %d, want %d", code, ExitUsage)
		}
	})
}

// ---------------------------------------------------------------------------
// TestHasVerboseFlag
// ---------------------------------------------------------------------------

func TestHasVerboseFlag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want bool
	}{
		{"none", []string{"links.csv"}, false},
		{"short", []string{"-v", "links.csv"}, true},
		{"long", []string{"links.csv", "--verbose"}, true},
		{"after terminator", []string{"--", "-v"}, false},
		{"empty", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := hasVerboseFlag(tt.args); got != tt.want {
				t.Errorf("hasVerboseFlag(%v) = %v, want %v", tt.args, got, tt.want)
			}
		})
	}
}
