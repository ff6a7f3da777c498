package links2pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/alnah/go-links2pdf/internal/fileutil"
	"github.com/alnah/go-links2pdf/internal/yamlutil"
)

// Task status values in a run report.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Report is the YAML document written after a run.
type Report struct {
	RunID     string        `yaml:"runId"`
	Started   string        `yaml:"started"`
	Duration  string        `yaml:"duration"`
	Total     int           `yaml:"total"`
	Completed int           `yaml:"completed"`
	Failed    int           `yaml:"failed"`
	Tasks     []ReportEntry `yaml:"tasks"`
}

// ReportEntry describes one task in a Report.
type ReportEntry struct {
	Channel  string `yaml:"channel"`
	Title    string `yaml:"title"`
	URL      string `yaml:"url"`
	Output   string `yaml:"output"`
	Status   string `yaml:"status"`
	Duration string `yaml:"duration"`
	Error    string `yaml:"error,omitempty"`
}

// NewReport converts a summary into its report form.
func NewReport(s *Summary) Report {
	r := Report{
		RunID:     s.RunID,
		Started:   s.Started.Format(time.RFC3339),
		Duration:  s.Duration.Round(time.Millisecond).String(),
		Total:     s.Total,
		Completed: s.Completed,
		Failed:    s.Failed,
		Tasks:     make([]ReportEntry, 0, len(s.Results)),
	}
	for _, res := range s.Results {
		e := ReportEntry{
			Channel:  res.Task.Channel,
			Title:    res.Task.Title,
			URL:      res.Task.URL,
			Output:   res.Task.OutputPath,
			Status:   StatusCompleted,
			Duration: res.Duration.Round(time.Millisecond).String(),
		}
		if !res.OK() {
			e.Status = StatusFailed
			e.Error = res.Err.Error()
		}
		r.Tasks = append(r.Tasks, e)
	}
	return r
}

// WriteReport writes the summary as YAML to path, creating parent directories.
func WriteReport(path string, s *Summary) error {
	data, err := yamlutil.Marshal(NewReport(s))
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if err := fileutil.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	// #nosec G306 -- report is meant to be shared
	if err := os.WriteFile(path, data, filePermissions); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
