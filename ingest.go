package links2pdf

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-links2pdf/internal/fileutil"
	"github.com/alnah/go-links2pdf/internal/hints"
)

// utf8BOM is written by spreadsheet tools and by the link collector.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// LoadTasks reads the CSV at path and creates one output folder per
// channel. The whole input is rejected if any row is unusable.
func LoadTasks(path, outputDir string, cols Columns) ([]Task, error) {
	f, err := os.Open(path) // #nosec G304 -- path is user-provided input
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadCSV, err)
	}
	defer f.Close()

	tasks, err := ReadTasks(f, outputDir, cols)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	created := make(map[string]bool)
	for _, t := range tasks {
		dir := filepath.Dir(t.OutputPath)
		if created[dir] {
			continue
		}
		if err := fileutil.EnsureDir(dir); err != nil {
			return nil, fmt.Errorf("%w%s", err, hints.ForOutputDirectory())
		}
		created[dir] = true
	}
	return tasks, nil
}

// ReadTasks parses CSV records into tasks in file order. It does not touch
// the filesystem.
func ReadTasks(r io.Reader, outputDir string, cols Columns) ([]Task, error) {
	if err := cols.Validate(); err != nil {
		return nil, err
	}

	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadCSV, err)
	}

	idx, err := columnIndex(header, cols)
	if err != nil {
		return nil, err
	}

	var tasks []Task
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrReadCSV, err)
		}

		if len(record) <= idx.max() {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("%w: line %d has %d fields, need %d",
				ErrMissingColumn, line, len(record), idx.max()+1)
		}

		tasks = append(tasks, NewTask(
			strings.TrimSpace(record[idx.channel]),
			strings.TrimSpace(record[idx.title]),
			strings.TrimSpace(record[idx.link]),
			strings.TrimSpace(record[idx.date]),
			outputDir,
		))
	}
	return tasks, nil
}

// NewTask builds a task and its output path
// <outputDir>/<channel>/<date>_<sanitized title>.pdf.
func NewTask(channel, title, url, date, outputDir string) Task {
	name := date + "_" + SanitizeFilename(title) + ".pdf"
	return Task{
		Channel:    channel,
		Title:      title,
		URL:        url,
		Date:       date,
		OutputPath: filepath.Join(outputDir, channel, name),
	}
}

// columnPositions maps required columns to record indexes.
type columnPositions struct {
	channel, title, link, date int
}

func (p columnPositions) max() int {
	return max(p.channel, p.title, p.link, p.date)
}

// columnIndex locates every required column in the header row.
func columnIndex(header []string, cols Columns) (columnPositions, error) {
	pos := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if _, dup := pos[name]; !dup {
			pos[name] = i
		}
	}

	var missing []string
	lookup := func(name string) int {
		i, ok := pos[name]
		if !ok {
			missing = append(missing, name)
		}
		return i
	}

	p := columnPositions{
		channel: lookup(cols.Channel),
		title:   lookup(cols.Title),
		link:    lookup(cols.Link),
		date:    lookup(cols.Date),
	}
	if len(missing) > 0 {
		return columnPositions{}, fmt.Errorf("%w: %s (line 1)%s", ErrMissingColumn,
			strings.Join(missing, ", "),
			hints.ForMissingColumn([]string{cols.Channel, cols.Title, cols.Link, cols.Date}))
	}
	return p, nil
}
