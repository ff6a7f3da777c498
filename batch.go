package links2pdf

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// DefaultProgressInterval is how often Run logs queue counters.
const DefaultProgressInterval = 5 * time.Second

// Summary is the outcome of a batch run.
type Summary struct {
	RunID     string
	Started   time.Time
	Duration  time.Duration
	Total     int
	Completed int
	Failed    int
	Results   []TaskResult // completion order
}

// Batch converts every row of a links CSV using a Processor, typically a
// PageRenderer.
type Batch struct {
	processor        Processor
	workers          int
	outputDir        string
	columns          Columns
	progressInterval time.Duration
	logger           *slog.Logger
	onStart          func(total int)
	onResult         func(TaskResult)
	runID            string
	now              func() time.Time
}

// Option configures a Batch.
type Option func(*Batch)

// WithWorkers sets the number of concurrent workers. Values below 1 fall
// back to DefaultWorkers; use ResolveWorkers for automatic sizing.
func WithWorkers(n int) Option {
	return func(b *Batch) {
		if n < 1 {
			n = DefaultWorkers
		}
		b.workers = n
	}
}

// WithOutputDir sets the root folder for per-channel output directories.
func WithOutputDir(dir string) Option {
	return func(b *Batch) {
		b.outputDir = dir
	}
}

// WithColumns overrides the CSV header names.
func WithColumns(cols Columns) Option {
	return func(b *Batch) {
		b.columns = cols
	}
}

// WithProgressInterval sets how often progress is logged.
// Panics if d is not positive (programmer error).
func WithProgressInterval(d time.Duration) Option {
	if d <= 0 {
		panic("links2pdf: progress interval must be positive")
	}
	return func(b *Batch) {
		b.progressInterval = d
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Batch) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithStartHook registers fn to be called with the task count once the
// CSV is loaded, before any task runs.
func WithStartHook(fn func(total int)) Option {
	return func(b *Batch) {
		b.onStart = fn
	}
}

// WithTaskResultHook registers fn to be called after each task finishes.
func WithTaskResultHook(fn func(TaskResult)) Option {
	return func(b *Batch) {
		b.onResult = fn
	}
}

// WithRunID sets the run identifier. By default a random UUID is used.
func WithRunID(id string) Option {
	return func(b *Batch) {
		b.runID = id
	}
}

// NewBatch creates a batch runner. Panics if proc is nil (programmer error).
func NewBatch(proc Processor, opts ...Option) *Batch {
	if proc == nil {
		panic("links2pdf: NewBatch requires a processor")
	}
	b := &Batch{
		processor:        proc,
		workers:          DefaultWorkers,
		outputDir:        ".",
		columns:          DefaultColumns(),
		progressInterval: DefaultProgressInterval,
		logger:           discardLogger(),
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.runID == "" {
		b.runID = uuid.NewString()
	}
	return b
}

// Run loads csvPath and processes every task. Input errors abort before
// any task runs. Canceling ctx stops progress reporting only: queued and
// in-flight tasks still run to completion. Per-task failures are counted
// in the summary, never returned.
func (b *Batch) Run(ctx context.Context, csvPath string) (*Summary, error) {
	started := b.now()

	tasks, err := LoadTasks(csvPath, b.outputDir, b.columns)
	if err != nil {
		b.logger.Error("cannot read input", "path", csvPath, "error", err)
		return nil, err
	}

	queue := NewTaskQueue(b.workers, b.processor,
		WithQueueLogger(b.logger),
		WithResultHook(b.onResult),
	)
	for _, task := range tasks {
		if err := queue.AddTask(task); err != nil {
			return nil, err
		}
	}

	b.logger.Info("starting batch", "path", csvPath, "tasks", len(tasks), "workers", queue.Workers(), "output", b.outputDir)
	if b.onStart != nil {
		b.onStart(len(tasks))
	}

	if err := queue.Start(context.WithoutCancel(ctx)); err != nil {
		return nil, err
	}

	drained := make(chan struct{})
	go func() {
		queue.Wait()
		close(drained)
	}()
	b.reportProgress(ctx, queue, drained)
	<-drained
	queue.Stop()

	stats := queue.Stats()
	summary := &Summary{
		RunID:     b.runID,
		Started:   started,
		Duration:  b.now().Sub(started),
		Total:     len(tasks),
		Completed: stats.Completed,
		Failed:    stats.Failed,
		Results:   queue.Results(),
	}

	b.logger.Info("batch finished",
		"total", summary.Total,
		"completed", summary.Completed,
		"failed", summary.Failed,
		"duration", summary.Duration.Round(time.Millisecond),
	)
	return summary, nil
}

// reportProgress logs counters until no task is waiting or ctx is done.
func (b *Batch) reportProgress(ctx context.Context, queue *TaskQueue, drained <-chan struct{}) {
	ticker := time.NewTicker(b.progressInterval)
	defer ticker.Stop()

	for {
		stats := queue.Stats()
		if stats.Pending == 0 {
			return
		}
		b.logger.Info("progress", "completed", stats.Completed, "failed", stats.Failed, "pending", stats.Pending)

		select {
		case <-drained:
			return
		case <-ctx.Done():
			b.logger.Warn("interrupted, letting queued tasks finish", "pending", stats.Pending)
			return
		case <-ticker.C:
		}
	}
}
