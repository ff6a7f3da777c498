package links2pdf

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Worker sizing constants.
const (
	// DefaultWorkers keeps one Chrome at a time, gentle on memory and on
	// the target site's rate limits.
	DefaultWorkers = 1

	// MinWorkers ensures at least one worker is available.
	MinWorkers = 1

	// MaxWorkers caps concurrent browser instances to limit memory (~200MB each).
	MaxWorkers = 8

	// cpuDivisor leaves headroom for Chrome child processes.
	cpuDivisor = 2
)

// ResolveWorkers determines the worker count.
// Priority: explicit workers > GOMAXPROCS-based calculation.
func ResolveWorkers(workers int) int {
	// Explicit value takes priority
	if workers > 0 {
		return workers
	}

	// Auto-calculate based on GOMAXPROCS (adjusted by automaxprocs for containers)
	n := runtime.GOMAXPROCS(0) / cpuDivisor
	return min(max(n, MinWorkers), MaxWorkers)
}

// Processor executes one task. A nil error counts the task as completed.
type Processor interface {
	Process(ctx context.Context, task Task) error
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(ctx context.Context, task Task) error

// Process calls f(ctx, task).
func (f ProcessorFunc) Process(ctx context.Context, task Task) error {
	return f(ctx, task)
}

// QueueOption configures a TaskQueue.
type QueueOption func(*TaskQueue)

// WithQueueLogger sets the logger for per-task outcomes.
func WithQueueLogger(logger *slog.Logger) QueueOption {
	return func(q *TaskQueue) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// WithResultHook registers fn to be called once per finished task, from
// the worker goroutine, before the task is marked done. A panic in fn is
// logged and otherwise ignored.
func WithResultHook(fn func(TaskResult)) QueueOption {
	return func(q *TaskQueue) {
		q.onResult = fn
	}
}

// TaskQueue is an unbounded FIFO of tasks consumed by a fixed set of
// workers. Counters, results and the pending list share one mutex.
//
// Lifecycle: AddTask any number of times, Start once, Wait for the queue to
// drain, Stop to release the workers. Tasks added after Start are picked
// up as long as Stop has not been called.
type TaskQueue struct {
	workers  int
	proc     Processor
	logger   *slog.Logger
	onResult func(TaskResult)

	mu        sync.Mutex
	cond      *sync.Cond // signaled on enqueue, close, and task completion
	pending   []Task
	inFlight  int
	completed int
	failed    int
	results   []TaskResult
	started   bool
	closed    bool

	group errgroup.Group
}

// NewTaskQueue creates a queue served by workers goroutines once started.
// Workers below 1 are raised to 1. Panics if proc is nil (programmer error).
func NewTaskQueue(workers int, proc Processor, opts ...QueueOption) *TaskQueue {
	if proc == nil {
		panic("links2pdf: NewTaskQueue requires a processor")
	}
	q := &TaskQueue{
		workers: max(workers, MinWorkers),
		proc:    proc,
		logger:  discardLogger(),
	}
	q.cond = sync.NewCond(&q.mu)
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Workers returns the number of worker goroutines.
func (q *TaskQueue) Workers() int {
	return q.workers
}

// AddTask appends task to the queue. It never blocks.
// Returns ErrQueueClosed after Stop.
func (q *TaskQueue) AddTask(task Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	q.pending = append(q.pending, task)
	q.cond.Broadcast()
	return nil
}

// Start launches the workers. Tasks run with ctx; callers that must let
// in-flight work finish on interrupt pass a context without cancellation.
func (q *TaskQueue) Start(ctx context.Context) error {
	q.mu.Lock()
	switch {
	case q.closed:
		q.mu.Unlock()
		return ErrQueueClosed
	case q.started:
		q.mu.Unlock()
		return ErrQueueStarted
	}
	q.started = true
	q.mu.Unlock()

	for i := range q.workers {
		id := i + 1
		q.group.Go(func() error {
			q.work(ctx, id)
			return nil
		})
	}
	return nil
}

// Wait blocks until every enqueued task has finished. It returns at once
// if the queue was never started.
func (q *TaskQueue) Wait() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.started && (len(q.pending) > 0 || q.inFlight > 0) {
		q.cond.Wait()
	}
}

// Stop closes the queue and returns once every worker has exited. Tasks
// still pending are processed first. Safe to call more than once.
func (q *TaskQueue) Stop() {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()

	_ = q.group.Wait()
}

// Stats returns a consistent snapshot of the counters.
func (q *TaskQueue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	return Stats{
		Completed: q.completed,
		Failed:    q.failed,
		Pending:   len(q.pending),
	}
}

// Results returns a copy of finished task results in completion order.
func (q *TaskQueue) Results() []TaskResult {
	q.mu.Lock()
	defer q.mu.Unlock()

	return append([]TaskResult(nil), q.results...)
}

// work is the worker loop: take, run, record, until closed and empty.
func (q *TaskQueue) work(ctx context.Context, id int) {
	for {
		task, ok := q.next()
		if !ok {
			q.logger.Debug("worker exiting", "worker", id)
			return
		}
		q.finish(q.run(ctx, id, task))
	}
}

// next blocks until a task is available. It returns false once the queue
// is closed and drained.
func (q *TaskQueue) next() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.pending) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.pending) == 0 {
		return Task{}, false
	}

	task := q.pending[0]
	q.pending[0] = Task{}
	q.pending = q.pending[1:]
	q.inFlight++
	return task, true
}

// run executes the processor, converting a panic into a failed result.
func (q *TaskQueue) run(ctx context.Context, id int, task Task) (result TaskResult) {
	start := time.Now()
	result.Task = task

	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("task panicked", "worker", id, "title", task.Title, "panic", r, "stack", string(debug.Stack()))
			result.Err = fmt.Errorf("%w: %v", ErrTaskPanic, r)
		}
		result.Duration = time.Since(start)
	}()

	q.logger.Debug("processing task", "worker", id, "channel", task.Channel, "title", task.Title)
	result.Err = q.proc.Process(ctx, task)
	return result
}

// finish records the outcome, runs the hook, then marks the task done so
// Wait never returns before the hook has seen every result.
func (q *TaskQueue) finish(result TaskResult) {
	q.mu.Lock()
	if result.Err == nil {
		q.completed++
	} else {
		q.failed++
	}
	q.results = append(q.results, result)
	q.mu.Unlock()

	if result.Err == nil {
		q.logger.Info("task completed", "title", result.Task.Title, "path", result.Task.OutputPath, "duration", result.Duration)
	} else {
		q.logger.Error("task failed", "title", result.Task.Title, "url", result.Task.URL, "error", result.Err)
	}

	if q.onResult != nil {
		q.notify(result)
	}

	q.mu.Lock()
	q.inFlight--
	q.cond.Broadcast()
	q.mu.Unlock()
}

// notify calls the result hook. A panicking hook is logged and the task is
// still marked done, so Wait cannot hang on it.
func (q *TaskQueue) notify(result TaskResult) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("result hook panicked", "title", result.Task.Title, "panic", r)
		}
	}()
	q.onResult(result)
}
