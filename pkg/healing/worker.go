package healing

import (
	"context"
	"log/slog"
	"sync"

	"mercator-hq/warden/pkg/telemetry/metrics"
)

// Task is a submitted remediation cycle.
type Task struct {
	issues []Issue
	done   chan struct{}
	result CycleResult
	err    error
}

func newTask(issues []Issue) *Task {
	return &Task{issues: issues, done: make(chan struct{})}
}

func (t *Task) finish(res CycleResult, err error) {
	t.result = res
	t.err = err
	close(t.done)
}

// Issues returns the issues submitted with the task.
func (t *Task) Issues() []Issue {
	return t.issues
}

// Done is closed when the task has finished or was rejected.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Result returns the cycle result. It is only meaningful after Done is
// closed.
func (t *Task) Result() (CycleResult, error) {
	select {
	case <-t.done:
		return t.result, t.err
	default:
		return CycleResult{}, context.DeadlineExceeded
	}
}

// Wait blocks until the task finishes or ctx is done.
func (t *Task) Wait(ctx context.Context) (CycleResult, error) {
	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		return CycleResult{}, ctx.Err()
	}
}

// Worker runs remediation cycles one at a time off the caller's path.
type Worker struct {
	remediator *Remediator
	queue      chan *Task
	metrics    *metrics.Collector
	logger     *slog.Logger

	mu      sync.Mutex
	started bool
	stopped bool
	quit    chan struct{}
	wg      sync.WaitGroup
}

// NewWorker creates a worker with a queue of size pending tasks.
func NewWorker(r *Remediator, size int, m *metrics.Collector) *Worker {
	if size <= 0 {
		size = 1
	}
	return &Worker{
		remediator: r,
		queue:      make(chan *Task, size),
		metrics:    m,
		logger:     slog.Default().With("component", "healing.worker"),
		quit:       make(chan struct{}),
	}
}

// Start launches the worker goroutine. Tasks run with ctx; the worker stops
// when ctx is done or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.stopped {
		return
	}
	w.started = true

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.quit:
				return
			case task := <-w.queue:
				w.metrics.SetQueueDepth(len(w.queue))
				task.finish(w.remediator.RunCycle(ctx, task.issues), nil)
			}
		}
	}()
}

// Submit enqueues a cycle without blocking. A full queue or stopped worker
// yields an already finished task carrying ErrQueueFull or
// ErrWorkerStopped.
func (w *Worker) Submit(issues []Issue) *Task {
	task := newTask(issues)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		task.finish(CycleResult{}, ErrWorkerStopped)
		return task
	}
	select {
	case w.queue <- task:
		w.metrics.SetQueueDepth(len(w.queue))
	default:
		w.logger.Warn("remediation queue full, dropping cycle", "issues", len(issues))
		task.finish(CycleResult{}, ErrQueueFull)
	}
	return task
}

// Stop halts the worker after the running task and rejects queued ones.
func (w *Worker) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	close(w.quit)
	w.mu.Unlock()

	w.wg.Wait()
	for {
		select {
		case task := <-w.queue:
			task.finish(CycleResult{}, ErrWorkerStopped)
		default:
			w.metrics.SetQueueDepth(0)
			return
		}
	}
}
