// Package taskqueue runs deferred work (payload persistence, query
// logging) off the request path. One bounded queue and a small fixed
// worker pool serve the whole process; a full queue rejects instead of
// blocking a user response.
package taskqueue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	DefaultWorkers  = 2
	DefaultCapacity = 100
)

type task struct {
	name     string
	fn       func(ctx context.Context) error
	queuedAt time.Time
}

// Queue is a multi-producer FIFO backed by a bounded channel.
type Queue struct {
	mu     sync.RWMutex
	tasks  chan task
	closed bool

	workers     int
	taskTimeout time.Duration
	wg          sync.WaitGroup

	queued          atomic.Int64
	completed       atomic.Int64
	failed          atomic.Int64
	rejected        atomic.Int64
	processingNanos atomic.Int64
}

// New starts the worker pool immediately. workers and capacity fall
// back to the defaults when non-positive; taskTimeout bounds each task
// run (<= 0 means 30s).
func New(workers, capacity int, taskTimeout time.Duration) *Queue {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if taskTimeout <= 0 {
		taskTimeout = 30 * time.Second
	}

	q := &Queue{
		tasks:       make(chan task, capacity),
		workers:     workers,
		taskTimeout: taskTimeout,
	}

	q.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go q.worker(i)
	}

	slog.Info("Background task queue started", "workers", workers, "capacity", capacity)
	return q
}

// Enqueue adds a task without blocking. It returns false when the
// queue is full or shut down; callers treat that as "work skipped",
// never as a request failure.
func (q *Queue) Enqueue(name string, fn func(ctx context.Context) error) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.rejected.Add(1)
		slog.Warn("Task rejected, queue is shut down", "task", name)
		return false
	}

	select {
	case q.tasks <- task{name: name, fn: fn, queuedAt: time.Now()}:
		q.queued.Add(1)
		slog.Debug("Queued background task", "task", name, "queue_size", len(q.tasks))
		return true
	default:
		q.rejected.Add(1)
		slog.Warn("Task rejected, queue is full", "task", name, "capacity", cap(q.tasks))
		return false
	}
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	for t := range q.tasks {
		q.run(id, t)
	}
	slog.Debug("Background worker stopped", "worker", id)
}

func (q *Queue) run(id int, t task) {
	ctx, cancel := context.WithTimeout(context.Background(), q.taskTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			q.failed.Add(1)
			q.processingNanos.Add(int64(time.Since(start)))
			slog.Error("Background task panicked", "task", t.name, "worker", id, "panic", r)
		}
	}()

	err := t.fn(ctx)
	elapsed := time.Since(start)
	q.processingNanos.Add(int64(elapsed))

	if err != nil {
		q.failed.Add(1)
		slog.Error("Background task failed",
			"task", t.name,
			"worker", id,
			"elapsed", elapsed,
			"waited", start.Sub(t.queuedAt),
			"error", err)
		return
	}

	q.completed.Add(1)
	slog.Debug("Background task completed", "task", t.name, "worker", id, "elapsed", elapsed)
}

// Shutdown stops intake, then waits for in-flight and queued tasks
// until ctx expires.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("Background task queue drained")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("task queue shutdown abandoned %d pending tasks: %w", len(q.tasks), ctx.Err())
	}
}

// Stats is a point-in-time snapshot of queue activity.
type Stats struct {
	TasksQueued         int64   `json:"tasks_queued"`
	TasksCompleted      int64   `json:"tasks_completed"`
	TasksFailed         int64   `json:"tasks_failed"`
	TasksRejected       int64   `json:"tasks_rejected"`
	TotalProcessingTime float64 `json:"total_processing_time"`
	QueueSize           int     `json:"queue_size"`
	Workers             int     `json:"workers"`
	Running             bool    `json:"running"`
	AvgProcessingTime   float64 `json:"avg_processing_time"`
}

func (q *Queue) Stats() Stats {
	q.mu.RLock()
	running := !q.closed
	size := len(q.tasks)
	q.mu.RUnlock()

	completed := q.completed.Load()
	total := time.Duration(q.processingNanos.Load()).Seconds()

	avg := 0.0
	if completed > 0 {
		avg = total / float64(completed)
	}

	return Stats{
		TasksQueued:         q.queued.Load(),
		TasksCompleted:      completed,
		TasksFailed:         q.failed.Load(),
		TasksRejected:       q.rejected.Load(),
		TotalProcessingTime: total,
		QueueSize:           size,
		Workers:             q.workers,
		Running:             running,
		AvgProcessingTime:   avg,
	}
}
