// Package queue admits heavy jobs in FIFO order with bounded concurrency.
package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"CourtMonitor/internal/metrics"
)

// ErrClosed is returned by Enqueue after Shutdown.
var ErrClosed = errors.New("queue is shut down")

// Task is the unit of work. Its context belongs to the queue, not to the
// caller that enqueued it, so a disconnected client does not cancel it.
type Task func(ctx context.Context)

// Job is a handle to an enqueued task.
type Job struct {
	name     string
	task     Task
	position int
	done     chan struct{}
}

// Done is closed once the task has returned.
func (j *Job) Done() <-chan struct{} { return j.done }

// Position is the number of jobs admitted or waiting when this one was
// enqueued, including itself; 1 means it started straight away on an idle queue.
func (j *Job) Position() int { return j.position }

// Stats is a snapshot of the queue counters.
type Stats struct {
	Limit   int `json:"limit"`
	Running int `json:"running"`
	Pending int `json:"pending"`
}

// Queue runs at most limit tasks at once, starting them in enqueue order.
type Queue struct {
	mu      sync.Mutex
	limit   int
	running int
	pending []*Job
	closed  bool
	wg      sync.WaitGroup

	base   context.Context
	cancel context.CancelFunc
	logger *slog.Logger
}

// New creates a queue; concurrency below 1 is treated as 1.
func New(concurrency int, logger *slog.Logger) *Queue {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	base, cancel := context.WithCancel(context.Background())
	return &Queue{limit: concurrency, base: base, cancel: cancel, logger: logger}
}

// Enqueue appends task to the queue and starts it when a slot is free.
func (q *Queue) Enqueue(name string, task Task) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, ErrClosed
	}

	job := &Job{name: name, task: task, done: make(chan struct{})}
	q.pending = append(q.pending, job)
	job.position = q.running + len(q.pending)
	q.wg.Add(1)

	q.logger.Debug("job enqueued", "job", name, "position", job.position)
	q.dispatchLocked()
	return job, nil
}

// Stats returns the current counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{Limit: q.limit, Running: q.running, Pending: len(q.pending)}
}

// Shutdown stops accepting jobs and waits for queued and running ones.
// When ctx expires first the task context is cancelled and ctx's error returned.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		return ctx.Err()
	}
}

func (q *Queue) dispatchLocked() {
	for q.running < q.limit && len(q.pending) > 0 {
		job := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.running++
		go q.run(job)
	}
	metrics.SetQueue(q.running, len(q.pending))
}

func (q *Queue) run(job *Job) {
	defer q.wg.Done()
	defer close(job.done)
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("job panicked", "job", job.name, "panic", r)
		}
		q.mu.Lock()
		q.running--
		q.dispatchLocked()
		q.mu.Unlock()
	}()

	q.logger.Debug("job started", "job", job.name)
	job.task(q.base)
}
