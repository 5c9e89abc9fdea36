package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

// ErrPoolStopped is returned when submitting to a stopped pool
var ErrPoolStopped = errors.New("worker pool stopped")

// WorkerPool manages a fixed set of worker goroutines that execute jobs
type WorkerPool struct {
	workers int
	jobs    chan Job
	wg      sync.WaitGroup
	mu      sync.RWMutex
	stopped bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(workers int, jobQueueSize int) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		workers: workers,
		jobs:    make(chan Job, jobQueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start starts the worker pool
func (wp *WorkerPool) Start() {
	slog.Info("Starting worker pool", "workers", wp.workers)

	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop stops the worker pool gracefully, draining queued jobs first
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return
	}
	wp.stopped = true
	wp.mu.Unlock()

	slog.Info("Stopping worker pool")

	// Close jobs channel to signal workers to stop
	close(wp.jobs)

	// Wait for all workers to finish
	wp.wg.Wait()

	// Cancel context
	wp.cancel()

	slog.Info("Worker pool stopped")
}

// Submit queues a job, blocking while the queue is full
func (wp *WorkerPool) Submit(job Job) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.stopped {
		return ErrPoolStopped
	}

	ctx := job.Context
	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case wp.jobs <- job:
		slog.Debug("Job submitted to worker pool",
			"monitor_id", job.MonitorID,
			"correlation_id", job.CorrelationID,
		)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	}
}

// SubmitWait queues a job and waits for it to finish
func (wp *WorkerPool) SubmitWait(job Job) error {
	done := make(chan Result, 1)
	job.Done = done

	if err := wp.Submit(job); err != nil {
		return err
	}

	result := <-done
	return result.Error
}

// worker is the worker goroutine that processes jobs
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	slog.Debug("Worker started", "worker_id", id)

	for job := range wp.jobs {
		slog.Debug("Worker processing job",
			"worker_id", id,
			"monitor_id", job.MonitorID,
			"correlation_id", job.CorrelationID,
		)

		err := wp.run(job)

		if job.Done != nil {
			job.Done <- Result{
				MonitorID:     job.MonitorID,
				CorrelationID: job.CorrelationID,
				Error:         err,
			}
		}
	}

	slog.Debug("Worker stopped", "worker_id", id)
}

// run executes a job, converting a panic into an error
func (wp *WorkerPool) run(job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic recovered in worker",
				"monitor_id", job.MonitorID,
				"error", r,
				"stack_trace", string(debug.Stack()),
			)
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()

	ctx := job.Context
	if ctx == nil {
		ctx = wp.ctx
	}
	return job.Run(ctx)
}
