// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package parallel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"pii-anonymizer/internal/observability"
)

// ProcessFunc handles one job input
type ProcessFunc[T, R any] func(ctx context.Context, input T) (R, error)

// Job is one unit of work. ID is the caller's index for reassembling results.
type Job[T any] struct {
	ID    int
	Input T
}

// Result carries the outcome of one job
type Result[R any] struct {
	ID       int
	Output   R
	Error    error
	Duration time.Duration
}

// WorkerPool runs a fixed number of goroutines over a job queue
type WorkerPool[T, R any] struct {
	workers  int
	jobs     chan Job[T]
	results  chan Result[R]
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	process  ProcessFunc[T, R]
	observer *observability.StandardObserver
	closed   sync.Once
}

// NewWorkerPool creates a pool bound to ctx. workers below 1 means 1.
func NewWorkerPool[T, R any](ctx context.Context, workers int, process ProcessFunc[T, R], observer *observability.StandardObserver) *WorkerPool[T, R] {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)

	return &WorkerPool[T, R]{
		workers:  workers,
		jobs:     make(chan Job[T], workers*2),
		results:  make(chan Result[R], workers*2),
		ctx:      ctx,
		cancel:   cancel,
		process:  process,
		observer: observer,
	}
}

// Workers returns the pool size
func (wp *WorkerPool[T, R]) Workers() int {
	return wp.workers
}

// Start initializes worker goroutines
func (wp *WorkerPool[T, R]) Start() {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Submit queues a job. It returns false once the pool's context is done.
func (wp *WorkerPool[T, R]) Submit(job Job[T]) bool {
	select {
	case wp.jobs <- job:
		return true
	case <-wp.ctx.Done():
		return false
	}
}

// CloseJobs signals that no more jobs will be submitted. Only the submitting
// goroutine may call it.
func (wp *WorkerPool[T, R]) CloseJobs() {
	wp.closed.Do(func() { close(wp.jobs) })
}

// Stop waits for the workers to finish, then closes Results. Call it after
// CloseJobs or after the pool's context is cancelled.
func (wp *WorkerPool[T, R]) Stop() {
	wp.wg.Wait()
	close(wp.results)
	wp.cancel()
}

// Results returns the results channel
func (wp *WorkerPool[T, R]) Results() <-chan Result[R] {
	return wp.results
}

func (wp *WorkerPool[T, R]) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobs {
		result := wp.run(job, id)

		select {
		case wp.results <- result:
		case <-wp.ctx.Done():
			return
		}
	}
}

// run executes a single job, converting a panic into an error result
func (wp *WorkerPool[T, R]) run(job Job[T], workerID int) (result Result[R]) {
	start := time.Now()
	finish := wp.observer.StartTiming("worker_pool", "process_job")

	defer func() {
		if r := recover(); r != nil {
			result.Error = fmt.Errorf("job %d panicked: %v", job.ID, r)
		}
		result.ID = job.ID
		result.Duration = time.Since(start)
		finish(result.Error == nil, zap.Int("worker_id", workerID), zap.Int("job_id", job.ID))
	}()

	if err := wp.ctx.Err(); err != nil {
		result.Error = err
		return result
	}

	result.Output, result.Error = wp.process(wp.ctx, job.Input)
	return result
}
