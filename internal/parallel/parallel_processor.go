// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package parallel

import (
	"context"
	"runtime"
	"time"

	"go.uber.org/zap"

	"pii-anonymizer/internal/observability"
)

// MaxWorkers caps the default pool size
const MaxWorkers = 8

// DefaultWorkers returns the CPU count, capped at MaxWorkers
func DefaultWorkers() int {
	return min(runtime.NumCPU(), MaxWorkers)
}

// ProcessingStats tracks parallel processing statistics
type ProcessingStats struct {
	TotalJobs     int           `json:"total_jobs"`
	FailedJobs    int           `json:"failed_jobs"`
	TotalDuration time.Duration `json:"total_duration_ms"`
	WorkerCount   int           `json:"worker_count"`
	AvgJobTime    time.Duration `json:"avg_job_time_ms"`
}

// ProgressCallback is called each time a job completes
type ProgressCallback func(completed, total int)

// ProcessAll runs fn over inputs on a pool of workers and returns the results
// in input order. Individual failures are reported in Result.Error; the call
// itself only fails when ctx is done before every job was queued.
func ProcessAll[T, R any](ctx context.Context, workers int, inputs []T, fn ProcessFunc[T, R], observer *observability.StandardObserver, progress ProgressCallback) ([]Result[R], *ProcessingStats, error) {
	start := time.Now()
	finish := observer.StartTiming("parallel_processor", "process_all")

	if err := ctx.Err(); err != nil {
		finish(false, zap.Error(err))
		return nil, nil, err
	}

	if workers <= 0 {
		workers = DefaultWorkers()
	}
	workers = max(1, min(workers, len(inputs)))

	pool := NewWorkerPool(ctx, workers, fn, observer)
	pool.Start()

	// Submit jobs in a separate goroutine to prevent deadlock on the bounded queue
	go func() {
		defer pool.CloseJobs()
		for i, input := range inputs {
			if !pool.Submit(Job[T]{ID: i, Input: input}) {
				return
			}
		}
	}()

	results := make([]Result[R], len(inputs))
	stats := &ProcessingStats{TotalJobs: len(inputs), WorkerCount: workers}
	var jobTime time.Duration

	completed := 0
	for completed < len(inputs) {
		var r Result[R]
		select {
		case r = <-pool.Results():
		case <-ctx.Done():
			go drain(pool)
			finish(false, zap.Error(ctx.Err()))
			return nil, nil, ctx.Err()
		}

		results[r.ID] = r
		jobTime += r.Duration
		if r.Error != nil {
			stats.FailedJobs++
		}

		completed++
		if progress != nil {
			progress(completed, len(inputs))
		}
	}
	pool.Stop()

	stats.TotalDuration = time.Since(start)
	stats.AvgJobTime = jobTime / time.Duration(max(completed, 1))

	finish(true,
		zap.Int("total_jobs", stats.TotalJobs),
		zap.Int("failed_jobs", stats.FailedJobs),
		zap.Int("worker_count", workers),
	)
	return results, stats, nil
}

// drain empties the results channel so blocked workers can exit
func drain[T, R any](pool *WorkerPool[T, R]) {
	pool.cancel()
	go func() {
		for range pool.Results() {
		}
	}()
	pool.Stop()
}
