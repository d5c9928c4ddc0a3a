// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"math/rand"
	"time"
)

// RetryConfig holds retry configuration.
type RetryConfig struct {
	MaxRetries      int                          // Retries after the first attempt
	InitialInterval time.Duration                // Delay before the first retry
	MaxInterval     time.Duration                // Cap on any single delay
	Multiplier      float64                      // Growth factor between delays
	Jitter          bool                         // Add up to 25% random jitter
	OnRetry         func(attempt int, err error) // Called before each retry
}

// DefaultRetryConfig returns defaults suited to a detector service on the local network.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2.0,
		Jitter:          true,
	}
}

// RetryableOperation represents an operation that can be retried.
type RetryableOperation func(ctx context.Context) error

// backoff returns the delay before retry number attempt (1-based)
func (c RetryConfig) backoff(attempt int) time.Duration {
	delay := float64(c.InitialInterval)
	for i := 1; i < attempt; i++ {
		delay *= c.Multiplier
	}
	if c.Jitter {
		delay += delay * 0.25 * rand.Float64()
	}
	if c.MaxInterval > 0 {
		return min(time.Duration(delay), c.MaxInterval)
	}
	return time.Duration(delay)
}

// RetryWithBackoff executes an operation with exponential backoff. Errors that
// ClassifyError marks as not retryable end the loop immediately.
func RetryWithBackoff(ctx context.Context, config RetryConfig, operation RetryableOperation) error {
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(config.backoff(attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}

			if config.OnRetry != nil {
				config.OnRetry(attempt, lastErr)
			}
		}

		err := operation(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}
	}

	return lastErr
}

// RetryableFunc is a retryable function that returns a value.
type RetryableFunc[T any] func(ctx context.Context) (T, error)

// RetryWithResult executes a function that returns a result and error with retry logic.
func RetryWithResult[T any](ctx context.Context, config RetryConfig, fn RetryableFunc[T]) (T, error) {
	var result T
	err := RetryWithBackoff(ctx, config, func(ctx context.Context) error {
		var e error
		result, e = fn(ctx)
		return e
	})
	return result, err
}

// RetryWithCircuitBreaker combines retry logic with circuit breaker protection.
// An open breaker is not retryable, so it ends the loop at once.
func RetryWithCircuitBreaker[T any](ctx context.Context, config RetryConfig, cb *CircuitBreaker, fn RetryableFunc[T]) (T, error) {
	return RetryWithResult(ctx, config, func(ctx context.Context) (T, error) {
		var result T
		err := cb.Execute(ctx, func(ctx context.Context) error {
			var e error
			result, e = fn(ctx)
			return e
		})
		return result, err
	})
}

// IsRetryable reports whether an error should be retried.
func IsRetryable(err error) bool {
	if err == nil || IsCircuitBreakerError(err) {
		return false
	}
	return ClassifyError(err).IsRetryable()
}
