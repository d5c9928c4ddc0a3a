// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package parallel

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upper(ctx context.Context, s string) (string, error) {
	if s == "fail" {
		return "", errors.New("cannot process")
	}
	return strings.ToUpper(s), nil
}

func TestProcessAll_PreservesOrder(t *testing.T) {
	inputs := make([]string, 100)
	for i := range inputs {
		inputs[i] = strings.Repeat("a", i%7)
	}

	var progressCalls atomic.Int32
	results, stats, err := ProcessAll(context.Background(), 4, inputs, upper, nil, func(completed, total int) {
		progressCalls.Add(1)
		assert.Equal(t, 100, total)
	})
	require.NoError(t, err)
	require.Len(t, results, 100)

	for i, r := range results {
		assert.Equal(t, i, r.ID)
		assert.Equal(t, strings.ToUpper(inputs[i]), r.Output)
		assert.NoError(t, r.Error)
	}
	assert.Equal(t, int32(100), progressCalls.Load())
	assert.Equal(t, 100, stats.TotalJobs)
	assert.Equal(t, 0, stats.FailedJobs)
	assert.Equal(t, 4, stats.WorkerCount)
}

func TestProcessAll_IsolatesFailures(t *testing.T) {
	results, stats, err := ProcessAll(context.Background(), 2, []string{"ok", "fail", "fine"}, upper, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "OK", results[0].Output)
	assert.EqualError(t, results[1].Error, "cannot process")
	assert.Equal(t, "FINE", results[2].Output)
	assert.Equal(t, 1, stats.FailedJobs)
}

func TestProcessAll_Empty(t *testing.T) {
	results, stats, err := ProcessAll(context.Background(), 4, nil, upper, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 0, stats.TotalJobs)
}

func TestProcessAll_RecoversPanics(t *testing.T) {
	results, _, err := ProcessAll(context.Background(), 1, []int{1, 0, 2}, func(ctx context.Context, n int) (int, error) {
		return 10 / n, nil
	}, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 10, results[0].Output)
	require.Error(t, results[1].Error)
	assert.Contains(t, results[1].Error.Error(), "panicked")
	assert.Equal(t, 5, results[2].Output)
}

func TestProcessAll_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var once atomic.Bool
	slow := func(ctx context.Context, n int) (int, error) {
		if once.CompareAndSwap(false, true) {
			cancel()
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(time.Second):
			return n, nil
		}
	}

	_, _, err := ProcessAll(ctx, 2, make([]int, 50), slow, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDefaultWorkers(t *testing.T) {
	w := DefaultWorkers()
	assert.GreaterOrEqual(t, w, 1)
	assert.LessOrEqual(t, w, MaxWorkers)
}
