// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestBreaker(clock *fakeClock, transitions *[]string) *CircuitBreaker {
	return NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "test",
		FailureThreshold: 2,
		SuccessThreshold: 2,
		Timeout:          time.Minute,
		MaxRequests:      1,
		OnStateChange: func(name string, from, to CircuitBreakerState) {
			*transitions = append(*transitions, from.String()+"->"+to.String())
		},
		now: clock.now,
	})
}

func failing(ctx context.Context) error { return NewTransientError("down", nil) }
func passing(ctx context.Context) error { return nil }

func TestCircuitBreaker_Lifecycle(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	var transitions []string
	cb := newTestBreaker(clock, &transitions)
	ctx := context.Background()

	cb.Execute(ctx, failing)
	if cb.State() != StateClosed {
		t.Fatalf("expected closed after 1 failure, got %v", cb.State())
	}
	cb.Execute(ctx, failing)
	if cb.State() != StateOpen {
		t.Fatalf("expected open after 2 failures, got %v", cb.State())
	}

	calls := 0
	err := cb.Execute(ctx, func(ctx context.Context) error { calls++; return nil })
	if !IsCircuitBreakerError(err) || calls != 0 {
		t.Fatalf("expected fast failure while open, got %v after %d calls", err, calls)
	}

	clock.t = clock.t.Add(time.Minute)
	if err := cb.Execute(ctx, passing); err != nil {
		t.Fatalf("expected probe to pass, got %v", err)
	}
	if cb.State() != StateHalfOpen {
		t.Fatalf("expected half-open after 1 probe, got %v", cb.State())
	}
	cb.Execute(ctx, passing)
	if cb.State() != StateClosed {
		t.Fatalf("expected closed after 2 probes, got %v", cb.State())
	}

	want := []string{"CLOSED->OPEN", "OPEN->HALF_OPEN", "HALF_OPEN->CLOSED"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %s, want %s", i, transitions[i], want[i])
		}
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	var transitions []string
	cb := newTestBreaker(clock, &transitions)
	ctx := context.Background()

	cb.Execute(ctx, failing)
	cb.Execute(ctx, failing)
	clock.t = clock.t.Add(2 * time.Minute)

	cb.Execute(ctx, failing)
	if cb.State() != StateOpen {
		t.Fatalf("expected reopen after failed probe, got %v", cb.State())
	}
}

func TestCircuitBreaker_PermanentErrorsDoNotTrip(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	var transitions []string
	cb := newTestBreaker(clock, &transitions)

	for i := 0; i < 5; i++ {
		cb.Execute(context.Background(), func(ctx context.Context) error {
			return ClassifyHTTPStatus(http.StatusBadRequest, "")
		})
	}
	if cb.State() != StateClosed {
		t.Fatalf("expected closed, got %v", cb.State())
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	var transitions []string
	cb := newTestBreaker(clock, &transitions)

	cb.Execute(context.Background(), failing)
	cb.Execute(context.Background(), failing)
	cb.Reset()

	if cb.State() != StateClosed {
		t.Fatalf("expected closed after reset, got %v", cb.State())
	}
	if err := cb.Execute(context.Background(), passing); err != nil {
		t.Fatalf("expected pass after reset, got %v", err)
	}
}

func TestClassifyHTTPStatus(t *testing.T) {
	cases := []struct {
		status    int
		want      ErrorType
		retryable bool
	}{
		{http.StatusTooManyRequests, ErrorTypeRateLimit, true},
		{http.StatusInternalServerError, ErrorTypeServiceUnavailable, true},
		{http.StatusServiceUnavailable, ErrorTypeServiceUnavailable, true},
		{http.StatusGatewayTimeout, ErrorTypeTimeout, true},
		{http.StatusBadRequest, ErrorTypeInvalidInput, false},
		{http.StatusUnprocessableEntity, ErrorTypeInvalidInput, false},
		{http.StatusNotFound, ErrorTypePermanent, false},
		{http.StatusUnauthorized, ErrorTypePermanent, false},
	}

	for _, tc := range cases {
		got := ClassifyHTTPStatus(tc.status, "detail")
		if got.Type != tc.want || got.Retryable != tc.retryable {
			t.Errorf("status %d: got %v/%v, want %v/%v", tc.status, got.Type, got.Retryable, tc.want, tc.retryable)
		}
		if got.StatusCode != tc.status {
			t.Errorf("status %d: StatusCode = %d", tc.status, got.StatusCode)
		}
	}
}

func TestClassifyError_Wrapped(t *testing.T) {
	inner := ClassifyHTTPStatus(http.StatusTooManyRequests, "")
	wrapped := errors.Join(errors.New("presidio"), inner)

	if ClassifyError(wrapped) != inner {
		t.Error("expected the wrapped classification to be returned")
	}
	if TypeOf(errors.New("mystery")) != ErrorTypeUnknown {
		t.Error("expected unknown for plain errors")
	}
}
