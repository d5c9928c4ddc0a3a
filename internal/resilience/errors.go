// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
)

// ErrorType represents different types of errors for handling strategies
type ErrorType int

const (
	ErrorTypeUnknown            ErrorType = iota
	ErrorTypeTransient                    // Connection refused or reset
	ErrorTypePermanent                    // Rejected by the service, do not retry
	ErrorTypeTimeout                      // Request or context deadline
	ErrorTypeRateLimit                    // HTTP 429
	ErrorTypeServiceUnavailable           // HTTP 5xx
	ErrorTypeInvalidInput                 // HTTP 400 and 422
	ErrorTypeCanceled                     // Caller gave up
)

// String returns a stable identifier, used as a metrics label
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeUnknown:
		return "unknown"
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypePermanent:
		return "permanent"
	case ErrorTypeTimeout:
		return "timeout"
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeServiceUnavailable:
		return "service_unavailable"
	case ErrorTypeInvalidInput:
		return "invalid_input"
	case ErrorTypeCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("error_type_%d", int(et))
	}
}

// ClassifiedError wraps an error with type information
type ClassifiedError struct {
	Original   error
	Type       ErrorType
	Message    string
	Retryable  bool
	StatusCode int // HTTP status when the error came from a response
}

func (e *ClassifiedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Original != nil {
		return e.Original.Error()
	}
	return e.Type.String()
}

func (e *ClassifiedError) Unwrap() error {
	return e.Original
}

// IsRetryable returns whether this error should be retried
func (e *ClassifiedError) IsRetryable() bool {
	return e.Retryable
}

// ClassifyError categorizes a transport level error for appropriate handling
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	switch {
	case errors.Is(err, context.Canceled):
		return &ClassifiedError{Original: err, Type: ErrorTypeCanceled, Message: err.Error()}

	case isTimeoutError(err):
		return &ClassifiedError{
			Original:  err,
			Type:      ErrorTypeTimeout,
			Message:   fmt.Sprintf("timeout: %v", err),
			Retryable: true,
		}

	case isNetworkError(err):
		return &ClassifiedError{
			Original:  err,
			Type:      ErrorTypeTransient,
			Message:   fmt.Sprintf("network error: %v", err),
			Retryable: true,
		}
	}

	return &ClassifiedError{
		Original: err,
		Type:     ErrorTypeUnknown,
		Message:  err.Error(),
	}
}

// ClassifyHTTPStatus maps a non-2xx response status to an error. detail is
// appended to the message when non-empty.
func ClassifyHTTPStatus(status int, detail string) *ClassifiedError {
	e := &ClassifiedError{StatusCode: status}

	switch {
	case status == http.StatusTooManyRequests:
		e.Type, e.Retryable = ErrorTypeRateLimit, true
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		e.Type, e.Retryable = ErrorTypeTimeout, true
	case status >= 500:
		e.Type, e.Retryable = ErrorTypeServiceUnavailable, true
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		e.Type = ErrorTypeInvalidInput
	default:
		e.Type = ErrorTypePermanent
	}

	e.Message = fmt.Sprintf("HTTP %d %s", status, http.StatusText(status))
	if detail != "" {
		e.Message += ": " + detail
	}
	return e
}

// isNetworkError checks if an error is network-related
func isNetworkError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH)
}

// isTimeoutError checks if an error is timeout-related
func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// NewTransientError creates a new transient error
func NewTransientError(message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Original:  cause,
		Type:      ErrorTypeTransient,
		Message:   message,
		Retryable: true,
	}
}

// NewPermanentError creates a new permanent error
func NewPermanentError(message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Original: cause,
		Type:     ErrorTypePermanent,
		Message:  message,
	}
}

// TypeOf returns the classification of err, ErrorTypeUnknown for nil
func TypeOf(err error) ErrorType {
	if err == nil {
		return ErrorTypeUnknown
	}
	if IsCircuitBreakerError(err) {
		return ErrorTypeServiceUnavailable
	}
	return ClassifyError(err).Type
}
