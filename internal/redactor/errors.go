// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package redactor

import (
	"errors"
	"fmt"

	"pii-anonymizer/internal/detector"
)

// ErrorKind classifies a span validation failure
type ErrorKind int

const (
	// InvalidSpanOrder indicates spans are not sorted ascending by start
	InvalidSpanOrder ErrorKind = iota + 1

	// OverlappingSpans indicates two spans share characters
	OverlappingSpans

	// OutOfRangeSpan indicates offsets outside [0, len(text)] or end <= start
	OutOfRangeSpan
)

// Sentinel errors for errors.Is matching against a *SpanError
var (
	ErrInvalidSpanOrder = errors.New("invalid span order")
	ErrOverlappingSpans = errors.New("overlapping spans")
	ErrOutOfRangeSpan   = errors.New("out of range span")
)

// String returns the string representation of the error kind
func (k ErrorKind) String() string {
	switch k {
	case InvalidSpanOrder:
		return "invalid_span_order"
	case OverlappingSpans:
		return "overlapping_spans"
	case OutOfRangeSpan:
		return "out_of_range_span"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case InvalidSpanOrder:
		return ErrInvalidSpanOrder
	case OverlappingSpans:
		return ErrOverlappingSpans
	case OutOfRangeSpan:
		return ErrOutOfRangeSpan
	default:
		return nil
	}
}

// SpanError reports the first span that violated the redaction contract
type SpanError struct {
	// Kind is the category of the violation
	Kind ErrorKind

	// Index is the position of the offending span in the input list
	Index int

	// Span is the offending span
	Span detector.Span

	// Previous is the span before Index, set for ordering and overlap failures
	Previous *detector.Span

	// TextLength is the length of the input text in characters
	TextLength int
}

// Error implements the error interface
func (e *SpanError) Error() string {
	switch e.Kind {
	case InvalidSpanOrder:
		return fmt.Sprintf("[%s] span %d %s starts before preceding span %s",
			e.Kind, e.Index, e.Span, e.Previous)
	case OverlappingSpans:
		return fmt.Sprintf("[%s] span %d %s overlaps preceding span %s",
			e.Kind, e.Index, e.Span, e.Previous)
	default:
		return fmt.Sprintf("[%s] span %d %s outside text of length %d (requires 0 <= start < end <= length)",
			e.Kind, e.Index, e.Span, e.TextLength)
	}
}

// Is matches the sentinel error for the kind
func (e *SpanError) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// KindOf returns the ErrorKind of a span validation error, or 0 if err is not one
func KindOf(err error) ErrorKind {
	var spanErr *SpanError
	if errors.As(err, &spanErr) {
		return spanErr.Kind
	}
	return 0
}

func newSpanError(kind ErrorKind, index int, span detector.Span, previous *detector.Span, textLength int) *SpanError {
	return &SpanError{
		Kind:       kind,
		Index:      index,
		Span:       span,
		Previous:   previous,
		TextLength: textLength,
	}
}
