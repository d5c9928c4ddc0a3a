// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"time"

	"go.uber.org/zap"
)

// StandardObserver implements observability for all components. A nil
// *StandardObserver is valid and observes nothing.
type StandardObserver struct {
	logger  *zap.Logger
	metrics *Metrics
	debug   *DebugObserver
}

// NewStandardObserver creates observability component. Either argument may be nil.
func NewStandardObserver(logger *zap.Logger, metrics *Metrics) *StandardObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StandardObserver{
		logger:  logger,
		metrics: metrics,
	}
}

// WithDebug attaches a step tracer that prints every timed operation
func (o *StandardObserver) WithDebug(debug *DebugObserver) *StandardObserver {
	o.debug = debug
	return o
}

// Logger returns the observer's logger, never nil
func (o *StandardObserver) Logger() *zap.Logger {
	if o == nil {
		return zap.NewNop()
	}
	return o.logger
}

// Metrics returns the metrics instance, possibly nil
func (o *StandardObserver) Metrics() *Metrics {
	if o == nil {
		return nil
	}
	return o.metrics
}

// StartTiming returns a function to complete timing
func (o *StandardObserver) StartTiming(component, operation string) func(success bool, fields ...zap.Field) {
	if o == nil {
		return func(bool, ...zap.Field) {}
	}

	start := time.Now()
	var step func(bool, string)
	if o.debug != nil {
		step = o.debug.StartStep(component, operation)
	}

	return func(success bool, fields ...zap.Field) {
		duration := time.Since(start)

		all := append([]zap.Field{
			zap.String("component", component),
			zap.String("operation", operation),
			zap.Int64("duration_ms", duration.Milliseconds()),
			zap.Bool("success", success),
		}, fields...)

		if success {
			o.logger.Debug("operation completed", all...)
		} else {
			o.logger.Warn("operation failed", all...)
		}
		o.metrics.observeOperation(component, operation, success, duration)

		if step != nil {
			step(success, "")
		}
	}
}
