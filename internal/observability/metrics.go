// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service. Each instance
// owns its registry so tests and multiple servers never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	OperationDuration *prometheus.HistogramVec
	RedactedSpans     *prometheus.CounterVec
	DetectorErrors    *prometheus.CounterVec
	UploadBytes       prometheus.Histogram
	Downloads         *prometheus.CounterVec
}

// NewMetrics creates the instruments under namespace
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of internal operations by component, operation and outcome.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"component", "operation", "outcome"}),
		RedactedSpans: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redacted_spans_total",
			Help:      "Spans replaced in output, by entity type.",
		}, []string{"entity_type"}),
		DetectorErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detector_errors_total",
			Help:      "Detector failures by engine and error type.",
		}, []string{"detector", "kind"}),
		UploadBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_size_bytes",
			Help:      "Size of uploaded files.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		}),
		Downloads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Redacted result downloads by format.",
		}, []string{"format"}),
	}
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one served HTTP request
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}

// ObserveRedactions adds per-entity span counts
func (m *Metrics) ObserveRedactions(counts map[string]int) {
	if m == nil {
		return
	}
	for entity, n := range counts {
		m.RedactedSpans.WithLabelValues(entity).Add(float64(n))
	}
}

// ObserveDetectorError counts one detector failure
func (m *Metrics) ObserveDetectorError(detector, kind string) {
	if m == nil {
		return
	}
	m.DetectorErrors.WithLabelValues(detector, kind).Inc()
}

// ObserveUpload records the size of an uploaded file
func (m *Metrics) ObserveUpload(size int64) {
	if m == nil {
		return
	}
	m.UploadBytes.Observe(float64(size))
}

// ObserveDownload counts one served download
func (m *Metrics) ObserveDownload(format string) {
	if m == nil {
		return
	}
	m.Downloads.WithLabelValues(format).Inc()
}

func (m *Metrics) observeOperation(component, operation string, success bool, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.OperationDuration.WithLabelValues(component, operation, outcome).Observe(d.Seconds())
}
