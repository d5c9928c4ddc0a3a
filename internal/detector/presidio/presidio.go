// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package presidio detects PII by calling a Microsoft Presidio analyzer over HTTP.
package presidio

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"pii-anonymizer/internal/detector"
	"pii-anonymizer/internal/observability"
	"pii-anonymizer/internal/resilience"
)

// Name is the engine name used in configuration and span provenance
const Name = "presidio"

// DefaultURL is the analyzer address used by the presidio-analyzer container
const DefaultURL = "http://localhost:5002"

// Config holds analyzer connection settings
type Config struct {
	URL            string
	Timeout        time.Duration
	MaxRetries     int
	ScoreThreshold float64
	Entities       []string
}

// analyzeRequest is the body of POST /analyze
type analyzeRequest struct {
	Text           string   `json:"text"`
	Language       string   `json:"language"`
	ScoreThreshold float64  `json:"score_threshold,omitempty"`
	Entities       []string `json:"entities,omitempty"`
}

// recognizerResult is one element of the /analyze response
type recognizerResult struct {
	EntityType          string  `json:"entity_type"`
	Start               int     `json:"start"`
	End                 int     `json:"end"`
	Score               float64 `json:"score"`
	RecognitionMetadata struct {
		RecognizerName string `json:"recognizer_name"`
	} `json:"recognition_metadata"`
}

// apiError is the analyzer's error body
type apiError struct {
	Error string `json:"error"`
}

// Detector is a detector.Detector backed by the analyzer REST API
type Detector struct {
	client   *resty.Client
	config   Config
	retry    resilience.RetryConfig
	breaker  *resilience.CircuitBreaker
	observer *observability.StandardObserver
}

// Option configures a Detector
type Option func(*Detector)

// WithHTTPClient sends requests through hc
func WithHTTPClient(hc *http.Client) Option {
	return func(d *Detector) {
		d.client = resty.NewWithClient(hc)
	}
}

// WithRetryConfig overrides the backoff schedule
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(d *Detector) {
		d.retry = cfg
	}
}

// WithCircuitBreaker overrides the default breaker
func WithCircuitBreaker(cb *resilience.CircuitBreaker) Option {
	return func(d *Detector) {
		d.breaker = cb
	}
}

// WithObserver attaches an observer for timing, logs and error metrics
func WithObserver(observer *observability.StandardObserver) Option {
	return func(d *Detector) {
		d.observer = observer
	}
}

// New creates an analyzer client
func New(cfg Config, opts ...Option) (*Detector, error) {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	u, err := url.Parse(cfg.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid presidio url %q", cfg.URL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	d := &Detector{
		client: resty.New(),
		config: cfg,
		retry:  resilience.DefaultRetryConfig(),
	}
	d.retry.MaxRetries = max(cfg.MaxRetries, 0)

	for _, opt := range opts {
		opt(d)
	}

	if d.breaker == nil {
		breakerCfg := resilience.DefaultCircuitBreakerConfig(Name)
		breakerCfg.OnStateChange = func(name string, from, to resilience.CircuitBreakerState) {
			d.observer.Logger().Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		}
		d.breaker = resilience.NewCircuitBreaker(breakerCfg)
	}
	d.retry.OnRetry = func(attempt int, err error) {
		d.observer.Logger().Info("retrying presidio request",
			zap.Int("attempt", attempt),
			zap.Error(err))
	}

	d.client.
		SetBaseURL(strings.TrimRight(cfg.URL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	return d, nil
}

// Name returns the engine name
func (d *Detector) Name() string {
	return Name
}

// Detect sends text to the analyzer and returns its findings as spans, sorted by
// start. Results with offsets outside the text are dropped and logged.
func (d *Detector) Detect(ctx context.Context, text, language string) ([]detector.Span, error) {
	if text == "" {
		return []detector.Span{}, nil
	}
	finish := d.observer.StartTiming(Name, "analyze")

	req := analyzeRequest{
		Text:           text,
		Language:       language,
		ScoreThreshold: d.config.ScoreThreshold,
		Entities:       d.config.Entities,
	}

	results, err := resilience.RetryWithCircuitBreaker(ctx, d.retry, d.breaker, func(ctx context.Context) ([]recognizerResult, error) {
		return d.analyze(ctx, req)
	})
	if err != nil {
		kind := resilience.TypeOf(err)
		d.observer.Metrics().ObserveDetectorError(Name, kind.String())
		finish(false, zap.String("error_type", kind.String()), zap.Error(err))
		return nil, fmt.Errorf("presidio analyze: %w", err)
	}

	length := utf8.RuneCountInString(text)
	spans := make([]detector.Span, 0, len(results))
	for _, r := range results {
		if r.Start < 0 || r.End <= r.Start || r.End > length {
			d.observer.Logger().Warn("dropping presidio result outside text",
				zap.String("entity_type", r.EntityType),
				zap.Int("start", r.Start),
				zap.Int("end", r.End),
				zap.Int("text_length", length))
			continue
		}
		recognizer := Name
		if r.RecognitionMetadata.RecognizerName != "" {
			recognizer = Name + "/" + r.RecognitionMetadata.RecognizerName
		}
		spans = append(spans, detector.Span{
			Start:      r.Start,
			End:        r.End,
			EntityType: r.EntityType,
			Score:      r.Score,
			Recognizer: recognizer,
		})
	}

	detector.Sort(spans)
	finish(true, zap.Int("spans", len(spans)))
	return spans, nil
}

func (d *Detector) analyze(ctx context.Context, req analyzeRequest) ([]recognizerResult, error) {
	resp, err := d.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post("/analyze")
	if err != nil {
		return nil, resilience.ClassifyError(err)
	}
	if resp.IsError() {
		return nil, resilience.ClassifyHTTPStatus(resp.StatusCode(), errorDetail(resp.Body()))
	}

	var results []recognizerResult
	if err := json.Unmarshal(resp.Body(), &results); err != nil {
		return nil, resilience.NewPermanentError("presidio returned an unreadable response", err)
	}
	return results, nil
}

// Ping checks the analyzer's health endpoint
func (d *Detector) Ping(ctx context.Context) error {
	resp, err := d.client.R().SetContext(ctx).Get("/health")
	if err != nil {
		return fmt.Errorf("presidio health: %w", resilience.ClassifyError(err))
	}
	if resp.IsError() {
		return fmt.Errorf("presidio health: %w", resilience.ClassifyHTTPStatus(resp.StatusCode(), errorDetail(resp.Body())))
	}
	return nil
}

// errorDetail extracts a short message from an error body
func errorDetail(body []byte) string {
	var e apiError
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	detail := strings.TrimSpace(string(body))
	if len(detail) > 200 {
		detail = detail[:200]
	}
	return detail
}
