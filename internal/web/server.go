// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package web serves the redaction form, the JSON API and result downloads.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"pii-anonymizer/internal/anonymizer"
	"pii-anonymizer/internal/config"
	"pii-anonymizer/internal/detector"
	"pii-anonymizer/internal/observability"
)

//go:embed templates/*.html
var templateFS embed.FS

// Options wires a WebServer
type Options struct {
	Config     config.ServerConfig
	Anonymizer *anonymizer.Anonymizer

	// Detector is probed by /health when it supports Ping
	Detector detector.Detector

	Logger  *zap.Logger
	Metrics *observability.Metrics
}

// pinger is implemented by detectors backed by a remote service
type pinger interface {
	Ping(ctx context.Context) error
}

// WebServer represents the web server instance
type WebServer struct {
	cfg      config.ServerConfig
	anon     *anonymizer.Anonymizer
	detector detector.Detector
	logger   *zap.Logger
	metrics  *observability.Metrics

	store   *DownloadStore
	limiter *RateLimiter
	tmpl    *template.Template
	handler http.Handler
	server  *http.Server
}

// NewWebServer creates a new web server instance
func NewWebServer(opts Options) (*WebServer, error) {
	if opts.Anonymizer == nil {
		return nil, errors.New("web server requires an anonymizer")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("template validation failed: %w", err)
	}

	ws := &WebServer{
		cfg:      opts.Config,
		anon:     opts.Anonymizer,
		detector: opts.Detector,
		logger:   opts.Logger.Named("web"),
		metrics:  opts.Metrics,
		store:    NewDownloadStore(opts.Config.DownloadTTL),
		tmpl:     tmpl,
	}
	if opts.Config.RateLimit.Enabled {
		ws.limiter = NewRateLimiter(opts.Config.RateLimit.RequestsPerSecond, opts.Config.RateLimit.Burst)
	}
	ws.handler = ws.routes()
	return ws, nil
}

// Handler returns the HTTP handler with all routes and middleware
func (ws *WebServer) Handler() http.Handler {
	return ws.handler
}

// routes configures all HTTP route handlers
func (ws *WebServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(ws.accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/", ws.serveHome)
	r.Get("/health", ws.handleHealth)
	if ws.metrics != nil {
		r.Method(http.MethodGet, "/metrics", ws.metrics.Handler())
	}
	r.Get("/download/{id}", ws.handleDownload)
	r.Get("/api/v1/formats", ws.handleFormats)

	r.Group(func(r chi.Router) {
		if ws.limiter != nil {
			r.Use(ws.limiter.Middleware)
		}
		r.Post("/redact/text", ws.handleRedactText)
		r.Post("/redact/file", ws.handleRedactFile)

		r.Route("/api/v1", func(r chi.Router) {
			r.Post("/redact", ws.handleAPIRedact)
			r.Post("/redact/file", ws.handleAPIRedactFile)
			r.Post("/redact/spans", ws.handleAPIRedactSpans)
		})
	})

	return r
}

// createSecureServer creates an HTTP server with security timeouts
func (ws *WebServer) createSecureServer() *http.Server {
	return &http.Server{
		Addr:    ws.cfg.Address,
		Handler: ws.handler,
		// Timeout for reading request headers (prevents slow header attacks)
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       ws.cfg.ReadTimeout,
		// detection of large tables can take a while
		WriteTimeout: ws.cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
		ErrorLog:     zap.NewStdLog(ws.logger),
	}
}

// Start serves until ctx is done, then shuts down gracefully
func (ws *WebServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", ws.cfg.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", ws.cfg.Address, err)
	}
	return ws.Serve(ctx, ln)
}

// Serve is Start on an existing listener
func (ws *WebServer) Serve(ctx context.Context, ln net.Listener) error {
	ws.server = ws.createSecureServer()

	errCh := make(chan error, 1)
	go func() {
		errCh <- ws.server.Serve(ln)
	}()

	ws.logger.Info("web UI started",
		zap.String("address", ln.Addr().String()),
		zap.String("detector", ws.anon.DetectorName()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	ws.logger.Info("shutting down web server")
	timeout := ws.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	<-errCh
	return nil
}

// Close releases background resources. Call it after the server has stopped.
func (ws *WebServer) Close() {
	ws.store.Close()
	if ws.limiter != nil {
		ws.limiter.Close()
	}
}

// errorResponse is the JSON body of every API failure
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respondError answers API routes with JSON and everything else with plain text
func respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	if isAPI(r) {
		respondJSON(w, status, errorResponse{Error: message})
		return
	}
	http.Error(w, message, status)
}

func isAPI(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}
