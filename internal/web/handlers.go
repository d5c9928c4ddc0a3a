// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"pii-anonymizer/internal/anonymizer"
	"pii-anonymizer/internal/core"
	"pii-anonymizer/internal/detector"
	"pii-anonymizer/internal/detector/presidio"
	"pii-anonymizer/internal/export"
	"pii-anonymizer/internal/redactor"
	"pii-anonymizer/internal/resilience"
	"pii-anonymizer/internal/table"
	"pii-anonymizer/internal/version"
)

// maxPreviewRows caps the rows rendered in the HTML tables
const maxPreviewRows = 200

// maxJSONBody caps API request bodies that carry text rather than files
const maxJSONBody = 1 << 20

// multipartMemory is the part of an upload kept in memory before spilling to disk
const multipartMemory = 8 << 20

var errEmptyBody = errors.New("request body is empty")

// previewTable is a table trimmed for rendering
type previewTable struct {
	Columns   []string
	Rows      [][]string
	Total     int
	Truncated bool
}

func newPreview(t *table.Table) *previewTable {
	if t == nil {
		return nil
	}
	rows := t.Rows
	if len(rows) > maxPreviewRows {
		rows = rows[:maxPreviewRows]
	}
	return &previewTable{
		Columns:   t.Columns,
		Rows:      rows,
		Total:     len(t.Rows),
		Truncated: len(t.Rows) > maxPreviewRows,
	}
}

type entityCount struct {
	Type  string
	Count int
}

func sortedCounts(counts map[string]int) []entityCount {
	out := make([]entityCount, 0, len(counts))
	for k, v := range counts {
		out = append(out, entityCount{Type: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// pageData feeds templates/index.html
type pageData struct {
	Mode         string
	Engine       string
	Text         string
	Error        string
	Accept       string
	MaxUpload    int64
	Filename     string
	Original     *previewTable
	Redacted     *previewTable
	RedactedText string
	HasResult    bool
	Entities     []entityCount
	Total        int
	DownloadID   string
	Formats      []export.FormatInfo
}

// engineDisplayName names the detector in the page header
func engineDisplayName(name string) string {
	if name == presidio.Name {
		return "Microsoft Presidio"
	}
	return "built-in pattern recognizers"
}

func (ws *WebServer) newPage(mode string) *pageData {
	if mode != "file" {
		mode = "text"
	}
	return &pageData{
		Mode:      mode,
		Engine:    engineDisplayName(ws.anon.DetectorName()),
		Accept:    strings.Join(table.SupportedExtensions(), ","),
		MaxUpload: ws.cfg.MaxUploadMB,
		Formats:   export.WebFormats(),
	}
}

func (ws *WebServer) render(w http.ResponseWriter, status int, page *pageData) {
	var buf bytes.Buffer
	if err := ws.tmpl.ExecuteTemplate(&buf, "index.html", page); err != nil {
		ws.logger.Error("template rendering failed", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// serveHome serves the form; ?mode=file preselects the upload input
func (ws *WebServer) serveHome(w http.ResponseWriter, r *http.Request) {
	ws.render(w, http.StatusOK, ws.newPage(r.URL.Query().Get("mode")))
}

func (ws *WebServer) withOutcome(page *pageData, outcome *core.Outcome) {
	page.HasResult = true
	page.Filename = outcome.Filename
	page.Entities = sortedCounts(outcome.Result.EntityCounts)
	page.Total = outcome.TotalEntities()
	page.DownloadID = ws.store.Put(outcome.Document(), outcome.BaseName)
	if outcome.Source == core.SourceText {
		page.RedactedText = outcome.Result.Redacted.Rows[0][0]
		return
	}
	page.Original = newPreview(outcome.Original)
	page.Redacted = newPreview(outcome.Result.Redacted)
}

// handleRedactText handles the pasted-text form
func (ws *WebServer) handleRedactText(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := r.ParseForm(); err != nil {
		if textTooLarge(err) {
			page := ws.newPage("text")
			page.Error = textTooLargeMsg
			ws.render(w, http.StatusRequestEntityTooLarge, page)
			return
		}
		ws.renderError(w, ws.newPage("text"), err)
		return
	}

	page := ws.newPage("text")
	page.Text = r.PostForm.Get("text")
	if strings.TrimSpace(page.Text) == "" {
		page.Error = "Please enter some text."
		ws.render(w, http.StatusBadRequest, page)
		return
	}

	anon := ws.anon.WithLanguage(r.PostForm.Get("language"))
	outcome, err := core.RedactText(r.Context(), anon, page.Text)
	if err != nil {
		ws.renderError(w, page, err)
		return
	}
	ws.withOutcome(page, outcome)
	ws.render(w, http.StatusOK, page)
}

// handleRedactFile handles the upload form
func (ws *WebServer) handleRedactFile(w http.ResponseWriter, r *http.Request) {
	page := ws.newPage("file")

	outcome, err := ws.redactUpload(w, r)
	if err != nil {
		ws.renderError(w, page, err)
		return
	}
	ws.withOutcome(page, outcome)
	ws.render(w, http.StatusOK, page)
}

// renderError shows err on the form with the matching status
func (ws *WebServer) renderError(w http.ResponseWriter, page *pageData, err error) {
	status, msg := ws.classify(err)
	page.Error = msg
	ws.render(w, status, page)
}

var errNoFile = errors.New("no file uploaded")

// redactUpload reads the "file" part of a multipart request and anonymizes it
func (ws *WebServer) redactUpload(w http.ResponseWriter, r *http.Request) (*core.Outcome, error) {
	r.Body = http.MaxBytesReader(w, r.Body, ws.cfg.MaxUploadBytes())
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, err
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, errNoFile
		}
		return nil, err
	}
	defer file.Close()

	ws.metrics.ObserveUpload(header.Size)
	ws.logger.Debug("upload received",
		zap.String("filename", header.Filename),
		zap.Int64("size", header.Size))

	anon := ws.anon.WithLanguage(r.FormValue("language"))
	return core.RedactUpload(r.Context(), anon, header.Filename, partContentType(header), file)
}

func partContentType(h *multipart.FileHeader) string {
	return h.Header.Get("Content-Type")
}

// classify maps a redaction failure to a status code and a user-facing message
func (ws *WebServer) classify(err error) (int, string) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge,
			fmt.Sprintf("File too large. The limit is %d MB.", ws.cfg.MaxUploadMB)
	case errors.Is(err, errNoFile):
		return http.StatusBadRequest, "Please upload a file."
	case errors.Is(err, table.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, "Unsupported file type."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "Request cancelled before redaction finished."
	case errors.Is(err, anonymizer.ErrDetection):
		kind := resilience.TypeOf(err)
		ws.metrics.ObserveDetectorError(ws.anon.DetectorName(), kind.String())
		ws.logger.Error("detection failed", zap.Error(err), zap.Stringer("kind", kind))
		if resilience.IsCircuitBreakerError(err) {
			return http.StatusServiceUnavailable, "The PII detector is temporarily unavailable. Please try again later."
		}
		return http.StatusBadGateway, "Error processing file: " + err.Error()
	case redactor.KindOf(err) != 0:
		ws.logger.Error("detector returned invalid spans", zap.Error(err))
		return http.StatusInternalServerError, "Error processing file: " + err.Error()
	default:
		return http.StatusBadRequest, "Error processing file: " + err.Error()
	}
}

// handleDownload streams a stored result in the requested format
func (ws *WebServer) handleDownload(w http.ResponseWriter, r *http.Request) {
	doc, baseName, ok := ws.store.Get(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, r, http.StatusNotFound, "Download not found or expired.")
		return
	}

	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "xlsx"
	}
	info, ok := export.Info(format)
	if !ok || !info.WebSupported {
		respondError(w, r, http.StatusBadRequest, fmt.Sprintf("Unsupported download format %q.", format))
		return
	}

	var buf bytes.Buffer
	if err := export.Export(&buf, format, doc, export.Options{NoColor: true}); err != nil {
		ws.logger.Error("export failed", zap.String("format", format), zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "Export failed.")
		return
	}

	ws.metrics.ObserveDownload(format)
	w.Header().Set("Content-Type", info.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(baseName, format)))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

// handleHealth reports liveness and, for remote detectors, reachability
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":   "ok",
		"detector": ws.anon.DetectorName(),
		"version":  version.Get(),
	}
	status := http.StatusOK

	if p, ok := ws.detector.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			resp["status"] = "degraded"
			resp["error"] = err.Error()
			status = http.StatusServiceUnavailable
		}
	}
	respondJSON(w, status, resp)
}

func (ws *WebServer) handleFormats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"formats": export.WebFormats(),
	})
}

type redactRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type redactResponse struct {
	Success      bool            `json:"success"`
	Redacted     string          `json:"redacted"`
	Entities     []detector.Span `json:"entities"`
	EntityCounts map[string]int  `json:"entity_counts"`
}

// handleAPIRedact anonymizes a JSON text payload
func (ws *WebServer) handleAPIRedact(w http.ResponseWriter, r *http.Request) {
	var req redactRequest
	if err := decodeJSON(w, r, &req); err != nil {
		if textTooLarge(err) {
			respondError(w, r, http.StatusRequestEntityTooLarge, textTooLargeMsg)
			return
		}
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, r, http.StatusBadRequest, "text is required")
		return
	}

	res, err := ws.anon.WithLanguage(req.Language).AnonymizeText(r.Context(), req.Text)
	if err != nil {
		status, msg := ws.classify(err)
		respondError(w, r, status, msg)
		return
	}
	respondJSON(w, http.StatusOK, redactResponse{
		Success:      true,
		Redacted:     res.Text,
		Entities:     res.Spans,
		EntityCounts: res.EntityCounts,
	})
}

type fileResponse struct {
	Success      bool           `json:"success"`
	Filename     string         `json:"filename"`
	Columns      []string       `json:"columns"`
	Rows         [][]string     `json:"rows"`
	TextColumns  []string       `json:"text_columns"`
	EntityCounts map[string]int `json:"entity_counts"`
	DownloadURL  string         `json:"download_url"`
}

// handleAPIRedactFile anonymizes an uploaded document and returns the table
func (ws *WebServer) handleAPIRedactFile(w http.ResponseWriter, r *http.Request) {
	outcome, err := ws.redactUpload(w, r)
	if err != nil {
		status, msg := ws.classify(err)
		respondError(w, r, status, msg)
		return
	}

	id := ws.store.Put(outcome.Document(), outcome.BaseName)
	redacted := outcome.Result.Redacted
	respondJSON(w, http.StatusOK, fileResponse{
		Success:      true,
		Filename:     outcome.Filename,
		Columns:      redacted.Columns,
		Rows:         redacted.Rows,
		TextColumns:  outcome.Result.TextColumns,
		EntityCounts: outcome.Result.EntityCounts,
		DownloadURL:  "/download/" + id,
	})
}

type spansRequest struct {
	Text     string          `json:"text"`
	Spans    []detector.Span `json:"spans"`
	Strategy string          `json:"strategy"`
	MaskChar string          `json:"mask_char"`
}

type spansResponse struct {
	Success  bool               `json:"success"`
	Redacted string             `json:"redacted"`
	Mappings []redactor.Mapping `json:"mappings"`
}

// handleAPIRedactSpans masks caller-supplied spans without running detection
func (ws *WebServer) handleAPIRedactSpans(w http.ResponseWriter, r *http.Request) {
	var req spansRequest
	if err := decodeJSON(w, r, &req); err != nil {
		if textTooLarge(err) {
			respondError(w, r, http.StatusRequestEntityTooLarge, textTooLargeMsg)
			return
		}
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	strategy, err := redactor.ParseStrategy(req.Strategy)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	maskChar := redactor.DefaultMaskChar
	if req.MaskChar != "" {
		runes := []rune(req.MaskChar)
		if len(runes) != 1 {
			respondError(w, r, http.StatusBadRequest, "mask_char must be a single character")
			return
		}
		maskChar = runes[0]
	}

	res, err := redactor.RedactWith(req.Text, req.Spans, redactor.NewMasker(strategy, maskChar))
	if err != nil {
		respondJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error: err.Error(),
			Kind:  redactor.KindOf(err).String(),
		})
		return
	}
	respondJSON(w, http.StatusOK, spansResponse{Success: true, Redacted: res.Text, Mappings: res.Mappings})
}

// textTooLargeMsg is shown when pasted or posted text exceeds maxJSONBody
var textTooLargeMsg = fmt.Sprintf("Text too large. The limit is %d MB of text; upload it as a file instead.", maxJSONBody>>20)

func textTooLarge(err error) bool {
	var maxBytes *http.MaxBytesError
	return errors.As(err, &maxBytes)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
