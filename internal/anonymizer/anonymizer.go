// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package anonymizer ties a detector to the span redactor: it detects PII in
// text or in the text columns of a table, filters the findings and masks them.
package anonymizer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"pii-anonymizer/internal/detector"
	"pii-anonymizer/internal/observability"
	"pii-anonymizer/internal/parallel"
	"pii-anonymizer/internal/redactor"
	"pii-anonymizer/internal/table"
)

// ErrDetection marks failures of the underlying detector
var ErrDetection = errors.New("detection failed")

// DefaultLanguage is the detection language when none is configured
const DefaultLanguage = "en"

// DefaultExcludedEntities are detected but never masked
var DefaultExcludedEntities = []string{"URL"}

// Options configures an Anonymizer
type Options struct {
	// Language is passed to the detector
	Language string

	// ExcludeEntities lists entity types left unmasked
	ExcludeEntities []string

	// AllowList holds literal values that are never masked, compared case-insensitively
	AllowList []string

	// MinScore drops findings scored below it
	MinScore float64

	// Masker produces replacements; nil means asterisks
	Masker redactor.Masker

	// Workers bounds table parallelism; 0 picks a default from the CPU count
	Workers int

	// Progress is called as table cells complete
	Progress parallel.ProgressCallback

	Observer *observability.StandardObserver
}

// DefaultOptions returns the options used when nothing is configured
func DefaultOptions() Options {
	return Options{
		Language:        DefaultLanguage,
		ExcludeEntities: append([]string(nil), DefaultExcludedEntities...),
		Masker:          redactor.Asterisks(),
	}
}

// Anonymizer detects and masks PII. It is safe for concurrent use when its
// detector is.
type Anonymizer struct {
	detector detector.Detector
	opts     Options
	allow    map[string]bool
}

// New creates an anonymizer around det
func New(det detector.Detector, opts Options) *Anonymizer {
	if opts.Language == "" {
		opts.Language = DefaultLanguage
	}
	if opts.Masker == nil {
		opts.Masker = redactor.Asterisks()
	}

	allow := make(map[string]bool, len(opts.AllowList))
	for _, v := range opts.AllowList {
		if v = strings.TrimSpace(v); v != "" {
			allow[strings.ToLower(v)] = true
		}
	}

	return &Anonymizer{detector: det, opts: opts, allow: allow}
}

// DetectorName returns the name of the underlying detector
func (a *Anonymizer) DetectorName() string {
	return a.detector.Name()
}

// Language returns the detection language
func (a *Anonymizer) Language() string {
	return a.opts.Language
}

// WithLanguage returns a copy that detects in language. An empty language
// returns a itself.
func (a *Anonymizer) WithLanguage(language string) *Anonymizer {
	if language == "" || language == a.opts.Language {
		return a
	}
	c := *a
	c.opts.Language = language
	return &c
}

// WithProgress returns a copy that reports table progress to fn
func (a *Anonymizer) WithProgress(fn parallel.ProgressCallback) *Anonymizer {
	c := *a
	c.opts.Progress = fn
	return &c
}

// TextResult is the outcome of anonymizing one text
type TextResult struct {
	// Text is the redacted output
	Text string `json:"redacted"`

	// Spans are the masked findings, in original-text character offsets
	Spans []detector.Span `json:"entities"`

	// Mappings locate each replacement in Text
	Mappings []redactor.Mapping `json:"-"`

	// EntityCounts tallies Spans by entity type
	EntityCounts map[string]int `json:"entity_counts"`
}

// AnonymizeText detects and masks PII in text. Empty text is returned as is
// without consulting the detector.
func (a *Anonymizer) AnonymizeText(ctx context.Context, text string) (*TextResult, error) {
	if text == "" {
		return &TextResult{Text: text, Spans: []detector.Span{}, Mappings: []redactor.Mapping{}, EntityCounts: map[string]int{}}, nil
	}

	spans, err := a.detector.Detect(ctx, text, a.opts.Language)
	if err != nil {
		return nil, fmt.Errorf("%s %w: %w", a.detector.Name(), ErrDetection, err)
	}

	spans = a.Filter(text, spans)

	result, err := redactor.RedactWith(text, spans, a.opts.Masker)
	if err != nil {
		return nil, fmt.Errorf("redaction failed: %w", err)
	}

	counts := detector.CountByType(spans)
	a.opts.Observer.Metrics().ObserveRedactions(counts)

	return &TextResult{
		Text:         result.Text,
		Spans:        spans,
		Mappings:     result.Mappings,
		EntityCounts: counts,
	}, nil
}

// Filter applies the exclusion list, the score floor and the allow-list, then
// resolves overlaps so the result is a valid redactor input.
func (a *Anonymizer) Filter(text string, spans []detector.Span) []detector.Span {
	spans = detector.ExcludeTypes(spans, a.opts.ExcludeEntities)
	spans = detector.AboveScore(spans, a.opts.MinScore)

	if len(a.allow) > 0 {
		runes := []rune(text)
		kept := spans[:0:0]
		for _, s := range spans {
			if s.Start >= 0 && s.End <= len(runes) && s.Start < s.End {
				if a.allow[strings.ToLower(strings.TrimSpace(string(runes[s.Start:s.End])))] {
					continue
				}
			}
			kept = append(kept, s)
		}
		spans = kept
	}

	return detector.ResolveOverlaps(spans)
}

// CellError reports a failure for one table cell
type CellError struct {
	Row    int
	Column string
	Err    error
}

func (e *CellError) Error() string {
	return fmt.Sprintf("row %d, column %q: %v", e.Row+1, e.Column, e.Err)
}

func (e *CellError) Unwrap() error {
	return e.Err
}

// TableResult is the outcome of anonymizing a table
type TableResult struct {
	// Redacted is a masked copy of the input table
	Redacted *table.Table

	// TextColumns names the columns that were anonymized
	TextColumns []string

	// EntityCounts tallies masked spans across all cells
	EntityCounts map[string]int

	// Cells is the number of cells sent to the detector
	Cells int

	Stats *parallel.ProcessingStats
}

type cell struct {
	row  int
	col  int
	text string
}

// AnonymizeTable anonymizes every non-blank cell of every text column on a
// bounded worker pool. The input table is not modified. When any cell fails, the
// errors of all failed cells are returned together and no table is produced.
func (a *Anonymizer) AnonymizeTable(ctx context.Context, t *table.Table) (*TableResult, error) {
	finish := a.opts.Observer.StartTiming("anonymizer", "table")

	out := t.Clone()
	textCols := t.TextColumns()

	names := make([]string, 0, len(textCols))
	var cells []cell
	for _, c := range textCols {
		names = append(names, t.Columns[c])
		for r, row := range t.Rows {
			if strings.TrimSpace(row[c]) != "" {
				cells = append(cells, cell{row: r, col: c, text: row[c]})
			}
		}
	}

	results, stats, err := parallel.ProcessAll(ctx, a.opts.Workers, cells, func(ctx context.Context, c cell) (*TextResult, error) {
		return a.AnonymizeText(ctx, c.text)
	}, a.opts.Observer, a.opts.Progress)
	if err != nil {
		finish(false, zap.Error(err))
		return nil, err
	}

	var errs *multierror.Error
	counts := make(map[string]int)

	for i, res := range results {
		c := cells[i]
		if res.Error != nil {
			errs = multierror.Append(errs, &CellError{Row: c.row, Column: t.Columns[c.col], Err: res.Error})
			continue
		}
		out.Rows[c.row][c.col] = res.Output.Text
		for entity, n := range res.Output.EntityCounts {
			counts[entity] += n
		}
	}

	if err := errs.ErrorOrNil(); err != nil {
		finish(false, zap.Int("failed_cells", errs.Len()))
		return nil, err
	}

	finish(true,
		zap.Int("cells", len(cells)),
		zap.Int("text_columns", len(textCols)),
		zap.Int("entities", sum(counts)))

	return &TableResult{
		Redacted:     out,
		TextColumns:  names,
		EntityCounts: counts,
		Cells:        len(cells),
		Stats:        stats,
	}, nil
}

func sum(counts map[string]int) int {
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}
