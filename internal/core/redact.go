// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"pii-anonymizer/internal/anonymizer"
	"pii-anonymizer/internal/detector"
	"pii-anonymizer/internal/export"
	"pii-anonymizer/internal/table"
)

// Download base names for the two input flows
const (
	TextBaseName = "redacted_text"
	DataBaseName = "redacted_data"
)

// Source identifies where the input came from
type Source string

const (
	SourceText Source = "text"
	SourceFile Source = "file"
)

// Outcome is the result of one redaction run, shared by the CLI and the web server
type Outcome struct {
	Source   Source
	Filename string
	Original *table.Table
	Result   *anonymizer.TableResult

	// Text holds span-level detail for pasted text; nil for files
	Text *anonymizer.TextResult

	// BaseName is the download file name without extension
	BaseName string
}

// Document returns the redacted table in exportable form
func (o *Outcome) Document() *export.Document {
	return &export.Document{
		Table:        o.Result.Redacted,
		EntityCounts: o.Result.EntityCounts,
	}
}

// TotalEntities sums the masked entities over all types
func (o *Outcome) TotalEntities() int {
	total := 0
	for _, n := range o.Result.EntityCounts {
		total += n
	}
	return total
}

// RedactText anonymizes pasted text and wraps the result as a single-cell table
func RedactText(ctx context.Context, anon *anonymizer.Anonymizer, text string) (*Outcome, error) {
	res, err := anon.AnonymizeText(ctx, text)
	if err != nil {
		return nil, err
	}

	cells := 1
	if text == "" {
		cells = 0
	}
	return &Outcome{
		Source:   SourceText,
		Original: table.FromText(text),
		Result: &anonymizer.TableResult{
			Redacted:     table.FromText(res.Text),
			TextColumns:  []string{table.TextColumn},
			EntityCounts: res.EntityCounts,
			Cells:        cells,
		},
		Text:     res,
		BaseName: TextBaseName,
	}, nil
}

// Finding is one masked entity shown with the redacted text around it
type Finding struct {
	EntityType  string
	Replacement string
	Context     detector.ContextInfo
}

// Findings lists the masked entities of a text outcome in order, each with up
// to contextChars characters of redacted output on either side. File outcomes
// have no findings.
func (o *Outcome) Findings(contextChars int) []Finding {
	if o.Text == nil {
		return nil
	}
	ce := detector.NewContextExtractor().WithContextChars(contextChars)

	findings := make([]Finding, 0, len(o.Text.Mappings))
	for _, m := range o.Text.Mappings {
		findings = append(findings, Finding{
			EntityType:  m.Span.EntityType,
			Replacement: m.Replacement,
			Context:     ce.Extract(o.Text.Text, detector.Span{Start: m.OutputStart, End: m.OutputEnd}),
		})
	}
	return findings
}

// RedactUpload reads an uploaded document and anonymizes its text columns.
// Unsupported types fail with an error matching table.ErrUnsupportedFormat.
func RedactUpload(ctx context.Context, anon *anonymizer.Anonymizer, filename, contentType string, r io.Reader) (*Outcome, error) {
	original, err := table.Read(filename, contentType, r)
	if err != nil {
		return nil, err
	}
	result, err := anon.AnonymizeTable(ctx, original)
	if err != nil {
		return nil, err
	}
	return &Outcome{
		Source:   SourceFile,
		Filename: filename,
		Original: original,
		Result:   result,
		BaseName: DataBaseName,
	}, nil
}

// RedactFile is RedactUpload for a file on disk
func RedactFile(ctx context.Context, anon *anonymizer.Anonymizer, path string) (*Outcome, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return RedactUpload(ctx, anon, filepath.Base(path), "", f)
}
