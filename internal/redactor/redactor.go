// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package redactor replaces detected spans of a text with masking tokens.
//
// Spans refer to character offsets of the original text. Replacements are spliced
// in ascending order while a running offset tracks how far earlier replacements
// have shifted the output relative to the input. With the default asterisk masker
// the offset stays at zero and the output has the same length as the input.
package redactor

import (
	"strings"

	"pii-anonymizer/internal/detector"
)

// Mapping records one applied replacement
type Mapping struct {
	// Span is the input span, in original-text offsets
	Span detector.Span `json:"span"`

	// Replacement is the text written in place of the span
	Replacement string `json:"replacement"`

	// OutputStart and OutputEnd locate the replacement in the redacted text
	OutputStart int `json:"output_start"`
	OutputEnd   int `json:"output_end"`
}

// Result contains the redacted text and the replacements that produced it
type Result struct {
	Text     string    `json:"text"`
	Mappings []Mapping `json:"mappings"`
}

// Redact masks every span of text with asterisks of equal length.
//
// spans must be sorted by start, must not overlap and must lie within the text;
// otherwise a *SpanError is returned and no output is produced.
func Redact(text string, spans []detector.Span) (string, error) {
	result, err := RedactWith(text, spans, Asterisks())
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// RedactWith is Redact with a caller-supplied masker. The masker may return
// replacements of any length.
func RedactWith(text string, spans []detector.Span, masker Masker) (*Result, error) {
	if len(spans) == 0 {
		return &Result{Text: text, Mappings: []Mapping{}}, nil
	}

	original := []rune(text)
	if err := Validate(len(original), spans); err != nil {
		return nil, err
	}
	if masker == nil {
		masker = Asterisks()
	}

	var out strings.Builder
	out.Grow(len(text))

	mappings := make([]Mapping, 0, len(spans))
	offset := 0
	cursor := 0

	for _, span := range spans {
		width := span.End - span.Start
		replacement := masker.Mask(string(original[span.Start:span.End]), span)
		replacementLen := len([]rune(replacement))

		// Untouched text between the previous span and this one
		out.WriteString(string(original[cursor:span.Start]))
		out.WriteString(replacement)
		cursor = span.End

		mappings = append(mappings, Mapping{
			Span:        span,
			Replacement: replacement,
			OutputStart: span.Start + offset,
			OutputEnd:   span.Start + offset + replacementLen,
		})

		offset += replacementLen - width
	}
	out.WriteString(string(original[cursor:]))

	return &Result{Text: out.String(), Mappings: mappings}, nil
}

// Validate checks spans against a text of textLength characters and returns the
// first violation found.
func Validate(textLength int, spans []detector.Span) error {
	for i, span := range spans {
		if span.Start < 0 || span.End <= span.Start || span.End > textLength {
			return newSpanError(OutOfRangeSpan, i, span, nil, textLength)
		}
		if i == 0 {
			continue
		}

		previous := spans[i-1]
		if span.Start < previous.Start {
			return newSpanError(InvalidSpanOrder, i, span, &previous, textLength)
		}
		if span.Start < previous.End {
			return newSpanError(OverlappingSpans, i, span, &previous, textLength)
		}
	}
	return nil
}
