// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

import (
	"strings"
)

// ContextInfo stores the text surrounding a span
type ContextInfo struct {
	BeforeText string
	Text       string
	AfterText  string
}

// ContextExtractor extracts context around a span
type ContextExtractor struct {
	// Number of characters before and after the span to include
	ContextChars int

	// Stop at line boundaries
	SingleLine bool
}

// NewContextExtractor creates a new context extractor with default settings
func NewContextExtractor() *ContextExtractor {
	return &ContextExtractor{
		ContextChars: 50,
		SingleLine:   true,
	}
}

// WithContextChars sets the number of context characters
func (ce *ContextExtractor) WithContextChars(chars int) *ContextExtractor {
	ce.ContextChars = chars
	return ce
}

// Extract returns the span text and up to ContextChars characters on either side.
// Out-of-range spans yield an empty ContextInfo.
func (ce *ContextExtractor) Extract(text string, span Span) ContextInfo {
	runes := []rune(text)
	if span.Start < 0 || span.End > len(runes) || span.Start > span.End {
		return ContextInfo{}
	}

	startIndex := max(0, span.Start-ce.ContextChars)
	endIndex := min(len(runes), span.End+ce.ContextChars)

	before := string(runes[startIndex:span.Start])
	after := string(runes[span.End:endIndex])

	if ce.SingleLine {
		if i := strings.LastIndex(before, "\n"); i >= 0 {
			before = before[i+1:]
		}
		if i := strings.Index(after, "\n"); i >= 0 {
			after = after[:i]
		}
	}

	return ContextInfo{
		BeforeText: before,
		Text:       string(runes[span.Start:span.End]),
		AfterText:  after,
	}
}
