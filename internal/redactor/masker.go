// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package redactor

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"pii-anonymizer/internal/detector"
)

// Strategy defines the type of replacement to apply
type Strategy int

const (
	// StrategyMask replaces every character of a span with a mask character
	StrategyMask Strategy = iota
	// StrategyTag replaces a span with its entity type, e.g. <EMAIL_ADDRESS>
	StrategyTag
)

// DefaultMaskChar is the character used by the mask strategy
const DefaultMaskChar = '*'

// String returns the string representation of the strategy
func (s Strategy) String() string {
	switch s {
	case StrategyMask:
		return "mask"
	case StrategyTag:
		return "tag"
	default:
		return "unknown"
	}
}

// ParseStrategy converts a string to a Strategy
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mask":
		return StrategyMask, nil
	case "tag":
		return StrategyTag, nil
	default:
		return StrategyMask, fmt.Errorf("unknown redaction strategy %q (supported: mask, tag)", s)
	}
}

// Masker produces the replacement for one span. original is the exact text the
// span covers in the input.
type Masker interface {
	Mask(original string, span detector.Span) string
}

// MaskFunc adapts a function to the Masker interface
type MaskFunc func(original string, span detector.Span) string

// Mask calls f
func (f MaskFunc) Mask(original string, span detector.Span) string {
	return f(original, span)
}

// Asterisks masks each character with '*', preserving length
func Asterisks() Masker {
	return Repeat(DefaultMaskChar)
}

// Repeat masks each character with r, preserving length
func Repeat(r rune) Masker {
	return MaskFunc(func(original string, _ detector.Span) string {
		return strings.Repeat(string(r), utf8.RuneCountInString(original))
	})
}

// EntityTag replaces a span with <ENTITY_TYPE>. The output length differs from the
// input whenever the tag and the span differ in width.
func EntityTag() Masker {
	return MaskFunc(func(_ string, span detector.Span) string {
		entity := span.EntityType
		if entity == "" {
			entity = "REDACTED"
		}
		return "<" + entity + ">"
	})
}

// NewMasker builds the masker for a strategy. maskChar applies to StrategyMask;
// a zero rune selects DefaultMaskChar.
func NewMasker(strategy Strategy, maskChar rune) Masker {
	if strategy == StrategyTag {
		return EntityTag()
	}
	if maskChar == 0 {
		maskChar = DefaultMaskChar
	}
	return Repeat(maskChar)
}
