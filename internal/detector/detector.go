// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Span is a half-open character range [Start, End) of the original text that a
// detector tagged with an entity type. Offsets count Unicode code points, not bytes.
type Span struct {
	Start      int     `json:"start"`
	End        int     `json:"end"`
	EntityType string  `json:"entity_type"`
	Score      float64 `json:"score,omitempty"`
	Recognizer string  `json:"recognizer,omitempty"`
}

// Len returns the width of the span in characters
func (s Span) Len() int {
	return s.End - s.Start
}

// Overlaps reports whether two spans share at least one character
func (s Span) Overlaps(other Span) bool {
	return s.Start < other.End && other.Start < s.End
}

func (s Span) String() string {
	return fmt.Sprintf("%s[%d:%d]", s.EntityType, s.Start, s.End)
}

// Detector finds PII spans in a piece of text.
//
// Implementations are constructed once and shared; Detect must be safe for
// concurrent use.
type Detector interface {
	// Name identifies the detector in logs, metrics and health output
	Name() string

	// Detect returns the spans found in text. The language tag follows the
	// analyzer's conventions ("en", "de", ...).
	Detect(ctx context.Context, text string, language string) ([]Span, error)
}

// Sort orders spans by ascending start, then by descending width, in place
func Sort(spans []Span) {
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].End > spans[j].End
	})
}

// ExcludeTypes drops spans whose entity type appears in types (case-insensitive)
func ExcludeTypes(spans []Span, types []string) []Span {
	if len(types) == 0 {
		return spans
	}
	excluded := make(map[string]bool, len(types))
	for _, t := range types {
		excluded[strings.ToUpper(strings.TrimSpace(t))] = true
	}

	filtered := make([]Span, 0, len(spans))
	for _, s := range spans {
		if excluded[strings.ToUpper(s.EntityType)] {
			continue
		}
		filtered = append(filtered, s)
	}
	return filtered
}

// AboveScore keeps spans scoring at least minScore. Spans without a score (0) are
// kept when minScore is 0.
func AboveScore(spans []Span, minScore float64) []Span {
	if minScore <= 0 {
		return spans
	}
	filtered := make([]Span, 0, len(spans))
	for _, s := range spans {
		if s.Score >= minScore {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

// ResolveOverlaps returns sorted, non-overlapping spans. Each cluster of
// overlapping spans becomes a single span covering all of them, so every detected
// character is still masked. The merged span takes its entity type, score and
// recognizer from the cluster's best member: higher score, then wider, then
// earlier. Zero-width and negative spans are dropped.
func ResolveOverlaps(spans []Span) []Span {
	candidates := make([]Span, 0, len(spans))
	for _, s := range spans {
		if s.Start >= 0 && s.End > s.Start {
			candidates = append(candidates, s)
		}
	}
	Sort(candidates)

	resolved := make([]Span, 0, len(candidates))
	for i := 0; i < len(candidates); {
		merged := candidates[i]
		best := candidates[i]

		j := i + 1
		for ; j < len(candidates) && candidates[j].Start < merged.End; j++ {
			merged.End = max(merged.End, candidates[j].End)
			if outranks(candidates[j], best) {
				best = candidates[j]
			}
		}

		merged.EntityType = best.EntityType
		merged.Score = best.Score
		merged.Recognizer = best.Recognizer
		resolved = append(resolved, merged)
		i = j
	}

	return resolved
}

// outranks reports whether a is preferred over b when both cover the same text
func outranks(a, b Span) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Len() != b.Len() {
		return a.Len() > b.Len()
	}
	return a.Start < b.Start
}

// CountByType tallies spans per entity type
func CountByType(spans []Span) map[string]int {
	counts := make(map[string]int)
	for _, s := range spans {
		counts[s.EntityType]++
	}
	return counts
}
