// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package patterns is the built-in PII detector. It combines regular expressions,
// checksum validation and an embedded name list, and needs no external service.
package patterns

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"pii-anonymizer/internal/detector"
	"pii-anonymizer/internal/observability"
)

// Name is the engine name used in configuration and span provenance
const Name = "patterns"

// EntityInfo describes an entity type the detector can find
type EntityInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Examples    []string `json:"examples,omitempty"`
}

// Detector runs a set of recognizers over text
type Detector struct {
	recognizers []Recognizer
	observer    *observability.StandardObserver
}

// Option configures a Detector
type Option func(*Detector)

// WithRecognizers replaces the default recognizer set
func WithRecognizers(recognizers ...Recognizer) Option {
	return func(d *Detector) {
		d.recognizers = recognizers
	}
}

// WithEntities keeps only the recognizers for the named entity types. An empty
// list keeps all of them.
func WithEntities(entities ...string) Option {
	return func(d *Detector) {
		if len(entities) == 0 {
			return
		}
		wanted := make(map[string]bool, len(entities))
		for _, e := range entities {
			wanted[strings.ToUpper(strings.TrimSpace(e))] = true
		}
		kept := d.recognizers[:0:0]
		for _, r := range d.recognizers {
			if wanted[r.EntityType()] {
				kept = append(kept, r)
			}
		}
		d.recognizers = kept
	}
}

// WithObserver attaches an observer for timing and debug logs
func WithObserver(observer *observability.StandardObserver) Option {
	return func(d *Detector) {
		d.observer = observer
	}
}

// DefaultRecognizers returns one recognizer per supported entity type
func DefaultRecognizers() []Recognizer {
	return []Recognizer{
		NewEmailRecognizer(),
		NewPhoneRecognizer(),
		NewSSNRecognizer(),
		NewCreditCardRecognizer(),
		NewIPAddressRecognizer(),
		NewURLRecognizer(),
		NewPersonRecognizer(),
	}
}

// New creates a pattern detector
func New(opts ...Option) *Detector {
	d := &Detector{recognizers: DefaultRecognizers()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name returns the engine name
func (d *Detector) Name() string {
	return Name
}

// Entities lists the entity types this detector is configured for
func (d *Detector) Entities() []EntityInfo {
	infos := make([]EntityInfo, 0, len(d.recognizers))
	for _, r := range d.recognizers {
		infos = append(infos, r.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Detect returns every candidate span in character offsets, sorted by start.
// Spans of different recognizers may overlap; callers that need a disjoint set
// use detector.ResolveOverlaps. language is accepted for interface parity; the
// structured recognizers are language neutral and the name list is English.
func (d *Detector) Detect(ctx context.Context, text, language string) ([]detector.Span, error) {
	finish := d.observer.StartTiming("patterns", "detect")

	if text == "" {
		finish(true, zap.Int("spans", 0))
		return []detector.Span{}, nil
	}

	index := newRuneIndex(text)
	spans := make([]detector.Span, 0)

	for _, r := range d.recognizers {
		if err := ctx.Err(); err != nil {
			finish(false, zap.Error(err))
			return nil, err
		}
		for _, m := range r.find(text) {
			spans = append(spans, detector.Span{
				Start:      index.runeOffset(m.start),
				End:        index.runeOffset(m.end),
				EntityType: r.EntityType(),
				Score:      m.score,
				Recognizer: Name,
			})
		}
	}

	detector.Sort(spans)
	finish(true, zap.Int("spans", len(spans)), zap.String("language", language))
	return spans, nil
}

// runeIndex converts byte offsets of a string to character offsets
type runeIndex struct {
	ascii bool
	// offsets[b] is the character offset of byte b; only built for non-ASCII text
	offsets []int
}

func newRuneIndex(text string) runeIndex {
	ascii := true
	for i := 0; i < len(text); i++ {
		if text[i] >= utf8.RuneSelf {
			ascii = false
			break
		}
	}
	if ascii {
		return runeIndex{ascii: true}
	}

	offsets := make([]int, len(text)+1)
	n := 0
	for b := 0; b < len(text); {
		_, size := utf8.DecodeRuneInString(text[b:])
		for k := 0; k < size; k++ {
			offsets[b+k] = n
		}
		b += size
		n++
	}
	offsets[len(text)] = n
	return runeIndex{offsets: offsets}
}

func (ri runeIndex) runeOffset(byteOffset int) int {
	if ri.ascii {
		return byteOffset
	}
	return ri.offsets[byteOffset]
}
