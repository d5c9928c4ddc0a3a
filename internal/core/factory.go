// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"pii-anonymizer/internal/anonymizer"
	"pii-anonymizer/internal/config"
	"pii-anonymizer/internal/detector"
	"pii-anonymizer/internal/detector/patterns"
	"pii-anonymizer/internal/detector/presidio"
	"pii-anonymizer/internal/observability"
	"pii-anonymizer/internal/redactor"
)

// Engines lists the supported detector engines
var Engines = []string{patterns.Name, presidio.Name}

// BuildDetector constructs the detector selected by cfg.Detector.Engine
func BuildDetector(cfg *config.Config, observer *observability.StandardObserver) (detector.Detector, error) {
	entities := ParseEntityList(cfg.Detector.Entities)

	switch strings.ToLower(cfg.Detector.Engine) {
	case "", patterns.Name:
		return patterns.New(
			patterns.WithEntities(entities...),
			patterns.WithObserver(observer),
		), nil

	case presidio.Name:
		det, err := presidio.New(presidio.Config{
			URL:            cfg.Detector.Presidio.URL,
			Timeout:        cfg.Detector.Presidio.Timeout,
			MaxRetries:     cfg.Detector.Presidio.MaxRetries,
			ScoreThreshold: cfg.Detector.ScoreThreshold,
			Entities:       entities,
		}, presidio.WithObserver(observer))
		if err != nil {
			return nil, fmt.Errorf("failed to create presidio detector: %w", err)
		}
		return det, nil

	default:
		return nil, fmt.Errorf("unknown detector engine '%s'. Available engines: %s",
			cfg.Detector.Engine, strings.Join(Engines, ", "))
	}
}

// BuildAnonymizer wires det with the redaction settings from cfg
func BuildAnonymizer(cfg *config.Config, det detector.Detector, observer *observability.StandardObserver) (*anonymizer.Anonymizer, error) {
	strategy, err := redactor.ParseStrategy(cfg.Redaction.Strategy)
	if err != nil {
		return nil, err
	}

	maskChar := '*'
	if cfg.Redaction.MaskChar != "" {
		r, size := utf8.DecodeRuneInString(cfg.Redaction.MaskChar)
		if r == utf8.RuneError || size != len(cfg.Redaction.MaskChar) {
			return nil, fmt.Errorf("mask_char must be a single character, got %q", cfg.Redaction.MaskChar)
		}
		maskChar = r
	}

	return anonymizer.New(det, anonymizer.Options{
		Language:        cfg.Detector.Language,
		ExcludeEntities: ParseEntityList(cfg.Redaction.ExcludeEntities),
		AllowList:       cfg.Redaction.AllowList,
		MinScore:        cfg.Detector.ScoreThreshold,
		Masker:          redactor.NewMasker(strategy, maskChar),
		Workers:         cfg.Detector.Workers,
		Observer:        observer,
	}), nil
}

// ParseEntityList normalizes entity names: comma-separated items are split,
// names are trimmed and upper-cased, blanks and duplicates dropped. A single
// "all" means no restriction and returns nil.
func ParseEntityList(items []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, item := range items {
		for _, name := range strings.Split(item, ",") {
			name = strings.ToUpper(strings.TrimSpace(name))
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	if len(out) == 1 && out[0] == "ALL" {
		return nil
	}
	return out
}
