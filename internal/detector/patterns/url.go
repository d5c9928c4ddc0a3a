// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package patterns

import (
	"net/url"
	"regexp"
	"strings"
)

var urlPattern = regexp.MustCompile(`(?i)\b(?:https?://|ftp://|www\.)[^\s<>"'()\[\]{}]+`)

const urlTrailingPunctuation = ".,;:!?"

// urlRecognizer trims sentence punctuation that the greedy pattern swallows
type urlRecognizer struct {
	regexRecognizer
}

// NewURLRecognizer detects http(s), ftp and www. URLs
func NewURLRecognizer() Recognizer {
	return &urlRecognizer{regexRecognizer{
		entityType: EntityURL,
		patterns:   []*regexp.Regexp{urlPattern},
		score:      0.6,
		info: EntityInfo{
			Name:        EntityURL,
			Description: "Web addresses; excluded from redaction by default",
			Examples:    []string{"https://example.com/profile?id=7"},
		},
	}}
}

func (r *urlRecognizer) find(text string) []match {
	raw := r.regexRecognizer.find(text)
	found := raw[:0]

	for _, m := range raw {
		candidate := strings.TrimRight(text[m.start:m.end], urlTrailingPunctuation)
		if !isURL(candidate) {
			continue
		}
		m.end = m.start + len(candidate)
		found = append(found, m)
	}
	return found
}

func isURL(candidate string) bool {
	if strings.HasPrefix(strings.ToLower(candidate), "www.") {
		candidate = "http://" + candidate
	}
	u, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	return u.Host != "" && strings.Contains(u.Host, ".")
}
