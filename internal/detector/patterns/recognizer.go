// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package patterns

import (
	"regexp"
)

// Entity types produced by the built-in recognizers. Names follow the
// Presidio analyzer vocabulary so both detectors can share exclusion lists.
const (
	EntityEmail      = "EMAIL_ADDRESS"
	EntityPhone      = "PHONE_NUMBER"
	EntitySSN        = "US_SSN"
	EntityCreditCard = "CREDIT_CARD"
	EntityIPAddress  = "IP_ADDRESS"
	EntityURL        = "URL"
	EntityPerson     = "PERSON"
)

// match is a candidate found by a recognizer, in byte offsets of the input
type match struct {
	start int
	end   int
	score float64
}

// Recognizer finds one entity type in text
type Recognizer interface {
	// EntityType returns the entity tag this recognizer emits
	EntityType() string

	// Info describes the recognizer for listings
	Info() EntityInfo

	// find returns candidate matches in byte offsets
	find(text string) []match
}

// regexRecognizer matches one or more patterns and keeps candidates that pass an
// optional validation function.
type regexRecognizer struct {
	entityType string
	info       EntityInfo
	patterns   []*regexp.Regexp
	score      float64

	// validate inspects the matched text and returns the score to use, or 0 to reject
	validate func(candidate string) float64

	// bounded rejects candidates glued to surrounding tokens
	bounded func(text string, start, end int) bool
}

func (r *regexRecognizer) EntityType() string {
	return r.entityType
}

func (r *regexRecognizer) Info() EntityInfo {
	return r.info
}

func (r *regexRecognizer) find(text string) []match {
	var found []match
	seen := make(map[[2]int]bool)

	for _, pattern := range r.patterns {
		for _, loc := range pattern.FindAllStringIndex(text, -1) {
			key := [2]int{loc[0], loc[1]}
			if seen[key] {
				continue
			}
			seen[key] = true

			if r.bounded != nil && !r.bounded(text, loc[0], loc[1]) {
				continue
			}

			score := r.score
			if r.validate != nil {
				score = r.validate(text[loc[0]:loc[1]])
			}
			if score <= 0 {
				continue
			}
			found = append(found, match{start: loc[0], end: loc[1], score: score})
		}
	}
	return found
}

// digitsOnly strips everything but ASCII digits
func digitsOnly(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			out = append(out, s[i])
		}
	}
	return string(out)
}

// allSameDigit reports whether every character of a digit string is identical
func allSameDigit(digits string) bool {
	if digits == "" {
		return false
	}
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			return false
		}
	}
	return true
}
