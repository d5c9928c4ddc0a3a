// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package patterns

import (
	"regexp"
)

const phoneExtension = `(?:\s?(?:ext\.?|x)\s?\d{1,6})?`

var phonePatterns = []*regexp.Regexp{
	// (555) 123-4567
	regexp.MustCompile(`\(\d{3}\)\s?\d{3}[-.\s]?\d{4}\b` + phoneExtension),
	// 555-123-4567, 555.123.4567, 555 123 4567
	regexp.MustCompile(`\b\d{3}[-.\s]\d{3}[-.\s]\d{4}\b` + phoneExtension),
	// +1 555 123 4567, +1-(555)-123-4567
	regexp.MustCompile(`\+1[-.\s]?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b` + phoneExtension),
	// +44 20 7946 0958, +49 30 1234 5678
	regexp.MustCompile(`\+\d{1,3}[-.\s]?\d{1,4}(?:[-.\s]?\d{2,4}){2,4}\b`),
}

// NewPhoneRecognizer detects North American and international phone numbers
func NewPhoneRecognizer() Recognizer {
	return &regexRecognizer{
		entityType: EntityPhone,
		patterns:   phonePatterns,
		score:      0.75,
		validate:   validatePhone,
		info: EntityInfo{
			Name:        EntityPhone,
			Description: "Phone numbers in North American or international (+CC) format",
			Examples:    []string{"(555) 123-4567", "+44 20 7946 0958"},
		},
	}
}

func validatePhone(candidate string) float64 {
	digits := digitsOnly(candidate)
	if len(digits) < 10 || len(digits) > 18 {
		return 0
	}
	if allSameDigit(digits) {
		return 0
	}

	// North American numbers: area code and exchange cannot start with 0 or 1
	if len(digits) == 10 || (len(digits) == 11 && digits[0] == '1') {
		nanp := digits[len(digits)-10:]
		if nanp[0] == '0' || nanp[0] == '1' {
			return 0.4
		}
	}
	return 0.75
}
