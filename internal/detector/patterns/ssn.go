// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package patterns

import (
	"regexp"
)

var ssnPattern = regexp.MustCompile(`\b\d{3}[- ]\d{2}[- ]\d{4}\b`)

// NewSSNRecognizer detects US Social Security numbers in the AAA-GG-SSSS form
func NewSSNRecognizer() Recognizer {
	return &regexRecognizer{
		entityType: EntitySSN,
		patterns:   []*regexp.Regexp{ssnPattern},
		score:      0.85,
		validate:   validateSSN,
		info: EntityInfo{
			Name:        EntitySSN,
			Description: "US Social Security numbers (area/group/serial validated)",
			Examples:    []string{"536-22-8726"},
		},
	}
}

func validateSSN(candidate string) float64 {
	// separators must agree: 123-45 6789 is not an SSN
	if candidate[3] != candidate[6] {
		return 0
	}
	if !isValidSSN(digitsOnly(candidate)) {
		return 0
	}
	return 0.85
}

// isValidSSN applies the SSA assignment rules to a 9 digit string
func isValidSSN(ssn string) bool {
	if len(ssn) != 9 {
		return false
	}

	area, group, serial := ssn[0:3], ssn[3:5], ssn[5:9]

	// Area 000, 666 and 900-999 are never assigned
	if area == "000" || area == "666" || area[0] == '9' {
		return false
	}
	if group == "00" || serial == "0000" {
		return false
	}

	// Numbers used in advertising and documentation
	switch ssn {
	case "078051120", "219099999", "123456789":
		return false
	}
	return !allSameDigit(ssn)
}
