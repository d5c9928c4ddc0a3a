// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package patterns

import (
	"regexp"
)

var creditCardPattern = regexp.MustCompile(`\b(?:\d[ -]?){12,18}\d\b`)

// NewCreditCardRecognizer detects payment card numbers that pass the Luhn check
func NewCreditCardRecognizer() Recognizer {
	return &regexRecognizer{
		entityType: EntityCreditCard,
		patterns:   []*regexp.Regexp{creditCardPattern},
		score:      1.0,
		validate:   validateCreditCard,
		info: EntityInfo{
			Name:        EntityCreditCard,
			Description: "Payment card numbers, 13 to 19 digits, Luhn checked",
			Examples:    []string{"4111 1111 1111 1111"},
		},
	}
}

func validateCreditCard(candidate string) float64 {
	digits := digitsOnly(candidate)
	if len(digits) < 13 || len(digits) > 19 {
		return 0
	}
	if allSameDigit(digits) || !luhnCheck(digits) {
		return 0
	}
	return 1.0
}

// luhnCheck validates a digit string with the Luhn (mod 10) algorithm
func luhnCheck(digits string) bool {
	sum := 0
	double := false

	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
