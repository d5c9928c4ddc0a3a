// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package patterns

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

// NewEmailRecognizer detects email addresses
func NewEmailRecognizer() Recognizer {
	return &regexRecognizer{
		entityType: EntityEmail,
		patterns:   []*regexp.Regexp{emailPattern},
		score:      1.0,
		validate:   validateEmail,
		info: EntityInfo{
			Name:        EntityEmail,
			Description: "Email addresses (local@domain.tld)",
			Examples:    []string{"jane.roe@corp.io"},
		},
	}
}

func validateEmail(candidate string) float64 {
	at := strings.LastIndex(candidate, "@")
	if at <= 0 || at == len(candidate)-1 {
		return 0
	}
	local, domain := candidate[:at], candidate[at+1:]

	if strings.HasPrefix(local, ".") || strings.HasSuffix(local, ".") || strings.Contains(local, "..") {
		return 0
	}
	if strings.HasPrefix(domain, "-") || strings.HasPrefix(domain, ".") || strings.Contains(domain, "..") {
		return 0
	}
	return 1.0
}
