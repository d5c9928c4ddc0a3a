// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package patterns

import (
	"net/netip"
	"regexp"
	"strings"
)

var (
	ipv4Pattern = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}(?:/\d{1,2})?\b`)
	ipv6Pattern = regexp.MustCompile(`(?i)(?:[0-9a-f]{0,4}:){2,7}[0-9a-f]{0,4}(?:/\d{1,3})?`)
)

// NewIPAddressRecognizer detects IPv4 and IPv6 addresses, with optional prefix length
func NewIPAddressRecognizer() Recognizer {
	return &regexRecognizer{
		entityType: EntityIPAddress,
		patterns:   []*regexp.Regexp{ipv4Pattern, ipv6Pattern},
		score:      0.95,
		validate:   validateIPAddress,
		bounded:    ipBoundary,
		info: EntityInfo{
			Name:        EntityIPAddress,
			Description: "IPv4 and IPv6 addresses and CIDR prefixes",
			Examples:    []string{"192.168.10.4", "2001:db8::ff00:42:8329"},
		},
	}
}

func validateIPAddress(candidate string) float64 {
	addr := candidate
	if slash := strings.IndexByte(candidate, '/'); slash >= 0 {
		prefix, err := netip.ParsePrefix(candidate)
		if err != nil {
			return 0
		}
		addr = prefix.Addr().String()
	}

	ip, err := netip.ParseAddr(addr)
	if err != nil {
		return 0
	}

	if ip.Is6() && !strings.Contains(candidate, "::") && strings.Count(candidate, ":") < 7 {
		return 0
	}
	if ip.IsUnspecified() {
		return 0.5
	}
	return 0.95
}

// ipBoundary rejects matches that are part of a longer token such as
// std::vector or a 1.2.3.4.5 version string.
func ipBoundary(text string, start, end int) bool {
	if start > 0 && isAddressChar(text[start-1]) {
		return false
	}
	if end < len(text) {
		next := text[end]
		if next == '.' {
			return end+1 >= len(text) || !isAlnum(text[end+1])
		}
		if isAddressChar(next) {
			return false
		}
	}
	return true
}

func isAddressChar(c byte) bool {
	return isAlnum(c) || c == ':' || c == '.'
}

func isAlnum(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
