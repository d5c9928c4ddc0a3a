// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package patterns

import (
	"regexp"
	"strings"
)

// nameToken matches a capitalized word (O'Neil, Smith-Jones) or an initial (J.)
var nameToken = regexp.MustCompile(`[A-Z][a-z]+(?:['-][A-Z]?[a-z]+)*|[A-Z]\.`)

var honorifics = map[string]bool{
	"mr":   true,
	"mrs":  true,
	"ms":   true,
	"miss": true,
	"dr":   true,
	"prof": true,
}

// maxNameTokens bounds how many capitalized words a single name may span
const maxNameTokens = 3

// personRecognizer finds personal names by anchoring on a known first name or an
// honorific and extending over the capitalized words that follow it.
type personRecognizer struct{}

// NewPersonRecognizer detects personal names using the embedded name lists
func NewPersonRecognizer() Recognizer {
	return &personRecognizer{}
}

func (r *personRecognizer) EntityType() string {
	return EntityPerson
}

func (r *personRecognizer) Info() EntityInfo {
	return EntityInfo{
		Name:        EntityPerson,
		Description: "Personal names anchored on a known first name or an honorific (English)",
		Examples:    []string{"John Doe", "Dr. Smith"},
	}
}

func (r *personRecognizer) find(text string) []match {
	db, err := loadNames()
	if err != nil {
		return nil
	}

	tokens := nameToken.FindAllStringIndex(text, -1)
	var found []match

	for i := 0; i < len(tokens); {
		word := strings.ToLower(text[tokens[i][0]:tokens[i][1]])

		start, minTokens := -1, 2
		switch {
		case honorifics[word] && i+1 < len(tokens) && honorificGap(text[tokens[i][1]:tokens[i+1][0]]):
			start, minTokens = i+1, 1
		case db.first[word]:
			start = i
		}
		if start < 0 {
			i++
			continue
		}

		end := start + 1
		for end < len(tokens) && end-start < maxNameTokens && wordGap(text[tokens[end-1][1]:tokens[end][0]]) {
			end++
		}
		// A trailing initial belongs to the next sentence more often than to the name
		for end-start > minTokens && isInitial(text[tokens[end-1][0]:tokens[end-1][1]]) {
			end--
		}
		if end-start < minTokens {
			i++
			continue
		}

		last := strings.ToLower(text[tokens[end-1][0]:tokens[end-1][1]])
		score := 0.6
		if db.last[last] {
			score = 0.85
		}

		found = append(found, match{start: tokens[start][0], end: tokens[end-1][1], score: score})
		i = end
	}
	return found
}

// wordGap accepts the blank run between two words of one name
func wordGap(gap string) bool {
	return gap != "" && strings.Trim(gap, " \t") == ""
}

// honorificGap accepts "Dr Smith" and "Dr. Smith"
func honorificGap(gap string) bool {
	return wordGap(strings.TrimPrefix(gap, "."))
}

func isInitial(word string) bool {
	return len(word) == 2 && word[1] == '.'
}
