// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package table

import (
	"bytes"
	"errors"
	"io"
	"unicode/utf8"
)

type textReader struct{}

func (t *textReader) Name() string { return "txt" }

func (t *textReader) Extensions() []string { return []string{".txt", ".text", ".log", ".md"} }

func (t *textReader) MimeTypes() []string { return []string{"text/plain", "text/markdown"} }

// Read wraps the whole document as a single text cell
func (t *textReader) Read(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, errors.New("file is not valid UTF-8 text")
	}
	return FromText(string(data)), nil
}
