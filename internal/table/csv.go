// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type csvReader struct{}

func (c *csvReader) Name() string { return "csv" }

func (c *csvReader) Extensions() []string { return []string{".csv"} }

func (c *csvReader) MimeTypes() []string {
	return []string{"text/csv", "application/csv", "application/vnd.ms-excel"}
}

// Read parses a CSV file whose first record is the header. Rows may have a
// varying number of fields; they are padded or truncated to the header width.
func (c *csvReader) Read(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, errors.New("file is not valid UTF-8 text")
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("malformed csv: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("file is empty")
	}

	return New(headerNames(records[0]), records[1:]), nil
}

// headerNames fills blank header cells and renames repeated ones ("name",
// "name.1", "name.2") the way dataframe readers do, so every column is addressable.
func headerNames(header []string) []string {
	names := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, dup := seen[h]; dup {
			base := h
			for {
				h = fmt.Sprintf("%s.%d", base, n)
				n++
				if _, taken := seen[h]; !taken {
					break
				}
			}
			seen[base] = n
		}
		seen[h]++
		names[i] = h
	}
	return names
}
