// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package table

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

type xlsxReader struct{}

func (x *xlsxReader) Name() string { return "xlsx" }

func (x *xlsxReader) Extensions() []string { return []string{".xlsx"} }

func (x *xlsxReader) MimeTypes() []string {
	return []string{"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"}
}

// Read parses the first worksheet; its first row is the header
func (x *xlsxReader) Read(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("not a valid xlsx workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, errors.New("file is empty")
	}

	// GetRows trims trailing empty cells, so the widest row sets the width
	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}
	header := make([]string, width)
	copy(header, rows[0])

	return New(headerNames(header), rows[1:]), nil
}
