// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package table holds tabular input and output: a header row plus string cells,
// read from CSV, XLSX, plain text or PDF uploads.
package table

import (
	"strconv"
	"strings"
)

// TextColumn is the column name used when free text is wrapped as a table
const TextColumn = "text"

// ColumnKind is the inferred type of a column
type ColumnKind int

const (
	// KindEmpty columns have no non-blank cells
	KindEmpty ColumnKind = iota
	// KindNumber columns hold only numeric cells
	KindNumber
	// KindBool columns hold only true/false cells
	KindBool
	// KindText columns hold at least one cell that is neither numeric nor boolean
	KindText
)

func (k ColumnKind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Table is a rectangular grid of string cells with named columns
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// New creates a table. Short rows are padded and long rows truncated to the
// number of columns.
func New(columns []string, rows [][]string) *Table {
	t := &Table{
		Columns: append([]string(nil), columns...),
		Rows:    make([][]string, 0, len(rows)),
	}
	for _, row := range rows {
		normalized := make([]string, len(columns))
		copy(normalized, row)
		t.Rows = append(t.Rows, normalized)
	}
	return t
}

// FromText wraps free text as a one-row table with a single "text" column
func FromText(text string) *Table {
	return New([]string{TextColumn}, [][]string{{text}})
}

// NumRows returns the number of data rows
func (t *Table) NumRows() int {
	return len(t.Rows)
}

// Clone returns a deep copy
func (t *Table) Clone() *Table {
	return New(t.Columns, t.Rows)
}

// ColumnKind infers the type of column i the way a dataframe library infers
// column dtypes: blank cells are ignored, and any remaining cell that is not a
// number or boolean makes the column text.
func (t *Table) ColumnKind(i int) ColumnKind {
	numbers, bools, others := 0, 0, 0

	for _, row := range t.Rows {
		cell := strings.TrimSpace(row[i])
		switch {
		case cell == "":
		case isNumber(cell):
			numbers++
		case isBool(cell):
			bools++
		default:
			others++
		}
	}

	switch {
	case others > 0:
		return KindText
	case numbers > 0 && bools > 0:
		// mixed columns are stored as generic objects
		return KindText
	case numbers > 0:
		return KindNumber
	case bools > 0:
		return KindBool
	default:
		return KindEmpty
	}
}

// ColumnKinds infers every column
func (t *Table) ColumnKinds() []ColumnKind {
	kinds := make([]ColumnKind, len(t.Columns))
	for i := range t.Columns {
		kinds[i] = t.ColumnKind(i)
	}
	return kinds
}

// TextColumns returns the indexes of text columns
func (t *Table) TextColumns() []int {
	var cols []int
	for i := range t.Columns {
		if t.ColumnKind(i) == KindText {
			cols = append(cols, i)
		}
	}
	return cols
}

// isNumber accepts decimal and scientific notation plus NaN and Inf
func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func isBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "false":
		return true
	}
	return false
}
