// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"pii-anonymizer/internal/table"
)

// SheetName is the worksheet written by the xlsx exporter
const SheetName = "Sheet1"

type xlsxExporter struct{}

func (x *xlsxExporter) Name() string { return "xlsx" }

func (x *xlsxExporter) Description() string {
	return "Excel workbook with a single sheet and a bold header row"
}

func (x *xlsxExporter) FileExtension() string { return ".xlsx" }

func (x *xlsxExporter) MimeType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Export writes the header on the first row and no index column. Cells of
// number and bool columns are stored as typed values.
func (x *xlsxExporter) Export(w io.Writer, doc *Document, _ Options) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	t := doc.Table
	header := make([]interface{}, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	if len(t.Columns) > 0 {
		bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return err
		}
		last, err := excelize.CoordinatesToCellName(len(t.Columns), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
			return err
		}
	}

	kinds := t.ColumnKinds()
	for r, row := range t.Rows {
		values := make([]interface{}, len(row))
		for c, cell := range row {
			values[c] = typedCell(cell, kinds[c])
		}
		start, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, start, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r+1, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// typedCell converts a cell for storage. Blank cells stay empty.
func typedCell(cell string, kind table.ColumnKind) interface{} {
	s := strings.TrimSpace(cell)
	if s == "" {
		return nil
	}
	switch kind {
	case table.KindNumber:
		if v, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
			return v
		}
	case table.KindBool:
		return strings.EqualFold(s, "true")
	}
	return cell
}
