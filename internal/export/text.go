// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"

	"pii-anonymizer/internal/table"
)

// maxCellWidth truncates wide cells in the terminal table
const maxCellWidth = 60

// textExporter renders for a terminal. Wrapped free text is printed as is;
// other tables are printed as aligned columns.
type textExporter struct {
	header  *color.Color
	entity  *color.Color
	summary *color.Color
}

func newTextExporter() *textExporter {
	return &textExporter{
		header:  color.New(color.FgCyan, color.Bold),
		entity:  color.New(color.FgYellow),
		summary: color.New(color.FgWhite, color.Bold),
	}
}

func (t *textExporter) Name() string { return "text" }

func (t *textExporter) Description() string {
	return "Human-readable terminal output with colors"
}

func (t *textExporter) FileExtension() string { return ".txt" }

func (t *textExporter) MimeType() string { return "text/plain" }

func (t *textExporter) Export(w io.Writer, doc *Document, opts Options) error {
	header, entity, summary := *t.header, *t.entity, *t.summary
	if opts.NoColor {
		header.DisableColor()
		entity.DisableColor()
		summary.DisableColor()
	}

	var b strings.Builder
	tbl := doc.Table
	if isWrappedText(tbl) {
		b.WriteString(tbl.Rows[0][0])
		if !strings.HasSuffix(tbl.Rows[0][0], "\n") {
			b.WriteByte('\n')
		}
	} else {
		writeGrid(&b, tbl, &header)
	}

	if len(doc.EntityCounts) > 0 {
		types := make([]string, 0, len(doc.EntityCounts))
		total := 0
		for k, n := range doc.EntityCounts {
			types = append(types, k)
			total += n
		}
		sort.Strings(types)

		b.WriteByte('\n')
		b.WriteString(summary.Sprintf("Redacted %d entities:", total))
		b.WriteByte('\n')
		for _, k := range types {
			fmt.Fprintf(&b, "  %s %d\n", entity.Sprintf("%-16s", k), doc.EntityCounts[k])
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func isWrappedText(t *table.Table) bool {
	return len(t.Columns) == 1 && t.Columns[0] == table.TextColumn && len(t.Rows) == 1
}

func writeGrid(b *strings.Builder, t *table.Table, header *color.Color) {
	widths := make([]int, len(t.Columns))
	for i, c := range t.Columns {
		widths[i] = utf8.RuneCountInString(c)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			widths[i] = max(widths[i], min(utf8.RuneCountInString(flatten(cell)), maxCellWidth))
		}
	}

	for i, c := range t.Columns {
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(header.Sprint(pad(c, widths[i])))
	}
	b.WriteByte('\n')

	for _, row := range t.Rows {
		for i, cell := range row {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(pad(flatten(cell), widths[i]))
		}
		b.WriteByte('\n')
	}
}

// flatten keeps multi-line cells on one terminal row
func flatten(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\t", " ").Replace(s)
}

func pad(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n > width {
		r := []rune(s)
		return string(r[:width-1]) + "…"
	}
	return s + strings.Repeat(" ", width-n)
}
