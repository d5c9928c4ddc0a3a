// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package table

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// maxPDFPages bounds extraction time for very large documents
const maxPDFPages = 50

type pdfReader struct{}

func (p *pdfReader) Name() string { return "pdf" }

func (p *pdfReader) Extensions() []string { return []string{".pdf"} }

func (p *pdfReader) MimeTypes() []string { return []string{"application/pdf"} }

// Read extracts the text of every page and wraps it as a single text cell.
// Pages are separated by blank lines.
func (p *pdfReader) Read(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	doc, err := openPDF(data)
	if err != nil {
		return nil, fmt.Errorf("not a valid pdf: %w", err)
	}

	pages := min(doc.NumPage(), maxPDFPages)
	texts := make([]string, 0, pages)
	for i := 1; i <= pages; i++ {
		page := doc.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := pageText(page)
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			texts = append(texts, text)
		}
	}

	if len(texts) == 0 {
		return nil, errors.New("no extractable text found in pdf")
	}
	return FromText(strings.Join(texts, "\n\n")), nil
}

func openPDF(data []byte) (doc *pdf.Reader, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("%v", r)
		}
	}()
	return pdf.NewReader(bytes.NewReader(data), int64(len(data)))
}

// pageText rebuilds lines from positioned text runs, top of the page first
func pageText(page pdf.Page) (text string, err error) {
	// the pdf library panics on some malformed content streams
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed page content: %v", r)
		}
	}()

	rows, err := page.GetTextByRow()
	if err != nil {
		return page.GetPlainText(nil)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Position > rows[j].Position })

	var b strings.Builder
	for _, row := range rows {
		if row == nil || len(row.Content) == 0 {
			continue
		}
		runs := append([]pdf.Text(nil), row.Content...)
		sort.SliceStable(runs, func(i, j int) bool { return runs[i].X < runs[j].X })

		var line strings.Builder
		for k, run := range runs {
			// insert a space where the gap between runs is wider than a narrow glyph
			if k > 0 {
				prev := runs[k-1]
				if run.X-(prev.X+prev.W) > prev.FontSize*0.2 && !strings.HasSuffix(prev.S, " ") {
					line.WriteByte(' ')
				}
			}
			line.WriteString(run.S)
		}
		if s := strings.TrimRight(line.String(), " "); s != "" {
			b.WriteString(s)
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}
