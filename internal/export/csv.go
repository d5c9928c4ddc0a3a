// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"encoding/csv"
	"io"
)

type csvExporter struct{}

func (c *csvExporter) Name() string { return "csv" }

func (c *csvExporter) Description() string {
	return "Comma-separated values for spreadsheet import"
}

func (c *csvExporter) FileExtension() string { return ".csv" }

func (c *csvExporter) MimeType() string { return "text/csv" }

func (c *csvExporter) Export(w io.Writer, doc *Document, _ Options) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(doc.Table.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(doc.Table.Rows); err != nil {
		return err
	}
	return cw.Error()
}
