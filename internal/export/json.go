// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"encoding/json"
	"io"
)

type jsonExporter struct{}

func (j *jsonExporter) Name() string { return "json" }

func (j *jsonExporter) Description() string {
	return "Structured JSON output for programmatic consumption"
}

func (j *jsonExporter) FileExtension() string { return ".json" }

func (j *jsonExporter) MimeType() string { return "application/json" }

func (j *jsonExporter) Export(w io.Writer, doc *Document, _ Options) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
