// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"io"

	"gopkg.in/yaml.v3"
)

type yamlExporter struct{}

func (y *yamlExporter) Name() string { return "yaml" }

func (y *yamlExporter) Description() string {
	return "YAML output with the same structure as JSON"
}

func (y *yamlExporter) FileExtension() string { return ".yaml" }

func (y *yamlExporter) MimeType() string { return "application/x-yaml" }

func (y *yamlExporter) Export(w io.Writer, doc *Document, _ Options) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}
