// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"pii-anonymizer/internal/table"
)

func sampleDoc() *Document {
	return &Document{
		Table: table.New(
			[]string{"name", "age", "active"},
			[][]string{
				{"********", "42", "true"},
				{"Jane, Esq.", "3.5", ""},
			},
		),
		EntityCounts: map[string]int{"PERSON": 1},
	}
}

func TestRegistry_List(t *testing.T) {
	assert.Equal(t, []string{"csv", "json", "text", "xlsx", "yaml"}, List())

	_, ok := Get("XLSX")
	assert.True(t, ok)

	var web []string
	for _, f := range WebFormats() {
		web = append(web, f.Name)
	}
	assert.Equal(t, []string{"csv", "json", "xlsx", "yaml"}, web)
}

func TestInfo(t *testing.T) {
	info, ok := Info("xlsx")
	require.True(t, ok)
	assert.Equal(t, ".xlsx", info.Extension)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", info.MimeType)

	_, ok = Info("pdf")
	assert.False(t, ok)

	assert.Equal(t, "redacted_text.xlsx", Filename("redacted_text", "xlsx"))
	assert.Equal(t, "redacted_data.csv", Filename("redacted_data", "csv"))
}

func TestExport_Unsupported(t *testing.T) {
	err := Export(&bytes.Buffer{}, "docx", sampleDoc(), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Available formats: csv, json, text, xlsx, yaml")

	assert.Error(t, Export(&bytes.Buffer{}, "csv", &Document{}, Options{}))
}

func TestExport_XLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, "xlsx", sampleDoc(), Options{}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"name", "age", "active"},
		{"********", "42", "TRUE"},
		{"Jane, Esq.", "3.5"},
	}, rows)

	typ, err := f.GetCellType(SheetName, "B2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, typ)
	assert.NotEqual(t, excelize.CellTypeInlineString, typ)

	styleID, err := f.GetCellStyle(SheetName, "A1")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	require.NotNil(t, style.Font)
	assert.True(t, style.Font.Bold)
}

func TestExport_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, "csv", sampleDoc(), Options{}))
	assert.Equal(t, "name,age,active\n********,42,true\n\"Jane, Esq.\",3.5,\n", buf.String())
}

func TestExport_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, "json", sampleDoc(), Options{}))

	var got struct {
		Table struct {
			Columns []string   `json:"columns"`
			Rows    [][]string `json:"rows"`
		} `json:"table"`
		EntityCounts map[string]int `json:"entity_counts"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, []string{"name", "age", "active"}, got.Table.Columns)
	assert.Equal(t, "********", got.Table.Rows[0][0])
	assert.Equal(t, 1, got.EntityCounts["PERSON"])
}

func TestExport_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, "yaml", sampleDoc(), Options{}))

	var got map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Contains(t, got, "table")
	assert.Contains(t, got, "entity_counts")
}

func TestExport_TextWrapped(t *testing.T) {
	doc := &Document{
		Table:        table.FromText("Contact ******** at ****************"),
		EntityCounts: map[string]int{"PERSON": 1, "EMAIL_ADDRESS": 1},
	}

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, "text", doc, Options{NoColor: true}))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Contact ******** at ****************\n"))
	assert.Contains(t, out, "Redacted 2 entities:")
	assert.Contains(t, out, "EMAIL_ADDRESS")
	assert.NotContains(t, out, "\x1b[")
}

func TestExport_TextGrid(t *testing.T) {
	doc := &Document{Table: table.New(
		[]string{"name", "notes"},
		[][]string{{"****", "line one\nline two"}, {"Jane", strings.Repeat("x", 80)}},
	)}

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, "text", doc, Options{NoColor: true}))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "name  notes"))
	assert.Equal(t, "****  line one line two", strings.TrimRight(lines[1], " "))
	assert.True(t, strings.HasSuffix(lines[2], "…"))
}
