// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package table

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrUnsupportedFormat is returned for uploads no reader accepts
var ErrUnsupportedFormat = errors.New("unsupported file type")

// Reader parses one input format into a table
type Reader interface {
	// Name returns the format identifier, e.g. "csv"
	Name() string

	// Extensions returns the file extensions handled, with leading dot
	Extensions() []string

	// MimeTypes returns the content types handled
	MimeTypes() []string

	// Read parses r
	Read(r io.Reader) (*Table, error)
}

var readers = []Reader{
	&csvReader{},
	&xlsxReader{},
	&textReader{},
	&pdfReader{},
}

// ReaderFor selects a reader by file extension, falling back to the content type
func ReaderFor(filename, contentType string) (Reader, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, r := range readers {
		for _, e := range r.Extensions() {
			if e == ext {
				return r, nil
			}
		}
	}

	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		for _, r := range readers {
			for _, m := range r.MimeTypes() {
				if m == mediaType {
					return r, nil
				}
			}
		}
	}

	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Base(filename))
}

// Read parses an upload named filename with the given content type
func Read(filename, contentType string, r io.Reader) (*Table, error) {
	reader, err := ReaderFor(filename, contentType)
	if err != nil {
		return nil, err
	}

	t, err := reader.Read(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s file %q: %w", reader.Name(), filepath.Base(filename), err)
	}
	return t, nil
}

// ReadFile opens and parses the file at path
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return Read(path, "", f)
}

// SupportedExtensions lists every accepted extension, sorted
func SupportedExtensions() []string {
	var exts []string
	for _, r := range readers {
		exts = append(exts, r.Extensions()...)
	}
	sort.Strings(exts)
	return exts
}
