// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package export writes redacted tables in the formats offered for download
// and on the command line.
package export

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"pii-anonymizer/internal/table"
)

// Document is what an exporter writes
type Document struct {
	Table *table.Table `json:"table" yaml:"table"`

	// EntityCounts tallies the masked entities; exporters that only carry
	// cell data ignore it
	EntityCounts map[string]int `json:"entity_counts,omitempty" yaml:"entity_counts,omitempty"`
}

// Options tunes exporter output
type Options struct {
	// NoColor disables ANSI colors in terminal formats
	NoColor bool
}

// Exporter interface defines methods that all output formats must implement
type Exporter interface {
	// Name returns the name of the format (e.g., "xlsx", "csv", "json")
	Name() string

	// Description returns a brief description of what this exporter writes
	Description() string

	// FileExtension returns the file extension including the dot
	FileExtension() string

	// MimeType returns the Content-Type used for downloads
	MimeType() string

	// Export writes doc to w
	Export(w io.Writer, doc *Document, opts Options) error
}

// Registry holds registered exporters
type Registry struct {
	mu        sync.RWMutex
	exporters map[string]Exporter
}

// NewRegistry creates a new exporter registry
func NewRegistry() *Registry {
	return &Registry{
		exporters: make(map[string]Exporter),
	}
}

// Register adds an exporter, replacing any with the same name
func (r *Registry) Register(e Exporter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exporters[e.Name()] = e
}

// Get retrieves an exporter by name
func (r *Registry) Get(name string) (Exporter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, exists := r.exporters[strings.ToLower(name)]
	return e, exists
}

// List returns all registered format names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.exporters))
	for name := range r.exporters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FormatInfo provides metadata about an exporter for the web UI and CLI help
type FormatInfo struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Extension    string `json:"extension"`
	MimeType     string `json:"mime_type"`
	WebSupported bool   `json:"web_supported"`
}

// Info returns metadata about a format; ok is false when it is not registered
func (r *Registry) Info(name string) (FormatInfo, bool) {
	e, ok := r.Get(name)
	if !ok {
		return FormatInfo{}, false
	}
	return FormatInfo{
		Name:        e.Name(),
		Description: e.Description(),
		Extension:   e.FileExtension(),
		MimeType:    e.MimeType(),
		// terminal output makes no sense as a download
		WebSupported: e.Name() != "text",
	}, true
}

// Export writes doc in the named format
func (r *Registry) Export(w io.Writer, format string, doc *Document, opts Options) error {
	e, exists := r.Get(format)
	if !exists {
		return fmt.Errorf("unsupported format '%s'. Available formats: %s", format, strings.Join(r.List(), ", "))
	}
	if doc == nil || doc.Table == nil {
		return fmt.Errorf("nothing to export")
	}
	return e.Export(w, doc, opts)
}

// DefaultRegistry is the global exporter registry
var DefaultRegistry = NewRegistry()

// Register is a convenience function to register an exporter with the default registry
func Register(e Exporter) {
	DefaultRegistry.Register(e)
}

// Get is a convenience function to get an exporter from the default registry
func Get(name string) (Exporter, bool) {
	return DefaultRegistry.Get(name)
}

// List is a convenience function to list all formats in the default registry
func List() []string {
	return DefaultRegistry.List()
}

// Info is a convenience function returning format metadata from the default registry
func Info(name string) (FormatInfo, bool) {
	return DefaultRegistry.Info(name)
}

// Export writes doc with the default registry
func Export(w io.Writer, format string, doc *Document, opts Options) error {
	return DefaultRegistry.Export(w, format, doc, opts)
}

// WebFormats returns information about the formats offered for download
func WebFormats() []FormatInfo {
	var formats []FormatInfo
	for _, name := range List() {
		if info, ok := Info(name); ok && info.WebSupported {
			formats = append(formats, info)
		}
	}
	return formats
}

// Filename joins a base name with the format's extension
func Filename(base, format string) string {
	info, ok := Info(format)
	if !ok {
		return base
	}
	return base + info.Extension
}

func init() {
	Register(&xlsxExporter{})
	Register(&csvExporter{})
	Register(&jsonExporter{})
	Register(&yamlExporter{})
	Register(newTextExporter())
}
