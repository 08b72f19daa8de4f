// Package parser extracts plain text from document files. Each format has
// its own parser; the Registry routes by file extension.
package parser

import (
	"context"
	"errors"
	"strings"
)

// ErrUnsupportedFormat is returned when no parser handles a format.
var ErrUnsupportedFormat = errors.New("parser: unsupported format")

// ErrParsingFailed is returned when a file is recognized but cannot be read.
var ErrParsingFailed = errors.New("parser: parsing failed")

// Section is a logical chunk of a parsed document.
type Section struct {
	Heading string
	Content string
	Page    int
}

// Result is the extraction output for one file.
type Result struct {
	Sections []Section
	Format   string
	Metadata map[string]string
}

// Text flattens the sections into the plain text fed to annotation.
// Headings are kept as their own lines so sentence splitting sees them.
func (r *Result) Text() string {
	var b strings.Builder
	for _, s := range r.Sections {
		if s.Heading != "" {
			b.WriteString(s.Heading)
			b.WriteString("\n")
		}
		if s.Content != "" {
			b.WriteString(s.Content)
			b.WriteString("\n\n")
		}
	}
	return strings.TrimSpace(b.String())
}

// Parser extracts text from a specific document format.
type Parser interface {
	Parse(ctx context.Context, path string) (*Result, error)
	SupportedFormats() []string
}
