// Package export serializes knowledge graphs to the supported RDF
// concrete syntaxes.
package export

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedFormat is returned for format names outside the registry.
var ErrUnsupportedFormat = errors.New("export: unsupported format")

// Format identifies a serialization syntax.
type Format string

const (
	FormatTurtle Format = "turtle"
	FormatXML    Format = "xml"
	FormatJSONLD Format = "json-ld"
)

// formatInfo carries the metadata the CLI and server surface per format.
type formatInfo struct {
	mime string
	ext  string
}

var formats = map[Format]formatInfo{
	FormatTurtle: {mime: "text/turtle", ext: ".ttl"},
	FormatXML:    {mime: "application/rdf+xml", ext: ".rdf"},
	FormatJSONLD: {mime: "application/ld+json", ext: ".jsonld"},
}

// ParseFormat resolves a user-supplied format name, accepting the common
// aliases ("ttl", "rdf", "jsonld").
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "turtle", "ttl":
		return FormatTurtle, nil
	case "xml", "rdf", "rdf/xml", "rdfxml":
		return FormatXML, nil
	case "json-ld", "jsonld", "json":
		return FormatJSONLD, nil
	default:
		return "", fmt.Errorf("%w: %q (want turtle, xml, or json-ld)", ErrUnsupportedFormat, name)
	}
}

// MIME returns the media type for a format.
func (f Format) MIME() string { return formats[f].mime }

// Ext returns the conventional file extension, dot included.
func (f Format) Ext() string { return formats[f].ext }

// Formats lists the supported formats in stable order.
func Formats() []Format {
	return []Format{FormatTurtle, FormatXML, FormatJSONLD}
}
