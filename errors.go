package kgen

import "errors"

var (
	// ErrConfig is returned for invalid configuration values.
	ErrConfig = errors.New("kgen: invalid configuration")

	// ErrUnsupportedFormat is returned for unrecognized file or output formats.
	ErrUnsupportedFormat = errors.New("kgen: unsupported format")

	// ErrParsingFailed is returned when document parsing fails.
	ErrParsingFailed = errors.New("kgen: parsing failed")

	// ErrExtraction is returned when the annotated document cannot be
	// processed for relation extraction.
	ErrExtraction = errors.New("kgen: extraction failed")

	// ErrValidation is returned when graph assembly receives inconsistent
	// input.
	ErrValidation = errors.New("kgen: graph validation failed")

	// ErrNotFound is returned when a requested relation or document does
	// not exist.
	ErrNotFound = errors.New("kgen: not found")

	// ErrNoArchive is returned when an archive operation is requested but
	// no archive is configured.
	ErrNoArchive = errors.New("kgen: no archive configured")
)
