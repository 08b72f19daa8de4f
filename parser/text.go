package parser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TextParser handles plain text and markdown files.
type TextParser struct{}

func (p *TextParser) SupportedFormats() []string { return []string{"txt", "text", "md"} }

func (p *TextParser) Parse(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrParsingFailed, path, err)
	}

	content := strings.TrimSpace(string(data))
	if content == "" {
		return &Result{}, nil
	}

	if strings.EqualFold(filepath.Ext(path), ".md") {
		return &Result{Sections: markdownSections(content)}, nil
	}

	return &Result{
		Sections: []Section{{Heading: filepath.Base(path), Content: content}},
	}, nil
}

// markdownSections splits markdown on top-of-line # headings, stripping the
// marker so downstream text is prose only.
func markdownSections(content string) []Section {
	var sections []Section
	var heading string
	var body strings.Builder

	flush := func() {
		text := strings.TrimSpace(body.String())
		if heading != "" || text != "" {
			sections = append(sections, Section{Heading: heading, Content: text})
		}
		body.Reset()
	}

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			flush()
			heading = strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			continue
		}
		body.WriteString(line)
		body.WriteString("\n")
	}
	flush()
	return sections
}
