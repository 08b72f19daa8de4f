package parser

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFParser extracts text from PDFs page by page, splitting pages into
// sections on heading-like lines.
type PDFParser struct{}

func (p *PDFParser) SupportedFormats() []string { return []string{"pdf"} }

func (p *PDFParser) Parse(ctx context.Context, path string) (*Result, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening PDF %s: %v", ErrParsingFailed, path, err)
	}
	defer f.Close()

	var sections []Section
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Pages that fail to extract are skipped, not fatal.
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		sections = append(sections, splitPage(text, i)...)
	}

	if len(sections) == 0 {
		return nil, fmt.Errorf("%w: no extractable text in %s", ErrParsingFailed, path)
	}
	return &Result{Sections: sections}, nil
}

// splitPage breaks one page's text into sections at heading-like lines.
func splitPage(text string, page int) []Section {
	var sections []Section
	var heading string
	var body strings.Builder

	flush := func() {
		content := strings.TrimSpace(body.String())
		if content != "" {
			sections = append(sections, Section{Heading: heading, Content: content, Page: page})
		}
		body.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if isLikelyHeading(trimmed) {
			flush()
			heading = trimmed
			continue
		}
		if body.Len() > 0 {
			body.WriteString("\n")
		}
		body.WriteString(trimmed)
	}
	flush()

	if len(sections) == 0 {
		sections = append(sections, Section{Content: text, Page: page})
	}
	return sections
}

// isLikelyHeading flags short all-caps lines, numbered section lines, and
// common heading prefixes.
func isLikelyHeading(line string) bool {
	if len(line) > 120 {
		return false
	}
	if len(line) > 2 && len(line) < 100 && line == strings.ToUpper(line) && line != strings.ToLower(line) {
		return true
	}
	if line[0] >= '0' && line[0] <= '9' && strings.Contains(line[:min(10, len(line))], ".") {
		return true
	}
	lower := strings.ToLower(line)
	for _, prefix := range []string{"section ", "chapter ", "part ", "appendix "} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}
