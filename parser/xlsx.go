package parser

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXParser renders each sheet as one section of pipe-delimited rows.
type XLSXParser struct{}

func (p *XLSXParser) SupportedFormats() []string { return []string{"xlsx"} }

func (p *XLSXParser) Parse(ctx context.Context, path string) (*Result, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening XLSX %s: %v", ErrParsingFailed, path, err)
	}
	defer f.Close()

	var sections []Section
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}

		var content strings.Builder
		for _, row := range rows {
			content.WriteString("| " + strings.Join(row, " | ") + " |\n")
		}
		sections = append(sections, Section{Heading: sheet, Content: strings.TrimSpace(content.String())})
	}

	if len(sections) == 0 {
		return nil, fmt.Errorf("%w: no data in %s", ErrParsingFailed, path)
	}
	return &Result{
		Sections: sections,
		Metadata: map[string]string{"sheets": strconv.Itoa(len(sections))},
	}, nil
}
