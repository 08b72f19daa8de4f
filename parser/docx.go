package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// DOCXParser extracts paragraph text from word/document.xml, splitting the
// document into sections at heading-styled paragraphs.
type DOCXParser struct{}

func (p *DOCXParser) SupportedFormats() []string { return []string{"docx"} }

func (p *DOCXParser) Parse(ctx context.Context, path string) (*Result, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening DOCX %s: %v", ErrParsingFailed, path, err)
	}
	defer r.Close()

	var docFile *zip.File
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return nil, fmt.Errorf("%w: word/document.xml not found in %s", ErrParsingFailed, path)
	}

	rc, err := docFile.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: opening document.xml: %v", ErrParsingFailed, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: reading document.xml: %v", ErrParsingFailed, err)
	}

	sections, err := parseDocxXML(data)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing document.xml: %v", ErrParsingFailed, err)
	}
	return &Result{Sections: sections}, nil
}

// parseDocxXML streams the WordprocessingML body, collecting paragraph text
// and flushing a section whenever a heading-styled paragraph appears.
func parseDocxXML(data []byte) ([]Section, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))

	var sections []Section
	var heading string
	var body strings.Builder

	var paraText strings.Builder
	inPara := false
	paraIsHeading := false

	flush := func() {
		content := strings.TrimSpace(body.String())
		if heading != "" || content != "" {
			sections = append(sections, Section{Heading: heading, Content: content})
		}
		body.Reset()
	}

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inPara = true
				paraIsHeading = false
				paraText.Reset()
			case "pStyle":
				if !inPara {
					continue
				}
				for _, attr := range t.Attr {
					if attr.Name.Local == "val" {
						style := strings.ToLower(attr.Value)
						if strings.HasPrefix(style, "heading") || strings.HasPrefix(style, "title") {
							paraIsHeading = true
						}
					}
				}
			case "t":
				if !inPara {
					continue
				}
				var text string
				if err := decoder.DecodeElement(&text, &t); err != nil {
					return nil, err
				}
				paraText.WriteString(text)
			case "tab":
				if inPara {
					paraText.WriteString("\t")
				}
			case "br":
				if inPara {
					paraText.WriteString("\n")
				}
			}
		case xml.EndElement:
			if t.Name.Local != "p" || !inPara {
				continue
			}
			inPara = false
			text := strings.TrimSpace(paraText.String())
			if text == "" {
				continue
			}
			if paraIsHeading {
				flush()
				heading = text
				continue
			}
			if body.Len() > 0 {
				body.WriteString("\n")
			}
			body.WriteString(text)
		}
	}
	flush()
	return sections, nil
}
