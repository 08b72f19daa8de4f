package parser

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestTextParser(t *testing.T) {
	path := writeFile(t, "bio.txt", "Ada was born in London. She was a mathematician.\n")

	res, err := NewRegistry().ParseFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if res.Format != "txt" {
		t.Errorf("format = %q, want txt", res.Format)
	}
	if !strings.Contains(res.Text(), "born in London") {
		t.Errorf("text = %q", res.Text())
	}
}

func TestTextParserEmptyFile(t *testing.T) {
	path := writeFile(t, "empty.txt", "   \n")
	res, err := (&TextParser{}).Parse(context.Background(), path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Text() != "" {
		t.Errorf("empty file should yield empty text, got %q", res.Text())
	}
}

func TestMarkdownSections(t *testing.T) {
	content := "# Life\nAda was born in London.\n\n## Work\nShe wrote the first program.\n"
	path := writeFile(t, "bio.md", content)

	res, err := (&TextParser{}).Parse(context.Background(), path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Sections) != 2 {
		t.Fatalf("got %d sections, want 2: %+v", len(res.Sections), res.Sections)
	}
	if res.Sections[0].Heading != "Life" || res.Sections[1].Heading != "Work" {
		t.Errorf("headings = %q, %q", res.Sections[0].Heading, res.Sections[1].Heading)
	}
	if strings.Contains(res.Text(), "#") {
		t.Errorf("markdown markers should be stripped: %q", res.Text())
	}
}

func TestRegistryUnknownFormat(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get("pptx"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Get(pptx) error = %v, want ErrUnsupportedFormat", err)
	}
	if _, err := r.ParseFile(context.Background(), "/tmp/noext"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("ParseFile without extension error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestRegistryRegisterOverride(t *testing.T) {
	r := NewRegistry()
	custom := &TextParser{}
	r.Register("csv", custom)
	p, err := r.Get("CSV")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p != Parser(custom) {
		t.Error("Get should return the registered parser")
	}
}

// writeDocx authors a minimal DOCX: a ZIP holding word/document.xml.
func writeDocx(t *testing.T, documentXML string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.docx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating docx: %v", err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("adding document.xml: %v", err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatalf("writing document.xml: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("closing file: %v", err)
	}
	return path
}

func TestDOCXParser(t *testing.T) {
	const doc = `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Early Life</w:t></w:r></w:p>
    <w:p><w:r><w:t>Ada was born </w:t></w:r><w:r><w:t>in London.</w:t></w:r></w:p>
    <w:p><w:r><w:t>She was a mathematician.</w:t></w:r></w:p>
  </w:body>
</w:document>`
	path := writeDocx(t, doc)

	res, err := (&DOCXParser{}).Parse(context.Background(), path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Sections) != 1 {
		t.Fatalf("got %d sections, want 1: %+v", len(res.Sections), res.Sections)
	}
	s := res.Sections[0]
	if s.Heading != "Early Life" {
		t.Errorf("heading = %q", s.Heading)
	}
	if !strings.Contains(s.Content, "Ada was born in London.") {
		t.Errorf("split runs should join: %q", s.Content)
	}
	if !strings.Contains(s.Content, "mathematician") {
		t.Errorf("content = %q", s.Content)
	}
}

func TestDOCXParserMissingDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.docx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating file: %v", err)
	}
	zw := zip.NewWriter(f)
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
	f.Close()

	if _, err := (&DOCXParser{}).Parse(context.Background(), path); !errors.Is(err, ErrParsingFailed) {
		t.Errorf("Parse error = %v, want ErrParsingFailed", err)
	}
}

func TestXLSXParser(t *testing.T) {
	path := filepath.Join(t.TempDir(), "people.xlsx")
	f := excelize.NewFile()
	if err := f.SetSheetRow("Sheet1", "A1", &[]string{"Name", "Birthplace"}); err != nil {
		t.Fatalf("SetSheetRow: %v", err)
	}
	if err := f.SetSheetRow("Sheet1", "A2", &[]string{"Ada Lovelace", "London"}); err != nil {
		t.Fatalf("SetSheetRow: %v", err)
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	f.Close()

	res, err := (&XLSXParser{}).Parse(context.Background(), path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Sections) != 1 || res.Sections[0].Heading != "Sheet1" {
		t.Fatalf("sections = %+v", res.Sections)
	}
	if !strings.Contains(res.Sections[0].Content, "| Ada Lovelace | London |") {
		t.Errorf("content = %q", res.Sections[0].Content)
	}
}

func TestResultText(t *testing.T) {
	r := &Result{Sections: []Section{
		{Heading: "Life", Content: "Ada was born in London."},
		{Content: "She wrote programs."},
	}}
	got := r.Text()
	if !strings.HasPrefix(got, "Life\nAda was born in London.") {
		t.Errorf("Text() = %q", got)
	}
	if !strings.HasSuffix(got, "She wrote programs.") {
		t.Errorf("Text() = %q", got)
	}
}

func TestIsLikelyHeading(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"INTRODUCTION", true},
		{"1.2 Early Years", true},
		{"Section 4: Methods", true},
		{"Ada was born in London.", false},
		{"1952", false},
	}
	for _, tt := range tests {
		if got := isLikelyHeading(tt.line); got != tt.want {
			t.Errorf("isLikelyHeading(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}
