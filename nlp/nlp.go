// Package nlp defines the annotated-document contract the extraction
// pipeline consumes, plus a rule-based annotator that fulfils it without
// network access. The pipeline treats the annotator as a black box: any
// implementation that returns mentions with spans and labels and a
// sentence/dependency structure can be plugged in.
package nlp

import (
	"context"
	"errors"
	"fmt"
)

// ErrMissingStructure is returned when an annotated document lacks the
// structure downstream extraction depends on.
var ErrMissingStructure = errors.New("nlp: annotated document missing required structure")

// Token is a single token with byte offsets into the document text.
type Token struct {
	Text  string
	Start int
	End   int
}

// DepEdge links two tokens of one sentence. Head and Dep are token indices
// within the sentence. Rel is the relation tag, e.g. "nsubj", "obj",
// "obl:in".
type DepEdge struct {
	Head int
	Dep  int
	Rel  string
}

// Sentence is one sentence with its tokens and dependency-like edges.
type Sentence struct {
	Text   string
	Start  int
	End    int
	Tokens []Token
	Edges  []DepEdge
}

// Mention is an entity mention produced by the annotator. TokenStart and
// TokenEnd delimit the mention's token range within its sentence
// (half-open). Class is the ontology class mapped from the NER label via
// ClassForLabel.
type Mention struct {
	Text       string
	Start      int
	End        int
	Label      string
	Class      string
	Sentence   int
	TokenStart int
	TokenEnd   int
}

// Document is the full annotated artifact for one input text.
type Document struct {
	Text      string
	Sentences []Sentence
	Mentions  []Mention
}

// Annotator turns plain text into an annotated document.
type Annotator interface {
	Annotate(ctx context.Context, text string) (*Document, error)
}

// Validate checks that the document carries the structure extraction
// requires. Absence of that structure is an error, not a silent empty
// result.
func (d *Document) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: nil document", ErrMissingStructure)
	}
	if len(d.Mentions) > 0 && len(d.Sentences) == 0 {
		return fmt.Errorf("%w: mentions without sentences", ErrMissingStructure)
	}
	for i, m := range d.Mentions {
		if m.Class == "" {
			return fmt.Errorf("%w: mention %d (%q) has no class", ErrMissingStructure, i, m.Text)
		}
		if m.Sentence < 0 || m.Sentence >= len(d.Sentences) {
			return fmt.Errorf("%w: mention %d (%q) sentence index %d out of range", ErrMissingStructure, i, m.Text, m.Sentence)
		}
		sent := d.Sentences[m.Sentence]
		if m.TokenStart < 0 || m.TokenEnd > len(sent.Tokens) || m.TokenStart >= m.TokenEnd {
			return fmt.Errorf("%w: mention %d (%q) token range [%d,%d) invalid", ErrMissingStructure, i, m.Text, m.TokenStart, m.TokenEnd)
		}
	}
	return nil
}

// labelClasses is the fixed NER-label to ontology-class table.
var labelClasses = map[string]string{
	"PERSON":      "Person",
	"ORG":         "Organization",
	"GPE":         "Location",
	"LOC":         "Location",
	"FAC":         "Location",
	"COUNTRY":     "Country",
	"DATE":        "Date",
	"TIME":        "Date",
	"NORP":        "Nationality",
	"LANGUAGE":    "Language",
	"WORK_OF_ART": "CreativeWork",
	"OCCUPATION":  "Occupation",
	"EVENT":       "Event",
	"PRODUCT":     "Product",
}

// ClassForLabel maps a NER label to its ontology class. Unknown labels map
// to "Thing" so the matcher can still type-check them (and reject where the
// schema demands a specific class).
func ClassForLabel(label string) string {
	if class, ok := labelClasses[label]; ok {
		return class
	}
	return "Thing"
}
