package nlp

import (
	"context"
	"testing"
)

func annotate(t *testing.T, text string, opts Options) *Document {
	t.Helper()
	doc, err := NewRuleAnnotator(opts).Annotate(context.Background(), text)
	if err != nil {
		t.Fatalf("Annotate(%q): %v", text, err)
	}
	if err := doc.Validate(); err != nil {
		t.Fatalf("annotated document invalid: %v", err)
	}
	return doc
}

func findMention(doc *Document, text string) (Mention, bool) {
	for _, m := range doc.Mentions {
		if m.Text == text {
			return m, true
		}
	}
	return Mention{}, false
}

func TestSentenceSplitting(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"single", "Ada was born in London.", 1},
		{"two", "Ada was born in London. She wrote programs.", 2},
		{"no terminator", "Ada was born in London", 1},
		{"empty", "", 0},
		{"question and exclamation", "Who is Ada? She is brilliant!", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := annotate(t, tt.text, Options{})
			if len(doc.Sentences) != tt.want {
				t.Errorf("got %d sentences, want %d", len(doc.Sentences), tt.want)
			}
		})
	}
}

func TestMentionDetection(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		mention   string
		wantLabel string
		wantClass string
	}{
		{"person at sentence start", "Ada was born in London.", "Ada", "PERSON", "Person"},
		{"place after preposition", "Ada was born in London.", "London", "GPE", "Location"},
		{"multiword person", "Ada Lovelace wrote the first program.", "Ada Lovelace", "PERSON", "Person"},
		{"org suffix", "She joined Cambridge University in 1841.", "Cambridge University", "ORG", "Organization"},
		{"full date", "Douglas Adams was born on 11 March 1952.", "11 March 1952", "DATE", "Date"},
		{"bare year", "The book appeared in 1979.", "1979", "DATE", "Date"},
		{"country from gazetteer", "Ada lived in England.", "England", "COUNTRY", "Country"},
		{"occupation noun", "Ada was a mathematician.", "mathematician", "OCCUPATION", "Occupation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := annotate(t, tt.text, Options{})
			m, ok := findMention(doc, tt.mention)
			if !ok {
				t.Fatalf("mention %q not found in %v", tt.mention, doc.Mentions)
			}
			if m.Label != tt.wantLabel {
				t.Errorf("label = %q, want %q", m.Label, tt.wantLabel)
			}
			if m.Class != tt.wantClass {
				t.Errorf("class = %q, want %q", m.Class, tt.wantClass)
			}
			if got := doc.Text[m.Start:m.End]; got != tt.mention {
				t.Errorf("span text = %q, want %q", got, tt.mention)
			}
		})
	}
}

func TestCustomGazetteerWins(t *testing.T) {
	doc := annotate(t, "Ada was born in Avalon.", Options{
		Gazetteer: map[string]string{"Avalon": "WORK_OF_ART"},
	})
	m, ok := findMention(doc, "Avalon")
	if !ok {
		t.Fatal("gazetteer mention not found")
	}
	if m.Label != "WORK_OF_ART" || m.Class != "CreativeWork" {
		t.Errorf("got label %q class %q, want WORK_OF_ART/CreativeWork", m.Label, m.Class)
	}
}

func TestDependencyEdges(t *testing.T) {
	doc := annotate(t, "Ada was born in London.", Options{})
	if len(doc.Sentences) != 1 {
		t.Fatalf("expected one sentence, got %d", len(doc.Sentences))
	}
	sent := doc.Sentences[0]

	var haveSubj, haveObl bool
	for _, e := range sent.Edges {
		head := sent.Tokens[e.Head].Text
		dep := sent.Tokens[e.Dep].Text
		if head == "born" && dep == "Ada" && e.Rel == "nsubj" {
			haveSubj = true
		}
		if head == "born" && dep == "London" && e.Rel == "obl:in" {
			haveObl = true
		}
	}
	if !haveSubj {
		t.Errorf("missing nsubj(born, Ada) edge in %v", sent.Edges)
	}
	if !haveObl {
		t.Errorf("missing obl:in(born, London) edge in %v", sent.Edges)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		doc     *Document
		wantErr bool
	}{
		{"nil document", nil, true},
		{"empty document", &Document{}, false},
		{
			"mentions without sentences",
			&Document{Mentions: []Mention{{Text: "Ada", Class: "Person"}}},
			true,
		},
		{
			"mention sentence out of range",
			&Document{
				Sentences: []Sentence{{Text: "x", Tokens: []Token{{Text: "x"}}}},
				Mentions:  []Mention{{Text: "x", Class: "Thing", Sentence: 3, TokenStart: 0, TokenEnd: 1}},
			},
			true,
		},
		{
			"mention missing class",
			&Document{
				Sentences: []Sentence{{Text: "x", Tokens: []Token{{Text: "x"}}}},
				Mentions:  []Mention{{Text: "x", Sentence: 0, TokenStart: 0, TokenEnd: 1}},
			},
			true,
		},
		{
			"mention token range inverted",
			&Document{
				Sentences: []Sentence{{Text: "x", Tokens: []Token{{Text: "x"}}}},
				Mentions:  []Mention{{Text: "x", Class: "Thing", Sentence: 0, TokenStart: 1, TokenEnd: 1}},
			},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.doc.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestClassForLabel(t *testing.T) {
	if got := ClassForLabel("PERSON"); got != "Person" {
		t.Errorf("ClassForLabel(PERSON) = %q", got)
	}
	if got := ClassForLabel("UNKNOWN_LABEL"); got != "Thing" {
		t.Errorf("ClassForLabel(unknown) = %q, want Thing", got)
	}
}
