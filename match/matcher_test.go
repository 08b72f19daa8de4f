package match

import (
	"strings"
	"testing"

	"github.com/kgenlabs/kgen/extract"
	"github.com/kgenlabs/kgen/nlp"
	"github.com/kgenlabs/kgen/ontology"
)

func mention(text, class string) nlp.Mention {
	return nlp.Mention{Text: text, Class: class, TokenEnd: 1}
}

func matcher(t *testing.T, specs ...ontology.RelationSpec) *Matcher {
	t.Helper()
	s, err := ontology.NewStore(specs...)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	m, err := New(s)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

var bornIn = ontology.RelationSpec{
	Name:        "born_in",
	Description: "place of birth",
	Domain:      "Person",
	Range:       "Location",
}

func TestMatchCanonicalizes(t *testing.T) {
	m := matcher(t, bornIn)
	res := m.Match([]extract.Candidate{
		{Subject: mention("Ada", "Person"), Predicate: "born_in", Object: mention("London", "Location"), Pattern: "lexical:born in"},
		{Subject: mention("ada", "Person"), Predicate: "born_in", Object: mention("London", "Location"), Pattern: "dep:born in"},
	}, nil)

	if len(res.Entities) != 2 {
		t.Fatalf("got %d entities, want 2 (Ada, London): %+v", len(res.Entities), res.Entities)
	}
	ada := res.Entities[0]
	if ada.Label != "Ada" {
		t.Errorf("label = %q, want first-seen surface Ada", ada.Label)
	}
	if ada.Mentions != 2 {
		t.Errorf("mentions = %d, want 2", ada.Mentions)
	}
	if len(ada.Surfaces) != 2 || ada.Surfaces[0] != "Ada" || ada.Surfaces[1] != "ada" {
		t.Errorf("surfaces = %v", ada.Surfaces)
	}

	if len(res.Triples) != 1 {
		t.Fatalf("duplicate statements must collapse, got %d triples", len(res.Triples))
	}
	if res.Triples[0].Pattern != "lexical:born in" {
		t.Errorf("first occurrence wins, pattern = %q", res.Triples[0].Pattern)
	}
}

func TestMatchDistinctSurfacesStayDistinct(t *testing.T) {
	m := matcher(t, bornIn)
	res := m.Match([]extract.Candidate{
		{Subject: mention("Ada", "Person"), Predicate: "born_in", Object: mention("London", "Location")},
		{Subject: mention("Ada Lovelace", "Person"), Predicate: "born_in", Object: mention("London", "Location")},
	}, nil)

	// "Ada" and "Ada Lovelace" normalize to different keys: no fuzzy linking.
	if len(res.Entities) != 3 {
		t.Fatalf("got %d entities, want 3: %+v", len(res.Entities), res.Entities)
	}
	if len(res.Triples) != 2 {
		t.Errorf("got %d triples, want 2", len(res.Triples))
	}
}

func TestMatchRejectsViolations(t *testing.T) {
	m := matcher(t, bornIn)
	res := m.Match([]extract.Candidate{
		{Subject: mention("Acme", "Organization"), Predicate: "born_in", Object: mention("London", "Location")},
		{Subject: mention("Ada", "Person"), Predicate: "born_in", Object: mention("1815", "Date")},
		{Subject: mention("Ada", "Person"), Predicate: "no_such_relation", Object: mention("London", "Location")},
	}, nil)

	if len(res.Triples) != 0 || len(res.Entities) != 0 {
		t.Errorf("all candidates should be rejected, got %d triples, %d entities", len(res.Triples), len(res.Entities))
	}
	if len(res.Rejected) != 3 {
		t.Fatalf("got %d rejections, want 3: %+v", len(res.Rejected), res.Rejected)
	}
	for i, want := range []string{"domain", "range", "unknown relation"} {
		if !strings.Contains(res.Rejected[i].Reason, want) {
			t.Errorf("rejection %d reason = %q, want it to mention %q", i, res.Rejected[i].Reason, want)
		}
	}
}

func TestEntityIDDeterministic(t *testing.T) {
	a := EntityID("Person", "Ada  Lovelace")
	b := EntityID("Person", "ada lovelace")
	if a != b {
		t.Errorf("normalization should collapse case and whitespace: %s != %s", a, b)
	}
	if EntityID("Person", "Ada") == EntityID("Location", "Ada") {
		t.Error("same surface in different classes must get different IDs")
	}
	if a != EntityID("Person", "Ada  Lovelace") {
		t.Error("EntityID must be stable across calls")
	}
}

func TestMatchFirstSeenOrdinals(t *testing.T) {
	m := matcher(t, bornIn)
	res := m.Match([]extract.Candidate{
		{Subject: mention("Ada", "Person"), Predicate: "born_in", Object: mention("London", "Location")},
		{Subject: mention("Grace", "Person"), Predicate: "born_in", Object: mention("New York", "Location")},
	}, nil)
	for i, e := range res.Entities {
		if e.FirstSeen != i {
			t.Errorf("entity %d (%q) FirstSeen = %d", i, e.Label, e.FirstSeen)
		}
	}
	if _, ok := res.Entity(res.Entities[0].ID); !ok {
		t.Error("Entity lookup by ID failed")
	}
}

func TestMatchCountsFromMentionList(t *testing.T) {
	m := matcher(t, bornIn)
	mentions := []nlp.Mention{
		mention("Ada", "Person"),
		mention("London", "Location"),
		mention("Ada", "Person"),
		mention("mathematician", "Occupation"),
	}
	res := m.Match([]extract.Candidate{
		{Subject: mention("Ada", "Person"), Predicate: "born_in", Object: mention("London", "Location")},
	}, mentions)

	// Entity table covers every mention, triples or not.
	if len(res.Entities) != 3 {
		t.Fatalf("got %d entities, want 3: %+v", len(res.Entities), res.Entities)
	}
	ada := res.Entities[0]
	if ada.Label != "Ada" || ada.Mentions != 2 {
		t.Errorf("salience should count all mentions: %+v", ada)
	}
	if res.Entities[2].Label != "mathematician" || res.Entities[2].Mentions != 1 {
		t.Errorf("triple-less mention should still be an entity: %+v", res.Entities[2])
	}
	if len(res.Triples) != 1 {
		t.Errorf("got %d triples, want 1", len(res.Triples))
	}
}

func TestNewNilStore(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("New(nil) should fail")
	}
}
