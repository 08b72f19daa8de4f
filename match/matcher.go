// Package match canonicalizes extracted candidates into typed entities and
// validated, deduplicated triples. Matching is exact on the normalized
// surface form within an ontology class; no fuzzy linking.
package match

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/kgenlabs/kgen/extract"
	"github.com/kgenlabs/kgen/nlp"
	"github.com/kgenlabs/kgen/ontology"
)

// ErrNoOntology is returned when a matcher is constructed without a schema.
var ErrNoOntology = errors.New("match: nil ontology store")

// entityNamespace seeds the deterministic v5 entity IDs. Fixed forever:
// changing it changes every ID ever issued.
var entityNamespace = uuid.MustParse("6f1cdc54-9ce8-4a7b-9b63-6f8a4c5d0e21")

// CanonicalEntity is a resolved entity: all mentions whose normalized
// surface and class agree collapse into one.
type CanonicalEntity struct {
	// ID is deterministic: the same class and normalized surface always
	// yield the same ID, across runs and processes.
	ID string

	// Label is the surface form of the first mention seen.
	Label string

	Class string

	// Surfaces lists the distinct raw surface forms, in first-seen order.
	Surfaces []string

	// Mentions counts how many mentions collapsed into this entity.
	Mentions int

	// FirstSeen is the ordinal of the entity's first appearance, used as a
	// stable tiebreaker downstream.
	FirstSeen int
}

// Triple is a validated (subject, predicate, object) statement over
// canonical entity IDs. Pattern carries the extraction provenance through.
type Triple struct {
	Subject   string
	Predicate string
	Object    string
	Pattern   string
}

// Rejection records a candidate dropped during validation, with the reason.
type Rejection struct {
	Candidate extract.Candidate
	Reason    string
}

// Result is the matcher's output. Entities and Triples are in first-seen
// order; Rejected preserves candidate order.
type Result struct {
	Entities []CanonicalEntity
	Triples  []Triple
	Rejected []Rejection
}

// Matcher resolves candidates against a relation schema.
type Matcher struct {
	ont *ontology.Store
}

// New creates a matcher over the given ontology store.
func New(ont *ontology.Store) (*Matcher, error) {
	if ont == nil {
		return nil, ErrNoOntology
	}
	return &Matcher{ont: ont}, nil
}

// normalize produces the matching key surface: lowercased, inner whitespace
// collapsed to single spaces.
func normalize(surface string) string {
	return strings.Join(strings.Fields(strings.ToLower(surface)), " ")
}

// EntityID returns the deterministic ID for a class and surface form.
func EntityID(class, surface string) string {
	return uuid.NewSHA1(entityNamespace, []byte(class+"|"+normalize(surface))).String()
}

// Match canonicalizes mentions and validates each candidate against the
// schema. When the document's full mention list is given, it defines the
// entity table and the salience counts, so entities without any surviving
// triple still carry their mention counts; with a nil mention list the
// table is built from the candidates alone. Candidates whose predicate is
// unknown or whose entity classes violate the relation's domain or range
// are dropped into Rejected, never silently discarded. Duplicate
// (subject, predicate, object) statements collapse to their first
// occurrence.
func (m *Matcher) Match(cands []extract.Candidate, mentions []nlp.Mention) Result {
	var res Result
	index := make(map[string]int) // entity key -> index into res.Entities

	resolve := func(mention nlp.Mention, count bool) string {
		key := mention.Class + "|" + normalize(mention.Text)
		if i, ok := index[key]; ok {
			ent := &res.Entities[i]
			if count {
				ent.Mentions++
				seen := false
				for _, s := range ent.Surfaces {
					if s == mention.Text {
						seen = true
						break
					}
				}
				if !seen {
					ent.Surfaces = append(ent.Surfaces, mention.Text)
				}
			}
			return ent.ID
		}
		index[key] = len(res.Entities)
		id := EntityID(mention.Class, mention.Text)
		res.Entities = append(res.Entities, CanonicalEntity{
			ID:        id,
			Label:     mention.Text,
			Class:     mention.Class,
			Surfaces:  []string{mention.Text},
			Mentions:  1,
			FirstSeen: len(res.Entities),
		})
		return id
	}

	for _, mn := range mentions {
		resolve(mn, true)
	}
	// Candidate mentions are already counted when the mention list was
	// given; counting them again would inflate salience.
	countCandidates := len(mentions) == 0

	seenTriples := make(map[[3]string]bool)
	for _, c := range cands {
		spec, err := m.ont.Get(c.Predicate)
		if err != nil {
			res.Rejected = append(res.Rejected, Rejection{c, fmt.Sprintf("unknown relation %q", c.Predicate)})
			slog.Debug("match: candidate rejected", "predicate", c.Predicate, "reason", "unknown relation")
			continue
		}
		if c.Subject.Class != spec.Domain {
			res.Rejected = append(res.Rejected, Rejection{c, fmt.Sprintf("subject class %s violates domain %s", c.Subject.Class, spec.Domain)})
			slog.Debug("match: candidate rejected", "predicate", c.Predicate, "subject", c.Subject.Text, "reason", "domain violation")
			continue
		}
		if c.Object.Class != spec.Range {
			res.Rejected = append(res.Rejected, Rejection{c, fmt.Sprintf("object class %s violates range %s", c.Object.Class, spec.Range)})
			slog.Debug("match: candidate rejected", "predicate", c.Predicate, "object", c.Object.Text, "reason", "range violation")
			continue
		}

		subjID := resolve(c.Subject, countCandidates)
		objID := resolve(c.Object, countCandidates)

		key := [3]string{subjID, c.Predicate, objID}
		if seenTriples[key] {
			continue
		}
		seenTriples[key] = true
		res.Triples = append(res.Triples, Triple{
			Subject:   subjID,
			Predicate: c.Predicate,
			Object:    objID,
			Pattern:   c.Pattern,
		})
	}

	slog.Debug("match: resolved",
		"candidates", len(cands), "mentions", len(mentions), "entities", len(res.Entities),
		"triples", len(res.Triples), "rejected", len(res.Rejected))
	return res
}

// Entity looks up a canonical entity by ID in a result.
func (r Result) Entity(id string) (CanonicalEntity, bool) {
	for _, e := range r.Entities {
		if e.ID == id {
			return e, true
		}
	}
	return CanonicalEntity{}, false
}
