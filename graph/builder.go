package graph

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/kgenlabs/kgen/cq"
	"github.com/kgenlabs/kgen/match"
	"github.com/kgenlabs/kgen/ontology"
)

// Vocabulary fragments for competency question nodes, minted under the
// question namespace.
const (
	questionClassFragment = "CompetencyQuestion"
	aboutFragment         = "about"
	targetsFragment       = "targetsRelation"
)

// Builder mints IRIs and assembles graphs.
type Builder struct {
	ns Namespaces
}

// NewBuilder creates a builder over the given namespaces; empty fields fall
// back to the defaults.
func NewBuilder(ns Namespaces) *Builder {
	return &Builder{ns: ns.withDefaults()}
}

// EntityIRI mints the IRI for a canonical entity: a readable slug of its
// label plus a short stable disambiguator from its ID, so distinct entities
// with colliding slugs ("Ada" the person vs "ADA" the language) never share
// an IRI.
func (b *Builder) EntityIRI(e match.CanonicalEntity) string {
	return b.ns.Entity + Slug(e.Label) + "-" + shortID(e.ID)
}

// RelationIRI mints the IRI for a relation name.
func (b *Builder) RelationIRI(name string) string {
	return b.ns.Relation + Slug(name)
}

// ClassIRI mints the IRI for an ontology class.
func (b *Builder) ClassIRI(class string) string {
	return b.ns.Class + class
}

// shortID compacts a canonical entity ID into the 8-hex disambiguator
// suffix used in minted IRIs.
func shortID(id string) string {
	s := strings.ReplaceAll(id, "-", "")
	if len(s) > 8 {
		s = s[:8]
	}
	return s
}

// Build assembles the full graph: a type and a label statement for every
// entity, the relation statements in matched order, then one node per
// competency question. Every entity a triple or question references must be
// present in the result's entity list.
func (b *Builder) Build(res match.Result, questions []cq.Question) (*KnowledgeGraph, error) {
	iris := make(map[string]string, len(res.Entities)) // entity ID -> IRI
	for _, e := range res.Entities {
		iris[e.ID] = b.EntityIRI(e)
	}
	for _, tr := range res.Triples {
		if _, ok := iris[tr.Subject]; !ok {
			return nil, fmt.Errorf("%w: triple subject %s not among entities", ErrValidation, tr.Subject)
		}
		if _, ok := iris[tr.Object]; !ok {
			return nil, fmt.Errorf("%w: triple object %s not among entities", ErrValidation, tr.Object)
		}
	}

	g := &KnowledgeGraph{
		prefixes: map[string]string{
			"rdf":  "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
			"rdfs": "http://www.w3.org/2000/01/rdf-schema#",
			"ent":  b.ns.Entity,
			"rel":  b.ns.Relation,
			"cls":  b.ns.Class,
			"cq":   b.ns.Question,
		},
	}

	// Only entities some statement or question references get a node; the
	// matcher's table may carry triple-less mentions for salience.
	referenced := make(map[string]bool, len(res.Entities))
	for _, tr := range res.Triples {
		referenced[tr.Subject] = true
		referenced[tr.Object] = true
	}
	for _, q := range questions {
		referenced[q.EntityID] = true
	}

	for _, e := range res.Entities {
		if !referenced[e.ID] {
			continue
		}
		subj := IRI(iris[e.ID])
		g.triples = append(g.triples,
			Triple{subj, IRI(RDFType), IRI(b.ClassIRI(e.Class))},
			Triple{subj, IRI(RDFSLabel), LangLiteral(e.Label, "en")},
		)
	}

	for _, tr := range res.Triples {
		g.triples = append(g.triples, Triple{
			Subject:   IRI(iris[tr.Subject]),
			Predicate: IRI(b.RelationIRI(tr.Predicate)),
			Object:    IRI(iris[tr.Object]),
		})
	}

	for _, q := range questions {
		entityIRI, ok := iris[q.EntityID]
		if !ok {
			return nil, fmt.Errorf("%w: question about unknown entity %s", ErrValidation, q.EntityID)
		}
		node := IRI(b.ns.Question + Slug(q.Relation) + "-" + shortID(q.EntityID))
		g.triples = append(g.triples,
			Triple{node, IRI(RDFType), IRI(b.ns.Question + questionClassFragment)},
			Triple{node, IRI(RDFSLabel), LangLiteral(q.Text, "en")},
			Triple{node, IRI(b.ns.Question + aboutFragment), IRI(entityIRI)},
			Triple{node, IRI(b.ns.Question + targetsFragment), IRI(b.RelationIRI(q.Relation))},
		)
	}

	slog.Debug("graph: built",
		"entities", len(referenced), "relations", len(res.Triples),
		"questions", len(questions), "statements", len(g.triples))
	return g, nil
}

// Append adds one relation statement between two canonical entities to a
// built graph, re-checking the relation's domain and range first.
func (b *Builder) Append(g *KnowledgeGraph, spec ontology.RelationSpec, subj, obj match.CanonicalEntity) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	if subj.Class != spec.Domain {
		return fmt.Errorf("%w: subject class %s violates domain %s", ErrValidation, subj.Class, spec.Domain)
	}
	if obj.Class != spec.Range {
		return fmt.Errorf("%w: object class %s violates range %s", ErrValidation, obj.Class, spec.Range)
	}
	g.triples = append(g.triples, Triple{
		Subject:   IRI(b.EntityIRI(subj)),
		Predicate: IRI(b.RelationIRI(spec.Name)),
		Object:    IRI(b.EntityIRI(obj)),
	})
	return nil
}
