// Package cq turns a matched graph into natural-language competency
// questions, the questions the finished knowledge graph should be able to
// answer about its most salient entities.
package cq

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/kgenlabs/kgen/match"
	"github.com/kgenlabs/kgen/ontology"
)

// ErrNoOntology is returned when a generator is constructed without a schema.
var ErrNoOntology = errors.New("cq: nil ontology store")

// Question is one competency question, tied to the relation and entity it
// interrogates.
type Question struct {
	Text        string
	Relation    string
	EntityID    string
	EntityLabel string
}

// Generator phrases questions from relation descriptions.
type Generator struct {
	ont *ontology.Store
}

// New creates a generator over the given ontology store.
func New(ont *ontology.Store) (*Generator, error) {
	if ont == nil {
		return nil, ErrNoOntology
	}
	return &Generator{ont: ont}, nil
}

// Generate produces at most maxQuestions questions from the matched
// result. Eligible pairs are the unique (relation, subject) combinations
// present in the triples; they are ranked by subject salience (mention
// count, ties broken by first appearance) and phrased from the relation's
// description. The function is pure: the same input always yields the same
// questions in the same order.
func (g *Generator) Generate(res match.Result, maxQuestions int) []Question {
	if maxQuestions <= 0 || len(res.Triples) == 0 {
		return nil
	}

	type pair struct {
		relation string
		subject  match.CanonicalEntity
		spec     ontology.RelationSpec
	}

	seen := make(map[[2]string]bool)
	var pairs []pair
	for _, tr := range res.Triples {
		key := [2]string{tr.Predicate, tr.Subject}
		if seen[key] {
			continue
		}
		seen[key] = true

		subject, ok := res.Entity(tr.Subject)
		if !ok {
			// A triple over an unknown entity means the result is
			// inconsistent; skip rather than invent a label.
			slog.Warn("cq: triple references unknown entity", "id", tr.Subject)
			continue
		}
		spec, err := g.ont.Get(tr.Predicate)
		if err != nil {
			slog.Warn("cq: triple uses unknown relation", "relation", tr.Predicate)
			continue
		}
		pairs = append(pairs, pair{relation: tr.Predicate, subject: subject, spec: spec})
	}

	// Salience: more-mentioned subjects first, earlier-seen subjects break
	// ties. Stable sort keeps relations in triple order within a subject.
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].subject.Mentions != pairs[j].subject.Mentions {
			return pairs[i].subject.Mentions > pairs[j].subject.Mentions
		}
		return pairs[i].subject.FirstSeen < pairs[j].subject.FirstSeen
	})

	if len(pairs) > maxQuestions {
		pairs = pairs[:maxQuestions]
	}

	qs := make([]Question, 0, len(pairs))
	for _, p := range pairs {
		qs = append(qs, Question{
			Text:        fmt.Sprintf("What is the %s of %s?", p.spec.Description, p.subject.Label),
			Relation:    p.relation,
			EntityID:    p.subject.ID,
			EntityLabel: p.subject.Label,
		})
	}
	return qs
}
