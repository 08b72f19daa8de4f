// Package graph assembles matched entities, triples, and competency
// questions into an immutable RDF-style knowledge graph with stable IRIs.
package graph

import (
	"errors"
	"strings"
	"unicode"
)

// ErrValidation is returned when the input to a build is internally
// inconsistent, e.g. a triple referencing an entity that was never resolved.
var ErrValidation = errors.New("graph: inconsistent input")

// Well-known vocabulary IRIs.
const (
	RDFType   = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
	RDFSLabel = "http://www.w3.org/2000/01/rdf-schema#label"
)

// Namespaces holds the IRI prefixes minted terms live under.
type Namespaces struct {
	Entity   string
	Relation string
	Class    string
	Question string
}

// DefaultNamespaces returns the namespaces used when none are configured.
func DefaultNamespaces() Namespaces {
	return Namespaces{
		Entity:   "http://kgen.dev/entity/",
		Relation: "http://kgen.dev/relation/",
		Class:    "http://kgen.dev/class/",
		Question: "http://kgen.dev/cq/",
	}
}

func (n Namespaces) withDefaults() Namespaces {
	d := DefaultNamespaces()
	if n.Entity == "" {
		n.Entity = d.Entity
	}
	if n.Relation == "" {
		n.Relation = d.Relation
	}
	if n.Class == "" {
		n.Class = d.Class
	}
	if n.Question == "" {
		n.Question = d.Question
	}
	return n
}

// Term is an RDF term: an IRI, or a literal when IsLiteral is set.
type Term struct {
	Value     string
	IsLiteral bool
	Lang      string
}

// IRI returns an IRI term.
func IRI(value string) Term { return Term{Value: value} }

// Literal returns a plain literal term.
func Literal(value string) Term { return Term{Value: value, IsLiteral: true} }

// LangLiteral returns a language-tagged literal term.
func LangLiteral(value, lang string) Term {
	return Term{Value: value, IsLiteral: true, Lang: lang}
}

// Triple is one statement. Subject and Predicate are always IRIs.
type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term
}

// KnowledgeGraph is an append-only triple list plus its prefix table.
// Accessors return copies; the graph never mutates after Build.
type KnowledgeGraph struct {
	triples  []Triple
	prefixes map[string]string
}

// Triples returns the statements in emission order.
func (g *KnowledgeGraph) Triples() []Triple {
	out := make([]Triple, len(g.triples))
	copy(out, g.triples)
	return out
}

// Prefixes returns the prefix-to-namespace table.
func (g *KnowledgeGraph) Prefixes() map[string]string {
	out := make(map[string]string, len(g.prefixes))
	for k, v := range g.prefixes {
		out[k] = v
	}
	return out
}

// Len returns the number of statements.
func (g *KnowledgeGraph) Len() int { return len(g.triples) }

// Slug normalizes a label into an IRI-safe fragment: lowercased, runs of
// non-alphanumerics collapsed to single hyphens.
func Slug(label string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(label) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		} else {
			pendingHyphen = true
		}
	}
	if b.Len() == 0 {
		return "node"
	}
	return b.String()
}
