// Package extract proposes candidate triples by matching mention pairs
// against the configured relation schema. Candidates are unvalidated: the
// matcher downstream canonicalizes and type-checks them.
package extract

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/kgenlabs/kgen/nlp"
	"github.com/kgenlabs/kgen/ontology"
)

// Candidate is an extracted, not-yet-validated triple proposal. Pattern
// records which syntactic pattern fired (provenance).
type Candidate struct {
	Subject   nlp.Mention
	Predicate string
	Object    nlp.Mention
	Pattern   string
}

// Config tunes extraction.
type Config struct {
	// MaxTokenDistance bounds the token gap between a mention pair within
	// one sentence. Zero means the default (12).
	MaxTokenDistance int

	// Triggers adds extra trigger phrases per relation name, on top of the
	// name-derived trigger and the built-in aliases.
	Triggers map[string][]string
}

const defaultMaxTokenDistance = 12

// defaultTriggers aliases the built-in relation schema to the verbs that
// actually express those relations in prose. Name-derived triggers alone
// ("date of birth") rarely occur verbatim.
var defaultTriggers = map[string][]string{
	"date_of_birth":          {"born"},
	"date_of_death":          {"died"},
	"country_of_citizenship": {"citizen of"},
	"notable_work":           {"known for", "wrote", "author of", "created"},
	"born_in":                {"born"},
}

// Extractor scans annotated documents for relation candidates.
type Extractor struct {
	ont     *ontology.Store
	maxDist int
	extra   map[string][]string
}

// New creates an extractor over the given (read-only) ontology store.
func New(ont *ontology.Store, cfg Config) *Extractor {
	maxDist := cfg.MaxTokenDistance
	if maxDist <= 0 {
		maxDist = defaultMaxTokenDistance
	}
	return &Extractor{ont: ont, maxDist: maxDist, extra: cfg.Triggers}
}

// Extract emits one candidate per (mention pair, relation spec) whose
// domain/range classes match and whose pattern holds. An empty result is
// the expected common case, never an error; it fails only when the
// annotated document is structurally invalid.
func (e *Extractor) Extract(doc *nlp.Document) ([]Candidate, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	specs := e.ont.All()
	if len(specs) == 0 || len(doc.Mentions) == 0 {
		return nil, nil
	}

	// Group mentions per sentence, ordered by position for deterministic
	// pair enumeration.
	perSentence := make([][]nlp.Mention, len(doc.Sentences))
	for _, m := range doc.Mentions {
		perSentence[m.Sentence] = append(perSentence[m.Sentence], m)
	}
	for _, ms := range perSentence {
		sort.Slice(ms, func(i, j int) bool { return ms[i].TokenStart < ms[j].TokenStart })
	}

	var out []Candidate
	for si, ms := range perSentence {
		sent := doc.Sentences[si]
		for i := 0; i < len(ms); i++ {
			for j := i + 1; j < len(ms); j++ {
				if ms[j].TokenStart-ms[i].TokenEnd > e.maxDist {
					continue
				}
				for _, spec := range specs {
					for _, pair := range orient(ms[i], ms[j], spec) {
						pattern, ok := e.matchPair(sent, pair[0], pair[1], spec)
						if !ok {
							continue
						}
						out = append(out, Candidate{
							Subject:   pair[0],
							Predicate: spec.Name,
							Object:    pair[1],
							Pattern:   pattern,
						})
					}
				}
			}
		}
	}

	slog.Debug("extract: candidates proposed",
		"mentions", len(doc.Mentions), "relations", len(specs), "candidates", len(out))
	return out, nil
}

// orient returns the (subject, object) orderings of a mention pair whose
// classes fit the spec's domain and range. Both orderings are returned when
// both fit (domain == range); ambiguity is resolved downstream.
func orient(a, b nlp.Mention, spec ontology.RelationSpec) [][2]nlp.Mention {
	var pairs [][2]nlp.Mention
	if a.Class == spec.Domain && b.Class == spec.Range {
		pairs = append(pairs, [2]nlp.Mention{a, b})
	}
	if b.Class == spec.Domain && a.Class == spec.Range {
		pairs = append(pairs, [2]nlp.Mention{b, a})
	}
	return pairs
}

// triggersFor assembles the trigger phrases for a relation: name-derived,
// built-in aliases, then configured extras.
func (e *Extractor) triggersFor(name string) []string {
	derived := strings.ToLower(name)
	derived = strings.NewReplacer("_", " ", "-", " ").Replace(derived)

	trigs := []string{derived}
	trigs = append(trigs, defaultTriggers[name]...)
	trigs = append(trigs, e.extra[name]...)
	return trigs
}

// matchPair tests the pattern families in fixed order: lexical trigger in
// the span between the mentions, dependency path through a trigger verb,
// then copular co-occurrence. The first family that holds names the
// provenance tag.
func (e *Extractor) matchPair(sent nlp.Sentence, subj, obj nlp.Mention, spec ontology.RelationSpec) (string, bool) {
	trigs := e.triggersFor(spec.Name)

	if between := betweenText(sent, subj, obj); between != "" {
		for _, tr := range trigs {
			if tr != "" && strings.Contains(between, tr) {
				return "lexical:" + tr, true
			}
		}
	}

	if tr, ok := depPath(sent, subj, obj, trigs); ok {
		return "dep:" + tr, true
	}

	if copularLink(sent, subj, obj) {
		return "cooc:copula", true
	}

	return "", false
}

// betweenText returns the lowercased sentence text strictly between the two
// mention spans, regardless of their order.
func betweenText(sent nlp.Sentence, a, b nlp.Mention) string {
	lo, hi := a.End, b.Start
	if b.Start < a.Start {
		lo, hi = b.End, a.Start
	}
	rel0, rel1 := lo-sent.Start, hi-sent.Start
	if rel0 < 0 || rel1 > len(sent.Text) || rel0 >= rel1 {
		return ""
	}
	return strings.ToLower(sent.Text[rel0:rel1])
}

// depPath reports whether some verb links the subject mention (nsubj) and
// the object mention (obj / obl:*) and matches a trigger, either as the
// bare verb or as verb + preposition.
func depPath(sent nlp.Sentence, subj, obj nlp.Mention, trigs []string) (string, bool) {
	type link struct {
		subjHit bool
		objHit  bool
		prep    string
	}
	verbs := make(map[int]*link)

	inRange := func(tok int, m nlp.Mention) bool {
		return tok >= m.TokenStart && tok < m.TokenEnd
	}

	for _, edge := range sent.Edges {
		l := verbs[edge.Head]
		if l == nil {
			l = &link{}
			verbs[edge.Head] = l
		}
		switch {
		case edge.Rel == "nsubj" && inRange(edge.Dep, subj):
			l.subjHit = true
		case (edge.Rel == "obj" || strings.HasPrefix(edge.Rel, "obl")) && inRange(edge.Dep, obj):
			l.objHit = true
			if rest, found := strings.CutPrefix(edge.Rel, "obl:"); found {
				l.prep = rest
			}
		}
	}

	heads := make([]int, 0, len(verbs))
	for head := range verbs {
		heads = append(heads, head)
	}
	sort.Ints(heads)

	for _, head := range heads {
		l := verbs[head]
		if !l.subjHit || !l.objHit || head >= len(sent.Tokens) {
			continue
		}
		verb := strings.ToLower(sent.Tokens[head].Text)
		phrase := verb
		if l.prep != "" {
			phrase = verb + " " + l.prep
		}
		for _, tr := range trigs {
			if tr == verb || tr == phrase {
				return tr, true
			}
		}
	}
	return "", false
}

// copularLink reports a predicate-nominal co-occurrence: subject before
// object with nothing between them but a copula and articles, as in
// "Ada was a mathematician".
func copularLink(sent nlp.Sentence, subj, obj nlp.Mention) bool {
	if subj.TokenEnd > obj.TokenStart {
		return false
	}

	sawCopula := false
	for k := subj.TokenEnd; k < obj.TokenStart; k++ {
		if k < 0 || k >= len(sent.Tokens) {
			return false
		}
		switch strings.ToLower(sent.Tokens[k].Text) {
		case "is", "was", "are", "were", "became":
			sawCopula = true
		case "a", "an", "the", ",":
			// articles and commas are transparent
		default:
			return false
		}
	}
	return sawCopula
}
