package nlp

import (
	"context"
	"strings"
	"unicode"
)

// RuleAnnotator is the default Annotator implementation: deterministic
// rule-based sentence splitting, tokenization, mention detection, and a
// shallow verb-centred dependency approximation. It never touches the
// network or the filesystem.
type RuleAnnotator struct {
	gazetteer map[string]string // lowercased surface -> NER label
}

// Options configures the rule annotator.
type Options struct {
	// Gazetteer maps surface forms to NER labels (e.g. "ada lovelace" ->
	// "PERSON"). Entries are matched case-insensitively and take
	// precedence over the heuristics. Merged over the built-in gazetteer.
	Gazetteer map[string]string
}

// NewRuleAnnotator creates an annotator with the built-in gazetteer plus
// the caller's entries.
func NewRuleAnnotator(opts Options) *RuleAnnotator {
	g := make(map[string]string, len(builtinGazetteer)+len(opts.Gazetteer))
	for k, v := range builtinGazetteer {
		g[k] = v
	}
	for k, v := range opts.Gazetteer {
		g[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return &RuleAnnotator{gazetteer: g}
}

// builtinGazetteer covers surfaces the capitalization heuristics would
// mislabel, mostly country names (GPE heuristics cannot tell a country from
// a city, and the default schema distinguishes the classes).
var builtinGazetteer = map[string]string{
	"england":        "COUNTRY",
	"scotland":       "COUNTRY",
	"france":         "COUNTRY",
	"germany":        "COUNTRY",
	"spain":          "COUNTRY",
	"italy":          "COUNTRY",
	"portugal":       "COUNTRY",
	"poland":         "COUNTRY",
	"austria":        "COUNTRY",
	"switzerland":    "COUNTRY",
	"netherlands":    "COUNTRY",
	"belgium":        "COUNTRY",
	"ireland":        "COUNTRY",
	"greece":         "COUNTRY",
	"russia":         "COUNTRY",
	"china":          "COUNTRY",
	"japan":          "COUNTRY",
	"india":          "COUNTRY",
	"brazil":         "COUNTRY",
	"canada":         "COUNTRY",
	"mexico":         "COUNTRY",
	"australia":      "COUNTRY",
	"united kingdom": "COUNTRY",
	"united states":  "COUNTRY",
	"great britain":  "COUNTRY",
}

// occupations labels common lowercase profession nouns.
var occupations = map[string]bool{
	"author": true, "writer": true, "poet": true, "novelist": true,
	"mathematician": true, "physicist": true, "chemist": true,
	"scientist": true, "engineer": true, "programmer": true,
	"composer": true, "painter": true, "sculptor": true,
	"philosopher": true, "historian": true, "economist": true,
	"screenwriter": true, "humourist": true, "humorist": true,
	"inventor": true, "astronomer": true, "biologist": true,
}

// stopwords break proper-noun runs even when capitalized (sentence starts,
// titles).
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "this": true, "that": true,
	"these": true, "those": true, "it": true, "he": true, "she": true,
	"they": true, "we": true, "i": true, "you": true, "his": true,
	"her": true, "its": true, "their": true, "in": true, "on": true,
	"at": true, "of": true, "for": true, "and": true, "or": true,
	"but": true, "as": true, "by": true, "with": true, "from": true,
	"to": true, "was": true, "is": true, "are": true, "were": true,
	"after": true, "before": true, "during": true, "when": true,
	"where": true, "while": true, "who": true, "which": true,
}

var orgSuffixes = map[string]bool{
	"inc": true, "corp": true, "ltd": true, "llc": true, "gmbh": true,
	"company": true, "university": true, "institute": true,
	"association": true, "society": true, "laboratories": true,
	"labs": true, "foundation": true, "college": true, "bank": true,
	"ministry": true, "agency": true, "council": true,
}

// locativePreps signal that the following proper noun names a place.
var locativePreps = map[string]bool{
	"in": true, "at": true, "near": true, "from": true, "into": true,
	"to": true, "within": true,
}

// auxVerbs and verbLexicon drive both verb detection and the dependency
// approximation.
var auxVerbs = map[string]bool{
	"is": true, "was": true, "are": true, "were": true, "be": true,
	"been": true, "being": true, "has": true, "had": true, "have": true,
}

var verbLexicon = map[string]bool{
	"born": true, "died": true, "wrote": true, "writes": true,
	"works": true, "worked": true, "founded": true, "located": true,
	"lives": true, "lived": true, "married": true, "won": true,
	"created": true, "directed": true, "published": true, "moved": true,
	"studied": true, "joined": true, "became": true, "invented": true,
	"discovered": true, "known": true, "holds": true, "held": true,
	"leads": true, "led": true, "owns": true, "owned": true,
}

var prepositions = map[string]bool{
	"in": true, "at": true, "on": true, "of": true, "to": true,
	"for": true, "by": true, "from": true, "with": true, "as": true,
}

var monthNames = map[string]bool{
	"january": true, "february": true, "march": true, "april": true,
	"may": true, "june": true, "july": true, "august": true,
	"september": true, "october": true, "november": true, "december": true,
}

// Annotate splits text into sentences and tokens, detects entity mentions,
// and builds shallow dependency edges. The result always satisfies
// Document.Validate.
func (a *RuleAnnotator) Annotate(ctx context.Context, text string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc := &Document{Text: text}

	for _, span := range splitSentences(text) {
		sent := Sentence{
			Text:  text[span.start:span.end],
			Start: span.start,
			End:   span.end,
		}
		sent.Tokens = tokenize(text, span.start, span.end)

		sentIdx := len(doc.Sentences)
		mentions := a.detectMentions(sent, sentIdx)
		sent.Edges = buildEdges(sent.Tokens, mentions)

		doc.Sentences = append(doc.Sentences, sent)
		doc.Mentions = append(doc.Mentions, mentions...)
	}

	return doc, nil
}

type span struct{ start, end int }

// splitSentences finds sentence boundaries at ./!/? followed by whitespace
// or end of text. Good enough for prose; abbreviation splits only cost an
// extraction window, never correctness.
func splitSentences(text string) []span {
	var spans []span
	start := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		if i+1 < len(text) && !unicode.IsSpace(rune(text[i+1])) {
			continue
		}
		s := trimSpan(text, start, i+1)
		if s.start < s.end {
			spans = append(spans, s)
		}
		start = i + 1
	}
	if s := trimSpan(text, start, len(text)); s.start < s.end {
		spans = append(spans, s)
	}
	return spans
}

func trimSpan(text string, start, end int) span {
	for start < end && unicode.IsSpace(rune(text[start])) {
		start++
	}
	for end > start && unicode.IsSpace(rune(text[end-1])) {
		end--
	}
	return span{start, end}
}

func isTokenRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '’' || r == '-'
}

// tokenize emits word tokens plus single-rune punctuation tokens, all with
// document-level byte offsets.
func tokenize(text string, start, end int) []Token {
	var tokens []Token
	i := start
	for i < end {
		r := rune(text[i])
		if unicode.IsSpace(r) {
			i++
			continue
		}
		if isTokenRune(r) {
			j := i
			for j < end && isTokenRune(rune(text[j])) {
				j++
			}
			tokens = append(tokens, Token{Text: text[i:j], Start: i, End: j})
			i = j
			continue
		}
		tokens = append(tokens, Token{Text: text[i : i+1], Start: i, End: i + 1})
		i++
	}
	return tokens
}

// detectMentions runs the mention rules in precedence order: gazetteer,
// dates, proper-noun runs, occupation nouns. Earlier rules claim their
// tokens; later rules never overlap them.
func (a *RuleAnnotator) detectMentions(sent Sentence, sentIdx int) []Mention {
	covered := make([]bool, len(sent.Tokens))
	var mentions []Mention

	add := func(tokStart, tokEnd int, label string) {
		first, last := sent.Tokens[tokStart], sent.Tokens[tokEnd-1]
		mentions = append(mentions, Mention{
			Text:       strings.TrimSpace(sentTextBetween(sent, first.Start, last.End)),
			Start:      first.Start,
			End:        last.End,
			Label:      label,
			Class:      ClassForLabel(label),
			Sentence:   sentIdx,
			TokenStart: tokStart,
			TokenEnd:   tokEnd,
		})
		for k := tokStart; k < tokEnd; k++ {
			covered[k] = true
		}
	}

	// Gazetteer, longest match first.
	for i := 0; i < len(sent.Tokens); i++ {
		if covered[i] {
			continue
		}
		for n := min(4, len(sent.Tokens)-i); n >= 1; n-- {
			if anyCovered(covered, i, i+n) {
				continue
			}
			key := joinTokensLower(sent.Tokens[i : i+n])
			if label, ok := a.gazetteer[key]; ok {
				add(i, i+n, label)
				break
			}
		}
	}

	// Dates.
	for i := 0; i < len(sent.Tokens); i++ {
		if covered[i] {
			continue
		}
		if n := matchDate(sent.Tokens[i:]); n > 0 && !anyCovered(covered, i, i+n) {
			add(i, i+n, "DATE")
		}
	}

	// Proper-noun runs.
	i := 0
	for i < len(sent.Tokens) {
		if covered[i] || !isProperToken(sent.Tokens[i]) {
			i++
			continue
		}
		j := i
		for j < len(sent.Tokens) && !covered[j] && isProperToken(sent.Tokens[j]) {
			j++
		}
		label := "PERSON"
		if orgSuffixes[strings.ToLower(strings.TrimRight(sent.Tokens[j-1].Text, "."))] {
			label = "ORG"
		} else if i > 0 && locativePreps[strings.ToLower(sent.Tokens[i-1].Text)] {
			label = "GPE"
		}
		add(i, j, label)
		i = j
	}

	// Occupation nouns.
	for i := 0; i < len(sent.Tokens); i++ {
		if covered[i] {
			continue
		}
		if occupations[strings.ToLower(sent.Tokens[i].Text)] {
			add(i, i+1, "OCCUPATION")
		}
	}

	return mentions
}

func sentTextBetween(sent Sentence, start, end int) string {
	rel0, rel1 := start-sent.Start, end-sent.Start
	if rel0 < 0 || rel1 > len(sent.Text) {
		return ""
	}
	return sent.Text[rel0:rel1]
}

func anyCovered(covered []bool, start, end int) bool {
	for k := start; k < end; k++ {
		if covered[k] {
			return true
		}
	}
	return false
}

func joinTokensLower(tokens []Token) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = strings.ToLower(t.Text)
	}
	return strings.Join(parts, " ")
}

// isProperToken reports whether a token can belong to a proper-noun run.
func isProperToken(t Token) bool {
	r := []rune(t.Text)
	if len(r) == 0 || !unicode.IsUpper(r[0]) {
		return false
	}
	return !stopwords[strings.ToLower(t.Text)]
}

func isYear(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s >= "1400" && s <= "2100"
}

func isDayNumber(s string) bool {
	if len(s) == 0 || len(s) > 2 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s != "0" && s <= "31"
}

// matchDate returns how many leading tokens form a date expression, or 0.
// Recognized shapes: "11 March 1952", "March 11, 1952", "March 1952",
// bare years 1400-2100.
func matchDate(tokens []Token) int {
	if len(tokens) == 0 {
		return 0
	}
	t0 := strings.ToLower(tokens[0].Text)

	// DD Month YYYY
	if isDayNumber(tokens[0].Text) && len(tokens) >= 3 &&
		monthNames[strings.ToLower(tokens[1].Text)] && isYear(tokens[2].Text) {
		return 3
	}

	if monthNames[t0] {
		// Month DD , YYYY
		if len(tokens) >= 4 && isDayNumber(tokens[1].Text) &&
			tokens[2].Text == "," && isYear(tokens[3].Text) {
			return 4
		}
		// Month DD YYYY
		if len(tokens) >= 3 && isDayNumber(tokens[1].Text) && isYear(tokens[2].Text) {
			return 3
		}
		// Month YYYY
		if len(tokens) >= 2 && isYear(tokens[1].Text) {
			return 2
		}
	}

	if isYear(tokens[0].Text) {
		return 1
	}
	return 0
}

func isVerbToken(text string) bool {
	lower := strings.ToLower(text)
	if auxVerbs[lower] || verbLexicon[lower] {
		return true
	}
	return len(lower) >= 5 && strings.HasSuffix(lower, "ed")
}

// buildEdges links each content verb to the nearest mention token on each
// side: nsubj to the left, obj (or obl:<prep> across a preposition) to the
// right. This is the dependency approximation the extractor's dep patterns
// run over.
func buildEdges(tokens []Token, mentions []Mention) []DepEdge {
	inMention := make([]bool, len(tokens))
	for _, m := range mentions {
		for k := m.TokenStart; k < m.TokenEnd; k++ {
			if k >= 0 && k < len(tokens) {
				inMention[k] = true
			}
		}
	}

	var edges []DepEdge
	for v, tok := range tokens {
		lower := strings.ToLower(tok.Text)
		// Auxiliaries carry no relation content on their own.
		if auxVerbs[lower] || !isVerbToken(tok.Text) {
			continue
		}

		// Subject: nearest mention token to the left.
		for s := v - 1; s >= 0; s-- {
			if inMention[s] {
				edges = append(edges, DepEdge{Head: v, Dep: s, Rel: "nsubj"})
				break
			}
		}

		// Object: nearest mention token to the right, possibly across a
		// single preposition.
		rel := "obj"
		for o := v + 1; o < len(tokens); o++ {
			olower := strings.ToLower(tokens[o].Text)
			if inMention[o] {
				edges = append(edges, DepEdge{Head: v, Dep: o, Rel: rel})
				break
			}
			if prepositions[olower] {
				rel = "obl:" + olower
				continue
			}
			if auxVerbs[olower] || olower == "," {
				continue
			}
			// A non-mention content word between verb and candidate object
			// breaks the direct link.
			if isVerbToken(tokens[o].Text) {
				break
			}
		}
	}
	return edges
}
