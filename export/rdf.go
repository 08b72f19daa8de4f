package export

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/kgenlabs/kgen/graph"
)

// Serialize writes the graph to w in the given format. Output is
// deterministic: prefixes are sorted, statements keep the graph's emission
// order, and subjects group their statements together.
func Serialize(g *graph.KnowledgeGraph, format Format, w io.Writer) error {
	switch format {
	case FormatTurtle:
		return writeTurtle(g, w)
	case FormatXML:
		return writeRDFXML(g, w)
	case FormatJSONLD:
		return writeJSONLD(g, w)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// prefixTable resolves IRIs against the graph's prefix map, longest
// namespace first.
type prefixTable struct {
	prefixes map[string]string // prefix -> namespace
	ordered  []string          // namespaces, longest first
	byNS     map[string]string // namespace -> prefix
}

func newPrefixTable(prefixes map[string]string) *prefixTable {
	t := &prefixTable{
		prefixes: prefixes,
		byNS:     make(map[string]string, len(prefixes)),
	}
	for p, ns := range prefixes {
		t.byNS[ns] = p
		t.ordered = append(t.ordered, ns)
	}
	sort.Slice(t.ordered, func(i, j int) bool {
		if len(t.ordered[i]) != len(t.ordered[j]) {
			return len(t.ordered[i]) > len(t.ordered[j])
		}
		return t.ordered[i] < t.ordered[j]
	})
	return t
}

// split divides an IRI into a registered namespace and a local name.
func (t *prefixTable) split(iri string) (prefix, local string, ok bool) {
	for _, ns := range t.ordered {
		if rest, found := strings.CutPrefix(iri, ns); found && rest != "" && localNameOK(rest) {
			return t.byNS[ns], rest, true
		}
	}
	return "", "", false
}

// compact renders an IRI as prefix:local where possible, <iri> otherwise.
func (t *prefixTable) compact(iri string) string {
	if prefix, local, ok := t.split(iri); ok {
		return prefix + ":" + local
	}
	return "<" + iri + ">"
}

func localNameOK(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}

// sortedPrefixes returns prefix names in lexical order.
func sortedPrefixes(prefixes map[string]string) []string {
	names := make([]string, 0, len(prefixes))
	for p := range prefixes {
		names = append(names, p)
	}
	sort.Strings(names)
	return names
}

// subjectGroups returns subjects in first-seen order with their statements.
func subjectGroups(triples []graph.Triple) ([]string, map[string][]graph.Triple) {
	var order []string
	groups := make(map[string][]graph.Triple)
	for _, tr := range triples {
		s := tr.Subject.Value
		if _, ok := groups[s]; !ok {
			order = append(order, s)
		}
		groups[s] = append(groups[s], tr)
	}
	return order, groups
}

func turtleLiteral(t graph.Term) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range t.Value {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	if t.Lang != "" {
		b.WriteByte('@')
		b.WriteString(t.Lang)
	}
	return b.String()
}

func writeTurtle(g *graph.KnowledgeGraph, w io.Writer) error {
	prefixes := g.Prefixes()
	table := newPrefixTable(prefixes)

	var b strings.Builder
	for _, p := range sortedPrefixes(prefixes) {
		fmt.Fprintf(&b, "@prefix %s: <%s> .\n", p, prefixes[p])
	}

	term := func(t graph.Term) string {
		if t.IsLiteral {
			return turtleLiteral(t)
		}
		return table.compact(t.Value)
	}

	order, groups := subjectGroups(g.Triples())
	for _, subject := range order {
		stmts := groups[subject]
		b.WriteByte('\n')
		b.WriteString(table.compact(subject))
		for i, tr := range stmts {
			pred := table.compact(tr.Predicate.Value)
			if pred == "rdf:type" {
				pred = "a"
			}
			fmt.Fprintf(&b, " %s %s", pred, term(tr.Object))
			if i == len(stmts)-1 {
				b.WriteString(" .\n")
			} else {
				b.WriteString(" ;\n   ")
			}
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func xmlEscape(s string) string {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return s
	}
	return b.String()
}

func writeRDFXML(g *graph.KnowledgeGraph, w io.Writer) error {
	prefixes := g.Prefixes()
	table := newPrefixTable(prefixes)

	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString("<rdf:RDF")
	for _, p := range sortedPrefixes(prefixes) {
		fmt.Fprintf(&b, "\n    xmlns:%s=%q", p, prefixes[p])
	}
	b.WriteString(">\n")

	order, groups := subjectGroups(g.Triples())
	for _, subject := range order {
		fmt.Fprintf(&b, "  <rdf:Description rdf:about=%q>\n", xmlEscape(subject))
		for _, tr := range groups[subject] {
			prefix, local, ok := table.split(tr.Predicate.Value)
			if !ok {
				return fmt.Errorf("export: predicate %s has no registered namespace", tr.Predicate.Value)
			}
			qname := prefix + ":" + local
			if tr.Object.IsLiteral {
				if tr.Object.Lang != "" {
					fmt.Fprintf(&b, "    <%s xml:lang=%q>%s</%s>\n", qname, tr.Object.Lang, xmlEscape(tr.Object.Value), qname)
				} else {
					fmt.Fprintf(&b, "    <%s>%s</%s>\n", qname, xmlEscape(tr.Object.Value), qname)
				}
			} else {
				fmt.Fprintf(&b, "    <%s rdf:resource=%q/>\n", qname, xmlEscape(tr.Object.Value))
			}
		}
		b.WriteString("  </rdf:Description>\n")
	}
	b.WriteString("</rdf:RDF>\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func writeJSONLD(g *graph.KnowledgeGraph, w io.Writer) error {
	prefixes := g.Prefixes()
	table := newPrefixTable(prefixes)

	order, groups := subjectGroups(g.Triples())
	nodes := make([]map[string]any, 0, len(order))
	for _, subject := range order {
		node := map[string]any{"@id": table.compact(subject)}
		for _, tr := range groups[subject] {
			switch {
			case tr.Predicate.Value == graph.RDFType && !tr.Object.IsLiteral:
				node["@type"] = appendValue(node["@type"], table.compact(tr.Object.Value))
			case tr.Object.IsLiteral:
				v := map[string]any{"@value": tr.Object.Value}
				if tr.Object.Lang != "" {
					v["@language"] = tr.Object.Lang
				}
				node[table.compact(tr.Predicate.Value)] = appendValue(node[table.compact(tr.Predicate.Value)], v)
			default:
				node[table.compact(tr.Predicate.Value)] = appendValue(
					node[table.compact(tr.Predicate.Value)],
					map[string]any{"@id": table.compact(tr.Object.Value)},
				)
			}
		}
		nodes = append(nodes, node)
	}

	context := make(map[string]any, len(prefixes))
	for p, ns := range prefixes {
		context[p] = ns
	}

	doc := map[string]any{
		"@context": context,
		"@graph":   nodes,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(doc)
}

// appendValue accumulates multi-valued JSON-LD properties: a single value
// stays bare, a second value promotes it to an array.
func appendValue(existing any, v any) any {
	switch cur := existing.(type) {
	case nil:
		return v
	case []any:
		return append(cur, v)
	default:
		return []any{cur, v}
	}
}
