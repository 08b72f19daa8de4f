// Package ontology loads, validates, and persists the relation-type schema
// that drives extraction. Relation specs are keyed by name; domain and range
// are opaque class labels compared by equality only.
package ontology

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
)

var (
	// ErrNotFound is returned when a relation name is not in the store.
	ErrNotFound = errors.New("ontology: relation not found")

	// ErrInvalidSpec is returned for a relation spec with an empty name,
	// domain, or range.
	ErrInvalidSpec = errors.New("ontology: invalid relation spec")

	// ErrConfig is returned for malformed config files or relation entries
	// missing required fields.
	ErrConfig = errors.New("ontology: malformed config")
)

// RelationSpec describes one relation type in the schema.
type RelationSpec struct {
	Name        string `json:"-" yaml:"-"`
	Description string `json:"description" yaml:"description"`
	Domain      string `json:"domain" yaml:"domain"`
	Range       string `json:"range" yaml:"range"`
}

// Validate checks the invariants every stored spec must satisfy.
func (s RelationSpec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidSpec)
	}
	if s.Domain == "" {
		return fmt.Errorf("%w: relation %q has empty domain", ErrInvalidSpec, s.Name)
	}
	if s.Range == "" {
		return fmt.Errorf("%w: relation %q has empty range", ErrInvalidSpec, s.Name)
	}
	return nil
}

// Store holds the relation schema. Reads are safe for concurrent use;
// writes are serialized through the mutex (single-writer discipline).
type Store struct {
	mu        sync.RWMutex
	relations map[string]RelationSpec
}

// NewStore creates a store seeded with the given specs.
// Later specs replace earlier ones with the same name.
func NewStore(specs ...RelationSpec) (*Store, error) {
	s := &Store{relations: make(map[string]RelationSpec, len(specs))}
	for _, spec := range specs {
		if _, err := s.AddOrReplace(spec); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// relationBody is the on-disk shape of a relation entry. Field order here
// fixes the serialized field order.
type relationBody struct {
	Description string `json:"description"`
	Domain      string `json:"domain"`
	Range       string `json:"range"`
}

// Load reads a relation config (name -> {description, domain, range}) from
// path. Malformed JSON, unknown fields, and missing required fields all fail
// with ErrConfig.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ontology config: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	relations := make(map[string]RelationSpec, len(raw))
	for name, body := range raw {
		spec, err := decodeSpec(name, body)
		if err != nil {
			return nil, err
		}
		relations[name] = spec
	}

	return &Store{relations: relations}, nil
}

// decodeSpec decodes one relation entry strictly: unknown fields are
// rejected so that save(load(x)) never silently loses data.
func decodeSpec(name string, raw json.RawMessage) (RelationSpec, error) {
	var body struct {
		Description *string `json:"description"`
		Domain      *string `json:"domain"`
		Range       *string `json:"range"`
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		return RelationSpec{}, fmt.Errorf("%w: relation %q: %v", ErrConfig, name, err)
	}

	if body.Description == nil {
		return RelationSpec{}, fmt.Errorf("%w: relation %q missing required field %q", ErrConfig, name, "description")
	}
	if body.Domain == nil {
		return RelationSpec{}, fmt.Errorf("%w: relation %q missing required field %q", ErrConfig, name, "domain")
	}
	if body.Range == nil {
		return RelationSpec{}, fmt.Errorf("%w: relation %q missing required field %q", ErrConfig, name, "range")
	}

	spec := RelationSpec{
		Name:        name,
		Description: *body.Description,
		Domain:      *body.Domain,
		Range:       *body.Range,
	}
	if err := spec.Validate(); err != nil {
		return RelationSpec{}, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return spec, nil
}

// Get returns the spec for name, or ErrNotFound.
func (s *Store) Get(name string) (RelationSpec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	spec, ok := s.relations[name]
	if !ok {
		return RelationSpec{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return spec, nil
}

// AddOrReplace upserts a spec by name. It reports whether an existing entry
// was replaced; replacing a conflicting definition is allowed (last write
// wins) but warned about, never silent.
func (s *Store) AddOrReplace(spec RelationSpec) (bool, error) {
	if err := spec.Validate(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, replaced := s.relations[spec.Name]
	if replaced && prev != spec {
		slog.Warn("ontology: replacing relation definition",
			"relation", spec.Name,
			"old_domain", prev.Domain, "old_range", prev.Range,
			"new_domain", spec.Domain, "new_range", spec.Range)
	}
	s.relations[spec.Name] = spec
	return replaced, nil
}

// All returns every spec sorted by name.
func (s *Store) All() []RelationSpec {
	s.mu.RLock()
	defer s.mu.RUnlock()

	specs := make([]RelationSpec, 0, len(s.relations))
	for _, spec := range s.relations {
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// Len returns the number of relations in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.relations)
}

// Save writes the full schema to path deterministically: relation names
// sorted, fixed field order, two-space indent, trailing newline. A saved
// file loads back with no field loss.
func (s *Store) Save(path string) error {
	s.mu.RLock()
	out := make(map[string]relationBody, len(s.relations))
	for name, spec := range s.relations {
		out[name] = relationBody{
			Description: spec.Description,
			Domain:      spec.Domain,
			Range:       spec.Range,
		}
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing ontology config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing ontology config: %w", err)
	}
	return nil
}

// DefaultRelations returns the built-in relation schema used when no config
// file is supplied. A loaded config is merged on top of these (config wins).
func DefaultRelations() []RelationSpec {
	return []RelationSpec{
		{Name: "date_of_birth", Description: "date on which the subject was born", Domain: "Person", Range: "Date"},
		{Name: "date_of_death", Description: "date on which the subject died", Domain: "Person", Range: "Date"},
		{Name: "occupation", Description: "occupation of a person", Domain: "Person", Range: "Occupation"},
		{Name: "country_of_citizenship", Description: "country of which the subject is a citizen", Domain: "Person", Range: "Country"},
		{Name: "notable_work", Description: "most notable work of a person", Domain: "Person", Range: "CreativeWork"},
	}
}
