package kgen

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kgenlabs/kgen/graph"
)

// Config holds all configuration for the generation engine.
type Config struct {
	// OntologyPath points to the relation schema JSON file. Empty means the
	// built-in default relations.
	OntologyPath string `json:"ontology_path" yaml:"ontology_path"`

	// MaxQuestions bounds the competency questions per document.
	// Defaults to 3.
	MaxQuestions int `json:"max_questions" yaml:"max_questions"`

	// OutputFormat names the serialization syntax: turtle, xml, or
	// json-ld. Defaults to turtle.
	OutputFormat string `json:"output_format" yaml:"output_format"`

	// ArchivePath is the SQLite archive file. Empty disables archiving.
	ArchivePath string `json:"archive_path" yaml:"archive_path"`

	// Namespaces override the IRI prefixes minted terms live under.
	Namespaces NamespaceConfig `json:"namespaces" yaml:"namespaces"`

	// MaxTokenDistance bounds mention-pair distance during extraction.
	// Zero means the extractor default.
	MaxTokenDistance int `json:"max_token_distance" yaml:"max_token_distance"`

	// Triggers adds extra extraction trigger phrases per relation name.
	Triggers map[string][]string `json:"triggers,omitempty" yaml:"triggers,omitempty"`

	// Gazetteer adds fixed surface-to-NER-label entries for annotation.
	Gazetteer map[string]string `json:"gazetteer,omitempty" yaml:"gazetteer,omitempty"`

	// Concurrency caps parallel documents in batch generation.
	// Defaults to 4.
	Concurrency int `json:"concurrency" yaml:"concurrency"`
}

// NamespaceConfig mirrors graph.Namespaces for config files.
type NamespaceConfig struct {
	Entity   string `json:"entity" yaml:"entity"`
	Relation string `json:"relation" yaml:"relation"`
	Class    string `json:"class" yaml:"class"`
	Question string `json:"question" yaml:"question"`
}

func (n NamespaceConfig) toGraph() graph.Namespaces {
	return graph.Namespaces{
		Entity:   n.Entity,
		Relation: n.Relation,
		Class:    n.Class,
		Question: n.Question,
	}
}

// DefaultConfig returns a Config with sensible defaults: built-in
// relations, three questions, Turtle output, no archive.
func DefaultConfig() Config {
	return Config{
		MaxQuestions: 3,
		OutputFormat: "turtle",
		Concurrency:  4,
	}
}

// LoadConfig reads a YAML or JSON config file and fills unset fields with
// defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: reading %s: %v", ErrConfig, path, err)
	}

	cfg := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: parsing %s: %v", ErrConfig, path, err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: parsing %s: %v", ErrConfig, path, err)
		}
	default:
		return Config{}, fmt.Errorf("%w: config file %s must be .yaml, .yml, or .json", ErrConfig, path)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.MaxQuestions < 0 {
		return fmt.Errorf("%w: max_questions must not be negative", ErrConfig)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("%w: concurrency must not be negative", ErrConfig)
	}
	return nil
}
