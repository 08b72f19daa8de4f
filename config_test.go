package kgen

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeConfig(t, "kgen.yaml", `
max_questions: 5
output_format: json-ld
namespaces:
  entity: http://example.org/e/
triggers:
  studied_at:
    - joined
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.MaxQuestions != 5 {
		t.Errorf("max_questions = %d, want 5", cfg.MaxQuestions)
	}
	if cfg.OutputFormat != "json-ld" {
		t.Errorf("output_format = %q, want json-ld", cfg.OutputFormat)
	}
	if cfg.Namespaces.Entity != "http://example.org/e/" {
		t.Errorf("entity namespace = %q", cfg.Namespaces.Entity)
	}
	if len(cfg.Triggers["studied_at"]) != 1 || cfg.Triggers["studied_at"][0] != "joined" {
		t.Errorf("triggers = %+v", cfg.Triggers)
	}
	// Unset fields keep their defaults.
	if cfg.Concurrency != 4 {
		t.Errorf("concurrency = %d, want default 4", cfg.Concurrency)
	}
}

func TestLoadConfigJSON(t *testing.T) {
	path := writeConfig(t, "kgen.json", `{"max_questions": 2, "archive_path": "/tmp/kgen.db"}`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.MaxQuestions != 2 || cfg.ArchivePath != "/tmp/kgen.db" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.OutputFormat != "turtle" {
		t.Errorf("output_format = %q, want default turtle", cfg.OutputFormat)
	}
}

func TestLoadConfigUnsupportedExtension(t *testing.T) {
	path := writeConfig(t, "kgen.toml", `max_questions = 2`)
	if _, err := LoadConfig(path); !errors.Is(err, ErrConfig) {
		t.Errorf("err = %v, want ErrConfig", err)
	}
}

func TestLoadConfigInvalidValues(t *testing.T) {
	path := writeConfig(t, "kgen.yaml", `max_questions: -1`)
	if _, err := LoadConfig(path); !errors.Is(err, ErrConfig) {
		t.Errorf("err = %v, want ErrConfig", err)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); !errors.Is(err, ErrConfig) {
		t.Errorf("err = %v, want ErrConfig", err)
	}
}
