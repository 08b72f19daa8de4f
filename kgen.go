// Package kgen turns natural-language documents into RDF knowledge graphs
// with competency questions: parse, annotate, extract relation candidates,
// canonicalize against a relation schema, assemble the graph, and phrase
// the questions the graph should answer.
package kgen

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kgenlabs/kgen/cq"
	"github.com/kgenlabs/kgen/export"
	"github.com/kgenlabs/kgen/extract"
	"github.com/kgenlabs/kgen/graph"
	"github.com/kgenlabs/kgen/match"
	"github.com/kgenlabs/kgen/nlp"
	"github.com/kgenlabs/kgen/ontology"
	"github.com/kgenlabs/kgen/parser"
	"github.com/kgenlabs/kgen/store"
)

// Engine is the main entry point for knowledge graph generation.
type Engine interface {
	// Generate runs the full pipeline for one document file.
	Generate(ctx context.Context, path string, opts ...GenerateOption) (*Result, error)

	// GenerateText runs the pipeline on raw text. name labels the input in
	// logs and the archive.
	GenerateText(ctx context.Context, name, text string, opts ...GenerateOption) (*Result, error)

	// GenerateBatch processes several files concurrently. Results come back
	// in input order; per-file failures do not abort the batch.
	GenerateBatch(ctx context.Context, paths []string, opts ...GenerateOption) []BatchResult

	// AddCustomRelation adds or replaces a relation in the live schema.
	// Reports whether an existing relation was replaced.
	AddCustomRelation(spec ontology.RelationSpec) (bool, error)

	// SaveCustomRelations persists the live schema to a JSON file.
	SaveCustomRelations(path string) error

	// Relations lists the live schema, sorted by name.
	Relations() []ontology.RelationSpec

	// Store returns the archive, or nil when archiving is disabled.
	Store() *store.Store

	// Close releases the archive connection.
	Close() error
}

// Result is the output of one generation run.
type Result struct {
	Name      string                  `json:"name"`
	Format    export.Format           `json:"format"`
	Output    string                  `json:"output"`
	Entities  []match.CanonicalEntity `json:"entities"`
	Triples   []match.Triple          `json:"triples"`
	Rejected  []match.Rejection       `json:"rejected,omitempty"`
	Questions []cq.Question           `json:"questions"`
	Duration  time.Duration           `json:"duration"`

	graph *graph.KnowledgeGraph
}

// Graph returns the assembled knowledge graph.
func (r *Result) Graph() *graph.KnowledgeGraph { return r.graph }

// BatchResult pairs one batch input with its outcome.
type BatchResult struct {
	Path   string  `json:"path"`
	Result *Result `json:"result,omitempty"`
	Err    error   `json:"error,omitempty"`
}

// GenerateOption configures a single generation run.
type GenerateOption func(*generateOptions)

type generateOptions struct {
	maxQuestions *int
	format       *export.Format
	skipArchive  bool
}

// WithMaxQuestions overrides the configured question bound for this run.
func WithMaxQuestions(n int) GenerateOption {
	return func(o *generateOptions) { o.maxQuestions = &n }
}

// WithFormat overrides the configured output format for this run.
func WithFormat(f export.Format) GenerateOption {
	return func(o *generateOptions) { o.format = &f }
}

// WithoutArchive skips archiving for this run even when an archive is
// configured.
func WithoutArchive() GenerateOption {
	return func(o *generateOptions) { o.skipArchive = true }
}

// engine is the concrete implementation of Engine.
type engine struct {
	cfg       Config
	ont       *ontology.Store
	parsers   *parser.Registry
	annotator nlp.Annotator
	extractor *extract.Extractor
	matcher   *match.Matcher
	generator *cq.Generator
	builder   *graph.Builder
	archive   *store.Store
	format    export.Format
}

// New creates an engine from the configuration.
func New(cfg Config) (Engine, error) {
	if cfg.MaxQuestions == 0 {
		cfg.MaxQuestions = 3
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = 4
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = "turtle"
	}

	format, err := export.ParseFormat(cfg.OutputFormat)
	if err != nil {
		return nil, fmt.Errorf("%w: output format: %v", ErrConfig, err)
	}

	// Built-in relations first; a loaded config is merged on top (config wins).
	ont, err := ontology.NewStore(ontology.DefaultRelations()...)
	if err != nil {
		return nil, fmt.Errorf("%w: default relations: %v", ErrConfig, err)
	}
	if cfg.OntologyPath != "" {
		loaded, err := ontology.Load(cfg.OntologyPath)
		if err != nil {
			return nil, fmt.Errorf("%w: loading ontology: %v", ErrConfig, err)
		}
		for _, spec := range loaded.All() {
			if _, err := ont.AddOrReplace(spec); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrConfig, err)
			}
		}
	}

	matcher, err := match.New(ont)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	generator, err := cq.New(ont)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	var archive *store.Store
	if cfg.ArchivePath != "" {
		archive, err = store.New(cfg.ArchivePath)
		if err != nil {
			return nil, fmt.Errorf("opening archive: %w", err)
		}
	}

	return &engine{
		cfg:       cfg,
		ont:       ont,
		parsers:   parser.NewRegistry(),
		annotator: nlp.NewRuleAnnotator(nlp.Options{Gazetteer: cfg.Gazetteer}),
		extractor: extract.New(ont, extract.Config{
			MaxTokenDistance: cfg.MaxTokenDistance,
			Triggers:         cfg.Triggers,
		}),
		matcher:   matcher,
		generator: generator,
		builder:   graph.NewBuilder(cfg.Namespaces.toGraph()),
		archive:   archive,
		format:    format,
	}, nil
}

// Generate runs the full pipeline for one document file.
func (e *engine) Generate(ctx context.Context, path string, opts ...GenerateOption) (*Result, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	parsed, err := e.parsers.ParseFile(ctx, absPath)
	if err != nil {
		return nil, classifyParseErr(err)
	}

	res, err := e.run(ctx, filepath.Base(absPath), parsed.Text(), opts...)
	if err != nil {
		return nil, err
	}

	if e.archive != nil && !applyOptions(opts).skipArchive {
		hash, herr := fileHash(absPath)
		if herr != nil {
			return nil, fmt.Errorf("hashing file: %w", herr)
		}
		if aerr := e.archiveRun(ctx, absPath, parsed.Format, hash, res); aerr != nil {
			return nil, aerr
		}
	}
	return res, nil
}

// GenerateText runs the pipeline on raw text.
func (e *engine) GenerateText(ctx context.Context, name, text string, opts ...GenerateOption) (*Result, error) {
	if name == "" {
		name = "inline"
	}
	res, err := e.run(ctx, name, text, opts...)
	if err != nil {
		return nil, err
	}

	if e.archive != nil && !applyOptions(opts).skipArchive {
		sum := sha256.Sum256([]byte(text))
		hash := hex.EncodeToString(sum[:])
		if aerr := e.archiveRun(ctx, "inline:"+hash[:12], "text", hash, res); aerr != nil {
			return nil, aerr
		}
	}
	return res, nil
}

// run is the shared text-to-graph pipeline.
func (e *engine) run(ctx context.Context, name, text string, opts ...GenerateOption) (*Result, error) {
	options := applyOptions(opts)

	maxQuestions := e.cfg.MaxQuestions
	if options.maxQuestions != nil {
		maxQuestions = *options.maxQuestions
	}
	format := e.format
	if options.format != nil {
		format = *options.format
	}

	start := time.Now()
	slog.Info("generate: starting", "input", name, "bytes", len(text))

	doc, err := e.annotator.Annotate(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: annotating %s: %v", ErrExtraction, name, err)
	}

	candidates, err := e.extractor.Extract(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	matched := e.matcher.Match(candidates, doc.Mentions)
	questions := e.generator.Generate(matched, maxQuestions)

	g, err := e.builder.Build(matched, questions)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	var out strings.Builder
	if err := export.Serialize(g, format, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	res := &Result{
		Name:      name,
		Format:    format,
		Output:    out.String(),
		Entities:  matched.Entities,
		Triples:   matched.Triples,
		Rejected:  matched.Rejected,
		Questions: questions,
		Duration:  time.Since(start),
		graph:     g,
	}

	slog.Info("generate: complete",
		"input", name,
		"entities", len(res.Entities), "triples", len(res.Triples),
		"rejected", len(res.Rejected), "questions", len(res.Questions),
		"elapsed", res.Duration.Round(time.Millisecond))
	return res, nil
}

// GenerateBatch processes files concurrently under a semaphore.
func (e *engine) GenerateBatch(ctx context.Context, paths []string, opts ...GenerateOption) []BatchResult {
	results := make([]BatchResult, len(paths))

	sem := make(chan struct{}, e.cfg.Concurrency)
	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = BatchResult{Path: path, Err: ctx.Err()}
				return
			}

			res, err := e.Generate(ctx, path, opts...)
			results[i] = BatchResult{Path: path, Result: res, Err: err}
			if err != nil {
				slog.Warn("generate: batch item failed", "path", path, "error", err)
			}
		}(i, path)
	}
	wg.Wait()
	return results
}

// AddCustomRelation adds or replaces a relation in the live schema.
func (e *engine) AddCustomRelation(spec ontology.RelationSpec) (bool, error) {
	return e.ont.AddOrReplace(spec)
}

// SaveCustomRelations persists the live schema to a JSON file.
func (e *engine) SaveCustomRelations(path string) error {
	return e.ont.Save(path)
}

// Relations lists the live schema, sorted by name.
func (e *engine) Relations() []ontology.RelationSpec {
	return e.ont.All()
}

// Store returns the archive, or nil when archiving is disabled.
func (e *engine) Store() *store.Store {
	return e.archive
}

// Close releases the archive connection.
func (e *engine) Close() error {
	if e.archive == nil {
		return nil
	}
	return e.archive.Close()
}

// archiveRun persists one run's output under the given document key.
func (e *engine) archiveRun(ctx context.Context, path, format, hash string, res *Result) error {
	docID, err := e.archive.UpsertDocument(ctx, store.Document{
		Path:        path,
		Filename:    filepath.Base(path),
		Format:      format,
		ContentHash: hash,
		Status:      "processing",
	})
	if err != nil {
		return fmt.Errorf("archiving document: %w", err)
	}

	entities := make([]store.Entity, 0, len(res.Entities))
	for _, ent := range res.Entities {
		entities = append(entities, store.Entity{
			DocumentID: docID,
			EntityID:   ent.ID,
			Label:      ent.Label,
			Class:      ent.Class,
			Surfaces:   ent.Surfaces,
			Mentions:   ent.Mentions,
		})
	}
	triples := make([]store.Triple, 0, len(res.Triples))
	for _, tr := range res.Triples {
		triples = append(triples, store.Triple{
			DocumentID: docID,
			SubjectID:  tr.Subject,
			Predicate:  tr.Predicate,
			ObjectID:   tr.Object,
			Pattern:    tr.Pattern,
		})
	}
	questions := make([]store.Question, 0, len(res.Questions))
	for _, q := range res.Questions {
		questions = append(questions, store.Question{
			DocumentID: docID,
			Text:       q.Text,
			Relation:   q.Relation,
			EntityID:   q.EntityID,
		})
	}

	rec := store.GenerationRecord{
		DocumentID:    docID,
		Format:        string(res.Format),
		EntityCount:   len(res.Entities),
		TripleCount:   len(res.Triples),
		QuestionCount: len(res.Questions),
		RejectedCount: len(res.Rejected),
		DurationMS:    res.Duration.Milliseconds(),
	}
	if err := e.archive.ReplaceGeneration(ctx, docID, entities, triples, questions, rec); err != nil {
		return fmt.Errorf("archiving generation: %w", err)
	}
	return nil
}

func applyOptions(opts []GenerateOption) *generateOptions {
	options := &generateOptions{}
	for _, o := range opts {
		o(options)
	}
	return options
}

// classifyParseErr maps parser sentinels onto the package error taxonomy.
func classifyParseErr(err error) error {
	switch {
	case errors.Is(err, parser.ErrUnsupportedFormat):
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	case errors.Is(err, parser.ErrParsingFailed):
		return fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}
	return err
}

// fileHash computes the SHA-256 hash of a file's content.
func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
