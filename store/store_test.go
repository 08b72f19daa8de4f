//go:build cgo

package store

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedDocument(t *testing.T, s *Store, path string) int64 {
	t.Helper()
	id, err := s.UpsertDocument(context.Background(), Document{
		Path:        path,
		Filename:    filepath.Base(path),
		Format:      "txt",
		ContentHash: "hash-" + path,
		Status:      "pending",
	})
	if err != nil {
		t.Fatalf("upserting document: %v", err)
	}
	return id
}

func TestNewCreatesSchema(t *testing.T) {
	s := newTestStore(t)

	for _, table := range []string{"documents", "entities", "triples", "questions", "generation_log", "schema_version"} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name = ?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestUpsertDocumentIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := seedDocument(t, s, "/docs/ada.txt")

	second, err := s.UpsertDocument(ctx, Document{
		Path:        "/docs/ada.txt",
		Filename:    "ada.txt",
		Format:      "txt",
		ContentHash: "new-hash",
		Status:      "ready",
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if first != second {
		t.Errorf("upsert by path should keep the id: %d != %d", first, second)
	}

	doc, err := s.GetDocumentByPath(ctx, "/docs/ada.txt")
	if err != nil {
		t.Fatalf("GetDocumentByPath: %v", err)
	}
	if doc == nil || doc.ContentHash != "new-hash" || doc.Status != "ready" {
		t.Errorf("upsert did not update fields: %+v", doc)
	}

	docs, err := s.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(docs) != 1 {
		t.Errorf("got %d documents, want 1", len(docs))
	}
}

func TestGetDocumentByPathMissing(t *testing.T) {
	s := newTestStore(t)
	doc, err := s.GetDocumentByPath(context.Background(), "/nope")
	if err != nil {
		t.Fatalf("GetDocumentByPath: %v", err)
	}
	if doc != nil {
		t.Errorf("missing document should be nil, got %+v", doc)
	}
}

func sampleGeneration(docID int64) ([]Entity, []Triple, []Question, GenerationRecord) {
	entities := []Entity{
		{DocumentID: docID, EntityID: "e-ada", Label: "Ada Lovelace", Class: "Person", Surfaces: []string{"Ada Lovelace", "Ada"}, Mentions: 2},
		{DocumentID: docID, EntityID: "e-london", Label: "London", Class: "Location", Surfaces: []string{"London"}, Mentions: 1},
	}
	triples := []Triple{
		{DocumentID: docID, SubjectID: "e-ada", Predicate: "born_in", ObjectID: "e-london", Pattern: "lexical:born in"},
	}
	questions := []Question{
		{DocumentID: docID, Text: "What is the place of birth of Ada Lovelace?", Relation: "born_in", EntityID: "e-ada"},
	}
	rec := GenerationRecord{
		DocumentID:    docID,
		Format:        "turtle",
		EntityCount:   2,
		TripleCount:   1,
		QuestionCount: 1,
		DurationMS:    12,
	}
	return entities, triples, questions, rec
}

func TestReplaceGenerationRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	docID := seedDocument(t, s, "/docs/ada.txt")

	entities, triples, questions, rec := sampleGeneration(docID)
	if err := s.ReplaceGeneration(ctx, docID, entities, triples, questions, rec); err != nil {
		t.Fatalf("ReplaceGeneration: %v", err)
	}

	gotEntities, err := s.EntitiesForDocument(ctx, docID)
	if err != nil {
		t.Fatalf("EntitiesForDocument: %v", err)
	}
	if len(gotEntities) != 2 {
		t.Fatalf("got %d entities, want 2", len(gotEntities))
	}
	if gotEntities[0].Label != "Ada Lovelace" || gotEntities[0].Mentions != 2 {
		t.Errorf("entity 0 = %+v", gotEntities[0])
	}
	if len(gotEntities[0].Surfaces) != 2 || gotEntities[0].Surfaces[1] != "Ada" {
		t.Errorf("surfaces did not round-trip: %v", gotEntities[0].Surfaces)
	}

	gotTriples, err := s.TriplesForDocument(ctx, docID)
	if err != nil {
		t.Fatalf("TriplesForDocument: %v", err)
	}
	if len(gotTriples) != 1 || gotTriples[0].Predicate != "born_in" || gotTriples[0].Pattern != "lexical:born in" {
		t.Errorf("triples = %+v", gotTriples)
	}

	gotQuestions, err := s.QuestionsForDocument(ctx, docID)
	if err != nil {
		t.Fatalf("QuestionsForDocument: %v", err)
	}
	if len(gotQuestions) != 1 || gotQuestions[0].Position != 0 {
		t.Errorf("questions = %+v", gotQuestions)
	}

	doc, err := s.GetDocumentByPath(ctx, "/docs/ada.txt")
	if err != nil {
		t.Fatalf("GetDocumentByPath: %v", err)
	}
	if doc.Status != "ready" {
		t.Errorf("document status = %q, want ready", doc.Status)
	}
}

func TestReplaceGenerationReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	docID := seedDocument(t, s, "/docs/ada.txt")

	entities, triples, questions, rec := sampleGeneration(docID)
	if err := s.ReplaceGeneration(ctx, docID, entities, triples, questions, rec); err != nil {
		t.Fatalf("first ReplaceGeneration: %v", err)
	}
	// Second run with a smaller result must fully replace the first.
	if err := s.ReplaceGeneration(ctx, docID, entities[:1], nil, nil, rec); err != nil {
		t.Fatalf("second ReplaceGeneration: %v", err)
	}

	gotEntities, _ := s.EntitiesForDocument(ctx, docID)
	gotTriples, _ := s.TriplesForDocument(ctx, docID)
	gotQuestions, _ := s.QuestionsForDocument(ctx, docID)
	if len(gotEntities) != 1 || len(gotTriples) != 0 || len(gotQuestions) != 0 {
		t.Errorf("re-run should replace rows: %d entities, %d triples, %d questions",
			len(gotEntities), len(gotTriples), len(gotQuestions))
	}

	recs, err := s.RecentGenerations(ctx, 10)
	if err != nil {
		t.Fatalf("RecentGenerations: %v", err)
	}
	if len(recs) != 2 {
		t.Errorf("audit log should keep both runs, got %d", len(recs))
	}
}

func TestSearchEntities(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	docID := seedDocument(t, s, "/docs/ada.txt")

	entities, triples, questions, rec := sampleGeneration(docID)
	if err := s.ReplaceGeneration(ctx, docID, entities, triples, questions, rec); err != nil {
		t.Fatalf("ReplaceGeneration: %v", err)
	}

	hits, err := s.SearchEntities(ctx, "lovelace", 10)
	if err != nil {
		t.Fatalf("SearchEntities: %v", err)
	}
	if len(hits) != 1 || hits[0].Label != "Ada Lovelace" {
		t.Errorf("hits = %+v", hits)
	}

	none, err := s.SearchEntities(ctx, "curie", 10)
	if err != nil {
		t.Fatalf("SearchEntities (no match): %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no hits, got %+v", none)
	}
}

func TestGetStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	docID := seedDocument(t, s, "/docs/ada.txt")

	entities, triples, questions, rec := sampleGeneration(docID)
	if err := s.ReplaceGeneration(ctx, docID, entities, triples, questions, rec); err != nil {
		t.Fatalf("ReplaceGeneration: %v", err)
	}

	stats, err := s.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	want := Stats{Documents: 1, Entities: 2, Triples: 1, Questions: 1}
	if *stats != want {
		t.Errorf("stats = %+v, want %+v", *stats, want)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("re-running Migrate: %v", err)
	}

	var count int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count); err != nil {
		t.Fatalf("counting versions: %v", err)
	}
	if count != len(migrations) {
		t.Errorf("schema_version rows = %d, want %d", count, len(migrations))
	}
}
