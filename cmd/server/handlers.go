package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/kgenlabs/kgen"
	"github.com/kgenlabs/kgen/export"
	"github.com/kgenlabs/kgen/ontology"
	"github.com/kgenlabs/kgen/store"
)

type handler struct {
	engine kgen.Engine
}

func newHandler(e kgen.Engine) *handler {
	return &handler{engine: e}
}

// generateOpts builds per-request options from the shared knobs.
func generateOpts(maxQuestions int, format string) ([]kgen.GenerateOption, error) {
	var opts []kgen.GenerateOption
	if maxQuestions > 0 && maxQuestions <= 100 {
		opts = append(opts, kgen.WithMaxQuestions(maxQuestions))
	}
	if format != "" {
		f, err := export.ParseFormat(format)
		if err != nil {
			return nil, err
		}
		opts = append(opts, kgen.WithFormat(f))
	}
	return opts, nil
}

// POST /generate
// Accepts a multipart file upload, or JSON with either a file path or raw
// text. Responds with the full generation result.
func (h *handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	// Try multipart upload first
	if err := r.ParseMultipartForm(100 << 20); err == nil { // 100MB max
		file, header, err := r.FormFile("file")
		if err == nil {
			defer file.Close()

			// Sanitise filename to prevent path traversal.
			safeName := filepath.Base(header.Filename)

			tmpPath := filepath.Join(os.TempDir(), safeName)
			dst, err := os.Create(tmpPath)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to process file")
				slog.Error("creating temp file", "error", err)
				return
			}
			if _, err := io.Copy(dst, file); err != nil {
				dst.Close()
				writeError(w, http.StatusInternalServerError, "failed to save file")
				slog.Error("saving uploaded file", "error", err)
				return
			}
			dst.Close()
			defer os.Remove(tmpPath)

			maxQuestions, _ := strconv.Atoi(r.FormValue("max_questions"))
			opts, err := generateOpts(maxQuestions, r.FormValue("format"))
			if err != nil {
				writeError(w, http.StatusBadRequest, "unknown output format")
				return
			}

			res, err := h.engine.Generate(ctx, tmpPath, opts...)
			if err != nil {
				writeGenerateError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, res)
			return
		}
	}

	// JSON body with a path or raw text
	var req struct {
		Path         string `json:"path,omitempty"`
		Text         string `json:"text,omitempty"`
		Name         string `json:"name,omitempty"`
		MaxQuestions int    `json:"max_questions,omitempty"`
		Format       string `json:"format,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: expected multipart file or JSON with 'path' or 'text'")
		return
	}

	opts, err := generateOpts(req.MaxQuestions, req.Format)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown output format")
		return
	}

	switch {
	case req.Text != "":
		res, err := h.engine.GenerateText(ctx, req.Name, req.Text, opts...)
		if err != nil {
			writeGenerateError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)

	case req.Path != "":
		// Validate that path is a real file (prevents directory traversal probing).
		absPath, err := filepath.Abs(req.Path)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid path")
			return
		}
		info, err := os.Stat(absPath)
		if err != nil || info.IsDir() {
			writeError(w, http.StatusBadRequest, "path must be an existing file")
			return
		}

		res, err := h.engine.Generate(ctx, absPath, opts...)
		if err != nil {
			writeGenerateError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)

	default:
		writeError(w, http.StatusBadRequest, "either 'path' or 'text' is required")
	}
}

func writeGenerateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, kgen.ErrUnsupportedFormat):
		writeError(w, http.StatusUnsupportedMediaType, "unsupported document format")
	case errors.Is(err, kgen.ErrParsingFailed):
		writeError(w, http.StatusUnprocessableEntity, "document could not be parsed")
	default:
		writeError(w, http.StatusInternalServerError, "generation failed")
		slog.Error("generate error", "error", err)
	}
}

// GET /relations
func (h *handler) handleListRelations(w http.ResponseWriter, r *http.Request) {
	specs := h.engine.Relations()
	out := make([]map[string]string, 0, len(specs))
	for _, spec := range specs {
		out = append(out, map[string]string{
			"name":        spec.Name,
			"description": spec.Description,
			"domain":      spec.Domain,
			"range":       spec.Range,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"relations": out})
}

// POST /relations
func (h *handler) handleAddRelation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Domain      string `json:"domain"`
		Range       string `json:"range"`
		SavePath    string `json:"save_path,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	replaced, err := h.engine.AddCustomRelation(ontology.RelationSpec{
		Name:        req.Name,
		Description: req.Description,
		Domain:      req.Domain,
		Range:       req.Range,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid relation spec")
		return
	}

	if req.SavePath != "" {
		if err := h.engine.SaveCustomRelations(req.SavePath); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to save relations")
			slog.Error("saving relations", "path", req.SavePath, "error", err)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":     req.Name,
		"replaced": replaced,
	})
}

// archive returns the store or writes the no-archive error.
func (h *handler) archive(w http.ResponseWriter) *store.Store {
	s := h.engine.Store()
	if s == nil {
		writeError(w, http.StatusConflict, "no archive configured")
	}
	return s
}

// GET /documents
func (h *handler) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	s := h.archive(w)
	if s == nil {
		return
	}
	docs, err := s.ListDocuments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list documents")
		slog.Error("list documents error", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}

func (h *handler) documentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return 0, false
	}
	return id, true
}

// GET /documents/{id}/entities
func (h *handler) handleDocumentEntities(w http.ResponseWriter, r *http.Request) {
	s := h.archive(w)
	if s == nil {
		return
	}
	id, ok := h.documentID(w, r)
	if !ok {
		return
	}
	entities, err := s.EntitiesForDocument(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load entities")
		slog.Error("document entities error", "document_id", id, "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entities": entities})
}

// GET /documents/{id}/triples
func (h *handler) handleDocumentTriples(w http.ResponseWriter, r *http.Request) {
	s := h.archive(w)
	if s == nil {
		return
	}
	id, ok := h.documentID(w, r)
	if !ok {
		return
	}
	triples, err := s.TriplesForDocument(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load triples")
		slog.Error("document triples error", "document_id", id, "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"triples": triples})
}

// GET /documents/{id}/questions
func (h *handler) handleDocumentQuestions(w http.ResponseWriter, r *http.Request) {
	s := h.archive(w)
	if s == nil {
		return
	}
	id, ok := h.documentID(w, r)
	if !ok {
		return
	}
	questions, err := s.QuestionsForDocument(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load questions")
		slog.Error("document questions error", "document_id", id, "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"questions": questions})
}

// GET /search?q=...&limit=...
func (h *handler) handleSearchEntities(w http.ResponseWriter, r *http.Request) {
	s := h.archive(w)
	if s == nil {
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 0 || limit > 100 {
		limit = 0 // use default
	}

	hits, err := s.SearchEntities(r.Context(), query, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "search failed")
		slog.Error("search error", "query", query, "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entities": hits})
}

// GET /stats
func (h *handler) handleStats(w http.ResponseWriter, r *http.Request) {
	s := h.archive(w)
	if s == nil {
		return
	}
	stats, err := s.GetStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		slog.Error("stats error", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
