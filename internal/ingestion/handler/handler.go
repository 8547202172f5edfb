// Package handler serves the document write API: add, fetch, reindex and
// delete.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/docstore"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/logger"
)

// Engine is the write side the handler drives.
type Engine interface {
	AddDocument(ctx context.Context, text string, fields map[string]string) (docstore.DocumentID, error)
	Reindex(ctx context.Context, id docstore.DocumentID, text string, fields map[string]string) (docstore.DocumentID, error)
	DeleteDocument(ctx context.Context, id docstore.DocumentID) error
	Get(id docstore.DocumentID) (docstore.Document, error)
	Stats() indexer.Stats
}

type Handler struct {
	engine Engine
	logger *slog.Logger
}

func New(engine Engine) *Handler {
	return &Handler{
		engine: engine,
		logger: slog.Default().With("component", "ingestion-handler"),
	}
}

// Register mounts the document routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/documents", h.Add)
	mux.HandleFunc("GET /api/v1/documents/{id}", h.Get)
	mux.HandleFunc("PUT /api/v1/documents/{id}", h.Reindex)
	mux.HandleFunc("DELETE /api/v1/documents/{id}", h.Delete)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
}

func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	id, err := h.engine.AddDocument(ctx, req.Text, req.Fields)
	if err != nil {
		h.fail(ctx, w, "document ingestion failed", err)
		return
	}
	logger.FromContext(ctx).Info("document ingested", "doc_id", id)
	h.writeJSON(w, http.StatusCreated, ingestion.DocumentResponse{
		DocumentID: uint64(id),
		Status:     "indexed",
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	doc, err := h.engine.Get(id)
	if err != nil {
		h.fail(r.Context(), w, "document lookup failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) Reindex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	newID, err := h.engine.Reindex(ctx, id, req.Text, req.Fields)
	if err != nil {
		h.fail(ctx, w, "document reindex failed", err)
		return
	}
	logger.FromContext(ctx).Info("document reindexed", "old_doc_id", id, "doc_id", newID)
	h.writeJSON(w, http.StatusOK, ingestion.DocumentResponse{
		DocumentID: uint64(newID),
		Status:     "reindexed",
		ReplacedID: uint64(id),
	})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.engine.DeleteDocument(ctx, id); err != nil {
		h.fail(ctx, w, "document delete failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Stats())
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (*ingestion.DocumentRequest, bool) {
	var req ingestion.DocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	}
	if err := validator.ValidateDocumentRequest(&req); err != nil {
		var validationErr *validator.ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return nil, false
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return &req, true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (docstore.DocumentID, bool) {
	raw := r.PathValue("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		h.writeError(w, http.StatusBadRequest, "invalid document id")
		return 0, false
	}
	return docstore.DocumentID(id), true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	statusCode := apperrors.HTTPStatusCode(err)
	if statusCode >= http.StatusInternalServerError {
		logger.FromContext(ctx).Error(msg, "error", err, "status_code", statusCode)
	} else {
		logger.FromContext(ctx).Warn(msg, "error", err, "status_code", statusCode)
	}
	h.writeError(w, statusCode, err.Error())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
