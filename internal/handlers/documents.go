package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"graph-rag/internal/documents"
	"graph-rag/internal/domain"
)

// DocumentHandler handles HTTP requests for papers.
type DocumentHandler struct {
	DocumentService *documents.Service
	// MaxUploadBytes bounds the multipart body.
	MaxUploadBytes int64
}

type uploadResponse struct {
	Message string `json:"message"`
	*documents.IngestResult
}

type relationRequest struct {
	Type     string `json:"type"`
	TargetID string `json:"target_id"`
}

// Upload handles POST /upload
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, domain.ErrInvalidInput, "File too large")
			return
		}
		logrus.WithError(err).Warn("handler: upload without a file field")
		respondError(w, http.StatusBadRequest, domain.ErrInvalidInput, "Multipart field 'file' is required")
		return
	}
	defer file.Close()

	res, err := h.DocumentService.Ingest(r.Context(), header.Filename, file)
	if err != nil {
		respondServiceError(w, err, "failed to process upload")
		return
	}

	respondJSON(w, http.StatusOK, uploadResponse{Message: "PDF processed successfully", IngestResult: res})
}

// CreateRelation handles POST /papers/{paperID}/relations
func (h *DocumentHandler) CreateRelation(w http.ResponseWriter, r *http.Request) {
	paperID := chi.URLParam(r, "paperID")

	var req relationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, domain.ErrInvalidInput, "Invalid request payload")
		return
	}

	if err := h.DocumentService.Relate(r.Context(), paperID, req.Type, req.TargetID); err != nil {
		respondServiceError(w, err, "failed to create relationship")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"from": paperID, "type": req.Type, "to": req.TargetID})
}

// Stats handles GET /stats
func (h *DocumentHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.DocumentService.Stats(r.Context())
	if err != nil {
		respondServiceError(w, err, "failed to get stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}
