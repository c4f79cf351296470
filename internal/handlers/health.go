package handlers

import (
	"context"
	"net/http"
	"time"

	"graph-rag/internal/domain"
)

// ServiceName is reported by the health probe.
const ServiceName = "GraphRAG Research Assistant API"

// HealthHandler reports liveness and store connectivity.
type HealthHandler struct {
	Graph    domain.GraphStore
	Embedder domain.Embedder
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	graphStatus := "connected"
	if err := h.Graph.Ping(ctx); err != nil {
		graphStatus = "disconnected"
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":            "healthy",
		"service":           ServiceName,
		"graph":             graphStatus,
		"vectorizer_fitted": h.Embedder.Fitted(),
	})
}
