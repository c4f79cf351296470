package handlers

import (
	"encoding/json"
	"net/http"

	"graph-rag/internal/domain"
	"graph-rag/internal/query"
)

// AskHandler answers questions.
type AskHandler struct {
	Retriever *query.Retriever
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer        string                `json:"answer"`
	AnswerHTML    string                `json:"answer_html"`
	VectorContext []domain.Passage      `json:"vector_context"`
	GraphContext  []domain.ContextEntry `json:"graph_context"`
}

// Ask handles POST /ask
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, domain.ErrInvalidInput, "Invalid request payload")
		return
	}

	rc, err := h.Retriever.Retrieve(r.Context(), req.Question)
	if err != nil {
		respondServiceError(w, err, "failed to process question")
		return
	}

	ans, err := query.Synthesize(rc)
	if err != nil {
		respondServiceError(w, err, "failed to synthesize answer")
		return
	}

	respondJSON(w, http.StatusOK, askResponse{
		Answer:        ans.Markdown,
		AnswerHTML:    ans.HTML,
		VectorContext: rc.Passages,
		GraphContext:  rc.Graph,
	})
}
