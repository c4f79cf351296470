package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"graph-rag/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.WithError(err).Error("handler: error writing response")
	}
}

func respondError(w http.ResponseWriter, status int, kind error, message string) {
	respondJSON(w, status, errorResponse{Error: message, Kind: domain.KindName(kind)})
}

// statusFor maps an error kind onto its HTTP status.
func statusFor(kind error) int {
	switch kind {
	case domain.ErrInvalidInput:
		return http.StatusBadRequest
	case domain.ErrNotReady:
		return http.StatusConflict
	case domain.ErrResourceExhausted:
		return http.StatusServiceUnavailable
	case domain.ErrStoreFailure:
		return http.StatusBadGateway
	case domain.ErrNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError writes err with the status of its kind. Internal errors
// are logged and their details withheld.
func respondServiceError(w http.ResponseWriter, err error, msg string) {
	kind := domain.KindOf(err)
	status := statusFor(kind)
	message := err.Error()
	if kind == domain.ErrInternal {
		logrus.WithError(err).Error("handler: " + msg)
		message = msg
	} else {
		logrus.WithError(err).WithField("status", status).Warn("handler: " + msg)
	}
	respondError(w, status, kind, message)
}
