package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/yourorg/orderdesk/internal/domain"
)

// MessageResponse is the standard machine-checkable message envelope
type MessageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, MessageResponse{Message: message})
}

// writeError maps the domain error taxonomy onto response codes. A missing
// actor (401) and an insufficient actor (403) stay distinguishable.
func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	var (
		validationErr *domain.ValidationError
		authnErr      *domain.AuthenticationError
		authzErr      *domain.AuthorizationError
		conflictErr   *domain.ConflictError
		notFoundErr   *domain.NotFoundError
		depErr        *domain.DependencyError
	)

	switch {
	case errors.As(err, &validationErr):
		writeMessage(w, http.StatusBadRequest, validationErr.Message)
	case errors.As(err, &authnErr):
		writeMessage(w, http.StatusUnauthorized, authnErr.Message)
	case errors.As(err, &authzErr):
		writeMessage(w, http.StatusForbidden, authzErr.Message)
	case errors.As(err, &conflictErr):
		writeMessage(w, http.StatusConflict, conflictErr.Message)
	case errors.As(err, &notFoundErr):
		writeMessage(w, http.StatusNotFound, notFoundErr.Message)
	case errors.As(err, &depErr):
		writeMessage(w, http.StatusInternalServerError, depErr.Message)
	default:
		log.Error("unhandled error", slog.String("error", err.Error()))
		writeMessage(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &domain.ValidationError{Message: "invalid request body"}
	}
	return nil
}
