// Package handler provides HTTP handlers for the growthtrack API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/oculab/growthtrack/internal/domain"
	"github.com/oculab/growthtrack/internal/service"
)

// apiError is the JSON error envelope.
type apiError struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, apiError{Error: message})
}

// writeDomainError maps domain and service errors to HTTP responses.
// Credential failures and missing users share one message so the API does
// not leak which usernames exist.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid username or password")
	case errors.Is(err, domain.ErrNoSession), errors.Is(err, domain.ErrSessionNotFound):
		writeError(w, http.StatusUnauthorized, "login required")
	case errors.Is(err, domain.ErrUserAlreadyExists):
		writeError(w, http.StatusConflict, "username already taken")
	case errors.Is(err, domain.ErrEmailAlreadyExists):
		writeError(w, http.StatusConflict, "email already registered")
	case errors.Is(err, domain.ErrInvalidUsername),
		errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrInvalidPassword),
		errors.Is(err, service.ErrInvalidFilename):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, domain.ErrDataNotFound), errors.Is(err, domain.ErrMalformedData):
		// Corrupt files read as absent; the distinction stays server-side.
		writeError(w, http.StatusNotFound, "no data")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
