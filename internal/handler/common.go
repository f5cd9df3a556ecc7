package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dandantas/scout/internal/provider"
	"github.com/dandantas/scout/internal/registry"
	"github.com/go-playground/validator/v10"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}

// writeDomainError maps a domain error onto the HTTP status taxonomy:
// unknown id -> 404, unconfigured/invalid input -> 400, anything else -> 500
func writeDomainError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors

	switch {
	case errors.Is(err, registry.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, provider.ErrNotConfigured):
		writeError(w, http.StatusBadRequest, "API keys not configured. Please call /configure endpoint first.")
	case errors.As(err, &validationErrs):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
