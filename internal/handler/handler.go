// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/inkwell/inkwell/internal/handler/dto"
	"github.com/inkwell/inkwell/internal/middleware"
)

// Version is reported by the root endpoint.
const Version = "0.1.0"

// Handler serves the unversioned utility routes.
type Handler struct{}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{}
}

// Hello is a simple hello endpoint for testing.
// GET /
func (h *Handler) Hello(w http.ResponseWriter, r *http.Request) {
	response := map[string]string{
		"message": "Hello from Inkwell!",
		"version": Version,
	}
	writeJSON(w, http.StatusOK, response)
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes the API's standard error envelope.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.NewErrorResponse(code, message, ""))
}

// decodeJSON decodes and validates a request body into dst. On failure it
// writes the error response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		switch {
		case middleware.IsBodyTooLarge(err):
			writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
		case errors.Is(err, io.EOF):
			writeError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is required")
		default:
			writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		}
		return false
	}
	if err := dto.Validate(dst); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return false
	}
	return true
}
