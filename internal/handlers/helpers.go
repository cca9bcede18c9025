package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/benvon/corsgate/internal/cors"
	logpkg "github.com/benvon/corsgate/internal/logger"
	"github.com/benvon/corsgate/internal/validation"
)

// maxRequestBody caps admin request bodies.
const maxRequestBody = 64 << 10

const maxErrorMessageLength = 200

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// respondJSONError sends an error JSON response with a sanitized message
func respondJSONError(w http.ResponseWriter, status int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   false,
		"error":     errorType,
		"message":   logpkg.SanitizeString(message, maxErrorMessageLength),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// decodeJSON reads a single JSON object into dst and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("invalid request body: trailing data")
	}
	if err := validation.Struct(dst); err != nil {
		return err
	}
	return nil
}

// statusForError maps policy errors to HTTP status and error type.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, cors.ErrNotInitialized):
		return http.StatusServiceUnavailable, "policy_not_initialized"
	case errors.Is(err, cors.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_origin"
	case errors.Is(err, cors.ErrOriginExists):
		return http.StatusConflict, "origin_exists"
	case errors.Is(err, cors.ErrCredentialsWithWildcard):
		return http.StatusConflict, "credentials_conflict"
	case errors.Is(err, cors.ErrOriginNotFound):
		return http.StatusNotFound, "origin_not_found"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
