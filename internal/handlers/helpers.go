package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/shiftlog/internal/interfaces"
)

var validate = validator.New()

// maxBodyBytes caps request bodies; transition payloads are tiny
const maxBodyBytes = 64 * 1024

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// StatusForError maps the service error taxonomy onto HTTP status codes.
// notFound is the status to use for ErrNotFound, which differs per endpoint.
func StatusForError(err error, notFound int) int {
	switch {
	case errors.Is(err, interfaces.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, interfaces.ErrNotFound):
		return notFound
	case errors.Is(err, interfaces.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, interfaces.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, interfaces.ErrWriteConflict):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteServiceError writes err with the status from StatusForError. Server
// errors are logged and their details withheld from the client.
func WriteServiceError(w http.ResponseWriter, logger arbor.ILogger, err error, notFound int) {
	status := StatusForError(err, notFound)
	if status < http.StatusInternalServerError {
		WriteError(w, status, err.Error())
		return
	}

	logger.Error().Err(err).Msg("Request failed")
	if errors.Is(err, interfaces.ErrPersistenceAmbiguous) {
		WriteError(w, status, "Persistence outcome unknown; re-read state before retrying")
		return
	}
	if errors.Is(err, interfaces.ErrWriteConflict) {
		WriteError(w, status, "Store busy; nothing was written, retry the request")
		return
	}
	WriteError(w, status, "Internal server error")
}

// DecodeJSON decodes a size-limited request body into dst and validates its
// `validate` struct tags. Failures are ErrValidation.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", interfaces.ErrValidation, err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrValidation, err)
	}
	return nil
}

// PathSegments returns the URL-decoded, non-empty path segments after prefix.
// Example: PathSegments("/api/timelogs/p1/start", "/api/timelogs/") -> ["p1", "start"]
func PathSegments(r *http.Request, prefix string) ([]string, error) {
	path := r.URL.EscapedPath()
	if !strings.HasPrefix(path, prefix) {
		return nil, nil
	}

	var segments []string
	for _, raw := range strings.Split(strings.Trim(path[len(prefix):], "/"), "/") {
		if raw == "" {
			continue
		}
		segment, err := url.PathUnescape(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid path encoding", interfaces.ErrValidation)
		}
		segments = append(segments, segment)
	}
	return segments, nil
}
