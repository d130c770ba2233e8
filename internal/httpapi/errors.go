package httpapi

import (
	"encoding/json"
	"net/http"

	"agentd/internal/automation"
	"agentd/internal/chat"
	"agentd/internal/lifecycle"
	"agentd/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// statusForError maps well-known service errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case lifecycle.IsUnknownComponent(err):
		return http.StatusNotFound
	case automation.IsNeedsConfirmation(err):
		return http.StatusConflict
	case lifecycle.IsLoadTimeout(err), lifecycle.IsManagerClosed(err), chat.IsDependencyUnavailable(err):
		return http.StatusServiceUnavailable
	case lifecycle.IsLoadFailed(err):
		return http.StatusBadGateway
	}
	if he, ok := err.(HTTPError); ok {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: msg, Code: status})
}
