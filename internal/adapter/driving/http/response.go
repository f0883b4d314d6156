package httphandler

import (
	"encoding/json"
	"net/http"
	"time"
)

// timeFormat is the wire format for timestamps in API responses.
const timeFormat = time.RFC3339

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// ConnectionResponse is the JSON representation of a registered connection.
type ConnectionResponse struct {
	Provider   string `json:"provider"`
	ResourceID string `json:"resource_id"`
	Label      string `json:"label"`
}

// CredentialStatusResponse reports a tenant's credential state without
// exposing token material.
type CredentialStatusResponse struct {
	Connected bool   `json:"connected"`
	ExpiresAt string `json:"expires_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}
