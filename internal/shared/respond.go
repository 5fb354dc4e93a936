package shared

import (
	"encoding/json"
	"net/http"
)

// RespondJSON writes v as a JSON response body with the given status.
func RespondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// ErrorBody is the uniform error envelope returned by all handlers.
type ErrorBody struct {
	Error string         `json:"error"`
	Meta  map[string]any `json:"meta,omitempty"`
}

// RespondError writes a JSON error envelope.
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, ErrorBody{Error: message})
}

// RespondErrorMeta writes a JSON error envelope with structured metadata,
// used for admission-denied responses that carry current/limit counters.
func RespondErrorMeta(w http.ResponseWriter, status int, message string, meta map[string]any) {
	RespondJSON(w, status, ErrorBody{Error: message, Meta: meta})
}
