package common

import (
	"encoding/json"
	"net/http"
	"time"

	"thoughtgraph/domain/thought"
)

// ThoughtsResponse is the collection fetch envelope.
type ThoughtsResponse struct {
	Success   bool              `json:"success"`
	Thoughts  []thought.Thought `json:"thoughts"`
	Timestamp string            `json:"timestamp"`
}

// SaveResponse acknowledges a collection replacement.
type SaveResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Count     int    `json:"count"`
}

// StatusResponse reports server liveness and the data file in use.
type StatusResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	DataFile  string `json:"dataFile"`
}

// ErrorResponse is the flat error envelope.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// Stamp formats a response timestamp.
func Stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// RespondJSON sends any envelope as JSON.
func RespondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// RespondError sends the flat error envelope.
func RespondError(w http.ResponseWriter, status int, code, message string) {
	RespondJSON(w, status, ErrorResponse{Success: false, Error: message, Code: code})
}

// ParseJSONBody parses a JSON request body with a size limit.
func ParseJSONBody(w http.ResponseWriter, r *http.Request, v interface{}, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	return json.NewDecoder(r.Body).Decode(v)
}
