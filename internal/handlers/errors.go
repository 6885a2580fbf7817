package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/jeremyjsx/blogdesk/internal/middleware"
)

type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]string) {
	writeJSON(w, status, map[string]any{
		"error": APIError{
			Code:      code,
			Message:   message,
			Details:   details,
			RequestID: middleware.GetRequestID(r.Context()),
		},
	})
}
