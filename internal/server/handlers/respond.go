// Package handlers contains the HTTP handlers for serve mode.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gatepace/gatepace/internal/errors"
	"github.com/gatepace/gatepace/internal/server/middleware"
)

type errorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// nolint:errcheck // headers are already sent
	json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, r *http.Request, kind errors.Kind, message string) {
	writeJSON(w, errors.HTTPStatus(kind), errorResponse{
		Error:     message,
		Kind:      string(kind),
		RequestID: middleware.GetRequestID(r.Context()),
	})
}
