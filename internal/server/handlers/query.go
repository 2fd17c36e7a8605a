package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gatepace/gatepace/internal/core/gateway"
	"github.com/gatepace/gatepace/internal/errors"
)

// queryRequest is the serve-mode request body for a gateway query.
type queryRequest struct {
	API      string            `json:"api"`
	Target   string            `json:"target"`
	Method   string            `json:"method,omitempty"`
	Params   map[string]string `json:"params,omitempty"`
	Headers  map[string]string `json:"headers,omitempty"`
	UseCache *bool             `json:"use_cache,omitempty"`
}

// Query executes a gateway query described by the JSON request body. The
// response is the full typed result; the HTTP status mirrors the outcome.
func Query(g *gateway.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req queryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, errors.KindConfiguration, "invalid request body: "+err.Error())
			return
		}

		useCache := true
		if req.UseCache != nil {
			useCache = *req.UseCache
		}

		result := g.Query(r.Context(), gateway.Request{
			API:      req.API,
			Target:   req.Target,
			Method:   req.Method,
			Params:   req.Params,
			Headers:  req.Headers,
			UseCache: useCache,
		})

		status := http.StatusOK
		if !result.Success {
			status = errors.HTTPStatus(result.ErrorKind)
		}
		writeJSON(w, status, result)
	}
}
