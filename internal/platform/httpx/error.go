// Package httpx contains small helpers shared by HTTP handlers.
package httpx

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/heshammera/orderly-shop-sub002/internal/platform/requestctx"
)

// ErrorBody is the JSON payload returned for failed requests.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	TraceID string `json:"traceId,omitempty"`
}

type errorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// WriteError renders the standard error envelope with the given status.
func WriteError(w http.ResponseWriter, r *http.Request, status int, body ErrorBody) {
	if body.Code == "" {
		body.Code = http.StatusText(status)
	}
	if body.TraceID == "" && r != nil {
		body.TraceID = requestctx.TraceID(r.Context())
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorEnvelope{Error: body}); err != nil && r != nil {
		requestctx.Logger(r.Context()).Warn("httpx.write_error_failed", zap.Error(err))
	}
}

// WriteJSON renders a success payload with the given status.
func WriteJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil && r != nil {
		requestctx.Logger(r.Context()).Warn("httpx.write_json_failed", zap.Error(err))
	}
}
