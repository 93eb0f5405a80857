package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/telemetry/logging"
)

// Error codes returned in ErrorResponse.Error.Code.
const (
	codeInvalidRequest = "invalid_request"
	codeTooLarge       = "input_too_large"
	codeNotFound       = "not_found"
	codeUnavailable    = "schema_unavailable"
	codeParseFailed    = "parse_failed"
	codeInternal       = "internal_error"
	codeUnauthorized   = "unauthorized"
	codeRateLimited    = "rate_limited"
)

// ErrorResponse is the JSON body of every non-2xx API response.
type ErrorResponse struct {
	Error     ErrorDetail `json:"error"`
	RequestID string      `json:"request_id,omitempty"`
}

// ErrorDetail describes one API error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:     ErrorDetail{Code: code, Message: message},
		RequestID: logging.GetRequestID(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
