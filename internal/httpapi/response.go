package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"pnl_dashboard/internal/sheets"
)

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message, RequestID: requestIDFromContext(r.Context())})
}

// statusFor maps table and context errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, sheets.ErrTableNotFound), errors.Is(err, sheets.ErrRowNotFound):
		return http.StatusNotFound
	case errors.Is(err, sheets.ErrReadOnly):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.WithError(err).WithField("request_id", requestIDFromContext(r.Context())).Error("request error")
	}
	writeError(w, r, status, err.Error())
}
