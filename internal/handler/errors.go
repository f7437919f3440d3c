package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/tomhasit/tomhasit-web/internal/backend"
)

// logBackendError records a failed backend call against the request.
func logBackendError(r *http.Request, op string, err error) {
	ev := hlog.FromRequest(r).Warn().Err(err).Str("op", op)
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		ev = ev.Int("backend_status", apiErr.Status)
	}
	ev.Msg("backend call failed")
}

// backendMessage returns the backend's own message for err when it sent one,
// otherwise fallback.
func backendMessage(err error, fallback string) string {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" && apiErr.Status < 500 {
		return apiErr.Message
	}
	return fallback
}
