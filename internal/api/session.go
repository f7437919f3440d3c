package api

import (
	"net/http"
	"time"

	"github.com/tomhasit/tomhasit-web/internal/auth"
)

// SessionResponse is the body of GET /api/auth/session for a signed-in user.
type SessionResponse struct {
	User        auth.User `json:"user"`
	AccessToken string    `json:"accessToken"`
	Error       string    `json:"error,omitempty"`
	Expires     time.Time `json:"expires"`
}

// sessionHandler reports the current session, or {} when there is none.
func sessionHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := auth.SessionFromContext(r.Context())
		if rec == nil {
			writeJSON(w, http.StatusOK, struct{}{})
			return
		}
		writeJSON(w, http.StatusOK, SessionResponse{
			User:        rec.User,
			AccessToken: rec.AccessToken,
			Error:       rec.Error,
			Expires:     deps.Now().Add(deps.SessionLifetime).UTC(),
		})
	}
}
