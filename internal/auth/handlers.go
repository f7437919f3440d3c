package auth

import (
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"
)

// Handlers ties the Authenticator to the session Store for the login and
// logout endpoints. Form rendering is left to the page handlers.
type Handlers struct {
	authenticator *Authenticator
	sessions      *Store
}

// NewHandlers creates a new Handlers with the given dependencies.
func NewHandlers(a *Authenticator, s *Store) *Handlers {
	return &Handlers{authenticator: a, sessions: s}
}

// SignIn authorizes c and, on success, writes the session cookie and returns
// the record. The only error a caller needs to show is ErrInvalidCredentials.
func (h *Handlers) SignIn(w http.ResponseWriter, r *http.Request, c Credentials) (*SessionRecord, error) {
	id, err := h.authenticator.Authorize(r.Context(), c)
	if err != nil {
		return nil, err
	}
	rec, err := h.sessions.Issue(w, id)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("issue session")
		return nil, ErrInvalidCredentials
	}
	log.Ctx(r.Context()).Info().Str("user_id", rec.User.ID).Msg("signed in")
	return rec, nil
}

// Logout clears the session cookie and redirects to the login page. A
// callbackUrl form value is passed on so signing in again returns there.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Destroy(w)
	target := LoginPath
	if cb := r.FormValue("callbackUrl"); cb != "" {
		target += "?callbackUrl=" + url.QueryEscape(SafeCallback(cb))
	}
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
