// Package api serves the small JSON surface used by client-side scripts:
// the current session and the public content lists.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomhasit/tomhasit-web/internal/content"
)

// Deps holds all dependencies required to build the API router.
type Deps struct {
	Content *content.Service
	// SessionLifetime is reported as the session expiry.
	SessionLifetime time.Duration
	Now             func() time.Time
}

// NewAPIRouter creates a chi sub-router for /api. Session data comes from the
// request context, so the router must sit behind the session middleware.
func NewAPIRouter(deps Deps) chi.Router {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	r := chi.NewRouter()
	r.Use(jsonContentType)

	r.Get("/auth/session", sessionHandler(deps))
	r.Get("/gallery", galleryHandler(deps.Content))
	r.Get("/reviews", reviewsHandler(deps.Content))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found", "not_found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "method_not_allowed")
	})
	return r
}

// jsonContentType is a middleware that sets Content-Type: application/json on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
