package auth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/tomhasit/tomhasit-web/internal/metrics"
)

// Class is the access category of a path.
type Class int

const (
	Public Class = iota
	Protected
	AuthOnly
)

func (c Class) String() string {
	switch c {
	case Protected:
		return "protected"
	case AuthOnly:
		return "auth-only"
	default:
		return "public"
	}
}

const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
)

var (
	protectedPrefixes = []string{DashboardPath}
	authOnlyPrefixes  = []string{LoginPath, "/forgot-password", "/verify-email", "/change-password"}
)

// Classify maps a request path to its access class. A prefix matches itself
// and anything below it, so "/dashboard/x" is protected but "/dashboards" is
// not.
func Classify(path string) Class {
	for _, p := range protectedPrefixes {
		if underPrefix(path, p) {
			return Protected
		}
	}
	for _, p := range authOnlyPrefixes {
		if underPrefix(path, p) {
			return AuthOnly
		}
	}
	return Public
}

func underPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	rest := path[len(prefix):]
	return rest == "" || rest[0] == '/'
}

// SessionReader reports the session of a request.
type SessionReader interface {
	Read(r *http.Request) (*SessionRecord, error)
}

// Guard redirects anonymous visitors away from protected pages and signed-in
// users away from the login and recovery pages.
type Guard struct {
	sessions SessionReader
}

// NewGuard creates a Guard.
func NewGuard(sr SessionReader) *Guard {
	return &Guard{sessions: sr}
}

// Handler wraps next with the redirect rules.
func (g *Guard) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		class := Classify(r.URL.Path)
		if class == Public {
			next.ServeHTTP(w, r)
			return
		}

		rec, err := g.sessions.Read(r)
		signedIn := err == nil && rec != nil

		switch {
		case class == Protected && !signedIn:
			metrics.GuardRedirectsTotal.WithLabelValues("login").Inc()
			target := LoginPath + "?callbackUrl=" + url.QueryEscape(r.URL.RequestURI())
			http.Redirect(w, r, target, http.StatusFound)
		case class == AuthOnly && signedIn:
			metrics.GuardRedirectsTotal.WithLabelValues("dashboard").Inc()
			http.Redirect(w, r, DashboardPath, http.StatusFound)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// SafeCallback returns raw if it is a local path that is not an auth-only
// page, otherwise the dashboard.
func SafeCallback(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return DashboardPath
	}
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() || u.Host != "" {
		return DashboardPath
	}
	if Classify(u.Path) == AuthOnly {
		return DashboardPath
	}
	return raw
}
