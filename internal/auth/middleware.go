package auth

import (
	"context"
)

type contextKey string

const sessionContextKey contextKey = "session"

// WithSession returns a copy of ctx carrying rec.
func WithSession(ctx context.Context, rec *SessionRecord) context.Context {
	return context.WithValue(ctx, sessionContextKey, rec)
}

// SessionFromContext retrieves the session placed by Store.LoadAndRefresh,
// or nil for anonymous requests.
func SessionFromContext(ctx context.Context) *SessionRecord {
	rec, _ := ctx.Value(sessionContextKey).(*SessionRecord)
	return rec
}

// UserFromContext returns the signed-in user, or nil.
func UserFromContext(ctx context.Context) *User {
	if rec := SessionFromContext(ctx); rec != nil {
		u := rec.User
		return &u
	}
	return nil
}
