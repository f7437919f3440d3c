package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tomhasit/tomhasit-web/internal/metrics"
)

// SessionCookieName is the cookie that holds the encrypted SessionRecord.
const SessionCookieName = "tomhasit.session-token"

// ErrNoSession is returned by Read when the request carries no usable session.
var ErrNoSession = errors.New("no session")

// Refresher renews backend access tokens.
type Refresher interface {
	RefreshToken(ctx context.Context, accessToken string) (string, error)
}

// StoreConfig configures a Store.
type StoreConfig struct {
	Secret       string
	Lifetime     time.Duration // cookie max age; default 30 days
	RefreshAfter time.Duration // token age that triggers a refresh; default 1h
	RetryAfter   time.Duration // wait after a failed refresh; default 1m
	Insecure     bool          // omit the Secure attribute (plain-HTTP development)
}

// Store issues, reads and refreshes the session cookie. It holds no per-user
// state; everything lives in the cookie.
type Store struct {
	codec        *codec
	refresher    Refresher
	lifetime     time.Duration
	refreshAfter time.Duration
	retryAfter   time.Duration
	secure       bool

	// Now is the clock used for issuance and refresh decisions.
	Now func() time.Time
}

// NewStore creates a Store. The secret must be non-empty.
func NewStore(cfg StoreConfig, r Refresher) (*Store, error) {
	c, err := newCodec(cfg.Secret)
	if err != nil {
		return nil, err
	}
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = 30 * 24 * time.Hour
	}
	if cfg.RefreshAfter <= 0 {
		cfg.RefreshAfter = time.Hour
	}
	if cfg.RetryAfter <= 0 {
		cfg.RetryAfter = time.Minute
	}
	return &Store{
		codec:        c,
		refresher:    r,
		lifetime:     cfg.Lifetime,
		refreshAfter: cfg.RefreshAfter,
		retryAfter:   cfg.RetryAfter,
		secure:       !cfg.Insecure,
		Now:          time.Now,
	}, nil
}

// Issue writes a fresh session for id and returns the record.
func (s *Store) Issue(w http.ResponseWriter, id *Identity) (*SessionRecord, error) {
	if id == nil || id.AccessToken == "" {
		return nil, errors.New("issue session: empty access token")
	}
	if id.User.ID == "" {
		return nil, errors.New("issue session: empty user id")
	}
	rec := &SessionRecord{
		User:        id.User,
		AccessToken: id.AccessToken,
		IssuedAt:    s.Now().UTC(),
	}
	if err := s.write(w, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Read returns the request's session. A record already placed in the context
// by LoadAndRefresh wins over the raw cookie. Missing, tampered or otherwise
// undecodable cookies yield ErrNoSession.
func (s *Store) Read(r *http.Request) (*SessionRecord, error) {
	if rec := SessionFromContext(r.Context()); rec != nil {
		return rec, nil
	}
	c, err := r.Cookie(SessionCookieName)
	if err != nil || c.Value == "" {
		return nil, ErrNoSession
	}
	rec, err := s.codec.decode(c.Value)
	if err != nil {
		log.Ctx(r.Context()).Debug().Err(err).Msg("discarding unreadable session cookie")
		return nil, ErrNoSession
	}
	return rec, nil
}

// Refresh renews rec's access token once it is older than the refresh
// threshold. It returns the record to keep and whether it differs from rec.
// A failed refresh keeps the old token, marks the record with
// RefreshAccessTokenError and stamps RefreshAttemptAt; no new attempt is made
// until the retry delay has passed.
func (s *Store) Refresh(ctx context.Context, rec *SessionRecord) (*SessionRecord, bool) {
	now := s.Now().UTC()
	if now.Sub(rec.IssuedAt) < s.refreshAfter {
		return rec, false
	}
	if rec.RefreshFailed() && now.Sub(rec.RefreshAttemptAt) < s.retryAfter {
		return rec, false
	}

	next := *rec
	token, err := s.refresher.RefreshToken(ctx, rec.AccessToken)
	if err != nil {
		metrics.TokenRefreshTotal.WithLabelValues("failure").Inc()
		log.Ctx(ctx).Warn().Err(err).Str("user_id", rec.User.ID).Msg("access token refresh failed")
		next.Error = RefreshAccessTokenError
		next.RefreshAttemptAt = now
		return &next, true
	}

	metrics.TokenRefreshTotal.WithLabelValues("success").Inc()
	next.AccessToken = token
	next.IssuedAt = now
	next.Error = ""
	next.RefreshAttemptAt = time.Time{}
	return &next, true
}

// LoadAndRefresh decodes the session cookie on every request, refreshes the
// token when due and places the record in the request context. The cookie is
// rewritten only when the record changed.
func (s *Store) LoadAndRefresh(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec, err := s.Read(r)
		if err != nil {
			if _, cerr := r.Cookie(SessionCookieName); cerr == nil {
				s.Destroy(w)
			}
			next.ServeHTTP(w, r)
			return
		}

		rec, changed := s.Refresh(r.Context(), rec)
		if changed {
			if err := s.write(w, rec); err != nil {
				log.Ctx(r.Context()).Error().Err(err).Msg("rewrite session cookie")
			}
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), rec)))
	})
}

// Destroy expires the session cookie.
func (s *Store) Destroy(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Store) write(w http.ResponseWriter, rec *SessionRecord) error {
	value, err := s.codec.encode(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(s.lifetime.Seconds()),
		Expires:  s.Now().Add(s.lifetime),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
