package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/ksuid"

	"github.com/tomhasit/tomhasit-web/internal/auth"
	"github.com/tomhasit/tomhasit-web/internal/metrics"
	"github.com/tomhasit/tomhasit-web/internal/store"
)

const visitorCookie = "tomhasit_vid"

// untrackedPrefixes are never counted as page views.
var untrackedPrefixes = []string{"/static/", "/api/", "/metrics", "/healthz", "/favicon"}

// recordVisits enqueues one visit per public GET page view. The send never
// blocks; when the queue is full the visit is dropped and counted.
func recordVisits(ch chan<- store.Visit) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ch == nil || !trackable(r) {
				next.ServeHTTP(w, r)
				return
			}

			vid := ""
			if c, err := r.Cookie(visitorCookie); err == nil {
				if id, err := ksuid.Parse(c.Value); err == nil {
					vid = id.String()
				}
			}
			if vid == "" {
				vid = ksuid.New().String()
				http.SetCookie(w, &http.Cookie{
					Name:     visitorCookie,
					Value:    vid,
					Path:     "/",
					MaxAge:   365 * 24 * 60 * 60,
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			select {
			case ch <- store.Visit{VisitorID: vid, Path: r.URL.Path, VisitedAt: time.Now()}:
			default:
				metrics.VisitsDroppedTotal.Inc()
			}
			next.ServeHTTP(w, r)
		})
	}
}

func trackable(r *http.Request) bool {
	if r.Method != http.MethodGet || isHTMX(r) {
		return false
	}
	for _, p := range untrackedPrefixes {
		if strings.HasPrefix(r.URL.Path, p) {
			return false
		}
	}
	return auth.Classify(r.URL.Path) == auth.Public
}

// RunVisitWriter reads visits from the channel and persists them.
// On context cancellation it drains remaining visits before returning.
func RunVisitWriter(ctx context.Context, ch <-chan store.Visit, vs store.VisitStoreIface) {
	write := func(ctx context.Context, v store.Visit) {
		if err := vs.RecordVisit(ctx, v); err != nil {
			metrics.VisitsRecordErrorsTotal.Inc()
			log.Error().Err(err).Str("path", v.Path).Msg("visit write error")
			return
		}
		metrics.VisitsRecordedTotal.Inc()
	}
	for {
		select {
		case v, ok := <-ch:
			if !ok {
				return
			}
			write(ctx, v)
		case <-ctx.Done():
			// Drain remaining visits.
			for {
				select {
				case v, ok := <-ch:
					if !ok {
						return
					}
					write(context.Background(), v)
				default:
					return
				}
			}
		}
	}
}
