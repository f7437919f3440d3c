package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LoginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tomhasit_login_attempts_total",
		Help: "Credential login attempts by result (success, invalid, error).",
	}, []string{"result"})

	TokenRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tomhasit_token_refresh_total",
		Help: "Access token refresh attempts by result (success, failure).",
	}, []string{"result"})

	GuardRedirectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tomhasit_guard_redirects_total",
		Help: "Route guard redirects by target page.",
	}, []string{"target"})

	BackendRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tomhasit_backend_request_duration_seconds",
		Help:    "Latency of calls to the backend API.",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"endpoint"})

	CacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tomhasit_cache_lookups_total",
		Help: "Content cache lookups by result (hit, miss, error).",
	}, []string{"result"})

	VisitsRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tomhasit_visits_recorded_total",
		Help: "Page visit rows successfully written to the database.",
	})

	VisitsRecordErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tomhasit_visits_record_errors_total",
		Help: "Page visit insert failures.",
	})

	VisitsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tomhasit_visits_dropped_total",
		Help: "Page visits dropped because the recording queue was full.",
	})
)
