package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomhasit/tomhasit-web/internal/api"
	"github.com/tomhasit/tomhasit-web/internal/auth"
	"github.com/tomhasit/tomhasit-web/internal/backend"
	"github.com/tomhasit/tomhasit-web/internal/backend/mockapi"
	"github.com/tomhasit/tomhasit-web/internal/content"
)

type testEnv struct {
	Router http.Handler
	Mock   *mockapi.Server
	Now    time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mock := mockapi.New(mockapi.Options{})
	srv := httptest.NewServer(mock.Handler())
	t.Cleanup(srv.Close)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	router := api.NewAPIRouter(api.Deps{
		Content:         content.NewService(backend.New(srv.URL, 5*time.Second), nil, 0),
		SessionLifetime: 24 * time.Hour,
		Now:             func() time.Time { return now },
	})
	return &testEnv{Router: router, Mock: mock, Now: now}
}

func (e *testEnv) get(t *testing.T, path string, rec *auth.SessionRecord) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if rec != nil {
		req = req.WithContext(auth.WithSession(req.Context(), rec))
	}
	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

func TestSession_Anonymous(t *testing.T) {
	env := newTestEnv(t)
	w := env.get(t, "/auth/session", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{}`, w.Body.String())
}

func TestSession_SignedIn(t *testing.T) {
	env := newTestEnv(t)
	rec := &auth.SessionRecord{
		User:        auth.User{ID: "1", Email: "admin@tomhasit.com", Role: "admin"},
		AccessToken: "tok",
		IssuedAt:    env.Now,
	}
	w := env.get(t, "/auth/session", rec)
	require.Equal(t, http.StatusOK, w.Code)

	var body api.SessionResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, rec.User, body.User)
	assert.Equal(t, "tok", body.AccessToken)
	assert.Empty(t, body.Error)
	assert.True(t, body.Expires.Equal(env.Now.Add(24*time.Hour)))
}

func TestSession_ReportsRefreshError(t *testing.T) {
	env := newTestEnv(t)
	rec := &auth.SessionRecord{
		User:        auth.User{ID: "1", Email: "admin@tomhasit.com", Role: "admin"},
		AccessToken: "tok",
		Error:       auth.RefreshAccessTokenError,
	}
	w := env.get(t, "/auth/session", rec)

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, auth.RefreshAccessTokenError, body["error"])
}

func TestGallery_List(t *testing.T) {
	env := newTestEnv(t)
	env.Mock.SeedGallery("Switchboard", "http://img/1.jpg")

	w := env.get(t, "/gallery", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data []backend.GalleryItem `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "Switchboard", body.Data[0].Title)
}

func TestGallery_EmptyIsArray(t *testing.T) {
	env := newTestEnv(t)
	w := env.get(t, "/gallery", nil)
	assert.JSONEq(t, `{"data":[]}`, w.Body.String())
}

func TestReviews_HidesEmail(t *testing.T) {
	env := newTestEnv(t)
	env.Mock.SeedReview("Ada", "ada@example.com", "Crystal clear line")

	w := env.get(t, "/reviews", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "ada@example.com")
	assert.Contains(t, w.Body.String(), "Crystal clear line")
}

func TestBackendDown(t *testing.T) {
	router := api.NewAPIRouter(api.Deps{
		Content: content.NewService(backend.New("http://127.0.0.1:1", time.Second), nil, 0),
	})
	req := httptest.NewRequest(http.MethodGet, "/reviews", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.JSONEq(t, `{"error":"reviews unavailable","code":"backend_error"}`, w.Body.String())
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)
	w := env.get(t, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"not found","code":"not_found"}`, w.Body.String())
}
