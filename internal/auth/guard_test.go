package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomhasit/tomhasit-web/internal/auth"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		path string
		want auth.Class
	}{
		{"/", auth.Public},
		{"/gallery", auth.Public},
		{"/got-dial-tone", auth.Public},
		{"/dashboard", auth.Protected},
		{"/dashboard/", auth.Protected},
		{"/dashboard/gallery/123/edit", auth.Protected},
		{"/dashboards", auth.Public},
		{"/dashboard-old", auth.Public},
		{"/login", auth.AuthOnly},
		{"/login/", auth.AuthOnly},
		{"/loginx", auth.Public},
		{"/forgot-password", auth.AuthOnly},
		{"/verify-email", auth.AuthOnly},
		{"/verify-email/resend", auth.AuthOnly},
		{"/change-password", auth.AuthOnly},
		{"/dashboard/change-password", auth.Protected},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, auth.Classify(tt.path), tt.path)
	}
}

type staticReader struct{ rec *auth.SessionRecord }

func (s staticReader) Read(*http.Request) (*auth.SessionRecord, error) {
	if s.rec == nil {
		return nil, auth.ErrNoSession
	}
	return s.rec, nil
}

func guarded(rec *auth.SessionRecord) (http.Handler, *bool) {
	reached := new(bool)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*reached = true
		w.WriteHeader(http.StatusOK)
	})
	return auth.NewGuard(staticReader{rec: rec}).Handler(next), reached
}

var signedIn = &auth.SessionRecord{User: auth.User{ID: "1", Email: "admin@site.com", Role: "admin"}, AccessToken: "tok123"}

func TestGuard_ProtectedWithoutSession(t *testing.T) {
	for _, path := range []string{"/dashboard", "/dashboard/gallery", "/dashboard/reviews?page=2"} {
		h, reached := guarded(nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

		assert.False(t, *reached, path)
		require.Equal(t, http.StatusFound, w.Code, path)
		loc, err := w.Result().Location()
		require.NoError(t, err)
		assert.Equal(t, "/login", loc.Path)
		assert.Equal(t, path, loc.Query().Get("callbackUrl"))
	}
}

func TestGuard_ProtectedWithSession(t *testing.T) {
	h, reached := guarded(signedIn)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard/reviews", nil))

	assert.True(t, *reached)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGuard_AuthOnlyWithSession(t *testing.T) {
	for _, path := range []string{"/login", "/forgot-password", "/verify-email", "/change-password"} {
		h, reached := guarded(signedIn)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

		assert.False(t, *reached, path)
		assert.Equal(t, http.StatusFound, w.Code, path)
		assert.Equal(t, "/dashboard", w.Header().Get("Location"), path)
	}
}

func TestGuard_AuthOnlyWithoutSession(t *testing.T) {
	h, reached := guarded(nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", nil))

	assert.True(t, *reached)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGuard_PublicAlwaysPasses(t *testing.T) {
	for _, rec := range []*auth.SessionRecord{nil, signedIn} {
		h, reached := guarded(rec)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/gallery", nil))
		assert.True(t, *reached)
	}
}

func TestGuard_WithStoreCookie(t *testing.T) {
	s, _ := newStore(t, testSecret, &fakeRefresher{})
	cookie := issueCookie(t, s, adminIdentity)

	reached := false
	h := auth.NewGuard(s).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, requestWith(cookie))
	assert.True(t, reached)
}

func TestSafeCallback(t *testing.T) {
	tests := map[string]string{
		"":                        "/dashboard",
		"/dashboard/gallery":      "/dashboard/gallery",
		"/dashboard?page=2":       "/dashboard?page=2",
		"https://evil.example":    "/dashboard",
		"//evil.example/path":     "/dashboard",
		"/\\evil.example":         "/dashboard",
		"/login":                  "/dashboard",
		"/verify-email?email=a@b": "/dashboard",
		"/gallery":                "/gallery",
	}
	for in, want := range tests {
		assert.Equal(t, want, auth.SafeCallback(in), in)
	}
}
