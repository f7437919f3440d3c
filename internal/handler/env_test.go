package handler_test

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tomhasit/tomhasit-web/internal/auth"
	"github.com/tomhasit/tomhasit-web/internal/backend"
	"github.com/tomhasit/tomhasit-web/internal/backend/mockapi"
	"github.com/tomhasit/tomhasit-web/internal/content"
	"github.com/tomhasit/tomhasit-web/internal/handler"
	"github.com/tomhasit/tomhasit-web/internal/store"
	"github.com/tomhasit/tomhasit-web/internal/testutil"
)

// clock is a settable time source shared with the server goroutines.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	Server  *httptest.Server
	Client  *http.Client
	Mock    *mockapi.Server
	Visits  *store.VisitStore
	VisitCh chan store.Visit
	Clock   *clock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mock := mockapi.New(mockapi.Options{Secret: []byte("test-secret")})
	backendSrv := httptest.NewServer(mock.Handler())
	t.Cleanup(backendSrv.Close)
	client := backend.New(backendSrv.URL, 5*time.Second)

	conn := testutil.NewTestDB(t)
	flow := auth.NewFlow(auth.NewSessionManager(conn, "sqlite3", time.Hour, false))

	clk := &clock{now: time.Now()}
	sessions, err := auth.NewStore(auth.StoreConfig{
		Secret:       "test-session-secret",
		RefreshAfter: time.Hour,
		Insecure:     true,
	}, client)
	require.NoError(t, err)
	sessions.Now = clk.Now

	visits := store.NewVisitStore(conn)
	visitCh := make(chan store.Visit, 64)

	router := handler.NewRouter(handler.Deps{
		Logger:          zerolog.Nop(),
		Flow:            flow,
		Sessions:        sessions,
		AuthHandlers:    auth.NewHandlers(auth.NewAuthenticator(client), sessions),
		Backend:         client,
		Content:         content.NewService(client, nil, 0),
		VisitStore:      visits,
		VisitCh:         visitCh,
		SessionLifetime: 24 * time.Hour,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	hc := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &testEnv{Server: srv, Client: hc, Mock: mock, Visits: visits, VisitCh: visitCh, Clock: clk}
}

type response struct {
	Status   int
	Header   http.Header
	Body     string
	Location string
}

func (e *testEnv) do(t *testing.T, req *http.Request) response {
	t.Helper()
	resp, err := e.Client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return response{
		Status:   resp.StatusCode,
		Header:   resp.Header,
		Body:     string(body),
		Location: resp.Header.Get("Location"),
	}
}

func (e *testEnv) newRequest(t *testing.T, method, path string, body io.Reader) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, e.Server.URL+path, body)
	require.NoError(t, err)
	return req
}

func (e *testEnv) get(t *testing.T, path string) response {
	t.Helper()
	return e.do(t, e.newRequest(t, http.MethodGet, path, nil))
}

func (e *testEnv) htmx(t *testing.T, method, path string) response {
	t.Helper()
	req := e.newRequest(t, method, path, nil)
	req.Header.Set("HX-Request", "true")
	return e.do(t, req)
}

func (e *testEnv) postForm(t *testing.T, path string, form url.Values) response {
	t.Helper()
	req := e.newRequest(t, http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(t, req)
}

// login signs in as the mock backend's default administrator.
func (e *testEnv) login(t *testing.T) {
	t.Helper()
	resp := e.postForm(t, "/login", url.Values{
		"email":    {mockapi.DefaultAccount.Email},
		"password": {mockapi.DefaultAccount.Password},
	})
	require.Equal(t, http.StatusSeeOther, resp.Status, resp.Body)
	require.Equal(t, "/dashboard", resp.Location)
}
