package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomhasit/tomhasit-web/internal/auth"
	"github.com/tomhasit/tomhasit-web/internal/backend"
)

// backendStub serves /auth/login with a fixed status and body.
func backendStub(t *testing.T, status int, body string) (*backend.Client, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return backend.New(srv.URL, time.Second), &calls
}

const adminLoginBody = `{"data":{"user":{"id":"1","email":"admin@site.com","role":"admin"},"accessToken":"tok123"}}`

func TestAuthorize_Success(t *testing.T) {
	c, calls := backendStub(t, http.StatusOK, adminLoginBody)
	a := auth.NewAuthenticator(c)

	id, err := a.Authorize(context.Background(), auth.Credentials{Email: "admin@site.com", Password: "right"})
	require.NoError(t, err)
	assert.Equal(t, auth.User{ID: "1", Email: "admin@site.com", Role: "admin"}, id.User)
	assert.Equal(t, "tok123", id.AccessToken)
	assert.EqualValues(t, 1, calls.Load())
}

func TestAuthorize_BackendRejects(t *testing.T) {
	c, _ := backendStub(t, http.StatusUnauthorized, `{"message":"Invalid credentials"}`)
	a := auth.NewAuthenticator(c)

	for i := 0; i < 3; i++ {
		id, err := a.Authorize(context.Background(), auth.Credentials{Email: "admin@site.com", Password: "wrong"})
		assert.Nil(t, id)
		require.ErrorIs(t, err, auth.ErrInvalidCredentials)
		assert.Equal(t, "Invalid email or password", err.Error())
	}
}

func TestAuthorize_EmptyFieldsSkipBackend(t *testing.T) {
	c, calls := backendStub(t, http.StatusOK, adminLoginBody)
	a := auth.NewAuthenticator(c)

	for _, creds := range []auth.Credentials{
		{Email: "", Password: "pw"},
		{Email: "admin@site.com", Password: ""},
		{Email: "   ", Password: "pw"},
	} {
		_, err := a.Authorize(context.Background(), creds)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	}
	assert.Zero(t, calls.Load())
}

func TestAuthorize_UnusableResponses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"message":"boom"}`},
		{"no data", http.StatusOK, `{"success":true}`},
		{"no token", http.StatusOK, `{"data":{"user":{"id":"1","email":"a@b.co"}}}`},
		{"no user id", http.StatusOK, `{"data":{"user":{"email":"a@b.co"},"accessToken":"tok"}}`},
		{"not json", http.StatusOK, `<html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := backendStub(t, tt.status, tt.body)
			id, err := auth.NewAuthenticator(c).Authorize(context.Background(), auth.Credentials{Email: "a@b.co", Password: "pw"})
			assert.Nil(t, id)
			assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
		})
	}
}

func TestAuthorize_NormalizesMissingEmailAndRole(t *testing.T) {
	c, _ := backendStub(t, http.StatusOK, `{"data":{"user":{"_id":"abc"},"accessToken":"tok"}}`)

	id, err := auth.NewAuthenticator(c).Authorize(context.Background(), auth.Credentials{Email: "editor@site.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, auth.User{ID: "abc", Email: "editor@site.com", Role: ""}, id.User)
}

type unreachable struct{}

func (unreachable) Login(context.Context, backend.LoginRequest) (*backend.LoginResponse, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func TestAuthorize_TransportError(t *testing.T) {
	_, err := auth.NewAuthenticator(unreachable{}).Authorize(context.Background(), auth.Credentials{Email: "a@b.co", Password: "pw"})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}
