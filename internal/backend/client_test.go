package backend_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomhasit/tomhasit-web/internal/backend"
	"github.com/tomhasit/tomhasit-web/internal/backend/mockapi"
)

func newTestClient(t *testing.T) (*backend.Client, *mockapi.Server) {
	t.Helper()
	mock := mockapi.New(mockapi.Options{Secret: []byte("test-secret")})
	srv := httptest.NewServer(mock.Handler())
	t.Cleanup(srv.Close)
	return backend.New(srv.URL, 5*time.Second), mock
}

func TestLogin_Success(t *testing.T) {
	c, _ := newTestClient(t)

	resp, err := c.Login(context.Background(), backend.LoginRequest{
		Email:    mockapi.DefaultAccount.Email,
		Password: mockapi.DefaultAccount.Password,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Data.User)
	assert.Equal(t, "1", resp.Data.User.Identifier())
	assert.Equal(t, "admin", resp.Data.User.Role)
	assert.NotEmpty(t, resp.Data.AccessToken)
}

func TestLogin_WrongPassword(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.Login(context.Background(), backend.LoginRequest{Email: mockapi.DefaultAccount.Email, Password: "nope"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, backend.ErrUnauthorized))

	var apiErr *backend.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid credentials", apiErr.Message)
}

func TestLogin_InvalidRequestNotSent(t *testing.T) {
	c, mock := newTestClient(t)

	_, err := c.Login(context.Background(), backend.LoginRequest{Email: "not-an-email", Password: "x"})
	require.Error(t, err)
	assert.Zero(t, mock.Calls(http.MethodPost, "/auth/login"))
}

func TestLogin_MissingDataIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"message":"ok"}`))
	}))
	t.Cleanup(srv.Close)

	c := backend.New(srv.URL, time.Second)
	_, err := c.Login(context.Background(), backend.LoginRequest{Email: "a@b.co", Password: "pw"})
	assert.ErrorIs(t, err, backend.ErrMalformedResponse)
}

func TestLogin_MongoStyleID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{"user":{"_id":"abc123","email":"a@b.co","role":"editor"},"accessToken":"tok"}}`))
	}))
	t.Cleanup(srv.Close)

	c := backend.New(srv.URL, time.Second)
	resp, err := c.Login(context.Background(), backend.LoginRequest{Email: "a@b.co", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "abc123", resp.Data.User.Identifier())
}

func TestRefreshToken(t *testing.T) {
	c, mock := newTestClient(t)
	ctx := context.Background()

	tok, err := mock.IssueToken(mockapi.DefaultAccount.Email)
	require.NoError(t, err)

	fresh, err := c.RefreshToken(ctx, tok)
	require.NoError(t, err)
	assert.NotEmpty(t, fresh)

	mock.FailRefresh.Store(true)
	_, err = c.RefreshToken(ctx, tok)
	assert.ErrorIs(t, err, backend.ErrUnauthorized)
}

func TestRefreshToken_AlternateShapes(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr error
	}{
		{name: "top level", body: `{"accessToken":"top"}`, want: "top"},
		{name: "nested", body: `{"data":{"accessToken":"nested"}}`, want: "nested"},
		{name: "empty", body: `{}`, wantErr: backend.ErrMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "Bearer old", r.Header.Get("Authorization"))
				_, _ = w.Write([]byte(tt.body))
			}))
			t.Cleanup(srv.Close)

			tok, err := backend.New(srv.URL, time.Second).RefreshToken(context.Background(), "old")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, tok)
		})
	}
}

func TestPasswordRecoveryFlow(t *testing.T) {
	c, mock := newTestClient(t)
	ctx := context.Background()
	email := mockapi.DefaultAccount.Email

	require.NoError(t, c.ForgotPassword(ctx, email))
	otp := mock.PendingOTP(email)
	require.Len(t, otp, 6)

	_, err := c.VerifyOTP(ctx, email, "000000")
	if otp != "000000" {
		require.Error(t, err)
	}

	resetToken, err := c.VerifyOTP(ctx, email, otp)
	require.NoError(t, err)
	require.NotEmpty(t, resetToken)

	require.NoError(t, c.ResetPassword(ctx, resetToken, "NewPassw0rd"))
	assert.Equal(t, "NewPassw0rd", mock.Password(email))
}

func TestChangePassword(t *testing.T) {
	c, mock := newTestClient(t)
	ctx := context.Background()
	tok, err := mock.IssueToken(mockapi.DefaultAccount.Email)
	require.NoError(t, err)

	_, err = c.ChangePassword(ctx, tok, backend.ChangePasswordRequest{CurrentPassword: "wrong", NewPassword: "Another1"})
	var apiErr *backend.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)

	resp, err := c.ChangePassword(ctx, tok, backend.ChangePasswordRequest{CurrentPassword: "password", NewPassword: "Another1"})
	require.NoError(t, err)
	assert.True(t, resp.Success)

	_, err = c.ChangePassword(ctx, "", backend.ChangePasswordRequest{CurrentPassword: "Another1", NewPassword: "x"})
	assert.ErrorIs(t, err, backend.ErrUnauthorized)
}

func TestGalleryCRUD(t *testing.T) {
	c, mock := newTestClient(t)
	ctx := context.Background()
	tok, err := mock.IssueToken(mockapi.DefaultAccount.Email)
	require.NoError(t, err)

	err = c.CreateGallery(ctx, tok, backend.GalleryInput{Title: "No image"})
	require.Error(t, err)

	err = c.CreateGallery(ctx, tok, backend.GalleryInput{
		Title: "Switchboard",
		Image: &backend.Upload{Filename: "board.png", ContentType: "image/png", Data: []byte("png-bytes")},
	})
	require.NoError(t, err)

	items, err := c.ListGallery(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Switchboard", items[0].Title)

	require.NoError(t, c.UpdateGallery(ctx, tok, items[0].ID, backend.GalleryInput{Title: "Renamed"}))
	items, err = c.ListGallery(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", items[0].Title)

	assert.ErrorIs(t, c.DeleteGallery(ctx, "", items[0].ID), backend.ErrUnauthorized)
	require.NoError(t, c.DeleteGallery(ctx, tok, items[0].ID))

	items, err = c.ListGallery(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestReviews(t *testing.T) {
	c, mock := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.CreateReview(ctx, backend.CreateReviewRequest{
		FullName: "Ada Lovelace", Email: "ada@example.com", Comment: "Crystal clear line.",
	}))
	err := c.CreateReview(ctx, backend.CreateReviewRequest{FullName: "No Comment", Email: "x@example.com"})
	require.Error(t, err)

	reviews, err := c.ListReviews(ctx)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "Ada Lovelace", reviews[0].FullName)

	tok, err := mock.IssueToken(mockapi.DefaultAccount.Email)
	require.NoError(t, err)
	require.NoError(t, c.DeleteReview(ctx, tok, reviews[0].ID))

	var apiErr *backend.APIError
	require.ErrorAs(t, c.DeleteReview(ctx, tok, reviews[0].ID), &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestListGallery_RejectsItemWithoutID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":[{"title":"orphan"}]}`))
	}))
	t.Cleanup(srv.Close)

	_, err := backend.New(srv.URL, time.Second).ListGallery(context.Background())
	assert.ErrorIs(t, err, backend.ErrMalformedResponse)
}

func TestRefreshToken_TimeoutIsContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok123", r.Header.Get("Authorization"))
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)
	c := backend.New(srv.URL, 50*time.Millisecond)

	start := time.Now()
	_, err := c.RefreshToken(context.Background(), "tok123")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}
