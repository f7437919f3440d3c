// Package backend is the typed client for the external Tomhasit REST API.
// Every response is decoded into an explicit schema and validated before it
// reaches the rest of the application.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/oauth2"

	"github.com/tomhasit/tomhasit-web/internal/metrics"
)

const maxResponseBytes = 4 << 20

var (
	// ErrUnauthorized matches any 401 answer from the backend.
	ErrUnauthorized = errors.New("backend: unauthorized")

	// ErrMalformedResponse is returned when a 2xx body does not match the
	// expected schema.
	ErrMalformedResponse = errors.New("backend: malformed response")
)

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend: %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend: %d %s", e.Status, http.StatusText(e.Status))
}

// Is lets errors.Is(err, ErrUnauthorized) match 401 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// Client talks to the backend at BaseURL (e.g. "http://localhost:5001/api/v1").
type Client struct {
	baseURL  string
	http     *http.Client
	timeout  time.Duration
	validate *validator.Validate
}

// New creates a Client. timeout bounds every request, including reading the
// body; zero means no limit. It is applied as a context deadline rather than
// http.Client.Timeout, which the oauth2 transport cannot cancel.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:  baseURL,
		http:     &http.Client{},
		timeout:  timeout,
		validate: validator.New(),
	}
}

// NewWithHTTPClient creates a Client that sends requests through hc.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	return &Client{baseURL: baseURL, http: hc, validate: validator.New()}
}

// request describes one backend call.
type request struct {
	endpoint    string // metrics label
	method      string
	path        string
	token       string // bearer; empty for anonymous calls
	body        io.Reader
	contentType string
}

// httpClient returns the client used for a call, attaching the bearer
// token through an oauth2 transport when one is given.
func (c *Client) httpClient(ctx context.Context, token string) *http.Client {
	if token == "" {
		return c.http
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
}

// do performs req and decodes a 2xx JSON body into out (if non-nil).
func (c *Client) do(ctx context.Context, req request, out any) error {
	start := time.Now()
	defer func() {
		metrics.BackendRequestDuration.WithLabelValues(req.endpoint).Observe(time.Since(start).Seconds())
	}()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, req.body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", req.endpoint, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}

	resp, err := c.httpClient(ctx, req.token).Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s: %w", req.endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s: read body: %w", req.endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var msg MessageResponse
		if json.Unmarshal(raw, &msg) == nil {
			apiErr.Message = msg.Message
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: %w: %v", req.endpoint, ErrMalformedResponse, err)
	}
	if err := c.validate.Struct(out); err != nil {
		return fmt.Errorf("%s: %w: %v", req.endpoint, ErrMalformedResponse, err)
	}
	return nil
}

func jsonBody(v any) (io.Reader, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(b), nil
}

// postJSON validates in, then POSTs it as JSON.
func (c *Client) postJSON(ctx context.Context, endpoint, path, token string, in, out any) error {
	if err := c.validate.Struct(in); err != nil {
		return fmt.Errorf("%s: invalid request: %w", endpoint, err)
	}
	body, err := jsonBody(in)
	if err != nil {
		return fmt.Errorf("%s: encode: %w", endpoint, err)
	}
	return c.do(ctx, request{
		endpoint:    endpoint,
		method:      http.MethodPost,
		path:        path,
		token:       token,
		body:        body,
		contentType: "application/json",
	}, out)
}

// --- Auth ---

// Login exchanges credentials for a user profile and access token.
func (c *Client) Login(ctx context.Context, in LoginRequest) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.postJSON(ctx, "login", "/auth/login", "", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RefreshToken exchanges the current access token for a renewed one.
func (c *Client) RefreshToken(ctx context.Context, accessToken string) (string, error) {
	var out RefreshResponse
	err := c.do(ctx, request{
		endpoint: "refresh_token",
		method:   http.MethodPost,
		path:     "/auth/refresh-token",
		token:    accessToken,
	}, &out)
	if err != nil {
		return "", err
	}
	tok := out.Token()
	if tok == "" {
		return "", fmt.Errorf("refresh_token: %w: empty accessToken", ErrMalformedResponse)
	}
	return tok, nil
}

// ForgotPassword asks the backend to email a one-time code.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.postJSON(ctx, "forgot_password", "/auth/forgot-password", "", ForgotPasswordRequest{Email: email}, nil)
}

// VerifyOTP checks the emailed code and returns the reset token (possibly
// empty if the backend issues none).
func (c *Client) VerifyOTP(ctx context.Context, email, otp string) (string, error) {
	var out VerifyOTPResponse
	if err := c.postJSON(ctx, "verify_otp", "/auth/verify-otp", "", VerifyOTPRequest{Email: email, OTP: otp}, &out); err != nil {
		return "", err
	}
	return out.ResetToken(), nil
}

// ResetPassword sets a new password using the token from VerifyOTP.
func (c *Client) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	return c.postJSON(ctx, "reset_password", "/auth/reset-password", resetToken, ResetPasswordRequest{NewPassword: newPassword}, nil)
}

// ChangePassword changes the signed-in user's password.
func (c *Client) ChangePassword(ctx context.Context, accessToken string, in ChangePasswordRequest) (*MessageResponse, error) {
	var out MessageResponse
	if err := c.postJSON(ctx, "change_password", "/auth/change-password", accessToken, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Gallery ---

// ListGallery returns every gallery item.
func (c *Client) ListGallery(ctx context.Context) ([]GalleryItem, error) {
	var out listEnvelope[GalleryItem]
	err := c.do(ctx, request{endpoint: "list_gallery", method: http.MethodGet, path: "/gallery/all-galleries"}, &out)
	if err != nil {
		return nil, err
	}
	return out.Data, nil
}

// CreateGallery uploads a new gallery item. in.Image is required.
func (c *Client) CreateGallery(ctx context.Context, accessToken string, in GalleryInput) error {
	if in.Image == nil {
		return errors.New("create_gallery: image is required")
	}
	return c.sendGallery(ctx, "create_gallery", http.MethodPost, "/gallery/add-gallery", accessToken, in)
}

// UpdateGallery changes a gallery item's title and, optionally, its image.
func (c *Client) UpdateGallery(ctx context.Context, accessToken, id string, in GalleryInput) error {
	return c.sendGallery(ctx, "update_gallery", http.MethodPut, "/gallery/update/"+url.PathEscape(id), accessToken, in)
}

// DeleteGallery removes a gallery item.
func (c *Client) DeleteGallery(ctx context.Context, accessToken, id string) error {
	return c.do(ctx, request{
		endpoint: "delete_gallery",
		method:   http.MethodDelete,
		path:     "/gallery/" + url.PathEscape(id),
		token:    accessToken,
	}, nil)
}

func (c *Client) sendGallery(ctx context.Context, endpoint, method, path, token string, in GalleryInput) error {
	if err := c.validate.Struct(in); err != nil {
		return fmt.Errorf("%s: invalid request: %w", endpoint, err)
	}
	body, contentType, err := galleryForm(in)
	if err != nil {
		return fmt.Errorf("%s: encode: %w", endpoint, err)
	}
	return c.do(ctx, request{
		endpoint:    endpoint,
		method:      method,
		path:        path,
		token:       token,
		body:        body,
		contentType: contentType,
	}, nil)
}

// galleryForm encodes the title and optional image as multipart/form-data.
func galleryForm(in GalleryInput) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("title", in.Title); err != nil {
		return nil, "", err
	}
	if in.Image != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%s`, strconv.Quote(in.Image.Filename)))
		ct := in.Image.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(in.Image.Data); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

// --- Reviews ---

// ListReviews returns every submitted review.
func (c *Client) ListReviews(ctx context.Context) ([]Review, error) {
	var out listEnvelope[Review]
	err := c.do(ctx, request{endpoint: "list_reviews", method: http.MethodGet, path: "/review/all-reviews"}, &out)
	if err != nil {
		return nil, err
	}
	return out.Data, nil
}

// CreateReview submits a visitor's "Got Dial Tone" story.
func (c *Client) CreateReview(ctx context.Context, in CreateReviewRequest) error {
	return c.postJSON(ctx, "create_review", "/review/add-review", "", in, nil)
}

// DeleteReview removes a review.
func (c *Client) DeleteReview(ctx context.Context, accessToken, id string) error {
	return c.do(ctx, request{
		endpoint: "delete_review",
		method:   http.MethodDelete,
		path:     "/review/" + url.PathEscape(id),
		token:    accessToken,
	}, nil)
}
