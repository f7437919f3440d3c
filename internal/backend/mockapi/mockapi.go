// Package mockapi is an in-process stand-in for the Tomhasit backend API.
// It backs the `tomhasit mock-backend` command for local development and the
// HTTP tests of the backend client, auth flow and dashboard.
package mockapi

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	purposeAccess = "access"
	purposeReset  = "reset"

	maxUploadBytes = 10 << 20
)

// Account is a backend user known to the mock.
type Account struct {
	ID       string
	Email    string
	Password string
	Role     string
}

// DefaultAccount is the development administrator.
var DefaultAccount = Account{ID: "1", Email: "admin@tomhasit.com", Password: "password", Role: "admin"}

// Options tune the mock's behaviour for tests.
type Options struct {
	// Secret signs issued tokens. A random secret is used when empty.
	Secret []byte
	// TokenTTL is the lifetime of issued access tokens (default 1h).
	TokenTTL time.Duration
	// Now overrides the clock.
	Now func() time.Time
}

type claims struct {
	Email   string `json:"email"`
	Role    string `json:"role"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

type galleryItem struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	Image     imageRef  `json:"image"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type imageRef struct {
	PublicID string `json:"public_id"`
	URL      string `json:"url"`
}

type review struct {
	ID        string    `json:"_id"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type upload struct {
	contentType string
	data        []byte
}

// Server is the fake backend. It is safe for concurrent use.
type Server struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu       sync.Mutex
	accounts map[string]*Account // by email
	otps     map[string]string   // email -> pending code
	gallery  map[string]*galleryItem
	reviews  map[string]*review
	uploads  map[string]upload

	// Calls counts requests per route pattern, for assertions in tests.
	calls map[string]int

	// FailRefresh makes /auth/refresh-token answer 401.
	FailRefresh atomic.Bool
	// FailLogin makes /auth/login answer 500.
	FailLogin atomic.Bool
}

// New creates a Server seeded with DefaultAccount.
func New(opts Options) *Server {
	s := &Server{
		secret:   opts.Secret,
		ttl:      opts.TokenTTL,
		now:      opts.Now,
		accounts: map[string]*Account{},
		otps:     map[string]string{},
		gallery:  map[string]*galleryItem{},
		reviews:  map[string]*review{},
		uploads:  map[string]upload{},
		calls:    map[string]int{},
	}
	if len(s.secret) == 0 {
		s.secret = []byte(randomDigits(32))
	}
	if s.ttl == 0 {
		s.ttl = time.Hour
	}
	if s.now == nil {
		s.now = time.Now
	}
	acct := DefaultAccount
	s.accounts[acct.Email] = &acct
	return s
}

// Handler returns the API routes mounted at the root (the client's base URL
// should point at wherever this is served).
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.count)

	r.Post("/auth/login", s.login)
	r.Post("/auth/refresh-token", s.refresh)
	r.Post("/auth/forgot-password", s.forgotPassword)
	r.Post("/auth/verify-otp", s.verifyOTP)
	r.Post("/auth/reset-password", s.resetPassword)
	r.Post("/auth/change-password", s.changePassword)

	r.Get("/gallery/all-galleries", s.listGallery)
	r.Post("/gallery/add-gallery", s.createGallery)
	r.Put("/gallery/update/{id}", s.updateGallery)
	r.Delete("/gallery/{id}", s.deleteGallery)
	r.Get("/uploads/{id}", s.serveUpload)

	r.Get("/review/all-reviews", s.listReviews)
	r.Post("/review/add-review", s.createReview)
	r.Delete("/review/{id}", s.deleteReview)
	return r
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[r.Method+" "+r.URL.Path]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// Calls returns how many times method+path was requested.
func (s *Server) Calls(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+path]
}

// AddAccount registers another backend user.
func (s *Server) AddAccount(a Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.Email] = &a
}

// Password returns the current password of email, for tests.
func (s *Server) Password(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[email]; ok {
		return a.Password
	}
	return ""
}

// PendingOTP returns the last code sent to email, for tests.
func (s *Server) PendingOTP(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.otps[email]
}

// SeedGallery inserts a gallery item and returns its id.
func (s *Server) SeedGallery(title, url string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	id := uuid.NewString()
	s.gallery[id] = &galleryItem{ID: id, Title: title, Image: imageRef{PublicID: id, URL: url}, CreatedAt: now, UpdatedAt: now}
	return id
}

// SeedReview inserts a review and returns its id.
func (s *Server) SeedReview(fullName, email, comment string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	id := uuid.NewString()
	s.reviews[id] = &review{ID: id, FullName: fullName, Email: email, Comment: comment, CreatedAt: now, UpdatedAt: now}
	return id
}

// IssueToken signs an access token for email, for tests.
func (s *Server) IssueToken(email string) (string, error) {
	s.mu.Lock()
	acct, ok := s.accounts[email]
	s.mu.Unlock()
	if !ok {
		return "", errors.New("unknown account")
	}
	return s.sign(acct, purposeAccess)
}

func (s *Server) sign(a *Account, purpose string) (string, error) {
	now := s.now()
	c := claims{
		Email:   a.Email,
		Role:    a.Role,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
}

// authenticate verifies the bearer token on r and returns its account.
func (s *Server) authenticate(r *http.Request, purpose string) (*Account, error) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		return nil, errors.New("missing bearer token")
	}
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	if c.Purpose != purpose {
		return nil, fmt.Errorf("token purpose %q, want %q", c.Purpose, purpose)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[c.Email]
	if !ok {
		return nil, errors.New("account no longer exists")
	}
	return acct, nil
}

// --- Auth handlers ---

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if s.FailLogin.Load() {
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	s.mu.Lock()
	acct, ok := s.accounts[in.Email]
	s.mu.Unlock()
	if !ok || acct.Password != in.Password {
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	token, err := s.sign(acct, purposeAccess)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Could not issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Login successful",
		"data": map[string]any{
			"user":        map[string]string{"id": acct.ID, "email": acct.Email, "role": acct.Role},
			"accessToken": token,
		},
	})
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	if s.FailRefresh.Load() {
		writeMessage(w, http.StatusUnauthorized, "Refresh token expired")
		return
	}
	acct, err := s.authenticate(r, purposeAccess)
	if err != nil {
		writeMessage(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	token, err := s.sign(acct, purposeAccess)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Could not issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"accessToken": token})
}

func (s *Server) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Email == "" {
		writeMessage(w, http.StatusBadRequest, "Email is required")
		return
	}
	s.mu.Lock()
	_, ok := s.accounts[in.Email]
	code := randomDigits(6)
	if ok {
		s.otps[in.Email] = code
	}
	s.mu.Unlock()
	if !ok {
		writeMessage(w, http.StatusNotFound, "User not found")
		return
	}
	log.Info().Str("email", in.Email).Str("otp", code).Msg("mock backend: password reset code issued")
	writeMessage(w, http.StatusOK, "OTP sent to your email")
}

func (s *Server) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	s.mu.Lock()
	code, pending := s.otps[in.Email]
	acct := s.accounts[in.Email]
	if pending && code == in.OTP {
		delete(s.otps, in.Email)
	}
	s.mu.Unlock()
	if !pending || code != in.OTP || acct == nil {
		writeMessage(w, http.StatusBadRequest, "Invalid OTP")
		return
	}
	token, err := s.sign(acct, purposeReset)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Could not issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "OTP verified", "token": token})
}

func (s *Server) resetPassword(w http.ResponseWriter, r *http.Request) {
	acct, err := s.authenticate(r, purposeReset)
	if err != nil {
		writeMessage(w, http.StatusUnauthorized, "Invalid or expired reset token")
		return
	}
	var in struct {
		NewPassword string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.NewPassword == "" {
		writeMessage(w, http.StatusBadRequest, "New password is required")
		return
	}
	s.mu.Lock()
	acct.Password = in.NewPassword
	s.mu.Unlock()
	writeMessage(w, http.StatusOK, "Password reset successfully")
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	acct, err := s.authenticate(r, purposeAccess)
	if err != nil {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var in struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.NewPassword == "" {
		writeMessage(w, http.StatusBadRequest, "New password is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct.Password != in.CurrentPassword {
		writeMessage(w, http.StatusBadRequest, "Current password is incorrect")
		return
	}
	acct.Password = in.NewPassword
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Password changed successfully"})
}

// --- Gallery handlers ---

func (s *Server) listGallery(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	items := make([]galleryItem, 0, len(s.gallery))
	for _, it := range s.gallery {
		items = append(items, *it)
	}
	s.mu.Unlock()
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true, "message": "Galleries retrieved", "statusCode": http.StatusOK, "data": items,
	})
}

// readImage extracts the optional "image" part of a multipart request.
func readImage(r *http.Request) (*upload, error) {
	file, hdr, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()
	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return nil, err
	}
	return &upload{contentType: hdr.Header.Get("Content-Type"), data: data}, nil
}

func (s *Server) createGallery(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authenticate(r, purposeAccess); err != nil {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid form")
		return
	}
	title := r.FormValue("title")
	img, err := readImage(r)
	if err != nil || img == nil || title == "" {
		writeMessage(w, http.StatusBadRequest, "Title and image are required")
		return
	}
	now := s.now().UTC()
	id := uuid.NewString()
	s.mu.Lock()
	s.uploads[id] = *img
	s.gallery[id] = &galleryItem{ID: id, Title: title, Image: imageRef{PublicID: id, URL: "/uploads/" + id}, CreatedAt: now, UpdatedAt: now}
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "message": "Gallery created"})
}

func (s *Server) updateGallery(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authenticate(r, purposeAccess); err != nil {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid form")
		return
	}
	id := chi.URLParam(r, "id")
	img, err := readImage(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid image")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.gallery[id]
	if !ok {
		writeMessage(w, http.StatusNotFound, "Gallery not found")
		return
	}
	if t := r.FormValue("title"); t != "" {
		it.Title = t
	}
	if img != nil {
		s.uploads[id] = *img
	}
	it.UpdatedAt = s.now().UTC()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Gallery updated"})
}

func (s *Server) deleteGallery(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authenticate(r, purposeAccess); err != nil {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	_, ok := s.gallery[id]
	delete(s.gallery, id)
	delete(s.uploads, id)
	s.mu.Unlock()
	if !ok {
		writeMessage(w, http.StatusNotFound, "Gallery not found")
		return
	}
	writeMessage(w, http.StatusOK, "Gallery deleted")
}

func (s *Server) serveUpload(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	up, ok := s.uploads[chi.URLParam(r, "id")]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", up.contentType)
	_, _ = w.Write(up.data)
}

// --- Review handlers ---

func (s *Server) listReviews(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	items := make([]*review, 0, len(s.reviews))
	for _, rv := range s.reviews {
		items = append(items, rv)
	}
	s.mu.Unlock()
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true, "message": "Reviews retrieved", "statusCode": http.StatusOK, "data": items,
	})
}

func (s *Server) createReview(w http.ResponseWriter, r *http.Request) {
	var in struct {
		FullName string `json:"fullName"`
		Email    string `json:"email"`
		Comment  string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.FullName == "" || in.Comment == "" {
		writeMessage(w, http.StatusBadRequest, "Name and comment are required")
		return
	}
	s.SeedReview(in.FullName, in.Email, in.Comment)
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "message": "Review submitted"})
}

func (s *Server) deleteReview(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authenticate(r, purposeAccess); err != nil {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	_, ok := s.reviews[id]
	delete(s.reviews, id)
	s.mu.Unlock()
	if !ok {
		writeMessage(w, http.StatusNotFound, "Review not found")
		return
	}
	writeMessage(w, http.StatusOK, "Review deleted")
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": status < 300, "message": msg})
}

func randomDigits(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			panic("mockapi: crypto/rand failed: " + err.Error())
		}
		b.WriteByte(byte('0' + d.Int64()))
	}
	return b.String()
}
