// Package auth implements credential login against the backend API, the
// encrypted session cookie that carries the resulting identity, and the route
// guard that keeps the dashboard behind it.
package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/tomhasit/tomhasit-web/internal/backend"
	"github.com/tomhasit/tomhasit-web/internal/metrics"
)

// ErrInvalidCredentials is the only error Authorize returns. Its message is
// what the login form shows.
var ErrInvalidCredentials = errors.New("Invalid email or password")

// Credentials is a login form submission.
type Credentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// Identity is the authenticated user plus the backend access token.
type Identity struct {
	User        User
	AccessToken string
}

// LoginClient is the part of the backend client the Authenticator needs.
type LoginClient interface {
	Login(ctx context.Context, in backend.LoginRequest) (*backend.LoginResponse, error)
}

// Authenticator verifies credentials against the backend.
type Authenticator struct {
	backend  LoginClient
	validate *validator.Validate
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(c LoginClient) *Authenticator {
	return &Authenticator{backend: c, validate: validator.New()}
}

// Authorize exchanges credentials for an Identity. Every failure, whether a
// rejected password, an unreachable backend or an unexpected payload, is
// reported as ErrInvalidCredentials; the cause is logged.
func (a *Authenticator) Authorize(ctx context.Context, c Credentials) (*Identity, error) {
	c.Email = strings.TrimSpace(c.Email)
	if err := a.validate.Struct(c); err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidCredentials
	}

	resp, err := a.backend.Login(ctx, backend.LoginRequest{Email: c.Email, Password: c.Password})
	if err != nil {
		result := "error"
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) && apiErr.Status < 500 {
			result = "invalid"
		}
		metrics.LoginAttemptsTotal.WithLabelValues(result).Inc()
		log.Ctx(ctx).Warn().Err(err).Str("email", c.Email).Msg("login rejected")
		return nil, ErrInvalidCredentials
	}

	id, err := identityFrom(resp, c.Email)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		log.Ctx(ctx).Error().Err(err).Str("email", c.Email).Msg("login response unusable")
		return nil, ErrInvalidCredentials
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	return id, nil
}

// identityFrom normalizes a validated login response. The user id is
// mandatory; a missing email falls back to the one submitted.
func identityFrom(resp *backend.LoginResponse, submittedEmail string) (*Identity, error) {
	if resp == nil || resp.Data == nil || resp.Data.User == nil {
		return nil, errors.New("login response has no user")
	}
	if resp.Data.AccessToken == "" {
		return nil, errors.New("login response has no access token")
	}
	u := resp.Data.User
	id := u.Identifier()
	if id == "" {
		return nil, errors.New("login response user has no id")
	}
	email := u.Email
	if email == "" {
		email = submittedEmail
	}
	return &Identity{
		User:        User{ID: id, Email: email, Role: u.Role},
		AccessToken: resp.Data.AccessToken,
	}, nil
}
