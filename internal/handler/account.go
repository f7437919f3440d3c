package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/hlog"

	"github.com/tomhasit/tomhasit-web/internal/auth"
	"github.com/tomhasit/tomhasit-web/internal/backend"
)

// PasswordBackend is the part of the backend client used by the account pages.
type PasswordBackend interface {
	ForgotPassword(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, otp string) (string, error)
	ResetPassword(ctx context.Context, resetToken, newPassword string) error
	ChangePassword(ctx context.Context, accessToken string, in backend.ChangePasswordRequest) (*backend.MessageResponse, error)
}

var _ PasswordBackend = (*backend.Client)(nil)

// AccountPage is the template data shared by the login and recovery pages.
type AccountPage struct {
	BasePage
	Email        string
	CallbackURL  string
	Error        string
	Notice       string
	ResendIn     int // seconds until another code may be requested
	ResetSuccess bool
}

// AccountHandler serves login, logout, password recovery and the
// signed-in password change.
type AccountHandler struct {
	auth     *auth.Handlers
	backend  PasswordBackend
	flow     *auth.Flow
	validate *validator.Validate
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(ah *auth.Handlers, pb PasswordBackend, flow *auth.Flow) *AccountHandler {
	return &AccountHandler{auth: ah, backend: pb, flow: flow, validate: validator.New()}
}

func (h *AccountHandler) page(r *http.Request, title string) AccountPage {
	return AccountPage{BasePage: newBasePage(r, h.flow, title)}
}

// renderForm renders a full page, or only its "form" block for HTMX. HTMX
// does not swap error statuses, so fragments are always 200.
func renderForm(w http.ResponseWriter, r *http.Request, status int, tmpl string, data any) {
	if isHTMX(r) {
		renderPageFragment(w, tmpl, "form", data)
		return
	}
	renderStatus(w, status, tmpl, data)
}

// --- Login ---

// LoginForm serves GET /login.
func (h *AccountHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	data := h.page(r, "Sign in")
	data.CallbackURL = r.URL.Query().Get("callbackUrl")
	data.ResetSuccess = r.URL.Query().Get("reset") == "success"
	render(w, "login.html", data)
}

// Login handles POST /login.
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	creds := auth.Credentials{
		Email:    strings.TrimSpace(r.FormValue("email")),
		Password: r.FormValue("password"),
	}
	callback := r.FormValue("callbackUrl")

	if _, err := h.auth.SignIn(w, r, creds); err != nil {
		data := h.page(r, "Sign in")
		data.Email = creds.Email
		data.CallbackURL = callback
		data.Error = auth.ErrInvalidCredentials.Error()
		renderForm(w, r, http.StatusUnauthorized, "login.html", data)
		return
	}
	redirect(w, r, auth.SafeCallback(callback))
}

// Logout handles POST /logout.
func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.auth.Logout(w, r)
}

// --- Forgot password ---

// ForgotForm serves GET /forgot-password.
func (h *AccountHandler) ForgotForm(w http.ResponseWriter, r *http.Request) {
	render(w, "forgot-password.html", h.page(r, "Forgot password"))
}

// Forgot handles POST /forgot-password.
func (h *AccountHandler) Forgot(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	email := strings.TrimSpace(r.FormValue("email"))
	data := h.page(r, "Forgot password")
	data.Email = email

	if err := h.validate.Var(email, "required,email"); err != nil {
		data.Error = "Please enter a valid email address."
		renderForm(w, r, http.StatusUnprocessableEntity, "forgot-password.html", data)
		return
	}
	if err := h.backend.ForgotPassword(r.Context(), email); err != nil {
		logBackendError(r, "forgot password", err)
		data.Error = backendMessage(err, "Failed to send reset code. Please try again.")
		renderForm(w, r, http.StatusBadGateway, "forgot-password.html", data)
		return
	}

	h.flow.StartRecovery(r.Context(), email)
	redirect(w, r, "/verify-email?email="+url.QueryEscape(email))
}

// --- Verify email (OTP) ---

func (h *AccountHandler) recoveryEmail(r *http.Request) string {
	if e := h.flow.Email(r.Context()); e != "" {
		return e
	}
	return strings.TrimSpace(r.FormValue("email"))
}

// VerifyForm serves GET /verify-email.
func (h *AccountHandler) VerifyForm(w http.ResponseWriter, r *http.Request) {
	email := h.recoveryEmail(r)
	if email == "" {
		http.Redirect(w, r, "/forgot-password", http.StatusFound)
		return
	}
	data := h.page(r, "Verify email")
	data.Email = email
	data.ResendIn = int(h.flow.ResendWait(r.Context()).Seconds())
	render(w, "verify-email.html", data)
}

// otpFromForm accepts either a single "otp" field or six "otp1".."otp6"
// digit boxes.
func otpFromForm(r *http.Request) string {
	if v := strings.TrimSpace(r.FormValue("otp")); v != "" {
		return v
	}
	var b strings.Builder
	for _, k := range []string{"otp1", "otp2", "otp3", "otp4", "otp5", "otp6"} {
		b.WriteString(strings.TrimSpace(r.FormValue(k)))
	}
	return b.String()
}

func validOTP(s string) bool {
	if len(s) != 6 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// Verify handles POST /verify-email.
func (h *AccountHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	email := h.recoveryEmail(r)
	data := h.page(r, "Verify email")
	data.Email = email
	data.ResendIn = int(h.flow.ResendWait(r.Context()).Seconds())

	if email == "" {
		redirect(w, r, "/forgot-password")
		return
	}
	otp := otpFromForm(r)
	if !validOTP(otp) {
		data.Error = "Please enter the complete 6-digit code."
		renderForm(w, r, http.StatusUnprocessableEntity, "verify-email.html", data)
		return
	}

	token, err := h.backend.VerifyOTP(r.Context(), email, otp)
	if err == nil && token == "" {
		err = errors.New("verify-otp returned no reset token")
	}
	if err != nil {
		logBackendError(r, "verify otp", err)
		data.Error = backendMessage(err, "Invalid or expired code. Please try again.")
		renderForm(w, r, http.StatusUnprocessableEntity, "verify-email.html", data)
		return
	}

	h.flow.SetEmail(r.Context(), email)
	h.flow.SetResetToken(r.Context(), token)
	redirect(w, r, "/change-password?email="+url.QueryEscape(email))
}

// Resend handles POST /verify-email/resend.
func (h *AccountHandler) Resend(w http.ResponseWriter, r *http.Request) {
	email := h.recoveryEmail(r)
	if email == "" {
		redirect(w, r, "/forgot-password")
		return
	}
	data := h.page(r, "Verify email")
	data.Email = email

	if wait := h.flow.ResendWait(r.Context()); wait > 0 {
		data.ResendIn = int(wait.Seconds())
		data.Error = "Please wait before requesting another code."
		renderForm(w, r, http.StatusTooManyRequests, "verify-email.html", data)
		return
	}
	if err := h.backend.ForgotPassword(r.Context(), email); err != nil {
		logBackendError(r, "resend otp", err)
		data.Error = backendMessage(err, "Failed to resend code. Please try again.")
		renderForm(w, r, http.StatusBadGateway, "verify-email.html", data)
		return
	}
	h.flow.StartRecovery(r.Context(), email)
	data.ResendIn = int(h.flow.ResendWait(r.Context()).Seconds())
	data.Notice = "A new code has been sent to your email."
	renderForm(w, r, http.StatusOK, "verify-email.html", data)
}

// --- Reset password ---

// ResetForm serves GET /change-password.
func (h *AccountHandler) ResetForm(w http.ResponseWriter, r *http.Request) {
	if h.flow.ResetToken(r.Context()) == "" {
		http.Redirect(w, r, "/forgot-password", http.StatusFound)
		return
	}
	data := h.page(r, "Set a new password")
	data.Email = h.flow.Email(r.Context())
	render(w, "change-password.html", data)
}

// Reset handles POST /change-password.
func (h *AccountHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	token := h.flow.ResetToken(r.Context())
	if token == "" {
		redirect(w, r, "/forgot-password")
		return
	}
	data := h.page(r, "Set a new password")
	data.Email = h.flow.Email(r.Context())

	pw := auth.PasswordChange{Password: r.FormValue("password"), Confirm: r.FormValue("confirmPassword")}
	if err := auth.ValidatePassword(pw); err != nil {
		data.Error = err.Error()
		renderForm(w, r, http.StatusUnprocessableEntity, "change-password.html", data)
		return
	}
	if err := h.backend.ResetPassword(r.Context(), token, pw.Password); err != nil {
		logBackendError(r, "reset password", err)
		data.Error = backendMessage(err, "Failed to reset password. Please try again.")
		renderForm(w, r, http.StatusBadGateway, "change-password.html", data)
		return
	}

	h.flow.FinishRecovery(r.Context())
	hlog.FromRequest(r).Info().Str("email", data.Email).Msg("password reset")
	redirect(w, r, "/login?reset=success")
}

// --- Signed-in password change ---

// ChangePasswordForm serves GET /dashboard/change-password.
func (h *AccountHandler) ChangePasswordForm(w http.ResponseWriter, r *http.Request) {
	render(w, "dashboard/change-password.html", h.page(r, "Change password"))
}

// ChangePassword handles POST /dashboard/change-password.
func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	rec := auth.SessionFromContext(r.Context())
	if rec == nil {
		redirect(w, r, auth.LoginPath)
		return
	}
	data := h.page(r, "Change password")

	current := r.FormValue("currentPassword")
	pw := auth.PasswordChange{Password: r.FormValue("newPassword"), Confirm: r.FormValue("confirmPassword")}
	if current == "" {
		data.Error = "Current password is required"
		renderForm(w, r, http.StatusUnprocessableEntity, "dashboard/change-password.html", data)
		return
	}
	if err := auth.ValidatePassword(pw); err != nil {
		data.Error = err.Error()
		renderForm(w, r, http.StatusUnprocessableEntity, "dashboard/change-password.html", data)
		return
	}

	_, err := h.backend.ChangePassword(r.Context(), rec.AccessToken, backend.ChangePasswordRequest{
		CurrentPassword: current,
		NewPassword:     pw.Password,
	})
	if err != nil {
		logBackendError(r, "change password", err)
		data.Error = backendMessage(err, "Failed to change password. Please try again.")
		renderForm(w, r, http.StatusBadGateway, "dashboard/change-password.html", data)
		return
	}

	h.flow.Flash(r.Context(), "Password changed successfully.")
	redirect(w, r, "/dashboard/change-password")
}
