package backend

import "time"

// --- Auth ---

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginUser is the user object nested in a login response. The backend
// historically emits either "id" or Mongo-style "_id".
type LoginUser struct {
	ID       string `json:"id"`
	MongoID  string `json:"_id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	FullName string `json:"fullName,omitempty"`
}

// Identifier returns whichever id field the backend populated.
func (u LoginUser) Identifier() string {
	if u.ID != "" {
		return u.ID
	}
	return u.MongoID
}

// LoginData is the "data" envelope of a login response.
type LoginData struct {
	User        *LoginUser `json:"user" validate:"required"`
	AccessToken string     `json:"accessToken" validate:"required"`
}

// LoginResponse is the body returned by POST /auth/login.
type LoginResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Data    *LoginData `json:"data" validate:"required"`
}

// RefreshResponse is the body returned by POST /auth/refresh-token. Some
// deployments nest the token under "data"; both are accepted.
type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
	Data        *struct {
		AccessToken string `json:"accessToken"`
	} `json:"data,omitempty"`
}

// Token returns the refreshed access token wherever the backend put it.
func (r RefreshResponse) Token() string {
	if r.AccessToken != "" {
		return r.AccessToken
	}
	if r.Data != nil {
		return r.Data.AccessToken
	}
	return ""
}

// ForgotPasswordRequest is the body of POST /auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// VerifyOTPRequest is the body of POST /auth/verify-otp.
type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

// VerifyOTPResponse carries the optional reset token issued after OTP
// verification.
type VerifyOTPResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	Data    *struct {
		Token       string `json:"token"`
		AccessToken string `json:"accessToken"`
	} `json:"data,omitempty"`
}

// ResetToken returns the reset token wherever the backend put it.
func (r VerifyOTPResponse) ResetToken() string {
	switch {
	case r.Token != "":
		return r.Token
	case r.Data != nil && r.Data.Token != "":
		return r.Data.Token
	case r.Data != nil:
		return r.Data.AccessToken
	}
	return ""
}

// ResetPasswordRequest is the body of POST /auth/reset-password.
type ResetPasswordRequest struct {
	NewPassword string `json:"newPassword" validate:"required"`
}

// ChangePasswordRequest is the body of POST /auth/change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

// MessageResponse is the generic {success, message} acknowledgement.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// --- Gallery ---

// GalleryImage is the hosted image of a gallery item.
type GalleryImage struct {
	PublicID string `json:"public_id"`
	URL      string `json:"url"`
}

// GalleryItem is one photo in the gallery.
type GalleryItem struct {
	ID        string       `json:"_id" validate:"required"`
	Title     string       `json:"title"`
	Image     GalleryImage `json:"image"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// Upload is an image file to send in a multipart gallery request.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// GalleryInput is the form payload for creating or updating a gallery item.
// Image is required on create and optional on update.
type GalleryInput struct {
	Title string `validate:"required,max=200"`
	Image *Upload
}

// --- Reviews ---

// Review is a visitor testimonial submitted through "Got Dial Tone".
type Review struct {
	ID        string    `json:"_id" validate:"required"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email,omitempty"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateReviewRequest is the body of POST /review/add-review.
type CreateReviewRequest struct {
	FullName string `json:"fullName" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Comment  string `json:"comment" validate:"required,max=5000"`
}

// listEnvelope is the {success, message, statusCode, data} wrapper used by
// the list endpoints.
type listEnvelope[T any] struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
	Data       []T    `json:"data" validate:"dive"`
}
