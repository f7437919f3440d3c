package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tomhasit/tomhasit-web/internal/auth"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name    string
		in      auth.PasswordChange
		wantErr string
	}{
		{"ok", auth.PasswordChange{Password: "Passw0rdX", Confirm: "Passw0rdX"}, ""},
		{"empty", auth.PasswordChange{}, "Password is required"},
		{"short", auth.PasswordChange{Password: "Pa1", Confirm: "Pa1"}, "Password must be at least 8 characters"},
		{"no upper", auth.PasswordChange{Password: "passw0rdx", Confirm: "passw0rdx"}, "Password must contain an uppercase letter, a lowercase letter and a number"},
		{"no lower", auth.PasswordChange{Password: "PASSW0RDX", Confirm: "PASSW0RDX"}, "Password must contain an uppercase letter, a lowercase letter and a number"},
		{"no digit", auth.PasswordChange{Password: "Passwordx", Confirm: "Passwordx"}, "Password must contain an uppercase letter, a lowercase letter and a number"},
		{"mismatch", auth.PasswordChange{Password: "Passw0rdX", Confirm: "Passw0rdY"}, "Passwords do not match"},
		{"no confirm", auth.PasswordChange{Password: "Passw0rdX"}, "Please confirm your password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.ValidatePassword(tt.in)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}
