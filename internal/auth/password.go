package auth

import (
	"errors"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// PasswordChange is a new-password form submission.
type PasswordChange struct {
	Password string `validate:"required,min=8,strongpw"`
	Confirm  string `validate:"required,eqfield=Password"`
}

var passwordValidator = func() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("strongpw", func(fl validator.FieldLevel) bool {
		var upper, lower, digit bool
		for _, r := range fl.Field().String() {
			switch {
			case unicode.IsUpper(r):
				upper = true
			case unicode.IsLower(r):
				lower = true
			case unicode.IsDigit(r):
				digit = true
			}
		}
		return upper && lower && digit
	})
	return v
}()

// ValidatePassword checks a new password and its confirmation, returning an
// error whose message can be shown next to the form.
func ValidatePassword(p PasswordChange) error {
	err := passwordValidator.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	switch {
	case fe.Field() == "Confirm" && fe.Tag() == "eqfield":
		return errors.New("Passwords do not match")
	case fe.Field() == "Confirm":
		return errors.New("Please confirm your password")
	case fe.Tag() == "required":
		return errors.New("Password is required")
	case fe.Tag() == "min":
		return errors.New("Password must be at least 8 characters")
	default:
		return errors.New("Password must contain an uppercase letter, a lowercase letter and a number")
	}
}
