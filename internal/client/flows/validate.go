package flows

import (
	"net/mail"
	"regexp"
	"strings"
)

const MinPasswordLength = 8

var (
	phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
	otpPattern   = regexp.MustCompile(`^[0-9]{6}$`)
)

type SignupForm struct {
	FullName    string
	Email       string
	PhoneNumber string
	Password    string
}

type OTPForm struct {
	Code string
}

type IdentifierForm struct {
	PhoneNumber string
}

type NewPasswordForm struct {
	Password string
	Confirm  string
}

func invalid(field, msg string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: msg}
}

func validPhone(s string) bool { return phonePattern.MatchString(s) }

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func (f SignupForm) Validate() *Error {
	switch {
	case strings.TrimSpace(f.FullName) == "":
		return invalid("fullName", "Full name is required.")
	case !validEmail(f.Email):
		return invalid("email", "Enter a valid email address.")
	case !validPhone(f.PhoneNumber):
		return invalid("phoneNumber", "Enter a valid phone number.")
	case len(f.Password) < MinPasswordLength:
		return invalid("password", "Password must be at least 8 characters.")
	}
	return nil
}

func (f OTPForm) Validate() *Error {
	if !otpPattern.MatchString(f.Code) {
		return invalid("otp", "Enter the 6-digit code.")
	}
	return nil
}

func (f IdentifierForm) Validate() *Error {
	if !validPhone(f.PhoneNumber) {
		return invalid("phoneNumber", "Enter a valid phone number.")
	}
	return nil
}

func (f NewPasswordForm) Validate() *Error {
	switch {
	case len(f.Password) < MinPasswordLength:
		return invalid("password", "Password must be at least 8 characters.")
	case f.Password != f.Confirm:
		return invalid("confirmPassword", "Passwords do not match.")
	}
	return nil
}

// ValidateLogin checks a login form: a phone number or an email, and a
// non-empty password.
func ValidateLogin(identifier, password string) *Error {
	if !validPhone(identifier) && !validEmail(identifier) {
		return invalid("phoneOrEmail", "Enter your phone number or email.")
	}
	if password == "" {
		return invalid("password", "Password is required.")
	}
	return nil
}
