// Package identity is the client of the remote Identity API. Every call
// returns the uniform envelope {statusCode, data, message, success}; the
// package decodes it and maps failures onto a small error taxonomy.
//
// Two transports are provided: HTTP/JSON and gRPC with a JSON codec. API
// turns either into the typed Client.
package identity

import (
	"encoding/json"
	"time"

	"github.com/catermarket/caterauth/internal/client/models"
)

// Op names one Identity API operation. The value is the HTTP path segment.
type Op string

const (
	OpSignup         Op = "signup"
	OpLogin          Op = "login"
	OpVerifyOTP      Op = "verify-otp"
	OpResendOTP      Op = "resend-otp"
	OpForgotPassword Op = "forgot-password"
	OpVerifyResetOTP Op = "verify-reset-otp"
	OpResetPassword  Op = "reset-password"
	OpLogout         Op = "logout"
	OpMe             Op = "me"
)

type Envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data,omitempty"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
}

// Purpose tells resend-otp which challenge to reissue.
type Purpose string

const (
	PurposeSignup Purpose = "signup"
	PurposeReset  Purpose = "reset"
)

type SignupRequest struct {
	FullName    string `json:"fullName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password"`
}

type VerifyOTPRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	OTP         string `json:"otp"`
}

type ResendOTPRequest struct {
	PhoneNumber string  `json:"phoneNumber"`
	Purpose     Purpose `json:"purpose"`
}

// LoginRequest identifies the account by phone number or email.
type LoginRequest struct {
	Identifier string `json:"phoneOrEmail"`
	Password   string `json:"password"`
}

type ForgotPasswordRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

type ResetPasswordRequest struct {
	ResetToken      string `json:"resetToken"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Challenge is what the server says about an issued OTP. Zero fields were
// not sent.
type Challenge struct {
	ExpiresIn       int  `json:"expiresIn"`
	AttemptsAllowed int  `json:"attemptsAllowed"`
	AttemptsLeft    *int `json:"attemptsLeft,omitempty"`
}

// TTL is ExpiresIn as a duration, or fallback when the server sent none.
func (c *Challenge) TTL(fallback time.Duration) time.Duration {
	if c == nil || c.ExpiresIn <= 0 {
		return fallback
	}
	return time.Duration(c.ExpiresIn) * time.Second
}

type Tokens struct {
	AccessToken  string            `json:"accessToken"`
	RefreshToken string            `json:"refreshToken"`
	User         *models.Principal `json:"user,omitempty"`
}

// Session builds the session to commit for role.
func (t *Tokens) Session(role models.Role) *models.Session {
	return &models.Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		Role:         role,
		Principal:    t.User,
	}
}

type ResetHandoff struct {
	ResetToken string `json:"resetToken"`
}

// CallRequest is the gRPC request message: the role path segment and the
// JSON body the HTTP transport would send.
type CallRequest struct {
	Role    models.Role     `json:"role,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
