package identity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/catermarket/caterauth/internal/client/models"
)

// Transport performs one Identity API call and returns the envelope. A
// failed envelope is returned as an *APIError; a transport failure wraps
// ErrUnavailable.
type Transport interface {
	Call(ctx context.Context, role models.Role, op Op, payload any) (*Envelope, error)
	Close() error
}

// Client is the typed Identity API.
type Client interface {
	Signup(ctx context.Context, role models.Role, req SignupRequest) (*Challenge, error)
	VerifyOTP(ctx context.Context, role models.Role, req VerifyOTPRequest) (*Tokens, error)
	ResendOTP(ctx context.Context, role models.Role, req ResendOTPRequest) (*Challenge, error)
	Login(ctx context.Context, role models.Role, req LoginRequest) (*Tokens, error)
	ForgotPassword(ctx context.Context, role models.Role, req ForgotPasswordRequest) (*Challenge, error)
	VerifyResetOTP(ctx context.Context, role models.Role, req VerifyOTPRequest) (*ResetHandoff, error)
	ResetPassword(ctx context.Context, role models.Role, req ResetPasswordRequest) error
	Logout(ctx context.Context, role models.Role, req LogoutRequest) error
	Me(ctx context.Context) (*models.Principal, error)
	Close() error
}

var _ Client = (*API)(nil)

type API struct {
	t Transport
}

func New(t Transport) *API {
	return &API{t: t}
}

func (a *API) Close() error {
	return a.t.Close()
}

func (a *API) Signup(ctx context.Context, role models.Role, req SignupRequest) (*Challenge, error) {
	return call[Challenge](ctx, a.t, role, OpSignup, req)
}

func (a *API) VerifyOTP(ctx context.Context, role models.Role, req VerifyOTPRequest) (*Tokens, error) {
	t, err := call[Tokens](ctx, a.t, role, OpVerifyOTP, req)
	if err != nil {
		return nil, err
	}
	if t.AccessToken == "" {
		return nil, fmt.Errorf("%w: verify-otp returned no access token", ErrRejected)
	}
	return t, nil
}

func (a *API) ResendOTP(ctx context.Context, role models.Role, req ResendOTPRequest) (*Challenge, error) {
	return call[Challenge](ctx, a.t, role, OpResendOTP, req)
}

func (a *API) Login(ctx context.Context, role models.Role, req LoginRequest) (*Tokens, error) {
	t, err := call[Tokens](ctx, a.t, role, OpLogin, req)
	if err != nil {
		return nil, err
	}
	if t.AccessToken == "" {
		return nil, fmt.Errorf("%w: login returned no access token", ErrRejected)
	}
	return t, nil
}

func (a *API) ForgotPassword(ctx context.Context, role models.Role, req ForgotPasswordRequest) (*Challenge, error) {
	return call[Challenge](ctx, a.t, role, OpForgotPassword, req)
}

func (a *API) VerifyResetOTP(ctx context.Context, role models.Role, req VerifyOTPRequest) (*ResetHandoff, error) {
	h, err := call[ResetHandoff](ctx, a.t, role, OpVerifyResetOTP, req)
	if err != nil {
		return nil, err
	}
	if h.ResetToken == "" {
		return nil, fmt.Errorf("%w: verify-reset-otp returned no reset token", ErrRejected)
	}
	return h, nil
}

func (a *API) ResetPassword(ctx context.Context, role models.Role, req ResetPasswordRequest) error {
	_, err := a.t.Call(ctx, role, OpResetPassword, req)
	return err
}

func (a *API) Logout(ctx context.Context, role models.Role, req LogoutRequest) error {
	_, err := a.t.Call(ctx, role, OpLogout, req)
	return err
}

func (a *API) Me(ctx context.Context) (*models.Principal, error) {
	return call[models.Principal](ctx, a.t, models.RoleAnonymous, OpMe, nil)
}

// call runs op and decodes the envelope data into T. Empty data yields a
// zero T.
func call[T any](ctx context.Context, t Transport, role models.Role, op Op, payload any) (*T, error) {
	env, err := t.Call(ctx, role, op, payload)
	if err != nil {
		return nil, err
	}
	out := new(T)
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", op, err)
	}
	return out, nil
}
