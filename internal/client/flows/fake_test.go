package flows

import (
	"context"
	"sync"
	"time"

	"github.com/catermarket/caterauth/internal/client/identity"
	"github.com/catermarket/caterauth/internal/client/models"
)

// fakeAPI is a scripted identity.Client. When gate is set every call
// signals entered and then waits for gate to be closed.
type fakeAPI struct {
	mu    sync.Mutex
	calls []identity.Op
	roles []models.Role

	signupCh  *identity.Challenge
	signupErr error

	tokens    *identity.Tokens
	verifyErr error

	forgotCh  *identity.Challenge
	forgotErr error

	handoff    *identity.ResetHandoff
	handoffErr error

	resetErr error

	resendCh  *identity.Challenge
	resendErr error

	lastSignup identity.SignupRequest
	lastVerify identity.VerifyOTPRequest
	lastResend identity.ResendOTPRequest
	lastReset  identity.ResetPasswordRequest

	gate    chan struct{}
	entered chan struct{}
}

func (f *fakeAPI) record(role models.Role, op identity.Op) {
	f.mu.Lock()
	f.calls = append(f.calls, op)
	f.roles = append(f.roles, role)
	gate, entered := f.gate, f.entered
	f.mu.Unlock()

	if gate != nil {
		if entered != nil {
			entered <- struct{}{}
		}
		<-gate
	}
}

func (f *fakeAPI) block() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
	f.entered = make(chan struct{}, 1)
}

func (f *fakeAPI) waitEntered() {
	select {
	case <-f.entered:
	case <-time.After(2 * time.Second):
		panic("call never started")
	}
}

func (f *fakeAPI) release() {
	f.mu.Lock()
	gate := f.gate
	f.gate = nil
	f.mu.Unlock()
	close(gate)
}

func (f *fakeAPI) opCalls() []identity.Op {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]identity.Op(nil), f.calls...)
}

func orEmpty(ch *identity.Challenge) *identity.Challenge {
	if ch == nil {
		return &identity.Challenge{}
	}
	return ch
}

func (f *fakeAPI) Signup(_ context.Context, role models.Role, req identity.SignupRequest) (*identity.Challenge, error) {
	f.record(role, identity.OpSignup)
	f.lastSignup = req
	if f.signupErr != nil {
		return nil, f.signupErr
	}
	return orEmpty(f.signupCh), nil
}

func (f *fakeAPI) VerifyOTP(_ context.Context, role models.Role, req identity.VerifyOTPRequest) (*identity.Tokens, error) {
	f.record(role, identity.OpVerifyOTP)
	f.lastVerify = req
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.tokens, nil
}

func (f *fakeAPI) ResendOTP(_ context.Context, role models.Role, req identity.ResendOTPRequest) (*identity.Challenge, error) {
	f.record(role, identity.OpResendOTP)
	f.lastResend = req
	if f.resendErr != nil {
		return nil, f.resendErr
	}
	return orEmpty(f.resendCh), nil
}

func (f *fakeAPI) Login(_ context.Context, role models.Role, _ identity.LoginRequest) (*identity.Tokens, error) {
	f.record(role, identity.OpLogin)
	return f.tokens, f.verifyErr
}

func (f *fakeAPI) ForgotPassword(_ context.Context, role models.Role, _ identity.ForgotPasswordRequest) (*identity.Challenge, error) {
	f.record(role, identity.OpForgotPassword)
	if f.forgotErr != nil {
		return nil, f.forgotErr
	}
	return orEmpty(f.forgotCh), nil
}

func (f *fakeAPI) VerifyResetOTP(_ context.Context, role models.Role, req identity.VerifyOTPRequest) (*identity.ResetHandoff, error) {
	f.record(role, identity.OpVerifyResetOTP)
	f.lastVerify = req
	if f.handoffErr != nil {
		return nil, f.handoffErr
	}
	return f.handoff, nil
}

func (f *fakeAPI) ResetPassword(_ context.Context, role models.Role, req identity.ResetPasswordRequest) error {
	f.record(role, identity.OpResetPassword)
	f.lastReset = req
	return f.resetErr
}

func (f *fakeAPI) Logout(_ context.Context, role models.Role, _ identity.LogoutRequest) error {
	f.record(role, identity.OpLogout)
	return nil
}

func (f *fakeAPI) Me(context.Context) (*models.Principal, error) {
	f.record(models.RoleAnonymous, identity.OpMe)
	return nil, nil
}

func (f *fakeAPI) Close() error { return nil }

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
