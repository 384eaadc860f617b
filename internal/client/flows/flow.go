package flows

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/catermarket/caterauth/internal/client/challenge"
	"github.com/catermarket/caterauth/internal/client/credentials"
	"github.com/catermarket/caterauth/internal/client/identity"
	"github.com/catermarket/caterauth/internal/client/models"
	"github.com/catermarket/caterauth/internal/logging"
)

type State string

const (
	StateAnonymous           State = "anonymous"
	StateSubmitting          State = "submitting"
	StateAwaitingOTP         State = "awaiting_otp"
	StateHoldingResetHandoff State = "holding_reset_handoff"
	StateCommitted           State = "committed"
)

type Branch string

const (
	BranchNone   Branch = ""
	BranchSignup Branch = "signup"
	BranchReset  Branch = "reset"
)

type Step string

const (
	StepSignup         Step = "signup"
	StepSignupOTP      Step = "signup-otp"
	StepForgotPassword Step = "forgot-password"
	StepResetOTP       Step = "reset-otp"
	StepNewPassword    Step = "new-password"
)

var fallbackMessages = map[Step]string{
	StepSignup:         "We couldn't create your account. Please try again.",
	StepSignupOTP:      "That code is invalid or has expired.",
	StepForgotPassword: "We couldn't send a reset code. Please try again.",
	StepResetOTP:       "That code is invalid or has expired.",
	StepNewPassword:    "We couldn't reset your password. Please try again.",
}

const resendFallback = "We couldn't send a new code. Please try again."

// Committer is the part of the credential store a flow writes to.
type Committer interface {
	Begin() credentials.Ticket
	CommitIf(ctx context.Context, t credentials.Ticket, sess *models.Session, live func() bool) error
}

// Status is a snapshot of a flow for rendering.
type Status struct {
	State    State
	Branch   Branch
	Busy     bool
	Err      *Error
	Redirect string
	// Target is the phone number the current code was sent to.
	Target       string
	Remaining    int
	CanResend    bool
	AttemptsLeft *int
}

type Option func(*Flow)

func WithTimer(t *challenge.Timer) Option {
	return func(f *Flow) { f.timer = t }
}

func WithLogger(l logging.Logger) Option {
	return func(f *Flow) { f.logger = l }
}

// Flow is one mounted identity journey. It accepts one submission at a
// time; Close detaches it so responses still in flight are dropped.
type Flow struct {
	policy  Policy
	api     identity.Client
	store   Committer
	scratch Scratch
	timer   *challenge.Timer
	logger  logging.Logger

	mu           sync.Mutex
	state        State
	resume       State
	branch       Branch
	busy         bool
	epoch        uint64
	closed       bool
	target       string
	err          *Error
	redirect     string
	attemptsLeft *int
}

func New(policy Policy, api identity.Client, store Committer, scratch Scratch, opts ...Option) *Flow {
	f := &Flow{
		policy:  policy,
		api:     api,
		store:   store,
		scratch: scratch,
		logger:  logging.Discard(),
		state:   StateAnonymous,
	}
	for _, o := range opts {
		o(f)
	}
	if f.timer == nil {
		f.timer = challenge.New()
	}
	f.logger = f.logger.With("flow", string(policy.Kind))
	return f
}

func (f *Flow) Policy() Policy { return f.policy }

func (f *Flow) Timer() *challenge.Timer { return f.timer }

func (f *Flow) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()

	st := Status{
		State:    f.state,
		Branch:   f.branch,
		Busy:     f.busy,
		Err:      f.err,
		Redirect: f.redirect,
		Target:   f.target,
	}
	if f.attemptsLeft != nil {
		n := *f.attemptsLeft
		st.AttemptsLeft = &n
	}
	if f.state == StateAwaitingOTP || (f.busy && f.resume == StateAwaitingOTP) {
		st.Remaining = f.timer.Remaining()
		st.CanResend = f.timer.CanResend()
	}
	return st
}

// Close detaches the flow. Responses that arrive afterwards are discarded
// without touching the flow, the credential store or the scratch store.
func (f *Flow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.epoch++
	f.closed = true
	f.busy = false
	f.timer.Stop()
}

// Submit runs step with its form. Invalid input fails before any network
// call; a failed call returns the flow to the state it was in.
func (f *Flow) Submit(ctx context.Context, step Step, payload any) error {
	f.mu.Lock()
	if err := f.checkLocked(); err != nil {
		f.mu.Unlock()
		return err
	}

	if step == StepNewPassword {
		if _, ok := f.scratch.Get(f.policy.HandoffKey()); !ok {
			f.failClosedLocked()
			e := f.err
			f.mu.Unlock()
			return e
		}
	} else if err := f.stepAllowedLocked(step); err != nil {
		f.mu.Unlock()
		return err
	}

	form, ok := payload.(interface{ Validate() *Error })
	if !ok || !payloadMatches(step, payload) {
		f.mu.Unlock()
		return fmt.Errorf("%w: %s does not take %T", ErrInvalidStep, step, payload)
	}
	if verr := form.Validate(); verr != nil {
		f.err = verr
		f.mu.Unlock()
		return verr
	}

	epoch := f.beginLocked()
	target := f.target
	f.mu.Unlock()

	switch step {
	case StepSignup:
		return f.signup(ctx, epoch, payload.(SignupForm))
	case StepSignupOTP:
		return f.verifySignup(ctx, epoch, target, payload.(OTPForm))
	case StepForgotPassword:
		return f.forgotPassword(ctx, epoch, payload.(IdentifierForm))
	case StepResetOTP:
		return f.verifyReset(ctx, epoch, target, payload.(OTPForm))
	default:
		return f.resetPassword(ctx, epoch, payload.(NewPasswordForm))
	}
}

// Resend asks for a new code. It is refused locally until the current
// countdown has run out.
func (f *Flow) Resend(ctx context.Context) error {
	f.mu.Lock()
	if err := f.checkLocked(); err != nil {
		f.mu.Unlock()
		return err
	}
	if f.state != StateAwaitingOTP {
		f.mu.Unlock()
		return ErrInvalidStep
	}
	if !f.timer.CanResend() {
		f.err = &Error{
			Kind:    KindValidation,
			Message: fmt.Sprintf("You can request a new code in %d seconds.", f.timer.Remaining()),
			Err:     ErrResendCooldown,
		}
		e := f.err
		f.mu.Unlock()
		return e
	}

	purpose, ttl := identity.PurposeSignup, f.policy.SignupOTPTTL
	if f.branch == BranchReset {
		purpose, ttl = identity.PurposeReset, f.policy.ResetOTPTTL
	}
	epoch := f.beginLocked()
	target := f.target
	f.mu.Unlock()

	ch, err := f.api.ResendOTP(ctx, f.policy.Kind, identity.ResendOTPRequest{PhoneNumber: target, Purpose: purpose})

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.epoch != epoch {
		return ErrClosed
	}
	if err != nil {
		return f.failLocked(Classify(err, resendFallback, true))
	}
	f.timer.Restart(ch.TTL(ttl))
	if ch.AttemptsAllowed > 0 {
		f.timer.SetAttemptsAllowed(ch.AttemptsAllowed)
	}
	f.attemptsLeft = nil
	f.finishLocked(StateAwaitingOTP)
	return nil
}

func (f *Flow) signup(ctx context.Context, epoch uint64, form SignupForm) error {
	ch, err := f.api.Signup(ctx, f.policy.Kind, identity.SignupRequest{
		FullName:    form.FullName,
		Email:       form.Email,
		PhoneNumber: form.PhoneNumber,
		Password:    form.Password,
	})

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.epoch != epoch {
		return ErrClosed
	}
	if err != nil {
		return f.failLocked(Classify(err, fallbackMessages[StepSignup], false))
	}
	f.startChallengeLocked(BranchSignup, form.PhoneNumber, ch, f.policy.SignupOTPTTL)
	return nil
}

func (f *Flow) forgotPassword(ctx context.Context, epoch uint64, form IdentifierForm) error {
	ch, err := f.api.ForgotPassword(ctx, f.policy.Kind, identity.ForgotPasswordRequest{PhoneNumber: form.PhoneNumber})

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.epoch != epoch {
		return ErrClosed
	}
	if err != nil {
		return f.failLocked(Classify(err, fallbackMessages[StepForgotPassword], false))
	}
	f.startChallengeLocked(BranchReset, form.PhoneNumber, ch, f.policy.ResetOTPTTL)
	return nil
}

func (f *Flow) verifySignup(ctx context.Context, epoch uint64, target string, form OTPForm) error {
	ticket := f.store.Begin()
	tokens, err := f.api.VerifyOTP(ctx, f.policy.Kind, identity.VerifyOTPRequest{PhoneNumber: target, OTP: form.Code})

	f.mu.Lock()
	if f.epoch != epoch {
		f.mu.Unlock()
		return ErrClosed
	}
	if err != nil {
		defer f.mu.Unlock()
		return f.failLocked(Classify(err, fallbackMessages[StepSignupOTP], true))
	}
	f.mu.Unlock()

	// The store checks the epoch under its write lock, so a Close that wins
	// the race leaves the backends untouched. Commit publishes on the
	// session bus; listeners may read Status.
	err = f.store.CommitIf(ctx, ticket, tokens.Session(f.policy.Kind), func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.epoch == epoch
	})

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		if f.epoch != epoch {
			return ErrClosed
		}
		f.logger.Error(ctx, "session commit failed", "error", err)
		msg := "We couldn't save your session. Please try again."
		if errors.Is(err, credentials.ErrStaleCommit) {
			msg = "Your session changed while verifying. Please try again."
		}
		return f.failLocked(&Error{Kind: KindUnknown, Message: msg, Err: err})
	}

	f.logger.Info(ctx, "signup verified")
	f.timer.Stop()
	f.attemptsLeft = nil
	if f.epoch == epoch {
		f.redirect = f.policy.HomeRoute
		f.finishLocked(StateCommitted)
	}
	return nil
}

func (f *Flow) verifyReset(ctx context.Context, epoch uint64, target string, form OTPForm) error {
	handoff, err := f.api.VerifyResetOTP(ctx, f.policy.Kind, identity.VerifyOTPRequest{PhoneNumber: target, OTP: form.Code})

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.epoch != epoch {
		return ErrClosed
	}
	if err != nil {
		return f.failLocked(Classify(err, fallbackMessages[StepResetOTP], true))
	}
	f.scratch.Set(f.policy.HandoffKey(), handoff.ResetToken)
	f.timer.Stop()
	f.attemptsLeft = nil
	f.finishLocked(StateHoldingResetHandoff)
	return nil
}

func (f *Flow) resetPassword(ctx context.Context, epoch uint64, form NewPasswordForm) error {
	token, ok := f.scratch.Get(f.policy.HandoffKey())
	if !ok {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.epoch != epoch {
			return ErrClosed
		}
		f.finishLocked(StateAnonymous)
		f.failClosedLocked()
		return f.err
	}

	err := f.api.ResetPassword(ctx, f.policy.Kind, identity.ResetPasswordRequest{
		ResetToken:      token,
		NewPassword:     form.Password,
		ConfirmPassword: form.Confirm,
	})

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.epoch != epoch {
		return ErrClosed
	}
	if err != nil {
		return f.failLocked(Classify(err, fallbackMessages[StepNewPassword], false))
	}

	f.logger.Info(ctx, "password reset")
	f.scratch.Delete(f.policy.HandoffKey())
	f.target = ""
	f.branch = BranchNone
	f.redirect = f.policy.LoginRoute
	f.finishLocked(StateAnonymous)
	return nil
}

func (f *Flow) checkLocked() error {
	if f.closed {
		return ErrClosed
	}
	if f.busy {
		return ErrBusy
	}
	return nil
}

func (f *Flow) stepAllowedLocked(step Step) error {
	switch step {
	case StepSignup, StepForgotPassword:
		if f.state == StateAnonymous {
			return nil
		}
	case StepSignupOTP:
		if f.state == StateAwaitingOTP && f.branch == BranchSignup {
			return nil
		}
	case StepResetOTP:
		if f.state == StateAwaitingOTP && f.branch == BranchReset {
			return nil
		}
	}
	return fmt.Errorf("%w: %s in %s", ErrInvalidStep, step, f.state)
}

func payloadMatches(step Step, payload any) bool {
	switch payload.(type) {
	case SignupForm:
		return step == StepSignup
	case OTPForm:
		return step == StepSignupOTP || step == StepResetOTP
	case IdentifierForm:
		return step == StepForgotPassword
	case NewPasswordForm:
		return step == StepNewPassword
	}
	return false
}

// beginLocked marks the flow busy and returns the epoch the response must
// still match.
func (f *Flow) beginLocked() uint64 {
	f.busy = true
	f.resume = f.state
	f.state = StateSubmitting
	f.err = nil
	f.redirect = ""
	return f.epoch
}

func (f *Flow) finishLocked(next State) {
	f.busy = false
	f.state = next
	f.resume = ""
}

func (f *Flow) failLocked(e *Error) *Error {
	f.err = e
	if e.AttemptsLeft != nil {
		n := *e.AttemptsLeft
		f.attemptsLeft = &n
	}
	f.finishLocked(f.resume)
	return e
}

// failClosedLocked handles a new-password submission without a handoff:
// back to the start of the reset journey.
func (f *Flow) failClosedLocked() {
	f.state = StateAnonymous
	f.branch = BranchNone
	f.target = ""
	f.timer.Stop()
	f.redirect = f.policy.ForgotRoute
	f.err = &Error{
		Kind:    KindValidation,
		Message: "Your password reset session has expired. Please request a new code.",
		Err:     ErrMissingHandoff,
	}
}

func (f *Flow) startChallengeLocked(branch Branch, target string, ch *identity.Challenge, fallback time.Duration) {
	f.branch = branch
	f.target = target
	f.attemptsLeft = nil
	f.timer.Start(target, ch.TTL(fallback), ch.AttemptsAllowed)
	f.finishLocked(StateAwaitingOTP)
}
