package flows

import (
	"errors"

	"github.com/catermarket/caterauth/internal/client/identity"
)

type Kind string

const (
	KindValidation        Kind = "validation"
	KindChallengeRejected Kind = "challenge_rejected"
	KindConflict          Kind = "conflict"
	KindUnauthorized      Kind = "unauthorized"
	KindUnreachable       Kind = "unreachable"
	KindUnknown           Kind = "unknown"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrChallengeRejected = errors.New("challenge rejected")
	ErrConflict          = errors.New("conflict")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrUnreachable       = errors.New("unreachable")
	ErrUnknown           = errors.New("unknown error")
)

// Errors returned by Submit and Resend without touching the flow.
var (
	ErrBusy        = errors.New("a submission is already in progress")
	ErrClosed      = errors.New("flow closed")
	ErrInvalidStep = errors.New("step not available in current state")
)

// Errors carried inside an *Error.
var (
	ErrMissingHandoff = errors.New("reset handoff missing")
	ErrResendCooldown = errors.New("resend not available yet")
)

const retryMessage = "We couldn't reach the server. Please check your connection and try again."

// Error is what a failed step surfaces to the view. Message is always
// human-readable.
type Error struct {
	Kind         Kind
	Message      string
	Field        string
	AttemptsLeft *int
	Err          error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() []error {
	out := []error{kindSentinel(e.Kind)}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

func kindSentinel(k Kind) error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindChallengeRejected:
		return ErrChallengeRejected
	case KindConflict:
		return ErrConflict
	case KindUnauthorized:
		return ErrUnauthorized
	case KindUnreachable:
		return ErrUnreachable
	}
	return ErrUnknown
}

// Classify re-expresses an Identity API failure. Server messages win over
// fallback. otpStep marks steps where a refusal means the code was wrong.
func Classify(err error, fallback string, otpStep bool) *Error {
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}

	e := &Error{Kind: KindUnknown, Message: fallback, Err: err}

	var apiErr *identity.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			e.Message = apiErr.Message
		}
		e.Field = apiErr.Field
		e.AttemptsLeft = apiErr.AttemptsLeft
	}

	switch {
	case errors.Is(err, identity.ErrUnauthorized):
		e.Kind = KindUnauthorized
	case errors.Is(err, identity.ErrConflict):
		e.Kind = KindConflict
	case errors.Is(err, identity.ErrUnavailable):
		e.Kind = KindUnreachable
		if apiErr == nil || apiErr.Message == "" {
			e.Message = retryMessage
		}
	case errors.Is(err, identity.ErrRejected):
		if otpStep {
			e.Kind = KindChallengeRejected
		} else {
			e.Kind = KindValidation
		}
	}
	return e
}
