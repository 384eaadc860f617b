package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("identity service unavailable")
	ErrConflict     = errors.New("conflict")
	// ErrRejected is any other refusal: a wrong or expired code, a bad
	// request, an unknown account.
	ErrRejected = errors.New("request rejected")
)

// APIError is a failure reported in an envelope. It unwraps to one of the
// sentinels above.
type APIError struct {
	StatusCode   int
	Message      string
	Field        string
	AttemptsLeft *int
	kind         error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s (status %d)", e.kind, e.StatusCode)
	}
	return fmt.Sprintf("%s (status %d): %s", e.kind, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.kind }

// errorDetails are the data fields a failure envelope may carry.
type errorDetails struct {
	Field        string `json:"field"`
	AttemptsLeft *int   `json:"attemptsLeft"`
}

func kindFor(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrUnauthorized
	case status == http.StatusConflict:
		return ErrConflict
	case status >= http.StatusInternalServerError:
		return ErrUnavailable
	default:
		return ErrRejected
	}
}

// checkEnvelope returns nil for a successful envelope and an *APIError
// otherwise. transportStatus is used when the envelope carries no status.
func checkEnvelope(env *Envelope, transportStatus int) error {
	status := env.StatusCode
	if status == 0 {
		status = transportStatus
	}
	if env.Success && status < http.StatusBadRequest {
		return nil
	}
	if status < http.StatusBadRequest {
		status = http.StatusBadRequest
	}

	apiErr := &APIError{StatusCode: status, Message: env.Message, kind: kindFor(status)}
	if len(env.Data) > 0 {
		var d errorDetails
		if json.Unmarshal(env.Data, &d) == nil {
			apiErr.Field = d.Field
			apiErr.AttemptsLeft = d.AttemptsLeft
		}
	}
	return apiErr
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// NewAPIError builds the error a transport returns for a failed envelope
// with the given status.
func NewAPIError(status int, message string) *APIError {
	return &APIError{StatusCode: status, Message: message, kind: kindFor(status)}
}
