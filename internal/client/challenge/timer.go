// Package challenge tracks the validity window of a one-time passcode.
//
// The countdown is advisory: it drives what a view offers (verify while the
// code is fresh, resend once it is not), but the server alone decides whether
// a code is still valid.
package challenge

import (
	"context"
	"math"
	"sync"
	"time"
)

const (
	DefaultSignupTTL = 5 * time.Minute
	DefaultResetTTL  = 2 * time.Minute
)

// Challenge is the state of one OTP screen. It is never persisted.
type Challenge struct {
	Target            string
	IssuedAt          time.Time
	TTL               time.Duration
	AttemptsAllowed   int
	ResendAvailableAt time.Time
}

type Option func(*Timer)

func WithClock(now func() time.Time) Option {
	return func(t *Timer) { t.now = now }
}

// Timer counts down one Challenge with one-second resolution. The zero
// Timer is not started; use New.
type Timer struct {
	mu      sync.Mutex
	now     func() time.Time
	current *Challenge
}

func New(opts ...Option) *Timer {
	t := &Timer{now: time.Now}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Start begins a countdown for target. Resend becomes available when it
// runs out.
func (t *Timer) Start(target string, ttl time.Duration, attempts int) Challenge {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	c := &Challenge{
		Target:            target,
		IssuedAt:          now,
		TTL:               ttl,
		AttemptsAllowed:   attempts,
		ResendAvailableAt: now.Add(ttl),
	}
	t.current = c
	return *c
}

// Restart starts the same target over with a new ttl, keeping the attempt
// budget unless the server sends a new one.
func (t *Timer) Restart(ttl time.Duration) Challenge {
	t.mu.Lock()
	var target string
	var attempts int
	if t.current != nil {
		target, attempts = t.current.Target, t.current.AttemptsAllowed
	}
	t.mu.Unlock()
	return t.Start(target, ttl, attempts)
}

func (t *Timer) SetAttemptsAllowed(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current != nil {
		t.current.AttemptsAllowed = n
	}
}

func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = nil
}

// Current returns the running challenge, if any.
func (t *Timer) Current() (Challenge, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return Challenge{}, false
	}
	return *t.current, true
}

func (t *Timer) Active() bool {
	_, ok := t.Current()
	return ok
}

// Remaining is the whole number of seconds left, rounded up, never negative.
// A stopped timer has none.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining()
}

func (t *Timer) remaining() int {
	if t.current == nil {
		return 0
	}
	left := t.current.ResendAvailableAt.Sub(t.now())
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Seconds()))
}

func (t *Timer) Expired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current != nil && t.remaining() == 0
}

// CanResend is true exactly when a started countdown has reached zero.
func (t *Timer) CanResend() bool {
	return t.Expired()
}

// Watch calls fn with the remaining seconds once per second until the
// countdown reaches zero, the timer stops, or ctx is done.
func (t *Timer) Watch(ctx context.Context, fn func(remaining int)) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		if !t.Active() {
			return
		}
		left := t.Remaining()
		fn(left)
		if left == 0 {
			return
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}
