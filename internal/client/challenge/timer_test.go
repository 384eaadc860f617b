package challenge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTimer() (*Timer, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	return New(WithClock(clock.Now)), clock
}

func TestTimer_NotStarted(t *testing.T) {
	timer, _ := newTimer()
	assert.Equal(t, 0, timer.Remaining())
	assert.False(t, timer.Expired())
	assert.False(t, timer.CanResend())
	assert.False(t, timer.Active())
}

func TestTimer_CountdownRoundsUp(t *testing.T) {
	timer, clock := newTimer()
	c := timer.Start("+2348012345678", DefaultSignupTTL, 3)

	assert.Equal(t, "+2348012345678", c.Target)
	assert.Equal(t, clock.now, c.IssuedAt)
	assert.Equal(t, clock.now.Add(5*time.Minute), c.ResendAvailableAt)
	assert.Equal(t, 300, timer.Remaining())

	clock.Advance(500 * time.Millisecond)
	assert.Equal(t, 300, timer.Remaining())

	clock.Advance(299 * time.Second)
	assert.Equal(t, 1, timer.Remaining())
	assert.False(t, timer.Expired())
}

func TestTimer_ResendCooldown(t *testing.T) {
	timer, clock := newTimer()
	timer.Start("+2348012345678", 120*time.Second, 0)

	clock.Advance(60 * time.Second)
	assert.Equal(t, 60, timer.Remaining())
	assert.False(t, timer.CanResend())

	clock.Advance(60 * time.Second)
	assert.Equal(t, 0, timer.Remaining())
	assert.True(t, timer.CanResend())
	assert.True(t, timer.Expired())

	clock.Advance(time.Hour)
	assert.Equal(t, 0, timer.Remaining())
}

func TestTimer_RestartUsesNewTTL(t *testing.T) {
	timer, clock := newTimer()
	timer.Start("+2348012345678", 120*time.Second, 5)
	clock.Advance(120 * time.Second)
	require.True(t, timer.CanResend())

	c := timer.Restart(300 * time.Second)
	assert.Equal(t, "+2348012345678", c.Target)
	assert.Equal(t, 5, c.AttemptsAllowed)
	assert.Equal(t, 300, timer.Remaining())
	assert.False(t, timer.CanResend())
}

func TestTimer_AttemptsAndStop(t *testing.T) {
	timer, _ := newTimer()
	timer.Start("x", time.Minute, 5)
	timer.SetAttemptsAllowed(2)

	c, ok := timer.Current()
	require.True(t, ok)
	assert.Equal(t, 2, c.AttemptsAllowed)

	timer.Stop()
	_, ok = timer.Current()
	assert.False(t, ok)
	assert.False(t, timer.CanResend())
}

func TestTimer_WatchStopsAtZero(t *testing.T) {
	timer := New()
	timer.Start("x", 1500*time.Millisecond, 0)

	var seen []int
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	timer.Watch(ctx, func(left int) { seen = append(seen, left) })

	require.NotEmpty(t, seen)
	assert.Equal(t, 2, seen[0])
	assert.Equal(t, 0, seen[len(seen)-1])
}

func TestTimer_WatchHonoursContext(t *testing.T) {
	timer := New()
	timer.Start("x", time.Hour, 0)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	timer.Watch(ctx, func(int) {
		calls++
		cancel()
	})
	assert.Equal(t, 1, calls)
}
