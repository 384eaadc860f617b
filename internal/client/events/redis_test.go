package events

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRedisBroadcaster_RoundTrip(t *testing.T) {
	rdb := setupRedis(t)
	b := NewRedisBroadcaster(rdb, "caterauth")
	assert.Equal(t, "caterauth:session-events", b.Channel())

	ctx := context.Background()
	ch, cancel, err := b.Subscribe(ctx)
	require.NoError(t, err)
	defer cancel()

	sent := Event{Kind: KindCleared, Seq: 42, Origin: "tab-a", At: time.Now().UTC().Truncate(time.Millisecond)}
	require.NoError(t, b.Broadcast(ctx, sent))

	select {
	case got := <-ch:
		assert.Equal(t, sent.Kind, got.Kind)
		assert.Equal(t, sent.Seq, got.Seq)
		assert.Equal(t, sent.Origin, got.Origin)
		assert.True(t, sent.At.Equal(got.At))
	case <-time.After(2 * time.Second):
		t.Fatal("event not received")
	}
}

func TestRedisBroadcaster_CancelClosesChannel(t *testing.T) {
	rdb := setupRedis(t)
	b := NewRedisBroadcaster(rdb, "caterauth")

	ch, cancel, err := b.Subscribe(context.Background())
	require.NoError(t, err)
	require.NoError(t, cancel())

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed")
	}
}
