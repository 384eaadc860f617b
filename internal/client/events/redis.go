package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

var _ Broadcaster = (*RedisBroadcaster)(nil)

// RedisBroadcaster publishes events on "<prefix>:session-events".
type RedisBroadcaster struct {
	rdb     redis.UniversalClient
	channel string
}

func NewRedisBroadcaster(rdb redis.UniversalClient, prefix string) *RedisBroadcaster {
	return &RedisBroadcaster{rdb: rdb, channel: prefix + ":session-events"}
}

func (b *RedisBroadcaster) Channel() string { return b.channel }

func (b *RedisBroadcaster) Broadcast(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := b.rdb.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish session event: %w", err)
	}
	return nil
}

func (b *RedisBroadcaster) Subscribe(ctx context.Context) (<-chan Event, func() error, error) {
	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("subscribe session events: %w", err)
	}

	out := make(chan Event, 16)
	done := make(chan struct{})
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				continue
			}
			select {
			case out <- ev:
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	cancel := func() error {
		once.Do(func() { close(done) })
		return sub.Close()
	}
	return out, cancel, nil
}
