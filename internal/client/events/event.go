// Package events tells every open view that the session changed.
//
// Inside a process, Bus delivers events synchronously to subscribers. Other
// processes learn about changes through a Broadcaster (Redis Pub/Sub), a
// periodic poll and an explicit focus check, all driven by Watcher.
// Listeners must treat an event as "re-read the credential store", never as
// the new state itself: events may be duplicated or arrive out of order.
package events

import (
	"context"
	"time"
)

type Kind string

const (
	KindCommitted Kind = "committed"
	KindCleared   Kind = "cleared"
	// KindObserved is fired locally when a watcher notices a change made
	// elsewhere.
	KindObserved Kind = "observed"
)

type Event struct {
	Kind   Kind      `json:"kind"`
	Seq    uint64    `json:"seq"`
	Origin string    `json:"origin"`
	At     time.Time `json:"at"`
}

type Listener func(ctx context.Context, ev Event)

// Broadcaster carries events between processes.
type Broadcaster interface {
	Broadcast(ctx context.Context, ev Event) error
	// Subscribe returns once the subscription is active. The channel is
	// closed after cancel is called.
	Subscribe(ctx context.Context) (events <-chan Event, cancel func() error, err error)
}
