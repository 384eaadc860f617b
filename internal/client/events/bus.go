package events

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/catermarket/caterauth/internal/logging"
)

type Option func(*Bus)

func WithBroadcaster(b Broadcaster) Option {
	return func(bus *Bus) { bus.broadcaster = b }
}

func WithLogger(l logging.Logger) Option {
	return func(bus *Bus) { bus.logger = l }
}

type subscription struct {
	id       uint64
	listener Listener
}

// Bus is the in-process publish/subscribe channel. Its origin id marks the
// events it broadcasts so they are not delivered back to it.
type Bus struct {
	mu          sync.RWMutex
	subs        []subscription
	nextID      uint64
	origin      string
	broadcaster Broadcaster
	logger      logging.Logger
}

func NewBus(opts ...Option) *Bus {
	b := &Bus{origin: uuid.NewString(), logger: logging.Discard()}
	for _, o := range opts {
		o(b)
	}
	return b
}

func (b *Bus) Origin() string { return b.origin }

func (b *Bus) Broadcaster() Broadcaster { return b.broadcaster }

// Subscribe registers l and returns a function removing it. Calling the
// returned function more than once is harmless.
func (b *Bus) Subscribe(l Listener) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, listener: l})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.subs = slices.DeleteFunc(b.subs, func(s subscription) bool { return s.id == id })
	}
}

// Publish delivers ev to local listeners, then to other processes. A
// broadcast failure is logged; local delivery has already happened.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	ev = b.stamp(ev)
	b.deliver(ctx, ev)

	if b.broadcaster == nil {
		return
	}
	if err := b.broadcaster.Broadcast(ctx, ev); err != nil {
		b.logger.Warn(ctx, "session event broadcast failed", "kind", ev.Kind, "error", err)
	}
}

// Notify delivers ev to local listeners only.
func (b *Bus) Notify(ctx context.Context, ev Event) {
	b.deliver(ctx, b.stamp(ev))
}

func (b *Bus) stamp(ev Event) Event {
	if ev.Origin == "" {
		ev.Origin = b.origin
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	return ev
}

func (b *Bus) deliver(ctx context.Context, ev Event) {
	b.mu.RLock()
	subs := slices.Clone(b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		s.listener(ctx, ev)
	}
}
