package events

import (
	"context"
	"time"

	"github.com/catermarket/caterauth/internal/logging"
)

const DefaultPollInterval = time.Second

// Source re-reads the shared session state and reports whether it differs
// from what this process last saw.
type Source interface {
	Sync(ctx context.Context) (changed bool, err error)
}

type WatcherOption func(*Watcher)

func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

func WithWatcherLogger(l logging.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// Watcher turns changes made by other processes into local KindObserved
// events. It checks on every poll tick, on every remote broadcast and on
// Focus.
type Watcher struct {
	source   Source
	bus      *Bus
	interval time.Duration
	logger   logging.Logger
}

func NewWatcher(source Source, bus *Bus, opts ...WatcherOption) *Watcher {
	w := &Watcher{source: source, bus: bus, interval: DefaultPollInterval, logger: logging.Discard()}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Check syncs the source once and notifies local listeners on change.
func (w *Watcher) Check(ctx context.Context) bool {
	changed, err := w.source.Sync(ctx)
	if err != nil {
		w.logger.Warn(ctx, "session sync failed", "error", err)
		return false
	}
	if changed {
		w.bus.Notify(ctx, Event{Kind: KindObserved})
	}
	return changed
}

// Focus is called when a view regains attention; it may have missed polls
// while in the background.
func (w *Watcher) Focus(ctx context.Context) bool {
	return w.Check(ctx)
}

// Run polls until ctx is done. When the bus has a broadcaster, remote events
// from other origins trigger an immediate check as well.
func (w *Watcher) Run(ctx context.Context) error {
	var remote <-chan Event
	if b := w.bus.Broadcaster(); b != nil {
		ch, cancel, err := b.Subscribe(ctx)
		if err != nil {
			w.logger.Warn(ctx, "remote session events unavailable, polling only", "error", err)
		} else {
			defer func() { _ = cancel() }()
			remote = ch
		}
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.Check(ctx)

		case ev, ok := <-remote:
			if !ok {
				remote = nil
				continue
			}
			if ev.Origin == w.bus.Origin() {
				w.logger.Debug(ctx, "ignoring own session event", "kind", ev.Kind)
				continue
			}
			w.Check(ctx)

		case <-ctx.Done():
			return nil
		}
	}
}
