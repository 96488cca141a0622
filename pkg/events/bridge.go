package events

import (
	"context"

	"github.com/mechflow/mechflow-backend/pkg/kv"
	"github.com/mechflow/mechflow-backend/pkg/logger"
)

// Bridge republishes writes made by other instances sharing the same
// backend as STORAGE_UPDATED events on the local bus. Writes tagged with
// this instance's origin id are skipped; local mutations already published
// their own events.
type Bridge struct {
	feed   kv.ChangeFeed
	bus    *Bus
	origin string
	logg   *logger.Logger
	stop   func() error
}

// NewBridge wires the change feed to the bus. Run must be called to start
// forwarding.
func NewBridge(feed kv.ChangeFeed, bus *Bus, origin string, logg *logger.Logger) *Bridge {
	return &Bridge{feed: feed, bus: bus, origin: origin, logg: logg}
}

// Run consumes the feed until ctx ends. It returns immediately; forwarding
// happens on a background goroutine.
func (b *Bridge) Run(ctx context.Context) {
	changes, stop := b.feed.Changes(ctx)
	b.stop = stop

	go func() {
		for change := range changes {
			if change.Origin == b.origin {
				continue
			}
			if !kv.InNamespace(change.Key) {
				continue
			}
			b.bus.Publish(ctx, Event{Name: StorageUpdated, Payload: change})
		}
		if b.logg != nil {
			b.logg.Info(ctx, "events.bridge_stopped")
		}
	}()
}

// Close tears down the underlying subscription.
func (b *Bridge) Close() error {
	if b.stop == nil {
		return nil
	}
	return b.stop()
}
