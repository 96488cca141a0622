// Package events is the in-process dispatcher mutations publish through.
package events

import (
	"context"
	"sync"

	"github.com/mechflow/mechflow-backend/pkg/logger"
)

// Event names published by the store services.
const (
	UserUpdated         = "USER_UPDATED"
	EstimateUpdated     = "ESTIMATE_UPDATED"
	NotificationAdded   = "NOTIFICATION_ADDED"
	NotificationUpdated = "NOTIFICATION_UPDATED"
	SettingsUpdated     = "SETTINGS_UPDATED"
	ShopStatusUpdated   = "SHOP_STATUS_UPDATED"
	StorageUpdated      = "STORAGE_UPDATED"
)

// Event is what subscribers receive on every mutation.
type Event struct {
	Name    string
	Payload any
}

// Handler receives published events. A panicking handler never blocks the
// others.
type Handler func(ctx context.Context, event Event)

// Bus fans events out to subscribers synchronously, in subscription order.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]Handler
	order  []int
	logg   *logger.Logger
}

// NewBus returns an empty dispatcher. The logger is optional and only used
// to record isolated subscriber panics.
func NewBus(logg *logger.Logger) *Bus {
	return &Bus{subs: map[int]Handler{}, logg: logg}
}

// Subscribe registers a handler and returns its unsubscribe function.
// Unsubscribing twice is harmless.
func (b *Bus) Subscribe(handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.subs[id] = handler
	b.order = append(b.order, id)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// Publish invokes every live subscriber with the event.
func (b *Bus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs))
	for _, id := range b.order {
		if handler, ok := b.subs[id]; ok {
			handlers = append(handlers, handler)
		}
	}
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.invoke(ctx, handler, event)
	}
}

func (b *Bus) invoke(ctx context.Context, handler Handler, event Event) {
	defer func() {
		if rec := recover(); rec != nil && b.logg != nil {
			panicCtx := b.logg.WithFields(ctx, map[string]any{
				"event": event.Name,
				"panic": rec,
			})
			b.logg.Warn(panicCtx, "events.subscriber_panic")
		}
	}()
	handler(ctx, event)
}
