// Package events carries mutation notifications from the landlord managers to
// whoever has to refresh after a change: dashboards, statistics and metrics.
package events

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Entity names the record kind that changed.
type Entity string

const (
	EntityProperty Entity = "property"
	EntityLease    Entity = "lease"
	EntityPayment  Entity = "payment"
	EntityMessage  Entity = "message"
)

// Action names the kind of change.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// Mutation describes a successful write.
type Mutation struct {
	Entity     Entity    `json:"entity"`
	Action     Action    `json:"action"`
	LandlordID string    `json:"landlord_id"`
	ID         string    `json:"id"`
	At         time.Time `json:"at"`
}

// Handler receives mutations.
type Handler func(ctx context.Context, m Mutation)

// ErrClosed is returned when publishing on a closed bus.
var ErrClosed = errors.New("event bus is closed")

type subscription struct {
	id      uint64
	handler Handler
}

// Bus is an in-process publish/subscribe hub. Handlers run synchronously in
// subscription order, so a publisher returns only after every subscriber has
// seen the change.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID uint64
	closed bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers h and returns a function that removes it. The returned
// function is safe to call more than once.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, handler: h})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers m to every current subscriber.
func (b *Bus) Publish(ctx context.Context, m Mutation) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrClosed
	}
	subs := b.subs
	b.mu.RUnlock()

	if m.At.IsZero() {
		m.At = time.Now().UTC()
	}
	for _, s := range subs {
		s.handler(ctx, m)
	}
	return nil
}

// Close drops every subscriber and rejects further publishes.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = nil
}
