package stats

import (
	"context"
	"sync"

	"github.com/R3E-Network/rentals/internal/events"
)

// Board holds the current statistics of one landlord. Every refresh replaces
// the snapshot wholesale.
type Board struct {
	agg        *Aggregator
	landlordID string

	mu       sync.RWMutex
	snapshot Stats
}

// NewBoard creates a board for landlordID. Call Refresh to populate it.
func NewBoard(agg *Aggregator, landlordID string) *Board {
	return &Board{agg: agg, landlordID: landlordID}
}

// Snapshot returns the last computed statistics.
func (b *Board) Snapshot() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snapshot
}

// Refresh recomputes the statistics from scratch.
func (b *Board) Refresh(ctx context.Context) Stats {
	s := b.agg.Compute(ctx, b.landlordID)

	b.mu.Lock()
	b.snapshot = s
	b.mu.Unlock()
	return s
}

// Follow refreshes the board after every mutation of this landlord's records
// until the returned function is called.
func (b *Board) Follow(bus *events.Bus) (unsubscribe func()) {
	return bus.Subscribe(func(ctx context.Context, m events.Mutation) {
		if m.LandlordID != b.landlordID {
			return
		}
		b.Refresh(ctx)
	})
}
