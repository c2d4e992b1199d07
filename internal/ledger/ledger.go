// Package ledger owns the per-zone capacity counters. Every mutation runs as
// a single atomic step scoped to one zone, so concurrent reservations against
// the same zone can never both observe stale remaining capacity.
package ledger

import (
	"context"

	"github.com/ticketforge/hold-engine/internal/domain"
)

// ZoneStore applies fn to the zone's counters under the store's per-zone
// atomic primitive (a mutex in the memory adapter, a row lock inside a
// transaction in the relational one). An error from fn aborts the mutation.
// The returned zone is the state after the step.
type ZoneStore interface {
	ApplyZone(ctx context.Context, zoneID string, fn func(z *domain.Zone) error) (domain.Zone, error)
}

type Ledger struct {
	store ZoneStore
}

func New(store ZoneStore) *Ledger {
	return &Ledger{store: store}
}

// TryReserve moves quantity into held, failing with ErrCapacityExceeded when
// held + confirmed + quantity would exceed capacity. It never partially
// reserves. Returns the held counter after the reservation.
func (l *Ledger) TryReserve(ctx context.Context, zoneID string, quantity int) (int, error) {
	if quantity <= 0 {
		return 0, domain.ErrInvalidQuantity
	}
	z, err := l.store.ApplyZone(ctx, zoneID, func(z *domain.Zone) error {
		if z.Held+z.Confirmed+quantity > z.Capacity {
			return domain.ErrCapacityExceeded
		}
		z.Held += quantity
		return nil
	})
	if err != nil {
		return 0, err
	}
	return z.Held, nil
}

// Confirm moves quantity from held to confirmed.
func (l *Ledger) Confirm(ctx context.Context, zoneID string, quantity int) error {
	_, err := l.store.ApplyZone(ctx, zoneID, func(z *domain.Zone) error {
		if quantity <= 0 || quantity > z.Held {
			return domain.ErrInvalidState
		}
		z.Held -= quantity
		z.Confirmed += quantity
		return nil
	})
	return err
}

// Reclaim moves quantity out of held with no confirmation; used when a hold
// expires or is released.
func (l *Ledger) Reclaim(ctx context.Context, zoneID string, quantity int) error {
	_, err := l.store.ApplyZone(ctx, zoneID, func(z *domain.Zone) error {
		if quantity <= 0 || quantity > z.Held {
			return domain.ErrInvalidState
		}
		z.Held -= quantity
		return nil
	})
	return err
}

// Resize sets a new capacity, rejecting any value below the committed
// quantity held + confirmed.
func (l *Ledger) Resize(ctx context.Context, zoneID string, capacity int) (domain.Zone, error) {
	return l.store.ApplyZone(ctx, zoneID, func(z *domain.Zone) error {
		if capacity < z.Held+z.Confirmed {
			return domain.ErrInvalidCapacity
		}
		z.Capacity = capacity
		return nil
	})
}
