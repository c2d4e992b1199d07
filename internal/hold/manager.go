// Package hold contains the hold manager and the confirmation service: the
// only code paths that mutate hold state and, through the ledger, the zone
// counters.
package hold

import (
	"context"
	"errors"
	"time"

	"github.com/ticketforge/hold-engine/internal/clock"
	"github.com/ticketforge/hold-engine/internal/domain"
	"github.com/ticketforge/hold-engine/internal/events"
	"github.com/ticketforge/hold-engine/internal/idempotency"
	"github.com/ticketforge/hold-engine/internal/ledger"
	"github.com/ticketforge/hold-engine/internal/observability"
	"github.com/ticketforge/hold-engine/internal/retry"
)

const (
	retryAttempts = 3
	retryBase     = 50 * time.Millisecond
)

// Store persists holds. ClaimTransition is the single atomic check-and-set
// behind every terminal transition; confirm, release and the sweeper all go
// through it, so exactly one of them wins per hold. RevertTransition is the
// claim owner's undo: when the counter movement accompanying a claim cannot
// be applied, the claim is rolled back so the hold never sits in a terminal
// status the ledger does not reflect.
type Store interface {
	CreateHold(ctx context.Context, h domain.Hold) error
	GetHold(ctx context.Context, holdID string) (domain.Hold, error)
	ClaimTransition(ctx context.Context, holdID string, to domain.HoldStatus, now time.Time) (domain.Hold, error)
	RevertTransition(ctx context.Context, holdID string, from domain.HoldStatus) error
}

// ZoneGetter resolves a zone for validation before reserving against it.
type ZoneGetter interface {
	GetZone(ctx context.Context, zoneID string) (domain.Zone, error)
}

type Manager struct {
	holds  Store
	zones  ZoneGetter
	ledger *ledger.Ledger
	idem   *idempotency.Runner
	emit   events.Emitter
	clock  clock.Clock
	logger observability.Logger
	ttl    time.Duration
}

func NewManager(holds Store, zones ZoneGetter, led *ledger.Ledger, idem *idempotency.Runner, emit events.Emitter, clk clock.Clock, logger observability.Logger, ttl time.Duration) *Manager {
	return &Manager{
		holds:  holds,
		zones:  zones,
		ledger: led,
		idem:   idem,
		emit:   emit,
		clock:  clk,
		logger: logger,
		ttl:    ttl,
	}
}

type CreateHoldInput struct {
	EventID        string
	ZoneID         string
	Quantity       int
	IdempotencyKey string
}

// CreateHold reserves quantity against a zone and persists an active hold
// expiring after the configured TTL. Retries bearing the same idempotency key
// and fingerprint replay the original outcome, including a recorded
// CapacityExceeded, without touching capacity again.
func (m *Manager) CreateHold(ctx context.Context, in CreateHoldInput) (domain.Hold, error) {
	if in.Quantity <= 0 {
		return domain.Hold{}, domain.ErrInvalidQuantity
	}
	if in.IdempotencyKey == "" {
		return domain.Hold{}, domain.ErrIdempotencyKeyRequired
	}

	zone, err := m.zones.GetZone(ctx, in.ZoneID)
	if err != nil {
		return domain.Hold{}, err
	}
	if zone.EventID != in.EventID {
		return domain.Hold{}, domain.ErrZoneNotFound
	}

	now := m.clock.Now()
	fp := idempotency.CreateHoldFingerprint(in.EventID, in.ZoneID, in.Quantity)

	out, err := m.idem.Do(ctx, in.IdempotencyKey, fp, now, func(ctx context.Context) (idempotency.Outcome, error) {
		h, err := m.reserve(ctx, in, now)
		if err != nil {
			return idempotency.Outcome{}, err
		}
		return idempotency.Outcome{Hold: &h}, nil
	})
	if err != nil {
		return domain.Hold{}, err
	}
	return out.Unpack()
}

func (m *Manager) reserve(ctx context.Context, in CreateHoldInput, now time.Time) (domain.Hold, error) {
	err := retry.Do(ctx, retryAttempts, retryBase, func() error {
		_, err := m.ledger.TryReserve(ctx, in.ZoneID, in.Quantity)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrCapacityExceeded) {
			observability.CapacityExceeded.Inc()
		}
		return domain.Hold{}, err
	}

	h := domain.NewHold(in.EventID, in.ZoneID, in.Quantity, in.IdempotencyKey, now, m.ttl)
	if err := m.holds.CreateHold(ctx, h); err != nil {
		// Hand the reservation back before surfacing the failure.
		if rerr := m.ledger.Reclaim(ctx, in.ZoneID, in.Quantity); rerr != nil {
			m.logger.WithField("zone_id", in.ZoneID).Error("reclaim after failed hold insert: ", rerr)
		}
		return domain.Hold{}, err
	}

	observability.HoldsCreated.Inc()
	if err := m.emit.Emit(ctx, events.HoldCreated, holdPayload(h)); err != nil {
		m.logger.WithField("hold_id", h.ID).Warn("emit hold.created: ", err)
	}
	return h, nil
}

// Release transitions an active hold to released and hands its quantity back
// to the zone. Releasing a hold in any terminal state fails with
// ErrInvalidState.
func (m *Manager) Release(ctx context.Context, holdID string) (domain.Hold, error) {
	now := m.clock.Now()

	var h domain.Hold
	err := retry.Do(ctx, retryAttempts, retryBase, func() error {
		var err error
		h, err = m.holds.ClaimTransition(ctx, holdID, domain.HoldStatusReleased, now)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyConfirmed) || errors.Is(err, domain.ErrHoldExpired) {
			return domain.Hold{}, domain.ErrInvalidState
		}
		return domain.Hold{}, err
	}

	if err := retry.Do(ctx, retryAttempts, retryBase, func() error {
		return m.ledger.Reclaim(ctx, h.ZoneID, h.Quantity)
	}); err != nil {
		// Undo the claim: the hold must not sit released while the zone
		// still counts its quantity as held.
		if rerr := retry.Do(ctx, retryAttempts, retryBase, func() error {
			return m.holds.RevertTransition(ctx, h.ID, domain.HoldStatusReleased)
		}); rerr != nil {
			m.logger.WithField("hold_id", h.ID).Error("revert release claim: ", rerr)
		}
		m.logger.WithField("hold_id", h.ID).Error("reclaim released hold: ", err)
		return domain.Hold{}, err
	}

	observability.HoldsFinalized.WithLabelValues(string(domain.HoldStatusReleased)).Inc()
	if err := m.emit.Emit(ctx, events.HoldReleased, holdPayload(h)); err != nil {
		m.logger.WithField("hold_id", h.ID).Warn("emit hold.released: ", err)
	}
	return h, nil
}

func (m *Manager) GetHold(ctx context.Context, holdID string) (domain.Hold, error) {
	return m.holds.GetHold(ctx, holdID)
}

func holdPayload(h domain.Hold) map[string]any {
	return map[string]any{
		"hold_id":    h.ID,
		"event_id":   h.EventID,
		"zone_id":    h.ZoneID,
		"quantity":   h.Quantity,
		"status":     string(h.Status),
		"expires_at": h.ExpiresAt,
	}
}
