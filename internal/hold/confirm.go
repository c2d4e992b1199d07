package hold

import (
	"context"

	"github.com/ticketforge/hold-engine/internal/clock"
	"github.com/ticketforge/hold-engine/internal/domain"
	"github.com/ticketforge/hold-engine/internal/events"
	"github.com/ticketforge/hold-engine/internal/idempotency"
	"github.com/ticketforge/hold-engine/internal/ledger"
	"github.com/ticketforge/hold-engine/internal/observability"
	"github.com/ticketforge/hold-engine/internal/retry"
)

// ConfirmService finalizes active holds into permanent consumed capacity.
type ConfirmService struct {
	holds  Store
	ledger *ledger.Ledger
	idem   *idempotency.Runner
	emit   events.Emitter
	clock  clock.Clock
	logger observability.Logger
}

func NewConfirmService(holds Store, led *ledger.Ledger, idem *idempotency.Runner, emit events.Emitter, clk clock.Clock, logger observability.Logger) *ConfirmService {
	return &ConfirmService{
		holds:  holds,
		ledger: led,
		idem:   idem,
		emit:   emit,
		clock:  clk,
		logger: logger,
	}
}

// Confirm claims the active→confirmed transition and moves the hold's
// quantity from held to confirmed in the ledger. The claim carries the expiry
// check: a hold whose deadline has passed cannot be confirmed, even if the
// sweeper has not visited it yet. Replays with the same idempotency key
// return the already-confirmed hold; a different key against a confirmed hold
// fails with ErrAlreadyConfirmed so consumed capacity is never double
// counted.
func (s *ConfirmService) Confirm(ctx context.Context, holdID, idempotencyKey string) (domain.Hold, error) {
	if idempotencyKey == "" {
		return domain.Hold{}, domain.ErrIdempotencyKeyRequired
	}

	now := s.clock.Now()
	fp := idempotency.ConfirmHoldFingerprint(holdID)

	out, err := s.idem.Do(ctx, idempotencyKey, fp, now, func(ctx context.Context) (idempotency.Outcome, error) {
		h, err := s.confirm(ctx, holdID)
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

func (s *ConfirmService) confirm(ctx context.Context, holdID string) (domain.Hold, error) {
	now := s.clock.Now()

	var h domain.Hold
	err := retry.Do(ctx, retryAttempts, retryBase, func() error {
		var err error
		h, err = s.holds.ClaimTransition(ctx, holdID, domain.HoldStatusConfirmed, now)
		return err
	})
	if err != nil {
		return domain.Hold{}, err
	}

	if err := retry.Do(ctx, retryAttempts, retryBase, func() error {
		return s.ledger.Confirm(ctx, h.ZoneID, h.Quantity)
	}); err != nil {
		// Undo the claim: the hold must stay active so the same key can
		// retry the whole confirm instead of finding a confirmed hold the
		// counters never recorded.
		if rerr := retry.Do(ctx, retryAttempts, retryBase, func() error {
			return s.holds.RevertTransition(ctx, h.ID, domain.HoldStatusConfirmed)
		}); rerr != nil {
			s.logger.WithField("hold_id", h.ID).Error("revert confirm claim: ", rerr)
		}
		s.logger.WithField("hold_id", h.ID).Error("move confirmed quantity: ", err)
		return domain.Hold{}, err
	}

	observability.HoldsFinalized.WithLabelValues(string(domain.HoldStatusConfirmed)).Inc()
	if err := s.emit.Emit(ctx, events.HoldConfirmed, holdPayload(h)); err != nil {
		s.logger.WithField("hold_id", h.ID).Warn("emit hold.confirmed: ", err)
	}
	return h, nil
}
