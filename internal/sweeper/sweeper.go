// Package sweeper reclaims capacity from holds whose deadline passed without
// confirmation. It shares the hold store's claim-transition primitive with
// the confirmation service, so for any hold exactly one of
// {confirmed, expired} wins.
package sweeper

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ticketforge/hold-engine/internal/clock"
	"github.com/ticketforge/hold-engine/internal/domain"
	"github.com/ticketforge/hold-engine/internal/events"
	"github.com/ticketforge/hold-engine/internal/hold"
	"github.com/ticketforge/hold-engine/internal/ledger"
	"github.com/ticketforge/hold-engine/internal/observability"
	"github.com/ticketforge/hold-engine/internal/retry"
)

// Lister extends the hold store with the sweep scan.
type Lister interface {
	hold.Store
	ListExpired(ctx context.Context, now time.Time, limit int) ([]domain.Hold, error)
}

type Sweeper struct {
	holds     Lister
	ledger    *ledger.Ledger
	emit      events.Emitter
	clock     clock.Clock
	logger    observability.Logger
	batchSize int
}

func New(holds Lister, led *ledger.Ledger, emit events.Emitter, clk clock.Clock, logger observability.Logger, batchSize int) *Sweeper {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Sweeper{
		holds:     holds,
		ledger:    led,
		emit:      emit,
		clock:     clk,
		logger:    logger,
		batchSize: batchSize,
	}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.WithField("interval", interval.String()).Info("sweeper started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.logger.Error("sweep failed: ", err)
			}
		}
	}
}

// SweepOnce expires every due active hold and reclaims its quantity.
// Re-scanning an already-expired hold is a no-op, so sweeping is idempotent.
// Returns the number of holds expired.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() {
		observability.SweepDuration.Observe(time.Since(start).Seconds())
	}()

	now := s.clock.Now()
	due, err := s.holds.ListExpired(ctx, now, s.batchSize)
	if err != nil {
		return 0, err
	}

	var expired int
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	results := make([]bool, len(due))
	for i, h := range due {
		i, h := i, h
		g.Go(func() error {
			ok, err := s.expire(gctx, h, now)
			results[i] = ok
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return expired, err
	}
	for _, ok := range results {
		if ok {
			expired++
		}
	}
	return expired, nil
}

func (s *Sweeper) expire(ctx context.Context, h domain.Hold, now time.Time) (bool, error) {
	var claimed domain.Hold
	err := retry.Do(ctx, 3, 100*time.Millisecond, func() error {
		var err error
		claimed, err = s.holds.ClaimTransition(ctx, h.ID, domain.HoldStatusExpired, now)
		return err
	})
	if err != nil {
		// A confirm or release won the claim between the scan and here;
		// nothing to reclaim.
		if errors.Is(err, domain.ErrAlreadyConfirmed) ||
			errors.Is(err, domain.ErrHoldExpired) ||
			errors.Is(err, domain.ErrInvalidState) ||
			errors.Is(err, domain.ErrHoldNotFound) {
			return false, nil
		}
		return false, err
	}

	if err := retry.Do(ctx, 3, 100*time.Millisecond, func() error {
		return s.ledger.Reclaim(ctx, claimed.ZoneID, claimed.Quantity)
	}); err != nil {
		// Undo the claim so the hold stays active and the next sweep
		// retries it; an expired claim without its reclaim would strand
		// the quantity in held forever.
		if rerr := retry.Do(ctx, 3, 100*time.Millisecond, func() error {
			return s.holds.RevertTransition(ctx, claimed.ID, domain.HoldStatusExpired)
		}); rerr != nil {
			s.logger.WithField("hold_id", claimed.ID).Error("revert expire claim: ", rerr)
		}
		return false, err
	}

	observability.HoldsFinalized.WithLabelValues(string(domain.HoldStatusExpired)).Inc()
	if err := s.emit.Emit(ctx, events.HoldExpired, map[string]any{
		"hold_id":  claimed.ID,
		"event_id": claimed.EventID,
		"zone_id":  claimed.ZoneID,
		"quantity": claimed.Quantity,
	}); err != nil {
		s.logger.WithField("hold_id", claimed.ID).Warn("emit hold.expired: ", err)
	}
	return true, nil
}
