// Package idempotency implements the explicit two-phase protocol every
// mutating entry point runs: reserve-key, execute, record-result. A retried
// write bearing a known key replays the stored outcome instead of re-running
// side effects.
package idempotency

import (
	"context"
	"time"

	"github.com/ticketforge/hold-engine/internal/domain"
	"github.com/ticketforge/hold-engine/internal/observability"
)

// Outcome is the stored result of a request: either a hold or a deterministic
// business error identified by its wire code.
type Outcome struct {
	Hold      *domain.Hold `json:"hold,omitempty"`
	ErrorCode string       `json:"error_code,omitempty"`
}

// Unpack converts a stored outcome back into the service return values.
func (o Outcome) Unpack() (domain.Hold, error) {
	if o.ErrorCode != "" {
		if err := domain.ErrorFromCode(o.ErrorCode); err != nil {
			return domain.Hold{}, err
		}
		return domain.Hold{}, domain.ErrUnavailable
	}
	if o.Hold == nil {
		return domain.Hold{}, domain.ErrUnavailable
	}
	return *o.Hold, nil
}

// Record maps a client key to the outcome of the request it was first seen
// on. Fingerprint is compared on replay; a mismatch is a client error, not a
// replay. Done is false while the first-sight request is still executing.
type Record struct {
	Key         string    `json:"key"`
	Fingerprint string    `json:"fingerprint"`
	Done        bool      `json:"done"`
	Outcome     Outcome   `json:"outcome"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store persists idempotency records. Reserve is putIfAbsent: atomic with
// respect to concurrent identical keys, so exactly one caller creates the
// record and every racer observes it.
type Store interface {
	Get(ctx context.Context, key string) (*Record, error)
	Reserve(ctx context.Context, key, fingerprint string, now time.Time) (rec *Record, created bool, err error)
	Complete(ctx context.Context, key string, out Outcome) error
	// Forget drops a pending record after a transient failure so the retry
	// re-executes.
	Forget(ctx context.Context, key string) error
}

// Runner drives the two-phase protocol for one mutating operation.
type Runner struct {
	store  Store
	logger observability.Logger

	// waiters for a racing first-sight request poll until the winner's
	// result lands.
	pollAttempts int
	pollBase     time.Duration
}

func NewRunner(store Store, logger observability.Logger) *Runner {
	return &Runner{
		store:        store,
		logger:       logger,
		pollAttempts: 6,
		pollBase:     25 * time.Millisecond,
	}
}

// Do executes fn exactly once per key. Replays with a matching fingerprint
// return the stored outcome; a reused key with a different fingerprint fails
// with ErrIdempotencyConflict. Deterministic business failures from fn are
// recorded as outcomes; transient failures drop the pending record.
func (r *Runner) Do(ctx context.Context, key, fingerprint string, now time.Time, fn func(ctx context.Context) (Outcome, error)) (Outcome, error) {
	rec, created, err := r.store.Reserve(ctx, key, fingerprint, now)
	if err != nil {
		return Outcome{}, err
	}

	if !created {
		if rec.Fingerprint != fingerprint {
			return Outcome{}, domain.ErrIdempotencyConflict
		}
		if rec.Done {
			observability.IdempotentReplays.Inc()
			return rec.Outcome, nil
		}
		return r.awaitWinner(ctx, key, fingerprint)
	}

	out, err := fn(ctx)
	if err != nil {
		if domain.Deterministic(err) {
			out = Outcome{ErrorCode: domain.ErrorCode(err)}
			if cerr := r.store.Complete(ctx, key, out); cerr != nil {
				r.logger.WithField("key", key).Error("record idempotent failure: ", cerr)
			}
			return Outcome{}, err
		}
		if ferr := r.store.Forget(ctx, key); ferr != nil {
			r.logger.WithField("key", key).Error("drop pending idempotency record: ", ferr)
		}
		return Outcome{}, err
	}

	if cerr := r.store.Complete(ctx, key, out); cerr != nil {
		// The side effect landed; surface the result anyway and let the
		// record stay pending for the retention GC.
		r.logger.WithField("key", key).Error("record idempotent outcome: ", cerr)
	}
	return out, nil
}

// awaitWinner polls for the racing first-sight request's stored result. The
// loser of a Reserve race must observe the winner's record, never execute.
func (r *Runner) awaitWinner(ctx context.Context, key, fingerprint string) (Outcome, error) {
	delay := r.pollBase
	for i := 0; i < r.pollAttempts; i++ {
		select {
		case <-ctx.Done():
			return Outcome{}, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2

		rec, err := r.store.Get(ctx, key)
		if err != nil {
			return Outcome{}, err
		}
		if rec == nil {
			// Winner hit a transient failure and forgot the record; the
			// caller may retry from scratch.
			return Outcome{}, domain.ErrUnavailable
		}
		if rec.Fingerprint != fingerprint {
			return Outcome{}, domain.ErrIdempotencyConflict
		}
		if rec.Done {
			observability.IdempotentReplays.Inc()
			return rec.Outcome, nil
		}
	}
	return Outcome{}, domain.ErrUnavailable
}
