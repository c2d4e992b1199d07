// Package crdb persists the engine in CockroachDB (or Postgres) through
// pgx. Zone mutations take a row lock inside a serializable transaction;
// claim transitions do the same per hold, so the adapter provides the same
// atomicity the memory arena gives with its per-entry mutexes.
package crdb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ticketforge/hold-engine/internal/domain"
	"github.com/ticketforge/hold-engine/internal/observability"
)

const (
	serializationFailureCode = "40001"
	uniqueViolationCode      = "23505"
	foreignKeyViolationCode  = "23503"
	invalidTextRepCode       = "22P02"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	start := time.Now()
	defer func() {
		observability.StoreTxDuration.Observe(time.Since(start).Seconds())
	}()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.ErrUnavailable
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE"); err != nil {
		return domain.ErrUnavailable
	}

	if err := fn(tx); err != nil {
		if pgCode(err) == serializationFailureCode {
			return domain.ErrSerializationFailure
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if pgCode(err) == serializationFailureCode {
			return domain.ErrSerializationFailure
		}
		return domain.ErrUnavailable
	}
	return nil
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// ApplyZone implements ledger.ZoneStore: the zone row is locked for the
// duration of fn, and the counters written back in the same transaction.
func (r *Repository) ApplyZone(ctx context.Context, zoneID string, fn func(z *domain.Zone) error) (domain.Zone, error) {
	var out domain.Zone
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		var z domain.Zone
		err := tx.QueryRow(ctx, `
			SELECT id, event_id, name, capacity, held, confirmed
			FROM zones WHERE id = $1 FOR UPDATE
		`, zoneID).Scan(&z.ID, &z.EventID, &z.Name, &z.Capacity, &z.Held, &z.Confirmed)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) || pgCode(err) == invalidTextRepCode {
				return domain.ErrZoneNotFound
			}
			return errors.Wrap(err, "select zone for update")
		}

		if err := fn(&z); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			UPDATE zones SET capacity = $2, held = $3, confirmed = $4 WHERE id = $1
		`, z.ID, z.Capacity, z.Held, z.Confirmed); err != nil {
			return errors.Wrap(err, "update zone counters")
		}
		out = z
		return nil
	})
	return out, err
}

func (r *Repository) CreateHold(ctx context.Context, h domain.Hold) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO holds (id, event_id, zone_id, quantity, status, idempotency_key, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, h.ID, h.EventID, h.ZoneID, h.Quantity, h.Status, h.IdempotencyKey, h.CreatedAt, h.ExpiresAt)
	if err != nil {
		switch pgCode(err) {
		case uniqueViolationCode:
			return domain.ErrIdempotencyConflict
		case invalidTextRepCode:
			return domain.ErrZoneNotFound
		}
		return errors.Wrap(err, "insert hold")
	}
	return nil
}

func (r *Repository) GetHold(ctx context.Context, holdID string) (domain.Hold, error) {
	var h domain.Hold
	err := r.pool.QueryRow(ctx, `
		SELECT id, event_id, zone_id, quantity, status, idempotency_key, created_at, expires_at
		FROM holds WHERE id = $1
	`, holdID).Scan(&h.ID, &h.EventID, &h.ZoneID, &h.Quantity, &h.Status, &h.IdempotencyKey, &h.CreatedAt, &h.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || pgCode(err) == invalidTextRepCode {
			return domain.Hold{}, domain.ErrHoldNotFound
		}
		return domain.Hold{}, errors.Wrap(err, "select hold")
	}
	return h, nil
}

// ClaimTransition locks the hold row and applies the single terminal
// check-and-set shared by confirm, release and the sweeper.
func (r *Repository) ClaimTransition(ctx context.Context, holdID string, to domain.HoldStatus, now time.Time) (domain.Hold, error) {
	var out domain.Hold
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		var h domain.Hold
		err := tx.QueryRow(ctx, `
			SELECT id, event_id, zone_id, quantity, status, idempotency_key, created_at, expires_at
			FROM holds WHERE id = $1 FOR UPDATE
		`, holdID).Scan(&h.ID, &h.EventID, &h.ZoneID, &h.Quantity, &h.Status, &h.IdempotencyKey, &h.CreatedAt, &h.ExpiresAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) || pgCode(err) == invalidTextRepCode {
				return domain.ErrHoldNotFound
			}
			return errors.Wrap(err, "select hold for update")
		}

		switch h.Status {
		case domain.HoldStatusConfirmed:
			return domain.ErrAlreadyConfirmed
		case domain.HoldStatusExpired:
			return domain.ErrHoldExpired
		case domain.HoldStatusReleased:
			return domain.ErrInvalidState
		}

		switch to {
		case domain.HoldStatusConfirmed:
			if !h.ExpiresAt.After(now) {
				return domain.ErrHoldExpired
			}
		case domain.HoldStatusExpired:
			if h.ExpiresAt.After(now) {
				return domain.ErrInvalidState
			}
		case domain.HoldStatusReleased:
		default:
			return domain.ErrInvalidState
		}

		if _, err := tx.Exec(ctx, `
			UPDATE holds SET status = $2 WHERE id = $1
		`, h.ID, to); err != nil {
			return errors.Wrap(err, "update hold status")
		}
		h.Status = to
		out = h
		return nil
	})
	return out, err
}

// RevertTransition restores a hold to active, provided it still carries the
// terminal status the caller claimed. Only the claim owner calls this, to
// back out a claim whose counter movement could not be applied.
func (r *Repository) RevertTransition(ctx context.Context, holdID string, from domain.HoldStatus) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE holds SET status = 'active' WHERE id = $1 AND status = $2
	`, holdID, from)
	if err != nil {
		return errors.Wrap(err, "revert hold status")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidState
	}
	return nil
}

func (r *Repository) ListExpired(ctx context.Context, now time.Time, limit int) ([]domain.Hold, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, event_id, zone_id, quantity, status, idempotency_key, created_at, expires_at
		FROM holds WHERE status = 'active' AND expires_at <= $1
		ORDER BY expires_at LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, errors.Wrap(err, "select expired holds")
	}
	defer rows.Close()

	var holds []domain.Hold
	for rows.Next() {
		var h domain.Hold
		if err := rows.Scan(&h.ID, &h.EventID, &h.ZoneID, &h.Quantity, &h.Status, &h.IdempotencyKey, &h.CreatedAt, &h.ExpiresAt); err != nil {
			return nil, errors.Wrap(err, "scan expired hold")
		}
		holds = append(holds, h)
	}
	return holds, rows.Err()
}
