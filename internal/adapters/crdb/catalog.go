package crdb

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"

	"github.com/ticketforge/hold-engine/internal/domain"
)

func (r *Repository) CreateEvent(ctx context.Context, event domain.Event) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO events (id, name, starts_at) VALUES ($1, $2, $3)
	`, event.ID, event.Name, event.StartsAt)
	if err != nil {
		return errors.Wrap(err, "insert event")
	}
	return nil
}

func (r *Repository) GetEvent(ctx context.Context, eventID string) (domain.Event, error) {
	var e domain.Event
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, starts_at FROM events WHERE id = $1
	`, eventID).Scan(&e.ID, &e.Name, &e.StartsAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || pgCode(err) == invalidTextRepCode {
			return domain.Event{}, domain.ErrEventNotFound
		}
		return domain.Event{}, errors.Wrap(err, "select event")
	}
	return e, nil
}

func (r *Repository) ListEvents(ctx context.Context) ([]domain.Event, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, starts_at FROM events ORDER BY created_at
	`)
	if err != nil {
		return nil, errors.Wrap(err, "select events")
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.StartsAt); err != nil {
			return nil, errors.Wrap(err, "scan event")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repository) CreateZone(ctx context.Context, zone domain.Zone) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO zones (id, event_id, name, capacity, held, confirmed)
		VALUES ($1, $2, $3, $4, 0, 0)
	`, zone.ID, zone.EventID, zone.Name, zone.Capacity)
	if err != nil {
		switch pgCode(err) {
		case uniqueViolationCode:
			return domain.ErrZoneAlreadyExists
		case foreignKeyViolationCode, invalidTextRepCode:
			return domain.ErrEventNotFound
		}
		return errors.Wrap(err, "insert zone")
	}
	return nil
}

func (r *Repository) GetZone(ctx context.Context, zoneID string) (domain.Zone, error) {
	var z domain.Zone
	err := r.pool.QueryRow(ctx, `
		SELECT id, event_id, name, capacity, held, confirmed FROM zones WHERE id = $1
	`, zoneID).Scan(&z.ID, &z.EventID, &z.Name, &z.Capacity, &z.Held, &z.Confirmed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || pgCode(err) == invalidTextRepCode {
			return domain.Zone{}, domain.ErrZoneNotFound
		}
		return domain.Zone{}, errors.Wrap(err, "select zone")
	}
	return z, nil
}

func (r *Repository) ListZonesByEvent(ctx context.Context, eventID string) ([]domain.Zone, error) {
	if _, err := r.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, event_id, name, capacity, held, confirmed
		FROM zones WHERE event_id = $1 ORDER BY name
	`, eventID)
	if err != nil {
		return nil, errors.Wrap(err, "select zones")
	}
	defer rows.Close()

	var out []domain.Zone
	for rows.Next() {
		var z domain.Zone
		if err := rows.Scan(&z.ID, &z.EventID, &z.Name, &z.Capacity, &z.Held, &z.Confirmed); err != nil {
			return nil, errors.Wrap(err, "scan zone")
		}
		out = append(out, z)
	}
	return out, rows.Err()
}
