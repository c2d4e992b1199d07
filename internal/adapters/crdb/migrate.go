package crdb

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	starts_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS zones (
	id UUID PRIMARY KEY,
	event_id UUID NOT NULL REFERENCES events (id),
	name TEXT NOT NULL,
	capacity INT NOT NULL CHECK (capacity >= 0),
	held INT NOT NULL DEFAULT 0 CHECK (held >= 0),
	confirmed INT NOT NULL DEFAULT 0 CHECK (confirmed >= 0),
	CONSTRAINT zone_capacity_invariant CHECK (held + confirmed <= capacity),
	UNIQUE (event_id, name)
);

CREATE TABLE IF NOT EXISTS holds (
	id UUID PRIMARY KEY,
	event_id UUID NOT NULL,
	zone_id UUID NOT NULL REFERENCES zones (id),
	quantity INT NOT NULL CHECK (quantity > 0),
	status TEXT NOT NULL CHECK (status IN ('active', 'confirmed', 'expired', 'released')),
	idempotency_key TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	UNIQUE (zone_id, idempotency_key)
);

CREATE INDEX IF NOT EXISTS holds_due_idx ON holds (expires_at) WHERE status = 'active';

CREATE TABLE IF NOT EXISTS outbox (
	id UUID PRIMARY KEY,
	event_type TEXT NOT NULL,
	payload_json BYTEA NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	published_at TIMESTAMPTZ,
	status TEXT NOT NULL CHECK (status IN ('NEW', 'PUBLISHED')),
	dedupe_key TEXT NOT NULL
);
`

// Migrate creates the schema. The zone check constraint backs up the
// ledger's invariant at the storage layer.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return errors.Wrap(err, "apply schema")
	}
	return nil
}
