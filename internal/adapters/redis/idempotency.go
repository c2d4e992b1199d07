package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ticketforge/hold-engine/internal/domain"
	"github.com/ticketforge/hold-engine/internal/idempotency"
)

const keyPrefix = "idemp:"

// IdempotencyStore keeps records as JSON values under a retention TTL.
// Reserve is SETNX, so racers for a fresh key observe a single winner;
// expiry doubles as the garbage collection of the retention window.
type IdempotencyStore struct {
	client    *redis.Client
	retention time.Duration
}

func NewIdempotencyStore(client *redis.Client, retention time.Duration) *IdempotencyStore {
	return &IdempotencyStore{client: client, retention: retention}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (*idempotency.Record, error) {
	val, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, domain.ErrUnavailable
	}
	var rec idempotency.Record
	if err := json.Unmarshal(val, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *IdempotencyStore) Reserve(ctx context.Context, key, fingerprint string, now time.Time) (*idempotency.Record, bool, error) {
	rec := idempotency.Record{
		Key:         key,
		Fingerprint: fingerprint,
		CreatedAt:   now,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, false, err
	}

	ok, err := s.client.SetNX(ctx, keyPrefix+key, data, s.retention).Result()
	if err != nil {
		return nil, false, domain.ErrUnavailable
	}
	if ok {
		return &rec, true, nil
	}

	existing, err := s.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		// The winner's record expired between SETNX and GET; treat as a
		// transient miss.
		return nil, false, domain.ErrUnavailable
	}
	return existing, false, nil
}

func (s *IdempotencyStore) Complete(ctx context.Context, key string, out idempotency.Outcome) error {
	existing, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}
	existing.Done = true
	existing.Outcome = out

	data, err := json.Marshal(existing)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, keyPrefix+key, data, redis.KeepTTL).Err(); err != nil {
		return domain.ErrUnavailable
	}
	return nil
}

func (s *IdempotencyStore) Forget(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return domain.ErrUnavailable
	}
	return nil
}
