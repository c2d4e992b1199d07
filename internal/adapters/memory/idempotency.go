package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ticketforge/hold-engine/internal/idempotency"
)

// IdempotencyStore is a mutex-guarded record map. Reserve is putIfAbsent
// under the lock, so concurrent racers for a fresh key see one winner.
type IdempotencyStore struct {
	mu        sync.Mutex
	records   map[string]idempotency.Record
	retention time.Duration
}

func NewIdempotencyStore(retention time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		records:   make(map[string]idempotency.Record),
		retention: retention,
	}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (*idempotency.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *IdempotencyStore) Reserve(ctx context.Context, key, fingerprint string, now time.Time) (*idempotency.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[key]; ok {
		return &rec, false, nil
	}
	rec := idempotency.Record{
		Key:         key,
		Fingerprint: fingerprint,
		CreatedAt:   now,
	}
	s.records[key] = rec
	return &rec, true, nil
}

func (s *IdempotencyStore) Complete(ctx context.Context, key string, out idempotency.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return nil
	}
	rec.Done = true
	rec.Outcome = out
	s.records[key] = rec
	return nil
}

func (s *IdempotencyStore) Forget(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

// GC drops records older than the retention window. Terminal holds are
// unaffected; only the replay window closes.
func (s *IdempotencyStore) GC(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key, rec := range s.records {
		if now.Sub(rec.CreatedAt) > s.retention {
			delete(s.records, key)
			n++
		}
	}
	return n
}
