// Package memory is the in-process store used in dev mode and by the engine
// tests. Zone counters live in an arena keyed by zone id, each entry guarded
// by its own mutex; holds carry a per-entry lock for claim transitions. There
// is no global lock on the hot paths.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ticketforge/hold-engine/internal/domain"
)

type zoneEntry struct {
	mu sync.Mutex
	z  domain.Zone
}

type holdEntry struct {
	mu sync.Mutex
	h  domain.Hold
}

type Store struct {
	mu     sync.RWMutex // guards the maps, not the entries
	events map[string]domain.Event
	order  []string // event ids in creation order
	zones  map[string]*zoneEntry
	holds  map[string]*holdEntry
}

func NewStore() *Store {
	return &Store{
		events: make(map[string]domain.Event),
		zones:  make(map[string]*zoneEntry),
		holds:  make(map[string]*holdEntry),
	}
}

// ApplyZone implements ledger.ZoneStore: fn runs under the zone's mutex.
func (s *Store) ApplyZone(ctx context.Context, zoneID string, fn func(z *domain.Zone) error) (domain.Zone, error) {
	s.mu.RLock()
	entry, ok := s.zones[zoneID]
	s.mu.RUnlock()
	if !ok {
		return domain.Zone{}, domain.ErrZoneNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	z := entry.z
	if err := fn(&z); err != nil {
		return domain.Zone{}, err
	}
	entry.z = z
	return z, nil
}

func (s *Store) GetZone(ctx context.Context, zoneID string) (domain.Zone, error) {
	s.mu.RLock()
	entry, ok := s.zones[zoneID]
	s.mu.RUnlock()
	if !ok {
		return domain.Zone{}, domain.ErrZoneNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.z, nil
}

func (s *Store) CreateHold(ctx context.Context, h domain.Hold) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.holds[h.ID]; ok {
		return domain.ErrIdempotencyConflict
	}
	s.holds[h.ID] = &holdEntry{h: h}
	return nil
}

func (s *Store) GetHold(ctx context.Context, holdID string) (domain.Hold, error) {
	s.mu.RLock()
	entry, ok := s.holds[holdID]
	s.mu.RUnlock()
	if !ok {
		return domain.Hold{}, domain.ErrHoldNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.h, nil
}

// ClaimTransition atomically moves an active hold to a terminal status.
// Exactly one of the racing confirm/expire/release callers wins; the rest
// observe the state the winner left behind. Confirmation requires the hold to
// be unexpired at claim time; the boundary instant goes to expiry.
func (s *Store) ClaimTransition(ctx context.Context, holdID string, to domain.HoldStatus, now time.Time) (domain.Hold, error) {
	s.mu.RLock()
	entry, ok := s.holds[holdID]
	s.mu.RUnlock()
	if !ok {
		return domain.Hold{}, domain.ErrHoldNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	switch entry.h.Status {
	case domain.HoldStatusConfirmed:
		return domain.Hold{}, domain.ErrAlreadyConfirmed
	case domain.HoldStatusExpired:
		return domain.Hold{}, domain.ErrHoldExpired
	case domain.HoldStatusReleased:
		return domain.Hold{}, domain.ErrInvalidState
	}

	switch to {
	case domain.HoldStatusConfirmed:
		if !entry.h.ExpiresAt.After(now) {
			return domain.Hold{}, domain.ErrHoldExpired
		}
	case domain.HoldStatusExpired:
		if entry.h.ExpiresAt.After(now) {
			return domain.Hold{}, domain.ErrInvalidState
		}
	case domain.HoldStatusReleased:
		// an active hold may always be released
	default:
		return domain.Hold{}, domain.ErrInvalidState
	}

	entry.h.Status = to
	return entry.h, nil
}

// RevertTransition restores a hold to active, provided it still carries the
// terminal status the caller claimed. Only the claim owner calls this, to
// back out a claim whose counter movement could not be applied.
func (s *Store) RevertTransition(ctx context.Context, holdID string, from domain.HoldStatus) error {
	s.mu.RLock()
	entry, ok := s.holds[holdID]
	s.mu.RUnlock()
	if !ok {
		return domain.ErrHoldNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.h.Status != from {
		return domain.ErrInvalidState
	}
	entry.h.Status = domain.HoldStatusActive
	return nil
}

func (s *Store) ListExpired(ctx context.Context, now time.Time, limit int) ([]domain.Hold, error) {
	s.mu.RLock()
	entries := make([]*holdEntry, 0, len(s.holds))
	for _, e := range s.holds {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	var due []domain.Hold
	for _, e := range entries {
		e.mu.Lock()
		if e.h.Status == domain.HoldStatusActive && !e.h.ExpiresAt.After(now) {
			due = append(due, e.h)
		}
		e.mu.Unlock()
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ExpiresAt.Before(due[j].ExpiresAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}
