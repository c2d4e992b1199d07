package memory

import (
	"context"

	"github.com/ticketforge/hold-engine/internal/domain"
)

func (s *Store) CreateEvent(ctx context.Context, event domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.ID] = event
	s.order = append(s.order, event.ID)
	return nil
}

func (s *Store) GetEvent(ctx context.Context, eventID string) (domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.events[eventID]
	if !ok {
		return domain.Event{}, domain.ErrEventNotFound
	}
	return event, nil
}

func (s *Store) ListEvents(ctx context.Context) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Event, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.events[id])
	}
	return out, nil
}

func (s *Store) CreateZone(ctx context.Context, zone domain.Zone) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[zone.EventID]; !ok {
		return domain.ErrEventNotFound
	}
	for _, entry := range s.zones {
		if entry.z.EventID == zone.EventID && entry.z.Name == zone.Name {
			return domain.ErrZoneAlreadyExists
		}
	}
	s.zones[zone.ID] = &zoneEntry{z: zone}
	return nil
}

func (s *Store) ListZonesByEvent(ctx context.Context, eventID string) ([]domain.Zone, error) {
	s.mu.RLock()
	if _, ok := s.events[eventID]; !ok {
		s.mu.RUnlock()
		return nil, domain.ErrEventNotFound
	}
	entries := make([]*zoneEntry, 0)
	for _, e := range s.zones {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	var out []domain.Zone
	for _, e := range entries {
		e.mu.Lock()
		if e.z.EventID == eventID {
			out = append(out, e.z)
		}
		e.mu.Unlock()
	}
	return out, nil
}
