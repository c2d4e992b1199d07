// Package catalog is the admin surface: events and zones. Zone counters are
// owned by the ledger; this package only creates and lists.
package catalog

import (
	"context"
	"time"

	"github.com/ticketforge/hold-engine/internal/clock"
	"github.com/ticketforge/hold-engine/internal/domain"
	"github.com/ticketforge/hold-engine/internal/ledger"
)

type Store interface {
	CreateEvent(ctx context.Context, event domain.Event) error
	GetEvent(ctx context.Context, eventID string) (domain.Event, error)
	ListEvents(ctx context.Context) ([]domain.Event, error)
	CreateZone(ctx context.Context, zone domain.Zone) error
	GetZone(ctx context.Context, zoneID string) (domain.Zone, error)
	ListZonesByEvent(ctx context.Context, eventID string) ([]domain.Zone, error)
}

type Service struct {
	store  Store
	ledger *ledger.Ledger
	clock  clock.Clock
}

func NewService(store Store, led *ledger.Ledger, clk clock.Clock) *Service {
	return &Service{store: store, ledger: led, clock: clk}
}

type CreateEventInput struct {
	Name     string
	StartsAt *time.Time
}

func (s *Service) CreateEvent(ctx context.Context, in CreateEventInput) (domain.Event, error) {
	if in.Name == "" {
		return domain.Event{}, domain.ErrEventNameRequired
	}
	startsAt := s.clock.Now()
	if in.StartsAt != nil {
		startsAt = *in.StartsAt
	}

	event := domain.NewEvent(in.Name, startsAt)
	if err := s.store.CreateEvent(ctx, event); err != nil {
		return domain.Event{}, err
	}
	return event, nil
}

func (s *Service) ListEvents(ctx context.Context) ([]domain.Event, error) {
	return s.store.ListEvents(ctx)
}

type CreateZoneInput struct {
	EventID  string
	Name     string
	Capacity int
}

func (s *Service) CreateZone(ctx context.Context, in CreateZoneInput) (domain.Zone, error) {
	if in.EventID == "" {
		return domain.Zone{}, domain.ErrEventNotFound
	}
	if in.Name == "" {
		return domain.Zone{}, domain.ErrZoneNameRequired
	}
	if in.Capacity < 0 {
		return domain.Zone{}, domain.ErrInvalidCapacity
	}
	if _, err := s.store.GetEvent(ctx, in.EventID); err != nil {
		return domain.Zone{}, err
	}

	zone := domain.NewZone(in.EventID, in.Name, in.Capacity)
	if err := s.store.CreateZone(ctx, zone); err != nil {
		return domain.Zone{}, err
	}
	return zone, nil
}

func (s *Service) ListZones(ctx context.Context, eventID string) ([]domain.Zone, error) {
	if eventID == "" {
		return nil, domain.ErrEventNotFound
	}
	return s.store.ListZonesByEvent(ctx, eventID)
}

// ResizeZone sets a new capacity. Shrinking below the committed quantity
// (held + confirmed) is rejected.
func (s *Service) ResizeZone(ctx context.Context, eventID, zoneID string, capacity int) (domain.Zone, error) {
	if capacity < 0 {
		return domain.Zone{}, domain.ErrInvalidCapacity
	}
	z, err := s.store.GetZone(ctx, zoneID)
	if err != nil {
		return domain.Zone{}, err
	}
	if z.EventID != eventID {
		return domain.Zone{}, domain.ErrZoneNotFound
	}
	return s.ledger.Resize(ctx, zoneID, capacity)
}
