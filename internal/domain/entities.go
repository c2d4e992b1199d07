package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event is a ticketed happening that owns zero or more zones.
type Event struct {
	ID       string
	Name     string
	StartsAt time.Time
}

// Zone is a sellable area of an event with quantity-based inventory.
// Capacity is fixed at creation (resizing never shrinks below committed
// quantity). Held and Confirmed are the ledger counters and satisfy
// 0 <= Held+Confirmed <= Capacity at every observable point.
type Zone struct {
	ID        string
	EventID   string
	Name      string
	Capacity  int
	Held      int
	Confirmed int
}

// Available is the quantity still reservable in the zone.
func (z Zone) Available() int {
	return z.Capacity - z.Held - z.Confirmed
}

type HoldStatus string

const (
	HoldStatusActive    HoldStatus = "active"
	HoldStatusConfirmed HoldStatus = "confirmed"
	HoldStatusExpired   HoldStatus = "expired"
	HoldStatusReleased  HoldStatus = "released"
)

// Terminal reports whether the status admits no further transition.
func (s HoldStatus) Terminal() bool {
	return s != HoldStatusActive
}

// Hold is a time-bounded provisional reservation of quantity against a zone.
// Holds are never deleted; terminal holds remain as audit records.
type Hold struct {
	ID             string
	EventID        string
	ZoneID         string
	Quantity       int
	Status         HoldStatus
	IdempotencyKey string
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

func NewEvent(name string, startsAt time.Time) Event {
	return Event{
		ID:       uuid.NewString(),
		Name:     name,
		StartsAt: startsAt,
	}
}

func NewZone(eventID, name string, capacity int) Zone {
	return Zone{
		ID:       uuid.NewString(),
		EventID:  eventID,
		Name:     name,
		Capacity: capacity,
	}
}

func NewHold(eventID, zoneID string, quantity int, idempotencyKey string, now time.Time, ttl time.Duration) Hold {
	return Hold{
		ID:             uuid.NewString(),
		EventID:        eventID,
		ZoneID:         zoneID,
		Quantity:       quantity,
		Status:         HoldStatusActive,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
	}
}
