package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ticketforge/hold-engine/internal/adapters/memory"
	"github.com/ticketforge/hold-engine/internal/domain"
	"github.com/ticketforge/hold-engine/internal/ledger"
)

func newZone(t *testing.T, store *memory.Store, capacity int) domain.Zone {
	t.Helper()
	ctx := context.Background()

	event := domain.NewEvent("test event", time.Now())
	if err := store.CreateEvent(ctx, event); err != nil {
		t.Fatal(err)
	}
	zone := domain.NewZone(event.ID, "floor", capacity)
	if err := store.CreateZone(ctx, zone); err != nil {
		t.Fatal(err)
	}
	return zone
}

func TestLedger_TryReserve(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	led := ledger.New(store)
	zone := newZone(t, store, 10)

	held, err := led.TryReserve(ctx, zone.ID, 4)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if held != 4 {
		t.Errorf("expected held=4, got %d", held)
	}

	if _, err := led.TryReserve(ctx, zone.ID, 7); !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Errorf("expected ErrCapacityExceeded, got %v", err)
	}

	// A failed reservation must not partially reserve.
	z, err := store.GetZone(ctx, zone.ID)
	if err != nil {
		t.Fatal(err)
	}
	if z.Held != 4 {
		t.Errorf("expected held unchanged at 4, got %d", z.Held)
	}
}

func TestLedger_TryReserve_ZoneNotFound(t *testing.T) {
	led := ledger.New(memory.NewStore())
	if _, err := led.TryReserve(context.Background(), "missing", 1); !errors.Is(err, domain.ErrZoneNotFound) {
		t.Errorf("expected ErrZoneNotFound, got %v", err)
	}
}

func TestLedger_ConfirmAndReclaim(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	led := ledger.New(store)
	zone := newZone(t, store, 5)

	if _, err := led.TryReserve(ctx, zone.ID, 5); err != nil {
		t.Fatal(err)
	}
	if err := led.Confirm(ctx, zone.ID, 3); err != nil {
		t.Fatal(err)
	}
	if err := led.Reclaim(ctx, zone.ID, 2); err != nil {
		t.Fatal(err)
	}

	z, err := store.GetZone(ctx, zone.ID)
	if err != nil {
		t.Fatal(err)
	}
	if z.Held != 0 || z.Confirmed != 3 {
		t.Errorf("expected held=0 confirmed=3, got held=%d confirmed=%d", z.Held, z.Confirmed)
	}
	if z.Available() != 2 {
		t.Errorf("expected available=2, got %d", z.Available())
	}

	// Moving more than is held is a state error, not a silent underflow.
	if err := led.Confirm(ctx, zone.ID, 1); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}

func TestLedger_ConcurrentReservations(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	led := ledger.New(store)

	const capacity = 60
	const callers = 100
	zone := newZone(t, store, capacity)

	var g errgroup.Group
	results := make([]error, callers)
	for i := 0; i < callers; i++ {
		i := i
		g.Go(func() error {
			_, err := led.TryReserve(ctx, zone.ID, 1)
			results[i] = err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	var successes, exceeded int
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, domain.ErrCapacityExceeded):
			exceeded++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != capacity {
		t.Errorf("expected exactly %d successes, got %d", capacity, successes)
	}
	if exceeded != callers-capacity {
		t.Errorf("expected %d capacity failures, got %d", callers-capacity, exceeded)
	}

	z, err := store.GetZone(ctx, zone.ID)
	if err != nil {
		t.Fatal(err)
	}
	if z.Held != capacity {
		t.Errorf("expected held=%d, got %d", capacity, z.Held)
	}
	if z.Held+z.Confirmed > z.Capacity {
		t.Errorf("invariant violated: held=%d confirmed=%d capacity=%d", z.Held, z.Confirmed, z.Capacity)
	}
}

func TestLedger_Resize(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	led := ledger.New(store)
	zone := newZone(t, store, 10)

	if _, err := led.TryReserve(ctx, zone.ID, 6); err != nil {
		t.Fatal(err)
	}

	if _, err := led.Resize(ctx, zone.ID, 5); !errors.Is(err, domain.ErrInvalidCapacity) {
		t.Errorf("expected ErrInvalidCapacity shrinking below held, got %v", err)
	}

	z, err := led.Resize(ctx, zone.ID, 20)
	if err != nil {
		t.Fatal(err)
	}
	if z.Capacity != 20 {
		t.Errorf("expected capacity=20, got %d", z.Capacity)
	}
}
