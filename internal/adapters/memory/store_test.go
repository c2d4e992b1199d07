package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ticketforge/hold-engine/internal/domain"
)

func seedHold(t *testing.T, s *Store, expiresIn time.Duration) domain.Hold {
	t.Helper()
	ctx := context.Background()
	h := domain.NewHold("ev", "zn", 2, "key", time.Now(), expiresIn)
	if err := s.CreateHold(ctx, h); err != nil {
		t.Fatal(err)
	}
	return h
}

func TestClaimTransition_Confirm(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	h := seedHold(t, s, time.Minute)

	got, err := s.ClaimTransition(ctx, h.ID, domain.HoldStatusConfirmed, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.HoldStatusConfirmed {
		t.Errorf("status = %s, want confirmed", got.Status)
	}

	// Second confirm fails, the hold is already terminal.
	if _, err := s.ClaimTransition(ctx, h.ID, domain.HoldStatusConfirmed, time.Now()); !errors.Is(err, domain.ErrAlreadyConfirmed) {
		t.Errorf("expected ErrAlreadyConfirmed, got %v", err)
	}
}

func TestClaimTransition_ConfirmPastDeadline(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	h := seedHold(t, s, time.Minute)

	// At exactly expires_at the tie goes to expiry.
	if _, err := s.ClaimTransition(ctx, h.ID, domain.HoldStatusConfirmed, h.ExpiresAt); !errors.Is(err, domain.ErrHoldExpired) {
		t.Errorf("expected ErrHoldExpired at the deadline, got %v", err)
	}
	if _, err := s.ClaimTransition(ctx, h.ID, domain.HoldStatusConfirmed, h.ExpiresAt.Add(time.Second)); !errors.Is(err, domain.ErrHoldExpired) {
		t.Errorf("expected ErrHoldExpired past the deadline, got %v", err)
	}

	// The hold itself is untouched, only the sweeper marks it expired.
	got, err := s.GetHold(ctx, h.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.HoldStatusActive {
		t.Errorf("status = %s, want active", got.Status)
	}
}

func TestClaimTransition_ExpireRequiresDeadline(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	h := seedHold(t, s, time.Minute)

	if _, err := s.ClaimTransition(ctx, h.ID, domain.HoldStatusExpired, time.Now()); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState before the deadline, got %v", err)
	}

	got, err := s.ClaimTransition(ctx, h.ID, domain.HoldStatusExpired, h.ExpiresAt)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.HoldStatusExpired {
		t.Errorf("status = %s, want expired", got.Status)
	}
}

func TestClaimTransition_ExactlyOneWinner(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	h := seedHold(t, s, time.Minute)

	const racers = 50
	wins := make(chan domain.HoldStatus, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		to := domain.HoldStatusConfirmed
		if i%2 == 0 {
			to = domain.HoldStatusReleased
		}
		wg.Add(1)
		go func(to domain.HoldStatus) {
			defer wg.Done()
			if _, err := s.ClaimTransition(ctx, h.ID, to, time.Now()); err == nil {
				wins <- to
			}
		}(to)
	}
	wg.Wait()
	close(wins)

	var winners []domain.HoldStatus
	for w := range wins {
		winners = append(winners, w)
	}
	if len(winners) != 1 {
		t.Fatalf("expected exactly one winning transition, got %d", len(winners))
	}

	got, err := s.GetHold(ctx, h.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != winners[0] {
		t.Errorf("stored status %s does not match winner %s", got.Status, winners[0])
	}
}

func TestListExpired(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	now := time.Now()
	due1 := seedHold(t, s, 10*time.Millisecond)
	due2 := seedHold(t, s, 20*time.Millisecond)
	live := seedHold(t, s, time.Hour)

	got, err := s.ListExpired(ctx, now.Add(time.Second), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 due holds, got %d", len(got))
	}
	if got[0].ID != due1.ID || got[1].ID != due2.ID {
		t.Error("due holds must come back ordered by deadline")
	}
	for _, h := range got {
		if h.ID == live.ID {
			t.Error("live hold must not be listed")
		}
	}

	// Limit caps the batch.
	got, err = s.ListExpired(ctx, now.Add(time.Second), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 hold with limit 1, got %d", len(got))
	}
}

func TestCatalog(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	ev := domain.NewEvent("show", time.Now())
	if err := s.CreateEvent(ctx, ev); err != nil {
		t.Fatal(err)
	}
	zn := domain.NewZone(ev.ID, "floor", 100)
	if err := s.CreateZone(ctx, zn); err != nil {
		t.Fatal(err)
	}

	// Duplicate name within the event is rejected.
	dup := domain.NewZone(ev.ID, "floor", 50)
	if err := s.CreateZone(ctx, dup); !errors.Is(err, domain.ErrZoneAlreadyExists) {
		t.Errorf("expected ErrZoneAlreadyExists, got %v", err)
	}

	// Unknown event is rejected.
	orphan := domain.NewZone("missing", "balcony", 10)
	if err := s.CreateZone(ctx, orphan); !errors.Is(err, domain.ErrEventNotFound) {
		t.Errorf("expected ErrEventNotFound, got %v", err)
	}

	zones, err := s.ListZonesByEvent(ctx, ev.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(zones) != 1 || zones[0].ID != zn.ID {
		t.Errorf("unexpected zone listing: %+v", zones)
	}
}

func TestRevertTransition(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	h := seedHold(t, s, time.Minute)

	if _, err := s.ClaimTransition(ctx, h.ID, domain.HoldStatusConfirmed, time.Now()); err != nil {
		t.Fatal(err)
	}

	// Reverting with a stale status is rejected.
	if err := s.RevertTransition(ctx, h.ID, domain.HoldStatusExpired); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("revert with wrong status: got %v", err)
	}
	if err := s.RevertTransition(ctx, h.ID, domain.HoldStatusConfirmed); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetHold(ctx, h.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.HoldStatusActive {
		t.Errorf("status after revert = %s, want active", got.Status)
	}

	// The hold is claimable again.
	if _, err := s.ClaimTransition(ctx, h.ID, domain.HoldStatusReleased, time.Now()); err != nil {
		t.Fatal(err)
	}

	if err := s.RevertTransition(ctx, "missing", domain.HoldStatusReleased); !errors.Is(err, domain.ErrHoldNotFound) {
		t.Errorf("revert of unknown hold: got %v", err)
	}
}
