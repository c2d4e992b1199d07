// Package events carries hold lifecycle notifications out of the engine.
package events

import "context"

const (
	HoldCreated   = "hold.created"
	HoldConfirmed = "hold.confirmed"
	HoldReleased  = "hold.released"
	HoldExpired   = "hold.expired"
)

// Emitter publishes a lifecycle event. Emission failures must never fail the
// operation that produced them; callers log and continue.
type Emitter interface {
	Emit(ctx context.Context, eventType string, payload any) error
}

// Nop discards all events.
type Nop struct{}

func (Nop) Emit(context.Context, string, any) error { return nil }

// Multi fans out to several emitters, returning the first error.
type Multi []Emitter

func (m Multi) Emit(ctx context.Context, eventType string, payload any) error {
	var first error
	for _, e := range m {
		if err := e.Emit(ctx, eventType, payload); err != nil && first == nil {
			first = err
		}
	}
	return first
}
