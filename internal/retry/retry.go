// Package retry bounds the engine's transparent retries of transient store
// failures. Deterministic business errors are returned immediately.
package retry

import (
	"context"
	"time"

	"github.com/ticketforge/hold-engine/internal/domain"
)

// Do runs fn up to attempts times with exponential backoff, retrying only
// errors the domain classifies as transient.
func Do(ctx context.Context, attempts int, base time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil || !domain.Transient(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(base << i):
		}
	}
	return err
}
