package domain

import "errors"

var (
	ErrEventNotFound          = errors.New("event not found")
	ErrZoneNotFound           = errors.New("zone not found")
	ErrZoneAlreadyExists      = errors.New("zone already exists")
	ErrHoldNotFound           = errors.New("hold not found")
	ErrEventNameRequired      = errors.New("event name required")
	ErrZoneNameRequired       = errors.New("zone name required")
	ErrInvalidCapacity        = errors.New("invalid capacity")
	ErrInvalidQuantity        = errors.New("invalid quantity")
	ErrIdempotencyKeyRequired = errors.New("idempotency key required")
	ErrIdempotencyConflict    = errors.New("idempotency conflict")
	ErrCapacityExceeded       = errors.New("capacity exceeded")
	ErrHoldExpired            = errors.New("hold expired")
	ErrAlreadyConfirmed       = errors.New("hold already confirmed")
	ErrInvalidState           = errors.New("invalid hold state")
	ErrSerializationFailure   = errors.New("serialization failure")
	ErrUnavailable            = errors.New("store unavailable")
)

// Deterministic reports whether the error is a business-rule outcome that a
// retry with identical inputs would reproduce. Deterministic failures are
// recorded as idempotent outcomes; transient store failures are not, so a
// retried key re-executes.
func Deterministic(err error) bool {
	switch {
	case errors.Is(err, ErrCapacityExceeded),
		errors.Is(err, ErrHoldExpired),
		errors.Is(err, ErrAlreadyConfirmed),
		errors.Is(err, ErrInvalidState):
		return true
	}
	return false
}

// Transient reports whether the engine may transparently retry the operation.
func Transient(err error) bool {
	return errors.Is(err, ErrSerializationFailure) || errors.Is(err, ErrUnavailable)
}

var errorCodes = map[string]error{
	"capacity_exceeded":      ErrCapacityExceeded,
	"hold_expired":           ErrHoldExpired,
	"hold_already_confirmed": ErrAlreadyConfirmed,
	"invalid_hold_state":     ErrInvalidState,
}

// ErrorCode returns the stable wire code for a deterministic error, or "".
func ErrorCode(err error) string {
	for code, e := range errorCodes {
		if errors.Is(err, e) {
			return code
		}
	}
	return ""
}

// ErrorFromCode is the inverse of ErrorCode for stored idempotent outcomes.
func ErrorFromCode(code string) error {
	if err, ok := errorCodes[code]; ok {
		return err
	}
	return nil
}
