package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ticketforge/hold-engine/internal/domain"
)

const (
	codeInvalidRequestBody   = "invalid_request_body"
	codeEventNameRequired    = "event_name_required"
	codeZoneNameRequired     = "zone_name_required"
	codeInvalidCapacity      = "invalid_capacity"
	codeInvalidQuantity      = "invalid_quantity"
	codeIdempotencyRequired  = "idempotency_key_required"
	codeIdempotencyConflict  = "idempotency_conflict"
	codeCapacityExceeded     = "capacity_exceeded"
	codeEventNotFound        = "event_not_found"
	codeZoneNotFound         = "zone_not_found"
	codeZoneAlreadyExists    = "zone_already_exists"
	codeHoldNotFound         = "hold_not_found"
	codeHoldExpired          = "hold_expired"
	codeHoldConfirmed        = "hold_already_confirmed"
	codeInvalidHoldState     = "invalid_hold_state"
	codeRateLimited          = "rate_limited"
	codeStoreUnavailable     = "store_unavailable"
	codeInternalError        = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	payload, err := json.Marshal(errorResponse{Error: msg, Code: code})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeDomainError maps engine errors onto the stable wire taxonomy.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrEventNameRequired):
		writeError(w, http.StatusBadRequest, codeEventNameRequired, err.Error())
	case errors.Is(err, domain.ErrZoneNameRequired):
		writeError(w, http.StatusBadRequest, codeZoneNameRequired, err.Error())
	case errors.Is(err, domain.ErrInvalidCapacity):
		writeError(w, http.StatusBadRequest, codeInvalidCapacity, err.Error())
	case errors.Is(err, domain.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error())
	case errors.Is(err, domain.ErrIdempotencyKeyRequired):
		writeError(w, http.StatusBadRequest, codeIdempotencyRequired, err.Error())
	case errors.Is(err, domain.ErrEventNotFound):
		writeError(w, http.StatusNotFound, codeEventNotFound, err.Error())
	case errors.Is(err, domain.ErrZoneNotFound):
		writeError(w, http.StatusNotFound, codeZoneNotFound, err.Error())
	case errors.Is(err, domain.ErrHoldNotFound):
		writeError(w, http.StatusNotFound, codeHoldNotFound, err.Error())
	case errors.Is(err, domain.ErrZoneAlreadyExists):
		writeError(w, http.StatusConflict, codeZoneAlreadyExists, err.Error())
	case errors.Is(err, domain.ErrIdempotencyConflict):
		writeError(w, http.StatusConflict, codeIdempotencyConflict, err.Error())
	case errors.Is(err, domain.ErrCapacityExceeded):
		writeError(w, http.StatusConflict, codeCapacityExceeded, err.Error())
	case errors.Is(err, domain.ErrHoldExpired):
		writeError(w, http.StatusConflict, codeHoldExpired, err.Error())
	case errors.Is(err, domain.ErrAlreadyConfirmed):
		writeError(w, http.StatusConflict, codeHoldConfirmed, err.Error())
	case errors.Is(err, domain.ErrInvalidState):
		writeError(w, http.StatusConflict, codeInvalidHoldState, err.Error())
	case errors.Is(err, domain.ErrUnavailable), errors.Is(err, domain.ErrSerializationFailure):
		writeError(w, http.StatusServiceUnavailable, codeStoreUnavailable, "store unavailable, retry later")
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
