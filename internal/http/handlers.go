package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ticketforge/hold-engine/internal/catalog"
	"github.com/ticketforge/hold-engine/internal/domain"
	"github.com/ticketforge/hold-engine/internal/hold"
)

type CatalogService interface {
	CreateEvent(ctx context.Context, in catalog.CreateEventInput) (domain.Event, error)
	ListEvents(ctx context.Context) ([]domain.Event, error)
	CreateZone(ctx context.Context, in catalog.CreateZoneInput) (domain.Zone, error)
	ListZones(ctx context.Context, eventID string) ([]domain.Zone, error)
	ResizeZone(ctx context.Context, eventID, zoneID string, capacity int) (domain.Zone, error)
}

type HoldService interface {
	CreateHold(ctx context.Context, in hold.CreateHoldInput) (domain.Hold, error)
	Release(ctx context.Context, holdID string) (domain.Hold, error)
	GetHold(ctx context.Context, holdID string) (domain.Hold, error)
}

type ConfirmService interface {
	Confirm(ctx context.Context, holdID, idempotencyKey string) (domain.Hold, error)
}

type Handlers struct {
	catalog CatalogService
	holds   HoldService
	confirm ConfirmService
}

func NewHandlers(catalogSvc CatalogService, holds HoldService, confirm ConfirmService) *Handlers {
	return &Handlers{catalog: catalogSvc, holds: holds, confirm: confirm}
}

type holdResponse struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	ZoneID    string    `json:"zone_id"`
	Quantity  int       `json:"quantity"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func toHoldResponse(h domain.Hold) holdResponse {
	return holdResponse{
		ID:        h.ID,
		EventID:   h.EventID,
		ZoneID:    h.ZoneID,
		Quantity:  h.Quantity,
		Status:    string(h.Status),
		CreatedAt: h.CreatedAt,
		ExpiresAt: h.ExpiresAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type createHoldRequest struct {
	EventID  string `json:"event_id"`
	ZoneID   string `json:"zone_id"`
	Quantity int    `json:"quantity"`
	// The hold key travels in the body; the confirm key travels in the
	// Idempotency-Key header. The asymmetry is part of the public contract.
	IdempotencyKey string `json:"idempotency_key"`
}

func (h *Handlers) CreateHold(w http.ResponseWriter, r *http.Request) {
	var req createHoldRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	created, err := h.holds.CreateHold(r.Context(), hold.CreateHoldInput{
		EventID:        req.EventID,
		ZoneID:         req.ZoneID,
		Quantity:       req.Quantity,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toHoldResponse(created))
}

func (h *Handlers) GetHold(w http.ResponseWriter, r *http.Request) {
	found, err := h.holds.GetHold(r.Context(), chi.URLParam(r, "holdID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toHoldResponse(found))
}

func (h *Handlers) ConfirmHold(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get(idempotencyHeader)
	confirmed, err := h.confirm.Confirm(r.Context(), chi.URLParam(r, "holdID"), key)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toHoldResponse(confirmed))
}

func (h *Handlers) ReleaseHold(w http.ResponseWriter, r *http.Request) {
	released, err := h.holds.Release(r.Context(), chi.URLParam(r, "holdID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toHoldResponse(released))
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Ready"))
}
