package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ticketforge/hold-engine/internal/catalog"
	"github.com/ticketforge/hold-engine/internal/domain"
)

type eventResponse struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	StartsAt time.Time `json:"starts_at"`
}

type zoneResponse struct {
	ID        string `json:"id"`
	EventID   string `json:"event_id"`
	Name      string `json:"name"`
	Capacity  int    `json:"capacity"`
	Held      int    `json:"held"`
	Confirmed int    `json:"confirmed"`
	Available int    `json:"available"`
}

func toZoneResponse(z domain.Zone) zoneResponse {
	return zoneResponse{
		ID:        z.ID,
		EventID:   z.EventID,
		Name:      z.Name,
		Capacity:  z.Capacity,
		Held:      z.Held,
		Confirmed: z.Confirmed,
		Available: z.Available(),
	}
}

func (h *Handlers) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string     `json:"name"`
		StartsAt *time.Time `json:"starts_at"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	event, err := h.catalog.CreateEvent(r.Context(), catalog.CreateEventInput{
		Name:     req.Name,
		StartsAt: req.StartsAt,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, eventResponse{ID: event.ID, Name: event.Name, StartsAt: event.StartsAt})
}

func (h *Handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.catalog.ListEvents(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, eventResponse{ID: e.ID, Name: e.Name, StartsAt: e.StartsAt})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) CreateZone(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Capacity int    `json:"capacity"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	zone, err := h.catalog.CreateZone(r.Context(), catalog.CreateZoneInput{
		EventID:  chi.URLParam(r, "eventID"),
		Name:     req.Name,
		Capacity: req.Capacity,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toZoneResponse(zone))
}

func (h *Handlers) ListZones(w http.ResponseWriter, r *http.Request) {
	zones, err := h.catalog.ListZones(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]zoneResponse, 0, len(zones))
	for _, z := range zones {
		out = append(out, toZoneResponse(z))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) ResizeZone(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Capacity int `json:"capacity"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	zone, err := h.catalog.ResizeZone(r.Context(), chi.URLParam(r, "eventID"), chi.URLParam(r, "zoneID"), req.Capacity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toZoneResponse(zone))
}
