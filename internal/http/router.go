package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ticketforge/hold-engine/internal/observability"
	"github.com/ticketforge/hold-engine/internal/rateLimit"
)

func SetupRouter(h *Handlers, logger observability.Logger, rl *rateLimit.RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)
	r.Use(CORSMiddleware)
	r.Use(RateLimitMiddleware(rl))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/events", h.CreateEvent)
		r.Get("/events", h.ListEvents)
		r.Post("/events/{eventID}/zones", h.CreateZone)
		r.Get("/events/{eventID}/zones", h.ListZones)
		r.Patch("/events/{eventID}/zones/{zoneID}", h.ResizeZone)

		r.Post("/holds", h.CreateHold)
		r.Get("/holds/{holdID}", h.GetHold)
		r.With(RequireIdempotencyHeader).Post("/holds/{holdID}/confirm", h.ConfirmHold)
		r.Post("/holds/{holdID}/release", h.ReleaseHold)

		r.Get("/healthz", h.Healthz)
		r.Get("/readyz", h.Readyz)
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
