package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dandantas/pulse/pkg/middleware"
)

// Router handles HTTP routing
type Router struct {
	monitorHandler *MonitorHandler
	badgeHandler   *BadgeHandler
	statsHandler   *StatsHandler
	healthHandler  *HealthHandler
	corsConfig     middleware.CORSConfig
}

// NewRouter creates a new router
func NewRouter(
	monitorHandler *MonitorHandler,
	badgeHandler *BadgeHandler,
	statsHandler *StatsHandler,
	healthHandler *HealthHandler,
	corsConfig middleware.CORSConfig,
) *Router {
	return &Router{
		monitorHandler: monitorHandler,
		badgeHandler:   badgeHandler,
		statsHandler:   statsHandler,
		healthHandler:  healthHandler,
		corsConfig:     corsConfig,
	}
}

// Handler returns the configured HTTP handler with middleware
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.CorrelationID)
	r.Use(middleware.Logging)
	r.Use(middleware.Recovery)
	r.Use(middleware.CORS(rt.corsConfig))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/health", rt.healthHandler.Health)
	r.Get("/ready", rt.healthHandler.Ready)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/stats", rt.statsHandler.Get)
		r.Get("/badge/{id}", rt.badgeHandler.Get)

		r.Post("/monitors", rt.monitorHandler.Create)
		r.Route("/monitors/{id}", func(r chi.Router) {
			r.Get("/", rt.monitorHandler.Get)
			r.Post("/trigger", rt.monitorHandler.Trigger)
			r.Get("/logs", rt.monitorHandler.Logs)
		})
	})

	return r
}
