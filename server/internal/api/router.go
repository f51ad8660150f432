package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/lanfleet/lanfleet/server/internal/controller"
	"github.com/lanfleet/lanfleet/server/internal/eventstream"
)

// RouterConfig holds all dependencies needed to build the HTTP router.
// It is populated in main.go after all components are initialized and
// passed to NewRouter as a single struct to keep the constructor signature
// manageable as the number of dependencies grows.
type RouterConfig struct {
	Manager *controller.Manager
	Hub     *eventstream.Hub
	Logger  *zap.Logger
}

// NewRouter builds and returns the fully configured Chi router. All routes
// are registered under /api/v1; the event stream is mounted at /events.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)

	clientHandler := NewClientHandler(cfg.Manager, cfg.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/clients", clientHandler.List)
		r.Get("/clients/{id}", clientHandler.GetByID)
		r.Post("/clients/{id}/sysinfo", clientHandler.RequestSysInfo)
		r.Post("/clients/{id}/software", clientHandler.RequestSoftware)
		r.Post("/clients/{id}/install", clientHandler.Install)
		r.Post("/clients/{id}/uninstall", clientHandler.Uninstall)
	})

	r.Get("/events", eventstream.ServeHTTP(cfg.Hub, cfg.Logger))

	return r
}
