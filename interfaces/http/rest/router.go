package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"thoughtgraph/infrastructure/config"
	"thoughtgraph/infrastructure/persistence/file"
	"thoughtgraph/interfaces/http/rest/handlers"
	"thoughtgraph/interfaces/http/rest/middleware"
)

// Router creates and configures the HTTP router.
type Router struct {
	cfg      *config.Config
	store    *file.Store
	logger   *zap.Logger
	registry *prometheus.Registry
}

// NewRouter creates a new router instance.
func NewRouter(cfg *config.Config, store *file.Store, logger *zap.Logger) *Router {
	return &Router{
		cfg:      cfg,
		store:    store,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}
}

// Setup configures all routes and middleware.
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.cfg.EnableMetrics {
		metrics := middleware.NewHTTPMetrics(rt.registry)
		router.Use(metrics.Middleware)
		router.Method(http.MethodGet, "/metrics",
			promhttp.HandlerFor(rt.registry, promhttp.HandlerOpts{}))
	}

	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			MaxAge:         300,
		}))
	}

	router.Get("/health", rt.healthCheck)

	router.Route("/api", func(r chi.Router) {
		thoughtHandler := handlers.NewThoughtHandler(rt.store, rt.logger)
		r.Get("/thoughts", thoughtHandler.GetThoughts)
		r.Post("/thoughts", thoughtHandler.SaveThoughts)
		r.Get("/status", thoughtHandler.Status)
	})

	return router
}

// healthCheck handles health check requests.
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
