// Package api provides the HTTP API server and handlers for Shelfscout.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/shelfscout/shelfscout-server/internal/ratelimit"
	"github.com/shelfscout/shelfscout-server/internal/search"
	"github.com/shelfscout/shelfscout-server/internal/service"
	"github.com/shelfscout/shelfscout-server/internal/store"
)

// Services groups the business services the handlers depend on.
type Services struct {
	Recommendation *service.RecommendationService
	Preference     *service.PreferenceService
	SavedBook      *service.SavedBookService
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store       *store.Store
	services    *Services
	searchIndex *search.Index
	limiter     *ratelimit.Limiter
	router      *chi.Mux
	api         huma.API
	logger      *slog.Logger
}

// NewServer creates an HTTP server with all routes configured.
func NewServer(
	store *store.Store,
	services *Services,
	searchIndex *search.Index,
	limiter *ratelimit.Limiter,
	logger *slog.Logger,
) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Device-ID"},
		MaxAge:         300,
	}))

	s := &Server{
		store:       store,
		services:    services,
		searchIndex: searchIndex,
		limiter:     limiter,
		router:      router,
		api:         humachi.New(router, huma.DefaultConfig("Shelfscout API", "1.0.0")),
		logger:      logger,
	}

	s.router.Get("/health", s.handleHealthCheck)

	s.registerRecommendationRoutes()
	s.registerPreferenceRoutes()
	s.registerSavedBookRoutes()
	s.registerSearchRoutes()
	s.registerAdminRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}
