// Package api provides the HTTP API for FareFuse.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/farefuse/farefuse/internal/api/handler"
	"github.com/farefuse/farefuse/internal/api/middleware"
	"github.com/farefuse/farefuse/internal/api/response"
	"github.com/farefuse/farefuse/internal/auth"
	"github.com/farefuse/farefuse/internal/featureflags"
	"github.com/farefuse/farefuse/internal/location"
	"github.com/farefuse/farefuse/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	// Searcher runs searches. Required.
	Searcher handler.Searcher

	// Registry lists searchable cities (default: location.DefaultRegistry()).
	Registry *location.Registry

	// AuthService issues guest tokens. Nil leaves auth endpoints as placeholders.
	AuthService *auth.Service

	// FeatureFlagService reports runtime switches. Nil reports defaults.
	FeatureFlagService *featureflags.Service

	// Monitor reports outbound provider health. Optional.
	Monitor *resilience.Monitor

	// CORSAllowedOrigins lists browser origins. Empty or "*" allows any.
	CORSAllowedOrigins []string

	// RequireTLS rejects plain-HTTP requests behind a load balancer.
	RequireTLS bool

	// OpsAPIKey guards mutating ops endpoints. Empty disables them.
	OpsAPIKey string
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "farefuse-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.Session(cfg.AuthService))

	opsConfig := handler.OpsConfig{
		Version:  cfg.Version,
		Registry: cfg.Registry,
		Monitor:  cfg.Monitor,
	}
	if cfg.FeatureFlagService != nil {
		opsConfig.Flags = cfg.FeatureFlagService
	}

	searchHandler := handler.NewSearchHandler(cfg.Searcher, cfg.Logger)
	opsHandler := handler.NewOpsHandler(opsConfig)
	authHandler := handler.NewAuthHandler(cfg.AuthService, cfg.Logger)
	featureFlagsHandler := handler.NewFeatureFlagsHandler(cfg.FeatureFlagService)

	authRateLimit := middleware.RateLimitByIP(middleware.AuthRateLimit)
	searchRateLimit := middleware.RateLimitBySession(middleware.SearchRateLimit)
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, r, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, r, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// Search fans out to many oracle calls - strict rate limiting, shared
	// by the bare path and the /api path.
	searchRoute := chi.Chain(searchRateLimit, middleware.RequireJSON).HandlerFunc(searchHandler.Search)
	r.Method(http.MethodPost, "/search", searchRoute)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/search", searchRoute)

		r.Get("/health", opsHandler.HealthCheck)
		r.With(standardRateLimit).Get("/locations", opsHandler.ListLocations)

		r.Route("/auth", func(r chi.Router) {
			r.Use(authRateLimit)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Get("/check", authHandler.Check)
		})

		r.Route("/ops", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/status", opsHandler.SystemStatus)
			r.Get("/flags", featureFlagsHandler.ListFeatureFlags)
			r.With(middleware.RequireOpsKey(cfg.OpsAPIKey)).Post("/flags/invalidate", featureFlagsHandler.InvalidateCache)
		})
	})

	return r
}
