// Package api provides the HTTP API for ChargeRoute.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/chargeroute/chargeroute/internal/api/handler"
	"github.com/chargeroute/chargeroute/internal/api/middleware"
	"github.com/chargeroute/chargeroute/internal/featureflags"
	"github.com/chargeroute/chargeroute/internal/station"
)

// RateLimits holds per-minute request limits per endpoint category.
// Zero values fall back to the middleware defaults.
type RateLimits struct {
	Auth      int
	Expensive int
	Standard  int
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	RateLimits  RateLimits

	// CookieSecure marks the session cookie Secure.
	CookieSecure bool
	RequireTLS   bool

	StationService     *station.Service
	Recommender        handler.Recommender
	DriverService      handler.DriverService
	TokenValidator     middleware.TokenValidator
	DirectionsService  handler.DirectionsService
	FeatureFlagService *featureflags.Service
	LiveFeed           handler.LiveFeed
	Ops                handler.OpsConfig
}

// NewRouter creates a new chi router with all API routes configured.
// Route groups whose service is nil are not mounted.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "chargeroute-api"
	}

	// Request IDs come first so every later layer can log them.
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.RequireJSON)

	if cfg.Ops.Flags == nil {
		cfg.Ops.Flags = cfg.FeatureFlagService
	}
	opsHandler := handler.NewOpsHandler(cfg.Ops)

	authMiddleware := middleware.Auth(cfg.TokenValidator)

	authRateLimit := middleware.RateLimitByIP(limitOrDefault(cfg.RateLimits.Auth, middleware.AuthRateLimit))
	expensiveRateLimit := middleware.RateLimitByIP(limitOrDefault(cfg.RateLimits.Expensive, middleware.ExpensiveRateLimit))
	standardLimit := limitOrDefault(cfg.RateLimits.Standard, middleware.StandardRateLimit)
	standardRateLimit := middleware.RateLimitByIP(standardLimit)
	driverRateLimit := middleware.RateLimitByDriver(standardLimit)

	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		if cfg.DriverService != nil {
			driverHandler := handler.NewDriverHandler(cfg.DriverService, cfg.CookieSecure)

			// Auth endpoints (public) - strict rate limiting
			r.Route("/auth", func(r chi.Router) {
				r.Use(authRateLimit)
				r.Post("/register", driverHandler.Register)
				r.Post("/login", driverHandler.Login)
				r.Post("/logout", driverHandler.Logout)
			})

			r.Route("/drivers/me", func(r chi.Router) {
				r.Use(authMiddleware)
				r.Use(driverRateLimit)
				r.Get("/", driverHandler.GetMe)
				r.Put("/location", driverHandler.UpdateLocation)
			})
		}

		r.Route("/stations", func(r chi.Router) {
			if cfg.Recommender != nil {
				recommendationHandler := handler.NewRecommendationHandler(cfg.Recommender)
				r.With(expensiveRateLimit).Post("/recommend", recommendationHandler.Recommend)
			}
			if cfg.LiveFeed != nil {
				var switches handler.LiveFeedSwitch
				if cfg.FeatureFlagService != nil {
					switches = cfg.FeatureFlagService
				}
				liveHandler := handler.NewLiveHandler(cfg.LiveFeed, switches)
				r.Get("/live", liveHandler.Subscribe)
			}
			if cfg.StationService == nil {
				return
			}

			stationHandler := handler.NewStationHandler(cfg.StationService)
			r.With(standardRateLimit).Get("/", stationHandler.ListStations)
			r.With(standardRateLimit).Get("/nearby", stationHandler.NearbyStations)
			r.With(authMiddleware).Post("/", stationHandler.CreateStation)
			r.Route("/{stationId}", func(r chi.Router) {
				r.With(standardRateLimit).Get("/", stationHandler.GetStation)
				r.With(authMiddleware).Put("/occupancy", stationHandler.UpdateOccupancy)
			})
		})

		if cfg.DirectionsService != nil {
			directionsHandler := handler.NewDirectionsHandler(cfg.DirectionsService)
			r.With(authMiddleware, driverRateLimit).Post("/directions", directionsHandler.GetDirections)
		}

		// Admin endpoints (authenticated) - for internal operations
		if cfg.FeatureFlagService != nil {
			featureFlagsHandler := handler.NewFeatureFlagsHandler(cfg.FeatureFlagService)
			r.Route("/admin/flags", func(r chi.Router) {
				r.Use(authMiddleware)
				r.Use(standardRateLimit)
				r.Get("/", featureFlagsHandler.ListFeatureFlags)
				r.Put("/", featureFlagsHandler.UpsertFeatureFlags)
				r.Post("/invalidate", featureFlagsHandler.InvalidateCache)
				r.Delete("/{flagKey}", featureFlagsHandler.ResetFeatureFlag)
			})
		}
	})

	return r
}

func limitOrDefault(perMinute int, def middleware.RateLimitConfig) middleware.RateLimitConfig {
	if perMinute <= 0 {
		return def
	}
	return middleware.PerMinute(perMinute)
}
