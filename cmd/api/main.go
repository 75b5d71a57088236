// Package main provides the entrypoint for the ChargeRoute API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/chargeroute/chargeroute/internal/advisory/gemini"
	"github.com/chargeroute/chargeroute/internal/api"
	"github.com/chargeroute/chargeroute/internal/api/handler"
	"github.com/chargeroute/chargeroute/internal/api/middleware"
	"github.com/chargeroute/chargeroute/internal/config"
	"github.com/chargeroute/chargeroute/internal/directions"
	"github.com/chargeroute/chargeroute/internal/directions/olamaps"
	"github.com/chargeroute/chargeroute/internal/driver"
	"github.com/chargeroute/chargeroute/internal/featureflags"
	"github.com/chargeroute/chargeroute/internal/live"
	"github.com/chargeroute/chargeroute/internal/occupancy"
	"github.com/chargeroute/chargeroute/internal/provider/resilience"
	"github.com/chargeroute/chargeroute/internal/recommendation"
	"github.com/chargeroute/chargeroute/internal/station"
	"github.com/chargeroute/chargeroute/internal/store"
	"github.com/chargeroute/chargeroute/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// devJWTSecret signs tokens in development when JWT_SECRET is unset.
const devJWTSecret = "local-dev-signing-key-change-in-production"

func main() {
	const serviceName = "chargeroute-api"

	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}

	log := newLogger(cfg, serviceName)
	log.Info().
		Str("build_time", BuildTime).
		Str("environment", cfg.Server.Environment).
		Msg("starting ChargeRoute API")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Server.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SampleRatio:    cfg.Telemetry.SampleRatio,
		Logger:         log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()
	if cfg.Telemetry.Enabled {
		log.Info().
			Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	metrics, err := middleware.NewMetrics(nil)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}
	providerMetrics, err := middleware.NewProviderMetrics(nil)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize provider metrics")
	}

	stores, err := store.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.Store).Msg("failed to open stores")
	}
	defer stores.Close()

	// Stations
	stationService := station.NewService(station.ServiceConfig{
		Repository: stores.Stations,
		Logger:     log,
	})

	hub := live.NewHub(live.HubConfig{Logger: log})
	go hub.Run(ctx)
	stationService.Subscribe(hub)

	if cfg.Occupancy.InProcess {
		source, err := occupancy.OpenSource(ctx, cfg.Occupancy, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open occupancy source")
		}
		defer source.Close()

		ingester := occupancy.NewIngester(stationService, log)
		go func() {
			if err := source.Run(ctx, ingester.Handle); err != nil {
				log.Error().Err(err).Str("source", source.Name()).Msg("occupancy source stopped")
			}
		}()
		log.Info().Str("source", source.Name()).Msg("in-process occupancy ingestion started")
	}

	// Feature flags
	flagService := featureflags.NewService(featureflags.ServiceConfig{
		Repository: stores.Flags,
		Logger:     log,
		CacheTTL:   1 * time.Minute,
	})

	// Drivers
	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret = devJWTSecret
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}
	driverService := driver.NewService(driver.ServiceConfig{
		Repository: stores.Drivers,
		Tokens: driver.NewTokenManager(driver.TokenConfig{
			Secret: secret,
			TTL:    cfg.Auth.TokenTTL,
		}),
		Logger: log,
	})

	// Upstream providers
	registry := resilience.NewRegistry(log)

	var advisor recommendation.Advisor
	if cfg.Advisory.APIKey != "" {
		advisor = gemini.NewClient(gemini.ClientConfig{
			APIKey:   cfg.Advisory.APIKey,
			BaseURL:  cfg.Advisory.BaseURL,
			Model:    cfg.Advisory.Model,
			Timeout:  cfg.Advisory.Timeout,
			Registry: registry,
			Logger:   log,
		})
		log.Info().Str("model", cfg.Advisory.Model).Msg("advisory model configured")
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set - recommendations use ranked fallback only")
	}

	recommendationService := recommendation.NewService(recommendation.ServiceConfig{
		Stations:          stationService,
		Advisor:           advisor,
		Logger:            log,
		Metrics:           providerMetrics,
		Flags:             flagService,
		MaxSearchRadiusKm: cfg.Recommendation.MaxSearchRadiusKm,
		CandidateLimit:    cfg.Recommendation.CandidateLimit,
		AdvisoryTimeout:   cfg.Advisory.Timeout,
		DefaultTimezone:   cfg.Recommendation.DefaultTimezone,
	})

	var directionsService handler.DirectionsService
	if cfg.Directions.APIKey != "" {
		directionsService = directions.NewService(directions.ServiceConfig{
			Provider: olamaps.NewClient(olamaps.ClientConfig{
				APIKey:   cfg.Directions.APIKey,
				BaseURL:  cfg.Directions.BaseURL,
				Registry: registry,
				Logger:   log,
			}),
			Logger:   log,
			Metrics:  providerMetrics,
			CacheTTL: cfg.Directions.CacheTTL,
		})
	} else {
		log.Warn().Msg("OLA_MAPS_API_KEY not set - directions endpoint disabled")
	}

	checks := make([]handler.DependencyCheck, 0, len(stores.Checks))
	for _, c := range stores.Checks {
		checks = append(checks, handler.DependencyCheck{Name: c.Name, Check: c.Ping})
	}

	router := api.NewRouter(api.RouterConfig{
		Version:     Version,
		BuildTime:   BuildTime,
		Logger:      log,
		ServiceName: serviceName,
		Metrics:     metrics,
		RateLimits: api.RateLimits{
			Auth:      cfg.RateLimit.Auth,
			Expensive: cfg.RateLimit.Expensive,
			Standard:  cfg.RateLimit.Standard,
		},
		CookieSecure:       cfg.Auth.CookieSecure,
		RequireTLS:         cfg.Server.RequireTLS,
		StationService:     stationService,
		Recommender:        recommendationService,
		DriverService:      driverService,
		TokenValidator:     driverService,
		DirectionsService:  directionsService,
		FeatureFlagService: flagService,
		LiveFeed:           hub,
		Ops: handler.OpsConfig{
			Version:     Version,
			BuildTime:   BuildTime,
			Checks:      checks,
			Registry:    registry,
			LiveClients: hub.ClientCount,
		},
	})

	// WriteTimeout stays zero so websocket subscribers are not cut off;
	// handlers bound their own upstream calls.
	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func newLogger(cfg *config.Config, serviceName string) zerolog.Logger {
	var log zerolog.Logger
	if cfg.Server.IsDevelopment() {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		log = zerolog.New(os.Stdout)
	}
	return log.With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()
}
