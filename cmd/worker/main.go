// Package main provides the entrypoint for the ChargeRoute occupancy worker.
// It consumes station sensor readings from the configured broker and applies
// them to the station store.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/chargeroute/chargeroute/internal/api/middleware"
	"github.com/chargeroute/chargeroute/internal/api/models"
	"github.com/chargeroute/chargeroute/internal/api/response"
	"github.com/chargeroute/chargeroute/internal/config"
	"github.com/chargeroute/chargeroute/internal/occupancy"
	"github.com/chargeroute/chargeroute/internal/station"
	"github.com/chargeroute/chargeroute/internal/store"
	"github.com/chargeroute/chargeroute/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "chargeroute-worker"

	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()
	if cfg.Server.IsDevelopment() {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	log.Info().
		Str("build_time", BuildTime).
		Str("source", cfg.Occupancy.Source).
		Msg("starting ChargeRoute occupancy worker")

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

	stores, err := store.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.Store).Msg("failed to open stores")
	}
	defer stores.Close()

	stationService := station.NewService(station.ServiceConfig{
		Repository: stores.Stations,
		Logger:     log,
	})

	source, err := occupancy.OpenSource(ctx, cfg.Occupancy, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open occupancy source")
	}
	defer source.Close()

	ingester := occupancy.NewIngester(stationService, log)

	var running atomic.Bool
	server := &http.Server{
		Addr:              ":" + cfg.Occupancy.HealthPort,
		Handler:           healthRouter(ingester, stores.Checks, &running),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	running.Store(true)
	runErr := source.Run(ctx, ingester.Handle)
	running.Store(false)
	if runErr != nil {
		log.Error().Err(runErr).Str("source", source.Name()).Msg("occupancy source stopped")
	}

	log.Info().Interface("stats", ingester.Stats()).Msg("shutting down worker")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}

// healthRouter serves liveness, readiness and ingestion counters.
func healthRouter(ingester *occupancy.Ingester, checks []store.Check, running *atomic.Bool) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, models.Health{
			Status:  models.HealthStatusOK,
			Time:    models.Timestamp(time.Now()),
			Details: map[string]interface{}{"version": Version},
		})
	})

	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		details := map[string]interface{}{}
		if !running.Load() {
			details["source"] = "not running"
		}
		for _, c := range checks {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			if err := c.Ping(ctx); err != nil {
				details[c.Name] = err.Error()
			}
			cancel()
		}

		health := models.Health{Status: models.HealthStatusOK, Time: models.Timestamp(time.Now())}
		status := http.StatusOK
		if len(details) > 0 {
			health.Status = models.HealthStatusFail
			health.Details = details
			status = http.StatusServiceUnavailable
		}
		response.JSON(w, r, status, health)
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, ingester.Stats())
	})

	return r
}
