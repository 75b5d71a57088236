// Package handler provides HTTP handlers for the ChargeRoute API.
package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/chargeroute/chargeroute/internal/api/models"
	"github.com/chargeroute/chargeroute/internal/api/response"
	"github.com/chargeroute/chargeroute/internal/featureflags"
	"github.com/chargeroute/chargeroute/internal/provider/resilience"
)

// readyTimeout bounds each readiness dependency check.
const readyTimeout = 2 * time.Second

// DependencyCheck reports whether a backing subsystem is reachable.
type DependencyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// OpsConfig holds the dependencies reported by the ops endpoints.
type OpsConfig struct {
	Version   string
	BuildTime string

	// Checks run on readiness and status requests.
	Checks []DependencyCheck

	// Registry reports upstream provider health. Nil means no providers.
	Registry *resilience.Registry

	// Flags reports active degradation flags. Optional.
	Flags *featureflags.Service

	// LiveClients returns the connected websocket subscriber count. Optional.
	LiveClients func() int
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	cfg OpsConfig
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	return &OpsHandler{cfg: cfg}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.cfg.Version,
			"buildTime": h.cfg.BuildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
// Returns 503 when any dependency check fails.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	subsystems := h.runChecks(r.Context())

	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}
	status := http.StatusOK
	failed := map[string]interface{}{}
	for _, s := range subsystems {
		if s.Status == models.HealthStatusFail {
			failed[s.Name] = *s.Detail
		}
	}
	if len(failed) > 0 {
		health.Status = models.HealthStatusFail
		health.Details = failed
		status = http.StatusServiceUnavailable
	}
	response.JSON(w, r, status, health)
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(time.Now()),
		Subsystems: h.runChecks(r.Context()),
		Providers:  h.providerStatuses(),
	}

	if h.cfg.LiveClients != nil {
		detail := formatCount(h.cfg.LiveClients(), "subscriber")
		status.Subsystems = append(status.Subsystems, models.SubsystemStatus{
			Name:   "live-feed",
			Status: models.HealthStatusOK,
			Detail: &detail,
		})
	}

	if h.cfg.Flags != nil {
		status.ActiveDegradationFlags = h.cfg.Flags.ActiveDegradations(r.Context())
	}

	for _, s := range status.Subsystems {
		if s.Status == models.HealthStatusFail {
			status.Status = models.HealthStatusFail
			break
		}
	}
	if status.Status == models.HealthStatusOK {
		for _, p := range status.Providers {
			if p.Status != models.HealthStatusOK {
				status.Status = models.HealthStatusDegraded
				break
			}
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) runChecks(ctx context.Context) []models.SubsystemStatus {
	out := make([]models.SubsystemStatus, 0, len(h.cfg.Checks))
	for _, c := range h.cfg.Checks {
		checkCtx, cancel := context.WithTimeout(ctx, readyTimeout)
		start := time.Now()
		err := c.Check(checkCtx)
		latency := time.Since(start).Milliseconds()
		cancel()

		s := models.SubsystemStatus{Name: c.Name, Status: models.HealthStatusOK, LatencyMs: &latency}
		if err != nil {
			detail := err.Error()
			s.Status = models.HealthStatusFail
			s.Detail = &detail
		}
		out = append(out, s)
	}
	return out
}

func (h *OpsHandler) providerStatuses() []models.ProviderStatus {
	if h.cfg.Registry == nil {
		return []models.ProviderStatus{}
	}

	health := h.cfg.Registry.Snapshot()
	out := make([]models.ProviderStatus, 0, len(health))
	for _, ph := range health {
		ps := models.ProviderStatus{
			Provider:            ph.Name,
			Status:              models.HealthStatusOK,
			Circuit:             ph.State.String(),
			ConsecutiveFailures: ph.Counts.ConsecutiveFailures,
		}
		switch {
		case ph.Open():
			ps.Status = models.HealthStatusFail
		case ph.Probing():
			ps.Status = models.HealthStatusDegraded
		}
		if ph.LastSuccessAt != nil {
			ps.LastSuccessAt = models.TimestampPtr(*ph.LastSuccessAt)
		}
		if ph.LastFailureAt != nil {
			ps.LastFailureAt = models.TimestampPtr(*ph.LastFailureAt)
		}
		if ph.StateChangedAt != nil {
			ps.CircuitChangedAt = models.TimestampPtr(*ph.StateChangedAt)
		}
		if ph.LastError != "" {
			msg := ph.LastError
			ps.Message = &msg
		}
		out = append(out, ps)
	}
	return out
}

func formatCount(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}
