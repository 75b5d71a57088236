package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chargeroute/chargeroute/internal/api/handler"
	"github.com/chargeroute/chargeroute/internal/api/models"
	"github.com/chargeroute/chargeroute/internal/provider/resilience"
)

func TestSystemStatus_ReportsProvidersAndSubsystems(t *testing.T) {
	registry := resilience.NewRegistry(zerolog.Nop())
	resilience.NewClient("gemini", resilience.DefaultPolicy(), registry)
	registry.RecordFailure("gemini", errors.New("timeout"))

	h := handler.NewOpsHandler(handler.OpsConfig{
		Registry:    registry,
		LiveClients: func() int { return 2 },
		Checks: []handler.DependencyCheck{
			{Name: "station-store", Check: func(context.Context) error { return nil }},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody)
	w := httptest.NewRecorder()
	h.SystemStatus(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var status models.SystemStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))

	assert.Equal(t, models.HealthStatusOK, status.Status)
	require.Len(t, status.Providers, 1)
	assert.Equal(t, "gemini", status.Providers[0].Provider)
	assert.Equal(t, models.HealthStatusOK, status.Providers[0].Status)
	require.NotNil(t, status.Providers[0].Message)
	assert.Equal(t, "timeout", *status.Providers[0].Message)
	assert.NotNil(t, status.Providers[0].LastFailureAt)
	assert.Equal(t, "closed", status.Providers[0].Circuit)

	require.Len(t, status.Subsystems, 2)
	assert.Equal(t, "station-store", status.Subsystems[0].Name)
	assert.NotNil(t, status.Subsystems[0].LatencyMs)
	assert.Equal(t, "live-feed", status.Subsystems[1].Name)
	require.NotNil(t, status.Subsystems[1].Detail)
	assert.Equal(t, "2 subscribers", *status.Subsystems[1].Detail)
}

func TestSystemStatus_FailingSubsystem(t *testing.T) {
	h := handler.NewOpsHandler(handler.OpsConfig{
		Checks: []handler.DependencyCheck{
			{Name: "mongo", Check: func(context.Context) error { return errors.New("server selection timeout") }},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody)
	w := httptest.NewRecorder()
	h.SystemStatus(w, req)

	var status models.SystemStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, models.HealthStatusFail, status.Status)
	assert.Empty(t, status.Providers)
}

func TestReadinessCheck_NoChecks(t *testing.T) {
	h := handler.NewOpsHandler(handler.OpsConfig{})

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/ready", http.NoBody)
	w := httptest.NewRecorder()
	h.ReadinessCheck(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
