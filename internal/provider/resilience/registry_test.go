package resilience_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chargeroute/chargeroute/internal/provider/resilience"
)

func TestRegistry_RecordsOutcomes(t *testing.T) {
	registry := resilience.NewRegistry(zerolog.Nop())
	resilience.NewClient("olamaps", resilience.DefaultPolicy(), registry)

	health, ok := registry.Health("olamaps")
	require.True(t, ok)
	assert.Equal(t, gobreaker.StateClosed, health.State)
	assert.Nil(t, health.LastSuccessAt)

	registry.RecordSuccess("olamaps")
	registry.RecordFailure("olamaps", errors.New("connection reset"))

	health, _ = registry.Health("olamaps")
	assert.NotNil(t, health.LastSuccessAt)
	assert.NotNil(t, health.LastFailureAt)
	assert.Equal(t, "connection reset", health.LastError)
	assert.False(t, health.Open())
	assert.False(t, health.Probing())
}

func TestRegistry_UnknownProvider(t *testing.T) {
	registry := resilience.NewRegistry(zerolog.Nop())

	registry.RecordSuccess("nope")
	registry.RecordFailure("nope", errors.New("x"))

	_, ok := registry.Health("nope")
	assert.False(t, ok)
	assert.Empty(t, registry.Snapshot())
}

func TestRegistry_SnapshotSorted(t *testing.T) {
	registry := resilience.NewRegistry(zerolog.Nop())
	resilience.NewClient("olamaps", resilience.DefaultPolicy(), registry)
	resilience.NewClient("gemini", resilience.DefaultPolicy(), registry)

	snap := registry.Snapshot()

	require.Len(t, snap, 2)
	assert.Equal(t, "gemini", snap[0].Name)
	assert.Equal(t, "olamaps", snap[1].Name)
}

func TestRegistry_ClientReportsOutcome(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	registry := resilience.NewRegistry(zerolog.Nop())
	client := resilience.NewClient("olamaps", fastPolicy(0), registry)

	resp, err := get(t, client, server.URL+"/ok")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = get(t, client, server.URL+"/fail")
	require.NoError(t, err)
	resp.Body.Close()

	health, _ := registry.Health("olamaps")
	assert.NotNil(t, health.LastSuccessAt)
	assert.NotNil(t, health.LastFailureAt)
	assert.Equal(t, "upstream returned 503 Service Unavailable", health.LastError)
}
