package olamaps_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chargeroute/chargeroute/internal/directions"
	"github.com/chargeroute/chargeroute/internal/directions/olamaps"
	"github.com/chargeroute/chargeroute/internal/geo"
)

const sampleResponse = `{
  "status": "SUCCESS",
  "routes": [{
    "summary": "Hosur Road",
    "overview_polyline": "_p~iF~ps|U_ulLnnqC",
    "legs": [{
      "distance": 4210,
      "duration": 780,
      "steps": [
        {"instructions": "Head south", "maneuver": "depart", "distance": 1200, "duration": 200,
         "start_location": {"lat": 12.9716, "lng": 77.5946}, "end_location": {"lat": 12.9600, "lng": 77.5950}},
        {"instructions": "Turn left onto Hosur Road", "maneuver": "turn-left", "distance": 3010, "duration": 580,
         "start_location": {"lat": 12.9600, "lng": 77.5950}, "end_location": {"lat": 12.9352, "lng": 77.6245}}
      ]
    }]
  }]
}`

var (
	origin      = geo.Point{Lon: 77.5946, Lat: 12.9716}
	destination = geo.Point{Lon: 77.6245, Lat: 12.9352}
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *olamaps.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return olamaps.NewClient(olamaps.ClientConfig{
		APIKey:     "ola-key",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		Logger:     zerolog.Nop(),
	})
}

func TestGetDirections_Success(t *testing.T) {
	var gotMethod, gotPath string
	var gotQuery map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotQuery = map[string]string{
			"origin":      r.URL.Query().Get("origin"),
			"destination": r.URL.Query().Get("destination"),
			"mode":        r.URL.Query().Get("mode"),
			"api_key":     r.URL.Query().Get("api_key"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleResponse))
	})

	resp, err := client.GetDirections(context.Background(), directions.Request{
		Origin:      origin,
		Destination: destination,
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/routing/v1/directions", gotPath)
	assert.Equal(t, "12.9716,77.5946", gotQuery["origin"])
	assert.Equal(t, "12.9352,77.6245", gotQuery["destination"])
	assert.Equal(t, "driving", gotQuery["mode"])
	assert.Equal(t, "ola-key", gotQuery["api_key"])

	require.Len(t, resp.Routes, 1)
	route := resp.Routes[0]
	assert.Equal(t, olamaps.ProviderName, resp.Provider)
	assert.Equal(t, "Hosur Road", route.Summary)
	assert.Equal(t, 4210, route.DistanceMeters)
	assert.Equal(t, 780, route.DurationSeconds)
	require.Len(t, route.Path, 2)
	assert.InDelta(t, 38.5, route.Path[0].Lat, 1e-5)
	require.Len(t, route.Steps, 2)
	assert.Equal(t, "turn-left", route.Steps[1].Maneuver)
	assert.Equal(t, destination, route.Steps[1].End)
}

func TestGetDirections_NoRoutes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","routes":[]}`))
	})

	_, err := client.GetDirections(context.Background(), directions.Request{Origin: origin, Destination: destination})
	assert.ErrorIs(t, err, directions.ErrNoRouteFound)
}

func TestGetDirections_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantErr  error
		wantCode string
	}{
		{"rate limit", http.StatusTooManyRequests, `{}`, directions.ErrRateLimitExceeded, "RATE_LIMIT"},
		{"unauthorized", http.StatusUnauthorized, `{"message":"invalid api key"}`, directions.ErrProviderUnavailable, "FORBIDDEN"},
		{"bad request", http.StatusBadRequest, `{"error_message":"Invalid origin"}`, directions.ErrInvalidRequest, "BAD_REQUEST"},
		{"not found", http.StatusNotFound, ``, directions.ErrNoRouteFound, "NO_ROUTE"},
		{"server error", http.StatusBadGateway, `oops`, directions.ErrProviderUnavailable, "SERVER_502"},
		{"other", http.StatusConflict, `{}`, directions.ErrProviderUnavailable, "HTTP_409"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.GetDirections(context.Background(), directions.Request{Origin: origin, Destination: destination})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var dirErr *directions.Error
			require.True(t, errors.As(err, &dirErr))
			assert.Equal(t, tt.wantCode, dirErr.Code)
			assert.Equal(t, olamaps.ProviderName, dirErr.Provider)
		})
	}
}

func TestGetDirections_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	client := olamaps.NewClient(olamaps.ClientConfig{
		APIKey:     "ola-key",
		BaseURL:    server.URL,
		HTTPClient: http.DefaultClient,
		Logger:     zerolog.Nop(),
	})

	_, err := client.GetDirections(context.Background(), directions.Request{Origin: origin, Destination: destination})
	assert.ErrorIs(t, err, directions.ErrProviderUnavailable)
}
