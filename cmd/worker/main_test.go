package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/chargeroute/chargeroute/internal/occupancy"
	"github.com/chargeroute/chargeroute/internal/station"
	"github.com/chargeroute/chargeroute/internal/store"
)

func newTestIngester() *occupancy.Ingester {
	svc := station.NewService(station.ServiceConfig{
		Repository: station.NewInMemoryRepository(),
		Logger:     zerolog.Nop(),
	})
	return occupancy.NewIngester(svc, zerolog.Nop())
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
	return w
}

func TestHealthRouter_Health(t *testing.T) {
	var running atomic.Bool
	h := healthRouter(newTestIngester(), nil, &running)

	assert.Equal(t, http.StatusOK, get(h, "/health").Code)
}

func TestHealthRouter_Ready(t *testing.T) {
	var running atomic.Bool
	checks := []store.Check{{Name: "postgres", Ping: func(context.Context) error { return nil }}}
	h := healthRouter(newTestIngester(), checks, &running)

	assert.Equal(t, http.StatusServiceUnavailable, get(h, "/ready").Code)

	running.Store(true)
	assert.Equal(t, http.StatusOK, get(h, "/ready").Code)

	checks[0].Ping = func(context.Context) error { return errors.New("down") }
	h = healthRouter(newTestIngester(), checks, &running)
	assert.Equal(t, http.StatusServiceUnavailable, get(h, "/ready").Code)
}

func TestHealthRouter_Stats(t *testing.T) {
	var running atomic.Bool
	ingester := newTestIngester()
	_ = ingester.Handle(context.Background(), occupancy.Message{ID: "1", Data: []byte("not json")})
	h := healthRouter(ingester, nil, &running)

	w := get(h, "/stats")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received":1,"applied":0,"dropped":1,"failed":0}`, w.Body.String())
}
