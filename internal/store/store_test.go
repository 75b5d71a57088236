package store_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chargeroute/chargeroute/internal/config"
	"github.com/chargeroute/chargeroute/internal/driver"
	"github.com/chargeroute/chargeroute/internal/featureflags"
	"github.com/chargeroute/chargeroute/internal/station"
	"github.com/chargeroute/chargeroute/internal/store"
)

func TestOpen_Memory(t *testing.T) {
	s, err := store.Open(context.Background(), &config.Config{Store: config.StoreMemory}, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	assert.IsType(t, &station.InMemoryRepository{}, s.Stations)
	assert.IsType(t, &driver.InMemoryRepository{}, s.Drivers)
	assert.IsType(t, &featureflags.InMemoryRepository{}, s.Flags)
	assert.Empty(t, s.Checks)
}

func TestOpen_UnknownStore(t *testing.T) {
	_, err := store.Open(context.Background(), &config.Config{Store: "sqlite"}, zerolog.Nop())

	assert.Error(t, err)
}
