package station_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chargeroute/chargeroute/internal/geo"
	"github.com/chargeroute/chargeroute/internal/station"
)

func TestInMemoryRepository_FindNear_ExcludesAntipode(t *testing.T) {
	origin := geo.Point{Lon: -100, Lat: -86.78}
	repo := station.NewInMemoryRepository(
		&station.Station{ID: "stn_antipode", Name: "Antipode", Location: geo.Point{Lon: 80, Lat: 86.78}, IsOperational: true},
		&station.Station{ID: "stn_local", Name: "Local", Location: offsetNorth(origin, 2), IsOperational: true},
	)

	got, err := repo.FindNear(context.Background(), station.NearQuery{
		Point:             origin,
		MaxDistanceMeters: 10000,
		OperationalOnly:   true,
		Limit:             1,
	})
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "stn_local", got[0].ID)
}

func TestInMemoryRepository_FindNear_OrderAndLimit(t *testing.T) {
	repo := station.NewInMemoryRepository(
		&station.Station{ID: "stn_b", Location: offsetNorth(bangalore, 1), IsOperational: true},
		&station.Station{ID: "stn_a", Location: offsetNorth(bangalore, 1), IsOperational: true},
		&station.Station{ID: "stn_c", Location: offsetNorth(bangalore, 3), IsOperational: true},
		&station.Station{ID: "stn_off", Location: bangalore, IsOperational: false},
	)

	got, err := repo.FindNear(context.Background(), station.NearQuery{
		Point:             bangalore,
		MaxDistanceMeters: 5000,
		OperationalOnly:   true,
		Limit:             2,
	})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "stn_a", got[0].ID)
	assert.Equal(t, "stn_b", got[1].ID)
}
