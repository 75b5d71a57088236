package station_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chargeroute/chargeroute/internal/geo"
	"github.com/chargeroute/chargeroute/internal/station"
)

var bangalore = geo.Point{Lon: 77.5946, Lat: 12.9716}

func newTestService(stations ...*station.Station) *station.Service {
	return station.NewService(station.ServiceConfig{
		Repository: station.NewInMemoryRepository(stations...),
		Logger:     zerolog.Nop(),
		Now: func() time.Time {
			return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
		},
	})
}

// offsetNorth returns a point roughly km kilometers north of p.
func offsetNorth(p geo.Point, km float64) geo.Point {
	return geo.Point{Lon: p.Lon, Lat: p.Lat + km/111.195}
}

type recordingListener struct {
	mu     sync.Mutex
	events []station.OccupancyEvent
}

func (l *recordingListener) OccupancyChanged(e station.OccupancyEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func TestService_Nearby(t *testing.T) {
	svc := newTestService(
		&station.Station{ID: "stn_far", Name: "Far", Location: offsetNorth(bangalore, 8), IsOperational: true},
		&station.Station{ID: "stn_near", Name: "Near", Location: offsetNorth(bangalore, 1), IsOperational: true},
		&station.Station{ID: "stn_mid", Name: "Mid", Location: offsetNorth(bangalore, 3), IsOperational: true},
		&station.Station{ID: "stn_closed", Name: "Closed", Location: offsetNorth(bangalore, 2), IsOperational: false},
	)

	got, err := svc.Nearby(context.Background(), bangalore, 0, 0)
	require.NoError(t, err)

	// Default radius is 5 km, so the far station is excluded.
	require.Len(t, got, 2)
	assert.Equal(t, "stn_near", got[0].ID)
	assert.Equal(t, "stn_mid", got[1].ID)

	got, err = svc.Nearby(context.Background(), bangalore, 10, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "stn_near", got[0].ID)
}

func TestService_Nearby_InvalidInput(t *testing.T) {
	svc := newTestService()

	_, err := svc.Nearby(context.Background(), geo.Point{Lon: 0, Lat: 95}, 5, 10)
	var valErr *station.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "location", valErr.Errors[0].Field)

	_, err = svc.Nearby(context.Background(), bangalore, -1, 10)
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "radius", valErr.Errors[0].Field)
}

func TestService_Get(t *testing.T) {
	svc := newTestService(&station.Station{ID: "stn_1", Name: "One", Location: bangalore})

	st, err := svc.Get(context.Background(), "stn_1")
	require.NoError(t, err)
	assert.Equal(t, "One", st.Name)

	_, err = svc.Get(context.Background(), "stn_missing")
	assert.True(t, errors.Is(err, station.ErrStationNotFound))
}

func TestService_List_Pagination(t *testing.T) {
	svc := newTestService(
		&station.Station{ID: "stn_a", Name: "A", Location: bangalore},
		&station.Station{ID: "stn_b", Name: "B", Location: bangalore},
		&station.Station{ID: "stn_c", Name: "C", Location: bangalore},
	)
	ctx := context.Background()

	page, err := svc.List(ctx, 2, "")
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "stn_a", page.Items[0].ID)
	assert.Equal(t, "stn_b", page.NextCursor)

	page, err = svc.List(ctx, 2, page.NextCursor)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "stn_c", page.Items[0].ID)
	assert.Empty(t, page.NextCursor)
}

func TestService_Create(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, &station.Station{
		Name:           "Koramangala Hub",
		Location:       bangalore,
		SlotsAvailable: 4,
		Rating:         4.2,
	})
	require.NoError(t, err)
	assert.Contains(t, created.ID, "stn_")
	assert.Equal(t, 4, created.TotalSlots)
	assert.False(t, created.CreatedAt.IsZero())

	fetched, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Koramangala Hub", fetched.Name)
}

func TestService_Create_ValidationErrors(t *testing.T) {
	svc := newTestService()

	_, err := svc.Create(context.Background(), &station.Station{
		Location:       geo.Point{Lon: 200, Lat: 0},
		SlotsAvailable: -1,
		Rating:         6,
	})

	var valErr *station.ValidationError
	require.ErrorAs(t, err, &valErr)

	fields := make([]string, 0, len(valErr.Errors))
	for _, fe := range valErr.Errors {
		fields = append(fields, fe.Field)
	}
	assert.ElementsMatch(t, []string{"name", "location", "slotsAvailable", "rating"}, fields)
}

func TestService_UpdateOccupancy(t *testing.T) {
	svc := newTestService(&station.Station{
		ID: "stn_1", Name: "One", Location: bangalore, SlotsAvailable: 3, TotalSlots: 6,
	})
	listener := &recordingListener{}
	svc.Subscribe(listener)

	queue := 2
	wait := 15
	slots := 1
	st, err := svc.UpdateOccupancy(context.Background(), "stn_1", station.OccupancyUpdate{
		QueueLength:          &queue,
		EstimatedWaitMinutes: &wait,
		SlotsAvailable:       &slots,
	})
	require.NoError(t, err)
	require.NotNil(t, st.Occupancy)
	assert.Equal(t, 2, st.Occupancy.QueueLength)
	assert.Equal(t, 15, st.Occupancy.EstimatedWaitMinutes)
	assert.Equal(t, time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), st.Occupancy.LastUpdated)
	assert.Equal(t, 1, st.SlotsAvailable)

	require.Len(t, listener.events, 1)
	assert.Equal(t, "stn_1", listener.events[0].StationID)
	assert.Equal(t, 1, listener.events[0].SlotsAvailable)
	assert.Equal(t, 2, listener.events[0].Occupancy.QueueLength)
}

func TestService_UpdateOccupancy_Errors(t *testing.T) {
	svc := newTestService(&station.Station{ID: "stn_1", Name: "One", Location: bangalore})
	listener := &recordingListener{}
	svc.Subscribe(listener)
	ctx := context.Background()

	_, err := svc.UpdateOccupancy(ctx, "stn_1", station.OccupancyUpdate{})
	var valErr *station.ValidationError
	require.ErrorAs(t, err, &valErr)

	negative := -3
	_, err = svc.UpdateOccupancy(ctx, "stn_1", station.OccupancyUpdate{QueueLength: &negative})
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "queueLength", valErr.Errors[0].Field)

	queue := 1
	_, err = svc.UpdateOccupancy(ctx, "stn_missing", station.OccupancyUpdate{QueueLength: &queue})
	assert.ErrorIs(t, err, station.ErrStationNotFound)

	assert.Empty(t, listener.events)
}
