package occupancy_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chargeroute/chargeroute/internal/occupancy"
	"github.com/chargeroute/chargeroute/internal/station"
)

type fakeApplier struct {
	err     error
	calls   int
	lastID  string
	lastUpd station.OccupancyUpdate
}

func (f *fakeApplier) UpdateOccupancy(_ context.Context, id string, u station.OccupancyUpdate) (*station.Station, error) {
	f.calls++
	f.lastID = id
	f.lastUpd = u
	if f.err != nil {
		return nil, f.err
	}
	return &station.Station{ID: id}, nil
}

func TestIngester_Applies(t *testing.T) {
	applier := &fakeApplier{}
	ing := occupancy.NewIngester(applier, zerolog.Nop())

	err := ing.Handle(context.Background(), occupancy.Message{
		Data: []byte(`{"stationId":"st_1","slotsAvailable":2}`),
	})
	require.NoError(t, err)

	assert.Equal(t, "st_1", applier.lastID)
	require.NotNil(t, applier.lastUpd.SlotsAvailable)
	assert.Equal(t, 2, *applier.lastUpd.SlotsAvailable)
	assert.Equal(t, occupancy.Stats{Received: 1, Applied: 1}, ing.Stats())
}

func TestIngester_DropsPermanentFailures(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		applyErr  error
		wantCalls int
	}{
		{"malformed", `not json`, nil, 0},
		{"unknown station", `{"stationId":"st_x","queueLength":1}`, station.ErrStationNotFound, 1},
		{"invalid values", `{"stationId":"st_1","queueLength":-1}`, &station.ValidationError{}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			applier := &fakeApplier{err: tt.applyErr}
			ing := occupancy.NewIngester(applier, zerolog.Nop())

			err := ing.Handle(context.Background(), occupancy.Message{Data: []byte(tt.data)})
			require.NoError(t, err)
			assert.Equal(t, tt.wantCalls, applier.calls)
			assert.Equal(t, int64(1), ing.Stats().Dropped)
		})
	}
}

func TestIngester_ReturnsTransientFailures(t *testing.T) {
	storeErr := errors.New("connection reset")
	ing := occupancy.NewIngester(&fakeApplier{err: storeErr}, zerolog.Nop())

	err := ing.Handle(context.Background(), occupancy.Message{
		Data: []byte(`{"stationId":"st_1","queueLength":1}`),
	})
	assert.ErrorIs(t, err, storeErr)
	assert.Equal(t, int64(1), ing.Stats().Failed)
}
