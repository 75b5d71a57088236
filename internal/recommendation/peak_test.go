package recommendation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chargeroute/chargeroute/internal/recommendation"
	"github.com/chargeroute/chargeroute/internal/station"
)

func mustTime(t *testing.T, s string) recommendation.TimeOfDay {
	t.Helper()
	tod, err := recommendation.ParseTimeOfDay(s)
	require.NoError(t, err)
	return tod
}

func TestIsWithinWindow_Standard(t *testing.T) {
	w := station.PeakWindow{StartTime: "09:00", EndTime: "17:00"}

	tests := []struct {
		at   string
		want bool
	}{
		{"12:00", true},
		{"08:59", false},
		{"09:00", true},
		{"17:00", true},
		{"17:01", false},
	}
	for _, tt := range tests {
		t.Run(tt.at, func(t *testing.T) {
			assert.Equal(t, tt.want, recommendation.IsWithinWindow(mustTime(t, tt.at), w))
		})
	}
}

func TestIsWithinWindow_Overnight(t *testing.T) {
	w := station.PeakWindow{StartTime: "22:00", EndTime: "02:00"}

	tests := []struct {
		at   string
		want bool
	}{
		{"23:30", true},
		{"01:00", true},
		{"12:00", false},
		{"22:00", true},
		{"02:00", true},
		{"02:01", false},
		{"00:00", true},
	}
	for _, tt := range tests {
		t.Run(tt.at, func(t *testing.T) {
			assert.Equal(t, tt.want, recommendation.IsWithinWindow(mustTime(t, tt.at), w))
		})
	}
}

func TestIsWithinWindow_MalformedBounds(t *testing.T) {
	noon := mustTime(t, "12:00")
	assert.False(t, recommendation.IsWithinWindow(noon, station.PeakWindow{StartTime: "", EndTime: "17:00"}))
	assert.False(t, recommendation.IsWithinWindow(noon, station.PeakWindow{StartTime: "09:00", EndTime: "25:00"}))
	assert.False(t, recommendation.IsWithinWindow(noon, station.PeakWindow{StartTime: "nine", EndTime: "17:00"}))
}

func TestFindActiveWindow(t *testing.T) {
	windows := []station.PeakWindow{
		{StartTime: "07:00", EndTime: "09:00", Demand: station.DemandMedium},
		{StartTime: "08:00", EndTime: "10:00", Demand: station.DemandHigh},
		{StartTime: "18:00", EndTime: "20:00", Demand: station.DemandLow},
	}

	w, ok := recommendation.FindActiveWindow(mustTime(t, "08:30"), windows)
	require.True(t, ok)
	assert.Equal(t, station.DemandMedium, w.Demand, "first matching window wins")

	w, ok = recommendation.FindActiveWindow(mustTime(t, "09:30"), windows)
	require.True(t, ok)
	assert.Equal(t, station.DemandHigh, w.Demand)

	_, ok = recommendation.FindActiveWindow(mustTime(t, "12:00"), windows)
	assert.False(t, ok)

	_, ok = recommendation.FindActiveWindow(mustTime(t, "12:00"), nil)
	assert.False(t, ok)
}

func TestFilterForDay(t *testing.T) {
	windows := []station.PeakWindow{
		{Day: "Monday", StartTime: "08:00", EndTime: "10:00"},
		{Day: "tuesday", StartTime: "08:00", EndTime: "10:00"},
		{Day: "MONDAY", StartTime: "18:00", EndTime: "20:00"},
	}

	got := recommendation.FilterForDay(windows, "monday")
	require.Len(t, got, 2)
	assert.Equal(t, "08:00", got[0].StartTime)
	assert.Equal(t, "18:00", got[1].StartTime)

	assert.Empty(t, recommendation.FilterForDay(windows, "sunday"))
	assert.Len(t, windows, 3, "input is not mutated")
}

func TestTimeOfDay(t *testing.T) {
	assert.Equal(t, "07:05", mustTime(t, "7:05").String())

	loc := time.FixedZone("IST", 5*3600+1800)
	at := time.Date(2026, 3, 2, 23, 45, 0, 0, loc)
	assert.Equal(t, "23:45", recommendation.TimeOfDayOf(at).String())

	_, err := recommendation.ParseTimeOfDay("24:00")
	assert.Error(t, err)
}
