package recommendation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chargeroute/chargeroute/internal/recommendation"
)

func ids(stations []recommendation.EnrichedStation) []string {
	out := make([]string, 0, len(stations))
	for _, s := range stations {
		out = append(out, s.ID)
	}
	return out
}

func TestRank_DistanceThenSlotsThenRating(t *testing.T) {
	stations := []recommendation.EnrichedStation{
		{ID: "A", DistanceKm: 5, SlotsAvailable: 0},
		{ID: "B", DistanceKm: 3, SlotsAvailable: 2},
		{ID: "C", DistanceKm: 3, SlotsAvailable: 0},
	}

	ranked := recommendation.Rank(stations)
	assert.Equal(t, []string{"B", "C", "A"}, ids(ranked))

	pick, ok := recommendation.Fallback(ranked)
	require.True(t, ok)
	assert.Equal(t, "B", pick.ID)

	assert.Equal(t, []string{"A", "B", "C"}, ids(stations), "input is not reordered")
}

func TestRank_RatingBreaksRemainingTies(t *testing.T) {
	stations := []recommendation.EnrichedStation{
		{ID: "low", DistanceKm: 2, SlotsAvailable: 1, Rating: 3.1},
		{ID: "high", DistanceKm: 2, SlotsAvailable: 1, Rating: 4.8},
	}

	assert.Equal(t, []string{"high", "low"}, ids(recommendation.Rank(stations)))
}

func TestFallback_NoFreeSlots(t *testing.T) {
	ranked := recommendation.Rank([]recommendation.EnrichedStation{
		{ID: "far", DistanceKm: 9},
		{ID: "near", DistanceKm: 1},
	})

	pick, ok := recommendation.Fallback(ranked)
	require.True(t, ok)
	assert.Equal(t, "near", pick.ID)
}

func TestFallback_SkipsFullStations(t *testing.T) {
	ranked := recommendation.Rank([]recommendation.EnrichedStation{
		{ID: "full", DistanceKm: 1},
		{ID: "free", DistanceKm: 4, SlotsAvailable: 1},
	})

	pick, ok := recommendation.Fallback(ranked)
	require.True(t, ok)
	assert.Equal(t, "free", pick.ID)
}

func TestFallback_Empty(t *testing.T) {
	_, ok := recommendation.Fallback(nil)
	assert.False(t, ok)
}
