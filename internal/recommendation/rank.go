package recommendation

import "sort"

// Rank returns a copy of stations ordered by distance, then free slots
// descending, then rating descending.
func Rank(stations []EnrichedStation) []EnrichedStation {
	ranked := make([]EnrichedStation, len(stations))
	copy(ranked, stations)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.DistanceKm != b.DistanceKm {
			return a.DistanceKm < b.DistanceKm
		}
		if a.SlotsAvailable != b.SlotsAvailable {
			return a.SlotsAvailable > b.SlotsAvailable
		}
		return a.Rating > b.Rating
	})

	return ranked
}

// Fallback picks the first ranked station with a free slot, or the first
// station when none has one. It reports false only for empty input.
func Fallback(ranked []EnrichedStation) (EnrichedStation, bool) {
	if len(ranked) == 0 {
		return EnrichedStation{}, false
	}
	for _, s := range ranked {
		if s.SlotsAvailable > 0 {
			return s, true
		}
	}
	return ranked[0], true
}
