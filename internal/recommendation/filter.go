package recommendation

// FilterReachable keeps stations no farther than rangeLeftKm. A station
// exactly at the range boundary is reachable.
func FilterReachable(stations []EnrichedStation, rangeLeftKm float64) []EnrichedStation {
	out := make([]EnrichedStation, 0, len(stations))
	for _, s := range stations {
		if s.DistanceKm <= rangeLeftKm {
			out = append(out, s)
		}
	}
	return out
}
