package recommendation

import (
	"github.com/chargeroute/chargeroute/internal/geo"
	"github.com/chargeroute/chargeroute/internal/station"
)

// Defaults applied when a station has no data for a field.
const (
	defaultStationName    = "Unknown Station"
	defaultPeakBound      = "N/A"
	defaultUnknown        = "Unknown"
	defaultOperatingHours = "24/7"
)

// Enrich projects each station for a driver at from, on day at now.
// The output preserves input order and is not filtered by range.
func Enrich(stations []*station.Station, from geo.Point, day string, now TimeOfDay) []EnrichedStation {
	out := make([]EnrichedStation, 0, len(stations))
	for _, s := range stations {
		out = append(out, enrichOne(s, from, day, now))
	}
	return out
}

func enrichOne(s *station.Station, from geo.Point, day string, now TimeOfDay) EnrichedStation {
	e := EnrichedStation{
		ID:                   s.ID,
		Name:                 orDefault(s.Name, defaultStationName),
		Location:             s.Location,
		DistanceKm:           geo.RoundTo(geo.DistanceKm(from, s.Location), 2),
		SlotsAvailable:       s.SlotsAvailable,
		TotalSlots:           s.TotalSlots,
		Demand:               station.DemandUnknown,
		PeakStart:            defaultPeakBound,
		PeakEnd:              defaultPeakBound,
		Rating:               s.Rating,
		BatterySwapAvailable: s.BatterySwapAvailable,
		ChargingPower:        orDefault(s.ChargingPower, defaultUnknown),
		Price:                orDefault(s.Price, defaultUnknown),
		OperatingHours:       orDefault(s.OperatingHours, defaultOperatingHours),
	}
	if e.TotalSlots == 0 {
		e.TotalSlots = e.SlotsAvailable
	}
	if s.Occupancy != nil {
		occ := *s.Occupancy
		e.Occupancy = &occ
	}

	if w, ok := FindActiveWindow(now, FilterForDay(s.PeakWindows, day)); ok {
		e.IsInPeakHours = true
		e.Demand = orDefault(w.Demand, station.DemandUnknown)
		e.AverageWaitMinutes = w.AverageWaitMinutes
		e.PeakStart = orDefault(w.StartTime, defaultPeakBound)
		e.PeakEnd = orDefault(w.EndTime, defaultPeakBound)
	}

	return e
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
