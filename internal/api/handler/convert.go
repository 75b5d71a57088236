package handler

import (
	"github.com/chargeroute/chargeroute/internal/api/models"
	"github.com/chargeroute/chargeroute/internal/driver"
	"github.com/chargeroute/chargeroute/internal/geo"
	"github.com/chargeroute/chargeroute/internal/recommendation"
	"github.com/chargeroute/chargeroute/internal/station"
)

func toStationModel(s *station.Station) models.Station {
	m := models.Station{
		ID:                   s.ID,
		Name:                 s.Name,
		Operator:             s.Operator,
		Address:              s.Address,
		Location:             models.NewGeoPoint(s.Location.Lon, s.Location.Lat),
		SlotsAvailable:       s.SlotsAvailable,
		TotalSlots:           s.TotalSlots,
		Rating:               s.Rating,
		TotalReviews:         s.TotalReviews,
		BatterySwapAvailable: s.BatterySwapAvailable,
		AvailableBatteries:   s.AvailableBatteries,
		ConnectorTypes:       s.ConnectorTypes,
		ChargingPower:        s.ChargingPower,
		Price:                s.Price,
		OperatingHours:       s.OperatingHours,
		IsOperational:        s.IsOperational,
		RealTimeData:         toRealTimeData(s.Occupancy),
		CreatedAt:            models.TimestampPtr(s.CreatedAt),
		UpdatedAt:            models.TimestampPtr(s.UpdatedAt),
	}
	for _, pw := range s.PeakWindows {
		m.PeakHours = append(m.PeakHours, models.PeakHour{
			Day:             pw.Day,
			StartTime:       pw.StartTime,
			EndTime:         pw.EndTime,
			ChargingDemand:  pw.Demand,
			AverageWaitTime: pw.AverageWaitMinutes,
			PriceMultiplier: pw.PriceMultiplier,
		})
	}
	return m
}

func toStationModels(stations []*station.Station) []models.Station {
	out := make([]models.Station, 0, len(stations))
	for _, s := range stations {
		out = append(out, toStationModel(s))
	}
	return out
}

func toRealTimeData(o *station.Occupancy) *models.RealTimeData {
	if o == nil {
		return nil
	}
	return &models.RealTimeData{
		CurrentOccupancy:  o.CurrentOccupancy,
		QueueLength:       o.QueueLength,
		EstimatedWaitTime: o.EstimatedWaitMinutes,
		LastUpdated:       models.TimestampPtr(o.LastUpdated),
	}
}

func fromStationCreate(req models.StationCreateRequest) (*station.Station, error) {
	point, err := pointFromCoordinates(req.Location.Coordinates)
	if err != nil {
		return nil, err
	}
	st := &station.Station{
		Name:                 req.Name,
		Operator:             req.Operator,
		Address:              req.Address,
		Location:             point,
		SlotsAvailable:       req.SlotsAvailable,
		TotalSlots:           req.TotalSlots,
		BatterySwapAvailable: req.BatterySwapAvailable,
		AvailableBatteries:   req.AvailableBatteries,
		ConnectorTypes:       req.ConnectorTypes,
		ChargingPower:        req.ChargingPower,
		Price:                req.Price,
		OperatingHours:       req.OperatingHours,
		IsOperational:        true,
	}
	if req.IsOperational != nil {
		st.IsOperational = *req.IsOperational
	}
	for _, ph := range req.PeakHours {
		st.PeakWindows = append(st.PeakWindows, station.PeakWindow{
			Day:                ph.Day,
			StartTime:          ph.StartTime,
			EndTime:            ph.EndTime,
			Demand:             ph.ChargingDemand,
			AverageWaitMinutes: ph.AverageWaitTime,
			PriceMultiplier:    ph.PriceMultiplier,
		})
	}
	return st, nil
}

// pointFromCoordinates reads a GeoJSON [longitude, latitude] pair.
func pointFromCoordinates(coords []float64) (geo.Point, error) {
	if len(coords) != 2 {
		return geo.Point{}, errCoordinates
	}
	p := geo.Point{Lon: coords[0], Lat: coords[1]}
	if err := p.Validate(); err != nil {
		return geo.Point{}, err
	}
	return p, nil
}

func toCandidateModel(e *recommendation.EnrichedStation) *models.CandidateStation {
	if e == nil {
		return nil
	}
	return &models.CandidateStation{
		ID:                   e.ID,
		Name:                 e.Name,
		Location:             models.NewGeoPoint(e.Location.Lon, e.Location.Lat),
		DistanceKm:           e.DistanceKm,
		SlotsAvailable:       e.SlotsAvailable,
		TotalSlots:           e.TotalSlots,
		ChargingDemand:       e.Demand,
		AverageWaitTime:      e.AverageWaitMinutes,
		PeakHourStart:        e.PeakStart,
		PeakHourEnd:          e.PeakEnd,
		IsInPeakHours:        e.IsInPeakHours,
		Rating:               e.Rating,
		BatterySwapAvailable: e.BatterySwapAvailable,
		ChargingPower:        e.ChargingPower,
		Price:                e.Price,
		OperatingHours:       e.OperatingHours,
		RealTimeData:         toRealTimeData(e.Occupancy),
	}
}

func toDriverModel(d *driver.Driver) models.Driver {
	m := models.Driver{
		ID:    d.ID,
		Name:  d.Name,
		Email: d.Email,
		Phone: d.Phone,
		Preferences: models.DriverPreferences{
			PreferredConnector: d.Preferences.PreferredConnector,
			MaxDistanceKm:      d.Preferences.MaxDistanceKm,
			PreferBatterySwap:  d.Preferences.PreferBatterySwap,
		},
		CreatedAt: models.Timestamp(d.CreatedAt),
	}
	if v := d.Vehicle; v != nil {
		m.VehicleInfo = &models.VehicleInfo{
			Make:               v.Make,
			Model:              v.Model,
			Year:               v.Year,
			BatteryCapacityKWh: v.BatteryCapacityKWh,
			MaxRangeKm:         v.MaxRangeKm,
			ConnectorType:      v.ConnectorType,
		}
	}
	if loc := d.CurrentLocation; loc != nil {
		m.CurrentLocation = &models.DriverLocation{
			GeoPoint:  models.NewGeoPoint(loc.Point.Lon, loc.Point.Lat),
			Address:   loc.Address,
			UpdatedAt: models.TimestampPtr(loc.UpdatedAt),
		}
	}
	return m
}

func fromVehicleModel(v *models.VehicleInfo) *driver.VehicleInfo {
	if v == nil {
		return nil
	}
	return &driver.VehicleInfo{
		Make:               v.Make,
		Model:              v.Model,
		Year:               v.Year,
		BatteryCapacityKWh: v.BatteryCapacityKWh,
		MaxRangeKm:         v.MaxRangeKm,
		ConnectorType:      v.ConnectorType,
	}
}
