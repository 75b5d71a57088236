// Package station provides charging and battery-swap station storage and lookup.
package station

import (
	"errors"
	"time"

	"github.com/chargeroute/chargeroute/internal/geo"
)

// Repository errors.
var (
	ErrStationNotFound = errors.New("station not found")
)

// Demand levels reported for a peak window.
const (
	DemandLow     = "LOW"
	DemandMedium  = "MEDIUM"
	DemandHigh    = "HIGH"
	DemandUnknown = "UNKNOWN"
)

// Station is a charging or battery-swap station.
// Optional fields use their zero value when the backing store has no data.
type Station struct {
	ID       string
	Name     string
	Operator string
	Address  string
	Location geo.Point

	SlotsAvailable int
	TotalSlots     int

	Rating       float64
	TotalReviews int

	BatterySwapAvailable bool
	AvailableBatteries   int

	ConnectorTypes []string
	ChargingPower  string
	Price          string
	OperatingHours string

	PeakWindows   []PeakWindow
	IsOperational bool
	Occupancy     *Occupancy

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PeakWindow is a recurring weekly interval of elevated demand.
// StartTime and EndTime are HH:MM in the station's local time.
type PeakWindow struct {
	Day                string  `json:"day" bson:"day"`
	StartTime          string  `json:"startTime" bson:"startTime"`
	EndTime            string  `json:"endTime" bson:"endTime"`
	Demand             string  `json:"chargingDemand" bson:"chargingDemand"`
	AverageWaitMinutes int     `json:"averageWaitTime" bson:"averageWaitTime"`
	PriceMultiplier    float64 `json:"priceMultiplier,omitempty" bson:"priceMultiplier,omitempty"`
}

// Occupancy is the live state reported by station sensors.
type Occupancy struct {
	CurrentOccupancy     int
	QueueLength          int
	EstimatedWaitMinutes int
	LastUpdated          time.Time
}

// ListOptions contains options for listing stations.
type ListOptions struct {
	Limit  int
	Cursor string
}

// ListResult contains the results of listing stations.
type ListResult struct {
	Items      []*Station
	NextCursor string
}

// NearQuery selects stations around a point.
type NearQuery struct {
	Point             geo.Point
	MaxDistanceMeters float64
	OperationalOnly   bool
	Limit             int
}

// OccupancyUpdate is a partial update of a station's live state.
// Nil fields are left unchanged.
type OccupancyUpdate struct {
	CurrentOccupancy     *int
	QueueLength          *int
	EstimatedWaitMinutes *int
	SlotsAvailable       *int
	ObservedAt           time.Time
}

// OccupancyEvent is emitted after a station's live state changes.
type OccupancyEvent struct {
	StationID      string
	StationName    string
	SlotsAvailable int
	TotalSlots     int
	Occupancy      Occupancy
}
