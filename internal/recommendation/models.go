// Package recommendation selects the best charging or battery-swap station
// for a driver from live station state and an external advisory model.
package recommendation

import (
	"time"

	"github.com/chargeroute/chargeroute/internal/geo"
	"github.com/chargeroute/chargeroute/internal/station"
)

// Outcome is the terminal result kind of a recommendation request.
type Outcome string

const (
	OutcomeRecommended        Outcome = "RECOMMENDED"
	OutcomeFallback           Outcome = "FALLBACK"
	OutcomeCriticalBattery    Outcome = "CRITICAL_BATTERY"
	OutcomeNoStationsFound    Outcome = "NO_STATIONS_FOUND"
	OutcomeNoReachableStation Outcome = "NO_REACHABLE_STATION"
)

// Urgency levels returned with a recommendation.
const (
	UrgencyLow      = "LOW"
	UrgencyMedium   = "MEDIUM"
	UrgencyHigh     = "HIGH"
	UrgencyCritical = "CRITICAL"
)

// Result messages.
const (
	MessageCriticalBattery        = "Battery level critically low. Please find the nearest charging station immediately."
	MessageNoStationsFound        = "No operational EV stations found within range."
	MessageNoReachableStation     = "No suitable EV stations found within your current range."
	FallbackReasonParse           = "AI parsing failed. Recommended nearest station with available slots as fallback."
	FallbackReasonUnavailable     = "AI service unavailable. Recommended nearest station with available slots as fallback."
	FallbackReasonDisabled        = "AI recommendations are disabled. Recommended nearest station with available slots as fallback."
	criticalBatteryRecommendation = "Head to the nearest charging station now."
)

// Error texts reported to clients with a fallback result.
const (
	ErrorAdvisoryUnavailable = "AI service unavailable"
	ErrorAdvisoryMalformed   = "AI response could not be parsed"
	ErrorAdvisoryDisabled    = "AI recommendations disabled"
)

// Query is a driver's recommendation request. Pointer fields distinguish
// missing values from zero.
type Query struct {
	BatteryPercentage *float64
	RangeLeftKm       *float64
	// Coordinates is a GeoJSON [longitude, latitude] pair.
	Coordinates []float64
	// Timezone is an IANA zone name; empty selects the configured default.
	Timezone string
}

// EnrichedStation is a candidate station projected for the current request.
type EnrichedStation struct {
	ID       string
	Name     string
	Location geo.Point

	DistanceKm     float64
	SlotsAvailable int
	TotalSlots     int

	Demand             string
	AverageWaitMinutes int
	PeakStart          string
	PeakEnd            string
	IsInPeakHours      bool

	Rating               float64
	BatterySwapAvailable bool
	ChargingPower        string
	Price                string
	OperatingHours       string

	// Occupancy is the latest sensor report, when the station has one.
	Occupancy *station.Occupancy
}

// Advice is a validated reply from the advisory model.
type Advice struct {
	RecommendedStation   string
	Reason               string
	AlternativeStation   string
	UrgencyLevel         string
	EstimatedArrivalTime string
	Confidence           float64
}

// Result is the outcome of a recommendation request.
type Result struct {
	Outcome Outcome
	Advice  Advice

	// Station is the detail of the recommended station: the advisory pick
	// when it matches a candidate by name, or the fallback pick.
	Station *EnrichedStation

	// Candidates are the reachable stations in ranked order.
	Candidates []EnrichedStation

	Fallback       bool
	FallbackReason string
	FallbackError  string
	Message        string

	StationsFound    int
	StationsAnalyzed int
	SearchRadiusKm   float64
	RangeLeftKm      float64
	Timezone         string
	GeneratedAt      time.Time

	// States lists the lifecycle states the request passed through.
	States []string
}
