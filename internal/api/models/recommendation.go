package models

// RecommendationRequest is the body of POST /v1/stations/recommend.
// Fields are decoded loosely so type errors can be reported per field.
type RecommendationRequest struct {
	BatteryPercentage interface{}     `json:"batteryPercentage"`
	RangeLeft         interface{}     `json:"rangeLeft"`
	CurrentLocation   *RequestedPoint `json:"currentLocation"`
	Timezone          string          `json:"timezone,omitempty"`
}

// RequestedPoint carries [longitude, latitude] coordinates.
type RequestedPoint struct {
	Coordinates []float64 `json:"coordinates"`
}

// Recommendation is the 200 response of a recommendation request.
type Recommendation struct {
	RecommendedStation    string             `json:"recommendedStation"`
	Reason                string             `json:"reason"`
	AlternativeStation    string             `json:"alternativeStation,omitempty"`
	UrgencyLevel          string             `json:"urgencyLevel,omitempty"`
	EstimatedArrivalTime  string             `json:"estimatedArrivalTime,omitempty"`
	Confidence            float64            `json:"confidence,omitempty"`
	Fallback              bool               `json:"fallback,omitempty"`
	Error                 string             `json:"error,omitempty"`
	StationDetails        *CandidateStation  `json:"stationDetails,omitempty"`
	Candidates            []CandidateStation `json:"candidates,omitempty"`
	TotalStationsAnalyzed int                `json:"totalStationsAnalyzed"`
	SearchRadius          float64            `json:"searchRadius"`
	Timezone              string             `json:"timezone"`
	Timestamp             Timestamp          `json:"timestamp"`
}

// CandidateStation is a station projected for one recommendation request.
type CandidateStation struct {
	ID                   string        `json:"id"`
	Name                 string        `json:"name"`
	Location             GeoPoint      `json:"location"`
	DistanceKm           float64       `json:"distanceKm"`
	SlotsAvailable       int           `json:"slotsAvailable"`
	TotalSlots           int           `json:"totalSlots"`
	ChargingDemand       string        `json:"chargingDemand"`
	AverageWaitTime      int           `json:"averageWaitTime"`
	PeakHourStart        string        `json:"peakHourStart"`
	PeakHourEnd          string        `json:"peakHourEnd"`
	IsInPeakHours        bool          `json:"isInPeakHours"`
	Rating               float64       `json:"rating"`
	BatterySwapAvailable bool          `json:"batterySwapAvailable"`
	ChargingPower        string        `json:"chargingPower,omitempty"`
	Price                string        `json:"price,omitempty"`
	OperatingHours       string        `json:"operatingHours,omitempty"`
	RealTimeData         *RealTimeData `json:"realTimeData,omitempty"`
}

// CriticalBattery is the 400 response when the battery is too low to plan.
type CriticalBattery struct {
	Message        string            `json:"message"`
	UrgencyLevel   string            `json:"urgencyLevel"`
	Recommendation string            `json:"recommendation"`
	NearestStation *CandidateStation `json:"nearestStation,omitempty"`
}

// NoStations is the 404 response when nothing suitable is in range.
type NoStations struct {
	Message           string  `json:"message"`
	SearchRadius      float64 `json:"searchRadius"`
	AvailableStations int     `json:"availableStations"`
	RangeLeft         float64 `json:"rangeLeft"`
}
