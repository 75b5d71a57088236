package models

// Station is the API representation of a charging or battery-swap station.
type Station struct {
	ID                   string        `json:"id"`
	Name                 string        `json:"name"`
	Operator             string        `json:"operator,omitempty"`
	Address              string        `json:"address,omitempty"`
	Location             GeoPoint      `json:"location"`
	SlotsAvailable       int           `json:"slotsAvailable"`
	TotalSlots           int           `json:"totalSlots"`
	Rating               float64       `json:"rating"`
	TotalReviews         int           `json:"totalReviews"`
	BatterySwapAvailable bool          `json:"batterySwapAvailable"`
	AvailableBatteries   int           `json:"availableBatteries"`
	ConnectorTypes       []string      `json:"connectorTypes,omitempty"`
	ChargingPower        string        `json:"chargingPower,omitempty"`
	Price                string        `json:"price,omitempty"`
	OperatingHours       string        `json:"operatingHours,omitempty"`
	PeakHours            []PeakHour    `json:"peakHours,omitempty"`
	IsOperational        bool          `json:"isOperational"`
	RealTimeData         *RealTimeData `json:"realTimeData,omitempty"`
	CreatedAt            *Timestamp    `json:"createdAt,omitempty"`
	UpdatedAt            *Timestamp    `json:"updatedAt,omitempty"`
}

// PeakHour is a recurring weekly demand window.
type PeakHour struct {
	Day             string  `json:"day"`
	StartTime       string  `json:"startTime"`
	EndTime         string  `json:"endTime"`
	ChargingDemand  string  `json:"chargingDemand"`
	AverageWaitTime int     `json:"averageWaitTime"`
	PriceMultiplier float64 `json:"priceMultiplier,omitempty"`
}

// RealTimeData is the live state reported by station sensors.
type RealTimeData struct {
	CurrentOccupancy  int        `json:"currentOccupancy"`
	QueueLength       int        `json:"queueLength"`
	EstimatedWaitTime int        `json:"estimatedWaitTime"`
	LastUpdated       *Timestamp `json:"lastUpdated,omitempty"`
}

// StationList is a page of stations.
type StationList struct {
	Items []Station         `json:"items"`
	Meta  PagedResponseMeta `json:"meta"`
}

// NearbyStations is the response of a proximity search.
type NearbyStations struct {
	Stations []Station `json:"stations"`
	RadiusKm float64   `json:"radiusKm"`
	Count    int       `json:"count"`
}

// StationCreateRequest is the request body for adding a station.
type StationCreateRequest struct {
	Name                 string     `json:"name"`
	Operator             string     `json:"operator"`
	Address              string     `json:"address"`
	Location             GeoPoint   `json:"location"`
	SlotsAvailable       int        `json:"slotsAvailable"`
	TotalSlots           int        `json:"totalSlots"`
	BatterySwapAvailable bool       `json:"batterySwapAvailable"`
	AvailableBatteries   int        `json:"availableBatteries"`
	ConnectorTypes       []string   `json:"connectorTypes"`
	ChargingPower        string     `json:"chargingPower"`
	Price                string     `json:"price"`
	OperatingHours       string     `json:"operatingHours"`
	PeakHours            []PeakHour `json:"peakHours"`
	IsOperational        *bool      `json:"isOperational,omitempty"`
}

// OccupancyUpdateRequest is the request body for PUT /v1/stations/{stationId}/occupancy.
type OccupancyUpdateRequest struct {
	CurrentOccupancy  *int `json:"currentOccupancy,omitempty"`
	QueueLength       *int `json:"queueLength,omitempty"`
	EstimatedWaitTime *int `json:"estimatedWaitTime,omitempty"`
	SlotsAvailable    *int `json:"slotsAvailable,omitempty"`
}

// OccupancyUpdateResponse confirms a live state update.
type OccupancyUpdateResponse struct {
	Message        string        `json:"message"`
	StationID      string        `json:"stationId"`
	SlotsAvailable int           `json:"slotsAvailable"`
	RealTimeData   *RealTimeData `json:"realTimeData,omitempty"`
}
