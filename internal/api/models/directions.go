package models

// DirectionsRequest is the body of POST /v1/directions.
type DirectionsRequest struct {
	Origin      LatLng `json:"origin"`
	Destination LatLng `json:"destination"`
	Mode        string `json:"mode,omitempty"`
}

// Directions is the response of a directions lookup.
type Directions struct {
	Provider  string     `json:"provider"`
	Routes    []RouteLeg `json:"routes"`
	FetchedAt Timestamp  `json:"fetchedAt"`
}

// RouteLeg is one alternative route.
type RouteLeg struct {
	Summary         string      `json:"summary,omitempty"`
	DistanceMeters  int         `json:"distanceMeters"`
	DurationSeconds int         `json:"durationSeconds"`
	Polyline        string      `json:"polyline,omitempty"`
	Path            [][]float64 `json:"path,omitempty"`
	Steps           []RouteStep `json:"steps,omitempty"`
}

// RouteStep is a single maneuver.
type RouteStep struct {
	Instruction     string `json:"instruction"`
	Maneuver        string `json:"maneuver,omitempty"`
	DistanceMeters  int    `json:"distanceMeters"`
	DurationSeconds int    `json:"durationSeconds"`
	Start           LatLng `json:"start"`
	End             LatLng `json:"end"`
}
