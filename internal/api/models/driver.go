package models

// RegisterRequest is the body of POST /v1/auth/register.
type RegisterRequest struct {
	Name        string       `json:"name"`
	Email       string       `json:"email"`
	Phone       string       `json:"phone"`
	Password    string       `json:"password"`
	VehicleInfo *VehicleInfo `json:"vehicleInfo,omitempty"`
}

// LoginRequest is the body of POST /v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Driver    Driver    `json:"driver"`
	Token     string    `json:"token"`
	ExpiresAt Timestamp `json:"expiresAt"`
}

// Driver is the API representation of a driver account.
type Driver struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Email           string            `json:"email"`
	Phone           string            `json:"phone,omitempty"`
	VehicleInfo     *VehicleInfo      `json:"vehicleInfo,omitempty"`
	CurrentLocation *DriverLocation   `json:"currentLocation,omitempty"`
	Preferences     DriverPreferences `json:"preferences"`
	CreatedAt       Timestamp         `json:"createdAt"`
}

// VehicleInfo describes the driver's vehicle.
type VehicleInfo struct {
	Make               string  `json:"make,omitempty"`
	Model              string  `json:"model,omitempty"`
	Year               int     `json:"year,omitempty"`
	BatteryCapacityKWh float64 `json:"batteryCapacity,omitempty"`
	MaxRangeKm         float64 `json:"maxRange,omitempty"`
	ConnectorType      string  `json:"connectorType,omitempty"`
}

// DriverLocation is the driver's last reported position.
type DriverLocation struct {
	GeoPoint
	Address   string     `json:"address,omitempty"`
	UpdatedAt *Timestamp `json:"updatedAt,omitempty"`
}

// DriverPreferences are the driver's station preferences.
type DriverPreferences struct {
	PreferredConnector string  `json:"preferredConnector,omitempty"`
	MaxDistanceKm      float64 `json:"maxDistance"`
	PreferBatterySwap  bool    `json:"preferBatterySwap"`
}

// LocationUpdateRequest is the body of PUT /v1/drivers/me/location.
type LocationUpdateRequest struct {
	Coordinates []float64 `json:"coordinates"`
	Address     string    `json:"address,omitempty"`
}
