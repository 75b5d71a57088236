// Package driver manages driver accounts, credentials and last known location.
package driver

import (
	"errors"
	"fmt"
	"time"

	"github.com/chargeroute/chargeroute/internal/api/models"
	"github.com/chargeroute/chargeroute/internal/geo"
)

// Sentinel errors for driver operations.
var (
	ErrDriverNotFound     = errors.New("driver not found")
	ErrDriverExists       = errors.New("driver already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid access token")
	ErrTokenExpired       = errors.New("access token has expired")
)

// Driver is a registered EV driver.
type Driver struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Email           string           `json:"email"`
	Phone           string           `json:"phone,omitempty"`
	PasswordHash    string           `json:"-"`
	Vehicle         *VehicleInfo     `json:"vehicleInfo,omitempty"`
	CurrentLocation *CurrentLocation `json:"currentLocation,omitempty"`
	Preferences     Preferences      `json:"preferences"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
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

// CurrentLocation is the driver's last reported position.
type CurrentLocation struct {
	Point     geo.Point `json:"-"`
	Address   string    `json:"address,omitempty"`
	UpdatedAt time.Time `json:"lastUpdated"`
}

// Preferences hold the driver's search preferences.
type Preferences struct {
	PreferredConnector string  `json:"preferredConnector,omitempty"`
	MaxDistanceKm      float64 `json:"maxDistance"`
	PreferBatterySwap  bool    `json:"preferBatterySwap"`
}

// DefaultMaxDistanceKm is the search distance preference for new drivers.
const DefaultMaxDistanceKm = 50

// RegisterInput is the data needed to create a driver.
type RegisterInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Vehicle  *VehicleInfo
}

// LocationInput updates the driver's position.
type LocationInput struct {
	Point   geo.Point
	Address string
}

// ValidationError lists the fields that failed validation.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %d field(s) invalid", len(e.Errors))
}
