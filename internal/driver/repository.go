package driver

import "context"

// Repository stores drivers.
type Repository interface {
	// Create stores a new driver. Returns ErrDriverExists when the email or
	// phone number is already registered.
	Create(ctx context.Context, d *Driver) error

	// Get returns a driver by ID or ErrDriverNotFound.
	Get(ctx context.Context, id string) (*Driver, error)

	// FindByEmail returns a driver by lower-cased email or ErrDriverNotFound.
	FindByEmail(ctx context.Context, email string) (*Driver, error)

	// UpdateLocation replaces the driver's current location.
	UpdateLocation(ctx context.Context, id string, loc CurrentLocation) (*Driver, error)
}
