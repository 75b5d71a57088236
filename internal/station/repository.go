package station

import "context"

// Repository defines the interface for station persistence.
type Repository interface {
	// FindNear returns stations within MaxDistanceMeters of Point, nearest first.
	FindNear(ctx context.Context, q NearQuery) ([]*Station, error)

	// Get retrieves a station by ID.
	Get(ctx context.Context, id string) (*Station, error)

	// List retrieves stations ordered by ID with cursor pagination.
	List(ctx context.Context, opts ListOptions) (*ListResult, error)

	// Create stores a new station.
	Create(ctx context.Context, s *Station) error

	// UpdateOccupancy applies a live state update and returns the updated station.
	UpdateOccupancy(ctx context.Context, id string, update OccupancyUpdate) (*Station, error)
}
