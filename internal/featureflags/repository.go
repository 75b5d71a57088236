package featureflags

import (
	"context"
	"errors"
)

// ErrFlagNotFound is returned when no override is stored for a key.
var ErrFlagNotFound = errors.New("feature flag not found")

// Repository stores flag overrides. Keys without an override take their
// definition's default.
type Repository interface {
	// List returns every stored override.
	List(ctx context.Context) ([]Flag, error)

	// Upsert writes all overrides or none of them.
	Upsert(ctx context.Context, flags []Flag) error

	// Delete removes an override. It returns ErrFlagNotFound when none exists.
	Delete(ctx context.Context, key string) error
}
