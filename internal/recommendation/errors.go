package recommendation

import (
	"errors"
	"fmt"

	"github.com/chargeroute/chargeroute/internal/api/models"
)

// Sentinel errors for recommendation requests.
var (
	// ErrInvalidInput indicates the query failed validation before any lookup.
	ErrInvalidInput = errors.New("invalid recommendation input")
	// ErrRepository indicates the station lookup failed.
	ErrRepository = errors.New("station repository error")
	// ErrAdvisoryUnavailable indicates the advisory call failed or timed out.
	ErrAdvisoryUnavailable = errors.New("advisory service unavailable")
	// ErrAdvisoryMalformed indicates the advisory reply could not be used.
	ErrAdvisoryMalformed = errors.New("advisory reply malformed")

	errAdvisoryDisabled = errors.New("disabled by feature flag")
)

// ValidationError lists the fields that violated input constraints.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %d field(s) invalid", ErrInvalidInput, len(e.Errors))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// RepositoryError wraps a failed station lookup.
type RepositoryError struct {
	Err error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("%s: %v", ErrRepository, e.Err)
}

// Unwrap supports errors.Is against both ErrRepository and the cause.
func (e *RepositoryError) Unwrap() []error {
	return []error{ErrRepository, e.Err}
}
