// Package directions proxies driving directions from a map provider to
// drivers heading to a recommended station.
package directions

import (
	"context"
	"errors"
	"time"

	"github.com/chargeroute/chargeroute/internal/geo"
)

// Sentinel errors for directions lookups.
var (
	// ErrProviderUnavailable indicates the provider is down or the circuit breaker is open.
	ErrProviderUnavailable = errors.New("directions provider unavailable")
	// ErrNoRouteFound indicates the provider returned no route between the points.
	ErrNoRouteFound = errors.New("no route found between the given points")
	// ErrRateLimitExceeded indicates the provider quota has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrInvalidRequest indicates the origin, destination or mode is invalid.
	ErrInvalidRequest = errors.New("invalid directions request")
)

// Provider fetches routes from an external map service.
type Provider interface {
	GetDirections(ctx context.Context, req Request) (*Response, error)
	Name() string
}

// Mode is the travel mode requested from the provider.
type Mode string

// Supported travel modes.
const (
	ModeDriving Mode = "driving"
	ModeWalking Mode = "walking"
	ModeBike    Mode = "bike"
)

// Valid reports whether m is a supported mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeDriving, ModeWalking, ModeBike:
		return true
	}
	return false
}

// Request asks for routes between two points.
type Request struct {
	Origin      geo.Point
	Destination geo.Point
	Mode        Mode
}

// Response holds the routes returned by the provider.
type Response struct {
	Routes    []Route
	Provider  string
	FetchedAt time.Time
}

// Route is one route option.
type Route struct {
	Summary         string
	DistanceMeters  int
	DurationSeconds int
	Polyline        string
	Path            []geo.Point
	Steps           []Step
}

// Step is a single manoeuvre.
type Step struct {
	Instruction     string
	Maneuver        string
	DistanceMeters  int
	DurationSeconds int
	Start           geo.Point
	End             geo.Point
}

// Error carries provider detail for a failed lookup.
type Error struct {
	Provider string
	Code     string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}
