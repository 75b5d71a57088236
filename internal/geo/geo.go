// Package geo provides great-circle distance math over WGS-84 coordinates.
package geo

import (
	"errors"
	"fmt"
	"math"
)

// EarthRadiusKm is the mean radius of the Earth in kilometers.
const EarthRadiusKm = 6371.0

// ErrInvalidPoint indicates a coordinate outside the valid range or not finite.
var ErrInvalidPoint = errors.New("invalid coordinates")

// Point is a geographic position. Longitude comes first, matching GeoJSON.
type Point struct {
	Lon float64
	Lat float64
}

// NewPoint builds a Point from a GeoJSON-ordered [lon, lat] pair.
func NewPoint(coords []float64) (Point, error) {
	if len(coords) != 2 {
		return Point{}, fmt.Errorf("%w: expected [longitude, latitude], got %d values", ErrInvalidPoint, len(coords))
	}
	p := Point{Lon: coords[0], Lat: coords[1]}
	if err := p.Validate(); err != nil {
		return Point{}, err
	}
	return p, nil
}

// Coordinates returns the point as a GeoJSON [lon, lat] pair.
func (p Point) Coordinates() []float64 {
	return []float64{p.Lon, p.Lat}
}

// Validate checks that the point is finite and within range.
func (p Point) Validate() error {
	if math.IsNaN(p.Lon) || math.IsInf(p.Lon, 0) || math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) {
		return fmt.Errorf("%w: coordinates must be finite", ErrInvalidPoint)
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: latitude %f out of range [-90, 90]", ErrInvalidPoint, p.Lat)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("%w: longitude %f out of range [-180, 180]", ErrInvalidPoint, p.Lon)
	}
	return nil
}

// DistanceKm returns the haversine distance between a and b in kilometers.
func DistanceKm(a, b Point) float64 {
	dLat := degToRad(b.Lat - a.Lat)
	dLon := degToRad(b.Lon - a.Lon)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)

	h := sinLat*sinLat +
		math.Cos(degToRad(a.Lat))*math.Cos(degToRad(b.Lat))*sinLon*sinLon
	// Rounding can push h just past 1 for antipodal points.
	h = math.Min(1, math.Max(0, h))

	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// DistanceMeters returns the haversine distance between a and b in meters.
func DistanceMeters(a, b Point) float64 {
	return DistanceKm(a, b) * 1000
}

// RoundTo rounds v to the given number of decimal places.
func RoundTo(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}
