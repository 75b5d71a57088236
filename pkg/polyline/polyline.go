// Package polyline implements Google's encoded polyline algorithm for route
// geometries returned by map providers.
// See https://developers.google.com/maps/documentation/utilities/polylinealgorithm
package polyline

import (
	"errors"
	"math"

	"github.com/chargeroute/chargeroute/internal/geo"
)

// DefaultPrecision is the number of decimal places used by Google and Ola Maps.
const DefaultPrecision = 5

// ErrTruncated is returned when the encoded string ends inside a value.
var ErrTruncated = errors.New("polyline: truncated input")

// ErrInvalidCharacter is returned for bytes outside the polyline alphabet.
var ErrInvalidCharacter = errors.New("polyline: invalid character")

// Decode decodes a precision-5 polyline into points.
func Decode(encoded string) ([]geo.Point, error) {
	return DecodePrecision(encoded, DefaultPrecision)
}

// DecodePrecision decodes a polyline encoded with the given number of decimal places.
func DecodePrecision(encoded string, precision int) ([]geo.Point, error) {
	if encoded == "" {
		return nil, nil
	}
	factor := math.Pow10(precision)

	points := make([]geo.Point, 0, len(encoded)/4)
	var lat, lon, index int
	for index < len(encoded) {
		dLat, next, err := decodeValue(encoded, index)
		if err != nil {
			return nil, err
		}
		dLon, next, err := decodeValue(encoded, next)
		if err != nil {
			return nil, err
		}
		index = next
		lat += dLat
		lon += dLon

		points = append(points, geo.Point{
			Lat: float64(lat) / factor,
			Lon: float64(lon) / factor,
		})
	}
	return points, nil
}

func decodeValue(encoded string, index int) (int, int, error) {
	var result, shift int
	for {
		if index >= len(encoded) {
			return 0, index, ErrTruncated
		}
		b := int(encoded[index]) - 63
		if b < 0 || b > 0x3f {
			return 0, index, ErrInvalidCharacter
		}
		index++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}

	if result&1 != 0 {
		return ^(result >> 1), index, nil
	}
	return result >> 1, index, nil
}

// Encode encodes points with precision 5.
func Encode(points []geo.Point) string {
	return EncodePrecision(points, DefaultPrecision)
}

// EncodePrecision encodes points with the given number of decimal places.
func EncodePrecision(points []geo.Point, precision int) string {
	if len(points) == 0 {
		return ""
	}
	factor := math.Pow10(precision)

	buf := make([]byte, 0, len(points)*6)
	var prevLat, prevLon int
	for _, p := range points {
		lat := int(math.Round(p.Lat * factor))
		lon := int(math.Round(p.Lon * factor))

		buf = encodeValue(buf, lat-prevLat)
		buf = encodeValue(buf, lon-prevLon)
		prevLat, prevLon = lat, lon
	}
	return string(buf)
}

func encodeValue(buf []byte, value int) []byte {
	if value < 0 {
		value = ^(value << 1)
	} else {
		value <<= 1
	}
	for value >= 0x20 {
		buf = append(buf, byte((value&0x1f)|0x20)+63)
		value >>= 5
	}
	return append(buf, byte(value)+63)
}

// Length returns the haversine length of the path in meters.
func Length(points []geo.Point) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += geo.DistanceMeters(points[i-1], points[i])
	}
	return total
}

// Bounds returns the south-west and north-east corners of the path.
// ok is false for an empty path.
func Bounds(points []geo.Point) (sw, ne geo.Point, ok bool) {
	if len(points) == 0 {
		return geo.Point{}, geo.Point{}, false
	}
	sw, ne = points[0], points[0]
	for _, p := range points[1:] {
		sw.Lat = math.Min(sw.Lat, p.Lat)
		sw.Lon = math.Min(sw.Lon, p.Lon)
		ne.Lat = math.Max(ne.Lat, p.Lat)
		ne.Lon = math.Max(ne.Lon, p.Lon)
	}
	return sw, ne, true
}
