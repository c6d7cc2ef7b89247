// Package geo implements great-circle distance math on WGS84 degrees.
package geo

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"
)

// Earth radius constants used by the haversine formula.
const (
	EarthRadiusMiles = 3958.8
	EarthRadiusKm    = 6371.0

	// MilesPerKm converts kilometres to miles.
	MilesPerKm = 0.621371
)

// Unit selects the unit distances are expressed in.
type Unit string

const (
	Miles      Unit = "mi"
	Kilometers Unit = "km"
)

// ParseUnit maps user input to a Unit. Blank input yields Miles.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mi", "mile", "miles":
		return Miles, nil
	case "km", "kms", "kilometer", "kilometers", "kilometre", "kilometres":
		return Kilometers, nil
	default:
		return "", eris.Errorf("geo: unknown distance unit %q", s)
	}
}

// EarthRadius returns the Earth radius in u. Unknown units fall back to miles.
func EarthRadius(u Unit) float64 {
	if u == Kilometers {
		return EarthRadiusKm
	}
	return EarthRadiusMiles
}

// Point is a coordinate pair in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether p lies within [-90,90] x [-180,180].
func (p Point) Valid() bool {
	return ValidCoordinates(p.Lat, p.Lng)
}

// ValidCoordinates reports whether lat/lng are valid geographic coordinates.
func ValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// PointFrom builds a point from optional coordinates; nil when either is missing.
func PointFrom(lat, lng *float64) *Point {
	if lat == nil || lng == nil {
		return nil
	}
	return &Point{Lat: *lat, Lng: *lng}
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Distance returns the haversine distance between a and b in u.
func Distance(a, b Point, u Unit) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	// float drift can push h a hair outside [0,1]
	h = math.Min(1, math.Max(0, h))

	return EarthRadius(u) * 2 * math.Asin(math.Sqrt(h))
}

// WithinRadius reports whether candidate lies within radiusMiles of center (inclusive).
// A missing point on either side is never within radius.
func WithinRadius(center, candidate *Point, radiusMiles float64) bool {
	if center == nil || candidate == nil {
		return false
	}
	return Distance(*center, *candidate, Miles) <= radiusMiles
}

// Box is a lat/lng rectangle.
type Box struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// BoundingBox returns a rectangle that contains every point within radius of center.
// Longitude spans are widened to the full range near the poles.
func BoundingBox(center Point, radius float64, u Unit) Box {
	angular := radius / EarthRadius(u)
	dLat := angular * 180 / math.Pi

	box := Box{
		MinLat: math.Max(-90, center.Lat-dLat),
		MaxLat: math.Min(90, center.Lat+dLat),
		MinLng: -180,
		MaxLng: 180,
	}

	cosLat := math.Cos(radians(center.Lat))
	if cosLat > 1e-9 {
		dLng := angular / cosLat * 180 / math.Pi
		if dLng < 180 {
			box.MinLng = math.Max(-180, center.Lng-dLng)
			box.MaxLng = math.Min(180, center.Lng+dLng)
		}
	}
	return box
}

// Round rounds v to the given number of decimals.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
