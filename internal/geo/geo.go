// Package geo holds the coordinate type shared by every navigation component
// and the great-circle distance between two coordinates.
package geo

import (
	"math"
	"strconv"

	"github.com/paulmach/orb"
)

// EarthRadiusKm is the mean Earth radius used for distance calculations.
const EarthRadiusKm = 6371.0

// LatLng is a WGS84 coordinate in degrees, latitude first.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// FromLonLat converts an external [longitude, latitude] pair.
func FromLonLat(pair [2]float64) LatLng {
	return LatLng{Lat: pair[1], Lng: pair[0]}
}

// Valid reports whether the coordinate is inside the WGS84 range.
func (p LatLng) Valid() bool {
	return !math.IsNaN(p.Lat) && !math.IsNaN(p.Lng) &&
		p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Point returns the orb point (x = lng, y = lat) for rendering.
func (p LatLng) Point() orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

// String formats the coordinate as "lat,lng", the form navigation apps expect.
func (p LatLng) String() string {
	return formatDegrees(p.Lat) + "," + formatDegrees(p.Lng)
}

// Equal reports exact coordinate equality.
func (p LatLng) Equal(o LatLng) bool {
	return p.Lat == o.Lat && p.Lng == o.Lng
}

// Distance returns the haversine distance between a and b in kilometers.
func Distance(a, b LatLng) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	lat1 := degreesToRadians(a.Lat)
	lat2 := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLng/2)*math.Sin(dLng/2)*math.Cos(lat1)*math.Cos(lat2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKm * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func formatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
