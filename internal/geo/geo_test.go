package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceIsZeroForSamePoint(t *testing.T) {
	p := LatLng{Lat: 3.139, Lng: 101.6869}
	assert.Equal(t, 0.0, Distance(p, p))
}

func TestDistanceIsSymmetric(t *testing.T) {
	points := []LatLng{
		{Lat: 3.139, Lng: 101.6869},
		{Lat: 3.15, Lng: 101.71},
		{Lat: -33.8688, Lng: 151.2093},
		{Lat: 51.5074, Lng: -0.1278},
	}
	for _, a := range points {
		for _, b := range points {
			assert.InDelta(t, Distance(a, b), Distance(b, a), 1e-9)
			assert.GreaterOrEqual(t, Distance(a, b), 0.0)
		}
	}
}

func TestDistanceKnownValue(t *testing.T) {
	// One degree of latitude along a meridian.
	d := Distance(LatLng{Lat: 0, Lng: 0}, LatLng{Lat: 1, Lng: 0})
	assert.InDelta(t, EarthRadiusKm*math.Pi/180, d, 1e-9)
	assert.InDelta(t, 111.19, d, 0.01)
}

func TestFromLonLatSwapsOrder(t *testing.T) {
	p := FromLonLat([2]float64{101.6869, 3.139})
	assert.Equal(t, 3.139, p.Lat)
	assert.Equal(t, 101.6869, p.Lng)
	assert.Equal(t, "3.139,101.6869", p.String())
	assert.Equal(t, 101.6869, p.Point().Lon())
}

func TestValid(t *testing.T) {
	assert.True(t, LatLng{Lat: 45, Lng: 90}.Valid())
	assert.False(t, LatLng{Lat: 91, Lng: 0}.Valid())
	assert.False(t, LatLng{Lat: math.NaN(), Lng: 0}.Valid())
}
