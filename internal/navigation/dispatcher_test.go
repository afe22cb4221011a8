package navigation

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/geo"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/platform/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingOpener struct {
	urls []string
	err  error
}

func (o *recordingOpener) Open(_ context.Context, _ string, u string) error {
	if o.err != nil {
		return o.err
	}
	o.urls = append(o.urls, u)
	return nil
}

func TestRequestURL(t *testing.T) {
	req := Request{
		Origin:      geo.LatLng{Lat: 3.139, Lng: 101.6869},
		Destination: geo.LatLng{Lat: 3.15, Lng: 101.71},
		Waypoints:   []geo.LatLng{{Lat: 3.14, Lng: 101.69}, {Lat: 3.145, Lng: 101.7}},
	}

	u, err := url.Parse(req.URL())
	require.NoError(t, err)
	assert.Equal(t, "www.google.com", u.Host)
	assert.Equal(t, "/maps/dir/", u.Path)

	q := u.Query()
	assert.Equal(t, "1", q.Get("api"))
	assert.Equal(t, "3.139,101.6869", q.Get("origin"))
	assert.Equal(t, "3.15,101.71", q.Get("destination"))
	assert.Equal(t, "3.14,101.69|3.145,101.7", q.Get("waypoints"))
	assert.Equal(t, "driving", q.Get("travelmode"))
}

func TestDispatchLeg(t *testing.T) {
	opener := &recordingOpener{}
	d := NewDispatcher(opener)

	u, err := d.DispatchLeg(context.Background(), "s1", geo.LatLng{Lat: 1, Lng: 2}, geo.LatLng{Lat: 3, Lng: 4})
	require.NoError(t, err)
	require.Len(t, opener.urls, 1)
	assert.Equal(t, u, opener.urls[0])

	parsed, err := url.Parse(u)
	require.NoError(t, err)
	_, hasWaypoints := parsed.Query()["waypoints"]
	assert.False(t, hasWaypoints)
}

func TestDispatchRouteOmitsClosingStop(t *testing.T) {
	r, err := route.FromDocument(route.Document{
		Coordinates: [][]float64{{101.0, 3.0}, {101.1, 3.1}, {101.2, 3.2}, {101.3, 3.3}, {101.0, 3.0}},
	})
	require.NoError(t, err)

	opener := &recordingOpener{}
	u, err := NewDispatcher(opener).DispatchRoute(context.Background(), "s1", r)
	require.NoError(t, err)

	parsed, err := url.Parse(u)
	require.NoError(t, err)
	q := parsed.Query()
	assert.Equal(t, "3,101", q.Get("origin"))
	assert.Equal(t, "3.3,101.3", q.Get("destination"))
	assert.Equal(t, "3.1,101.1|3.2,101.2", q.Get("waypoints"))
}

func TestDispatchRouteNeedsTwoStops(t *testing.T) {
	for _, coords := range [][][]float64{
		{{101.0, 3.0}},
		{{101.0, 3.0}, {101.0, 3.0}},
	} {
		r, err := route.FromDocument(route.Document{Coordinates: coords})
		require.NoError(t, err)

		opener := &recordingOpener{}
		_, err = NewDispatcher(opener).DispatchRoute(context.Background(), "s1", r)
		assert.True(t, domain.IsValidation(err))
		assert.Empty(t, opener.urls, "nothing is opened")
	}
}

func TestDispatchOpenerFailure(t *testing.T) {
	d := NewDispatcher(&recordingOpener{err: errors.New("no client connected")})
	_, err := d.DispatchLeg(context.Background(), "s1", geo.LatLng{}, geo.LatLng{Lat: 1})
	assert.ErrorContains(t, err, "no client connected")
}
