// Package navigation hands legs and whole routes to an external turn-by-turn
// navigation app.
package navigation

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/geo"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/platform/domain"
)

const (
	directionsURL = "https://www.google.com/maps/dir/"
	travelMode    = "driving"
)

// Request is one navigation request.
type Request struct {
	Origin      geo.LatLng
	Destination geo.LatLng
	Waypoints   []geo.LatLng
}

// URL returns the Google Maps directions URL for the request.
func (r Request) URL() string {
	q := url.Values{}
	q.Set("api", "1")
	q.Set("origin", r.Origin.String())
	q.Set("destination", r.Destination.String())
	if len(r.Waypoints) > 0 {
		points := make([]string, len(r.Waypoints))
		for i, w := range r.Waypoints {
			points[i] = w.String()
		}
		q.Set("waypoints", strings.Join(points, "|"))
	}
	q.Set("travelmode", travelMode)
	return directionsURL + "?" + q.Encode()
}

// Opener opens a URL in a new context on the user's device without replacing
// the current view.
type Opener interface {
	Open(ctx context.Context, sessionID, url string) error
}

// Dispatcher builds navigation requests and hands them to an Opener.
type Dispatcher struct {
	opener Opener
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(opener Opener) *Dispatcher {
	return &Dispatcher{opener: opener}
}

// DispatchLeg opens navigation from origin to destination.
func (d *Dispatcher) DispatchLeg(ctx context.Context, sessionID string, origin, destination geo.LatLng) (string, error) {
	req := Request{Origin: origin, Destination: destination}
	return d.open(ctx, sessionID, req)
}

// DispatchRoute opens navigation through the whole route: first stop to last
// real stop with everything in between as ordered waypoints. A closing stop
// that returns to the start is never included.
func (d *Dispatcher) DispatchRoute(ctx context.Context, sessionID string, r *route.Route) (string, error) {
	req, err := WholeRouteRequest(r)
	if err != nil {
		return "", err
	}
	return d.open(ctx, sessionID, req)
}

// WholeRouteRequest builds the request for DispatchRoute.
func WholeRouteRequest(r *route.Route) (Request, error) {
	if r == nil {
		return Request{}, domain.NewValidationError("no route to navigate")
	}
	stops := r.TargetStops()
	if len(stops) < 2 {
		return Request{}, domain.NewValidationError("route needs at least two stops to navigate")
	}

	req := Request{
		Origin:      stops[0].Position,
		Destination: stops[len(stops)-1].Position,
	}
	for _, s := range stops[1 : len(stops)-1] {
		req.Waypoints = append(req.Waypoints, s.Position)
	}
	return req, nil
}

func (d *Dispatcher) open(ctx context.Context, sessionID string, req Request) (string, error) {
	u := req.URL()
	if err := d.opener.Open(ctx, sessionID, u); err != nil {
		return "", fmt.Errorf("failed to open navigation: %w", err)
	}
	return u, nil
}
