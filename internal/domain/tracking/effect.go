package tracking

import "github.com/Kilat-Pet-Delivery/service-navigation/internal/geo"

// Effect is an instruction produced by the machine for the session to carry out.
type Effect interface {
	effect()
}

// MarkStopCompleted restyles a stop marker as visited.
type MarkStopCompleted struct {
	Index int
}

// ArrivalNotice tells the user a stop was reached.
type ArrivalNotice struct {
	Index       int
	Label       string
	Description string
}

// DispatchLeg opens external navigation for one leg.
type DispatchLeg struct {
	Origin      geo.LatLng
	Destination geo.LatLng
	TargetIndex int
	// FromRouteStart is set when no live position was known.
	FromRouteStart bool
}

// StartMonitoring arms the arrival-detection loop with an immediate first sample.
type StartMonitoring struct{}

// StopMonitoring cancels the arrival-detection loop.
type StopMonitoring struct{}

// StartTracking arms the display-only position loop.
type StartTracking struct{}

// StopTracking cancels the display-only position loop.
type StopTracking struct{}

// RouteCompleteNotice tells the user the route is finished.
type RouteCompleteNotice struct {
	Arrivals int
}

func (MarkStopCompleted) effect()   {}
func (ArrivalNotice) effect()       {}
func (DispatchLeg) effect()         {}
func (StartMonitoring) effect()     {}
func (StopMonitoring) effect()      {}
func (StartTracking) effect()       {}
func (StopTracking) effect()        {}
func (RouteCompleteNotice) effect() {}
