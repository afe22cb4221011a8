// Package tracking is the route-progress state machine. It is pure: every
// operation takes the current State and returns the next State together with
// the effects the caller has to perform.
package tracking

import (
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/geo"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/platform/domain"
)

// DefaultArrivalThresholdKm is the radius around a stop that counts as arrived.
const DefaultArrivalThresholdKm = 0.05

// Policy configures arrival detection.
type Policy struct {
	ArrivalThresholdKm float64
	// Distance defaults to geo.Distance.
	Distance func(a, b geo.LatLng) float64
}

// DefaultPolicy returns the 50 m haversine policy.
func DefaultPolicy() Policy {
	return Policy{ArrivalThresholdKm: DefaultArrivalThresholdKm, Distance: geo.Distance}
}

// Transition is the result of feeding one event to the machine.
type Transition struct {
	State   State
	Effects []Effect
}

// Machine evaluates tracking events.
type Machine struct {
	policy Policy
}

// NewMachine creates a Machine. Zero policy fields take their defaults.
func NewMachine(policy Policy) *Machine {
	if policy.ArrivalThresholdKm <= 0 {
		policy.ArrivalThresholdKm = DefaultArrivalThresholdKm
	}
	if policy.Distance == nil {
		policy.Distance = geo.Distance
	}
	return &Machine{policy: policy}
}

// Policy returns the machine's effective policy.
func (m *Machine) Policy() Policy { return m.policy }

// Receive installs a new route. Progress on any previous route is discarded.
// Display-only tracking is not tied to a route: it stays on and is re-armed
// for the new route.
func (m *Machine) Receive(s State, r *route.Route) (Transition, error) {
	if r == nil || r.Empty() {
		return Transition{}, domain.NewValidationError("route has no stops")
	}

	next := s.clone()
	next.Status = StatusAwaitingStart
	next.Target = r.FirstTarget()
	next.Completed = nil
	next.MonitoringEnabled = false

	var effects []Effect
	if s.MonitoringEnabled {
		effects = append(effects, StopMonitoring{})
	}
	if s.TrackingEnabled {
		effects = append(effects, StartTracking{})
	}
	return Transition{State: next, Effects: effects}, nil
}

// Start begins navigating towards the first target. live is a fresh position
// fix if one could be taken; otherwise the last known position is used, and
// failing that the route start.
func (m *Machine) Start(s State, r *route.Route, live *geo.LatLng) (Transition, error) {
	if !s.Status.CanTransitionTo(StatusNavigating) || s.Status == StatusNavigating {
		return Transition{}, domain.NewInvalidStateError(s.Status.String(), StatusNavigating.String())
	}
	if r == nil || r.Empty() {
		return Transition{}, domain.NewValidationError("route has no stops")
	}

	target := r.FirstTarget()
	dest, _ := r.Stop(target)
	if dest.Closing {
		return Transition{}, domain.NewValidationError("route has no stops to navigate to")
	}

	next := s.clone()
	if live != nil {
		p := *live
		next.LastPosition = &p
	}
	next.Status = StatusNavigating
	next.Target = target
	next.Completed = nil
	next.MonitoringEnabled = true

	leg := DispatchLeg{Destination: dest.Position, TargetIndex: target}
	if next.LastPosition != nil {
		leg.Origin = *next.LastPosition
	} else {
		start, _ := r.Stop(0)
		leg.Origin = start.Position
		leg.FromRouteStart = true
	}

	return Transition{
		State:   next,
		Effects: []Effect{StartMonitoring{}, leg},
	}, nil
}

// Sample evaluates a position fix. At most one stop is reached per sample.
func (m *Machine) Sample(s State, r *route.Route, pos geo.LatLng) Transition {
	next := s.clone()
	next.LastPosition = &pos

	if s.Status != StatusNavigating || r == nil {
		return Transition{State: next}
	}

	target, ok := r.Stop(s.Target)
	if !ok {
		return Transition{State: next}
	}
	if m.policy.Distance(pos, target.Position) > m.policy.ArrivalThresholdKm {
		return Transition{State: next}
	}

	next.Completed = append(next.Completed, target.Index)
	effects := []Effect{
		MarkStopCompleted{Index: target.Index},
		ArrivalNotice{Index: target.Index, Label: target.Label(), Description: target.Description()},
	}

	following, ok := r.Stop(s.Target + 1)
	if !ok || following.Closing {
		next.Status = StatusRouteComplete
		next.MonitoringEnabled = false
		effects = append(effects, StopMonitoring{}, RouteCompleteNotice{Arrivals: len(next.Completed)})
		return Transition{State: next, Effects: effects}
	}

	next.Target = following.Index
	effects = append(effects, DispatchLeg{
		Origin:      pos,
		Destination: following.Position,
		TargetIndex: following.Index,
	})
	return Transition{State: next, Effects: effects}
}

// Observe records a position without evaluating arrival. Display-only reads
// use it so that they can never advance the route.
func (m *Machine) Observe(s State, pos geo.LatLng) Transition {
	next := s.clone()
	next.LastPosition = &pos
	return Transition{State: next}
}

// SampleFailed handles a position read that failed. Nothing changes.
func (m *Machine) SampleFailed(s State) Transition {
	return Transition{State: s.clone()}
}

// SetTracking turns the display-only position loop on or off.
func (m *Machine) SetTracking(s State, enabled bool) Transition {
	next := s.clone()
	if s.TrackingEnabled == enabled {
		return Transition{State: next}
	}
	next.TrackingEnabled = enabled
	if enabled {
		return Transition{State: next, Effects: []Effect{StartTracking{}}}
	}
	return Transition{State: next, Effects: []Effect{StopTracking{}}}
}

// Stop ends navigation and clears progress. Allowed from every state.
func (m *Machine) Stop(s State) Transition {
	next := s.clone()
	next.Status = StatusIdle
	next.Target = 0
	next.Completed = nil
	next.MonitoringEnabled = false
	next.TrackingEnabled = false
	return Transition{State: next, Effects: stopLoops(s)}
}

func stopLoops(s State) []Effect {
	var effects []Effect
	if s.MonitoringEnabled {
		effects = append(effects, StopMonitoring{})
	}
	if s.TrackingEnabled {
		effects = append(effects, StopTracking{})
	}
	return effects
}
