package tracking

import "fmt"

// Status is the progress tracker's lifecycle state.
type Status string

const (
	StatusIdle          Status = "idle"
	StatusAwaitingStart Status = "awaiting_start"
	StatusNavigating    Status = "navigating"
	StatusRouteComplete Status = "route_complete"
)

// validTransitions defines the state machine for route progress.
// Receiving a route is allowed from every state and replaces the old one.
var validTransitions = map[Status][]Status{
	StatusIdle:          {StatusAwaitingStart, StatusIdle},
	StatusAwaitingStart: {StatusNavigating, StatusAwaitingStart, StatusIdle},
	StatusNavigating:    {StatusNavigating, StatusRouteComplete, StatusAwaitingStart, StatusIdle},
	StatusRouteComplete: {StatusAwaitingStart, StatusIdle},
}

// IsValid returns true if the status is a recognized tracking status.
func (s Status) IsValid() bool {
	_, exists := validTransitions[s]
	return exists
}

// CanTransitionTo returns true if a transition from this status to the target is allowed.
func (s Status) CanTransitionTo(target Status) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true for the end of a route. A new route may still be received.
func (s Status) IsTerminal() bool {
	return s == StatusRouteComplete
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// ParseStatus converts a string to a Status, returning an error if invalid.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid tracking status: %s", s)
	}
	return status, nil
}
