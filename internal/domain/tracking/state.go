package tracking

import "github.com/Kilat-Pet-Delivery/service-navigation/internal/geo"

// State is the progress tracker's data. It is a value: the machine never
// mutates the State it is given.
type State struct {
	Status            Status      `json:"status"`
	Target            int         `json:"target"`
	LastPosition      *geo.LatLng `json:"last_position,omitempty"`
	TrackingEnabled   bool        `json:"tracking_enabled"`
	MonitoringEnabled bool        `json:"monitoring_enabled"`
	Completed         []int       `json:"completed,omitempty"`
}

// NewState returns the idle state.
func NewState() State {
	return State{Status: StatusIdle}
}

// IsCompleted reports whether the stop at index was reached.
func (s State) IsCompleted(index int) bool {
	for _, c := range s.Completed {
		if c == index {
			return true
		}
	}
	return false
}

func (s State) clone() State {
	out := s
	if s.LastPosition != nil {
		p := *s.LastPosition
		out.LastPosition = &p
	}
	out.Completed = append([]int(nil), s.Completed...)
	return out
}
