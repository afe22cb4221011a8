package application

import (
	"time"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/geo"
)

// SessionDTO is the response representation of a navigation session.
type SessionDTO struct {
	ID                string      `json:"id"`
	Status            string      `json:"status"`
	HasRoute          bool        `json:"has_route"`
	StopCount         int         `json:"stop_count"`
	TargetIndex       *int        `json:"target_index,omitempty"`
	Completed         []int       `json:"completed"`
	LastPosition      *geo.LatLng `json:"last_position,omitempty"`
	TrackingEnabled   bool        `json:"tracking_enabled"`
	MonitoringEnabled bool        `json:"monitoring_enabled"`
	Hidden            bool        `json:"hidden"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// SessionStatsDTO counts sessions per tracking status.
type SessionStatsDTO struct {
	TotalSessions int            `json:"total_sessions"`
	ByStatus      map[string]int `json:"by_status"`
}

// PositionRequest is a position report from the device.
type PositionRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	AccuracyM float64  `json:"accuracy_m"`
	// Denied reports that the user refused location access instead of a fix.
	Denied bool `json:"denied"`
}

// TrafficCheckDTO reports the outcome of a traffic re-check.
type TrafficCheckDTO struct {
	Checked bool   `json:"checked"`
	Updated bool   `json:"updated"`
	Reason  string `json:"reason,omitempty"`
	// Failed is set when the backend could not be reached. The check is
	// skipped and the next scheduled one retries.
	Failed  bool   `json:"failed,omitempty"`
}
