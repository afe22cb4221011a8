// Package contracts defines the Kafka topics and event payloads exchanged with
// the rest of the platform.
package contracts

import (
	"time"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/geo"
)

// Topics.
const (
	TopicRouteEvents      = "route.events"
	TopicNavigationEvents = "navigation.events"
)

// Event types consumed from route.events.
const (
	RouteOptimized = "route.optimized"
)

// Event types published on navigation.events.
const (
	NavigationRouteReceived  = "navigation.route_received"
	NavigationStarted        = "navigation.started"
	NavigationStopArrived    = "navigation.stop_arrived"
	NavigationRouteCompleted = "navigation.route_completed"
	NavigationTrafficUpdated = "navigation.traffic_updated"
	NavigationStopped        = "navigation.stopped"
)

// RouteOptimizedEvent carries a freshly planned route for a navigation session.
type RouteOptimizedEvent struct {
	SessionID  string         `json:"session_id"`
	Route      route.Document `json:"route"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// RouteReceivedEvent is published when a session installs a new route.
type RouteReceivedEvent struct {
	SessionID       string    `json:"session_id"`
	Stops           int       `json:"stops"`
	TotalDistanceKm float64   `json:"total_distance_km"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// NavigationStartedEvent is published when the courier starts navigating.
type NavigationStartedEvent struct {
	SessionID      string     `json:"session_id"`
	TargetIndex    int        `json:"target_index"`
	Origin         geo.LatLng `json:"origin"`
	FromRouteStart bool       `json:"from_route_start"`
	OccurredAt     time.Time  `json:"occurred_at"`
}

// StopArrivedEvent is published for every stop reached.
type StopArrivedEvent struct {
	SessionID   string     `json:"session_id"`
	StopIndex   int        `json:"stop_index"`
	Label       string     `json:"label"`
	Description string     `json:"description"`
	Position    geo.LatLng `json:"position"`
	OccurredAt  time.Time  `json:"occurred_at"`
}

// RouteCompletedEvent is published when the last stop is reached.
type RouteCompletedEvent struct {
	SessionID  string    `json:"session_id"`
	Arrivals   int       `json:"arrivals"`
	OccurredAt time.Time `json:"occurred_at"`
}

// TrafficUpdatedEvent is published when a traffic re-check replaced the route.
type TrafficUpdatedEvent struct {
	SessionID    string    `json:"session_id"`
	Reason       string    `json:"reason"`
	ProgressKept bool      `json:"progress_kept"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// NavigationStoppedEvent is published on an explicit stop or clear.
type NavigationStoppedEvent struct {
	SessionID  string    `json:"session_id"`
	Cleared    bool      `json:"cleared"`
	OccurredAt time.Time `json:"occurred_at"`
}
