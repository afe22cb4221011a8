package application

import (
	"time"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/tracking"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/render"
)

// Timing holds the cadence of every session loop.
type Timing struct {
	MonitorInterval      time.Duration
	TrackingInterval     time.Duration
	TrafficInterval      time.Duration
	TrafficMinSpacing    time.Duration
	TrafficInitialDelay  time.Duration
	VisibilityStaleAfter time.Duration
	GeolocationTimeout   time.Duration
	RestoreMaxAge        time.Duration
}

// DefaultTiming returns the production cadence.
func DefaultTiming() Timing {
	return Timing{
		MonitorInterval:      10 * time.Second,
		TrackingInterval:     10 * time.Second,
		TrafficInterval:      30 * time.Second,
		TrafficMinSpacing:    30 * time.Second,
		TrafficInitialDelay:  5 * time.Second,
		VisibilityStaleAfter: 120 * time.Second,
		GeolocationTimeout:   5 * time.Second,
		RestoreMaxAge:        5 * time.Minute,
	}
}

// Options configures the SessionService.
type Options struct {
	Timing Timing
	Render render.Config
	Policy tracking.Policy
}

// DefaultOptions returns production defaults.
func DefaultOptions() Options {
	return Options{
		Timing: DefaultTiming(),
		Render: render.DefaultConfig(),
		Policy: tracking.DefaultPolicy(),
	}
}
