package application

import (
	"context"
	"sync"
	"time"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/session"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/tracking"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/geolocation"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/render"
)

// Session is the owned context of one navigation session: the map surface,
// the renderer, the tracking state and the loops working on them. All fields
// below mu are guarded by it.
type Session struct {
	id        string
	source    *geolocation.ReportedSource
	createdAt time.Time

	// persistMu serializes snapshot writes so the latest state always wins.
	persistMu sync.Mutex

	mu       sync.Mutex
	route    *route.Route
	state    tracking.State
	surface  *render.GeoJSONSurface
	renderer *render.Renderer

	// epoch changes whenever the route is replaced, stopped or cleared. Loop
	// callbacks compare it to the value captured when they were armed.
	epoch          uint64
	cancelTraffic  context.CancelFunc
	cancelMonitor  context.CancelFunc
	cancelTracking context.CancelFunc

	lastTrafficCheck time.Time
	hidden           bool
	updatedAt        time.Time
}

func newSession(id string, cfg render.Config, now time.Time) *Session {
	surface := render.NewGeoJSONSurface()
	return &Session{
		id:        id,
		source:    geolocation.NewReportedSource(),
		createdAt: now,
		state:     tracking.NewState(),
		surface:   surface,
		renderer:  render.NewRenderer(surface, cfg),
		updatedAt: now,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// cancelLoopsLocked cancels every loop and invalidates pending callbacks.
func (s *Session) cancelLoopsLocked() {
	for _, cancel := range []context.CancelFunc{s.cancelTraffic, s.cancelMonitor, s.cancelTracking} {
		if cancel != nil {
			cancel()
		}
	}
	s.cancelTraffic, s.cancelMonitor, s.cancelTracking = nil, nil, nil
	s.epoch++
}

func (s *Session) snapshotLocked() *session.Snapshot {
	snap := &session.Snapshot{
		SessionID: s.id,
		State:     s.state,
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
	}
	if s.route != nil {
		doc := s.route.Document()
		snap.Route = &doc
	}
	return snap
}

func (s *Session) toDTOLocked() SessionDTO {
	dto := SessionDTO{
		ID:                s.id,
		Status:            s.state.Status.String(),
		HasRoute:          s.route != nil,
		Completed:         append([]int{}, s.state.Completed...),
		TrackingEnabled:   s.state.TrackingEnabled,
		MonitoringEnabled: s.state.MonitoringEnabled,
		Hidden:            s.hidden,
		CreatedAt:         s.createdAt,
		UpdatedAt:         s.updatedAt,
	}
	if s.route != nil {
		dto.StopCount = s.route.StopCount()
	}
	if s.state.Status == tracking.StatusNavigating || s.state.Status == tracking.StatusAwaitingStart {
		target := s.state.Target
		dto.TargetIndex = &target
	}
	if s.state.LastPosition != nil {
		p := *s.state.LastPosition
		dto.LastPosition = &p
	}
	return dto
}
