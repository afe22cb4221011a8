package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/contracts"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/session"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/tracking"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/geo"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/geolocation"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/navigation"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/platform/domain"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/platform/kafka"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/render"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// SessionService is the application service orchestrating navigation sessions.
type SessionService struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	machine    *tracking.Machine
	dispatcher *navigation.Dispatcher
	store      session.Store
	traffic    TrafficChecker
	notifier   Notifier
	publisher  EventPublisher
	opts       Options
	logger     *zap.Logger

	loops  conc.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	now    func() time.Time
}

// NewSessionService creates a new SessionService. Close must be called to stop its loops.
func NewSessionService(
	store session.Store,
	traffic TrafficChecker,
	notifier Notifier,
	opener navigation.Opener,
	publisher EventPublisher,
	opts Options,
	logger *zap.Logger,
) *SessionService {
	ctx, cancel := context.WithCancel(context.Background())
	return &SessionService{
		sessions:   make(map[string]*Session),
		machine:    tracking.NewMachine(opts.Policy),
		dispatcher: navigation.NewDispatcher(opener),
		store:      store,
		traffic:    traffic,
		notifier:   notifier,
		publisher:  publisher,
		opts:       opts,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
		now:        time.Now,
	}
}

// Close cancels every session loop and waits for them to return.
func (svc *SessionService) Close() {
	svc.cancel()
	svc.mu.RLock()
	for _, s := range svc.sessions {
		s.mu.Lock()
		s.cancelLoopsLocked()
		s.mu.Unlock()
	}
	svc.mu.RUnlock()
	svc.loops.Wait()
}

// CreateSession starts a new, empty navigation session.
func (svc *SessionService) CreateSession(ctx context.Context) (*SessionDTO, error) {
	s := svc.newSession(uuid.New().String(), svc.now().UTC())

	svc.mu.Lock()
	svc.sessions[s.id] = s
	svc.mu.Unlock()

	svc.persist(ctx, s)
	svc.logger.Info("navigation session created", zap.String("session_id", s.id))

	s.mu.Lock()
	defer s.mu.Unlock()
	result := s.toDTOLocked()
	return &result, nil
}

// GetSession returns the current state of a session.
func (svc *SessionService) GetSession(ctx context.Context, id string) (*SessionDTO, error) {
	s, err := svc.getSession(ctx, id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	result := s.toDTOLocked()
	return &result, nil
}

// EndSession stops a session's loops and forgets it.
func (svc *SessionService) EndSession(ctx context.Context, id string) error {
	s, err := svc.getSession(ctx, id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cancelLoopsLocked()
	s.mu.Unlock()

	svc.mu.Lock()
	delete(svc.sessions, id)
	svc.mu.Unlock()

	if svc.store != nil {
		if err := svc.store.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete session snapshot: %w", err)
		}
	}
	svc.logger.Info("navigation session ended", zap.String("session_id", id))
	return nil
}

// ReceiveRoute installs a new route in the session, replacing any previous one.
func (svc *SessionService) ReceiveRoute(ctx context.Context, id string, doc route.Document) (*SessionDTO, error) {
	s, err := svc.getSession(ctx, id)
	if err != nil {
		return nil, err
	}

	r, err := route.FromDocument(doc)
	if err != nil {
		svc.notice(id, Notice{Level: NoticeWarning, Title: "Invalid route", Message: err.Error()})
		return nil, err
	}
	if r.Empty() {
		svc.notice(id, Notice{Level: NoticeWarning, Title: "No route", Message: "The route has no stops to display."})
		return nil, domain.NewValidationError("route has no stops")
	}

	s.mu.Lock()
	pending, err := svc.installRouteLocked(s, r)
	result := s.toDTOLocked()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	svc.persist(ctx, s)
	svc.publishAll(ctx, pending)
	svc.logger.Info("route installed",
		zap.String("session_id", id),
		zap.Int("stops", r.StopCount()),
	)
	return &result, nil
}

// StartNavigation starts guiding the courier to the first target stop.
func (svc *SessionService) StartNavigation(ctx context.Context, id string) (*SessionDTO, error) {
	s, err := svc.getSession(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.route == nil || s.state.Status == tracking.StatusNavigating {
		from := s.state.Status.String()
		s.mu.Unlock()
		return nil, domain.NewInvalidStateError(from, tracking.StatusNavigating.String())
	}
	epoch := s.epoch
	s.mu.Unlock()

	// The position read happens outside the lock; it can take the full timeout.
	var live *geo.LatLng
	fix, err := s.source.Current(ctx, geolocation.Options{Timeout: svc.opts.Timing.GeolocationTimeout})
	if err != nil {
		svc.logger.Debug("no live position for navigation start",
			zap.String("session_id", id),
			zap.Error(err),
		)
	} else {
		live = &fix.Position
	}

	s.mu.Lock()
	if s.epoch != epoch || s.route == nil {
		from := s.state.Status.String()
		s.mu.Unlock()
		return nil, domain.NewInvalidStateError(from, tracking.StatusNavigating.String())
	}

	var pending []outboundEvent
	if s.state.Status != tracking.StatusAwaitingStart {
		// Restarting after a stop or a finished route begins the route afresh.
		p, err := svc.installRouteLocked(s, s.route)
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
		pending = append(pending, p...)
	}

	tr, err := svc.machine.Start(s.state, s.route, live)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	pending = append(pending, svc.applyLocked(s, tr)...)
	for _, e := range tr.Effects {
		if leg, ok := e.(tracking.DispatchLeg); ok {
			pending = append(pending, outboundEvent{
				eventType: contracts.NavigationStarted,
				data: contracts.NavigationStartedEvent{
					SessionID:      id,
					TargetIndex:    leg.TargetIndex,
					Origin:         leg.Origin,
					FromRouteStart: leg.FromRouteStart,
					OccurredAt:     svc.now().UTC(),
				},
			})
		}
	}
	result := s.toDTOLocked()
	s.mu.Unlock()

	svc.persist(ctx, s)
	svc.publishAll(ctx, pending)
	return &result, nil
}

// StopNavigation stops navigating and every loop of the session. The route stays
// on the map and navigation can be started again.
func (svc *SessionService) StopNavigation(ctx context.Context, id string) (*SessionDTO, error) {
	return svc.stop(ctx, id, false)
}

// ClearRoute stops navigation and removes the route.
func (svc *SessionService) ClearRoute(ctx context.Context, id string) (*SessionDTO, error) {
	return svc.stop(ctx, id, true)
}

func (svc *SessionService) stop(ctx context.Context, id string, clear bool) (*SessionDTO, error) {
	s, err := svc.getSession(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cancelLoopsLocked()
	tr := svc.machine.Stop(s.state)
	pending := svc.applyLocked(s, tr)
	if clear {
		s.renderer.Clear()
		s.route = nil
		svc.notifier.Notify(id, MessageRouteRendered, s.surface.View())
		svc.notice(id, Notice{Level: NoticeInfo, Title: "Route cleared", Message: "The route was removed from the map."})
	} else {
		svc.notice(id, Notice{Level: NoticeInfo, Title: "Navigation stopped", Message: "Automatic route monitoring is off."})
	}
	s.updatedAt = svc.now().UTC()
	pending = append(pending, outboundEvent{
		eventType: contracts.NavigationStopped,
		data:      contracts.NavigationStoppedEvent{SessionID: id, Cleared: clear, OccurredAt: s.updatedAt},
	})
	result := s.toDTOLocked()
	s.mu.Unlock()

	svc.persist(ctx, s)
	svc.publishAll(ctx, pending)
	return &result, nil
}

// ReportPosition records a fix (or a denial) pushed by the device. It wakes any
// reader waiting for a position; it never advances the route by itself.
func (svc *SessionService) ReportPosition(ctx context.Context, id string, req PositionRequest) (*geolocation.Fix, error) {
	s, err := svc.getSession(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Denied {
		s.source.Deny()
		return nil, nil
	}
	if req.Latitude == nil || req.Longitude == nil {
		return nil, domain.NewValidationError("latitude and longitude are required")
	}
	pos := geo.LatLng{Lat: *req.Latitude, Lng: *req.Longitude}
	if !pos.Valid() {
		return nil, domain.NewValidationError("coordinate out of range")
	}

	fix := s.source.Report(pos, req.AccuracyM)
	return &fix, nil
}

// LocateOnce takes a single user-requested position read and shows it on the map.
// Unlike background reads, a failure here is reported to the user.
func (svc *SessionService) LocateOnce(ctx context.Context, id string) (*SessionDTO, error) {
	s, err := svc.getSession(ctx, id)
	if err != nil {
		return nil, err
	}

	fix, err := s.source.Current(ctx, geolocation.Options{Timeout: svc.opts.Timing.GeolocationTimeout})
	if err != nil {
		svc.notice(id, Notice{Level: NoticeError, Title: "Location unavailable", Message: locateErrorText(err)})
		return nil, domain.NewUnavailableError(fmt.Sprintf("could not determine location: %v", err))
	}

	s.mu.Lock()
	svc.showPositionLocked(s, fix)
	result := s.toDTOLocked()
	s.mu.Unlock()
	return &result, nil
}

// SetTracking turns continuous display tracking on or off.
func (svc *SessionService) SetTracking(ctx context.Context, id string, enabled bool) (*SessionDTO, error) {
	s, err := svc.getSession(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	tr := svc.machine.SetTracking(s.state, enabled)
	changed := len(tr.Effects) > 0
	svc.applyLocked(s, tr)
	if changed && enabled {
		svc.notice(id, Notice{Level: NoticeInfo, Title: "Location tracking enabled", Message: "Your position will be refreshed every few seconds."})
	} else if changed {
		svc.notice(id, Notice{Level: NoticeInfo, Title: "Location tracking disabled"})
	}
	result := s.toDTOLocked()
	s.mu.Unlock()

	if changed {
		svc.persist(ctx, s)
	}
	return &result, nil
}

// DispatchWholeRoute opens the whole route in the external navigation app.
func (svc *SessionService) DispatchWholeRoute(ctx context.Context, id string) (string, error) {
	s, err := svc.getSession(ctx, id)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.route == nil {
		svc.notice(id, Notice{Level: NoticeWarning, Title: "No route", Message: "Plan a route before opening navigation."})
		return "", domain.NewValidationError("no route to navigate")
	}
	u, err := svc.dispatcher.DispatchRoute(svc.ctx, id, s.route)
	if err != nil {
		if domain.IsValidation(err) {
			svc.notice(id, Notice{Level: NoticeWarning, Title: "Route too short", Message: "At least two stops are needed to open navigation."})
		}
		return "", err
	}
	svc.notice(id, Notice{Level: NoticeSuccess, Title: "Route opened in Google Maps", Message: "All stops were added to navigation."})
	return u, nil
}

// ClientConnected brings a newly connected client up to date and makes one
// opportunistic attempt to show the user's last known location.
func (svc *SessionService) ClientConnected(ctx context.Context, id string) error {
	s, err := svc.getSession(ctx, id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	svc.notifier.Notify(id, MessageState, s.toDTOLocked())
	if s.route != nil {
		svc.notifier.Notify(id, MessageRouteRendered, s.surface.View())
	}
	s.mu.Unlock()

	svc.goLoop(func() {
		opts := geolocation.Options{
			Timeout: svc.opts.Timing.GeolocationTimeout,
			MaxAge:  svc.opts.Timing.RestoreMaxAge,
		}
		fix, err := s.source.Current(svc.ctx, opts)
		if err != nil {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		svc.showPositionLocked(s, fix)
	})
	return nil
}

// MapView returns the session's map layers as GeoJSON.
func (svc *SessionService) MapView(ctx context.Context, id string) (*render.View, error) {
	s, err := svc.getSession(ctx, id)
	if err != nil {
		return nil, err
	}
	view := s.surface.View()
	return &view, nil
}

// Summary returns the route overview of the session.
func (svc *SessionService) Summary(ctx context.Context, id string) (*render.Summary, error) {
	s, err := svc.getSession(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.route == nil {
		return nil, domain.NewNotFoundError("Route", id)
	}
	sum := render.Summarize(s.route, s.state.Completed)
	return &sum, nil
}

// CurrentRoute returns the document of the session's route.
func (svc *SessionService) CurrentRoute(ctx context.Context, id string) (*route.Route, error) {
	s, err := svc.getSession(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.route == nil {
		return nil, domain.NewNotFoundError("Route", id)
	}
	return s.route, nil
}

// ListSessions returns the in-memory sessions, newest first (admin).
func (svc *SessionService) ListSessions(ctx context.Context, page, limit int) (*domain.PaginatedResult[SessionDTO], error) {
	all := svc.allSessions()
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := int64(len(all))
	start := (page - 1) * limit
	if start > len(all) {
		start = len(all)
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	result := domain.NewPaginatedResult(all[start:end], total, page, limit)
	return &result, nil
}

// GetSessionStats returns session counts grouped by tracking status (admin).
func (svc *SessionService) GetSessionStats(ctx context.Context) (*SessionStatsDTO, error) {
	all := svc.allSessions()
	stats := &SessionStatsDTO{
		TotalSessions: len(all),
		ByStatus: map[string]int{
			tracking.StatusIdle.String():          0,
			tracking.StatusAwaitingStart.String(): 0,
			tracking.StatusNavigating.String():    0,
			tracking.StatusRouteComplete.String(): 0,
		},
	}
	for _, s := range all {
		stats.ByStatus[s.Status]++
	}
	return stats, nil
}

func (svc *SessionService) allSessions() []SessionDTO {
	svc.mu.RLock()
	sessions := make([]*Session, 0, len(svc.sessions))
	for _, s := range svc.sessions {
		sessions = append(sessions, s)
	}
	svc.mu.RUnlock()

	out := make([]SessionDTO, 0, len(sessions))
	for _, s := range sessions {
		s.mu.Lock()
		out = append(out, s.toDTOLocked())
		s.mu.Unlock()
	}
	return out
}

// --- internals ---

func (svc *SessionService) newSession(id string, createdAt time.Time) *Session {
	s := newSession(id, svc.opts.Render, createdAt)
	s.source.OnRequest(func() {
		svc.notifier.Notify(id, MessageLocateRequest, nil)
	})
	return s
}

// getSession returns the live session, resuming it from its snapshot when the
// process does not hold it.
func (svc *SessionService) getSession(ctx context.Context, id string) (*Session, error) {
	svc.mu.RLock()
	s, ok := svc.sessions[id]
	svc.mu.RUnlock()
	if ok {
		return s, nil
	}
	if svc.store == nil {
		return nil, domain.NewNotFoundError("Session", id)
	}

	snap, err := svc.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	if existing, ok := svc.sessions[id]; ok {
		return existing, nil
	}
	s = svc.resume(snap)
	svc.sessions[id] = s
	return s, nil
}

// resume rebuilds a session from its snapshot and re-arms its loops.
func (svc *SessionService) resume(snap *session.Snapshot) *Session {
	s := svc.newSession(snap.SessionID, snap.CreatedAt)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.updatedAt = snap.UpdatedAt

	if snap.Route == nil {
		return s
	}
	r, err := route.FromDocument(*snap.Route)
	if err != nil || r.Empty() {
		svc.logger.Warn("discarding unusable route from snapshot",
			zap.String("session_id", snap.SessionID),
			zap.Error(err),
		)
		return s
	}
	if _, err := s.renderer.Render(r); err != nil {
		return s
	}
	s.route = r
	s.state = snap.State
	for _, idx := range s.state.Completed {
		s.renderer.MarkCompleted(idx)
	}

	svc.armTrafficLocked(s)
	if s.state.Status == tracking.StatusNavigating && s.state.MonitoringEnabled {
		svc.armMonitorLocked(s)
	}
	if s.state.TrackingEnabled {
		svc.armTrackingLocked(s)
	}
	svc.logger.Info("navigation session resumed",
		zap.String("session_id", s.id),
		zap.String("status", s.state.Status.String()),
	)
	return s
}

// installRouteLocked replaces the session's route. Every loop of the previous
// route is cancelled before the new route's traffic loop is armed.
func (svc *SessionService) installRouteLocked(s *Session, r *route.Route) ([]outboundEvent, error) {
	tr, err := svc.machine.Receive(s.state, r)
	if err != nil {
		return nil, err
	}

	s.cancelLoopsLocked()
	res, err := s.renderer.Render(r)
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}
	s.route = r
	pending := svc.applyLocked(s, tr)
	s.lastTrafficCheck = time.Time{}
	svc.armTrafficLocked(s)

	svc.notifier.Notify(s.id, MessageRouteRendered, s.surface.View())
	svc.logger.Debug("route rendered",
		zap.String("session_id", s.id),
		zap.Int("markers", res.Markers),
		zap.Int("lines", res.Lines),
	)

	pending = append(pending, outboundEvent{
		eventType: contracts.NavigationRouteReceived,
		data: contracts.RouteReceivedEvent{
			SessionID:       s.id,
			Stops:           r.StopCount(),
			TotalDistanceKm: r.Totals().DistanceKm,
			OccurredAt:      svc.now().UTC(),
		},
	})
	return pending, nil
}

func (svc *SessionService) showPositionLocked(s *Session, fix geolocation.Fix) {
	s.state = svc.machine.Observe(s.state, fix.Position).State
	s.renderer.ShowUserPosition(fix.Position)
	s.renderer.UpdateDistances(fix.Position)
	svc.notifier.Notify(s.id, MessagePosition, fix)
}

func (svc *SessionService) notice(sessionID string, n Notice) {
	svc.notifier.Notify(sessionID, MessageNotice, n)
}

// persist writes the session snapshot. Failures are logged: the live session
// keeps working without its snapshot.
func (svc *SessionService) persist(ctx context.Context, s *Session) {
	if svc.store == nil {
		return
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if err := svc.store.Save(ctx, snap); err != nil {
		svc.logger.Warn("failed to save session snapshot",
			zap.String("session_id", s.id),
			zap.Error(err),
		)
	}
}

type outboundEvent struct {
	eventType string
	data      interface{}
}

func (svc *SessionService) publishAll(ctx context.Context, events []outboundEvent) {
	for _, e := range events {
		svc.publishEvent(ctx, contracts.TopicNavigationEvents, e.eventType, e.data)
	}
}

func (svc *SessionService) publishEvent(ctx context.Context, topic, eventType string, data interface{}) {
	if svc.publisher == nil {
		return
	}
	cloudEvent, err := kafka.NewCloudEvent("service-navigation", eventType, data)
	if err != nil {
		svc.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	if err := svc.publisher.PublishEvent(ctx, topic, cloudEvent); err != nil {
		svc.logger.Error("failed to publish event",
			zap.String("topic", topic),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}

func locateErrorText(err error) string {
	switch {
	case errors.Is(err, geolocation.ErrPermissionDenied):
		return "Location access was denied. Allow location access to use this feature."
	case errors.Is(err, geolocation.ErrTimeout):
		return "Getting your location took too long. Please try again."
	case errors.Is(err, geolocation.ErrUnsupported):
		return "Your device does not support location."
	default:
		return "Your location is currently unavailable."
	}
}
