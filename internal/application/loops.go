package application

import (
	"context"
	"time"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/geolocation"
	"go.uber.org/zap"
)

// runLoop calls tick after initialDelay and then every interval until ctx is done.
func runLoop(ctx context.Context, initialDelay, interval time.Duration, tick func(ctx context.Context)) {
	timer := time.NewTimer(initialDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}
	tick(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick(ctx)
		}
	}
}

// goLoop runs fn on the service's wait group unless the service is closing.
func (svc *SessionService) goLoop(fn func()) {
	if svc.ctx.Err() != nil {
		return
	}
	svc.loops.Go(fn)
}

// armMonitorLocked starts arrival monitoring with an immediate first sample.
func (svc *SessionService) armMonitorLocked(s *Session) {
	if s.cancelMonitor != nil {
		s.cancelMonitor()
	}
	ctx, cancel := context.WithCancel(svc.ctx)
	s.cancelMonitor = cancel
	epoch := s.epoch
	interval := svc.opts.Timing.MonitorInterval

	svc.goLoop(func() {
		runLoop(ctx, 0, interval, func(ctx context.Context) {
			svc.monitorTick(ctx, s, epoch)
		})
	})
}

func (svc *SessionService) monitorTick(ctx context.Context, s *Session, epoch uint64) {
	fix, err := s.source.Current(ctx, geolocation.Options{Timeout: svc.opts.Timing.GeolocationTimeout})

	s.mu.Lock()
	if ctx.Err() != nil || s.epoch != epoch || s.route == nil {
		s.mu.Unlock()
		return
	}
	if err != nil {
		// Background reads fail silently; the next tick tries again.
		s.state = svc.machine.SampleFailed(s.state).State
		s.mu.Unlock()
		svc.logger.Debug("monitor position read failed",
			zap.String("session_id", s.id),
			zap.Error(err),
		)
		return
	}

	tr := svc.machine.Sample(s.state, s.route, fix.Position)
	pending := svc.applyLocked(s, tr)
	s.mu.Unlock()

	// An arrival at the last stop cancels ctx, so the follow-up uses the service context.
	if len(pending) > 0 {
		svc.persist(svc.ctx, s)
		svc.publishAll(svc.ctx, pending)
	}
}

// armTrackingLocked starts the display-only position loop.
func (svc *SessionService) armTrackingLocked(s *Session) {
	if s.cancelTracking != nil {
		s.cancelTracking()
	}
	ctx, cancel := context.WithCancel(svc.ctx)
	s.cancelTracking = cancel
	epoch := s.epoch
	interval := svc.opts.Timing.TrackingInterval

	svc.goLoop(func() {
		runLoop(ctx, 0, interval, func(ctx context.Context) {
			fix, err := s.source.Current(ctx, geolocation.Options{Timeout: svc.opts.Timing.GeolocationTimeout})
			if err != nil {
				return
			}
			s.mu.Lock()
			defer s.mu.Unlock()
			if ctx.Err() != nil || s.epoch != epoch {
				return
			}
			svc.showPositionLocked(s, fix)
		})
	})
}

// armTrafficLocked starts the periodic traffic re-check of the current route.
func (svc *SessionService) armTrafficLocked(s *Session) {
	if svc.traffic == nil {
		return
	}
	if s.cancelTraffic != nil {
		s.cancelTraffic()
	}
	ctx, cancel := context.WithCancel(svc.ctx)
	s.cancelTraffic = cancel
	t := svc.opts.Timing

	svc.goLoop(func() {
		runLoop(ctx, t.TrafficInitialDelay, t.TrafficInterval, func(ctx context.Context) {
			if _, err := svc.checkTraffic(ctx, s, "timer"); err != nil {
				svc.logger.Warn("periodic traffic check failed",
					zap.String("session_id", s.id),
					zap.Error(err),
				)
			}
		})
	})
}
