package application

import (
	"context"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/contracts"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/route"
	"go.uber.org/zap"
)

// CheckTraffic asks the routing backend to re-check the session's route now.
// Checks closer together than the minimum spacing are skipped.
func (svc *SessionService) CheckTraffic(ctx context.Context, id string) (*TrafficCheckDTO, error) {
	s, err := svc.getSession(ctx, id)
	if err != nil {
		return nil, err
	}
	return svc.checkTraffic(ctx, s, "manual")
}

// SetVisibility records whether the client is in the foreground. Returning to
// the foreground after a long absence triggers a traffic re-check.
func (svc *SessionService) SetVisibility(ctx context.Context, id string, hidden bool) (*SessionDTO, error) {
	s, err := svc.getSession(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	returning := s.hidden && !hidden
	s.hidden = hidden
	stale := s.route != nil && svc.now().Sub(s.lastTrafficCheck) > svc.opts.Timing.VisibilityStaleAfter
	result := s.toDTOLocked()
	s.mu.Unlock()

	if returning && stale && svc.traffic != nil {
		svc.goLoop(func() {
			if _, err := svc.checkTraffic(svc.ctx, s, "visibility"); err != nil {
				svc.logger.Warn("traffic check on return failed",
					zap.String("session_id", s.id),
					zap.Error(err),
				)
			}
		})
	}
	return &result, nil
}

// checkTraffic runs one traffic re-check. The backend call happens without the
// session lock; its answer is dropped if the route changed in the meantime.
func (svc *SessionService) checkTraffic(ctx context.Context, s *Session, trigger string) (*TrafficCheckDTO, error) {
	if svc.traffic == nil {
		return &TrafficCheckDTO{}, nil
	}

	s.mu.Lock()
	if s.route == nil {
		s.mu.Unlock()
		return &TrafficCheckDTO{}, nil
	}
	now := svc.now()
	if !s.lastTrafficCheck.IsZero() && now.Sub(s.lastTrafficCheck) < svc.opts.Timing.TrafficMinSpacing {
		s.mu.Unlock()
		svc.logger.Debug("traffic check skipped, too soon",
			zap.String("session_id", s.id),
			zap.String("trigger", trigger),
		)
		return &TrafficCheckDTO{}, nil
	}
	s.lastTrafficCheck = now
	doc := s.route.Document()
	epoch := s.epoch
	s.mu.Unlock()

	update, err := svc.traffic.CheckTraffic(ctx, doc)
	if err != nil {
		svc.logger.Warn("traffic check failed, skipping",
			zap.String("session_id", s.id),
			zap.String("trigger", trigger),
			zap.Error(err),
		)
		return &TrafficCheckDTO{Checked: true, Failed: true}, nil
	}
	if update == nil || !update.HasTrafficUpdate {
		return &TrafficCheckDTO{Checked: true}, nil
	}

	next := update.Document
	if !next.UseCurrentLocation {
		next.UseCurrentLocation = doc.UseCurrentLocation
	}
	r, err := route.FromDocument(next)
	if err != nil || r.Empty() {
		svc.logger.Warn("ignoring unusable traffic route",
			zap.String("session_id", s.id),
			zap.Error(err),
		)
		return &TrafficCheckDTO{Checked: true}, nil
	}

	s.mu.Lock()
	if s.epoch != epoch || s.route == nil {
		s.mu.Unlock()
		return &TrafficCheckDTO{Checked: true}, nil
	}

	kept := r.StopCount() == s.route.StopCount()
	var pending []outboundEvent
	if kept {
		if _, err := s.renderer.Render(r); err != nil {
			s.mu.Unlock()
			return nil, err
		}
		s.route = r
		for _, idx := range s.state.Completed {
			s.renderer.MarkCompleted(idx)
		}
		if s.state.LastPosition != nil {
			s.renderer.ShowUserPosition(*s.state.LastPosition)
			s.renderer.UpdateDistances(*s.state.LastPosition)
		}
		s.updatedAt = svc.now().UTC()
		svc.notifier.Notify(s.id, MessageState, s.toDTOLocked())
	} else {
		// A different stop list invalidates progress. The traffic loop stays armed.
		tr, err := svc.machine.Receive(s.state, r)
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
		s.epoch++
		if _, err := s.renderer.Render(r); err != nil {
			s.mu.Unlock()
			return nil, err
		}
		s.route = r
		pending = svc.applyLocked(s, tr)
	}
	svc.notifier.Notify(s.id, MessageRouteRendered, s.surface.View())

	reason := update.TrafficUpdateReason
	if reason == "" {
		reason = "Traffic conditions changed along your route."
	}
	svc.notice(s.id, Notice{Level: NoticeWarning, Title: "Traffic Update", Message: reason, Sound: "traffic"})
	pending = append(pending, outboundEvent{
		eventType: contracts.NavigationTrafficUpdated,
		data: contracts.TrafficUpdatedEvent{
			SessionID:    s.id,
			Reason:       reason,
			ProgressKept: kept,
			OccurredAt:   svc.now().UTC(),
		},
	})
	s.mu.Unlock()

	svc.logger.Info("route updated for traffic",
		zap.String("session_id", s.id),
		zap.String("trigger", trigger),
		zap.Bool("progress_kept", kept),
	)
	svc.persist(ctx, s)
	svc.publishAll(ctx, pending)
	return &TrafficCheckDTO{Checked: true, Updated: true, Reason: reason}, nil
}
