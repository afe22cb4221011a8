package application

import (
	"fmt"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/contracts"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/tracking"
	"go.uber.org/zap"
)

// applyLocked installs the transition's state and carries out its effects in
// order. Events are returned for publishing once the session lock is released.
func (svc *SessionService) applyLocked(s *Session, tr tracking.Transition) []outboundEvent {
	s.state = tr.State
	s.updatedAt = svc.now().UTC()

	var pending []outboundEvent
	for _, effect := range tr.Effects {
		switch e := effect.(type) {
		case tracking.MarkStopCompleted:
			s.renderer.MarkCompleted(e.Index)

		case tracking.ArrivalNotice:
			svc.notice(s.id, Notice{
				Level:   NoticeSuccess,
				Title:   fmt.Sprintf("Arrived at stop %s", e.Label),
				Message: e.Description,
				Sound:   "arrival",
			})
			evt := contracts.StopArrivedEvent{
				SessionID:   s.id,
				StopIndex:   e.Index,
				Label:       e.Label,
				Description: e.Description,
				OccurredAt:  s.updatedAt,
			}
			if s.state.LastPosition != nil {
				evt.Position = *s.state.LastPosition
			}
			pending = append(pending, outboundEvent{eventType: contracts.NavigationStopArrived, data: evt})

		case tracking.DispatchLeg:
			if _, err := svc.dispatcher.DispatchLeg(svc.ctx, s.id, e.Origin, e.Destination); err != nil {
				svc.logger.Warn("failed to open navigation leg",
					zap.String("session_id", s.id),
					zap.Int("target_index", e.TargetIndex),
					zap.Error(err),
				)
			}
			svc.notice(s.id, legNotice(s, e))

		case tracking.StartMonitoring:
			svc.armMonitorLocked(s)
		case tracking.StopMonitoring:
			if s.cancelMonitor != nil {
				s.cancelMonitor()
				s.cancelMonitor = nil
			}

		case tracking.StartTracking:
			svc.armTrackingLocked(s)
		case tracking.StopTracking:
			if s.cancelTracking != nil {
				s.cancelTracking()
				s.cancelTracking = nil
			}

		case tracking.RouteCompleteNotice:
			svc.notice(s.id, Notice{
				Level:   NoticeSuccess,
				Title:   "Route complete",
				Message: fmt.Sprintf("All %d stops have been visited.", e.Arrivals),
				Sound:   "complete",
			})
			pending = append(pending, outboundEvent{
				eventType: contracts.NavigationRouteCompleted,
				data: contracts.RouteCompletedEvent{
					SessionID:  s.id,
					Arrivals:   e.Arrivals,
					OccurredAt: s.updatedAt,
				},
			})
		}
	}

	svc.notifier.Notify(s.id, MessageState, s.toDTOLocked())
	return pending
}

func legNotice(s *Session, leg tracking.DispatchLeg) Notice {
	label := fmt.Sprintf("%d", leg.TargetIndex+1)
	if s.route != nil {
		if stop, ok := s.route.Stop(leg.TargetIndex); ok {
			label = stop.Label()
		}
	}
	if leg.FromRouteStart {
		return Notice{
			Level:   NoticeWarning,
			Title:   "Navigating from route start",
			Message: fmt.Sprintf("Your location is unavailable. Directions to stop %s start at the first stop.", label),
		}
	}
	return Notice{
		Level:   NoticeInfo,
		Title:   "Navigation started",
		Message: fmt.Sprintf("Navigating to stop %s.", label),
	}
}
