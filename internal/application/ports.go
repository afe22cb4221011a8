package application

import (
	"context"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/platform/kafka"
)

// Message types pushed to connected clients.
const (
	MessageNotice        = "notice"
	MessageOpenURL       = "open_url"
	MessagePosition      = "position"
	MessageRouteRendered = "route_rendered"
	MessageState         = "state"
	MessageLocateRequest = "locate_request"
)

// Notifier pushes messages to the clients watching a session. Implementations
// must not block.
type Notifier interface {
	Notify(sessionID, msgType string, payload interface{})
}

// EventPublisher publishes CloudEvents. *kafka.Producer satisfies it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event kafka.CloudEvent) error
}

// TrafficChecker asks the routing backend whether traffic changed the route.
type TrafficChecker interface {
	CheckTraffic(ctx context.Context, doc route.Document) (*route.TrafficUpdate, error)
}

// Notice levels.
const (
	NoticeInfo    = "info"
	NoticeSuccess = "success"
	NoticeWarning = "warning"
	NoticeError   = "error"
)

// Notice is a transient, dismissable message for the user.
type Notice struct {
	Level   string `json:"level"`
	Title   string `json:"title"`
	Message string `json:"message"`
	// Sound names the notification sound to play: traffic, arrival or complete.
	Sound string `json:"sound,omitempty"`
}
