package events

import (
	"context"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/application"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/contracts"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/platform/domain"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/platform/kafka"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// RouteReceiver installs routes into navigation sessions.
type RouteReceiver interface {
	ReceiveRoute(ctx context.Context, sessionID string, doc route.Document) (*application.SessionDTO, error)
}

// RouteEventConsumer listens to route events and installs optimized routes
// into their sessions.
type RouteEventConsumer struct {
	consumer *kafka.Consumer
	receiver RouteReceiver
	logger   *zap.Logger
}

// NewRouteEventConsumer creates a new RouteEventConsumer.
func NewRouteEventConsumer(
	brokers []string,
	groupID string,
	receiver RouteReceiver,
	logger *zap.Logger,
) *RouteEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, contracts.TopicRouteEvents, logger)
	return &RouteEventConsumer{
		consumer: consumer,
		receiver: receiver,
		logger:   logger,
	}
}

// Start begins consuming route events. This blocks until the context is cancelled.
func (c *RouteEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *RouteEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *RouteEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from route topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case contracts.RouteOptimized:
		return c.handleRouteOptimized(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled route event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *RouteEventConsumer) handleRouteOptimized(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt contracts.RouteOptimizedEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse RouteOptimizedEvent data",
			zap.Error(err),
		)
		return nil // Don't retry malformed data
	}
	if evt.SessionID == "" {
		c.logger.Warn("route event without session id", zap.String("event_id", cloudEvent.ID))
		return nil
	}

	c.logger.Info("processing optimized route",
		zap.String("session_id", evt.SessionID),
		zap.Int("stops", len(evt.Route.Coordinates)),
	)

	if _, err := c.receiver.ReceiveRoute(ctx, evt.SessionID, evt.Route); err != nil {
		// Retrying cannot fix a missing session or an unusable route.
		if domain.IsNotFound(err) || domain.IsValidation(err) {
			c.logger.Warn("dropping optimized route",
				zap.String("session_id", evt.SessionID),
				zap.Error(err),
			)
			return nil
		}
		c.logger.Error("failed to install optimized route",
			zap.String("session_id", evt.SessionID),
			zap.Error(err),
		)
		return err
	}

	c.logger.Info("optimized route installed",
		zap.String("session_id", evt.SessionID),
	)
	return nil
}
