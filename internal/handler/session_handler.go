package handler

import (
	"context"
	"encoding/json"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/application"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/notify"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/platform/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Messages a client may send over its WebSocket.
const (
	inboundPosition   = "position"
	inboundVisibility = "visibility"
)

// SessionHandler handles HTTP requests for navigation sessions.
type SessionHandler struct {
	service *application.SessionService
	hub     *notify.Hub
	logger  *zap.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(service *application.SessionService, hub *notify.Hub, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{service: service, hub: hub, logger: logger}
}

// TrackingRequest toggles continuous tracking.
type TrackingRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// VisibilityRequest reports whether the client is in the background.
type VisibilityRequest struct {
	Hidden *bool `json:"hidden" binding:"required"`
}

// RegisterRoutes registers all session routes on the given router group.
func (h *SessionHandler) RegisterRoutes(r *gin.RouterGroup) {
	sessions := r.Group("/api/v1/sessions")
	{
		sessions.POST("", h.CreateSession)
		sessions.GET("/:id", h.GetSession)
		sessions.DELETE("/:id", h.EndSession)
		sessions.GET("/:id/map", h.GetMap)
		sessions.GET("/:id/summary", h.GetSummary)
		sessions.PUT("/:id/route", h.ReceiveRoute)
		sessions.DELETE("/:id/route", h.ClearRoute)
		sessions.POST("/:id/navigation/start", h.StartNavigation)
		sessions.POST("/:id/navigation/stop", h.StopNavigation)
		sessions.POST("/:id/navigation/whole-route", h.DispatchWholeRoute)
		sessions.POST("/:id/positions", h.ReportPosition)
		sessions.POST("/:id/locate", h.Locate)
		sessions.POST("/:id/tracking", h.SetTracking)
		sessions.POST("/:id/visibility", h.SetVisibility)
		sessions.POST("/:id/traffic/check", h.CheckTraffic)
		sessions.GET("/:id/ws", h.Connect)
	}
}

// CreateSession handles POST /api/v1/sessions.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	result, err := h.service.CreateSession(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// GetSession handles GET /api/v1/sessions/:id.
func (h *SessionHandler) GetSession(c *gin.Context) {
	result, err := h.service.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// EndSession handles DELETE /api/v1/sessions/:id.
func (h *SessionHandler) EndSession(c *gin.Context) {
	if err := h.service.EndSession(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// GetMap handles GET /api/v1/sessions/:id/map.
func (h *SessionHandler) GetMap(c *gin.Context) {
	result, err := h.service.MapView(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// GetSummary handles GET /api/v1/sessions/:id/summary.
func (h *SessionHandler) GetSummary(c *gin.Context) {
	result, err := h.service.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ReceiveRoute handles PUT /api/v1/sessions/:id/route.
func (h *SessionHandler) ReceiveRoute(c *gin.Context) {
	var doc route.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.ReceiveRoute(c.Request.Context(), c.Param("id"), doc)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ClearRoute handles DELETE /api/v1/sessions/:id/route.
func (h *SessionHandler) ClearRoute(c *gin.Context) {
	result, err := h.service.ClearRoute(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// StartNavigation handles POST /api/v1/sessions/:id/navigation/start.
func (h *SessionHandler) StartNavigation(c *gin.Context) {
	result, err := h.service.StartNavigation(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// StopNavigation handles POST /api/v1/sessions/:id/navigation/stop.
func (h *SessionHandler) StopNavigation(c *gin.Context) {
	result, err := h.service.StopNavigation(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// DispatchWholeRoute handles POST /api/v1/sessions/:id/navigation/whole-route.
func (h *SessionHandler) DispatchWholeRoute(c *gin.Context) {
	url, err := h.service.DispatchWholeRoute(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"url": url})
}

// ReportPosition handles POST /api/v1/sessions/:id/positions.
func (h *SessionHandler) ReportPosition(c *gin.Context) {
	var req application.PositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	fix, err := h.service.ReportPosition(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if fix == nil {
		response.NoContent(c)
		return
	}
	response.Success(c, fix)
}

// Locate handles POST /api/v1/sessions/:id/locate.
func (h *SessionHandler) Locate(c *gin.Context) {
	result, err := h.service.LocateOnce(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// SetTracking handles POST /api/v1/sessions/:id/tracking.
func (h *SessionHandler) SetTracking(c *gin.Context) {
	var req TrackingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.SetTracking(c.Request.Context(), c.Param("id"), *req.Enabled)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// SetVisibility handles POST /api/v1/sessions/:id/visibility.
func (h *SessionHandler) SetVisibility(c *gin.Context) {
	var req VisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.SetVisibility(c.Request.Context(), c.Param("id"), *req.Hidden)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// CheckTraffic handles POST /api/v1/sessions/:id/traffic/check.
func (h *SessionHandler) CheckTraffic(c *gin.Context) {
	result, err := h.service.CheckTraffic(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Connect handles GET /api/v1/sessions/:id/ws.
func (h *SessionHandler) Connect(c *gin.Context) {
	sessionID := c.Param("id")
	if _, err := h.service.GetSession(c.Request.Context(), sessionID); err != nil {
		response.Error(c, err)
		return
	}

	onConnect := func() {
		if err := h.service.ClientConnected(context.Background(), sessionID); err != nil {
			h.logger.Warn("failed to bring client up to date",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		}
	}
	if err := h.hub.Serve(c.Writer, c.Request, sessionID, h.handleInbound, onConnect); err != nil {
		h.logger.Warn("websocket upgrade failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}
}

// handleInbound applies position and visibility reports pushed by the client.
func (h *SessionHandler) handleInbound(sessionID string, msg notify.Message) {
	ctx := context.Background()
	var err error

	switch msg.Type {
	case inboundPosition:
		var req application.PositionRequest
		if err = json.Unmarshal(msg.Data, &req); err == nil {
			_, err = h.service.ReportPosition(ctx, sessionID, req)
		}
	case inboundVisibility:
		var req VisibilityRequest
		if err = json.Unmarshal(msg.Data, &req); err == nil && req.Hidden != nil {
			_, err = h.service.SetVisibility(ctx, sessionID, *req.Hidden)
		}
	default:
		h.logger.Debug("ignoring client message",
			zap.String("session_id", sessionID),
			zap.String("type", msg.Type),
		)
		return
	}

	if err != nil {
		h.logger.Warn("failed to apply client message",
			zap.String("session_id", sessionID),
			zap.String("type", msg.Type),
			zap.Error(err),
		)
	}
}
