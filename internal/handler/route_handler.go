package handler

import (
	"net/http"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/application"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/platform/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RouteHandler handles HTTP requests for saved routes and exports.
type RouteHandler struct {
	service *application.SavedRouteService
}

// NewRouteHandler creates a new RouteHandler.
func NewRouteHandler(service *application.SavedRouteService) *RouteHandler {
	return &RouteHandler{service: service}
}

// LoadRouteRequest names the session a saved route is loaded into.
type LoadRouteRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

// RegisterRoutes registers all saved route routes on the given router group.
func (h *RouteHandler) RegisterRoutes(r *gin.RouterGroup) {
	routes := r.Group("/api/v1/routes")
	{
		routes.POST("", h.SaveRoute)
		routes.GET("", h.ListRoutes)
		routes.POST("/export", h.ExportDocument)
		routes.GET("/:id", h.GetRoute)
		routes.GET("/:id/export", h.ExportSavedRoute)
		routes.POST("/:id/load", h.LoadRoute)
		routes.DELETE("/:id", h.DeleteRoute)
	}
}

// SaveRoute handles POST /api/v1/routes.
func (h *RouteHandler) SaveRoute(c *gin.Context) {
	var req application.SaveRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.SaveFromSession(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// ListRoutes handles GET /api/v1/routes.
func (h *RouteHandler) ListRoutes(c *gin.Context) {
	page, limit := parsePagination(c)

	result, err := h.service.ListRoutes(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// GetRoute handles GET /api/v1/routes/:id.
func (h *RouteHandler) GetRoute(c *gin.Context) {
	routeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid route ID")
		return
	}

	result, err := h.service.GetRoute(c.Request.Context(), routeID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// LoadRoute handles POST /api/v1/routes/:id/load.
func (h *RouteHandler) LoadRoute(c *gin.Context) {
	routeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid route ID")
		return
	}

	var req LoadRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.LoadIntoSession(c.Request.Context(), routeID, req.SessionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// DeleteRoute handles DELETE /api/v1/routes/:id.
func (h *RouteHandler) DeleteRoute(c *gin.Context) {
	routeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid route ID")
		return
	}

	if err := h.service.DeleteRoute(c.Request.Context(), routeID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ExportDocument handles POST /api/v1/routes/export?format=csv|json. The body
// is the route document to export; ?session_id= exports a session's route instead.
func (h *RouteHandler) ExportDocument(c *gin.Context) {
	format := c.DefaultQuery("format", application.ExportCSV)

	var (
		export *application.Export
		err    error
	)
	if sessionID := c.Query("session_id"); sessionID != "" {
		export, err = h.service.ExportSession(c.Request.Context(), sessionID, format)
	} else {
		var doc route.Document
		if bindErr := c.ShouldBindJSON(&doc); bindErr != nil {
			response.BadRequest(c, bindErr.Error())
			return
		}
		export, err = application.ExportDocument(doc, format)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	writeExport(c, export)
}

// ExportSavedRoute handles GET /api/v1/routes/:id/export?format=csv|json.
func (h *RouteHandler) ExportSavedRoute(c *gin.Context) {
	routeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid route ID")
		return
	}

	export, err := h.service.ExportSavedRoute(c.Request.Context(), routeID, c.DefaultQuery("format", application.ExportCSV))
	if err != nil {
		response.Error(c, err)
		return
	}
	writeExport(c, export)
}

func writeExport(c *gin.Context, export *application.Export) {
	c.Header("Content-Disposition", "attachment; filename="+export.Filename)
	c.Data(http.StatusOK, export.ContentType, export.Body)
}
