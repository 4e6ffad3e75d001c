package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"fleet-analytics-service/internal/export"
	"fleet-analytics-service/internal/filter"
	"fleet-analytics-service/internal/model"
	"fleet-analytics-service/internal/service"
)

type Handler struct {
	reports *service.ReportService
	log     zerolog.Logger
}

func NewHandler(reports *service.ReportService, log zerolog.Logger) *Handler {
	return &Handler{reports: reports, log: log}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/vehicle/dashboard")
	})

	protected := r.Group("")
	protected.Use(authMiddleware)

	protected.GET("/driver/dashboard", h.getDriverDashboard)
	protected.GET("/driver/dashboard.xlsx", h.exportDriverDashboard)
	protected.GET("/driver/events", h.getDriverEvents)
	protected.GET("/driver/events/:name", h.getDriverEvents)

	protected.GET("/vehicle/dashboard", h.getVehicleDashboard)
	protected.GET("/vehicle/dashboard.xlsx", h.exportVehicleDashboard)
	protected.GET("/vehicle/events/:name", h.getVehicleEvents)

	protected.GET("/trips", h.getAnnotatedTrips)
	protected.GET("/trips/events", h.getTripEvents)
	protected.GET("/trips/ratings", h.getAssetRatings)

	protected.POST("/admin/cache/invalidate", h.invalidateCache)
}

func (h *Handler) getDriverDashboard(c *gin.Context) {
	dashboard, err := h.reports.DriverDashboard(c.Request.Context(), parseParams(c))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(dashboard))
}

func (h *Handler) getVehicleDashboard(c *gin.Context) {
	dashboard, err := h.reports.VehicleDashboard(c.Request.Context(), parseParams(c))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(dashboard))
}

func (h *Handler) exportDriverDashboard(c *gin.Context) {
	dashboard, err := h.reports.DriverDashboard(c.Request.Context(), parseParams(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.writeWorkbook(c, dashboard)
}

func (h *Handler) exportVehicleDashboard(c *gin.Context) {
	dashboard, err := h.reports.VehicleDashboard(c.Request.Context(), parseParams(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.writeWorkbook(c, dashboard)
}

func (h *Handler) writeWorkbook(c *gin.Context, dashboard *model.Dashboard) {
	var buf bytes.Buffer
	if err := export.Dashboard(&buf, dashboard); err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(dashboard)))
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}

func (h *Handler) getDriverEvents(c *gin.Context) {
	page, err := h.reports.DriverEvents(c.Request.Context(), parseParams(c))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(page))
}

func (h *Handler) getVehicleEvents(c *gin.Context) {
	page, err := h.reports.VehicleEvents(c.Request.Context(), parseParams(c))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(page))
}

func (h *Handler) getAnnotatedTrips(c *gin.Context) {
	offset, err := queryInt(c, "offset")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	page, err := h.reports.AnnotatedTrips(c.Request.Context(), offset, limit)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(page))
}

func (h *Handler) getTripEvents(c *gin.Context) {
	asset := strings.TrimSpace(c.Query("asset"))
	if asset == "" {
		asset = strings.TrimSpace(c.Query("asset_name"))
	}

	events, err := h.reports.TripEvents(c.Request.Context(), asset, strings.TrimSpace(c.Query("owner")))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(events))
}

func (h *Handler) getAssetRatings(c *gin.Context) {
	ratings, err := h.reports.AssetRatings(c.Request.Context(), c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(ratings))
}

func (h *Handler) invalidateCache(c *gin.Context) {
	h.reports.InvalidateDropdowns()
	h.log.Info().Msg("dropdown cache invalidated")

	c.JSON(http.StatusOK, successResponse(gin.H{"invalidated": true}))
}

// parseParams reads the report parameters. asset is accepted as an alias
// of asset_name because entity table links use it.
func parseParams(c *gin.Context) filter.Params {
	asset := c.Query("asset_name")
	if asset == "" {
		asset = c.Query("asset")
	}

	return filter.Params{
		StartDate:  c.Query("start_date"),
		EndDate:    c.Query("end_date"),
		Owner:      c.Query("owner"),
		DriverName: c.Query("driver_name"),
		AssetName:  asset,
		EventType:  c.Query("event_type"),
		Week:       c.Query("week"),
		Name:       c.Param("name"),
		Kind:       c.Query("kind"),
	}
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return value, nil
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidFilter):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrAmbiguousKey):
		c.JSON(http.StatusConflict, errorResponse(err.Error()))
	default:
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{"data": data}
}

func errorResponse(message string) gin.H {
	return gin.H{"error": message}
}
