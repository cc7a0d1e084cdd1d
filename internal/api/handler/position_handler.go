package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fleettrack/tracking-system/internal/api/metrics"
	"github.com/fleettrack/tracking-system/internal/core/domain"
	"github.com/fleettrack/tracking-system/internal/core/ports"
)

// PositionHandler handles HTTP requests for position ingestion and queries.
type PositionHandler struct {
	service ports.TrackingService
}

func NewPositionHandler(service ports.TrackingService) *PositionHandler {
	return &PositionHandler{service: service}
}

// Submit handles POST /api/gps-data — ingests one position report.
//
// @Summary      Submit a GPS position report
// @Tags         positions
// @Accept       json
// @Produce      json
// @Param        body  body      submitPositionRequest  true  "Position report"
// @Success      201   {object}  submitPositionResponse
// @Failure      400   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /api/gps-data [post]
func (h *PositionHandler) Submit(c echo.Context) error {
	var req submitPositionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	result, err := h.service.SubmitPosition(c.Request().Context(), ports.SubmitPositionInput{
		VehicleID:    req.VehicleID,
		Coordinates:  req.Coordinates,
		Speed:        req.Speed,
		RouteSegment: req.RouteSegment,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			metrics.IngestErrorsTotal.WithLabelValues("validation").Inc()
		case errors.Is(err, domain.ErrStorage):
			metrics.IngestErrorsTotal.WithLabelValues("storage").Inc()
		}
		return err
	}

	metrics.PositionsIngestedTotal.Inc()
	return c.JSON(http.StatusCreated, submitPositionResponse{
		Message: "position stored",
		ID:      result.ID,
	})
}

// ListAll handles GET /api/vehicles — full history across all vehicles,
// newest first.
//
// @Summary      List all stored positions
// @Tags         positions
// @Produce      json
// @Success      200  {array}  domain.PositionRecord
// @Failure      503  {object}  errorResponse
// @Router       /api/vehicles [get]
func (h *PositionHandler) ListAll(c echo.Context) error {
	records, err := h.service.AllHistory(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, records)
}

// ListByVehicle handles GET /api/vehicles/:vehicleId — history for one
// vehicle, newest first. An unknown vehicle yields an empty array, not 404.
//
// @Summary      List positions for one vehicle
// @Tags         positions
// @Produce      json
// @Param        vehicleId  path     string  true  "Vehicle identifier"
// @Success      200        {array}  domain.PositionRecord
// @Failure      503        {object}  errorResponse
// @Router       /api/vehicles/{vehicleId} [get]
func (h *PositionHandler) ListByVehicle(c echo.Context) error {
	records, err := h.service.History(c.Request().Context(), c.Param("vehicleId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, records)
}

// MapData handles GET /api/map-data — the latest position per vehicle,
// flattened for map rendering.
//
// @Summary      Latest position per vehicle
// @Tags         positions
// @Produce      json
// @Success      200  {array}  ports.VehicleUpdate
// @Failure      503  {object}  errorResponse
// @Router       /api/map-data [get]
func (h *PositionHandler) MapData(c echo.Context) error {
	snapshot, err := h.service.LatestSnapshot(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, snapshot)
}
