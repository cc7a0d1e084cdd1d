package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/fleettrack/tracking-system/internal/api/handler"
	"github.com/fleettrack/tracking-system/internal/core/ports"
	"github.com/fleettrack/tracking-system/internal/infrastructure/ws"
)

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(service ports.TrackingService, live *ws.Handler, db *mongo.Database, rdb *redis.Client, staticDir string, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.CORS())
	e.Use(echoprometheus.NewMiddleware("tracking"))

	// --- Position ingestion and queries ---
	positionHandler := handler.NewPositionHandler(service)
	e.POST("/api/gps-data", positionHandler.Submit)
	e.GET("/api/vehicles", positionHandler.ListAll)
	e.GET("/api/vehicles/:vehicleId", positionHandler.ListByVehicle)
	e.GET("/api/map-data", positionHandler.MapData)

	// --- Live updates (WebSocket) ---
	e.GET("/api/live", live.Subscribe)

	// --- Health probes ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(db, rdb)
	e.GET("/health", healthHandler.Liveness)           // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?

	// --- Metrics ---
	e.GET("/metrics", echoprometheus.NewHandler())

	// --- Dashboard static files ---
	e.Static("/", staticDir)

	return e
}
