package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fleettrack/tracking-system/internal/api"
	"github.com/fleettrack/tracking-system/internal/core/ports"
	"github.com/fleettrack/tracking-system/internal/core/service"
	"github.com/fleettrack/tracking-system/internal/infrastructure/broker"
	"github.com/fleettrack/tracking-system/internal/infrastructure/config"
	mongodb "github.com/fleettrack/tracking-system/internal/infrastructure/db/mongo"
	redisdb "github.com/fleettrack/tracking-system/internal/infrastructure/db/redis"
	"github.com/fleettrack/tracking-system/internal/infrastructure/ws"
	"github.com/fleettrack/tracking-system/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logg := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	// --- Storage ---
	client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		logg.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer func() { _ = client.Disconnect(context.Background()) }()
	logg.Info().Str("database", cfg.Mongo.Database).Msg("connected to MongoDB")

	positionRepo := mongodb.NewPositionRepository(db)
	if err := positionRepo.EnsureIndexes(ctx); err != nil {
		logg.Fatal().Err(err).Msg("failed to ensure position indexes")
	}

	// --- Pub/sub transport ---
	rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	if err != nil {
		logg.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer func() { _ = rdb.Close() }()
	logg.Info().Str("addr", cfg.Redis.Addr).Msg("connected to Redis")

	// --- Broadcast pipeline ---
	// Locally accepted updates go straight to the hub and onto the Redis
	// channel; the relay feeds in updates accepted by other instances.
	hub := ws.NewHub(cfg.Broadcast.Buffer, logg)
	origin := broker.NewOriginID()

	publisher := broker.NewPublisher(rdb, cfg.Broadcast.Channel, origin, logg)
	publisher.Start(ctx)

	relay := broker.NewRelay(rdb, hub, cfg.Broadcast.Channel, origin, logg)
	go relay.Run(ctx)

	// --- Core wiring ---
	trackingService := service.NewTrackingService(positionRepo, ports.MultiBroadcaster(hub, publisher), logg)
	liveHandler := ws.NewHandler(hub, logg)

	e := api.NewRouter(trackingService, liveHandler, db, rdb, cfg.StaticDir, logg)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			logg.Error().Err(err).Msg("server shutdown failed")
		}
	}()

	logg.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
	if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Fatal().Err(err).Msg("server stopped unexpectedly")
	}
	logg.Info().Msg("server stopped")
}
