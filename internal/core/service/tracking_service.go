package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fleettrack/tracking-system/internal/core/domain"
	"github.com/fleettrack/tracking-system/internal/core/ports"
)

type trackingService struct {
	repo        ports.PositionRepository
	broadcaster ports.UpdateBroadcaster
	log         zerolog.Logger
	now         func() time.Time // injectable for tests
}

// NewTrackingService returns a TrackingService backed by the given
// repository and broadcaster.
func NewTrackingService(repo ports.PositionRepository, broadcaster ports.UpdateBroadcaster, log zerolog.Logger) ports.TrackingService {
	return &trackingService{
		repo:        repo,
		broadcaster: broadcaster,
		log:         log,
		now:         time.Now,
	}
}

// SubmitPosition validates the raw report, appends the canonical record to
// the store, and fans the accepted update out to live subscribers.
//
// The broadcast happens after a successful append, in the request
// goroutine, so per-vehicle updates are published in acceptance order.
// Broadcast never blocks and its failures never reach the caller.
func (s *trackingService) SubmitPosition(ctx context.Context, input ports.SubmitPositionInput) (*ports.SubmitPositionResult, error) {
	record, err := domain.NewPositionRecord(input.VehicleID, input.Coordinates, input.Speed, input.RouteSegment, s.now())
	if err != nil {
		return nil, err
	}

	id, err := s.repo.Append(ctx, record)
	if err != nil {
		s.log.Error().Err(err).Str("vehicle_id", record.VehicleID).Msg("failed to append position")
		return nil, fmt.Errorf("submit position: %w", err)
	}

	s.broadcaster.Broadcast(toUpdate(*record))

	s.log.Debug().
		Str("vehicle_id", record.VehicleID).
		Str("record_id", id).
		Msg("position accepted")

	return &ports.SubmitPositionResult{ID: id}, nil
}

// History returns all records for one vehicle, newest first. An unknown
// vehicle yields an empty slice.
func (s *trackingService) History(ctx context.Context, vehicleID string) ([]domain.PositionRecord, error) {
	records, err := s.repo.FindByVehicle(ctx, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("history %q: %w", vehicleID, err)
	}
	if records == nil {
		records = []domain.PositionRecord{}
	}
	return records, nil
}

// AllHistory returns every stored record, newest first.
func (s *trackingService) AllHistory(ctx context.Context) ([]domain.PositionRecord, error) {
	records, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("all history: %w", err)
	}
	if records == nil {
		records = []domain.PositionRecord{}
	}
	return records, nil
}

// LatestSnapshot returns the most recent record per vehicle, flattened to
// the map-rendering shape. The snapshot is recomputed per call from the
// full history; no materialized view is maintained.
func (s *trackingService) LatestSnapshot(ctx context.Context) ([]ports.VehicleUpdate, error) {
	records, err := s.repo.LatestPerVehicle(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}

	snapshot := make([]ports.VehicleUpdate, 0, len(records))
	for _, r := range records {
		snapshot = append(snapshot, toUpdate(r))
	}
	return snapshot, nil
}

// toUpdate flattens a stored record into the consumer-facing shape,
// flipping the stored (lng, lat) coordinate order to (lat, lng).
func toUpdate(r domain.PositionRecord) ports.VehicleUpdate {
	return ports.VehicleUpdate{
		VehicleID:    r.VehicleID,
		Lat:          r.Location.Lat(),
		Lng:          r.Location.Lng(),
		Speed:        r.Speed,
		Timestamp:    r.Timestamp,
		RouteSegment: r.RouteSegment,
	}
}
