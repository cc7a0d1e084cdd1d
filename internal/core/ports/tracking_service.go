package ports

import (
	"context"
	"time"

	"github.com/fleettrack/tracking-system/internal/core/domain"
)

// SubmitPositionInput is the DTO passed from the transport layer to the
// tracking service. Speed is optional: nil means unknown, not zero.
type SubmitPositionInput struct {
	VehicleID    string
	Coordinates  []float64 // [longitude, latitude]
	Speed        *float64
	RouteSegment string
}

// SubmitPositionResult acknowledges an accepted report.
type SubmitPositionResult struct {
	ID string
}

// VehicleUpdate is the flattened per-vehicle view used for both the latest
// snapshot and the live broadcast payload. The store's internal (lng, lat)
// coordinate order is flipped to (lat, lng) at this boundary; the flip is
// a contract consumers rely on.
type VehicleUpdate struct {
	VehicleID    string    `json:"vehicleId"`
	Lat          float64   `json:"lat"`
	Lng          float64   `json:"lng"`
	Speed        *float64  `json:"speed,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	RouteSegment string    `json:"routeSegment,omitempty"`
}

// TrackingService defines the use-case operations for vehicle positions.
// All query operations are read-only and idempotent.
type TrackingService interface {
	// SubmitPosition validates, persists, and broadcasts one report.
	SubmitPosition(ctx context.Context, input SubmitPositionInput) (*SubmitPositionResult, error)

	// History returns every record for one vehicle, newest first.
	// An unknown vehicle yields an empty slice, not an error.
	History(ctx context.Context, vehicleID string) ([]domain.PositionRecord, error)

	// AllHistory returns every stored record, newest first.
	AllHistory(ctx context.Context) ([]domain.PositionRecord, error)

	// LatestSnapshot returns the single most recent position per vehicle,
	// in no particular cross-vehicle order.
	LatestSnapshot(ctx context.Context) ([]VehicleUpdate, error)
}
