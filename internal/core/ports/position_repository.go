package ports

import (
	"context"

	"github.com/fleettrack/tracking-system/internal/core/domain"
)

// PositionRepository defines the durable, append-only position store the
// core depends on. History is unbounded; no delete operation exists.
//
// Implementations must be safe for concurrent use and must not share
// cursor state between callers: every query is produced fresh per call.
type PositionRepository interface {
	// Append durably persists one record and returns the assigned record
	// identifier. A record is never partially written.
	Append(ctx context.Context, record *domain.PositionRecord) (string, error)

	// FindByVehicle returns every record for one vehicle, sorted by
	// timestamp descending. An unknown vehicle yields an empty slice.
	FindByVehicle(ctx context.Context, vehicleID string) ([]domain.PositionRecord, error)

	// FindAll returns every stored record, sorted by timestamp descending.
	FindAll(ctx context.Context) ([]domain.PositionRecord, error)

	// LatestPerVehicle returns exactly one record per distinct vehicle:
	// the one with the highest timestamp. Ties on equal timestamps are
	// broken deterministically by descending insertion sequence.
	LatestPerVehicle(ctx context.Context) ([]domain.PositionRecord, error)
}
