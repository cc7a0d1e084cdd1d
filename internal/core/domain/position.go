package domain

import (
	"errors"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrValidation marks a malformed or incomplete position report. Nothing is
// persisted and nothing is broadcast when a report fails validation.
var ErrValidation = errors.New("invalid position report")

// ErrStorage marks a position store failure (connectivity loss, failed
// write or read). It is surfaced to the caller; retries are the caller's
// responsibility.
var ErrStorage = errors.New("position store failure")

// GeoJSONPoint is the persisted location shape. Coordinate order is
// [longitude, latitude] — the GeoJSON convention and part of the stored
// schema compatibility surface.
type GeoJSONPoint struct {
	Type        string    `json:"type" bson:"type"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates"`
}

// NewPoint builds a GeoJSON point from a (longitude, latitude) pair.
func NewPoint(lng, lat float64) GeoJSONPoint {
	return GeoJSONPoint{Type: "Point", Coordinates: []float64{lng, lat}}
}

// Lng returns the longitude (first coordinate).
func (p GeoJSONPoint) Lng() float64 { return p.Coordinates[0] }

// Lat returns the latitude (second coordinate).
func (p GeoJSONPoint) Lat() float64 { return p.Coordinates[1] }

// PositionRecord is one immutable GPS observation for one vehicle at one
// instant. Records are append-only: no update or delete operation exists.
type PositionRecord struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	VehicleID    string             `json:"vehicleId" bson:"vehicleId"`
	Location     GeoJSONPoint       `json:"location" bson:"location"`
	Timestamp    time.Time          `json:"timestamp" bson:"timestamp"`
	Speed        *float64           `json:"speed,omitempty" bson:"speed,omitempty"`
	RouteSegment string             `json:"routeSegment,omitempty" bson:"routeSegment,omitempty"`
}

// NewPositionRecord validates a raw report and produces the canonical
// record. The timestamp is always assigned at acceptance time; a
// producer-supplied timestamp is never trusted.
//
// Validation rules:
//   - vehicleID must be non-empty
//   - coordinates must be a [longitude, latitude] pair of finite numbers,
//     with longitude in [-180, 180] and latitude in [-90, 90]
//   - speed, when present, must be non-negative (nil means unknown, not zero)
func NewPositionRecord(vehicleID string, coordinates []float64, speed *float64, routeSegment string, acceptedAt time.Time) (*PositionRecord, error) {
	if vehicleID == "" {
		return nil, fmt.Errorf("%w: vehicleId is required", ErrValidation)
	}
	if len(coordinates) != 2 {
		return nil, fmt.Errorf("%w: coordinates must be a [lng, lat] pair, got %d values", ErrValidation, len(coordinates))
	}
	lng, lat := coordinates[0], coordinates[1]
	if !isFinite(lng) || !isFinite(lat) {
		return nil, fmt.Errorf("%w: coordinates must be finite numbers", ErrValidation)
	}
	if lng < -180 || lng > 180 {
		return nil, fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrValidation, lng)
	}
	if lat < -90 || lat > 90 {
		return nil, fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrValidation, lat)
	}
	if speed != nil && *speed < 0 {
		return nil, fmt.Errorf("%w: speed must be non-negative, got %v", ErrValidation, *speed)
	}

	return &PositionRecord{
		VehicleID:    vehicleID,
		Location:     NewPoint(lng, lat),
		Timestamp:    acceptedAt.UTC(),
		Speed:        speed,
		RouteSegment: routeSegment,
	}, nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
