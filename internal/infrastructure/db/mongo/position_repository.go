package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fleettrack/tracking-system/internal/core/domain"
)

const collectionPositions = "vehicle_positions"

// timestampDesc is the canonical history sort: newest first, ties on equal
// timestamps broken by descending _id. ObjectIDs embed the insertion
// sequence, so the tie-break is deterministic: last inserted wins.
var timestampDesc = bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}

// PositionRepository implements ports.PositionRepository on MongoDB.
type PositionRepository struct {
	col *mongo.Collection
}

func NewPositionRepository(db *mongo.Database) *PositionRepository {
	return &PositionRepository{col: db.Collection(collectionPositions)}
}

// Append inserts one position document and returns its assigned id.
func (r *PositionRepository) Append(ctx context.Context, record *domain.PositionRecord) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.InsertOne(ctx, record)
	if err != nil {
		return "", storageErr("append position", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", storageErr("append position", fmt.Errorf("unexpected inserted id type %T", res.InsertedID))
	}
	return oid.Hex(), nil
}

// FindByVehicle returns all records for one vehicle, newest first.
func (r *PositionRepository) FindByVehicle(ctx context.Context, vehicleID string) ([]domain.PositionRecord, error) {
	return r.find(ctx, bson.M{"vehicleId": vehicleID})
}

// FindAll returns every stored record, newest first.
func (r *PositionRepository) FindAll(ctx context.Context) ([]domain.PositionRecord, error) {
	return r.find(ctx, bson.M{})
}

func (r *PositionRepository) find(ctx context.Context, filter bson.M) ([]domain.PositionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cursor, err := r.col.Find(ctx, filter, options.Find().SetSort(timestampDesc))
	if err != nil {
		return nil, storageErr("query positions", err)
	}

	var records []domain.PositionRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, storageErr("decode positions", err)
	}
	return records, nil
}

// latestDoc is the shape produced by the latest-per-vehicle aggregation,
// where the group key replaces _id.
type latestDoc struct {
	RecordID     primitive.ObjectID  `bson:"recordId"`
	VehicleID    string              `bson:"vehicleId"`
	Location     domain.GeoJSONPoint `bson:"location"`
	Timestamp    time.Time           `bson:"timestamp"`
	Speed        *float64            `bson:"speed,omitempty"`
	RouteSegment string              `bson:"routeSegment,omitempty"`
}

// LatestPerVehicle resolves the single most recent record per vehicle with
// a full sort-and-group aggregation: sort by timestamp descending (ties by
// descending _id), group by vehicleId, keep the first document per group.
func (r *PositionRepository) LatestPerVehicle(ctx context.Context) ([]domain.PositionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$sort", Value: timestampDesc}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$vehicleId"},
			{Key: "recordId", Value: bson.D{{Key: "$first", Value: "$_id"}}},
			{Key: "vehicleId", Value: bson.D{{Key: "$first", Value: "$vehicleId"}}},
			{Key: "location", Value: bson.D{{Key: "$first", Value: "$location"}}},
			{Key: "timestamp", Value: bson.D{{Key: "$first", Value: "$timestamp"}}},
			{Key: "speed", Value: bson.D{{Key: "$first", Value: "$speed"}}},
			{Key: "routeSegment", Value: bson.D{{Key: "$first", Value: "$routeSegment"}}},
		}}},
	}

	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, storageErr("aggregate latest positions", err)
	}

	var docs []latestDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, storageErr("decode latest positions", err)
	}

	records := make([]domain.PositionRecord, 0, len(docs))
	for _, d := range docs {
		records = append(records, domain.PositionRecord{
			ID:           d.RecordID,
			VehicleID:    d.VehicleID,
			Location:     d.Location,
			Timestamp:    d.Timestamp,
			Speed:        d.Speed,
			RouteSegment: d.RouteSegment,
		})
	}
	return records, nil
}

// EnsureIndexes creates the committed schema indexes: a 2dsphere index on
// location for geospatial queries and a compound index backing the
// per-vehicle history sort.
func (r *PositionRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "location", Value: "2dsphere"}}},
		{Keys: bson.D{{Key: "vehicleId", Value: 1}, {Key: "timestamp", Value: -1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(domain.ErrStorage, err))
}
