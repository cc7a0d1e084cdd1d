package service

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/fleettrack/tracking-system/internal/core/domain"
	"github.com/fleettrack/tracking-system/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub repository
// ---------------------------------------------------------------------------

// stubPositionRepo mirrors the real Mongo repo's query semantics:
// timestamp-descending sorts with ties broken by descending insertion
// sequence, and a sort-then-group-first latest resolution.
type stubPositionRepo struct {
	records   []domain.PositionRecord
	appendErr error
	queryErr  error
}

func (r *stubPositionRepo) Append(_ context.Context, rec *domain.PositionRecord) (string, error) {
	if r.appendErr != nil {
		return "", r.appendErr
	}
	stored := *rec
	stored.ID = primitive.NewObjectID()
	r.records = append(r.records, stored)
	return stored.ID.Hex(), nil
}

func (r *stubPositionRepo) FindByVehicle(_ context.Context, vehicleID string) ([]domain.PositionRecord, error) {
	if r.queryErr != nil {
		return nil, r.queryErr
	}
	var out []domain.PositionRecord
	for i := len(r.records) - 1; i >= 0; i-- {
		if r.records[i].VehicleID == vehicleID {
			out = append(out, r.records[i])
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (r *stubPositionRepo) FindAll(_ context.Context) ([]domain.PositionRecord, error) {
	if r.queryErr != nil {
		return nil, r.queryErr
	}
	out := make([]domain.PositionRecord, 0, len(r.records))
	for i := len(r.records) - 1; i >= 0; i-- {
		out = append(out, r.records[i])
	}
	sortNewestFirst(out)
	return out, nil
}

func (r *stubPositionRepo) LatestPerVehicle(_ context.Context) ([]domain.PositionRecord, error) {
	all, err := r.FindAll(context.Background())
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []domain.PositionRecord
	for _, rec := range all {
		if !seen[rec.VehicleID] {
			seen[rec.VehicleID] = true
			out = append(out, rec)
		}
	}
	return out, nil
}

// sortNewestFirst is a stable sort on timestamp descending; input arrives
// in reverse insertion order, so equal timestamps keep last-inserted first.
func sortNewestFirst(records []domain.PositionRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
}

// ---------------------------------------------------------------------------
// Recording broadcaster
// ---------------------------------------------------------------------------

type recordingBroadcaster struct {
	updates []ports.VehicleUpdate
}

func (b *recordingBroadcaster) Broadcast(u ports.VehicleUpdate) {
	b.updates = append(b.updates, u)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func f64(v float64) *float64 { return &v }

// newTestService wires a service whose clock advances one second per
// SubmitPosition call.
func newTestService(repo *stubPositionRepo, bc *recordingBroadcaster) *trackingService {
	base := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	calls := 0
	return &trackingService{
		repo:        repo,
		broadcaster: bc,
		log:         zerolog.Nop(),
		now: func() time.Time {
			calls++
			return base.Add(time.Duration(calls) * time.Second)
		},
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestSubmitPosition_HappyPath(t *testing.T) {
	repo := &stubPositionRepo{}
	bc := &recordingBroadcaster{}
	svc := newTestService(repo, bc)

	result, err := svc.SubmitPosition(context.Background(), ports.SubmitPositionInput{
		VehicleID:    "T1",
		Coordinates:  []float64{12.5, 41.9},
		Speed:        f64(30),
		RouteSegment: "A1",
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if result.ID == "" {
		t.Errorf("expected an assigned record id")
	}
	if len(repo.records) != 1 {
		t.Fatalf("expected 1 stored record, got %d", len(repo.records))
	}

	// The broadcast payload flips stored (lng, lat) to (lat, lng).
	if len(bc.updates) != 1 {
		t.Fatalf("expected 1 broadcast, got %d", len(bc.updates))
	}
	u := bc.updates[0]
	if u.VehicleID != "T1" || u.Lat != 41.9 || u.Lng != 12.5 {
		t.Errorf("unexpected broadcast payload: %+v", u)
	}
	if u.Speed == nil || *u.Speed != 30 || u.RouteSegment != "A1" {
		t.Errorf("unexpected broadcast payload: %+v", u)
	}
}

func TestSubmitPosition_ValidationFailure(t *testing.T) {
	cases := []struct {
		name  string
		input ports.SubmitPositionInput
	}{
		{"empty vehicle id", ports.SubmitPositionInput{VehicleID: "", Coordinates: []float64{1, 2}}},
		{"bad coordinate count", ports.SubmitPositionInput{VehicleID: "T1", Coordinates: []float64{1}}},
		{"negative speed", ports.SubmitPositionInput{VehicleID: "T1", Coordinates: []float64{1, 2}, Speed: f64(-5)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &stubPositionRepo{}
			bc := &recordingBroadcaster{}
			svc := newTestService(repo, bc)

			_, err := svc.SubmitPosition(context.Background(), tc.input)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected ErrValidation, got: %v", err)
			}
			if len(repo.records) != 0 {
				t.Errorf("rejected report must not be stored")
			}
			if len(bc.updates) != 0 {
				t.Errorf("rejected report must not be broadcast")
			}
		})
	}
}

func TestSubmitPosition_StorageFailure(t *testing.T) {
	repo := &stubPositionRepo{appendErr: domain.ErrStorage}
	bc := &recordingBroadcaster{}
	svc := newTestService(repo, bc)

	_, err := svc.SubmitPosition(context.Background(), ports.SubmitPositionInput{
		VehicleID:   "T1",
		Coordinates: []float64{12.5, 41.9},
	})
	if !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("expected ErrStorage, got: %v", err)
	}
	if len(bc.updates) != 0 {
		t.Errorf("failed append must not be broadcast")
	}
}

func TestSubmitPosition_PerVehicleBroadcastOrder(t *testing.T) {
	repo := &stubPositionRepo{}
	bc := &recordingBroadcaster{}
	svc := newTestService(repo, bc)

	for _, lng := range []float64{10.0, 10.1, 10.2} {
		if _, err := svc.SubmitPosition(context.Background(), ports.SubmitPositionInput{
			VehicleID:   "T1",
			Coordinates: []float64{lng, 45.0},
		}); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}

	if len(bc.updates) != 3 {
		t.Fatalf("expected 3 broadcasts, got %d", len(bc.updates))
	}
	for i, lng := range []float64{10.0, 10.1, 10.2} {
		if bc.updates[i].Lng != lng {
			t.Errorf("broadcast %d out of acceptance order: %+v", i, bc.updates[i])
		}
	}
}

func TestHistory_UnknownVehicleIsEmptyNotError(t *testing.T) {
	svc := newTestService(&stubPositionRepo{}, &recordingBroadcaster{})

	records, err := svc.History(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("unknown vehicle must not be an error, got: %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Errorf("expected empty slice, got: %v", records)
	}
}

func TestHistory_NewestFirstAndContainsAppended(t *testing.T) {
	repo := &stubPositionRepo{}
	svc := newTestService(repo, &recordingBroadcaster{})
	ctx := context.Background()

	for _, in := range []ports.SubmitPositionInput{
		{VehicleID: "T1", Coordinates: []float64{12.5, 41.9}},
		{VehicleID: "T2", Coordinates: []float64{9.1, 45.4}},
		{VehicleID: "T1", Coordinates: []float64{12.6, 42.0}},
	} {
		if _, err := svc.SubmitPosition(ctx, in); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}

	records, err := svc.History(ctx, "T1")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records for T1, got %d", len(records))
	}
	if records[0].Location.Lng() != 12.6 || records[1].Location.Lng() != 12.5 {
		t.Errorf("expected newest first, got: %v then %v", records[0].Location, records[1].Location)
	}
	if !records[0].Timestamp.After(records[1].Timestamp) {
		t.Errorf("expected descending timestamps")
	}
}

func TestLatestSnapshot_OnePerVehicleWithFlip(t *testing.T) {
	repo := &stubPositionRepo{}
	svc := newTestService(repo, &recordingBroadcaster{})
	ctx := context.Background()

	// The end-to-end example: two reports for T1, one for T2.
	for _, in := range []ports.SubmitPositionInput{
		{VehicleID: "T1", Coordinates: []float64{12.5, 41.9}, Speed: f64(30), RouteSegment: "A1"},
		{VehicleID: "T2", Coordinates: []float64{9.1, 45.4}},
		{VehicleID: "T1", Coordinates: []float64{12.6, 42.0}, Speed: f64(35)},
	} {
		if _, err := svc.SubmitPosition(ctx, in); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}

	snapshot, err := svc.LatestSnapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	if len(snapshot) != 2 {
		t.Fatalf("expected one entry per vehicle, got %d", len(snapshot))
	}

	byVehicle := make(map[string]ports.VehicleUpdate)
	for _, u := range snapshot {
		byVehicle[u.VehicleID] = u
	}

	t1 := byVehicle["T1"]
	if t1.Lat != 42.0 || t1.Lng != 12.6 {
		t.Errorf("expected flipped latest coordinates for T1, got: %+v", t1)
	}
	if t1.Speed == nil || *t1.Speed != 35 {
		t.Errorf("expected latest speed 35 for T1, got: %+v", t1)
	}
	t2 := byVehicle["T2"]
	if t2.Lat != 45.4 || t2.Lng != 9.1 {
		t.Errorf("unexpected T2 entry: %+v", t2)
	}
	if t2.Speed != nil {
		t.Errorf("T2 speed was never reported, must stay absent")
	}
}

func TestQueries_Idempotent(t *testing.T) {
	repo := &stubPositionRepo{}
	svc := newTestService(repo, &recordingBroadcaster{})
	ctx := context.Background()

	for _, in := range []ports.SubmitPositionInput{
		{VehicleID: "T1", Coordinates: []float64{12.5, 41.9}},
		{VehicleID: "T2", Coordinates: []float64{9.1, 45.4}},
	} {
		if _, err := svc.SubmitPosition(ctx, in); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}

	first, err := svc.AllHistory(ctx)
	if err != nil {
		t.Fatalf("all history failed: %v", err)
	}
	second, err := svc.AllHistory(ctx)
	if err != nil {
		t.Fatalf("all history failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated query with no writes must return identical results")
	}

	snap1, _ := svc.LatestSnapshot(ctx)
	snap2, _ := svc.LatestSnapshot(ctx)
	sort.Slice(snap1, func(i, j int) bool { return snap1[i].VehicleID < snap1[j].VehicleID })
	sort.Slice(snap2, func(i, j int) bool { return snap2[i].VehicleID < snap2[j].VehicleID })
	if !reflect.DeepEqual(snap1, snap2) {
		t.Errorf("repeated snapshot with no writes must return identical results")
	}
}

func TestLatestSnapshot_StorageFailureSurfaced(t *testing.T) {
	repo := &stubPositionRepo{queryErr: domain.ErrStorage}
	svc := newTestService(repo, &recordingBroadcaster{})

	if _, err := svc.LatestSnapshot(context.Background()); !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("expected ErrStorage, got: %v", err)
	}
}
