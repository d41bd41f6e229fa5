package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/munchmap/truck-radar/internal/models"
	"github.com/munchmap/truck-radar/internal/notify"
	"github.com/munchmap/truck-radar/internal/position"
	"github.com/munchmap/truck-radar/internal/store"
)

type mockDispatcher struct {
	scheduleFn func(ctx context.Context, n notify.LocalNotification) error
	calls      []notify.LocalNotification
}

func (m *mockDispatcher) ScheduleLocal(ctx context.Context, n notify.LocalNotification) error {
	m.calls = append(m.calls, n)
	if m.scheduleFn != nil {
		return m.scheduleFn(ctx, n)
	}
	return nil
}

type mockZoneChecker struct {
	calls []models.Coordinate
}

func (m *mockZoneChecker) Check(ctx context.Context, vendorID, vendorName string, lat, lng float64) []models.GeoFenceAlert {
	m.calls = append(m.calls, models.Coordinate{Latitude: lat, Longitude: lng})
	return nil
}

type fixture struct {
	engine     *Engine
	store      *store.MemoryStore
	provider   *position.FixedProvider
	dispatcher *mockDispatcher
	zones      *mockZoneChecker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: store.NewMemoryStore(),
		provider: &position.FixedProvider{
			Granted: true,
			Coord:   models.Coordinate{Latitude: 37.7793, Longitude: -122.4193},
			Address: "1 Plaza Way",
		},
		dispatcher: &mockDispatcher{},
		zones:      &mockZoneChecker{},
	}
	f.engine = New(f.store, f.provider, f.dispatcher, f.zones)
	if err := f.engine.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	return f
}

func TestGoLive_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.engine.GoLive(ctx, "v1", "Taco Cart"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	trucks := f.engine.LiveTrucks()
	if len(trucks) != 1 {
		t.Fatalf("expected 1 live truck, got %d", len(trucks))
	}
	if trucks[0].VendorID != "v1" || !trucks[0].IsLive {
		t.Errorf("unexpected live record: %+v", trucks[0])
	}
	if trucks[0].Address != "1 Plaza Way" {
		t.Errorf("expected reverse-geocoded address, got %q", trucks[0].Address)
	}
	if !f.engine.IsVendorLive("v1") {
		t.Error("expected vendor to be live")
	}

	history := f.engine.History("v1")
	if len(history) != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", len(history))
	}
	if !history[0].IsOpen() {
		t.Error("expected an open session")
	}

	if len(f.zones.calls) != 1 {
		t.Errorf("expected 1 geofence evaluation, got %d", len(f.zones.calls))
	}
	if len(f.dispatcher.calls) != 1 {
		t.Errorf("expected 1 live notification, got %d", len(f.dispatcher.calls))
	}
}

func TestGoLive_PermissionDenied(t *testing.T) {
	f := newFixture(t)
	f.provider.Granted = false

	err := f.engine.GoLive(context.Background(), "v1", "Taco Cart")
	if !errors.Is(err, position.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}

	// no partial state: nothing was committed before the permission check
	if len(f.engine.LiveTrucks()) != 0 {
		t.Error("expected no live trucks")
	}
	if len(f.engine.History("v1")) != 0 {
		t.Error("expected no ledger entries")
	}
	if len(f.zones.calls) != 0 || len(f.dispatcher.calls) != 0 {
		t.Error("expected no downstream side effects")
	}
}

func TestGoLive_PositionError(t *testing.T) {
	f := newFixture(t)
	f.provider.FixError = errors.New("gps timeout")

	if err := f.engine.GoLive(context.Background(), "v1", "Taco Cart"); err == nil {
		t.Fatal("expected error")
	}
	if len(f.engine.LiveTrucks()) != 0 {
		t.Error("expected no live trucks after failed fix")
	}
}

func TestGoLive_SecondSessionClosesDanglingOne(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.engine.GoLive(ctx, "v1", "Taco Cart")
	f.engine.GoLive(ctx, "v1", "Taco Cart")

	history := f.engine.History("v1")
	if len(history) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(history))
	}
	open := 0
	for _, e := range history {
		if e.IsOpen() {
			open++
		}
	}
	if open != 1 {
		t.Errorf("expected exactly one open session, got %d", open)
	}
}

func TestGoOffline_ClosesSessionWithStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.engine.GoLive(ctx, "v1", "Taco Cart")

	customers := 42
	revenue := 317.50
	ok := f.engine.GoOffline(ctx, "v1", &models.SessionStats{
		CustomersServed: &customers,
		Revenue:         &revenue,
		Notes:           "busy lunch rush",
	})
	if !ok {
		t.Fatal("expected offline to succeed")
	}

	if f.engine.IsVendorLive("v1") {
		t.Error("expected vendor to be offline")
	}
	// record survives offline for last-known-location queries
	loc, found := f.engine.LastKnownLocation("v1")
	if !found || loc.IsLive {
		t.Errorf("expected retained non-live record, got %+v found=%v", loc, found)
	}

	history := f.engine.History("v1")
	if len(history) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(history))
	}
	entry := history[0]
	if entry.IsOpen() {
		t.Error("expected session to be closed")
	}
	if entry.CustomersServed == nil || *entry.CustomersServed != 42 {
		t.Errorf("expected customers copied, got %v", entry.CustomersServed)
	}
	if entry.Revenue == nil || *entry.Revenue != 317.50 {
		t.Errorf("expected revenue copied, got %v", entry.Revenue)
	}
	if entry.Notes != "busy lunch rush" {
		t.Errorf("expected notes copied, got %q", entry.Notes)
	}
}

func TestGoOffline_NoLiveRecord(t *testing.T) {
	f := newFixture(t)
	if f.engine.GoOffline(context.Background(), "unknown", nil) {
		t.Error("expected no-op for unknown vendor")
	}
}

func TestGoOffline_LeavesOtherEntriesUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.engine.GoLive(ctx, "v1", "Taco Cart")
	f.engine.GoOffline(ctx, "v1", nil)
	f.engine.GoLive(ctx, "v1", "Taco Cart")
	f.engine.GoOffline(ctx, "v1", nil)

	f.engine.GoLive(ctx, "v2", "Burger Bus")

	historyV1 := f.engine.History("v1")
	if len(historyV1) != 2 {
		t.Fatalf("expected 2 entries for v1, got %d", len(historyV1))
	}
	for i, e := range historyV1 {
		if e.IsOpen() {
			t.Errorf("entry %d: expected closed", i)
		}
	}
	historyV2 := f.engine.History("v2")
	if len(historyV2) != 1 || !historyV2[0].IsOpen() {
		t.Errorf("expected one open entry for v2, got %+v", historyV2)
	}
}

func TestUpdateLiveLocation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// silent no-op for an unknown vendor
	if f.engine.UpdateLiveLocation(ctx, "v1") {
		t.Error("expected no-op before going live")
	}

	f.engine.GoLive(ctx, "v1", "Taco Cart")
	f.provider.Coord = models.Coordinate{Latitude: 37.7599, Longitude: -122.4148}

	if !f.engine.UpdateLiveLocation(ctx, "v1") {
		t.Fatal("expected update to succeed")
	}
	trucks := f.engine.LiveTrucks()
	if trucks[0].Latitude != 37.7599 {
		t.Errorf("expected refreshed latitude, got %f", trucks[0].Latitude)
	}
	// each update re-runs the geofence scan
	if len(f.zones.calls) != 2 {
		t.Errorf("expected 2 geofence evaluations, got %d", len(f.zones.calls))
	}

	// no-op again once offline
	f.engine.GoOffline(ctx, "v1", nil)
	if f.engine.UpdateLiveLocation(ctx, "v1") {
		t.Error("expected no-op after going offline")
	}
}

func TestSubscribe_BroadcastAndUnsubscribe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var snapshots [][]models.TruckLocation
	unsubscribe := f.engine.Subscribe(func(trucks []models.TruckLocation) {
		snapshots = append(snapshots, trucks)
	})

	f.engine.GoLive(ctx, "v1", "Taco Cart")
	if len(snapshots) != 1 {
		t.Fatalf("expected 1 broadcast, got %d", len(snapshots))
	}
	if len(snapshots[0]) != 1 || snapshots[0][0].VendorID != "v1" {
		t.Errorf("unexpected snapshot: %+v", snapshots[0])
	}

	f.engine.GoOffline(ctx, "v1", nil)
	if len(snapshots) != 2 {
		t.Fatalf("expected 2 broadcasts, got %d", len(snapshots))
	}
	if len(snapshots[1]) != 0 {
		t.Errorf("expected empty live list after offline, got %+v", snapshots[1])
	}

	unsubscribe()
	f.engine.GoLive(ctx, "v1", "Taco Cart")
	if len(snapshots) != 2 {
		t.Errorf("expected no broadcast after unsubscribe, got %d", len(snapshots))
	}
}

func TestAppendSessionNotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.engine.GoLive(ctx, "v1", "Taco Cart")
	f.engine.GoOffline(ctx, "v1", &models.SessionStats{Notes: "sold out early"})

	entry := f.engine.History("v1")[0]
	if !f.engine.AppendSessionNotes(ctx, entry.ID, "bring more napkins next time") {
		t.Fatal("expected notes append to succeed")
	}
	got := f.engine.History("v1")[0].Notes
	want := "sold out early\nbring more napkins next time"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	if f.engine.AppendSessionNotes(ctx, "missing-id", "x") {
		t.Error("expected no-op for unknown entry")
	}
}

func TestEngine_PersistsAcrossReload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.engine.GoLive(ctx, "v1", "Taco Cart")
	f.engine.GoLive(ctx, "v2", "Burger Bus")
	f.engine.GoOffline(ctx, "v2", nil)

	reloaded := New(f.store, f.provider, f.dispatcher, f.zones)
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("reload failed: %v", err)
	}

	if !reloaded.IsVendorLive("v1") {
		t.Error("expected v1 to still be live after reload")
	}
	if reloaded.IsVendorLive("v2") {
		t.Error("expected v2 to still be offline after reload")
	}
	if len(reloaded.History("v1")) != 1 || len(reloaded.History("v2")) != 1 {
		t.Error("expected ledger to survive reload")
	}
}

func TestGoLive_NotificationFailureDoesNotAffectState(t *testing.T) {
	f := newFixture(t)
	f.dispatcher.scheduleFn = func(_ context.Context, _ notify.LocalNotification) error {
		return errors.New("delivery transport down")
	}

	if err := f.engine.GoLive(context.Background(), "v1", "Taco Cart"); err != nil {
		t.Fatalf("expected success despite dispatch failure, got %v", err)
	}
	if !f.engine.IsVendorLive("v1") {
		t.Error("expected vendor live despite dispatch failure")
	}
}
