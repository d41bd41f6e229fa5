// Package engine holds the vendor live-status registry and the location
// history ledger. One Engine is constructed at application start, loads
// its collections from the durable store, and writes them back after
// every mutation.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/munchmap/truck-radar/internal/models"
	"github.com/munchmap/truck-radar/internal/notify"
	"github.com/munchmap/truck-radar/internal/position"
	"github.com/munchmap/truck-radar/internal/store"
)

// ZoneChecker evaluates geofence subscriptions against a coordinate and
// forwards any alerts to the notification collaborator.
type ZoneChecker interface {
	Check(ctx context.Context, vendorID, vendorName string, lat, lng float64) []models.GeoFenceAlert
}

// Engine is the live-status registry plus the append-only session
// ledger. In-memory state is the source of truth; store writes are
// best-effort and never fail a mutation.
type Engine struct {
	store    store.Store
	position position.Provider
	notifier notify.Dispatcher
	zones    ZoneChecker

	mu          sync.RWMutex
	live        map[string]*models.TruckLocation
	history     []models.LocationHistoryEntry
	subscribers map[int]func([]models.TruckLocation)
	nextSubID   int
}

// New creates an Engine. Call Load before serving traffic.
func New(s store.Store, p position.Provider, n notify.Dispatcher, z ZoneChecker) *Engine {
	return &Engine{
		store:       s,
		position:    p,
		notifier:    n,
		zones:       z,
		live:        make(map[string]*models.TruckLocation),
		subscribers: make(map[int]func([]models.TruckLocation)),
	}
}

// Load reads the live map and the history ledger from the durable
// store. A missing key means a fresh install and is not an error.
func (e *Engine) Load(ctx context.Context) error {
	var locations []models.TruckLocation
	if err := e.store.Get(ctx, store.KeyTruckLocations, &locations); err != nil && err != store.ErrNotFound {
		return fmt.Errorf("load truck locations: %w", err)
	}

	var history []models.LocationHistoryEntry
	if err := e.store.Get(ctx, store.KeyLocationHistory, &history); err != nil && err != store.ErrNotFound {
		return fmt.Errorf("load location history: %w", err)
	}

	e.mu.Lock()
	e.live = make(map[string]*models.TruckLocation, len(locations))
	for i := range locations {
		loc := locations[i]
		e.live[loc.VendorID] = &loc
	}
	e.history = history
	e.mu.Unlock()
	return nil
}

// GoLive acquires a position fix, upserts the vendor's live record,
// opens a ledger session, evaluates geofence subscriptions and announces
// the vendor. A permission or device error is returned before any state
// changes; everything downstream of the fix is best-effort.
func (e *Engine) GoLive(ctx context.Context, vendorID, vendorName string) error {
	granted, err := e.position.RequestPermission(ctx)
	if err != nil {
		return fmt.Errorf("request location permission: %w", err)
	}
	if !granted {
		return position.ErrUnavailable
	}

	coord, err := e.position.CurrentPosition(ctx)
	if err != nil {
		return fmt.Errorf("acquire position: %w", err)
	}

	address, err := e.position.ReverseGeocode(ctx, coord)
	if err != nil {
		// best-effort enrichment only
		log.WithError(err).WithField("vendor_id", vendorID).Warn("Reverse geocode failed")
		address = ""
	}

	now := time.Now()
	e.mu.Lock()
	e.live[vendorID] = &models.TruckLocation{
		VendorID:  vendorID,
		Latitude:  coord.Latitude,
		Longitude: coord.Longitude,
		Address:   address,
		Timestamp: now,
		IsLive:    true,
	}
	// at most one open session per vendor: close any dangling one first
	e.closeOpenEntryLocked(vendorID, now, nil)
	e.history = append(e.history, models.LocationHistoryEntry{
		ID:        uuid.NewString(),
		VendorID:  vendorID,
		Latitude:  coord.Latitude,
		Longitude: coord.Longitude,
		Address:   address,
		StartTime: now,
	})
	e.mu.Unlock()

	e.persistLive(ctx)
	e.persistHistory(ctx)
	e.broadcast()

	e.zones.Check(ctx, vendorID, vendorName, coord.Latitude, coord.Longitude)

	notification := notify.LocalNotification{
		Title: fmt.Sprintf("%s is now live!", vendorName),
		Body:  address,
		Data:  map[string]string{"vendor_id": vendorID, "event": "vendor_live"},
	}
	if err := e.notifier.ScheduleLocal(ctx, notification); err != nil {
		log.WithError(err).WithField("vendor_id", vendorID).Warn("Failed to dispatch live notification")
	}

	log.WithFields(log.Fields{
		"vendor_id": vendorID,
		"latitude":  coord.Latitude,
		"longitude": coord.Longitude,
	}).Info("Vendor went live")
	return nil
}

// GoOffline clears the vendor's live flag in place and closes the open
// ledger session with the supplied stats. Returns false when no live
// record exists; that is a silent no-op, not an error.
func (e *Engine) GoOffline(ctx context.Context, vendorID string, stats *models.SessionStats) bool {
	now := time.Now()

	e.mu.Lock()
	loc, ok := e.live[vendorID]
	if !ok || !loc.IsLive {
		e.mu.Unlock()
		return false
	}
	loc.IsLive = false
	e.closeOpenEntryLocked(vendorID, now, stats)
	e.mu.Unlock()

	e.persistLive(ctx)
	e.persistHistory(ctx)
	e.broadcast()

	log.WithField("vendor_id", vendorID).Info("Vendor went offline")
	return true
}

// UpdateLiveLocation refreshes coordinates and timestamp for an
// already-live vendor. Unknown or offline vendors are a silent no-op.
func (e *Engine) UpdateLiveLocation(ctx context.Context, vendorID string) bool {
	e.mu.RLock()
	loc, ok := e.live[vendorID]
	isLive := ok && loc.IsLive
	e.mu.RUnlock()
	if !isLive {
		return false
	}

	coord, err := e.position.CurrentPosition(ctx)
	if err != nil {
		log.WithError(err).WithField("vendor_id", vendorID).Warn("Position refresh failed")
		return false
	}

	e.mu.Lock()
	loc, ok = e.live[vendorID]
	if !ok || !loc.IsLive {
		e.mu.Unlock()
		return false
	}
	loc.Latitude = coord.Latitude
	loc.Longitude = coord.Longitude
	loc.Timestamp = time.Now()
	e.mu.Unlock()

	e.persistLive(ctx)
	e.broadcast()

	e.zones.Check(ctx, vendorID, "", coord.Latitude, coord.Longitude)
	return true
}

// LiveTrucks returns every record currently flagged live. Order is
// unspecified.
func (e *Engine) LiveTrucks() []models.TruckLocation {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.liveSnapshotLocked()
}

// IsVendorLive reports whether the vendor is currently broadcasting.
func (e *Engine) IsVendorLive(vendorID string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	loc, ok := e.live[vendorID]
	return ok && loc.IsLive
}

// LastKnownLocation returns the vendor's record whether or not it is
// live; going offline keeps the last position queryable.
func (e *Engine) LastKnownLocation(vendorID string) (models.TruckLocation, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	loc, ok := e.live[vendorID]
	if !ok {
		return models.TruckLocation{}, false
	}
	return *loc, true
}

// Subscribe registers a listener invoked with the full live-trucks list
// after every live-state mutation. Callbacks run synchronously relative
// to the mutation; no ordering guarantee across listeners. The returned
// function removes the listener.
func (e *Engine) Subscribe(fn func([]models.TruckLocation)) func() {
	e.mu.Lock()
	id := e.nextSubID
	e.nextSubID++
	e.subscribers[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.subscribers, id)
		e.mu.Unlock()
	}
}

// History returns the vendor's ledger entries, oldest first. Entries
// are never deleted by the engine.
func (e *Engine) History(vendorID string) []models.LocationHistoryEntry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []models.LocationHistoryEntry
	for _, entry := range e.history {
		if entry.VendorID == vendorID {
			out = append(out, entry)
		}
	}
	return out
}

// AppendSessionNotes appends notes to a closed or open ledger entry.
// Notes are the only field mutable after close. Returns false when the
// entry does not exist.
func (e *Engine) AppendSessionNotes(ctx context.Context, entryID, notes string) bool {
	e.mu.Lock()
	found := false
	for i := range e.history {
		if e.history[i].ID == entryID {
			if e.history[i].Notes != "" {
				e.history[i].Notes += "\n" + notes
			} else {
				e.history[i].Notes = notes
			}
			found = true
			break
		}
	}
	e.mu.Unlock()
	if !found {
		return false
	}

	e.persistHistory(ctx)
	return true
}

// closeOpenEntryLocked closes the most recent open entry for the vendor,
// copying stats onto it. Caller holds the write lock.
func (e *Engine) closeOpenEntryLocked(vendorID string, now time.Time, stats *models.SessionStats) {
	for i := len(e.history) - 1; i >= 0; i-- {
		entry := &e.history[i]
		if entry.VendorID != vendorID || !entry.IsOpen() {
			continue
		}
		end := now
		entry.EndTime = &end
		if stats != nil {
			entry.CustomersServed = stats.CustomersServed
			entry.Revenue = stats.Revenue
			if stats.Notes != "" {
				entry.Notes = stats.Notes
			}
		}
		return
	}
}

// liveSnapshotLocked copies the currently-live records. Caller holds at
// least the read lock.
func (e *Engine) liveSnapshotLocked() []models.TruckLocation {
	out := make([]models.TruckLocation, 0, len(e.live))
	for _, loc := range e.live {
		if loc.IsLive {
			out = append(out, *loc)
		}
	}
	return out
}

// broadcast invokes every subscriber with a fresh snapshot.
func (e *Engine) broadcast() {
	e.mu.RLock()
	snapshot := e.liveSnapshotLocked()
	subs := make([]func([]models.TruckLocation), 0, len(e.subscribers))
	for _, fn := range e.subscribers {
		subs = append(subs, fn)
	}
	e.mu.RUnlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}

// persistLive writes the full location map back to the store. Failures
// are logged and swallowed; in-memory state stays authoritative.
func (e *Engine) persistLive(ctx context.Context) {
	e.mu.RLock()
	locations := make([]models.TruckLocation, 0, len(e.live))
	for _, loc := range e.live {
		locations = append(locations, *loc)
	}
	e.mu.RUnlock()

	if err := e.store.Set(ctx, store.KeyTruckLocations, locations); err != nil {
		log.WithError(err).Error("Failed to persist truck locations")
	}
}

// persistHistory writes the full ledger back to the store.
func (e *Engine) persistHistory(ctx context.Context) {
	e.mu.RLock()
	history := make([]models.LocationHistoryEntry, len(e.history))
	copy(history, e.history)
	e.mu.RUnlock()

	if err := e.store.Set(ctx, store.KeyLocationHistory, history); err != nil {
		log.WithError(err).Error("Failed to persist location history")
	}
}
