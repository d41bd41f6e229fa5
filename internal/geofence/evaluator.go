// Package geofence manages the caller's zone subscriptions and evaluates
// proximity alerts against vendor location updates.
package geofence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/munchmap/truck-radar/internal/geo"
	"github.com/munchmap/truck-radar/internal/models"
	"github.com/munchmap/truck-radar/internal/notify"
	"github.com/munchmap/truck-radar/internal/store"
)

// Evaluator owns the subscription set (set semantics keyed by zone id)
// and runs membership tests on every location update.
//
// Alerts fire on every update while the point is inside a zone; there is
// no previous-membership tracking to debounce repeated entries, and
// NotifyOnExit is never evaluated. Both carry over from the source
// behavior on purpose.
type Evaluator struct {
	store    store.Store
	notifier notify.Dispatcher

	mu    sync.RWMutex
	zones []models.GeoFenceZone
}

// NewEvaluator creates an Evaluator. Call Load before serving traffic.
func NewEvaluator(s store.Store, n notify.Dispatcher) *Evaluator {
	return &Evaluator{store: s, notifier: n}
}

// Load reads the subscription set from the durable store.
func (e *Evaluator) Load(ctx context.Context) error {
	var zones []models.GeoFenceZone
	if err := e.store.Get(ctx, store.KeyGeofenceSubscriptions, &zones); err != nil && err != store.ErrNotFound {
		return fmt.Errorf("load geofence subscriptions: %w", err)
	}
	e.mu.Lock()
	e.zones = zones
	e.mu.Unlock()
	return nil
}

// Subscribe adds a zone to the subscription set. Re-subscribing to an
// already-subscribed id is a no-op.
func (e *Evaluator) Subscribe(ctx context.Context, zone models.GeoFenceZone) {
	e.mu.Lock()
	for _, z := range e.zones {
		if z.ID == zone.ID {
			e.mu.Unlock()
			return
		}
	}
	e.zones = append(e.zones, zone)
	e.mu.Unlock()

	e.persist(ctx)
}

// Unsubscribe removes a zone by id. Removing an unsubscribed id is a
// silent no-op; the returned boolean distinguishes the trivial case.
func (e *Evaluator) Unsubscribe(ctx context.Context, zoneID string) bool {
	e.mu.Lock()
	found := false
	kept := e.zones[:0]
	for _, z := range e.zones {
		if z.ID == zoneID {
			found = true
			continue
		}
		kept = append(kept, z)
	}
	e.zones = kept
	e.mu.Unlock()
	if !found {
		return false
	}

	e.persist(ctx)
	return true
}

// Subscriptions returns a copy of the current subscription set.
func (e *Evaluator) Subscriptions() []models.GeoFenceZone {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]models.GeoFenceZone, len(e.zones))
	copy(out, e.zones)
	return out
}

// Check tests the point against every subscribed zone with enter
// notifications enabled, emits an alert per matching zone and forwards
// it to the notification dispatcher. Dispatch failures never affect the
// result.
func (e *Evaluator) Check(ctx context.Context, vendorID, vendorName string, lat, lng float64) []models.GeoFenceAlert {
	e.mu.RLock()
	zones := make([]models.GeoFenceZone, len(e.zones))
	copy(zones, e.zones)
	e.mu.RUnlock()

	var alerts []models.GeoFenceAlert
	for _, zone := range zones {
		if !zone.NotifyOnEnter {
			continue
		}
		dist := geo.Distance(lat, lng, zone.Latitude, zone.Longitude)
		if dist > zone.RadiusMeters {
			continue
		}
		alert := models.GeoFenceAlert{
			ID:         uuid.NewString(),
			ZoneID:     zone.ID,
			ZoneName:   zone.Name,
			VendorID:   vendorID,
			VendorName: vendorName,
			EventType:  models.GeoFenceEnter,
			Timestamp:  time.Now(),
		}
		alerts = append(alerts, alert)

		notification := notify.LocalNotification{
			Title: fmt.Sprintf("Food truck in %s!", zone.Name),
			Body:  fmt.Sprintf("%s is now in %s", vendorName, zone.Name),
			Data: map[string]string{
				"zone_id":   zone.ID,
				"vendor_id": vendorID,
				"event":     string(models.GeoFenceEnter),
			},
		}
		if err := e.notifier.ScheduleLocal(ctx, notification); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"zone_id":   zone.ID,
				"vendor_id": vendorID,
			}).Warn("Failed to dispatch geofence alert")
		}
	}
	return alerts
}

// persist writes the subscription set back to the store. Failures are
// logged and swallowed.
func (e *Evaluator) persist(ctx context.Context) {
	e.mu.RLock()
	zones := make([]models.GeoFenceZone, len(e.zones))
	copy(zones, e.zones)
	e.mu.RUnlock()

	if err := e.store.Set(ctx, store.KeyGeofenceSubscriptions, zones); err != nil {
		log.WithError(err).Error("Failed to persist geofence subscriptions")
	}
}
