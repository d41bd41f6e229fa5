package store

import (
	"context"
	"errors"
)

// Persisted collection keys. Each engine collection is serialized as one
// JSON blob under its own key; there is no multi-key transaction.
const (
	KeyTruckLocations        = "truck_locations"
	KeyLocationHistory       = "location_history"
	KeyGeofenceSubscriptions = "geofence_subscriptions"
	KeyFeaturedListings      = "featured_listings"
)

// ErrNotFound is returned by Get when no value exists under the key.
var ErrNotFound = errors.New("key not found")

// Store defines the durable key/value persistence boundary. Values are
// serialized collections; writes are best-effort and non-transactional.
type Store interface {
	Get(ctx context.Context, key string, out interface{}) error
	Set(ctx context.Context, key string, val interface{}) error
}
