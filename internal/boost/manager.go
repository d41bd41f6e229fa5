// Package boost manages paid time-boxed visibility listings.
package boost

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/munchmap/truck-radar/internal/models"
	"github.com/munchmap/truck-radar/internal/store"
)

// Manager owns the featured-listing collection: load at init, save after
// every mutation. Boosts do not stack or extend; purchasing always
// starts a fresh window.
type Manager struct {
	store store.Store
	now   func() time.Time

	mu       sync.RWMutex
	listings []models.FeaturedListing
}

// NewManager creates a Manager. Call Load before serving traffic.
func NewManager(s store.Store) *Manager {
	return &Manager{store: s, now: time.Now}
}

// Load reads the listing collection from the durable store.
func (m *Manager) Load(ctx context.Context) error {
	var listings []models.FeaturedListing
	if err := m.store.Get(ctx, store.KeyFeaturedListings, &listings); err != nil && err != store.ErrNotFound {
		return fmt.Errorf("load featured listings: %w", err)
	}
	m.mu.Lock()
	m.listings = listings
	m.mu.Unlock()
	return nil
}

// Purchase creates a listing for the tier, replacing any existing
// listing for the vendor regardless of its expiry state. An unknown
// level is the only error.
func (m *Manager) Purchase(ctx context.Context, vendorID string, level models.BoostLevel) (models.FeaturedListing, error) {
	tier, ok := models.BoostTiers[level]
	if !ok {
		return models.FeaturedListing{}, fmt.Errorf("unknown boost level %q", level)
	}

	now := m.now()
	listing := models.FeaturedListing{
		VendorID:  vendorID,
		StartDate: now,
		EndDate:   now.Add(tier.Duration),
		Level:     level,
	}

	m.mu.Lock()
	kept := m.listings[:0]
	for _, l := range m.listings {
		if l.VendorID != vendorID {
			kept = append(kept, l)
		}
	}
	m.listings = append(kept, listing)
	m.mu.Unlock()

	m.persist(ctx)

	log.WithFields(log.Fields{
		"vendor_id": vendorID,
		"level":     level,
		"end_date":  listing.EndDate,
	}).Info("Boost purchased")
	return listing, nil
}

// ActiveBoost returns the vendor's listing if its end date is strictly
// in the future, nil otherwise.
func (m *Manager) ActiveBoost(vendorID string) *models.FeaturedListing {
	now := m.now()
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.listings {
		if m.listings[i].VendorID == vendorID && m.listings[i].IsActive(now) {
			l := m.listings[i]
			return &l
		}
	}
	return nil
}

// FeaturedVendors returns vendor ids of all active listings ordered by
// tier rank, spotlight first. Ties keep the underlying order.
func (m *Manager) FeaturedVendors() []string {
	now := m.now()
	m.mu.RLock()
	active := make([]models.FeaturedListing, 0, len(m.listings))
	for _, l := range m.listings {
		if l.IsActive(now) {
			active = append(active, l)
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(active, func(i, j int) bool {
		return models.BoostTiers[active[i].Level].Rank > models.BoostTiers[active[j].Level].Rank
	})

	out := make([]string, len(active))
	for i, l := range active {
		out[i] = l.VendorID
	}
	return out
}

// Multiplier returns the tier's ranking multiplier for the vendor, or 1
// without an active boost. External ranking code applies it; the engine
// never does.
func (m *Manager) Multiplier(vendorID string) float64 {
	listing := m.ActiveBoost(vendorID)
	if listing == nil {
		return 1
	}
	return models.BoostTiers[listing.Level].Multiplier
}

// RecordImpression increments the impression counter on the vendor's
// current listing. A vendor without a listing accrues nothing; that is
// a silent no-op, not an error.
func (m *Manager) RecordImpression(ctx context.Context, vendorID string) bool {
	return m.bump(ctx, vendorID, func(l *models.FeaturedListing) { l.Impressions++ })
}

// RecordClick increments the click counter on the vendor's current
// listing, no-op without one.
func (m *Manager) RecordClick(ctx context.Context, vendorID string) bool {
	return m.bump(ctx, vendorID, func(l *models.FeaturedListing) { l.Clicks++ })
}

func (m *Manager) bump(ctx context.Context, vendorID string, inc func(*models.FeaturedListing)) bool {
	m.mu.Lock()
	found := false
	for i := range m.listings {
		if m.listings[i].VendorID == vendorID {
			inc(&m.listings[i])
			found = true
			break
		}
	}
	m.mu.Unlock()
	if !found {
		return false
	}

	m.persist(ctx)
	return true
}

// persist writes the listing collection back to the store. Failures are
// logged and swallowed.
func (m *Manager) persist(ctx context.Context) {
	m.mu.RLock()
	listings := make([]models.FeaturedListing, len(m.listings))
	copy(listings, m.listings)
	m.mu.RUnlock()

	if err := m.store.Set(ctx, store.KeyFeaturedListings, listings); err != nil {
		log.WithError(err).Error("Failed to persist featured listings")
	}
}
