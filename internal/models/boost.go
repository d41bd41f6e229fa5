package models

import "time"

// BoostLevel identifies a paid visibility tier.
type BoostLevel string

const (
	BoostBasic     BoostLevel = "basic"
	BoostPremium   BoostLevel = "premium"
	BoostSpotlight BoostLevel = "spotlight"
)

// IsValidBoostLevel checks if a boost level is valid
func IsValidBoostLevel(level BoostLevel) bool {
	switch level {
	case BoostBasic, BoostPremium, BoostSpotlight:
		return true
	default:
		return false
	}
}

// BoostTier is the static pricing/duration/feature table for one level.
type BoostTier struct {
	Level      BoostLevel    `json:"level"`
	Price      float64       `json:"price"` // in USD
	Duration   time.Duration `json:"duration"`
	Multiplier float64       `json:"multiplier"` // applied by external ranking code
	Rank       int           `json:"rank"`       // spotlight > premium > basic
	Features   []string      `json:"features"`
}

// BoostTiers is the read-only tier catalog, keyed by level.
var BoostTiers = map[BoostLevel]BoostTier{
	BoostBasic: {
		Level:      BoostBasic,
		Price:      9.99,
		Duration:   24 * time.Hour,
		Multiplier: 1.5,
		Rank:       1,
		Features:   []string{"Higher search placement", "Featured badge"},
	},
	BoostPremium: {
		Level:      BoostPremium,
		Price:      24.99,
		Duration:   72 * time.Hour,
		Multiplier: 2.0,
		Rank:       2,
		Features:   []string{"Top of search results", "Featured badge", "Map pin highlight"},
	},
	BoostSpotlight: {
		Level:      BoostSpotlight,
		Price:      49.99,
		Duration:   7 * 24 * time.Hour,
		Multiplier: 3.0,
		Rank:       3,
		Features:   []string{"Home screen spotlight", "Top of search results", "Featured badge", "Map pin highlight"},
	},
}

// FeaturedListing is a time-boxed paid visibility record. At most one
// listing exists per vendor; purchasing a new boost replaces any prior
// listing regardless of its expiry state.
type FeaturedListing struct {
	VendorID    string     `bson:"vendor_id" json:"vendor_id"`
	StartDate   time.Time  `bson:"start_date" json:"start_date"`
	EndDate     time.Time  `bson:"end_date" json:"end_date"`
	Level       BoostLevel `bson:"level" json:"level"`
	Impressions int        `bson:"impressions" json:"impressions"`
	Clicks      int        `bson:"clicks" json:"clicks"`
}

// IsActive reports whether the listing's window extends past now.
func (l *FeaturedListing) IsActive(now time.Time) bool {
	return l.EndDate.After(now)
}
