package models

// LocationAnalytics is a derived per-location performance summary. It is
// recomputed from the full history ledger on every read and never persisted.
type LocationAnalytics struct {
	LocationID   string   `json:"location_id"` // 3-decimal coordinate bucket key
	Address      string   `json:"address,omitempty"`
	VisitCount   int      `json:"visit_count"`
	AvgCustomers float64  `json:"avg_customers"`
	AvgRevenue   float64  `json:"avg_revenue"`
	BestDays     []string `json:"best_days"`
	BestTimeSlot string   `json:"best_time_slot"`
	Rating       int      `json:"rating"` // 1-5
}
