package models

import "time"

// LocationHistoryEntry is one vending session in the append-only ledger.
// An entry with a nil EndTime is an open session; at most one open entry
// exists per vendor at a time. Closed entries are immutable except for
// Notes, which may be appended later.
type LocationHistoryEntry struct {
	ID              string     `bson:"id" json:"id"`
	VendorID        string     `bson:"vendor_id" json:"vendor_id"`
	Latitude        float64    `bson:"latitude" json:"latitude"`
	Longitude       float64    `bson:"longitude" json:"longitude"`
	Address         string     `bson:"address,omitempty" json:"address,omitempty"`
	StartTime       time.Time  `bson:"start_time" json:"start_time"`
	EndTime         *time.Time `bson:"end_time,omitempty" json:"end_time,omitempty"`
	CustomersServed *int       `bson:"customers_served,omitempty" json:"customers_served,omitempty"`
	Revenue         *float64   `bson:"revenue,omitempty" json:"revenue,omitempty"`
	Notes           string     `bson:"notes,omitempty" json:"notes,omitempty"`
}

// IsOpen reports whether the session has not been closed yet.
func (e *LocationHistoryEntry) IsOpen() bool {
	return e.EndTime == nil
}

// SessionStats carries the optional performance figures a vendor can
// attach when closing a session.
type SessionStats struct {
	CustomersServed *int     `json:"customers_served,omitempty"`
	Revenue         *float64 `json:"revenue,omitempty"`
	Notes           string   `json:"notes,omitempty"`
}
