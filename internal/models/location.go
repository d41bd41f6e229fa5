package models

import "time"

// Coordinate represents a geographical point.
type Coordinate struct {
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
}

// TruckLocation is a vendor's current broadcast location. One record per
// vendor; overwritten on each update. Going offline clears IsLive but keeps
// the record so the last known location stays queryable.
type TruckLocation struct {
	VendorID  string    `bson:"vendor_id" json:"vendor_id"`
	Latitude  float64   `bson:"latitude" json:"latitude"`
	Longitude float64   `bson:"longitude" json:"longitude"`
	Address   string    `bson:"address,omitempty" json:"address,omitempty"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	IsLive    bool      `bson:"is_live" json:"is_live"`
}
