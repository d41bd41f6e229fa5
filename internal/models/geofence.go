package models

import "time"

// GeoFenceZone is a named circular region used for proximity alerts.
type GeoFenceZone struct {
	ID            string  `bson:"id" json:"id"`
	Name          string  `bson:"name" json:"name"`
	Latitude      float64 `bson:"latitude" json:"latitude"`
	Longitude     float64 `bson:"longitude" json:"longitude"`
	RadiusMeters  float64 `bson:"radius_meters" json:"radius_meters"`
	NotifyOnEnter bool    `bson:"notify_on_enter" json:"notify_on_enter"`
	NotifyOnExit  bool    `bson:"notify_on_exit" json:"notify_on_exit"`
}

// GeoFenceEventType is the kind of zone-membership event.
type GeoFenceEventType string

const (
	GeoFenceEnter GeoFenceEventType = "enter"
	GeoFenceExit  GeoFenceEventType = "exit"
)

// GeoFenceAlert is produced transiently during a location-update
// evaluation pass and forwarded to the notification dispatcher. It is
// never persisted as a collection.
type GeoFenceAlert struct {
	ID         string            `json:"id"`
	ZoneID     string            `json:"zone_id"`
	ZoneName   string            `json:"zone_name"`
	VendorID   string            `json:"vendor_id"`
	VendorName string            `json:"vendor_name"`
	EventType  GeoFenceEventType `json:"event_type"`
	Timestamp  time.Time         `json:"timestamp"`
}

// ZoneCatalog is the read-only catalog of well-known zones callers can
// subscribe to. Radii are coarse by design; zones cover districts, not
// individual blocks.
var ZoneCatalog = []GeoFenceZone{
	{ID: "downtown-plaza", Name: "Downtown Plaza", Latitude: 37.7793, Longitude: -122.4193, RadiusMeters: 2000, NotifyOnEnter: true, NotifyOnExit: false},
	{ID: "financial-district", Name: "Financial District", Latitude: 37.7946, Longitude: -122.3999, RadiusMeters: 1500, NotifyOnEnter: true, NotifyOnExit: false},
	{ID: "mission-district", Name: "Mission District", Latitude: 37.7599, Longitude: -122.4148, RadiusMeters: 2500, NotifyOnEnter: true, NotifyOnExit: false},
	{ID: "university-campus", Name: "University Campus", Latitude: 37.8719, Longitude: -122.2585, RadiusMeters: 1800, NotifyOnEnter: true, NotifyOnExit: false},
	{ID: "stadium-district", Name: "Stadium District", Latitude: 37.7786, Longitude: -122.3893, RadiusMeters: 1200, NotifyOnEnter: true, NotifyOnExit: false},
	{ID: "waterfront-park", Name: "Waterfront Park", Latitude: 37.8080, Longitude: -122.4098, RadiusMeters: 1600, NotifyOnEnter: true, NotifyOnExit: false},
}

// ZoneByID looks a zone up in the catalog.
func ZoneByID(id string) (GeoFenceZone, bool) {
	for _, z := range ZoneCatalog {
		if z.ID == id {
			return z, true
		}
	}
	return GeoFenceZone{}, false
}
