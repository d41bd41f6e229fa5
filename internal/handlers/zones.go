package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/munchmap/truck-radar/internal/geofence"
	"github.com/munchmap/truck-radar/internal/models"
)

// ZoneHandler handles geofence zone subscriptions
type ZoneHandler struct {
	evaluator *geofence.Evaluator
}

// NewZoneHandler creates a new zone handler
func NewZoneHandler(evaluator *geofence.Evaluator) *ZoneHandler {
	return &ZoneHandler{evaluator: evaluator}
}

// Catalog lists the well-known zones; no auth required
func (h *ZoneHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"zones": models.ZoneCatalog,
		"count": len(models.ZoneCatalog),
	})
}

// Subscriptions handles the subscription collection: GET lists, POST
// subscribes, DELETE unsubscribes.
func (h *ZoneHandler) Subscriptions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.subscribe(w, r)
	case http.MethodDelete:
		h.unsubscribe(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ZoneHandler) list(w http.ResponseWriter, r *http.Request) {
	zones := h.evaluator.Subscriptions()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"zones": zones,
		"count": len(zones),
	})
}

func (h *ZoneHandler) subscribe(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	// Either a catalog zone by ID, or a fully specified custom zone.
	var subscribeReq struct {
		ZoneID string `json:"zone_id"`
		models.GeoFenceZone
	}
	if err := json.Unmarshal(body, &subscribeReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	zone := subscribeReq.GeoFenceZone
	if subscribeReq.ZoneID != "" {
		catalogZone, ok := models.ZoneByID(subscribeReq.ZoneID)
		if !ok {
			http.Error(w, "Unknown zone", http.StatusNotFound)
			return
		}
		zone = catalogZone
	}

	if zone.ID == "" {
		http.Error(w, "Zone ID is required", http.StatusBadRequest)
		return
	}
	if zone.RadiusMeters <= 0 {
		http.Error(w, "Zone radius must be positive", http.StatusBadRequest)
		return
	}

	h.evaluator.Subscribe(r.Context(), zone)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(zone)
}

func (h *ZoneHandler) unsubscribe(w http.ResponseWriter, r *http.Request) {
	zoneID := r.URL.Query().Get("zone_id")
	if zoneID == "" {
		http.Error(w, "Zone ID is required", http.StatusBadRequest)
		return
	}

	if !h.evaluator.Unsubscribe(r.Context(), zoneID) {
		http.Error(w, "Zone not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "Unsubscribed"})
}
