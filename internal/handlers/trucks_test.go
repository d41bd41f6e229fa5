package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/munchmap/truck-radar/internal/engine"
	"github.com/munchmap/truck-radar/internal/geofence"
	"github.com/munchmap/truck-radar/internal/models"
	"github.com/munchmap/truck-radar/internal/notify"
	"github.com/munchmap/truck-radar/internal/position"
	"github.com/munchmap/truck-radar/internal/store"
	"github.com/stretchr/testify/assert"
)

func newTestEngine(granted bool) *engine.Engine {
	memStore := store.NewMemoryStore()
	provider := &position.FixedProvider{
		Granted: granted,
		Coord:   models.Coordinate{Latitude: 37.7793, Longitude: -122.4193},
		Address: "Market St, San Francisco",
	}
	evaluator := geofence.NewEvaluator(memStore, notify.NopDispatcher{})
	return engine.New(memStore, provider, notify.NopDispatcher{}, evaluator)
}

func vendorClaims() *models.Claims {
	return &models.Claims{
		UserID:   "vendor-1",
		Username: "tacocart",
		Role:     models.RoleVendor,
	}
}

func TestTruckHandler_GoLive(t *testing.T) {
	t.Run("successful go live", func(t *testing.T) {
		handler := NewTruckHandler(newTestEngine(true), nil)

		req := withClaims(httptest.NewRequest("POST", "/api/trucks/go-live", nil), vendorClaims())
		w := httptest.NewRecorder()

		handler.GoLive(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var loc models.TruckLocation
		if err := json.Unmarshal(w.Body.Bytes(), &loc); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		assert.Equal(t, "vendor-1", loc.VendorID)
		assert.True(t, loc.IsLive)
		assert.Equal(t, 37.7793, loc.Latitude)
	})

	t.Run("permission denied", func(t *testing.T) {
		handler := NewTruckHandler(newTestEngine(false), nil)

		req := withClaims(httptest.NewRequest("POST", "/api/trucks/go-live", nil), vendorClaims())
		w := httptest.NewRecorder()

		handler.GoLive(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("missing claims", func(t *testing.T) {
		handler := NewTruckHandler(newTestEngine(true), nil)

		req := httptest.NewRequest("POST", "/api/trucks/go-live", nil)
		w := httptest.NewRecorder()

		handler.GoLive(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestTruckHandler_GoOffline(t *testing.T) {
	t.Run("close session with stats", func(t *testing.T) {
		eng := newTestEngine(true)
		handler := NewTruckHandler(eng, nil)
		claims := vendorClaims()

		liveReq := withClaims(httptest.NewRequest("POST", "/api/trucks/go-live", nil), claims)
		handler.GoLive(httptest.NewRecorder(), liveReq)

		stats := models.SessionStats{Notes: "sold out early"}
		body, _ := json.Marshal(stats)
		req := withClaims(httptest.NewRequest("POST", "/api/trucks/offline", bytes.NewBuffer(body)), claims)
		w := httptest.NewRecorder()

		handler.GoOffline(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.False(t, eng.IsVendorLive("vendor-1"))
	})

	t.Run("not live", func(t *testing.T) {
		handler := NewTruckHandler(newTestEngine(true), nil)

		req := withClaims(httptest.NewRequest("POST", "/api/trucks/offline", nil), vendorClaims())
		w := httptest.NewRecorder()

		handler.GoOffline(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestTruckHandler_LiveTrucks(t *testing.T) {
	eng := newTestEngine(true)
	handler := NewTruckHandler(eng, nil)

	liveReq := withClaims(httptest.NewRequest("POST", "/api/trucks/go-live", nil), vendorClaims())
	handler.GoLive(httptest.NewRecorder(), liveReq)

	req := httptest.NewRequest("GET", "/api/trucks/live", nil)
	w := httptest.NewRecorder()

	handler.LiveTrucks(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Trucks []models.TruckLocation `json:"trucks"`
		Count  int                    `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	assert.Equal(t, 1, response.Count)
	assert.Equal(t, "vendor-1", response.Trucks[0].VendorID)
}

func TestTruckHandler_RefreshLocation(t *testing.T) {
	t.Run("refresh while live", func(t *testing.T) {
		handler := NewTruckHandler(newTestEngine(true), nil)
		claims := vendorClaims()

		liveReq := withClaims(httptest.NewRequest("POST", "/api/trucks/go-live", nil), claims)
		handler.GoLive(httptest.NewRecorder(), liveReq)

		req := withClaims(httptest.NewRequest("POST", "/api/trucks/location", nil), claims)
		w := httptest.NewRecorder()

		handler.RefreshLocation(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("refresh while offline", func(t *testing.T) {
		handler := NewTruckHandler(newTestEngine(true), nil)

		req := withClaims(httptest.NewRequest("POST", "/api/trucks/location", nil), vendorClaims())
		w := httptest.NewRecorder()

		handler.RefreshLocation(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestTruckHandler_History(t *testing.T) {
	eng := newTestEngine(true)
	handler := NewTruckHandler(eng, nil)
	claims := vendorClaims()

	liveReq := withClaims(httptest.NewRequest("POST", "/api/trucks/go-live", nil), claims)
	handler.GoLive(httptest.NewRecorder(), liveReq)
	offReq := withClaims(httptest.NewRequest("POST", "/api/trucks/offline", nil), claims)
	handler.GoOffline(httptest.NewRecorder(), offReq)

	req := withClaims(httptest.NewRequest("GET", "/api/trucks/history", nil), claims)
	w := httptest.NewRecorder()

	handler.History(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Entries []models.LocationHistoryEntry `json:"entries"`
		Count   int                           `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	assert.Equal(t, 1, response.Count)
	assert.False(t, response.Entries[0].IsOpen())
}

func TestTruckHandler_AppendNotes(t *testing.T) {
	eng := newTestEngine(true)
	handler := NewTruckHandler(eng, nil)
	claims := vendorClaims()

	liveReq := withClaims(httptest.NewRequest("POST", "/api/trucks/go-live", nil), claims)
	handler.GoLive(httptest.NewRecorder(), liveReq)
	offReq := withClaims(httptest.NewRequest("POST", "/api/trucks/offline", nil), claims)
	handler.GoOffline(httptest.NewRecorder(), offReq)

	entries := eng.History("vendor-1")
	if len(entries) != 1 {
		t.Fatalf("Expected one ledger entry, got %d", len(entries))
	}

	t.Run("append to own entry", func(t *testing.T) {
		notesReq := map[string]string{"entry_id": entries[0].ID, "notes": "great corner"}
		body, _ := json.Marshal(notesReq)
		req := withClaims(httptest.NewRequest("POST", "/api/trucks/history/notes", bytes.NewBuffer(body)), claims)
		w := httptest.NewRecorder()

		handler.AppendNotes(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("another vendor's entry", func(t *testing.T) {
		other := &models.Claims{UserID: "vendor-2", Username: "noodlebus", Role: models.RoleVendor}
		notesReq := map[string]string{"entry_id": entries[0].ID, "notes": "not mine"}
		body, _ := json.Marshal(notesReq)
		req := withClaims(httptest.NewRequest("POST", "/api/trucks/history/notes", bytes.NewBuffer(body)), other)
		w := httptest.NewRecorder()

		handler.AppendNotes(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unknown entry", func(t *testing.T) {
		notesReq := map[string]string{"entry_id": "missing", "notes": "x"}
		body, _ := json.Marshal(notesReq)
		req := withClaims(httptest.NewRequest("POST", "/api/trucks/history/notes", bytes.NewBuffer(body)), claims)
		w := httptest.NewRecorder()

		handler.AppendNotes(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestTruckHandler_Analytics(t *testing.T) {
	eng := newTestEngine(true)
	handler := NewTruckHandler(eng, nil)
	claims := vendorClaims()

	liveReq := withClaims(httptest.NewRequest("POST", "/api/trucks/go-live", nil), claims)
	handler.GoLive(httptest.NewRecorder(), liveReq)

	revenue := 150.0
	stats := models.SessionStats{Revenue: &revenue}
	body, _ := json.Marshal(stats)
	offReq := withClaims(httptest.NewRequest("POST", "/api/trucks/offline", bytes.NewBuffer(body)), claims)
	handler.GoOffline(httptest.NewRecorder(), offReq)

	t.Run("all locations", func(t *testing.T) {
		req := withClaims(httptest.NewRequest("GET", "/api/analytics", nil), claims)
		w := httptest.NewRecorder()

		handler.Analytics(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response struct {
			Locations []models.LocationAnalytics `json:"locations"`
			Count     int                        `json:"count"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		assert.Equal(t, 1, response.Count)
		assert.Equal(t, 1, response.Locations[0].VisitCount)
		assert.Equal(t, 150.0, response.Locations[0].AvgRevenue)
	})

	t.Run("invalid limit", func(t *testing.T) {
		req := withClaims(httptest.NewRequest("GET", "/api/analytics?limit=zero", nil), claims)
		w := httptest.NewRecorder()

		handler.Analytics(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("limited", func(t *testing.T) {
		req := withClaims(httptest.NewRequest("GET", "/api/analytics?limit=1", nil), claims)
		w := httptest.NewRecorder()

		handler.Analytics(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}
