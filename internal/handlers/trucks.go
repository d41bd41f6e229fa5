package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/munchmap/truck-radar/internal/analytics"
	"github.com/munchmap/truck-radar/internal/engine"
	"github.com/munchmap/truck-radar/internal/middleware"
	"github.com/munchmap/truck-radar/internal/models"
	"github.com/munchmap/truck-radar/internal/position"
	"github.com/munchmap/truck-radar/internal/store"
)

// TruckHandler handles live-status, history, and analytics requests
type TruckHandler struct {
	engine         *engine.Engine
	userCollection store.UserCollection
}

// NewTruckHandler creates a new truck handler
func NewTruckHandler(eng *engine.Engine, userCollection store.UserCollection) *TruckHandler {
	return &TruckHandler{
		engine:         eng,
		userCollection: userCollection,
	}
}

// vendorName resolves the display name broadcast with live pins and
// zone alerts. Vendors show their business name, everyone else their
// username.
func (h *TruckHandler) vendorName(r *http.Request, claims *models.Claims) string {
	if h.userCollection != nil {
		if user, err := h.userCollection.FindUserByID(r.Context(), claims.UserID); err == nil && user.BusinessName != "" {
			return user.BusinessName
		}
	}
	return claims.Username
}

// GoLive starts a live session for the authenticated vendor
func (h *TruckHandler) GoLive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	err := h.engine.GoLive(r.Context(), claims.UserID, h.vendorName(r, claims))
	if err != nil {
		if errors.Is(err, position.ErrUnavailable) {
			http.Error(w, "Location permission denied", http.StatusServiceUnavailable)
			return
		}
		http.Error(w, "Failed to acquire position", http.StatusServiceUnavailable)
		return
	}

	loc, _ := h.engine.LastKnownLocation(claims.UserID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(loc)
}

// GoOffline ends the authenticated vendor's live session
func (h *TruckHandler) GoOffline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	var stats *models.SessionStats
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	if len(body) > 0 {
		stats = &models.SessionStats{}
		if err := json.Unmarshal(body, stats); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
	}

	if !h.engine.GoOffline(r.Context(), claims.UserID, stats) {
		http.Error(w, "Vendor is not live", http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "Session closed"})
}

// RefreshLocation re-acquires the vendor's position while live
func (h *TruckHandler) RefreshLocation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	if !h.engine.UpdateLiveLocation(r.Context(), claims.UserID) {
		http.Error(w, "Vendor is not live", http.StatusConflict)
		return
	}

	loc, _ := h.engine.LastKnownLocation(claims.UserID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(loc)
}

// LiveTrucks lists all currently live trucks; no auth required
func (h *TruckHandler) LiveTrucks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	trucks := h.engine.LiveTrucks()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"trucks": trucks,
		"count":  len(trucks),
	})
}

// History returns the authenticated vendor's session ledger
func (h *TruckHandler) History(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	entries := h.engine.History(claims.UserID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

// AppendNotes appends free-form notes to one of the vendor's closed sessions
func (h *TruckHandler) AppendNotes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var notesReq struct {
		EntryID string `json:"entry_id"`
		Notes   string `json:"notes"`
	}
	if err := json.Unmarshal(body, &notesReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if notesReq.EntryID == "" || notesReq.Notes == "" {
		http.Error(w, "Entry ID and notes are required", http.StatusBadRequest)
		return
	}

	// Vendors may only annotate their own entries
	owned := false
	for _, entry := range h.engine.History(claims.UserID) {
		if entry.ID == notesReq.EntryID {
			owned = true
			break
		}
	}
	if !owned {
		http.Error(w, "Entry not found", http.StatusNotFound)
		return
	}

	if !h.engine.AppendSessionNotes(r.Context(), notesReq.EntryID, notesReq.Notes) {
		http.Error(w, "Entry not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "Notes saved"})
}

// Analytics returns per-location performance for the authenticated vendor.
// An optional limit query parameter truncates to the top-N locations.
func (h *TruckHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	entries := h.engine.History(claims.UserID)

	var results []models.LocationAnalytics
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		results = analytics.BestLocations(entries, limit)
	} else {
		results = analytics.Aggregate(entries)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"locations": results,
		"count":     len(results),
	})
}
