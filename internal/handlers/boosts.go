package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/munchmap/truck-radar/internal/boost"
	"github.com/munchmap/truck-radar/internal/middleware"
	"github.com/munchmap/truck-radar/internal/models"
)

// BoostHandler handles visibility boost purchases and engagement counters
type BoostHandler struct {
	manager *boost.Manager
}

// NewBoostHandler creates a new boost handler
func NewBoostHandler(manager *boost.Manager) *BoostHandler {
	return &BoostHandler{manager: manager}
}

// Tiers lists the purchasable boost tiers
func (h *BoostHandler) Tiers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	tiers := []models.BoostTier{
		models.BoostTiers[models.BoostBasic],
		models.BoostTiers[models.BoostPremium],
		models.BoostTiers[models.BoostSpotlight],
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"tiers": tiers})
}

// Purchase buys a boost for the authenticated vendor, replacing any
// existing listing
func (h *BoostHandler) Purchase(w http.ResponseWriter, r *http.Request) {
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

	var purchaseReq struct {
		Level models.BoostLevel `json:"level"`
	}
	if err := json.Unmarshal(body, &purchaseReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	listing, err := h.manager.Purchase(r.Context(), claims.UserID, purchaseReq.Level)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(listing)
}

// ActiveBoost returns the vendor's current listing, if any
func (h *BoostHandler) ActiveBoost(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	listing := h.manager.ActiveBoost(claims.UserID)
	if listing == nil {
		http.Error(w, "No active boost", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(listing)
}

// Featured lists vendor IDs with active boosts, best tier first
func (h *BoostHandler) Featured(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	vendors := h.manager.FeaturedVendors()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"vendors": vendors,
		"count":   len(vendors),
	})
}

// RecordImpression counts one featured-listing impression
func (h *BoostHandler) RecordImpression(w http.ResponseWriter, r *http.Request) {
	h.recordEngagement(w, r, h.manager.RecordImpression)
}

// RecordClick counts one featured-listing click-through
func (h *BoostHandler) RecordClick(w http.ResponseWriter, r *http.Request) {
	h.recordEngagement(w, r, h.manager.RecordClick)
}

func (h *BoostHandler) recordEngagement(w http.ResponseWriter, r *http.Request, record func(ctx context.Context, vendorID string) bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var engagementReq struct {
		VendorID string `json:"vendor_id"`
	}
	if err := json.Unmarshal(body, &engagementReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if engagementReq.VendorID == "" {
		http.Error(w, "Vendor ID is required", http.StatusBadRequest)
		return
	}

	// Counting against a vendor with no active boost is a no-op, not
	// an error: stale featured rails on clients are expected.
	counted := record(r.Context(), engagementReq.VendorID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]bool{"counted": counted})
}
