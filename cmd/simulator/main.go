package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	log "github.com/sirupsen/logrus"
	"math"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"
)

// Location represents a geographical location with latitude and longitude coordinates.
type Location struct {
	Lat float64 `json:"latitude"`
	Lng float64 `json:"longitude"`
}

// VendorState tracks one simulated truck through its service day.
type VendorState struct {
	Username     string
	BusinessName string
	Token        string
	Spot         Location
	Live         bool
	TicksLive    int
}

// Popular food-truck spots around San Francisco
var spots = []Location{
	{Lat: 37.7793, Lng: -122.4193}, // Civic Center
	{Lat: 37.7955, Lng: -122.3937}, // Ferry Building
	{Lat: 37.7694, Lng: -122.4862}, // Golden Gate Park
	{Lat: 37.8080, Lng: -122.4177}, // Fisherman's Wharf
	{Lat: 37.7816, Lng: -122.4037}, // SoMa
	{Lat: 37.7599, Lng: -122.4148}, // Mission District
	{Lat: 37.8024, Lng: -122.4058}, // North Beach
	{Lat: 37.7786, Lng: -122.3893}, // Oracle Park
}

var businessNames = []string{
	"Taco Cart SF", "Seoul Bowl", "Noodle Bus", "Grill Works",
	"Curry Up", "The Waffle Wagon", "Pho Wheels", "Smoke Shack",
}

func jitterLocation(base Location, meters float64) Location {
	latMetersPerDeg := 111320.0
	lngMetersPerDeg := 111320.0 * math.Cos(base.Lat*math.Pi/180)
	dLat := (rand.Float64()*2 - 1) * (meters / latMetersPerDeg)
	dLng := (rand.Float64()*2 - 1) * (meters / lngMetersPerDeg)
	return Location{Lat: base.Lat + dLat, Lng: base.Lng + dLng}
}

func randomSpot() Location {
	base := spots[rand.Intn(len(spots))]
	return jitterLocation(base, 300)
}

func haversineKm(a, b Location) float64 {
	R := 6371.0
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	s := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
	return R * c
}

func post(url, token string, payload interface{}) (*http.Response, error) {
	var body *bytes.Buffer
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewBuffer(data)
	} else {
		body = bytes.NewBuffer(nil)
	}
	req, err := http.NewRequest(http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	client := &http.Client{Timeout: 10 * time.Second}
	return client.Do(req)
}

func registerVendor(apiURL string, index int) (*VendorState, error) {
	username := fmt.Sprintf("simvendor%d", index+1)
	businessName := businessNames[index%len(businessNames)]

	registerReq := map[string]interface{}{
		"username":      username,
		"email":         fmt.Sprintf("%s@example.com", username),
		"password":      "simulated-password-123",
		"business_name": businessName,
		"role":          "vendor",
	}

	resp, err := post(apiURL+"/auth/register", "", registerReq)
	if err != nil {
		return nil, fmt.Errorf("failed to register vendor: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		// already registered on a previous run, log in instead
		loginReq := map[string]string{
			"username": username,
			"password": "simulated-password-123",
		}
		resp, err = post(apiURL+"/auth/login", "", loginReq)
		if err != nil {
			return nil, fmt.Errorf("failed to log in vendor: %w", err)
		}
		defer resp.Body.Close()
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vendor auth failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode auth response: %w", err)
	}
	if result.Token == "" {
		return nil, fmt.Errorf("no token in auth response")
	}

	log.WithFields(log.Fields{
		"username": username,
		"business": businessName,
	}).Info("Vendor ready")

	return &VendorState{
		Username:     username,
		BusinessName: businessName,
		Token:        result.Token,
		Spot:         randomSpot(),
	}, nil
}

func goLive(apiURL string, s *VendorState) {
	resp, err := post(apiURL+"/trucks/go-live", s.Token, nil)
	if err != nil {
		log.WithError(err).WithField("vendor", s.Username).Error("Failed to go live")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.WithFields(log.Fields{"vendor": s.Username, "status": resp.Status}).Warn("Go live rejected")
		return
	}
	s.Live = true
	s.TicksLive = 0
	log.WithFields(log.Fields{"vendor": s.Username, "lat": s.Spot.Lat, "lng": s.Spot.Lng}).Info("Vendor went live")
}

func goOffline(apiURL string, s *VendorState) {
	// close the session with plausible service-day numbers
	customers := 20 + rand.Intn(120)
	revenue := float64(customers) * (8 + rand.Float64()*12)
	stats := map[string]interface{}{
		"customers_served": customers,
		"revenue":          math.Round(revenue*100) / 100,
	}

	resp, err := post(apiURL+"/trucks/offline", s.Token, stats)
	if err != nil {
		log.WithError(err).WithField("vendor", s.Username).Error("Failed to go offline")
		return
	}
	defer resp.Body.Close()
	s.Live = false
	log.WithFields(log.Fields{
		"vendor":    s.Username,
		"customers": customers,
		"revenue":   stats["revenue"],
		"status":    resp.Status,
	}).Info("Vendor closed session")
}

func simulateVendor(apiURL string, s *VendorState, interval time.Duration) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for range tick.C {
		if !s.Live {
			// move to a new spot before opening again
			next := randomSpot()
			log.WithFields(log.Fields{
				"vendor":      s.Username,
				"distance_km": math.Round(haversineKm(s.Spot, next)*10) / 10,
			}).Debug("Vendor relocating")
			s.Spot = next
			goLive(apiURL, s)
			continue
		}

		s.TicksLive++
		// a service window lasts a handful of ticks
		if s.TicksLive >= 3+rand.Intn(5) {
			goOffline(apiURL, s)
			continue
		}

		// occasionally refresh the pin mid-session
		if rand.Float64() < 0.3 {
			resp, err := post(apiURL+"/trucks/location", s.Token, nil)
			if err != nil {
				log.WithError(err).WithField("vendor", s.Username).Error("Failed to refresh location")
				continue
			}
			resp.Body.Close()
		}
	}
}

func main() {
	vendorCount := 5
	if val := os.Getenv("VENDOR_COUNT"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			vendorCount = n
		}
	}

	apiURL := os.Getenv("API_BASE_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080/api"
	}

	interval := 5 * time.Second
	if v := os.Getenv("SIM_TICK_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			interval = time.Duration(n) * time.Second
		}
	}

	log.WithFields(log.Fields{
		"vendor_count": vendorCount,
		"api_url":      apiURL,
		"interval":     interval,
	}).Info("Starting vendor simulation")

	states := make([]*VendorState, 0, vendorCount)
	for i := 0; i < vendorCount; i++ {
		state, err := registerVendor(apiURL, i)
		if err != nil {
			log.WithError(err).Error("Failed to set up vendor")
			continue
		}
		states = append(states, state)
	}

	log.WithField("ready_vendors", len(states)).Info("Vendor setup completed")
	if len(states) == 0 {
		log.Error("No vendors ready. Ensure the API is reachable. Exiting.")
		time.Sleep(2 * time.Second)
		return
	}

	for _, s := range states {
		go simulateVendor(apiURL, s, interval)
	}

	log.Info("Vendor simulation started")
	select {} // Block forever
}
