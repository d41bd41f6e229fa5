package main

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/munchmap/truck-radar/internal/auth"
	"github.com/munchmap/truck-radar/internal/boost"
	"github.com/munchmap/truck-radar/internal/engine"
	"github.com/munchmap/truck-radar/internal/geofence"
	"github.com/munchmap/truck-radar/internal/handlers"
	"github.com/munchmap/truck-radar/internal/logger"
	"github.com/munchmap/truck-radar/internal/middleware"
	"github.com/munchmap/truck-radar/internal/models"
	"github.com/munchmap/truck-radar/internal/notify"
	"github.com/munchmap/truck-radar/internal/position"
	"github.com/munchmap/truck-radar/internal/store"
)

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	logger.Setup()

	client, err := store.ConnectMongo()
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	log.Info("Connected to MongoDB")

	database := client.Database(getEnv("MONGO_DATABASE", "truck_radar"))
	kvStore := &store.MongoStore{Collection: database.Collection("app_state")}
	userCollection := &store.MongoUserCollection{Collection: database.Collection("users")}

	authService, err := auth.NewService()
	if err != nil {
		log.WithError(err).Fatal("Failed to create auth service")
	}

	provider := position.NewNominatimProvider(getEnv("NOMINATIM_URL", "https://nominatim.openstreetmap.org"))
	if lat, lng := os.Getenv("DEFAULT_LAT"), os.Getenv("DEFAULT_LNG"); lat != "" && lng != "" {
		latF, latErr := strconv.ParseFloat(lat, 64)
		lngF, lngErr := strconv.ParseFloat(lng, 64)
		if latErr == nil && lngErr == nil {
			provider.SetPosition(models.Coordinate{Latitude: latF, Longitude: lngF})
		}
	}

	var dispatcher notify.Dispatcher = notify.NopDispatcher{}
	if broker := os.Getenv("MQTT_BROKER"); broker != "" {
		mqttDispatcher, err := notify.NewMQTTDispatcher(broker, getEnv("MQTT_CLIENT_ID", "truck-radar-server"))
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to MQTT broker")
		}
		defer mqttDispatcher.Close()
		dispatcher = mqttDispatcher
		log.WithField("broker", broker).Info("Connected to MQTT broker")
	}

	evaluator := geofence.NewEvaluator(kvStore, dispatcher)
	boostManager := boost.NewManager(kvStore)
	eng := engine.New(kvStore, provider, dispatcher, evaluator)

	loadCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := evaluator.Load(loadCtx); err != nil {
		log.WithError(err).Fatal("Failed to load zone subscriptions")
	}
	if err := boostManager.Load(loadCtx); err != nil {
		log.WithError(err).Fatal("Failed to load featured listings")
	}
	if err := eng.Load(loadCtx); err != nil {
		log.WithError(err).Fatal("Failed to load live state")
	}

	authHandler := handlers.NewAuthHandler(authService, userCollection)
	truckHandler := handlers.NewTruckHandler(eng, userCollection)
	boostHandler := handlers.NewBoostHandler(boostManager)
	zoneHandler := handlers.NewZoneHandler(evaluator)

	authMiddleware := middleware.NewAuthMiddleware(authService)
	rateLimiter := middleware.NewRateLimitMiddleware()

	mux := http.NewServeMux()

	mux.HandleFunc("/api/auth/login", authHandler.Login)
	mux.HandleFunc("/api/auth/register", authHandler.Register)
	mux.HandleFunc("/api/auth/profile", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			authHandler.UpdateProfile(w, r)
			return
		}
		authHandler.GetProfile(w, r)
	})
	mux.HandleFunc("/api/auth/change-password", authHandler.ChangePassword)

	mux.HandleFunc("/api/trucks/live", truckHandler.LiveTrucks)
	mux.Handle("/api/trucks/go-live", authMiddleware.RequirePermission("go_live")(http.HandlerFunc(truckHandler.GoLive)))
	mux.Handle("/api/trucks/offline", authMiddleware.RequirePermission("go_offline")(http.HandlerFunc(truckHandler.GoOffline)))
	mux.Handle("/api/trucks/location", authMiddleware.RequirePermission("update_location")(http.HandlerFunc(truckHandler.RefreshLocation)))
	mux.Handle("/api/trucks/history", authMiddleware.RequirePermission("view_history")(http.HandlerFunc(truckHandler.History)))
	mux.Handle("/api/trucks/history/notes", authMiddleware.RequirePermission("view_history")(http.HandlerFunc(truckHandler.AppendNotes)))
	mux.Handle("/api/analytics", authMiddleware.RequirePermission("view_analytics")(http.HandlerFunc(truckHandler.Analytics)))

	mux.HandleFunc("/api/boosts/tiers", boostHandler.Tiers)
	mux.Handle("/api/boosts", authMiddleware.RequirePermission("purchase_boost")(http.HandlerFunc(boostHandler.Purchase)))
	mux.Handle("/api/boosts/active", authMiddleware.RequirePermission("purchase_boost")(http.HandlerFunc(boostHandler.ActiveBoost)))
	mux.HandleFunc("/api/boosts/featured", boostHandler.Featured)
	mux.Handle("/api/boosts/impression", authMiddleware.RequirePermission("record_engagement")(http.HandlerFunc(boostHandler.RecordImpression)))
	mux.Handle("/api/boosts/click", authMiddleware.RequirePermission("record_engagement")(http.HandlerFunc(boostHandler.RecordClick)))

	mux.HandleFunc("/api/zones/catalog", zoneHandler.Catalog)
	mux.Handle("/api/zones/subscriptions", authMiddleware.RequirePermission("manage_zones")(http.HandlerFunc(zoneHandler.Subscriptions)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	handler := rateLimiter.RateLimit(300, 60)(authMiddleware.Authenticate(mux))

	port := getEnv("PORT", "8080")
	log.WithField("port", port).Info("HTTP server listening")
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.WithError(err).Fatal("HTTP server failed")
	}
}
