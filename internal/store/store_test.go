package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/munchmap/truck-radar/internal/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestMemoryStore_RoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	in := []models.TruckLocation{
		{VendorID: "v1", Latitude: 37.78, Longitude: -122.42, IsLive: true, Timestamp: time.Now()},
	}
	if err := s.Set(ctx, KeyTruckLocations, in); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	var out []models.TruckLocation
	if err := s.Get(ctx, KeyTruckLocations, &out); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(out) != 1 || out[0].VendorID != "v1" || !out[0].IsLive {
		t.Errorf("unexpected round trip result: %+v", out)
	}
}

func TestMemoryStore_MissingKey(t *testing.T) {
	s := NewMemoryStore()
	var out []models.TruckLocation
	err := s.Get(context.Background(), "missing", &out)
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_Overwrite(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Set(ctx, KeyFeaturedListings, []models.FeaturedListing{{VendorID: "v1"}}); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := s.Set(ctx, KeyFeaturedListings, []models.FeaturedListing{{VendorID: "v2"}}); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	var out []models.FeaturedListing
	if err := s.Get(ctx, KeyFeaturedListings, &out); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(out) != 1 || out[0].VendorID != "v2" {
		t.Errorf("expected last write to win, got %+v", out)
	}
}

func TestMongoStore_NilCollection(t *testing.T) {
	s := &MongoStore{Collection: nil}
	var out []models.TruckLocation
	if err := s.Get(context.Background(), KeyTruckLocations, &out); err == nil {
		t.Error("expected error when collection is nil")
	}
	if err := s.Set(context.Background(), KeyTruckLocations, out); err == nil {
		t.Error("expected error when collection is nil")
	}
}

// Integration test (requires running MongoDB)
func TestMongoStore_Integration(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set, skipping integration test")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Skipf("failed to connect: %v, skipping integration test", err)
		return
	}
	dbName := os.Getenv("MONGO_DB")
	if dbName == "" {
		dbName = "truckradar"
	}
	s := &MongoStore{Collection: client.Database(dbName).Collection("engine_state")}
	in := []models.TruckLocation{{VendorID: "itest", IsLive: true, Timestamp: time.Now()}}
	if err := s.Set(ctx, KeyTruckLocations, in); err != nil {
		t.Errorf("expected set to succeed, got error: %v", err)
	}
	var out []models.TruckLocation
	if err := s.Get(ctx, KeyTruckLocations, &out); err != nil {
		t.Errorf("expected get to succeed, got error: %v", err)
	}
}
