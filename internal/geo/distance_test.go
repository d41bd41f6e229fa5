package geo

import (
	"math"
	"testing"
)

func TestDistance_SamePoint(t *testing.T) {
	if d := Distance(0, 0, 0, 0); d != 0 {
		t.Errorf("expected 0, got %f", d)
	}
	if d := Distance(37.7793, -122.4193, 37.7793, -122.4193); d != 0 {
		t.Errorf("expected 0, got %f", d)
	}
}

func TestDistance_Symmetric(t *testing.T) {
	d1 := Distance(37.7793, -122.4193, 40.7128, -74.0060)
	d2 := Distance(40.7128, -74.0060, 37.7793, -122.4193)
	if d1 != d2 {
		t.Errorf("expected symmetric distance, got %f and %f", d1, d2)
	}
}

func TestDistance_OneDegreeOfLatitude(t *testing.T) {
	// 1 degree of latitude along a meridian is about 111.2 km
	d := Distance(0, 0, 1, 0)
	expected := 111195.0
	if math.Abs(d-expected)/expected > 0.005 {
		t.Errorf("expected within 0.5%% of %f, got %f", expected, d)
	}
}

func TestDistance_KnownCityPair(t *testing.T) {
	// downtown San Francisco to downtown Oakland, roughly 13.4 km
	d := Distance(37.7793, -122.4193, 37.8044, -122.2712)
	if d < 12500 || d > 14500 {
		t.Errorf("expected ~13.4km, got %f", d)
	}
}
