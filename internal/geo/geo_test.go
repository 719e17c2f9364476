package geo

import (
	"math"
	"testing"
)

func TestDistance_BerlinParis(t *testing.T) {
	// Known reference pair: Berlin ↔ Paris is roughly 878 km.
	got := Distance(52.5200, 13.4050, 48.8566, 2.3522)
	if math.Abs(got-878) > 2 {
		t.Errorf("Berlin-Paris distance = %.2f km, want 878 ± 2", got)
	}
}

func TestDistance_SamePoint(t *testing.T) {
	if got := Distance(41.15, -8.61, 41.15, -8.61); got != 0 {
		t.Errorf("distance between identical points = %f, want 0", got)
	}
}

func TestDistance_Symmetric(t *testing.T) {
	ab := Distance(38.7223, -9.1393, 41.1579, -8.6291)
	ba := Distance(41.1579, -8.6291, 38.7223, -9.1393)
	if math.Abs(ab-ba) > 1e-9 {
		t.Errorf("distance not symmetric: %f vs %f", ab, ba)
	}
	// Lisbon ↔ Porto is roughly 274 km.
	if math.Abs(ab-274) > 5 {
		t.Errorf("Lisbon-Porto distance = %.2f km, want ~274", ab)
	}
}

func TestDistance_ShortHop(t *testing.T) {
	// Two points ~1.1 km apart along a meridian (0.01 degrees latitude).
	got := Distance(52.5000, 13.4000, 52.5100, 13.4000)
	if got < 1.0 || got > 1.2 {
		t.Errorf("short hop distance = %.3f km, want ~1.11", got)
	}
}
