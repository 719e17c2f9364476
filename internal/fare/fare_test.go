package fare

import (
	"testing"
	"time"
)

func ts(hour, min, sec int) time.Time {
	return time.Date(2025, 6, 1, hour, min, sec, 0, time.UTC)
}

func TestCalculate_ReferenceFare(t *testing.T) {
	// 7m30s at 0.15/min with a 1.00 unlock fee: duration rounds up to 8,
	// time fare 1.20, total 2.20.
	b := Calculate(0, 0, 0, 0, ts(12, 0, 0), ts(12, 7, 30), 1.00, 0.15)

	if b.DurationMinutes != 8 {
		t.Errorf("DurationMinutes = %d, want 8", b.DurationMinutes)
	}
	if b.BaseFare != 1.00 {
		t.Errorf("BaseFare = %v, want 1.00", b.BaseFare)
	}
	if b.TimeFare != 1.20 {
		t.Errorf("TimeFare = %v, want 1.20", b.TimeFare)
	}
	if b.DistanceFare != 0 {
		t.Errorf("DistanceFare = %v, want 0", b.DistanceFare)
	}
	if b.TotalFare != 2.20 {
		t.Errorf("TotalFare = %v, want 2.20", b.TotalFare)
	}
}

func TestCalculate_SubMinuteBillsOneMinute(t *testing.T) {
	b := Calculate(0, 0, 0, 0, ts(12, 0, 0), ts(12, 0, 20), 1.00, 0.15)
	if b.DurationMinutes != 1 {
		t.Errorf("DurationMinutes = %d, want 1", b.DurationMinutes)
	}
	if b.TotalFare != 1.15 {
		t.Errorf("TotalFare = %v, want 1.15", b.TotalFare)
	}
}

func TestCalculate_ExactMinuteBoundary(t *testing.T) {
	// Exactly 10 minutes must not round up to 11.
	b := Calculate(0, 0, 0, 0, ts(12, 0, 0), ts(12, 10, 0), 0.50, 0.10)
	if b.DurationMinutes != 10 {
		t.Errorf("DurationMinutes = %d, want 10", b.DurationMinutes)
	}
	if b.TotalFare != 1.50 {
		t.Errorf("TotalFare = %v, want 1.50", b.TotalFare)
	}
}

func TestCalculate_ClockSkewClampsToZero(t *testing.T) {
	b := Calculate(0, 0, 0, 0, ts(12, 10, 0), ts(12, 0, 0), 1.00, 0.15)
	if !b.ClockSkew {
		t.Error("expected ClockSkew to be set")
	}
	if b.DurationMinutes != 0 {
		t.Errorf("DurationMinutes = %d, want 0", b.DurationMinutes)
	}
	if b.TimeFare != 0 {
		t.Errorf("TimeFare = %v, want 0", b.TimeFare)
	}
	if b.TotalFare != 1.00 {
		t.Errorf("TotalFare = %v, want unlock fee only (1.00)", b.TotalFare)
	}
}

func TestCalculate_DistanceMeasuredNotPriced(t *testing.T) {
	b := Calculate(52.5200, 13.4050, 48.8566, 2.3522, ts(8, 0, 0), ts(9, 0, 0), 1.00, 0.15)
	if b.DistanceKm < 870 || b.DistanceKm > 890 {
		t.Errorf("DistanceKm = %.2f, want ~878", b.DistanceKm)
	}
	if b.DistanceFare != 0 {
		t.Errorf("DistanceFare = %v, want 0 regardless of distance", b.DistanceFare)
	}
}
