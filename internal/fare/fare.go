package fare

import (
	"math"
	"time"

	"rental/internal/geo"
)

// Breakdown is the priced result of a finished trip.
//
// DistanceFare is measured but not priced: the distance is computed and
// stored, yet always billed as zero. Billing stays time-based until distance
// pricing is wired into the vehicle-type parameters.
type Breakdown struct {
	DistanceKm      float64
	DurationMinutes int
	BaseFare        float64
	DistanceFare    float64
	TimeFare        float64
	TotalFare       float64

	// ClockSkew is set when the end timestamp precedes the start timestamp.
	// The duration is clamped to zero and the caller is expected to log the
	// trip as a data-quality fault.
	ClockSkew bool
}

// Calculate prices a trip from its endpoints and the pricing parameters that
// were frozen on the trip at start time.
//
// Duration is billed in whole minutes, rounded up; a positive sub-minute
// duration bills as one minute. Monetary amounts are rounded to cents.
func Calculate(startLat, startLon, endLat, endLon float64, startTime, endTime time.Time, unlockFee, ratePerMinute float64) Breakdown {
	b := Breakdown{
		DistanceKm: geo.Distance(startLat, startLon, endLat, endLon),
	}

	seconds := endTime.Sub(startTime).Seconds()
	if seconds < 0 {
		b.ClockSkew = true
		seconds = 0
	}
	b.DurationMinutes = int(math.Ceil(seconds / 60))

	b.BaseFare = roundCents(unlockFee)
	b.DistanceFare = 0
	b.TimeFare = roundCents(ratePerMinute * float64(b.DurationMinutes))
	b.TotalFare = roundCents(b.BaseFare + b.DistanceFare + b.TimeFare)

	return b
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
