// Package geodesy provides great-circle math and the distance/speed constants
// shared by the route estimators.
package geodesy

import (
	"math"

	"github.com/voyant-travel/itinerary-cli/internal/model"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

// RoadFactor approximates road distance from straight-line distance.
const RoadFactor = 1.4

// RailFactor approximates rail distance from straight-line distance.
const RailFactor = 1.3

// Cruise parameters for flight duration estimates.
const (
	FlightSpeedKmh      = 800.0
	FlightBufferMinutes = 30.0
	HighSpeedRailKmh    = 300.0 // G/C-prefixed trains
	FastRailKmh         = 200.0 // D-prefixed trains
	ConventionalRailKmh = 100.0
)

// Haversine returns the great-circle distance in kilometers between two
// points. It is symmetric and zero for identical points.
func Haversine(a, b model.Coordinates) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKm * c
}

// AssumedSpeedKmh returns the fallback ground speed for a transport mode,
// used when no routed duration is available.
func AssumedSpeedKmh(mode model.TransportMode) float64 {
	switch mode {
	case model.ModeWalking:
		return 5
	case model.ModeDriving:
		return 60
	default:
		return 60
	}
}

// RailSpeedKmh returns the average speed for a train number prefix.
// G and C trains are high-speed, D trains are fast regional, everything
// else is conventional rail.
func RailSpeedKmh(trainNumber string) float64 {
	if trainNumber == "" {
		return ConventionalRailKmh
	}
	switch trainNumber[0] {
	case 'G', 'C':
		return HighSpeedRailKmh
	case 'D':
		return FastRailKmh
	default:
		return ConventionalRailKmh
	}
}
