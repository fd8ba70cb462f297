package routing

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/voyant-travel/itinerary-cli/internal/geodesy"
)

// FallbackRouter is the Haversine floor of the cascade. It multiplies the
// great-circle distance by the road factor and divides by the assumed speed
// for the mode. It cannot fail for valid coordinates, which makes the chain
// total.
type FallbackRouter struct{}

// NewFallbackRouter creates the floor tier.
func NewFallbackRouter() *FallbackRouter { return &FallbackRouter{} }

// Name implements Router.
func (FallbackRouter) Name() string { return "haversine" }

// Available implements Router.
func (FallbackRouter) Available() bool { return true }

// Route implements Router. The only error condition is invalid coordinates,
// which callers are expected to have screened out already.
func (FallbackRouter) Route(_ context.Context, req Request) (*Route, error) {
	if !req.Origin.Valid() || !req.Destination.Valid() {
		return nil, eris.New("haversine: invalid coordinates")
	}

	roadKm := geodesy.Haversine(req.Origin, req.Destination) * geodesy.RoadFactor
	speed := geodesy.AssumedSpeedKmh(req.Mode)

	return &Route{
		DistanceKm:      roadKm,
		DurationMinutes: roadKm / speed * 60,
		Source:          "haversine",
		Approximate:     true,
	}, nil
}
