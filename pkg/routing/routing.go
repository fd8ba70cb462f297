// Package routing computes ground-route distance and duration between two
// coordinates through a ranked chain of backends: a paid turn-by-turn
// service, a self-hosted street-network service, the public OSRM API, and a
// Haversine floor that never fails. Each result is tagged with the backend
// that produced it so callers can surface "routed" vs "approximate".
package routing

import (
	"context"

	"github.com/twpayne/go-geom"

	"github.com/voyant-travel/itinerary-cli/internal/model"
)

// Request describes a single routing query.
type Request struct {
	Origin      model.Coordinates
	Destination model.Coordinates
	Mode        model.TransportMode // driving or walking
}

// Route is a computed ground route.
type Route struct {
	DistanceKm      float64
	DurationMinutes float64

	// Source names the backend: "premium", "graph", "public" or "haversine".
	Source string

	// Approximate is true only for the Haversine floor.
	Approximate bool

	// Path is the routed geometry in lng/lat order, nil when the backend
	// returns no geometry.
	Path *geom.LineString
}

// PathCoords flattens the route geometry into [lng, lat] pairs for JSON
// consumers. Returns nil when there is no geometry.
func (r *Route) PathCoords() [][]float64 {
	if r.Path == nil {
		return nil
	}
	coords := r.Path.Coords()
	out := make([][]float64, len(coords))
	for i, c := range coords {
		out[i] = []float64{c.X(), c.Y()}
	}
	return out
}

// Router is a single routing backend.
type Router interface {
	Name() string
	// Available reports whether the backend is worth trying at all
	// (configured, circuit not tripped).
	Available() bool
	Route(ctx context.Context, req Request) (*Route, error)
}

// newLineString builds route geometry from [lng, lat] pairs. Returns nil for
// fewer than two points.
func newLineString(coords [][]float64) *geom.LineString {
	if len(coords) < 2 {
		return nil
	}
	flat := make([]float64, 0, len(coords)*2)
	for _, c := range coords {
		if len(c) < 2 {
			return nil
		}
		flat = append(flat, c[0], c[1])
	}
	return geom.NewLineStringFlat(geom.XY, flat)
}
