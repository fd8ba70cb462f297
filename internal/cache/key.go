package cache

import (
	"fmt"

	"github.com/voyant-travel/itinerary-cli/internal/model"
)

// RouteKey builds a cache key for a leg. Coordinates are rounded to two
// decimals (roughly a kilometre) so nearby lookups share an entry.
func RouteKey(origin, destination model.Coordinates, mode model.TransportMode) string {
	return fmt.Sprintf("%.2f,%.2f|%.2f,%.2f|%s",
		origin.Lat, origin.Lng,
		destination.Lat, destination.Lng,
		mode,
	)
}

// PlaceKey builds a cache key for a resolved place name.
func PlaceKey(name string, kind model.EntityKind) string {
	return fmt.Sprintf("place|%s|%s", kind, name)
}
