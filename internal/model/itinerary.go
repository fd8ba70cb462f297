package model

// TransportMode classifies how a traveler moves between two stops.
type TransportMode string

const (
	ModeDriving TransportMode = "driving"
	ModeFlight  TransportMode = "flight"
	ModeTrain   TransportMode = "train"
	ModeWalking TransportMode = "walking"
)

// RouteSegment connects two consecutive stops. One segment exists per
// consecutive same-day pair plus one cross-day connector per day boundary.
type RouteSegment struct {
	FromID          string        `json:"from_id"`
	ToID            string        `json:"to_id"`
	FromName        string        `json:"from_name"`
	ToName          string        `json:"to_name"`
	Day             int           `json:"day"`
	DistanceKm      float64       `json:"distance_km"`
	DurationMinutes float64       `json:"duration_minutes"`
	Mode            TransportMode `json:"mode"`

	// Source names the routing tier that produced the estimate ("premium",
	// "osrm", "public", "haversine", or a mode-specific estimator).
	Source      string `json:"source"`
	Approximate bool   `json:"approximate"`
	IsCrossDay  bool   `json:"is_cross_day"`

	// Path is the routed geometry as [lng,lat] pairs when a network tier
	// supplied one; empty for approximate segments.
	Path [][]float64 `json:"path,omitempty"`
}

// TripType is a coarse classification of the overall itinerary.
type TripType string

const (
	TripMultiCity TripType = "multi_city"
	TripRoadTrip  TripType = "road_trip"
	TripCityTour  TripType = "city_tour"
	TripDayTrip   TripType = "day_trip"
)

// DayPlan groups the resolved stops of a single day, already sorted by the
// global order.
type DayPlan struct {
	Day     int              `json:"day"`
	Entries []ResolvedEntity `json:"entries"`
}

// Itinerary is the compiled output of a pipeline run. It is built once and
// never mutated afterward; order values are dense, zero-based, and increase
// strictly within each day, with days sorted ascending.
type Itinerary struct {
	Days     []DayPlan      `json:"days"`
	Segments []RouteSegment `json:"segments"`
	Flights  []FlightLeg    `json:"flights"`
	Trains   []TrainLeg     `json:"trains"`

	TotalDistanceKm      float64 `json:"total_distance_km"`
	TotalDurationMinutes float64 `json:"total_duration_minutes"`

	Summary  string   `json:"summary"`
	TripType TripType `json:"trip_type"`
}

// Stops flattens the itinerary into a single ordered slice of stops.
func (it *Itinerary) Stops() []ResolvedEntity {
	var out []ResolvedEntity
	for _, d := range it.Days {
		out = append(out, d.Entries...)
	}
	return out
}
