package model

// EntityKind classifies an extracted entity.
type EntityKind string

const (
	KindLocation   EntityKind = "location"
	KindFlight     EntityKind = "flight"
	KindTrain      EntityKind = "train"
	KindHotel      EntityKind = "hotel"
	KindRestaurant EntityKind = "restaurant"
	KindAttraction EntityKind = "attraction"
	KindAirport    EntityKind = "airport"
	KindStation    EntityKind = "station"
	KindCity       EntityKind = "city"
)

// IsTerminal reports whether the entity kind is a transport terminal
// (airport or station) rather than a place a traveler actually visits.
func (k EntityKind) IsTerminal() bool {
	return k == KindAirport || k == KindStation
}

// ResolutionSource identifies which tier produced a coordinate.
type ResolutionSource string

const (
	SourceCache ResolutionSource = "cache"
	SourceAPI   ResolutionSource = "api"
	SourceAI    ResolutionSource = "ai"
)

// Coordinates is a WGS84 lat/lng pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinates are within WGS84 bounds and not the
// degenerate (0,0) point, which upstream sources use to mean "unknown".
func (c Coordinates) Valid() bool {
	if c.Lat == 0 && c.Lng == 0 {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// RawEntity is a candidate stop as extracted from a document, before any
// normalization or geolocation. Order is unique and increasing within a day.
type RawEntity struct {
	Name     string            `json:"name"`
	Kind     EntityKind        `json:"kind"`
	Day      int               `json:"day"`
	Order    int               `json:"order"`
	RawText  string            `json:"raw_text,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NormalizedEntity is a RawEntity with standardized names attached. It is
// immutable once produced; StandardizedName is the canonical geocoding query.
type NormalizedEntity struct {
	RawEntity

	OriginalName     string `json:"original_name"`
	EnglishName      string `json:"english_name"`
	StandardizedName string `json:"standardized_name"`
	Country          string `json:"country,omitempty"`
	Region           string `json:"region,omitempty"`
}

// ResolvedEntity is a NormalizedEntity with coordinates. Entities that could
// not be resolved are dropped, never carried with nil coordinates, so
// Coordinates and Confidence are always set on a ResolvedEntity.
type ResolvedEntity struct {
	NormalizedEntity

	Coordinates Coordinates      `json:"coordinates"`
	Confidence  float64          `json:"confidence"`
	Source      ResolutionSource `json:"source"`
	Address     string           `json:"address,omitempty"`
}

// FlightLeg is a flight with both endpoints resolved through the airport path.
type FlightLeg struct {
	FlightNumber  string `json:"flight_number"`
	DepartureCode string `json:"departure_code"`
	ArrivalCode   string `json:"arrival_code"`
	Day           int    `json:"day"`

	Departure *ResolvedEntity `json:"departure,omitempty"`
	Arrival   *ResolvedEntity `json:"arrival,omitempty"`
}

// TrainLeg is a rail journey between two stations.
type TrainLeg struct {
	TrainNumber string `json:"train_number"`
	From        string `json:"from"`
	To          string `json:"to"`
	Day         int    `json:"day"`
	HighSpeed   bool   `json:"high_speed"`

	FromStation *ResolvedEntity `json:"from_station,omitempty"`
	ToStation   *ResolvedEntity `json:"to_station,omitempty"`
}

// Extraction is the typed output of the extraction stage.
type Extraction struct {
	Entities      []RawEntity `json:"entities"`
	Flights       []FlightLeg `json:"flights"`
	Trains        []TrainLeg  `json:"trains"`
	EstimatedDays int         `json:"estimated_days"`
}

// Translation is the output of the normalization stage: a new collection,
// never a mutation of the extraction output.
type Translation struct {
	Entities []NormalizedEntity `json:"entities"`
	Flights  []FlightLeg        `json:"flights"`
	Trains   []TrainLeg         `json:"trains"`

	// DetectedLanguage is a BCP 47 tag string ("en", "zh", ...) or "" when
	// detection failed and normalization degraded to pass-through.
	DetectedLanguage string `json:"detected_language,omitempty"`
}
