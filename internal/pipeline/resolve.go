package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/voyant-travel/itinerary-cli/internal/cache"
	"github.com/voyant-travel/itinerary-cli/internal/gazetteer"
	"github.com/voyant-travel/itinerary-cli/internal/model"
	"github.com/voyant-travel/itinerary-cli/internal/resilience"
	"github.com/voyant-travel/itinerary-cli/pkg/airports"
	"github.com/voyant-travel/itinerary-cli/pkg/geocode"
	"github.com/voyant-travel/itinerary-cli/pkg/oracle"
)

// Tier confidences. They strictly decrease as the chain advances.
const (
	confidenceCacheExact   = 0.95
	confidenceCachePartial = 0.9
	confidenceGeocode      = 0.85
	confidenceAI           = 0.6
	confidenceAirportDB    = 0.95
)

// defaultResolveConcurrency bounds concurrent entity resolutions so the
// geocoding service's rate limits are respected.
const defaultResolveConcurrency = 4

const coordinatePrompt = `What are the latitude and longitude of this place? Return a valid JSON object:
{"lat": <float>, "lng": <float>}

Use 0 for both values only if the place is unknown to you.

Place: %s`

// Resolver geolocates normalized entities through a ranked chain of sources:
// exact gazetteer match, partial gazetteer match, geocoding service, AI
// fallback. Airports short-circuit through the airport database by code.
// An entity no tier can place is dropped with a diagnostic, never an error.
type Resolver struct {
	gaz      *gazetteer.Gazetteer
	geocoder geocode.Client
	airports airports.Client
	oracle   oracle.Client

	ttl         *cache.TTL[model.ResolvedEntity]
	concurrency int
	retry       resilience.RetryConfig
}

// ResolverOption configures the resolver.
type ResolverOption func(*Resolver)

// WithResolveConcurrency bounds the worker pool.
func WithResolveConcurrency(n int) ResolverOption {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithResolveTTL supplies the in-memory result cache.
func WithResolveTTL(ttl *cache.TTL[model.ResolvedEntity]) ResolverOption {
	return func(r *Resolver) {
		r.ttl = ttl
	}
}

// NewResolver creates the resolution stage. A nil gazetteer selects the
// embedded default; geocoder, airport, and oracle clients may be nil, which
// disables their tiers.
func NewResolver(gaz *gazetteer.Gazetteer, geocoder geocode.Client, airportDB airports.Client, oracleClient oracle.Client, opts ...ResolverOption) *Resolver {
	if gaz == nil {
		gaz = gazetteer.Default()
	}
	r := &Resolver{
		gaz:         gaz,
		geocoder:    geocoder,
		airports:    airportDB,
		oracle:      oracleClient,
		ttl:         cache.NewTTL[model.ResolvedEntity](50, 0),
		concurrency: defaultResolveConcurrency,
		retry:       resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolution is the output of the resolution stage.
type Resolution struct {
	Entities []model.ResolvedEntity
	Flights  []model.FlightLeg
	Trains   []model.TrainLeg
}

// ResolveAll resolves every entity, flight endpoint, and train station
// concurrently within the worker pool. Misses become diagnostics.
func (r *Resolver) ResolveAll(ctx context.Context, ec *ExecutionContext, tr *model.Translation) (*Resolution, []model.Diagnostic) {
	res := &Resolution{
		Entities: make([]model.ResolvedEntity, 0, len(tr.Entities)),
		Flights:  append([]model.FlightLeg(nil), tr.Flights...),
		Trains:   append([]model.TrainLeg(nil), tr.Trains...),
	}

	var mu sync.Mutex
	var diags []model.Diagnostic
	miss := func(name, reason string) {
		mu.Lock()
		diags = append(diags, model.Diagnostic{
			Stage:   model.StageResolution,
			Code:    model.DiagResolutionMiss,
			Entity:  name,
			Message: reason,
		})
		mu.Unlock()
	}

	resolved := make([]*model.ResolvedEntity, len(tr.Entities))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i := range tr.Entities {
		g.Go(func() error {
			re := r.Resolve(gCtx, tr.Entities[i])
			if re == nil {
				miss(tr.Entities[i].Name, "no tier produced coordinates")
				return nil
			}
			resolved[i] = re
			return nil
		})
	}
	for i := range res.Flights {
		g.Go(func() error {
			leg := &res.Flights[i]
			var err error
			if leg.Departure, err = r.resolveAirport(gCtx, leg.DepartureCode, leg.Day); err != nil || leg.Departure == nil {
				miss(flightEndpointName(leg.FlightNumber, leg.DepartureCode), "departure airport unresolved")
			}
			if leg.Arrival, err = r.resolveAirport(gCtx, leg.ArrivalCode, leg.Day); err != nil || leg.Arrival == nil {
				miss(flightEndpointName(leg.FlightNumber, leg.ArrivalCode), "arrival airport unresolved")
			}
			return nil
		})
	}
	for i := range res.Trains {
		g.Go(func() error {
			leg := &res.Trains[i]
			leg.FromStation = r.resolveStation(gCtx, leg.From, leg.Day)
			if leg.FromStation == nil && leg.From != "" {
				miss(leg.From, "departure station unresolved")
			}
			leg.ToStation = r.resolveStation(gCtx, leg.To, leg.Day)
			if leg.ToStation == nil && leg.To != "" {
				miss(leg.To, "arrival station unresolved")
			}
			return nil
		})
	}
	_ = g.Wait() // workers report misses, never errors

	for _, re := range resolved {
		if re != nil {
			res.Entities = append(res.Entities, *re)
		}
	}

	ec.Resolved = res.Entities
	ec.Flights = res.Flights
	ec.Trains = res.Trains
	return res, diags
}

// Resolve runs the chain for one entity. A nil result means every tier
// missed; the caller decides how to report it.
func (r *Resolver) Resolve(ctx context.Context, ne model.NormalizedEntity) *model.ResolvedEntity {
	key := cache.PlaceKey(gazetteer.NormalizeKey(ne.StandardizedName), ne.Kind)
	if hit, ok := r.ttl.Get(key); ok {
		hit.NormalizedEntity = ne
		return &hit
	}

	// Airports go through the code path first, then the generic chain.
	if ne.Kind == model.KindAirport {
		if re := r.airportByCode(ctx, airportCode(ne), ne); re != nil {
			r.ttl.Set(key, *re)
			return re
		}
	}

	tiers := []func(context.Context, model.NormalizedEntity) *model.ResolvedEntity{
		r.cacheExact,
		r.cachePartial,
		r.geocodeTier,
		r.aiTier,
	}
	for _, tier := range tiers {
		if re := tier(ctx, ne); re != nil {
			r.ttl.Set(key, *re)
			return re
		}
	}
	return nil
}

func (r *Resolver) cacheExact(_ context.Context, ne model.NormalizedEntity) *model.ResolvedEntity {
	place, ok := r.gaz.Lookup(ne.StandardizedName)
	if !ok {
		place, ok = r.gaz.Lookup(ne.OriginalName)
	}
	if !ok {
		return nil
	}
	return fromPlace(ne, place, confidenceCacheExact)
}

func (r *Resolver) cachePartial(_ context.Context, ne model.NormalizedEntity) *model.ResolvedEntity {
	place, ok := r.gaz.LookupPartial(ne.StandardizedName)
	if !ok {
		place, ok = r.gaz.LookupPartial(ne.OriginalName)
	}
	if !ok {
		return nil
	}
	return fromPlace(ne, place, confidenceCachePartial)
}

func (r *Resolver) geocodeTier(ctx context.Context, ne model.NormalizedEntity) *model.ResolvedEntity {
	if r.geocoder == nil {
		return nil
	}

	candidates, err := resilience.DoVal(ctx, r.retry, "geocode "+ne.StandardizedName, func(ctx context.Context) ([]geocode.Candidate, error) {
		return r.geocoder.SearchVariants(ctx, queryVariants(ne))
	})
	if err != nil {
		zap.L().Debug("resolve: geocoding failed", zap.String("entity", ne.Name), zap.Error(err))
		return nil
	}
	if len(candidates) == 0 {
		return nil
	}

	best := candidates[0]
	coords := model.Coordinates{Lat: best.Lat, Lng: best.Lng}
	if !coords.Valid() {
		return nil
	}
	return &model.ResolvedEntity{
		NormalizedEntity: ne,
		Coordinates:      coords,
		Confidence:       confidenceGeocode,
		Source:           model.SourceAPI,
		Address:          best.DisplayName,
	}
}

func (r *Resolver) aiTier(ctx context.Context, ne model.NormalizedEntity) *model.ResolvedEntity {
	if r.oracle == nil {
		return nil
	}

	resp, err := r.oracle.Complete(ctx, oracle.Request{
		Prompt:    fmt.Sprintf(coordinatePrompt, describeEntity(ne)),
		MaxTokens: 128,
	})
	if err != nil {
		zap.L().Debug("resolve: AI fallback failed", zap.String("entity", ne.Name), zap.Error(err))
		return nil
	}

	payload := oracle.ParsePayload(resp.Text)
	if payload.Kind != oracle.PayloadJSON {
		return nil
	}
	var coords model.Coordinates
	if err := payload.Decode(&coords); err != nil {
		return nil
	}
	// (0,0) from the oracle means "unknown", not the Gulf of Guinea.
	if !coords.Valid() {
		return nil
	}
	return &model.ResolvedEntity{
		NormalizedEntity: ne,
		Coordinates:      coords,
		Confidence:       confidenceAI,
		Source:           model.SourceAI,
	}
}

// resolveAirport resolves a flight endpoint by IATA/ICAO code.
func (r *Resolver) resolveAirport(ctx context.Context, code string, day int) (*model.ResolvedEntity, error) {
	if code == "" {
		return nil, nil
	}
	ne := model.NormalizedEntity{
		RawEntity:        model.RawEntity{Name: code, Kind: model.KindAirport, Day: day},
		OriginalName:     code,
		EnglishName:      code,
		StandardizedName: code,
	}
	if re := r.Resolve(ctx, ne); re != nil {
		return re, nil
	}
	return nil, nil
}

func (r *Resolver) airportByCode(ctx context.Context, code string, ne model.NormalizedEntity) *model.ResolvedEntity {
	if r.airports == nil || !airports.ValidCode(code) {
		return nil
	}

	airport, err := resilience.DoVal(ctx, r.retry, "airport "+code, func(ctx context.Context) (*airports.Airport, error) {
		return r.airports.LookupCode(ctx, code)
	})
	if err != nil {
		zap.L().Debug("resolve: airport lookup failed", zap.String("code", code), zap.Error(err))
		return nil
	}
	if airport == nil {
		return nil
	}

	coords := model.Coordinates{Lat: airport.Lat, Lng: airport.Lng}
	if !coords.Valid() {
		return nil
	}
	re := &model.ResolvedEntity{
		NormalizedEntity: ne,
		Coordinates:      coords,
		Confidence:       confidenceAirportDB,
		Source:           model.SourceAPI,
		Address:          strings.TrimSpace(airport.City + ", " + airport.Country),
	}
	if airport.Name != "" {
		re.EnglishName = airport.Name
		re.StandardizedName = airport.Name
	}
	return re
}

// resolveStation resolves a train endpoint. The station name gets a
// "Railway Station" suffix variant during geocoding via queryVariants.
func (r *Resolver) resolveStation(ctx context.Context, name string, day int) *model.ResolvedEntity {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	ne := model.NormalizedEntity{
		RawEntity:        model.RawEntity{Name: name, Kind: model.KindStation, Day: day},
		OriginalName:     name,
		EnglishName:      name,
		StandardizedName: name,
	}
	return r.Resolve(ctx, ne)
}

// queryVariants builds the geocoding query list: plain, with country, with
// region, and a station-suffixed form for stations.
func queryVariants(ne model.NormalizedEntity) []string {
	variants := []string{ne.StandardizedName}
	if ne.Kind == model.KindStation && !strings.Contains(strings.ToLower(ne.StandardizedName), "station") {
		variants = append(variants, ne.StandardizedName+" Railway Station")
	}
	if ne.Country != "" {
		variants = append(variants, ne.StandardizedName+", "+ne.Country)
	}
	if ne.Region != "" {
		variants = append(variants, ne.StandardizedName+", "+ne.Region)
	}
	if ne.OriginalName != ne.StandardizedName {
		variants = append(variants, ne.OriginalName)
	}
	return variants
}

func describeEntity(ne model.NormalizedEntity) string {
	desc := ne.StandardizedName
	if ne.Country != "" {
		desc += ", " + ne.Country
	}
	return desc
}

func airportCode(ne model.NormalizedEntity) string {
	if code, ok := ne.Metadata["code"]; ok {
		return strings.ToUpper(strings.TrimSpace(code))
	}
	return strings.ToUpper(strings.TrimSpace(ne.StandardizedName))
}

func fromPlace(ne model.NormalizedEntity, place *gazetteer.Place, confidence float64) *model.ResolvedEntity {
	re := &model.ResolvedEntity{
		NormalizedEntity: ne,
		Coordinates:      model.Coordinates{Lat: place.Lat, Lng: place.Lng},
		Confidence:       confidence,
		Source:           model.SourceCache,
	}
	if place.Country != "" && re.Country == "" {
		re.Country = place.Country
	}
	if place.Region != "" && re.Region == "" {
		re.Region = place.Region
	}
	return re
}

func flightEndpointName(flightNumber, code string) string {
	if code == "" {
		return flightNumber
	}
	return code
}
