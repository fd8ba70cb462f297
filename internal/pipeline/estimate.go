package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/voyant-travel/itinerary-cli/internal/cache"
	"github.com/voyant-travel/itinerary-cli/internal/geodesy"
	"github.com/voyant-travel/itinerary-cli/internal/model"
	"github.com/voyant-travel/itinerary-cli/pkg/routing"
)

// defaultEstimateConcurrency bounds concurrent routing calls.
const defaultEstimateConcurrency = 4

// Estimator computes route segments between consecutive stops. Flight and
// train legs use great-circle math directly; ground legs go through the
// routing cascade, which bottoms out in the Haversine floor and never fails
// for valid coordinates.
type Estimator struct {
	cascade *routing.Cascade

	ttl         *cache.TTL[model.RouteSegment]
	disk        *cache.DiskCache
	concurrency int
}

// EstimatorOption configures the estimator.
type EstimatorOption func(*Estimator)

// WithEstimateConcurrency bounds the worker pool.
func WithEstimateConcurrency(n int) EstimatorOption {
	return func(e *Estimator) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithRouteTTL supplies the in-memory segment cache.
func WithRouteTTL(ttl *cache.TTL[model.RouteSegment]) EstimatorOption {
	return func(e *Estimator) {
		e.ttl = ttl
	}
}

// WithDiskCache supplies the optional persistent route cache.
func WithDiskCache(disk *cache.DiskCache) EstimatorOption {
	return func(e *Estimator) {
		e.disk = disk
	}
}

// NewEstimator creates the estimation stage. A nil cascade gets the default
// chain, which is just the Haversine floor.
func NewEstimator(cascade *routing.Cascade, opts ...EstimatorOption) *Estimator {
	if cascade == nil {
		cascade = routing.DefaultCascade(nil, nil, nil)
	}
	e := &Estimator{
		cascade:     cascade,
		ttl:         cache.NewTTL[model.RouteSegment](50, 0),
		concurrency: defaultEstimateConcurrency,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// stopPair is one leg to estimate: consecutive same-day stops, or a
// cross-day connector.
type stopPair struct {
	from, to *model.ResolvedEntity
	fromID   string
	toID     string
	day      int
	crossDay bool
}

// EstimateAll builds segments for every consecutive same-day pair and every
// day boundary. Days must already be sorted with dense order assigned; stop
// IDs follow the global order. Pairs are estimated concurrently.
func (e *Estimator) EstimateAll(ctx context.Context, ec *ExecutionContext, days []model.DayPlan) ([]model.RouteSegment, []model.Diagnostic) {
	pairs := collectPairs(days)
	segments := make([]*model.RouteSegment, len(pairs))

	var mu sync.Mutex
	var diags []model.Diagnostic

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i := range pairs {
		g.Go(func() error {
			seg := e.estimatePair(gCtx, pairs[i])
			if seg == nil {
				return nil
			}
			segments[i] = seg
			// Great-circle flight/train estimates are the intended method,
			// not degradations; only unrouted ground legs get flagged.
			if seg.Approximate && (seg.Mode == model.ModeDriving || seg.Mode == model.ModeWalking) {
				mu.Lock()
				diags = append(diags, model.Diagnostic{
					Stage:   model.StageEstimation,
					Code:    model.DiagRoutingDegraded,
					Entity:  seg.FromName + " -> " + seg.ToName,
					Message: "no routed result, straight-line estimate used",
				})
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait() // estimation absorbs failures per pair

	out := make([]model.RouteSegment, 0, len(segments))
	for _, seg := range segments {
		if seg != nil {
			out = append(out, *seg)
		}
	}
	ec.Segments = out
	return out, diags
}

// collectPairs lists same-day consecutive pairs plus one overnight connector
// per day boundary. The connector anchors at the last non-terminal stop of
// day N (the traveler's evening is at a real place, not an airport or
// station) and lands on whatever stop opens day N+1.
func collectPairs(days []model.DayPlan) []stopPair {
	var pairs []stopPair
	for d := range days {
		entries := days[d].Entries
		for i := 0; i+1 < len(entries); i++ {
			pairs = append(pairs, stopPair{
				from:   &entries[i],
				to:     &entries[i+1],
				fromID: stopID(entries[i]),
				toID:   stopID(entries[i+1]),
				day:    days[d].Day,
			})
		}
		if d+1 < len(days) && len(days[d+1].Entries) > 0 {
			from := lastNonTerminal(days[d].Entries)
			to := &days[d+1].Entries[0]
			if from != nil {
				pairs = append(pairs, stopPair{
					from:     from,
					to:       to,
					fromID:   stopID(*from),
					toID:     stopID(*to),
					day:      days[d].Day,
					crossDay: true,
				})
			}
		}
	}
	return pairs
}

func (e *Estimator) estimatePair(ctx context.Context, p stopPair) *model.RouteSegment {
	if !p.from.Coordinates.Valid() || !p.to.Coordinates.Valid() {
		return nil
	}

	mode := ClassifyMode(p.from, p.to)
	seg := &model.RouteSegment{
		FromID:     p.fromID,
		ToID:       p.toID,
		FromName:   p.from.EnglishName,
		ToName:     p.to.EnglishName,
		Day:        p.day,
		Mode:       mode,
		IsCrossDay: p.crossDay,
	}

	switch mode {
	case model.ModeFlight:
		km := geodesy.Haversine(p.from.Coordinates, p.to.Coordinates)
		seg.DistanceKm = km
		seg.DurationMinutes = km/geodesy.FlightSpeedKmh*60 + geodesy.FlightBufferMinutes
		seg.Source = "great-circle"
		seg.Approximate = true
	case model.ModeTrain:
		km := geodesy.Haversine(p.from.Coordinates, p.to.Coordinates) * geodesy.RailFactor
		seg.DistanceKm = km
		seg.DurationMinutes = km / geodesy.RailSpeedKmh(trainNumberFor(p.from, p.to)) * 60
		seg.Source = "great-circle"
		seg.Approximate = true
	default:
		e.routeGround(ctx, p, mode, seg)
	}
	return seg
}

func (e *Estimator) routeGround(ctx context.Context, p stopPair, mode model.TransportMode, seg *model.RouteSegment) {
	key := cache.RouteKey(p.from.Coordinates, p.to.Coordinates, mode)
	if hit, ok := e.ttl.Get(key); ok {
		copyEstimate(seg, &hit)
		return
	}
	if e.disk != nil {
		var hit model.RouteSegment
		if ok, err := e.disk.Get(ctx, key, &hit); err == nil && ok {
			copyEstimate(seg, &hit)
			e.ttl.Set(key, hit)
			return
		}
	}

	route, err := e.cascade.Route(ctx, routing.Request{
		Origin:      p.from.Coordinates,
		Destination: p.to.Coordinates,
		Mode:        mode,
	})
	if err != nil {
		// Unreachable for valid coordinates: the floor is total.
		zap.L().Warn("estimate: routing chain failed",
			zap.String("from", p.from.EnglishName),
			zap.String("to", p.to.EnglishName),
			zap.Error(err),
		)
		km := geodesy.Haversine(p.from.Coordinates, p.to.Coordinates) * geodesy.RoadFactor
		seg.DistanceKm = km
		seg.DurationMinutes = km / geodesy.AssumedSpeedKmh(mode) * 60
		seg.Source = "haversine"
		seg.Approximate = true
		return
	}

	seg.DistanceKm = route.DistanceKm
	seg.DurationMinutes = route.DurationMinutes
	seg.Source = route.Source
	seg.Approximate = route.Approximate
	seg.Path = route.PathCoords()

	e.ttl.Set(key, *seg)
	if e.disk != nil {
		if err := e.disk.Set(ctx, key, seg); err != nil {
			zap.L().Debug("estimate: disk cache write failed", zap.Error(err))
		}
	}
}

func copyEstimate(dst, src *model.RouteSegment) {
	dst.DistanceKm = src.DistanceKm
	dst.DurationMinutes = src.DurationMinutes
	dst.Source = src.Source
	dst.Approximate = src.Approximate
	dst.Path = src.Path
}

// ClassifyMode picks the transport mode for a pair of stops. Classification
// is deliberately conservative: a long same-day drive stays a drive unless
// the document carried an explicit flight or train for it.
func ClassifyMode(from, to *model.ResolvedEntity) model.TransportMode {
	switch {
	case from.Kind == model.KindAirport && to.Kind == model.KindAirport:
		return model.ModeFlight
	case from.Kind == model.KindStation && to.Kind == model.KindStation:
		return model.ModeTrain
	case hasMeta(from, to, "flight"):
		return model.ModeFlight
	case hasMeta(from, to, "train"):
		return model.ModeTrain
	default:
		return model.ModeDriving
	}
}

func hasMeta(from, to *model.ResolvedEntity, key string) bool {
	_, a := from.Metadata[key]
	_, b := to.Metadata[key]
	return a || b
}

func trainNumberFor(from, to *model.ResolvedEntity) string {
	if n, ok := from.Metadata["train"]; ok {
		return n
	}
	if n, ok := to.Metadata["train"]; ok {
		return n
	}
	return ""
}

func lastNonTerminal(entries []model.ResolvedEntity) *model.ResolvedEntity {
	for i := len(entries) - 1; i >= 0; i-- {
		if !entries[i].Kind.IsTerminal() {
			return &entries[i]
		}
	}
	return nil
}
