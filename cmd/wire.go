package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/voyant-travel/itinerary-cli/internal/cache"
	"github.com/voyant-travel/itinerary-cli/internal/config"
	"github.com/voyant-travel/itinerary-cli/internal/model"
	"github.com/voyant-travel/itinerary-cli/internal/pipeline"
	"github.com/voyant-travel/itinerary-cli/pkg/airports"
	"github.com/voyant-travel/itinerary-cli/pkg/geocode"
	"github.com/voyant-travel/itinerary-cli/pkg/oracle"
	"github.com/voyant-travel/itinerary-cli/pkg/routing"
)

// env holds the wired pipeline and its closable resources.
type env struct {
	Orchestrator *pipeline.Orchestrator
	Disk         *cache.DiskCache
	RouteTTL     *cache.TTL[model.RouteSegment]
}

// Close releases the disk cache handle, if one was opened.
func (e *env) Close() {
	if e.Disk != nil {
		_ = e.Disk.Close()
	}
}

// buildEnv wires all clients, caches, and stages from configuration.
func buildEnv(ctx context.Context, cfg *config.Config) (*env, error) {
	oracleClient := oracle.NewClient(cfg.Oracle.Key,
		oracle.WithModel(cfg.Oracle.Model),
		oracle.WithMaxTokens(cfg.Oracle.MaxTokens),
	)

	var airportClient airports.Client
	if cfg.Airports.BaseURL != "" {
		airportClient = airports.NewClient(cfg.Airports.Key, airports.WithBaseURL(cfg.Airports.BaseURL))
	}

	geocoder := geocode.NewClient(
		geocode.WithBaseURL(cfg.Geocode.BaseURL),
		geocode.WithVariantDelay(time.Duration(cfg.Geocode.VariantDelayMS)*time.Millisecond),
		geocode.WithRateLimit(cfg.Geocode.RatePerSecond),
	)

	cascade := buildCascade(cfg)

	ttl := time.Duration(cfg.Cache.TTLMinutes) * time.Minute
	resolveTTL := cache.NewTTL[model.ResolvedEntity](cfg.Cache.MemoryEntries, ttl)
	routeTTL := cache.NewTTL[model.RouteSegment](cfg.Cache.MemoryEntries, ttl)

	e := &env{RouteTTL: routeTTL}
	estimatorOpts := []pipeline.EstimatorOption{
		pipeline.WithRouteTTL(routeTTL),
		pipeline.WithEstimateConcurrency(cfg.Pipeline.EstimateConcurrency),
	}
	if cfg.Cache.DiskPath != "" {
		disk, err := openDiskCache(ctx, cfg.Cache)
		if err != nil {
			zap.L().Warn("disk cache unavailable, continuing without it", zap.Error(err))
		} else {
			e.Disk = disk
			estimatorOpts = append(estimatorOpts, pipeline.WithDiskCache(disk))
		}
	}

	e.Orchestrator = pipeline.NewOrchestrator(
		pipeline.NewExtractor(oracleClient, nil),
		pipeline.NewNormalizer(oracleClient),
		pipeline.NewResolver(nil, geocoder, airportClient, oracleClient,
			pipeline.WithResolveTTL(resolveTTL),
			pipeline.WithResolveConcurrency(cfg.Pipeline.ResolveConcurrency),
		),
		pipeline.NewEstimator(cascade, estimatorOpts...),
	)
	return e, nil
}

// buildCascade assembles the routing tiers; unset tiers are left out and the
// Haversine floor is always present.
func buildCascade(cfg *config.Config) *routing.Cascade {
	var premium *routing.PremiumClient
	if cfg.Routing.PremiumKey != "" && cfg.Routing.PremiumBaseURL != "" {
		premium = routing.NewPremiumClient(cfg.Routing.PremiumKey, cfg.Routing.PremiumBaseURL)
	}
	var graph *routing.GraphClient
	if cfg.Routing.GraphBaseURL != "" {
		graph = routing.NewGraphClient(cfg.Routing.GraphBaseURL)
	}
	var public *routing.PublicClient
	if cfg.Routing.PublicBaseURL != "" {
		public = routing.NewPublicClient(routing.WithPublicBaseURL(cfg.Routing.PublicBaseURL))
	}
	return routing.DefaultCascade(premium, graph, public)
}

func openDiskCache(ctx context.Context, cfg config.CacheConfig) (*cache.DiskCache, error) {
	disk, err := cache.NewDiskCache(cfg.DiskPath, time.Duration(cfg.DiskTTLHours)*time.Hour)
	if err != nil {
		return nil, err
	}
	if err := disk.Migrate(ctx); err != nil {
		_ = disk.Close()
		return nil, err
	}
	return disk, nil
}
