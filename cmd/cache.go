package main

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/voyant-travel/itinerary-cli/internal/cache"
	"github.com/voyant-travel/itinerary-cli/internal/model"
	"github.com/voyant-travel/itinerary-cli/pkg/routing"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the on-disk route cache",
}

var cacheSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete expired entries from the disk cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Cache.DiskPath == "" {
			return eris.New("cache: no disk cache configured (set cache.disk_path)")
		}
		disk, err := openDiskCache(cmd.Context(), cfg.Cache)
		if err != nil {
			return eris.Wrap(err, "cache: open")
		}
		defer disk.Close()

		removed, err := disk.Sweep(cmd.Context())
		if err != nil {
			return eris.Wrap(err, "cache: sweep")
		}
		zap.L().Info("cache: sweep complete", zap.Int("removed", removed))
		return nil
	},
}

var (
	warmFrom string
	warmTo   string
	warmMode string
)

var cacheWarmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Pre-route a coordinate pair into the disk cache",
	Long: "Runs the routing cascade for one origin/destination pair and stores " +
		"the result, so later plan runs over the same leg skip the network tiers.",
	RunE: runCacheWarm,
}

func init() {
	cacheWarmCmd.Flags().StringVar(&warmFrom, "from", "", "origin as lat,lng")
	cacheWarmCmd.Flags().StringVar(&warmTo, "to", "", "destination as lat,lng")
	cacheWarmCmd.Flags().StringVar(&warmMode, "mode", "driving", "driving or walking")

	cacheCmd.AddCommand(cacheSweepCmd)
	cacheCmd.AddCommand(cacheWarmCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheWarm(cmd *cobra.Command, args []string) error {
	if cfg.Cache.DiskPath == "" {
		return eris.New("cache: no disk cache configured (set cache.disk_path)")
	}

	origin, err := parseCoordinates(warmFrom)
	if err != nil {
		return eris.Wrap(err, "cache: --from")
	}
	destination, err := parseCoordinates(warmTo)
	if err != nil {
		return eris.Wrap(err, "cache: --to")
	}
	mode := model.TransportMode(warmMode)
	if mode != model.ModeDriving && mode != model.ModeWalking {
		return eris.Errorf("cache: unsupported warm mode %q", warmMode)
	}

	route, err := buildCascade(cfg).Route(cmd.Context(), routing.Request{
		Origin:      origin,
		Destination: destination,
		Mode:        mode,
	})
	if err != nil {
		return eris.Wrap(err, "cache: route")
	}

	disk, err := openDiskCache(cmd.Context(), cfg.Cache)
	if err != nil {
		return eris.Wrap(err, "cache: open")
	}
	defer disk.Close()

	key := cache.RouteKey(origin, destination, mode)
	seg := model.RouteSegment{
		DistanceKm:      route.DistanceKm,
		DurationMinutes: route.DurationMinutes,
		Mode:            mode,
		Source:          route.Source,
		Approximate:     route.Approximate,
		Path:            route.PathCoords(),
	}
	if err := disk.Set(cmd.Context(), key, seg); err != nil {
		return eris.Wrap(err, "cache: store")
	}

	zap.L().Info("cache: warmed route",
		zap.String("key", key),
		zap.String("source", route.Source),
		zap.Float64("distance_km", route.DistanceKm),
		zap.Float64("duration_minutes", route.DurationMinutes),
	)
	return nil
}

// parseCoordinates parses a "lat,lng" flag value.
func parseCoordinates(s string) (model.Coordinates, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return model.Coordinates{}, eris.Errorf("expected lat,lng, got %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return model.Coordinates{}, eris.Wrapf(err, "parse latitude %q", parts[0])
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return model.Coordinates{}, eris.Wrapf(err, "parse longitude %q", parts[1])
	}
	c := model.Coordinates{Lat: lat, Lng: lng}
	if !c.Valid() {
		return model.Coordinates{}, eris.Errorf("coordinates %q out of range", s)
	}
	return c, nil
}
