package routing

import (
	"context"

	"go.uber.org/zap"
)

// Cascade tries routers in order until one succeeds. A timed-out call is
// treated the same as a failed one: the chain advances. With the Haversine
// floor as the final tier the cascade always terminates with a result.
type Cascade struct {
	routers []Router
}

// NewCascade builds a cascade over the given routers. The caller is expected
// to place a FallbackRouter last; DefaultCascade does this.
func NewCascade(routers ...Router) *Cascade {
	return &Cascade{routers: routers}
}

// DefaultCascade assembles the standard four-tier chain. Nil tiers are
// skipped, the Haversine floor is always appended.
func DefaultCascade(premium *PremiumClient, graph *GraphClient, public *PublicClient) *Cascade {
	var routers []Router
	if premium != nil {
		routers = append(routers, premium)
	}
	if graph != nil {
		routers = append(routers, graph)
	}
	if public != nil {
		routers = append(routers, public)
	}
	routers = append(routers, NewFallbackRouter())
	return &Cascade{routers: routers}
}

// Route returns the first successful result. It errors only when every tier
// fails, which with the floor in place means the coordinates were invalid.
func (c *Cascade) Route(ctx context.Context, req Request) (*Route, error) {
	var lastErr error
	for _, r := range c.routers {
		if !r.Available() {
			continue
		}
		route, err := r.Route(ctx, req)
		if err != nil {
			zap.L().Debug("routing: tier failed, advancing",
				zap.String("tier", r.Name()),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		return route, nil
	}
	return nil, lastErr
}
