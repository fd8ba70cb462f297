package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/voyant-travel/itinerary-cli/internal/model"
)

const (
	publicDefaultBaseURL = "https://router.project-osrm.org"
	publicDefaultTimeout = 30 * time.Second
)

// PublicClient calls the public OSRM demo API. It is free and slow, so it is
// the last network tier, rate limited to stay within the demo server policy.
type PublicClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// PublicOption configures the public client.
type PublicOption func(*PublicClient)

// WithPublicBaseURL overrides the default OSRM URL.
func WithPublicBaseURL(u string) PublicOption {
	return func(c *PublicClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithPublicHTTPClient overrides the default http.Client.
func WithPublicHTTPClient(hc *http.Client) PublicOption {
	return func(c *PublicClient) {
		c.http = hc
	}
}

// WithPublicRateLimit caps requests per second.
func WithPublicRateLimit(rps float64) PublicOption {
	return func(c *PublicClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// NewPublicClient creates the public-API tier client.
func NewPublicClient(opts ...PublicOption) *PublicClient {
	c := &PublicClient{
		baseURL: publicDefaultBaseURL,
		http:    &http.Client{Timeout: publicDefaultTimeout},
		limiter: rate.NewLimiter(1, 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Name implements Router.
func (c *PublicClient) Name() string { return "public" }

// Available implements Router.
func (c *PublicClient) Available() bool { return c.baseURL != "" }

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"` // meters
		Duration float64 `json:"duration"` // seconds
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"routes"`
}

// Route implements Router.
func (c *PublicClient) Route(ctx context.Context, req Request) (*Route, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "public: rate limit wait")
	}

	profile := "driving"
	if req.Mode == model.ModeWalking {
		profile = "foot"
	}

	endpoint := fmt.Sprintf("%s/route/v1/%s/%f,%f;%f,%f?overview=full&geometries=geojson",
		c.baseURL, profile,
		req.Origin.Lng, req.Origin.Lat,
		req.Destination.Lng, req.Destination.Lat,
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrap(err, "public: create request")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "public: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "public: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("public: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var out osrmResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "public: unmarshal response")
	}
	if out.Code != "Ok" || len(out.Routes) == 0 {
		return nil, eris.Errorf("public: no route (code %s)", out.Code)
	}

	best := out.Routes[0]
	return &Route{
		DistanceKm:      best.Distance / 1000,
		DurationMinutes: best.Duration / 60,
		Source:          c.Name(),
		Path:            newLineString(best.Geometry.Coordinates),
	}, nil
}
