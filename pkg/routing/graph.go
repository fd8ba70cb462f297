package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/voyant-travel/itinerary-cli/internal/model"
	"github.com/voyant-travel/itinerary-cli/internal/resilience"
)

const graphDefaultTimeout = 10 * time.Second

// GraphClient calls the self-hosted street-network routing service. The
// service downloads OpenStreetMap graphs on demand, so when it is down it
// tends to stay down; a circuit breaker keeps an unreachable deployment from
// costing a full timeout on every segment.
type GraphClient struct {
	baseURL string
	http    *http.Client
	breaker *resilience.Breaker
}

// GraphOption configures the graph client.
type GraphOption func(*GraphClient)

// WithGraphHTTPClient overrides the default http.Client.
func WithGraphHTTPClient(hc *http.Client) GraphOption {
	return func(c *GraphClient) {
		c.http = hc
	}
}

// WithGraphBreaker overrides the default circuit breaker.
func WithGraphBreaker(b *resilience.Breaker) GraphOption {
	return func(c *GraphClient) {
		c.breaker = b
	}
}

// NewGraphClient creates the self-hosted tier client. An empty baseURL
// leaves the tier unavailable.
func NewGraphClient(baseURL string, opts ...GraphOption) *GraphClient {
	c := &GraphClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: graphDefaultTimeout},
		breaker: resilience.NewBreaker(3, 30*time.Second),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Name implements Router.
func (c *GraphClient) Name() string { return "graph" }

// Available implements Router.
func (c *GraphClient) Available() bool {
	return c.baseURL != "" && !c.breaker.Tripped()
}

type graphCoordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type graphRequest struct {
	Origin      graphCoordinates `json:"origin"`
	Destination graphCoordinates `json:"destination"`
	Mode        string           `json:"mode"`
}

type graphResponse struct {
	DistanceKm      float64     `json:"distance_km"`
	DurationMinutes float64     `json:"duration_minutes"`
	Mode            string      `json:"mode"`
	PathCoordinates [][]float64 `json:"path_coordinates"`
	Success         bool        `json:"success"`
	Error           string      `json:"error"`
}

// Route implements Router.
func (c *GraphClient) Route(ctx context.Context, req Request) (*Route, error) {
	if err := c.breaker.Allow(); err != nil {
		return nil, err
	}
	route, err := c.route(ctx, req)
	c.breaker.Record(err)
	return route, err
}

func (c *GraphClient) route(ctx context.Context, req Request) (*Route, error) {
	mode := "drive"
	if req.Mode == model.ModeWalking {
		mode = "walk"
	}

	body, err := json.Marshal(graphRequest{
		Origin:      graphCoordinates{Lat: req.Origin.Lat, Lng: req.Origin.Lng},
		Destination: graphCoordinates{Lat: req.Destination.Lat, Lng: req.Destination.Lng},
		Mode:        mode,
	})
	if err != nil {
		return nil, eris.Wrap(err, "graph: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/route", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "graph: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "graph: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "graph: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("graph: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var out graphResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, eris.Wrap(err, "graph: unmarshal response")
	}
	if !out.Success {
		return nil, eris.Errorf("graph: routing failed: %s", out.Error)
	}

	return &Route{
		DistanceKm:      out.DistanceKm,
		DurationMinutes: out.DurationMinutes,
		Source:          c.Name(),
		Path:            newLineString(out.PathCoordinates),
	}, nil
}
