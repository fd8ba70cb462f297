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
)

const premiumDefaultTimeout = 15 * time.Second

// PremiumClient calls the paid turn-by-turn routing service. It is the most
// precise and most expensive tier, so it runs under a short timeout.
type PremiumClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// PremiumOption configures the premium client.
type PremiumOption func(*PremiumClient)

// WithPremiumBaseURL overrides the service URL.
func WithPremiumBaseURL(u string) PremiumOption {
	return func(c *PremiumClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithPremiumHTTPClient overrides the default http.Client.
func WithPremiumHTTPClient(hc *http.Client) PremiumOption {
	return func(c *PremiumClient) {
		c.http = hc
	}
}

// NewPremiumClient creates the paid-tier routing client. An empty apiKey
// leaves the tier unavailable so the cascade skips it.
func NewPremiumClient(apiKey, baseURL string, opts ...PremiumOption) *PremiumClient {
	c := &PremiumClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: premiumDefaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Name implements Router.
func (c *PremiumClient) Name() string { return "premium" }

// Available implements Router.
func (c *PremiumClient) Available() bool { return c.apiKey != "" && c.baseURL != "" }

type premiumRequest struct {
	Origin      [2]float64 `json:"origin"`      // [lng, lat]
	Destination [2]float64 `json:"destination"` // [lng, lat]
	Profile     string     `json:"profile"`
}

type premiumResponse struct {
	DistanceMeters  float64     `json:"distance_meters"`
	DurationSeconds float64     `json:"duration_seconds"`
	Geometry        [][]float64 `json:"geometry"`
}

// Route implements Router.
func (c *PremiumClient) Route(ctx context.Context, req Request) (*Route, error) {
	body, err := json.Marshal(premiumRequest{
		Origin:      [2]float64{req.Origin.Lng, req.Origin.Lat},
		Destination: [2]float64{req.Destination.Lng, req.Destination.Lat},
		Profile:     string(req.Mode),
	})
	if err != nil {
		return nil, eris.Wrap(err, "premium: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/directions", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "premium: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "premium: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "premium: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("premium: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var out premiumResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, eris.Wrap(err, "premium: unmarshal response")
	}
	if out.DistanceMeters <= 0 {
		return nil, eris.New("premium: no route found")
	}

	return &Route{
		DistanceKm:      out.DistanceMeters / 1000,
		DurationMinutes: out.DurationSeconds / 60,
		Source:          c.Name(),
		Path:            newLineString(out.Geometry),
	}, nil
}
