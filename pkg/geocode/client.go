// Package geocode resolves free-text place queries to coordinates through a
// Nominatim-compatible geocoding service. Callers send a list of query
// variants (plain, with country, with region); variants are tried in order
// with a pacing delay between attempts to respect the service's rate limits.
package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL    = "https://nominatim.openstreetmap.org"
	defaultUserAgent  = "itinerary-cli/1.0"
	defaultVariantGap = 200 * time.Millisecond
)

// Candidate is one ranked geocoding hit.
type Candidate struct {
	DisplayName string  `json:"display_name"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
}

// Client geocodes free-text queries.
type Client interface {
	// Search returns ranked candidates for a single query. An empty slice
	// with a nil error means the service answered but found nothing.
	Search(ctx context.Context, query string) ([]Candidate, error)

	// SearchVariants tries each query in order and returns the first
	// non-empty candidate list, pacing attempts by the configured delay.
	SearchVariants(ctx context.Context, queries []string) ([]Candidate, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default service URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithVariantDelay overrides the pacing delay between variant attempts.
func WithVariantDelay(d time.Duration) Option {
	return func(c *httpClient) {
		c.variantGap = d
	}
}

// WithRateLimit caps outbound requests per second across all callers.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

type httpClient struct {
	baseURL    string
	userAgent  string
	variantGap time.Duration
	http       *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a geocoding client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL:    defaultBaseURL,
		userAgent:  defaultUserAgent,
		variantGap: defaultVariantGap,
		http:       &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(1, 1), // Nominatim usage policy: 1 req/s
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// nominatimHit matches the wire format, which carries coordinates as strings.
type nominatimHit struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

func (c *httpClient) Search(ctx context.Context, query string) ([]Candidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, eris.New("geocode: empty query")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: rate limit wait")
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "5")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: create request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var hits []nominatimHit
	if err := json.Unmarshal(body, &hits); err != nil {
		return nil, eris.Wrap(err, "geocode: unmarshal response")
	}

	candidates := make([]Candidate, 0, len(hits))
	for _, h := range hits {
		lat, latErr := strconv.ParseFloat(h.Lat, 64)
		lng, lngErr := strconv.ParseFloat(h.Lon, 64)
		if latErr != nil || lngErr != nil {
			continue
		}
		candidates = append(candidates, Candidate{DisplayName: h.DisplayName, Lat: lat, Lng: lng})
	}
	return candidates, nil
}

// SearchVariants paces attempts per logical request rather than serializing
// callers globally; concurrent resolutions each honor their own gap.
func (c *httpClient) SearchVariants(ctx context.Context, queries []string) ([]Candidate, error) {
	var lastErr error
	for i, q := range queries {
		if q = strings.TrimSpace(q); q == "" {
			continue
		}
		if i > 0 && c.variantGap > 0 {
			timer := time.NewTimer(c.variantGap)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		candidates, err := c.Search(ctx, q)
		if err != nil {
			zap.L().Debug("geocode: variant failed, trying next",
				zap.String("query", q),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		if len(candidates) > 0 {
			return candidates, nil
		}
	}

	if lastErr != nil {
		return nil, eris.Wrap(lastErr, "geocode: all variants failed")
	}
	return nil, nil
}
