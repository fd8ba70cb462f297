// Package airports looks up airports by IATA or ICAO code against an
// airport database service. A missing code is a normal outcome, reported as
// a nil airport, not an error.
package airports

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://airportdb.voyant.dev/v1"

var (
	iataPattern = regexp.MustCompile(`^[A-Z]{3}$`)
	icaoPattern = regexp.MustCompile(`^[A-Z]{4}$`)
)

// Airport is a single airport record.
type Airport struct {
	IATA    string  `json:"iata"`
	ICAO    string  `json:"icao"`
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	City    string  `json:"city"`
	Country string  `json:"country"`
}

// Client looks up airports by code.
type Client interface {
	// LookupCode resolves a 3-letter IATA or 4-letter ICAO code.
	// Returns (nil, nil) when the code is unknown.
	LookupCode(ctx context.Context, code string) (*Airport, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
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

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates an airport database client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ValidCode reports whether code looks like an IATA or ICAO airport code.
func ValidCode(code string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	return iataPattern.MatchString(code) || icaoPattern.MatchString(code)
}

func (c *httpClient) LookupCode(ctx context.Context, code string) (*Airport, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !ValidCode(code) {
		return nil, eris.Errorf("airports: invalid code %q", code)
	}

	endpoint := c.baseURL + "/airports/" + url.PathEscape(code)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrap(err, "airports: create request")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "airports: send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "airports: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("airports: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var airport Airport
	if err := json.Unmarshal(body, &airport); err != nil {
		return nil, eris.Wrap(err, "airports: unmarshal response")
	}
	return &airport, nil
}
