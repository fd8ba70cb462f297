package pipeline

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/voyant-travel/itinerary-cli/pkg/airports"
	"github.com/voyant-travel/itinerary-cli/pkg/geocode"
	"github.com/voyant-travel/itinerary-cli/pkg/oracle"
)

// oracleMock answers Complete with a scripted function.
type oracleMock struct {
	fn    func(req oracle.Request) (string, error)
	calls []oracle.Request
}

func (m *oracleMock) Complete(_ context.Context, req oracle.Request) (*oracle.Response, error) {
	m.calls = append(m.calls, req)
	if m.fn == nil {
		return nil, eris.New("oracleMock: no script")
	}
	text, err := m.fn(req)
	if err != nil {
		return nil, err
	}
	return &oracle.Response{Text: text}, nil
}

// oracleText scripts a fixed reply for every request.
func oracleText(text string) *oracleMock {
	return &oracleMock{fn: func(oracle.Request) (string, error) { return text, nil }}
}

// oracleDown scripts a hard failure for every request.
func oracleDown() *oracleMock {
	return &oracleMock{fn: func(oracle.Request) (string, error) {
		return "", eris.New("oracle unreachable")
	}}
}

// geocodeMock maps exact queries to candidates.
type geocodeMock struct {
	hits  map[string][]geocode.Candidate
	err   error
	calls []string
}

func (m *geocodeMock) Search(_ context.Context, query string) ([]geocode.Candidate, error) {
	m.calls = append(m.calls, query)
	if m.err != nil {
		return nil, m.err
	}
	return m.hits[query], nil
}

func (m *geocodeMock) SearchVariants(ctx context.Context, queries []string) ([]geocode.Candidate, error) {
	var lastErr error
	for _, q := range queries {
		candidates, err := m.Search(ctx, q)
		if err != nil {
			lastErr = err
			continue
		}
		if len(candidates) > 0 {
			return candidates, nil
		}
	}
	return nil, lastErr
}

// airportsMock maps codes to airports.
type airportsMock struct {
	byCode map[string]*airports.Airport
}

func (m *airportsMock) LookupCode(_ context.Context, code string) (*airports.Airport, error) {
	return m.byCode[code], nil
}

// testAirports covers the codes used throughout the package tests.
func testAirports() *airportsMock {
	return &airportsMock{byCode: map[string]*airports.Airport{
		"BKK": {IATA: "BKK", Name: "Suvarnabhumi Airport", Lat: 13.69, Lng: 100.75, City: "Bangkok", Country: "Thailand"},
		"XIY": {IATA: "XIY", Name: "Xi'an Xianyang International Airport", Lat: 34.4471, Lng: 108.7516, City: "Xi'an", Country: "China"},
		"PEK": {IATA: "PEK", Name: "Beijing Capital International Airport", Lat: 40.0799, Lng: 116.6031, City: "Beijing", Country: "China"},
	}}
}
