package gazetteer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyant-travel/itinerary-cli/internal/model"
)

func TestDefault_Loads(t *testing.T) {
	t.Parallel()

	g := Default()
	require.NotNil(t, g)
	assert.Greater(t, g.Len(), 50, "embedded data should index every variant")
}

func TestLookup_ExactVariants(t *testing.T) {
	t.Parallel()

	g := Default()

	tests := []struct {
		query string
		want  string
	}{
		{"BKK", "Suvarnabhumi Airport"},
		{"bkk", "Suvarnabhumi Airport"},
		{"  Terracotta Warriors  ", "Terracotta Army"},
		{"兵马俑", "Terracotta Army"},
		{"XIAN", "Xi'an"},
		{"北京", "Beijing"},
	}

	for _, tc := range tests {
		p, ok := g.Lookup(tc.query)
		require.True(t, ok, "query %q", tc.query)
		assert.Equal(t, tc.want, p.Name)
	}
}

func TestLookup_Miss(t *testing.T) {
	t.Parallel()

	_, ok := Default().Lookup("completely unknown place")
	assert.False(t, ok)
}

func TestLookupPartial(t *testing.T) {
	t.Parallel()

	g := Default()

	// Query contains a known key.
	p, ok := g.LookupPartial("the famous terracotta army museum")
	require.True(t, ok)
	assert.Equal(t, "Terracotta Army", p.Name)

	// Known key contains the query.
	p, ok = g.LookupPartial("changi")
	require.True(t, ok)
	assert.Equal(t, "Singapore Changi Airport", p.Name)

	// Too-short queries never match.
	_, ok = g.LookupPartial("ab")
	assert.False(t, ok)
}

func TestScan(t *testing.T) {
	t.Parallel()

	g := Default()
	places := g.Scan("Day 1: visit the Forbidden City, then walk the Great Wall at Badaling")

	names := make(map[string]bool)
	for _, p := range places {
		names[p.Name] = true
	}
	assert.True(t, names["Forbidden City"])
	assert.True(t, names["Great Wall of China"])
}

func TestLoad_Invalid(t *testing.T) {
	t.Parallel()

	_, err := Load([]byte("not: [valid"))
	assert.Error(t, err)
}

func TestKinds(t *testing.T) {
	t.Parallel()

	p, ok := Default().Lookup("XIY")
	require.True(t, ok)
	assert.Equal(t, model.KindAirport, p.Kind)
	assert.InDelta(t, 34.45, p.Lat, 0.01)
	assert.InDelta(t, 108.75, p.Lng, 0.01)
}
