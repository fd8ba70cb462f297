package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyant-travel/itinerary-cli/internal/model"
)

func TestTTL_GetSet(t *testing.T) {
	t.Parallel()

	c := NewTTL[int](50, time.Hour)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("a", 1)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	c.Set("a", 2)
	v, _ = c.Get("a")
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.Len())
}

func TestTTL_Expiry(t *testing.T) {
	t.Parallel()

	c := NewTTL[string](50, time.Hour)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("k", "v")

	now = now.Add(59 * time.Minute)
	_, ok := c.Get("k")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry is removed on read")
}

func TestTTL_EvictsOldestWhenFull(t *testing.T) {
	t.Parallel()

	c := NewTTL[int](3, time.Hour)
	for i := 0; i < 4; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}

	assert.Equal(t, 3, c.Len())
	_, ok := c.Get("k0")
	assert.False(t, ok, "oldest entry is evicted first")
	_, ok = c.Get("k3")
	assert.True(t, ok)
}

func TestRouteKey_RoundsCoordinates(t *testing.T) {
	t.Parallel()

	a := RouteKey(
		model.Coordinates{Lat: 34.3416, Lng: 108.9398},
		model.Coordinates{Lat: 34.3841, Lng: 109.2785},
		model.ModeDriving,
	)
	b := RouteKey(
		model.Coordinates{Lat: 34.3399, Lng: 108.9401},
		model.Coordinates{Lat: 34.3838, Lng: 109.2790},
		model.ModeDriving,
	)
	assert.Equal(t, a, b, "nearby points share a key")

	walk := RouteKey(
		model.Coordinates{Lat: 34.3416, Lng: 108.9398},
		model.Coordinates{Lat: 34.3841, Lng: 109.2785},
		model.ModeWalking,
	)
	assert.NotEqual(t, a, walk, "mode is part of the key")
}
