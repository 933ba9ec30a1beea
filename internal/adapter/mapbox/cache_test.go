package mapbox

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/building-energy-toolkit/internal/domain"
)

// --- mock for cache tests ---

type countingGeocoder struct {
	calls  int
	result domain.GeocodingResult
	err    error
}

func (m *countingGeocoder) ForwardGeocode(_ context.Context, _ string) (domain.GeocodingResult, error) {
	m.calls++
	return m.result, m.err
}

func newCached(t *testing.T, inner domain.Geocoder, size int) *CachedGeocoder {
	t.Helper()
	c, err := NewCachedGeocoder(inner, size, testMetrics())
	require.NoError(t, err)
	return c
}

// --- CachedGeocoder tests ---

func TestCachedGeocoder_CacheHit(t *testing.T) {
	inner := &countingGeocoder{
		result: domain.GeocodingResult{Lat: 41.88, Lon: -87.63, PlaceName: "Chicago", FormattedAddress: "Chicago, Illinois"},
	}
	cached := newCached(t, inner, 10)

	r1, err := cached.ForwardGeocode(context.Background(), "Chicago, IL")
	require.NoError(t, err)
	assert.Equal(t, "Chicago", r1.PlaceName)

	r2, err := cached.ForwardGeocode(context.Background(), "  chicago, il ")
	require.NoError(t, err)
	assert.Equal(t, r1, r2)

	assert.Equal(t, 1, inner.calls, "should only call inner once")
	assert.Equal(t, 1, cached.Len())
}

func TestCachedGeocoder_EmptyResultNotCached(t *testing.T) {
	inner := &countingGeocoder{}
	cached := newCached(t, inner, 10)

	_, err := cached.ForwardGeocode(context.Background(), "Nowhere")
	require.NoError(t, err)
	_, err = cached.ForwardGeocode(context.Background(), "Nowhere")
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
	assert.Zero(t, cached.Len())
}

func TestCachedGeocoder_ErrorNotCached(t *testing.T) {
	inner := &countingGeocoder{err: errors.New("rate limited")}
	cached := newCached(t, inner, 10)

	_, err := cached.ForwardGeocode(context.Background(), "Austin, TX")
	require.Error(t, err)
	_, err = cached.ForwardGeocode(context.Background(), "Austin, TX")
	require.Error(t, err)

	assert.Equal(t, 2, inner.calls)
}

func TestCachedGeocoder_Eviction(t *testing.T) {
	inner := &countingGeocoder{result: domain.GeocodingResult{Lat: 1, Lon: 1, FormattedAddress: "x"}}
	cached := newCached(t, inner, 2)

	for _, q := range []string{"a", "b", "c"} {
		_, err := cached.ForwardGeocode(context.Background(), q)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, cached.Len())

	// "a" was evicted, so it goes to the inner geocoder again.
	_, err := cached.ForwardGeocode(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 4, inner.calls)
}

func TestNewCachedGeocoder_InvalidSize(t *testing.T) {
	_, err := NewCachedGeocoder(&countingGeocoder{}, 0, testMetrics())
	require.Error(t, err)
}
