package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock geocoder ---

type mockGeocoder struct {
	result GeocodingResult
	err    error
	calls  int
	query  string
}

func (m *mockGeocoder) ForwardGeocode(_ context.Context, query string) (GeocodingResult, error) {
	m.calls++
	m.query = query
	return m.result, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- tests ---

func TestLocateSite_CoordsPreferred(t *testing.T) {
	geo := &mockGeocoder{result: GeocodingResult{Lat: 1, Lon: 2}}
	site := Site{Query: "Chicago, IL"}.WithCoords(41.98, -87.92)

	got, err := LocateSite(context.Background(), site, geo, discardLogger())

	require.NoError(t, err)
	assert.Equal(t, 0, geo.calls)
	assert.InDelta(t, 41.98, got.Lat, 1e-9)
	assert.Equal(t, SiteSourceOriginal, got.Source)
}

func TestLocateSite_ForwardGeocode(t *testing.T) {
	geo := &mockGeocoder{result: GeocodingResult{
		Lat:              41.8781,
		Lon:              -87.6298,
		FormattedAddress: "Chicago, Illinois, United States",
		PlaceName:        "Chicago",
		Confidence:       0.95,
	}}

	got, err := LocateSite(context.Background(), Site{Query: "Chicago, IL"}, geo, discardLogger())

	require.NoError(t, err)
	assert.Equal(t, 1, geo.calls)
	assert.Equal(t, "Chicago, IL", geo.query)
	assert.InDelta(t, 41.8781, got.Lat, 1e-9)
	assert.InDelta(t, -87.6298, got.Lon, 1e-9)
	assert.Equal(t, "Chicago, Illinois, United States", got.FormattedAddress)
	assert.Equal(t, "Chicago", got.PlaceName)
	assert.InDelta(t, 0.95, got.Confidence, 1e-9)
	assert.Equal(t, SiteSourceForward, got.Source)
	assert.True(t, got.HasCoords())
}

func TestLocateSite_NullIsland(t *testing.T) {
	geo := &mockGeocoder{result: GeocodingResult{Lat: 1, Lon: 2}}

	got, err := LocateSite(context.Background(), Site{Query: "Gulf of Guinea"}.WithCoords(0, 0), geo, discardLogger())

	require.NoError(t, err)
	assert.Equal(t, 0, geo.calls)
	assert.True(t, got.HasCoords())
	assert.Zero(t, got.Lat)
	assert.Zero(t, got.Lon)
	assert.Equal(t, SiteSourceOriginal, got.Source)
}

func TestLocateSite_NoQuery(t *testing.T) {
	_, err := LocateSite(context.Background(), Site{}, &mockGeocoder{}, discardLogger())
	require.ErrorIs(t, err, ErrUnlocated)
}

func TestLocateSite_NilGeocoder(t *testing.T) {
	_, err := LocateSite(context.Background(), Site{Query: "Austin, TX"}, nil, discardLogger())
	require.ErrorIs(t, err, ErrUnlocated)
}

func TestLocateSite_ForwardError(t *testing.T) {
	geo := &mockGeocoder{err: errors.New("api down")}

	got, err := LocateSite(context.Background(), Site{Query: "Austin, TX"}, geo, discardLogger())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "api down")
	assert.False(t, got.HasCoords())
	assert.Empty(t, got.Source)
}

func TestLocateSite_EmptyResult(t *testing.T) {
	geo := &mockGeocoder{}

	_, err := LocateSite(context.Background(), Site{Query: "Nowhere"}, geo, discardLogger())

	require.ErrorIs(t, err, ErrUnlocated)
	assert.Equal(t, 1, geo.calls)
}
