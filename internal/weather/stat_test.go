package weather

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chicago = "USA_IL_Chicago-OHare.Intl.AP.725300_TMY3"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixture(ext string) string {
	return filepath.Join("testdata", chicago+ext)
}

func TestReadStat_Fixture(t *testing.T) {
	s, err := ReadStat(fixture(".stat"), testLogger())
	require.NoError(t, err)

	assert.True(t, s.Valid())
	assert.Empty(t, s.Warnings)

	require.NotNil(t, s.Latitude)
	require.NotNil(t, s.Longitude)
	require.NotNil(t, s.GMTOffset)
	require.NotNil(t, s.Elevation)
	assert.InDelta(t, 41+58.0/60, *s.Latitude, 1e-9)
	assert.InDelta(t, -(87 + 54.0/60), *s.Longitude, 1e-9)
	assert.InDelta(t, -6.0, *s.GMTOffset, 1e-9)
	assert.InDelta(t, 201.0, *s.Elevation, 1e-9)

	assert.Equal(t, 3503.0, *s.HDD18)
	assert.Equal(t, 796.0, *s.CDD18)
	assert.Equal(t, 1797.0, *s.HDD10)
	assert.Equal(t, 2062.0, *s.CDD10)

	assert.Equal(t, "5A", s.ClimateZone)
	assert.Equal(t, "Dfa", s.KoppenClimate)

	require.Len(t, s.MonthlyDryBulb, 12)
	assert.Equal(t, -4.6, s.MonthlyDryBulb[0])
	assert.Equal(t, 23.3, s.MonthlyDryBulb[6])
	delta, ok := s.DeltaDryBulb()
	require.True(t, ok)
	assert.InDelta(t, 27.9, delta, 1e-9)

	dc := s.DesignConditions()
	assert.Equal(t, 1, dc.ColdestMonth)
	assert.Equal(t, -20.0, dc.HeatingDB996)
	assert.Equal(t, -16.6, dc.HeatingDB990)
	assert.Equal(t, 7, dc.HottestMonth)
	assert.Equal(t, 10.5, dc.CoolingDailyRange)
	assert.Equal(t, 33.3, dc.CoolingDB004)
	assert.Equal(t, 23.7, dc.CoolingMCWB004)
	assert.Equal(t, 11.1, dc.ExtremeWS010)
	assert.Equal(t, -24.4, dc.ExtremeDBMinMean)
	assert.Equal(t, 35.4, dc.ExtremeDBMaxMean)
}

const degreeDayBlock = `
 - 1200 annual (standard) heating degree-days (18.3°C baseline)
 - 950.5 annual (standard) cooling degree-days (18.3°C baseline)
 - 300 annual (standard) heating degree-days (10°C baseline)
 - 2800 annual (standard) cooling degree-days (10°C baseline)
`

func TestParseStat_HemisphereSigns(t *testing.T) {
	tests := []struct {
		name    string
		block   string
		wantLat float64
		wantLon float64
		wantGMT float64
	}{
		{"north west", `{N 41° 58'} {W  87° 54'} {GMT -6.0 Hours}`, 41 + 58.0/60, -(87 + 54.0/60), -6},
		{"north east", `{N 51° 28'} {E   0° 27'} {GMT +0.0 Hours}`, 51 + 28.0/60, 27.0 / 60, 0},
		{"south west", `{S 33° 23'} {W  70° 47'} {GMT -4.0 Hours}`, -(33 + 23.0/60), -(70 + 47.0/60), -4},
		{"south east", `{S 33° 57'} {E 151° 10'} {GMT +10.0 Hours}`, -(33 + 57.0/60), 151 + 10.0/60, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ParseStat([]byte(tt.block+degreeDayBlock), testLogger())
			require.True(t, s.Valid(), "warnings: %v", s.Warnings)
			assert.InDelta(t, tt.wantLat, *s.Latitude, 1e-9)
			assert.InDelta(t, tt.wantLon, *s.Longitude, 1e-9)
			assert.InDelta(t, tt.wantGMT, *s.GMTOffset, 1e-9)
			assert.Equal(t, 950.5, *s.CDD18)
		})
	}
}

func TestParseStat_BelowSeaLevel(t *testing.T) {
	s := ParseStat([]byte(" Elevation --    28m below sea level"), testLogger())
	require.NotNil(t, s.Elevation)
	assert.Equal(t, -28.0, *s.Elevation)
}

func TestParseStat_MissingFieldsWarn(t *testing.T) {
	s := ParseStat([]byte(`{N 41° 58'} {W  87° 54'} {GMT -6.0 Hours}`), testLogger())

	assert.False(t, s.Valid())
	assert.NotNil(t, s.Latitude)
	assert.Nil(t, s.Elevation)
	assert.Nil(t, s.HDD18)
	assert.Nil(t, s.MonthlyDryBulb)
	assert.Empty(t, s.ClimateZone)

	assert.Contains(t, s.Warnings, "elevation: not found")
	assert.Contains(t, s.Warnings, "hdd18: not found")
	assert.Contains(t, s.Warnings, "cdd10: not found")
	assert.Contains(t, s.Warnings, "monthly dry bulb: not found")
	assert.Contains(t, s.Warnings, "climate zone: not found")
	assert.NotContains(t, s.Warnings, "lat/lon/gmt: not found")

	_, ok := s.DeltaDryBulb()
	assert.False(t, ok)
}

func TestParseStat_NonNumericDegreeDaysInvalid(t *testing.T) {
	text := `{N 41° 58'} {W  87° 54'} {GMT -6.0 Hours}
 - n/a annual (standard) heating degree-days (18.3°C baseline)
 -  796 annual (standard) cooling degree-days (18.3°C baseline)
 - 1797 annual (standard) heating degree-days (10°C baseline)
 - 2062 annual (standard) cooling degree-days (10°C baseline)
`
	s := ParseStat([]byte(text), testLogger())
	assert.False(t, s.Valid())
	assert.Nil(t, s.HDD18)
	assert.NotNil(t, s.CDD18)
	assert.Contains(t, s.Warnings, "hdd18: not numeric")
}

func TestParseStat_MissingLocationInvalid(t *testing.T) {
	s := ParseStat([]byte(degreeDayBlock), testLogger())
	assert.False(t, s.Valid())
	assert.Contains(t, s.Warnings, "lat/lon/gmt: not found")
}

func TestParseStat_ShortMonthlyRowRejected(t *testing.T) {
	text := " - Monthly Statistics for Dry Bulb temperatures\n Daily Avg\t1\t2\t3\n"
	s := ParseStat([]byte(text), testLogger())
	assert.Nil(t, s.MonthlyDryBulb)
	assert.Contains(t, s.Warnings, "monthly dry bulb: expected 12 values, got 3")
}

func TestDecodeLatin1(t *testing.T) {
	assert.Equal(t, "41° 58'", decodeLatin1([]byte{'4', '1', 0xB0, ' ', '5', '8', '\''}))
	assert.Equal(t, "already utf-8 °", decodeLatin1([]byte("already utf-8 °")))
}
