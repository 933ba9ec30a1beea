package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/building-energy-toolkit/internal/geom"
	"github.com/couchcryptid/building-energy-toolkit/internal/geometry"
	"github.com/couchcryptid/building-energy-toolkit/internal/weather"
)

func smallModel(t *testing.T) *Model {
	t.Helper()
	b, err := geometry.Rectangle(geometry.RectangleParams{Length: 10, Width: 5}, geometry.Stories{AboveGrade: 1, FloorToFloor: 3})
	require.NoError(t, err)
	return New("small", b)
}

func TestNew_Defaults(t *testing.T) {
	m := smallModel(t)
	assert.Equal(t, DefaultEnvelope, m.Envelope)
	assert.Equal(t, DefaultLoads, m.Loads)
	assert.Equal(t, DefaultHVAC, m.HVAC)
}

func TestModel_CloneIsDeep(t *testing.T) {
	m := smallModel(t)
	m.Site.DesignDays = []weather.DesignDay{{Name: "htg"}}

	c := m.Clone()
	require.Equal(t, m, c)

	c.Name = "copy"
	c.Loads.LightingPowerDensity = 1
	c.Site.DesignDays[0].Name = "changed"
	c.Building.Stories[0].Spaces[0].FloorPrint[1] = geom.Pt(50, 50, 0)

	assert.Equal(t, "small", m.Name)
	assert.Equal(t, DefaultLoads.LightingPowerDensity, m.Loads.LightingPowerDensity)
	assert.Equal(t, "htg", m.Site.DesignDays[0].Name)
	assert.Equal(t, geom.Pt(10, 0, 0), m.Building.Stories[0].Spaces[0].FloorPrint[1])
}

func TestModel_EnvelopeUA(t *testing.T) {
	m := smallModel(t)
	// walls 90 m2, roof 50 m2, floor 50 m2
	assert.InDelta(t, 90*0.45+50*0.27+50*0.50, m.EnvelopeUA(), 1e-9)

	n, err := m.ApplyEnvelope()
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.InDelta(t, 63*0.45+27*2.8+50*0.27+50*0.50, m.EnvelopeUA(), 1e-9)
}

func TestModel_ApplyEnvelope_NoBuilding(t *testing.T) {
	_, err := (&Model{Envelope: DefaultEnvelope}).ApplyEnvelope()
	require.Error(t, err)
	assert.Zero(t, (&Model{}).EnvelopeUA())
}

func TestModel_InternalGains(t *testing.T) {
	m := smallModel(t)
	lighting, equipment, occupants := m.InternalGains()
	assert.InDelta(t, 500.0, lighting, 1e-9)
	assert.InDelta(t, 400.0, equipment, 1e-9)
	assert.InDelta(t, 2.5, occupants, 1e-9)
}

func TestModel_SetWeather(t *testing.T) {
	m := smallModel(t)
	wf := &weather.WeatherFile{
		EPWPath: "lib/chicago.epw", City: "Chicago", State: "IL", Country: "USA",
		Latitude: 41.98, Longitude: -87.92, TimeZone: -6, Elevation: 201, ClimateZone: "5A",
		DesignDays: []weather.DesignDay{{Name: "Ann Htg 99.6%"}},
	}
	m.SetWeather(wf)

	assert.Equal(t, "Chicago IL USA", m.Site.Name)
	assert.Equal(t, "lib/chicago.epw", m.Site.WeatherFile)
	assert.Equal(t, "5A", m.Site.ClimateZone)
	require.Len(t, m.Site.DesignDays, 1)

	wf.DesignDays[0].Name = "mutated"
	assert.Equal(t, "Ann Htg 99.6%", m.Site.DesignDays[0].Name)
}

func TestModel_SaveLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "runs")
	m := smallModel(t)
	m.Name = "office_wall u_value/0.3"
	_, err := m.ApplyEnvelope()
	require.NoError(t, err)

	path, err := m.Save(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "office_wall_u_value_0.3.json"), path)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, m, loaded)
}

func TestModel_SaveRequiresName(t *testing.T) {
	_, err := (&Model{}).Save(t.TempDir())
	require.Error(t, err)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	_, err = Load(bad)
	require.Error(t, err)
}
