// Package model holds the building model document: geometry plus envelope,
// internal loads, HVAC efficiencies and site data. Models are persisted as
// indented JSON and deep-copied for parametric variants.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/building-energy-toolkit/internal/geometry"
	"github.com/couchcryptid/building-energy-toolkit/internal/weather"
)

// Envelope holds thermal properties of the opaque and glazed envelope.
type Envelope struct {
	WallUValue        float64 `json:"wall_u_value" yaml:"wall_u_value"`     // W/m2-K
	RoofUValue        float64 `json:"roof_u_value" yaml:"roof_u_value"`     // W/m2-K
	FloorUValue       float64 `json:"floor_u_value" yaml:"floor_u_value"`   // W/m2-K
	WindowUValue      float64 `json:"window_u_value" yaml:"window_u_value"` // W/m2-K
	WindowSHGC        float64 `json:"window_shgc" yaml:"window_shgc"`
	WindowToWallRatio float64 `json:"window_to_wall_ratio" yaml:"window_to_wall_ratio"`
}

// Loads holds internal gains and infiltration.
type Loads struct {
	LightingPowerDensity  float64 `json:"lighting_power_density" yaml:"lighting_power_density"`   // W/m2
	EquipmentPowerDensity float64 `json:"equipment_power_density" yaml:"equipment_power_density"` // W/m2
	OccupantDensity       float64 `json:"occupant_density" yaml:"occupant_density"`               // people/100 m2
	InfiltrationACH       float64 `json:"infiltration_ach" yaml:"infiltration_ach"`
}

// HVAC holds system efficiencies.
type HVAC struct {
	CoolingCOP        float64 `json:"cooling_cop" yaml:"cooling_cop"`
	HeatingEfficiency float64 `json:"heating_efficiency" yaml:"heating_efficiency"`
	FanEfficiency     float64 `json:"fan_efficiency" yaml:"fan_efficiency"`
	Economizer        bool    `json:"economizer" yaml:"economizer"`
}

// Site locates the model and references its weather file.
type Site struct {
	WeatherFile string              `json:"weather_file,omitempty"`
	Name        string              `json:"name,omitempty"`
	Latitude    float64             `json:"latitude"`
	Longitude   float64             `json:"longitude"`
	TimeZone    float64             `json:"time_zone"`
	Elevation   float64             `json:"elevation_m"`
	ClimateZone string              `json:"climate_zone,omitempty"`
	DesignDays  []weather.DesignDay `json:"design_days,omitempty"`
}

// Model is a complete building energy model document.
type Model struct {
	Name      string             `json:"name"`
	NorthAxis float64            `json:"north_axis"`
	Building  *geometry.Building `json:"building"`
	Envelope  Envelope           `json:"envelope"`
	Loads     Loads              `json:"loads"`
	HVAC      HVAC               `json:"hvac"`
	Site      Site               `json:"site"`
}

// DefaultEnvelope, DefaultLoads and DefaultHVAC describe a mid-size office.
var (
	DefaultEnvelope = Envelope{
		WallUValue:        0.45,
		RoofUValue:        0.27,
		FloorUValue:       0.50,
		WindowUValue:      2.80,
		WindowSHGC:        0.40,
		WindowToWallRatio: 0.30,
	}
	DefaultLoads = Loads{
		LightingPowerDensity:  10.0,
		EquipmentPowerDensity: 8.0,
		OccupantDensity:       5.0,
		InfiltrationACH:       0.30,
	}
	DefaultHVAC = HVAC{
		CoolingCOP:        3.2,
		HeatingEfficiency: 0.80,
		FanEfficiency:     0.60,
	}
)

// New creates a model around b with default properties.
func New(name string, b *geometry.Building) *Model {
	return &Model{
		Name:     name,
		Building: b,
		Envelope: DefaultEnvelope,
		Loads:    DefaultLoads,
		HVAC:     DefaultHVAC,
	}
}

// Clone returns a deep copy that shares no slices or pointers with m.
func (m *Model) Clone() *Model {
	out := *m
	out.Building = m.Building.Clone()
	if m.Site.DesignDays != nil {
		out.Site.DesignDays = append([]weather.DesignDay(nil), m.Site.DesignDays...)
	}
	return &out
}

// SetWeather copies location and design days from a weather file.
func (m *Model) SetWeather(wf *weather.WeatherFile) {
	m.Site = Site{
		WeatherFile: wf.EPWPath,
		Name:        strings.TrimSpace(strings.Join([]string{wf.City, wf.State, wf.Country}, " ")),
		Latitude:    wf.Latitude,
		Longitude:   wf.Longitude,
		TimeZone:    wf.TimeZone,
		Elevation:   wf.Elevation,
		ClimateZone: wf.ClimateZone,
		DesignDays:  append([]weather.DesignDay(nil), wf.DesignDays...),
	}
}

// ApplyEnvelope places windows at the envelope window-to-wall ratio and
// returns the number of windows.
func (m *Model) ApplyEnvelope() (int, error) {
	if m.Building == nil {
		return 0, errors.New("model has no building")
	}
	return m.Building.ApplyWindowToWallRatio(m.Envelope.WindowToWallRatio)
}

// UValue returns the U-value for an exterior surface and false for interior
// surfaces.
func (e Envelope) UValue(s *geometry.Surface) (float64, bool) {
	switch {
	case s.BoundaryCondition == geometry.BoundarySurface:
		return 0, false
	case s.Type == geometry.SurfaceWall:
		return e.WallUValue, true
	case s.Type == geometry.SurfaceRoofCeiling:
		return e.RoofUValue, true
	case s.Type == geometry.SurfaceFloor:
		return e.FloorUValue, true
	}
	return 0, false
}

// EnvelopeUA returns the conductance of the exterior envelope in W/K, with
// window area taken out of the wall it sits on.
func (m *Model) EnvelopeUA() float64 {
	if m.Building == nil {
		return 0
	}
	var ua float64
	for _, sp := range m.Building.Spaces() {
		for i := range sp.Surfaces {
			surf := &sp.Surfaces[i]
			u, ok := m.Envelope.UValue(surf)
			if !ok {
				continue
			}
			opaque := surf.Vertices.Area()
			for _, sub := range surf.SubSurfaces {
				a := sub.Vertices.Area()
				opaque -= a
				ua += m.Envelope.WindowUValue * a
			}
			ua += u * opaque
		}
	}
	return ua
}

// InternalGains returns lighting and equipment power (W) and occupant count
// for the occupied floor area.
func (m *Model) InternalGains() (lighting, equipment, occupants float64) {
	if m.Building == nil {
		return 0, 0, 0
	}
	area := m.Building.Summary().FloorArea
	return m.Loads.LightingPowerDensity * area,
		m.Loads.EquipmentPowerDensity * area,
		m.Loads.OccupantDensity * area / 100
}

// FileName returns the file name Save uses for m.
func (m *Model) FileName() string {
	r := strings.NewReplacer("/", "_", "\\", "_", " ", "_", ":", "_")
	return r.Replace(m.Name) + ".json"
}

// Save writes m as indented JSON into dir and returns the file path.
func (m *Model) Save(dir string) (string, error) {
	if m.Name == "" {
		return "", errors.New("save model: name is empty")
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode model %s: %w", m.Name, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create model dir: %w", err)
	}
	path := filepath.Join(dir, m.FileName())
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write model %s: %w", m.Name, err)
	}
	return path, nil
}

// Load reads a model written by Save.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode model %s: %w", path, err)
	}
	return &m, nil
}
