package parametric

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/couchcryptid/building-energy-toolkit/internal/model"
)

// ErrUnknownParameter is returned for a parameter name missing from the registry.
var ErrUnknownParameter = errors.New("unknown parameter")

// ErrOutOfRange is returned when a value lies outside a parameter's range.
var ErrOutOfRange = errors.New("out of range")

// Parameter is a single numeric property of a model that an analysis can vary.
type Parameter struct {
	Name string
	Unit string
	// Eliminated is the value that removes the parameter's contribution to
	// the energy balance.
	Eliminated float64
	Min, Max   float64

	get func(m *model.Model) float64
	set func(m *model.Model, v float64) error
}

// Get reads the parameter from m.
func (p Parameter) Get(m *model.Model) float64 { return p.get(m) }

// Set writes v to m after a range check.
func (p Parameter) Set(m *model.Model, v float64) error {
	if math.IsNaN(v) || v < p.Min || v > p.Max {
		return fmt.Errorf("%s: value %g %w [%g, %g]", p.Name, v, ErrOutOfRange, p.Min, p.Max)
	}
	return p.set(m, v)
}

func field(name, unit string, eliminated, lo, hi float64, ptr func(m *model.Model) *float64) Parameter {
	return Parameter{
		Name:       name,
		Unit:       unit,
		Eliminated: eliminated,
		Min:        lo,
		Max:        hi,
		get:        func(m *model.Model) float64 { return *ptr(m) },
		set: func(m *model.Model, v float64) error {
			*ptr(m) = v
			return nil
		},
	}
}

var registry = map[string]Parameter{}

func register(p Parameter) { registry[p.Name] = p }

func init() {
	register(field("lighting_power_density", "W/m2", 0, 0, 100,
		func(m *model.Model) *float64 { return &m.Loads.LightingPowerDensity }))
	register(field("equipment_power_density", "W/m2", 0, 0, 200,
		func(m *model.Model) *float64 { return &m.Loads.EquipmentPowerDensity }))
	register(field("occupant_density", "people/100m2", 0, 0, 100,
		func(m *model.Model) *float64 { return &m.Loads.OccupantDensity }))
	register(field("infiltration_ach", "1/h", 0, 0, 10,
		func(m *model.Model) *float64 { return &m.Loads.InfiltrationACH }))
	register(field("wall_u_value", "W/m2-K", 0.01, 0.01, 10,
		func(m *model.Model) *float64 { return &m.Envelope.WallUValue }))
	register(field("roof_u_value", "W/m2-K", 0.01, 0.01, 10,
		func(m *model.Model) *float64 { return &m.Envelope.RoofUValue }))
	register(field("window_u_value", "W/m2-K", 0.01, 0.01, 10,
		func(m *model.Model) *float64 { return &m.Envelope.WindowUValue }))
	register(field("window_shgc", "", 0, 0, 1,
		func(m *model.Model) *float64 { return &m.Envelope.WindowSHGC }))
	register(field("cooling_cop", "W/W", 100, 0.5, 100,
		func(m *model.Model) *float64 { return &m.HVAC.CoolingCOP }))
	register(field("heating_efficiency", "", 1, 0.1, 1,
		func(m *model.Model) *float64 { return &m.HVAC.HeatingEfficiency }))
	register(field("north_axis", "deg", 0, -360, 360,
		func(m *model.Model) *float64 { return &m.NorthAxis }))

	// The ratio is stored on the envelope and also redraws the windows.
	register(Parameter{
		Name:       "window_to_wall_ratio",
		Eliminated: 0,
		Min:        0,
		Max:        0.95,
		get:        func(m *model.Model) float64 { return m.Envelope.WindowToWallRatio },
		set: func(m *model.Model, v float64) error {
			m.Envelope.WindowToWallRatio = v
			if m.Building == nil {
				return nil
			}
			_, err := m.ApplyEnvelope()
			return err
		},
	})
}

// Lookup returns the registered parameter called name.
func Lookup(name string) (Parameter, error) {
	p, ok := registry[name]
	if !ok {
		return Parameter{}, fmt.Errorf("%w %q", ErrUnknownParameter, name)
	}
	return p, nil
}

// Names returns the registered parameter names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
