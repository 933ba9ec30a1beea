package parametric

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/couchcryptid/building-energy-toolkit/internal/model"
)

// Variant is one deep copy of a base model with a single parameter changed.
type Variant struct {
	ID        uuid.UUID
	Name      string
	Analysis  string
	Parameter string
	Value     float64
	Model     *model.Model
}

// VariantName formats the name of a variant of base.
func VariantName(base, parameter string, value float64) string {
	return fmt.Sprintf("%s_%s_%s", base, parameter, strconv.FormatFloat(value, 'g', -1, 64))
}

func newVariant(base *model.Model, analysis string, p Parameter, v float64) (Variant, error) {
	m := base.Clone()
	m.Name = VariantName(base.Name, p.Name, v)
	if err := p.Set(m, v); err != nil {
		return Variant{}, fmt.Errorf("variant %s: %w", m.Name, err)
	}
	return Variant{
		ID:        uuid.New(),
		Name:      m.Name,
		Analysis:  analysis,
		Parameter: p.Name,
		Value:     v,
		Model:     m,
	}, nil
}

// Sensitivity returns one variant of base per value of parameter, in order.
// Duplicate values are rejected since they would produce clashing names.
func Sensitivity(base *model.Model, parameter string, values []float64) ([]Variant, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("sensitivity: %w: no values", ErrInvalidStudy)
	}
	p, err := Lookup(parameter)
	if err != nil {
		return nil, fmt.Errorf("sensitivity: %w", err)
	}
	seen := make(map[float64]bool, len(values))
	out := make([]Variant, 0, len(values))
	for _, v := range values {
		if seen[v] {
			return nil, fmt.Errorf("sensitivity: %w: duplicate value %g for %s", ErrInvalidStudy, v, parameter)
		}
		seen[v] = true
		variant, err := newVariant(base, "sensitivity", p, v)
		if err != nil {
			return nil, fmt.Errorf("sensitivity: %w", err)
		}
		out = append(out, variant)
	}
	return out, nil
}

// Elimination returns one variant of base per parameter, with that parameter
// set to its eliminated value.
func Elimination(base *model.Model, parameters []string) ([]Variant, error) {
	if len(parameters) == 0 {
		return nil, fmt.Errorf("elimination: %w: no parameters", ErrInvalidStudy)
	}
	seen := make(map[string]bool, len(parameters))
	out := make([]Variant, 0, len(parameters))
	for _, name := range parameters {
		if seen[name] {
			return nil, fmt.Errorf("elimination: %w: duplicate parameter %s", ErrInvalidStudy, name)
		}
		seen[name] = true
		p, err := Lookup(name)
		if err != nil {
			return nil, fmt.Errorf("elimination: %w", err)
		}
		variant, err := newVariant(base, "elimination", p, p.Eliminated)
		if err != nil {
			return nil, fmt.Errorf("elimination: %w", err)
		}
		out = append(out, variant)
	}
	return out, nil
}
