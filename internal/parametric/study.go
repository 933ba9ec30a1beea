package parametric

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/building-energy-toolkit/internal/geometry"
	"github.com/couchcryptid/building-energy-toolkit/internal/model"
	"github.com/couchcryptid/building-energy-toolkit/internal/weather"
)

// ErrInvalidStudy is wrapped by errors for studies that parse but cannot be
// expanded into variants.
var ErrInvalidStudy = errors.New("invalid study")

// Analysis types.
const (
	AnalysisSensitivity = "sensitivity"
	AnalysisElimination = "elimination"
)

// ShapeSpec selects a geometry wizard and holds its raw parameters.
type ShapeSpec struct {
	Kind   string    `yaml:"kind" validate:"required"`
	Params yaml.Node `yaml:"params"`
}

// Analysis is one parametric sweep of a study.
type Analysis struct {
	Type       string    `yaml:"type" validate:"oneof=sensitivity elimination"`
	Parameter  string    `yaml:"parameter" validate:"required_if=Type sensitivity"`
	Values     []float64 `yaml:"values" validate:"required_if=Type sensitivity"`
	Parameters []string  `yaml:"parameters" validate:"required_if=Type elimination"`
}

// Study describes a base model and the analyses run against it.
//
//	name: office
//	shape:
//	  kind: rectangle
//	  params: {length: 40, width: 20, perimeter_depth: 5}
//	stories: {above_grade: 3, floor_to_floor: 4}
//	weather: USA_IL_Chicago-OHare.Intl.AP.725300_TMY3
//	loads: {lighting_power_density: 9}
//	analyses:
//	  - type: sensitivity
//	    parameter: lighting_power_density
//	    values: [5, 10, 15]
//	  - type: elimination
//	    parameters: [window_shgc, infiltration_ach]
type Study struct {
	Name      string           `yaml:"name" validate:"required,study_name"`
	Shape     ShapeSpec        `yaml:"shape"`
	Stories   geometry.Stories `yaml:"stories"`
	Weather   string           `yaml:"weather"`
	NorthAxis float64          `yaml:"north_axis"`
	Envelope  model.Envelope   `yaml:"envelope"`
	Loads     model.Loads      `yaml:"loads"`
	HVAC      model.HVAC       `yaml:"hvac"`
	Analyses  []Analysis       `yaml:"analyses" validate:"min=1,dive"`
}

var studyNamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ValidStudyName reports whether name can be used as a directory below the
// work directory.
func ValidStudyName(name string) bool {
	return name != "." && name != ".." && studyNamePattern.MatchString(name)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("study_name", func(fl validator.FieldLevel) bool {
		return ValidStudyName(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// ParseStudy decodes a study. Omitted stories, envelope, loads and HVAC keys
// keep their defaults.
func ParseStudy(data []byte) (*Study, error) {
	s := &Study{
		Stories:  geometry.DefaultStories(),
		Envelope: model.DefaultEnvelope,
		Loads:    model.DefaultLoads,
		HVAC:     model.DefaultHVAC,
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("decode study: %w", err)
	}
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			if fe.Tag() == "study_name" {
				return nil, fmt.Errorf("study name %q: use letters, digits, '.', '_' or '-', and not . or ..", s.Name)
			}
			return nil, fmt.Errorf("study %s: %s failed %s", s.Name, fe.Namespace(), fe.Tag())
		}
		return nil, fmt.Errorf("study %s: %w", s.Name, err)
	}
	return s, nil
}

// LoadStudy reads and decodes a study file.
func LoadStudy(path string) (*Study, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read study: %w", err)
	}
	return ParseStudy(data)
}

// Geometry decodes the shape parameters for the configured wizard.
func (s *Study) Geometry() (geometry.Shape, error) {
	shape, err := geometry.NewShape(s.Shape.Kind)
	if err != nil {
		return nil, err
	}
	if s.Shape.Params.Kind == 0 {
		return nil, fmt.Errorf("%w: shape %s: params missing", ErrInvalidStudy, s.Shape.Kind)
	}
	if err := s.Shape.Params.Decode(shape); err != nil {
		return nil, fmt.Errorf("%w: shape %s: %w", ErrInvalidStudy, s.Shape.Kind, err)
	}
	return shape, nil
}

// BaseModel builds the unmodified model of the study: geometry, properties,
// windows and, when wf is not nil, the site.
func (s *Study) BaseModel(wf *weather.WeatherFile) (*model.Model, error) {
	shape, err := s.Geometry()
	if err != nil {
		return nil, err
	}
	b, err := geometry.Build(shape, s.Stories)
	if err != nil {
		return nil, err
	}
	m := model.New(s.Name, b)
	m.NorthAxis = s.NorthAxis
	m.Envelope = s.Envelope
	m.Loads = s.Loads
	m.HVAC = s.HVAC
	if _, err := m.ApplyEnvelope(); err != nil {
		return nil, fmt.Errorf("base model: %w", err)
	}
	if wf != nil {
		m.SetWeather(wf)
	}
	return m, nil
}

// Variants expands every analysis against base, in file order. Two analyses
// producing the same variant name are rejected.
func (s *Study) Variants(base *model.Model) ([]Variant, error) {
	var out []Variant
	names := map[string]bool{}
	for _, a := range s.Analyses {
		var (
			vs  []Variant
			err error
		)
		switch a.Type {
		case AnalysisSensitivity:
			vs, err = Sensitivity(base, a.Parameter, a.Values)
		case AnalysisElimination:
			vs, err = Elimination(base, a.Parameters)
		default:
			err = fmt.Errorf("%w: unknown analysis type %q", ErrInvalidStudy, a.Type)
		}
		if err != nil {
			return nil, err
		}
		for _, v := range vs {
			if names[v.Name] {
				return nil, fmt.Errorf("%w: variant %s produced by more than one analysis", ErrInvalidStudy, v.Name)
			}
			names[v.Name] = true
		}
		out = append(out, vs...)
	}
	return out, nil
}
