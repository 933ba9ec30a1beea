package geometry

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidShape is matched by every *ValidationError.
var ErrInvalidShape = errors.New("invalid shape parameters")

// spanTolerance keeps a zone from collapsing to a sliver when the perimeter
// depth is within rounding of half a span.
const spanTolerance = 1e-4

// ValidationError describes the first parameter that failed validation.
type ValidationError struct {
	Shape   string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", e.Shape, e.Field, e.Message)
}

// Is reports ErrInvalidShape so callers can test with errors.Is.
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidShape }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Stories describes the vertical stacking shared by every wizard.
type Stories struct {
	AboveGrade    int     `json:"above_grade" yaml:"above_grade" validate:"gte=1,lte=200"`
	BelowGrade    int     `json:"below_grade" yaml:"below_grade" validate:"gte=0,lte=20"`
	FloorToFloor  float64 `json:"floor_to_floor" yaml:"floor_to_floor" validate:"gt=0,lte=100"`
	PlenumHeight  float64 `json:"plenum_height" yaml:"plenum_height" validate:"gte=0,ltfield=FloorToFloor"`
	InitialHeight float64 `json:"initial_height" yaml:"initial_height"`
	Rotation      float64 `json:"rotation" yaml:"rotation" validate:"gte=-360,lte=360"`
}

// DefaultStories is one above-grade story of 3.8 m.
func DefaultStories() Stories {
	return Stories{AboveGrade: 1, FloorToFloor: 3.8}
}

// RectangleParams sizes a rectangular footprint.
type RectangleParams struct {
	Length         float64 `json:"length" yaml:"length" validate:"gt=0"`
	Width          float64 `json:"width" yaml:"width" validate:"gt=0"`
	PerimeterDepth float64 `json:"perimeter_depth" yaml:"perimeter_depth" validate:"gte=0"`
}

// LShapeParams sizes an L footprint. The lower arm runs the full length with
// thickness LowerEndWidth; the upper arm runs the full width with thickness
// UpperEndLength.
type LShapeParams struct {
	Length         float64 `json:"length" yaml:"length" validate:"gt=0"`
	Width          float64 `json:"width" yaml:"width" validate:"gt=0"`
	LowerEndWidth  float64 `json:"lower_end_width" yaml:"lower_end_width" validate:"gt=0,ltfield=Width"`
	UpperEndLength float64 `json:"upper_end_length" yaml:"upper_end_length" validate:"gt=0,ltfield=Length"`
	PerimeterDepth float64 `json:"perimeter_depth" yaml:"perimeter_depth" validate:"gte=0"`
}

// TShapeParams sizes a T footprint: a top bar of thickness UpperEndWidth and a
// stem of length LowerEndLength starting LeftEndOffset from the left edge.
type TShapeParams struct {
	Length         float64 `json:"length" yaml:"length" validate:"gt=0"`
	Width          float64 `json:"width" yaml:"width" validate:"gt=0"`
	UpperEndWidth  float64 `json:"upper_end_width" yaml:"upper_end_width" validate:"gt=0,ltfield=Width"`
	LowerEndLength float64 `json:"lower_end_length" yaml:"lower_end_length" validate:"gt=0,ltfield=Length"`
	LeftEndOffset  float64 `json:"left_end_offset" yaml:"left_end_offset" validate:"gt=0"`
	PerimeterDepth float64 `json:"perimeter_depth" yaml:"perimeter_depth" validate:"gte=0"`
}

// HShapeParams sizes an H footprint: two full-width legs joined by a center
// bar of width CenterWidth placed CenterOffset from the bottom.
type HShapeParams struct {
	Length         float64 `json:"length" yaml:"length" validate:"gt=0"`
	Width          float64 `json:"width" yaml:"width" validate:"gt=0"`
	CenterWidth    float64 `json:"center_width" yaml:"center_width" validate:"gt=0,ltfield=Width"`
	LeftEndLength  float64 `json:"left_end_length" yaml:"left_end_length" validate:"gt=0"`
	RightEndLength float64 `json:"right_end_length" yaml:"right_end_length" validate:"gt=0"`
	CenterOffset   float64 `json:"center_offset" yaml:"center_offset" validate:"gt=0"`
	PerimeterDepth float64 `json:"perimeter_depth" yaml:"perimeter_depth" validate:"gte=0"`
}

// UShapeParams sizes a U footprint: a base of width BaseWidth with two legs
// rising to the full width.
type UShapeParams struct {
	Length         float64 `json:"length" yaml:"length" validate:"gt=0"`
	Width          float64 `json:"width" yaml:"width" validate:"gt=0"`
	BaseWidth      float64 `json:"base_width" yaml:"base_width" validate:"gt=0,ltfield=Width"`
	LeftEndLength  float64 `json:"left_end_length" yaml:"left_end_length" validate:"gt=0"`
	RightEndLength float64 `json:"right_end_length" yaml:"right_end_length" validate:"gt=0"`
	PerimeterDepth float64 `json:"perimeter_depth" yaml:"perimeter_depth" validate:"gte=0"`
}

// CourtyardParams sizes a rectangle with a centered open courtyard.
type CourtyardParams struct {
	Length          float64 `json:"length" yaml:"length" validate:"gt=0"`
	Width           float64 `json:"width" yaml:"width" validate:"gt=0"`
	CourtyardLength float64 `json:"courtyard_length" yaml:"courtyard_length" validate:"gt=0,ltfield=Length"`
	CourtyardWidth  float64 `json:"courtyard_width" yaml:"courtyard_width" validate:"gt=0,ltfield=Width"`
	PerimeterDepth  float64 `json:"perimeter_depth" yaml:"perimeter_depth" validate:"gte=0"`
}

// span is a dimension that must exceed twice the perimeter depth.
type span struct {
	name  string
	value float64
}

// check runs tag validation, then cross-field rules, then the span rule.
func check(shape string, params any, depth float64, cross func() *ValidationError, spans []span) error {
	if err := structError(shape, params); err != nil {
		return err
	}
	if cross != nil {
		if err := cross(); err != nil {
			err.Shape = shape
			return err
		}
	}
	if depth > 0 {
		for _, s := range spans {
			if 2*depth >= s.value-spanTolerance {
				return &ValidationError{
					Shape:   shape,
					Field:   "perimeter_depth",
					Message: fmt.Sprintf("%g must be less than half of %s (%g)", depth, s.name, s.value),
				}
			}
		}
	}
	return nil
}

// ValidateStories checks the stacking parameters.
func ValidateStories(s Stories) error {
	return structError("stories", s)
}

func structError(shape string, params any) error {
	if field := nonFinite(params); field != "" {
		return &ValidationError{Shape: shape, Field: field, Message: "must be a finite number"}
	}
	err := validate.Struct(params)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%s: validate: %w", shape, err)
	}
	fe := fieldErrs[0]
	return &ValidationError{Shape: shape, Field: fe.Field(), Message: tagMessage(fe)}
}

// nonFinite returns the json name of the first NaN or infinite float field.
func nonFinite(params any) string {
	v := reflect.Indirect(reflect.ValueOf(params))
	if v.Kind() != reflect.Struct {
		return ""
	}
	t := v.Type()
	for i := range v.NumField() {
		f := v.Field(i)
		if f.Kind() != reflect.Float64 {
			continue
		}
		if x := f.Float(); math.IsNaN(x) || math.IsInf(x, 0) {
			name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
			if name == "" {
				name = t.Field(i).Name
			}
			return name
		}
	}
	return ""
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "ltfield":
		return "must be less than " + jsonName(fe.Param())
	default:
		return fmt.Sprintf("failed %s %s", fe.Tag(), fe.Param())
	}
}

// jsonName converts a Go field name such as FloorToFloor to floor_to_floor.
func jsonName(field string) string {
	var b strings.Builder
	for i, r := range field {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
