package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/couchcryptid/building-energy-toolkit/internal/geom"
)

// Shape is a parametric footprint.
type Shape interface {
	// Kind names the wizard, e.g. "rectangle".
	Kind() string
	// Validate reports the first violated dimensional constraint.
	Validate() error
	// Footprint draws the outline. Only valid on validated parameters.
	Footprint() Footprint
	// Depth is the perimeter zone depth; zero disables perimeter zoning.
	Depth() float64
}

// ErrUnknownShape is returned by NewShape for an unregistered kind.
var ErrUnknownShape = errors.New("unknown shape")

// ShapeKinds lists the wizard kinds accepted by NewShape.
var ShapeKinds = []string{"rectangle", "l_shape", "t_shape", "h_shape", "u_shape", "courtyard"}

// NewShape returns zeroed parameters for kind as a pointer, ready to be
// decoded into from JSON or YAML.
func NewShape(kind string) (Shape, error) {
	switch kind {
	case "rectangle":
		return &RectangleParams{}, nil
	case "l_shape":
		return &LShapeParams{}, nil
	case "t_shape":
		return &TShapeParams{}, nil
	case "h_shape":
		return &HShapeParams{}, nil
	case "u_shape":
		return &UShapeParams{}, nil
	case "courtyard":
		return &CourtyardParams{}, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownShape, kind)
}

// Footprint is a rectilinear outline at z = 0, counter-clockwise from above,
// with optional clockwise holes. Edges keep the interior on their left.
type Footprint struct {
	Outer geom.Polygon
	Holes []geom.Polygon
}

// Area returns the net floor area of the footprint.
func (f Footprint) Area() float64 {
	a := f.Outer.Area()
	for _, h := range f.Holes {
		a -= h.Area()
	}
	return a
}

func loop(xy ...float64) geom.Polygon {
	p := make(geom.Polygon, 0, len(xy)/2)
	for i := 0; i+1 < len(xy); i += 2 {
		p = append(p, geom.Pt(xy[i], xy[i+1], 0))
	}
	return p
}

// Kind implements Shape.
func (p RectangleParams) Kind() string { return "rectangle" }

// Depth implements Shape.
func (p RectangleParams) Depth() float64 { return p.PerimeterDepth }

// Validate implements Shape.
func (p RectangleParams) Validate() error {
	return check(p.Kind(), p, p.PerimeterDepth, nil, []span{
		{"length", p.Length}, {"width", p.Width},
	})
}

// Footprint implements Shape.
func (p RectangleParams) Footprint() Footprint {
	return Footprint{Outer: loop(0, 0, p.Length, 0, p.Length, p.Width, 0, p.Width)}
}

// Kind implements Shape.
func (p LShapeParams) Kind() string { return "l_shape" }

// Depth implements Shape.
func (p LShapeParams) Depth() float64 { return p.PerimeterDepth }

// Validate implements Shape.
func (p LShapeParams) Validate() error {
	return check(p.Kind(), p, p.PerimeterDepth, nil, []span{
		{"lower_end_width", p.LowerEndWidth}, {"upper_end_length", p.UpperEndLength},
	})
}

// Footprint implements Shape.
func (p LShapeParams) Footprint() Footprint {
	l, w, lew, uel := p.Length, p.Width, p.LowerEndWidth, p.UpperEndLength
	return Footprint{Outer: loop(0, 0, l, 0, l, lew, uel, lew, uel, w, 0, w)}
}

// Kind implements Shape.
func (p TShapeParams) Kind() string { return "t_shape" }

// Depth implements Shape.
func (p TShapeParams) Depth() float64 { return p.PerimeterDepth }

// Validate implements Shape.
func (p TShapeParams) Validate() error {
	cross := func() *ValidationError {
		if p.LeftEndOffset+p.LowerEndLength >= p.Length {
			return &ValidationError{Field: "left_end_offset", Message: "plus lower_end_length must be less than length"}
		}
		return nil
	}
	return check(p.Kind(), p, p.PerimeterDepth, cross, []span{
		{"upper_end_width", p.UpperEndWidth}, {"lower_end_length", p.LowerEndLength},
	})
}

// Footprint implements Shape.
func (p TShapeParams) Footprint() Footprint {
	l, w := p.Length, p.Width
	x0, x1, y := p.LeftEndOffset, p.LeftEndOffset+p.LowerEndLength, p.Width-p.UpperEndWidth
	return Footprint{Outer: loop(x0, 0, x1, 0, x1, y, l, y, l, w, 0, w, 0, y, x0, y)}
}

// Kind implements Shape.
func (p HShapeParams) Kind() string { return "h_shape" }

// Depth implements Shape.
func (p HShapeParams) Depth() float64 { return p.PerimeterDepth }

// Validate implements Shape.
func (p HShapeParams) Validate() error {
	cross := func() *ValidationError {
		if p.LeftEndLength+p.RightEndLength >= p.Length {
			return &ValidationError{Field: "left_end_length", Message: "plus right_end_length must be less than length"}
		}
		if p.CenterOffset+p.CenterWidth >= p.Width {
			return &ValidationError{Field: "center_offset", Message: "plus center_width must be less than width"}
		}
		return nil
	}
	return check(p.Kind(), p, p.PerimeterDepth, cross, []span{
		{"left_end_length", p.LeftEndLength},
		{"right_end_length", p.RightEndLength},
		{"center_width", p.CenterWidth},
	})
}

// Footprint implements Shape.
func (p HShapeParams) Footprint() Footprint {
	l, w := p.Length, p.Width
	xl, xr := p.LeftEndLength, p.Length-p.RightEndLength
	y0, y1 := p.CenterOffset, p.CenterOffset+p.CenterWidth
	return Footprint{Outer: loop(
		0, 0, xl, 0, xl, y0, xr, y0, xr, 0, l, 0,
		l, w, xr, w, xr, y1, xl, y1, xl, w, 0, w,
	)}
}

// Kind implements Shape.
func (p UShapeParams) Kind() string { return "u_shape" }

// Depth implements Shape.
func (p UShapeParams) Depth() float64 { return p.PerimeterDepth }

// Validate implements Shape.
func (p UShapeParams) Validate() error {
	cross := func() *ValidationError {
		if p.LeftEndLength+p.RightEndLength >= p.Length {
			return &ValidationError{Field: "left_end_length", Message: "plus right_end_length must be less than length"}
		}
		return nil
	}
	return check(p.Kind(), p, p.PerimeterDepth, cross, []span{
		{"base_width", p.BaseWidth},
		{"left_end_length", p.LeftEndLength},
		{"right_end_length", p.RightEndLength},
	})
}

// Footprint implements Shape.
func (p UShapeParams) Footprint() Footprint {
	l, w, bw := p.Length, p.Width, p.BaseWidth
	xl, xr := p.LeftEndLength, p.Length-p.RightEndLength
	return Footprint{Outer: loop(0, 0, l, 0, l, w, xr, w, xr, bw, xl, bw, xl, w, 0, w)}
}

// Kind implements Shape.
func (p CourtyardParams) Kind() string { return "courtyard" }

// Depth implements Shape.
func (p CourtyardParams) Depth() float64 { return p.PerimeterDepth }

// Validate implements Shape.
func (p CourtyardParams) Validate() error {
	return check(p.Kind(), p, p.PerimeterDepth, nil, []span{
		{"(length - courtyard_length) / 2", (p.Length - p.CourtyardLength) / 2},
		{"(width - courtyard_width) / 2", (p.Width - p.CourtyardWidth) / 2},
	})
}

// Footprint implements Shape.
func (p CourtyardParams) Footprint() Footprint {
	x0 := (p.Length - p.CourtyardLength) / 2
	y0 := (p.Width - p.CourtyardWidth) / 2
	x1, y1 := x0+p.CourtyardLength, y0+p.CourtyardWidth
	return Footprint{
		Outer: loop(0, 0, p.Length, 0, p.Length, p.Width, 0, p.Width),
		// Clockwise so the building stays on the left of every edge.
		Holes: []geom.Polygon{loop(x0, y0, x0, y1, x1, y1, x1, y0)},
	}
}

// Facing names the compass direction of the outward normal of edge a->b of a
// loop whose interior lies on the left.
func Facing(a, b geom.Point3) string {
	d := b.Sub(a)
	// Outward is the right-hand normal (dy, -dx).
	ox, oy := d.Y, -d.X
	if math.Abs(ox) >= math.Abs(oy) {
		if ox > 0 {
			return "East"
		}
		return "West"
	}
	if oy > 0 {
		return "North"
	}
	return "South"
}
