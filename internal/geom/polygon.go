package geom

import (
	"fmt"
	"math"
	"sort"
)

// Polygon is a planar vertex loop. The closing edge from the last vertex back
// to the first is implicit.
type Polygon []Point3

// VectorArea returns the area-weighted normal of the loop (Newell's method).
// Its direction follows the right-hand rule over the vertex order.
func (p Polygon) VectorArea() Vector3 {
	var n Vector3
	for i := range p {
		a, b := p[i], p[(i+1)%len(p)]
		n.X += (a.Y - b.Y) * (a.Z + b.Z)
		n.Y += (a.Z - b.Z) * (a.X + b.X)
		n.Z += (a.X - b.X) * (a.Y + b.Y)
	}
	return n.Scale(0.5)
}

// Area returns the enclosed area (m2).
func (p Polygon) Area() float64 { return p.VectorArea().Length() }

// Normal returns the unit outward normal implied by the vertex order.
func (p Polygon) Normal() Vector3 { return p.VectorArea().Normalize() }

// Centroid returns the vertex average. For the convex loops produced by the
// wizards this lies inside the polygon.
func (p Polygon) Centroid() Point3 {
	if len(p) == 0 {
		return Point3{}
	}
	var c Vector3
	for _, v := range p {
		c = c.Add(v.Vector())
	}
	c = c.Scale(1 / float64(len(p)))
	return Point3(c)
}

// Reverse returns the loop with the opposite winding.
func (p Polygon) Reverse() Polygon {
	out := make(Polygon, len(p))
	for i, v := range p {
		out[len(p)-1-i] = v
	}
	return out
}

// Translate displaces every vertex by v.
func (p Polygon) Translate(v Vector3) Polygon {
	out := make(Polygon, len(p))
	for i, q := range p {
		out[i] = q.Add(v)
	}
	return out
}

// Clone returns an independent copy of the loop.
func (p Polygon) Clone() Polygon {
	if p == nil {
		return nil
	}
	out := make(Polygon, len(p))
	copy(out, p)
	return out
}

// IsClosedLoop reports whether the loop has at least three distinct vertices,
// no zero-length edges and a non-zero area.
func (p Polygon) IsClosedLoop() bool {
	if len(p) < 3 {
		return false
	}
	for i := range p {
		if p[i].Near(p[(i+1)%len(p)]) {
			return false
		}
	}
	return p.Area() > Tolerance
}

// IsCounterClockwise reports whether the loop winds counter-clockwise seen from +Z.
func (p Polygon) IsCounterClockwise() bool { return p.VectorArea().Z > 0 }

// Perimeter returns the total edge length.
func (p Polygon) Perimeter() float64 {
	var sum float64
	for i := range p {
		sum += p[(i+1)%len(p)].Sub(p[i]).Length()
	}
	return sum
}

// SelfIntersects reports whether any two non-adjacent edges of the loop touch.
// The loop is projected onto the coordinate plane most perpendicular to its normal.
func (p Polygon) SelfIntersects() bool {
	pts := p.project()
	n := len(pts)
	if n < 4 {
		return false
	}
	for i := range n {
		a1, a2 := pts[i], pts[(i+1)%n]
		for j := i + 1; j < n; j++ {
			if j == i+1 || (i == 0 && j == n-1) {
				continue
			}
			b1, b2 := pts[j], pts[(j+1)%n]
			if segmentsIntersect(a1, a2, b1, b2) {
				return true
			}
		}
	}
	return false
}

// Equivalent reports whether p and q contain the same vertices in the same
// cyclic order, in either winding.
func (p Polygon) Equivalent(q Polygon) bool {
	if len(p) != len(q) || len(p) == 0 {
		return false
	}
	return sameCycle(p, q) || sameCycle(p, q.Reverse())
}

// Key returns a winding-independent identity for the loop's vertex set,
// rounded to millimeters, suitable for map lookups.
func (p Polygon) Key() string {
	keys := make([]string, len(p))
	for i, v := range p {
		keys[i] = roundKey(v)
	}
	sort.Strings(keys)
	var out []byte
	for _, k := range keys {
		out = append(out, k...)
		out = append(out, ';')
	}
	return string(out)
}

func roundKey(v Point3) string {
	r := func(f float64) int64 { return int64(math.Round(f * 1000)) }
	return fmt.Sprintf("%d,%d,%d", r(v.X), r(v.Y), r(v.Z))
}

func sameCycle(p, q Polygon) bool {
	start := -1
	for i, v := range q {
		if v.Near(p[0]) {
			start = i
			break
		}
	}
	if start < 0 {
		return false
	}
	for i := range p {
		if !p[i].Near(q[(start+i)%len(q)]) {
			return false
		}
	}
	return true
}

type point2 struct{ x, y float64 }

func (p Polygon) project() []point2 {
	n := p.VectorArea()
	ax, ay, az := math.Abs(n.X), math.Abs(n.Y), math.Abs(n.Z)
	out := make([]point2, len(p))
	for i, v := range p {
		switch {
		case az >= ax && az >= ay:
			out[i] = point2{v.X, v.Y}
		case ax >= ay:
			out[i] = point2{v.Y, v.Z}
		default:
			out[i] = point2{v.X, v.Z}
		}
	}
	return out
}

func orient(a, b, c point2) float64 {
	return (b.x-a.x)*(c.y-a.y) - (b.y-a.y)*(c.x-a.x)
}

func onSegment(a, b, c point2) bool {
	return math.Min(a.x, b.x)-Tolerance <= c.x && c.x <= math.Max(a.x, b.x)+Tolerance &&
		math.Min(a.y, b.y)-Tolerance <= c.y && c.y <= math.Max(a.y, b.y)+Tolerance
}

func sign(v float64) int {
	switch {
	case v > Tolerance:
		return 1
	case v < -Tolerance:
		return -1
	default:
		return 0
	}
}

func segmentsIntersect(a1, a2, b1, b2 point2) bool {
	d1 := sign(orient(b1, b2, a1))
	d2 := sign(orient(b1, b2, a2))
	d3 := sign(orient(a1, a2, b1))
	d4 := sign(orient(a1, a2, b2))
	if d1*d2 < 0 && d3*d4 < 0 {
		return true
	}
	return (d1 == 0 && onSegment(b1, b2, a1)) ||
		(d2 == 0 && onSegment(b1, b2, a2)) ||
		(d3 == 0 && onSegment(a1, a2, b1)) ||
		(d4 == 0 && onSegment(a1, a2, b2))
}
