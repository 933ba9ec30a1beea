package geometry

import (
	"cmp"
	"math"
	"slices"

	"github.com/couchcryptid/building-energy-toolkit/internal/geom"
)

// Zone kinds.
const (
	ZonePerimeter = "perimeter"
	ZoneCore      = "core"
	ZonePlenum    = "plenum"
)

// Zone is one floor-plan loop of a story, at z = 0 in footprint coordinates.
type Zone struct {
	Kind      string
	Facing    string
	Courtyard bool
	Loop      geom.Polygon
}

// Zones splits a footprint into perimeter and core zones. Perimeter zones come
// first in outline order, then holes, then core rectangles ordered by x and y.
func Zones(f Footprint, depth float64) []Zone {
	var zones []Zone
	cores := append([]geom.Polygon{f.Outer}, f.Holes...)

	if depth > 0 {
		cores = cores[:0:0]
		for i, boundary := range append([]geom.Polygon{f.Outer}, f.Holes...) {
			inset := insetLoop(boundary, depth)
			for j := range boundary {
				k := (j + 1) % len(boundary)
				zones = append(zones, Zone{
					Kind:      ZonePerimeter,
					Facing:    Facing(boundary[j], boundary[k]),
					Courtyard: i > 0,
					Loop:      geom.Polygon{boundary[j], boundary[k], inset[k], inset[j]},
				})
			}
			cores = append(cores, inset)
		}
	}

	for _, r := range coreRectangles(cores) {
		zones = append(zones, Zone{Kind: ZoneCore, Loop: r})
	}

	loops := make([]geom.Polygon, len(zones))
	for i, z := range zones {
		loops[i] = z.Loop
	}
	for i, l := range splitEdges(loops) {
		zones[i].Loop = l
	}
	return zones
}

// insetLoop offsets every vertex of a loop towards its left (interior) side by
// d, mitring the corners.
func insetLoop(p geom.Polygon, d float64) geom.Polygon {
	n := len(p)
	out := make(geom.Polygon, n)
	for i := range p {
		prev, next := p[(i+n-1)%n], p[(i+1)%n]
		n1 := leftNormal(prev, p[i])
		n2 := leftNormal(p[i], next)
		miter := n1.Add(n2).Scale(d / (1 + n1.Dot(n2)))
		out[i] = p[i].Add(miter)
	}
	return out
}

func leftNormal(a, b geom.Point3) geom.Vector3 {
	d := b.Sub(a)
	return geom.Vec(-d.Y, d.X, 0).Normalize()
}

type rect struct{ x0, x1, y0, y1 float64 }

func near(a, b float64) bool { return math.Abs(a-b) <= geom.Tolerance }

// coreRectangles decomposes the region bounded by rectilinear loops (outer
// boundaries counter-clockwise, holes clockwise) into rectangles. The plane is
// cut into vertical slabs at every distinct vertex x; inside a slab the
// horizontal edges crossing its midline pair up into covered y intervals.
// Rectangles of neighbouring slabs with the same interval are merged.
func coreRectangles(loops []geom.Polygon) []geom.Polygon {
	var xs []float64
	for _, l := range loops {
		for _, v := range l {
			xs = append(xs, v.X)
		}
	}
	slices.Sort(xs)
	xs = slices.CompactFunc(xs, near)

	var open, done []rect
	for i := 0; i+1 < len(xs); i++ {
		x0, x1 := xs[i], xs[i+1]
		xm := (x0 + x1) / 2

		var ys []float64
		for _, l := range loops {
			for j := range l {
				a, b := l[j], l[(j+1)%len(l)]
				if near(a.Y, b.Y) && math.Min(a.X, b.X) < xm && xm < math.Max(a.X, b.X) {
					ys = append(ys, a.Y)
				}
			}
		}
		slices.Sort(ys)

		var next []rect
		for j := 0; j+1 < len(ys); j += 2 {
			y0, y1 := ys[j], ys[j+1]
			idx := slices.IndexFunc(open, func(r rect) bool {
				return near(r.x1, x0) && near(r.y0, y0) && near(r.y1, y1)
			})
			if idx >= 0 {
				r := open[idx]
				r.x1 = x1
				next = append(next, r)
				open = slices.Delete(open, idx, idx+1)
				continue
			}
			next = append(next, rect{x0: x0, x1: x1, y0: y0, y1: y1})
		}
		done = append(done, open...)
		open = next
	}
	done = append(done, open...)

	slices.SortFunc(done, func(a, b rect) int {
		if c := cmp.Compare(a.x0, b.x0); c != 0 {
			return c
		}
		return cmp.Compare(a.y0, b.y0)
	})
	out := make([]geom.Polygon, 0, len(done))
	for _, r := range done {
		out = append(out, loop(r.x0, r.y0, r.x1, r.y0, r.x1, r.y1, r.x0, r.y1))
	}
	return out
}

// splitEdges inserts into every edge the vertices of other loops that lie
// strictly inside it, so that walls of neighbouring zones coincide exactly.
func splitEdges(loops []geom.Polygon) []geom.Polygon {
	out := make([]geom.Polygon, len(loops))
	for i, l := range loops {
		var split geom.Polygon
		for j := range l {
			a, b := l[j], l[(j+1)%len(l)]
			split = append(split, a)

			type hit struct {
				t float64
				p geom.Point3
			}
			var hits []hit
			for k, other := range loops {
				if k == i {
					continue
				}
				for _, p := range other {
					if t, ok := interiorParam(a, b, p); ok {
						hits = append(hits, hit{t, p})
					}
				}
			}
			slices.SortFunc(hits, func(x, y hit) int { return cmp.Compare(x.t, y.t) })
			for _, h := range hits {
				if !split[len(split)-1].Near(h.p) {
					split = append(split, h.p)
				}
			}
		}
		out[i] = split
	}
	return out
}

// interiorParam returns t in (0, 1) when p lies on segment a-b away from its
// endpoints.
func interiorParam(a, b, p geom.Point3) (float64, bool) {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 <= geom.Tolerance {
		return 0, false
	}
	ap := p.Sub(a)
	if ab.Cross(ap).Length()/math.Sqrt(l2) > geom.Tolerance {
		return 0, false
	}
	t := ap.Dot(ab) / l2
	eps := geom.Tolerance / math.Sqrt(l2)
	if t <= eps || t >= 1-eps {
		return 0, false
	}
	return t, true
}
