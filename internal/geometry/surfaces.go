package geometry

import (
	"fmt"
	"math"

	"github.com/couchcryptid/building-energy-toolkit/internal/geom"
)

type surfaceRef struct {
	space *Space
	idx   int
}

func (r surfaceRef) surface() *Surface { return &r.space.Surfaces[r.idx] }

// MatchSurfaces pairs surfaces of different spaces that cover the same vertex
// set with opposite normals, marking both with the Surface boundary condition.
// Already matched surfaces are left alone. It returns the number of new pairs.
func (b *Building) MatchSurfaces() int {
	groups := map[string][]surfaceRef{}
	var keys []string
	for _, sp := range b.Spaces() {
		place := sp.Placement()
		for i := range sp.Surfaces {
			if sp.Surfaces[i].BoundaryCondition == BoundarySurface {
				continue
			}
			k := place.ApplyAll(sp.Surfaces[i].Vertices).Key()
			if _, ok := groups[k]; !ok {
				keys = append(keys, k)
			}
			groups[k] = append(groups[k], surfaceRef{sp, i})
		}
	}

	pairs := 0
	for _, k := range keys {
		refs := groups[k]
		if len(refs) != 2 || refs[0].space == refs[1].space {
			continue
		}
		a, c := refs[0].surface(), refs[1].surface()
		if a.Vertices.Normal().Dot(c.Vertices.Normal()) > -0.99 {
			continue
		}
		a.BoundaryCondition, a.AdjacentSurface = BoundarySurface, c.Name
		c.BoundaryCondition, c.AdjacentSurface = BoundarySurface, a.Name
		pairs++
	}
	return pairs
}

// RemoveInvalid drops degenerate surfaces (fewer than three distinct vertices,
// no area or self-intersecting) and spaces left without a floor. Partners of
// removed surfaces revert to outdoor exposure. One warning is returned per
// removed object.
func (b *Building) RemoveInvalid() []string {
	var warnings []string
	removed := map[string]bool{}

	for si := range b.Stories {
		story := &b.Stories[si]
		for pi := range story.Spaces {
			sp := &story.Spaces[pi]
			kept := sp.Surfaces[:0]
			for _, surf := range sp.Surfaces {
				if reason := invalidReason(surf.Vertices); reason != "" {
					warnings = append(warnings, fmt.Sprintf("removed surface %q: %s", surf.Name, reason))
					removed[surf.Name] = true
					continue
				}
				kept = append(kept, surf)
			}
			sp.Surfaces = kept
		}

		spaces := story.Spaces[:0]
		for _, sp := range story.Spaces {
			if !hasFloor(sp) || sp.FloorArea() <= geom.Tolerance {
				warnings = append(warnings, fmt.Sprintf("removed space %q: no valid floor", sp.Name))
				for _, surf := range sp.Surfaces {
					removed[surf.Name] = true
				}
				continue
			}
			spaces = append(spaces, sp)
		}
		story.Spaces = spaces
	}

	if len(removed) > 0 {
		for _, sp := range b.Spaces() {
			for i := range sp.Surfaces {
				surf := &sp.Surfaces[i]
				if surf.BoundaryCondition == BoundarySurface && removed[surf.AdjacentSurface] {
					surf.BoundaryCondition, surf.AdjacentSurface = BoundaryOutdoors, ""
				}
			}
		}
	}
	return warnings
}

func invalidReason(p geom.Polygon) string {
	switch {
	case len(p) < 3:
		return "fewer than three vertices"
	case !p.IsClosedLoop():
		return "not a closed loop"
	case p.Area() <= geom.Tolerance:
		return "zero area"
	case p.SelfIntersects():
		return "self-intersecting"
	}
	return ""
}

func hasFloor(sp Space) bool {
	for _, s := range sp.Surfaces {
		if s.Type == SurfaceFloor {
			return true
		}
	}
	return false
}

// ApplyWindowToWallRatio replaces the windows of every exterior above-grade
// wall of occupied spaces with a single window: the wall scaled about its
// centroid by sqrt(wwr). A ratio of zero removes the windows. It returns the
// number of windows placed.
func (b *Building) ApplyWindowToWallRatio(wwr float64) (int, error) {
	if math.IsNaN(wwr) || wwr < 0 || wwr >= 1 {
		return 0, fmt.Errorf("window-to-wall ratio %g out of range [0, 1)", wwr)
	}
	scale := math.Sqrt(wwr)
	windows := 0
	for _, sp := range b.Spaces() {
		if sp.Kind == ZonePlenum {
			continue
		}
		for i := range sp.Surfaces {
			surf := &sp.Surfaces[i]
			if surf.Type != SurfaceWall || surf.BoundaryCondition != BoundaryOutdoors {
				continue
			}
			surf.SubSurfaces = nil
			if scale == 0 {
				continue
			}
			c := surf.Vertices.Centroid()
			win := make(geom.Polygon, len(surf.Vertices))
			for j, v := range surf.Vertices {
				win[j] = c.Add(v.Sub(c).Scale(scale))
			}
			surf.SubSurfaces = []SubSurface{{Name: surf.Name + " Window", Type: "FixedWindow", Vertices: win}}
			windows++
		}
	}
	return windows, nil
}

// Summary counts the objects of a building.
type Summary struct {
	Stories          int     `json:"stories"`
	Spaces           int     `json:"spaces"`
	Surfaces         int     `json:"surfaces"`
	SubSurfaces      int     `json:"sub_surfaces"`
	MatchedSurfaces  int     `json:"matched_surfaces"`
	FloorArea        float64 `json:"floor_area"`
	ExteriorWallArea float64 `json:"exterior_wall_area"`
	WindowArea       float64 `json:"window_area"`
}

// WindowToWallRatio returns window area over exterior wall area.
func (s Summary) WindowToWallRatio() float64 {
	if s.ExteriorWallArea == 0 {
		return 0
	}
	return s.WindowArea / s.ExteriorWallArea
}

// Summary returns object counts and areas. Floor area counts occupied spaces
// only.
func (b *Building) Summary() Summary {
	sum := Summary{Stories: len(b.Stories)}
	for _, sp := range b.Spaces() {
		sum.Spaces++
		if sp.PartOfFloorArea {
			sum.FloorArea += sp.FloorArea()
		}
		for _, surf := range sp.Surfaces {
			sum.Surfaces++
			sum.SubSurfaces += len(surf.SubSurfaces)
			if surf.BoundaryCondition == BoundarySurface {
				sum.MatchedSurfaces++
			}
			if surf.Type == SurfaceWall && surf.BoundaryCondition == BoundaryOutdoors && sp.Kind != ZonePlenum {
				sum.ExteriorWallArea += surf.Vertices.Area()
				for _, sub := range surf.SubSurfaces {
					sum.WindowArea += sub.Vertices.Area()
				}
			}
		}
	}
	return sum
}
