package geometry

import (
	"fmt"

	"github.com/couchcryptid/building-energy-toolkit/internal/geom"
)

// SurfaceType classifies a planar surface of a space.
type SurfaceType string

// Surface types.
const (
	SurfaceFloor       SurfaceType = "Floor"
	SurfaceWall        SurfaceType = "Wall"
	SurfaceRoofCeiling SurfaceType = "RoofCeiling"
)

// Boundary conditions.
const (
	BoundaryOutdoors = "Outdoors"
	BoundaryGround   = "Ground"
	BoundarySurface  = "Surface"
)

// SubSurface is a window placed on a wall.
type SubSurface struct {
	Name     string       `json:"name"`
	Type     string       `json:"type"`
	Vertices geom.Polygon `json:"vertices"`
}

// Surface is a planar face of a space, in space-local coordinates. The vertex
// order gives the outward normal by the right-hand rule.
type Surface struct {
	Name              string       `json:"name"`
	Type              SurfaceType  `json:"type"`
	Vertices          geom.Polygon `json:"vertices"`
	BoundaryCondition string       `json:"boundary_condition"`
	AdjacentSurface   string       `json:"adjacent_surface,omitempty"`
	SubSurfaces       []SubSurface `json:"sub_surfaces,omitempty"`
}

// Space is an extruded zone. FloorPrint and surface vertices are relative to
// Origin.
type Space struct {
	Name            string       `json:"name"`
	Kind            string       `json:"kind"`
	Facing          string       `json:"facing,omitempty"`
	Origin          geom.Point3  `json:"origin"`
	FloorPrint      geom.Polygon `json:"floor_print"`
	Height          float64      `json:"height"`
	PartOfFloorArea bool         `json:"part_of_floor_area"`
	Surfaces        []Surface    `json:"surfaces"`
}

// Placement is the translation from space-local to footprint coordinates.
func (s *Space) Placement() geom.Transformation {
	return geom.Translation(s.Origin.Vector())
}

// FloorArea returns the area of the floor print.
func (s *Space) FloorArea() float64 { return s.FloorPrint.Area() }

// Story is one level of the building.
type Story struct {
	Name         string  `json:"name"`
	Index        int     `json:"index"`
	Z            float64 `json:"z"`
	FloorToFloor float64 `json:"floor_to_floor"`
	Spaces       []Space `json:"spaces"`
}

// Building is the output of a wizard.
type Building struct {
	Shape         string  `json:"shape"`
	Rotation      float64 `json:"rotation"`
	FootprintArea float64 `json:"footprint_area"`
	Stories       []Story `json:"stories"`
}

// Transformation places a space in building coordinates, rotation included.
func (b *Building) Transformation(s *Space) geom.Transformation {
	return geom.RotationZ(b.Rotation).Mul(s.Placement())
}

// WorldVertices returns the vertices of surf in building coordinates.
func (b *Building) WorldVertices(s *Space, surf *Surface) geom.Polygon {
	return b.Transformation(s).ApplyAll(surf.Vertices)
}

// Spaces returns pointers to every space, story by story.
func (b *Building) Spaces() []*Space {
	var out []*Space
	for i := range b.Stories {
		for j := range b.Stories[i].Spaces {
			out = append(out, &b.Stories[i].Spaces[j])
		}
	}
	return out
}

// Space finds a space by name.
func (b *Building) Space(name string) (*Space, bool) {
	for _, s := range b.Spaces() {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// Clone returns a deep copy.
func (b *Building) Clone() *Building {
	if b == nil {
		return nil
	}
	out := *b
	out.Stories = make([]Story, len(b.Stories))
	for i, st := range b.Stories {
		st.Spaces = make([]Space, len(b.Stories[i].Spaces))
		for j, sp := range b.Stories[i].Spaces {
			sp.FloorPrint = sp.FloorPrint.Clone()
			surfaces := make([]Surface, len(sp.Surfaces))
			for k, surf := range sp.Surfaces {
				surf.Vertices = surf.Vertices.Clone()
				if surf.SubSurfaces != nil {
					subs := make([]SubSurface, len(surf.SubSurfaces))
					for m, sub := range surf.SubSurfaces {
						sub.Vertices = sub.Vertices.Clone()
						subs[m] = sub
					}
					surf.SubSurfaces = subs
				}
				surfaces[k] = surf
			}
			sp.Surfaces = surfaces
			st.Spaces[j] = sp
		}
		out.Stories[i] = st
	}
	return &out
}

// Rectangle builds a rectangular building.
func Rectangle(p RectangleParams, s Stories) (*Building, error) { return Build(p, s) }

// LShape builds an L-shaped building.
func LShape(p LShapeParams, s Stories) (*Building, error) { return Build(p, s) }

// TShape builds a T-shaped building.
func TShape(p TShapeParams, s Stories) (*Building, error) { return Build(p, s) }

// HShape builds an H-shaped building.
func HShape(p HShapeParams, s Stories) (*Building, error) { return Build(p, s) }

// UShape builds a U-shaped building.
func UShape(p UShapeParams, s Stories) (*Building, error) { return Build(p, s) }

// Courtyard builds a rectangular building around an open courtyard.
func Courtyard(p CourtyardParams, s Stories) (*Building, error) { return Build(p, s) }

// Build validates the shape and stacking, zones the footprint, stacks the
// stories and pairs coincident surfaces. Nothing is built when validation
// fails.
func Build(shape Shape, st Stories) (*Building, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateStories(st); err != nil {
		return nil, err
	}

	fp := shape.Footprint()
	zones := Zones(fp, shape.Depth())

	b := &Building{Shape: shape.Kind(), Rotation: st.Rotation, FootprintArea: fp.Area()}
	for i := -st.BelowGrade; i < st.AboveGrade; i++ {
		b.Stories = append(b.Stories, buildStory(i, i == -st.BelowGrade, st, zones))
	}
	b.MatchSurfaces()
	return b, nil
}

// StoryName returns "Story n" above grade and "Basement n" below, counting
// away from grade.
func StoryName(index int) string {
	if index < 0 {
		return fmt.Sprintf("Basement %d", -index)
	}
	return fmt.Sprintf("Story %d", index+1)
}

func buildStory(index int, lowest bool, st Stories, zones []Zone) Story {
	story := Story{
		Name:         StoryName(index),
		Index:        index,
		Z:            st.InitialHeight + float64(index)*st.FloorToFloor,
		FloorToFloor: st.FloorToFloor,
	}
	occupied := st.FloorToFloor - st.PlenumHeight
	ground := index < 0
	names := spaceNames(story.Name, zones)

	for i, z := range zones {
		story.Spaces = append(story.Spaces, newSpace(names[i], z, story.Z, occupied, lowest, ground, true))
	}
	if st.PlenumHeight > 0 {
		for i, z := range zones {
			pz := z
			pz.Kind = ZonePlenum
			story.Spaces = append(story.Spaces, newSpace(names[i]+" Plenum", pz, story.Z+occupied, st.PlenumHeight, false, ground, false))
		}
	}
	return story
}

// spaceNames numbers perimeter spaces only when a facing repeats on the story.
func spaceNames(story string, zones []Zone) []string {
	type key struct {
		courtyard bool
		facing    string
	}
	total := map[key]int{}
	cores := 0
	for _, z := range zones {
		if z.Kind == ZoneCore {
			cores++
			continue
		}
		total[key{z.Courtyard, z.Facing}]++
	}

	seen := map[key]int{}
	coreSeen := 0
	names := make([]string, len(zones))
	for i, z := range zones {
		if z.Kind == ZoneCore {
			coreSeen++
			names[i] = story + " Core Space"
			if cores > 1 {
				names[i] = fmt.Sprintf("%s %d", names[i], coreSeen)
			}
			continue
		}
		k := key{z.Courtyard, z.Facing}
		seen[k]++
		prefix := story + " "
		if z.Courtyard {
			prefix += "Courtyard "
		}
		names[i] = prefix + z.Facing + " Perimeter Space"
		if total[k] > 1 {
			names[i] = fmt.Sprintf("%s %d", names[i], seen[k])
		}
	}
	return names
}

func newSpace(name string, z Zone, elevation, height float64, groundFloor, belowGrade, occupied bool) Space {
	origin := z.Loop[0]
	local := z.Loop.Translate(origin.Vector().Reverse())
	sp := Space{
		Name:            name,
		Kind:            z.Kind,
		Facing:          z.Facing,
		Origin:          geom.Pt(origin.X, origin.Y, elevation),
		FloorPrint:      local,
		Height:          height,
		PartOfFloorArea: occupied,
	}
	sp.Surfaces = extrude(name, local, height, groundFloor, belowGrade)
	return sp
}

// extrude turns a counter-clockwise floor print into a closed shell: the floor
// faces down, the roof up and each wall outwards.
func extrude(name string, print geom.Polygon, height float64, groundFloor, belowGrade bool) []Surface {
	up := geom.Vec(0, 0, height)

	floorBC := BoundaryOutdoors
	if groundFloor {
		floorBC = BoundaryGround
	}
	wallBC := BoundaryOutdoors
	if belowGrade {
		wallBC = BoundaryGround
	}

	surfaces := []Surface{{
		Name:              name + " Floor",
		Type:              SurfaceFloor,
		Vertices:          print.Reverse(),
		BoundaryCondition: floorBC,
	}}
	for i := range print {
		a, b := print[i], print[(i+1)%len(print)]
		surfaces = append(surfaces, Surface{
			Name:              fmt.Sprintf("%s Wall %d", name, i+1),
			Type:              SurfaceWall,
			Vertices:          geom.Polygon{a.Add(up), a, b, b.Add(up)},
			BoundaryCondition: wallBC,
		})
	}
	surfaces = append(surfaces, Surface{
		Name:              name + " Roof",
		Type:              SurfaceRoofCeiling,
		Vertices:          print.Translate(up),
		BoundaryCondition: BoundaryOutdoors,
	})
	return surfaces
}
