// Package geometry builds multi-story building geometry from parametric
// footprints.
//
// A wizard (Rectangle, LShape, TShape, HShape, UShape, Courtyard) validates its
// dimensions, draws the footprint as a rectilinear outline and splits it into
// zones:
//
//   - one perimeter zone per outline edge, bounded by the edge and its inward
//     offset by the perimeter depth, mitred at the corners;
//   - core zones covering the inset outline, decomposed into rectangles by a
//     sweep along x.
//
// With a perimeter depth of zero the whole footprint becomes core. Every zone
// loop is counter-clockwise seen from above.
//
// The same zoning is stacked on every story. A story is placed at
// InitialHeight + index*FloorToFloor, where below-grade stories have negative
// indexes. Each space keeps its floor print relative to its own origin and is
// positioned by a translation; the building rotation is applied on top.
// Spaces are extruded into floor, wall and roof/ceiling surfaces and coincident
// surfaces of neighbouring spaces are paired by MatchSurfaces.
package geometry
