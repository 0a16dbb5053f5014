// Package kernel defines the solid-modeling kernel boundary. Geometry is
// realized as opaque solids through this interface; boolean evaluation and
// meshing are the kernel's job. Backends (see kernel/sdfx) can be swapped
// without touching the rest of the system.
package kernel

import "github.com/Krande/adapy-sub006/pkg/geom"

// Solid is an opaque handle to a kernel solid.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
	// Contains reports whether p lies inside or on the solid.
	Contains(p geom.Point) bool
}

// Profile is a planar region in the local XY plane: a closed outer polygon
// and optional polygonal holes. Polygons do not repeat the first point.
type Profile struct {
	Outer []geom.Point
	Holes [][]geom.Point
}

// Kernel builds and combines solids. Primitives are created in a local
// frame and positioned with Transform:
//
//   - Box has its minimum corner at the origin.
//   - Cylinder and Cone stand on the XY plane and extend along +Z.
//   - Extrude sweeps the profile from z = 0 along direction, which must
//     have a positive Z component, until z = depth * direction.Z.
//   - Revolve reads profile X as the distance from the Z axis and profile
//     Y as the height, and sweeps it angle radians about +Z starting in
//     the XZ plane.
type Kernel interface {
	// Primitives
	Box(x, y, z float64) (Solid, error)
	Sphere(radius float64) (Solid, error)
	Cylinder(height, radius float64) (Solid, error)
	Cone(height, bottomRadius float64) (Solid, error)
	Extrude(p Profile, direction geom.Direction, depth float64) (Solid, error)
	Revolve(p Profile, angle float64) (Solid, error)

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transform maps a solid from the local frame of p to its parent.
	Transform(s Solid, p geom.Placement) Solid

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}
