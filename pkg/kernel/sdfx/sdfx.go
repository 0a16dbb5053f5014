// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
package sdfx

import (
	"errors"
	"fmt"
	"math"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/Krande/adapy-sub006/pkg/geom"
	"github.com/Krande/adapy-sub006/pkg/kernel"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// DefaultMeshCells controls marching cubes tessellation resolution.
const DefaultMeshCells = 200

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid.
type sdfxSolid struct {
	s sdf.SDF3
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// Contains evaluates the distance field at p.
func (s *sdfxSolid) Contains(p geom.Point) bool {
	return s.s.Evaluate(vec(p)) <= 0
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	cells int
}

// New returns a kernel meshing with the given number of marching cubes
// cells along the longest side. Zero selects DefaultMeshCells.
func New(cells int) *SdfxKernel {
	if cells <= 0 {
		cells = DefaultMeshCells
	}
	return &SdfxKernel{cells: cells}
}

// unwrap extracts the underlying sdf.SDF3 from a kernel.Solid.
func unwrap(s kernel.Solid) sdf.SDF3 {
	return s.(*sdfxSolid).s
}

// wrap creates a kernel.Solid from an sdf.SDF3.
func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

func vec(p geom.Point) v3.Vec { return v3.Vec{X: p.X, Y: p.Y, Z: p.Z} }

// lift moves a z-centered sdfx primitive so it stands on the XY plane.
func lift(s sdf.SDF3, height float64) sdf.SDF3 {
	return sdf.Transform3D(s, sdf.Translate3d(v3.Vec{Z: height / 2}))
}

// Box creates a box with its minimum corner at the origin. sdf.Box3D
// centers the box, so it is translated by half its dimensions.
func (k *SdfxKernel) Box(x, y, z float64) (kernel.Solid, error) {
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx: box: %w", err)
	}
	m := sdf.Translate3d(v3.Vec{X: x / 2, Y: y / 2, Z: z / 2})
	return wrap(sdf.Transform3D(s, m)), nil
}

// Sphere creates a sphere centered on the origin.
func (k *SdfxKernel) Sphere(radius float64) (kernel.Solid, error) {
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		return nil, fmt.Errorf("sdfx: sphere: %w", err)
	}
	return wrap(s), nil
}

// Cylinder creates a cylinder standing on the XY plane.
func (k *SdfxKernel) Cylinder(height, radius float64) (kernel.Solid, error) {
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx: cylinder: %w", err)
	}
	return wrap(lift(s, height)), nil
}

// Cone creates a cone with its base on the XY plane and its apex on +Z.
func (k *SdfxKernel) Cone(height, bottomRadius float64) (kernel.Solid, error) {
	s, err := sdf.Cone3D(height, bottomRadius, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx: cone: %w", err)
	}
	return wrap(lift(s, height)), nil
}

// region builds the 2D field of a profile.
func region(p kernel.Profile) (sdf.SDF2, error) {
	outer, err := polygon(p.Outer)
	if err != nil {
		return nil, fmt.Errorf("outer boundary: %w", err)
	}
	for i, h := range p.Holes {
		hole, err := polygon(h)
		if err != nil {
			return nil, fmt.Errorf("hole %d: %w", i, err)
		}
		outer = sdf.Difference2D(outer, hole)
	}
	return outer, nil
}

func polygon(pts []geom.Point) (sdf.SDF2, error) {
	if len(pts) < 3 {
		return nil, fmt.Errorf("polygon needs 3 points, got %d", len(pts))
	}
	vs := make([]v2.Vec, len(pts))
	for i, p := range pts {
		vs[i] = v2.Vec{X: p.X, Y: p.Y}
	}
	return sdf.Polygon2D(vs)
}

// Extrude sweeps a profile from the XY plane along direction.
func (k *SdfxKernel) Extrude(p kernel.Profile, direction geom.Direction, depth float64) (kernel.Solid, error) {
	d := direction.Normalized()
	if d.Z <= 1e-9 {
		return nil, errors.New("sdfx: extrude: direction must point away from the profile plane")
	}
	area, err := region(p)
	if err != nil {
		return nil, fmt.Errorf("sdfx: extrude: %w", err)
	}
	height := depth * d.Z
	straight := lift(sdf.Extrude3D(area, height), height)
	if math.Abs(d.X) < 1e-12 && math.Abs(d.Y) < 1e-12 {
		return wrap(straight), nil
	}
	return wrap(newSheared(straight, d.X/d.Z, d.Y/d.Z, height)), nil
}

// Revolve sweeps a profile (X = radius, Y = height) about the Z axis.
func (k *SdfxKernel) Revolve(p kernel.Profile, angle float64) (kernel.Solid, error) {
	area, err := region(p)
	if err != nil {
		return nil, fmt.Errorf("sdfx: revolve: %w", err)
	}
	var s sdf.SDF3
	if angle >= 2*math.Pi-1e-12 {
		s, err = sdf.Revolve3D(area)
	} else {
		s, err = sdf.RevolveTheta3D(area, angle)
	}
	if err != nil {
		return nil, fmt.Errorf("sdfx: revolve: %w", err)
	}
	return wrap(s), nil
}

// Union returns the union of two solids.
func (k *SdfxKernel) Union(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Union3D(unwrap(a), unwrap(b)))
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Difference3D(unwrap(a), unwrap(b)))
}

// Intersection returns the intersection of two solids.
func (k *SdfxKernel) Intersection(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Intersect3D(unwrap(a), unwrap(b)))
}

// Transform places a solid with p: its local Z goes to p.Axis, local X to
// p.RefDirection and the origin to p.Location.
func (k *SdfxKernel) Transform(s kernel.Solid, p geom.Placement) kernel.Solid {
	return wrap(sdf.Transform3D(unwrap(s), Matrix(p)))
}

// Matrix returns the rigid transform of a placement.
func Matrix(p geom.Placement) sdf.M44 {
	z := vec(p.Axis.Normalized().AsPoint())
	var r sdf.M44
	switch {
	case z.Z > 1-1e-12:
		r = sdf.Identity3d()
	case z.Z < -1+1e-12:
		r = sdf.RotateX(math.Pi)
	default:
		r = sdf.RotateToVector(v3.Vec{Z: 1}, z)
	}
	// Spin about the new Z until local X lands on the ref direction.
	x := r.MulPosition(v3.Vec{X: 1})
	ref := vec(p.RefDirection.Normalized().AsPoint())
	theta := math.Atan2(x.Cross(ref).Dot(z), x.Dot(ref))
	r = sdf.Rotate3d(z, theta).Mul(r)
	return sdf.Translate3d(vec(p.Location)).Mul(r)
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	sdf3 := unwrap(s)

	renderer := render.NewMarchingCubesUniform(k.cells)
	triangles := render.ToTriangles(sdf3, renderer)

	numTri := len(triangles)
	numVerts := numTri * 3

	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		// Compute face normal.
		n := tri.Normal()
		nx := float32(n.X)
		ny := float32(n.Y)
		nz := float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}
