package geom

import (
	"fmt"
	"math"

	"github.com/flywave/go3d/float64/vec3"
)

// OrthogonalityTolerance is the largest |axis · ref_direction| accepted by
// NewPlacement.
const OrthogonalityTolerance = 1e-6

// Placement is a local coordinate frame (Axis2Placement3D): an origin, a
// local Z axis and a local X reference direction. Local Y is Axis × RefDirection.
//
//	global = Location + x*RefDirection + y*(Axis × RefDirection) + z*Axis
type Placement struct {
	Location     Point     `json:"location"`
	Axis         Direction `json:"axis"`
	RefDirection Direction `json:"ref_direction"`
}

// Axis1Placement is a located axis, used as the rotation axis of revolutions.
type Axis1Placement struct {
	Location Point     `json:"location"`
	Axis     Direction `json:"axis"`
}

// DefaultPlacement is the global frame.
func DefaultPlacement() Placement {
	return Placement{Axis: ZDir, RefDirection: XDir}
}

// NewPlacement validates and normalizes a frame. Axis and ref direction
// must be non-zero and orthogonal; skewed frames are rejected rather than
// silently producing sheared transforms (see Orthonormalize).
func NewPlacement(location Point, axis, ref Direction) (Placement, error) {
	if err := checkPoint("placement.location", location); err != nil {
		return Placement{}, err
	}
	z, err := NewDirection(axis.X, axis.Y, axis.Z)
	if err != nil {
		return Placement{}, fieldErr("placement.axis", err)
	}
	x, err := NewDirection(ref.X, ref.Y, ref.Z)
	if err != nil {
		return Placement{}, fieldErr("placement.ref_direction", err)
	}
	if d := math.Abs(z.Dot(x)); d > OrthogonalityTolerance {
		return Placement{}, &ConstructionError{
			Field:  "placement.ref_direction",
			Value:  ref,
			Reason: fmt.Sprintf("not orthogonal to axis (|dot| = %.3g)", d),
		}
	}
	return Placement{Location: location, Axis: z, RefDirection: x}, nil
}

// PlacementAt returns the global-oriented frame translated to location.
func PlacementAt(location Point) Placement {
	p := DefaultPlacement()
	p.Location = location
	return p
}

// YDirection returns the local Y axis.
func (p Placement) YDirection() Direction {
	return p.Axis.Cross(p.RefDirection)
}

// ToGlobal maps a point expressed in this frame to the parent frame.
func (p Placement) ToGlobal(local Point) Point {
	x := p.RefDirection.vec()
	y := p.YDirection().vec()
	z := p.Axis.vec()
	g := p.Location.vec()
	xs, ys, zs := x.Scaled(local.X), y.Scaled(local.Y), z.Scaled(local.Z)
	g = vec3.Add(&g, &xs)
	g = vec3.Add(&g, &ys)
	g = vec3.Add(&g, &zs)
	return pointOf(g)
}

// ToLocal maps a parent-frame point into this frame. It is the inverse of
// ToGlobal for orthonormal frames.
func (p Placement) ToLocal(global Point) Point {
	loc, g := p.Location.vec(), global.vec()
	d := vec3.Sub(&g, &loc)
	x := p.RefDirection.vec()
	y := p.YDirection().vec()
	z := p.Axis.vec()
	return Point{X: vec3.Dot(&d, &x), Y: vec3.Dot(&d, &y), Z: vec3.Dot(&d, &z)}
}

// DirectionToGlobal rotates a direction from this frame to the parent frame.
func (p Placement) DirectionToGlobal(d Direction) Direction {
	v := p.ToGlobal(d.AsPoint()).Sub(p.Location)
	return Direction{X: v.X, Y: v.Y, Z: v.Z}
}

// DirectionToLocal rotates a parent-frame direction into this frame.
func (p Placement) DirectionToLocal(d Direction) Direction {
	v := p.ToLocal(p.Location.Add(d.AsPoint()))
	return Direction{X: v.X, Y: v.Y, Z: v.Z}
}

// Compose returns child, given relative to p, expressed in p's parent frame.
func (p Placement) Compose(child Placement) Placement {
	return Placement{
		Location:     p.ToGlobal(child.Location),
		Axis:         p.DirectionToGlobal(child.Axis),
		RefDirection: p.DirectionToGlobal(child.RefDirection),
	}
}

// Translate returns p moved by v.
func (p Placement) Translate(v Point) Placement {
	p.Location = p.Location.Add(v)
	return p
}

// Rotate returns a new placement whose axes are rotated by angleDeg
// degrees (right-hand rule) around axis. The location is unchanged.
func (p Placement) Rotate(axis Direction, angleDeg float64) Placement {
	k := axis.Normalized()
	rad := angleDeg * math.Pi / 180
	return Placement{
		Location:     p.Location,
		Axis:         rodrigues(p.Axis, k, rad),
		RefDirection: rodrigues(p.RefDirection, k, rad),
	}
}

// rodrigues rotates v around unit axis k by angle rad.
func rodrigues(v, k Direction, rad float64) Direction {
	c, s := math.Cos(rad), math.Sin(rad)
	kv := k.Cross(v)
	kd := k.Dot(v)
	return Direction{
		X: v.X*c + kv.X*s + k.X*kd*(1-c),
		Y: v.Y*c + kv.Y*s + k.Y*kd*(1-c),
		Z: v.Z*c + kv.Z*s + k.Z*kd*(1-c),
	}
}

// Orthonormalize returns a frame with unit axes where RefDirection has its
// component along Axis removed (Gram-Schmidt). Axis is kept.
func (p Placement) Orthonormalize() (Placement, error) {
	z, err := NewDirection(p.Axis.X, p.Axis.Y, p.Axis.Z)
	if err != nil {
		return Placement{}, fieldErr("placement.axis", err)
	}
	d := p.RefDirection.Dot(z)
	x := Direction{
		X: p.RefDirection.X - d*z.X,
		Y: p.RefDirection.Y - d*z.Y,
		Z: p.RefDirection.Z - d*z.Z,
	}
	xn, err := NewDirection(x.X, x.Y, x.Z)
	if err != nil {
		return Placement{}, &ConstructionError{Field: "placement.ref_direction", Value: p.RefDirection, Reason: "parallel to axis"}
	}
	return Placement{Location: p.Location, Axis: z, RefDirection: xn}, nil
}

// IsOrthonormal reports whether both axes have unit length and are orthogonal within tol.
func (p Placement) IsOrthonormal(tol float64) bool {
	return math.Abs(p.Axis.Length()-1) <= tol &&
		math.Abs(p.RefDirection.Length()-1) <= tol &&
		math.Abs(p.Axis.Dot(p.RefDirection)) <= tol
}

// IsClose compares two placements component-wise.
func (p Placement) IsClose(o Placement, tol float64) bool {
	return p.Location.IsClose(o.Location, tol) &&
		p.Axis.IsEqual(o.Axis, tol) &&
		p.RefDirection.IsEqual(o.RefDirection, tol)
}

// PlacementFromAxes builds a frame with Z along axis and X as close to
// xHint as possible. When xHint is parallel to axis a perpendicular is chosen.
func PlacementFromAxes(location Point, axis, xHint Direction) (Placement, error) {
	z, err := NewDirection(axis.X, axis.Y, axis.Z)
	if err != nil {
		return Placement{}, fieldErr("placement.axis", err)
	}
	hint := xHint
	if math.Abs(z.Normalized().Dot(hint.Normalized())) > 1-1e-9 || hint.Length() == 0 {
		hint = XDir
		if math.Abs(z.Dot(XDir)) > 0.9 {
			hint = YDir
		}
	}
	p, err := Placement{Location: location, Axis: z, RefDirection: hint}.Orthonormalize()
	if err != nil {
		return Placement{}, err
	}
	return p, checkPoint("placement.location", location)
}

func fieldErr(field string, err error) error {
	if ce, ok := err.(*ConstructionError); ok {
		return &ConstructionError{Field: field, Value: ce.Value, Reason: ce.Reason}
	}
	return err
}
