package geom

import (
	"fmt"
	"math"
)

// Shape is anything a Geometry can wrap: solids and shells.
type Shape interface {
	shape()
}

// Solid is implemented by every solid variant. Solids are valid boolean
// operands.
type Solid interface {
	Shape
	solid()
}

// Box is a block with its minimum corner at Position.
type Box struct {
	Position Placement `json:"position"`
	XLength  float64   `json:"x_length"`
	YLength  float64   `json:"y_length"`
	ZLength  float64   `json:"z_length"`
}

// Sphere is a ball around Center.
type Sphere struct {
	Center Point   `json:"center"`
	Radius float64 `json:"radius"`
}

// Cylinder is a right circular cylinder whose base circle is centered at
// Position and which extends Height along the local Z axis.
type Cylinder struct {
	Position Placement `json:"position"`
	Height   float64   `json:"height"`
	Radius   float64   `json:"radius"`
}

// Cone is a right circular cone with its base at Position and its apex
// Height along local Z. The apex radius is always zero.
type Cone struct {
	Position     Placement `json:"position"`
	Height       float64   `json:"height"`
	BottomRadius float64   `json:"bottom_radius"`
}

// ExtrudedAreaSolid sweeps a profile, given in the XY plane of Position,
// Depth along ExtrudedDirection (expressed in the Position frame).
type ExtrudedAreaSolid struct {
	SweptArea         ArbitraryProfileDef `json:"swept_area"`
	Position          Placement           `json:"position"`
	ExtrudedDirection Direction           `json:"extruded_direction"`
	Depth             float64             `json:"depth"`
}

// RevolvedAreaSolid revolves a profile around Axis (in the Position frame)
// by Angle radians.
type RevolvedAreaSolid struct {
	SweptArea ArbitraryProfileDef `json:"swept_area"`
	Position  Placement           `json:"position"`
	Axis      Axis1Placement      `json:"axis"`
	Angle     float64             `json:"angle"`
}

// CsgSolid is a solid defined by a boolean tree.
type CsgSolid struct {
	TreeRoot BooleanResult `json:"tree_root"`
}

func (Box) shape()               {}
func (Sphere) shape()            {}
func (Cylinder) shape()          {}
func (Cone) shape()              {}
func (ExtrudedAreaSolid) shape() {}
func (RevolvedAreaSolid) shape() {}
func (CsgSolid) shape()          {}
func (BooleanResult) shape()     {}

func (Box) solid()               {}
func (Sphere) solid()            {}
func (Cylinder) solid()          {}
func (Cone) solid()              {}
func (ExtrudedAreaSolid) solid() {}
func (RevolvedAreaSolid) solid() {}
func (CsgSolid) solid()          {}
func (BooleanResult) solid()     {}

// NewBox validates a block.
func NewBox(position Placement, x, y, z float64) (Box, error) {
	for _, f := range []struct {
		name string
		v    float64
	}{{"box.x_length", x}, {"box.y_length", y}, {"box.z_length", z}} {
		if err := checkPositive(f.name, f.v); err != nil {
			return Box{}, err
		}
	}
	if err := checkPlacement("box.position", position); err != nil {
		return Box{}, err
	}
	return Box{Position: position, XLength: x, YLength: y, ZLength: z}, nil
}

// NewSphere validates a sphere.
func NewSphere(center Point, radius float64) (Sphere, error) {
	if err := checkPoint("sphere.center", center); err != nil {
		return Sphere{}, err
	}
	if err := checkPositive("sphere.radius", radius); err != nil {
		return Sphere{}, err
	}
	return Sphere{Center: center, Radius: radius}, nil
}

// NewCylinder validates a cylinder.
func NewCylinder(position Placement, height, radius float64) (Cylinder, error) {
	if err := checkPositive("cylinder.height", height); err != nil {
		return Cylinder{}, err
	}
	if err := checkPositive("cylinder.radius", radius); err != nil {
		return Cylinder{}, err
	}
	if err := checkPlacement("cylinder.position", position); err != nil {
		return Cylinder{}, err
	}
	return Cylinder{Position: position, Height: height, Radius: radius}, nil
}

// NewCone validates a cone.
func NewCone(position Placement, height, bottomRadius float64) (Cone, error) {
	if err := checkPositive("cone.height", height); err != nil {
		return Cone{}, err
	}
	if err := checkPositive("cone.bottom_radius", bottomRadius); err != nil {
		return Cone{}, err
	}
	if err := checkPlacement("cone.position", position); err != nil {
		return Cone{}, err
	}
	return Cone{Position: position, Height: height, BottomRadius: bottomRadius}, nil
}

// NewExtrudedAreaSolid validates an extrusion. The direction must not lie
// in the profile plane.
func NewExtrudedAreaSolid(profile ArbitraryProfileDef, position Placement, direction Direction, depth float64) (ExtrudedAreaSolid, error) {
	if err := checkPositive("extrusion.depth", depth); err != nil {
		return ExtrudedAreaSolid{}, err
	}
	if err := checkPlacement("extrusion.position", position); err != nil {
		return ExtrudedAreaSolid{}, err
	}
	dir, err := NewDirection(direction.X, direction.Y, direction.Z)
	if err != nil {
		return ExtrudedAreaSolid{}, fieldErr("extrusion.direction", err)
	}
	if math.Abs(dir.Z) < 1e-9 {
		return ExtrudedAreaSolid{}, &ConstructionError{Field: "extrusion.direction", Value: direction, Reason: "parallel to the profile plane"}
	}
	if err := checkBoundary("extrusion.swept_area", profile.OuterCurve); err != nil {
		return ExtrudedAreaSolid{}, err
	}
	return ExtrudedAreaSolid{SweptArea: profile, Position: position, ExtrudedDirection: dir, Depth: depth}, nil
}

// NewRevolvedAreaSolid validates a revolution. Angle is in radians and must
// lie in (0, 2π].
func NewRevolvedAreaSolid(profile ArbitraryProfileDef, position Placement, axis Axis1Placement, angle float64) (RevolvedAreaSolid, error) {
	if !isFinite(angle) || angle <= 0 || angle > 2*math.Pi+1e-12 {
		return RevolvedAreaSolid{}, &ConstructionError{Field: "revolution.angle", Value: angle, Reason: "must be in (0, 2π]"}
	}
	if err := checkPlacement("revolution.position", position); err != nil {
		return RevolvedAreaSolid{}, err
	}
	if err := checkPoint("revolution.axis.location", axis.Location); err != nil {
		return RevolvedAreaSolid{}, err
	}
	dir, err := NewDirection(axis.Axis.X, axis.Axis.Y, axis.Axis.Z)
	if err != nil {
		return RevolvedAreaSolid{}, fieldErr("revolution.axis", err)
	}
	if math.Abs(dir.Z) > 1e-9 {
		return RevolvedAreaSolid{}, &ConstructionError{Field: "revolution.axis", Value: axis.Axis, Reason: "must lie in the profile plane"}
	}
	if err := checkBoundary("revolution.swept_area", profile.OuterCurve); err != nil {
		return RevolvedAreaSolid{}, err
	}
	axis.Axis = dir
	return RevolvedAreaSolid{SweptArea: profile, Position: position, Axis: axis, Angle: angle}, nil
}

func checkPlacement(field string, p Placement) error {
	if !p.Location.IsFinite() || !p.Axis.IsFinite() || !p.RefDirection.IsFinite() {
		return &ConstructionError{Field: field, Value: p, Reason: "non-finite component"}
	}
	if !p.IsOrthonormal(OrthogonalityTolerance) {
		return &ConstructionError{Field: field, Value: p, Reason: "axes are not orthonormal"}
	}
	return nil
}

// ShapeName returns a short type name used in messages and logs.
func ShapeName(s Shape) string {
	switch s.(type) {
	case Box:
		return "box"
	case Sphere:
		return "sphere"
	case Cylinder:
		return "cylinder"
	case Cone:
		return "cone"
	case ExtrudedAreaSolid:
		return "extruded-area-solid"
	case RevolvedAreaSolid:
		return "revolved-area-solid"
	case CsgSolid:
		return "csg-solid"
	case BooleanResult:
		return "boolean-result"
	case Shell:
		return "shell"
	case nil:
		return "nil"
	default:
		return fmt.Sprintf("%T", s)
	}
}
