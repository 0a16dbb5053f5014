// Package geom defines the neutral geometry model shared by every
// exchange format: points, directions, placements, curves, profiles,
// surfaces and solids, plus the Geometry wrapper that carries an ordered
// boolean operation list.
//
// Values are immutable once constructed. Constructors validate their
// input and fail with a *ConstructionError instead of producing a
// partially valid value.
package geom

import (
	"fmt"
	"math"

	"github.com/flywave/go3d/float64/vec3"
)

// Point is a location in 3D space. Profile points live in the profile's
// local XY plane with Z == 0.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// P returns the point (x, y, z).
func P(x, y, z float64) Point { return Point{X: x, Y: y, Z: z} }

// P2 returns the profile point (x, y, 0).
func P2(x, y float64) Point { return Point{X: x, Y: y} }

func (p Point) vec() vec3.T { return vec3.T{p.X, p.Y, p.Z} }

func pointOf(v vec3.T) Point { return Point{X: v[0], Y: v[1], Z: v[2]} }

// Add returns p + o.
func (p Point) Add(o Point) Point { return Point{p.X + o.X, p.Y + o.Y, p.Z + o.Z} }

// Sub returns p - o.
func (p Point) Sub(o Point) Point { return Point{p.X - o.X, p.Y - o.Y, p.Z - o.Z} }

// Scale returns p * f.
func (p Point) Scale(f float64) Point { return Point{p.X * f, p.Y * f, p.Z * f} }

// Length returns the distance from the origin.
func (p Point) Length() float64 {
	v := p.vec()
	return v.Length()
}

// Distance returns the distance between p and o.
func (p Point) Distance(o Point) float64 { return p.Sub(o).Length() }

// Equal reports exact component equality.
func (p Point) Equal(o Point) bool { return p == o }

// IsClose reports whether every component differs by at most tol.
func (p Point) IsClose(o Point, tol float64) bool {
	return math.Abs(p.X-o.X) <= tol && math.Abs(p.Y-o.Y) <= tol && math.Abs(p.Z-o.Z) <= tol
}

// IsFinite reports whether no component is NaN or infinite.
func (p Point) IsFinite() bool {
	return isFinite(p.X) && isFinite(p.Y) && isFinite(p.Z)
}

func (p Point) String() string {
	return fmt.Sprintf("(%g, %g, %g)", p.X, p.Y, p.Z)
}

// Direction is a free vector. Constructors normalize it to unit length;
// the struct itself does not enforce that.
type Direction struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Unit axes.
var (
	XDir = Direction{X: 1}
	YDir = Direction{Y: 1}
	ZDir = Direction{Z: 1}
)

// NewDirection returns the unit direction of (x, y, z).
func NewDirection(x, y, z float64) (Direction, error) {
	v := vec3.T{x, y, z}
	if !isFinite(x) || !isFinite(y) || !isFinite(z) {
		return Direction{}, &ConstructionError{Field: "direction", Value: v, Reason: "non-finite component"}
	}
	l := v.Length()
	if l < 1e-12 {
		return Direction{}, &ConstructionError{Field: "direction", Value: v, Reason: "zero length"}
	}
	return Direction{X: x / l, Y: y / l, Z: z / l}, nil
}

// MustDirection is NewDirection for literals known to be valid.
func MustDirection(x, y, z float64) Direction {
	d, err := NewDirection(x, y, z)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Direction) vec() vec3.T { return vec3.T{d.X, d.Y, d.Z} }

func directionOf(v vec3.T) Direction { return Direction{X: v[0], Y: v[1], Z: v[2]} }

// Dot returns the scalar product.
func (d Direction) Dot(o Direction) float64 {
	a, b := d.vec(), o.vec()
	return vec3.Dot(&a, &b)
}

// Cross returns the vector product (not normalized).
func (d Direction) Cross(o Direction) Direction {
	a, b := d.vec(), o.vec()
	return directionOf(vec3.Cross(&a, &b))
}

// Neg returns the reversed direction.
func (d Direction) Neg() Direction { return Direction{-d.X, -d.Y, -d.Z} }

// Length returns the vector length.
func (d Direction) Length() float64 {
	v := d.vec()
	return v.Length()
}

// Normalized returns d scaled to unit length. The zero vector is returned unchanged.
func (d Direction) Normalized() Direction {
	v := d.vec()
	if v.Length() == 0 {
		return d
	}
	return directionOf(v.Normalized())
}

// Scale returns d * f as a point offset.
func (d Direction) Scale(f float64) Point {
	v := d.vec()
	return pointOf(v.Scaled(f))
}

// IsEqual compares components with tolerance.
func (d Direction) IsEqual(o Direction, tol float64) bool {
	return math.Abs(d.X-o.X) <= tol && math.Abs(d.Y-o.Y) <= tol && math.Abs(d.Z-o.Z) <= tol
}

// IsFinite reports whether no component is NaN or infinite.
func (d Direction) IsFinite() bool {
	return isFinite(d.X) && isFinite(d.Y) && isFinite(d.Z)
}

// AsPoint returns the direction components as a point.
func (d Direction) AsPoint() Point { return Point{d.X, d.Y, d.Z} }

// DirectionFrom returns the unit direction from a to b.
func DirectionFrom(a, b Point) (Direction, error) {
	v := b.Sub(a)
	return NewDirection(v.X, v.Y, v.Z)
}

func (d Direction) String() string {
	return fmt.Sprintf("<%g, %g, %g>", d.X, d.Y, d.Z)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func checkPoint(field string, p Point) error {
	if !p.IsFinite() {
		return &ConstructionError{Field: field, Value: p, Reason: "non-finite coordinate"}
	}
	return nil
}

func checkPositive(field string, v float64) error {
	if !isFinite(v) {
		return &ConstructionError{Field: field, Value: v, Reason: "not finite"}
	}
	if v <= 0 {
		return &ConstructionError{Field: field, Value: v, Reason: "must be positive"}
	}
	return nil
}
