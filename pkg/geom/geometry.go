package geom

import (
	"fmt"
)

// Color is an RGB surface color with opacity, components in [0, 1].
type Color struct {
	R       float64 `json:"r"`
	G       float64 `json:"g"`
	B       float64 `json:"b"`
	Opacity float64 `json:"opacity"`
}

// NewColor validates the component ranges.
func NewColor(r, g, b, opacity float64) (Color, error) {
	for _, f := range []struct {
		name string
		v    float64
	}{{"color.r", r}, {"color.g", g}, {"color.b", b}, {"color.opacity", opacity}} {
		if !isFinite(f.v) || f.v < 0 || f.v > 1 {
			return Color{}, &ConstructionError{Field: f.name, Value: f.v, Reason: "must be in [0, 1]"}
		}
	}
	return Color{R: r, G: g, B: b, Opacity: opacity}, nil
}

// Transparency is 1 - Opacity, as written to exchange formats.
func (c Color) Transparency() float64 { return 1 - c.Opacity }

// Geometry wraps a shape with an identifier, an optional color and an
// ordered list of boolean operations applied to it. Geometry values are
// immutable: AddBoolean and Clone return new values and never share the
// operation list.
type Geometry struct {
	ID             string             `json:"id"`
	Shape          Shape              `json:"shape"`
	Color          *Color             `json:"color,omitempty"`
	BoolOperations []BooleanOperation `json:"bool_operations,omitempty"`
}

// NewGeometry wraps shape. The id may be empty; encoders then assign one.
func NewGeometry(id string, shape Shape, color *Color) (Geometry, error) {
	if shape == nil {
		return Geometry{}, &ConstructionError{Field: "geometry.shape", Reason: "missing shape"}
	}
	g := Geometry{ID: id, Shape: shape}
	if color != nil {
		c := *color
		g.Color = &c
	}
	return g, nil
}

// MustGeometry is NewGeometry for shapes built by validated constructors.
func MustGeometry(id string, shape Shape) Geometry {
	g, err := NewGeometry(id, shape, nil)
	if err != nil {
		panic(err)
	}
	return g
}

// AddBoolean returns a copy of g with one operation appended. Existing
// operations keep their order. An unknown operator is a
// *ConstructionError and g is returned unchanged.
func (g Geometry) AddBoolean(operand Geometry, op BoolOpType) (Geometry, error) {
	if !op.Valid() {
		return g, &ConstructionError{Field: "boolean.operator", Value: op, Reason: "unknown operator"}
	}
	out := g.Clone()
	out.BoolOperations = append(out.BoolOperations, BooleanOperation{Operand: operand.Clone(), Operator: op})
	return out, nil
}

// Effective returns the shape after applying every boolean operation left
// to right. Without operations it is Shape itself.
func (g Geometry) Effective() (Shape, error) {
	if len(g.BoolOperations) == 0 {
		if g.Shape == nil {
			return nil, &ConstructionError{Field: "geometry.shape", Value: g.ID, Reason: "missing shape"}
		}
		return g.Shape, nil
	}
	base, ok := g.Shape.(Solid)
	if !ok {
		return nil, &ConstructionError{Field: "geometry.shape", Value: ShapeName(g.Shape), Reason: "boolean base is not a solid"}
	}
	s, err := Fold(base, g.BoolOperations)
	if err != nil {
		return nil, fmt.Errorf("geom: geometry %q: %w", g.ID, err)
	}
	return s, nil
}

// EffectiveSolid is Effective restricted to solid results.
func (g Geometry) EffectiveSolid() (Solid, error) {
	s, err := g.Effective()
	if err != nil {
		return nil, err
	}
	solid, ok := s.(Solid)
	if !ok {
		return nil, &ConstructionError{Field: "geometry.shape", Value: ShapeName(s), Reason: "not a solid"}
	}
	return solid, nil
}

// Clone deep-copies the color and the boolean list, recursively.
func (g Geometry) Clone() Geometry {
	out := Geometry{ID: g.ID, Shape: g.Shape}
	if g.Color != nil {
		c := *g.Color
		out.Color = &c
	}
	if len(g.BoolOperations) > 0 {
		out.BoolOperations = make([]BooleanOperation, len(g.BoolOperations))
		for i, op := range g.BoolOperations {
			out.BoolOperations[i] = BooleanOperation{Operand: op.Operand.Clone(), Operator: op.Operator}
		}
	}
	return out
}
