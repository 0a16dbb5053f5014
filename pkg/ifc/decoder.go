package ifc

import (
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/Krande/adapy-sub006/pkg/geom"
	"github.com/Krande/adapy-sub006/pkg/p21"
)

var solidTypes = map[string]bool{
	TypeBlock:                 true,
	TypeSphere:                true,
	TypeCylinder:              true,
	TypeCone:                  true,
	TypeExtrudedAreaSolid:     true,
	TypeRevolvedAreaSolid:     true,
	TypeCsgSolid:              true,
	TypeBooleanResult:         true,
	TypeBooleanClippingResult: true,
	TypeClosedShell:           true,
	TypeOpenShell:             true,
	TypeAdvancedBrep:          true,
}

// entities whose references do not make an item a sub-item
var containerTypes = map[string]bool{
	TypeStyledItem:           true,
	"IFCSHAPEREPRESENTATION": true,
	"IFCREPRESENTATIONMAP":   true,
}

type style struct {
	name  string
	color *geom.Color
}

// Decoder reads geometry back out of a file.
type Decoder struct {
	f      *p21.File
	styles map[p21.Ref]style
}

// NewDecoder indexes the styled items of f.
func NewDecoder(f *p21.File) *Decoder {
	d := &Decoder{f: f, styles: make(map[p21.Ref]style)}
	for _, si := range f.ByType(TypeStyledItem) {
		item, err := p21.AsRef(si.Param(0))
		if err != nil {
			continue
		}
		name, _ := p21.AsString(si.Param(2))
		st := style{name: name}
		if refs, err := p21.AsRefs(si.Param(1)); err == nil {
			st.color = d.findColor(refs, 0)
		}
		d.styles[item] = st
	}
	return d
}

// findColor walks surface styles (optionally wrapped in presentation
// style assignments) to the first shading colour.
func (d *Decoder) findColor(refs []p21.Ref, depth int) *geom.Color {
	if depth > 3 {
		return nil
	}
	for _, r := range refs {
		e, ok := d.f.Get(r)
		if !ok {
			continue
		}
		switch e.Type {
		case TypePresentationStyleAssign:
			if inner, err := p21.AsRefs(e.Param(0)); err == nil {
				if c := d.findColor(inner, depth+1); c != nil {
					return c
				}
			}
		case TypeSurfaceStyle:
			if inner, err := p21.AsRefs(e.Param(2)); err == nil {
				if c := d.findColor(inner, depth+1); c != nil {
					return c
				}
			}
		case TypeSurfaceStyleShading, TypeSurfaceStyleRendering:
			rgbRef, err := p21.AsRef(e.Param(0))
			if err != nil {
				continue
			}
			rgb, ok := d.f.Get(rgbRef)
			if !ok || rgb.Type != TypeColourRGB {
				continue
			}
			c := geom.Color{Opacity: 1}
			c.R, _ = p21.AsFloat(rgb.Param(1))
			c.G, _ = p21.AsFloat(rgb.Param(2))
			c.B, _ = p21.AsFloat(rgb.Param(3))
			if t, err := p21.AsFloat(e.Param(1)); err == nil {
				c.Opacity = 1 - t
			}
			return &c
		}
	}
	return nil
}

// Solids returns the top-level geometric items in file order: solids and
// shells that no other geometric entity uses as an operand or part.
func (d *Decoder) Solids() []p21.Ref {
	used := make(map[p21.Ref]bool)
	for _, e := range d.f.Entities() {
		if containerTypes[e.Type] {
			continue
		}
		for _, p := range e.Params {
			markRefs(p, used)
		}
	}
	items := lo.Filter(d.f.Entities(), func(e *p21.Entity, _ int) bool {
		return solidTypes[e.Type] && !used[e.ID]
	})
	return lo.Map(items, func(e *p21.Entity, _ int) p21.Ref { return e.ID })
}

func markRefs(p p21.Param, used map[p21.Ref]bool) {
	switch v := p.(type) {
	case p21.Ref:
		used[v] = true
	case p21.List:
		for _, x := range v {
			markRefs(x, used)
		}
	case p21.Typed:
		markRefs(v.Value, used)
	}
}

// DecodeAll decodes every top-level item.
func (d *Decoder) DecodeAll() ([]geom.Geometry, error) {
	var out []geom.Geometry
	for _, r := range d.Solids() {
		g, err := d.DecodeGeometry(r)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

// DecodeGeometry decodes the item at ref. A left-deep chain of boolean
// results is unfolded into the base shape plus an ordered operation list,
// so that it re-encodes to the same chain. Id and color come from the
// styled item pointing at ref, if any.
func (d *Decoder) DecodeGeometry(ref p21.Ref) (geom.Geometry, error) {
	e, err := d.f.MustGet(ref)
	if err != nil {
		return geom.Geometry{}, fmt.Errorf("ifc: %w", err)
	}
	var chain []*p21.Entity
	for e.Type == TypeBooleanResult || e.Type == TypeBooleanClippingResult {
		chain = append(chain, e)
		first, err := d.ref(e, 1)
		if err != nil {
			return geom.Geometry{}, err
		}
		if e, err = d.f.MustGet(first); err != nil {
			return geom.Geometry{}, fmt.Errorf("ifc: %w", err)
		}
	}
	shape, err := d.decodeShape(e)
	if err != nil {
		return geom.Geometry{}, err
	}
	g := geom.Geometry{Shape: shape}
	for i := len(chain) - 1; i >= 0; i-- {
		op, err := d.operator(chain[i])
		if err != nil {
			return geom.Geometry{}, err
		}
		second, err := d.ref(chain[i], 2)
		if err != nil {
			return geom.Geometry{}, err
		}
		operand, err := d.DecodeGeometry(second)
		if err != nil {
			return geom.Geometry{}, fmt.Errorf("ifc: operand of #%d: %w", int(chain[i].ID), err)
		}
		g.BoolOperations = append(g.BoolOperations, geom.BooleanOperation{Operand: operand, Operator: op})
	}
	if st, ok := d.styles[ref]; ok {
		g.ID = st.name
		g.Color = st.color
	}
	return g, nil
}

func (d *Decoder) decodeShape(e *p21.Entity) (geom.Shape, error) {
	switch e.Type {
	case TypeClosedShell, TypeOpenShell:
		return d.decodeShell(e)
	case TypeAdvancedBrep:
		r, err := d.ref(e, 0)
		if err != nil {
			return nil, err
		}
		se, err := d.get(r)
		if err != nil {
			return nil, err
		}
		return d.decodeShell(se)
	}
	return d.decodeSolid(e)
}

// DecodeSolid decodes a solid entity. Boolean results become explicit
// BooleanResult trees.
func (d *Decoder) DecodeSolid(ref p21.Ref) (geom.Solid, error) {
	e, err := d.get(ref)
	if err != nil {
		return nil, err
	}
	return d.decodeSolid(e)
}

func (d *Decoder) decodeSolid(e *p21.Entity) (geom.Solid, error) {
	s, err := d.decodeSolidUnwrapped(e)
	if err != nil {
		var ce *geom.ConstructionError
		if errors.As(err, &ce) {
			return nil, fmt.Errorf("ifc: #%d %s: %w", int(e.ID), e.Type, err)
		}
		return nil, err
	}
	return s, nil
}

func (d *Decoder) decodeSolidUnwrapped(e *p21.Entity) (geom.Solid, error) {
	switch e.Type {
	case TypeBlock:
		pos, err := d.placementAt(e, 0)
		if err != nil {
			return nil, err
		}
		x, y, z, err := d.reals3(e, 1)
		if err != nil {
			return nil, err
		}
		return geom.NewBox(pos, x, y, z)
	case TypeSphere:
		pos, err := d.placementAt(e, 0)
		if err != nil {
			return nil, err
		}
		r, err := d.real(e, 1)
		if err != nil {
			return nil, err
		}
		return geom.NewSphere(pos.Location, r)
	case TypeCylinder, TypeCone:
		pos, err := d.placementAt(e, 0)
		if err != nil {
			return nil, err
		}
		h, err := d.real(e, 1)
		if err != nil {
			return nil, err
		}
		r, err := d.real(e, 2)
		if err != nil {
			return nil, err
		}
		if e.Type == TypeCone {
			return geom.NewCone(pos, h, r)
		}
		return geom.NewCylinder(pos, h, r)
	case TypeExtrudedAreaSolid:
		profile, err := d.profileAt(e, 0)
		if err != nil {
			return nil, err
		}
		pos, err := d.placementAt(e, 1)
		if err != nil {
			return nil, err
		}
		dir, err := d.directionAt(e, 2)
		if err != nil {
			return nil, err
		}
		depth, err := d.real(e, 3)
		if err != nil {
			return nil, err
		}
		return geom.NewExtrudedAreaSolid(profile, pos, dir, depth)
	case TypeRevolvedAreaSolid:
		profile, err := d.profileAt(e, 0)
		if err != nil {
			return nil, err
		}
		pos, err := d.placementAt(e, 1)
		if err != nil {
			return nil, err
		}
		axRef, err := d.ref(e, 2)
		if err != nil {
			return nil, err
		}
		ax, err := d.get(axRef)
		if err != nil {
			return nil, err
		}
		if ax.Type != TypeAxis1Placement {
			return nil, &UnsupportedEntityError{Type: ax.Type, Ref: ax.ID, Want: "axis"}
		}
		loc, err := d.pointAt(ax, 0)
		if err != nil {
			return nil, err
		}
		dir, err := d.directionAt(ax, 1)
		if err != nil {
			return nil, err
		}
		angle, err := d.real(e, 3)
		if err != nil {
			return nil, err
		}
		return geom.NewRevolvedAreaSolid(profile, pos, geom.Axis1Placement{Location: loc, Axis: dir}, angle)
	case TypeCsgSolid:
		r, err := d.ref(e, 0)
		if err != nil {
			return nil, err
		}
		root, err := d.DecodeSolid(r)
		if err != nil {
			return nil, err
		}
		br, ok := root.(geom.BooleanResult)
		if !ok {
			return nil, &UnableToCreateSolidGeomError{Type: e.Type, Ref: e.ID}
		}
		return geom.CsgSolid{TreeRoot: br}, nil
	case TypeBooleanResult, TypeBooleanClippingResult:
		op, err := d.operator(e)
		if err != nil {
			return nil, err
		}
		a, err := d.ref(e, 1)
		if err != nil {
			return nil, err
		}
		b, err := d.ref(e, 2)
		if err != nil {
			return nil, err
		}
		first, err := d.DecodeSolid(a)
		if err != nil {
			return nil, err
		}
		second, err := d.DecodeSolid(b)
		if err != nil {
			return nil, err
		}
		return geom.NewBooleanResult(op, first, second)
	}
	return nil, &UnableToCreateSolidGeomError{Type: e.Type, Ref: e.ID}
}

func (d *Decoder) operator(e *p21.Entity) (geom.BoolOpType, error) {
	name, err := p21.AsEnum(e.Param(0))
	if err != nil {
		return 0, fmt.Errorf("ifc: #%d operator: %w", int(e.ID), err)
	}
	op, err := geom.ParseBoolOp(name)
	if err != nil {
		return 0, fmt.Errorf("ifc: #%d: %w", int(e.ID), err)
	}
	return op, nil
}

// ---------------------------------------------------------------------------
// Parameter helpers
// ---------------------------------------------------------------------------

func (d *Decoder) get(r p21.Ref) (*p21.Entity, error) {
	e, err := d.f.MustGet(r)
	if err != nil {
		return nil, fmt.Errorf("ifc: %w", err)
	}
	return e, nil
}

func (d *Decoder) ref(e *p21.Entity, i int) (p21.Ref, error) {
	r, err := p21.AsRef(e.Param(i))
	if err != nil {
		return 0, fmt.Errorf("ifc: #%d %s parameter %d: %w", int(e.ID), e.Type, i, err)
	}
	return r, nil
}

func (d *Decoder) real(e *p21.Entity, i int) (float64, error) {
	v, err := p21.AsFloat(e.Param(i))
	if err != nil {
		return 0, fmt.Errorf("ifc: #%d %s parameter %d: %w", int(e.ID), e.Type, i, err)
	}
	return v, nil
}

func (d *Decoder) reals3(e *p21.Entity, i int) (float64, float64, float64, error) {
	var out [3]float64
	for k := range out {
		v, err := d.real(e, i+k)
		if err != nil {
			return 0, 0, 0, err
		}
		out[k] = v
	}
	return out[0], out[1], out[2], nil
}

func (d *Decoder) boolean(e *p21.Entity, i int) (bool, error) {
	if p21.IsUnset(e.Param(i)) {
		return false, nil
	}
	v, err := p21.AsBool(e.Param(i))
	if err != nil {
		return false, fmt.Errorf("ifc: #%d %s parameter %d: %w", int(e.ID), e.Type, i, err)
	}
	return v, nil
}

func coordsToPoint(xs []float64) (geom.Point, error) {
	switch len(xs) {
	case 2:
		return geom.P2(xs[0], xs[1]), nil
	case 3:
		return geom.P(xs[0], xs[1], xs[2]), nil
	}
	return geom.Point{}, fmt.Errorf("ifc: %d coordinates", len(xs))
}

// Point decodes an IFCCARTESIANPOINT. 2D points get Z == 0.
func (d *Decoder) Point(r p21.Ref) (geom.Point, error) {
	e, err := d.get(r)
	if err != nil {
		return geom.Point{}, err
	}
	if e.Type != TypeCartesianPoint {
		return geom.Point{}, &UnsupportedEntityError{Type: e.Type, Ref: e.ID, Want: "point"}
	}
	xs, err := p21.AsFloats(e.Param(0))
	if err != nil {
		return geom.Point{}, fmt.Errorf("ifc: #%d: %w", int(e.ID), err)
	}
	p, err := coordsToPoint(xs)
	if err != nil {
		return geom.Point{}, fmt.Errorf("%w in #%d", err, int(e.ID))
	}
	return p, nil
}

func (d *Decoder) pointAt(e *p21.Entity, i int) (geom.Point, error) {
	r, err := d.ref(e, i)
	if err != nil {
		return geom.Point{}, err
	}
	return d.Point(r)
}

// Direction decodes an IFCDIRECTION, normalizing it.
func (d *Decoder) Direction(r p21.Ref) (geom.Direction, error) {
	e, err := d.get(r)
	if err != nil {
		return geom.Direction{}, err
	}
	if e.Type != TypeDirection {
		return geom.Direction{}, &UnsupportedEntityError{Type: e.Type, Ref: e.ID, Want: "direction"}
	}
	xs, err := p21.AsFloats(e.Param(0))
	if err != nil {
		return geom.Direction{}, fmt.Errorf("ifc: #%d: %w", int(e.ID), err)
	}
	p, err := coordsToPoint(xs)
	if err != nil {
		return geom.Direction{}, fmt.Errorf("%w in #%d", err, int(e.ID))
	}
	dir, err := geom.NewDirection(p.X, p.Y, p.Z)
	if err != nil {
		return geom.Direction{}, fmt.Errorf("ifc: #%d: %w", int(e.ID), err)
	}
	return dir, nil
}

func (d *Decoder) directionAt(e *p21.Entity, i int) (geom.Direction, error) {
	r, err := d.ref(e, i)
	if err != nil {
		return geom.Direction{}, err
	}
	return d.Direction(r)
}

// Placement decodes a 2D or 3D axis placement. Omitted directions take
// the global defaults. Slightly skewed frames written by other tools are
// orthonormalized instead of rejected.
func (d *Decoder) Placement(r p21.Ref) (geom.Placement, error) {
	e, err := d.get(r)
	if err != nil {
		return geom.Placement{}, err
	}
	loc, err := d.pointAt(e, 0)
	if err != nil {
		return geom.Placement{}, err
	}
	axis, ref := geom.ZDir, geom.XDir
	switch e.Type {
	case TypeAxis2Placement3D:
		if !p21.IsUnset(e.Param(1)) {
			if axis, err = d.directionAt(e, 1); err != nil {
				return geom.Placement{}, err
			}
		}
		if !p21.IsUnset(e.Param(2)) {
			if ref, err = d.directionAt(e, 2); err != nil {
				return geom.Placement{}, err
			}
		}
	case TypeAxis2Placement2D:
		if !p21.IsUnset(e.Param(1)) {
			if ref, err = d.directionAt(e, 1); err != nil {
				return geom.Placement{}, err
			}
		}
	default:
		return geom.Placement{}, &UnsupportedEntityError{Type: e.Type, Ref: e.ID, Want: "placement"}
	}
	p, err := geom.NewPlacement(loc, axis, ref)
	if err != nil {
		p, err = geom.Placement{Location: loc, Axis: axis, RefDirection: ref}.Orthonormalize()
		if err != nil {
			return geom.Placement{}, fmt.Errorf("ifc: #%d: %w", int(e.ID), err)
		}
	}
	return p, nil
}

func (d *Decoder) placementAt(e *p21.Entity, i int) (geom.Placement, error) {
	if p21.IsUnset(e.Param(i)) {
		return geom.DefaultPlacement(), nil
	}
	r, err := d.ref(e, i)
	if err != nil {
		return geom.Placement{}, err
	}
	return d.Placement(r)
}
