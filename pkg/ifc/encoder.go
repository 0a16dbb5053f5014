// Package ifc maps the neutral geometry model onto IFC geometric
// representation entities stored in a p21.File, and back.
//
// The mapping is deterministic: encoding the same Geometry into an
// empty file always produces the same entity table. Boolean operation
// lists become left-deep IFCBOOLEANRESULT chains evaluated from the base
// solid outwards, and geometry ids and colors travel on IFCSTYLEDITEM.
package ifc

import (
	"fmt"
	"io"
	"strings"

	"github.com/Krande/adapy-sub006/pkg/config"
	"github.com/Krande/adapy-sub006/pkg/geom"
	"github.com/Krande/adapy-sub006/pkg/p21"
)

// Entity type names.
const (
	TypeCartesianPoint          = "IFCCARTESIANPOINT"
	TypeCartesianPointList2D    = "IFCCARTESIANPOINTLIST2D"
	TypeCartesianPointList3D    = "IFCCARTESIANPOINTLIST3D"
	TypeDirection               = "IFCDIRECTION"
	TypeAxis1Placement          = "IFCAXIS1PLACEMENT"
	TypeAxis2Placement2D        = "IFCAXIS2PLACEMENT2D"
	TypeAxis2Placement3D        = "IFCAXIS2PLACEMENT3D"
	TypePolyline                = "IFCPOLYLINE"
	TypeCircle                  = "IFCCIRCLE"
	TypeIndexedPolyCurve        = "IFCINDEXEDPOLYCURVE"
	TypeLineIndex               = "IFCLINEINDEX"
	TypeArcIndex                = "IFCARCINDEX"
	TypeBSplineCurve            = "IFCBSPLINECURVEWITHKNOTS"
	TypeRationalBSplineCurve    = "IFCRATIONALBSPLINECURVEWITHKNOTS"
	TypePlane                   = "IFCPLANE"
	TypeCylindricalSurface      = "IFCCYLINDRICALSURFACE"
	TypeBSplineSurface          = "IFCBSPLINESURFACEWITHKNOTS"
	TypeRationalBSplineSurface  = "IFCRATIONALBSPLINESURFACEWITHKNOTS"
	TypeClosedProfile           = "IFCARBITRARYCLOSEDPROFILEDEF"
	TypeProfileWithVoids        = "IFCARBITRARYPROFILEDEFWITHVOIDS"
	TypeBlock                   = "IFCBLOCK"
	TypeSphere                  = "IFCSPHERE"
	TypeCylinder                = "IFCRIGHTCIRCULARCYLINDER"
	TypeCone                    = "IFCRIGHTCIRCULARCONE"
	TypeExtrudedAreaSolid       = "IFCEXTRUDEDAREASOLID"
	TypeRevolvedAreaSolid       = "IFCREVOLVEDAREASOLID"
	TypeCsgSolid                = "IFCCSGSOLID"
	TypeBooleanResult           = "IFCBOOLEANRESULT"
	TypeBooleanClippingResult   = "IFCBOOLEANCLIPPINGRESULT"
	TypeVertexPoint             = "IFCVERTEXPOINT"
	TypeEdgeCurve               = "IFCEDGECURVE"
	TypeOrientedEdge            = "IFCORIENTEDEDGE"
	TypeEdgeLoop                = "IFCEDGELOOP"
	TypeFaceOuterBound          = "IFCFACEOUTERBOUND"
	TypeFaceBound               = "IFCFACEBOUND"
	TypeAdvancedFace            = "IFCADVANCEDFACE"
	TypeFaceSurface             = "IFCFACESURFACE"
	TypeClosedShell             = "IFCCLOSEDSHELL"
	TypeOpenShell               = "IFCOPENSHELL"
	TypeAdvancedBrep            = "IFCADVANCEDBREP"
	TypeColourRGB               = "IFCCOLOURRGB"
	TypeSurfaceStyleShading     = "IFCSURFACESTYLESHADING"
	TypeSurfaceStyleRendering   = "IFCSURFACESTYLERENDERING"
	TypeSurfaceStyle            = "IFCSURFACESTYLE"
	TypePresentationStyleAssign = "IFCPRESENTATIONSTYLEASSIGNMENT"
	TypeStyledItem              = "IFCSTYLEDITEM"
)

// NewFile returns an empty exchange file with the header filled from cfg.
func NewFile(cfg config.Codec) *p21.File {
	f := p21.NewFile(cfg.Schema)
	if cfg.Author != "" {
		f.Header.Author = []string{cfg.Author}
	}
	if cfg.Organization != "" {
		f.Header.Organization = []string{cfg.Organization}
	}
	f.Header.PreprocessorVersion = "adacore"
	f.Header.OriginatingSystem = "adacore"
	return f
}

// WriteFile serializes f with the real precision from cfg.
func WriteFile(w io.Writer, f *p21.File, cfg config.Codec) error {
	return p21.Write(w, f, p21.WriteOptions{Precision: cfg.Precision})
}

// Encoder appends geometry entities to a file. Identical points,
// directions and topological vertices are written once and shared.
type Encoder struct {
	f        *p21.File
	cfg      config.Codec
	points   map[[4]float64]p21.Ref
	dirs     map[[4]float64]p21.Ref
	vertices map[geom.Point]p21.Ref
}

// NewEncoder returns an encoder writing into f.
func NewEncoder(f *p21.File, cfg config.Codec) *Encoder {
	return &Encoder{
		f:        f,
		cfg:      cfg,
		points:   make(map[[4]float64]p21.Ref),
		dirs:     make(map[[4]float64]p21.Ref),
		vertices: make(map[geom.Point]p21.Ref),
	}
}

// File returns the file being written.
func (e *Encoder) File() *p21.File { return e.f }

// EncodeGeometry writes g and returns the reference of its geometric
// representation item: the base shape, or the outermost IFCBOOLEANRESULT
// when g carries boolean operations. When styled items are enabled and g
// has an id or a color, an IFCSTYLEDITEM pointing at the item is added.
func (e *Encoder) EncodeGeometry(g geom.Geometry) (p21.Ref, error) {
	item, err := e.encodeItem(g)
	if err != nil {
		if g.ID != "" {
			return 0, fmt.Errorf("ifc: geometry %q: %w", g.ID, err)
		}
		return 0, err
	}
	if e.cfg.StyledItems && (g.ID != "" || g.Color != nil) {
		e.encodeStyle(item, g)
	}
	return item, nil
}

func (e *Encoder) encodeItem(g geom.Geometry) (p21.Ref, error) {
	if g.Shape == nil {
		return 0, &geom.ConstructionError{Field: "geometry.shape", Value: g.ID, Reason: "missing shape"}
	}
	if len(g.BoolOperations) > 0 {
		if _, ok := g.Shape.(geom.Solid); !ok {
			return 0, fmt.Errorf("boolean base is a %s, not a solid", geom.ShapeName(g.Shape))
		}
	}
	item, err := e.EncodeShape(g.Shape)
	if err != nil {
		return 0, err
	}
	for i, op := range g.BoolOperations {
		operand, err := e.EncodeGeometry(op.Operand)
		if err != nil {
			return 0, fmt.Errorf("boolean operation %d: %w", i, err)
		}
		if !op.Operator.Valid() {
			return 0, fmt.Errorf("boolean operation %d: invalid operator %v", i, op.Operator)
		}
		item = e.f.Add(TypeBooleanResult, p21.Enum(op.Operator.String()), item, operand)
	}
	return item, nil
}

func (e *Encoder) encodeStyle(item p21.Ref, g geom.Geometry) p21.Ref {
	var styles p21.List
	if c := g.Color; c != nil {
		rgb := e.f.Add(TypeColourRGB, p21.Unset{}, p21.Real(c.R), p21.Real(c.G), p21.Real(c.B))
		shading := e.f.Add(TypeSurfaceStyleShading, rgb, p21.Real(c.Transparency()))
		styles = append(styles, e.f.Add(TypeSurfaceStyle, p21.Unset{}, p21.Enum("BOTH"), p21.Refs(shading)))
	}
	name := p21.Param(p21.Unset{})
	if g.ID != "" {
		name = p21.String(g.ID)
	}
	if styles == nil {
		styles = p21.List{}
	}
	return e.f.Add(TypeStyledItem, item, styles, name)
}

// EncodeShape writes a solid or shell.
func (e *Encoder) EncodeShape(s geom.Shape) (p21.Ref, error) {
	switch s := s.(type) {
	case geom.Shell:
		return e.EncodeShell(s)
	case geom.Solid:
		return e.EncodeSolid(s)
	}
	return 0, fmt.Errorf("ifc: cannot encode shape %s", geom.ShapeName(s))
}

// EncodeSolid writes one solid variant.
func (e *Encoder) EncodeSolid(s geom.Solid) (p21.Ref, error) {
	switch s := s.(type) {
	case geom.Box:
		return e.f.Add(TypeBlock, e.EncodePlacement(s.Position),
			p21.Real(s.XLength), p21.Real(s.YLength), p21.Real(s.ZLength)), nil
	case geom.Sphere:
		return e.f.Add(TypeSphere, e.EncodePlacement(geom.PlacementAt(s.Center)), p21.Real(s.Radius)), nil
	case geom.Cylinder:
		return e.f.Add(TypeCylinder, e.EncodePlacement(s.Position), p21.Real(s.Height), p21.Real(s.Radius)), nil
	case geom.Cone:
		return e.f.Add(TypeCone, e.EncodePlacement(s.Position), p21.Real(s.Height), p21.Real(s.BottomRadius)), nil
	case geom.ExtrudedAreaSolid:
		profile, err := e.EncodeProfile(s.SweptArea)
		if err != nil {
			return 0, err
		}
		return e.f.Add(TypeExtrudedAreaSolid, profile, e.EncodePlacement(s.Position),
			e.EncodeDirection(s.ExtrudedDirection), p21.Real(s.Depth)), nil
	case geom.RevolvedAreaSolid:
		profile, err := e.EncodeProfile(s.SweptArea)
		if err != nil {
			return 0, err
		}
		axis := e.f.Add(TypeAxis1Placement, e.EncodePoint(s.Axis.Location), e.EncodeDirection(s.Axis.Axis))
		return e.f.Add(TypeRevolvedAreaSolid, profile, e.EncodePlacement(s.Position), axis, p21.Real(s.Angle)), nil
	case geom.CsgSolid:
		root, err := e.EncodeSolid(s.TreeRoot)
		if err != nil {
			return 0, err
		}
		return e.f.Add(TypeCsgSolid, root), nil
	case geom.BooleanResult:
		first, err := e.EncodeSolid(s.First)
		if err != nil {
			return 0, err
		}
		second, err := e.EncodeSolid(s.Second)
		if err != nil {
			return 0, err
		}
		return e.f.Add(TypeBooleanResult, p21.Enum(s.Operator.String()), first, second), nil
	}
	return 0, fmt.Errorf("ifc: cannot encode solid %s", geom.ShapeName(s))
}

// ---------------------------------------------------------------------------
// Points, directions, placements
// ---------------------------------------------------------------------------

// EncodePoint writes a 3D cartesian point.
func (e *Encoder) EncodePoint(p geom.Point) p21.Ref {
	key := [4]float64{p.X, p.Y, p.Z, 3}
	if r, ok := e.points[key]; ok {
		return r
	}
	r := e.f.Add(TypeCartesianPoint, p21.Reals(p.X, p.Y, p.Z))
	e.points[key] = r
	return r
}

// EncodePoint2D writes a 2D cartesian point, dropping Z.
func (e *Encoder) EncodePoint2D(p geom.Point) p21.Ref {
	key := [4]float64{p.X, p.Y, 0, 2}
	if r, ok := e.points[key]; ok {
		return r
	}
	r := e.f.Add(TypeCartesianPoint, p21.Reals(p.X, p.Y))
	e.points[key] = r
	return r
}

// EncodeDirection writes a 3D direction.
func (e *Encoder) EncodeDirection(d geom.Direction) p21.Ref {
	key := [4]float64{d.X, d.Y, d.Z, 3}
	if r, ok := e.dirs[key]; ok {
		return r
	}
	r := e.f.Add(TypeDirection, p21.Reals(d.X, d.Y, d.Z))
	e.dirs[key] = r
	return r
}

func (e *Encoder) encodeDirection2D(d geom.Direction) p21.Ref {
	key := [4]float64{d.X, d.Y, 0, 2}
	if r, ok := e.dirs[key]; ok {
		return r
	}
	r := e.f.Add(TypeDirection, p21.Reals(d.X, d.Y))
	e.dirs[key] = r
	return r
}

// EncodePlacement writes an IFCAXIS2PLACEMENT3D with both directions
// explicit.
func (e *Encoder) EncodePlacement(p geom.Placement) p21.Ref {
	return e.f.Add(TypeAxis2Placement3D, e.EncodePoint(p.Location), e.EncodeDirection(p.Axis), e.EncodeDirection(p.RefDirection))
}

// inPlane reports whether p lies in and is aligned with the XY plane, so
// that it can be written as a 2D placement.
func inPlane(p geom.Placement) bool {
	return p.Location.Z == 0 && p.Axis == geom.ZDir && p.RefDirection.Z == 0
}

func (e *Encoder) encodePlacement2D(p geom.Placement) p21.Ref {
	return e.f.Add(TypeAxis2Placement2D, e.EncodePoint2D(p.Location), e.encodeDirection2D(p.RefDirection))
}

// ---------------------------------------------------------------------------
// Curves and profiles
// ---------------------------------------------------------------------------

// EncodeProfile writes a closed profile, with voids when it has inner
// curves.
func (e *Encoder) EncodeProfile(p geom.ArbitraryProfileDef) (p21.Ref, error) {
	outer, err := e.EncodeCurve(p.OuterCurve)
	if err != nil {
		return 0, fmt.Errorf("ifc: profile outer curve: %w", err)
	}
	name := p21.Param(p21.Unset{})
	if p.Name != "" {
		name = p21.String(p.Name)
	}
	ptype := p21.Enum(p.ProfileType.String())
	if !p.HasVoids() {
		return e.f.Add(TypeClosedProfile, ptype, name, outer), nil
	}
	inner := make([]p21.Ref, len(p.InnerCurves))
	for i, c := range p.InnerCurves {
		if inner[i], err = e.EncodeCurve(c); err != nil {
			return 0, fmt.Errorf("ifc: profile inner curve %d: %w", i, err)
		}
	}
	return e.f.Add(TypeProfileWithVoids, ptype, name, outer, p21.Refs(inner...)), nil
}

// EncodeCurve writes one curve variant. Curves whose points all lie at
// z = 0 are written with 2D points, as profile curves are. An ArcLine has no
// IFC entity of its own: it is written as a one-segment IFCINDEXEDPOLYCURVE
// and decodes as an IndexedPolyCurve.
func (e *Encoder) EncodeCurve(c geom.Curve) (p21.Ref, error) {
	return e.encodeCurve(c, false)
}

// EncodeEdgeCurve writes the geometry of a face edge. Edge geometry is
// always 3D regardless of where its points lie.
func (e *Encoder) EncodeEdgeCurve(c geom.Curve) (p21.Ref, error) {
	return e.encodeCurve(c, true)
}

func (e *Encoder) encodeCurve(c geom.Curve, space bool) (p21.Ref, error) {
	switch c := c.(type) {
	case geom.Line:
		return e.encodePolyline([]geom.Point{c.Start, c.End}, space), nil
	case geom.Polyline:
		if len(c.Points) < 2 {
			return 0, fmt.Errorf("ifc: polyline with %d points", len(c.Points))
		}
		return e.encodePolyline(c.Points, space), nil
	case geom.ArcLine:
		pc, err := geom.NewIndexedPolyCurve([]geom.Point{c.Start, c.Midpoint, c.End}, []geom.Segment{geom.ArcIndex{I1: 0, I2: 1, I3: 2}})
		if err != nil {
			return 0, err
		}
		return e.encodeIndexedPolyCurve(pc, space), nil
	case geom.Circle:
		var pos p21.Ref
		if !space && inPlane(c.Position) {
			pos = e.encodePlacement2D(c.Position)
		} else {
			pos = e.EncodePlacement(c.Position)
		}
		return e.f.Add(TypeCircle, pos, p21.Real(c.Radius)), nil
	case geom.IndexedPolyCurve:
		return e.encodeIndexedPolyCurve(c, space), nil
	case geom.BSplineCurveWithKnots:
		return e.encodeBSplineCurve(c), nil
	}
	return 0, fmt.Errorf("ifc: cannot encode curve %T", c)
}

// flat reports whether points can be written in 2D.
func flat(points []geom.Point, space bool) bool {
	if space {
		return false
	}
	for _, p := range points {
		if p.Z != 0 {
			return false
		}
	}
	return true
}

func (e *Encoder) encodePolyline(points []geom.Point, space bool) p21.Ref {
	refs := make([]p21.Ref, len(points))
	in2D := flat(points, space)
	for i, p := range points {
		if in2D {
			refs[i] = e.EncodePoint2D(p)
		} else {
			refs[i] = e.EncodePoint(p)
		}
	}
	return e.f.Add(TypePolyline, p21.Refs(refs...))
}

func (e *Encoder) encodePointList(points []geom.Point, space bool) p21.Ref {
	coords := make(p21.List, len(points))
	in2D := flat(points, space)
	for i, p := range points {
		if in2D {
			coords[i] = p21.Reals(p.X, p.Y)
		} else {
			coords[i] = p21.Reals(p.X, p.Y, p.Z)
		}
	}
	typ := TypeCartesianPointList3D
	if in2D {
		typ = TypeCartesianPointList2D
	}
	params := []p21.Param{coords}
	if strings.HasPrefix(strings.ToUpper(e.cfg.Schema), "IFC4X3") {
		// TagList
		params = append(params, p21.Unset{})
	}
	return e.f.Add(typ, params...)
}

func (e *Encoder) encodeIndexedPolyCurve(c geom.IndexedPolyCurve, space bool) p21.Ref {
	segs := make(p21.List, len(c.Segments))
	for i, s := range c.Segments {
		idx := s.Indices()
		oneBased := make([]int, len(idx))
		for j, v := range idx {
			oneBased[j] = v + 1
		}
		name := TypeLineIndex
		if _, ok := s.(geom.ArcIndex); ok {
			name = TypeArcIndex
		}
		segs[i] = p21.Typed{Name: name, Value: p21.Integers(oneBased...)}
	}
	return e.f.Add(TypeIndexedPolyCurve, e.encodePointList(c.Points, space), segs, p21.Bool(c.SelfIntersect))
}

func (e *Encoder) encodeBSplineCurve(c geom.BSplineCurveWithKnots) p21.Ref {
	ctrl := make([]p21.Ref, len(c.ControlPoints))
	for i, p := range c.ControlPoints {
		ctrl[i] = e.EncodePoint(p)
	}
	params := []p21.Param{
		p21.Integer(c.Degree),
		p21.Refs(ctrl...),
		p21.Enum("UNSPECIFIED"),
		p21.Bool(c.ClosedCurve),
		p21.Bool(c.SelfIntersect),
		p21.Integers(c.Multiplicities...),
		p21.Reals(c.Knots...),
		p21.Enum("UNSPECIFIED"),
	}
	if c.Rational() {
		return e.f.Add(TypeRationalBSplineCurve, append(params, p21.Reals(c.Weights...))...)
	}
	return e.f.Add(TypeBSplineCurve, params...)
}

// ---------------------------------------------------------------------------
// Surfaces and topology
// ---------------------------------------------------------------------------

// EncodeSurface writes a face surface.
func (e *Encoder) EncodeSurface(s geom.Surface) (p21.Ref, error) {
	switch s := s.(type) {
	case geom.Plane:
		return e.f.Add(TypePlane, e.EncodePlacement(s.Position)), nil
	case geom.CylindricalSurface:
		return e.f.Add(TypeCylindricalSurface, e.EncodePlacement(s.Position), p21.Real(s.Radius)), nil
	case geom.BSplineSurfaceWithKnots:
		rows := make(p21.List, len(s.ControlPoints))
		for i, row := range s.ControlPoints {
			refs := make([]p21.Ref, len(row))
			for j, p := range row {
				refs[j] = e.EncodePoint(p)
			}
			rows[i] = p21.Refs(refs...)
		}
		params := []p21.Param{
			p21.Integer(s.UDegree),
			p21.Integer(s.VDegree),
			rows,
			p21.Enum("UNSPECIFIED"),
			p21.Bool(s.UClosed),
			p21.Bool(s.VClosed),
			p21.Bool(s.SelfIntersect),
			p21.Integers(s.UMultiplicities...),
			p21.Integers(s.VMultiplicities...),
			p21.Reals(s.UKnots...),
			p21.Reals(s.VKnots...),
			p21.Enum("UNSPECIFIED"),
		}
		if !s.Rational() {
			return e.f.Add(TypeBSplineSurface, params...), nil
		}
		weights := make(p21.List, len(s.Weights))
		for i, row := range s.Weights {
			weights[i] = p21.Reals(row...)
		}
		return e.f.Add(TypeRationalBSplineSurface, append(params, weights)...), nil
	}
	return 0, fmt.Errorf("ifc: cannot encode surface %T", s)
}

func (e *Encoder) encodeVertex(p geom.Point) p21.Ref {
	if r, ok := e.vertices[p]; ok {
		return r
	}
	r := e.f.Add(TypeVertexPoint, e.EncodePoint(p))
	e.vertices[p] = r
	return r
}

// EncodeFace writes an IFCADVANCEDFACE with its bounds.
func (e *Encoder) EncodeFace(face geom.AdvancedFace) (p21.Ref, error) {
	surface, err := e.EncodeSurface(face.Surface)
	if err != nil {
		return 0, err
	}
	bounds := make([]p21.Ref, len(face.Bounds))
	for i, b := range face.Bounds {
		edges := make([]p21.Ref, len(b.Bound.Edges))
		for j, oe := range b.Bound.Edges {
			curve, err := e.EncodeEdgeCurve(oe.Edge.Geometry)
			if err != nil {
				return 0, fmt.Errorf("ifc: face bound %d edge %d: %w", i, j, err)
			}
			ec := e.f.Add(TypeEdgeCurve, e.encodeVertex(oe.Edge.Start), e.encodeVertex(oe.Edge.End), curve, p21.Bool(oe.Edge.SameSense))
			edges[j] = e.f.Add(TypeOrientedEdge, p21.Derived{}, p21.Derived{}, ec, p21.Bool(oe.Orientation))
		}
		loop := e.f.Add(TypeEdgeLoop, p21.Refs(edges...))
		typ := TypeFaceBound
		if b.Outer {
			typ = TypeFaceOuterBound
		}
		bounds[i] = e.f.Add(typ, loop, p21.Bool(b.Orientation))
	}
	return e.f.Add(TypeAdvancedFace, p21.Refs(bounds...), surface, p21.Bool(face.SameSense)), nil
}

// EncodeShell writes a closed or open shell of advanced faces.
func (e *Encoder) EncodeShell(s geom.Shell) (p21.Ref, error) {
	faces := make([]p21.Ref, len(s.Faces))
	for i, f := range s.Faces {
		r, err := e.EncodeFace(f)
		if err != nil {
			return 0, fmt.Errorf("ifc: face %d: %w", i, err)
		}
		faces[i] = r
	}
	if s.Closed {
		return e.f.Add(TypeClosedShell, p21.Refs(faces...)), nil
	}
	return e.f.Add(TypeOpenShell, p21.Refs(faces...)), nil
}
