package ifc

import (
	"fmt"

	"github.com/Krande/adapy-sub006/pkg/geom"
	"github.com/Krande/adapy-sub006/pkg/p21"
)

// Profile decodes an arbitrary closed profile, with or without voids.
func (d *Decoder) Profile(r p21.Ref) (geom.ArbitraryProfileDef, error) {
	e, err := d.get(r)
	if err != nil {
		return geom.ArbitraryProfileDef{}, err
	}
	if e.Type != TypeClosedProfile && e.Type != TypeProfileWithVoids {
		return geom.ArbitraryProfileDef{}, &UnsupportedEntityError{Type: e.Type, Ref: e.ID, Want: "profile"}
	}
	outer, err := d.curveAt(e, 2)
	if err != nil {
		return geom.ArbitraryProfileDef{}, err
	}
	var inner []geom.Curve
	if e.Type == TypeProfileWithVoids {
		refs, err := p21.AsRefs(e.Param(3))
		if err != nil {
			return geom.ArbitraryProfileDef{}, fmt.Errorf("ifc: #%d inner curves: %w", int(e.ID), err)
		}
		for _, ir := range refs {
			c, err := d.Curve(ir)
			if err != nil {
				return geom.ArbitraryProfileDef{}, err
			}
			inner = append(inner, c)
		}
	}
	p, err := geom.NewArbitraryProfile(outer, inner...)
	if err != nil {
		return geom.ArbitraryProfileDef{}, fmt.Errorf("ifc: #%d: %w", int(e.ID), err)
	}
	if ptype, err := p21.AsEnum(e.Param(0)); err == nil && ptype == geom.ProfileCurve.String() {
		p.ProfileType = geom.ProfileCurve
	}
	p.Name, _ = p21.AsString(e.Param(1))
	return p, nil
}

func (d *Decoder) profileAt(e *p21.Entity, i int) (geom.ArbitraryProfileDef, error) {
	r, err := d.ref(e, i)
	if err != nil {
		return geom.ArbitraryProfileDef{}, err
	}
	return d.Profile(r)
}

// Curve decodes a curve entity.
func (d *Decoder) Curve(r p21.Ref) (geom.Curve, error) {
	e, err := d.get(r)
	if err != nil {
		return nil, err
	}
	switch e.Type {
	case TypePolyline:
		refs, err := p21.AsRefs(e.Param(0))
		if err != nil {
			return nil, fmt.Errorf("ifc: #%d points: %w", int(e.ID), err)
		}
		pts := make([]geom.Point, len(refs))
		for i, pr := range refs {
			if pts[i], err = d.Point(pr); err != nil {
				return nil, err
			}
		}
		if len(pts) == 2 {
			return geom.Line{Start: pts[0], End: pts[1]}, nil
		}
		return geom.Polyline{Points: pts}, nil
	case TypeCircle:
		pos, err := d.placementAt(e, 0)
		if err != nil {
			return nil, err
		}
		radius, err := d.real(e, 1)
		if err != nil {
			return nil, err
		}
		return geom.NewCircle(pos, radius)
	case TypeIndexedPolyCurve:
		return d.indexedPolyCurve(e)
	case TypeBSplineCurve, TypeRationalBSplineCurve:
		return d.bsplineCurve(e)
	}
	return nil, &UnsupportedEntityError{Type: e.Type, Ref: e.ID, Want: "curve"}
}

func (d *Decoder) curveAt(e *p21.Entity, i int) (geom.Curve, error) {
	r, err := d.ref(e, i)
	if err != nil {
		return nil, err
	}
	return d.Curve(r)
}

func (d *Decoder) pointList(r p21.Ref) ([]geom.Point, error) {
	e, err := d.get(r)
	if err != nil {
		return nil, err
	}
	if e.Type != TypeCartesianPointList2D && e.Type != TypeCartesianPointList3D {
		return nil, &UnsupportedEntityError{Type: e.Type, Ref: e.ID, Want: "point list"}
	}
	rows, err := p21.AsList(e.Param(0))
	if err != nil {
		return nil, fmt.Errorf("ifc: #%d: %w", int(e.ID), err)
	}
	pts := make([]geom.Point, len(rows))
	for i, row := range rows {
		xs, err := p21.AsFloats(row)
		if err != nil {
			return nil, fmt.Errorf("ifc: #%d point %d: %w", int(e.ID), i, err)
		}
		if pts[i], err = coordsToPoint(xs); err != nil {
			return nil, fmt.Errorf("%w in #%d", err, int(e.ID))
		}
	}
	return pts, nil
}

// indexedPolyCurve converts one-based IFCLINEINDEX / IFCARCINDEX
// segments. A line index with more than two entries is a polyline run
// and becomes consecutive line segments. Omitted segments mean one
// straight run through all points.
func (d *Decoder) indexedPolyCurve(e *p21.Entity) (geom.Curve, error) {
	listRef, err := d.ref(e, 0)
	if err != nil {
		return nil, err
	}
	pts, err := d.pointList(listRef)
	if err != nil {
		return nil, err
	}
	var segs []geom.Segment
	if p21.IsUnset(e.Param(1)) {
		for i := 0; i+1 < len(pts); i++ {
			segs = append(segs, geom.LineIndex{I1: i, I2: i + 1})
		}
	} else {
		list, err := p21.AsList(e.Param(1))
		if err != nil {
			return nil, fmt.Errorf("ifc: #%d segments: %w", int(e.ID), err)
		}
		for i, s := range list {
			t, ok := s.(p21.Typed)
			if !ok {
				return nil, fmt.Errorf("ifc: #%d segment %d: want typed index, got %s", int(e.ID), i, p21.Kind(s))
			}
			idx, err := p21.AsInts(t.Value)
			if err != nil {
				return nil, fmt.Errorf("ifc: #%d segment %d: %w", int(e.ID), i, err)
			}
			switch t.Name {
			case TypeLineIndex:
				if len(idx) < 2 {
					return nil, fmt.Errorf("ifc: #%d segment %d: line index with %d entries", int(e.ID), i, len(idx))
				}
				for k := 0; k+1 < len(idx); k++ {
					segs = append(segs, geom.LineIndex{I1: idx[k] - 1, I2: idx[k+1] - 1})
				}
			case TypeArcIndex:
				if len(idx) != 3 {
					return nil, fmt.Errorf("ifc: #%d segment %d: arc index with %d entries", int(e.ID), i, len(idx))
				}
				segs = append(segs, geom.ArcIndex{I1: idx[0] - 1, I2: idx[1] - 1, I3: idx[2] - 1})
			default:
				return nil, &UnsupportedEntityError{Type: t.Name, Ref: e.ID, Want: "segment"}
			}
		}
	}
	c, err := geom.NewIndexedPolyCurve(pts, segs)
	if err != nil {
		return nil, fmt.Errorf("ifc: #%d: %w", int(e.ID), err)
	}
	if c.SelfIntersect, err = d.boolean(e, 2); err != nil {
		return nil, err
	}
	return c, nil
}

func (d *Decoder) bsplineCurve(e *p21.Entity) (geom.Curve, error) {
	degree, err := p21.AsInt(e.Param(0))
	if err != nil {
		return nil, fmt.Errorf("ifc: #%d degree: %w", int(e.ID), err)
	}
	refs, err := p21.AsRefs(e.Param(1))
	if err != nil {
		return nil, fmt.Errorf("ifc: #%d control points: %w", int(e.ID), err)
	}
	ctrl := make([]geom.Point, len(refs))
	for i, r := range refs {
		if ctrl[i], err = d.Point(r); err != nil {
			return nil, err
		}
	}
	closed, err := d.boolean(e, 3)
	if err != nil {
		return nil, err
	}
	selfIntersect, err := d.boolean(e, 4)
	if err != nil {
		return nil, err
	}
	mults, err := p21.AsInts(e.Param(5))
	if err != nil {
		return nil, fmt.Errorf("ifc: #%d multiplicities: %w", int(e.ID), err)
	}
	knots, err := p21.AsFloats(e.Param(6))
	if err != nil {
		return nil, fmt.Errorf("ifc: #%d knots: %w", int(e.ID), err)
	}
	var weights []float64
	if e.Type == TypeRationalBSplineCurve {
		if weights, err = p21.AsFloats(e.Param(8)); err != nil {
			return nil, fmt.Errorf("ifc: #%d weights: %w", int(e.ID), err)
		}
	}
	c, err := geom.NewBSplineCurve(degree, ctrl, mults, knots, weights, closed)
	if err != nil {
		return nil, fmt.Errorf("ifc: #%d: %w", int(e.ID), err)
	}
	c.SelfIntersect = selfIntersect
	return c, nil
}

// Surface decodes a face surface.
func (d *Decoder) Surface(r p21.Ref) (geom.Surface, error) {
	e, err := d.get(r)
	if err != nil {
		return nil, err
	}
	switch e.Type {
	case TypePlane:
		pos, err := d.placementAt(e, 0)
		if err != nil {
			return nil, err
		}
		return geom.Plane{Position: pos}, nil
	case TypeCylindricalSurface:
		pos, err := d.placementAt(e, 0)
		if err != nil {
			return nil, err
		}
		radius, err := d.real(e, 1)
		if err != nil {
			return nil, err
		}
		return geom.CylindricalSurface{Position: pos, Radius: radius}, nil
	case TypeBSplineSurface, TypeRationalBSplineSurface:
		return d.bsplineSurface(e)
	}
	return nil, &UnsupportedEntityError{Type: e.Type, Ref: e.ID, Want: "surface"}
}

func (d *Decoder) bsplineSurface(e *p21.Entity) (geom.Surface, error) {
	uDeg, err := p21.AsInt(e.Param(0))
	if err != nil {
		return nil, fmt.Errorf("ifc: #%d u degree: %w", int(e.ID), err)
	}
	vDeg, err := p21.AsInt(e.Param(1))
	if err != nil {
		return nil, fmt.Errorf("ifc: #%d v degree: %w", int(e.ID), err)
	}
	rows, err := p21.AsList(e.Param(2))
	if err != nil {
		return nil, fmt.Errorf("ifc: #%d control points: %w", int(e.ID), err)
	}
	grid := make([][]geom.Point, len(rows))
	for i, row := range rows {
		refs, err := p21.AsRefs(row)
		if err != nil {
			return nil, fmt.Errorf("ifc: #%d control row %d: %w", int(e.ID), i, err)
		}
		grid[i] = make([]geom.Point, len(refs))
		for j, r := range refs {
			if grid[i][j], err = d.Point(r); err != nil {
				return nil, err
			}
		}
	}
	var flags [3]bool
	for k := range flags {
		if flags[k], err = d.boolean(e, 4+k); err != nil {
			return nil, err
		}
	}
	uMults, err := p21.AsInts(e.Param(7))
	if err != nil {
		return nil, fmt.Errorf("ifc: #%d u multiplicities: %w", int(e.ID), err)
	}
	vMults, err := p21.AsInts(e.Param(8))
	if err != nil {
		return nil, fmt.Errorf("ifc: #%d v multiplicities: %w", int(e.ID), err)
	}
	uKnots, err := p21.AsFloats(e.Param(9))
	if err != nil {
		return nil, fmt.Errorf("ifc: #%d u knots: %w", int(e.ID), err)
	}
	vKnots, err := p21.AsFloats(e.Param(10))
	if err != nil {
		return nil, fmt.Errorf("ifc: #%d v knots: %w", int(e.ID), err)
	}
	var weights [][]float64
	if e.Type == TypeRationalBSplineSurface {
		wrows, err := p21.AsList(e.Param(12))
		if err != nil {
			return nil, fmt.Errorf("ifc: #%d weights: %w", int(e.ID), err)
		}
		for i, wr := range wrows {
			w, err := p21.AsFloats(wr)
			if err != nil {
				return nil, fmt.Errorf("ifc: #%d weights row %d: %w", int(e.ID), i, err)
			}
			weights = append(weights, w)
		}
	}
	s, err := geom.NewBSplineSurface(uDeg, vDeg, grid, uMults, vMults, uKnots, vKnots, weights)
	if err != nil {
		return nil, fmt.Errorf("ifc: #%d: %w", int(e.ID), err)
	}
	s.UClosed, s.VClosed, s.SelfIntersect = flags[0], flags[1], flags[2]
	return s, nil
}

// ---------------------------------------------------------------------------
// Topology
// ---------------------------------------------------------------------------

func (d *Decoder) decodeShell(e *p21.Entity) (geom.Shell, error) {
	if e.Type != TypeClosedShell && e.Type != TypeOpenShell {
		return geom.Shell{}, &UnableToCreateSolidGeomError{Type: e.Type, Ref: e.ID}
	}
	refs, err := p21.AsRefs(e.Param(0))
	if err != nil {
		return geom.Shell{}, fmt.Errorf("ifc: #%d faces: %w", int(e.ID), err)
	}
	shell := geom.Shell{Closed: e.Type == TypeClosedShell}
	for _, r := range refs {
		f, err := d.Face(r)
		if err != nil {
			return geom.Shell{}, err
		}
		shell.Faces = append(shell.Faces, f)
	}
	return shell, nil
}

// Face decodes an IFCADVANCEDFACE (or IFCFACESURFACE) with its bounds.
func (d *Decoder) Face(r p21.Ref) (geom.AdvancedFace, error) {
	e, err := d.get(r)
	if err != nil {
		return geom.AdvancedFace{}, err
	}
	if e.Type != TypeAdvancedFace && e.Type != TypeFaceSurface {
		return geom.AdvancedFace{}, &UnsupportedEntityError{Type: e.Type, Ref: e.ID, Want: "face"}
	}
	surfRef, err := d.ref(e, 1)
	if err != nil {
		return geom.AdvancedFace{}, err
	}
	surface, err := d.Surface(surfRef)
	if err != nil {
		return geom.AdvancedFace{}, err
	}
	sense, err := d.boolean(e, 2)
	if err != nil {
		return geom.AdvancedFace{}, err
	}
	face := geom.AdvancedFace{Surface: surface, SameSense: sense}
	boundRefs, err := p21.AsRefs(e.Param(0))
	if err != nil {
		return geom.AdvancedFace{}, fmt.Errorf("ifc: #%d bounds: %w", int(e.ID), err)
	}
	for _, br := range boundRefs {
		b, err := d.bound(br)
		if err != nil {
			return geom.AdvancedFace{}, err
		}
		face.Bounds = append(face.Bounds, b)
	}
	return face, nil
}

func (d *Decoder) bound(r p21.Ref) (geom.FaceBound, error) {
	e, err := d.get(r)
	if err != nil {
		return geom.FaceBound{}, err
	}
	if e.Type != TypeFaceBound && e.Type != TypeFaceOuterBound {
		return geom.FaceBound{}, &UnsupportedEntityError{Type: e.Type, Ref: e.ID, Want: "face bound"}
	}
	orientation, err := d.boolean(e, 1)
	if err != nil {
		return geom.FaceBound{}, err
	}
	loopRef, err := d.ref(e, 0)
	if err != nil {
		return geom.FaceBound{}, err
	}
	loop, err := d.get(loopRef)
	if err != nil {
		return geom.FaceBound{}, err
	}
	if loop.Type != TypeEdgeLoop {
		return geom.FaceBound{}, &UnsupportedEntityError{Type: loop.Type, Ref: loop.ID, Want: "loop"}
	}
	edgeRefs, err := p21.AsRefs(loop.Param(0))
	if err != nil {
		return geom.FaceBound{}, fmt.Errorf("ifc: #%d edges: %w", int(loop.ID), err)
	}
	fb := geom.FaceBound{Orientation: orientation, Outer: e.Type == TypeFaceOuterBound}
	for _, er := range edgeRefs {
		oe, err := d.orientedEdge(er)
		if err != nil {
			return geom.FaceBound{}, err
		}
		fb.Bound.Edges = append(fb.Bound.Edges, oe)
	}
	return fb, nil
}

func (d *Decoder) orientedEdge(r p21.Ref) (geom.OrientedEdge, error) {
	e, err := d.get(r)
	if err != nil {
		return geom.OrientedEdge{}, err
	}
	if e.Type != TypeOrientedEdge {
		return geom.OrientedEdge{}, &UnsupportedEntityError{Type: e.Type, Ref: e.ID, Want: "oriented edge"}
	}
	orientation, err := d.boolean(e, 3)
	if err != nil {
		return geom.OrientedEdge{}, err
	}
	ecRef, err := d.ref(e, 2)
	if err != nil {
		return geom.OrientedEdge{}, err
	}
	ec, err := d.get(ecRef)
	if err != nil {
		return geom.OrientedEdge{}, err
	}
	if ec.Type != TypeEdgeCurve {
		return geom.OrientedEdge{}, &UnsupportedEntityError{Type: ec.Type, Ref: ec.ID, Want: "edge"}
	}
	start, err := d.vertexAt(ec, 0)
	if err != nil {
		return geom.OrientedEdge{}, err
	}
	end, err := d.vertexAt(ec, 1)
	if err != nil {
		return geom.OrientedEdge{}, err
	}
	curve, err := d.curveAt(ec, 2)
	if err != nil {
		return geom.OrientedEdge{}, err
	}
	same, err := d.boolean(ec, 3)
	if err != nil {
		return geom.OrientedEdge{}, err
	}
	return geom.OrientedEdge{
		Edge:        geom.Edge{Start: start, End: end, Geometry: curve, SameSense: same},
		Orientation: orientation,
	}, nil
}

func (d *Decoder) vertexAt(e *p21.Entity, i int) (geom.Point, error) {
	r, err := d.ref(e, i)
	if err != nil {
		return geom.Point{}, err
	}
	v, err := d.get(r)
	if err != nil {
		return geom.Point{}, err
	}
	if v.Type != TypeVertexPoint {
		return geom.Point{}, &UnsupportedEntityError{Type: v.Type, Ref: v.ID, Want: "vertex"}
	}
	return d.pointAt(v, 0)
}
