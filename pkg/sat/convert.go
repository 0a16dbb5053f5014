package sat

import (
	"fmt"
	"math"

	"github.com/Krande/adapy-sub006/pkg/geom"
)

// closeTol is used when the header carries no absolute resolution.
const closeTol = 1e-6

// Faces converts every face record, in file order.
func (d *Document) Faces() ([]geom.AdvancedFace, error) {
	var out []geom.AdvancedFace
	for _, rec := range d.ByType("face") {
		f, err := d.ConvertFace(rec.Index)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// Bodies converts each body into a shell holding the faces of all its
// lumps and shells.
func (d *Document) Bodies() ([]geom.Shell, error) {
	var out []geom.Shell
	for _, rec := range d.ByType("body") {
		faces, err := d.bodyFaces(rec.Index)
		if err != nil {
			return nil, err
		}
		out = append(out, geom.Shell{Faces: faces})
	}
	return out, nil
}

// Geometries wraps each body shell in a Geometry. Ids are "body-<n>",
// counting from 1 in file order.
func (d *Document) Geometries() ([]geom.Geometry, error) {
	shells, err := d.Bodies()
	if err != nil {
		return nil, err
	}
	out := make([]geom.Geometry, len(shells))
	for i, s := range shells {
		out[i] = geom.MustGeometry(fmt.Sprintf("body-%d", i+1), s)
	}
	return out, nil
}

func (d *Document) bodyFaces(ref int) ([]geom.AdvancedFace, error) {
	body, err := d.Body(ref)
	if err != nil {
		return nil, err
	}
	var faces []geom.AdvancedFace
	err = d.walk(body.Lump, func(r int) (int, error) {
		lump, err := d.Lump(r)
		if err != nil {
			return -1, err
		}
		err = d.walk(lump.Shell, func(r int) (int, error) {
			shell, err := d.Shell(r)
			if err != nil {
				return -1, err
			}
			err = d.walk(shell.Face, func(r int) (int, error) {
				face, err := d.Face(r)
				if err != nil {
					return -1, err
				}
				f, err := d.convertFace(face)
				if err != nil {
					return -1, err
				}
				faces = append(faces, f)
				return face.Next, nil
			})
			return shell.Next, err
		})
		return lump.Next, err
	})
	return faces, err
}

// walk follows a next-linked list starting at ref. visit returns the next
// reference.
func (d *Document) walk(ref int, visit func(int) (int, error)) error {
	for n := 0; ref >= 0; n++ {
		if n > len(d.Records) {
			return fmt.Errorf("sat: cycle in list starting at record %d", ref)
		}
		next, err := visit(ref)
		if err != nil {
			return err
		}
		ref = next
	}
	return nil
}

// ConvertFace converts a face record with its loops and surface. The first
// loop is taken as the outer bound.
func (d *Document) ConvertFace(ref int) (geom.AdvancedFace, error) {
	f, err := d.Face(ref)
	if err != nil {
		return geom.AdvancedFace{}, err
	}
	return d.convertFace(f)
}

func (d *Document) convertFace(f Face) (geom.AdvancedFace, error) {
	surface, err := d.Surface(f.Surface)
	if err != nil {
		return geom.AdvancedFace{}, err
	}
	face := geom.AdvancedFace{Name: f.Name, Surface: surface, SameSense: f.Forward}
	err = d.walk(f.Loop, func(r int) (int, error) {
		loop, err := d.Loop(r)
		if err != nil {
			return -1, err
		}
		bound, err := d.loopEdges(loop)
		if err != nil {
			return -1, err
		}
		face.Bounds = append(face.Bounds, geom.FaceBound{Bound: bound, Orientation: true, Outer: len(face.Bounds) == 0})
		return loop.Next, nil
	})
	if err != nil {
		return geom.AdvancedFace{}, err
	}
	return face, nil
}

// loopEdges walks the coedge ring of a loop.
func (d *Document) loopEdges(loop Loop) (geom.EdgeLoop, error) {
	var out geom.EdgeLoop
	first := loop.Coedge
	for ref := first; ; {
		ce, err := d.Coedge(ref)
		if err != nil {
			return geom.EdgeLoop{}, err
		}
		oe, err := d.orientedEdge(ce)
		if err != nil {
			return geom.EdgeLoop{}, err
		}
		out.Edges = append(out.Edges, oe)
		ref = ce.Next
		if ref == first || ref < 0 {
			return out, nil
		}
		if len(out.Edges) > len(d.Records) {
			return geom.EdgeLoop{}, fmt.Errorf("sat: coedge ring of loop %d does not close", loop.Index)
		}
	}
}

func (d *Document) orientedEdge(ce Coedge) (geom.OrientedEdge, error) {
	e, err := d.Edge(ce.Edge)
	if err != nil {
		return geom.OrientedEdge{}, err
	}
	start, err := d.VertexPoint(e.Start)
	if err != nil {
		return geom.OrientedEdge{}, err
	}
	end, err := d.VertexPoint(e.End)
	if err != nil {
		return geom.OrientedEdge{}, err
	}
	curve, err := d.Curve(e, start, end)
	if err != nil {
		return geom.OrientedEdge{}, err
	}
	return geom.OrientedEdge{
		Edge:        geom.Edge{Start: start, End: end, Geometry: curve, SameSense: e.Forward},
		Orientation: ce.Forward,
	}, nil
}

func (d *Document) tol() float64 {
	if d.Header.ResAbs > 0 {
		return d.Header.ResAbs
	}
	return closeTol
}

// Curve converts the curve of an edge running from start to end. Edges
// without a curve become straight lines.
func (d *Document) Curve(e Edge, start, end geom.Point) (geom.Curve, error) {
	rec, err := d.Resolve(e.Curve)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return geom.Line{Start: start, End: end}, nil
	}
	fr := d.reader(rec)
	switch rec.Type {
	case "straight-curve":
		fr.point()
		fr.point()
		if fr.err != nil {
			return nil, fr.err
		}
		return geom.Line{Start: start, End: end}, nil
	case "ellipse-curve":
		center, normal, major := fr.point(), fr.point(), fr.point()
		ratio := fr.num()
		if fr.err != nil {
			return nil, fr.err
		}
		if math.Abs(ratio-1) > 1e-9 {
			return nil, &UnsupportedCurveTypeError{Record: rec.Index, Type: fmt.Sprintf("ellipse-curve (ratio %g)", ratio)}
		}
		pos, err := geom.PlacementFromAxes(center, asDirection(normal), asDirection(major))
		if err != nil {
			return nil, fmt.Errorf("sat: record %d: %w", rec.Index, err)
		}
		radius := major.Length()
		if start.IsClose(end, d.tol()) {
			return geom.NewCircle(pos, radius)
		}
		return geom.ArcLine{Start: start, Midpoint: arcMid(pos, radius, start, end, e.Forward), End: end}, nil
	case "intcurve-curve":
		if rec.Subtype == nil {
			return nil, &UnsupportedCurveTypeError{Record: rec.Index, Type: rec.Type}
		}
		sub, err := d.ResolveSubtype(rec.Subtype)
		if err != nil {
			return nil, err
		}
		if sub.Type != "exactcur" {
			return nil, &UnsupportedCurveTypeError{Record: rec.Index, Type: sub.Type}
		}
		return exactCurve(rec, sub)
	}
	return nil, &UnsupportedCurveTypeError{Record: rec.Index, Type: rec.Type}
}

// arcMid returns the point halfway along the circle from start to end,
// counter-clockwise about the circle axis when forward.
func arcMid(pos geom.Placement, radius float64, start, end geom.Point, forward bool) geom.Point {
	angle := func(p geom.Point) float64 {
		l := pos.ToLocal(p)
		return math.Atan2(l.Y, l.X)
	}
	a0, a1 := angle(start), angle(end)
	sweep := math.Mod(a1-a0+4*math.Pi, 2*math.Pi)
	mid := a0 + sweep/2
	if !forward {
		mid = a0 - (2*math.Pi-sweep)/2
	}
	return pos.ToGlobal(geom.P(radius*math.Cos(mid), radius*math.Sin(mid), 0))
}

func asDirection(p geom.Point) geom.Direction {
	return geom.Direction{X: p.X, Y: p.Y, Z: p.Z}
}

// Surface converts a surface record.
func (d *Document) Surface(ref int) (geom.Surface, error) {
	rec, err := d.Resolve(ref)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, &EntityTypeError{Record: ref, Type: "null", Want: "surface"}
	}
	fr := d.reader(rec)
	switch rec.Type {
	case "plane-surface":
		root, normal, udir := fr.point(), fr.point(), fr.point()
		if fr.err != nil {
			return nil, fr.err
		}
		pos, err := geom.PlacementFromAxes(root, asDirection(normal), asDirection(udir))
		if err != nil {
			return nil, fmt.Errorf("sat: record %d: %w", rec.Index, err)
		}
		return geom.Plane{Position: pos}, nil
	case "cone-surface":
		center, normal, major := fr.point(), fr.point(), fr.point()
		ratio := fr.num()
		fr.skipWords()
		sine, cosine := fr.num(), fr.num()
		if fr.err != nil {
			return nil, fr.err
		}
		if math.Abs(ratio-1) > 1e-9 || math.Abs(sine) > 1e-12 || math.Abs(math.Abs(cosine)-1) > 1e-12 {
			return nil, &UnsupportedSurfaceTypeError{Record: rec.Index, Type: fmt.Sprintf("cone-surface (ratio %g, sin %g)", ratio, sine)}
		}
		pos, err := geom.PlacementFromAxes(center, asDirection(normal), asDirection(major))
		if err != nil {
			return nil, fmt.Errorf("sat: record %d: %w", rec.Index, err)
		}
		return geom.CylindricalSurface{Position: pos, Radius: major.Length()}, nil
	case "spline-surface":
		if rec.Subtype == nil {
			return nil, &UnsupportedSurfaceTypeError{Record: rec.Index, Type: rec.Type}
		}
		sub, err := d.ResolveSubtype(rec.Subtype)
		if err != nil {
			return nil, err
		}
		if sub.Type != "exactsur" {
			return nil, &UnsupportedSurfaceTypeError{Record: rec.Index, Type: sub.Type}
		}
		return exactSurface(rec, sub)
	}
	return nil, &UnsupportedSurfaceTypeError{Record: rec.Index, Type: rec.Type}
}
