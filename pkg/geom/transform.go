package geom

// Transform returns s expressed in the parent frame of p. Placed solids
// have their positions composed with p; profiles stay in their local
// frames. Shells have every point and surface frame mapped.
func Transform(s Shape, p Placement) Shape {
	switch s := s.(type) {
	case Shell:
		return transformShell(s, p)
	case Solid:
		return TransformSolid(s, p)
	}
	return s
}

// TransformSolid is Transform restricted to solids.
func TransformSolid(s Solid, p Placement) Solid {
	switch s := s.(type) {
	case Box:
		s.Position = p.Compose(s.Position)
		return s
	case Sphere:
		s.Center = p.ToGlobal(s.Center)
		return s
	case Cylinder:
		s.Position = p.Compose(s.Position)
		return s
	case Cone:
		s.Position = p.Compose(s.Position)
		return s
	case ExtrudedAreaSolid:
		s.Position = p.Compose(s.Position)
		return s
	case RevolvedAreaSolid:
		s.Position = p.Compose(s.Position)
		return s
	case CsgSolid:
		s.TreeRoot = transformBoolean(s.TreeRoot, p)
		return s
	case BooleanResult:
		return transformBoolean(s, p)
	}
	return s
}

func transformBoolean(b BooleanResult, p Placement) BooleanResult {
	b.First = TransformSolid(b.First, p)
	b.Second = TransformSolid(b.Second, p)
	return b
}

// Transform returns a copy of g with its shape and every boolean operand
// moved into the parent frame of p.
func (g Geometry) Transform(p Placement) Geometry {
	out := g.Clone()
	out.Shape = Transform(g.Shape, p)
	for i, op := range out.BoolOperations {
		out.BoolOperations[i].Operand = op.Operand.Transform(p)
	}
	return out
}

func transformShell(s Shell, p Placement) Shell {
	out := Shell{Closed: s.Closed, Faces: make([]AdvancedFace, len(s.Faces))}
	for i, f := range s.Faces {
		nf := AdvancedFace{Name: f.Name, SameSense: f.SameSense, Surface: transformSurface(f.Surface, p)}
		nf.Bounds = make([]FaceBound, len(f.Bounds))
		for j, b := range f.Bounds {
			loop := EdgeLoop{Edges: make([]OrientedEdge, len(b.Bound.Edges))}
			for k, oe := range b.Bound.Edges {
				e := oe.Edge
				loop.Edges[k] = OrientedEdge{
					Edge: Edge{
						Start:     p.ToGlobal(e.Start),
						End:       p.ToGlobal(e.End),
						Geometry:  TransformCurve(e.Geometry, p),
						SameSense: e.SameSense,
					},
					Orientation: oe.Orientation,
				}
			}
			nf.Bounds[j] = FaceBound{Bound: loop, Orientation: b.Orientation, Outer: b.Outer}
		}
		out.Faces[i] = nf
	}
	return out
}

// TransformCurve maps a 3D curve into the parent frame of p.
func TransformCurve(c Curve, p Placement) Curve {
	switch c := c.(type) {
	case Line:
		return Line{Start: p.ToGlobal(c.Start), End: p.ToGlobal(c.End)}
	case ArcLine:
		return ArcLine{Start: p.ToGlobal(c.Start), Midpoint: p.ToGlobal(c.Midpoint), End: p.ToGlobal(c.End)}
	case Polyline:
		return Polyline{Points: mapPoints(c.Points, p)}
	case Circle:
		c.Position = p.Compose(c.Position)
		return c
	case IndexedPolyCurve:
		c.Points = mapPoints(c.Points, p)
		c.Segments = append([]Segment(nil), c.Segments...)
		return c
	case BSplineCurveWithKnots:
		c.ControlPoints = mapPoints(c.ControlPoints, p)
		return c
	}
	return c
}

func transformSurface(s Surface, p Placement) Surface {
	switch s := s.(type) {
	case Plane:
		s.Position = p.Compose(s.Position)
		return s
	case CylindricalSurface:
		s.Position = p.Compose(s.Position)
		return s
	case BSplineSurfaceWithKnots:
		grid := make([][]Point, len(s.ControlPoints))
		for i, row := range s.ControlPoints {
			grid[i] = mapPoints(row, p)
		}
		s.ControlPoints = grid
		return s
	}
	return s
}

func mapPoints(pts []Point, p Placement) []Point {
	out := make([]Point, len(pts))
	for i, q := range pts {
		out[i] = p.ToGlobal(q)
	}
	return out
}
