package geom

import (
	"fmt"
	"math"
)

// Curve is implemented by every curve variant.
type Curve interface {
	curve()
}

// Line is a straight segment between two points.
type Line struct {
	Start Point `json:"start"`
	End   Point `json:"end"`
}

// ArcLine is a circular arc through three points.
type ArcLine struct {
	Start    Point `json:"start"`
	Midpoint Point `json:"midpoint"`
	End      Point `json:"end"`
}

// Polyline is an open or closed chain of straight segments.
type Polyline struct {
	Points []Point `json:"points"`
}

// Circle is a full circle in the XY plane of Position.
type Circle struct {
	Position Placement `json:"position"`
	Radius   float64   `json:"radius"`
}

func (Line) curve()                  {}
func (ArcLine) curve()               {}
func (Polyline) curve()              {}
func (Circle) curve()                {}
func (IndexedPolyCurve) curve()      {}
func (BSplineCurveWithKnots) curve() {}

// NewLine validates a straight segment.
func NewLine(start, end Point) (Line, error) {
	if err := checkPoint("line.start", start); err != nil {
		return Line{}, err
	}
	if err := checkPoint("line.end", end); err != nil {
		return Line{}, err
	}
	if start.Equal(end) {
		return Line{}, &ConstructionError{Field: "line", Value: start, Reason: "zero length"}
	}
	return Line{Start: start, End: end}, nil
}

// NewCircle validates a circle.
func NewCircle(position Placement, radius float64) (Circle, error) {
	if err := checkPositive("circle.radius", radius); err != nil {
		return Circle{}, err
	}
	return Circle{Position: position, Radius: radius}, nil
}

// ---------------------------------------------------------------------------
// Indexed poly-curve
// ---------------------------------------------------------------------------

// Segment is one piece of an IndexedPolyCurve. Indices are zero-based
// positions in the curve's shared point list.
type Segment interface {
	Indices() []int
	segment()
}

// LineIndex is a straight segment between two indexed points.
type LineIndex struct {
	I1, I2 int
}

// ArcIndex is a three-point arc between indexed points.
type ArcIndex struct {
	I1, I2, I3 int
}

func (s LineIndex) Indices() []int { return []int{s.I1, s.I2} }
func (s ArcIndex) Indices() []int  { return []int{s.I1, s.I2, s.I3} }
func (LineIndex) segment()         {}
func (ArcIndex) segment()          {}

// IndexedPolyCurve is a chain of line and arc segments referencing a
// shared point list. Consecutive segments share an endpoint.
type IndexedPolyCurve struct {
	Points        []Point   `json:"points"`
	Segments      []Segment `json:"segments"`
	SelfIntersect bool      `json:"self_intersect"`
}

// NewIndexedPolyCurve validates that every index resolves into points and
// that the segments form a connected chain.
func NewIndexedPolyCurve(points []Point, segments []Segment) (IndexedPolyCurve, error) {
	if len(segments) == 0 {
		return IndexedPolyCurve{}, &ConstructionError{Field: "polycurve.segments", Reason: "no segments"}
	}
	for i, p := range points {
		if err := checkPoint(fmt.Sprintf("polycurve.points[%d]", i), p); err != nil {
			return IndexedPolyCurve{}, err
		}
	}
	for i, s := range segments {
		for _, idx := range s.Indices() {
			if idx < 0 || idx >= len(points) {
				return IndexedPolyCurve{}, &ConstructionError{
					Field:  fmt.Sprintf("polycurve.segments[%d]", i),
					Value:  idx,
					Reason: fmt.Sprintf("index out of range [0, %d)", len(points)),
				}
			}
		}
		if i > 0 {
			prev := segments[i-1].Indices()
			if prev[len(prev)-1] != s.Indices()[0] {
				return IndexedPolyCurve{}, &ConstructionError{
					Field:  fmt.Sprintf("polycurve.segments[%d]", i),
					Value:  s.Indices(),
					Reason: "does not start where the previous segment ends",
				}
			}
		}
	}
	pts := make([]Point, len(points))
	copy(pts, points)
	segs := make([]Segment, len(segments))
	copy(segs, segments)
	return IndexedPolyCurve{Points: pts, Segments: segs}, nil
}

// Closed reports whether the chain ends at its first point.
func (c IndexedPolyCurve) Closed() bool {
	if len(c.Segments) == 0 {
		return false
	}
	first := c.Segments[0].Indices()[0]
	last := c.Segments[len(c.Segments)-1].Indices()
	end := last[len(last)-1]
	return first == end || c.Points[first].Equal(c.Points[end])
}

// Is2D reports whether every point lies in the local XY plane.
func (c IndexedPolyCurve) Is2D() bool {
	for _, p := range c.Points {
		if p.Z != 0 {
			return false
		}
	}
	return true
}

// Curves expands the segments into explicit Line and ArcLine values.
func (c IndexedPolyCurve) Curves() []Curve {
	out := make([]Curve, 0, len(c.Segments))
	for _, s := range c.Segments {
		switch s := s.(type) {
		case LineIndex:
			out = append(out, Line{Start: c.Points[s.I1], End: c.Points[s.I2]})
		case ArcIndex:
			out = append(out, ArcLine{Start: c.Points[s.I1], Midpoint: c.Points[s.I2], End: c.Points[s.I3]})
		}
	}
	return out
}

// Corner is an outline vertex with an optional fillet radius.
type Corner struct {
	Point  Point
	Radius float64
}

// PolyCurveFromCorners builds a closed poly-curve from an outline. Corners
// with a positive radius are replaced by a tangent arc (three points and an
// ArcIndex segment); sharp corners contribute one point.
func PolyCurveFromCorners(corners []Corner) (IndexedPolyCurve, error) {
	n := len(corners)
	if n < 3 {
		return IndexedPolyCurve{}, &ConstructionError{Field: "outline", Value: n, Reason: "fewer than 3 points"}
	}
	var points []Point
	var arcs []bool // per corner: whether it became an arc
	for i, c := range corners {
		if err := checkPoint(fmt.Sprintf("outline[%d]", i), c.Point); err != nil {
			return IndexedPolyCurve{}, err
		}
		prev := corners[(i+n-1)%n].Point
		next := corners[(i+1)%n].Point
		if c.Point.Equal(next) {
			return IndexedPolyCurve{}, &ConstructionError{Field: fmt.Sprintf("outline[%d]", i), Value: c.Point, Reason: "duplicate consecutive point"}
		}
		if c.Radius <= 0 {
			points = append(points, c.Point)
			arcs = append(arcs, false)
			continue
		}
		a, mid, b, err := filletPoints(prev, c.Point, next, c.Radius)
		if err != nil {
			return IndexedPolyCurve{}, fieldErr(fmt.Sprintf("outline[%d].radius", i), err)
		}
		points = append(points, a, mid, b)
		arcs = append(arcs, true)
	}

	var segments []Segment
	idx := 0
	starts := make([]int, n)
	for i := range corners {
		starts[i] = idx
		if arcs[i] {
			idx += 3
		} else {
			idx++
		}
	}
	for i := range corners {
		s := starts[i]
		end := s
		if arcs[i] {
			segments = append(segments, ArcIndex{I1: s, I2: s + 1, I3: s + 2})
			end = s + 2
		}
		segments = append(segments, LineIndex{I1: end, I2: starts[(i+1)%n]})
	}
	return NewIndexedPolyCurve(points, segments)
}

// filletPoints returns the tangent points and arc midpoint of a fillet of
// radius r at corner p between neighbours prev and next.
func filletPoints(prev, p, next Point, r float64) (Point, Point, Point, error) {
	d1, err := DirectionFrom(p, prev)
	if err != nil {
		return Point{}, Point{}, Point{}, err
	}
	d2, err := DirectionFrom(p, next)
	if err != nil {
		return Point{}, Point{}, Point{}, err
	}
	cosA := d1.Dot(d2)
	if cosA > 1-1e-12 || cosA < -1+1e-12 {
		return Point{}, Point{}, Point{}, &ConstructionError{Field: "fillet", Value: r, Reason: "collinear corner"}
	}
	half := math.Acos(cosA) / 2
	t := r / math.Tan(half)
	if t > p.Distance(prev) || t > p.Distance(next) {
		return Point{}, Point{}, Point{}, &ConstructionError{Field: "fillet", Value: r, Reason: "radius too large for adjacent edges"}
	}
	bis := Direction{X: d1.X + d2.X, Y: d1.Y + d2.Y, Z: d1.Z + d2.Z}.Normalized()
	center := p.Add(bis.Scale(r / math.Sin(half)))
	a := p.Add(d1.Scale(t))
	b := p.Add(d2.Scale(t))
	mid := center.Sub(bis.Scale(r))
	return a, mid, b, nil
}

// PolyCurveFromPoints builds a closed straight-edged poly-curve.
func PolyCurveFromPoints(points []Point) (IndexedPolyCurve, error) {
	corners := make([]Corner, len(points))
	for i, p := range points {
		corners[i] = Corner{Point: p}
	}
	return PolyCurveFromCorners(corners)
}

// ---------------------------------------------------------------------------
// B-spline curve
// ---------------------------------------------------------------------------

// BSplineCurveWithKnots is a (possibly rational) B-spline curve in knot
// multiplicity form. Weights is empty for non-rational curves.
type BSplineCurveWithKnots struct {
	Degree         int       `json:"degree"`
	ControlPoints  []Point   `json:"control_points"`
	ClosedCurve    bool      `json:"closed_curve"`
	SelfIntersect  bool      `json:"self_intersect"`
	Multiplicities []int     `json:"multiplicities"`
	Knots          []float64 `json:"knots"`
	Weights        []float64 `json:"weights,omitempty"`
}

// Rational reports whether the curve carries weights.
func (c BSplineCurveWithKnots) Rational() bool { return len(c.Weights) > 0 }

// NewBSplineCurve validates knot vector consistency:
// sum(multiplicities) == len(controlPoints) + degree + 1.
func NewBSplineCurve(degree int, ctrl []Point, mults []int, knots []float64, weights []float64, closed bool) (BSplineCurveWithKnots, error) {
	if degree < 1 {
		return BSplineCurveWithKnots{}, &ConstructionError{Field: "bspline.degree", Value: degree, Reason: "must be at least 1"}
	}
	if len(ctrl) < degree+1 {
		return BSplineCurveWithKnots{}, &ConstructionError{Field: "bspline.control_points", Value: len(ctrl), Reason: fmt.Sprintf("need at least %d", degree+1)}
	}
	for i, p := range ctrl {
		if err := checkPoint(fmt.Sprintf("bspline.control_points[%d]", i), p); err != nil {
			return BSplineCurveWithKnots{}, err
		}
	}
	if err := checkKnots("bspline", len(ctrl), degree, mults, knots); err != nil {
		return BSplineCurveWithKnots{}, err
	}
	if len(weights) > 0 {
		if len(weights) != len(ctrl) {
			return BSplineCurveWithKnots{}, &ConstructionError{Field: "bspline.weights", Value: len(weights), Reason: fmt.Sprintf("want %d weights", len(ctrl))}
		}
		for i, w := range weights {
			if err := checkPositive(fmt.Sprintf("bspline.weights[%d]", i), w); err != nil {
				return BSplineCurveWithKnots{}, err
			}
		}
	}
	return BSplineCurveWithKnots{
		Degree:         degree,
		ControlPoints:  append([]Point(nil), ctrl...),
		ClosedCurve:    closed,
		Multiplicities: append([]int(nil), mults...),
		Knots:          append([]float64(nil), knots...),
		Weights:        append([]float64(nil), weights...),
	}, nil
}

func checkKnots(prefix string, nctrl, degree int, mults []int, knots []float64) error {
	if len(mults) != len(knots) {
		return &ConstructionError{Field: prefix + ".knots", Value: len(knots), Reason: fmt.Sprintf("%d multiplicities for %d knots", len(mults), len(knots))}
	}
	sum := 0
	for i, m := range mults {
		if m < 1 {
			return &ConstructionError{Field: fmt.Sprintf("%s.multiplicities[%d]", prefix, i), Value: m, Reason: "must be positive"}
		}
		sum += m
		if i > 0 && knots[i] <= knots[i-1] {
			return &ConstructionError{Field: fmt.Sprintf("%s.knots[%d]", prefix, i), Value: knots[i], Reason: "knots must be strictly increasing"}
		}
	}
	if sum != nctrl+degree+1 {
		return &ConstructionError{Field: prefix + ".multiplicities", Value: sum, Reason: fmt.Sprintf("sum must equal %d control points + degree %d + 1", nctrl, degree)}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Topology
// ---------------------------------------------------------------------------

// Edge is a bounded piece of a curve between two vertices.
type Edge struct {
	Start    Point `json:"start"`
	End      Point `json:"end"`
	Geometry Curve `json:"geometry"`
	// SameSense is false when the edge runs against the curve's parametrization.
	SameSense bool `json:"same_sense"`
}

// OrientedEdge is an edge used forwards (Orientation true) or reversed.
type OrientedEdge struct {
	Edge        Edge `json:"edge"`
	Orientation bool `json:"orientation"`
}

// EdgeLoop is a closed chain of oriented edges.
type EdgeLoop struct {
	Edges []OrientedEdge `json:"edges"`
}

// StartPoint returns the oriented edge's first vertex.
func (oe OrientedEdge) StartPoint() Point {
	if oe.Orientation {
		return oe.Edge.Start
	}
	return oe.Edge.End
}

// EndPoint returns the oriented edge's last vertex.
func (oe OrientedEdge) EndPoint() Point {
	if oe.Orientation {
		return oe.Edge.End
	}
	return oe.Edge.Start
}
