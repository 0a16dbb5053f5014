package sat

import (
	"fmt"

	"github.com/Krande/adapy-sub006/pkg/geom"
)

// ACIS writes end knots with multiplicity equal to the degree, so a
// spline with knot multiplicities m and degree p has sum(m) - p + 1
// control points. The geom (and IFC) convention clamps the ends with
// multiplicity p + 1; conversion bumps the first and last multiplicity.

var closures = map[string]bool{"open": true, "closed": true, "periodic": true}

// splineData walks the chunks of an exactcur or exactsur block.
type splineData struct {
	rec *Record
	sub *Subtype
	c   []Chunk
	i   int
}

func newSplineData(rec *Record, sub *Subtype) *splineData {
	return &splineData{rec: rec, sub: sub, c: sub.Chunks}
}

func (s *splineData) errorf(format string, args ...any) error {
	return &SyntaxError{
		Line: s.rec.Line,
		Msg:  fmt.Sprintf("record %d: %s block: %s", s.rec.Index, s.sub.Type, fmt.Sprintf(format, args...)),
	}
}

func (s *splineData) word() (string, bool) {
	if s.i < len(s.c) && s.c[s.i].Kind == ChunkString {
		s.i++
		return s.c[s.i-1].Str, true
	}
	return "", false
}

func (s *splineData) integer(what string) (int, error) {
	if s.i < len(s.c) && s.c[s.i].Kind == ChunkInt {
		s.i++
		return s.c[s.i-1].Int, nil
	}
	return 0, s.errorf("missing %s", what)
}

func (s *splineData) num(what string) (float64, error) {
	if s.i < len(s.c) && s.c[s.i].IsNumber() {
		s.i++
		return s.c[s.i-1].Float, nil
	}
	return 0, s.errorf("missing %s", what)
}

// form reads the optional "full" marker and the nubs/nurbs keyword. It
// reports whether the spline is rational.
func (s *splineData) form() (bool, error) {
	w, _ := s.word()
	if w == "full" {
		w, _ = s.word()
	}
	switch w {
	case "nubs":
		return false, nil
	case "nurbs":
		return true, nil
	}
	return false, s.errorf("unsupported spline form %q", w)
}

// knots reads n knot/multiplicity pairs.
func (s *splineData) knots(n int, what string) ([]float64, []int, error) {
	if n < 2 {
		return nil, nil, s.errorf("%s knot count %d", what, n)
	}
	knots := make([]float64, n)
	mults := make([]int, n)
	for i := range n {
		k, err := s.num(what + " knot")
		if err != nil {
			return nil, nil, err
		}
		m, err := s.integer(what + " multiplicity")
		if err != nil {
			return nil, nil, err
		}
		knots[i], mults[i] = k, m
	}
	return knots, mults, nil
}

// numbers returns how many consecutive numeric chunks follow.
func (s *splineData) numbers() int {
	n := 0
	for j := s.i; j < len(s.c) && s.c[j].IsNumber(); j++ {
		n++
	}
	return n
}

// points reads n control points of dim values each.
func (s *splineData) points(n, dim int) ([]geom.Point, []float64, error) {
	if avail := s.numbers(); avail < n*dim {
		return nil, nil, &IncompleteCtrlPointsError{Record: s.rec.Index, Want: n, Got: avail / dim}
	}
	pts := make([]geom.Point, n)
	var weights []float64
	if dim == 4 {
		weights = make([]float64, n)
	}
	for i := range n {
		c := s.c[s.i : s.i+dim]
		pts[i] = geom.P(c[0].Float, c[1].Float, c[2].Float)
		if dim == 4 {
			weights[i] = c[3].Float
		}
		s.i += dim
	}
	return pts, weights, nil
}

func ctrlCount(mults []int, degree int) int {
	sum := 0
	for _, m := range mults {
		sum += m
	}
	return sum - degree + 1
}

func clamp(mults []int) []int {
	out := append([]int(nil), mults...)
	out[0]++
	out[len(out)-1]++
	return out
}

// exactCurve converts an exactcur block.
func exactCurve(rec *Record, sub *Subtype) (geom.BSplineCurveWithKnots, error) {
	s := newSplineData(rec, sub)
	rational, err := s.form()
	if err != nil {
		return geom.BSplineCurveWithKnots{}, err
	}
	degree, err := s.integer("degree")
	if err != nil {
		return geom.BSplineCurveWithKnots{}, err
	}
	closure, _ := s.word()
	if !closures[closure] {
		return geom.BSplineCurveWithKnots{}, s.errorf("bad closure %q", closure)
	}
	nk, err := s.integer("knot count")
	if err != nil {
		return geom.BSplineCurveWithKnots{}, err
	}
	knots, mults, err := s.knots(nk, "curve")
	if err != nil {
		return geom.BSplineCurveWithKnots{}, err
	}
	dim := 3
	if rational {
		dim = 4
	}
	n := ctrlCount(mults, degree)
	if n < degree+1 {
		return geom.BSplineCurveWithKnots{}, &IncompleteCtrlPointsError{Record: rec.Index, Want: degree + 1, Got: n}
	}
	pts, weights, err := s.points(n, dim)
	if err != nil {
		return geom.BSplineCurveWithKnots{}, err
	}
	c, err := geom.NewBSplineCurve(degree, pts, clamp(mults), knots, weights, closure != "open")
	if err != nil {
		return geom.BSplineCurveWithKnots{}, fmt.Errorf("sat: record %d: %w", rec.Index, err)
	}
	return c, nil
}

// exactSurface converts an exactsur block. Control points are stored row
// by row with u varying fastest.
func exactSurface(rec *Record, sub *Subtype) (geom.BSplineSurfaceWithKnots, error) {
	s := newSplineData(rec, sub)
	rational, err := s.form()
	if err != nil {
		return geom.BSplineSurfaceWithKnots{}, err
	}
	uDeg, err := s.integer("u degree")
	if err != nil {
		return geom.BSplineSurfaceWithKnots{}, err
	}
	vDeg, err := s.integer("v degree")
	if err != nil {
		return geom.BSplineSurfaceWithKnots{}, err
	}
	// Optional rational direction marker (both, u, v, none).
	if w, ok := s.word(); ok && closures[w] {
		s.i--
	}
	uClosure, _ := s.word()
	vClosure, _ := s.word()
	if !closures[uClosure] || !closures[vClosure] {
		return geom.BSplineSurfaceWithKnots{}, s.errorf("bad closure %q %q", uClosure, vClosure)
	}
	// Singularity markers.
	s.word()
	s.word()
	nu, err := s.integer("u knot count")
	if err != nil {
		return geom.BSplineSurfaceWithKnots{}, err
	}
	nv, err := s.integer("v knot count")
	if err != nil {
		return geom.BSplineSurfaceWithKnots{}, err
	}
	uKnots, uMults, err := s.knots(nu, "u")
	if err != nil {
		return geom.BSplineSurfaceWithKnots{}, err
	}
	vKnots, vMults, err := s.knots(nv, "v")
	if err != nil {
		return geom.BSplineSurfaceWithKnots{}, err
	}
	dim := 3
	if rational {
		dim = 4
	}
	cu, cv := ctrlCount(uMults, uDeg), ctrlCount(vMults, vDeg)
	if cu < uDeg+1 || cv < vDeg+1 {
		return geom.BSplineSurfaceWithKnots{}, &IncompleteCtrlPointsError{Record: rec.Index, Want: (uDeg + 1) * (vDeg + 1), Got: max(cu, 0) * max(cv, 0)}
	}
	pts, w, err := s.points(cu*cv, dim)
	if err != nil {
		return geom.BSplineSurfaceWithKnots{}, err
	}
	grid := make([][]geom.Point, cu)
	var weights [][]float64
	if rational {
		weights = make([][]float64, cu)
	}
	for i := range cu {
		grid[i] = make([]geom.Point, cv)
		if rational {
			weights[i] = make([]float64, cv)
		}
		for j := range cv {
			grid[i][j] = pts[j*cu+i]
			if rational {
				weights[i][j] = w[j*cu+i]
			}
		}
	}
	surf, err := geom.NewBSplineSurface(uDeg, vDeg, grid, clamp(uMults), clamp(vMults), uKnots, vKnots, weights)
	if err != nil {
		return geom.BSplineSurfaceWithKnots{}, fmt.Errorf("sat: record %d: %w", rec.Index, err)
	}
	surf.UClosed = uClosure != "open"
	surf.VClosed = vClosure != "open"
	return surf, nil
}
