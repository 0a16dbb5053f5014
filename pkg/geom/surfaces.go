package geom

import "fmt"

// Surface is implemented by every surface variant.
type Surface interface {
	surface()
}

// Plane is the XY plane of Position.
type Plane struct {
	Position Placement `json:"position"`
}

// CylindricalSurface is the infinite cylinder of Radius around the local Z
// axis of Position.
type CylindricalSurface struct {
	Position Placement `json:"position"`
	Radius   float64   `json:"radius"`
}

// BSplineSurfaceWithKnots is a (possibly rational) tensor-product B-spline
// surface. ControlPoints[i][j] is the point at u index i, v index j.
// Weights, when present, has the same shape.
type BSplineSurfaceWithKnots struct {
	UDegree         int         `json:"u_degree"`
	VDegree         int         `json:"v_degree"`
	ControlPoints   [][]Point   `json:"control_points"`
	UClosed         bool        `json:"u_closed"`
	VClosed         bool        `json:"v_closed"`
	SelfIntersect   bool        `json:"self_intersect"`
	UMultiplicities []int       `json:"u_multiplicities"`
	VMultiplicities []int       `json:"v_multiplicities"`
	UKnots          []float64   `json:"u_knots"`
	VKnots          []float64   `json:"v_knots"`
	Weights         [][]float64 `json:"weights,omitempty"`
}

func (Plane) surface()                   {}
func (CylindricalSurface) surface()      {}
func (BSplineSurfaceWithKnots) surface() {}

// Rational reports whether the surface carries weights.
func (s BSplineSurfaceWithKnots) Rational() bool { return len(s.Weights) > 0 }

// NewBSplineSurface validates grid shape and both knot vectors.
func NewBSplineSurface(uDeg, vDeg int, ctrl [][]Point, uMults, vMults []int, uKnots, vKnots []float64, weights [][]float64) (BSplineSurfaceWithKnots, error) {
	if uDeg < 1 || vDeg < 1 {
		return BSplineSurfaceWithKnots{}, &ConstructionError{Field: "bspline_surface.degree", Value: [2]int{uDeg, vDeg}, Reason: "must be at least 1"}
	}
	if len(ctrl) < uDeg+1 {
		return BSplineSurfaceWithKnots{}, &ConstructionError{Field: "bspline_surface.control_points", Value: len(ctrl), Reason: fmt.Sprintf("need at least %d rows", uDeg+1)}
	}
	nv := len(ctrl[0])
	if nv < vDeg+1 {
		return BSplineSurfaceWithKnots{}, &ConstructionError{Field: "bspline_surface.control_points[0]", Value: nv, Reason: fmt.Sprintf("need at least %d columns", vDeg+1)}
	}
	grid := make([][]Point, len(ctrl))
	for i, row := range ctrl {
		if len(row) != nv {
			return BSplineSurfaceWithKnots{}, &ConstructionError{Field: fmt.Sprintf("bspline_surface.control_points[%d]", i), Value: len(row), Reason: fmt.Sprintf("ragged grid, want %d", nv)}
		}
		for j, p := range row {
			if err := checkPoint(fmt.Sprintf("bspline_surface.control_points[%d][%d]", i, j), p); err != nil {
				return BSplineSurfaceWithKnots{}, err
			}
		}
		grid[i] = append([]Point(nil), row...)
	}
	if err := checkKnots("bspline_surface.u", len(ctrl), uDeg, uMults, uKnots); err != nil {
		return BSplineSurfaceWithKnots{}, err
	}
	if err := checkKnots("bspline_surface.v", nv, vDeg, vMults, vKnots); err != nil {
		return BSplineSurfaceWithKnots{}, err
	}
	var w [][]float64
	if len(weights) > 0 {
		if len(weights) != len(ctrl) {
			return BSplineSurfaceWithKnots{}, &ConstructionError{Field: "bspline_surface.weights", Value: len(weights), Reason: "shape differs from control grid"}
		}
		w = make([][]float64, len(weights))
		for i, row := range weights {
			if len(row) != nv {
				return BSplineSurfaceWithKnots{}, &ConstructionError{Field: fmt.Sprintf("bspline_surface.weights[%d]", i), Value: len(row), Reason: "shape differs from control grid"}
			}
			for j, x := range row {
				if err := checkPositive(fmt.Sprintf("bspline_surface.weights[%d][%d]", i, j), x); err != nil {
					return BSplineSurfaceWithKnots{}, err
				}
			}
			w[i] = append([]float64(nil), row...)
		}
	}
	return BSplineSurfaceWithKnots{
		UDegree:         uDeg,
		VDegree:         vDeg,
		ControlPoints:   grid,
		UMultiplicities: append([]int(nil), uMults...),
		VMultiplicities: append([]int(nil), vMults...),
		UKnots:          append([]float64(nil), uKnots...),
		VKnots:          append([]float64(nil), vKnots...),
		Weights:         w,
	}, nil
}

// FaceBound is a loop bounding a face. Outer marks the outer bound.
type FaceBound struct {
	Bound       EdgeLoop `json:"bound"`
	Orientation bool     `json:"orientation"`
	Outer       bool     `json:"outer"`
}

// AdvancedFace is a face of a boundary representation: a surface trimmed
// by edge loops.
type AdvancedFace struct {
	Name      string      `json:"name,omitempty"`
	Bounds    []FaceBound `json:"bounds"`
	Surface   Surface     `json:"surface"`
	SameSense bool        `json:"same_sense"`
}

// Shell is a set of faces. Closed shells bound a volume.
type Shell struct {
	Faces  []AdvancedFace `json:"faces"`
	Closed bool           `json:"closed"`
}

func (Shell) shape() {}
