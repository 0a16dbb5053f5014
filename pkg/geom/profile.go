package geom

import (
	"fmt"
	"math"
)

// ProfileType tells whether a profile bounds an area or is an open curve.
type ProfileType int

const (
	ProfileArea ProfileType = iota
	ProfileCurve
)

func (t ProfileType) String() string {
	switch t {
	case ProfileArea:
		return "AREA"
	case ProfileCurve:
		return "CURVE"
	default:
		return fmt.Sprintf("ProfileType(%d)", int(t))
	}
}

// ArbitraryProfileDef is a closed outer boundary with optional holes, all
// lying in the profile's local XY plane. With inner curves it is the
// "with voids" variant.
type ArbitraryProfileDef struct {
	ProfileType ProfileType `json:"profile_type"`
	OuterCurve  Curve       `json:"outer_curve"`
	InnerCurves []Curve     `json:"inner_curves,omitempty"`
	Name        string      `json:"name,omitempty"`
}

// HasVoids reports whether the profile has holes.
func (p ArbitraryProfileDef) HasVoids() bool { return len(p.InnerCurves) > 0 }

// NewArbitraryProfile validates that every boundary is closed and planar.
func NewArbitraryProfile(outer Curve, inner ...Curve) (ArbitraryProfileDef, error) {
	if err := checkBoundary("profile.outer_curve", outer); err != nil {
		return ArbitraryProfileDef{}, err
	}
	for i, c := range inner {
		if err := checkBoundary(fmt.Sprintf("profile.inner_curves[%d]", i), c); err != nil {
			return ArbitraryProfileDef{}, err
		}
	}
	return ArbitraryProfileDef{
		ProfileType: ProfileArea,
		OuterCurve:  outer,
		InnerCurves: append([]Curve(nil), inner...),
	}, nil
}

func checkBoundary(field string, c Curve) error {
	switch c := c.(type) {
	case IndexedPolyCurve:
		if len(c.Points) < 3 {
			return &ConstructionError{Field: field, Value: len(c.Points), Reason: "fewer than 3 points"}
		}
		if !c.Closed() {
			return &ConstructionError{Field: field, Reason: "boundary is not closed"}
		}
		if !c.Is2D() {
			return &ConstructionError{Field: field, Reason: "boundary is not in the profile plane"}
		}
	case Polyline:
		if len(c.Points) < 4 {
			return &ConstructionError{Field: field, Value: len(c.Points), Reason: "fewer than 3 points"}
		}
		if !c.Points[0].Equal(c.Points[len(c.Points)-1]) {
			return &ConstructionError{Field: field, Reason: "boundary is not closed"}
		}
	case Circle:
		if err := checkPositive(field+".radius", c.Radius); err != nil {
			return err
		}
	case nil:
		return &ConstructionError{Field: field, Reason: "missing curve"}
	default:
		return &ConstructionError{Field: field, Value: fmt.Sprintf("%T", c), Reason: "unsupported boundary curve"}
	}
	return nil
}

// Outline returns a closed polygon approximating a boundary curve, with
// arcs and circles sampled by segments per full turn. The closing point is
// not repeated.
func Outline(c Curve, segments int) ([]Point, error) {
	if segments < 8 {
		segments = 8
	}
	switch c := c.(type) {
	case IndexedPolyCurve:
		var out []Point
		for _, sc := range c.Curves() {
			switch sc := sc.(type) {
			case Line:
				out = append(out, sc.Start)
			case ArcLine:
				out = append(out, sampleArc(sc, segments)...)
			}
		}
		return out, nil
	case Polyline:
		if len(c.Points) > 1 && c.Points[0].Equal(c.Points[len(c.Points)-1]) {
			return append([]Point(nil), c.Points[:len(c.Points)-1]...), nil
		}
		return append([]Point(nil), c.Points...), nil
	case Circle:
		out := make([]Point, segments)
		for i := range out {
			a := 2 * math.Pi * float64(i) / float64(segments)
			out[i] = c.Position.ToGlobal(P(c.Radius*math.Cos(a), c.Radius*math.Sin(a), 0))
		}
		return out, nil
	}
	return nil, &ConstructionError{Field: "outline", Value: fmt.Sprintf("%T", c), Reason: "cannot sample curve"}
}
