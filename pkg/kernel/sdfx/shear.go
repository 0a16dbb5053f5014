package sdfx

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// sheared is an extrusion leaning along (sx, sy) per unit of height. The
// field is evaluated on the un-sheared solid, so it is a bound on the true
// distance rather than exact; marching cubes only needs the sign.
type sheared struct {
	s      sdf.SDF3
	sx, sy float64
	bb     sdf.Box3
}

func newSheared(s sdf.SDF3, sx, sy, height float64) sdf.SDF3 {
	bb := s.BoundingBox()
	top := v3.Vec{X: sx * height, Y: sy * height}
	return &sheared{
		s:  s,
		sx: sx,
		sy: sy,
		bb: sdf.Box3{
			Min: v3.Vec{X: bb.Min.X + math.Min(0, top.X), Y: bb.Min.Y + math.Min(0, top.Y), Z: bb.Min.Z},
			Max: v3.Vec{X: bb.Max.X + math.Max(0, top.X), Y: bb.Max.Y + math.Max(0, top.Y), Z: bb.Max.Z},
		},
	}
}

func (s *sheared) Evaluate(p v3.Vec) float64 {
	return s.s.Evaluate(v3.Vec{X: p.X - s.sx*p.Z, Y: p.Y - s.sy*p.Z, Z: p.Z})
}

func (s *sheared) BoundingBox() sdf.Box3 {
	return s.bb
}
