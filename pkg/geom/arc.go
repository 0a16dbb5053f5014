package geom

import (
	"math"

	"github.com/flywave/go3d/float64/vec3"
)

// ArcCenter returns the center and radius of the circle through the arc's
// three points. ok is false when the points are collinear.
func ArcCenter(a ArcLine) (center Point, radius float64, ok bool) {
	pa, pb, pc := a.Start.vec(), a.Midpoint.vec(), a.End.vec()
	u := vec3.Sub(&pa, &pc)
	v := vec3.Sub(&pb, &pc)
	n := vec3.Cross(&u, &v)
	nn := vec3.Dot(&n, &n)
	if nn < 1e-24 {
		return Point{}, 0, false
	}
	uu, vv := vec3.Dot(&u, &u), vec3.Dot(&v, &v)
	w := vec3.Sub(ptr(v.Scaled(uu)), ptr(u.Scaled(vv)))
	c := vec3.Cross(&w, &n)
	c = c.Scaled(1 / (2 * nn))
	center = pointOf(vec3.Add(&pc, &c))
	return center, center.Distance(a.Start), true
}

func ptr(v vec3.T) *vec3.T { return &v }

// ArcSweep returns the angle in radians swept travelling from
// Start through Midpoint to End.
func ArcSweep(a ArcLine) float64 {
	center, _, ok := ArcCenter(a)
	if !ok {
		return 0
	}
	u, v, _ := arcFrame(a, center)
	return angleIn(a.End, center, u, v)
}

// arcFrame returns an in-plane basis (u towards Start, v a quarter turn
// ahead in the travel direction) and the plane normal.
func arcFrame(a ArcLine, center Point) (u, v, n Direction) {
	d1 := a.Midpoint.Sub(a.Start)
	d2 := a.End.Sub(a.Midpoint)
	n = Direction{X: d1.X, Y: d1.Y, Z: d1.Z}.Cross(Direction{X: d2.X, Y: d2.Y, Z: d2.Z}).Normalized()
	s := a.Start.Sub(center)
	u = Direction{X: s.X, Y: s.Y, Z: s.Z}.Normalized()
	v = n.Cross(u)
	return u, v, n
}

func angleIn(p, center Point, u, v Direction) float64 {
	d := p.Sub(center)
	dd := Direction{X: d.X, Y: d.Y, Z: d.Z}
	ang := math.Atan2(dd.Dot(v), dd.Dot(u))
	if ang <= 0 {
		ang += 2 * math.Pi
	}
	return ang
}

// sampleArc returns points along the arc from Start (inclusive) to End
// (exclusive) using roughly perTurn segments per full circle.
func sampleArc(a ArcLine, perTurn int) []Point {
	center, r, ok := ArcCenter(a)
	if !ok {
		return []Point{a.Start, a.Midpoint}
	}
	u, v, _ := arcFrame(a, center)
	sweep := angleIn(a.End, center, u, v)
	steps := int(math.Ceil(sweep / (2 * math.Pi) * float64(perTurn)))
	if steps < 2 {
		steps = 2
	}
	out := make([]Point, steps)
	for i := 0; i < steps; i++ {
		t := sweep * float64(i) / float64(steps)
		off := u.Scale(r * math.Cos(t)).Add(v.Scale(r * math.Sin(t)))
		out[i] = center.Add(off)
	}
	out[0] = a.Start
	return out
}
