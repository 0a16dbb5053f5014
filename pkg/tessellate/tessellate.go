// Package tessellate realizes geometry through a solid kernel and produces
// triangle meshes. One mesh is produced per geometry; boolean operations
// are evaluated by the kernel in list order.
package tessellate

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/samber/lo"

	"github.com/Krande/adapy-sub006/pkg/config"
	"github.com/Krande/adapy-sub006/pkg/geom"
	"github.com/Krande/adapy-sub006/pkg/kernel"
	"github.com/Krande/adapy-sub006/pkg/mesh"
	"github.com/Krande/adapy-sub006/pkg/model"
)

// KernelError reports a geometry the kernel could not realize or mesh.
type KernelError struct {
	GeometryID string
	Err        error
}

func (e *KernelError) Error() string {
	return fmt.Sprintf("tessellate: geometry %q: %v", e.GeometryID, e.Err)
}

func (e *KernelError) Unwrap() error { return e.Err }

// ErrUnsupportedShape is wrapped when a shape has no kernel realization.
var ErrUnsupportedShape = errors.New("shape not supported by the kernel")

// Options controls tessellation.
type Options struct {
	// Segments per full turn when curved profile boundaries become polygons.
	Segments int
	// Tolerance is passed to mesh.Optimize.
	Tolerance float64
	// SkipFailed logs and skips parts the kernel rejects instead of
	// aborting.
	SkipFailed bool
	Logger     *slog.Logger
}

// OptionsFromConfig takes segments and tolerance from cfg.
func OptionsFromConfig(cfg config.Config, logger *slog.Logger) Options {
	return Options{
		Segments:  cfg.Kernel.CircleSegments,
		Tolerance: cfg.Mesh.Tolerance,
		Logger:    logger,
	}
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

// Tessellate materializes a and meshes every part. The assembly is never
// mutated.
func Tessellate(a *model.Assembly, k kernel.Kernel, opts Options) ([]mesh.Part, error) {
	if a == nil {
		return nil, nil
	}
	parts, err := a.Geometries()
	if err != nil {
		return nil, fmt.Errorf("tessellate: %w", err)
	}
	geoms := lo.Map(parts, func(p model.Part, _ int) geom.Geometry { return p.Geometry })
	return TessellateGeometries(geoms, k, opts)
}

// TessellateGeometries meshes each geometry in order and optimizes the
// result. Empty meshes are dropped.
func TessellateGeometries(geoms []geom.Geometry, k kernel.Kernel, opts Options) ([]mesh.Part, error) {
	log := opts.logger()
	var out []mesh.Part
	for _, g := range geoms {
		m, err := Mesh(k, g, opts.Segments)
		if err != nil {
			if opts.SkipFailed {
				log.Warn("skipping part", "geometry", g.ID, "err", err)
				continue
			}
			return nil, err
		}
		if m.IsEmpty() {
			log.Warn("empty mesh", "geometry", g.ID)
			continue
		}
		res, err := mesh.Optimize(m.Vertices, m.Indices, m.Normals, opts.Tolerance)
		if err != nil {
			return nil, &KernelError{GeometryID: g.ID, Err: err}
		}
		log.Debug("tessellated part", "geometry", g.ID,
			"vertices", res.VertexCount(), "merged", m.VertexCount()-res.VertexCount(),
			"triangles", res.TriangleCount())
		out = append(out, mesh.Part{Name: m.PartName, Mesh: res, Color: g.Color})
	}
	return out, nil
}

// Mesh realizes g and returns its raw kernel mesh named after g.
func Mesh(k kernel.Kernel, g geom.Geometry, segments int) (*kernel.Mesh, error) {
	s, err := Realize(k, g, segments)
	if err != nil {
		return nil, err
	}
	m, err := k.ToMesh(s)
	if err != nil {
		return nil, &KernelError{GeometryID: g.ID, Err: err}
	}
	m.PartName = g.ID
	return m, nil
}

// Realize builds the kernel solid of g: its base shape in place, then every
// boolean operation applied to the running result strictly left to right.
// Operands are realized with their own operation lists first.
func Realize(k kernel.Kernel, g geom.Geometry, segments int) (kernel.Solid, error) {
	base, ok := g.Shape.(geom.Solid)
	if !ok {
		return nil, &KernelError{GeometryID: g.ID, Err: fmt.Errorf("%w: %s", ErrUnsupportedShape, geom.ShapeName(g.Shape))}
	}
	acc, err := solid(k, base, segments)
	if err != nil {
		return nil, &KernelError{GeometryID: g.ID, Err: err}
	}
	for i, op := range g.BoolOperations {
		operand, err := Realize(k, op.Operand, segments)
		if err != nil {
			var ke *KernelError
			if errors.As(err, &ke) && ke.GeometryID == "" {
				ke.GeometryID = fmt.Sprintf("%s/op%d", g.ID, i)
			}
			return nil, err
		}
		if acc, err = combine(k, op.Operator, acc, operand); err != nil {
			return nil, &KernelError{GeometryID: g.ID, Err: fmt.Errorf("operation %d: %w", i, err)}
		}
	}
	return acc, nil
}

func combine(k kernel.Kernel, op geom.BoolOpType, a, b kernel.Solid) (kernel.Solid, error) {
	switch op {
	case geom.Union:
		return k.Union(a, b), nil
	case geom.Difference:
		return k.Difference(a, b), nil
	case geom.Intersection:
		return k.Intersection(a, b), nil
	}
	return nil, fmt.Errorf("unknown boolean operator %v", op)
}

// solid maps one IR solid onto kernel primitives.
func solid(k kernel.Kernel, s geom.Solid, segments int) (kernel.Solid, error) {
	switch s := s.(type) {
	case geom.Box:
		b, err := k.Box(s.XLength, s.YLength, s.ZLength)
		if err != nil {
			return nil, err
		}
		return k.Transform(b, s.Position), nil
	case geom.Sphere:
		b, err := k.Sphere(s.Radius)
		if err != nil {
			return nil, err
		}
		return k.Transform(b, geom.PlacementAt(s.Center)), nil
	case geom.Cylinder:
		c, err := k.Cylinder(s.Height, s.Radius)
		if err != nil {
			return nil, err
		}
		return k.Transform(c, s.Position), nil
	case geom.Cone:
		c, err := k.Cone(s.Height, s.BottomRadius)
		if err != nil {
			return nil, err
		}
		return k.Transform(c, s.Position), nil
	case geom.ExtrudedAreaSolid:
		prof, err := profile(s.SweptArea, segments)
		if err != nil {
			return nil, err
		}
		e, err := k.Extrude(prof, s.ExtrudedDirection, s.Depth)
		if err != nil {
			return nil, err
		}
		return k.Transform(e, s.Position), nil
	case geom.RevolvedAreaSolid:
		return revolve(k, s, segments)
	case geom.CsgSolid:
		return tree(k, s.TreeRoot, segments)
	case geom.BooleanResult:
		return tree(k, s, segments)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedShape, geom.ShapeName(s))
}

func tree(k kernel.Kernel, b geom.BooleanResult, segments int) (kernel.Solid, error) {
	first, err := solid(k, b.First, segments)
	if err != nil {
		return nil, err
	}
	second, err := solid(k, b.Second, segments)
	if err != nil {
		return nil, err
	}
	return combine(k, b.Operator, first, second)
}

func profile(p geom.ArbitraryProfileDef, segments int) (kernel.Profile, error) {
	outer, err := geom.Outline(p.OuterCurve, segments)
	if err != nil {
		return kernel.Profile{}, err
	}
	prof := kernel.Profile{Outer: outer}
	for _, c := range p.InnerCurves {
		hole, err := geom.Outline(c, segments)
		if err != nil {
			return kernel.Profile{}, err
		}
		prof.Holes = append(prof.Holes, hole)
	}
	return prof, nil
}

// revolve re-expresses the profile in a frame whose Z axis is the
// revolution axis and whose X axis points from the axis toward the
// profile, so profile points become (radius, height) pairs.
func revolve(k kernel.Kernel, s geom.RevolvedAreaSolid, segments int) (kernel.Solid, error) {
	prof, err := profile(s.SweptArea, segments)
	if err != nil {
		return nil, err
	}
	a := s.Axis.Axis.Normalized()
	u := a.Cross(geom.ZDir)
	var side float64
	for _, q := range prof.Outer {
		d := q.Sub(s.Axis.Location)
		side += d.X*u.X + d.Y*u.Y
	}
	if side < 0 {
		u = u.Neg()
	}
	frame, err := geom.NewPlacement(s.Axis.Location, a, u)
	if err != nil {
		return nil, err
	}
	toFrame := func(pts []geom.Point) []geom.Point {
		out := make([]geom.Point, len(pts))
		for i, q := range pts {
			l := frame.ToLocal(q)
			out[i] = geom.P2(l.X, l.Z)
		}
		return out
	}
	rp := kernel.Profile{Outer: toFrame(prof.Outer)}
	for _, h := range prof.Holes {
		rp.Holes = append(rp.Holes, toFrame(h))
	}
	for _, q := range rp.Outer {
		if q.X < -1e-9 {
			return nil, fmt.Errorf("revolved profile crosses its axis (radius %.4g)", q.X)
		}
	}
	angle := math.Min(s.Angle, 2*math.Pi)
	r, err := k.Revolve(rp, angle)
	if err != nil {
		return nil, err
	}
	return k.Transform(r, s.Position.Compose(frame)), nil
}
