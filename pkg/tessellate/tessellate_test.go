package tessellate_test

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/Krande/adapy-sub006/pkg/geom"
	"github.com/Krande/adapy-sub006/pkg/kernel"
	"github.com/Krande/adapy-sub006/pkg/kernel/sdfx"
	"github.com/Krande/adapy-sub006/pkg/model"
	"github.com/Krande/adapy-sub006/pkg/tessellate"
)

// newKernel returns a coarse sdfx kernel for testing.
func newKernel() kernel.Kernel {
	return sdfx.New(40)
}

func box(t *testing.T, id string, min geom.Point, x, y, z float64) geom.Geometry {
	t.Helper()
	b, err := geom.NewBox(geom.PlacementAt(min), x, y, z)
	if err != nil {
		t.Fatal(err)
	}
	return geom.MustGeometry(id, b)
}

func realize(t *testing.T, g geom.Geometry) kernel.Solid {
	t.Helper()
	s, err := tessellate.Realize(newKernel(), g, 32)
	if err != nil {
		t.Fatalf("Realize: %v", err)
	}
	return s
}

func addBool(t *testing.T, g, operand geom.Geometry, op geom.BoolOpType) geom.Geometry {
	t.Helper()
	out, err := g.AddBoolean(operand, op)
	if err != nil {
		t.Fatalf("AddBoolean: %v", err)
	}
	return out
}

func TestBooleanOrderMatters(t *testing.T) {
	a := box(t, "a", geom.P(0, 0, 0), 2, 2, 2)
	b := box(t, "b", geom.P(1, 0, 0), 2, 2, 2)
	c := box(t, "c", geom.P(1.5, 0, 0), 1, 2, 2)

	diffThenUnion := addBool(t, addBool(t, a, b, geom.Difference), c, geom.Union)
	unionThenDiff := addBool(t, addBool(t, a, c, geom.Union), b, geom.Difference)

	s1 := realize(t, diffThenUnion)
	s2 := realize(t, unionThenDiff)

	probe := geom.P(2.2, 1, 1) // inside C and B
	if !s1.Contains(probe) {
		t.Errorf("(A - B) + C should contain %v", probe)
	}
	if s2.Contains(probe) {
		t.Errorf("(A + C) - B should not contain %v", probe)
	}
	// both agree away from B
	if !s1.Contains(geom.P(0.5, 1, 1)) || !s2.Contains(geom.P(0.5, 1, 1)) {
		t.Error("both results should keep the part of A outside B")
	}
}

func TestNestedOperandIsRealizedFirst(t *testing.T) {
	a := box(t, "a", geom.P(0, 0, 0), 4, 1, 1)
	// operand = big box minus its middle, so only its ends cut A
	cutter := addBool(t, box(t, "cut", geom.P(-1, -1, -1), 6, 3, 3),
		box(t, "keep", geom.P(1, -2, -2), 2, 5, 5), geom.Difference)
	s := realize(t, addBool(t, a, cutter, geom.Difference))

	if !s.Contains(geom.P(2, 0.5, 0.5)) {
		t.Error("middle of A should survive")
	}
	if s.Contains(geom.P(0.5, 0.5, 0.5)) || s.Contains(geom.P(3.5, 0.5, 0.5)) {
		t.Error("ends of A should be cut away")
	}
}

func TestCsgSolid(t *testing.T) {
	b1, _ := geom.NewBox(geom.DefaultPlacement(), 2, 2, 2)
	sp, _ := geom.NewSphere(geom.P(2, 2, 2), 1)
	root, err := geom.NewBooleanResult(geom.Intersection, b1, sp)
	if err != nil {
		t.Fatal(err)
	}
	s := realize(t, geom.MustGeometry("csg", geom.CsgSolid{TreeRoot: root}))
	if !s.Contains(geom.P(1.6, 1.6, 1.6)) {
		t.Error("corner region should be inside the intersection")
	}
	if s.Contains(geom.P(0.5, 0.5, 0.5)) {
		t.Error("far corner should be outside the sphere")
	}
}

func TestPlacedPrimitives(t *testing.T) {
	cyl, err := geom.NewCylinder(geom.PlacementAt(geom.P(5, 0, 0)).Rotate(geom.YDir, 90), 4, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	s := realize(t, geom.MustGeometry("cyl", cyl))
	// axis now runs along +X from (5,0,0)
	if !s.Contains(geom.P(7, 0, 0)) {
		t.Error("point on the rotated axis should be inside")
	}
	if s.Contains(geom.P(5, 0, 2)) {
		t.Error("point on the original axis should be outside")
	}

	cone, _ := geom.NewCone(geom.PlacementAt(geom.P(0, 0, 1)), 2, 1)
	s = realize(t, geom.MustGeometry("cone", cone))
	if !s.Contains(geom.P(0, 0, 1.2)) || s.Contains(geom.P(0.9, 0, 2.8)) {
		t.Error("cone membership is wrong")
	}
}

func TestRevolvedAreaSolid(t *testing.T) {
	outline, err := geom.PolyCurveFromPoints([]geom.Point{geom.P2(1, 0), geom.P2(2, 0), geom.P2(2, 1), geom.P2(1, 1)})
	if err != nil {
		t.Fatal(err)
	}
	prof, err := geom.NewArbitraryProfile(outline)
	if err != nil {
		t.Fatal(err)
	}
	axis := geom.Axis1Placement{Location: geom.P(0, 0, 0), Axis: geom.YDir}
	rev, err := geom.NewRevolvedAreaSolid(prof, geom.DefaultPlacement(), axis, 2*math.Pi)
	if err != nil {
		t.Fatal(err)
	}
	s := realize(t, geom.MustGeometry("ring", rev))

	tests := []struct {
		p    geom.Point
		want bool
	}{
		{geom.P(1.5, 0.5, 0), true},  // the profile itself
		{geom.P(0, 0.5, 1.5), true},  // swept a quarter turn about Y
		{geom.P(-1.5, 0.5, 0), true}, // half turn
		{geom.P(0, 0.5, 0), false},   // on the axis
		{geom.P(1.5, 1.5, 0), false}, // above the profile
	}
	for _, tt := range tests {
		if got := s.Contains(tt.p); got != tt.want {
			t.Errorf("Contains(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestUnsupportedShape(t *testing.T) {
	g := geom.MustGeometry("skin", geom.Shell{})
	_, err := tessellate.Realize(newKernel(), g, 32)
	var ke *tessellate.KernelError
	if !errors.As(err, &ke) {
		t.Fatalf("err = %v, want a KernelError", err)
	}
	if ke.GeometryID != "skin" {
		t.Errorf("GeometryID = %q, want skin", ke.GeometryID)
	}
	if !errors.Is(err, tessellate.ErrUnsupportedShape) {
		t.Errorf("err = %v, want ErrUnsupportedShape", err)
	}
}

func TestTessellateGeometries(t *testing.T) {
	red, _ := geom.NewColor(1, 0, 0, 1)
	a := box(t, "a", geom.P(0, 0, 0), 1, 1, 1)
	a.Color = &red
	b := box(t, "b", geom.P(3, 0, 0), 1, 2, 1)

	parts, err := tessellate.TessellateGeometries([]geom.Geometry{a, b}, newKernel(), tessellate.Options{Segments: 16})
	if err != nil {
		t.Fatal(err)
	}
	if len(parts) != 2 {
		t.Fatalf("parts = %d, want 2", len(parts))
	}
	if parts[0].Name != "a" || parts[1].Name != "b" {
		t.Errorf("names = %q, %q", parts[0].Name, parts[1].Name)
	}
	if parts[0].Color == nil || parts[0].Color.R != 1 || parts[1].Color != nil {
		t.Error("colors should follow the geometries")
	}
	for _, p := range parts {
		if p.Mesh.TriangleCount() == 0 {
			t.Errorf("part %q has no triangles", p.Name)
		}
		// dedup leaves fewer vertices than the 3-per-triangle soup
		if p.Mesh.VertexCount() >= 3*p.Mesh.TriangleCount() {
			t.Errorf("part %q: %d vertices for %d triangles, expected merging", p.Name, p.Mesh.VertexCount(), p.Mesh.TriangleCount())
		}
	}
}

func TestSkipFailedLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	geoms := []geom.Geometry{geom.MustGeometry("skin", geom.Shell{}), box(t, "ok", geom.P(0, 0, 0), 1, 1, 1)}

	if _, err := tessellate.TessellateGeometries(geoms, newKernel(), tessellate.Options{Logger: logger}); err == nil {
		t.Fatal("expected an error without SkipFailed")
	}

	parts, err := tessellate.TessellateGeometries(geoms, newKernel(), tessellate.Options{Logger: logger, SkipFailed: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(parts) != 1 || parts[0].Name != "ok" {
		t.Fatalf("parts = %+v", parts)
	}
	out := buf.String()
	if !strings.Contains(out, "skipping part") || !strings.Contains(out, "geometry=skin") {
		t.Errorf("missing warning in log:\n%s", out)
	}
	if !strings.Contains(out, "tessellated part") {
		t.Errorf("missing debug record in log:\n%s", out)
	}
}

func TestTessellateAssembly(t *testing.T) {
	a := model.New()
	beam := &model.Node{ID: model.NewNodeID("bm"), Kind: model.NodeBeam, Name: "bm", Data: model.BeamData{
		Start: geom.P(0, 0, 0), End: geom.P(4, 0, 0), Up: geom.ZDir, Section: model.RectangularSection(0.2, 0.2),
	}}
	hole, err := geom.NewCylinder(geom.PlacementAt(geom.P(2, 0, -1)), 2, 0.05)
	if err != nil {
		t.Fatal(err)
	}
	if err := beam.AddBoolean(geom.MustGeometry("hole", hole), geom.Difference); err != nil {
		t.Fatal(err)
	}
	grp := &model.Node{ID: model.NewNodeID("grp"), Kind: model.NodeGroup, Name: "grp",
		Children: []model.NodeID{beam.ID}, Data: model.GroupData{Placement: geom.PlacementAt(geom.P(0, 10, 0))}}
	a.AddNode(beam)
	a.AddNode(grp)
	a.AddRoot(grp.ID)

	parts, err := a.Geometries()
	if err != nil {
		t.Fatal(err)
	}
	s := realize(t, parts[0].Geometry)
	if !s.Contains(geom.P(1, 10, 0)) {
		t.Error("beam body should be inside after the group offset")
	}
	if s.Contains(geom.P(2, 10, 0)) {
		t.Error("penetration should remove the beam core at x=2")
	}

	meshes, err := tessellate.Tessellate(a, newKernel(), tessellate.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(meshes) != 1 || meshes[0].Name != "bm" {
		t.Fatalf("meshes = %+v", meshes)
	}
}

func TestTessellateNilAssembly(t *testing.T) {
	parts, err := tessellate.Tessellate(nil, newKernel(), tessellate.Options{})
	if err != nil || parts != nil {
		t.Errorf("got %v, %v; want nil, nil", parts, err)
	}
}
