package model

import (
	"math"
	"strings"
	"testing"

	"github.com/Krande/adapy-sub006/pkg/geom"
)

func TestNewAssembly(t *testing.T) {
	a := New()
	if a.Nodes == nil {
		t.Fatal("Nodes map should be initialized")
	}
	if a.NameIndex == nil {
		t.Fatal("NameIndex map should be initialized")
	}
	if a.Defaults.Units != "m" {
		t.Errorf("default units = %q, want %q", a.Defaults.Units, "m")
	}
	if a.NodeCount() != 0 {
		t.Errorf("empty assembly should have 0 nodes, got %d", a.NodeCount())
	}
}

func TestNodeIDIsStable(t *testing.T) {
	a, b := NewNodeID("beam/bm1"), NewNodeID("beam/bm1")
	if a != b {
		t.Errorf("same key gave %s and %s", a, b)
	}
	if NewNodeID("beam/bm2") == a {
		t.Error("different keys gave the same id")
	}
	if len(a.Short()) != 8 {
		t.Errorf("Short() = %q, want 8 characters", a.Short())
	}
	if NewNodeID("") == NewNodeID("") {
		t.Error("empty keys should give random ids")
	}
}

func TestAddNodeAndLookup(t *testing.T) {
	a := New()
	id := NewNodeID("beam/bm1")
	a.AddNode(&Node{ID: id, Kind: NodeBeam, Name: "bm1", Data: testBeam(10)})
	a.AddRoot(id)

	if a.Lookup("bm1") == nil || a.Lookup("bm1").ID != id {
		t.Fatal("Lookup('bm1') failed")
	}
	if a.MustLookup("bm1").ID != id {
		t.Error("MustLookup returned wrong node")
	}
	if a.Lookup("nope") != nil {
		t.Error("Lookup should return nil for missing name")
	}
	if a.Get(id) == nil {
		t.Error("Get by ID failed")
	}
}

func TestMustLookupPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustLookup should panic on a missing name")
		}
	}()
	New().MustLookup("missing")
}

func TestNodeKindString(t *testing.T) {
	tests := []struct {
		kind NodeKind
		want string
	}{
		{NodeBeam, "beam"},
		{NodePlate, "plate"},
		{NodePipe, "pipe"},
		{NodeShape, "shape"},
		{NodeGroup, "group"},
		{NodeKind(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", int(tt.kind), got, tt.want)
		}
	}
}

func testBeam(length float64) BeamData {
	return BeamData{
		Start:   geom.P(0, 0, 0),
		End:     geom.P(length, 0, 0),
		Up:      geom.ZDir,
		Section: IProfileSection(0.3, 0.15, 0.01, 0.02),
	}
}

func TestSectionProfiles(t *testing.T) {
	tests := []struct {
		name      string
		sec       Section
		wantVoids int
	}{
		{"box", BoxSection(0.2, 0.1, 0.01, 0.01), 1},
		{"iprofile", IProfileSection(0.3, 0.15, 0.01, 0.02), 0},
		{"tubular", TubularSection(0.1, 0.01), 1},
		{"rectangular", RectangularSection(0.2, 0.1), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.sec.Profile()
			if err != nil {
				t.Fatalf("Profile: %v", err)
			}
			if len(p.InnerCurves) != tt.wantVoids {
				t.Errorf("voids = %d, want %d", len(p.InnerCurves), tt.wantVoids)
			}
			if p.Name != tt.sec.Kind.String() {
				t.Errorf("profile name = %q, want %q", p.Name, tt.sec.Kind)
			}
		})
	}
}

func TestIProfileOutline(t *testing.T) {
	p, err := IProfileSection(0.3, 0.15, 0.01, 0.02).Profile()
	if err != nil {
		t.Fatal(err)
	}
	pc := p.OuterCurve.(geom.IndexedPolyCurve)
	if len(pc.Points) != 12 {
		t.Fatalf("points = %d, want 12", len(pc.Points))
	}
	for _, q := range pc.Points {
		if math.Abs(q.X) > 0.075+1e-12 || math.Abs(q.Y) > 0.15+1e-12 {
			t.Errorf("point %v outside the 0.15 x 0.3 envelope", q)
		}
	}
}

func TestSectionCheck(t *testing.T) {
	tests := []struct {
		name string
		sec  Section
		want string
	}{
		{"zero height", RectangularSection(0, 0.1), "must be positive"},
		{"box walls", BoxSection(0.2, 0.1, 0.05, 0.01), "leave no void"},
		{"web too wide", IProfileSection(0.3, 0.1, 0.1, 0.02), "exceed"},
		{"thick tube", TubularSection(0.1, 0.1), "less than radius"},
		{"unknown", Section{Kind: SectionKind(9)}, "unknown section kind"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.sec.Check()
			if !strings.Contains(msg, tt.want) {
				t.Errorf("Check() = %q, want it to contain %q", msg, tt.want)
			}
			if _, err := tt.sec.Profile(); err == nil {
				t.Error("Profile should fail for an invalid section")
			}
		})
	}
}

func TestParseSectionKind(t *testing.T) {
	for _, s := range []string{"BOX", "iprofile", "Tubular", "RECTANGULAR"} {
		k, err := ParseSectionKind(s)
		if err != nil {
			t.Errorf("ParseSectionKind(%q): %v", s, err)
			continue
		}
		if !strings.EqualFold(k.String(), s) {
			t.Errorf("ParseSectionKind(%q) = %s", s, k)
		}
	}
	if _, err := ParseSectionKind("HAT"); err == nil {
		t.Error("expected an error for an unknown section")
	}
}

func TestBeamGeometry(t *testing.T) {
	n := &Node{ID: NewNodeID("bm1"), Kind: NodeBeam, Name: "bm1", Data: testBeam(5)}
	geoms, err := n.Geometries()
	if err != nil {
		t.Fatal(err)
	}
	if len(geoms) != 1 || geoms[0].ID != "bm1" {
		t.Fatalf("geometries = %+v", geoms)
	}
	ex := geoms[0].Shape.(geom.ExtrudedAreaSolid)
	if math.Abs(ex.Depth-5) > 1e-12 {
		t.Errorf("depth = %g, want 5", ex.Depth)
	}
	if !ex.Position.Axis.IsEqual(geom.XDir, 1e-12) {
		t.Errorf("extrusion axis = %v, want +X", ex.Position.Axis)
	}
	// local Y follows the up vector
	if !ex.Position.YDirection().IsEqual(geom.ZDir, 1e-12) {
		t.Errorf("section up = %v, want +Z", ex.Position.YDirection())
	}
}

func TestVerticalBeamWithDefaultUp(t *testing.T) {
	n := &Node{ID: NewNodeID("col"), Kind: NodeBeam, Data: BeamData{
		Start: geom.P(0, 0, 0), End: geom.P(0, 0, 3), Section: RectangularSection(0.2, 0.2),
	}}
	geoms, err := n.Geometries()
	if err != nil {
		t.Fatal(err)
	}
	p := geoms[0].Shape.(geom.ExtrudedAreaSolid).Position
	if !p.IsOrthonormal(1e-9) {
		t.Errorf("placement not orthonormal: %+v", p)
	}
}

func TestPipeGeometries(t *testing.T) {
	n := &Node{ID: NewNodeID("p"), Kind: NodePipe, Name: "pipe1", Data: PipeData{
		Points:  []geom.Point{geom.P(0, 0, 0), geom.P(2, 0, 0), geom.P(2, 0, 3)},
		Section: TubularSection(0.1, 0.01),
	}}
	geoms, err := n.Geometries()
	if err != nil {
		t.Fatal(err)
	}
	if len(geoms) != 2 {
		t.Fatalf("segments = %d, want 2", len(geoms))
	}
	if geoms[0].ID != "pipe1-0" || geoms[1].ID != "pipe1-1" {
		t.Errorf("ids = %q, %q", geoms[0].ID, geoms[1].ID)
	}
	if d := geoms[1].Shape.(geom.ExtrudedAreaSolid).Depth; math.Abs(d-3) > 1e-12 {
		t.Errorf("second segment depth = %g, want 3", d)
	}

	n.Data = PipeData{Points: []geom.Point{geom.P(0, 0, 0), geom.P(1, 0, 0)}, Section: RectangularSection(1, 1)}
	if _, err := n.Geometries(); err == nil {
		t.Error("expected an error for a non-tubular pipe")
	}
}

func TestPlateGeometry(t *testing.T) {
	n := &Node{ID: NewNodeID("pl"), Kind: NodePlate, Name: "pl1", Data: PlateData{
		Placement: geom.PlacementAt(geom.P(0, 0, 1)),
		Corners: []geom.Corner{
			{Point: geom.P2(0, 0)}, {Point: geom.P2(2, 0), Radius: 0.2}, {Point: geom.P2(2, 1)}, {Point: geom.P2(0, 1)},
		},
		Thickness: 0.01,
	}}
	geoms, err := n.Geometries()
	if err != nil {
		t.Fatal(err)
	}
	ex := geoms[0].Shape.(geom.ExtrudedAreaSolid)
	pc := ex.SweptArea.OuterCurve.(geom.IndexedPolyCurve)
	arcs := 0
	for _, s := range pc.Segments {
		if _, ok := s.(geom.ArcIndex); ok {
			arcs++
		}
	}
	if arcs != 1 {
		t.Errorf("arc segments = %d, want 1", arcs)
	}
	if ex.Depth != 0.01 {
		t.Errorf("depth = %g, want 0.01", ex.Depth)
	}
}

func TestAddBooleanAndClone(t *testing.T) {
	n := &Node{ID: NewNodeID("bm"), Kind: NodeBeam, Name: "bm", Data: testBeam(4)}
	hole, err := geom.NewCylinder(geom.PlacementAt(geom.P(1, 0, -1)), 2, 0.05)
	if err != nil {
		t.Fatal(err)
	}
	cut := geom.MustGeometry("cut", hole)
	if err := n.AddBoolean(cut, geom.Difference); err != nil {
		t.Fatal(err)
	}
	if err := n.AddBoolean(cut, geom.BoolOpType(7)); err == nil {
		t.Error("expected an error for an invalid operator")
	}

	c := n.Clone()
	if err := c.AddBoolean(cut, geom.Union); err != nil {
		t.Fatal(err)
	}
	if len(n.Booleans) != 1 || len(c.Booleans) != 2 {
		t.Errorf("booleans: original %d, clone %d; want 1 and 2", len(n.Booleans), len(c.Booleans))
	}

	geoms, err := n.Geometries()
	if err != nil {
		t.Fatal(err)
	}
	ops := geoms[0].BoolOperations
	if len(ops) != 1 || ops[0].Operator != geom.Difference || ops[0].Operand.ID != "cut" {
		t.Errorf("geometry booleans = %+v", ops)
	}

	g := &Node{ID: NewNodeID("g"), Kind: NodeGroup, Data: GroupData{Placement: geom.DefaultPlacement()}}
	if err := g.AddBoolean(cut, geom.Difference); err == nil {
		t.Error("groups should reject boolean operations")
	}
}

func TestAssemblyGeometriesComposesPlacements(t *testing.T) {
	a := New()
	beamID := NewNodeID("bm")
	inner := NewNodeID("inner")
	outer := NewNodeID("outer")
	a.AddNode(&Node{ID: beamID, Kind: NodeBeam, Name: "bm", Data: testBeam(1)})
	a.AddNode(&Node{ID: inner, Kind: NodeGroup, Name: "inner", Children: []NodeID{beamID},
		Data: GroupData{Placement: geom.PlacementAt(geom.P(0, 5, 0))}})
	a.AddNode(&Node{ID: outer, Kind: NodeGroup, Name: "outer", Children: []NodeID{inner, beamID},
		Data: GroupData{Placement: geom.PlacementAt(geom.P(10, 0, 0))}})
	a.AddRoot(outer)

	parts, err := a.Geometries()
	if err != nil {
		t.Fatal(err)
	}
	if len(parts) != 2 {
		t.Fatalf("parts = %d, want 2", len(parts))
	}
	want := []geom.Point{geom.P(10, 5, 0), geom.P(10, 0, 0)}
	for i, p := range parts {
		loc := p.Geometry.Shape.(geom.ExtrudedAreaSolid).Position.Location
		if !loc.IsClose(want[i], 1e-12) {
			t.Errorf("part %d at %v, want %v", i, loc, want[i])
		}
	}
	if parts[0].Geometry.ID != "bm" || parts[1].Geometry.ID != "bm#1" {
		t.Errorf("ids = %q, %q", parts[0].Geometry.ID, parts[1].Geometry.ID)
	}
	// the node itself stays in its own frame
	if a.Get(beamID).Data.(BeamData).Start != geom.P(0, 0, 0) {
		t.Error("Geometries mutated the node")
	}
}

func TestAssemblyGeometriesRejectsCycles(t *testing.T) {
	a := New()
	g1, g2 := NewNodeID("g1"), NewNodeID("g2")
	a.AddNode(&Node{ID: g1, Kind: NodeGroup, Children: []NodeID{g2}, Data: GroupData{Placement: geom.DefaultPlacement()}})
	a.AddNode(&Node{ID: g2, Kind: NodeGroup, Children: []NodeID{g1}, Data: GroupData{Placement: geom.DefaultPlacement()}})
	a.AddRoot(g1)
	if _, err := a.Geometries(); err == nil || !strings.Contains(err.Error(), "cycle") {
		t.Errorf("err = %v, want a cycle error", err)
	}
}

func TestDefaultColorApplies(t *testing.T) {
	a := New()
	c, _ := geom.NewColor(1, 0, 0, 1)
	a.Defaults.Color = &c
	id := NewNodeID("bm")
	a.AddNode(&Node{ID: id, Kind: NodeBeam, Data: testBeam(1)})
	a.AddRoot(id)
	parts, err := a.Geometries()
	if err != nil {
		t.Fatal(err)
	}
	if parts[0].Geometry.Color == nil || parts[0].Geometry.Color.R != 1 {
		t.Errorf("color = %+v, want the default", parts[0].Geometry.Color)
	}
}
