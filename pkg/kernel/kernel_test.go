package kernel

import (
	"testing"

	"github.com/Krande/adapy-sub006/pkg/geom"
)

// --- Mesh helper method tests ---

func TestMeshVertexCount(t *testing.T) {
	tests := []struct {
		name     string
		vertices []float32
		want     int
	}{
		{"empty", nil, 0},
		{"one vertex", []float32{1, 2, 3}, 1},
		{"four vertices", []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Vertices: tt.vertices}
			if got := m.VertexCount(); got != tt.want {
				t.Errorf("VertexCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshTriangleCount(t *testing.T) {
	tests := []struct {
		name    string
		indices []uint32
		want    int
	}{
		{"empty", nil, 0},
		{"one triangle", []uint32{0, 1, 2}, 1},
		{"two triangles", []uint32{0, 1, 2, 2, 3, 0}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Indices: tt.indices}
			if got := m.TriangleCount(); got != tt.want {
				t.Errorf("TriangleCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshIsEmpty(t *testing.T) {
	t.Run("empty mesh", func(t *testing.T) {
		m := &Mesh{}
		if !m.IsEmpty() {
			t.Error("IsEmpty() = false for empty mesh, want true")
		}
	})
	t.Run("non-empty mesh", func(t *testing.T) {
		m := &Mesh{Vertices: []float32{1, 2, 3}}
		if m.IsEmpty() {
			t.Error("IsEmpty() = true for non-empty mesh, want false")
		}
	})
}

// --- Compile-time interface check with a stub kernel ---

// stubSolid is a bounding-box-only Solid for testing.
type stubSolid struct {
	minBB, maxBB [3]float64
}

func (s *stubSolid) BoundingBox() (min, max [3]float64) {
	return s.minBB, s.maxBB
}

func (s *stubSolid) Contains(p geom.Point) bool {
	return p.X >= s.minBB[0] && p.X <= s.maxBB[0] &&
		p.Y >= s.minBB[1] && p.Y <= s.maxBB[1] &&
		p.Z >= s.minBB[2] && p.Z <= s.maxBB[2]
}

func box(x, y, z float64) *stubSolid {
	return &stubSolid{maxBB: [3]float64{x, y, z}}
}

// stubKernel is a minimal Kernel implementation that proves the interface
// is satisfiable. Every solid is its bounding box.
type stubKernel struct{}

func (k *stubKernel) Box(x, y, z float64) (Solid, error) { return box(x, y, z), nil }

func (k *stubKernel) Sphere(r float64) (Solid, error) {
	return &stubSolid{minBB: [3]float64{-r, -r, -r}, maxBB: [3]float64{r, r, r}}, nil
}

func (k *stubKernel) Cylinder(height, radius float64) (Solid, error) {
	return &stubSolid{minBB: [3]float64{-radius, -radius, 0}, maxBB: [3]float64{radius, radius, height}}, nil
}

func (k *stubKernel) Cone(height, r float64) (Solid, error) { return k.Cylinder(height, r) }

func (k *stubKernel) Extrude(p Profile, _ geom.Direction, depth float64) (Solid, error) {
	return box(1, 1, depth), nil
}

func (k *stubKernel) Revolve(p Profile, _ float64) (Solid, error) { return box(1, 1, 1), nil }

func (k *stubKernel) Union(a, _ Solid) Solid        { return a }
func (k *stubKernel) Difference(a, _ Solid) Solid   { return a }
func (k *stubKernel) Intersection(a, _ Solid) Solid { return a }

func (k *stubKernel) Transform(s Solid, _ geom.Placement) Solid { return s }

func (k *stubKernel) ToMesh(_ Solid) (*Mesh, error) {
	return &Mesh{}, nil
}

// Compile-time checks that the stubs implement the interfaces.
var _ Solid = (*stubSolid)(nil)
var _ Kernel = (*stubKernel)(nil)

func TestStubKernelBoxBoundingBox(t *testing.T) {
	var k Kernel = &stubKernel{}
	s, err := k.Box(10, 20, 30)
	if err != nil {
		t.Fatalf("Box() error = %v", err)
	}
	min, max := s.BoundingBox()
	if min != [3]float64{0, 0, 0} {
		t.Errorf("Box min = %v, want [0 0 0]", min)
	}
	if max != [3]float64{10, 20, 30} {
		t.Errorf("Box max = %v, want [10 20 30]", max)
	}
	if !s.Contains(geom.P(5, 5, 5)) || s.Contains(geom.P(11, 5, 5)) {
		t.Error("Contains() disagrees with the bounding box")
	}
}

func TestStubKernelToMesh(t *testing.T) {
	var k Kernel = &stubKernel{}
	s, _ := k.Box(1, 1, 1)
	m, err := k.ToMesh(s)
	if err != nil {
		t.Fatalf("ToMesh() error = %v", err)
	}
	if m == nil {
		t.Fatal("ToMesh() returned nil mesh")
	}
	if !m.IsEmpty() {
		t.Error("stub ToMesh() should return empty mesh")
	}
}
