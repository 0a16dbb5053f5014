// Package mesh post-processes triangle meshes produced by the kernel:
// vertex deduplication and export to glTF.
package mesh

import (
	"fmt"
	"math"
)

// Result is an optimized mesh. Normals is empty when the input had none.
type Result struct {
	Positions []float32
	Indices   []uint32
	Normals   []float32
}

// VertexCount returns the number of vertices.
func (r Result) VertexCount() int { return len(r.Positions) / 3 }

// TriangleCount returns the number of triangles.
func (r Result) TriangleCount() int { return len(r.Indices) / 3 }

type cell [3]int64

// Optimize merges duplicate vertices. With tol == 0 only bit-identical
// positions merge; otherwise positions that fall in the same tol-sized
// grid cell merge. The first vertex of each group is kept along with its
// normal. Triangle count and winding are unchanged, and running Optimize
// on its own output returns the same mesh.
func Optimize(positions []float32, indices []uint32, normals []float32, tol float64) (Result, error) {
	if len(positions)%3 != 0 {
		return Result{}, fmt.Errorf("mesh: %d position values is not a multiple of 3", len(positions))
	}
	if len(indices)%3 != 0 {
		return Result{}, fmt.Errorf("mesh: %d indices is not a multiple of 3", len(indices))
	}
	if len(normals) != 0 && len(normals) != len(positions) {
		return Result{}, fmt.Errorf("mesh: %d normal values for %d position values", len(normals), len(positions))
	}
	if tol < 0 || math.IsNaN(tol) {
		return Result{}, fmt.Errorf("mesh: invalid tolerance %v", tol)
	}
	n := len(positions) / 3
	for i, idx := range indices {
		if int(idx) >= n {
			return Result{}, fmt.Errorf("mesh: index %d at %d out of range (%d vertices)", idx, i, n)
		}
	}

	key := func(i int) cell {
		p := positions[3*i : 3*i+3]
		if tol == 0 {
			return cell{int64(math.Float32bits(p[0])), int64(math.Float32bits(p[1])), int64(math.Float32bits(p[2]))}
		}
		return cell{
			int64(math.Round(float64(p[0]) / tol)),
			int64(math.Round(float64(p[1]) / tol)),
			int64(math.Round(float64(p[2]) / tol)),
		}
	}

	seen := make(map[cell]uint32, n)
	remap := make([]uint32, n)
	out := Result{Positions: make([]float32, 0, len(positions))}
	if len(normals) > 0 {
		out.Normals = make([]float32, 0, len(normals))
	}
	for i := range n {
		k := key(i)
		if j, ok := seen[k]; ok {
			remap[i] = j
			continue
		}
		j := uint32(len(out.Positions) / 3)
		seen[k] = j
		remap[i] = j
		out.Positions = append(out.Positions, positions[3*i:3*i+3]...)
		if len(normals) > 0 {
			out.Normals = append(out.Normals, normals[3*i:3*i+3]...)
		}
	}
	out.Indices = make([]uint32, len(indices))
	for i, idx := range indices {
		out.Indices[i] = remap[idx]
	}
	return out, nil
}
