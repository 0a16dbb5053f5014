package mesh

import (
	"fmt"
	"io"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Krande/adapy-sub006/pkg/geom"
)

// Part is one named mesh of an export, typically one structural member.
type Part struct {
	Name  string
	Mesh  Result
	Color *geom.Color
}

// WriteGLTF writes parts as a glTF 2.0 document with one node per part.
// binary selects the .glb container; otherwise JSON with embedded buffers
// is written. Parts with no triangles are skipped.
func WriteGLTF(w io.Writer, parts []Part, binary bool) error {
	doc := gltf.NewDocument()
	for _, p := range parts {
		if p.Mesh.TriangleCount() == 0 {
			continue
		}
		prim, err := primitive(doc, p)
		if err != nil {
			return fmt.Errorf("mesh: part %q: %w", p.Name, err)
		}
		doc.Meshes = append(doc.Meshes, &gltf.Mesh{Name: p.Name, Primitives: []*gltf.Primitive{prim}})
		doc.Nodes = append(doc.Nodes, &gltf.Node{Name: p.Name, Mesh: gltf.Index(uint32(len(doc.Meshes) - 1))})
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(len(doc.Nodes)-1))
	}
	if !binary {
		for _, b := range doc.Buffers {
			b.EmbeddedResource()
		}
	}
	enc := gltf.NewEncoder(w)
	enc.AsBinary = binary
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("mesh: encode gltf: %w", err)
	}
	return nil
}

func primitive(doc *gltf.Document, p Part) (*gltf.Primitive, error) {
	m := p.Mesh
	if len(m.Normals) != 0 && len(m.Normals) != len(m.Positions) {
		return nil, fmt.Errorf("%d normal values for %d positions", len(m.Normals), len(m.Positions))
	}
	positions := triples(m.Positions)
	attrs := map[string]uint32{
		gltf.POSITION: modeler.WritePosition(doc, positions),
	}
	if len(m.Normals) > 0 {
		attrs[gltf.NORMAL] = modeler.WriteNormal(doc, triples(m.Normals))
	}
	if p.Color != nil {
		c := [4]uint8{channel(p.Color.R), channel(p.Color.G), channel(p.Color.B), channel(p.Color.Opacity)}
		colors := make([][4]uint8, len(positions))
		for i := range colors {
			colors[i] = c
		}
		attrs[gltf.COLOR_0] = modeler.WriteColor(doc, colors)
	}
	return &gltf.Primitive{
		Attributes: attrs,
		Indices:    gltf.Index(modeler.WriteIndices(doc, m.Indices)),
	}, nil
}

func triples(flat []float32) [][3]float32 {
	out := make([][3]float32, len(flat)/3)
	for i := range out {
		out[i] = [3]float32{flat[3*i], flat[3*i+1], flat[3*i+2]}
	}
	return out
}

func channel(v float64) uint8 {
	return uint8(max(0, min(1, v))*255 + 0.5)
}
