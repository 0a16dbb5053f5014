package model

import (
	"fmt"

	"github.com/Krande/adapy-sub006/pkg/geom"
)

// Part is one materialized geometry with the node it came from. Geometry
// is expressed in the assembly's global frame.
type Part struct {
	NodeID   NodeID
	Name     string
	Kind     NodeKind
	Geometry geom.Geometry
}

// Geometries materializes n in its own frame. Beams, plates and shapes
// yield one geometry; pipes one per segment; groups none. Every geometry
// carries a copy of the node's boolean operations.
func (n *Node) Geometries() ([]geom.Geometry, error) {
	var shapes []geom.Shape
	switch d := n.Data.(type) {
	case BeamData:
		s, err := beamSolid(d.Start, d.End, d.Up, d.Section)
		if err != nil {
			return nil, fmt.Errorf("model: beam %q: %w", n.label(), err)
		}
		shapes = append(shapes, s)
	case PlateData:
		s, err := plateSolid(d)
		if err != nil {
			return nil, fmt.Errorf("model: plate %q: %w", n.label(), err)
		}
		shapes = append(shapes, s)
	case PipeData:
		if d.Section.Kind != SectionTubular {
			return nil, fmt.Errorf("model: pipe %q: section must be TUBULAR, got %s", n.label(), d.Section.Kind)
		}
		if len(d.Points) < 2 {
			return nil, fmt.Errorf("model: pipe %q: needs at least 2 points, got %d", n.label(), len(d.Points))
		}
		for i := 1; i < len(d.Points); i++ {
			s, err := beamSolid(d.Points[i-1], d.Points[i], geom.Direction{}, d.Section)
			if err != nil {
				return nil, fmt.Errorf("model: pipe %q segment %d: %w", n.label(), i-1, err)
			}
			shapes = append(shapes, s)
		}
	case ShapeData:
		if d.Shape == nil {
			return nil, fmt.Errorf("model: shape %q: missing shape", n.label())
		}
		shapes = append(shapes, d.Shape)
	case GroupData:
		return nil, nil
	default:
		return nil, fmt.Errorf("model: node %q: unsupported data %T", n.label(), n.Data)
	}

	out := make([]geom.Geometry, 0, len(shapes))
	for i, s := range shapes {
		id := n.label()
		if len(shapes) > 1 {
			id = fmt.Sprintf("%s-%d", id, i)
		}
		g, err := geom.NewGeometry(id, s, n.Color)
		if err != nil {
			return nil, fmt.Errorf("model: node %q: %w", n.label(), err)
		}
		for _, b := range n.Booleans {
			if g, err = g.AddBoolean(b.Operand, b.Operator); err != nil {
				return nil, fmt.Errorf("model: node %q: %w", n.label(), err)
			}
		}
		out = append(out, g)
	}
	return out, nil
}

// beamPlacement is the member frame: origin at start, local Z along the
// member and local Y as close to up as possible.
func beamPlacement(start, end geom.Point, up geom.Direction) (geom.Placement, float64, error) {
	axis, err := geom.DirectionFrom(start, end)
	if err != nil {
		return geom.Placement{}, 0, fmt.Errorf("zero length member at %v", start)
	}
	if up.Length() == 0 {
		up = geom.ZDir
	}
	p, err := geom.PlacementFromAxes(start, axis, up.Cross(axis))
	if err != nil {
		return geom.Placement{}, 0, err
	}
	return p, start.Distance(end), nil
}

func beamSolid(start, end geom.Point, up geom.Direction, sec Section) (geom.Solid, error) {
	p, length, err := beamPlacement(start, end, up)
	if err != nil {
		return nil, err
	}
	prof, err := sec.Profile()
	if err != nil {
		return nil, err
	}
	return geom.NewExtrudedAreaSolid(prof, p, geom.ZDir, length)
}

func plateSolid(d PlateData) (geom.Solid, error) {
	outline, err := geom.PolyCurveFromCorners(d.Corners)
	if err != nil {
		return nil, err
	}
	prof, err := geom.NewArbitraryProfile(outline)
	if err != nil {
		return nil, err
	}
	return geom.NewExtrudedAreaSolid(prof, d.Placement, geom.ZDir, d.Thickness)
}

// Geometries walks the roots depth-first in order and materializes every
// leaf, composing group placements on the way down. A node reachable
// along several paths yields one part per path; repeated geometry ids get
// a numeric suffix.
func (a *Assembly) Geometries() ([]Part, error) {
	var parts []Part
	seen := make(map[string]int)
	onPath := make(map[NodeID]bool)

	var walk func(id NodeID, frame geom.Placement) error
	walk = func(id NodeID, frame geom.Placement) error {
		n := a.Nodes[id]
		if n == nil {
			return fmt.Errorf("model: reference %s does not exist", id.Short())
		}
		if onPath[id] {
			return fmt.Errorf("model: cycle through node %q", n.label())
		}
		onPath[id] = true
		defer delete(onPath, id)

		if gd, ok := n.Data.(GroupData); ok {
			child := frame.Compose(gd.Placement)
			for _, cid := range n.Children {
				if err := walk(cid, child); err != nil {
					return err
				}
			}
			return nil
		}

		geoms, err := n.Geometries()
		if err != nil {
			return err
		}
		for _, g := range geoms {
			g = g.Transform(frame)
			if g.Color == nil && a.Defaults.Color != nil {
				c := *a.Defaults.Color
				g.Color = &c
			}
			if k := seen[g.ID]; k > 0 {
				seen[g.ID] = k + 1
				g.ID = fmt.Sprintf("%s#%d", g.ID, k)
			} else {
				seen[g.ID] = 1
			}
			parts = append(parts, Part{NodeID: n.ID, Name: n.Name, Kind: n.Kind, Geometry: g})
		}
		return nil
	}

	for _, rid := range a.Roots {
		if err := walk(rid, geom.DefaultPlacement()); err != nil {
			return nil, err
		}
	}
	return parts, nil
}
