// Package model defines the structural model: an assembly of beams,
// plates, pipes and free-form shapes arranged in groups. An Assembly is
// produced by script evaluation or file import and materialized into
// geom.Geometry values for export and tessellation.
package model

import (
	"fmt"

	"github.com/Krande/adapy-sub006/pkg/geom"
	"github.com/Krande/adapy-sub006/pkg/guid"
)

// NodeID identifies a node. IDs created by NewNodeID are compressed GUIDs
// derived from a key, so the same key yields the same ID across runs.
type NodeID string

// NewNodeID returns the stable ID for key. An empty key yields a random ID.
func NewNodeID(key string) NodeID {
	return NodeID(guid.Create(key))
}

// IsZero reports whether the ID is unset.
func (id NodeID) IsZero() bool { return id == "" }

// Short returns the first 8 characters, for messages.
func (id NodeID) Short() string {
	if len(id) > 8 {
		return string(id[:8])
	}
	return string(id)
}

// NodeKind enumerates the types of nodes in an assembly.
type NodeKind int

const (
	NodeBeam  NodeKind = iota // straight member with a cross section
	NodePlate                 // planar outline with thickness
	NodePipe                  // polyline of tubular segments
	NodeShape                 // free-form shape (primitive solid or shell)
	NodeGroup                 // placement + children
)

func (k NodeKind) String() string {
	switch k {
	case NodeBeam:
		return "beam"
	case NodePlate:
		return "plate"
	case NodePipe:
		return "pipe"
	case NodeShape:
		return "shape"
	case NodeGroup:
		return "group"
	default:
		return "unknown"
	}
}

// Node is the fundamental element of an assembly.
type Node struct {
	ID       NodeID                  `json:"id"`
	Kind     NodeKind                `json:"kind"`
	Name     string                  `json:"name,omitempty"`
	Children []NodeID                `json:"children,omitempty"`
	Data     NodeData                `json:"data"`
	Color    *geom.Color             `json:"color,omitempty"`
	Booleans []geom.BooleanOperation `json:"booleans,omitempty"`
}

// NodeData is the interface for kind-specific node payloads.
type NodeData interface {
	nodeData()
}

// AddBoolean appends a deferred boolean step (typically a penetration)
// applied to every geometry this node materializes. Operations run in the
// order they were added.
func (n *Node) AddBoolean(operand geom.Geometry, op geom.BoolOpType) error {
	if !op.Valid() {
		return fmt.Errorf("model: node %q: unknown boolean operator %v", n.label(), op)
	}
	if n.Kind == NodeGroup {
		return fmt.Errorf("model: node %q: groups cannot carry boolean operations", n.label())
	}
	if operand.Shape == nil {
		return fmt.Errorf("model: node %q: boolean operand has no shape", n.label())
	}
	n.Booleans = append(n.Booleans, geom.BooleanOperation{Operand: operand.Clone(), Operator: op})
	return nil
}

// Clone returns a deep copy of n. Shapes are values and are shared.
func (n *Node) Clone() *Node {
	out := *n
	out.Children = append([]NodeID(nil), n.Children...)
	if n.Color != nil {
		c := *n.Color
		out.Color = &c
	}
	out.Booleans = nil
	for _, b := range n.Booleans {
		out.Booleans = append(out.Booleans, geom.BooleanOperation{Operand: b.Operand.Clone(), Operator: b.Operator})
	}
	switch d := n.Data.(type) {
	case PlateData:
		d.Corners = append([]geom.Corner(nil), d.Corners...)
		out.Data = d
	case PipeData:
		d.Points = append([]geom.Point(nil), d.Points...)
		out.Data = d
	}
	return &out
}

func (n *Node) label() string {
	if n.Name != "" {
		return n.Name
	}
	return n.ID.Short()
}

// Defaults contains assembly-wide settings.
type Defaults struct {
	Units string      `json:"units"`
	Color *geom.Color `json:"color,omitempty"`
}

// Assembly is the top-level structure. Each evaluation or import produces a
// new one.
type Assembly struct {
	Nodes     map[NodeID]*Node  `json:"nodes"`
	Roots     []NodeID          `json:"roots"`
	NameIndex map[string]NodeID `json:"name_index"`
	Defaults  Defaults          `json:"defaults"`
}

// New creates an empty Assembly with default settings.
func New() *Assembly {
	return &Assembly{
		Nodes:     make(map[NodeID]*Node),
		NameIndex: make(map[string]NodeID),
		Defaults:  Defaults{Units: "m"},
	}
}

// AddNode adds a node to the assembly. It does not check for duplicates.
func (a *Assembly) AddNode(n *Node) {
	a.Nodes[n.ID] = n
	if n.Name != "" {
		a.NameIndex[n.Name] = n.ID
	}
}

// AddRoot registers a node ID as a root of the assembly.
func (a *Assembly) AddRoot(id NodeID) {
	a.Roots = append(a.Roots, id)
}

// Lookup returns the node with the given user-assigned name, or nil.
func (a *Assembly) Lookup(name string) *Node {
	id, ok := a.NameIndex[name]
	if !ok {
		return nil
	}
	return a.Nodes[id]
}

// MustLookup returns the node with the given name, or panics.
func (a *Assembly) MustLookup(name string) *Node {
	n := a.Lookup(name)
	if n == nil {
		panic(fmt.Sprintf("model: no node named %q", name))
	}
	return n
}

// Get returns the node with the given ID, or nil.
func (a *Assembly) Get(id NodeID) *Node {
	return a.Nodes[id]
}

// Children returns the child nodes of the given node, skipping dangling IDs.
func (a *Assembly) Children(n *Node) []*Node {
	children := make([]*Node, 0, len(n.Children))
	for _, cid := range n.Children {
		if c := a.Nodes[cid]; c != nil {
			children = append(children, c)
		}
	}
	return children
}

// NodeCount returns the total number of nodes.
func (a *Assembly) NodeCount() int {
	return len(a.Nodes)
}
