package model

import (
	"fmt"
	"math"
	"sort"

	"github.com/samber/lo"

	"github.com/Krande/adapy-sub006/pkg/geom"
)

// minLength is the shortest member or segment accepted.
const minLength = 1e-9

// ValidationSeverity indicates whether a validation finding blocks export
// or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks export
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	NodeID   NodeID             // which node has the problem (zero if assembly-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.NodeID.IsZero() {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] node %s: %s", e.Severity, e.NodeID.Short(), e.Message)
}

// HasErrors reports whether any finding has error severity.
func HasErrors(findings []ValidationError) bool {
	return lo.SomeBy(findings, func(e ValidationError) bool { return e.Severity == SeverityError })
}

// Validate runs the structural and geometric checks and returns every
// finding. An empty slice means the assembly is valid. Validate never
// mutates a.
func Validate(a *Assembly) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateDAG(a)...)
	errs = append(errs, validateReferences(a)...)
	errs = append(errs, validateNames(a)...)
	errs = append(errs, validateRoots(a)...)
	errs = append(errs, validateMembers(a)...)
	return errs
}

// sortedIDs gives the checks a stable iteration order.
func sortedIDs(a *Assembly) []NodeID {
	ids := lo.Keys(a.Nodes)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// validateDAG checks for cycles using DFS with 3-color marking.
func validateDAG(a *Assembly) []ValidationError {
	const (
		white = iota
		gray
		black
	)

	color := make(map[NodeID]int)
	var errs []ValidationError

	var visit func(id NodeID) bool
	visit = func(id NodeID) bool {
		switch color[id] {
		case black:
			return false
		case gray:
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("cycle detected: node %s is part of a cycle", id.Short()),
				Severity: SeverityError,
			})
			return true
		}

		color[id] = gray
		node, ok := a.Nodes[id]
		if !ok {
			// Dangling; reported by validateReferences.
			color[id] = black
			return false
		}
		for _, childID := range node.Children {
			if visit(childID) {
				return true
			}
		}
		color[id] = black
		return false
	}

	for _, id := range sortedIDs(a) {
		if color[id] == white && visit(id) {
			break
		}
	}
	return errs
}

// validateReferences checks children and kind/children consistency.
func validateReferences(a *Assembly) []ValidationError {
	var errs []ValidationError
	for _, id := range sortedIDs(a) {
		node := a.Nodes[id]
		for _, childID := range node.Children {
			if _, ok := a.Nodes[childID]; !ok {
				errs = append(errs, ValidationError{
					NodeID:   id,
					Message:  fmt.Sprintf("child reference %s does not exist", childID.Short()),
					Severity: SeverityError,
				})
			}
		}
		if node.Kind != NodeGroup && len(node.Children) > 0 {
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("%s node has %d children; only groups may have children", node.Kind, len(node.Children)),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateNames checks that every name index entry resolves and that no
// two nodes share a name.
func validateNames(a *Assembly) []ValidationError {
	var errs []ValidationError

	names := lo.Keys(a.NameIndex)
	sort.Strings(names)
	for _, name := range names {
		id := a.NameIndex[name]
		if _, ok := a.Nodes[id]; !ok {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("name index entry %q references non-existent node %s", name, id.Short()),
				Severity: SeverityError,
			})
		}
	}

	named := lo.Filter(lo.Values(a.Nodes), func(n *Node, _ int) bool { return n.Name != "" })
	byName := lo.GroupBy(named, func(n *Node) string { return n.Name })
	dups := lo.Keys(lo.PickBy(byName, func(_ string, ns []*Node) bool { return len(ns) > 1 }))
	sort.Strings(dups)
	for _, name := range dups {
		errs = append(errs, ValidationError{
			Message:  fmt.Sprintf("duplicate name %q assigned to %d nodes", name, len(byName[name])),
			Severity: SeverityError,
		})
	}
	return errs
}

// validateRoots checks root references, warns about an empty assembly and
// about nodes unreachable from any root.
func validateRoots(a *Assembly) []ValidationError {
	var errs []ValidationError

	for _, rid := range a.Roots {
		if _, ok := a.Nodes[rid]; !ok {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("root reference %s does not exist", rid.Short()),
				Severity: SeverityError,
			})
		}
	}
	if len(a.Nodes) == 0 {
		return errs
	}
	if len(a.Roots) == 0 {
		errs = append(errs, ValidationError{
			Message:  fmt.Sprintf("assembly has %d nodes but no roots", len(a.Nodes)),
			Severity: SeverityWarning,
		})
	}

	reachable := make(map[NodeID]bool)
	queue := lo.Filter(lo.Uniq(a.Roots), func(id NodeID, _ int) bool { return a.Nodes[id] != nil })
	for _, id := range queue {
		reachable[id] = true
	}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		node := a.Nodes[current]
		if node == nil {
			continue
		}
		for _, childID := range node.Children {
			if !reachable[childID] {
				reachable[childID] = true
				queue = append(queue, childID)
			}
		}
	}

	for _, id := range sortedIDs(a) {
		if !reachable[id] {
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("node %q is not reachable from any root (orphan)", a.Nodes[id].label()),
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}

// validateMembers checks the geometric payload of every node.
func validateMembers(a *Assembly) []ValidationError {
	var errs []ValidationError
	add := func(id NodeID, sev ValidationSeverity, format string, args ...any) {
		errs = append(errs, ValidationError{NodeID: id, Message: fmt.Sprintf(format, args...), Severity: sev})
	}

	for _, id := range sortedIDs(a) {
		node := a.Nodes[id]
		switch d := node.Data.(type) {
		case BeamData:
			if msg := d.Section.Check(); msg != "" {
				add(id, SeverityError, "%s", msg)
			}
			length := d.Start.Distance(d.End)
			if length < minLength {
				add(id, SeverityError, "beam length is %.4g, must be positive", length)
				continue
			}
			axis, _ := geom.DirectionFrom(d.Start, d.End)
			if d.Up.Length() > 0 && math.Abs(axis.Dot(d.Up.Normalized())) > 1-1e-9 {
				add(id, SeverityWarning, "beam up direction %v is parallel to the beam axis; section orientation is arbitrary", d.Up)
			}
		case PlateData:
			if len(d.Corners) < 3 {
				add(id, SeverityError, "plate outline has %d points, needs at least 3", len(d.Corners))
			}
			if d.Thickness <= 0 {
				add(id, SeverityError, "plate thickness is %.4g, must be positive", d.Thickness)
			}
			if lo.SomeBy(d.Corners, func(c geom.Corner) bool { return c.Point.Z != 0 }) {
				add(id, SeverityError, "plate outline points must lie in the plate plane (z = 0)")
			}
		case PipeData:
			if d.Section.Kind != SectionTubular {
				add(id, SeverityError, "pipe section must be TUBULAR, got %s", d.Section.Kind)
			} else if msg := d.Section.Check(); msg != "" {
				add(id, SeverityError, "%s", msg)
			}
			if len(d.Points) < 2 {
				add(id, SeverityError, "pipe has %d points, needs at least 2", len(d.Points))
			}
			for i := 1; i < len(d.Points); i++ {
				if d.Points[i-1].Distance(d.Points[i]) < minLength {
					add(id, SeverityError, "pipe segment %d has zero length", i-1)
				}
			}
		case ShapeData:
			if d.Shape == nil {
				add(id, SeverityError, "shape node has no shape")
			}
		case GroupData:
			if len(node.Booleans) > 0 {
				add(id, SeverityError, "group carries %d boolean operations", len(node.Booleans))
			}
		case nil:
			add(id, SeverityError, "%s node has no data", node.Kind)
		}
	}
	return errs
}
