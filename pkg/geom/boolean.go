package geom

import (
	"fmt"
	"strings"
)

// BoolOpType is a CSG operator.
type BoolOpType int

const (
	Union BoolOpType = iota
	Intersection
	Difference
)

func (op BoolOpType) String() string {
	switch op {
	case Union:
		return "UNION"
	case Intersection:
		return "INTERSECTION"
	case Difference:
		return "DIFFERENCE"
	default:
		return fmt.Sprintf("BoolOpType(%d)", int(op))
	}
}

// Valid reports whether op is a known operator.
func (op BoolOpType) Valid() bool {
	return op >= Union && op <= Difference
}

// ParseBoolOp parses an operator name, case-insensitively.
func ParseBoolOp(s string) (BoolOpType, error) {
	switch strings.ToUpper(strings.Trim(s, ". ")) {
	case "UNION":
		return Union, nil
	case "INTERSECTION":
		return Intersection, nil
	case "DIFFERENCE":
		return Difference, nil
	}
	return 0, fmt.Errorf("geom: unknown boolean operator %q", s)
}

// BooleanOperation is one deferred CSG step: the accumulated shape is
// combined with Operand using Operator.
type BooleanOperation struct {
	Operand  Geometry   `json:"operand"`
	Operator BoolOpType `json:"operator"`
}

// BooleanResult is a node of an explicit CSG tree. Order matters:
// DIFFERENCE subtracts Second from First.
type BooleanResult struct {
	Operator BoolOpType `json:"operator"`
	First    Solid      `json:"first"`
	Second   Solid      `json:"second"`
}

// NewBooleanResult validates a CSG node.
func NewBooleanResult(op BoolOpType, first, second Solid) (BooleanResult, error) {
	if !op.Valid() {
		return BooleanResult{}, &ConstructionError{Field: "boolean.operator", Value: op, Reason: "unknown operator"}
	}
	if first == nil || second == nil {
		return BooleanResult{}, &ConstructionError{Field: "boolean.operand", Reason: "missing operand"}
	}
	return BooleanResult{Operator: op, First: first, Second: second}, nil
}

// Fold evaluates ops strictly left to right on top of base and returns the
// resulting left-deep tree. An empty list returns base unchanged.
func Fold(base Solid, ops []BooleanOperation) (Solid, error) {
	acc := base
	for i, op := range ops {
		operand, err := op.Operand.EffectiveSolid()
		if err != nil {
			return nil, fmt.Errorf("geom: boolean operation %d: %w", i, err)
		}
		node, err := NewBooleanResult(op.Operator, acc, operand)
		if err != nil {
			return nil, fmt.Errorf("geom: boolean operation %d: %w", i, err)
		}
		acc = node
	}
	return acc, nil
}

// Unfold is the inverse of Fold for a left-deep tree: it walks the First
// spine down to the base solid and returns the operations in evaluation
// order. Operands are wrapped in Geometry values without ids.
func Unfold(s Solid) (Solid, []BooleanOperation) {
	var rev []BooleanOperation
	for {
		br, ok := s.(BooleanResult)
		if !ok {
			break
		}
		rev = append(rev, BooleanOperation{Operand: Geometry{Shape: br.Second}, Operator: br.Operator})
		s = br.First
	}
	ops := make([]BooleanOperation, len(rev))
	for i := range rev {
		ops[i] = rev[len(rev)-1-i]
	}
	return s, ops
}
