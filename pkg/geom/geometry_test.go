package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustBox(t *testing.T, x, y, z float64) Box {
	t.Helper()
	b, err := NewBox(DefaultPlacement(), x, y, z)
	require.NoError(t, err)
	return b
}

func mustSquareProfile(t *testing.T, size float64) ArbitraryProfileDef {
	t.Helper()
	c, err := PolyCurveFromPoints(square(size))
	require.NoError(t, err)
	p, err := NewArbitraryProfile(c)
	require.NoError(t, err)
	return p
}

func TestSolidConstructorsRejectDegenerateInput(t *testing.T) {
	profile := mustSquareProfile(t, 1)
	axis := Axis1Placement{Location: P2(5, 0), Axis: YDir}
	skewed := Placement{Axis: ZDir, RefDirection: Direction{X: 1, Z: 1}}

	tests := []struct {
		name  string
		field string
		build func() error
	}{
		{"box zero length", "box.x_length", func() error { _, err := NewBox(DefaultPlacement(), 0, 1, 1); return err }},
		{"box negative", "box.z_length", func() error { _, err := NewBox(DefaultPlacement(), 1, 1, -2); return err }},
		{"box skewed placement", "box.position", func() error { _, err := NewBox(skewed, 1, 1, 1); return err }},
		{"sphere nan center", "sphere.center", func() error { _, err := NewSphere(P(math.NaN(), 0, 0), 1); return err }},
		{"sphere zero radius", "sphere.radius", func() error { _, err := NewSphere(P(0, 0, 0), 0); return err }},
		{"cylinder inf height", "cylinder.height", func() error {
			_, err := NewCylinder(DefaultPlacement(), math.Inf(1), 1)
			return err
		}},
		{"cone zero radius", "cone.bottom_radius", func() error { _, err := NewCone(DefaultPlacement(), 1, 0); return err }},
		{"extrusion zero depth", "extrusion.depth", func() error {
			_, err := NewExtrudedAreaSolid(profile, DefaultPlacement(), ZDir, 0)
			return err
		}},
		{"extrusion in plane", "extrusion.direction", func() error {
			_, err := NewExtrudedAreaSolid(profile, DefaultPlacement(), XDir, 1)
			return err
		}},
		{"revolution zero angle", "revolution.angle", func() error {
			_, err := NewRevolvedAreaSolid(profile, DefaultPlacement(), axis, 0)
			return err
		}},
		{"revolution beyond full turn", "revolution.angle", func() error {
			_, err := NewRevolvedAreaSolid(profile, DefaultPlacement(), axis, 7)
			return err
		}},
		{"revolution axis out of plane", "revolution.axis", func() error {
			_, err := NewRevolvedAreaSolid(profile, DefaultPlacement(), Axis1Placement{Axis: ZDir}, math.Pi)
			return err
		}},
		{"profile too few points", "profile.outer_curve", func() error {
			_, err := NewArbitraryProfile(IndexedPolyCurve{Points: []Point{P2(0, 0), P2(1, 0)}, Segments: []Segment{LineIndex{0, 1}, LineIndex{1, 0}}})
			return err
		}},
		{"profile not planar", "profile.outer_curve", func() error {
			c, err := NewIndexedPolyCurve([]Point{P(0, 0, 0), P(1, 0, 1), P(1, 1, 0)}, []Segment{LineIndex{0, 1}, LineIndex{1, 2}, LineIndex{2, 0}})
			require.NoError(t, err)
			_, err = NewArbitraryProfile(c)
			return err
		}},
		{"geometry without shape", "geometry.shape", func() error { _, err := NewGeometry("g", nil, nil); return err }},
		{"color out of range", "color.g", func() error { _, err := NewColor(0, 1.5, 0, 1); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ce *ConstructionError
			require.ErrorAs(t, tt.build(), &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestSolidConstructorsAcceptValidInput(t *testing.T) {
	profile := mustSquareProfile(t, 1)

	_, err := NewExtrudedAreaSolid(profile, DefaultPlacement(), MustDirection(0, 1, 1), 2)
	assert.NoError(t, err)

	r, err := NewRevolvedAreaSolid(profile, DefaultPlacement(), Axis1Placement{Location: P2(5, 0), Axis: Direction{Y: 3}}, 2*math.Pi)
	require.NoError(t, err)
	assert.True(t, r.Axis.Axis.IsEqual(YDir, 1e-12))

	_, err = NewCone(PlacementAt(P(0, 0, 1)), 2, 0.5)
	assert.NoError(t, err)
}

func addBool(t *testing.T, g, operand Geometry, op BoolOpType) Geometry {
	t.Helper()
	out, err := g.AddBoolean(operand, op)
	require.NoError(t, err)
	return out
}

func TestAddBooleanKeepsOrder(t *testing.T) {
	base := MustGeometry("base", mustBox(t, 2, 2, 2))
	a := MustGeometry("a", mustBox(t, 1, 1, 3))
	b := MustGeometry("b", mustBox(t, 3, 1, 1))

	ab := addBool(t, addBool(t, base, a, Difference), b, Union)
	ba := addBool(t, addBool(t, base, b, Union), a, Difference)

	assert.Empty(t, base.BoolOperations, "receiver must not change")
	require.Len(t, ab.BoolOperations, 2)
	assert.Equal(t, "a", ab.BoolOperations[0].Operand.ID)
	assert.Equal(t, Difference, ab.BoolOperations[0].Operator)
	assert.Equal(t, "b", ab.BoolOperations[1].Operand.ID)

	effAB, err := ab.Effective()
	require.NoError(t, err)
	effBA, err := ba.Effective()
	require.NoError(t, err)
	assert.NotEqual(t, effAB, effBA)

	root, ok := effAB.(BooleanResult)
	require.True(t, ok)
	assert.Equal(t, Union, root.Operator)
	assert.Equal(t, b.Shape, root.Second)
	inner, ok := root.First.(BooleanResult)
	require.True(t, ok)
	assert.Equal(t, Difference, inner.Operator)
	assert.Equal(t, base.Shape, inner.First)
	assert.Equal(t, a.Shape, inner.Second)
}

func TestNestedOperandIsFoldedFirst(t *testing.T) {
	hole := addBool(t, MustGeometry("hole", mustBox(t, 1, 1, 1)), MustGeometry("cap", mustBox(t, 0.5, 0.5, 0.5)), Union)
	g := addBool(t, MustGeometry("base", mustBox(t, 4, 4, 4)), hole, Difference)

	eff, err := g.Effective()
	require.NoError(t, err)
	root := eff.(BooleanResult)
	_, nested := root.Second.(BooleanResult)
	assert.True(t, nested)
}

func TestFoldUnfold(t *testing.T) {
	base := mustBox(t, 2, 2, 2)
	ops := []BooleanOperation{
		{Operand: MustGeometry("", mustBox(t, 1, 1, 1)), Operator: Difference},
		{Operand: MustGeometry("", mustBox(t, 1, 2, 1)), Operator: Intersection},
		{Operand: MustGeometry("", mustBox(t, 2, 1, 1)), Operator: Union},
	}
	s, err := Fold(base, ops)
	require.NoError(t, err)

	gotBase, gotOps := Unfold(s)
	assert.Equal(t, Solid(base), gotBase)
	require.Len(t, gotOps, len(ops))
	for i := range ops {
		assert.Equal(t, ops[i].Operator, gotOps[i].Operator)
		assert.Equal(t, ops[i].Operand.Shape, gotOps[i].Operand.Shape)
	}

	same, none := Unfold(base)
	assert.Equal(t, Solid(base), same)
	assert.Empty(t, none)
}

func TestEffectiveRequiresSolidBase(t *testing.T) {
	g := addBool(t, MustGeometry("shell", Shell{}), MustGeometry("b", mustBox(t, 1, 1, 1)), Union)
	_, err := g.Effective()
	assert.Error(t, err)

	eff, err := MustGeometry("shell", Shell{Closed: true}).Effective()
	require.NoError(t, err)
	assert.Equal(t, "shell", ShapeName(eff))
}

func TestCloneIsDeep(t *testing.T) {
	red := Color{R: 1, Opacity: 1}
	g, err := NewGeometry("g", mustBox(t, 1, 1, 1), &red)
	require.NoError(t, err)
	red.G = 1
	assert.Zero(t, g.Color.G, "constructor copies the color")

	g = addBool(t, g, MustGeometry("x", mustBox(t, 1, 1, 1)), Difference)
	c := g.Clone()
	c.Color.B = 1
	c.BoolOperations[0].Operator = Union

	assert.Zero(t, g.Color.B)
	assert.Equal(t, Difference, g.BoolOperations[0].Operator)
}

func TestAddBooleanRejectsUnknownOperator(t *testing.T) {
	g := MustGeometry("g", mustBox(t, 1, 1, 1))
	out, err := g.AddBoolean(MustGeometry("x", mustBox(t, 1, 1, 1)), BoolOpType(7))
	var ce *ConstructionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "boolean.operator", ce.Field)
	assert.Empty(t, out.BoolOperations)
}

func TestParseBoolOp(t *testing.T) {
	for _, op := range []BoolOpType{Union, Intersection, Difference} {
		got, err := ParseBoolOp(op.String())
		require.NoError(t, err)
		assert.Equal(t, op, got)
	}
	got, err := ParseBoolOp(".difference.")
	require.NoError(t, err)
	assert.Equal(t, Difference, got)

	_, err = ParseBoolOp("XOR")
	assert.Error(t, err)
}
