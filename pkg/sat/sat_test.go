package sat

import (
	"errors"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Krande/adapy-sub006/pkg/geom"
)

const header700 = "700 0 1 0\n@31 Spatial Corp - ACIS Version 7.0 @11 ACIS 7.0 NT @24 Mon Apr 09 16:44:18 2001\n1 9.9999999999999995e-007 1e-010\n"

func parse(t *testing.T, src string) *Document {
	t.Helper()
	doc, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	return doc
}

func parseFile(t *testing.T, name string) *Document {
	t.Helper()
	f, err := os.Open("testdata/" + name)
	require.NoError(t, err)
	defer f.Close()
	doc, err := Parse(f)
	require.NoError(t, err)
	return doc
}

// --- Tokenizer ---

func TestParseChunkPrecedence(t *testing.T) {
	tests := []struct {
		raw  string
		kind ChunkKind
	}{
		{"12", ChunkInt},
		{"-1", ChunkInt},
		{"1.5", ChunkFloat},
		{"1e-10", ChunkFloat},
		{"9.9999999999999995e-007", ChunkFloat},
		{"$3", ChunkRef},
		{"$-1", ChunkRef},
		{"forward", ChunkString},
		{"I", ChunkString},
		{"$x", ChunkString},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			c := ParseChunk(tt.raw)
			assert.Equal(t, tt.kind, c.Kind)
			assert.Equal(t, tt.raw, c.Raw)
			assert.Equal(t, tt.raw, c.String())
		})
	}
	assert.Equal(t, 3, ParseChunk("$3").Ref)
	assert.True(t, ParseChunk("$-1").IsNull())
	assert.Equal(t, -1.0, ParseChunk("-1").Float)
}

// --- Reader ---

func TestParseHeader(t *testing.T) {
	doc := parseFile(t, "square.sat")
	h := doc.Header
	assert.Equal(t, 700, h.Version)
	assert.Equal(t, 1, h.NumBodies)
	assert.Equal(t, "Spatial Corp - ACIS Version 7.0", h.Product)
	assert.Equal(t, "ACIS 7.0 NT", h.AcisVersion)
	assert.Equal(t, "Mon Apr 09 16:44:18 2001", h.Date)
	assert.Equal(t, 1.0, h.Scale)
	assert.InDelta(t, 1e-6, h.ResAbs, 1e-12)
	assert.Len(t, doc.Records, 27)
	assert.Len(t, doc.ByType("coedge"), 4)
}

func TestRecordTextIsReconstructed(t *testing.T) {
	doc := parseFile(t, "square.sat")
	assert.Equal(t, "edge $-1 -1 $-1 $15 0 $16 1 $7 $23 forward @7 unknown #", doc.Records[11].String())
	assert.Equal(t, "string_attrib-name_attrib-gen-attrib $-1 -1 $-1 $-1 $-1 $3 keep keep_kept ignore copy @6 deck-1 #", doc.Records[4].String())

	again := parse(t, header700+doc.String()+"End-of-ACIS-data\n")
	require.Len(t, again.Records, len(doc.Records))
	for i := range doc.Records {
		assert.Equal(t, doc.Records[i].Type, again.Records[i].Type)
		assert.Equal(t, doc.Records[i].Chunks, again.Records[i].Chunks)
	}
}

func TestRecordsMaySpanLines(t *testing.T) {
	doc := parse(t, header700+"point $-1 -1 $-1\n  1.5 2\n 3 #\nposition_attrib $-1 -1 $-1 @9 a # and b #\n")
	require.Len(t, doc.Records, 2)
	p, err := doc.Point(0)
	require.NoError(t, err)
	assert.Equal(t, geom.P(1.5, 2, 3), p)
	assert.Equal(t, "a # and b", doc.Records[1].Chunks[3].Str)
	assert.Equal(t, 7, doc.Records[1].Line)
}

func TestRecordNumbers(t *testing.T) {
	doc := parse(t, header700+"-0 point $-1 -1 $-1 0 0 0 #\n-1 point $-1 -1 $-1 1 0 0 #\n")
	assert.Len(t, doc.Records, 2)

	_, err := Parse(strings.NewReader(header700 + "-0 point $-1 -1 $-1 0 0 0 #\n-5 point $-1 -1 $-1 1 0 0 #\n"))
	var se *SyntaxError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 5, se.Line)
}

func TestTerminatorsStopScanning(t *testing.T) {
	for _, term := range []string{"End-of-ACIS-data", "End-of-ASM-data", "End-of-ACIS-History-Section"} {
		t.Run(term, func(t *testing.T) {
			doc := parse(t, header700+"point $-1 -1 $-1 0 0 0 #\n"+term+"\nthis is not a record\n")
			assert.Len(t, doc.Records, 1)
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		check func(t *testing.T, err error)
	}{
		{"binary marker", "ACIS BinaryFile\x00\x01", func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrBinaryNotSupported)
		}},
		{"nul in first line", "700\x00 0 1 0\n", func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrBinaryNotSupported)
		}},
		{"version too old", "300 0 1 0\n@1 a\n1 1e-6 1e-10\n", func(t *testing.T, err error) {
			var ve *UnsupportedVersionError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, 300, ve.Version)
		}},
		{"version too new", "50000 0 1 0\n@1 a\n1 1e-6 1e-10\n", func(t *testing.T, err error) {
			var ve *UnsupportedVersionError
			assert.ErrorAs(t, err, &ve)
		}},
		{"bad units", "700 0 1 0\n@1 a\nmm 1e-6 1e-10\n", func(t *testing.T, err error) {
			var se *SyntaxError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, 3, se.Line)
		}},
		{"unterminated record", header700 + "point $-1 -1 $-1 0 0 0\n", func(t *testing.T, err error) {
			var se *SyntaxError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, 4, se.Line)
		}},
		{"stray brace", header700 + "point $-1 -1 $-1 } #\n", func(t *testing.T, err error) {
			var se *SyntaxError
			assert.ErrorAs(t, err, &se)
		}},
		{"string past end", header700 + "a @40 short #", func(t *testing.T, err error) {
			var se *SyntaxError
			assert.ErrorAs(t, err, &se)
		}},
		{"string length overflows", header700 + "a @9223372036854775807 x #\n", func(t *testing.T, err error) {
			var se *SyntaxError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, 4, se.Line)
		}},
		{"string length out of range", header700 + "a @99999999999999999999 x #\n", func(t *testing.T, err error) {
			var se *SyntaxError
			require.ErrorAs(t, err, &se)
			assert.Contains(t, se.Msg, "bad string length")
		}},
		{"header string length overflows", "700 0 1 0\n@9223372036854775807 x\n1 1e-6 1e-10\n", func(t *testing.T, err error) {
			var se *SyntaxError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, 2, se.Line)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.src))
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

// --- References ---

func TestResolve(t *testing.T) {
	doc := parseFile(t, "square.sat")
	r, err := doc.Resolve(6)
	require.NoError(t, err)
	assert.Equal(t, "plane-surface", r.Type)

	r, err = doc.Resolve(-1)
	assert.NoError(t, err)
	assert.Nil(t, r)

	_, err = doc.Resolve(99)
	var re *ReferenceDataError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, RefNotFound, re.Kind)
	assert.Contains(t, err.Error(), "not found")
}

// chain returns a document whose last sub-type reaches an exactcur block
// after hops "ref n" steps.
func chain(hops int) (*Document, *Subtype) {
	doc := &Document{}
	doc.Subtypes = append(doc.Subtypes, &Subtype{Index: 0, Type: "exactcur"})
	for i := 1; i <= hops; i++ {
		doc.Subtypes = append(doc.Subtypes, &Subtype{Index: i, Type: "ref", Chunks: []Chunk{ParseChunk(strconv.Itoa(i - 1))}})
	}
	return doc, doc.Subtypes[hops]
}

func TestResolveSubtypeDepth(t *testing.T) {
	for hops := 0; hops <= MaxRefDepth; hops++ {
		doc, start := chain(hops)
		got, err := doc.ResolveSubtype(start)
		require.NoError(t, err, "hops=%d", hops)
		assert.Equal(t, "exactcur", got.Type)
	}

	doc, start := chain(MaxRefDepth + 1)
	_, err := doc.ResolveSubtype(start)
	var re *ReferenceDataError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, RefRecursionLimit, re.Kind)
	assert.Contains(t, err.Error(), "max recursion limit reached")
}

func TestResolveSubtypeMissing(t *testing.T) {
	doc := &Document{Subtypes: []*Subtype{{Index: 0, Type: "ref", Chunks: []Chunk{ParseChunk("42")}}}}
	_, err := doc.ResolveSubtype(doc.Subtypes[0])
	var re *ReferenceDataError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, RefNotFound, re.Kind)
	assert.Equal(t, 42, re.Ref)
	assert.Contains(t, err.Error(), "not found")
	assert.NotContains(t, err.Error(), "recursion")
}

func TestSubtypesAreNumberedInOrder(t *testing.T) {
	src := header700 +
		"intcurve-curve $-1 -1 $-1 forward { exactcur full nubs 1 open 2 0 1 1 1 0 0 0 1 0 0 { null_surface } 0 } I I #\n" +
		"intcurve-curve $-1 -1 $-1 forward { ref 0 } I I #\n"
	doc := parse(t, src)
	require.Len(t, doc.Subtypes, 3)
	assert.Equal(t, "exactcur", doc.Subtypes[0].Type)
	assert.Equal(t, "null_surface", doc.Subtypes[1].Type)
	assert.Equal(t, "ref", doc.Subtypes[2].Type)
	assert.Same(t, doc.Subtypes[2], doc.Records[1].Subtype)
	assert.Equal(t, "intcurve-curve $-1 -1 $-1 forward { ref 0 } I I #", doc.Records[1].String())

	got, err := doc.ResolveSubtype(doc.Records[1].Subtype)
	require.NoError(t, err)
	assert.Same(t, doc.Subtypes[0], got)

	c, err := doc.Curve(Edge{Curve: 1, Forward: true}, geom.P(0, 0, 0), geom.P(1, 0, 0))
	require.NoError(t, err)
	bs, ok := c.(geom.BSplineCurveWithKnots)
	require.True(t, ok)
	assert.Equal(t, 1, bs.Degree)
	assert.Equal(t, []int{2, 2}, bs.Multiplicities)
	assert.Equal(t, []geom.Point{geom.P(0, 0, 0), geom.P(1, 0, 0)}, bs.ControlPoints)
}

// --- Splines ---

func TestIncompleteControlPoints(t *testing.T) {
	doc := parse(t, header700+"intcurve-curve $-1 -1 $-1 forward { exactcur full nubs 3 open 2 0 3 1 3 0 0 0 1 0 0 } I I #\n")
	_, err := doc.Curve(Edge{Curve: 0}, geom.P(0, 0, 0), geom.P(1, 0, 0))
	var ie *IncompleteCtrlPointsError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 4, ie.Want)
	assert.Equal(t, 2, ie.Got)
}

func TestRationalCurve(t *testing.T) {
	doc := parse(t, header700+"intcurve-curve $-1 -1 $-1 forward { exactcur full nurbs 2 open 2 0 2 1 2 1 0 0 1 1 1 0 0.5 0 1 0 1 0 } I I #\n")
	c, err := doc.Curve(Edge{Curve: 0}, geom.P(1, 0, 0), geom.P(0, 1, 0))
	require.NoError(t, err)
	bs := c.(geom.BSplineCurveWithKnots)
	assert.True(t, bs.Rational())
	assert.Equal(t, []float64{1, 0.5, 1}, bs.Weights)
	assert.Equal(t, []int{3, 3}, bs.Multiplicities)
}

func TestExactSurface(t *testing.T) {
	doc := parse(t, header700+"spline-surface $-1 -1 $-1 forward { exactsur full nubs 1 1 both open open none none 2 2 0 1 1 1 0 1 1 1 0 0 0 1 0 0 0 1 0 1 1 1 0 } I I I I #\n")
	s, err := doc.Surface(0)
	require.NoError(t, err)
	bs, ok := s.(geom.BSplineSurfaceWithKnots)
	require.True(t, ok)
	require.Len(t, bs.ControlPoints, 2)
	assert.Equal(t, geom.P(0, 0, 0), bs.ControlPoints[0][0])
	assert.Equal(t, geom.P(1, 0, 0), bs.ControlPoints[1][0])
	assert.Equal(t, geom.P(0, 1, 0), bs.ControlPoints[0][1])
	assert.Equal(t, geom.P(1, 1, 1), bs.ControlPoints[1][1])
	assert.Equal(t, []int{2, 2}, bs.UMultiplicities)
}

func TestUnsupportedTypes(t *testing.T) {
	doc := parse(t, header700+
		"helix-curve $-1 -1 $-1 #\n"+
		"torus-surface $-1 -1 $-1 0 0 0 0 0 1 5 1 1 0 0 #\n"+
		"spline-surface $-1 -1 $-1 forward { offsur 1 } I I I I #\n"+
		"intcurve-curve $-1 -1 $-1 forward { surfintcur 1 } I I #\n"+
		"cone-surface $-1 -1 $-1 0 0 0 0 0 1 2 0 0 1 I I 0.5 0.866 2 forward I I I I #\n"+
		"ellipse-curve $-1 -1 $-1 0 0 0 0 0 1 2 0 0 0.5 I I #\n")
	a, b := geom.P(0, 0, 0), geom.P(1, 0, 0)

	var ce *UnsupportedCurveTypeError
	_, err := doc.Curve(Edge{Curve: 0}, a, b)
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "helix-curve", ce.Type)
	_, err = doc.Curve(Edge{Curve: 3}, a, b)
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "surfintcur", ce.Type)
	_, err = doc.Curve(Edge{Curve: 5}, a, b)
	assert.ErrorAs(t, err, &ce)

	var se *UnsupportedSurfaceTypeError
	_, err = doc.Surface(1)
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "torus-surface", se.Type)
	_, err = doc.Surface(2)
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "offsur", se.Type)
	_, err = doc.Surface(4)
	assert.ErrorAs(t, err, &se)
}

func TestArcMidpoint(t *testing.T) {
	doc := parse(t, header700+"ellipse-curve $-1 -1 $-1 0 0 0 0 0 1 2 0 0 1 I I #\n")
	start, end := geom.P(2, 0, 0), geom.P(0, 2, 0)
	r := math.Sqrt2

	c, err := doc.Curve(Edge{Curve: 0, Forward: true}, start, end)
	require.NoError(t, err)
	arc := c.(geom.ArcLine)
	assert.True(t, arc.Midpoint.IsClose(geom.P(r, r, 0), 1e-9), "got %v", arc.Midpoint)

	c, err = doc.Curve(Edge{Curve: 0, Forward: false}, start, end)
	require.NoError(t, err)
	arc = c.(geom.ArcLine)
	assert.True(t, arc.Midpoint.IsClose(geom.P(-r, -r, 0), 1e-9), "got %v", arc.Midpoint)

	c, err = doc.Curve(Edge{Curve: 0, Forward: true}, start, start)
	require.NoError(t, err)
	circle := c.(geom.Circle)
	assert.Equal(t, 2.0, circle.Radius)
}

// --- Conversion ---

func TestFacesFromSquare(t *testing.T) {
	doc := parseFile(t, "square.sat")
	faces, err := doc.Faces()
	require.NoError(t, err)
	require.Len(t, faces, 1)
	f := faces[0]
	assert.Equal(t, "deck-1", f.Name)
	assert.True(t, f.SameSense)

	plane, ok := f.Surface.(geom.Plane)
	require.True(t, ok)
	assert.True(t, plane.Position.IsClose(geom.DefaultPlacement(), 1e-12))

	require.Len(t, f.Bounds, 1)
	assert.True(t, f.Bounds[0].Outer)
	edges := f.Bounds[0].Bound.Edges
	require.Len(t, edges, 4)
	want := []geom.Point{geom.P(0, 0, 0), geom.P(1, 0, 0), geom.P(1, 1, 0), geom.P(0, 1, 0)}
	for i, oe := range edges {
		assert.Equal(t, want[i], oe.Edge.Start)
		assert.Equal(t, want[(i+1)%4], oe.Edge.End)
		assert.Equal(t, geom.Line{Start: want[i], End: want[(i+1)%4]}, oe.Edge.Geometry)
		assert.True(t, oe.Orientation)
	}

	shells, err := doc.Bodies()
	require.NoError(t, err)
	require.Len(t, shells, 1)
	assert.Equal(t, faces, shells[0].Faces)

	geoms, err := doc.Geometries()
	require.NoError(t, err)
	require.Len(t, geoms, 1)
	assert.Equal(t, "body-1", geoms[0].ID)
}

const cylinderSAT = `21200 0 1 0
@32 Spatial Corp - ACIS Version 21.0 @11 ACIS 212 NT @24 Thu Jul 07 10:15:11 2011
1000 9.9999999999999995e-07 1e-10
body $-1 -1 -1 $-1 $1 $-1 $-1 F #
lump $-1 -1 -1 $-1 $-1 $2 $0 #
shell $-1 -1 -1 $-1 $-1 $-1 $3 $-1 $1 #
face $-1 -1 -1 $-1 $-1 $4 $2 $-1 $5 reversed double out #
loop $-1 -1 -1 $-1 $-1 $6 $3 T 0 0 0 1 0 0 F #
cone-surface $-1 -1 -1 $-1 0 0 0 0 0 1 2 0 0 1 I I 0 1 2 forward I I I I #
coedge $-1 -1 -1 $-1 $6 $6 $-1 $7 reversed $4 $-1 #
edge $-1 -1 -1 $-1 $8 0 $8 6.2831853071795862 $6 $10 forward @7 unknown T 2 0 0 2 0 0 F #
vertex $-1 -1 -1 $-1 $7 1 $9 #
point $-1 -1 -1 $-1 2 0 0 #
ellipse-curve $-1 -1 -1 $-1 0 0 0 0 0 1 2 0 0 1 I I #
End-of-ACIS-data
`

func TestFacesFromNewerVersion(t *testing.T) {
	doc := parse(t, cylinderSAT)
	assert.Equal(t, 1000.0, doc.Header.Scale)

	faces, err := doc.Faces()
	require.NoError(t, err)
	require.Len(t, faces, 1)
	f := faces[0]
	assert.False(t, f.SameSense)
	cyl, ok := f.Surface.(geom.CylindricalSurface)
	require.True(t, ok)
	assert.Equal(t, 2.0, cyl.Radius)

	edges := f.Bounds[0].Bound.Edges
	require.Len(t, edges, 1)
	assert.False(t, edges[0].Orientation)
	circle, ok := edges[0].Edge.Geometry.(geom.Circle)
	require.True(t, ok)
	assert.Equal(t, 2.0, circle.Radius)
	assert.Equal(t, geom.P(2, 0, 0), edges[0].Edge.Start)

	e, err := doc.Edge(7)
	require.NoError(t, err)
	assert.True(t, e.HasParams)
	assert.InDelta(t, 2*math.Pi, e.EndParam, 1e-12)
}

func TestWrongEntityType(t *testing.T) {
	doc := parseFile(t, "square.sat")
	_, err := doc.Face(0)
	var te *EntityTypeError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "body", te.Type)
	assert.True(t, errors.As(err, &te))
}
