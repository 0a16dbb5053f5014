package p21

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatReal(t *testing.T) {
	tests := []struct {
		v         float64
		precision int
		want      string
	}{
		{0, -1, "0."},
		{math.Copysign(0, -1), -1, "0."},
		{1, -1, "1."},
		{-2.5, -1, "-2.5"},
		{0.1, -1, "0.1"},
		{1e-7, -1, "1.E-07"},
		{1.5e20, -1, "1.5E+20"},
		{123456.789, -1, "123456.789"},
		{1.23456, 3, "1.235"},
		{2, 3, "2."},
		{-0.0001, 2, "0."},
	}
	for _, tt := range tests {
		got, err := FormatReal(tt.v, tt.precision)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "FormatReal(%v, %d)", tt.v, tt.precision)
	}

	_, err := FormatReal(math.NaN(), -1)
	assert.Error(t, err)
	_, err = FormatReal(math.Inf(-1), -1)
	assert.Error(t, err)
}

func TestFormatEntity(t *testing.T) {
	f := NewFile("IFC4X3")
	pt := f.Add("IfcCartesianPoint", Reals(0, 0.5, -1))
	e, _ := f.Get(pt)
	line, err := FormatEntity(e, -1)
	require.NoError(t, err)
	assert.Equal(t, "#1=IFCCARTESIANPOINT((0.,0.5,-1.));", line)

	ref := f.Add("IFCSOMETHING", String("it's"), Enum("t"), pt, Unset{}, Derived{},
		List{Typed{Name: "IFCLINEINDEX", Value: Integers(1, 2)}}, Integer(-3))
	e, _ = f.Get(ref)
	line, err = FormatEntity(e, -1)
	require.NoError(t, err)
	assert.Equal(t, "#2=IFCSOMETHING('it''s',.T.,#1,$,*,(IFCLINEINDEX((1,2))),-3);", line)
}

func TestWriteParseRoundTrip(t *testing.T) {
	f := NewFile("IFC4X3")
	f.Header.Name = "model.ifc"
	f.Header.Author = []string{"Ola Nordmann"}
	a := f.Add("IFCDIRECTION", Reals(0, 0, 1))
	b := f.Add("IFCCARTESIANPOINT", Reals(1.25, -3e-9, 1e21))
	f.Add("IFCAXIS2PLACEMENT3D", b, a, Unset{})
	f.Add("IFCLABELS", List{String("Ærlig talt"), String(`back\slash`), String("ok")}, Bool(false))
	f.Add("IFCINDEXEDPOLYCURVE", Integer(7), List{
		Typed{Name: "IFCLINEINDEX", Value: Integers(1, 2)},
		Typed{Name: "IFCARCINDEX", Value: Integers(2, 3, 4)},
	}, Enum("F"))

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, f, DefaultWriteOptions()))
	text := buf.String()
	assert.True(t, strings.HasPrefix(text, "ISO-10303-21;\nHEADER;\n"))
	assert.Contains(t, text, "FILE_SCHEMA(('IFC4X3'));")
	assert.True(t, strings.HasSuffix(text, "ENDSEC;\nEND-ISO-10303-21;\n"))

	g, err := Parse(strings.NewReader(text))
	require.NoError(t, err)
	assert.Equal(t, "IFC4X3", g.Header.Schema)
	assert.Equal(t, "model.ifc", g.Header.Name)
	assert.Equal(t, []string{"Ola Nordmann"}, g.Header.Author)
	require.Equal(t, f.Len(), g.Len())
	for i, e := range f.Entities() {
		got := g.Entities()[i]
		assert.Equal(t, e.ID, got.ID)
		assert.Equal(t, e.Type, got.Type)
		assert.Equal(t, List(e.Params), List(got.Params), "entity %s", e)
	}

	// ids continue after the highest id read
	assert.Equal(t, Ref(6), g.Add("IFCNEXT"))
	assert.Empty(t, g.Dangling())
}

func TestParseToleratesLayout(t *testing.T) {
	src := `ISO-10303-21;
HEADER;
/* a comment
   over two lines */
FILE_DESCRIPTION(('x'),'2;1');
FILE_NAME('','',(''),(''),'','','');
FILE_SCHEMA(('IFC4'));
ENDSEC;
DATA;
#10= IFCCARTESIANPOINT ( ( 1 , 2. , 3.0E0 ) ) ;
#3=IFCNAMED('\X2\00C6\X0\b\X\E5');
ENDSEC;
END-ISO-10303-21;
`
	f, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	require.Equal(t, 2, f.Len())

	pt, ok := f.Get(10)
	require.True(t, ok)
	xs, err := AsFloats(pt.Param(0))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, xs)

	named, _ := f.Get(3)
	s, err := AsString(named.Param(0))
	require.NoError(t, err)
	assert.Equal(t, "Æbå", s)
	assert.Equal(t, Unset{}, named.Param(5))

	assert.Equal(t, Ref(11), f.Add("IFCNEXT"))
}

func TestParseErrors(t *testing.T) {
	head := "ISO-10303-21;\nHEADER;\nFILE_SCHEMA(('X'));\nENDSEC;\nDATA;\n"
	tail := "ENDSEC;\nEND-ISO-10303-21;\n"
	tests := []struct {
		name string
		src  string
		line int
	}{
		{"missing magic", "HEADER;\n", 1},
		{"unterminated string", head + "#1=A('abc);\n" + tail, 0},
		{"complex instance", head + "#1=(A()B());\n" + tail, 6},
		{"duplicate id", head + "#1=A();\n#1=B();\n" + tail, 7},
		{"bad separator", head + "#1=A(1 2);\n" + tail, 6},
		{"binary", head + "#1=A(\"0FF\");\n" + tail, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.src))
			var se *SyntaxError
			require.True(t, errors.As(err, &se), "got %v", err)
			if tt.line > 0 {
				assert.Equal(t, tt.line, se.Line)
			}
		})
	}
}

func TestAccessors(t *testing.T) {
	_, err := AsRef(Integer(1))
	assert.Error(t, err)
	v, err := AsFloat(Typed{Name: "IFCLENGTHMEASURE", Value: Real(2.5)})
	require.NoError(t, err)
	assert.Equal(t, 2.5, v)
	b, err := AsBool(Enum("T"))
	require.NoError(t, err)
	assert.True(t, b)
	_, err = AsBool(Enum("MAYBE"))
	assert.Error(t, err)
	refs, err := AsRefs(Refs(1, 2, 3))
	require.NoError(t, err)
	assert.Equal(t, []Ref{1, 2, 3}, refs)
}

func TestByTypeAndDangling(t *testing.T) {
	f := NewFile("IFC4")
	f.Add("IFCA")
	f.Add("ifcb", Ref(9))
	f.Add("IFCA", Ref(1))
	assert.Len(t, f.ByType("ifca"), 2)
	assert.Equal(t, []Ref{9}, f.Dangling())
}
