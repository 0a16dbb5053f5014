package sat

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Krande/adapy-sub006/pkg/geom"
)

// Topology records, decoded from their chunks. Reference fields hold record
// indices; -1 is the null reference.

type Body struct {
	Index     int
	Lump      int
	Wire      int
	Transform int
}

type Lump struct {
	Index int
	Next  int
	Shell int
	Body  int
}

type Shell struct {
	Index    int
	Next     int
	Subshell int
	Face     int
	Wire     int
	Lump     int
}

type Face struct {
	Index       int
	Next        int
	Loop        int
	Shell       int
	Subshell    int
	Surface     int
	Forward     bool
	DoubleSided bool
	// Name comes from a name attribute attached to the face.
	Name string
}

type Loop struct {
	Index  int
	Next   int
	Coedge int
	Face   int
}

type Coedge struct {
	Index   int
	Next    int
	Prev    int
	Partner int
	Edge    int
	Forward bool
	Loop    int
	PCurve  int
}

// Edge joins two vertices along a curve. Params are only present in
// files written by newer ACIS versions.
type Edge struct {
	Index      int
	Start      int
	End        int
	StartParam float64
	EndParam   float64
	HasParams  bool
	Coedge     int
	Curve      int
	Forward    bool
}

type Vertex struct {
	Index int
	Edge  int
	Point int
}

// fieldReader walks the fields of one record. The first failure sticks and
// later reads return zero values.
type fieldReader struct {
	rec *Record
	f   []Chunk
	i   int
	err error
}

func (d *Document) reader(rec *Record) *fieldReader {
	return &fieldReader{rec: rec, f: d.fields(rec)}
}

func (fr *fieldReader) fail(want string) {
	if fr.err != nil {
		return
	}
	got := "end of record"
	if fr.i < len(fr.f) {
		got = fmt.Sprintf("%q", fr.f[fr.i].String())
	}
	fr.err = &SyntaxError{
		Line: fr.rec.Line,
		Msg:  fmt.Sprintf("record %d (%s): field %d: want %s, got %s", fr.rec.Index, fr.rec.Type, fr.i, want, got),
	}
}

func (fr *fieldReader) peek() (Chunk, bool) {
	if fr.err != nil || fr.i >= len(fr.f) {
		return Chunk{}, false
	}
	return fr.f[fr.i], true
}

func (fr *fieldReader) ref() int {
	c, ok := fr.peek()
	if !ok || c.Kind != ChunkRef {
		fr.fail("reference")
		return -1
	}
	fr.i++
	return c.Ref
}

func (fr *fieldReader) num() float64 {
	c, ok := fr.peek()
	if !ok || !c.IsNumber() {
		fr.fail("number")
		return 0
	}
	fr.i++
	return c.Float
}

func (fr *fieldReader) word() string {
	c, ok := fr.peek()
	if !ok || c.Kind != ChunkString {
		fr.fail("word")
		return ""
	}
	fr.i++
	return c.Str
}

func (fr *fieldReader) point() geom.Point {
	return geom.P(fr.num(), fr.num(), fr.num())
}

// sense reads a forward/reversed flag.
func (fr *fieldReader) sense() bool {
	switch w := fr.word(); w {
	case "forward", "forward_v":
		return true
	case "reversed", "reverse_v", "reversed_v":
		return false
	case "":
		return true
	default:
		fr.i--
		fr.fail("forward or reversed")
		return true
	}
}

// skipWords steps over non-numeric markers such as the I (infinite) and
// F/T flags that pad interval fields.
func (fr *fieldReader) skipWords() {
	for {
		c, ok := fr.peek()
		if !ok || c.Kind != ChunkString {
			return
		}
		fr.i++
	}
}

// lastRef returns the last reference field of the record.
func (fr *fieldReader) lastRef() int {
	for i := len(fr.f) - 1; i >= fr.i; i-- {
		if fr.f[i].Kind == ChunkRef {
			return fr.f[i].Ref
		}
	}
	fr.fail("reference")
	return -1
}

func (d *Document) entity(ref int, want ...string) (*Record, error) {
	rec, err := d.Resolve(ref)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, &EntityTypeError{Record: ref, Type: "null", Want: strings.Join(want, " or ")}
	}
	if !slices.Contains(want, rec.Type) {
		return nil, &EntityTypeError{Record: ref, Type: rec.Type, Want: strings.Join(want, " or ")}
	}
	return rec, nil
}

// Body decodes a body record.
func (d *Document) Body(ref int) (Body, error) {
	rec, err := d.entity(ref, "body")
	if err != nil {
		return Body{}, err
	}
	fr := d.reader(rec)
	b := Body{Index: ref, Lump: fr.ref(), Wire: fr.ref(), Transform: fr.ref()}
	return b, fr.err
}

// Lump decodes a lump record.
func (d *Document) Lump(ref int) (Lump, error) {
	rec, err := d.entity(ref, "lump")
	if err != nil {
		return Lump{}, err
	}
	fr := d.reader(rec)
	l := Lump{Index: ref, Next: fr.ref(), Shell: fr.ref(), Body: fr.ref()}
	return l, fr.err
}

// Shell decodes a shell record.
func (d *Document) Shell(ref int) (Shell, error) {
	rec, err := d.entity(ref, "shell")
	if err != nil {
		return Shell{}, err
	}
	fr := d.reader(rec)
	s := Shell{Index: ref, Next: fr.ref(), Subshell: fr.ref(), Face: fr.ref(), Wire: fr.ref(), Lump: fr.ref()}
	return s, fr.err
}

// Face decodes a face record together with its name attribute.
func (d *Document) Face(ref int) (Face, error) {
	rec, err := d.entity(ref, "face")
	if err != nil {
		return Face{}, err
	}
	fr := d.reader(rec)
	f := Face{
		Index:    ref,
		Next:     fr.ref(),
		Loop:     fr.ref(),
		Shell:    fr.ref(),
		Subshell: fr.ref(),
		Surface:  fr.ref(),
		Forward:  fr.sense(),
	}
	if c, ok := fr.peek(); ok && c.Kind == ChunkString {
		f.DoubleSided = fr.word() == "double"
	}
	if fr.err != nil {
		return Face{}, fr.err
	}
	f.Name = d.name(rec)
	return f, nil
}

// Loop decodes a loop record.
func (d *Document) Loop(ref int) (Loop, error) {
	rec, err := d.entity(ref, "loop")
	if err != nil {
		return Loop{}, err
	}
	fr := d.reader(rec)
	l := Loop{Index: ref, Next: fr.ref(), Coedge: fr.ref(), Face: fr.ref()}
	return l, fr.err
}

// Coedge decodes a coedge record.
func (d *Document) Coedge(ref int) (Coedge, error) {
	rec, err := d.entity(ref, "coedge")
	if err != nil {
		return Coedge{}, err
	}
	fr := d.reader(rec)
	c := Coedge{
		Index:   ref,
		Next:    fr.ref(),
		Prev:    fr.ref(),
		Partner: fr.ref(),
		Edge:    fr.ref(),
		Forward: fr.sense(),
		Loop:    fr.ref(),
		PCurve:  -1,
	}
	if ch, ok := fr.peek(); ok && ch.Kind == ChunkRef {
		c.PCurve = fr.ref()
	}
	return c, fr.err
}

// Edge decodes an edge record.
func (d *Document) Edge(ref int) (Edge, error) {
	rec, err := d.entity(ref, "edge")
	if err != nil {
		return Edge{}, err
	}
	fr := d.reader(rec)
	e := Edge{Index: ref, Start: fr.ref()}
	if c, ok := fr.peek(); ok && c.IsNumber() {
		e.HasParams = true
		e.StartParam = fr.num()
	}
	e.End = fr.ref()
	if e.HasParams {
		e.EndParam = fr.num()
	}
	e.Coedge = fr.ref()
	e.Curve = fr.ref()
	e.Forward = fr.sense()
	return e, fr.err
}

// Vertex decodes a vertex record. Newer versions put extra fields between
// the edge and the point, so the point is taken as the last reference.
func (d *Document) Vertex(ref int) (Vertex, error) {
	rec, err := d.entity(ref, "vertex")
	if err != nil {
		return Vertex{}, err
	}
	fr := d.reader(rec)
	v := Vertex{Index: ref, Edge: fr.ref()}
	v.Point = fr.lastRef()
	return v, fr.err
}

// Point decodes a point record.
func (d *Document) Point(ref int) (geom.Point, error) {
	rec, err := d.entity(ref, "point")
	if err != nil {
		return geom.Point{}, err
	}
	fr := d.reader(rec)
	p := fr.point()
	return p, fr.err
}

// VertexPoint returns the location of a vertex.
func (d *Document) VertexPoint(ref int) (geom.Point, error) {
	v, err := d.Vertex(ref)
	if err != nil {
		return geom.Point{}, err
	}
	return d.Point(v.Point)
}

// name returns the value of the first name attribute in the attribute
// chain of rec.
func (d *Document) name(rec *Record) string {
	if len(rec.Chunks) == 0 || rec.Chunks[0].Kind != ChunkRef {
		return ""
	}
	ref := rec.Chunks[0].Ref
	for seen := 0; ref >= 0 && seen < len(d.Records); seen++ {
		attr, err := d.Resolve(ref)
		if err != nil || attr == nil {
			return ""
		}
		if strings.Contains(attr.Type, "name_attrib") {
			for i := len(attr.Chunks) - 1; i >= 0; i-- {
				if c := attr.Chunks[i]; c.Kind == ChunkString && strings.HasPrefix(c.Raw, "@") {
					return c.Str
				}
			}
		}
		f := d.fields(attr)
		if len(f) == 0 || f[0].Kind != ChunkRef {
			return ""
		}
		ref = f[0].Ref
	}
	return ""
}
