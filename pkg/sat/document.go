// Package sat reads ACIS SAT text files into a table of typed records and
// converts their boundary representation into geom faces.
//
// A SAT file is a short header followed by records terminated by "#".
// Records refer to one another by position ($n), and embedded { ... }
// sub-type blocks are numbered in order of appearance so later blocks can
// point back at them with "ref n".
package sat

import (
	"strings"

	"github.com/samber/lo"
)

const (
	MinVersion = 400
	MaxVersion = 40000

	// MaxRefDepth bounds how many "ref n" hops ResolveSubtype follows.
	MaxRefDepth = 5

	// From this version on every entity carries an extra integer after
	// the attribute pointer.
	idVersion = 700
	// From this version on entities also carry an entity id.
	entityIDVersion = 20800
)

// Header is the three-line preamble of a SAT file.
type Header struct {
	Version     int
	NumRecords  int
	NumBodies   int
	HistoryFlag int

	Product     string
	AcisVersion string
	Date        string

	// Scale is the number of millimetres per model unit.
	Scale  float64
	ResAbs float64
	ResNor float64
}

// Record is one entity of the file.
type Record struct {
	Index  int
	Type   string
	Chunks []Chunk
	// Subtype is the first { ... } block of the record, if any.
	Subtype *Subtype
	// Line is where the record starts.
	Line int
}

// String reconstructs the record text.
func (r *Record) String() string {
	var b strings.Builder
	b.WriteString(r.Type)
	joinChunks(&b, r.Chunks)
	b.WriteString(" #")
	return b.String()
}

// Subtype is a { ... } block. Type is its first token, e.g. "exactcur" or
// "ref".
type Subtype struct {
	Index  int
	Type   string
	Chunks []Chunk
	// Record is the index of the record the block appears in.
	Record int
}

func (s *Subtype) String() string {
	var b strings.Builder
	b.WriteString("{ ")
	b.WriteString(s.Type)
	joinChunks(&b, s.Chunks)
	b.WriteString(" }")
	return b.String()
}

// Document is a parsed SAT file.
type Document struct {
	Header   Header
	Records  []*Record
	Subtypes []*Subtype
}

// Resolve looks up the record a reference points at. The null reference
// resolves to nil without error.
func (d *Document) Resolve(ref int) (*Record, error) {
	if ref < 0 {
		return nil, nil
	}
	if ref >= len(d.Records) {
		return nil, &ReferenceDataError{Kind: RefNotFound, Ref: ref}
	}
	return d.Records[ref], nil
}

// ResolveSubtype follows "ref n" blocks through the sub-type table until
// it reaches a block holding data. At most MaxRefDepth hops are taken.
func (d *Document) ResolveSubtype(s *Subtype) (*Subtype, error) {
	cur := s
	for hops := 0; cur.Type == "ref"; hops++ {
		if hops == MaxRefDepth {
			return nil, &ReferenceDataError{Kind: RefRecursionLimit, Ref: s.Index, Depth: hops, Subtype: true}
		}
		if len(cur.Chunks) == 0 || cur.Chunks[0].Kind != ChunkInt {
			return nil, &ReferenceDataError{Kind: RefNotFound, Ref: -1, Depth: hops, Subtype: true}
		}
		idx := cur.Chunks[0].Int
		if idx < 0 || idx >= len(d.Subtypes) {
			return nil, &ReferenceDataError{Kind: RefNotFound, Ref: idx, Depth: hops, Subtype: true}
		}
		cur = d.Subtypes[idx]
	}
	return cur, nil
}

// ByType returns the records of the given type in file order.
func (d *Document) ByType(typ string) []*Record {
	return lo.Filter(d.Records, func(r *Record, _ int) bool { return r.Type == typ })
}

// String reconstructs the record section, one record per line.
func (d *Document) String() string {
	var b strings.Builder
	for _, r := range d.Records {
		b.WriteString(r.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// prefixLen is the number of chunks every entity starts with before its
// own fields: the attribute pointer, then version dependent bookkeeping.
func (d *Document) prefixLen() int {
	switch v := d.Header.Version; {
	case v >= entityIDVersion:
		return 4
	case v >= idVersion:
		return 3
	default:
		return 1
	}
}

// fields returns the chunks of r after the common entity prefix.
func (d *Document) fields(r *Record) []Chunk {
	n := d.prefixLen()
	if len(r.Chunks) <= n {
		return nil
	}
	return r.Chunks[n:]
}
