package sat

import (
	"strconv"
	"strings"
)

// ChunkKind tags the value held by a Chunk.
type ChunkKind int

const (
	ChunkString ChunkKind = iota
	ChunkInt
	ChunkFloat
	ChunkRef
	// ChunkSubtype is a nested { ... } block; Sub points into the
	// document's sub-type table.
	ChunkSubtype
)

func (k ChunkKind) String() string {
	switch k {
	case ChunkInt:
		return "int"
	case ChunkFloat:
		return "float"
	case ChunkRef:
		return "ref"
	case ChunkSubtype:
		return "subtype"
	default:
		return "string"
	}
}

// Chunk is one whitespace-delimited field of a record. Raw keeps the text
// exactly as read so records can be written back unchanged.
type Chunk struct {
	Kind  ChunkKind
	Raw   string
	Int   int
	Float float64
	// Ref is the record index of a $n reference; -1 is the null reference.
	Ref int
	Str string
	Sub *Subtype
}

// ParseChunk types a raw token. Attempts run in a fixed order: integer,
// then float, then $n reference; anything else is kept as a string.
func ParseChunk(raw string) Chunk {
	if i, err := strconv.Atoi(raw); err == nil {
		return Chunk{Kind: ChunkInt, Raw: raw, Int: i, Float: float64(i)}
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return Chunk{Kind: ChunkFloat, Raw: raw, Float: f}
	}
	if strings.HasPrefix(raw, "$") {
		if n, err := strconv.Atoi(raw[1:]); err == nil {
			return Chunk{Kind: ChunkRef, Raw: raw, Ref: n}
		}
	}
	return Chunk{Kind: ChunkString, Raw: raw, Str: raw}
}

// stringChunk builds the chunk of an @n length-prefixed string.
func stringChunk(s string) Chunk {
	return Chunk{Kind: ChunkString, Raw: "@" + strconv.Itoa(len(s)) + " " + s, Str: s}
}

// IsNumber reports whether the chunk holds an integer or a float.
func (c Chunk) IsNumber() bool { return c.Kind == ChunkInt || c.Kind == ChunkFloat }

// IsNull reports whether the chunk is the $-1 reference.
func (c Chunk) IsNull() bool { return c.Kind == ChunkRef && c.Ref < 0 }

// String returns the text of the chunk as it appears in a file.
func (c Chunk) String() string {
	if c.Kind == ChunkSubtype && c.Sub != nil {
		return c.Sub.String()
	}
	return c.Raw
}

func joinChunks(b *strings.Builder, chunks []Chunk) {
	for _, c := range chunks {
		b.WriteByte(' ')
		b.WriteString(c.String())
	}
}
