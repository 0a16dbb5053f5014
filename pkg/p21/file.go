package p21

import (
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/Krande/adapy-sub006/pkg/guid"
)

// Header holds the three mandatory header entities.
type Header struct {
	Description         []string
	ImplementationLevel string
	Name                string
	TimeStamp           string
	Author              []string
	Organization        []string
	PreprocessorVersion string
	OriginatingSystem   string
	Authorization       string
	Schema              string
}

// Entity is one numbered instance in the data section.
type Entity struct {
	ID     Ref
	Type   string
	Params []Param
}

// Param returns the i-th parameter or Unset when the entity has fewer.
func (e *Entity) Param(i int) Param {
	if i < 0 || i >= len(e.Params) {
		return Unset{}
	}
	return e.Params[i]
}

func (e *Entity) String() string {
	return fmt.Sprintf("#%d=%s", int(e.ID), e.Type)
}

// File is an append-only entity table. Ids are dense and increasing in
// the order entities are added. A File is not safe for concurrent use.
type File struct {
	Header Header

	entities []*Entity
	byID     map[Ref]*Entity
	ids      *guid.IDGenerator
}

// NewFile returns an empty file for the given schema identifier.
func NewFile(schema string) *File {
	return &File{
		Header: Header{
			Description:         []string{"ViewDefinition [ReferenceView]"},
			ImplementationLevel: "2;1",
			Schema:              schema,
		},
		byID: make(map[Ref]*Entity),
		ids:  guid.NewIDGenerator(1),
	}
}

// Add appends an entity and returns its reference. The type name is
// upper-cased.
func (f *File) Add(typ string, params ...Param) Ref {
	id := Ref(f.ids.Next())
	e := &Entity{ID: id, Type: strings.ToUpper(typ), Params: params}
	f.entities = append(f.entities, e)
	f.byID[id] = e
	return id
}

// insert places an entity read from a file under its own id.
func (f *File) insert(id Ref, typ string, params []Param) error {
	if _, dup := f.byID[id]; dup {
		return fmt.Errorf("p21: duplicate entity #%d", int(id))
	}
	f.ids.Observe(int(id))
	e := &Entity{ID: id, Type: strings.ToUpper(typ), Params: params}
	f.entities = append(f.entities, e)
	f.byID[id] = e
	return nil
}

// Get looks up an entity by reference.
func (f *File) Get(r Ref) (*Entity, bool) {
	e, ok := f.byID[r]
	return e, ok
}

// MustGet is Get returning an error for dangling references.
func (f *File) MustGet(r Ref) (*Entity, error) {
	e, ok := f.byID[r]
	if !ok {
		return nil, fmt.Errorf("p21: reference #%d not found", int(r))
	}
	return e, nil
}

// Entities returns all entities in file order.
func (f *File) Entities() []*Entity {
	return f.entities
}

// Len returns the number of entities.
func (f *File) Len() int { return len(f.entities) }

// ByType returns the entities of the given type in file order.
func (f *File) ByType(typ string) []*Entity {
	typ = strings.ToUpper(typ)
	return lo.Filter(f.entities, func(e *Entity, _ int) bool { return e.Type == typ })
}

// Referenced returns the set of ids referenced by any entity parameter.
func (f *File) Referenced() map[Ref]bool {
	seen := make(map[Ref]bool)
	for _, e := range f.entities {
		for _, p := range e.Params {
			collectRefs(p, seen)
		}
	}
	return seen
}

// Dangling returns references that point at no entity, sorted.
func (f *File) Dangling() []Ref {
	var out []Ref
	for r := range f.Referenced() {
		if _, ok := f.byID[r]; !ok {
			out = append(out, r)
		}
	}
	slices.Sort(out)
	return out
}

func collectRefs(p Param, seen map[Ref]bool) {
	switch v := p.(type) {
	case Ref:
		seen[v] = true
	case List:
		for _, x := range v {
			collectRefs(x, seen)
		}
	case Typed:
		collectRefs(v.Value, seen)
	}
}
