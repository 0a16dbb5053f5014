// Package p21 reads and writes ISO 10303-21 ("STEP physical file")
// exchange files: a header section followed by a table of numbered
// entity instances whose parameters reference each other by id.
//
// The package knows nothing about any particular schema. Higher layers
// (see package ifc) map domain values to entity types and back.
package p21

import (
	"fmt"
	"strings"
)

// Param is one entity parameter. The concrete types are Integer, Real,
// String, Enum, Ref, Unset, Derived, List and Typed.
type Param interface {
	param()
}

// Integer is an integer parameter.
type Integer int64

// Real is a floating point parameter.
type Real float64

// String is a quoted string parameter, stored unescaped.
type String string

// Enum is an enumeration value written between dots, e.g. .T. or .UNION.
type Enum string

// Ref is an entity instance reference (#n).
type Ref int

// Unset is the omitted-value marker $.
type Unset struct{}

// Derived is the derived-value marker *.
type Derived struct{}

// List is an aggregate parameter.
type List []Param

// Typed is a parameter wrapped in a defined type, e.g.
// IFCLINEINDEX((1,2)) or IFCLABEL('x').
type Typed struct {
	Name  string
	Value Param
}

func (Integer) param() {}
func (Real) param()    {}
func (String) param()  {}
func (Enum) param()    {}
func (Ref) param()     {}
func (Unset) param()   {}
func (Derived) param() {}
func (List) param()    {}
func (Typed) param()   {}

// Bool returns the logical enumeration .T. or .F.
func Bool(b bool) Enum {
	if b {
		return "T"
	}
	return "F"
}

// Reals wraps a float slice as a list of reals.
func Reals(vs ...float64) List {
	out := make(List, len(vs))
	for i, v := range vs {
		out[i] = Real(v)
	}
	return out
}

// Integers wraps an int slice as a list of integers.
func Integers(vs ...int) List {
	out := make(List, len(vs))
	for i, v := range vs {
		out[i] = Integer(v)
	}
	return out
}

// Refs wraps references as a list.
func Refs(rs ...Ref) List {
	out := make(List, len(rs))
	for i, r := range rs {
		out[i] = r
	}
	return out
}

// String renders the parameter the way it is written to a file, using
// shortest exact formatting for reals.
func (i Integer) String() string { return formatParam(i, -1) }
func (r Real) String() string    { return formatParam(r, -1) }
func (r Ref) String() string     { return fmt.Sprintf("#%d", int(r)) }
func (l List) String() string    { return formatParam(l, -1) }
func (t Typed) String() string   { return formatParam(t, -1) }

// ---------------------------------------------------------------------------
// Accessors used by decoders
// ---------------------------------------------------------------------------

// AsFloat converts a numeric parameter to float64. Integers are accepted
// where reals are expected, as writers sometimes drop the decimal point.
func AsFloat(p Param) (float64, error) {
	switch v := p.(type) {
	case Real:
		return float64(v), nil
	case Integer:
		return float64(v), nil
	case Typed:
		return AsFloat(v.Value)
	}
	return 0, fmt.Errorf("p21: want number, got %s", Kind(p))
}

// AsInt converts an integer parameter.
func AsInt(p Param) (int, error) {
	switch v := p.(type) {
	case Integer:
		return int(v), nil
	case Typed:
		return AsInt(v.Value)
	}
	return 0, fmt.Errorf("p21: want integer, got %s", Kind(p))
}

// AsRef converts a reference parameter.
func AsRef(p Param) (Ref, error) {
	if r, ok := p.(Ref); ok {
		return r, nil
	}
	return 0, fmt.Errorf("p21: want reference, got %s", Kind(p))
}

// AsList converts an aggregate parameter.
func AsList(p Param) (List, error) {
	switch v := p.(type) {
	case List:
		return v, nil
	case Typed:
		return AsList(v.Value)
	}
	return nil, fmt.Errorf("p21: want list, got %s", Kind(p))
}

// AsString converts a string parameter. Unset yields "".
func AsString(p Param) (string, error) {
	switch v := p.(type) {
	case String:
		return string(v), nil
	case Unset:
		return "", nil
	case Typed:
		return AsString(v.Value)
	}
	return "", fmt.Errorf("p21: want string, got %s", Kind(p))
}

// AsEnum returns the enumeration name without dots.
func AsEnum(p Param) (string, error) {
	if e, ok := p.(Enum); ok {
		return strings.ToUpper(string(e)), nil
	}
	return "", fmt.Errorf("p21: want enumeration, got %s", Kind(p))
}

// AsBool converts a logical enumeration. .U. (unknown) is false.
func AsBool(p Param) (bool, error) {
	e, err := AsEnum(p)
	if err != nil {
		return false, err
	}
	switch e {
	case "T":
		return true, nil
	case "F", "U":
		return false, nil
	}
	return false, fmt.Errorf("p21: want logical, got .%s.", e)
}

// AsFloats converts a list of numbers.
func AsFloats(p Param) ([]float64, error) {
	l, err := AsList(p)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(l))
	for i, v := range l {
		if out[i], err = AsFloat(v); err != nil {
			return nil, fmt.Errorf("p21: element %d: %w", i, err)
		}
	}
	return out, nil
}

// AsInts converts a list of integers.
func AsInts(p Param) ([]int, error) {
	l, err := AsList(p)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(l))
	for i, v := range l {
		if out[i], err = AsInt(v); err != nil {
			return nil, fmt.Errorf("p21: element %d: %w", i, err)
		}
	}
	return out, nil
}

// AsRefs converts a list of references.
func AsRefs(p Param) ([]Ref, error) {
	l, err := AsList(p)
	if err != nil {
		return nil, err
	}
	out := make([]Ref, len(l))
	for i, v := range l {
		if out[i], err = AsRef(v); err != nil {
			return nil, fmt.Errorf("p21: element %d: %w", i, err)
		}
	}
	return out, nil
}

// IsUnset reports whether p is $.
func IsUnset(p Param) bool {
	_, ok := p.(Unset)
	return ok
}

// Kind names the parameter type for error messages.
func Kind(p Param) string {
	switch v := p.(type) {
	case Integer:
		return "integer"
	case Real:
		return "real"
	case String:
		return "string"
	case Enum:
		return "enumeration"
	case Ref:
		return "reference"
	case Unset:
		return "unset"
	case Derived:
		return "derived"
	case List:
		return "list"
	case Typed:
		return "typed " + v.Name
	case nil:
		return "nothing"
	}
	return fmt.Sprintf("%T", p)
}
