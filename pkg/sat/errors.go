package sat

import (
	"errors"
	"fmt"
)

// ErrBinaryNotSupported is returned for binary (SAB) input.
var ErrBinaryNotSupported = errors.New("sat: binary ACIS files are not supported")

// SyntaxError reports malformed SAT text.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("sat: line %d: %s", e.Line, e.Msg)
}

// UnsupportedVersionError is returned when the header version is outside
// the supported range.
type UnsupportedVersionError struct {
	Version int
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("sat: unsupported ACIS version %d (want %d..%d)", e.Version, MinVersion, MaxVersion)
}

// RefErrorKind distinguishes reference failures.
type RefErrorKind int

const (
	RefNotFound RefErrorKind = iota
	RefRecursionLimit
)

// ReferenceDataError is returned when a record or sub-type reference
// cannot be resolved.
type ReferenceDataError struct {
	Kind RefErrorKind
	// Ref is the index that failed to resolve.
	Ref int
	// Depth is the number of sub-type hops taken before failing.
	Depth int
	// Subtype is set when the failing reference is a sub-type reference.
	Subtype bool
}

func (e *ReferenceDataError) Error() string {
	what := "reference"
	if e.Subtype {
		what = "sub-type reference"
	}
	if e.Kind == RefRecursionLimit {
		return fmt.Sprintf("sat: max recursion limit reached resolving %s %d (depth %d)", what, e.Ref, e.Depth)
	}
	return fmt.Sprintf("sat: %s %d not found", what, e.Ref)
}

// IncompleteCtrlPointsError is returned when a spline block carries fewer
// control point values than its knot vector requires.
type IncompleteCtrlPointsError struct {
	Record int
	Want   int
	Got    int
}

func (e *IncompleteCtrlPointsError) Error() string {
	return fmt.Sprintf("sat: record %d: incomplete control points: want %d, got %d", e.Record, e.Want, e.Got)
}

// UnsupportedCurveTypeError names a curve record or sub-type the
// converter does not handle.
type UnsupportedCurveTypeError struct {
	Record int
	Type   string
}

func (e *UnsupportedCurveTypeError) Error() string {
	return fmt.Sprintf("sat: record %d: unsupported curve type %q", e.Record, e.Type)
}

// UnsupportedSurfaceTypeError names a surface record or sub-type the
// converter does not handle.
type UnsupportedSurfaceTypeError struct {
	Record int
	Type   string
}

func (e *UnsupportedSurfaceTypeError) Error() string {
	return fmt.Sprintf("sat: record %d: unsupported surface type %q", e.Record, e.Type)
}

// EntityTypeError is returned when a reference points at a record of an
// unexpected type.
type EntityTypeError struct {
	Record int
	Type   string
	Want   string
}

func (e *EntityTypeError) Error() string {
	return fmt.Sprintf("sat: record %d is %q, want %s", e.Record, e.Type, e.Want)
}
