package ifc

import (
	"fmt"

	"github.com/Krande/adapy-sub006/pkg/p21"
)

// UnableToCreateSolidGeomError is returned when an entity referenced as a
// geometric item has a type the decoder does not turn into a shape.
type UnableToCreateSolidGeomError struct {
	Type string
	Ref  p21.Ref
}

func (e *UnableToCreateSolidGeomError) Error() string {
	return fmt.Sprintf("ifc: unable to create solid geometry from %s (#%d)", e.Type, int(e.Ref))
}

// UnsupportedEntityError is returned for curve, surface, profile or
// placement entities the decoder does not handle.
type UnsupportedEntityError struct {
	Type string
	Ref  p21.Ref
	// Want names what the entity was expected to be, e.g. "curve".
	Want string
}

func (e *UnsupportedEntityError) Error() string {
	return fmt.Sprintf("ifc: unsupported %s entity %s (#%d)", e.Want, e.Type, int(e.Ref))
}
