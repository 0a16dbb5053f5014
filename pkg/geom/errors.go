package geom

import "fmt"

// ConstructionError reports degenerate or malformed input to a
// constructor. Field names the offending parameter.
type ConstructionError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConstructionError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("geom: invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("geom: invalid %s (%v): %s", e.Field, e.Value, e.Reason)
}
