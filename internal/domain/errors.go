package domain

import (
	"errors"
	"fmt"
)

// ErrAllValuesMissing is returned by derived parameters that were asked to
// fail loudly when none of their inputs could be resolved.
var ErrAllValuesMissing = errors.New("all values missing")

// ConversionError reports a value that could not be coerced to the requested type.
type ConversionError struct {
	Value  any
	Target string
	Err    error
}

func (e *ConversionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("convert %v (%T) to %s: %v", e.Value, e.Value, e.Target, e.Err)
	}
	return fmt.Sprintf("convert %v (%T) to %s", e.Value, e.Value, e.Target)
}

func (e *ConversionError) Unwrap() error { return e.Err }
