package filter

import (
	"fmt"
	"reflect"
	"time"

	"github.com/couchcryptid/storm-data-bufr/internal/wigos"
)

// WIGOS identifier names. Filters on these names compare identifiers
// component-wise instead of as plain values.
var wigosNames = map[string]bool{
	"WSI":                      true,
	"WIGOS_station_identifier": true,
	"wigos_station_identifier": true,
}

// IsWIGOSName reports whether name holds WIGOS station identifiers.
func IsWIGOSName(name string) bool { return wigosNames[name] }

// SpecError reports an invalid filter specification.
type SpecError struct {
	Name   string
	Spec   any
	Reason string
}

func (e *SpecError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("invalid filter %v: %s", e.Spec, e.Reason)
	}
	return fmt.Sprintf("invalid filter for %q (%v): %s", e.Name, e.Spec, e.Reason)
}

// Compile turns a specification for the key name into a Filter. Accepted
// specifications, in order of precedence:
//
//   - a Filter, used as is
//   - a predicate: func(any) bool, func(float64) bool, func(int) bool, func(string) bool
//   - a Range
//   - a wigos.ID, or any value when name is a WIGOS identifier name
//   - a non-string slice or array: any of its elements
//   - a scalar: exactly that value
func Compile(name string, spec any) (Filter, error) {
	f, err := compile(name, spec)
	if err != nil {
		if se, ok := err.(*SpecError); ok && se.Name == "" {
			se.Name = name
		}
		return nil, err
	}
	return f, nil
}

func compile(name string, spec any) (Filter, error) {
	switch s := spec.(type) {
	case nil:
		return nil, &SpecError{Name: name, Spec: spec, Reason: "nil specification"}
	case Filter:
		return s, nil
	case func(any) bool:
		return &predicateFilter{fn: s}, nil
	case func(float64) bool:
		return &predicateFilter{fn: func(v any) bool {
			n, ok := number(v)
			return ok && s(n)
		}}, nil
	case func(int) bool:
		return &predicateFilter{fn: func(v any) bool {
			n, ok := number(v)
			return ok && n == float64(int(n)) && s(int(n))
		}}, nil
	case func(string) bool:
		return &predicateFilter{fn: func(v any) bool {
			str, ok := v.(string)
			return ok && s(str)
		}}, nil
	case Range:
		return compileRange(name, s)
	case *Range:
		if s == nil {
			return nil, &SpecError{Name: name, Spec: spec, Reason: "nil range"}
		}
		return compileRange(name, *s)
	case wigos.ID, *wigos.ID:
		return compileWIGOS(name, []any{s})
	}

	rv := reflect.ValueOf(spec)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		vs := make([]any, rv.Len())
		for i := range vs {
			vs[i] = rv.Index(i).Interface()
		}
		if IsWIGOSName(name) && !isWIGOSTuple(vs) {
			return compileWIGOS(name, vs)
		}
		if IsWIGOSName(name) {
			return compileWIGOS(name, []any{vs})
		}
		if len(vs) == 0 {
			return nil, &SpecError{Name: name, Spec: spec, Reason: "empty value set"}
		}
		return newSet(vs)
	case reflect.Map, reflect.Chan, reflect.Func, reflect.Struct, reflect.Pointer, reflect.Interface, reflect.UnsafePointer:
		if _, ok := spec.(time.Time); !ok {
			return nil, &SpecError{Name: name, Spec: spec, Reason: fmt.Sprintf("unsupported specification type %T", spec)}
		}
	}

	if IsWIGOSName(name) {
		return compileWIGOS(name, []any{spec})
	}
	return newSet([]any{spec})
}

func compileRange(name string, r Range) (Filter, error) {
	if r.Min == nil && r.Max == nil {
		return nil, &SpecError{Name: name, Spec: r, Reason: "range needs at least one bound"}
	}
	for _, b := range []any{r.Min, r.Max} {
		if b != nil && !orderable(b) {
			return nil, &SpecError{Name: name, Spec: r, Reason: fmt.Sprintf("unordered bound type %T", b)}
		}
	}
	if r.Min != nil && r.Max != nil {
		c, ok := compare(r.Min, r.Max)
		if !ok {
			return nil, &SpecError{Name: name, Spec: r, Reason: "bounds are of different kinds"}
		}
		if c > 0 {
			return nil, &SpecError{Name: name, Spec: r, Reason: "lower bound exceeds upper bound"}
		}
	}
	return &rangeFilter{min: r.Min, max: r.Max}, nil
}

func compileWIGOS(name string, vs []any) (Filter, error) {
	if len(vs) == 0 {
		return nil, &SpecError{Name: name, Spec: vs, Reason: "empty identifier set"}
	}
	f := &wigosFilter{ids: make(map[wigos.ID]struct{}, len(vs))}
	for _, v := range vs {
		id, err := wigos.Normalize(v)
		if err != nil {
			return nil, &SpecError{Name: name, Spec: v, Reason: err.Error()}
		}
		f.ids[id] = struct{}{}
	}
	return f, nil
}

// isWIGOSTuple tells a single identifier written as a four element tuple
// apart from a list of identifiers.
func isWIGOSTuple(vs []any) bool {
	if len(vs) != 4 {
		return false
	}
	_, err := wigos.Normalize(vs)
	return err == nil
}
