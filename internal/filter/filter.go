package filter

import (
	"fmt"
	"math"

	"github.com/couchcryptid/storm-data-bufr/internal/wigos"
)

// Filter matches decoded values.
type Filter interface {
	Match(v any) bool
	// UpperBound is the largest value the filter can accept, when known. It
	// lets callers stop early on monotonically increasing keys such as the
	// message count.
	UpperBound() (any, bool)
}

// Range is an inclusive interval specification. A nil bound is unbounded.
type Range struct {
	Min any
	Max any
}

// Between returns the inclusive range [lo, hi].
func Between(lo, hi any) Range { return Range{Min: lo, Max: hi} }

// AtLeast returns the range [lo, +inf).
func AtLeast(lo any) Range { return Range{Min: lo} }

// AtMost returns the range (-inf, hi].
func AtMost(hi any) Range { return Range{Max: hi} }

type setFilter struct {
	values map[any]struct{}
	max    float64
	hasMax bool
}

func (f *setFilter) Match(v any) bool {
	k, ok := setKey(v)
	if !ok {
		return false
	}
	_, ok = f.values[k]
	return ok
}

func (f *setFilter) UpperBound() (any, bool) {
	if !f.hasMax {
		return nil, false
	}
	return f.max, true
}

type rangeFilter struct {
	min, max any
}

func (f *rangeFilter) Match(v any) bool {
	if v == nil {
		return false
	}
	if f.min != nil {
		c, ok := compare(v, f.min)
		if !ok || c < 0 {
			return false
		}
	}
	if f.max != nil {
		c, ok := compare(v, f.max)
		if !ok || c > 0 {
			return false
		}
	}
	return true
}

func (f *rangeFilter) UpperBound() (any, bool) {
	return f.max, f.max != nil
}

type predicateFilter struct {
	fn func(any) bool
}

func (f *predicateFilter) Match(v any) bool {
	if v == nil {
		return false
	}
	return f.fn(v)
}

func (f *predicateFilter) UpperBound() (any, bool) { return nil, false }

type wigosFilter struct {
	ids map[wigos.ID]struct{}
}

func (f *wigosFilter) Match(v any) bool {
	if v == nil {
		return false
	}
	id, err := wigos.Normalize(v)
	if err != nil {
		return false
	}
	_, ok := f.ids[id]
	return ok
}

func (f *wigosFilter) UpperBound() (any, bool) { return nil, false }

// Func adapts a predicate to Filter.
func Func(fn func(any) bool) Filter { return &predicateFilter{fn: fn} }

// Values returns a filter accepting any of the given values.
func Values(vs ...any) (Filter, error) {
	if len(vs) == 0 {
		return nil, &SpecError{Spec: vs, Reason: "empty value set"}
	}
	return newSet(vs)
}

func newSet(vs []any) (*setFilter, error) {
	f := &setFilter{values: make(map[any]struct{}, len(vs)), max: math.Inf(-1), hasMax: true}
	for _, v := range vs {
		k, ok := setKey(v)
		if !ok {
			return nil, &SpecError{Spec: v, Reason: fmt.Sprintf("unsupported set element type %T", v)}
		}
		f.values[k] = struct{}{}
		if str, ok := v.(string); ok {
			if n, ok := paddedNumber(str); ok {
				f.values[n] = struct{}{}
			}
		}
		if n, ok := number(v); ok {
			f.max = math.Max(f.max, n)
		} else {
			f.hasMax = false
		}
	}
	return f, nil
}
