package filter

import (
	"math"
	"slices"

	"github.com/couchcryptid/storm-data-bufr/internal/bufr"
)

// CountKey is the synthetic key holding the 1-based message ordinal.
const CountKey = "count"

// Set is a compiled collection of filters keyed by name. The zero value and
// nil both behave as an empty set.
type Set struct {
	filters map[string]Filter
	names   []string
}

// CompileAll compiles every specification, failing on the first invalid one.
func CompileAll(specs map[string]any) (*Set, error) {
	s := &Set{filters: make(map[string]Filter, len(specs))}
	for name, spec := range specs {
		f, err := Compile(name, spec)
		if err != nil {
			return nil, err
		}
		s.filters[name] = f
		s.names = append(s.names, name)
	}
	slices.Sort(s.names)
	return s, nil
}

// Len returns the number of filters.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// Names returns the filtered key names in sorted order.
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	return s.names
}

// Get returns the filter for name.
func (s *Set) Get(name string) (Filter, bool) {
	if s == nil {
		return nil, false
	}
	f, ok := s.filters[name]
	return f, ok
}

// Split partitions the set into the filters whose names satisfy pred and the rest.
func (s *Set) Split(pred func(name string) bool) (in, out *Set) {
	in = &Set{filters: make(map[string]Filter)}
	out = &Set{filters: make(map[string]Filter)}
	for _, n := range s.Names() {
		dst := out
		if pred(n) {
			dst = in
		}
		dst.filters[n] = s.filters[n]
		dst.names = append(dst.names, n)
	}
	return in, out
}

// MatchHeader evaluates the filters on keys readable before the data section
// is unpacked, plus the message count. Filters on keys the header does not
// carry are left to the data scan.
func (s *Set) MatchHeader(h *bufr.Handle, count int) bool {
	for _, n := range s.Names() {
		f := s.filters[n]
		if n == CountKey {
			if !f.Match(count) {
				return false
			}
			continue
		}
		if !h.IsHeaderKey(n) {
			continue
		}
		v, err := h.Get(n)
		if err != nil {
			continue
		}
		if !f.Match(bufr.Normalize(v)) {
			return false
		}
	}
	return true
}

// MatchAll reports whether every filter matches the value found by get.
// Absent values fail.
func (s *Set) MatchAll(get func(name string) (any, bool)) bool {
	for _, n := range s.Names() {
		v, ok := get(n)
		if !ok || !s.filters[n].Match(v) {
			return false
		}
	}
	return true
}

// CountBound returns the largest message count the count filter accepts.
func (s *Set) CountBound() (int, bool) {
	f, ok := s.Get(CountKey)
	if !ok {
		return 0, false
	}
	b, ok := f.UpperBound()
	if !ok {
		return 0, false
	}
	n, ok := number(b)
	if !ok || math.IsInf(n, 0) || math.IsNaN(n) {
		return 0, false
	}
	return int(math.Floor(n)), true
}
