package extract

import (
	"github.com/couchcryptid/storm-data-bufr/internal/bufr"
)

// Values memoizes decoded values of one message. Compressed messages read
// each value array once and project it for every subset.
type Values struct {
	h     *bufr.Handle
	cache map[string]any
}

// NewValues returns an empty value cache over h. It is meant to live for a
// single message.
func NewValues(h *bufr.Handle) *Values {
	return &Values{h: h, cache: make(map[string]any)}
}

// Get returns the value of raw projected onto subset index proj (negative
// for no projection), with missing sentinels mapped to nil. Message-level
// keys are never projected. Lookup failures of any kind yield nil.
func (v *Values) Get(raw string, proj int) any {
	val, ok := v.cache[raw]
	if !ok {
		val = v.fetch(raw)
		v.cache[raw] = val
	}
	if v.h.IsMessageLevel(raw) {
		return bufr.Normalize(val)
	}
	return bufr.Normalize(project(val, proj))
}

func (v *Values) fetch(raw string) (val any) {
	defer func() {
		if recover() != nil {
			val = nil
		}
	}()
	val, err := v.h.Get(raw)
	if err != nil {
		return nil
	}
	return val
}

// project picks element i of a per-subset array. Scalars are shared by all
// subsets; an index past the end of the array is missing.
func project(v any, i int) any {
	if i < 0 {
		return v
	}
	switch x := v.(type) {
	case []any:
		if i < len(x) {
			return x[i]
		}
		return nil
	case []float64:
		if i < len(x) {
			return x[i]
		}
		return nil
	case []int64:
		if i < len(x) {
			return x[i]
		}
		return nil
	case []int:
		if i < len(x) {
			return x[i]
		}
		return nil
	case []string:
		if i < len(x) {
			return x[i]
		}
		return nil
	}
	return v
}
