package bufr

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CoordinateOverrides pins the coordinate classification of keys whose
// descriptor class would say otherwise. The subset marker always opens a
// scope; the operator marker never does.
var CoordinateOverrides = map[string]bool{
	KeySubsetNumber: true,
	KeyOperator:     false,
}

// coordinateClassLimit is the first descriptor class that is not a
// coordinate or identification class.
const coordinateClassLimit = 10

// Handle adapts any Message to the full capability set the engine uses,
// synthesizing whatever the underlying value does not provide.
type Handle struct {
	msg     Message
	coord   Coordinator
	unpack  Unpacker
	release Releaser
	header  map[string]struct{}
}

// Wrap returns a Handle for m. Passing a *Handle returns it unchanged.
func Wrap(m Message) *Handle {
	if h, ok := m.(*Handle); ok {
		return h
	}
	h := &Handle{msg: m}
	h.coord, _ = m.(Coordinator)
	h.unpack, _ = m.(Unpacker)
	h.release, _ = m.(Releaser)

	keys := DefaultHeaderKeys
	if hd, ok := m.(Headered); ok {
		keys = hd.HeaderKeys()
	}
	h.header = make(map[string]struct{}, len(keys))
	for _, k := range keys {
		h.header[k] = struct{}{}
	}
	return h
}

// Message returns the wrapped message.
func (h *Handle) Message() Message { return h.msg }

// Keys returns the message keys in document order.
func (h *Handle) Keys() []string { return h.msg.Keys() }

// Get resolves key on the underlying message.
func (h *Handle) Get(key string) (any, error) { return h.msg.Get(key) }

// Acquire unpacks the data section when the message requires it.
func (h *Handle) Acquire() error {
	if h.unpack == nil {
		return nil
	}
	if err := h.unpack.Unpack(); err != nil {
		return fmt.Errorf("unpack message: %w", err)
	}
	return nil
}

// Release frees decoder resources; a no-op for plain messages.
func (h *Handle) Release() {
	if h.release != nil {
		h.release.Release()
	}
}

// IsHeaderKey reports whether key is readable before unpacking.
func (h *Handle) IsHeaderKey(key string) bool {
	_, ok := h.header[key]
	return ok
}

// IsMessageLevel reports whether raw holds one value for the whole message
// rather than one per subset. Header keys and the descriptor list keep their
// array form in compressed messages.
func (h *Handle) IsMessageLevel(raw string) bool {
	_, name := SplitRank(raw)
	return name == KeyUnexpandedDescriptors || h.IsHeaderKey(name)
}

// IsCoordinate classifies a raw key. The override table wins, then a decoder
// supplied classifier, then the descriptor class of "key->code".
func (h *Handle) IsCoordinate(raw string) bool {
	_, name := SplitRank(raw)
	if v, ok := CoordinateOverrides[name]; ok {
		return v
	}
	if h.coord != nil {
		return h.coord.IsCoordinate(raw)
	}
	code, err := h.msg.Get(raw + codeSuffix)
	if err != nil {
		return false
	}
	class, ok := DescriptorClass(code)
	return ok && class < coordinateClassLimit
}

// Units returns the unit string of a raw key, empty when unknown.
func (h *Handle) Units(raw string) string {
	v, err := h.msg.Get(raw + unitsSuffix)
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// Int reads an integer valued key.
func (h *Handle) Int(key string) (int, bool) {
	v, err := h.msg.Get(key)
	if err != nil || IsMissing(v) {
		return 0, false
	}
	return AsInt(v)
}

// NumberOfSubsets returns the subset count, 1 when the key is absent.
func (h *Handle) NumberOfSubsets() int {
	if n, ok := h.Int(KeyNumberOfSubsets); ok {
		return n
	}
	return 1
}

// Compressed reports whether the data section uses compressed subsets.
func (h *Handle) Compressed() bool {
	n, ok := h.Int(KeyCompressedData)
	return ok && n != 0
}

// DescriptorClass extracts the class (FXX) of a descriptor code given either
// as its six digit string form ("005001") or as an integer (5001).
func DescriptorClass(code any) (int, bool) {
	switch c := code.(type) {
	case string:
		c = strings.TrimSpace(c)
		if c == "" {
			return 0, false
		}
		if len(c) < 6 {
			c = strings.Repeat("0", 6-len(c)) + c
		}
		class, err := strconv.Atoi(c[:3])
		if err != nil {
			return 0, false
		}
		return class, true
	default:
		n, ok := AsInt(code)
		if !ok || n < 0 {
			return 0, false
		}
		return n / 1000, true
	}
}

// AsInt converts the numeric representations decoders produce to int.
func AsInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case int32:
		return int(x), true
	case float64:
		if x != math.Trunc(x) {
			return 0, false
		}
		return int(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// AsFloat converts the numeric representations decoders produce to float64.
func AsFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
