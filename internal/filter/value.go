package filter

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// timeKey gives instants a comparable representation independent of
// location and monotonic clock readings.
type timeKey int64

// number converts every Go numeric kind to float64.
func number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	return 0, false
}

// setKey maps a value to the key used for set membership: numbers compare
// by value regardless of Go type, strings ignore padding.
func setKey(v any) (any, bool) {
	if f, ok := number(v); ok {
		return f, true
	}
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x), true
	case time.Time:
		return timeKey(x.UnixNano()), true
	}
	if v == nil || !reflect.TypeOf(v).Comparable() {
		return nil, false
	}
	return v, true
}

// paddedNumber reads a zero-padded string of digits ("06") as the number
// a decoder reports for the same field.
func paddedNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '0' {
		return 0, false
	}
	for i := range len(s) {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	return float64(n), err == nil
}

// compare orders two values of the same family (numbers, instants,
// strings). ok is false when they cannot be ordered.
func compare(a, b any) (int, bool) {
	if x, ok := number(a); ok {
		y, ok := number(b)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	}
	if x, ok := a.(time.Time); ok {
		y, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return x.Compare(y), true
	}
	if x, ok := a.(string); ok {
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(strings.TrimSpace(x), strings.TrimSpace(y)), true
	}
	return 0, false
}

func orderable(v any) bool {
	if _, ok := number(v); ok {
		return true
	}
	switch v.(type) {
	case time.Time, string:
		return true
	}
	return false
}
