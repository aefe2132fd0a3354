package param

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/storm-data-bufr/internal/bufr"
	"github.com/couchcryptid/storm-data-bufr/internal/domain"
)

// Dtype names the Go type a parameter value is coerced to.
type Dtype string

const (
	Any    Dtype = ""
	Float  Dtype = "float"
	Int    Dtype = "int"
	String Dtype = "string"
	Time   Dtype = "time"
)

var errUnsupported = errors.New("unsupported value")

// ParseDtype validates a type name.
func ParseDtype(s string) (Dtype, error) {
	switch d := Dtype(strings.ToLower(strings.TrimSpace(s))); d {
	case Any, Float, Int, String, Time:
		return d, nil
	}
	return "", fmt.Errorf("unknown dtype %q", s)
}

// Coerce converts v to dt. nil stays nil. On failure the returned error is a
// *domain.ConversionError and the value is nil.
func Coerce(v any, dt Dtype) (any, error) {
	if v == nil || dt == Any {
		return v, nil
	}
	switch dt {
	case Float:
		if f, ok := bufr.AsFloat(v); ok {
			return f, nil
		}
	case Int:
		if n, ok := bufr.AsInt(v); ok {
			return int64(n), nil
		}
		if f, ok := bufr.AsFloat(v); ok && f == math.Trunc(f) {
			return int64(f), nil
		}
	case String:
		switch x := v.(type) {
		case string:
			return x, nil
		case float64:
			return strconv.FormatFloat(x, 'g', -1, 64), nil
		case fmt.Stringer:
			return x.String(), nil
		}
		return fmt.Sprint(v), nil
	case Time:
		switch x := v.(type) {
		case time.Time:
			return x.UTC(), nil
		case string:
			t, err := time.Parse(time.RFC3339, strings.TrimSpace(x))
			if err != nil {
				return nil, &domain.ConversionError{Value: v, Target: string(dt), Err: err}
			}
			return t.UTC(), nil
		}
	}
	return nil, &domain.ConversionError{Value: v, Target: string(dt), Err: errUnsupported}
}
