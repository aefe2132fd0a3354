package filter

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseSpec reads the textual filter syntax used by the CLI and environment:
//
//	95..105    inclusive range
//	95..       lower bound only
//	..105      upper bound only
//	1,2,3      any of the values
//	06260      a single value
//
// Values parse as integers, then floats, and fall back to strings.
// Zero-padded digits stay strings; as set members they also match the
// number they spell, so "06" matches both "06" and 6.
func ParseSpec(s string) (any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty filter value")
	}
	if lo, hi, ok := strings.Cut(s, ".."); ok {
		r := Range{Min: parseScalar(lo), Max: parseScalar(hi)}
		if r.Min == nil && r.Max == nil {
			return nil, fmt.Errorf("range %q needs at least one bound", s)
		}
		return r, nil
	}
	if strings.Contains(s, ",") {
		parts := strings.Split(s, ",")
		vs := make([]any, 0, len(parts))
		for _, p := range parts {
			if v := parseScalar(p); v != nil {
				vs = append(vs, v)
			}
		}
		if len(vs) == 0 {
			return nil, fmt.Errorf("value list %q is empty", s)
		}
		return vs, nil
	}
	return parseScalar(s), nil
}

// ParseFilters reads "name=spec" pairs separated by sep.
func ParseFilters(s, sep string) (map[string]any, error) {
	out := make(map[string]any)
	for _, pair := range strings.Split(s, sep) {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, spec, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("filter %q: want name=value", pair)
		}
		v, err := ParseSpec(spec)
		if err != nil {
			return nil, fmt.Errorf("filter %q: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

func parseScalar(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	// Keep zero-padded identifiers ("06260") as strings.
	if len(s) > 1 && s[0] == '0' && s[1] != '.' {
		return s
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
