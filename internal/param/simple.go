package param

import (
	"github.com/couchcryptid/storm-data-bufr/internal/bufr"
	"github.com/couchcryptid/storm-data-bufr/internal/domain"
	"github.com/couchcryptid/storm-data-bufr/internal/table"
)

// UnitsSuffix names the companion column carrying a parameter's units.
const UnitsSuffix = "_units"

// Simple copies one raw key to one column.
type Simple struct {
	Key   string
	Label string // defaults to Key
	Dtype Dtype
	// Units is the target unit. When set, numeric values are converted from
	// the source units and a <label>_units column is added.
	Units string
}

// Raw returns a Simple accessor that copies key unchanged.
func Raw(key string) Simple { return Simple{Key: key} }

func (s Simple) label() string {
	if s.Label != "" {
		return s.Label
	}
	return s.Key
}

func (s Simple) Keys() []string   { return []string{s.Key} }
func (s Simple) Labels() []string { return []string{s.label()} }

// Collect coerces and converts on a best-effort basis: a value that cannot
// be coerced or converted is reported as decoded.
func (s Simple) Collect(obs *domain.Observation, ctx Context) (Result, error) {
	v, ok := lookup(obs, s.Key)
	if !ok {
		return nil, nil
	}
	if c, err := Coerce(v, s.Dtype); err == nil {
		v = c
	}
	r := Result{{Name: s.label(), Value: v}}
	if s.Units == "" {
		return r, nil
	}
	units := ctx.unitsOf(s.Key)
	if _, isStr := v.(string); !isStr && units != "" {
		if f, ok := bufr.AsFloat(v); ok {
			if conv, err := ctx.converter().Convert(f, units, s.Units); err == nil {
				r[0].Value = conv
				units = s.Units
			}
		}
	}
	return append(r, table.Cell{Name: s.label() + UnitsSuffix, Value: unitsValue(units)}), nil
}

func unitsValue(u string) any {
	if u == "" {
		return nil
	}
	return u
}
