package param

import (
	"fmt"
	"strings"
)

// Converter converts a value between two unit symbols.
type Converter interface {
	Convert(v float64, from, to string) (float64, error)
}

// linear is to = v*Scale + Offset.
type linear struct {
	Scale  float64
	Offset float64
}

// UnitTable is a Converter backed by linear conversion factors.
type UnitTable struct {
	factors map[[2]string]linear
}

// NewUnitTable returns an empty table.
func NewUnitTable() *UnitTable {
	return &UnitTable{factors: make(map[[2]string]linear)}
}

// Add registers from→to and its inverse.
func (t *UnitTable) Add(from, to string, scale, offset float64) *UnitTable {
	t.factors[[2]string{from, to}] = linear{Scale: scale, Offset: offset}
	t.factors[[2]string{to, from}] = linear{Scale: 1 / scale, Offset: -offset / scale}
	return t
}

// Convert implements Converter.
func (t *UnitTable) Convert(v float64, from, to string) (float64, error) {
	from, to = canonicalUnit(from), canonicalUnit(to)
	if from == to {
		return v, nil
	}
	f, ok := t.factors[[2]string{from, to}]
	if !ok {
		return 0, fmt.Errorf("no conversion from %q to %q", from, to)
	}
	return v*f.Scale + f.Offset, nil
}

// DefaultUnits covers the conversions common surface parameters need.
var DefaultUnits = NewUnitTable().
	Add("K", "degC", 1, -273.15).
	Add("Pa", "hPa", 0.01, 0).
	Add("m/s", "knot", 3600.0/1852.0, 0).
	Add("m/s", "km/h", 3.6, 0).
	Add("m", "km", 0.001, 0).
	Add("kg m-2", "mm", 1, 0)

var unitAliases = map[string]string{
	"C":        "degC",
	"°C":       "degC",
	"CEL":      "degC",
	"m s-1":    "m/s",
	"kt":       "knot",
	"kg/m2":    "kg m-2",
	"kg m**-2": "kg m-2",
}

func canonicalUnit(u string) string {
	u = strings.TrimSpace(u)
	if a, ok := unitAliases[u]; ok {
		return a
	}
	return u
}
