package param

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/couchcryptid/storm-data-bufr/internal/bufr"
	"github.com/couchcryptid/storm-data-bufr/internal/domain"
	"github.com/couchcryptid/storm-data-bufr/internal/wigos"
)

// Labels of the built-in computed parameters.
const (
	LabelDatetime     = "data_datetime"
	LabelWMOStationID = "WMO_station_id"
	LabelWIGOSID      = "WSI"
	LabelPosition     = "position"
	LabelCRS          = "CRS"
)

var errMissingInput = errors.New("missing input")

// Computed derives one column from several raw keys.
type Computed struct {
	Label  string
	Inputs []string
	// Combine receives the input values in Inputs order, nil for missing ones.
	Combine func(vals []any) (any, error)
	// RaiseOnMissing turns a failed combination into an error wrapping
	// domain.ErrAllValuesMissing. Context.RaiseOnMissing has the same effect.
	RaiseOnMissing bool
}

func (c Computed) Keys() []string   { return slices.Clone(c.Inputs) }
func (c Computed) Labels() []string { return []string{c.Label} }

// Collect returns an empty Result when none of the inputs are present.
func (c Computed) Collect(obs *domain.Observation, ctx Context) (Result, error) {
	vals := make([]any, len(c.Inputs))
	present := false
	for i, k := range c.Inputs {
		v, ok := lookup(obs, k)
		present = present || ok
		vals[i] = v
	}
	raise := c.RaiseOnMissing || ctx.RaiseOnMissing
	if !present {
		if raise {
			return nil, fmt.Errorf("parameter %q: %w", c.Label, domain.ErrAllValuesMissing)
		}
		return nil, nil
	}
	v, err := c.Combine(vals)
	if err != nil {
		if raise {
			return nil, fmt.Errorf("parameter %q: %w: %w", c.Label, domain.ErrAllValuesMissing, err)
		}
		v = nil
	}
	return Result{{Name: c.Label, Value: v}}, nil
}

var datetimeKeys = []string{"year", "month", "day", "hour", "minute", "second"}

// Datetime assembles a UTC instant from year, month, day, hour, minute and
// second. Minute and second default to zero.
func Datetime() Computed {
	return Computed{Label: LabelDatetime, Inputs: datetimeKeys, Combine: combineDatetime}
}

func combineDatetime(vals []any) (any, error) {
	var p [6]int
	for i, v := range vals {
		if v == nil {
			if i >= 4 {
				continue
			}
			return nil, fmt.Errorf("%s: %w", datetimeKeys[i], errMissingInput)
		}
		n, ok := bufr.AsInt(v)
		if !ok && i == 5 {
			// seconds may carry a fraction
			if f, isFloat := bufr.AsFloat(v); isFloat {
				n, ok = int(f), true
			}
		}
		if !ok {
			return nil, &domain.ConversionError{Value: v, Target: datetimeKeys[i]}
		}
		p[i] = n
	}
	t := time.Date(p[0], time.Month(p[1]), p[2], p[3], p[4], p[5], 0, time.UTC)
	if t.Year() != p[0] || int(t.Month()) != p[1] || t.Day() != p[2] ||
		t.Hour() != p[3] || t.Minute() != p[4] || t.Second() != p[5] {
		return nil, fmt.Errorf("invalid date %04d-%02d-%02d %02d:%02d:%02d", p[0], p[1], p[2], p[3], p[4], p[5])
	}
	return t, nil
}

// WMOStationID combines block and station number into the five digit WMO
// index as an integer (block*1000 + station).
func WMOStationID() Computed {
	return Computed{
		Label:  LabelWMOStationID,
		Inputs: []string{"blockNumber", "stationNumber"},
		Combine: func(vals []any) (any, error) {
			block, err := intInput("blockNumber", vals[0])
			if err != nil {
				return nil, err
			}
			station, err := intInput("stationNumber", vals[1])
			if err != nil {
				return nil, err
			}
			return int64(block*1000 + station), nil
		},
	}
}

// WIGOSID normalises the four identifier components to "s-i-n-local".
func WIGOSID() Computed {
	return Computed{
		Label:  LabelWIGOSID,
		Inputs: wigos.Keys,
		Combine: func(vals []any) (any, error) {
			for i, v := range vals {
				if v == nil {
					return nil, fmt.Errorf("%s: %w", wigos.Keys[i], errMissingInput)
				}
			}
			id, err := wigos.FromParts(vals[0], vals[1], vals[2], vals[3])
			if err != nil {
				return nil, err
			}
			return id.String(), nil
		},
	}
}

// Position returns [longitude, latitude, height]. Height may be nil.
func Position() Computed {
	return Computed{
		Label:  LabelPosition,
		Inputs: []string{"longitude", "latitude", "heightOfStationGroundAboveMeanSeaLevel"},
		Combine: func(vals []any) (any, error) {
			lon, err := floatInput("longitude", vals[0])
			if err != nil {
				return nil, err
			}
			lat, err := floatInput("latitude", vals[1])
			if err != nil {
				return nil, err
			}
			pos := []any{lon, lat, nil}
			if h, ok := bufr.AsFloat(vals[2]); ok {
				pos[2] = h
			}
			return pos, nil
		},
	}
}

// crsNames maps BUFR code table 001150 to EPSG identifiers.
var crsNames = map[int]string{
	0: "EPSG:4326",
	1: "EPSG:4258",
	2: "EPSG:4269",
	3: "EPSG:4314",
}

// CRS maps the coded coordinate reference system to its EPSG name.
func CRS() Computed {
	return Computed{
		Label:  LabelCRS,
		Inputs: []string{"coordinateReferenceSystem"},
		Combine: func(vals []any) (any, error) {
			code, err := intInput("coordinateReferenceSystem", vals[0])
			if err != nil {
				return nil, err
			}
			name, ok := crsNames[code]
			if !ok {
				return nil, fmt.Errorf("unknown coordinate reference system %d", code)
			}
			return name, nil
		},
	}
}

func intInput(key string, v any) (int, error) {
	if v == nil {
		return 0, fmt.Errorf("%s: %w", key, errMissingInput)
	}
	n, ok := bufr.AsInt(v)
	if !ok {
		return 0, &domain.ConversionError{Value: v, Target: "int"}
	}
	return n, nil
}

func floatInput(key string, v any) (float64, error) {
	if v == nil {
		return 0, fmt.Errorf("%s: %w", key, errMissingInput)
	}
	f, ok := bufr.AsFloat(v)
	if !ok {
		return 0, &domain.ConversionError{Value: v, Target: "float"}
	}
	return f, nil
}
