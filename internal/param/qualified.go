package param

import (
	"math"
	"strconv"
	"strings"

	"github.com/couchcryptid/storm-data-bufr/internal/bufr"
	"github.com/couchcryptid/storm-data-bufr/internal/domain"
	"github.com/couchcryptid/storm-data-bufr/internal/table"
)

// LevelSuffix names the companion column carrying the qualifying coordinate.
const LevelSuffix = "_level"

// Common qualifier keys.
const (
	KeySensorHeight = "heightOfSensorAboveLocalGroundOrDeckOfMarinePlatform"
	KeyTimePeriod   = "timePeriod"
)

// Qualified decorates a simple parameter with the coordinate and period the
// measurement applies to. A period relabels the columns to
// <label>_<period> so that, for example, one- and six-hour precipitation
// totals from the same subset land in different columns.
type Qualified struct {
	Inner     Simple
	CoordKey  string
	PeriodKey string
}

func (q Qualified) Keys() []string {
	keys := q.Inner.Keys()
	if q.CoordKey != "" {
		keys = append(keys, q.CoordKey)
	}
	if q.PeriodKey != "" {
		keys = append(keys, q.PeriodKey)
	}
	return keys
}

func (q Qualified) Labels() []string { return q.Inner.Labels() }

func (q Qualified) Collect(obs *domain.Observation, ctx Context) (Result, error) {
	r, err := q.Inner.Collect(obs, ctx)
	if err != nil || len(r) == 0 {
		return r, err
	}
	base := q.Inner.label()
	label := base
	if q.PeriodKey != "" {
		if p, ok := lookup(obs, q.PeriodKey); ok && p != nil {
			if s, ok := formatPeriod(p, ctx.unitsOf(q.PeriodKey)); ok {
				label = base + "_" + s
			}
		}
	}
	out := make(Result, 0, len(r)+1)
	for _, c := range r {
		c.Name = label + strings.TrimPrefix(c.Name, base)
		out = append(out, c)
	}
	if q.CoordKey != "" {
		if v, ok := lookup(obs, q.CoordKey); ok {
			out = append(out, table.Cell{Name: label + LevelSuffix, Value: v})
		}
	}
	return out, nil
}

var periodUnits = map[string]string{
	"h":      "h",
	"hour":   "h",
	"hours":  "h",
	"min":    "min",
	"minute": "min",
	"s":      "s",
	"second": "s",
	"d":      "d",
	"day":    "d",
}

// formatPeriod renders a period such as -6 (hours) as "6h". BUFR reports
// periods ending at the observation time as negative numbers.
func formatPeriod(v any, units string) (string, bool) {
	f, ok := bufr.AsFloat(v)
	if !ok {
		return "", false
	}
	u, ok := periodUnits[strings.ToLower(strings.TrimSpace(units))]
	if !ok {
		u = "h"
	}
	return strconv.FormatFloat(math.Abs(f), 'f', -1, 64) + u, true
}
