package param

import (
	"slices"

	"github.com/couchcryptid/storm-data-bufr/internal/domain"
	"github.com/couchcryptid/storm-data-bufr/internal/table"
)

type column struct {
	name string
	acc  Accessor
}

// Resolver turns observations into rows for a fixed column request.
type Resolver struct {
	columns  []column
	required map[string]bool
	keys     []string
}

// Keys returns the raw key names the requested columns read, nil when the
// resolver passes every key through.
func (r *Resolver) Keys() []string { return slices.Clone(r.keys) }

// Columns returns the requested column names.
func (r *Resolver) Columns() []string {
	out := make([]string, len(r.columns))
	for i, c := range r.columns {
		out[i] = c.name
	}
	return out
}

// Passthrough reports whether no columns were requested.
func (r *Resolver) Passthrough() bool { return len(r.columns) == 0 }

// Resolve returns the row for obs, or nil when a required column has no
// value or none of the columns do. Errors come from computed parameters
// asked to raise on missing input.
func (r *Resolver) Resolve(obs *domain.Observation, ctx Context) (table.Row, error) {
	if r.Passthrough() {
		row := make(table.Row, 0, obs.Len())
		for _, k := range obs.Keys() {
			row = append(row, table.Cell{Name: k, Value: obs.Value(k)})
		}
		return row, nil
	}
	var row table.Row
	found := false
	for _, c := range r.columns {
		res, err := c.acc.Collect(obs, ctx)
		if err != nil {
			return nil, err
		}
		ok := hasData(res)
		if !ok {
			if r.required[c.name] {
				return nil, nil
			}
			row = append(row, table.Cell{Name: c.name})
			continue
		}
		found = true
		row = append(row, res...)
	}
	if !found {
		return nil, nil
	}
	return row, nil
}
