package param

import (
	"github.com/couchcryptid/storm-data-bufr/internal/bufr"
	"github.com/couchcryptid/storm-data-bufr/internal/domain"
	"github.com/couchcryptid/storm-data-bufr/internal/table"
)

// Context carries per-message information accessors may consult.
type Context struct {
	// Units returns the source units of a key name, empty when unknown.
	Units func(name string) string
	// RaiseOnMissing makes computed parameters return
	// domain.ErrAllValuesMissing instead of a nil value.
	RaiseOnMissing bool
	// Converter overrides DefaultUnits.
	Converter Converter
}

func (c Context) unitsOf(name string) string {
	if c.Units == nil {
		return ""
	}
	return c.Units(name)
}

func (c Context) converter() Converter {
	if c.Converter == nil {
		return DefaultUnits
	}
	return c.Converter
}

// Result is the ordered set of columns one accessor produced.
type Result = table.Row

// Accessor resolves one output parameter from an observation.
type Accessor interface {
	// Keys lists the raw key names the accessor reads. The extractor must be
	// told to retain them.
	Keys() []string
	// Labels lists the primary column labels the accessor produces.
	Labels() []string
	// Collect returns the accessor's columns. An empty Result means the
	// parameter is not available in this observation.
	Collect(obs *domain.Observation, ctx Context) (Result, error)
}

// hasData reports whether the primary cell of r holds a value. Companion
// units and level cells do not count.
func hasData(r Result) bool {
	return len(r) > 0 && r[0].Value != nil
}

// lookup reads name from obs. Observations keyed by rank-qualified keys are
// searched by bare name as well.
func lookup(obs *domain.Observation, name string) (any, bool) {
	if v, ok := obs.Get(name); ok {
		return v, true
	}
	for _, k := range obs.Keys() {
		if _, bare := bufr.SplitRank(k); bare == name && k != bare {
			return obs.Value(k), true
		}
	}
	return nil, false
}
