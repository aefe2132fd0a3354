package param

import (
	"errors"
	"strings"

	"github.com/couchcryptid/storm-data-bufr/internal/domain"
)

// Fallback tries accessors in order and returns the first result that holds
// a value.
type Fallback struct {
	// Label, when set, replaces the primary label of whichever accessor
	// answered so the column name does not depend on which one did.
	Label     string
	Accessors []Accessor
}

func (f Fallback) Keys() []string {
	var keys []string
	for _, a := range f.Accessors {
		keys = append(keys, a.Keys()...)
	}
	return keys
}

func (f Fallback) Labels() []string {
	if f.Label != "" {
		return []string{f.Label}
	}
	if len(f.Accessors) == 0 {
		return nil
	}
	return f.Accessors[0].Labels()
}

// Collect returns the last domain.ErrAllValuesMissing failure when no
// accessor answered and at least one of them raised.
func (f Fallback) Collect(obs *domain.Observation, ctx Context) (Result, error) {
	var missing error
	for _, a := range f.Accessors {
		r, err := a.Collect(obs, ctx)
		if errors.Is(err, domain.ErrAllValuesMissing) {
			missing = err
			continue
		}
		if err != nil {
			return nil, err
		}
		if !hasData(r) {
			continue
		}
		if f.Label == "" {
			return r, nil
		}
		labels := a.Labels()
		if len(labels) == 0 {
			return r, nil
		}
		out := make(Result, len(r))
		for i, c := range r {
			if rest, ok := strings.CutPrefix(c.Name, labels[0]); ok {
				c.Name = f.Label + rest
			}
			out[i] = c
		}
		return out, nil
	}
	return nil, missing
}
