// Package extract walks the leveled keys of a subset and emits one flat
// observation per leaf of the implicit coordinate tree.
package extract

import (
	"iter"

	"github.com/couchcryptid/storm-data-bufr/internal/bufr"
	"github.com/couchcryptid/storm-data-bufr/internal/domain"
	"github.com/couchcryptid/storm-data-bufr/internal/filter"
	"github.com/couchcryptid/storm-data-bufr/internal/structure"
	"github.com/couchcryptid/storm-data-bufr/internal/subset"
)

// noPrune marks the prune level as unset.
const noPrune = -1

// Extractor turns subsets into observations. It is immutable after New and
// safe to share.
type Extractor struct {
	filters   *filter.Set
	mandatory []string
	byRaw     bool
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithFilters applies value filters by key name. Unless WithMandatory says
// otherwise, every filtered name must be present for an observation to be
// emitted.
func WithFilters(s *filter.Set) Option {
	return func(e *Extractor) { e.filters = s }
}

// WithMandatory sets the names that must all be present to emit.
func WithMandatory(names []string) Option {
	return func(e *Extractor) { e.mandatory = names }
}

// WithRankedKeys keys observations by the rank-prefixed raw key instead of
// the bare name, keeping repeated descriptors apart.
func WithRankedKeys(on bool) Option {
	return func(e *Extractor) { e.byRaw = on }
}

// New returns an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{}
	for _, opt := range opts {
		opt(e)
	}
	if e.mandatory == nil {
		e.mandatory = e.filters.Names()
	}
	if !e.byRaw {
		names := make([]string, len(e.mandatory))
		for i, m := range e.mandatory {
			_, names[i] = bufr.SplitRank(m)
		}
		e.mandatory = names
	}
	return e
}

// Message extracts every subset of plan in ascending subset order. base
// seeds each observation and is never modified.
func (e *Extractor) Message(h *bufr.Handle, plan subset.Plan, base *domain.Observation) iter.Seq2[int, *domain.Observation] {
	return func(yield func(int, *domain.Observation) bool) {
		vals := NewValues(h)
		for _, s := range plan.Subsets {
			for obs := range e.Subset(vals, plan.Header, s, base) {
				if !yield(s.Index, obs) {
					return
				}
			}
		}
	}
}

// Subset runs the scan over header followed by the subset's keys.
//
// The observation doubles as a stack: each stored key pushes its level, and a
// key that is shallower than the top, or a sibling of a key already stored,
// first emits the pending leaf and then pops back to its parent. Values of
// shared ancestors therefore stay in place across sibling leaves.
func (e *Extractor) Subset(vals *Values, header []structure.Key, s subset.Subset, base *domain.Observation) iter.Seq[*domain.Observation] {
	return func(yield func(*domain.Observation) bool) {
		var obs *domain.Observation
		if base != nil {
			obs = base.Clone()
		} else {
			obs = domain.NewObservation(len(s.Keys))
		}
		floor := obs.Len()
		levels := make([]int, 1, 16)
		prune := noPrune

		for _, keys := range [2][]structure.Key{header, s.Keys} {
			for _, k := range keys {
				if prune != noPrune {
					if k.Level > prune {
						continue
					}
					prune = noPrune
				}

				name := e.name(k)
				if closes(k.Level, name, levels, obs) && e.ready(obs) {
					if !yield(obs.Clone()) {
						return
					}
				}
				for obs.Len() > floor && len(levels) > 1 && closes(k.Level, name, levels, obs) {
					obs.PopLast()
					levels = levels[:len(levels)-1]
				}

				v := vals.Get(k.Raw, s.Projection)
				if f, ok := e.filter(k); ok && !f.Match(v) {
					prune = k.Level
					continue
				}

				obs.Set(name, v)
				levels = append(levels, k.Level)
			}
		}

		if e.ready(obs) {
			yield(obs.Clone())
		}
	}
}

// ready reports whether every mandatory name is present. Ranked keys count
// for their bare name.
func (e *Extractor) ready(obs *domain.Observation) bool {
	if !e.byRaw {
		return obs.HasAll(e.mandatory)
	}
	for _, m := range e.mandatory {
		if obs.Has(m) {
			continue
		}
		found := false
		for _, raw := range obs.Keys() {
			if _, n := bufr.SplitRank(raw); n == m {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (e *Extractor) filter(k structure.Key) (filter.Filter, bool) {
	if f, ok := e.filters.Get(k.Name); ok {
		return f, true
	}
	if k.Raw != k.Name {
		return e.filters.Get(k.Raw)
	}
	return nil, false
}

func (e *Extractor) name(k structure.Key) string {
	if e.byRaw {
		return k.Raw
	}
	return k.Name
}

// closes reports whether a key at level named name ends the pending leaf.
func closes(level int, name string, levels []int, obs *domain.Observation) bool {
	top := levels[len(levels)-1]
	return level < top || (level == top && obs.Has(name))
}
