// Package engine runs decoded BUFR messages through the structure engine:
// header filters, shape-cached key walking, subset partitioning, observation
// extraction and parameter resolution.
package engine

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"slices"

	"github.com/couchcryptid/storm-data-bufr/internal/bufr"
	"github.com/couchcryptid/storm-data-bufr/internal/domain"
	"github.com/couchcryptid/storm-data-bufr/internal/extract"
	"github.com/couchcryptid/storm-data-bufr/internal/filter"
	"github.com/couchcryptid/storm-data-bufr/internal/observability"
	"github.com/couchcryptid/storm-data-bufr/internal/param"
	"github.com/couchcryptid/storm-data-bufr/internal/structure"
	"github.com/couchcryptid/storm-data-bufr/internal/subset"
	"github.com/couchcryptid/storm-data-bufr/internal/table"
)

// Request describes what to read from each message.
type Request struct {
	// Columns are parameter labels or raw key names. Empty selects every key.
	Columns []string
	// Required columns drop a row when they have no value.
	Required []string
	// Filters maps key names or parameter labels to filter specifications
	// accepted by filter.Compile. "count" filters on the 1-based message
	// ordinal.
	Filters map[string]any
	// RankedKeys keeps rank-prefixed key names ("#2#latitude") in
	// observations.
	RankedKeys bool
	// RaiseOnMissing fails a message when a computed parameter has no usable
	// inputs.
	RaiseOnMissing bool
	// WideSchema makes ReadAll use the union of all row columns instead of
	// the first row's.
	WideSchema bool
}

type rowFilter struct {
	name string
	acc  param.Accessor
	f    filter.Filter
}

// Engine is safe for concurrent use once built; the only shared mutable state
// is its shape cache.
type Engine struct {
	cache     *structure.ShapeCache
	registry  *param.Registry
	converter param.Converter
	logger    *slog.Logger
	metrics   *observability.Metrics

	header    *filter.Set
	rows      []rowFilter
	extractor *extract.Extractor
	resolver  *param.Resolver
	include   []string
	bound     int
	bounded   bool
	withCount bool
	raise     bool
	wide      bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithShapeCache shares a cache between engines.
func WithShapeCache(c *structure.ShapeCache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithRegistry sets the parameter registry. The default is
// param.NewDefaultRegistry.
func WithRegistry(r *param.Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// WithConverter overrides the unit converter.
func WithConverter(c param.Converter) Option {
	return func(e *Engine) { e.converter = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics records engine metrics. A cache created by the engine also
// reports its hits and misses.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New validates req and prepares an Engine. Invalid filters and column
// requests fail here rather than per message.
func New(req Request, opts ...Option) (*Engine, error) {
	e := &Engine{
		logger: slog.Default(),
		raise:  req.RaiseOnMissing,
		wide:   req.WideSchema,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = param.NewDefaultRegistry()
	}
	if e.cache == nil {
		var copts []structure.CacheOption
		if e.metrics != nil {
			copts = append(copts, structure.WithObserver(e.metrics.ObserveShapeCache))
		}
		e.cache = structure.NewShapeCache(copts...)
	}

	set, err := filter.CompileAll(req.Filters)
	if err != nil {
		return nil, fmt.Errorf("compile filters: %w", err)
	}
	e.header = set
	e.bound, e.bounded = set.CountBound()

	data, rest := set.Split(func(name string) bool {
		return name != filter.CountKey && e.rowAccessor(name) == nil
	})
	for _, name := range rest.Names() {
		if name == filter.CountKey {
			continue
		}
		f, _ := rest.Get(name)
		e.rows = append(e.rows, rowFilter{name: name, acc: e.rowAccessor(name), f: f})
	}

	e.resolver, err = e.registry.Resolve(req.Columns, req.Required)
	if err != nil {
		return nil, fmt.Errorf("resolve columns: %w", err)
	}
	e.extractor = extract.New(extract.WithFilters(data), extract.WithRankedKeys(req.RankedKeys))
	e.withCount = slices.Contains(req.Columns, filter.CountKey)

	if !e.resolver.Passthrough() {
		e.include = includeSet(e.resolver.Keys(), data.Names(), e.rows)
	}
	return e, nil
}

// rowAccessor returns the accessor a filter name is evaluated through when
// the name is a derived parameter rather than a raw key.
func (e *Engine) rowAccessor(name string) param.Accessor {
	if filter.IsWIGOSName(name) {
		return param.WIGOSID()
	}
	a, ok := e.registry.Lookup(name)
	if !ok {
		return nil
	}
	if keys := a.Keys(); len(keys) == 1 && keys[0] == name {
		return nil
	}
	return a
}

// includeSet lists every key the extractor must keep. Subset markers are
// always kept so uncompressed messages can still be partitioned.
func includeSet(columns, filtered []string, rows []rowFilter) []string {
	out := []string{bufr.KeySubsetNumber}
	out = append(out, columns...)
	out = append(out, filtered...)
	for _, r := range rows {
		out = append(out, r.acc.Keys()...)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Include returns the key names kept from each message, nil for all.
func (e *Engine) Include() []string { return slices.Clone(e.include) }

// ShapeCache returns the engine's cache.
func (e *Engine) ShapeCache() *structure.ShapeCache { return e.cache }

// Done reports whether no message after count can pass the count filter.
func (e *Engine) Done(count int) bool {
	return e.bounded && count >= e.bound
}

// Process returns the rows of one message. count is the message's 1-based
// position in its stream. A message rejected by header filters yields no
// rows and no error.
func (e *Engine) Process(ctx context.Context, msg bufr.Message, count int) ([]table.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h := bufr.Wrap(msg)
	if !e.header.MatchHeader(h, count) {
		if e.metrics != nil {
			e.metrics.MessagesFiltered.Inc()
		}
		return nil, nil
	}
	if err := h.Acquire(); err != nil {
		return nil, err
	}
	defer h.Release()

	keys := e.cache.Get(h, e.include)
	plan := subset.Partition(keys, h.NumberOfSubsets(), h.Compressed())
	if missing := plan.Missing(); missing > 0 {
		e.logger.Debug("subset markers missing",
			"count", count,
			"expected", plan.Expected,
			"found", len(plan.Subsets),
		)
	}
	if plan.Extra > 0 {
		e.logger.Debug("subset markers beyond subset count ignored",
			"count", count,
			"expected", plan.Expected,
			"extra", plan.Extra,
		)
	}
	if e.metrics != nil {
		e.metrics.Subsets.WithLabelValues(plan.Layout.String()).Add(float64(len(plan.Subsets)))
	}

	var base *domain.Observation
	if e.withCount {
		base = domain.NewObservation(1)
		base.Set(filter.CountKey, count)
	}
	pctx := param.Context{Units: unitsByName(h, keys), RaiseOnMissing: e.raise, Converter: e.converter}

	var rows []table.Row
	for _, obs := range e.extractor.Message(h, plan, base) {
		if !e.matchRows(obs, pctx) {
			continue
		}
		row, err := e.resolver.Resolve(obs, pctx)
		if err != nil {
			return nil, fmt.Errorf("resolve observation: %w", err)
		}
		if row != nil {
			rows = append(rows, row)
		}
	}
	if e.metrics != nil {
		e.metrics.ObservationsEmitted.Add(float64(len(rows)))
	}
	return rows, nil
}

func (e *Engine) matchRows(obs *domain.Observation, pctx param.Context) bool {
	pctx.RaiseOnMissing = false
	for _, r := range e.rows {
		res, err := r.acc.Collect(obs, pctx)
		if err != nil || len(res) == 0 || !r.f.Match(res[0].Value) {
			return false
		}
	}
	return true
}

// unitsByName maps each key name to the units of its first occurrence.
func unitsByName(h *bufr.Handle, keys []structure.Key) func(string) string {
	units := make(map[string]string)
	for _, k := range keys {
		if _, ok := units[k.Name]; !ok {
			units[k.Name] = h.Units(k.Raw)
		}
	}
	return func(name string) string {
		if u, ok := units[name]; ok {
			return u
		}
		_, bare := bufr.SplitRank(name)
		return units[bare]
	}
}

// ReadAll processes a message stream into one table, stopping early once
// the count filter's bound is reached.
func (e *Engine) ReadAll(ctx context.Context, msgs iter.Seq2[bufr.Message, error]) (*table.Table, error) {
	opts := []table.Option{table.WithLogger(e.logger)}
	if e.wide {
		opts = append(opts, table.WithSchema(table.Union))
	}
	b := table.NewBuilder(opts...)

	count := 0
	for msg, err := range msgs {
		if err != nil {
			return nil, err
		}
		count++
		rows, err := e.Process(ctx, msg, count)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", count, err)
		}
		for _, r := range rows {
			b.Add(r)
		}
		if e.Done(count) {
			e.logger.Debug("count bound reached", "count", count)
			break
		}
	}
	return b.Table(), nil
}
