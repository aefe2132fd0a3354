// Package table assembles flat rows into a column-aligned table.
package table

import (
	"log/slog"
	"slices"
)

// Cell is one named value of a row.
type Cell struct {
	Name  string
	Value any
}

// Row is an ordered list of cells.
type Row []Cell

// Get returns the value of the named cell.
func (r Row) Get(name string) (any, bool) {
	for _, c := range r {
		if c.Name == name {
			return c.Value, true
		}
	}
	return nil, false
}

// Names returns the cell names in order.
func (r Row) Names() []string {
	out := make([]string, len(r))
	for i, c := range r {
		out[i] = c.Name
	}
	return out
}

// Table is a rectangular result. Rows[i][j] belongs to Columns[j]; cells a
// row did not carry are nil.
type Table struct {
	Columns []string
	Rows    [][]any
}

// Column returns the values of one column.
func (t *Table) Column(name string) ([]any, bool) {
	j := slices.Index(t.Columns, name)
	if j < 0 {
		return nil, false
	}
	out := make([]any, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[j]
	}
	return out, true
}

// Schema selects how the builder chooses columns.
type Schema int

const (
	// FirstRow uses the columns of the first row; later columns are dropped.
	FirstRow Schema = iota
	// Union uses every column seen in any row, in first-seen order.
	Union
)

// Builder collects rows. The zero value is not usable; call NewBuilder.
type Builder struct {
	schema  Schema
	fixed   []string
	logger  *slog.Logger
	columns []string
	index   map[string]int
	first   int
	rows    []Row
	dropped map[string]struct{}
}

// Option configures a Builder.
type Option func(*Builder)

// WithSchema selects the column policy.
func WithSchema(s Schema) Option {
	return func(b *Builder) { b.schema = s }
}

// WithColumns fixes the output columns regardless of the rows' contents.
func WithColumns(cols []string) Option {
	return func(b *Builder) { b.fixed = slices.Clone(cols) }
}

// WithLogger sets the logger used for heterogeneity warnings.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// NewBuilder returns an empty builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		index:   make(map[string]int),
		dropped: make(map[string]struct{}),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	for _, c := range b.fixed {
		b.addColumn(c)
	}
	return b
}

// Add appends a row.
func (b *Builder) Add(r Row) {
	if len(b.rows) == 0 {
		b.first = len(r)
	}
	b.rows = append(b.rows, r)
	for _, c := range r {
		if _, ok := b.index[c.Name]; ok {
			continue
		}
		switch {
		case b.fixed != nil:
			b.dropped[c.Name] = struct{}{}
		case b.schema == Union || len(b.rows) == 1:
			b.addColumn(c.Name)
		default:
			b.dropped[c.Name] = struct{}{}
		}
	}
}

// Len returns the number of rows added.
func (b *Builder) Len() int { return len(b.rows) }

// Table renders the collected rows.
func (b *Builder) Table() *Table {
	t := &Table{Columns: slices.Clone(b.columns), Rows: make([][]any, len(b.rows))}
	for i, r := range b.rows {
		vals := make([]any, len(b.columns))
		for _, c := range r {
			if j, ok := b.index[c.Name]; ok {
				vals[j] = c.Value
			}
		}
		t.Rows[i] = vals
	}
	b.warn()
	return t
}

// warn reports heterogeneous input. The comparison of the first row's width
// with the final column count is a heuristic, not a guarantee that every
// divergence is caught.
func (b *Builder) warn() {
	if len(b.rows) == 0 {
		return
	}
	if b.fixed == nil && b.schema == Union && len(b.columns) > b.first {
		b.logger.Warn("rows have heterogeneous columns; table uses the union of all columns",
			"first_row_columns", b.first,
			"columns", len(b.columns),
		)
	}
	if len(b.dropped) > 0 {
		names := make([]string, 0, len(b.dropped))
		for n := range b.dropped {
			names = append(names, n)
		}
		slices.Sort(names)
		b.logger.Warn("columns absent from the table schema were dropped", "dropped", names)
	}
}

func (b *Builder) addColumn(name string) {
	if _, ok := b.index[name]; ok {
		return
	}
	b.index[name] = len(b.columns)
	b.columns = append(b.columns, name)
}
