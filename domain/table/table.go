package table

import (
	"fmt"
	"sort"
)

// Row maps column name to value.
type Row map[string]Value

// Record is a single user-built row of feature values.
type Record = Row

// Clone returns a copy of the row. Values are held by value, so the copy
// shares nothing with r.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Columns returns the row's column names in sorted order.
func (r Row) Columns() []string {
	cols := make([]string, 0, len(r))
	for k := range r {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// Table is an immutable, column-ordered dataset.
type Table struct {
	columns []string
	kinds   map[string]Kind
	rows    []Row
}

// New builds a table. Columns absent from kinds default to KindString.
// Inputs are copied.
func New(columns []string, kinds map[string]Kind, rows []Row) (*Table, error) {
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if seen[c] {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		seen[c] = true
	}

	t := &Table{
		columns: append([]string(nil), columns...),
		kinds:   make(map[string]Kind, len(columns)),
		rows:    make([]Row, len(rows)),
	}
	for _, c := range columns {
		k, ok := kinds[c]
		if !ok || k == "" {
			k = KindString
		}
		t.kinds[c] = k
	}
	for i, r := range rows {
		row := make(Row, len(columns))
		for _, c := range columns {
			if v, ok := r[c]; ok {
				row[c] = v
			} else {
				row[c] = Missing()
			}
		}
		t.rows[i] = row
	}
	return t, nil
}

// SingleRow wraps a row as a one-row table whose columns are the row's keys.
func SingleRow(r Row) *Table {
	cols := r.Columns()
	kinds := make(map[string]Kind, len(cols))
	for _, c := range cols {
		kinds[c] = r[c].Kind
	}
	t, _ := New(cols, kinds, []Row{r})
	return t
}

// Columns returns the column names in file order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// HasColumn reports whether the column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.kinds[name]
	return ok
}

// Kind returns the inferred kind of a column, or KindMissing if absent.
func (t *Table) Kind(name string) Kind {
	if k, ok := t.kinds[name]; ok {
		return k
	}
	return KindMissing
}

// ColumnsOfKind returns, in file order, the columns with one of the kinds.
func (t *Table) ColumnsOfKind(kinds ...Kind) []string {
	var out []string
	for _, c := range t.columns {
		for _, k := range kinds {
			if t.kinds[c] == k {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns a copy of row i.
func (t *Table) Row(i int) Row {
	return t.rows[i].Clone()
}

// Value returns the cell at row i, column name.
func (t *Table) Value(i int, name string) Value {
	return t.rows[i][name]
}

// Column returns a copy of all values in a column.
func (t *Table) Column(name string) []Value {
	if !t.HasColumn(name) {
		return nil
	}
	out := make([]Value, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[name]
	}
	return out
}

// Floats returns the non-missing numeric (or boolean as 0/1) values of a
// column.
func (t *Table) Floats(name string) []float64 {
	var out []float64
	for _, r := range t.rows {
		v := r[name]
		if v.IsNumeric() || v.IsBoolean() {
			out = append(out, v.AsFloat64())
		}
	}
	return out
}

// Drop returns a new table without the named columns. Unknown names are
// ignored.
func (t *Table) Drop(names ...string) *Table {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	var cols []string
	for _, c := range t.columns {
		if !drop[c] {
			cols = append(cols, c)
		}
	}
	nt, _ := New(cols, t.kinds, t.rows)
	return nt
}
