package frame

import (
	"fmt"

	"github.com/pkg/errors"
)

var ErrColumnNotFound = errors.New("column not found")

// Table is a set of named columns sharing one row index. A Table is mutable: column writes are visible
// to every holder of the pointer.
type Table struct {
	index   Index
	columns []string
	data    map[string][]any
}

// NewTable creates an empty table over index. A zero index is replaced by an empty RangeIndex.
func NewTable(index Index) *Table {
	if index.NLevels() == 0 {
		index = RangeIndex(0)
	}

	return &Table{index: index, data: make(map[string][]any)}
}

// TableOf creates a table with a RangeIndex from equally sized columns, kept in the order of names.
func TableOf(names []string, columns map[string][]any) (*Table, error) {
	rows := 0
	if len(names) > 0 {
		rows = len(columns[names[0]])
	}
	tbl := NewTable(RangeIndex(rows))
	for _, name := range names {
		err := tbl.SetColumn(name, columns[name])
		if err != nil {
			return nil, err
		}
	}

	return tbl, nil
}

func (t *Table) Len() int {
	return t.index.Len()
}

func (t *Table) Index() Index {
	return t.index
}

// Columns returns the column names in insertion order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

func (t *Table) HasColumn(name string) bool {
	_, ok := t.data[name]

	return ok
}

// Column returns a copy of the named column as a series labelled by the table index.
func (t *Table) Column(name string) (Series, error) {
	values, ok := t.data[name]
	if !ok {
		return Series{}, errors.Wrapf(ErrColumnNotFound, "column %q", name)
	}

	return Series{Name: name, Index: t.index, Values: append([]any(nil), values...)}, nil
}

// SetColumn assigns or overwrites a column. values must have one entry per row.
func (t *Table) SetColumn(name string, values []any) error {
	if len(values) != t.Len() {
		return errors.Wrapf(ErrLengthMismatch, "column %q: %d values for %d rows", name, len(values), t.Len())
	}
	if _, ok := t.data[name]; !ok {
		t.columns = append(t.columns, name)
	}
	t.data[name] = append([]any(nil), values...)

	return nil
}

// Row returns the values of row i keyed by column name.
func (t *Table) Row(i int) map[string]any {
	row := make(map[string]any, len(t.columns))
	for _, name := range t.columns {
		row[name] = t.data[name][i]
	}

	return row
}

// Slice copies the rows [start, end) into a new table.
func (t *Table) Slice(start, end int) *Table {
	out := &Table{
		index:   t.index.Slice(start, end),
		columns: append([]string(nil), t.columns...),
		data:    make(map[string][]any, len(t.columns)),
	}
	for _, name := range t.columns {
		out.data[name] = append([]any(nil), t.data[name][start:end]...)
	}

	return out
}

func (t *Table) String() string {
	return fmt.Sprintf("Table(rows=%d, columns=%v)", t.Len(), t.columns)
}

// Concat stacks tables vertically. Columns missing from a table are filled with nil.
func Concat(tables ...*Table) (*Table, error) {
	out := NewTable(Index{})
	for i, tbl := range tables {
		if tbl == nil {
			return nil, errors.Errorf("table %d is nil", i)
		}
		index := tbl.index.Slice(0, tbl.Len())
		if i > 0 {
			var err error
			index, err = out.index.append(tbl.index)
			if err != nil {
				return nil, errors.Wrapf(err, "unable to concatenate table %d", i)
			}
		}
		prevRows := out.Len()
		for _, name := range out.columns {
			values, ok := tbl.data[name]
			if !ok {
				values = make([]any, tbl.Len())
			}
			out.data[name] = append(out.data[name], values...)
		}
		for _, name := range tbl.columns {
			if _, ok := out.data[name]; ok {
				continue
			}
			out.columns = append(out.columns, name)
			out.data[name] = append(make([]any, prevRows), tbl.data[name]...)
		}
		out.index = index
	}

	return out, nil
}
