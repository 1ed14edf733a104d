package process

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/askiada/go-process/pkg/frame"
)

// Column is a view onto one column of a table held by another reference. It has no storage of its own:
// reads project the parent table and writes assign into it in place.
type Column struct {
	table   Source[*frame.Table]
	column  string
	keyedBy string
	// cleared is the parent table this reference was cleared on.
	cleared *frame.Table
}

type ColumnOption func(c *Column)

// KeyedBy aligns writes on the values of another column of the table instead of the table index,
// that is table[column] = table[key].map(series).
func KeyedBy(key string) ColumnOption {
	return func(c *Column) {
		c.keyedBy = key
	}
}

// KeyedByColumn is KeyedBy using the column another Column refers to.
func KeyedByColumn(other *Column) ColumnOption {
	return KeyedBy(other.column)
}

func NewColumn(table Source[*frame.Table], column string, opts ...ColumnOption) *Column {
	col := &Column{table: table, column: column}
	for _, opt := range opts {
		opt(col)
	}

	return col
}

func (c *Column) ColumnName() string {
	return c.column
}

// HasValue reports whether the parent holds a table that contains the column, and the column has not been
// cleared through this reference on that same table.
func (c *Column) HasValue() bool {
	if !c.table.HasValue() {
		return false
	}
	tbl, err := c.table.Get()
	if err != nil || tbl == nil || tbl == c.cleared {
		return false
	}

	return tbl.HasColumn(c.column)
}

func (c *Column) Get() (frame.Series, error) {
	tbl, err := c.parent()
	if err != nil {
		return frame.Series{}, err
	}
	if tbl == c.cleared {
		return frame.Series{}, errors.Wrapf(ErrMissingValue, "%s has been cleared", c)
	}
	series, err := tbl.Column(c.column)
	if err != nil {
		return frame.Series{}, errors.Wrapf(ErrMissingColumn, "%s: %v", c, err)
	}

	return series, nil
}

// Set writes series into the parent table, aligned on the table index or on the KeyedBy column.
// Rows whose key is missing from the series receive nil.
func (c *Column) Set(series frame.Series) error {
	tbl, err := c.parent()
	if err != nil {
		return errors.Wrapf(err, "unable to assign %s", c)
	}
	keys := tbl.Index().Labels()
	if c.keyedBy != "" {
		keyCol, err := tbl.Column(c.keyedBy)
		if err != nil {
			return errors.Wrapf(ErrMissingColumn, "%s: key column %q", c, c.keyedBy)
		}
		keys = keyCol.Values
	}
	err = tbl.SetColumn(c.column, series.Map(keys))
	if err != nil {
		return errors.Wrapf(err, "unable to assign %s", c)
	}
	c.cleared = nil

	return nil
}

// Clear forgets the column through this reference only; the column stays in the table. A new parent
// table makes the column visible again.
func (c *Column) Clear() error {
	c.cleared = nil
	if tbl, err := c.table.Get(); err == nil {
		c.cleared = tbl
	}

	return nil
}

// OnSet mirrors every set of an observed series reference into the column.
func (c *Column) OnSet(_ *Reference[frame.Series], value frame.Series, present bool) error {
	if !present {
		return c.Clear()
	}

	return c.Set(value)
}

func (c *Column) String() string {
	state := "None"
	if c.table.HasValue() {
		state = "Table"
	}
	presence := "absent"
	if c.HasValue() {
		presence = "present"
	}

	return fmt.Sprintf("Column[%s.%s](%s)", state, c.column, presence)
}

func (c *Column) parent() (*frame.Table, error) {
	tbl, err := c.table.Get()
	if err != nil {
		return nil, errors.Wrapf(err, "parent table of column %q", c.column)
	}
	if tbl == nil {
		return nil, errors.Wrapf(ErrMissingValue, "parent table of column %q is nil", c.column)
	}

	return tbl, nil
}

// IndexRef is a read-only view of the row index of a table held by another reference, optionally of a
// single level of a multi-level index.
type IndexRef struct {
	table Source[*frame.Table]
	level int
}

// NewIndexRef views the whole index. Multi-level indices yield Tuple labels.
func NewIndexRef(table Source[*frame.Table]) *IndexRef {
	return &IndexRef{table: table, level: -1}
}

// NewIndexLevelRef views one level of the index.
func NewIndexLevelRef(table Source[*frame.Table], level int) *IndexRef {
	return &IndexRef{table: table, level: level}
}

func (ir *IndexRef) HasValue() bool {
	_, err := ir.Get()

	return err == nil
}

// Get returns the index labels as a series labelled by themselves.
func (ir *IndexRef) Get() (frame.Series, error) {
	tbl, err := ir.table.Get()
	if err != nil {
		return frame.Series{}, errors.Wrap(err, "parent table of index")
	}
	if tbl == nil {
		return frame.Series{}, errors.Wrap(ErrMissingValue, "parent table of index is nil")
	}
	idx := tbl.Index()
	if ir.level < 0 {
		return frame.Series{Index: idx, Values: idx.Labels()}, nil
	}
	labels, err := idx.Level(ir.level)
	if err != nil {
		return frame.Series{}, errors.Wrap(ErrMissingValue, err.Error())
	}

	name := ""
	if ir.level < len(idx.Names) {
		name = idx.Names[ir.level]
	}

	return frame.Series{Name: name, Index: frame.NewIndex(labels...), Values: labels}, nil
}

func (ir *IndexRef) String() string {
	if ir.level < 0 {
		return "Index[Table]"
	}

	return fmt.Sprintf("Index[Table.level%d]", ir.level)
}

var (
	_ Ref[frame.Series]    = (*Column)(nil)
	_ OnSet[frame.Series]  = (*Column)(nil)
	_ Source[frame.Series] = (*IndexRef)(nil)
	_ Describer            = (*IndexRef)(nil)
)
