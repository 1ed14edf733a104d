package frame

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrLevelOutOfRange = errors.New("index level out of range")
	ErrLengthMismatch  = errors.New("length mismatch")
)

// Tuple is the label of a row in a multi-level index.
type Tuple string

// TupleOf builds the label of a row from one value per level.
func TupleOf(values ...any) Tuple {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%#v", v)
	}

	return Tuple("(" + strings.Join(parts, ", ") + ")")
}

// Index labels the rows of a Table or the values of a Series.
type Index struct {
	Names  []string
	Levels [][]any
}

// NewIndex creates a single level index.
func NewIndex(labels ...any) Index {
	level := make([]any, len(labels))
	copy(level, labels)

	return Index{Names: []string{""}, Levels: [][]any{level}}
}

// RangeIndex creates the default 0..n-1 index.
func RangeIndex(n int) Index {
	level := make([]any, n)
	for i := range n {
		level[i] = i
	}

	return Index{Names: []string{""}, Levels: [][]any{level}}
}

func NewMultiIndex(names []string, levels ...[]any) (Index, error) {
	if len(levels) == 0 {
		return Index{}, errors.Wrap(ErrLevelOutOfRange, "multi index needs at least one level")
	}
	if len(names) != len(levels) {
		return Index{}, errors.Wrapf(ErrLengthMismatch, "%d names for %d levels", len(names), len(levels))
	}
	rows := len(levels[0])
	idx := Index{Names: make([]string, len(names)), Levels: make([][]any, len(levels))}
	copy(idx.Names, names)
	for i, level := range levels {
		if len(level) != rows {
			return Index{}, errors.Wrapf(ErrLengthMismatch, "level %d has %d labels, expected %d", i, len(level), rows)
		}
		idx.Levels[i] = append([]any(nil), level...)
	}

	return idx, nil
}

func (ix Index) Len() int {
	if len(ix.Levels) == 0 {
		return 0
	}

	return len(ix.Levels[0])
}

func (ix Index) NLevels() int {
	return len(ix.Levels)
}

// Label returns the label of row. Multi-level indices return a Tuple.
func (ix Index) Label(row int) any {
	if len(ix.Levels) == 1 {
		return ix.Levels[0][row]
	}
	values := make([]any, len(ix.Levels))
	for i, level := range ix.Levels {
		values[i] = level[row]
	}

	return TupleOf(values...)
}

// Labels returns the label of every row.
func (ix Index) Labels() []any {
	labels := make([]any, ix.Len())
	for i := range labels {
		labels[i] = ix.Label(i)
	}

	return labels
}

// Level returns a copy of the labels of level n.
func (ix Index) Level(n int) ([]any, error) {
	if n < 0 || n >= len(ix.Levels) {
		return nil, errors.Wrapf(ErrLevelOutOfRange, "level %d of %d", n, len(ix.Levels))
	}

	return append([]any(nil), ix.Levels[n]...), nil
}

// Slice copies the rows [start, end).
func (ix Index) Slice(start, end int) Index {
	out := Index{Names: append([]string(nil), ix.Names...), Levels: make([][]any, len(ix.Levels))}
	for i, level := range ix.Levels {
		out.Levels[i] = append([]any(nil), level[start:end]...)
	}

	return out
}

func (ix Index) append(other Index) (Index, error) {
	if other.NLevels() != ix.NLevels() {
		return Index{}, errors.Wrapf(ErrLengthMismatch, "cannot append %d level index to %d level index", other.NLevels(), ix.NLevels())
	}
	out := ix.Slice(0, ix.Len())
	for i := range out.Levels {
		out.Levels[i] = append(out.Levels[i], other.Levels[i]...)
	}

	return out, nil
}

// positions maps every comparable label to its first row.
func (ix Index) positions() map[any]int {
	pos := make(map[any]int, ix.Len())
	for row := range ix.Len() {
		label := ix.Label(row)
		if !isComparable(label) {
			continue
		}
		if _, ok := pos[label]; !ok {
			pos[label] = row
		}
	}

	return pos
}

func isComparable(v any) bool {
	if v == nil {
		return true
	}

	return reflect.TypeOf(v).Comparable()
}
