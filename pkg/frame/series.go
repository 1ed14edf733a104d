package frame

import (
	"fmt"

	"github.com/pkg/errors"
)

// Series is a one dimensional sequence of labelled values.
type Series struct {
	Name   string
	Index  Index
	Values []any
}

// NewSeries creates a series labelled by index. A zero index is replaced by a RangeIndex.
func NewSeries(name string, index Index, values ...any) (Series, error) {
	if index.NLevels() == 0 {
		index = RangeIndex(len(values))
	}
	if index.Len() != len(values) {
		return Series{}, errors.Wrapf(ErrLengthMismatch, "series %q: %d labels for %d values", name, index.Len(), len(values))
	}

	return Series{Name: name, Index: index, Values: append([]any(nil), values...)}, nil
}

// SeriesOf creates a series labelled by the keys of m, in the order given by keys.
func SeriesOf[K comparable, V any](name string, keys []K, m map[K]V) Series {
	labels := make([]any, len(keys))
	values := make([]any, len(keys))
	for i, k := range keys {
		labels[i] = k
		values[i] = m[k]
	}

	return Series{Name: name, Index: NewIndex(labels...), Values: values}
}

func (s Series) Len() int {
	return len(s.Values)
}

// Lookup returns the first value labelled by label.
func (s Series) Lookup(label any) (any, bool) {
	if !isComparable(label) {
		return nil, false
	}
	row, ok := s.Index.positions()[label]
	if !ok {
		return nil, false
	}

	return s.Values[row], true
}

// Map returns, for every key, the value labelled by that key, or nil when the key is missing.
func (s Series) Map(keys []any) []any {
	pos := s.Index.positions()
	out := make([]any, len(keys))
	for i, key := range keys {
		if !isComparable(key) {
			continue
		}
		if row, ok := pos[key]; ok {
			out[i] = s.Values[row]
		}
	}

	return out
}

// Slice copies the values [start, end) with their labels.
func (s Series) Slice(start, end int) Series {
	return Series{
		Name:   s.Name,
		Index:  s.Index.Slice(start, end),
		Values: append([]any(nil), s.Values[start:end]...),
	}
}

func (s Series) String() string {
	return fmt.Sprintf("Series[%s](len=%d)", s.Name, s.Len())
}
