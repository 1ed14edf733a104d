package process_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-process/pkg/frame"
	"github.com/askiada/go-process/pkg/process"
)

func newPeopleTable(t *testing.T) *frame.Table {
	t.Helper()

	tbl, err := frame.TableOf([]string{"id", "name"}, map[string][]any{
		"id":   {"a", "b", "c"},
		"name": {"ann", "bob", "cid"},
	})
	require.NoError(t, err)

	return tbl
}

func TestColumnPresence(t *testing.T) {
	t.Parallel()

	table := process.NewReference[*frame.Table]()
	name := process.NewColumn(table, "name")
	missing := process.NewColumn(table, "age")

	assert.False(t, name.HasValue())
	_, err := name.Get()
	require.ErrorIs(t, err, process.ErrMissingValue)

	require.NoError(t, table.Set(newPeopleTable(t)))
	assert.True(t, name.HasValue())
	assert.False(t, missing.HasValue())

	_, err = missing.Get()
	require.ErrorIs(t, err, process.ErrMissingColumn)

	got, err := name.Get()
	require.NoError(t, err)
	assert.Equal(t, []any{"ann", "bob", "cid"}, got.Values)
	assert.Equal(t, "Column[Table.name](present)", name.String())
	assert.Equal(t, "Column[Table.age](absent)", missing.String())
}

func TestColumnSetByIndex(t *testing.T) {
	t.Parallel()

	table := process.NewReference(process.WithValue(newPeopleTable(t)))
	age := process.NewColumn(table, "age")

	series, err := frame.NewSeries("age", frame.NewIndex(2, 0), 30, 10)
	require.NoError(t, err)
	require.NoError(t, age.Set(series))

	tbl, err := table.Get()
	require.NoError(t, err)
	got, err := tbl.Column("age")
	require.NoError(t, err)
	assert.Equal(t, []any{10, nil, 30}, got.Values)
	assert.Equal(t, []string{"id", "name", "age"}, tbl.Columns())
}

func TestColumnSetKeyedBy(t *testing.T) {
	t.Parallel()

	table := process.NewReference(process.WithValue(newPeopleTable(t)))
	id := process.NewColumn(table, "id")
	score := process.NewColumn(table, "score", process.KeyedByColumn(id))

	series := frame.SeriesOf("score", []string{"c", "a", "z"}, map[string]int{"a": 1, "c": 3, "z": 26})
	require.NoError(t, score.Set(series))

	got, err := score.Get()
	require.NoError(t, err)
	assert.Equal(t, []any{1, nil, 3}, got.Values)
}

func TestColumnSetMissingKey(t *testing.T) {
	t.Parallel()

	table := process.NewReference(process.WithValue(newPeopleTable(t)))
	score := process.NewColumn(table, "score", process.KeyedBy("unknown"))

	err := score.Set(frame.SeriesOf("score", []string{"a"}, map[string]int{"a": 1}))
	require.ErrorIs(t, err, process.ErrMissingColumn)
}

func TestColumnSetAbsentParent(t *testing.T) {
	t.Parallel()

	table := process.NewReference[*frame.Table]()
	score := process.NewColumn(table, "score")

	err := score.Set(frame.SeriesOf("score", []string{"a"}, map[string]int{"a": 1}))
	require.ErrorIs(t, err, process.ErrMissingValue)
}

func TestColumnClearKeepsTableColumn(t *testing.T) {
	t.Parallel()

	table := process.NewReference(process.WithValue(newPeopleTable(t)))
	name := process.NewColumn(table, "name")

	require.NoError(t, name.Clear())
	assert.False(t, name.HasValue())
	_, err := name.Get()
	require.ErrorIs(t, err, process.ErrMissingValue)

	tbl, err := table.Get()
	require.NoError(t, err)
	assert.True(t, tbl.HasColumn("name"))

	require.NoError(t, name.Set(frame.SeriesOf("name", []int{0}, map[int]string{0: "amy"})))
	assert.True(t, name.HasValue())
}

func TestColumnClearIsScopedToParentTable(t *testing.T) {
	t.Parallel()

	table := process.NewReference(process.WithValue(newPeopleTable(t)))
	name := process.NewColumn(table, "name")
	require.NoError(t, name.Clear())
	require.False(t, name.HasValue())

	require.NoError(t, table.Set(newPeopleTable(t)))
	assert.True(t, name.HasValue())
	got, err := name.Get()
	require.NoError(t, err)
	assert.Equal(t, []any{"ann", "bob", "cid"}, got.Values)
}

func TestColumnObservesSeriesReference(t *testing.T) {
	t.Parallel()

	table := process.NewReference(process.WithValue(newPeopleTable(t)))
	flag := process.NewColumn(table, "flag")
	series := process.NewReference(process.WithOnSet[frame.Series](flag))

	s, err := frame.NewSeries("flag", frame.RangeIndex(3), true, false, true)
	require.NoError(t, err)
	require.NoError(t, series.Set(s))

	got, err := flag.Get()
	require.NoError(t, err)
	assert.Equal(t, []any{true, false, true}, got.Values)

	require.NoError(t, series.Clear())
	assert.False(t, flag.HasValue())
}

func TestIndexRef(t *testing.T) {
	t.Parallel()

	index, err := frame.NewMultiIndex([]string{"country", "year"}, []any{"fr", "uk"}, []any{2020, 2021})
	require.NoError(t, err)
	tbl := frame.NewTable(index)
	table := process.NewReference(process.WithValue(tbl))

	whole := process.NewIndexRef(table)
	got, err := whole.Get()
	require.NoError(t, err)
	assert.Equal(t, []any{frame.TupleOf("fr", 2020), frame.TupleOf("uk", 2021)}, got.Values)

	year := process.NewIndexLevelRef(table, 1)
	got, err = year.Get()
	require.NoError(t, err)
	assert.Equal(t, "year", got.Name)
	assert.Equal(t, []any{2020, 2021}, got.Values)

	outOfRange := process.NewIndexLevelRef(table, 2)
	assert.False(t, outOfRange.HasValue())
	_, err = outOfRange.Get()
	require.ErrorIs(t, err, process.ErrMissingValue)

	empty := process.NewIndexRef(process.NewReference[*frame.Table]())
	assert.False(t, empty.HasValue())
}
